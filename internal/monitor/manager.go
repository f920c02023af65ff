package monitor

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

// ErrShutdownTimeout is returned by Stop when a task outlives the grace period.
var ErrShutdownTimeout = errors.New("monitor: background tasks did not stop within grace period")

// Task is a background job. It must return promptly once ctx is cancelled.
type Task func(ctx context.Context) error

// Manager starts background tasks at startup and cancels them at shutdown.
type Manager struct {
	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running int
}

// NewManager creates an idle Manager.
func NewManager() *Manager {
	return &Manager{}
}

// Start runs each task in its own goroutine. With no tasks it does nothing.
func (m *Manager) Start(ctx context.Context, tasks ...Task) {
	if len(tasks) == 0 {
		log.Printf("monitor: no background tasks provided")
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	prev := m.cancel
	m.cancel = func() {
		if prev != nil {
			prev()
		}
		cancel()
	}

	for _, task := range tasks {
		m.running++
		m.wg.Add(1)
		go func(task Task) {
			defer m.wg.Done()
			err := task(ctx)
			m.mu.Lock()
			m.running--
			m.mu.Unlock()
			switch {
			case err == nil, errors.Is(err, context.Canceled):
				log.Printf("monitor: background task cancelled")
			default:
				log.Printf("monitor: background task exited: %v", err)
			}
		}(task)
	}
	log.Printf("monitor: started %d background tasks", len(tasks))
}

// Running returns the number of tasks that have not returned yet.
func (m *Manager) Running() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Stop cancels every task and waits up to grace for them to return.
func (m *Manager) Stop(grace time.Duration) error {
	m.mu.Lock()
	cancel := m.cancel
	m.cancel = nil
	m.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	t := time.NewTimer(grace)
	defer t.Stop()
	select {
	case <-done:
		return nil
	case <-t.C:
		return ErrShutdownTimeout
	}
}
