package mqtt

// NopPublisher discards every event. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishReading(ReadingEvent) error { return nil }
func (NopPublisher) PublishRelay(RelayEvent) error     { return nil }
func (NopPublisher) PublishSystem(SystemEvent) error   { return nil }
func (NopPublisher) Close() error                      { return nil }
func (NopPublisher) IsConnected() bool                 { return false }
