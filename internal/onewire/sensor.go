package onewire

import (
	"context"
	"log"

	"github.com/sweeney/thermo-relay/internal/logic"
)

// Sensor reads verified temperatures from one probe.
type Sensor struct {
	link    *Link
	decoder *Decoder
}

// NewSensor combines a Link and a Decoder.
func NewSensor(link *Link, decoder *Decoder) *Sensor {
	return &Sensor{link: link, decoder: decoder}
}

// Read returns the current temperature.
func (s *Sensor) Read(ctx context.Context) (logic.Reading, error) {
	r, err := s.decoder.Decode(ctx, s.link.Read)
	if err != nil {
		return logic.Reading{}, err
	}
	log.Printf("onewire: temperature %.2f°C / %.2f°F", r.Celsius, r.Fahrenheit)
	return r, nil
}
