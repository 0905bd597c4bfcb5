package services

import "github.com/rs/zerolog/log"

// EventPublisher fans real-time events out to connected clients.
type EventPublisher interface {
	Publish(event string, payload interface{})
}

// LogPublisher records events in the log only. Used when no real-time hub is wired.
type LogPublisher struct{}

// Publish implements EventPublisher.
func (LogPublisher) Publish(event string, payload interface{}) {
	log.Debug().Str("event", event).Interface("payload", payload).Msg("Event published")
}
