package websocket

import (
	"encoding/json"

	"github.com/rs/zerolog/log"
)

// Message defines the structure for websocket messages.
type Message struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload,omitempty"`
}

// Encode marshals a message, logging and returning nil on failure.
func Encode(event string, payload interface{}) []byte {
	b, err := json.Marshal(Message{Event: event, Payload: payload})
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("Failed to encode websocket message")
		return nil
	}
	return b
}

// NewErrorMessage builds an "error" frame sent to a single client.
func NewErrorMessage(msg string) []byte {
	return Encode("error", map[string]string{"message": msg})
}
