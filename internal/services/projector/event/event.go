// Package event defines the inbound event envelope, the type tags the
// projector handles, and their typed change descriptions.
package event

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/louisbranch/courtapps/internal/platform/errors"
)

// Type is an event type tag, e.g. "application.ejected".
type Type string

// Envelope is one delivered domain event.
type Envelope struct {
	ID          string          `json:"id"`
	Type        Type            `json:"type"`
	OccurredAt  time.Time       `json:"occurredAt"`
	PayloadJSON json.RawMessage `json:"payload"`
}

// Parse decodes a wire envelope. An envelope without an id is assigned one so
// that outbox rows can still reference it.
func Parse(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, apperrors.Wrap(apperrors.CodeMalformedEvent, "decode event envelope", err)
	}
	env.Type = Type(strings.TrimSpace(string(env.Type)))
	if env.Type == "" {
		return Envelope{}, apperrors.New(apperrors.CodeMalformedEvent, "event type is required")
	}
	if len(env.PayloadJSON) == 0 || string(env.PayloadJSON) == "null" {
		return Envelope{}, apperrors.WithMetadata(apperrors.CodeMalformedEvent, "event payload is required",
			map[string]string{"event_type": string(env.Type)})
	}
	env.ID = strings.TrimSpace(env.ID)
	if env.ID == "" {
		env.ID = uuid.NewString()
	}
	return env, nil
}

// Marshal encodes the envelope in its wire form.
func (e Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// New builds an envelope for payload. Used by producers and tests.
func New(t Type, payload any) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		ID:          uuid.NewString(),
		Type:        t,
		OccurredAt:  time.Now().UTC(),
		PayloadJSON: data,
	}, nil
}
