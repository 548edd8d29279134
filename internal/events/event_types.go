package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserSignedUp EventType = "user_signed_up"
	EventTokenIssued  EventType = "token_issued"
	EventSignInFailed EventType = "sign_in_failed"
)

// Event represents an authentication event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Subject   string    `json:"subject,omitempty"`
	Username  string    `json:"username,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
}

// NewEvent stamps an event with a fresh ID and the current time.
func NewEvent(eventType EventType, subject, username string, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Subject:   subject,
		Username:  username,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// TokenIssuedPayload payload.
type TokenIssuedPayload struct {
	ExpiresAt time.Time `json:"expires_at"`
}

// SignInFailedPayload payload.
type SignInFailedPayload struct {
	Reason string `json:"reason"`
}
