package audit

import "time"

// Event is an immutable, append-only record of a credential issuance.
//
// Invariants:
// - Events are never updated or deleted.
// - Tokens are never recorded; only the ids they were issued for.
// - Audit is best-effort; issuance never fails because of it.
type Event struct {
	ID   string    `json:"id" db:"id"`
	Type EventType `json:"type" db:"type"`

	// CallerKey is the x-api-key value, or "anonymous".
	CallerKey string `json:"caller_key" db:"caller_key"`
	Origin    string `json:"origin,omitempty" db:"origin"`
	IPAddress string `json:"ip_address,omitempty" db:"ip_address"`

	MeetingID string   `json:"meeting_id,omitempty" db:"meeting_id"`
	UserIDs   []string `json:"user_ids,omitempty" db:"user_ids"`

	Message string `json:"message,omitempty" db:"message"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeMeetingCreated EventType = "meeting_created"
	EventTypeTokenIssued    EventType = "token_issued"
)
