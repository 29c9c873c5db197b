package meetings

import "time"

// Meeting is the persisted record of an issued meeting. Tokens are never stored.
type Meeting struct {
	ID        string    `json:"meetingId" db:"id"`
	URL       string    `json:"meetingUrl" db:"url"`
	CallCID   string    `json:"callCid,omitempty" db:"call_cid"`
	HostID    string    `json:"hostId" db:"host_id"`
	HostName  string    `json:"hostName" db:"host_name"`
	GuestID   string    `json:"guestId" db:"guest_id"`
	GuestName string    `json:"guestName" db:"guest_name"`
	Provider  string    `json:"provider" db:"provider"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	ExpiresAt time.Time `json:"expiresAt" db:"expires_at"`
}

// CreateRequest is one POST /api/meetings call after transport decoding.
type CreateRequest struct {
	HostName  string
	GuestName string

	Origin    string
	CallerKey string
	ClientIP  string
}

// Created is the issuance result returned to the caller.
type Created struct {
	Meeting    Meeting
	HostToken  string
	GuestToken string
}

// TokenRequest is one POST /api/token call.
type TokenRequest struct {
	// AuthenticatedUserID comes from a verified identity-provider session.
	AuthenticatedUserID string
	UserName            string
	GuestName           string
	CallID              string

	Origin    string
	CallerKey string
	ClientIP  string
}

type IssuedToken struct {
	UserID    string
	Token     string
	ExpiresAt time.Time
}
