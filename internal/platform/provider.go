package platform

import (
	"context"
	"time"
)

// Provider is the server-side boundary to the hosted call/chat platform.
//
// Rules:
// - No platform SDK or REST calls outside platform adapters.
// - Request/response types stay provider-agnostic; provider specifics go in Custom.
type Provider interface {
	Name() string

	// UpsertUsers creates or updates users in one round-trip.
	UpsertUsers(ctx context.Context, users []User) error

	// CreateToken mints a client credential for one user. CallID is
	// required only by providers whose tokens are scoped to a room.
	CreateToken(ctx context.Context, req TokenRequest) (Token, error)

	// GetOrCreateCall is idempotent on (Type, ID).
	GetOrCreateCall(ctx context.Context, req CallRequest) (CallInfo, error)
}

type User struct {
	ID     string         `json:"id"`
	Name   string         `json:"name,omitempty"`
	Role   string         `json:"role,omitempty"`
	Custom map[string]any `json:"custom,omitempty"`
}

type TokenRequest struct {
	UserID   string
	UserName string
	CallID   string
	Now      time.Time
}

type Token struct {
	Value     string
	ExpiresAt time.Time
}

// CallTypeDefault is the only call type the issuance endpoint creates.
const CallTypeDefault = "default"

type CallRequest struct {
	Type        string
	ID          string
	CreatedByID string
	MemberIDs   []string
	Custom      map[string]any
}

type CallInfo struct {
	// CID is the provider's composite id, e.g. "default:1700000000000-ab12cd".
	CID     string
	Created bool
}

// CallScoped is implemented by providers whose tokens only admit one call.
type CallScoped interface {
	RequiresCallID() bool
}
