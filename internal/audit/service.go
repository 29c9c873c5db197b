package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events. Append-only.
type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service records issuance activity. Callers treat failures as best-effort.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s == nil || s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.Type == "" || e.CallerKey == "" {
		return ErrInvalidEvent
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	return s.repo.Append(ctx, e)
}

// Caller identifies who asked for an issuance.
type Caller struct {
	Key    string
	Origin string
	IP     string
}

// LogMeetingCreated records a successful POST /api/meetings.
func (s *Service) LogMeetingCreated(ctx context.Context, c Caller, meetingID, hostID, guestID string) error {
	return s.Append(ctx, Event{
		Type:      EventTypeMeetingCreated,
		CallerKey: c.Key,
		Origin:    c.Origin,
		IPAddress: c.IP,
		MeetingID: meetingID,
		UserIDs:   []string{hostID, guestID},
		Message:   "meeting created",
	})
}

// LogTokenIssued records a standalone token issuance.
func (s *Service) LogTokenIssued(ctx context.Context, c Caller, userID, callID string) error {
	return s.Append(ctx, Event{
		Type:      EventTypeTokenIssued,
		CallerKey: c.Key,
		Origin:    c.Origin,
		IPAddress: c.IP,
		MeetingID: callID,
		UserIDs:   []string{userID},
		Message:   "token issued",
	})
}
