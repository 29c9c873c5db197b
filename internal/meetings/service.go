package meetings

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"meeting-platform/internal/audit"
	"meeting-platform/internal/auth"
	"meeting-platform/internal/metrics"
	"meeting-platform/internal/platform"
)

const (
	roleUser        = "user"
	meetingType     = "one-to-one"
	isoMillisLayout = "2006-01-02T15:04:05.000Z07:00"
)

type Options struct {
	// PublicBaseURL overrides the request origin when building meeting links.
	PublicBaseURL string
	Clock         func() time.Time
	Logger        *slog.Logger
}

// Service issues meetings and tokens against the configured platform.
// A nil provider means the platform credentials are missing.
type Service struct {
	provider platform.Provider
	store    Store
	audit    *audit.Service
	baseURL  string
	clock    func() time.Time
	log      *slog.Logger
}

func NewService(p platform.Provider, store Store, auditSvc *audit.Service, opts Options) *Service {
	if store == nil {
		store = NewMemoryStore()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{
		provider: p,
		store:    store,
		audit:    auditSvc,
		baseURL:  opts.PublicBaseURL,
		clock:    opts.Clock,
		log:      opts.Logger,
	}
}

// Configured reports whether issuance can reach the platform.
func (s *Service) Configured() bool { return s.provider != nil }

// Create registers both parties, mints their tokens and creates the call.
func (s *Service) Create(ctx context.Context, req CreateRequest) (Created, error) {
	if !s.Configured() {
		return Created{}, ErrNotConfigured
	}
	if err := ValidateNames(req.HostName, req.GuestName); err != nil {
		return Created{}, err
	}

	now := s.clock()
	meetingID, err := NewMeetingID(now)
	if err != nil {
		return Created{}, err
	}

	hostName := strings.TrimSpace(req.HostName)
	guestName := strings.TrimSpace(req.GuestName)
	hostID := auth.DeriveUserID(auth.PrefixHost, req.HostName)
	guestID := auth.DeriveUserID(auth.PrefixGuest, req.GuestName)

	done := metrics.ObservePlatform("upsert_users")
	err = s.provider.UpsertUsers(ctx, []platform.User{
		{ID: hostID, Name: hostName, Role: roleUser, Custom: map[string]any{"type": "host"}},
		{ID: guestID, Name: guestName, Role: roleUser, Custom: map[string]any{"type": "guest"}},
	})
	done()
	if err != nil {
		return Created{}, err
	}

	hostTok, err := s.provider.CreateToken(ctx, platform.TokenRequest{UserID: hostID, UserName: hostName, CallID: meetingID, Now: now})
	if err != nil {
		return Created{}, err
	}
	guestTok, err := s.provider.CreateToken(ctx, platform.TokenRequest{UserID: guestID, UserName: guestName, CallID: meetingID, Now: now})
	if err != nil {
		return Created{}, err
	}

	done = metrics.ObservePlatform("get_or_create_call")
	call, err := s.provider.GetOrCreateCall(ctx, platform.CallRequest{
		Type:        platform.CallTypeDefault,
		ID:          meetingID,
		CreatedByID: hostID,
		MemberIDs:   []string{hostID, guestID},
		Custom: map[string]any{
			"hostName":  hostName,
			"guestName": guestName,
			"type":      meetingType,
			"createdAt": now.UTC().Format(isoMillisLayout),
			"isFromApi": true,
		},
	})
	done()
	if err != nil {
		return Created{}, err
	}

	m := Meeting{
		ID:        meetingID,
		URL:       MeetingURL(s.baseURL, req.Origin, meetingID),
		CallCID:   call.CID,
		HostID:    hostID,
		HostName:  hostName,
		GuestID:   guestID,
		GuestName: guestName,
		Provider:  s.provider.Name(),
		CreatedAt: now.UTC(),
		ExpiresAt: hostTok.ExpiresAt.UTC(),
	}

	// The call exists upstream at this point; storage and audit must not fail the request.
	if err := s.store.Save(ctx, m); err != nil {
		s.log.Warn("meeting store save failed", "meeting_id", meetingID, "error", err)
	}
	caller := audit.Caller{Key: req.CallerKey, Origin: req.Origin, IP: req.ClientIP}
	if err := s.audit.LogMeetingCreated(ctx, caller, meetingID, hostID, guestID); err != nil {
		s.log.Warn("audit append failed", "meeting_id", meetingID, "error", err)
	}

	metrics.MeetingsCreated.Inc()
	metrics.RecordTokens(s.provider.Name(), 2)
	s.log.Info("meeting created", "meeting_id", meetingID, "host_id", hostID, "guest_id", guestID, "created", call.Created)

	return Created{Meeting: m, HostToken: hostTok.Value, GuestToken: guestTok.Value}, nil
}

func (s *Service) Get(ctx context.Context, id string) (Meeting, error) {
	if strings.TrimSpace(id) == "" {
		return Meeting{}, ErrNotFound
	}
	return s.store.Get(ctx, id)
}

// IssueToken mints a token for the caller. An authenticated identity wins;
// otherwise a named guest gets a derived id and an anonymous guest a random one.
func (s *Service) IssueToken(ctx context.Context, req TokenRequest) (IssuedToken, error) {
	if !s.Configured() {
		return IssuedToken{}, ErrNotConfigured
	}
	if cs, ok := s.provider.(platform.CallScoped); ok && cs.RequiresCallID() && strings.TrimSpace(req.CallID) == "" {
		return IssuedToken{}, ErrCallRequired
	}

	userID := req.AuthenticatedUserID
	userName := req.UserName
	switch {
	case userID != "":
	case strings.TrimSpace(req.GuestName) != "":
		userID = auth.DeriveUserID(auth.PrefixGuest, req.GuestName)
		userName = strings.TrimSpace(req.GuestName)
	default:
		id, err := auth.RandomGuestID()
		if err != nil {
			return IssuedToken{}, err
		}
		userID = id
	}

	tok, err := s.provider.CreateToken(ctx, platform.TokenRequest{
		UserID:   userID,
		UserName: userName,
		CallID:   strings.TrimSpace(req.CallID),
		Now:      s.clock(),
	})
	if err != nil {
		return IssuedToken{}, err
	}

	caller := audit.Caller{Key: req.CallerKey, Origin: req.Origin, IP: req.ClientIP}
	if err := s.audit.LogTokenIssued(ctx, caller, userID, req.CallID); err != nil {
		s.log.Warn("audit append failed", "user_id", userID, "error", err)
	}
	metrics.RecordTokens(s.provider.Name(), 1)

	return IssuedToken{UserID: userID, Token: tok.Value, ExpiresAt: tok.ExpiresAt}, nil
}
