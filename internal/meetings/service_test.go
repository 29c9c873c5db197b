package meetings

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"meeting-platform/internal/audit"
	"meeting-platform/internal/platform"
	"meeting-platform/pkg/logger"
)

type fakeProvider struct {
	mu         sync.Mutex
	users      []platform.User
	tokens     []platform.TokenRequest
	calls      []platform.CallRequest
	upsertErr  error
	callErr    error
	callScoped bool
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) UpsertUsers(_ context.Context, users []platform.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users = append(f.users, users...)
	return f.upsertErr
}

func (f *fakeProvider) CreateToken(_ context.Context, req platform.TokenRequest) (platform.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = append(f.tokens, req)
	return platform.Token{Value: "tok-" + req.UserID, ExpiresAt: req.Now.Add(time.Hour)}, nil
}

func (f *fakeProvider) GetOrCreateCall(_ context.Context, req platform.CallRequest) (platform.CallInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	if f.callErr != nil {
		return platform.CallInfo{}, f.callErr
	}
	return platform.CallInfo{CID: req.Type + ":" + req.ID, Created: true}, nil
}

func (f *fakeProvider) RequiresCallID() bool { return f.callScoped }

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestService(p platform.Provider, baseURL string) (*Service, *MemoryStore, *audit.MemoryRepo) {
	store := NewMemoryStore()
	repo := audit.NewMemoryRepo()
	svc := NewService(p, store, audit.NewService(repo), Options{
		PublicBaseURL: baseURL,
		Clock:         func() time.Time { return fixedNow },
		Logger:        logger.Discard(),
	})
	return svc, store, repo
}

func TestCreate_IssuesMeeting(t *testing.T) {
	p := &fakeProvider{}
	svc, store, repo := newTestService(p, "")

	out, err := svc.Create(context.Background(), CreateRequest{
		HostName:  "Ann Lee ",
		GuestName: "Bob",
		Origin:    "https://app.example",
		CallerKey: "anonymous",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	m := out.Meeting
	if !regexp.MustCompile(`^\d+-[0-9a-z]{6}$`).MatchString(m.ID) {
		t.Fatalf("unexpected meeting id %q", m.ID)
	}
	if !strings.HasPrefix(m.ID, "1709294400000-") {
		t.Fatalf("meeting id should start with epoch ms, got %q", m.ID)
	}
	if m.URL != "https://app.example/meeting/"+m.ID {
		t.Fatalf("unexpected url %q", m.URL)
	}
	if m.HostID != "host-ann-lee-" || m.GuestID != "guest-bob" {
		t.Fatalf("unexpected ids %q %q", m.HostID, m.GuestID)
	}
	if m.HostName != "Ann Lee" {
		t.Fatalf("host name should be trimmed, got %q", m.HostName)
	}
	if out.HostToken != "tok-host-ann-lee-" || out.GuestToken != "tok-guest-bob" {
		t.Fatalf("unexpected tokens %q %q", out.HostToken, out.GuestToken)
	}

	if len(p.users) != 2 || p.users[0].Custom["type"] != "host" || p.users[1].Role != "user" {
		t.Fatalf("unexpected upserted users %+v", p.users)
	}
	call := p.calls[0]
	if call.Type != "default" || call.CreatedByID != m.HostID || len(call.MemberIDs) != 2 {
		t.Fatalf("unexpected call request %+v", call)
	}
	if call.Custom["type"] != "one-to-one" || call.Custom["isFromApi"] != true {
		t.Fatalf("unexpected call custom %+v", call.Custom)
	}
	if call.Custom["createdAt"] != "2024-03-01T12:00:00.000Z" {
		t.Fatalf("unexpected createdAt %v", call.Custom["createdAt"])
	}

	if _, err := store.Get(context.Background(), m.ID); err != nil {
		t.Fatalf("meeting should be stored: %v", err)
	}
	if evs := repo.Events(); len(evs) != 1 || evs[0].Type != audit.EventTypeMeetingCreated {
		t.Fatalf("expected one meeting_created event, got %+v", evs)
	}
}

func TestCreate_BaseURLPrecedence(t *testing.T) {
	svc, _, _ := newTestService(&fakeProvider{}, "https://meet.example")
	out, err := svc.Create(context.Background(), CreateRequest{HostName: "a", GuestName: "b", Origin: "https://other.example", CallerKey: "k"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.HasPrefix(out.Meeting.URL, "https://meet.example/meeting/") {
		t.Fatalf("public base url should win, got %q", out.Meeting.URL)
	}

	svc, _, _ = newTestService(&fakeProvider{}, "")
	out, _ = svc.Create(context.Background(), CreateRequest{HostName: "a", GuestName: "b", CallerKey: "k"})
	if !strings.HasPrefix(out.Meeting.URL, "http://localhost:3000/meeting/") {
		t.Fatalf("expected localhost fallback, got %q", out.Meeting.URL)
	}
}

func TestCreate_ValidationHappensBeforePlatformCalls(t *testing.T) {
	p := &fakeProvider{}
	svc, _, _ := newTestService(p, "")

	_, err := svc.Create(context.Background(), CreateRequest{HostName: "   ", GuestName: "Bob"})
	if !errors.Is(err, ErrNamesRequired) {
		t.Fatalf("expected ErrNamesRequired, got %v", err)
	}
	_, err = svc.Create(context.Background(), CreateRequest{HostName: strings.Repeat("a", 51), GuestName: "Bob"})
	if !errors.Is(err, ErrNameTooLong) {
		t.Fatalf("expected ErrNameTooLong, got %v", err)
	}
	if len(p.users) != 0 || len(p.calls) != 0 {
		t.Fatalf("platform should not be touched on validation failure")
	}
}

func TestCreate_NotConfigured(t *testing.T) {
	svc, _, _ := newTestService(nil, "")
	if _, err := svc.Create(context.Background(), CreateRequest{HostName: "a", GuestName: "b"}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestCreate_UpstreamFailureIsClassified(t *testing.T) {
	p := &fakeProvider{upsertErr: &platform.Error{Kind: platform.KindPermission, Op: "upsert users"}}
	svc, _, repo := newTestService(p, "")

	_, err := svc.Create(context.Background(), CreateRequest{HostName: "a", GuestName: "b", CallerKey: "k"})
	if f := Classify(err); f.Status != http.StatusForbidden || f.Message != "Permission denied" {
		t.Fatalf("unexpected failure %+v", f)
	}
	if len(repo.Events()) != 0 {
		t.Fatalf("failed issuance must not be audited")
	}
}

func TestGet(t *testing.T) {
	svc, _, _ := newTestService(&fakeProvider{}, "")
	out, _ := svc.Create(context.Background(), CreateRequest{HostName: "a", GuestName: "b", CallerKey: "k"})

	got, err := svc.Get(context.Background(), out.Meeting.ID)
	if err != nil || got.HostID != "host-a" {
		t.Fatalf("unexpected get result %+v err=%v", got, err)
	}
	if _, err := svc.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestIssueToken_IdentityResolution(t *testing.T) {
	svc, _, repo := newTestService(&fakeProvider{}, "")
	ctx := context.Background()

	got, err := svc.IssueToken(ctx, TokenRequest{AuthenticatedUserID: "user_42", GuestName: "ignored", CallerKey: "k"})
	if err != nil || got.UserID != "user_42" {
		t.Fatalf("authenticated identity should win, got %+v err=%v", got, err)
	}

	got, _ = svc.IssueToken(ctx, TokenRequest{GuestName: "Jo Jo", CallerKey: "k"})
	if got.UserID != "guest-jo-jo" {
		t.Fatalf("expected derived guest id, got %q", got.UserID)
	}

	got, _ = svc.IssueToken(ctx, TokenRequest{CallerKey: "k"})
	if !regexp.MustCompile(`^guest-[0-9a-z]{6}$`).MatchString(got.UserID) {
		t.Fatalf("expected random guest id, got %q", got.UserID)
	}
	if !got.ExpiresAt.Equal(fixedNow.Add(time.Hour)) {
		t.Fatalf("unexpected expiry %v", got.ExpiresAt)
	}
	if n := len(repo.Events()); n != 3 {
		t.Fatalf("expected 3 token_issued events, got %d", n)
	}
}

func TestIssueToken_CallScopedProviderNeedsCallID(t *testing.T) {
	svc, _, _ := newTestService(&fakeProvider{callScoped: true}, "")
	_, err := svc.IssueToken(context.Background(), TokenRequest{CallerKey: "k"})
	if !errors.Is(err, ErrCallRequired) {
		t.Fatalf("expected ErrCallRequired, got %v", err)
	}
	if f := Classify(err); f.Status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", f.Status)
	}
}
