package platform

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/livekit/protocol/livekit"
	"github.com/twitchtv/twirp"
)

type fakeRooms struct {
	got *livekit.CreateRoomRequest
	err error
}

func (f *fakeRooms) CreateRoom(_ context.Context, req *livekit.CreateRoomRequest) (*livekit.Room, error) {
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	return &livekit.Room{Sid: "RM_" + req.Name, Name: req.Name}, nil
}

const lkSecret = "lk-secret-lk-secret-lk-secret-123"

func testLiveKit(t *testing.T, rooms roomService) *LiveKitProvider {
	t.Helper()
	p, err := newLiveKitProvider(LiveKitConfig{APIKey: "lk-key", APISecret: lkSecret, TokenTTL: time.Hour, ClockSkew: time.Minute}, rooms)
	if err != nil {
		t.Fatalf("provider: %v", err)
	}
	return p
}

func parseLiveKit(t *testing.T, tok string, now time.Time) jwt.MapClaims {
	t.Helper()
	claims := jwt.MapClaims{}
	_, err := jwt.NewParser(jwt.WithTimeFunc(func() time.Time { return now })).
		ParseWithClaims(tok, claims, func(*jwt.Token) (any, error) {
			return []byte(lkSecret), nil
		})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return claims
}

func TestLiveKitTokenCarriesIdentityAndRoomGrant(t *testing.T) {
	p := testLiveKit(t, &fakeRooms{})

	now := time.Now()
	tok, err := p.CreateToken(context.Background(), TokenRequest{UserID: "guest-bob", UserName: "Bob", CallID: "m-1", Now: now})
	if err != nil {
		t.Fatalf("token: %v", err)
	}

	claims := parseLiveKit(t, tok.Value, now)
	if claims["sub"] != "guest-bob" || claims["iss"] != "lk-key" || claims["name"] != "Bob" {
		t.Fatalf("unexpected claims %v", claims)
	}
	video, _ := claims["video"].(map[string]any)
	if video["room"] != "m-1" || video["roomJoin"] != true {
		t.Fatalf("unexpected video grant %v", video)
	}
}

func TestLiveKitTokenUsesIssuanceWindow(t *testing.T) {
	p := testLiveKit(t, &fakeRooms{})
	now := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	tok, err := p.CreateToken(context.Background(), TokenRequest{UserID: "guest-bob", CallID: "m-1", Now: now})
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if !tok.ExpiresAt.Equal(now.Add(time.Hour)) {
		t.Fatalf("unexpected ExpiresAt %v", tok.ExpiresAt)
	}

	claims := parseLiveKit(t, tok.Value, now)
	want := map[string]int64{
		"iat": now.Add(-time.Minute).Unix(),
		"nbf": now.Add(-time.Minute).Unix(),
		"exp": now.Add(time.Hour).Unix(),
	}
	for name, v := range want {
		got, ok := claims[name].(float64)
		if !ok || int64(got) != v {
			t.Fatalf("claim %s = %v, want %d", name, claims[name], v)
		}
	}
}

func TestLiveKitTokenRequiresCallID(t *testing.T) {
	p := testLiveKit(t, &fakeRooms{})
	_, err := p.CreateToken(context.Background(), TokenRequest{UserID: "u"})
	if KindOf(err) != KindInvalid {
		t.Fatalf("expected invalid kind, got %v", err)
	}
}

func TestLiveKitGetOrCreateCallStoresMetadata(t *testing.T) {
	rooms := &fakeRooms{}
	p := testLiveKit(t, rooms)

	info, err := p.GetOrCreateCall(context.Background(), CallRequest{
		ID:          "m-1",
		CreatedByID: "host-ann",
		MemberIDs:   []string{"host-ann", "guest-bob"},
		Custom:      map[string]any{"type": "one-to-one"},
	})
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if info.CID != "RM_m-1" {
		t.Fatalf("unexpected cid %q", info.CID)
	}
	var meta roomMetadata
	if err := json.Unmarshal([]byte(rooms.got.Metadata), &meta); err != nil {
		t.Fatalf("metadata: %v", err)
	}
	if meta.CreatedByID != "host-ann" || len(meta.MemberIDs) != 2 {
		t.Fatalf("unexpected metadata %+v", meta)
	}
}

func TestLiveKitRoomErrorsUseTwirpCodes(t *testing.T) {
	cases := []struct {
		err  error
		want Kind
	}{
		{twirp.NewError(twirp.Unauthenticated, "invalid token"), KindAuth},
		{twirp.NewError(twirp.PermissionDenied, "no room create grant"), KindPermission},
		{twirp.NewError(twirp.Internal, "token permission mixup"), KindUpstream},
		{errors.New("dial tcp: permission denied"), KindUpstream},
	}
	for _, tc := range cases {
		p := testLiveKit(t, &fakeRooms{err: tc.err})
		_, err := p.GetOrCreateCall(context.Background(), CallRequest{ID: "m-1"})
		if got := KindOf(err); got != tc.want {
			t.Fatalf("KindOf(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
