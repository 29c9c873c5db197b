package platform

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"meeting-platform/internal/auth"

	"github.com/golang-jwt/jwt/v5"
	lkauth "github.com/livekit/protocol/auth"
	"github.com/livekit/protocol/livekit"
	lksdk "github.com/livekit/server-sdk-go/v2"
	"github.com/twitchtv/twirp"
)

// roomService is the subset of lksdk.RoomServiceClient we use.
type roomService interface {
	CreateRoom(ctx context.Context, req *livekit.CreateRoomRequest) (*livekit.Room, error)
}

type LiveKitConfig struct {
	URL       string
	APIKey    string
	APISecret string
	TokenTTL  time.Duration
	ClockSkew time.Duration
}

// LiveKitProvider maps meetings onto LiveKit rooms. LiveKit has no user
// directory, so UpsertUsers is a no-op and tokens are scoped to one room.
type LiveKitProvider struct {
	apiKey string
	signer *auth.Signer
	rooms  roomService
}

func NewLiveKitProvider(cfg LiveKitConfig) (*LiveKitProvider, error) {
	if cfg.URL == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, errors.New("platform: livekit url, api key and secret are required")
	}
	client := lksdk.NewRoomServiceClient(cfg.URL, cfg.APIKey, cfg.APISecret)
	return newLiveKitProvider(cfg, client)
}

func newLiveKitProvider(cfg LiveKitConfig, rooms roomService) (*LiveKitProvider, error) {
	signer, err := auth.NewSigner(cfg.APISecret, cfg.TokenTTL, cfg.ClockSkew)
	if err != nil {
		return nil, err
	}
	return &LiveKitProvider{apiKey: cfg.APIKey, signer: signer, rooms: rooms}, nil
}

func (p *LiveKitProvider) Name() string { return "livekit" }

func (p *LiveKitProvider) UpsertUsers(context.Context, []User) error { return nil }

// liveKitClaims is the access token shape LiveKit servers accept.
type liveKitClaims struct {
	jwt.RegisteredClaims

	Name  string             `json:"name,omitempty"`
	Video *lkauth.VideoGrant `json:"video,omitempty"`
}

// CreateToken signs a room-scoped token over the same issued-at/expiry
// window as every other platform token. nbf equals the backdated iat.
func (p *LiveKitProvider) CreateToken(_ context.Context, req TokenRequest) (Token, error) {
	if req.UserID == "" {
		return Token{}, &Error{Kind: KindInvalid, Op: "create token", Msg: "user id is required"}
	}
	if req.CallID == "" {
		return Token{}, &Error{Kind: KindInvalid, Op: "create token", Msg: "call id is required for livekit tokens"}
	}

	canPublish := true
	canSubscribe := true
	canPublishData := true

	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}
	iat, exp := p.signer.Window(now)

	signed, err := p.signer.Sign(liveKitClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    p.apiKey,
			Subject:   req.UserID,
			IssuedAt:  jwt.NewNumericDate(iat),
			NotBefore: jwt.NewNumericDate(iat),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Name: req.UserName,
		Video: &lkauth.VideoGrant{
			RoomJoin:       true,
			Room:           req.CallID,
			CanPublish:     &canPublish,
			CanSubscribe:   &canSubscribe,
			CanPublishData: &canPublishData,
		},
	})
	if err != nil {
		return Token{}, &Error{Kind: KindAuth, Op: "create token", Err: err}
	}
	return Token{Value: signed, ExpiresAt: exp}, nil
}

// roomMetadata is stored as the room's metadata string.
type roomMetadata struct {
	CreatedByID string         `json:"createdById"`
	MemberIDs   []string       `json:"memberIds,omitempty"`
	Custom      map[string]any `json:"custom,omitempty"`
}

func (p *LiveKitProvider) GetOrCreateCall(ctx context.Context, req CallRequest) (CallInfo, error) {
	if req.ID == "" {
		return CallInfo{}, &Error{Kind: KindInvalid, Op: "get or create call", Msg: "call id is required"}
	}
	meta, err := json.Marshal(roomMetadata{CreatedByID: req.CreatedByID, MemberIDs: req.MemberIDs, Custom: req.Custom})
	if err != nil {
		return CallInfo{}, &Error{Kind: KindInvalid, Op: "get or create call", Err: err}
	}

	room, err := p.rooms.CreateRoom(ctx, &livekit.CreateRoomRequest{
		Name:     req.ID,
		Metadata: string(meta),
	})
	if err != nil {
		return CallInfo{}, &Error{Kind: liveKitKind(err), Op: "get or create call", Err: err}
	}
	return CallInfo{CID: room.GetSid(), Created: true}, nil
}

func (p *LiveKitProvider) RequiresCallID() bool { return true }

// liveKitKind maps the room service's twirp codes. Errors without a code,
// such as transport failures, are generic upstream failures.
func liveKitKind(err error) Kind {
	var te twirp.Error
	if !errors.As(err, &te) {
		return KindUpstream
	}
	switch te.Code() {
	case twirp.Unauthenticated:
		return KindAuth
	case twirp.PermissionDenied:
		return KindPermission
	case twirp.NotFound:
		return KindNotFound
	case twirp.InvalidArgument, twirp.Malformed:
		return KindInvalid
	case twirp.ResourceExhausted:
		return KindRateLimited
	}
	return KindUpstream
}
