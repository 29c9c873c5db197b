package platform

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"meeting-platform/internal/auth"

	"github.com/go-resty/resty/v2"
)

const (
	streamAuthTypeHeader = "stream-auth-type"
	streamAuthTypeJWT    = "jwt"
)

// Stream error codes that identify credential and permission problems.
var (
	streamAuthCodes       = map[int]bool{5: true, 40: true, 41: true, 42: true, 43: true}
	streamPermissionCodes = map[int]bool{17: true}
)

type StreamConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// StreamProvider talks to the Stream video REST API.
type StreamProvider struct {
	http   *resty.Client
	signer *auth.Signer
}

func NewStreamProvider(cfg StreamConfig, signer *auth.Signer) (*StreamProvider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("platform: stream api key is required")
	}
	if signer == nil {
		return nil, errors.New("platform: stream signer is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	c := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetQueryParam("api_key", cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		SetHeader(streamAuthTypeHeader, streamAuthTypeJWT)
	return &StreamProvider{http: c, signer: signer}, nil
}

func (p *StreamProvider) Name() string { return "stream" }

type streamAPIError struct {
	Code       int    `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"StatusCode"`
}

type upsertUsersRequest struct {
	Users map[string]User `json:"users"`
}

func (p *StreamProvider) UpsertUsers(ctx context.Context, users []User) error {
	if len(users) == 0 {
		return nil
	}
	body := upsertUsersRequest{Users: make(map[string]User, len(users))}
	for _, u := range users {
		body.Users[u.ID] = u
	}
	_, err := p.post(ctx, "upsert users", "/api/v2/users", body, nil)
	return err
}

func (p *StreamProvider) CreateToken(_ context.Context, req TokenRequest) (Token, error) {
	tok, exp, err := p.signer.UserToken(req.UserID, req.Now)
	if err != nil {
		return Token{}, &Error{Kind: KindInvalid, Op: "create token", Err: err}
	}
	return Token{Value: tok, ExpiresAt: exp}, nil
}

type callMember struct {
	UserID string `json:"user_id"`
}

type getOrCreateCallRequest struct {
	Data struct {
		CreatedByID string         `json:"created_by_id"`
		Members     []callMember   `json:"members,omitempty"`
		Custom      map[string]any `json:"custom,omitempty"`
	} `json:"data"`
}

type getOrCreateCallResponse struct {
	Call struct {
		CID string `json:"cid"`
	} `json:"call"`
	Created bool `json:"created"`
}

func (p *StreamProvider) GetOrCreateCall(ctx context.Context, req CallRequest) (CallInfo, error) {
	if req.ID == "" {
		return CallInfo{}, &Error{Kind: KindInvalid, Op: "get or create call", Msg: "call id is required"}
	}
	callType := req.Type
	if callType == "" {
		callType = CallTypeDefault
	}

	var body getOrCreateCallRequest
	body.Data.CreatedByID = req.CreatedByID
	body.Data.Custom = req.Custom
	for _, id := range req.MemberIDs {
		body.Data.Members = append(body.Data.Members, callMember{UserID: id})
	}

	var out getOrCreateCallResponse
	path := fmt.Sprintf("/api/v2/video/call/%s/%s", url.PathEscape(callType), url.PathEscape(req.ID))
	if _, err := p.post(ctx, "get or create call", path, body, &out); err != nil {
		return CallInfo{}, err
	}
	cid := out.Call.CID
	if cid == "" {
		cid = callType + ":" + req.ID
	}
	return CallInfo{CID: cid, Created: out.Created}, nil
}

func (p *StreamProvider) post(ctx context.Context, op, path string, body, result any) (*resty.Response, error) {
	serverToken, err := p.signer.ServerToken()
	if err != nil {
		return nil, &Error{Kind: KindAuth, Op: op, Msg: "sign server token", Err: err}
	}

	var apiErr streamAPIError
	r := p.http.R().
		SetContext(ctx).
		SetHeader("Authorization", serverToken).
		SetBody(body).
		SetError(&apiErr)
	if result != nil {
		r.SetResult(result)
	}

	resp, err := r.Post(path)
	if err != nil {
		return nil, &Error{Kind: KindUpstream, Op: op, Err: err}
	}
	if resp.IsError() {
		return resp, streamError(op, resp.StatusCode(), apiErr)
	}
	return resp, nil
}

func streamError(op string, status int, apiErr streamAPIError) *Error {
	kind := kindForStatus(status)
	switch {
	case streamAuthCodes[apiErr.Code]:
		kind = KindAuth
	case streamPermissionCodes[apiErr.Code]:
		kind = KindPermission
	}
	msg := apiErr.Message
	if msg == "" {
		msg = fmt.Sprintf("unexpected status %d", status)
	}
	return &Error{Kind: kind, Op: op, Status: status, Code: apiErr.Code, Msg: msg}
}
