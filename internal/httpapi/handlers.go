package httpapi

import (
	"errors"
	"io"
	"net/http"
	"time"

	"meeting-platform/internal/auth"
	"meeting-platform/internal/meetings"
	"meeting-platform/internal/metrics"
	"meeting-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

const msgInvalidBody = "Invalid request body"

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse input, call the meetings service, return JSON.
type Handlers struct {
	Meetings *meetings.Service
}

type createMeetingRequest struct {
	HostName  string `json:"hostName"`
	GuestName string `json:"guestName"`
}

type createMeetingResponse struct {
	MeetingID  string `json:"meetingId"`
	MeetingURL string `json:"meetingUrl"`
	HostToken  string `json:"hostToken"`
	GuestToken string `json:"guestToken"`
	HostID     string `json:"hostId"`
	GuestID    string `json:"guestId"`
	HostName   string `json:"hostName"`
	GuestName  string `json:"guestName"`
}

// CreateMeeting issues a one-to-one meeting with tokens for both parties.
// Origin, rate limit and API key checks run as middleware before this.
func (h Handlers) CreateMeeting(c *gin.Context) {
	if h.Meetings == nil || !h.Meetings.Configured() {
		h.fail(c, meetings.ErrNotConfigured, metrics.ReasonNotConfigured)
		return
	}

	var req createMeetingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		metrics.RecordRejected(metrics.ReasonInvalidBody)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msgInvalidBody})
		return
	}

	out, err := h.Meetings.Create(c.Request.Context(), meetings.CreateRequest{
		HostName:  req.HostName,
		GuestName: req.GuestName,
		Origin:    c.GetHeader(headerOrigin),
		CallerKey: callerKey(c),
		ClientIP:  c.ClientIP(),
	})
	if err != nil {
		h.fail(c, err, reasonFor(err))
		return
	}

	allowOrigin(c)
	m := out.Meeting
	c.JSON(http.StatusOK, createMeetingResponse{
		MeetingID:  m.ID,
		MeetingURL: m.URL,
		HostToken:  out.HostToken,
		GuestToken: out.GuestToken,
		HostID:     m.HostID,
		GuestID:    m.GuestID,
		HostName:   m.HostName,
		GuestName:  m.GuestName,
	})
}

// Preflight answers CORS preflight for the issuance endpoints.
func (h Handlers) Preflight(c *gin.Context) {
	if c.GetHeader(headerOrigin) != "" {
		allowOrigin(c)
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")
	}
	c.Status(http.StatusNoContent)
}

// GetMeeting returns the stored meeting record. Tokens are never included.
func (h Handlers) GetMeeting(c *gin.Context) {
	if h.Meetings == nil {
		h.fail(c, meetings.ErrNotConfigured, metrics.ReasonNotConfigured)
		return
	}
	m, err := h.Meetings.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, "")
		return
	}
	allowOrigin(c)
	c.JSON(http.StatusOK, m)
}

type issueTokenRequest struct {
	GuestName string `json:"guestName"`
	CallID    string `json:"callId"`
}

type issueTokenResponse struct {
	UserID    string    `json:"userId"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// IssueToken mints a token for the signed-in user, or for a guest.
func (h Handlers) IssueToken(c *gin.Context) {
	if h.Meetings == nil || !h.Meetings.Configured() {
		h.fail(c, meetings.ErrNotConfigured, metrics.ReasonNotConfigured)
		return
	}

	var req issueTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		metrics.RecordRejected(metrics.ReasonInvalidBody)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msgInvalidBody})
		return
	}

	userID, _ := auth.UserID(c.Request.Context())
	out, err := h.Meetings.IssueToken(c.Request.Context(), meetings.TokenRequest{
		AuthenticatedUserID: userID,
		UserName:            auth.DisplayName(c.Request.Context()),
		GuestName:           req.GuestName,
		CallID:              req.CallID,
		Origin:              c.GetHeader(headerOrigin),
		CallerKey:           callerKey(c),
		ClientIP:            c.ClientIP(),
	})
	if err != nil {
		h.fail(c, err, reasonFor(err))
		return
	}

	allowOrigin(c)
	c.JSON(http.StatusOK, issueTokenResponse{UserID: out.UserID, Token: out.Token, ExpiresAt: out.ExpiresAt})
}

func (h Handlers) fail(c *gin.Context, err error, reason string) {
	f := meetings.Classify(err)
	if f.Status >= http.StatusInternalServerError {
		logger.FromGin(c).Error("issuance failed", "error", err)
	} else {
		logger.FromGin(c).Info("issuance rejected", "status", f.Status, "error", err)
	}
	if reason != "" {
		metrics.RecordRejected(reason)
	}
	c.AbortWithStatusJSON(f.Status, gin.H{"error": f.Message})
}

func reasonFor(err error) string {
	if meetings.IsValidation(err) {
		return metrics.ReasonValidation
	}
	return metrics.ReasonUpstream
}
