// Package room holds the UI-facing state of one meeting, independent of any visual skin.
package room

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/lo"

	"meeting-platform/internal/calls"
	"meeting-platform/internal/devices"
	"meeting-platform/internal/layout"
	"meeting-platform/pkg/logger"
)

type Phase string

const (
	PhaseIdle   Phase = "idle"
	PhaseSetup  Phase = "setup"
	PhaseJoined Phase = "joined"
	PhaseEnded  Phase = "ended"
	PhaseLeft   Phase = "left"
)

func (p Phase) Terminal() bool { return p == PhaseEnded || p == PhaseLeft }

// LinkCopiedFor is how long the copy confirmation stays visible.
const LinkCopiedFor = 3 * time.Second

var (
	ErrNoCall         = errors.New("no call mounted")
	ErrCallEnded      = errors.New("The call has been ended by the host")
	ErrCallNotStarted = errors.New("call has not started yet")
	ErrNotSetUp       = errors.New("call must be set up before joining")
	ErrNotCallCreator = errors.New("only the call creator can end the call")
	ErrCallFinished   = errors.New("call already finished")
)

type Clipboard interface {
	WriteText(ctx context.Context, text string) error
}

// Opener opens an external URL (new tab, mail client).
type Opener interface {
	Open(url string) error
}

// Timer is the part of *time.Timer the controller needs.
type Timer interface {
	Stop() bool
}

// DeviceController is satisfied by *devices.Coordinator.
type DeviceController interface {
	Set(ctx context.Context, kind calls.DeviceKind, on bool)
	CheckPermissions(ctx context.Context)
}

// ChatSession is satisfied by *chat.Manager.
type ChatSession interface {
	Initialize(ctx context.Context, participantIDs []string) error
	ParticipantsChanged(ctx context.Context, participantIDs []string) error
	Close()
}

type Options struct {
	// MeetingLink is captured once; later navigation does not change it.
	MeetingLink string

	// PersonalRoom hides the end-call action even for the creator.
	PersonalRoom bool

	// Width is the initial viewport width in CSS pixels.
	Width int

	Clipboard Clipboard
	Opener    Opener
	Sounds    calls.SoundPlayer

	// Devices defaults to a coordinator bound to the mounted call.
	Devices DeviceController
	Chat    ChatSession

	Logger    *slog.Logger
	Clock     func() time.Time
	AfterFunc func(d time.Duration, f func()) Timer
}

// View is the render decision for the current state.
type View struct {
	Phase Phase

	// Loading is true until the call reports joined; no controls are live.
	Loading bool

	// Compact selects the mobile control surface.
	Compact  bool
	Layout   layout.Mode
	Renderer layout.Renderer

	ShowParticipants bool
	ShowChat         bool
	LinkCopied       bool
	MeetingLink      string
	CanEndCall       bool
}

// Controller owns the state of one meeting room.
//
// Rules:
// - Phases only move forward: idle, setup, joined, then ended or left.
// - Call subscriptions live from Mount until Dispose, a terminal phase or a new Mount.
// - The mutex is never held across a call into the SDK.
type Controller struct {
	opts Options
	log  *slog.Logger

	mu               sync.Mutex
	call             calls.Call
	devices          DeviceController
	phase            Phase
	layout           layout.Mode
	showParticipants bool
	showChat         bool
	linkCopied       bool
	copyGen          uint64
	copyTimer        Timer
	compact          bool
	unsubs           []func()
}

func New(opts Options) *Controller {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.AfterFunc == nil {
		opts.AfterFunc = func(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }
	}
	c := &Controller{
		opts:   opts,
		log:    logger.Component(opts.Logger, "room"),
		phase:  PhaseIdle,
		layout: layout.Default,
	}
	if opts.Width > 0 {
		c.compact = layout.ViewportForWidth(opts.Width) == layout.Compact
	}
	return c
}

// Mount binds the controller to a call and subscribes to its lifecycle events.
// Mounting a different call resets the phase; mounting the same call is a no-op.
func (c *Controller) Mount(call calls.Call) {
	c.mu.Lock()
	same := call == c.call
	c.mu.Unlock()
	if same {
		return
	}

	dev := c.opts.Devices
	if dev == nil && call != nil {
		dev = devices.New(call, c.opts.Logger)
	}

	c.mu.Lock()
	if call == c.call {
		c.mu.Unlock()
		return
	}
	old := c.unsubs
	c.unsubs = nil
	c.call = call
	c.phase = PhaseIdle
	c.devices = dev
	c.mu.Unlock()

	for _, u := range old {
		u()
	}
	if call == nil {
		return
	}

	unsubs := []func(){
		call.On(calls.EventParticipantJoined, c.onParticipant(calls.SoundJoined)),
		call.On(calls.EventParticipantLeft, c.onParticipant(calls.SoundLeft)),
		call.On(calls.EventCallEnded, c.onCallEnded),
	}
	c.mu.Lock()
	if c.call == call {
		c.unsubs = unsubs
		unsubs = nil
	}
	c.mu.Unlock()
	for _, u := range unsubs {
		u()
	}
	c.log.Debug("call mounted", "call_id", call.ID())
}

// Dispose releases subscriptions, the copy timer and the chat channel.
func (c *Controller) Dispose() {
	c.mu.Lock()
	c.call = nil
	if c.copyTimer != nil {
		c.copyTimer.Stop()
		c.copyTimer = nil
	}
	c.linkCopied = false
	c.mu.Unlock()

	c.release()
	if c.opts.Chat != nil {
		c.opts.Chat.Close()
	}
}

func (c *Controller) release() {
	c.mu.Lock()
	unsubs := c.unsubs
	c.unsubs = nil
	c.mu.Unlock()
	for _, u := range unsubs {
		u()
	}
}

func (c *Controller) onParticipant(sound calls.Sound) calls.Handler {
	return func(ev calls.Event) {
		c.mu.Lock()
		call := c.call
		c.mu.Unlock()
		if call == nil || (ev.CallID != "" && ev.CallID != call.ID()) {
			return
		}

		if ev.Participant.UserID != call.LocalUserID() && c.opts.Sounds != nil {
			c.opts.Sounds.Play(sound)
		}
		if c.opts.Chat != nil {
			ids := participantIDs(call)
			if err := c.opts.Chat.ParticipantsChanged(context.Background(), ids); err != nil {
				c.log.Warn("chat roster update failed", "call_id", call.ID(), "error", err)
			}
		}
	}
}

func (c *Controller) onCallEnded(calls.Event) {
	if c.finish(PhaseEnded) {
		c.log.Info("call ended by host")
	}
}

// finish moves to a terminal phase once and tears down call-scoped resources.
func (c *Controller) finish(p Phase) bool {
	c.mu.Lock()
	if c.phase.Terminal() {
		c.mu.Unlock()
		return false
	}
	c.phase = p
	c.mu.Unlock()

	c.release()
	if c.opts.Chat != nil {
		c.opts.Chat.Close()
	}
	return true
}

func (c *Controller) current() (calls.Call, Phase, DeviceController) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.call, c.phase, c.devices
}

// Setup prepares a call for joining with camera and microphone off.
// An ended call moves straight to ended; a call scheduled for later is refused.
func (c *Controller) Setup(ctx context.Context) error {
	call, phase, dev := c.current()
	if call == nil {
		return ErrNoCall
	}
	if phase.Terminal() {
		return ErrCallFinished
	}

	sess := call.Session()
	if sess.HasEnded() {
		c.finish(PhaseEnded)
		return ErrCallEnded
	}
	if sess.NotStartedAt(c.opts.Clock()) {
		return ErrCallNotStarted
	}

	dev.Set(ctx, calls.DeviceCamera, false)
	dev.Set(ctx, calls.DeviceMicrophone, false)
	dev.CheckPermissions(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase.Terminal() {
		return ErrCallFinished
	}
	c.phase = PhaseSetup
	return nil
}

// Join joins the call and starts chat. A join failure leaves the room in setup.
// Chat failures are logged and never fail the join.
func (c *Controller) Join(ctx context.Context) error {
	call, phase, _ := c.current()
	if call == nil {
		return ErrNoCall
	}
	switch {
	case phase.Terminal():
		return ErrCallFinished
	case phase != PhaseSetup:
		return ErrNotSetUp
	}

	if err := call.Join(ctx); err != nil {
		c.log.Error("join call failed", "call_id", call.ID(), "error", err)
		return err
	}

	c.mu.Lock()
	if c.phase.Terminal() {
		c.mu.Unlock()
		return ErrCallFinished
	}
	c.phase = PhaseJoined
	c.mu.Unlock()
	c.log.Info("call joined", "call_id", call.ID())

	if c.opts.Chat != nil {
		if err := c.opts.Chat.Initialize(ctx, participantIDs(call)); err != nil {
			c.log.Warn("chat unavailable", "call_id", call.ID(), "error", err)
		}
	}
	return nil
}

// Leave is available to every participant.
func (c *Controller) Leave(ctx context.Context) error {
	call, phase, _ := c.current()
	if call == nil {
		return ErrNoCall
	}
	if phase.Terminal() {
		return ErrCallFinished
	}
	if err := call.Leave(ctx); err != nil {
		return err
	}
	c.finish(PhaseLeft)
	return nil
}

// CanEndCall reports whether the local user created the call outside a personal room.
func (c *Controller) CanEndCall() bool {
	call, phase, _ := c.current()
	return call != nil && !phase.Terminal() && c.isCreator(call)
}

func (c *Controller) isCreator(call calls.Call) bool {
	if c.opts.PersonalRoom {
		return false
	}
	local := call.LocalUserID()
	return local != "" && call.Session().CreatedByID == local
}

// EndCall ends the call for everyone.
func (c *Controller) EndCall(ctx context.Context) error {
	call, phase, _ := c.current()
	if call == nil {
		return ErrNoCall
	}
	if phase.Terminal() {
		return ErrCallFinished
	}
	if !c.isCreator(call) {
		return ErrNotCallCreator
	}
	if err := call.EndCall(ctx); err != nil {
		return err
	}
	c.finish(PhaseEnded)
	return nil
}

func (c *Controller) SelectLayout(m layout.Mode) {
	c.mu.Lock()
	c.layout = m
	c.mu.Unlock()
}

func (c *Controller) SetShowParticipants(show bool) {
	c.mu.Lock()
	c.showParticipants = show
	c.mu.Unlock()
}

func (c *Controller) ToggleParticipants() {
	c.mu.Lock()
	c.showParticipants = !c.showParticipants
	c.mu.Unlock()
}

func (c *Controller) SetShowChat(show bool) {
	c.mu.Lock()
	c.showChat = show
	c.mu.Unlock()
}

func (c *Controller) ToggleChat() {
	c.mu.Lock()
	c.showChat = !c.showChat
	c.mu.Unlock()
}

// Resize recomputes the compact flag from the viewport width.
func (c *Controller) Resize(width int) {
	c.mu.Lock()
	c.compact = layout.ViewportForWidth(width) == layout.Compact
	c.mu.Unlock()
}

// CopyLink writes the meeting link to the clipboard. Only one reset timer is
// pending at a time; a new copy restarts the window. Failures are logged.
func (c *Controller) CopyLink(ctx context.Context) {
	if c.opts.Clipboard == nil {
		c.log.Warn("copy link: no clipboard available")
		return
	}
	if err := c.opts.Clipboard.WriteText(ctx, c.opts.MeetingLink); err != nil {
		c.log.Warn("copy link failed", "error", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.copyGen++
	gen := c.copyGen
	c.linkCopied = true
	if c.copyTimer != nil {
		c.copyTimer.Stop()
	}
	c.copyTimer = c.opts.AfterFunc(LinkCopiedFor, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.copyGen == gen {
			c.linkCopied = false
			c.copyTimer = nil
		}
	})
}

// ShareVia opens the share target for the meeting link. Open failures are logged.
func (c *Controller) ShareVia(ch ShareChannel) error {
	u, err := ShareURL(ch, c.opts.MeetingLink)
	if err != nil {
		return err
	}
	if c.opts.Opener == nil {
		c.log.Warn("share: no opener available", "channel", ch)
		return nil
	}
	if err := c.opts.Opener.Open(u); err != nil {
		c.log.Warn("share failed", "channel", ch, "error", err)
	}
	return nil
}

func (c *Controller) View() View {
	c.mu.Lock()
	call := c.call
	v := View{
		Phase:            c.phase,
		Compact:          c.compact,
		Layout:           c.layout,
		ShowParticipants: c.showParticipants,
		ShowChat:         c.showChat,
		LinkCopied:       c.linkCopied,
		MeetingLink:      c.opts.MeetingLink,
	}
	c.mu.Unlock()

	v.Loading = call == nil || call.State() != calls.CallingStateJoined
	if v.Loading || v.Phase.Terminal() {
		return v
	}

	vp := layout.Expanded
	if v.Compact {
		vp = layout.Compact
	}
	v.Renderer = layout.Decide(v.Layout, len(calls.RemoteParticipants(call)), vp)
	v.CanEndCall = c.isCreator(call)
	return v
}

func participantIDs(call calls.Call) []string {
	return lo.Map(call.Participants(), func(p calls.Participant, _ int) string { return p.UserID })
}
