package room

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"meeting-platform/internal/calls"
	"meeting-platform/internal/calls/callstest"
	"meeting-platform/internal/layout"
	"meeting-platform/pkg/logger"
)

const link = "https://meet.example/meeting/123"

type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

type timers struct {
	mu  sync.Mutex
	all []*fakeTimer
}

func (ts *timers) AfterFunc(d time.Duration, f func()) Timer {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	t := &fakeTimer{d: d, f: f}
	ts.all = append(ts.all, t)
	return t
}

func (ts *timers) get(i int) *fakeTimer {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.all[i]
}

type clipboard struct {
	err     error
	written []string
}

func (c *clipboard) WriteText(_ context.Context, s string) error {
	if c.err != nil {
		return c.err
	}
	c.written = append(c.written, s)
	return nil
}

type opener struct{ opened []string }

func (o *opener) Open(u string) error {
	o.opened = append(o.opened, u)
	return nil
}

type fakeChat struct {
	mu      sync.Mutex
	initErr error
	inits   [][]string
	rosters [][]string
	closes  int
}

func (f *fakeChat) Initialize(_ context.Context, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inits = append(f.inits, ids)
	return f.initErr
}

func (f *fakeChat) ParticipantsChanged(_ context.Context, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rosters = append(f.rosters, ids)
	return nil
}

func (f *fakeChat) Close() {
	f.mu.Lock()
	f.closes++
	f.mu.Unlock()
}

type fixture struct {
	ctrl   *Controller
	call   *callstest.Call
	sounds *callstest.Sounds
	chat   *fakeChat
	timers *timers
	clip   *clipboard
	opener *opener
}

func newFixture(t *testing.T, mutate ...func(*Options)) *fixture {
	t.Helper()
	f := &fixture{
		call:   callstest.NewCall("123", "host-jane"),
		sounds: &callstest.Sounds{},
		chat:   &fakeChat{},
		timers: &timers{},
		clip:   &clipboard{},
		opener: &opener{},
	}
	f.call.SetSession(calls.CallSession{ID: "123", CreatedByID: "host-jane"})
	opts := Options{
		MeetingLink: link,
		Width:       1280,
		Clipboard:   f.clip,
		Opener:      f.opener,
		Sounds:      f.sounds,
		Chat:        f.chat,
		Logger:      logger.Discard(),
		AfterFunc:   f.timers.AfterFunc,
	}
	for _, m := range mutate {
		m(&opts)
	}
	f.ctrl = New(opts)
	f.ctrl.Mount(f.call)
	return f
}

func (f *fixture) join(t *testing.T) {
	t.Helper()
	require.NoError(t, f.ctrl.Setup(context.Background()))
	require.NoError(t, f.ctrl.Join(context.Background()))
}

func TestNew_Defaults(t *testing.T) {
	f := newFixture(t)
	v := f.ctrl.View()
	require.Equal(t, layout.SpeakerLeft, v.Layout)
	require.False(t, v.ShowParticipants)
	require.False(t, v.ShowChat)
	require.False(t, v.LinkCopied)
	require.True(t, v.Loading)
	require.Equal(t, PhaseIdle, v.Phase)
	require.Equal(t, link, v.MeetingLink)
}

func TestCopyLink_ResetsAfterWindow(t *testing.T) {
	f := newFixture(t)

	f.ctrl.CopyLink(context.Background())
	require.Equal(t, []string{link}, f.clip.written)
	require.True(t, f.ctrl.View().LinkCopied)

	first := f.timers.get(0)
	require.Equal(t, 3*time.Second, first.d)

	first.f()
	require.False(t, f.ctrl.View().LinkCopied)
}

func TestCopyLink_SecondCopyRestartsWindow(t *testing.T) {
	f := newFixture(t)

	f.ctrl.CopyLink(context.Background())
	f.ctrl.CopyLink(context.Background())

	first, second := f.timers.get(0), f.timers.get(1)
	require.True(t, first.stopped)

	// A stale callback that raced the Stop must not clear the new window.
	first.f()
	require.True(t, f.ctrl.View().LinkCopied)

	second.f()
	require.False(t, f.ctrl.View().LinkCopied)
}

func TestCopyLink_ClipboardFailureStaysFalse(t *testing.T) {
	f := newFixture(t)
	f.clip.err = errors.New("clipboard permission denied")

	f.ctrl.CopyLink(context.Background())
	require.False(t, f.ctrl.View().LinkCopied)
	require.Empty(t, f.timers.all)
}

func TestShareVia(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.ctrl.ShareVia(ShareWhatsApp))
	require.NoError(t, f.ctrl.ShareVia(ShareEmail))
	require.ErrorIs(t, f.ctrl.ShareVia("fax"), ErrUnknownShareChannel)

	require.Equal(t, []string{
		"https://wa.me/?text=https%3A%2F%2Fmeet.example%2Fmeeting%2F123",
		"mailto:?subject=Join%20our%20meeting&body=Click%20the%20link%20to%20join%20the%20meeting%3A%20https%3A%2F%2Fmeet.example%2Fmeeting%2F123",
	}, f.opener.opened)
}

func TestEscapeComponent_MatchesBrowserEncoding(t *testing.T) {
	require.Equal(t, "a%20b!'()*~-_.", escapeComponent("a b!'()*~-_."))
	require.Equal(t, "%3F%26%3D%23", escapeComponent("?&=#"))
}

func TestLifecycle_SetupJoinAndRender(t *testing.T) {
	f := newFixture(t)

	require.ErrorIs(t, f.ctrl.Join(context.Background()), ErrNotSetUp)

	require.NoError(t, f.ctrl.Setup(context.Background()))
	require.Equal(t, PhaseSetup, f.ctrl.View().Phase)
	require.Equal(t, 1, f.call.Cam.Disables)
	require.Equal(t, 1, f.call.Mic.Disables)
	require.True(t, f.ctrl.View().Loading)

	require.NoError(t, f.ctrl.Join(context.Background()))
	v := f.ctrl.View()
	require.Equal(t, PhaseJoined, v.Phase)
	require.False(t, v.Loading)
	require.False(t, v.Compact)
	require.True(t, v.CanEndCall)
	require.Equal(t, layout.Renderer{Kind: layout.KindSpeaker, Bar: layout.BarTop}, v.Renderer)
	require.Equal(t, [][]string{{"host-jane"}}, f.chat.inits)

	f.call.AddRemote("guest-bob")
	require.Equal(t, layout.Renderer{Kind: layout.KindOneToOne}, f.ctrl.View().Renderer)

	f.call.AddRemote("guest-amy")
	require.Equal(t, layout.Renderer{Kind: layout.KindSpeaker, Bar: layout.BarTop}, f.ctrl.View().Renderer)

	f.ctrl.SelectLayout(layout.Grid)
	require.Equal(t, layout.Renderer{Kind: layout.KindGrid}, f.ctrl.View().Renderer)

	f.ctrl.Resize(500)
	require.True(t, f.ctrl.View().Compact)
}

func TestJoin_FailureStaysInSetup(t *testing.T) {
	f := newFixture(t)
	f.call.JoinErr = errors.New("sfu unreachable")

	require.NoError(t, f.ctrl.Setup(context.Background()))
	require.Error(t, f.ctrl.Join(context.Background()))
	require.Equal(t, PhaseSetup, f.ctrl.View().Phase)
	require.Empty(t, f.chat.inits)
}

func TestJoin_ChatFailureDoesNotFailJoin(t *testing.T) {
	f := newFixture(t)
	f.chat.initErr = errors.New("User not connected to chat")

	f.join(t)
	require.Equal(t, PhaseJoined, f.ctrl.View().Phase)
}

func TestSetup_RefusesEndedAndFutureCalls(t *testing.T) {
	ended := newFixture(t)
	at := time.Now().Add(-time.Minute)
	ended.call.SetSession(calls.CallSession{ID: "123", CreatedByID: "host-jane", EndedAt: &at})
	err := ended.ctrl.Setup(context.Background())
	require.ErrorIs(t, err, ErrCallEnded)
	require.Equal(t, "The call has been ended by the host", err.Error())
	require.Equal(t, PhaseEnded, ended.ctrl.View().Phase)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	starts := now.Add(time.Hour)
	future := newFixture(t, func(o *Options) { o.Clock = func() time.Time { return now } })
	future.call.SetSession(calls.CallSession{ID: "123", StartsAt: &starts})
	require.ErrorIs(t, future.ctrl.Setup(context.Background()), ErrCallNotStarted)
	require.Equal(t, PhaseIdle, future.ctrl.View().Phase)
}

func TestParticipantSounds_SkipLocalUser(t *testing.T) {
	f := newFixture(t)
	f.join(t)

	f.call.Emit(calls.Event{Type: calls.EventParticipantJoined, CallID: "123", Participant: calls.Participant{UserID: "host-jane"}})
	require.Empty(t, f.sounds.Played())

	f.call.AddRemote("guest-bob")
	f.call.RemoveRemote("guest-bob")
	require.Equal(t, []calls.Sound{calls.SoundJoined, calls.SoundLeft}, f.sounds.Played())
	require.Len(t, f.chat.rosters, 3)
	require.Equal(t, []string{"host-jane", "guest-bob"}, f.chat.rosters[1])
}

func TestEndCall_CreatorOnly(t *testing.T) {
	guest := newFixture(t)
	guest.call.SetSession(calls.CallSession{ID: "123", CreatedByID: "someone-else"})
	guest.join(t)
	require.False(t, guest.ctrl.CanEndCall())
	require.ErrorIs(t, guest.ctrl.EndCall(context.Background()), ErrNotCallCreator)
	require.Zero(t, guest.call.Ends)

	personal := newFixture(t, func(o *Options) { o.PersonalRoom = true })
	personal.join(t)
	require.ErrorIs(t, personal.ctrl.EndCall(context.Background()), ErrNotCallCreator)

	host := newFixture(t)
	host.join(t)
	require.NoError(t, host.ctrl.EndCall(context.Background()))
	require.Equal(t, PhaseEnded, host.ctrl.View().Phase)
	require.Equal(t, 1, host.call.Ends)
	require.Equal(t, 1, host.chat.closes)
	require.Zero(t, host.call.Count(calls.EventParticipantJoined))
	require.ErrorIs(t, host.ctrl.Leave(context.Background()), ErrCallFinished)
}

func TestCallEndedEvent_IsTerminal(t *testing.T) {
	f := newFixture(t)
	f.join(t)

	f.call.Emit(calls.Event{Type: calls.EventCallEnded, CallID: "123"})
	require.Equal(t, PhaseEnded, f.ctrl.View().Phase)
	require.Zero(t, f.call.Count(calls.EventCallEnded))

	require.ErrorIs(t, f.ctrl.Join(context.Background()), ErrCallFinished)
	require.ErrorIs(t, f.ctrl.Setup(context.Background()), ErrCallFinished)

	f.call.AddRemote("guest-bob")
	require.Empty(t, f.sounds.Played())
}

func TestLeave(t *testing.T) {
	f := newFixture(t)
	f.join(t)

	require.NoError(t, f.ctrl.Leave(context.Background()))
	require.Equal(t, PhaseLeft, f.ctrl.View().Phase)
	require.Equal(t, 1, f.call.Leaves)
	require.Equal(t, 1, f.chat.closes)
	require.ErrorIs(t, f.ctrl.EndCall(context.Background()), ErrCallFinished)
}

func TestMount_NewCallReleasesOldSubscriptions(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, 1, f.call.Count(calls.EventParticipantJoined))

	f.ctrl.Mount(f.call)
	require.Equal(t, 1, f.call.Count(calls.EventParticipantJoined))

	next := callstest.NewCall("456", "host-jane")
	f.ctrl.Mount(next)
	require.Zero(t, f.call.Count(calls.EventParticipantJoined))
	require.Zero(t, f.call.Count(calls.EventCallEnded))
	require.Equal(t, 1, next.Count(calls.EventParticipantLeft))

	f.ctrl.Dispose()
	require.Zero(t, next.Count(calls.EventParticipantLeft))
	require.Equal(t, 1, f.chat.closes)
}

func TestPanels(t *testing.T) {
	f := newFixture(t)
	f.ctrl.ToggleParticipants()
	f.ctrl.ToggleChat()
	v := f.ctrl.View()
	require.True(t, v.ShowParticipants)
	require.True(t, v.ShowChat)

	f.ctrl.SetShowChat(false)
	f.ctrl.SetShowParticipants(false)
	v = f.ctrl.View()
	require.False(t, v.ShowParticipants)
	require.False(t, v.ShowChat)
}

// viewingCall reads controller state from inside SDK accessors, which
// deadlocks if the controller calls the SDK while holding its lock.
type viewingCall struct {
	*callstest.Call
	ctrl *Controller
}

func (v viewingCall) Camera() calls.Device {
	_ = v.ctrl.View()
	return v.Call.Camera()
}

func (v viewingCall) Microphone() calls.Device {
	_ = v.ctrl.View()
	return v.Call.Microphone()
}

func TestMount_DoesNotHoldLockAcrossSDKCalls(t *testing.T) {
	ctrl := New(Options{Logger: logger.Discard()})
	call := viewingCall{Call: callstest.NewCall("123", "host-jane"), ctrl: ctrl}

	done := make(chan struct{})
	go func() {
		ctrl.Mount(call)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Mount deadlocked while building the device coordinator")
	}
	require.Equal(t, PhaseIdle, ctrl.View().Phase)
}
