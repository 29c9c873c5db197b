// Package callstest provides in-memory doubles for the calls SDK interfaces.
package callstest

import (
	"context"
	"sync"

	"meeting-platform/internal/calls"
)

// Call is a scriptable calls.Call.
type Call struct {
	calls.Emitter

	mu           sync.Mutex
	id           string
	localUserID  string
	session      calls.CallSession
	state        calls.CallingState
	participants []calls.Participant

	JoinErr    error
	LeaveErr   error
	EndCallErr error

	Joins, Leaves, Ends int

	Cam *Device
	Mic *Device
	Spk *Speaker
}

func NewCall(id, localUserID string) *Call {
	return &Call{
		id:          id,
		localUserID: localUserID,
		session:     calls.CallSession{ID: id},
		state:       calls.CallingStateIdle,
		participants: []calls.Participant{
			{UserID: localUserID, SessionID: "s-" + localUserID, IsLocal: true},
		},
		Cam: &Device{},
		Mic: &Device{},
		Spk: &Speaker{Supported: true},
	}
}

func (c *Call) ID() string          { return c.id }
func (c *Call) LocalUserID() string { return c.localUserID }

func (c *Call) Session() calls.CallSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

func (c *Call) SetSession(s calls.CallSession) {
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
}

func (c *Call) State() calls.CallingState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Call) SetState(s calls.CallingState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Call) Participants() []calls.Participant {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]calls.Participant(nil), c.participants...)
}

// AddRemote adds a remote participant and emits participant-joined.
func (c *Call) AddRemote(userID string) calls.Participant {
	p := calls.Participant{UserID: userID, SessionID: "s-" + userID}
	c.mu.Lock()
	c.participants = append(c.participants, p)
	c.mu.Unlock()
	c.Emit(calls.Event{Type: calls.EventParticipantJoined, CallID: c.id, Participant: p})
	return p
}

// RemoveRemote drops a participant and emits participant-left.
func (c *Call) RemoveRemote(userID string) {
	var gone calls.Participant
	c.mu.Lock()
	kept := c.participants[:0]
	for _, p := range c.participants {
		if p.UserID == userID {
			gone = p
			continue
		}
		kept = append(kept, p)
	}
	c.participants = kept
	c.mu.Unlock()
	c.Emit(calls.Event{Type: calls.EventParticipantLeft, CallID: c.id, Participant: gone})
}

func (c *Call) Join(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Joins++
	if c.JoinErr != nil {
		return c.JoinErr
	}
	c.state = calls.CallingStateJoined
	return nil
}

func (c *Call) Leave(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Leaves++
	if c.LeaveErr != nil {
		return c.LeaveErr
	}
	c.state = calls.CallingStateLeft
	return nil
}

func (c *Call) EndCall(context.Context) error {
	c.mu.Lock()
	c.Ends++
	err := c.EndCallErr
	if err == nil {
		c.state = calls.CallingStateLeft
	}
	c.mu.Unlock()
	return err
}

func (c *Call) Camera() calls.Device     { return c.Cam }
func (c *Call) Microphone() calls.Device { return c.Mic }
func (c *Call) Speaker() calls.Speaker   { return c.Spk }

// Device is a scriptable calls.Device. EnableFunc, when set, replaces the
// default enable behavior so tests can block or fail it.
type Device struct {
	mu sync.Mutex

	enabled  bool
	selected string

	Devices       []calls.MediaDevice
	Granted       bool
	PermissionErr error
	EnableFunc    func(ctx context.Context) error

	Enables, Disables int
	Selected          []string
}

func (d *Device) Enable(ctx context.Context) error {
	d.mu.Lock()
	d.Enables++
	fn := d.EnableFunc
	d.mu.Unlock()

	if fn != nil {
		if err := fn(ctx); err != nil {
			return err
		}
	}
	d.mu.Lock()
	d.enabled = true
	d.mu.Unlock()
	return nil
}

func (d *Device) Disable(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Disables++
	d.enabled = false
	return nil
}

func (d *Device) Enabled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.enabled
}

func (d *Device) QueryPermission(context.Context) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.Granted, d.PermissionErr
}

func (d *Device) List(context.Context) ([]calls.MediaDevice, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]calls.MediaDevice(nil), d.Devices...), nil
}

func (d *Device) SelectedID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.selected
}

func (d *Device) Select(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.selected = id
	d.Selected = append(d.Selected, id)
	return nil
}

// Speaker is a scriptable calls.Speaker.
type Speaker struct {
	Device
	Supported bool
}

func (s *Speaker) SelectionSupported() bool { return s.Supported }

// Sounds records played cues.
type Sounds struct {
	mu     sync.Mutex
	played []calls.Sound
}

func (s *Sounds) Play(snd calls.Sound) {
	s.mu.Lock()
	s.played = append(s.played, snd)
	s.mu.Unlock()
}

func (s *Sounds) Played() []calls.Sound {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]calls.Sound(nil), s.played...)
}
