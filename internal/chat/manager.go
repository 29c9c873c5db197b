package chat

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/samber/lo"

	"meeting-platform/internal/calls"
	"meeting-platform/pkg/logger"
)

// State is the initialization state of the channel.
type State string

const (
	StateNotStarted State = "not_started"
	StateInFlight   State = "in_flight"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

var (
	ErrNotConnected   = errors.New("User not connected to chat")
	ErrNoParticipants = errors.New("No participants available")
)

const anonymousTyper = "Someone"

var watchOpts = WatchOptions{State: true, Presence: true, Watch: true}

type Options struct {
	Sounds calls.SoundPlayer
	Logger *slog.Logger
}

// View is a snapshot for rendering the chat panel.
type View struct {
	State     State
	Loading   bool
	Error     string
	ChannelID string
	Unread    int
	Typing    []string
}

// Manager owns the chat channel for one call.
//
// Rules:
// - At most one initialization runs at a time; Retry or a roster change is needed to run again.
// - Chat failures never escape to the call; they are kept in View().Error.
// - After Close no event is processed.
type Manager struct {
	client Client
	callID string
	sounds calls.SoundPlayer
	log    *slog.Logger

	mu           sync.Mutex
	state        State
	participants []string
	channel      Channel
	me           string
	err          error
	hidden       bool
	unread       int
	typing       []string
	unsubs       []func()
	closed       bool
}

func NewManager(client Client, callID string, opts Options) *Manager {
	return &Manager{
		client: client,
		callID: callID,
		sounds: opts.Sounds,
		log:    logger.Component(opts.Logger, "chat").With("call_id", callID),
		state:  StateNotStarted,
	}
}

// Initialize runs the channel setup once. Without a call or a client it
// stays loading and returns nil.
func (m *Manager) Initialize(ctx context.Context, participantIDs []string) error {
	if m.client == nil || m.callID == "" {
		return nil
	}

	m.mu.Lock()
	if m.closed || m.state != StateNotStarted {
		m.mu.Unlock()
		return nil
	}
	if participantIDs != nil {
		m.participants = participantIDs
	}
	participants := m.participants
	m.state = StateInFlight
	m.mu.Unlock()

	ch, err := m.open(ctx, participants)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		if ch != nil {
			m.stopWatching(ch)
		}
		return nil
	}
	if err != nil {
		m.state = StateFailed
		m.err = err
		m.mu.Unlock()
		m.log.Error("chat channel init failed", "error", err)
		return err
	}
	m.channel = ch
	m.me = m.client.UserID()
	m.err = nil
	m.state = StateSucceeded
	m.mu.Unlock()

	m.subscribe(ch)
	m.log.Info("chat channel ready", "channel_id", ch.ID())
	return nil
}

func (m *Manager) open(ctx context.Context, participants []string) (Channel, error) {
	me := m.client.UserID()
	if me == "" {
		return nil, ErrNotConnected
	}
	members := lo.Uniq(lo.Compact(append([]string{me}, participants...)))
	if len(members) == 0 {
		return nil, ErrNoParticipants
	}

	ch := m.client.Channel(ChannelType, ChannelID(m.callID), ChannelData{
		Name:        ChannelName,
		Members:     members,
		CreatedByID: me,
	})
	if err := ch.Watch(ctx, watchOpts); err != nil {
		return nil, err
	}
	return ch, nil
}

func (m *Manager) subscribe(ch Channel) {
	unsubs := []func(){
		ch.On(EventMessageNew, m.onMessage),
		ch.On(EventTypingStart, m.onTypingStart),
		ch.On(EventTypingStop, m.onTypingStop),
		m.client.On(EventConnectionChanged, m.onConnectionChanged),
	}

	m.mu.Lock()
	if !m.closed {
		m.unsubs = append(m.unsubs, unsubs...)
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()
	for _, u := range unsubs {
		u()
	}
}

// ParticipantsChanged re-runs initialization if it has not succeeded yet.
// An empty roster is ignored.
func (m *Manager) ParticipantsChanged(ctx context.Context, participantIDs []string) error {
	if len(participantIDs) == 0 {
		return nil
	}
	m.mu.Lock()
	m.participants = participantIDs
	if m.state == StateFailed {
		m.state = StateNotStarted
		m.err = nil
	}
	m.mu.Unlock()
	return m.Initialize(ctx, nil)
}

// Retry clears a failure and runs initialization again.
func (m *Manager) Retry(ctx context.Context) error {
	m.mu.Lock()
	if m.state == StateFailed {
		m.state = StateNotStarted
		m.err = nil
	}
	m.mu.Unlock()
	return m.Initialize(ctx, nil)
}

// SetVisible tracks document visibility. Becoming visible clears the unread
// count and marks the channel read.
func (m *Manager) SetVisible(ctx context.Context, visible bool) {
	m.mu.Lock()
	m.hidden = !visible
	ch := m.channel
	if !visible || m.closed {
		m.mu.Unlock()
		return
	}
	m.unread = 0
	m.mu.Unlock()

	if ch == nil {
		return
	}
	if err := ch.MarkRead(ctx); err != nil {
		m.log.Warn("mark read failed", "error", err)
	}
}

func (m *Manager) onMessage(ev Event) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	if m.hidden {
		m.unread++
	}
	own := ev.User.ID != "" && ev.User.ID == m.me
	m.mu.Unlock()

	if !own && m.sounds != nil {
		m.sounds.Play(calls.SoundMessage)
	}
}

func typerName(u User) string {
	if u.Name != "" {
		return u.Name
	}
	if u.ID != "" {
		return u.ID
	}
	return anonymousTyper
}

func (m *Manager) onTypingStart(ev Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || ev.User.ID == m.me {
		return
	}
	name := typerName(ev.User)
	if !lo.Contains(m.typing, name) {
		m.typing = append(m.typing, name)
	}
}

func (m *Manager) onTypingStop(ev Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || ev.User.ID == m.me {
		return
	}
	m.typing = lo.Without(m.typing, typerName(ev.User))
}

func (m *Manager) onConnectionChanged(ev Event) {
	if !ev.Online {
		return
	}
	m.mu.Lock()
	ch := m.channel
	closed := m.closed
	m.mu.Unlock()
	if closed || ch == nil {
		return
	}
	if err := ch.Watch(context.Background(), watchOpts); err != nil {
		m.log.Warn("chat re-watch failed", "error", err)
		return
	}
	m.log.Debug("chat channel re-watched after reconnect")
}

// Close stops watching the channel and drops all later events.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	unsubs := m.unsubs
	m.unsubs = nil
	ch := m.channel
	m.mu.Unlock()

	for _, u := range unsubs {
		u()
	}
	if ch != nil {
		m.stopWatching(ch)
	}
}

func (m *Manager) stopWatching(ch Channel) {
	if err := ch.StopWatching(context.Background()); err != nil {
		m.log.Warn("stop watching failed", "error", err)
	}
}

func (m *Manager) View() View {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := View{
		State:   m.state,
		Loading: m.state == StateNotStarted || m.state == StateInFlight,
		Unread:  m.unread,
		Typing:  append([]string(nil), m.typing...),
	}
	if m.err != nil {
		v.Error = m.err.Error()
	}
	if m.channel != nil {
		v.ChannelID = m.channel.ID()
	}
	return v
}
