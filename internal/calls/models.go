package calls

import "time"

// CallSession is the platform's view of one call. It is owned by the SDK and
// changes only through Join, Leave and EndCall.
type CallSession struct {
	ID          string         `json:"id"`
	CreatedByID string         `json:"created_by_id"`
	MemberIDs   []string       `json:"member_ids,omitempty"`
	StartsAt    *time.Time     `json:"starts_at,omitempty"`
	EndedAt     *time.Time     `json:"ended_at,omitempty"`
	Custom      map[string]any `json:"custom,omitempty"`
}

// HasEnded reports whether the platform recorded an end time.
func (s CallSession) HasEnded() bool { return s.EndedAt != nil }

// NotStartedAt reports whether a scheduled start lies after now.
func (s CallSession) NotStartedAt(now time.Time) bool {
	return s.StartsAt != nil && s.StartsAt.After(now)
}

// CallingState is the local connection state of a call.
type CallingState string

const (
	CallingStateUnknown      CallingState = "unknown"
	CallingStateIdle         CallingState = "idle"
	CallingStateJoining      CallingState = "joining"
	CallingStateJoined       CallingState = "joined"
	CallingStateReconnecting CallingState = "reconnecting"
	CallingStateLeft         CallingState = "left"
)

type Participant struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	Name      string `json:"name,omitempty"`
	IsLocal   bool   `json:"is_local,omitempty"`
}

// EventType names the call lifecycle events we subscribe to.
type EventType string

const (
	EventParticipantJoined EventType = "call.session_participant_joined"
	EventParticipantLeft   EventType = "call.session_participant_left"
	EventCallEnded         EventType = "call.ended"
)

type Event struct {
	Type        EventType
	CallID      string
	Participant Participant
}

type Handler func(Event)

// DeviceKind identifies a local media device class.
type DeviceKind string

const (
	DeviceCamera     DeviceKind = "camera"
	DeviceMicrophone DeviceKind = "microphone"
	DeviceSpeaker    DeviceKind = "speaker"
)

// MediaDevice is one enumerated hardware device.
type MediaDevice struct {
	ID    string `json:"device_id"`
	Label string `json:"label"`
}

// Sound is a short notification cue.
type Sound string

const (
	SoundJoined  Sound = "joined"
	SoundLeft    Sound = "left"
	SoundMessage Sound = "message"
)
