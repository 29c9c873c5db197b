package calls

import "context"

// Call is the client-side call object exposed by the video SDK.
//
// Rules:
// - Orchestration code never reaches into SDK internals; it only uses this interface.
// - On returns an unsubscribe func; callers must invoke it when they stop observing.
type Call interface {
	ID() string
	Session() CallSession
	State() CallingState
	LocalUserID() string

	// Participants includes the local participant.
	Participants() []Participant

	Join(ctx context.Context) error
	Leave(ctx context.Context) error
	EndCall(ctx context.Context) error

	On(event EventType, h Handler) (unsubscribe func())

	Camera() Device
	Microphone() Device
	Speaker() Speaker
}

// Device is a local input device bound to the call.
type Device interface {
	Enable(ctx context.Context) error
	Disable(ctx context.Context) error
	Enabled() bool

	// QueryPermission asks the OS whether access is granted.
	QueryPermission(ctx context.Context) (bool, error)

	List(ctx context.Context) ([]MediaDevice, error)
	SelectedID() string
	Select(ctx context.Context, deviceID string) error
}

// Speaker is the audio output. Some platforms cannot route output.
type Speaker interface {
	SelectionSupported() bool
	List(ctx context.Context) ([]MediaDevice, error)
	SelectedID() string
	Select(ctx context.Context, deviceID string) error
}

// SoundPlayer plays notification cues. Implementations must not block.
type SoundPlayer interface {
	Play(s Sound)
}

// RemoteParticipants filters out the local session. The same user joined
// from another device is a remote participant.
func RemoteParticipants(c Call) []Participant {
	var out []Participant
	for _, p := range c.Participants() {
		if p.IsLocal {
			continue
		}
		out = append(out, p)
	}
	return out
}
