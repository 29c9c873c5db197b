// Package devices mediates between local toggle state and the call's
// asynchronous, fallible hardware operations.
package devices

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"meeting-platform/internal/calls"
	"meeting-platform/pkg/logger"
)

type PermissionState string

const (
	PermissionUnknown  PermissionState = "unknown"
	PermissionChecking PermissionState = "checking"
	PermissionGranted  PermissionState = "granted"
	PermissionDenied   PermissionState = "denied"
)

// DefaultDeviceID is the platform's "follow the OS default" sentinel.
const DefaultDeviceID = "default"

const unknownLabel = "Unknown Device"

var (
	ErrUnknownKind          = errors.New("unknown device kind")
	ErrSelectionUnsupported = errors.New("audio output selection is not supported")
)

// Option is one entry of a device picker.
type Option struct {
	ID       string
	Label    string
	Selected bool
}

type deviceState struct {
	enabled    bool
	intent     bool
	permission PermissionState
	gen        uint64
}

// Coordinator owns camera and microphone state for one call.
//
// Every toggle bumps a per-device generation. A completion whose generation
// is no longer current is dropped, so the last toggle always wins.
type Coordinator struct {
	call calls.Call
	log  *slog.Logger

	mu    sync.Mutex
	state map[calls.DeviceKind]*deviceState
}

func New(call calls.Call, log *slog.Logger) *Coordinator {
	c := &Coordinator{
		call:  call,
		log:   logger.Component(log, "devices"),
		state: make(map[calls.DeviceKind]*deviceState, 2),
	}
	for _, k := range []calls.DeviceKind{calls.DeviceCamera, calls.DeviceMicrophone} {
		on := c.device(k).Enabled()
		c.state[k] = &deviceState{enabled: on, intent: on, permission: PermissionUnknown}
	}
	return c
}

func (c *Coordinator) device(kind calls.DeviceKind) calls.Device {
	switch kind {
	case calls.DeviceCamera:
		return c.call.Camera()
	case calls.DeviceMicrophone:
		return c.call.Microphone()
	}
	return nil
}

func (c *Coordinator) Enabled(kind calls.DeviceKind) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.state[kind]; ok {
		return s.enabled
	}
	return false
}

func (c *Coordinator) Permission(kind calls.DeviceKind) PermissionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.state[kind]; ok {
		return s.permission
	}
	return PermissionUnknown
}

// CheckPermissions queries camera and microphone independently.
// A failed query resolves to unknown, never leaving a device in checking.
func (c *Coordinator) CheckPermissions(ctx context.Context) {
	var wg sync.WaitGroup
	for _, k := range []calls.DeviceKind{calls.DeviceCamera, calls.DeviceMicrophone} {
		c.setPermission(k, PermissionChecking)
		wg.Add(1)
		go func(kind calls.DeviceKind) {
			defer wg.Done()
			granted, err := c.device(kind).QueryPermission(ctx)
			switch {
			case err != nil:
				c.log.Warn("permission query failed", "device", kind, "error", err)
				c.setPermission(kind, PermissionUnknown)
			case granted:
				c.setPermission(kind, PermissionGranted)
			default:
				c.setPermission(kind, PermissionDenied)
			}
		}(k)
	}
	wg.Wait()
}

func (c *Coordinator) setPermission(kind calls.DeviceKind, p PermissionState) {
	c.mu.Lock()
	c.state[kind].permission = p
	c.mu.Unlock()
}

func (c *Coordinator) ToggleCamera(ctx context.Context) {
	c.toggle(ctx, calls.DeviceCamera)
}

func (c *Coordinator) ToggleMicrophone(ctx context.Context) {
	c.toggle(ctx, calls.DeviceMicrophone)
}

func (c *Coordinator) toggle(ctx context.Context, kind calls.DeviceKind) {
	c.mu.Lock()
	want := !c.state[kind].intent
	c.mu.Unlock()
	c.Set(ctx, kind, want)
}

// Set drives a device to the requested state. Failures are logged and
// reflected into the permission state; they are never returned.
func (c *Coordinator) Set(ctx context.Context, kind calls.DeviceKind, on bool) {
	dev := c.device(kind)
	if dev == nil {
		return
	}

	c.mu.Lock()
	s := c.state[kind]
	s.gen++
	gen := s.gen
	s.intent = on
	c.mu.Unlock()

	if !on {
		if err := dev.Disable(ctx); err != nil {
			c.log.Warn("device disable failed", "device", kind, "error", err)
		}
		c.mu.Lock()
		if s.gen == gen {
			s.enabled = false
		}
		c.mu.Unlock()
		return
	}

	err := dev.Enable(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if s.gen != gen {
		c.log.Debug("superseded device toggle ignored", "device", kind)
		return
	}
	if err != nil {
		c.log.Error("device enable failed", "device", kind, "error", err)
		s.enabled = false
		s.intent = false
		s.permission = PermissionDenied
		return
	}
	s.enabled = true
	s.permission = PermissionGranted
}

type selectable interface {
	List(ctx context.Context) ([]calls.MediaDevice, error)
	SelectedID() string
	Select(ctx context.Context, deviceID string) error
}

func (c *Coordinator) selectable(kind calls.DeviceKind) (selectable, error) {
	switch kind {
	case calls.DeviceCamera:
		return c.call.Camera(), nil
	case calls.DeviceMicrophone:
		return c.call.Microphone(), nil
	case calls.DeviceSpeaker:
		spk := c.call.Speaker()
		if spk == nil || !spk.SelectionSupported() {
			return nil, ErrSelectionUnsupported
		}
		return spk, nil
	}
	return nil, ErrUnknownKind
}

// SpeakerSupported reports whether the speaker picker should be offered.
func (c *Coordinator) SpeakerSupported() bool {
	spk := c.call.Speaker()
	return spk != nil && spk.SelectionSupported()
}

// Options lists the devices of one kind with the current selection marked.
func (c *Coordinator) Options(ctx context.Context, kind calls.DeviceKind) ([]Option, error) {
	src, err := c.selectable(kind)
	if err != nil {
		return nil, err
	}
	list, err := src.List(ctx)
	if err != nil {
		return nil, err
	}
	selected := src.SelectedID()

	out := make([]Option, 0, len(list))
	for _, d := range list {
		label := d.Label
		if label == "" {
			label = unknownLabel
		}
		out = append(out, Option{ID: d.ID, Label: label, Selected: d.ID == selected})
	}
	return out, nil
}

// Select switches the active device. The default sentinel is a no-op.
func (c *Coordinator) Select(ctx context.Context, kind calls.DeviceKind, id string) error {
	src, err := c.selectable(kind)
	if err != nil {
		return err
	}
	if id == DefaultDeviceID {
		return nil
	}
	return src.Select(ctx, id)
}
