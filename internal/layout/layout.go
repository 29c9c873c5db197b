// Package layout decides which tile renderer a meeting uses.
package layout

import "fmt"

// Mode is the user-selected arrangement.
type Mode string

const (
	Grid         Mode = "grid"
	SpeakerUp    Mode = "speaker-up"
	SpeakerDown  Mode = "speaker-down"
	SpeakerLeft  Mode = "speaker-left"
	SpeakerRight Mode = "speaker-right"
	OneToOne     Mode = "one-to-one"

	Default = SpeakerLeft
)

// Modes lists every mode in menu order.
func Modes() []Mode {
	return []Mode{Grid, SpeakerUp, SpeakerDown, SpeakerLeft, SpeakerRight, OneToOne}
}

func ParseMode(s string) (Mode, error) {
	for _, m := range Modes() {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("layout: unknown mode %q", s)
}

// Viewport is the coarse screen class.
type Viewport int

const (
	Expanded Viewport = iota
	Compact
)

// CompactBelow is the viewport width, in CSS pixels, under which the compact surface is used.
const CompactBelow = 768

func ViewportForWidth(width int) Viewport {
	if width < CompactBelow {
		return Compact
	}
	return Expanded
}

type Kind string

const (
	KindGrid     Kind = "grid"
	KindSpeaker  Kind = "speaker"
	KindOneToOne Kind = "one-to-one"
)

// BarPosition places the participants bar of a speaker renderer.
type BarPosition string

const (
	BarNone   BarPosition = ""
	BarTop    BarPosition = "top"
	BarBottom BarPosition = "bottom"
	BarLeft   BarPosition = "left"
	BarRight  BarPosition = "right"
)

type Renderer struct {
	Kind Kind
	Bar  BarPosition
}

// Decide maps the selected mode and call topology to a renderer.
//
// Grid and the speaker-up/down/right variants are always honored. The default
// speaker-left and one-to-one modes render the dedicated one-to-one view when
// exactly one remote participant is present, and a speaker view with the bar
// on top otherwise. Compact viewports have no side-by-side one-to-one view and
// fall back to a speaker view with the bar at the bottom.
func Decide(mode Mode, remoteCount int, vp Viewport) Renderer {
	switch mode {
	case Grid:
		return Renderer{Kind: KindGrid}
	case SpeakerRight:
		return Renderer{Kind: KindSpeaker, Bar: BarLeft}
	case SpeakerUp:
		return Renderer{Kind: KindSpeaker, Bar: BarBottom}
	case SpeakerDown:
		return Renderer{Kind: KindSpeaker, Bar: BarTop}
	}

	if remoteCount != 1 {
		return Renderer{Kind: KindSpeaker, Bar: BarTop}
	}
	if vp == Compact {
		return Renderer{Kind: KindSpeaker, Bar: BarBottom}
	}
	return Renderer{Kind: KindOneToOne}
}
