package vocaltune

import (
	"errors"

	"github.com/ricky40043/vocaltune/internal/decode"
	"github.com/ricky40043/vocaltune/internal/loopctl"
	"github.com/ricky40043/vocaltune/internal/mic"
	"github.com/ricky40043/vocaltune/internal/render"
)

// Typed failures surfaced by the session. Callers match with errors.As.
type (
	// DecodeError is a fatal load failure: unsupported codec, corrupt
	// data, or decode timeout. No partial track state is left behind.
	DecodeError = decode.Error

	// RenderError is a failed export; live playback is unaffected.
	RenderError = render.Error

	// LoopBoundsError is a rejected loop point; loop state is unchanged.
	LoopBoundsError = loopctl.BoundsError

	// MicPermissionError is a failed microphone open; transport and track
	// state are unaffected.
	MicPermissionError = mic.PermissionError
)

var (
	// ErrSessionClosed is returned by operations on a closed session.
	ErrSessionClosed = errors.New("session closed")

	// ErrTrackNotFound is returned for an unknown track id.
	ErrTrackNotFound = errors.New("track not found")

	// ErrPitchOutOfRange is returned for a pitch outside [-12, 12]
	// semitones.
	ErrPitchOutOfRange = errors.New("pitch outside [-12, 12] semitones")

	// ErrTempoOutOfRange is returned for a tempo outside [0.5, 2.0].
	ErrTempoOutOfRange = errors.New("tempo outside [0.5, 2.0]")
)
