// Package decoder defines the narrow contract between the playback
// collector and an audio codec backend. A concrete decoder (MP3/FLAC/OGG/
// WAV/M4A) is an external collaborator out of scope for this module — see
// spec.md §1 — so only the interface and a reference null implementation
// used by tests live here.
package decoder

import (
	"context"
	"errors"

	"ouroboros/internal/model"
)

// ErrEndOfStream is returned by Read once a track has been fully decoded.
var ErrEndOfStream = errors.New("decoder: end of stream")

// Frame is one block of decoded PCM audio.
type Frame struct {
	Samples    []float32 // interleaved, one slice per Read call
	PositionMs int64      // position of this frame within the track
}

// Format is the concrete sample layout a Decoder produces, resolved once a
// track is opened (the on-disk Track only carries best-effort tag hints).
type Format struct {
	SampleRate uint32
	Channels   uint16
	BitDepth   uint16
}

// Decoder streams PCM frames for a single track.
type Decoder interface {
	// Open prepares the decoder to read track, returning its audio format.
	Open(ctx context.Context, track model.Track) (Format, error)
	// Read returns the next frame, or ErrEndOfStream when exhausted.
	Read(ctx context.Context) (Frame, error)
	// Seek moves the read position to positionMs.
	Seek(ctx context.Context, positionMs int64) error
	// Close releases any resources held by the decoder.
	Close() error
}

// Factory constructs a Decoder for a given platform. Concrete platform
// builds (build-tagged, one concrete constructor per OS) select their
// codec backend here, mirroring the teacher's media_linux.go/
// media_darwin.go split.
type Factory func() (Decoder, error)
