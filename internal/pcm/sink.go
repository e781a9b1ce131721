// Package pcm defines the narrow contract between the playback collector
// and a PCM output device. A concrete sink (ALSA/CoreAudio/etc.) is an
// external collaborator out of scope for this module — see spec.md §1 —
// so only the interface and a reference null implementation used by tests
// live here.
package pcm

import "context"

// Sink accepts PCM frames for playback and reports how much of the stream
// has actually been played out (which may lag behind what was written, due
// to internal buffering).
type Sink interface {
	// Configure prepares the sink for the given format. Calling it again
	// with a different format (e.g. on track change) must be supported.
	Configure(sampleRate uint32, channels, bitDepth uint16) error
	// Write enqueues samples for playback and returns once accepted.
	Write(ctx context.Context, samples []float32) error
	// PositionMs returns the playback position implied by frames already
	// consumed by the device, in milliseconds since the sink was last
	// configured.
	PositionMs() int64
	// SetVolume sets linear output volume in [0.0, 1.0].
	SetVolume(volume float64) error
	// Pause/Resume suspend and resume audio output without losing buffered
	// samples.
	Pause() error
	Resume() error
	// Close releases any resources held by the sink.
	Close() error
}

// Factory constructs a Sink for a given platform, mirroring the decoder
// package's Factory / the teacher's per-OS build-tag constructor pattern.
type Factory func() (Sink, error)
