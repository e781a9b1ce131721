package pcm

import "context"

// Null is a Sink that discards audio and reports a stationary position.
// Used as a default/fallback and in tests that don't need real output.
type Null struct {
	position int64
	volume   float64
	paused   bool
}

// NewNull returns a ready-to-use Null sink.
func NewNull() *Null { return &Null{volume: 1} }

func (n *Null) Configure(sampleRate uint32, channels, bitDepth uint16) error { return nil }

func (n *Null) Write(ctx context.Context, samples []float32) error { return nil }

func (n *Null) PositionMs() int64 { return n.position }

func (n *Null) SetVolume(volume float64) error {
	n.volume = volume
	return nil
}

func (n *Null) Pause() error {
	n.paused = true
	return nil
}

func (n *Null) Resume() error {
	n.paused = false
	return nil
}

func (n *Null) Close() error { return nil }
