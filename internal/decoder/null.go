package decoder

import (
	"context"

	"ouroboros/internal/model"
)

// Null is a Decoder that immediately reports end of stream. Used as a
// default/fallback and in tests that need a Decoder without a real codec.
type Null struct {
	track    model.Track
	position int64
}

// NewNull returns a ready-to-use Null decoder.
func NewNull() *Null { return &Null{} }

func (n *Null) Open(ctx context.Context, track model.Track) (Format, error) {
	n.track = track
	n.position = 0
	return Format{SampleRate: 44100, Channels: 2, BitDepth: 16}, nil
}

func (n *Null) Read(ctx context.Context) (Frame, error) {
	return Frame{}, ErrEndOfStream
}

func (n *Null) Seek(ctx context.Context, positionMs int64) error {
	n.position = positionMs
	return nil
}

func (n *Null) Close() error { return nil }
