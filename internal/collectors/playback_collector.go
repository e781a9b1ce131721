package collectors

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"time"

	"ouroboros/internal/decoder"
	"ouroboros/internal/eventbus"
	"ouroboros/internal/library"
	"ouroboros/internal/model"
	"ouroboros/internal/pcm"
	"ouroboros/internal/queue"
	"ouroboros/internal/snapshotpub"
)

// PlaybackCollector owns the active Decoder and PCM sink, advances the
// queue on track completion, and republishes model.PlayerState/QueueState
// as playback progresses.
type PlaybackCollector struct {
	publisher     *snapshotpub.Publisher
	lib           *library.Library
	bus           *eventbus.Bus
	decoderFactory decoder.Factory
	sinkFactory    pcm.Factory

	queue  *queue.Queue
	paused atomic.Bool

	dec  decoder.Decoder
	sink pcm.Sink
}

// NewPlaybackCollector builds a collector using decoderFactory/sinkFactory
// to open the narrow external-collaborator contracts for each track.
func NewPlaybackCollector(publisher *snapshotpub.Publisher, lib *library.Library, bus *eventbus.Bus, decoderFactory decoder.Factory, sinkFactory pcm.Factory) *PlaybackCollector {
	return &PlaybackCollector{
		publisher:      publisher,
		lib:            lib,
		bus:            bus,
		decoderFactory: decoderFactory,
		sinkFactory:    sinkFactory,
		queue:          queue.New(nil),
	}
}

// Run subscribes to transport events and loops, pumping decoded frames to
// the sink and republishing player/queue state, until ctx is canceled.
func (c *PlaybackCollector) Run(ctx context.Context) {
	playPauseID := c.bus.Subscribe(eventbus.PlayPause, func(eventbus.Event) { c.togglePause() })
	nextID := c.bus.Subscribe(eventbus.NextTrack, func(eventbus.Event) { c.advance() })
	prevID := c.bus.Subscribe(eventbus.PrevTrack, func(eventbus.Event) { c.previous() })
	volUpID := c.bus.Subscribe(eventbus.VolumeUp, func(e eventbus.Event) { c.adjustVolume(float64(delta(e, 5)) / 100) })
	volDownID := c.bus.Subscribe(eventbus.VolumeDown, func(e eventbus.Event) { c.adjustVolume(-float64(delta(e, 5)) / 100) })
	seekFwdID := c.bus.Subscribe(eventbus.SeekForward, func(e eventbus.Event) { c.seekRelative(int64(delta(e, 5)) * 1000) })
	seekBackID := c.bus.Subscribe(eventbus.SeekBackward, func(e eventbus.Event) { c.seekRelative(-int64(delta(e, 5)) * 1000) })
	repeatID := c.bus.Subscribe(eventbus.RepeatToggle, func(eventbus.Event) { c.toggleRepeat() })
	addTrackID := c.bus.Subscribe(eventbus.AddTrackToQueue, func(e eventbus.Event) { c.addTrackToQueue(e.Index) })
	clearID := c.bus.Subscribe(eventbus.ClearQueue, func(eventbus.Event) { c.clearQueue() })
	defer func() {
		ids := []eventbus.SubscriptionID{playPauseID, nextID, prevID, volUpID, volDownID, seekFwdID, seekBackID, repeatID, addTrackID, clearID}
		for _, id := range ids {
			c.bus.Unsubscribe(id)
		}
	}()

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			c.closeCurrent()
			return
		case <-ticker.C:
			c.tick(ctx)
		}
	}
}

func delta(e eventbus.Event, def int) int {
	if e.VolumeDelta != 0 {
		return e.VolumeDelta
	}
	if e.SeekSeconds != 0 {
		return e.SeekSeconds
	}
	return def
}

func (c *PlaybackCollector) tick(ctx context.Context) {
	if c.paused.Load() || c.dec == nil || c.sink == nil {
		return
	}

	frame, err := c.dec.Read(ctx)
	if errors.Is(err, decoder.ErrEndOfStream) {
		c.advance()
		return
	}
	if err != nil {
		c.publishError(err)
		return
	}
	if err := c.sink.Write(ctx, frame.Samples); err != nil {
		c.publishError(err)
		return
	}

	position := sanitizePosition(c.sink.PositionMs())
	c.publisher.Update(func(next *model.Snapshot) {
		next.Player.PositionMs = position
	})
}

// sanitizePosition clamps NaN/Inf-derived values (which can occur from a
// decoder's rate computation) to a safe, renderable range before they ever
// reach a published snapshot.
func sanitizePosition(ms int64) int64 {
	f := float64(ms)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	if ms < 0 {
		return 0
	}
	return ms
}

func (c *PlaybackCollector) togglePause() {
	paused := !c.paused.Load()
	c.paused.Store(paused)
	if c.sink != nil {
		if paused {
			c.sink.Pause()
		} else {
			c.sink.Resume()
		}
	}
	c.publisher.Update(func(next *model.Snapshot) {
		if paused {
			next.Player.State = model.PlaybackPaused
		} else {
			next.Player.State = model.PlaybackPlaying
		}
	})
}

func (c *PlaybackCollector) advance() {
	result := c.queue.Next()
	if result == queue.AdvanceStop {
		c.closeCurrent()
		c.publisher.Update(func(next *model.Snapshot) {
			next.Player.State = model.PlaybackStopped
			q := *next.Queue
			q.CurrentIndex = c.queue.State().CurrentIndex
			next.Queue = &q
		})
		return
	}
	c.playCurrent()
}

func (c *PlaybackCollector) previous() {
	if !c.queue.Previous() {
		return
	}
	c.playCurrent()
}

// playCurrent opens the decoder/sink for the track at the queue's current
// position. An invalid track (tagparse could not read it) is never opened;
// instead playCurrent alerts once and advances past it, repeating until it
// finds a playable track or the queue is exhausted. The bound on attempts
// matches the queue length, so a queue of entirely invalid tracks stops
// instead of looping forever.
func (c *PlaybackCollector) playCurrent() {
	for attempts, n := 0, c.queue.State(); attempts < len(n.TrackIndices); attempts++ {
		state := c.queue.State()
		if state.CurrentIndex < 0 || state.CurrentIndex >= len(state.TrackIndices) {
			return
		}
		tracks := c.lib.AllTracks()
		idx := state.TrackIndices[state.CurrentIndex]
		if idx < 0 || idx >= len(tracks) {
			return
		}
		track := tracks[idx]

		if !track.IsValid {
			c.alert(model.AlertError, "Cannot play: "+track.Title+" - "+track.ErrorMessage)
			if c.queue.Next() == queue.AdvanceStop {
				c.closeCurrent()
				c.publisher.Update(func(next *model.Snapshot) {
					next.Player.State = model.PlaybackStopped
					q := *next.Queue
					q.CurrentIndex = c.queue.State().CurrentIndex
					next.Queue = &q
				})
				return
			}
			continue
		}

		c.playTrack(track, idx, state.CurrentIndex)
		return
	}
}

func (c *PlaybackCollector) playTrack(track model.Track, idx, queueIndex int) {
	c.closeCurrent()

	dec, err := c.decoderFactory()
	if err != nil {
		c.publishError(err)
		return
	}
	sink, err := c.sinkFactory()
	if err != nil {
		c.publishError(err)
		return
	}

	ctx := context.Background()
	format, err := dec.Open(ctx, track)
	if err != nil {
		c.publishError(err)
		return
	}
	if err := sink.Configure(format.SampleRate, format.Channels, format.BitDepth); err != nil {
		c.publishError(err)
		return
	}

	c.dec = dec
	c.sink = sink
	c.paused.Store(false)

	c.publisher.Update(func(next *model.Snapshot) {
		next.Player = model.PlayerState{
			State:      model.PlaybackPlaying,
			PositionMs: 0,
			DurationMs: int64(track.DurationMs),
			Volume:     next.Player.Volume,
		}
		q := *next.Queue
		q.CurrentIndex = queueIndex
		next.Queue = &q
	})

	if c.bus != nil {
		c.bus.Publish(eventbus.Event{Type: eventbus.TrackChanged, Index: idx})
	}
}

func (c *PlaybackCollector) closeCurrent() {
	if c.dec != nil {
		c.dec.Close()
		c.dec = nil
	}
	if c.sink != nil {
		c.sink.Close()
		c.sink = nil
	}
}

func (c *PlaybackCollector) adjustVolume(delta float64) {
	c.publisher.Update(func(next *model.Snapshot) {
		v := next.Player.Volume + delta
		if v < 0 {
			v = 0
		}
		if v > 1 {
			v = 1
		}
		next.Player.Volume = v
		if c.sink != nil {
			c.sink.SetVolume(v)
		}
	})
}

func (c *PlaybackCollector) seekRelative(deltaMs int64) {
	if c.dec == nil {
		return
	}
	c.publisher.Update(func(next *model.Snapshot) {
		target := next.Player.PositionMs + deltaMs
		if target < 0 {
			target = 0
		}
		if next.Player.DurationMs > 0 && target > next.Player.DurationMs {
			target = next.Player.DurationMs
		}
		if err := c.dec.Seek(context.Background(), target); err == nil {
			next.Player.PositionMs = target
		}
	})
}

func (c *PlaybackCollector) toggleRepeat() {
	c.publisher.Update(func(next *model.Snapshot) {
		q := *next.Queue
		switch q.Repeat {
		case model.RepeatOff:
			q.Repeat = model.RepeatAll
		case model.RepeatAll:
			q.Repeat = model.RepeatOne
		default:
			q.Repeat = model.RepeatOff
		}
		c.queue.SetRepeat(q.Repeat)
		next.Queue = &q
	})
}

// addTrackToQueue appends a library track index to the end of the queue
// without disturbing playback of the current track.
func (c *PlaybackCollector) addTrackToQueue(trackIndex int) {
	state := c.queue.State()
	indices := append(append([]int{}, state.TrackIndices...), trackIndex)
	c.queue.SetTrackIndices(indices) // keeps CurrentIndex, which is still in range
	c.publisher.Update(func(next *model.Snapshot) {
		q := *next.Queue
		q.TrackIndices = indices
		q.CurrentIndex = c.queue.State().CurrentIndex
		next.Queue = &q
	})
}

// clearQueue empties the queue and stops playback.
func (c *PlaybackCollector) clearQueue() {
	c.closeCurrent()
	c.queue.SetTrackIndices(nil)
	c.publisher.Update(func(next *model.Snapshot) {
		next.Player.State = model.PlaybackStopped
		next.Queue = &model.QueueState{Repeat: next.Queue.Repeat, Shuffle: next.Queue.Shuffle}
	})
}

func (c *PlaybackCollector) publishError(err error) {
	c.publisher.Update(func(next *model.Snapshot) {
		next.Player.LastError = err.Error()
		next.Alerts = model.AppendAlert(next.Alerts, model.AlertError, err.Error(), time.Now())
	})
}

// alert appends a leveled, time-stamped entry to Snapshot.Alerts.
func (c *PlaybackCollector) alert(level model.AlertLevel, message string) {
	c.publisher.Update(func(next *model.Snapshot) {
		next.Alerts = model.AppendAlert(next.Alerts, level, message, time.Now())
	})
}

// SetShuffle enables or disables shuffle for the current and future queues,
// republishing the resulting QueueState.
func (c *PlaybackCollector) SetShuffle(on bool) {
	c.queue.SetShuffle(on)
	c.publisher.Update(func(next *model.Snapshot) {
		q := *next.Queue
		q.Shuffle = on
		next.Queue = &q
	})
}

// SetRepeatMode sets the repeat mode directly, republishing QueueState.
func (c *PlaybackCollector) SetRepeatMode(mode model.RepeatMode) {
	c.queue.SetRepeat(mode)
	c.publisher.Update(func(next *model.Snapshot) {
		q := *next.Queue
		q.Repeat = mode
		next.Queue = &q
	})
}

// SetVolume sets the player volume directly (e.g. from the initial config),
// clamped to [0, 1].
func (c *PlaybackCollector) SetVolume(volume float64) {
	if volume < 0 {
		volume = 0
	}
	if volume > 1 {
		volume = 1
	}
	c.publisher.Update(func(next *model.Snapshot) {
		next.Player.Volume = volume
		if c.sink != nil {
			c.sink.SetVolume(volume)
		}
	})
}

// LoadQueue replaces the playback queue with the given track indices and
// starts playback at startIndex.
func (c *PlaybackCollector) LoadQueue(trackIndices []int, startIndex int) {
	c.queue.SetTrackIndices(nil) // resets CurrentIndex to 0
	c.queue.SetTrackIndices(trackIndices)
	shuffle := c.queue.State().Shuffle
	c.queue.SetShuffle(false) // step linearly so startIndex is honored
	for i := 0; i < startIndex; i++ {
		c.queue.Next()
	}
	c.queue.SetShuffle(shuffle)
	c.publisher.Update(func(next *model.Snapshot) {
		next.Queue = &model.QueueState{
			TrackIndices: trackIndices,
			CurrentIndex: c.queue.State().CurrentIndex,
			Shuffle:      c.queue.State().Shuffle,
			Repeat:       c.queue.State().Repeat,
		}
	})
	c.playCurrent()
}
