// Package collectors implements the two backend loops that own real
// resources and periodically republish their state through a shared
// snapshotpub.Publisher: LibraryCollector owns the Library + directory
// scanner, PlaybackCollector owns the Decoder + PCM sink.
package collectors

import (
	"context"
	"path/filepath"
	"time"

	"ouroboros/internal/eventbus"
	"ouroboros/internal/library"
	"ouroboros/internal/model"
	"ouroboros/internal/snapshotpub"
)

// LibraryCollector periodically validates and rescans the configured music
// directories, republishing model.LibraryState as it changes.
type LibraryCollector struct {
	publisher *snapshotpub.Publisher
	lib       *library.Library
	bus       *eventbus.Bus

	// ValidateInterval controls how often ValidateTier0 runs between full
	// scans; defaults to 5 seconds if zero.
	ValidateInterval time.Duration
}

// NewLibraryCollector builds a collector that republishes through
// publisher and emits LibraryUpdated events on bus.
func NewLibraryCollector(publisher *snapshotpub.Publisher, lib *library.Library, bus *eventbus.Bus) *LibraryCollector {
	return &LibraryCollector{publisher: publisher, lib: lib, bus: bus}
}

// Run performs an initial scan and then loops, periodically re-validating
// the cache and rescanning when it's stale, until ctx is canceled.
func (c *LibraryCollector) Run(ctx context.Context) {
	interval := c.ValidateInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}

	c.scanAndPublish()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if c.lib.ValidateTier0() != library.Valid {
				c.scanAndPublish()
			}
		}
	}
}

func (c *LibraryCollector) scanAndPublish() {
	c.publisher.Update(func(next *model.Snapshot) {
		lib := *next.Library
		lib.ScanActive = true
		next.Library = &lib
	})

	c.lib.Scan(func(scanned, total int) {
		c.publisher.Update(func(next *model.Snapshot) {
			lib := *next.Library
			lib.ScanActive = true
			lib.TrackCount = scanned
			next.Library = &lib
		})
	})

	tracks := c.lib.AllTracks()
	c.publisher.Update(func(next *model.Snapshot) {
		next.Library = &model.LibraryState{
			Tracks:      tracks,
			Directories: directoriesOf(tracks),
			ScanActive:  false,
			TrackCount:  len(tracks),
		}
	})

	if c.bus != nil {
		c.bus.Publish(eventbus.Event{Type: eventbus.LibraryUpdated})
	}
}

func directoriesOf(tracks []model.Track) []string {
	seen := make(map[string]struct{})
	var dirs []string
	for _, t := range tracks {
		dir := filepath.Dir(t.Path)
		if _, ok := seen[dir]; !ok {
			seen[dir] = struct{}{}
			dirs = append(dirs, dir)
		}
	}
	return dirs
}
