package ui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"ouroboros/internal/eventbus"
	"ouroboros/internal/model"
	"ouroboros/internal/snapshotpub"
)

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestCurrentTrackResolvesValidIndex(t *testing.T) {
	snap := model.Snapshot{
		Library: &model.LibraryState{Tracks: []model.Track{{Path: "/a"}, {Path: "/b"}}},
		Queue:   &model.QueueState{TrackIndices: []int{1, 0}, CurrentIndex: 0},
	}
	track, ok := currentTrack(snap)
	if !ok || track.Path != "/b" {
		t.Fatalf("expected track /b, got %+v ok=%v", track, ok)
	}
}

func TestCurrentTrackRejectsOutOfBoundsIndices(t *testing.T) {
	snap := model.Snapshot{
		Library: &model.LibraryState{Tracks: []model.Track{{Path: "/a"}}},
		Queue:   &model.QueueState{TrackIndices: []int{5}, CurrentIndex: 0},
	}
	if _, ok := currentTrack(snap); ok {
		t.Fatal("expected false for out-of-bounds track index")
	}
}

func TestCurrentTrackRejectsEmptyQueue(t *testing.T) {
	snap := model.Snapshot{
		Library: &model.LibraryState{Tracks: []model.Track{{Path: "/a"}}},
		Queue:   &model.QueueState{CurrentIndex: 0},
	}
	if _, ok := currentTrack(snap); ok {
		t.Fatal("expected false for empty queue")
	}
}

func TestCurrentTrackRejectsNilSnapshotFields(t *testing.T) {
	if _, ok := currentTrack(model.Snapshot{}); ok {
		t.Fatal("expected false for a zero-value snapshot")
	}
}

func TestGridColsDefaultsWhenNoConfig(t *testing.T) {
	m := &Model{}
	if got := m.gridCols(); got != 4 {
		t.Errorf("expected default of 4 columns, got %d", got)
	}
}

func TestAlbumKeyUsesContainingDirectory(t *testing.T) {
	track := model.Track{Path: "/music/Artist/Album/01.flac"}
	if got := albumKey(track); got != "/music/Artist/Album" {
		t.Errorf("expected album directory, got %q", got)
	}
}

func TestHandleKeyPlayPausePublishesEvent(t *testing.T) {
	bus := eventbus.New()
	received := make(chan eventbus.Event, 1)
	unsub := bus.Subscribe(eventbus.PlayPause, func(e eventbus.Event) { received <- e })
	defer bus.Unsubscribe(unsub)

	m := New(snapshotpub.New(), bus, nil, nil)
	m.handleKey(runeKey('p'))

	select {
	case <-received:
	default:
		t.Fatal("expected a PlayPause event to be published")
	}
}

func TestHandleKeyTogglesArtworkLocally(t *testing.T) {
	bus := eventbus.New()
	m := New(snapshotpub.New(), bus, nil, nil)
	if m.artworkShown {
		t.Fatal("expected artwork hidden by default")
	}
	m.handleKey(runeKey('a'))
	if !m.artworkShown {
		t.Fatal("expected artwork toggled on after pressing a")
	}
}

func TestAdvanceScrollPausesThenAdvances(t *testing.T) {
	m := &Model{scrollPause: 2}
	m.advanceScroll()
	if m.scrollPause != 1 || m.scrollOffset != 0 {
		t.Fatalf("expected pause to decrement without advancing offset, got pause=%d offset=%d", m.scrollPause, m.scrollOffset)
	}
	m.advanceScroll()
	m.advanceScroll()
	if m.scrollPause != 0 || m.scrollOffset != 1 {
		t.Fatalf("expected offset to advance once the pause ran out, got pause=%d offset=%d", m.scrollPause, m.scrollOffset)
	}
}

