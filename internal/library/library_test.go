package library

import (
	"os"
	"path/filepath"
	"testing"

	"ouroboros/internal/artwork"
	"ouroboros/internal/model"
)

func writeAudioFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("fake audio bytes"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestSetMusicDirectoriesDedupsSubdirectories(t *testing.T) {
	root := t.TempDir()
	parent := filepath.Join(root, "music")
	child := filepath.Join(root, "music", "rock")
	if err := os.MkdirAll(child, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	l := New(artwork.New())
	l.SetMusicDirectories([]string{child, parent})

	if len(l.musicDirs) != 1 {
		t.Fatalf("expected subdirectory to be deduped, got %v", l.musicDirs)
	}
	if l.musicDirs[0] != filepath.Clean(parent) {
		t.Errorf("expected parent %q to be kept, got %q", parent, l.musicDirs[0])
	}
}

func TestSetMusicDirectoriesSkipsNonExistent(t *testing.T) {
	l := New(artwork.New())
	l.SetMusicDirectories([]string{"/does/not/exist"})
	if len(l.musicDirs) != 0 {
		t.Errorf("expected no directories, got %v", l.musicDirs)
	}
}

func TestScanFindsTracksAndSubsequentValidateTier0IsValid(t *testing.T) {
	root := t.TempDir()
	writeAudioFile(t, filepath.Join(root, "album", "01.mp3"))
	writeAudioFile(t, filepath.Join(root, "album", "02.mp3"))

	l := New(artwork.New())
	l.SetMusicDirectories([]string{root})
	l.Scan(nil)

	if l.TrackCount() != 2 {
		t.Fatalf("expected 2 tracks after scan, got %d", l.TrackCount())
	}

	result := l.ValidateTier0()
	if result != Valid {
		t.Errorf("expected Valid after a fresh scan, got %v", result)
	}
}

func TestValidateTier0DetectsNewFile(t *testing.T) {
	root := t.TempDir()
	writeAudioFile(t, filepath.Join(root, "album", "01.mp3"))

	l := New(artwork.New())
	l.SetMusicDirectories([]string{root})
	l.Scan(nil)

	writeAudioFile(t, filepath.Join(root, "album", "02.mp3"))

	if result := l.ValidateTier0(); result != CountMismatch {
		t.Errorf("expected CountMismatch after adding a file, got %v", result)
	}
}

func TestScanPrunesDeletedTracks(t *testing.T) {
	root := t.TempDir()
	p1 := filepath.Join(root, "album", "01.mp3")
	p2 := filepath.Join(root, "album", "02.mp3")
	writeAudioFile(t, p1)
	writeAudioFile(t, p2)

	l := New(artwork.New())
	l.SetMusicDirectories([]string{root})
	l.Scan(nil)

	if err := os.Remove(p2); err != nil {
		t.Fatalf("remove: %v", err)
	}
	l.Scan(nil)

	if l.TrackCount() != 1 {
		t.Fatalf("expected 1 track after deletion, got %d", l.TrackCount())
	}
	if _, ok := l.TrackByPath(p2); ok {
		t.Error("expected deleted track to be pruned")
	}
}

func TestAllTracksFiltersToConfiguredDirectories(t *testing.T) {
	root := t.TempDir()
	dirA := filepath.Join(root, "a")
	dirB := filepath.Join(root, "b")
	writeAudioFile(t, filepath.Join(dirA, "01.mp3"))
	writeAudioFile(t, filepath.Join(dirB, "01.mp3"))

	l := New(artwork.New())
	l.SetMusicDirectories([]string{dirA, dirB})
	l.Scan(nil)
	if len(l.AllTracks()) != 2 {
		t.Fatalf("expected 2 tracks with both dirs configured")
	}

	l.SetMusicDirectories([]string{dirA})
	if len(l.AllTracks()) != 1 {
		t.Errorf("expected cumulative cache to hide tracks from unconfigured dir B")
	}
}

func TestSortTracksOrdersByArtistDateTrackNumber(t *testing.T) {
	tracks := []model.Track{
		{Path: "/c.mp3", Artist: "Bravo", Date: "2020", TrackNumber: 1},
		{Path: "/a.mp3", Artist: "Alpha", Date: "2019", TrackNumber: 2},
		{Path: "/b.mp3", Artist: "Alpha", Date: "2019", TrackNumber: 1},
	}
	sortTracks(tracks)

	want := []string{"/b.mp3", "/a.mp3", "/c.mp3"}
	for i, path := range want {
		if tracks[i].Path != path {
			t.Fatalf("position %d: expected %q, got %q (full order %v)", i, path, tracks[i].Path, tracks)
		}
	}
}

func TestSortTracksIsStableAndDeterministicOnTies(t *testing.T) {
	tracks := []model.Track{
		{Path: "/z.mp3", Artist: "Same", Date: "2020", TrackNumber: 1},
		{Path: "/y.mp3", Artist: "Same", Date: "2020", TrackNumber: 1},
		{Path: "/x.mp3", Artist: "Same", Date: "2020", TrackNumber: 1},
	}
	sortTracks(tracks)

	want := []string{"/x.mp3", "/y.mp3", "/z.mp3"}
	for i, path := range want {
		if tracks[i].Path != path {
			t.Fatalf("position %d: expected %q, got %q (full order %v)", i, path, tracks[i].Path, tracks)
		}
	}
}

func TestAllTracksReturnsConsistentOrderAcrossCalls(t *testing.T) {
	root := t.TempDir()
	writeAudioFile(t, filepath.Join(root, "album", "01.mp3"))
	writeAudioFile(t, filepath.Join(root, "album", "02.mp3"))
	writeAudioFile(t, filepath.Join(root, "album", "03.mp3"))

	l := New(artwork.New())
	l.SetMusicDirectories([]string{root})
	l.Scan(nil)

	first := l.AllTracks()
	for i := 0; i < 5; i++ {
		again := l.AllTracks()
		if len(again) != len(first) {
			t.Fatalf("track count changed between calls")
		}
		for j := range first {
			if again[j].Path != first[j].Path {
				t.Fatalf("AllTracks order drifted between calls at index %d: %q vs %q", j, first[j].Path, again[j].Path)
			}
		}
	}
}

func TestFindDirtyDirectories(t *testing.T) {
	current := map[string]int64{"/a": 10, "/b": 20, "/c": 5}
	cached := map[string]int64{"/a": 10, "/b": 15, "/d": 1}

	dirty := FindDirtyDirectories(current, cached)
	dirtySet := map[string]bool{}
	for _, d := range dirty {
		dirtySet[d] = true
	}

	if !dirtySet["/b"] {
		t.Error("expected /b (modified) to be dirty")
	}
	if !dirtySet["/c"] {
		t.Error("expected /c (new) to be dirty")
	}
	if !dirtySet["/d"] {
		t.Error("expected /d (deleted) to be dirty")
	}
	if dirtySet["/a"] {
		t.Error("expected /a (unchanged) to not be dirty")
	}
}
