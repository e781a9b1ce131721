package scanner

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestScanFindsAudioFilesAndSkipsOthers(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "album", "track1.mp3"))
	writeFile(t, filepath.Join(root, "album", "track2.flac"))
	writeFile(t, filepath.Join(root, "album", "cover.jpg"))
	writeFile(t, filepath.Join(root, "album", "notes.txt"))

	res, err := Scan(root)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(res.AudioFiles) != 2 {
		t.Fatalf("expected 2 audio files, got %d: %v", len(res.AudioFiles), res.AudioFiles)
	}
}

func TestTreeHashIsDeterministicRegardlessOfInputOrder(t *testing.T) {
	paths1 := []string{"/a/1.mp3", "/a/2.mp3", "/b/3.mp3"}
	paths2 := []string{"/b/3.mp3", "/a/1.mp3", "/a/2.mp3"}

	if computeTreeHash(paths1) != computeTreeHash(paths2) {
		t.Fatal("expected tree hash to be invariant to input ordering")
	}
}

func TestTreeHashChangesWhenFilesChange(t *testing.T) {
	h1 := computeTreeHash([]string{"/a/1.mp3"})
	h2 := computeTreeHash([]string{"/a/1.mp3", "/a/2.mp3"})
	if h1 == h2 {
		t.Fatal("expected tree hash to change when file set changes")
	}
}

func TestIsAudioExtensionCaseInsensitive(t *testing.T) {
	for _, name := range []string{"song.MP3", "song.Flac", "song.wav"} {
		if !IsAudioExtension(name) {
			t.Errorf("expected %q to be recognized as audio", name)
		}
	}
	if IsAudioExtension("cover.jpg") {
		t.Error("expected cover.jpg to not be recognized as audio")
	}
}
