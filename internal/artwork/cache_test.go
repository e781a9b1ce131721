package artwork

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.RGBA{R: 10, G: 20, B: 30, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode test png: %v", err)
	}
	return buf.Bytes()
}

func TestStoreRejectsCorruptData(t *testing.T) {
	c := New()
	c.Store(Hash([]byte("not an image")), []byte("not an image"), "image/png", "/music/album")
	if c.Size() != 0 {
		t.Fatalf("expected corrupt data to be rejected, got size %d", c.Size())
	}
}

func TestStoreDedupsByHashAndRefCounts(t *testing.T) {
	c := New()
	data := testPNG(t)
	hash := Hash(data)

	c.Store(hash, data, "image/png", "/music/album-a")
	c.Store(hash, data, "image/png", "/music/album-b")

	if c.Size() != 1 {
		t.Fatalf("expected 1 entry, got %d", c.Size())
	}
	e, ok := c.Get(hash)
	if !ok {
		t.Fatal("expected entry to be present")
	}
	if e.RefCount != 2 {
		t.Errorf("expected ref count 2, got %d", e.RefCount)
	}
}

func TestUnrefEvictsAtZero(t *testing.T) {
	c := New()
	data := testPNG(t)
	hash := Hash(data)
	c.Store(hash, data, "image/png", "/music/album")

	c.Unref(hash)

	if _, ok := c.Get(hash); ok {
		t.Fatal("expected entry to be evicted once ref count hits zero")
	}
	if _, ok := c.HashForDir("/music/album"); ok {
		t.Fatal("expected dir mapping to be cleaned up on eviction")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	c := New()
	data := testPNG(t)
	hash := Hash(data)
	c.Store(hash, data, "image/png", "/music/album")
	c.MarkVerified("/music/album/track1.mp3", "")
	c.MarkVerified("/music/album/track2.mp3", hash)

	dir := t.TempDir()
	path := filepath.Join(dir, "artwork.cache")
	if err := c.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded := New()
	if err := loaded.Load(path); err != nil {
		t.Fatalf("load: %v", err)
	}

	e, ok := loaded.Get(hash)
	if !ok {
		t.Fatal("expected loaded entry to be present")
	}
	if e.RefCount != 0 {
		t.Errorf("expected ref count reset to 0 on load, got %d", e.RefCount)
	}
	if !loaded.IsVerified("/music/album/track1.mp3") {
		t.Error("expected track1 to be verified after reload")
	}
	trackHash, ok := loaded.HashForTrack("/music/album/track2.mp3")
	if !ok || trackHash != hash {
		t.Errorf("expected track2 unique hash to survive reload, got %q ok=%v", trackHash, ok)
	}
	dirHash, ok := loaded.HashForDir("/music/album")
	if !ok || dirHash != hash {
		t.Errorf("expected dir mapping to survive reload, got %q ok=%v", dirHash, ok)
	}
}

func TestSaveSkipsWhenNotDirty(t *testing.T) {
	c := New()
	dir := t.TempDir()
	path := filepath.Join(dir, "artwork.cache")

	if err := c.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := os.Stat(path); err == nil {
		t.Fatal("expected no file to be written when cache is not dirty")
	}
}

func TestLoadVersionMismatchIsTreatedAsEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "artwork.cache")

	c := New()
	data := testPNG(t)
	c.Store(Hash(data), data, "image/png", "/music/album")
	if err := c.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	raw[8] = 0xFF // corrupt the version field
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	loaded := New()
	if err := loaded.Load(path); err != nil {
		t.Fatalf("expected version mismatch to not be an error, got %v", err)
	}
	if loaded.Size() != 0 {
		t.Errorf("expected empty cache after version mismatch, got size %d", loaded.Size())
	}
}
