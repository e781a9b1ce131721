// Package artwork implements the content-addressed artwork cache: raw
// cover-art bytes are stored and looked up by their SHA-256 hash, with
// reference counting so artwork is evicted once no track points to it
// anymore.
package artwork

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"sync"

	_ "golang.org/x/image/webp"
)

// ErrCorruptImage wraps the decode failure for bytes that do not decode as
// a supported image format. Store drops such bytes without returning it.
var ErrCorruptImage = errors.New("artwork: corrupt or unsupported image data")

// Entry is a single cached artwork blob.
type Entry struct {
	Data       []byte
	MimeType   string
	SourceDir  string
	RefCount   int
}

// Cache is a thread-safe, content-addressed artwork store. The zero value
// is not usable; construct with New.
type Cache struct {
	mu             sync.Mutex
	byHash         map[string]*Entry
	dirToHash      map[string]string
	trackToHash    map[string]string
	verifiedTracks map[string]struct{}
	dirty          bool
}

// New returns an empty Cache.
func New() *Cache {
	return &Cache{
		byHash:         make(map[string]*Entry),
		dirToHash:      make(map[string]string),
		trackToHash:    make(map[string]string),
		verifiedTracks: make(map[string]struct{}),
	}
}

// Hash computes the content-addressed key for raw artwork bytes.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// decode validates that data is a fully decodable image, matching the
// source's stbi_load_from_memory-based validation (a header-only check
// would accept a truncated file).
func decode(data []byte) error {
	_, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptImage, err)
	}
	return nil
}

// Store validates and records artwork under its content hash. If the hash
// already exists, its reference count is incremented instead of storing a
// duplicate. Corrupt data is silently rejected (mirrors the source, which
// logs and returns rather than propagating an error up through the scan
// pipeline), so callers that need failure detail should call Hash+decode
// validation themselves first if needed.
func (c *Cache) Store(hash string, data []byte, mimeType, sourceDir string) {
	if hash == "" || len(data) == 0 {
		return
	}
	if err := decode(data); err != nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.byHash[hash]; ok {
		existing.RefCount++
		if sourceDir != "" {
			if _, ok := c.dirToHash[sourceDir]; !ok {
				c.dirToHash[sourceDir] = hash
			}
		}
		return
	}

	c.byHash[hash] = &Entry{Data: data, MimeType: mimeType, SourceDir: sourceDir, RefCount: 1}
	c.dirty = true
	if sourceDir != "" {
		c.dirToHash[sourceDir] = hash
	}
}

// Get returns a copy of the entry for hash, or (Entry{}, false).
func (c *Cache) Get(hash string) (Entry, bool) {
	if hash == "" {
		return Entry{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.byHash[hash]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// HashForDir returns the artwork hash associated with an album directory.
func (c *Cache) HashForDir(dir string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	h, ok := c.dirToHash[dir]
	return h, ok
}

// Ref increments the reference count for hash.
func (c *Cache) Ref(hash string) {
	if hash == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.byHash[hash]; ok {
		e.RefCount++
	}
}

// Unref decrements the reference count for hash, evicting the entry (and
// its directory mapping, if it points at this hash) once the count reaches
// zero.
func (c *Cache) Unref(hash string) {
	if hash == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.byHash[hash]
	if !ok {
		return
	}
	if e.RefCount > 0 {
		e.RefCount--
	}
	if e.RefCount == 0 {
		if e.SourceDir != "" {
			if cur, ok := c.dirToHash[e.SourceDir]; ok && cur == hash {
				delete(c.dirToHash, e.SourceDir)
			}
		}
		delete(c.byHash, hash)
		c.dirty = true
	}
}

// MarkVerified records that path's embedded artwork has already been
// matched against the cache, avoiding redundant re-hashing on future scans.
// If hash is non-empty it is recorded as path's unique per-track artwork
// (used for compilations/podcasts where every track has distinct art).
func (c *Cache) MarkVerified(path, hash string) {
	if path == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.verifiedTracks[path]; !ok {
		c.verifiedTracks[path] = struct{}{}
		c.dirty = true
	}
	if hash != "" {
		c.trackToHash[path] = hash
		c.dirty = true
	}
}

// IsVerified reports whether path was previously marked verified.
func (c *Cache) IsVerified(path string) bool {
	if path == "" {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.verifiedTracks[path]
	return ok
}

// HashForTrack returns path's unique per-track artwork hash, if any.
func (c *Cache) HashForTrack(path string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	h, ok := c.trackToHash[path]
	return h, ok
}

// IsDirty reports whether the cache has unsaved changes.
func (c *Cache) IsDirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dirty
}

// Size returns the number of distinct artwork entries.
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.byHash)
}

// MemoryUsage returns the approximate number of bytes held by the cache.
func (c *Cache) MemoryUsage() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for hash, e := range c.byHash {
		total += len(e.Data) + len(hash) + len(e.MimeType)
	}
	return total
}

// Clear removes all entries. Used by tests.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byHash = make(map[string]*Entry)
}
