package library

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"ouroboros/internal/model"
)

// cacheMagic and cacheVersion identify library.bin, matching the source's
// CACHE_MAGIC ('OURO') and CACHE_VERSION (3). Version 2 files are also
// readable (they predate the file_mtime/file_inode optimization fields);
// any other version forces a full rescan.
const (
	cacheMagic      uint32 = 0x4F55524F
	cacheVersion    uint32 = 3
	cacheVersionMin uint32 = 2
)

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	if len(s) == 0 {
		return nil
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	if n == 0 {
		return "", nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func writeTrack(w io.Writer, t model.Track) error {
	for _, s := range []string{t.Path, t.Title, t.Artist, t.Album, t.Genre, t.Date} {
		if err := writeString(w, s); err != nil {
			return err
		}
	}
	for _, v := range []int32{t.TrackNumber, t.DurationMs} {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(t.Format)); err != nil {
		return err
	}
	for _, v := range []int32{t.SampleRate, t.Channels, t.BitDepth, t.Bitrate} {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	if err := writeString(w, t.ArtworkHash); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, t.FileMtime); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, t.FileInode); err != nil {
		return err
	}
	var valid uint8
	if t.IsValid {
		valid = 1
	}
	return binary.Write(w, binary.LittleEndian, valid)
}

func readTrack(r io.Reader, version uint32) (model.Track, error) {
	var t model.Track
	var err error
	if t.Path, err = readString(r); err != nil {
		return t, err
	}
	t.Path = filepath.Clean(t.Path)
	if t.Title, err = readString(r); err != nil {
		return t, err
	}
	if t.Artist, err = readString(r); err != nil {
		return t, err
	}
	if t.Album, err = readString(r); err != nil {
		return t, err
	}
	if t.Genre, err = readString(r); err != nil {
		return t, err
	}
	if t.Date, err = readString(r); err != nil {
		return t, err
	}
	if err := binary.Read(r, binary.LittleEndian, &t.TrackNumber); err != nil {
		return t, err
	}
	if err := binary.Read(r, binary.LittleEndian, &t.DurationMs); err != nil {
		return t, err
	}
	var format uint32
	if err := binary.Read(r, binary.LittleEndian, &format); err != nil {
		return t, err
	}
	t.Format = model.FormatTag(format)
	if err := binary.Read(r, binary.LittleEndian, &t.SampleRate); err != nil {
		return t, err
	}
	if err := binary.Read(r, binary.LittleEndian, &t.Channels); err != nil {
		return t, err
	}
	if err := binary.Read(r, binary.LittleEndian, &t.BitDepth); err != nil {
		return t, err
	}
	if err := binary.Read(r, binary.LittleEndian, &t.Bitrate); err != nil {
		return t, err
	}
	if t.ArtworkHash, err = readString(r); err != nil {
		return t, err
	}
	if version >= 3 {
		if err := binary.Read(r, binary.LittleEndian, &t.FileMtime); err != nil {
			return t, err
		}
		if err := binary.Read(r, binary.LittleEndian, &t.FileInode); err != nil {
			return t, err
		}
	} else {
		if fi, statErr := os.Stat(t.Path); statErr == nil {
			t.FileMtime = fi.ModTime().Unix()
		}
	}
	var valid uint8
	if err := binary.Read(r, binary.LittleEndian, &valid); err != nil {
		return t, err
	}
	t.IsValid = valid != 0
	return t, nil
}

// saveToCache writes every currently-known track (not just tracks from
// currently configured directories) to path, matching the source's
// cumulative-cache persistence.
func saveToCache(path string, tracks map[string]model.Track) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("library: create cache dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("library: open cache for write: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := binary.Write(w, binary.LittleEndian, cacheMagic); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, cacheVersion); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint64(len(tracks))); err != nil {
		return err
	}
	for _, t := range tracks {
		if err := writeTrack(w, t); err != nil {
			return err
		}
	}
	return w.Flush()
}

// loadFromCache reads path into a path->Track map. Tracks are kept even if
// their file no longer exists right now (a removable drive may simply be
// unmounted); stale entries are pruned later during Scan once presence can
// be re-verified. Returns (nil, nil) if path is absent or its version is
// unsupported — either case means "treat as empty, the caller will rescan".
func loadFromCache(path string) (map[string]model.Track, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("library: open cache for read: %w", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var magic, version uint32
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return nil, fmt.Errorf("library: read magic: %w", err)
	}
	if magic != cacheMagic {
		return nil, nil
	}
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, fmt.Errorf("library: read version: %w", err)
	}
	if version != cacheVersion && version != cacheVersionMin {
		return nil, nil
	}

	var count uint64
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, err
	}

	tracks := make(map[string]model.Track, count)
	for i := uint64(0); i < count; i++ {
		t, err := readTrack(r, version)
		if err != nil {
			return nil, fmt.Errorf("library: read track %d: %w", i, err)
		}
		tracks[t.Path] = t
	}
	return tracks, nil
}
