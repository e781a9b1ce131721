// Package tagparse turns an audio file on disk into a model.Track plus any
// embedded artwork bytes, using github.com/dhowden/tag to read ID3/FLAC/
// OGG/M4A metadata.
package tagparse

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dhowden/tag"

	"ouroboros/internal/model"
)

// Artwork is embedded cover-art extracted from a track's tags.
type Artwork struct {
	Data     []byte
	MimeType string
	Hash     string
}

func formatForExt(ext string) model.FormatTag {
	switch strings.ToLower(ext) {
	case ".mp3":
		return model.FormatMP3
	case ".flac":
		return model.FormatFLAC
	case ".ogg":
		return model.FormatOGG
	case ".wav":
		return model.FormatWAV
	case ".m4a":
		return model.FormatM4A
	default:
		return model.FormatUnknown
	}
}

// Parse reads path's tags and returns a Track plus any embedded artwork. A
// Track is always returned, even on tag-reading failure — IsValid is false
// and ErrorMessage is populated, matching the source's "is_valid with
// optional error_message" contract instead of propagating the error up
// through the scan pipeline and losing the file entirely.
func Parse(path string) (model.Track, *Artwork) {
	t := model.Track{
		Path:   filepath.Clean(path),
		Format: formatForExt(filepath.Ext(path)),
	}

	f, err := os.Open(path)
	if err != nil {
		t.ErrorMessage = err.Error()
		return t, nil
	}
	defer f.Close()

	meta, err := tag.ReadFrom(f)
	if err != nil {
		t.ErrorMessage = err.Error()
		return t, nil
	}

	t.Title = meta.Title()
	t.Artist = meta.Artist()
	t.Album = meta.Album()
	t.Genre = meta.Genre()
	if meta.Year() != 0 {
		t.Date = strconv.Itoa(meta.Year())
	}
	trackNum, _ := meta.Track()
	t.TrackNumber = int32(trackNum)
	if format := meta.FileType(); format != "" {
		if ft := formatFromTagType(format); ft != model.FormatUnknown {
			t.Format = ft
		}
	}
	t.IsValid = true

	var art *Artwork
	if pic := meta.Picture(); pic != nil && len(pic.Data) > 0 {
		sum := sha256.Sum256(pic.Data)
		art = &Artwork{
			Data:     pic.Data,
			MimeType: pic.MIMEType,
			Hash:     hex.EncodeToString(sum[:]),
		}
	}

	return t, art
}

func formatFromTagType(ft tag.FileType) model.FormatTag {
	switch ft {
	case tag.MP3:
		return model.FormatMP3
	case tag.FLAC:
		return model.FormatFLAC
	case tag.OGG:
		return model.FormatOGG
	case tag.M4A, tag.M4B, tag.M4P:
		return model.FormatM4A
	default:
		return model.FormatUnknown
	}
}
