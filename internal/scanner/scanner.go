// Package scanner walks a music library directory tree, collecting audio
// file paths, per-file and per-directory modification times, and a
// deterministic tree hash of the audio file set.
package scanner

import (
	"crypto/sha256"
	"encoding/binary"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var audioExtensions = map[string]struct{}{
	".flac": {},
	".m4a":  {},
	".mp3":  {},
	".ogg":  {},
	".wav":  {},
}

// IsAudioExtension reports whether filename has a recognized audio
// extension.
func IsAudioExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	_, ok := audioExtensions[ext]
	return ok
}

// Result is the outcome of a full recursive scan.
type Result struct {
	AudioFiles []string          // absolute paths
	FileMtimes map[string]int64  // absolute path -> unix mtime
	DirMtimes  map[string]int64  // path relative to root ("/" for root itself) -> unix mtime
	TreeHash   uint64
}

// Scan walks root recursively, collecting every audio file along with file
// and directory modification times.
func Scan(root string) (Result, error) {
	root = strings.TrimRight(root, string(filepath.Separator))
	if root == "" {
		root = string(filepath.Separator)
	}

	res := Result{
		FileMtimes: make(map[string]int64),
		DirMtimes:  make(map[string]int64),
	}

	if err := scanDir(root, root, &res); err != nil {
		return Result{}, err
	}

	res.TreeHash = computeTreeHash(res.AudioFiles)
	return res, nil
}

// ScanDirectories performs the cheaper tier-1 check: directory structure
// and mtimes only, no file stats.
func ScanDirectories(root string) (map[string]int64, error) {
	root = strings.TrimRight(root, string(filepath.Separator))
	if root == "" {
		root = string(filepath.Separator)
	}
	dirMtimes := make(map[string]int64)
	if err := scanDirsOnly(root, root, dirMtimes); err != nil {
		return nil, err
	}
	return dirMtimes, nil
}

func relDir(root, path string) string {
	if path == root {
		return "/"
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return rel
}

func scanDir(dirPath, root string, res *Result) error {
	info, err := os.Stat(dirPath)
	if err != nil {
		return err
	}
	res.DirMtimes[relDir(root, dirPath)] = info.ModTime().Unix()

	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		full := filepath.Join(dirPath, entry.Name())
		if entry.IsDir() {
			if err := scanDir(full, root, res); err != nil {
				return err
			}
			continue
		}
		if !IsAudioExtension(entry.Name()) {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			continue
		}
		res.AudioFiles = append(res.AudioFiles, full)
		res.FileMtimes[full] = fi.ModTime().Unix()
	}
	return nil
}

func scanDirsOnly(dirPath, root string, dirMtimes map[string]int64) error {
	info, err := os.Stat(dirPath)
	if err != nil {
		return err
	}
	dirMtimes[relDir(root, dirPath)] = info.ModTime().Unix()

	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			if err := scanDirsOnly(filepath.Join(dirPath, entry.Name()), root, dirMtimes); err != nil {
				return err
			}
		}
	}
	return nil
}

// computeTreeHash sorts paths, joins them with newlines, and truncates a
// SHA-256 digest to 64 bits.
func computeTreeHash(paths []string) uint64 {
	sorted := make([]string, len(paths))
	copy(sorted, paths)
	sort.Strings(sorted)

	concatenated := strings.Join(sorted, "\n")
	sum := sha256.Sum256([]byte(concatenated))
	return binary.LittleEndian.Uint64(sum[:8])
}
