// Package library implements the multi-tier library cache: a cumulative,
// directory-agnostic set of known tracks backed by a monolithic on-disk
// cache (library.bin). ValidateTier0 checks the cache against a fresh walk
// (every on-disk audio file cached, every cached file under a configured
// directory still present) before Scan reparses only new or modified
// files. The walk's tree hash and directory mtimes are recorded, but no
// validation step compares them with earlier values; FindDirtyDirectories
// compares two directory-mtime maps for a caller that holds both.
package library

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"ouroboros/internal/artwork"
	"ouroboros/internal/model"
	"ouroboros/internal/scanner"
	"ouroboros/internal/tagparse"
)

// ValidationResult classifies the outcome of a tier-0 cache check.
type ValidationResult int

const (
	// Valid means every audio file found on disk is already represented
	// in the cache and none of the cached files has disappeared.
	Valid ValidationResult = iota
	// CountMismatch means at least one on-disk file isn't in the cache.
	CountMismatch
	// MissingFiles means at least one cached file no longer exists.
	MissingFiles
)

// ProgressFunc reports scan progress as (scanned, total).
type ProgressFunc func(scanned, total int)

// Library is the in-memory, cumulative track cache plus its on-disk
// persistence and tier 0/1/2 validation logic. Not safe for concurrent use
// from multiple goroutines except through the exported methods, which
// serialize on an internal mutex.
type Library struct {
	mu         sync.Mutex
	musicDirs  []string
	tracks     map[string]model.Track // path -> track, cumulative across all directories ever scanned
	dirMtimes  map[string]int64
	treeHash   uint64
	scanning   bool
	artCache   *artwork.Cache
	cachedScan *scanner.Result // tier-0's scan reused by the following full Scan, avoiding a second walk
}

// New returns an empty Library backed by artCache for artwork extraction
// during scans.
func New(artCache *artwork.Cache) *Library {
	return &Library{
		tracks:   make(map[string]model.Track),
		artCache: artCache,
	}
}

// SetMusicDirectories configures which directories this Library scans and
// reports tracks from. Non-existent directories are skipped. Directories
// that are strict subdirectories of another configured directory are
// dropped, since the parent's scan already covers them.
func (l *Library) SetMusicDirectories(dirs []string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	type normDir struct{ s string }
	var valid []normDir
	for _, d := range dirs {
		if _, err := os.Stat(d); err != nil {
			continue
		}
		clean := filepath.Clean(d)
		clean = strings.TrimRight(clean, string(filepath.Separator))
		if clean == "" {
			clean = string(filepath.Separator)
		}
		valid = append(valid, normDir{clean})
	}

	sort.Slice(valid, func(i, j int) bool { return len(valid[i].s) < len(valid[j].s) })

	var kept []string
	for _, d := range valid {
		covered := false
		for _, parent := range kept {
			if len(d.s) > len(parent) && strings.HasPrefix(d.s, parent) && d.s[len(parent)] == filepath.Separator {
				covered = true
				break
			}
		}
		if !covered {
			kept = append(kept, d.s)
		}
	}
	l.musicDirs = kept
}

// LoadCache loads library.bin from path, populating the cumulative track
// map. An absent file or unsupported version is not an error — it simply
// leaves the Library empty, forcing a full scan.
func (l *Library) LoadCache(path string) error {
	tracks, err := loadFromCache(path)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if tracks == nil {
		tracks = make(map[string]model.Track)
	}
	l.tracks = tracks
	return nil
}

// SaveCache persists every known track, across all directories ever
// scanned, to path.
func (l *Library) SaveCache(path string) error {
	l.mu.Lock()
	tracksCopy := make(map[string]model.Track, len(l.tracks))
	for k, v := range l.tracks {
		tracksCopy[k] = v
	}
	l.mu.Unlock()
	return saveToCache(path, tracksCopy)
}

func (l *Library) scanAllDirs() scanner.Result {
	var merged scanner.Result
	merged.FileMtimes = make(map[string]int64)
	merged.DirMtimes = make(map[string]int64)
	for _, dir := range l.musicDirs {
		res, err := scanner.Scan(dir)
		if err != nil {
			continue
		}
		merged.AudioFiles = append(merged.AudioFiles, res.AudioFiles...)
		for k, v := range res.DirMtimes {
			merged.DirMtimes[k] = v
		}
		for k, v := range res.FileMtimes {
			merged.FileMtimes[k] = v
		}
		merged.TreeHash ^= res.TreeHash // XOR-combine per-directory hashes
	}
	return merged
}

// ValidateTier0 performs the cheapest cache check: scan every configured
// directory and confirm every on-disk audio file is already cached and
// every cached file still exists. The scan result is retained so a
// following Scan call can reuse it instead of walking the filesystem
// twice.
func (l *Library) ValidateTier0() ValidationResult {
	res := l.scanAllDirs()

	l.mu.Lock()
	l.treeHash = res.TreeHash
	l.dirMtimes = res.DirMtimes
	defer func() {
		l.cachedScan = &res
		l.mu.Unlock()
	}()

	for _, path := range res.AudioFiles {
		if _, ok := l.tracks[path]; !ok {
			return CountMismatch
		}
	}
	for path := range l.tracks {
		walked := false
		for _, dir := range l.musicDirs {
			if strings.HasPrefix(path, dir) {
				walked = true
				break
			}
		}
		if !walked {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			return MissingFiles
		}
	}
	return Valid
}

// FindDirtyDirectories compares two directory->mtime maps (tier 1) and
// returns every directory that is new, modified, or deleted.
func FindDirtyDirectories(current, cached map[string]int64) []string {
	var dirty []string
	for dir, mtime := range current {
		if cmtime, ok := cached[dir]; !ok || cmtime < mtime {
			dirty = append(dirty, dir)
		}
	}
	for dir := range cached {
		if _, ok := current[dir]; !ok {
			dirty = append(dirty, dir)
		}
	}
	return dirty
}

// DirMtimes returns the directory mtimes observed by the most recent scan.
func (l *Library) DirMtimes() map[string]int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]int64, len(l.dirMtimes))
	for k, v := range l.dirMtimes {
		out[k] = v
	}
	return out
}

func parseAndStore(path string, artCache *artwork.Cache, mtime int64) model.Track {
	track, art := tagparse.Parse(path)
	track.FileMtime = mtime
	if fi, err := os.Stat(path); err == nil {
		track.FileInode = inodeOf(fi)
	}
	if art != nil {
		track.ArtworkHash = art.Hash
		artCache.Store(art.Hash, art.Data, art.MimeType, filepath.Dir(path))
	}
	return track
}

// Scan performs a full scan: reuses the result of a prior ValidateTier0
// call if one is pending, otherwise walks every configured directory.
// Files already known with an unchanged mtime keep their cached metadata;
// everything else is parsed in parallel across one worker per CPU
// (runtime.NumCPU) pulling from a shared atomic work index, matching the
// tier-2 parallel-parse optimization. Tracks are merged cumulatively; only
// tracks under a configured directory whose files no longer exist are
// pruned.
func (l *Library) Scan(progress ProgressFunc) {
	l.mu.Lock()
	l.scanning = true
	var res scanner.Result
	if l.cachedScan != nil {
		res = *l.cachedScan
		l.cachedScan = nil
	} else {
		l.mu.Unlock()
		res = l.scanAllDirs()
		l.mu.Lock()
	}
	l.dirMtimes = res.DirMtimes
	l.treeHash = res.TreeHash

	totalFiles := len(res.AudioFiles)
	var filesToParse []string
	newTracks := make(map[string]model.Track, totalFiles)

	for _, path := range res.AudioFiles {
		if existing, ok := l.tracks[path]; ok {
			if mtime, ok := res.FileMtimes[path]; ok && existing.FileMtime > 0 && mtime <= existing.FileMtime {
				newTracks[path] = existing
				continue
			}
		}
		filesToParse = append(filesToParse, path)
	}
	l.mu.Unlock()

	if len(filesToParse) > 0 {
		parsed := parallelParse(filesToParse, res.FileMtimes, l.artCache, func(done int) {
			if progress != nil && done%100 == 0 {
				progress(len(newTracks)+done, totalFiles)
			}
		})
		for path, t := range parsed {
			newTracks[path] = t
		}
	}

	if progress != nil && totalFiles > 0 {
		progress(totalFiles, totalFiles)
	}

	l.mu.Lock()
	for path, t := range newTracks {
		l.tracks[path] = t
	}
	for path := range l.tracks {
		walked := false
		for _, dir := range l.musicDirs {
			if strings.HasPrefix(path, dir) {
				walked = true
				break
			}
		}
		if !walked {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			delete(l.tracks, path)
		}
	}
	l.scanning = false
	l.mu.Unlock()
}

// ScanForChanges performs a tier-2 partial rescan: removes deletedFiles
// from the cache and reparses changedFiles in parallel, leaving every
// other cached track untouched.
func (l *Library) ScanForChanges(changedFiles, deletedFiles []string, progress ProgressFunc) {
	l.mu.Lock()
	for _, path := range deletedFiles {
		delete(l.tracks, path)
	}
	l.mu.Unlock()

	if len(changedFiles) == 0 {
		if progress != nil {
			progress(len(deletedFiles), len(deletedFiles))
		}
		return
	}

	mtimes := make(map[string]int64, len(changedFiles))
	for _, path := range changedFiles {
		if fi, err := os.Stat(path); err == nil {
			mtimes[path] = fi.ModTime().Unix()
		}
	}

	total := len(changedFiles) + len(deletedFiles)
	parsed := parallelParse(changedFiles, mtimes, l.artCache, func(done int) {
		if progress != nil && done%10 == 0 {
			progress(len(deletedFiles)+done, total)
		}
	})

	l.mu.Lock()
	for path, t := range parsed {
		l.tracks[path] = t
	}
	l.mu.Unlock()
}

// parallelParse parses files across a fixed worker pool, each worker
// pulling the next index from a shared atomic counter — never buffering
// work items in a channel, matching the source's atomic<size_t> work_index
// pattern exactly.
func parallelParse(files []string, mtimes map[string]int64, artCache *artwork.Cache, onProgress func(done int)) map[string]model.Track {
	numWorkers := numCPUWorkers()
	results := make([]model.Track, len(files))

	var workIndex atomic.Int64
	var completed atomic.Int64
	var wg sync.WaitGroup
	wg.Add(numWorkers)
	for w := 0; w < numWorkers; w++ {
		go func() {
			defer wg.Done()
			for {
				idx := int(workIndex.Add(1) - 1)
				if idx >= len(files) {
					return
				}
				path := files[idx]
				results[idx] = parseAndStore(path, artCache, mtimes[path])
				done := int(completed.Add(1))
				if onProgress != nil {
					onProgress(done)
				}
			}
		}()
	}
	wg.Wait()

	out := make(map[string]model.Track, len(files))
	for i, path := range files {
		out[path] = results[i]
	}
	return out
}

// AllTracks returns every track belonging to a currently configured
// directory, in the canonical UI order: a stable sort on
// (artist, date, track_number). The underlying cache is a path->Track map,
// so the pre-sort order carries no meaning; Path is used to break ties
// between otherwise-equal keys so repeated calls return an identical order
// instead of one that drifts with Go's randomized map iteration. The
// underlying cache may hold tracks from directories that were since
// unconfigured (e.g. a removed source); those are filtered out here rather
// than at scan time, so re-adding a directory doesn't require a rescan.
func (l *Library) AllTracks() []model.Track {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]model.Track, 0, len(l.tracks))
	for path, t := range l.tracks {
		for _, dir := range l.musicDirs {
			if strings.HasPrefix(path, dir) {
				out = append(out, t)
				break
			}
		}
	}
	sortTracks(out)
	return out
}

// sortTracks applies the canonical (artist, date, track_number) stable
// sort, breaking ties on Path for a deterministic result independent of
// the caller's input order.
func sortTracks(tracks []model.Track) {
	sort.SliceStable(tracks, func(i, j int) bool {
		a, b := tracks[i], tracks[j]
		if a.Artist != b.Artist {
			return a.Artist < b.Artist
		}
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.TrackNumber != b.TrackNumber {
			return a.TrackNumber < b.TrackNumber
		}
		return a.Path < b.Path
	})
}

// TrackByPath returns the cached track at path, if any.
func (l *Library) TrackByPath(path string) (model.Track, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.tracks[path]
	return t, ok
}

// TrackCount returns the number of tracks in the cumulative cache
// (including tracks from currently unconfigured directories).
func (l *Library) TrackCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.tracks)
}

// IsScanning reports whether a Scan is currently in progress.
func (l *Library) IsScanning() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.scanning
}
