package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestSafeConfigConcurrency(t *testing.T) {
	sc := &SafeConfig{}

	initial := Config{}
	initial.Playback.DefaultVolume = 50
	initial.Playback.Repeat = RepeatAll
	sc.Set(initial)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				cfg := Config{}
				cfg.Playback.DefaultVolume = id
				cfg.UI.AlbumGridColumns = 4
				sc.Set(cfg)
			}
		}(i)
	}
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				cfg := sc.Get()
				_ = cfg.Playback.DefaultVolume
				_ = cfg.UI.AlbumGridColumns
			}
		}()
	}
	wg.Wait()
}

func TestSafeConfigGetReturnsCopy(t *testing.T) {
	sc := &SafeConfig{}
	cfg1 := Config{}
	cfg1.Playback.DefaultVolume = 50
	sc.Set(cfg1)

	retrieved1 := sc.Get()
	retrieved1.Playback.DefaultVolume = 90

	retrieved2 := sc.Get()
	if retrieved2.Playback.DefaultVolume != 50 {
		t.Errorf("expected default_volume 50, got %d", retrieved2.Playback.DefaultVolume)
	}
}

func TestValidateRejectsOutOfRangeVolume(t *testing.T) {
	cfg := Config{}
	cfg.Playback.DefaultVolume = 150
	cfg.Playback.Repeat = RepeatAll
	cfg.UI.AlbumGridColumns = 4
	cfg.Paths.MusicDirectory = "/music"
	cfg.Performance.ArtworkMemoryLimitMB = 3072

	errs := validate(&cfg)
	if len(errs) != 1 {
		t.Fatalf("expected exactly 1 validation error, got %d: %v", len(errs), errs)
	}
}

func TestValidateRejectsUnknownRepeatMode(t *testing.T) {
	cfg := Config{}
	cfg.Playback.DefaultVolume = 50
	cfg.Playback.Repeat = "bogus"
	cfg.UI.AlbumGridColumns = 4
	cfg.Paths.MusicDirectory = "/music"
	cfg.Performance.ArtworkMemoryLimitMB = 3072

	errs := validate(&cfg)
	if len(errs) != 1 {
		t.Fatalf("expected exactly 1 validation error, got %d: %v", len(errs), errs)
	}
}

func TestApplyDefaultsFixesInvalidFields(t *testing.T) {
	cfg := Config{}
	cfg.Playback.DefaultVolume = -1
	cfg.Playback.Repeat = "nope"
	cfg.UI.AlbumGridColumns = 0
	cfg.Performance.ArtworkMemoryLimitMB = -5

	errs := validate(&cfg)
	applyDefaults(&cfg, errs)

	if cfg.Playback.DefaultVolume != 50 {
		t.Errorf("expected default_volume reset to 50, got %d", cfg.Playback.DefaultVolume)
	}
	if cfg.Playback.Repeat != RepeatAll {
		t.Errorf("expected repeat reset to all, got %s", cfg.Playback.Repeat)
	}
	if cfg.UI.AlbumGridColumns != 4 {
		t.Errorf("expected album_grid_columns reset to 4, got %d", cfg.UI.AlbumGridColumns)
	}
	if cfg.Performance.ArtworkMemoryLimitMB != 3072 {
		t.Errorf("expected artwork_memory_limit_mb reset to 3072, got %d", cfg.Performance.ArtworkMemoryLimitMB)
	}
}

func TestNewLoaderAppliesDefaultsWithNoConfigFile(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLoader(dir)
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}
	cfg := l.Get()
	if cfg.Playback.DefaultVolume != 50 {
		t.Errorf("expected default volume 50, got %d", cfg.Playback.DefaultVolume)
	}
	if cfg.Performance.ArtworkMemoryLimitMB != 3072 {
		t.Errorf("expected artwork memory limit 3072, got %d", cfg.Performance.ArtworkMemoryLimitMB)
	}
}

func TestNewLoaderReadsConfigFile(t *testing.T) {
	dir := t.TempDir()
	contents := "[playback]\ndefault_volume = 80\nrepeat = one\n\n[ui]\nalbum_grid_columns = 6\n"
	if err := os.WriteFile(filepath.Join(dir, "config.ini"), []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	l, err := NewLoader(dir)
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}
	cfg := l.Get()
	if cfg.Playback.DefaultVolume != 80 {
		t.Errorf("expected default_volume 80, got %d", cfg.Playback.DefaultVolume)
	}
	if cfg.Playback.Repeat != RepeatOne {
		t.Errorf("expected repeat 'one', got %s", cfg.Playback.Repeat)
	}
	if cfg.UI.AlbumGridColumns != 6 {
		t.Errorf("expected album_grid_columns 6, got %d", cfg.UI.AlbumGridColumns)
	}
}
