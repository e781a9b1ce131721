// Package config loads, validates, and live-reloads the INI configuration
// file described in spec §6, following the teacher's viper+fsnotify
// pattern but retargeted at this project's section/key table.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// RepeatMode mirrors model.RepeatMode's string values without importing
// the model package, keeping config dependency-free of playback state.
type RepeatMode string

const (
	RepeatOff RepeatMode = "off"
	RepeatOne RepeatMode = "one"
	RepeatAll RepeatMode = "all"
)

// Config holds every recognized section of the config file.
type Config struct {
	Playback struct {
		DefaultVolume int        `mapstructure:"default_volume"`
		Shuffle       bool       `mapstructure:"shuffle"`
		Repeat        RepeatMode `mapstructure:"repeat"`
	} `mapstructure:"playback"`
	UI struct {
		EnableAlbumArt   bool `mapstructure:"enable_album_art"`
		AlbumGridColumns int  `mapstructure:"album_grid_columns"`
	} `mapstructure:"ui"`
	Paths struct {
		MusicDirectory string `mapstructure:"music_directory"`
	} `mapstructure:"paths"`
	Performance struct {
		ArtworkMemoryLimitMB int `mapstructure:"artwork_memory_limit_mb"`
	} `mapstructure:"performance"`
	Keybinds map[string]string `mapstructure:"keybinds"`
}

// SafeConfig wraps Config for concurrent read/write access: the UI goroutine
// reads it every frame while a watcher goroutine may swap it in after a
// live reload.
type SafeConfig struct {
	mu  sync.RWMutex
	cfg Config
}

// Get returns a copy of the current config.
func (sc *SafeConfig) Get() Config {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.cfg
}

// Set replaces the current config.
func (sc *SafeConfig) Set(cfg Config) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.cfg = cfg
}

type validationError struct {
	field   string
	message string
}

func (e validationError) Error() string {
	return fmt.Sprintf("%s: %s", e.field, e.message)
}

func defaultMusicDirectory() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, "Music")
}

// validate returns every field that fails spec §6's constraints. A field
// not mentioned here has no documented constraint beyond its type.
func validate(cfg *Config) []error {
	var errs []error

	if cfg.Playback.DefaultVolume < 0 || cfg.Playback.DefaultVolume > 100 {
		errs = append(errs, validationError{"playback.default_volume",
			fmt.Sprintf("must be 0..100 (got %d)", cfg.Playback.DefaultVolume)})
	}
	switch cfg.Playback.Repeat {
	case RepeatOff, RepeatOne, RepeatAll:
	default:
		errs = append(errs, validationError{"playback.repeat",
			fmt.Sprintf("must be 'off', 'one', or 'all' (got '%s')", cfg.Playback.Repeat)})
	}

	if cfg.UI.AlbumGridColumns < 1 {
		errs = append(errs, validationError{"ui.album_grid_columns",
			fmt.Sprintf("must be >= 1 (got %d)", cfg.UI.AlbumGridColumns)})
	}

	if cfg.Paths.MusicDirectory == "" {
		errs = append(errs, validationError{"paths.music_directory", "must not be empty"})
	}

	if cfg.Performance.ArtworkMemoryLimitMB <= 0 {
		errs = append(errs, validationError{"performance.artwork_memory_limit_mb",
			fmt.Sprintf("must be > 0 (got %d)", cfg.Performance.ArtworkMemoryLimitMB)})
	}

	return errs
}

// applyDefaults resets any field named in errs back to its spec default.
func applyDefaults(cfg *Config, errs []error) {
	for _, err := range errs {
		ve, ok := err.(validationError)
		if !ok {
			continue
		}
		switch ve.field {
		case "playback.default_volume":
			cfg.Playback.DefaultVolume = 50
		case "playback.repeat":
			cfg.Playback.Repeat = RepeatAll
		case "ui.album_grid_columns":
			cfg.UI.AlbumGridColumns = 4
		case "paths.music_directory":
			cfg.Paths.MusicDirectory = defaultMusicDirectory()
		case "performance.artwork_memory_limit_mb":
			cfg.Performance.ArtworkMemoryLimitMB = 3072
		}
	}
}

func printWarnings(errs []error) {
	if len(errs) == 0 {
		return
	}
	fmt.Fprintf(os.Stderr, "\nconfig: validation warnings:\n")
	for _, err := range errs {
		fmt.Fprintf(os.Stderr, "  - %s\n", err.Error())
	}
	fmt.Fprintf(os.Stderr, "  using defaults for invalid settings\n\n")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("playback.default_volume", 50)
	v.SetDefault("playback.shuffle", false)
	v.SetDefault("playback.repeat", string(RepeatAll))
	v.SetDefault("ui.enable_album_art", true)
	v.SetDefault("ui.album_grid_columns", 4)
	v.SetDefault("paths.music_directory", defaultMusicDirectory())
	v.SetDefault("performance.artwork_memory_limit_mb", 3072)
}

// Loader owns the viper instance backing a SafeConfig and its fsnotify
// watch, mirroring the teacher's package-level initConfig/watchConfigCmd
// split but as an instantiable type instead of globals.
type Loader struct {
	v        *viper.Viper
	safe     *SafeConfig
	reloadCh chan struct{}
}

// NewLoader reads the config file under configDir (XDG-style; the caller
// resolves XDG_CONFIG_HOME/~/.config/ouroboros before calling this) and
// returns a Loader with the validated config already set.
func NewLoader(configDir string) (*Loader, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigName("config")
	v.SetConfigType("ini")
	if configDir != "" {
		v.AddConfigPath(configDir)
	}

	v.SetEnvPrefix("OUROBOROS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "config: error reading config file: %v\n", err)
		}
	}

	l := &Loader{v: v, safe: &SafeConfig{}, reloadCh: make(chan struct{}, 1)}

	cfg, err := l.unmarshalValidated()
	if err != nil {
		return nil, err
	}
	l.safe.Set(cfg)
	return l, nil
}

func (l *Loader) unmarshalValidated() (Config, error) {
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse failed: %w", err)
	}
	if errs := validate(&cfg); len(errs) > 0 {
		printWarnings(errs)
		applyDefaults(&cfg, errs)
	}
	return cfg, nil
}

// Get returns the current validated config.
func (l *Loader) Get() Config {
	return l.safe.Get()
}

// ReloadNotifications returns a channel that receives a value each time a
// live reload has applied a new, valid config.
func (l *Loader) ReloadNotifications() <-chan struct{} {
	return l.reloadCh
}

// Watch starts watching the config file for changes, swapping in a newly
// valid config and notifying ReloadNotifications. Invalid edits (bad
// parse, failed validation) are silently ignored, preserving the config
// already running, in keeping with the source's "never corrupt the TUI
// with an unsolicited error print" discipline.
func (l *Loader) Watch() {
	l.v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := l.unmarshalValidatedSilent()
		if err != nil {
			return
		}
		l.safe.Set(cfg)
		select {
		case l.reloadCh <- struct{}{}:
		default:
		}
	})
	l.v.WatchConfig()
}

func (l *Loader) unmarshalValidatedSilent() (Config, error) {
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	if errs := validate(&cfg); len(errs) > 0 {
		return Config{}, fmt.Errorf("%d validation errors", len(errs))
	}
	return cfg, nil
}
