// Command ouroboros is the process entrypoint: it wires the snapshot
// publisher, library/artwork caches, the artwork decode pipeline, the event
// bus, both collectors, and the bubbletea renderer, then runs until the
// user quits or the process receives a shutdown signal.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"ouroboros/internal/artwork"
	"ouroboros/internal/artworkwindow"
	"ouroboros/internal/collectors"
	"ouroboros/internal/config"
	"ouroboros/internal/decoder"
	"ouroboros/internal/eventbus"
	"ouroboros/internal/library"
	"ouroboros/internal/logging"
	"ouroboros/internal/model"
	"ouroboros/internal/pcm"
	"ouroboros/internal/snapshotpub"
	"ouroboros/internal/ui"
)

func main() {
	os.Exit(run())
}

func run() int {
	log := logging.Default()

	musicDirFlag := flag.String("music-dir", "", "override the configured music directory")
	flag.Parse()

	configDir, err := userConfigDir()
	if err != nil {
		log.Warn("resolving config directory: %v", err)
	}

	loader, err := config.NewLoader(configDir)
	if err != nil {
		log.Error("loading config: %v", err)
		return 1
	}
	loader.Watch()

	cfg := loader.Get()
	musicDir := cfg.Paths.MusicDirectory
	if *musicDirFlag != "" {
		musicDir = *musicDirFlag
	}

	cacheDir, err := userCacheDir()
	if err != nil {
		log.Warn("resolving cache directory: %v", err)
	}
	libraryCachePath := filepath.Join(cacheDir, "library.bin")
	artworkCachePath := filepath.Join(cacheDir, "artwork.cache")

	artCache := artwork.New()
	if err := artCache.Load(artworkCachePath); err != nil {
		log.Warn("artwork cache: %v (starting fresh)", err)
	}

	lib := library.New(artCache)
	lib.SetMusicDirectories([]string{musicDir})
	if err := lib.LoadCache(libraryCachePath); err != nil {
		log.Warn("library cache: %v (full rescan scheduled)", err)
	}

	publisher := snapshotpub.New()
	bus := eventbus.New()

	resolver := artworkwindow.NewResolver(artCache, filepath.Dir)
	memLimitBytes := int64(cfg.Performance.ArtworkMemoryLimitMB) * 1024 * 1024
	window := artworkwindow.New(resolver, memLimitBytes, 8, 16)
	defer window.Close()

	libCollector := collectors.NewLibraryCollector(publisher, lib, bus)
	playCollector := collectors.NewPlaybackCollector(publisher, lib, bus, decoderNullFactory, pcmNullFactory)
	playCollector.SetShuffle(cfg.Playback.Shuffle)
	playCollector.SetRepeatMode(repeatModeFromConfig(cfg.Playback.Repeat))
	playCollector.SetVolume(float64(cfg.Playback.DefaultVolume) / 100)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loadedInitialQueue := false
	libraryLoadedID := bus.Subscribe(eventbus.LibraryUpdated, func(eventbus.Event) {
		if loadedInitialQueue {
			return
		}
		tracks := lib.AllTracks()
		if len(tracks) == 0 {
			return
		}
		loadedInitialQueue = true
		indices := make([]int, len(tracks))
		for i := range tracks {
			indices[i] = i
		}
		playCollector.LoadQueue(indices, 0)
	})
	defer bus.Unsubscribe(libraryLoadedID)

	go libCollector.Run(ctx)
	go playCollector.Run(ctx)

	model := ui.New(publisher, bus, window, loader)
	program := tea.NewProgram(model, tea.WithAltScreen())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		program.Quit()
	}()

	if _, err := program.Run(); err != nil {
		log.Error("%v", err)
		cancel()
		return 1
	}

	cancel()
	if err := lib.SaveCache(libraryCachePath); err != nil {
		log.Warn("saving library cache: %v", err)
	}
	if err := artCache.Save(artworkCachePath); err != nil {
		log.Warn("saving artwork cache: %v", err)
	}
	return 0
}

func repeatModeFromConfig(mode config.RepeatMode) model.RepeatMode {
	switch mode {
	case config.RepeatOne:
		return model.RepeatOne
	case config.RepeatOff:
		return model.RepeatOff
	default:
		return model.RepeatAll
	}
}

// decoderNullFactory and pcmNullFactory stand in for a real codec/ALSA-or-
// CoreAudio backend, which is the out-of-scope narrow external-collaborator
// contract the Decoder/Sink interfaces name; wiring a real backend here is
// a drop-in replacement once one exists.
func decoderNullFactory() (decoder.Decoder, error) {
	return decoder.NewNull(), nil
}

func pcmNullFactory() (pcm.Sink, error) {
	return pcm.NewNull(), nil
}

func userConfigDir() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "ouroboros"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving config directory: %w", err)
	}
	return filepath.Join(home, ".config", "ouroboros"), nil
}

func userCacheDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("resolving cache directory: %w", err)
	}
	dir := filepath.Join(base, "ouroboros")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating cache directory: %w", err)
	}
	return dir, nil
}
