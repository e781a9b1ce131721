// Package ui implements the bubbletea renderer: an album-tile grid plus a
// now-playing panel, themed by the current track's dominant artwork color,
// reading every frame from a snapshotpub.Publisher rather than polling an
// external media controller the way the teacher's model.go did.
package ui

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ouroboros/internal/artworkwindow"
	"ouroboros/internal/config"
	"ouroboros/internal/eventbus"
	"ouroboros/internal/model"
	"ouroboros/internal/snapshotpub"
)

const kittyImageID = 42

// Model is the bubbletea model. Unlike the teacher's model, which owned a
// MediaController and polled it, this Model is a pure reader: it snapshots
// the publisher every tick and translates keys into eventbus events for the
// collectors to act on.
type Model struct {
	publisher *snapshotpub.Publisher
	bus       *eventbus.Bus
	artwork   *artworkwindow.Window
	cfg       *config.Loader

	width, height int
	snapshot      model.Snapshot

	color         string
	supportsKitty bool
	artworkShown  bool
	lastAlbumKey  string
	lastArtworkID string

	scrollOffset int
	scrollPause  int
	scrollTick   int

	showHelp bool
}

type tickMsg time.Time
type configReloadMsg struct{}

// New builds a Model. The grid is computed from cfg's album_grid_columns at
// render time (4 columns when cfg is nil).
func New(publisher *snapshotpub.Publisher, bus *eventbus.Bus, artwork *artworkwindow.Window, cfg *config.Loader) *Model {
	return &Model{
		publisher:     publisher,
		bus:           bus,
		artwork:       artwork,
		cfg:           cfg,
		color:         "2",
		supportsKitty: supportsKittyGraphics(),
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func watchReloadCmd(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return configReloadMsg{}
	}
}

func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tickCmd()}
	if m.cfg != nil {
		cmds = append(cmds, watchReloadCmd(m.cfg.ReloadNotifications()))
	}
	return tea.Batch(cmds...)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case configReloadMsg:
		return m, watchReloadCmd(m.cfg.ReloadNotifications())

	case tickMsg:
		m.snapshot = m.publisher.Current()
		m.advanceScroll()
		m.requestVisibleArtwork()
		return m, tickCmd()
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "p", " ":
		m.bus.Publish(eventbus.Event{Type: eventbus.PlayPause})
	case "n":
		m.bus.Publish(eventbus.Event{Type: eventbus.NextTrack})
	case "b":
		m.bus.Publish(eventbus.Event{Type: eventbus.PrevTrack})
	case "left":
		m.bus.Publish(eventbus.Event{Type: eventbus.SeekBackward, SeekSeconds: 5})
	case "right":
		m.bus.Publish(eventbus.Event{Type: eventbus.SeekForward, SeekSeconds: 5})
	case "+", "=":
		m.bus.Publish(eventbus.Event{Type: eventbus.VolumeUp, VolumeDelta: 5})
	case "-":
		m.bus.Publish(eventbus.Event{Type: eventbus.VolumeDown, VolumeDelta: 5})
	case "r":
		m.bus.Publish(eventbus.Event{Type: eventbus.RepeatToggle})
	case "a":
		m.artworkShown = !m.artworkShown
	case "?":
		m.showHelp = !m.showHelp
	}
	return m, nil
}

func (m *Model) advanceScroll() {
	m.scrollTick++
	if m.scrollPause > 0 {
		m.scrollPause--
		return
	}
	if m.scrollTick%3 == 0 {
		m.scrollOffset++
	}
}

func currentTrack(snap model.Snapshot) (model.Track, bool) {
	if snap.Library == nil || snap.Queue == nil {
		return model.Track{}, false
	}
	idx := snap.Queue.CurrentIndex
	if idx < 0 || idx >= len(snap.Queue.TrackIndices) {
		return model.Track{}, false
	}
	trackIdx := snap.Queue.TrackIndices[idx]
	if trackIdx < 0 || trackIdx >= len(snap.Library.Tracks) {
		return model.Track{}, false
	}
	return snap.Library.Tracks[trackIdx], true
}

// requestVisibleArtwork asks the artwork window to start decoding the
// now-playing track's album art at high priority, and the grid's visible
// tiles at lower priority.
func (m *Model) requestVisibleArtwork() {
	if m.artwork == nil || m.snapshot.Library == nil {
		return
	}
	if track, ok := currentTrack(m.snapshot); ok && track.Path != "" {
		m.artwork.Request(track.Path, 0, m.gridCols(), 1, true)
	}
	for i, t := range m.snapshot.Library.Tracks {
		if i > 48 { // bound the per-tick fan-out; grid scrolling re-requests as needed
			break
		}
		m.artwork.Request(t.Path, 10, m.gridCols(), 1, false)
	}
	m.artwork.FlushRequests()
}

func (m *Model) gridCols() int {
	if m.cfg == nil {
		return 4
	}
	cols := m.cfg.Get().UI.AlbumGridColumns
	if cols < 1 {
		return 4
	}
	return cols
}

func albumKey(t model.Track) string {
	return filepath.Dir(t.Path)
}

func (m *Model) View() string {
	if m.snapshot.Player.State == "" {
		return "loading…"
	}

	cfg := m.cfg.Get()
	color := lipgloss.Color(m.color)
	highlight := lipgloss.NewStyle().Foreground(color)

	panel := m.renderNowPlaying(cfg, highlight)
	grid := m.renderAlbumGrid(cfg)
	help := m.renderHelp(highlight)

	body := lipgloss.JoinVertical(lipgloss.Left, panel, "", grid, "", help)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Top, body)
}

func (m *Model) renderNowPlaying(cfg config.Config, highlight lipgloss.Style) string {
	labelStyle := lipgloss.NewStyle().Foreground(highlight.GetForeground()).Bold(true)
	white := lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	mutedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	borderStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(highlight.GetForeground()).
		Padding(1, 2).
		Width(45)

	track, ok := currentTrack(m.snapshot)
	if !ok {
		return borderStyle.Render(highlight.Render("Now Playing") + "\n\n" + mutedStyle.Render("Nothing playing"))
	}

	maxLen := 36
	if m.artworkShown && m.supportsKitty && cfg.UI.EnableAlbumArt {
		maxLen = 22
	}

	var body strings.Builder
	body.WriteString(highlight.Render("Now Playing") + "\n\n")
	addLine := func(label, value string) {
		if value != "" {
			body.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render(label), scrollText(value, maxLen, m.scrollOffset)))
		}
	}
	addLine("Title ", track.Title)
	addLine("Artist", track.Artist)
	addLine("Album ", track.Album)

	statusLabel := string(m.snapshot.Player.State)
	body.WriteString(labelStyle.Render("State ") + " " + statusLabel + "\n")

	if m.snapshot.Player.DurationMs > 0 {
		progress := float64(m.snapshot.Player.PositionMs) / float64(m.snapshot.Player.DurationMs)
		if progress > 1 {
			progress = 1
		}
		barWidth := 28
		filled := int(float64(barWidth) * progress)
		bar := highlight.Render(strings.Repeat("█", filled)) + white.Render(strings.Repeat("─", barWidth-filled))
		body.WriteString(fmt.Sprintf("\n%s %s/%s", bar,
			highlight.Render(formatTime(m.snapshot.Player.PositionMs)),
			highlight.Render(formatTime(m.snapshot.Player.DurationMs))))
	}

	content := body.String()
	if m.artworkShown && m.supportsKitty && cfg.UI.EnableAlbumArt {
		if decoded, ok := m.artwork.GetDecoded(track.Path, m.gridCols(), 1); ok {
			m.updateColorFromArtwork(decoded)
			encoded := encodeArtworkForKitty(decoded, kittyImageID, 13)
			return encoded + borderStyle.Render(content)
		}
	}
	if m.supportsKitty {
		return deleteKittyImage(kittyImageID) + borderStyle.Render(content)
	}
	return borderStyle.Render(content)
}

func (m *Model) updateColorFromArtwork(d artworkwindow.Decoded) {
	if d.Hash == "" || d.Hash == m.lastArtworkID {
		return
	}
	m.lastArtworkID = d.Hash
	if color, err := extractDominantColor(d); err == nil && color != "" {
		m.color = color
	}
}

func (m *Model) renderAlbumGrid(cfg config.Config) string {
	if m.snapshot.Library == nil || len(m.snapshot.Library.Tracks) == 0 {
		return lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Render("Library is empty.")
	}

	seen := make(map[string]model.Track)
	var order []string
	for _, t := range m.snapshot.Library.Tracks {
		key := albumKey(t)
		if _, ok := seen[key]; !ok {
			seen[key] = t
			order = append(order, key)
		}
	}

	cols := m.gridCols()
	tileStyle := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		Width(16).
		Height(3).
		Align(lipgloss.Center, lipgloss.Center)

	var rows []string
	var row []string
	for i, key := range order {
		t := seen[key]
		label := truncateToWidth(t.Album, 14)
		if label == "" {
			label = truncateToWidth(filepath.Base(key), 14)
		}
		row = append(row, tileStyle.Render(label))
		if len(row) == cols || i == len(order)-1 {
			rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
			row = nil
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (m *Model) renderHelp(highlight lipgloss.Style) string {
	if !m.showHelp {
		return lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Render("Press ? for help")
	}
	return lipgloss.JoinHorizontal(
		lipgloss.Center,
		"Play/Pause: "+highlight.Render("p"),
		"  Next: "+highlight.Render("n"),
		"  Previous: "+highlight.Render("b"),
		"  Seek: "+highlight.Render("←/→"),
		"  Volume: "+highlight.Render("+/-"),
		"  Repeat: "+highlight.Render("r"),
		"  Art: "+highlight.Render("a"),
		"  Quit: "+highlight.Render("q"),
		"  Hide: "+highlight.Render("?"),
	)
}
