package ui

import (
	"fmt"

	"github.com/mattn/go-runewidth"
)

// scrollText returns a scrolling window of text with smooth looping, the
// same windowing scheme as the teacher's text.go, but measured in terminal
// cell width via runewidth instead of rune count, so CJK and other
// double-width text doesn't overrun the panel.
func scrollText(text string, maxCols int, offset int) string {
	if runewidth.StringWidth(text) <= maxCols {
		return text
	}

	runes := append([]rune(text), []rune("  •  ")...)
	n := len(runes)
	offset = offset % n

	var result []rune
	width := 0
	for i := 0; width < maxCols && i < n*2; i++ {
		r := runes[(offset+i)%n]
		w := runewidth.RuneWidth(r)
		if width+w > maxCols {
			break
		}
		result = append(result, r)
		width += w
	}
	return string(result)
}

// formatTime converts milliseconds to MM:SS format.
func formatTime(ms int64) string {
	seconds := ms / 1000
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// truncateToWidth truncates text to at most maxCols terminal columns,
// breaking on a full rune rather than a byte so multi-byte runes are never
// split.
func truncateToWidth(text string, maxCols int) string {
	if runewidth.StringWidth(text) <= maxCols {
		return text
	}
	return runewidth.Truncate(text, maxCols, "")
}
