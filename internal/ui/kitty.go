package ui

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"os"
	"strings"

	"github.com/EdlinOrg/prominentcolor"

	"ouroboros/internal/artworkwindow"
)

// supportsKittyGraphics detects the Kitty inline-image protocol the same
// way the teacher does: by known TERM/TERM_PROGRAM values. OUROBOROS_
// IMAGE_PROTOCOL, when set, overrides detection entirely.
func supportsKittyGraphics() bool {
	switch strings.ToLower(os.Getenv("OUROBOROS_IMAGE_PROTOCOL")) {
	case "kitty":
		return true
	case "sixel", "iterm2", "none":
		return false
	}

	term := os.Getenv("TERM")
	termProgram := os.Getenv("TERM_PROGRAM")
	if strings.Contains(term, "kitty") || strings.Contains(term, "konsole") {
		return true
	}
	if termProgram == "ghostty" || termProgram == "WezTerm" {
		return true
	}
	return false
}

const chunkSize = 4096

// encodeArtworkForKitty turns a decoded artwork tile into a Kitty graphics
// escape sequence placed at imageID. FormatPNG pixels are already PNG bytes
// (f=100); FormatRGB pixels are sent raw (f=24) with explicit s=/v=
// dimensions, avoiding a redundant PNG encode round-trip for the common
// unletterboxed case.
func encodeArtworkForKitty(d artworkwindow.Decoded, imageID int, widthCols int) string {
	if len(d.Pixels) == 0 {
		return ""
	}
	encoded := base64.StdEncoding.EncodeToString(d.Pixels)

	var format string
	switch d.Format {
	case artworkwindow.FormatPNG:
		format = fmt.Sprintf("f=100,i=%d,c=%d,C=1", imageID, widthCols)
	default:
		format = fmt.Sprintf("f=24,s=%d,v=%d,i=%d,c=%d,C=1", d.Width, d.Height, imageID, widthCols)
	}

	var result strings.Builder
	result.WriteString(fmt.Sprintf("\033_Ga=d,d=I,i=%d\033\\", imageID))

	if len(encoded) <= chunkSize {
		result.WriteString(fmt.Sprintf("\033_Ga=T,t=d,%s;%s\033\\", format, encoded))
		return result.String()
	}

	for i := 0; i < len(encoded); i += chunkSize {
		end := i + chunkSize
		if end > len(encoded) {
			end = len(encoded)
		}
		chunk := encoded[i:end]
		switch {
		case i == 0:
			result.WriteString(fmt.Sprintf("\033_Ga=T,t=d,%s,m=1;%s\033\\", format, chunk))
		case end == len(encoded):
			result.WriteString(fmt.Sprintf("\033_Gm=0;%s\033\\", chunk))
		default:
			result.WriteString(fmt.Sprintf("\033_Gm=1;%s\033\\", chunk))
		}
	}
	return result.String()
}

// deleteKittyImage returns the escape sequence that removes imageID from
// the terminal.
func deleteKittyImage(imageID int) string {
	return fmt.Sprintf("\033_Ga=d,d=I,i=%d\033\\", imageID)
}

// extractDominantColor picks a vibrant, readable accent color from an
// already-decoded artwork tile, falling back to prominentcolor's k-means
// when no sampled pixel clears the lightness/saturation bar. Ported from
// the teacher's artwork.go, adapted to sample the artwork window's own
// decoded pixel buffer (RGB or PNG) instead of re-decoding raw file bytes.
func extractDominantColor(d artworkwindow.Decoded) (string, error) {
	var img image.Image
	switch d.Format {
	case artworkwindow.FormatPNG:
		decoded, _, err := image.Decode(bytes.NewReader(d.Pixels))
		if err != nil {
			return "", fmt.Errorf("decode artwork: %w", err)
		}
		img = decoded
	default:
		img = &tightRGBImage{pixels: d.Pixels, width: d.Width, height: d.Height}
	}

	bounds := img.Bounds()
	colorMap := make(map[uint32]int)
	const sampleRate = 5

	for y := bounds.Min.Y; y < bounds.Max.Y; y += sampleRate {
		for x := bounds.Min.X; x < bounds.Max.X; x += sampleRate {
			r, g, b, a := img.At(x, y).RGBA()
			if a < 32768 {
				continue
			}
			r8, g8, b8 := uint8(r>>8), uint8(g>>8), uint8(b>>8)
			rgb := (uint32(r8) << 16) | (uint32(g8) << 8) | uint32(b8)
			colorMap[rgb]++
		}
	}

	type candidate struct {
		rgb   uint32
		score float64
	}
	var candidates []candidate

	for rgb, count := range colorMap {
		r, g, b := uint8(rgb>>16), uint8(rgb>>8), uint8(rgb)
		lightness, saturation := lightnessSaturation(r, g, b)
		if lightness < 0.3 || lightness > 0.85 || saturation < 0.25 {
			continue
		}
		lightnessScore := lightness
		if lightness > 0.7 {
			lightnessScore = 0.7 - (lightness - 0.7)
		}
		score := (saturation * 2.5) + (lightnessScore * 1.5) + (float64(count) / 1000.0)
		candidates = append(candidates, candidate{rgb: rgb, score: score})
	}

	if len(candidates) == 0 {
		colors, err := prominentcolor.Kmeans(img)
		if err != nil || len(colors) == 0 {
			return "", fmt.Errorf("no suitable accent color found")
		}
		c := colors[0]
		return fmt.Sprintf("#%02x%02x%02x", c.Color.R, c.Color.G, c.Color.B), nil
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.score > best.score {
			best = c
		}
	}
	r, g, b := uint8(best.rgb>>16), uint8(best.rgb>>8), uint8(best.rgb)
	return fmt.Sprintf("#%02x%02x%02x", r, g, b), nil
}

// tightRGBImage adapts a tightly-packed 3-byte-per-pixel RGB buffer (an
// artworkwindow.Decoded with Format == FormatRGB) to image.Image, so it can
// be sampled or handed to prominentcolor without a PNG round-trip.
type tightRGBImage struct {
	pixels        []byte
	width, height int
}

func (t *tightRGBImage) ColorModel() color.Model { return color.RGBAModel }
func (t *tightRGBImage) Bounds() image.Rectangle {
	return image.Rect(0, 0, t.width, t.height)
}
func (t *tightRGBImage) At(x, y int) color.Color {
	if x < 0 || y < 0 || x >= t.width || y >= t.height {
		return color.RGBA{}
	}
	i := (y*t.width + x) * 3
	if i+2 >= len(t.pixels) {
		return color.RGBA{}
	}
	return color.RGBA{R: t.pixels[i], G: t.pixels[i+1], B: t.pixels[i+2], A: 255}
}

func lightnessSaturation(r, g, b uint8) (lightness, saturation float64) {
	rf, gf, bf := float64(r)/255, float64(g)/255, float64(b)/255
	max, min := rf, rf
	for _, v := range []float64{gf, bf} {
		if v > max {
			max = v
		}
		if v < min {
			min = v
		}
	}
	lightness = (max + min) / 2
	if max != min {
		if lightness > 0.5 {
			saturation = (max - min) / (2 - max - min)
		} else {
			saturation = (max - min) / (max + min)
		}
	}
	return lightness, saturation
}
