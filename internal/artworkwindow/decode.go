package artworkwindow

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"

	"github.com/nfnt/resize"
)

// letterboxThreshold is the maximum fractional deviation from a 1:1 aspect
// ratio (relative to the target cell grid) before letterboxing kicks in,
// matching the source's aspect_ratio < 0.95 || > 1.05 test.
const letterboxThreshold = 0.05

// decodeAndResize decodes raw image bytes and resamples them to fit a
// targetW x targetH terminal cell region using the Mitchell-Netravali
// filter. If the source aspect ratio deviates from the target by more than
// letterboxThreshold, the image is scaled to fit within the target
// (preserving aspect ratio), centered, and padded with transparent pixels,
// emitted as PNG so the transparency survives; otherwise it is resized
// directly to the exact target dimensions and emitted as raw RGB.
func decodeAndResize(data []byte, targetW, targetH int) (Decoded, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Decoded{}, fmt.Errorf("artworkwindow: decode: %w", err)
	}
	if targetW <= 0 || targetH <= 0 {
		return Decoded{}, fmt.Errorf("artworkwindow: invalid target dimensions %dx%d", targetW, targetH)
	}

	bounds := img.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()
	if srcW == 0 || srcH == 0 {
		return Decoded{}, fmt.Errorf("artworkwindow: zero-sized source image")
	}

	aspectRatio := (float64(srcW) / float64(srcH)) / (float64(targetW) / float64(targetH))
	needsLetterbox := aspectRatio < 1-letterboxThreshold || aspectRatio > 1+letterboxThreshold

	if needsLetterbox {
		return letterbox(img, srcW, srcH, targetW, targetH)
	}

	resized := resize.Resize(uint(targetW), uint(targetH), img, resize.MitchellNetravali)
	rgb := toTightRGB(resized, targetW, targetH)
	return Decoded{Pixels: rgb, Width: targetW, Height: targetH, Format: FormatRGB}, nil
}

func letterbox(img image.Image, srcW, srcH, targetW, targetH int) (Decoded, error) {
	scale := float64(targetW) / float64(srcW)
	if alt := float64(targetH) / float64(srcH); alt < scale {
		scale = alt
	}
	scaledW := int(float64(srcW) * scale)
	scaledH := int(float64(srcH) * scale)
	if scaledW < 1 {
		scaledW = 1
	}
	if scaledH < 1 {
		scaledH = 1
	}

	scaled := resize.Resize(uint(scaledW), uint(scaledH), img, resize.MitchellNetravali)

	canvas := image.NewNRGBA(image.Rect(0, 0, targetW, targetH))
	offsetX := (targetW - scaledW) / 2
	offsetY := (targetH - scaledH) / 2
	for y := 0; y < scaledH; y++ {
		for x := 0; x < scaledW; x++ {
			canvas.Set(offsetX+x, offsetY+y, scaled.At(x, y))
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return Decoded{}, fmt.Errorf("artworkwindow: encode letterboxed png: %w", err)
	}
	return Decoded{Pixels: buf.Bytes(), Width: targetW, Height: targetH, Format: FormatPNG}, nil
}

// toTightRGB packs an image into tightly-packed 3-byte-per-pixel RGB, the
// raw format the terminal renderer expects for non-letterboxed artwork.
func toTightRGB(img image.Image, width, height int) []byte {
	out := make([]byte, width*height*3)
	i := 0
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			out[i] = uint8(r >> 8)
			out[i+1] = uint8(g >> 8)
			out[i+2] = uint8(b >> 8)
			i += 3
		}
	}
	return out
}
