// Package imaging shrinks and re-encodes captured frames before upload.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"math"

	_ "image/png" // Register PNG decoder

	"golang.org/x/image/draw"

	"github.com/secondeye/secondeye/internal/interaction"
)

// Upload policy defaults.
const (
	DefaultMaxEdge = 1024
	DefaultQuality = 60
)

// Options controls frame preparation.
type Options struct {
	// MaxEdge bounds the longer image edge in pixels.
	MaxEdge int
	// Quality is the JPEG quality factor (1-100).
	Quality int
}

// DefaultOptions returns the bandwidth policy the backend is tuned for.
func DefaultOptions() Options {
	return Options{MaxEdge: DefaultMaxEdge, Quality: DefaultQuality}
}

// Result is one prepared frame.
type Result struct {
	Data         []byte
	SourceFormat string
	Width        int
	Height       int
	WasResized   bool
}

// Prepare decodes raw, scales it so the longer edge fits MaxEdge, and encodes JPEG.
// The frame is always re-encoded, even when no resize is needed.
func Prepare(raw []byte, opts Options) (Result, error) {
	if len(raw) == 0 {
		return Result{}, errors.New("empty image data")
	}

	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return Result{}, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	width, height := FitLongEdge(bounds.Dx(), bounds.Dy(), opts.maxEdge())
	resized := width != bounds.Dx() || height != bounds.Dy()

	var out image.Image = img
	if resized {
		dst := image.NewRGBA(image.Rect(0, 0, width, height))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Src, nil)
		out = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: opts.quality()}); err != nil {
		return Result{}, fmt.Errorf("encode jpeg: %w", err)
	}

	return Result{
		Data:         buf.Bytes(),
		SourceFormat: format,
		Width:        width,
		Height:       height,
		WasResized:   resized,
	}, nil
}

// EncodeFrame fills frame.Encoded with the upload JPEG prepared from frame.Raw.
func EncodeFrame(frame interaction.CapturedFrame, opts Options) (interaction.CapturedFrame, error) {
	prepared, err := Prepare(frame.Raw, opts)
	if err != nil {
		return frame, err
	}
	frame.Encoded = prepared.Data
	return frame, nil
}

// FitLongEdge scales (width, height) in one step so max(width, height) <= maxEdge.
// Dimensions already within bounds are returned unchanged.
func FitLongEdge(width, height, maxEdge int) (int, int) {
	if width <= 0 || height <= 0 || maxEdge <= 0 {
		return width, height
	}
	longest := width
	if height > longest {
		longest = height
	}
	if longest <= maxEdge {
		return width, height
	}

	scale := float64(maxEdge) / float64(longest)
	w := int(math.Round(float64(width) * scale))
	h := int(math.Round(float64(height) * scale))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	if w > maxEdge {
		w = maxEdge
	}
	if h > maxEdge {
		h = maxEdge
	}
	return w, h
}

func (o Options) maxEdge() int {
	if o.MaxEdge <= 0 {
		return DefaultMaxEdge
	}
	return o.MaxEdge
}

func (o Options) quality() int {
	if o.Quality <= 0 || o.Quality > 100 {
		return DefaultQuality
	}
	return o.Quality
}
