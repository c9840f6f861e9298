// Package ocr reads the burned-in timestamp overlay most rig cameras stamp
// into a frame corner, so the UI can flag a feed whose frames have gone
// stale.
package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"strings"
	"time"

	"github.com/otiai10/gosseract/v2"

	"hangar-inspect/pkg/geometry"
)

// TimestampChars restricts recognition to the characters timestamp overlays
// use; excluding letters avoids 0/O and 1/I confusion.
const TimestampChars = "0123456789:-/. "

// Layouts the rig firmware is known to stamp.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006/01/02 15:04:05",
	"02-01-2006 15:04:05",
	"02/01/2006 15:04:05",
}

// Engine performs timestamp OCR using Tesseract.
type Engine struct {
	client *gosseract.Client
}

// NewEngine creates a timestamp OCR engine.
func NewEngine() (*Engine, error) {
	client := gosseract.NewClient()

	if err := client.SetLanguage("eng"); err != nil {
		client.Close()
		return nil, fmt.Errorf("setting OCR language: %w", err)
	}
	if err := client.SetWhitelist(TimestampChars); err != nil {
		client.Close()
		return nil, fmt.Errorf("setting OCR whitelist: %w", err)
	}

	// Timestamps are not dictionary words; disable word correction.
	_ = client.SetVariable("load_system_dawg", "false")
	_ = client.SetVariable("load_freq_dawg", "false")

	return &Engine{client: client}, nil
}

// Close releases OCR resources.
func (e *Engine) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}

// ReadTimestamp recognizes the timestamp inside the given region of a frame.
func (e *Engine) ReadTimestamp(img image.Image, region geometry.RectInt) (time.Time, error) {
	crop, err := cropRegion(img, region)
	if err != nil {
		return time.Time{}, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, crop); err != nil {
		return time.Time{}, fmt.Errorf("encoding OCR region: %w", err)
	}
	if err := e.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return time.Time{}, fmt.Errorf("setting OCR image: %w", err)
	}

	text, err := e.client.Text()
	if err != nil {
		return time.Time{}, fmt.Errorf("running OCR: %w", err)
	}

	return ParseTimestamp(text)
}

// ParseTimestamp parses recognized overlay text against the known layouts.
func ParseTimestamp(text string) (time.Time, error) {
	cleaned := strings.TrimSpace(strings.Join(strings.Fields(text), " "))
	if cleaned == "" {
		return time.Time{}, fmt.Errorf("no timestamp text recognized")
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, cleaned); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", cleaned)
}

// Stale reports whether a frame timestamp is older than the allowed lag.
func Stale(frameTime, now time.Time, maxLag time.Duration) bool {
	return now.Sub(frameTime) > maxLag
}

func cropRegion(img image.Image, region geometry.RectInt) (image.Image, error) {
	bounds := img.Bounds()

	x := max(region.X, bounds.Min.X)
	y := max(region.Y, bounds.Min.Y)
	w := min(region.Width, bounds.Max.X-x)
	h := min(region.Height, bounds.Max.Y-y)
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("region outside frame bounds")
	}

	crop := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(crop, crop.Bounds(), img, image.Pt(x, y), draw.Src)
	return crop, nil
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
