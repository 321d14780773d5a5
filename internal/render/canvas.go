package render

import (
	"encoding/base64"
	"fmt"
	"math"

	"github.com/davidbyttow/govips/v2/vips"
	"github.com/rs/zerolog/log"
)

// InitVips initializes the vips library. Call this once at application startup.
func InitVips() {
	vips.Startup(nil)
}

// ShutdownVips shuts down the vips library. Call this at application shutdown.
func ShutdownVips() {
	vips.Shutdown()
}

// PageImage is a page rendered onto the square canvas the VLM receives,
// together with the geometry needed to map VLM coordinates back onto
// the original page.
type PageImage struct {
	// Base64 is the PNG canvas, base64-encoded for the data URL.
	Base64 string
	// Width and Height are the original page dimensions in pixels.
	Width  float64
	Height float64
	// Scale is the uniform factor applied before padding; coordinates
	// returned against the canvas divide by it to recover page pixels.
	Scale float64
}

// PrepareCanvas scales the page PNG so its longest edge matches targetSize,
// then pads it onto a white square canvas with the page at the top-left.
// Square input keeps bounding-box accuracy stable across vision models.
func PrepareCanvas(pngData []byte, targetSize int) (*PageImage, error) {
	if targetSize <= 0 {
		return nil, fmt.Errorf("target size must be positive, got %d", targetSize)
	}

	image, err := vips.NewImageFromBuffer(pngData)
	if err != nil {
		return nil, fmt.Errorf("failed to load page image: %w", err)
	}
	defer image.Close()

	origWidth := float64(image.Width())
	origHeight := float64(image.Height())

	maxEdge := math.Max(origWidth, origHeight)
	scale := 1.0
	if maxEdge > 0 {
		scale = float64(targetSize) / maxEdge
	}

	if scale != 1.0 {
		if err := image.Resize(scale, vips.KernelLanczos3); err != nil {
			return nil, fmt.Errorf("failed to resize page image: %w", err)
		}
	}

	if err := image.Embed(0, 0, targetSize, targetSize, vips.ExtendWhite); err != nil {
		return nil, fmt.Errorf("failed to pad page image: %w", err)
	}

	data, _, err := image.ExportPng(vips.NewPngExportParams())
	if err != nil {
		return nil, fmt.Errorf("failed to export page image: %w", err)
	}

	log.Debug().
		Int("original_width", int(origWidth)).
		Int("original_height", int(origHeight)).
		Int("target_size", targetSize).
		Float64("scale", scale).
		Msg("Prepared page canvas")

	return &PageImage{
		Base64: base64.StdEncoding.EncodeToString(data),
		Width:  origWidth,
		Height: origHeight,
		Scale:  scale,
	}, nil
}

// Crop cuts a rectangle, given in original page pixels, out of the page PNG.
func Crop(pngData []byte, x0, y0, x1, y1 float64) ([]byte, error) {
	image, err := vips.NewImageFromBuffer(pngData)
	if err != nil {
		return nil, fmt.Errorf("failed to load page image: %w", err)
	}
	defer image.Close()

	left := clampInt(int(math.Floor(x0)), 0, image.Width()-1)
	top := clampInt(int(math.Floor(y0)), 0, image.Height()-1)
	width := clampInt(int(math.Ceil(x1))-left, 1, image.Width()-left)
	height := clampInt(int(math.Ceil(y1))-top, 1, image.Height()-top)

	if err := image.ExtractArea(left, top, width, height); err != nil {
		return nil, fmt.Errorf("failed to crop region: %w", err)
	}

	data, _, err := image.ExportPng(vips.NewPngExportParams())
	if err != nil {
		return nil, fmt.Errorf("failed to export cropped region: %w", err)
	}
	return data, nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
