// Package layout detects document sections on rendered PDF pages using a
// vision-language model and maps the returned bounding boxes back into
// page pixel space.
package layout

import (
	"encoding/json"
	"fmt"
)

// Rect is an axis-aligned bounding box with the origin at the top-left.
// On the wire it is the [x0, y0, x1, y1] array the VLM returns.
type Rect struct {
	X0 float64
	Y0 float64
	X1 float64
	Y1 float64
}

// MarshalJSON encodes the rect as [x0, y0, x1, y1]
func (r Rect) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]float64{r.X0, r.Y0, r.X1, r.Y1})
}

// UnmarshalJSON decodes a [x0, y0, x1, y1] array
func (r *Rect) UnmarshalJSON(data []byte) error {
	var values []float64
	if err := json.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("rect must be a numeric array: %w", err)
	}
	if len(values) != 4 {
		return fmt.Errorf("rect must have exactly 4 values, got %d", len(values))
	}
	r.X0, r.Y0, r.X1, r.Y1 = values[0], values[1], values[2], values[3]
	return nil
}

// Valid reports whether the rect has positive area
func (r Rect) Valid() bool {
	return r.X0 < r.X1 && r.Y0 < r.Y1
}

// Clamp limits the rect to the [0, width] x [0, height] box
func (r Rect) Clamp(width, height float64) Rect {
	return Rect{
		X0: clamp(r.X0, 0, width),
		Y0: clamp(r.Y0, 0, height),
		X1: clamp(r.X1, 0, width),
		Y1: clamp(r.Y1, 0, height),
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Section is a detected layout region on a page. Text is filled in by the
// per-section extraction pass.
type Section struct {
	Type        string `json:"section_type"`
	Rect        Rect   `json:"rect"`
	Confidence  string `json:"confidence,omitempty"`
	Description string `json:"description,omitempty"`
	Text        string `json:"text,omitempty"`
}

// PageSections groups the sections detected on one page
type PageSections struct {
	Page     int       `json:"page"`
	Sections []Section `json:"sections"`
	Width    float64   `json:"width"`
	Height   float64   `json:"height"`
}
