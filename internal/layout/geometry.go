package layout

// Geometry describes how a page was placed on the VLM canvas: the original
// page dimensions in pixels and the uniform scale applied before padding.
type Geometry struct {
	Width  float64
	Height float64
	Scale  float64
}

// Denormalize maps a rect from canvas coordinates back to original page
// pixel space: inverse-scale both axes, reorder so x0 < x1 and y0 < y1,
// then clamp into the page bounds.
func Denormalize(r Rect, geom Geometry) Rect {
	backScale := 1.0
	if geom.Scale != 0 {
		backScale = 1.0 / geom.Scale
	}

	x0, x1 := ordered(r.X0*backScale, r.X1*backScale)
	y0, y1 := ordered(r.Y0*backScale, r.Y1*backScale)

	return Rect{X0: x0, Y0: y0, X1: x1, Y1: y1}.Clamp(geom.Width, geom.Height)
}

func ordered(a, b float64) (float64, float64) {
	if a > b {
		return b, a
	}
	return a, b
}
