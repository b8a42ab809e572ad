package geometry

import (
	"fmt"
	"math"
)

const (
	// ShearAngle is the isometric edge angle in degrees.
	ShearAngle = 30.0

	// BackendShearOffset is added to ShearAngle when the shear is actually
	// applied. A 35° backend shear renders an edge that measures 30°.
	BackendShearOffset = 5.0

	// DefaultMarginPercent is the tolerance used to validate final dimensions.
	DefaultMarginPercent = 0.5
)

// Plan holds the dimensions a conversion aims for.
type Plan struct {
	SourceWidth  int `json:"source_width"`
	SourceHeight int `json:"source_height"`

	// ShearAngle is the nominal isometric angle in degrees.
	ShearAngle float64 `json:"shear_angle"`
	// BackendShearAngle is the angle handed to the raster backend.
	BackendShearAngle float64 `json:"backend_shear_angle"`

	TargetWidth  int `json:"target_width"`
	TargetHeight int `json:"target_height"`
	YShear       int `json:"y_shear"`
}

// NewPlan computes the plan for a source image of width x height pixels.
// It is pure and accepts any positive dimensions.
func NewPlan(width, height int) Plan {
	targetWidth := round(float64(width) * 2 / 3)
	yShear := round(math.Tan(ShearAngle*math.Pi/180) * float64(targetWidth))
	return Plan{
		SourceWidth:       width,
		SourceHeight:      height,
		ShearAngle:        ShearAngle,
		BackendShearAngle: ShearAngle + BackendShearOffset,
		TargetWidth:       targetWidth,
		TargetHeight:      height + yShear,
		YShear:            yShear,
	}
}

// Within reports whether width x height falls inside marginPercent of the
// plan's target on both axes.
func (p Plan) Within(width, height int, marginPercent float64) bool {
	return WithinMargin(width, p.TargetWidth, marginPercent) &&
		WithinMargin(height, p.TargetHeight, marginPercent)
}

// Tolerance returns the pixel bounds used by Within on each axis.
func (p Plan) Tolerance(marginPercent float64) (width, height int) {
	return MarginPixels(p.TargetWidth, marginPercent), MarginPixels(p.TargetHeight, marginPercent)
}

// String returns a compact description, e.g. "300x200 -> 200x315 (shear 35°)".
func (p Plan) String() string {
	return fmt.Sprintf("%dx%d -> %dx%d (shear %g°)",
		p.SourceWidth, p.SourceHeight, p.TargetWidth, p.TargetHeight, p.BackendShearAngle)
}

func round(v float64) int {
	return int(math.Round(v))
}
