// Package geometry derives the target size of a pseudo-isometric projection
// and judges measured results against it.
//
// A true isometric view foreshortens the width of a flat asset to two thirds
// and displaces its right edge downward by the amount a 30° shear induces
// over that new width:
//
//	targetWidth  = round(width * 2 / 3)
//	yShear       = round(tan(30°) * targetWidth)
//	targetHeight = height + yShear
//
// All rounding uses [math.Round], which rounds half away from zero. The same
// rule is applied in [WithinMargin], so boundary behavior at small sizes is
// consistent between planning and validation.
//
// # Usage
//
//	p := geometry.NewPlan(300, 200)
//	// p.TargetWidth == 200, p.YShear == 115, p.TargetHeight == 315
//
//	ok := geometry.WithinMargin(final.Width, p.TargetWidth, geometry.DefaultMarginPercent)
package geometry
