package geometry

// WithinMargin reports whether value lies strictly inside
// target ± round(target*marginPercent/100).
//
// Both bounds are exclusive: a value equal to a bound is out of tolerance, so
// with a zero margin not even an exact match passes.
func WithinMargin(value, target int, marginPercent float64) bool {
	plusMinus := MarginPixels(target, marginPercent)
	return value > target-plusMinus && value < target+plusMinus
}

// MarginPixels returns the tolerance round(target*marginPercent/100) in pixels.
// Targets under 100px round a 0.5% margin to zero.
func MarginPixels(target int, marginPercent float64) int {
	return round(float64(target) * marginPercent / 100)
}
