package interaction

// EaseInOutQuad accelerates through the first half and decelerates through
// the second. t is clamped to [0, 1].
func EaseInOutQuad(t float64) float64 {
	switch {
	case t <= 0:
		return 0
	case t >= 1:
		return 1
	case t < 0.5:
		return 2 * t * t
	}
	u := -2*t + 2
	return 1 - u*u/2
}

// Lerp interpolates linearly from a to b.
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
