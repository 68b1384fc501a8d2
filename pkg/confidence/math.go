// Package confidence provides confidence score math utilities.
package confidence

// Clamp ensures a confidence score is in valid range [0, 1].
func Clamp(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
