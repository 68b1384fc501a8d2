package forecast

import "finops-forecast/pkg/confidence"

// Confidence summarizes forecast uncertainty as a [0,1] score:
// 1 - avg(upper-lower) / max(avg(predicted), 1). The floor on the
// denominator avoids blowup when predictions sit near zero.
//
// This is a relative-tightness heuristic, not a calibrated coverage
// probability; do not present it to users as a statistical confidence
// level.
func Confidence(points []Point) float64 {
	if len(points) == 0 {
		return 0
	}

	var widthSum, predSum float64
	for _, p := range points {
		widthSum += p.Upper - p.Lower
		predSum += p.Predicted
	}
	n := float64(len(points))
	avgWidth := widthSum / n
	avgPred := predSum / n
	if avgPred < 1 {
		avgPred = 1
	}
	return confidence.Clamp(1 - avgWidth/avgPred)
}
