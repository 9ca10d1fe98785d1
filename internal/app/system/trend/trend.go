// internal/app/system/trend/trend.go
//
// Package trend fits least-squares trend lines and smooths series with a
// centered moving average.
package trend

import (
	"math"

	"github.com/dalemusser/stratadash/internal/app/system/numfmt"
)

// minDenominator guards against an undetermined fit.
const minDenominator = 1e-8

// Line fits y = slope*x + intercept with x as the zero-based index and
// returns one fitted value per input. It returns an empty slice when there
// are fewer than two points, a value is not finite, or the fit is
// degenerate. Values are not rounded.
func Line(values []float64) []float64 {
	n := len(values)
	if n < 2 {
		return []float64{}
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, y := range values {
		if math.IsNaN(y) || math.IsInf(y, 0) {
			return []float64{}
		}
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	fn := float64(n)
	den := fn*sumXX - sumX*sumX
	if math.Abs(den) < minDenominator {
		return []float64{}
	}

	slope := (fn*sumXY - sumX*sumY) / den
	intercept := (sumY - slope*sumX) / fn

	out := make([]float64, n)
	for i := range out {
		out[i] = slope*float64(i) + intercept
	}
	return out
}

// LineAny is Line for untyped series such as decoded JSON. Any value that
// is not numeric yields an empty result.
func LineAny(values []any) []float64 {
	nums := make([]float64, len(values))
	for i, v := range values {
		f, ok := numfmt.ToFloat(v)
		if !ok {
			return []float64{}
		}
		nums[i] = f
	}
	return Line(nums)
}

// MovingAverage averages each point with up to radius neighbours on each
// side. The window shrinks at the ends. Results are rounded to 2 places.
func MovingAverage(values []float64, radius int) []float64 {
	n := len(values)
	out := make([]float64, n)
	if radius < 0 {
		radius = 0
	}
	for i := range values {
		lo := max(0, i-radius)
		hi := min(n-1, i+radius)
		var sum float64
		for j := lo; j <= hi; j++ {
			sum += values[j]
		}
		out[i] = Round(sum/float64(hi-lo+1), 2)
	}
	return out
}

// Round rounds v half away from zero to the given number of places.
func Round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}

// RoundAll rounds every element of values in a new slice.
func RoundAll(values []float64, places int) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = Round(v, places)
	}
	return out
}
