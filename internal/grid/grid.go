// Package grid provides shared plumbing for square sampling grids: axis
// construction, polar coordinates, FFT frequency axes, and scalar
// reductions that tolerate NaN dropout.
//
// Grids are stored as flat []float64 slices in row-major order with an
// explicit stride, so a sample at (row, col) lives at row*cols+col.
package grid

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Linspace returns n evenly spaced values from start to stop inclusive.
func Linspace(start, stop float64, n int) []float64 {
	if n == 1 {
		return []float64{start}
	}
	out := make([]float64, n)
	step := (stop - start) / float64(n-1)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	// Avoid accumulated rounding on the final endpoint.
	out[n-1] = stop
	return out
}

// CartGrid returns flattened row-major X and Y coordinate grids over
// [-1, 1] x [-1, 1] with the given number of samples per side.
func CartGrid(samples int) (xx, yy []float64) {
	ax := Linspace(-1, 1, samples)
	xx = make([]float64, samples*samples)
	yy = make([]float64, samples*samples)
	for r := 0; r < samples; r++ {
		for c := 0; c < samples; c++ {
			xx[r*samples+c] = ax[c]
			yy[r*samples+c] = ax[r]
		}
	}
	return xx, yy
}

// PolarGrid returns flattened rho and phi grids over the unit square.
// The azimuth is measured from the +y axis so that the rho*cos(phi)
// term varies along y, matching the usual interferometric convention
// for tilt naming.
func PolarGrid(samples int) (rho, phi []float64) {
	xx, yy := CartGrid(samples)
	rho = make([]float64, len(xx))
	phi = make([]float64, len(xx))
	for i := range xx {
		rho[i] = math.Hypot(xx[i], yy[i])
		phi[i] = math.Atan2(xx[i], yy[i])
	}
	return rho, phi
}

// FFTUnit returns the frequency axis for an n-point forward FFT of data
// with the given sample spacing, in cycles per spatial unit. The axis is
// centered (DC in the middle), matching a shifted transform.
func FFTUnit(spacing float64, n int) []float64 {
	out := make([]float64, n)
	df := 1 / (spacing * float64(n))
	half := n / 2
	for i := range out {
		out[i] = float64(i-half) * df
	}
	return out
}

// finite reports whether v participates in reductions.
func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// PV returns the peak-to-valley of the data, ignoring NaN samples.
func PV(data []float64) float64 {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range data {
		if !finite(v) {
			continue
		}
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if hi < lo {
		return 0
	}
	return hi - lo
}

// Mean returns the arithmetic mean of the data, ignoring NaN samples.
func Mean(data []float64) float64 {
	sum, n := 0.0, 0
	for _, v := range data {
		if finite(v) {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// RMS returns the root-mean-square of the data, ignoring NaN samples.
func RMS(data []float64) float64 {
	sum, n := 0.0, 0
	for _, v := range data {
		if finite(v) {
			sum += v * v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return math.Sqrt(sum / float64(n))
}

// Ra returns the average absolute deviation from the mean, ignoring NaN
// samples.
func Ra(data []float64) float64 {
	mean := Mean(data)
	sum, n := 0.0, 0
	for _, v := range data {
		if finite(v) {
			sum += math.Abs(v - mean)
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// Sum returns the sum of the data, ignoring NaN samples.
func Sum(data []float64) float64 {
	sum := 0.0
	for _, v := range data {
		if finite(v) {
			sum += v
		}
	}
	return sum
}

// Scale multiplies every finite sample by k in place and returns data.
func Scale(data []float64, k float64) []float64 {
	floats.Scale(k, data)
	return data
}

// CountNaN returns the number of non-finite samples in the data.
func CountNaN(data []float64) int {
	n := 0
	for _, v := range data {
		if !finite(v) {
			n++
		}
	}
	return n
}
