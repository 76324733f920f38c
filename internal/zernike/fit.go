package zernike

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/aperture-data/wavefront.report/internal/grid"
)

// FitResult carries the coefficients recovered by Fit and the RMS error
// between the input data and the reconstruction over valid samples.
type FitResult struct {
	Ordering  Ordering
	Normalize bool
	Coefs     []float64
	Residual  float64
}

// Fit projects a square phase grid onto the first terms of the ordering
// by linear least squares. NaN samples (masked or dropped-out regions)
// are excluded from the fit. The evaluation grid matches the one used by
// Description.Synthesize, so fitting synthesized data round-trips.
func Fit(data []float64, samples, termCount int, normalize bool, ordering Ordering) (*FitResult, error) {
	if samples < 2 {
		return nil, fmt.Errorf("zernike: samples must be at least 2, got %d", samples)
	}
	if samples*samples != len(data) {
		return nil, fmt.Errorf("zernike: data length %d is not %d x %d", len(data), samples, samples)
	}
	if termCount < 1 {
		return nil, fmt.Errorf("zernike: term count must be positive, got %d", termCount)
	}
	if termCount > ordering.Len() {
		return nil, fmt.Errorf("zernike: %d terms exceeds the %d-term %s ordering", termCount, ordering.Len(), ordering)
	}

	// Valid-sample index list; masked regions contribute no rows.
	valid := make([]int, 0, len(data))
	for i, v := range data {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			valid = append(valid, i)
		}
	}
	if len(valid) < termCount {
		return nil, fmt.Errorf("zernike: %d valid samples cannot constrain %d terms", len(valid), termCount)
	}

	termGrids := make([][]float64, termCount)
	for t := 0; t < termCount; t++ {
		termGrids[t] = defaultCache.Grid(ordering.Canonical(t), normalize, samples)
	}

	a := mat.NewDense(len(valid), termCount, nil)
	b := mat.NewVecDense(len(valid), nil)
	for row, idx := range valid {
		for t := 0; t < termCount; t++ {
			a.Set(row, t, termGrids[t][idx])
		}
		b.SetVec(row, data[idx])
	}

	var x mat.VecDense
	if err := x.SolveVec(a, b); err != nil {
		return nil, fmt.Errorf("zernike: least squares solve failed: %w", err)
	}

	coefs := make([]float64, termCount)
	for t := range coefs {
		coefs[t] = x.AtVec(t)
	}

	// Residual over the valid samples.
	diff := make([]float64, len(valid))
	for row, idx := range valid {
		fit := 0.0
		for t := 0; t < termCount; t++ {
			fit += coefs[t] * termGrids[t][idx]
		}
		diff[row] = data[idx] - fit
	}

	return &FitResult{
		Ordering:  ordering,
		Normalize: normalize,
		Coefs:     coefs,
		Residual:  grid.RMS(diff),
	}, nil
}

// Description converts the fit result into a synthesizable description.
func (r *FitResult) Description() *Description {
	d, _ := NewDescription(r.Ordering, r.Coefs, 0, r.Normalize)
	return d
}
