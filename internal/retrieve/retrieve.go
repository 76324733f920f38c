// Package retrieve recovers Zernike wavefront coefficients from focal
// plane intensity images by nonlinear optimization: candidate
// coefficients are synthesized into a pupil, propagated to a PSF, and
// scored against the target image by mean-square intensity error.
package retrieve

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/optimize"

	"github.com/aperture-data/wavefront.report/internal/psf"
	"github.com/aperture-data/wavefront.report/internal/pupil"
	"github.com/aperture-data/wavefront.report/internal/zernike"
)

// Problem describes one recovery: the target intensity image and the
// optical prescription that produced it.
type Problem struct {
	Target     []float64 // peak-normalized intensity, TargetSize x TargetSize
	TargetSize int

	Samples    int     // pupil grid side length
	Dia        float64 // mm
	Wavelength float64 // µm
	EFL        float64 // mm
	Q          float64

	Terms    int
	Ordering zernike.Ordering
	// Normalize applies RMS normalization to the candidate terms.
	Normalize bool
}

// Options bound the optimizer.
type Options struct {
	MaxIterations  int     // major iteration budget; 0 means 200
	MaxEvaluations int     // objective evaluation budget; 0 means 2000
	Tolerance      float64 // absolute cost convergence; 0 means 1e-10
}

// Result carries the recovered coefficients and optimizer diagnostics.
type Result struct {
	Coefs       []float64
	Cost        float64
	Iterations  int
	Evaluations int
}

// Run minimizes the intensity mismatch starting from the coefficient
// guess x0. The guess matters: the cost surface has local minima, so a
// starting point near the truth is required for reliable convergence.
// The context is checked inside the objective; cancellation aborts the
// search with the context's error.
func Run(ctx context.Context, p *Problem, x0 []float64, opts Options) (*Result, error) {
	if p.Terms < 1 {
		return nil, fmt.Errorf("retrieve: term count must be positive, got %d", p.Terms)
	}
	if p.Terms > p.Ordering.Len() {
		return nil, fmt.Errorf("retrieve: %d terms exceeds the %d-term %s ordering", p.Terms, p.Ordering.Len(), p.Ordering)
	}
	if len(x0) != p.Terms {
		return nil, fmt.Errorf("retrieve: guess has %d coefficients, want %d", len(x0), p.Terms)
	}
	if p.TargetSize*p.TargetSize != len(p.Target) {
		return nil, fmt.Errorf("retrieve: target length %d is not %d x %d", len(p.Target), p.TargetSize, p.TargetSize)
	}

	if opts.MaxIterations == 0 {
		opts.MaxIterations = 200
	}
	if opts.MaxEvaluations == 0 {
		opts.MaxEvaluations = 2000
	}
	if opts.Tolerance == 0 {
		opts.Tolerance = 1e-10
	}

	cancelled := false
	objective := func(x []float64) float64 {
		if ctx.Err() != nil {
			cancelled = true
			return 0
		}
		cost, err := p.cost(x)
		if err != nil {
			// Out-of-domain candidates (the optimizer has no bounds)
			// are pushed away with a large penalty.
			return 1e30
		}
		return cost
	}

	problem := optimize.Problem{Func: objective}
	settings := &optimize.Settings{
		MajorIterations: opts.MaxIterations,
		FuncEvaluations: opts.MaxEvaluations,
		Converger: &optimize.FunctionConverge{
			Absolute:   opts.Tolerance,
			Iterations: 50,
		},
	}

	result, err := optimize.Minimize(problem, append([]float64(nil), x0...), settings, &optimize.NelderMead{})
	if cancelled {
		return nil, ctx.Err()
	}
	if err != nil {
		if result == nil {
			return nil, fmt.Errorf("retrieve: optimization failed: %w", err)
		}
		// Budget exhaustion still yields a usable best-so-far point.
	}

	return &Result{
		Coefs:       result.X,
		Cost:        result.F,
		Iterations:  result.Stats.MajorIterations,
		Evaluations: result.Stats.FuncEvaluations,
	}, nil
}

// cost simulates a PSF for the candidate coefficients and returns the
// mean-square intensity error against the target over the centered
// TargetSize crop.
func (p *Problem) cost(coefs []float64) (float64, error) {
	desc, err := zernike.NewDescription(p.Ordering, coefs, 0, p.Normalize)
	if err != nil {
		return 0, err
	}
	pup, err := pupil.FromZernike(desc,
		pupil.WithSamples(p.Samples),
		pupil.WithDia(p.Dia),
		pupil.WithWavelength(p.Wavelength),
	)
	if err != nil {
		return 0, err
	}
	sim, err := psf.FromPupil(pup, p.EFL, p.Q)
	if err != nil {
		return 0, err
	}

	crop, err := centerCrop(sim.Intensity, sim.Samples, p.TargetSize)
	if err != nil {
		return 0, err
	}

	sum := 0.0
	for i, v := range crop {
		d := v - p.Target[i]
		sum += d * d
	}
	return sum / float64(len(crop)), nil
}

// Simulate produces the centered intensity crop for known coefficients,
// for building synthetic recovery targets.
func (p *Problem) Simulate(coefs []float64) ([]float64, error) {
	desc, err := zernike.NewDescription(p.Ordering, coefs, 0, p.Normalize)
	if err != nil {
		return nil, err
	}
	pup, err := pupil.FromZernike(desc,
		pupil.WithSamples(p.Samples),
		pupil.WithDia(p.Dia),
		pupil.WithWavelength(p.Wavelength),
	)
	if err != nil {
		return nil, err
	}
	sim, err := psf.FromPupil(pup, p.EFL, p.Q)
	if err != nil {
		return nil, err
	}
	return centerCrop(sim.Intensity, sim.Samples, p.TargetSize)
}

// centerCrop extracts the centered size x size window from a square
// grid.
func centerCrop(data []float64, n, size int) ([]float64, error) {
	if size > n {
		return nil, fmt.Errorf("retrieve: crop size %d exceeds grid size %d", size, n)
	}
	off := (n - size) / 2
	out := make([]float64, size*size)
	for r := 0; r < size; r++ {
		copy(out[r*size:(r+1)*size], data[(r+off)*n+off:(r+off)*n+off+size])
	}
	return out, nil
}
