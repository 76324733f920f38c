// Package interferogram analyzes measured phase maps from
// interferometric instruments: cropping, masking, piston and tip/tilt
// removal, frequency-domain filtering, and PSD-based band-limited RMS.
//
// Phase grids are flat row-major float64 slices; NaN marks dropout
// (unmeasured or masked samples). Operations never change the array
// shape except Crop, which trims fully-empty borders.
package interferogram

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/aperture-data/wavefront.report/internal/grid"
)

// Spatial scales for the x/y axes.
const (
	ScalePx = "px"
	ScaleUm = "um"
	ScaleMm = "mm"
)

// Interferogram holds a measured phase map (nm) with optional intensity
// and spatial axes.
type Interferogram struct {
	Rows, Cols int
	Phase      []float64 // nm
	Intensity  []float64 // optional, same shape as Phase
	X, Y       []float64 // axes in Scale units
	Scale      string
	Meta       map[string]string
}

// Option mutates interferogram construction.
type Option func(*Interferogram)

// WithIntensity attaches a recorded intensity frame.
func WithIntensity(intensity []float64) Option {
	return func(ig *Interferogram) { ig.Intensity = intensity }
}

// WithAxes installs real spatial axes in the given scale.
func WithAxes(x, y []float64, scale string) Option {
	return func(ig *Interferogram) {
		ig.X, ig.Y, ig.Scale = x, y, scale
	}
}

// WithMeta attaches instrument metadata.
func WithMeta(meta map[string]string) Option {
	return func(ig *Interferogram) { ig.Meta = meta }
}

// New wraps a rows x cols phase grid (nm). Without WithAxes the axes
// are pixel counts.
func New(phase []float64, rows, cols int, opts ...Option) (*Interferogram, error) {
	if rows*cols != len(phase) {
		return nil, fmt.Errorf("interferogram: phase length %d is not %d x %d", len(phase), rows, cols)
	}
	ig := &Interferogram{
		Rows:  rows,
		Cols:  cols,
		Phase: append([]float64(nil), phase...),
		Scale: ScalePx,
	}
	for _, opt := range opts {
		opt(ig)
	}
	if ig.X == nil {
		ig.X = grid.Linspace(0, float64(cols-1), cols)
		ig.Y = grid.Linspace(0, float64(rows-1), rows)
	}
	if len(ig.X) != cols || len(ig.Y) != rows {
		return nil, fmt.Errorf("interferogram: axis lengths %dx%d do not match %dx%d grid", len(ig.X), len(ig.Y), cols, rows)
	}
	if ig.Intensity != nil && len(ig.Intensity) != rows*cols {
		return nil, fmt.Errorf("interferogram: intensity length %d is not %d x %d", len(ig.Intensity), rows, cols)
	}
	return ig, nil
}

// SampleSpacing returns the distance between adjacent samples in Scale
// units. It requires real axes (not pixel scale).
func (ig *Interferogram) SampleSpacing() (float64, error) {
	if ig.Scale == ScalePx {
		return 0, fmt.Errorf("interferogram: no physical sample spacing in pixel scale")
	}
	return ig.X[1] - ig.X[0], nil
}

// PV returns the peak-to-valley phase, ignoring dropout.
func (ig *Interferogram) PV() float64 { return grid.PV(ig.Phase) }

// RMS returns the RMS phase, ignoring dropout.
func (ig *Interferogram) RMS() float64 { return grid.RMS(ig.Phase) }

// Ra returns the average absolute deviation, ignoring dropout.
func (ig *Interferogram) Ra() float64 { return grid.Ra(ig.Phase) }

// DropoutPercentage returns the share of samples that are NaN, 0-100.
func (ig *Interferogram) DropoutPercentage() float64 {
	return float64(grid.CountNaN(ig.Phase)) / float64(len(ig.Phase)) * 100
}

// Crop trims rows and columns that contain no valid data from the
// borders, shrinking the grid and its axes.
func (ig *Interferogram) Crop() *Interferogram {
	top, bottom := 0, ig.Rows
	left, right := 0, ig.Cols

	rowHas := make([]bool, ig.Rows)
	colHas := make([]bool, ig.Cols)
	for r := 0; r < ig.Rows; r++ {
		for c := 0; c < ig.Cols; c++ {
			if !math.IsNaN(ig.Phase[r*ig.Cols+c]) {
				rowHas[r] = true
				colHas[c] = true
			}
		}
	}
	for top < ig.Rows && !rowHas[top] {
		top++
	}
	for bottom > top && !rowHas[bottom-1] {
		bottom--
	}
	for left < ig.Cols && !colHas[left] {
		left++
	}
	for right > left && !colHas[right-1] {
		right--
	}

	rows, cols := bottom-top, right-left
	phase := make([]float64, rows*cols)
	var intensity []float64
	if ig.Intensity != nil {
		intensity = make([]float64, rows*cols)
	}
	for r := 0; r < rows; r++ {
		copy(phase[r*cols:(r+1)*cols], ig.Phase[(r+top)*ig.Cols+left:(r+top)*ig.Cols+right])
		if intensity != nil {
			copy(intensity[r*cols:(r+1)*cols], ig.Intensity[(r+top)*ig.Cols+left:(r+top)*ig.Cols+right])
		}
	}

	ig.Phase = phase
	ig.Intensity = intensity
	ig.X = append([]float64(nil), ig.X[left:right]...)
	ig.Y = append([]float64(nil), ig.Y[top:bottom]...)
	ig.Rows, ig.Cols = rows, cols
	return ig
}

// RemovePiston subtracts the mean phase.
func (ig *Interferogram) RemovePiston() *Interferogram {
	mean := grid.Mean(ig.Phase)
	for i, v := range ig.Phase {
		if !math.IsNaN(v) {
			ig.Phase[i] = v - mean
		}
	}
	return ig
}

// RemoveTipTilt fits a plane to the valid samples by least squares and
// subtracts it.
func (ig *Interferogram) RemoveTipTilt() *Interferogram {
	type pt struct {
		x, y, z float64
	}
	pts := make([]pt, 0, len(ig.Phase))
	for r := 0; r < ig.Rows; r++ {
		for c := 0; c < ig.Cols; c++ {
			z := ig.Phase[r*ig.Cols+c]
			if !math.IsNaN(z) {
				pts = append(pts, pt{x: ig.X[c], y: ig.Y[r], z: z})
			}
		}
	}
	if len(pts) < 3 {
		return ig
	}

	a := mat.NewDense(len(pts), 3, nil)
	b := mat.NewVecDense(len(pts), nil)
	for i, p := range pts {
		a.Set(i, 0, p.x)
		a.Set(i, 1, p.y)
		a.Set(i, 2, 1)
		b.SetVec(i, p.z)
	}
	var coef mat.VecDense
	if err := coef.SolveVec(a, b); err != nil {
		return ig
	}
	cx, cy, c0 := coef.AtVec(0), coef.AtVec(1), coef.AtVec(2)

	for r := 0; r < ig.Rows; r++ {
		for c := 0; c < ig.Cols; c++ {
			i := r*ig.Cols + c
			if !math.IsNaN(ig.Phase[i]) {
				ig.Phase[i] -= cx*ig.X[c] + cy*ig.Y[r] + c0
			}
		}
	}
	return ig
}

// RemovePistonTipTilt removes the plane, then the residual mean.
func (ig *Interferogram) RemovePistonTipTilt() *Interferogram {
	return ig.RemoveTipTilt().RemovePiston()
}

// ApplyMask marks samples NaN wherever the mask is zero. The mask must
// match the grid shape; the array shape is unchanged.
func (ig *Interferogram) ApplyMask(mask []float64) error {
	if len(mask) != len(ig.Phase) {
		return fmt.Errorf("interferogram: mask length %d does not match %d-sample grid", len(mask), len(ig.Phase))
	}
	for i, m := range mask {
		if m == 0 {
			ig.Phase[i] = math.NaN()
		}
	}
	return nil
}

// ConvertPhase rescales the phase values by k (a reversible scalar
// rescaling, e.g. 1e-3 for nm to µm).
func (ig *Interferogram) ConvertPhase(k float64) *Interferogram {
	grid.Scale(ig.Phase, k)
	return ig
}

// ConvertSpatial rescales the x/y axes to another scale. Only µm and mm
// interconvert; pixel axes carry no physical unit.
func (ig *Interferogram) ConvertSpatial(scale string) error {
	if ig.Scale == scale {
		return nil
	}
	var k float64
	switch {
	case ig.Scale == ScaleUm && scale == ScaleMm:
		k = 1e-3
	case ig.Scale == ScaleMm && scale == ScaleUm:
		k = 1e3
	default:
		return fmt.Errorf("interferogram: cannot convert %s axes to %s", ig.Scale, scale)
	}
	grid.Scale(ig.X, k)
	grid.Scale(ig.Y, k)
	ig.Scale = scale
	return nil
}
