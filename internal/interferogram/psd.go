package interferogram

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/window"

	"github.com/aperture-data/wavefront.report/internal/fft"
	"github.com/aperture-data/wavefront.report/internal/grid"
)

// PSD is a 2D power spectral density with centered frequency axes in
// cycles per spatial unit. The normalization is chosen so that summing
// all bins recovers the variance of the (windowed, dropout-filled)
// phase data.
type PSD struct {
	Rows, Cols int
	Data       []float64
	FX, FY     []float64
}

// PSD computes the power spectral density of the phase map using a 2D
// Hann window. The mean is removed first and dropout samples are
// zero-filled; heavy dropout therefore biases the estimate low, so crop
// and mask before calling. Requires real spatial axes.
func (ig *Interferogram) PSD() (*PSD, error) {
	spacing, err := ig.SampleSpacing()
	if err != nil {
		return nil, err
	}

	mean := grid.Mean(ig.Phase)

	wx := hannCoefficients(ig.Cols)
	wy := hannCoefficients(ig.Rows)

	work := make([]complex128, ig.Rows*ig.Cols)
	windowPower := 0.0
	for r := 0; r < ig.Rows; r++ {
		for c := 0; c < ig.Cols; c++ {
			w := wy[r] * wx[c]
			windowPower += w * w
			v := ig.Phase[r*ig.Cols+c]
			if math.IsNaN(v) {
				continue
			}
			work[r*ig.Cols+c] = complex((v-mean)*w, 0)
		}
	}
	if windowPower == 0 {
		return nil, fmt.Errorf("interferogram: degenerate window for %dx%d grid", ig.Rows, ig.Cols)
	}

	fft.FFT2(work, ig.Rows, ig.Cols)
	fft.Shift(work, ig.Rows, ig.Cols)

	// |F|^2 / (N * sum(w^2)) makes the bins sum to the variance
	// (discrete Parseval with window power compensation).
	n := float64(ig.Rows * ig.Cols)
	data := make([]float64, len(work))
	for i, v := range work {
		data[i] = (real(v)*real(v) + imag(v)*imag(v)) / (n * windowPower)
	}

	return &PSD{
		Rows: ig.Rows,
		Cols: ig.Cols,
		Data: data,
		FX:   grid.FFTUnit(spacing, ig.Cols),
		FY:   grid.FFTUnit(spacing, ig.Rows),
	}, nil
}

// hannCoefficients returns the n-point Hann window values.
func hannCoefficients(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1
	}
	return window.Hann(w)
}

// BandPower sums the PSD bins whose radial spatial frequency lies in
// [fLow, fHigh]. Use math.Inf(1) for an open upper bound.
func (p *PSD) BandPower(fLow, fHigh float64) float64 {
	sum := 0.0
	for r := 0; r < p.Rows; r++ {
		for c := 0; c < p.Cols; c++ {
			f := math.Hypot(p.FX[c], p.FY[r])
			if f >= fLow && f <= fHigh {
				sum += p.Data[r*p.Cols+c]
			}
		}
	}
	return sum
}

// BandlimitedRMS returns the RMS contribution of spatial frequencies in
// [fLow, fHigh], from integrating the PSD.
//
// The estimate is valid for full, unobstructed apertures; annular or
// heavily masked data leaks energy across bands through the zero-filled
// dropout regions and the result is then only indicative.
func (ig *Interferogram) BandlimitedRMS(fLow, fHigh float64) (float64, error) {
	p, err := ig.PSD()
	if err != nil {
		return 0, err
	}
	return math.Sqrt(p.BandPower(fLow, fHigh)), nil
}

// Bands holds the RMS decomposition of a phase map into low, mid and
// high spatial-frequency content.
type Bands struct {
	Low, Mid, High float64
}

// Decompose partitions the band-limited RMS at the two cutoff
// frequencies f1 < f2 (cycles per spatial unit).
func (ig *Interferogram) Decompose(f1, f2 float64) (*Bands, error) {
	if f1 >= f2 {
		return nil, fmt.Errorf("interferogram: cutoff order violated: %v >= %v", f1, f2)
	}
	p, err := ig.PSD()
	if err != nil {
		return nil, err
	}
	return &Bands{
		Low:  math.Sqrt(p.BandPower(0, f1)),
		Mid:  math.Sqrt(p.BandPower(math.Nextafter(f1, math.Inf(1)), f2)),
		High: math.Sqrt(p.BandPower(math.Nextafter(f2, math.Inf(1)), math.Inf(1))),
	}, nil
}
