package interferogram

import (
	"fmt"
	"math"

	"github.com/aperture-data/wavefront.report/internal/fft"
	"github.com/aperture-data/wavefront.report/internal/grid"
)

// Bandpass keeps only phase content with spatial periods between perLow
// and perHigh (Scale units), zeroing all other frequency bins. Dropout
// samples are zero-filled for the transform and restored afterward.
func (ig *Interferogram) Bandpass(perLow, perHigh float64) error {
	return ig.filter(perLow, perHigh, false)
}

// Bandreject removes phase content with spatial periods between perLow
// and perHigh, leaving the rest of the spectrum intact.
func (ig *Interferogram) Bandreject(perLow, perHigh float64) error {
	return ig.filter(perLow, perHigh, true)
}

func (ig *Interferogram) filter(perLow, perHigh float64, reject bool) error {
	if perLow <= 0 || perHigh <= perLow {
		return fmt.Errorf("interferogram: invalid period band [%v, %v]", perLow, perHigh)
	}
	spacing, err := ig.SampleSpacing()
	if err != nil {
		return err
	}

	fHigh := 1 / perLow
	fLow := 1 / perHigh
	fx := grid.FFTUnit(spacing, ig.Cols)
	fy := grid.FFTUnit(spacing, ig.Rows)

	work := make([]complex128, len(ig.Phase))
	for i, v := range ig.Phase {
		if !math.IsNaN(v) {
			work[i] = complex(v, 0)
		}
	}

	fft.Ishift(work, ig.Rows, ig.Cols)
	fft.FFT2(work, ig.Rows, ig.Cols)
	fft.Shift(work, ig.Rows, ig.Cols)

	for r := 0; r < ig.Rows; r++ {
		for c := 0; c < ig.Cols; c++ {
			ax, ay := math.Abs(fx[c]), math.Abs(fy[r])
			inBand := ax <= fHigh && ay <= fHigh && !(ax < fLow && ay < fLow)
			if inBand == reject {
				work[r*ig.Cols+c] = 0
			}
		}
	}

	fft.Ishift(work, ig.Rows, ig.Cols)
	fft.IFFT2(work, ig.Rows, ig.Cols)
	fft.Shift(work, ig.Rows, ig.Cols)

	for i := range ig.Phase {
		if math.IsNaN(ig.Phase[i]) {
			continue // dropout stays dropout
		}
		ig.Phase[i] = real(work[i])
	}
	return nil
}
