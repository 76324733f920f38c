// Package psf computes point-spread functions from pupils by
// Fourier-optics propagation and derives encircled energy from the
// resulting intensity grid.
package psf

import (
	"fmt"
	"math"
	"sync"

	"github.com/aperture-data/wavefront.report/internal/fft"
	"github.com/aperture-data/wavefront.report/internal/grid"
	"github.com/aperture-data/wavefront.report/internal/pupil"
)

// PSF is a diffraction intensity distribution at the image plane. The
// unit axes are linear spatial coordinates in µm, not angles. Intensity
// is peak-normalized.
type PSF struct {
	Samples       int
	Intensity     []float64
	UX, UY        []float64
	SampleSpacing float64 // µm between adjacent samples

	// Energy bookkeeping from the propagation: the pupil-plane energy
	// and the image-plane energy after removing the DFT scale factor.
	// Parseval requires these to agree.
	EnergyIn  float64
	EnergyOut float64

	mu      sync.Mutex
	eeCache map[float64]float64
}

// FromPupil propagates a pupil to the focal plane of a lens with the
// given focal length (mm) at oversampling factor Q. The pupil field is
// zero-padded to Q times its width before the transform; Q below 2
// undersamples the PSF and Q must be positive.
func FromPupil(p *pupil.Pupil, efl, q float64) (*PSF, error) {
	if q <= 0 {
		return nil, fmt.Errorf("psf: oversampling Q must be positive, got %v", q)
	}
	if efl <= 0 {
		return nil, fmt.Errorf("psf: focal length must be positive, got %v", efl)
	}

	n := p.Samples
	pad := int(math.Ceil(float64(n) * q))
	if pad < n {
		pad = n
	}

	field := p.Wavefunction()
	energyIn := 0.0
	for _, v := range field {
		energyIn += real(v)*real(v) + imag(v)*imag(v)
	}

	// Embed the pupil field centered in the padded grid.
	work := make([]complex128, pad*pad)
	off := (pad - n) / 2
	for r := 0; r < n; r++ {
		copy(work[(r+off)*pad+off:(r+off)*pad+off+n], field[r*n:(r+1)*n])
	}

	fft.Ishift(work, pad, pad)
	fft.FFT2(work, pad, pad)
	fft.Shift(work, pad, pad)

	intensity := make([]float64, len(work))
	peak := 0.0
	energyOut := 0.0
	for i, v := range work {
		I := real(v)*real(v) + imag(v)*imag(v)
		intensity[i] = I
		energyOut += I
		if I > peak {
			peak = I
		}
	}
	// The unnormalized DFT scales total energy by the number of samples.
	energyOut /= float64(pad * pad)

	if peak > 0 {
		grid.Scale(intensity, 1/peak)
	}

	// Image-plane sample spacing from the standard FFT diffraction
	// scaling: du = λ f / (N dx), everything in µm.
	dx := p.SampleSpacing() * 1e3
	du := p.Wavelength * (efl * 1e3) / (float64(pad) * dx)

	half := float64(pad) / 2
	ux := make([]float64, pad)
	for i := range ux {
		ux[i] = (float64(i) - half) * du
	}
	uy := append([]float64(nil), ux...)

	return &PSF{
		Samples:       pad,
		Intensity:     intensity,
		UX:            ux,
		UY:            uy,
		SampleSpacing: du,
		EnergyIn:      energyIn,
		EnergyOut:     energyOut,
		eeCache:       make(map[float64]float64),
	}, nil
}

// New wraps an existing intensity grid with unit axes derived from the
// given sample spacing in µm.
func New(intensity []float64, samples int, spacing float64) (*PSF, error) {
	if samples*samples != len(intensity) {
		return nil, fmt.Errorf("psf: intensity length %d is not %d x %d", len(intensity), samples, samples)
	}
	half := float64(samples) / 2
	ux := make([]float64, samples)
	for i := range ux {
		ux[i] = (float64(i) - half) * spacing
	}
	return &PSF{
		Samples:       samples,
		Intensity:     append([]float64(nil), intensity...),
		UX:            ux,
		UY:            append([]float64(nil), ux...),
		SampleSpacing: spacing,
		eeCache:       make(map[float64]float64),
	}, nil
}

// EncircledEnergy returns the fraction of total energy within the given
// radius (µm) of the optical axis. Results are cached per radius; the
// fraction is monotone non-decreasing in radius and approaches 1 as the
// radius covers the grid.
func (p *PSF) EncircledEnergy(radius float64) float64 {
	p.mu.Lock()
	if v, ok := p.eeCache[radius]; ok {
		p.mu.Unlock()
		return v
	}
	p.mu.Unlock()

	total := 0.0
	inside := 0.0
	r2 := radius * radius
	for r := 0; r < p.Samples; r++ {
		y := p.UY[r]
		for c := 0; c < p.Samples; c++ {
			x := p.UX[c]
			v := p.Intensity[r*p.Samples+c]
			total += v
			if x*x+y*y <= r2 {
				inside += v
			}
		}
	}

	ee := 0.0
	if total > 0 {
		ee = inside / total
	}

	p.mu.Lock()
	p.eeCache[radius] = ee
	p.mu.Unlock()
	return ee
}

// EncircledEnergyRadius inverts EncircledEnergy: the radius (µm) that
// contains the given energy fraction. The guess seeds the search; a
// reasonable guess speeds convergence but any positive value works
// because the energy curve is monotone.
func (p *PSF) EncircledEnergyRadius(fraction, guess float64) (float64, error) {
	if fraction <= 0 || fraction >= 1 {
		return 0, fmt.Errorf("psf: energy fraction must be in (0, 1), got %v", fraction)
	}

	rmax := math.Hypot(p.UX[p.Samples-1], p.UY[p.Samples-1])
	if p.EncircledEnergy(rmax) < fraction {
		return 0, fmt.Errorf("psf: grid captures less than %.3f of total energy", fraction)
	}

	lo, hi := 0.0, rmax
	mid := guess
	if mid <= lo || mid >= hi {
		mid = (lo + hi) / 2
	}
	for i := 0; i < 60; i++ {
		if p.EncircledEnergy(mid) < fraction {
			lo = mid
		} else {
			hi = mid
		}
		mid = (lo + hi) / 2
		if hi-lo < p.SampleSpacing/16 {
			break
		}
	}
	return mid, nil
}

// Peak returns the maximum intensity value (1 for freshly propagated,
// peak-normalized data).
func (p *PSF) Peak() float64 {
	peak := 0.0
	for _, v := range p.Intensity {
		if v > peak {
			peak = v
		}
	}
	return peak
}

// TotalEnergy returns the sum of the intensity grid.
func (p *PSF) TotalEnergy() float64 { return grid.Sum(p.Intensity) }
