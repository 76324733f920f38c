package psf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aperture-data/wavefront.report/internal/pupil"
	"github.com/aperture-data/wavefront.report/internal/zernike"
)

func flatPupil(t *testing.T, samples int) *pupil.Pupil {
	t.Helper()
	p, err := pupil.New(pupil.WithSamples(samples))
	require.NoError(t, err)
	return p
}

func TestFromPupilValidation(t *testing.T) {
	p := flatPupil(t, 32)

	_, err := FromPupil(p, 10, 0)
	require.Error(t, err)

	_, err = FromPupil(p, 10, -1)
	require.Error(t, err)

	_, err = FromPupil(p, 0, 2)
	require.Error(t, err)
}

func TestFromPupilPadding(t *testing.T) {
	p := flatPupil(t, 32)
	point, err := FromPupil(p, 10, 2)
	require.NoError(t, err)
	assert.Equal(t, 64, point.Samples)
	assert.Len(t, point.Intensity, 64*64)
	assert.Len(t, point.UX, 64)
}

func TestPeakNormalization(t *testing.T) {
	p := flatPupil(t, 64)
	point, err := FromPupil(p, 10, 2)
	require.NoError(t, err)

	assert.InDelta(t, 1.0, point.Peak(), 1e-12)
	for _, v := range point.Intensity {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0+1e-12)
	}

	// An unaberrated circular pupil focuses the peak at the grid center.
	center := point.Samples/2*point.Samples + point.Samples/2
	assert.InDelta(t, 1.0, point.Intensity[center], 1e-12)
}

func TestEnergyConservation(t *testing.T) {
	// Parseval: pupil-plane energy equals image-plane energy once the DFT
	// scale factor is removed.
	p := flatPupil(t, 64)
	point, err := FromPupil(p, 10, 2)
	require.NoError(t, err)
	require.Greater(t, point.EnergyIn, 0.0)
	assert.InEpsilon(t, point.EnergyIn, point.EnergyOut, 1e-9)
}

func TestSampleSpacing(t *testing.T) {
	p, err := pupil.New(pupil.WithSamples(64), pupil.WithDia(1), pupil.WithWavelength(0.5))
	require.NoError(t, err)
	point, err := FromPupil(p, 10, 2)
	require.NoError(t, err)

	// du = λ f / (N dx) with everything in µm.
	dx := p.SampleSpacing() * 1e3
	want := 0.5 * 10e3 / (float64(point.Samples) * dx)
	assert.InDelta(t, want, point.SampleSpacing, 1e-12)
}

func TestEncircledEnergy(t *testing.T) {
	p := flatPupil(t, 64)
	point, err := FromPupil(p, 10, 2)
	require.NoError(t, err)

	t.Run("monotone in radius", func(t *testing.T) {
		prev := 0.0
		for _, radius := range []float64{1, 2, 5, 10, 20, 50} {
			ee := point.EncircledEnergy(radius)
			assert.GreaterOrEqual(t, ee, prev, "radius %v", radius)
			prev = ee
		}
	})

	t.Run("approaches one over the full grid", func(t *testing.T) {
		rmax := 2 * point.SampleSpacing * float64(point.Samples)
		assert.InDelta(t, 1.0, point.EncircledEnergy(rmax), 1e-12)
	})

	t.Run("zero radius captures at most the axis sample", func(t *testing.T) {
		assert.Less(t, point.EncircledEnergy(0), 0.1)
	})
}

func TestEncircledEnergyRadius(t *testing.T) {
	p := flatPupil(t, 64)
	point, err := FromPupil(p, 10, 2)
	require.NoError(t, err)

	t.Run("inverts the energy curve", func(t *testing.T) {
		radius, err := point.EncircledEnergyRadius(0.8, point.SampleSpacing*4)
		require.NoError(t, err)
		assert.Greater(t, radius, 0.0)
		assert.InDelta(t, 0.8, point.EncircledEnergy(radius), 0.05)
	})

	t.Run("rejects fractions outside (0,1)", func(t *testing.T) {
		_, err := point.EncircledEnergyRadius(0, 1)
		require.Error(t, err)
		_, err = point.EncircledEnergyRadius(1.5, 1)
		require.Error(t, err)
	})

	t.Run("out-of-range guess still converges", func(t *testing.T) {
		radius, err := point.EncircledEnergyRadius(0.5, -100)
		require.NoError(t, err)
		assert.InDelta(t, 0.5, point.EncircledEnergy(radius), 0.05)
	})
}

func TestAberrationSpreadsEnergy(t *testing.T) {
	flat := flatPupil(t, 64)
	flatPSF, err := FromPupil(flat, 10, 2)
	require.NoError(t, err)

	desc, err := zernike.NewDescription(zernike.Fringe, []float64{0, 0, 0, 150}, 0, false)
	require.NoError(t, err)
	blurred, err := pupil.FromZernike(desc, pupil.WithSamples(64))
	require.NoError(t, err)
	blurredPSF, err := FromPupil(blurred, 10, 2)
	require.NoError(t, err)

	// Defocus pushes energy out of the core.
	radius := flatPSF.SampleSpacing * 3
	assert.Greater(t, flatPSF.EncircledEnergy(radius), blurredPSF.EncircledEnergy(radius))
}

func TestNew(t *testing.T) {
	intensity := []float64{0, 0, 0, 1}
	point, err := New(intensity, 2, 1.5)
	require.NoError(t, err)
	assert.Equal(t, 2, point.Samples)
	assert.Equal(t, 1.5, point.SampleSpacing)

	_, err = New(intensity, 3, 1)
	require.Error(t, err)
}
