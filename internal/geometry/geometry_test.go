package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircle(t *testing.T) {
	t.Run("center is inside", func(t *testing.T) {
		mask := Circle(65, 1)
		assert.Equal(t, 1.0, mask[32*65+32])
	})

	t.Run("corners are outside", func(t *testing.T) {
		mask := Circle(65, 1)
		assert.Equal(t, 0.0, mask[0])
		assert.Equal(t, 0.0, mask[64*65+64])
	})

	t.Run("zero radius yields empty mask", func(t *testing.T) {
		mask := Circle(16, 0)
		for _, v := range mask {
			assert.Equal(t, 0.0, v)
		}
	})

	t.Run("smaller radius covers fewer samples", func(t *testing.T) {
		full := Circle(64, 1)
		half := Circle(64, 0.5)
		assert.Greater(t, sum(full), sum(half))
	})
}

func TestInvertedCircleComplementsCircle(t *testing.T) {
	samples := 33
	circle := Circle(samples, 0.7)
	inverted := InvertedCircle(samples, 0.7)
	for i := range circle {
		// Samples exactly on the boundary belong to both.
		assert.GreaterOrEqual(t, circle[i]+inverted[i], 1.0)
	}
}

func TestTrueCircle(t *testing.T) {
	mask := TrueCircle(64, 1)
	interior, edge := 0, 0
	for _, v := range mask {
		require.GreaterOrEqual(t, v, 0.0)
		require.LessOrEqual(t, v, 1.0)
		switch {
		case v == 1:
			interior++
		case v > 0 && v < 1:
			edge++
		}
	}
	assert.Greater(t, interior, 0, "expected solid interior")
	assert.Greater(t, edge, 0, "expected anti-aliased edge samples")
}

func TestSquareIsAllOnes(t *testing.T) {
	mask := Square(8, 1)
	for _, v := range mask {
		assert.Equal(t, 1.0, v)
	}
}

func TestGaussianPeaksAtCenter(t *testing.T) {
	samples := 33
	mask := Gaussian(samples, 0.3)
	center := mask[(samples/2)*samples+samples/2]
	assert.InDelta(t, 1.0, center, 1e-12)
	for _, v := range mask {
		assert.LessOrEqual(t, v, center)
		assert.Greater(t, v, 0.0)
	}
}

func TestRotatedEllipse(t *testing.T) {
	t.Run("rejects minor wider than major", func(t *testing.T) {
		_, err := RotatedEllipse(32, 0.5, 0.8, 0)
		require.Error(t, err)
	})

	t.Run("rotation by 90 degrees swaps axes", func(t *testing.T) {
		samples := 65
		flat, err := RotatedEllipse(samples, 0.9, 0.3, 0)
		require.NoError(t, err)
		tall, err := RotatedEllipse(samples, 0.9, 0.3, 90)
		require.NoError(t, err)

		// Same area either way.
		assert.InDelta(t, sum(flat), sum(tall), float64(samples))

		transposed := make([]float64, len(flat))
		for r := 0; r < samples; r++ {
			for c := 0; c < samples; c++ {
				transposed[c*samples+r] = flat[r*samples+c]
			}
		}
		assert.Equal(t, transposed, tall)
	})
}

func TestRegularPolygon(t *testing.T) {
	t.Run("rejects fewer than 3 sides", func(t *testing.T) {
		_, err := RegularPolygon(2, 32, 1)
		require.Error(t, err)
	})

	t.Run("center is inside", func(t *testing.T) {
		mask, err := RegularPolygon(6, 65, 1)
		require.NoError(t, err)
		assert.Equal(t, 1.0, mask[32*65+32])
	})

	t.Run("more sides approach the circle", func(t *testing.T) {
		circle := Circle(64, 1)
		tri, err := RegularPolygon(3, 64, 1)
		require.NoError(t, err)
		dodeca, err := RegularPolygon(12, 64, 1)
		require.NoError(t, err)

		triGap := sum(circle) - sum(tri)
		dodecaGap := sum(circle) - sum(dodeca)
		assert.Greater(t, triGap, dodecaGap)
	})
}

func TestMaskCache(t *testing.T) {
	cache := NewCache()

	a, err := cache.Mask("circle", 32, 1)
	require.NoError(t, err)
	b, err := cache.Mask("circle", 32, 1)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	// Returned masks are copies: mutating one must not poison the cache.
	a[0] = 99
	c, err := cache.Mask("circle", 32, 1)
	require.NoError(t, err)
	assert.Equal(t, 0.0, c[0])
}

func TestMaskUnknownShape(t *testing.T) {
	_, err := Mask("dyson-sphere", 32, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mask shape")
}

func TestShapesListsPolygons(t *testing.T) {
	names := Shapes()
	assert.Contains(t, names, "circle")
	assert.Contains(t, names, "hexagon")
	assert.Contains(t, names, "truecircle")
}

func sum(data []float64) float64 {
	total := 0.0
	for _, v := range data {
		if !math.IsNaN(v) {
			total += v
		}
	}
	return total
}
