// Package geometry generates aperture masks: circles, regular polygons,
// gaussian apodizations, and rotated ellipses. Masks are square grids of
// ones inside the shape and zeros outside; applying a mask never changes
// the shape of the array it is applied to.
package geometry

import (
	"fmt"
	"math"

	"github.com/aperture-data/wavefront.report/internal/grid"
)

// Circle returns a binary circular mask with the given normalized radius.
// radius=1 fills the x and y extent of the array.
func Circle(samples int, radius float64) []float64 {
	if radius == 0 {
		return make([]float64, samples*samples)
	}
	rho, _ := grid.PolarGrid(samples)
	mask := make([]float64, len(rho))
	for i, r := range rho {
		if r <= radius {
			mask[i] = 1
		}
	}
	return mask
}

// InvertedCircle returns an obscuration: zeros inside the given radius,
// ones outside.
func InvertedCircle(samples int, radius float64) []float64 {
	if radius == 0 {
		return make([]float64, samples*samples)
	}
	rho, _ := grid.PolarGrid(samples)
	mask := make([]float64, len(rho))
	for i, r := range rho {
		if r >= radius {
			mask[i] = 1
		}
	}
	return mask
}

// TrueCircle returns a circular mask with a one-pixel anti-aliased edge.
// Interior samples are 1, exterior samples 0, and edge samples take
// fractional values proportional to coverage.
func TrueCircle(samples int, radius float64) []float64 {
	if radius == 0 {
		return make([]float64, samples*samples)
	}
	rho, _ := grid.PolarGrid(samples)
	mask := make([]float64, len(rho))
	onePixel := 2 / float64(samples)
	radiusPlus := radius + onePixel/2
	for i, r := range rho {
		v := (radiusPlus - r) * float64(samples) / 2
		mask[i] = math.Min(math.Max(v, 0), 1)
	}
	return mask
}

// Square returns an all-ones mask.
func Square(samples int, radius float64) []float64 {
	mask := make([]float64, samples*samples)
	for i := range mask {
		mask[i] = 1
	}
	return mask
}

// Gaussian returns a gaussian apodization mask. Sigma is expressed as a
// fraction of the array width.
func Gaussian(samples int, sigma float64) []float64 {
	mask := make([]float64, samples*samples)
	center := float64(samples / 2)
	denom := (sigma * float64(samples)) * (sigma * float64(samples))
	for r := 0; r < samples; r++ {
		for c := 0; c < samples; c++ {
			dx := float64(c) - center
			dy := float64(r) - center
			mask[r*samples+c] = math.Exp(-4 * math.Ln2 * (dx*dx + dy*dy) / denom)
		}
	}
	return mask
}

// RotatedEllipse returns a binary elliptical mask with the given major
// and minor half-widths (normalized to the array half-extent) and major
// axis angle in degrees. The minor width must not exceed the major width.
func RotatedEllipse(samples int, major, minor, angleDeg float64) ([]float64, error) {
	if minor > major {
		return nil, fmt.Errorf("geometry: minor axis width %v exceeds major axis width %v", minor, major)
	}
	xx, yy := grid.CartGrid(samples)
	a := -angleDeg * math.Pi / 180
	sinA, cosA := math.Sin(a), math.Cos(a)
	mask := make([]float64, len(xx))
	for i := range xx {
		x, y := xx[i], yy[i]
		majTerm := (x*cosA + y*sinA) * (x*cosA + y*sinA) / (major * major)
		minTerm := (x*sinA - y*cosA) * (x*sinA - y*cosA) / (minor * minor)
		if majTerm+minTerm <= 1 {
			mask[i] = 1
		}
	}
	return mask, nil
}

// RegularPolygon returns a binary mask for a convex regular polygon with
// the given number of sides, inscribed in the given normalized radius
// with a vertex at the +y axis.
func RegularPolygon(sides, samples int, radius float64) ([]float64, error) {
	if sides < 3 {
		return nil, fmt.Errorf("geometry: polygon needs at least 3 sides, got %d", sides)
	}
	verts := polygonVertices(sides, radius)
	xx, yy := grid.CartGrid(samples)
	mask := make([]float64, len(xx))
	for i := range xx {
		if inConvexPolygon(xx[i], yy[i], verts) {
			mask[i] = 1
		}
	}
	return mask, nil
}

type vertex struct{ x, y float64 }

// polygonVertices lists the corners of a regular polygon counterclockwise
// starting from the +y axis.
func polygonVertices(sides int, radius float64) []vertex {
	verts := make([]vertex, sides)
	step := 2 * math.Pi / float64(sides)
	for i := range verts {
		verts[i] = vertex{
			x: radius * math.Sin(float64(i)*step),
			y: radius * math.Cos(float64(i)*step),
		}
	}
	return verts
}

// inConvexPolygon tests point containment by requiring a consistent sign
// of the cross product against every edge.
func inConvexPolygon(x, y float64, verts []vertex) bool {
	sign := 0
	for i := range verts {
		a := verts[i]
		b := verts[(i+1)%len(verts)]
		cross := (b.x-a.x)*(y-a.y) - (b.y-a.y)*(x-a.x)
		switch {
		case cross > 0:
			if sign < 0 {
				return false
			}
			sign = 1
		case cross < 0:
			if sign > 0 {
				return false
			}
			sign = -1
		}
	}
	return true
}
