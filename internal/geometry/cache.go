package geometry

import (
	"fmt"
	"sync"
)

// shapeFn builds a mask for a named shape.
type shapeFn func(samples int, radius float64) []float64

var shapes = map[string]shapeFn{
	"circle":         Circle,
	"truecircle":     TrueCircle,
	"invertedcircle": InvertedCircle,
	"square":         Square,
	"triangle":       polygonShape(3),
	"pentagon":       polygonShape(5),
	"hexagon":        polygonShape(6),
	"heptagon":       polygonShape(7),
	"octagon":        polygonShape(8),
	"nonagon":        polygonShape(9),
	"decagon":        polygonShape(10),
	"hendecagon":     polygonShape(11),
	"dodecagon":      polygonShape(12),
	"trisdecagon":    polygonShape(13),
}

func polygonShape(sides int) shapeFn {
	return func(samples int, radius float64) []float64 {
		mask, _ := RegularPolygon(sides, samples, radius)
		return mask
	}
}

type cacheKey struct {
	shape   string
	samples int
	radius  float64
}

// Cache memoizes generated masks keyed by shape name, sample count and
// radius. Cached masks are copied on return so callers can mutate them.
type Cache struct {
	mu    sync.Mutex
	masks map[cacheKey][]float64
}

// NewCache creates an empty mask cache.
func NewCache() *Cache {
	return &Cache{masks: make(map[cacheKey][]float64)}
}

// Mask returns the named mask at the given sampling, generating and
// caching it on first use. Unknown shape names are an error.
func (c *Cache) Mask(shape string, samples int, radius float64) ([]float64, error) {
	fn, ok := shapes[shape]
	if !ok {
		return nil, fmt.Errorf("geometry: unknown mask shape %q", shape)
	}

	key := cacheKey{shape: shape, samples: samples, radius: radius}
	c.mu.Lock()
	mask, ok := c.masks[key]
	if !ok {
		mask = fn(samples, radius)
		c.masks[key] = mask
	}
	c.mu.Unlock()

	out := make([]float64, len(mask))
	copy(out, mask)
	return out, nil
}

// Clear empties the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.masks = make(map[cacheKey][]float64)
	c.mu.Unlock()
}

// defaultCache backs the package-level Mask helper.
var defaultCache = NewCache()

// Mask returns the named mask from the shared package cache.
func Mask(shape string, samples int, radius float64) ([]float64, error) {
	return defaultCache.Mask(shape, samples, radius)
}

// Shapes lists the mask names known to the package.
func Shapes() []string {
	out := make([]string, 0, len(shapes))
	for name := range shapes {
		out = append(out, name)
	}
	return out
}
