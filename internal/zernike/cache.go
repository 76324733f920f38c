package zernike

import (
	"sync"

	"github.com/aperture-data/wavefront.report/internal/grid"
)

type gridKey struct {
	term    int // canonical table index
	norm    bool
	samples int
}

// Cache memoizes Zernike term grids evaluated over the unit square.
// Returned slices are shared; callers must treat them as read-only.
type Cache struct {
	mu    sync.Mutex
	grids map[gridKey][]float64
}

// NewCache creates an empty term-grid cache.
func NewCache() *Cache {
	return &Cache{grids: make(map[gridKey][]float64)}
}

// Grid returns the canonical term evaluated on a samples x samples grid,
// optionally scaled to unit RMS over the unit circle.
func (c *Cache) Grid(term int, norm bool, samples int) []float64 {
	key := gridKey{term: term, norm: norm, samples: samples}

	c.mu.Lock()
	defer c.mu.Unlock()
	if g, ok := c.grids[key]; ok {
		return g
	}

	rho, phi := grid.PolarGrid(samples)
	t := terms[term]
	g := make([]float64, len(rho))
	for i := range g {
		g[i] = t.Fn(rho[i], phi[i])
	}
	if norm {
		for i := range g {
			g[i] *= t.Norm
		}
	}
	c.grids[key] = g
	return g
}

// Clear empties the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.grids = make(map[gridKey][]float64)
	c.mu.Unlock()
}

// defaultCache backs the package-level synthesis and fitting helpers.
var defaultCache = NewCache()
