package zernike

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/aperture-data/wavefront.report/internal/grid"
)

// Description is a wavefront expressed as a Zernike coefficient vector
// in a chosen ordering. Base selects whether user-facing term numbers
// start at 0 or 1; coefficients are always stored zero-based.
type Description struct {
	Ordering  Ordering
	Base      int
	Normalize bool
	Coefs     []float64
}

// NewDescription validates and builds a Description. A nil coefficient
// slice yields an all-zero description spanning the full ordering.
func NewDescription(ordering Ordering, coefs []float64, base int, normalize bool) (*Description, error) {
	if base < 0 {
		return nil, fmt.Errorf("zernike: negative base %d is nonsensical", base)
	}
	if base > 1 {
		return nil, fmt.Errorf("zernike: base %d violates convention (use 0 or 1)", base)
	}
	if len(coefs) > ordering.Len() {
		return nil, fmt.Errorf("zernike: %d coefficients exceeds the %d-term %s ordering", len(coefs), ordering.Len(), ordering)
	}
	if coefs == nil {
		coefs = make([]float64, ordering.Len())
	} else {
		coefs = append([]float64(nil), coefs...)
	}
	return &Description{Ordering: ordering, Base: base, Normalize: normalize, Coefs: coefs}, nil
}

// SetTerm assigns the coefficient for a user-facing term number
// (interpreted relative to the base).
func (d *Description) SetTerm(number int, value float64) error {
	idx := number - d.Base
	if idx < 0 || idx >= len(d.Coefs) {
		return fmt.Errorf("zernike: term Z%d out of range for %d-term description with base %d", number, len(d.Coefs), d.Base)
	}
	d.Coefs[idx] = value
	return nil
}

// Synthesize evaluates the description on a samples x samples grid.
// Zero coefficients are skipped.
func (d *Description) Synthesize(samples int) []float64 {
	return d.synthesize(samples, defaultCache)
}

func (d *Description) synthesize(samples int, cache *Cache) []float64 {
	phase := make([]float64, samples*samples)
	for i, coef := range d.Coefs {
		if coef == 0 {
			continue
		}
		term := d.Ordering.Canonical(i)
		floats.AddScaled(phase, coef, cache.Grid(term, d.Normalize, samples))
	}
	return phase
}

// Names returns the term names in order, aligned with Coefs.
func (d *Description) Names() []string {
	out := make([]string, len(d.Coefs))
	for i := range out {
		out[i] = d.Ordering.TermName(i)
	}
	return out
}

// MagnitudeAngle is the polar representation of a paired term family:
// the L2 magnitude of the X/Y (or 0°/45°) pair and its orientation in
// degrees.
type MagnitudeAngle struct {
	Magnitude float64
	Angle     float64
}

// Magnitudes folds paired terms (X/Y, 0°/45°) into magnitude and angle,
// keyed by the family name with the orientation suffix stripped.
// Rotationally symmetric terms keep their full name and a zero angle.
func (d *Description) Magnitudes() map[string]MagnitudeAngle {
	type pair struct{ y, x float64 } // y holds the Y or 0° member
	pairs := make(map[string]pair)

	for i, coef := range d.Coefs {
		name := d.Ordering.TermName(i)
		base, slot := splitOrientation(name)
		p := pairs[base]
		if slot == 0 {
			p.y = coef
		} else {
			p.x = coef
		}
		pairs[base] = p
	}

	out := make(map[string]MagnitudeAngle, len(pairs))
	for name, p := range pairs {
		ma := MagnitudeAngle{Magnitude: math.Hypot(p.y, p.x)}
		if !symmetric(name) {
			ma.Angle = math.Atan2(p.y, p.x) * 180 / math.Pi
		}
		out[name] = ma
	}
	return out
}

// splitOrientation strips a trailing orientation marker from a term
// name, returning the family name and which pair slot the term fills
// (0 for Y/0°, 1 for X/45°).
func splitOrientation(name string) (string, int) {
	switch {
	case strings.HasSuffix(name, " Y"):
		return strings.TrimSuffix(name, " Y"), 0
	case strings.HasSuffix(name, " X"):
		return strings.TrimSuffix(name, " X"), 1
	case strings.HasSuffix(name, " 45°"):
		return strings.TrimSuffix(name, " 45°"), 1
	case strings.HasSuffix(name, " 0°"):
		return strings.TrimSuffix(name, " 0°"), 0
	default:
		return name, 0
	}
}

// symmetric reports whether a term family is rotationally symmetric, in
// which case an orientation angle is meaningless.
func symmetric(name string) bool {
	return strings.Contains(name, "Spherical") ||
		strings.Contains(name, "Defocus") ||
		strings.Contains(name, "Piston")
}

// TermWeight names one coefficient for ranking.
type TermWeight struct {
	Value  float64
	Number int // user-facing term number (base applied)
	Name   string
}

// TopN returns the n largest-magnitude terms, descending.
func (d *Description) TopN(n int) []TermWeight {
	all := make([]TermWeight, len(d.Coefs))
	for i, coef := range d.Coefs {
		all[i] = TermWeight{Value: coef, Number: i + d.Base, Name: d.Ordering.TermName(i)}
	}
	sort.SliceStable(all, func(a, b int) bool {
		return math.Abs(all[a].Value) > math.Abs(all[b].Value)
	})
	if n > len(all) {
		n = len(all)
	}
	return all[:n]
}

// Truncate keeps only the first n terms. Requests beyond the current
// length leave the description unchanged.
func (d *Description) Truncate(n int) *Description {
	if n < len(d.Coefs) {
		d.Coefs = d.Coefs[:n]
	}
	return d
}

// TruncateTopN zeroes all but the n largest-magnitude terms.
func (d *Description) TruncateTopN(n int) *Description {
	keep := d.TopN(n)
	coefs := make([]float64, len(d.Coefs))
	for _, tw := range keep {
		coefs[tw.Number-d.Base] = tw.Value
	}
	d.Coefs = coefs
	return d
}

// String pretty-prints the description: non-zero signed coefficients
// with term numbers and names, and a PV/RMS footer evaluated over the
// unit circle.
func (d *Description) String() string {
	var b strings.Builder
	if d.Normalize {
		b.WriteString(fmt.Sprintf("rms normalized %s Zernike description with:\n", d.Ordering))
	} else {
		b.WriteString(fmt.Sprintf("%s Zernike description with:\n", d.Ordering))
	}
	for i, coef := range d.Coefs {
		if coef == 0 {
			continue
		}
		sign := ""
		if coef > 0 {
			sign = "+"
		}
		fmt.Fprintf(&b, "\t%s%.3f Z%d - %s\n", sign, coef, i+d.Base, d.Ordering.TermName(i))
	}

	const samples = 64
	phase := d.Synthesize(samples)
	rho, _ := grid.PolarGrid(samples)
	for i, r := range rho {
		if r > 1 {
			phase[i] = math.NaN()
		}
	}
	fmt.Fprintf(&b, "\t%.3f PV, %.3f RMS", grid.PV(phase), grid.RMS(phase))
	return b.String()
}
