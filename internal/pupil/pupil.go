// Package pupil models the wavefront at an optical aperture plane: a
// square phase grid with physical unit axes, a wavelength, and an
// aperture mask. Pupils combine pointwise and convert to the complex
// wavefunction consumed by diffraction propagation.
package pupil

import (
	"fmt"
	"math"

	"github.com/aperture-data/wavefront.report/internal/geometry"
	"github.com/aperture-data/wavefront.report/internal/grid"
	"github.com/aperture-data/wavefront.report/internal/zernike"
)

// MaskTarget selects which representations an aperture mask is applied to.
type MaskTarget int

const (
	// MaskBoth marks out-of-aperture phase samples NaN and zeroes the
	// wavefunction amplitude there.
	MaskBoth MaskTarget = iota
	// MaskPhase only NaNs the phase grid; amplitude stays uniform.
	MaskPhase
	// MaskFcn only shapes the wavefunction amplitude; phase stays intact.
	MaskFcn
	// MaskNone disables mask application.
	MaskNone
)

// Phase units accepted by the pupil.
const (
	UnitNm    = "nm"
	UnitUm    = "um"
	UnitWaves = "waves"
)

// Pupil is a square phase map over a circular (or otherwise masked)
// aperture. Phase is flat row-major with Samples stride.
type Pupil struct {
	Samples    int
	Dia        float64 // aperture diameter, mm
	Wavelength float64 // µm
	PhaseUnit  string
	Phase      []float64
	UX, UY     []float64 // spatial axes, mm, spanning ±Dia/2

	MaskName string
	Mask     []float64
	Target   MaskTarget
}

// Option mutates pupil construction parameters.
type Option func(*settings)

type settings struct {
	samples    int
	dia        float64
	wavelength float64
	phaseUnit  string
	maskName   string
	maskRadius float64
	maskGrid   []float64
	target     MaskTarget
	ux, uy     []float64
	phase      []float64
}

// WithSamples sets the grid side length.
func WithSamples(n int) Option { return func(s *settings) { s.samples = n } }

// WithDia sets the aperture diameter in mm.
func WithDia(mm float64) Option { return func(s *settings) { s.dia = mm } }

// WithWavelength sets the wavelength in µm.
func WithWavelength(um float64) Option { return func(s *settings) { s.wavelength = um } }

// WithPhaseUnit sets the unit phase values are expressed in.
func WithPhaseUnit(unit string) Option { return func(s *settings) { s.phaseUnit = unit } }

// WithMask selects a named aperture shape at the given normalized radius.
func WithMask(shape string, radius float64) Option {
	return func(s *settings) {
		s.maskName = shape
		s.maskRadius = radius
		s.maskGrid = nil
	}
}

// WithMaskGrid injects an explicit mask array.
func WithMaskGrid(mask []float64) Option {
	return func(s *settings) {
		s.maskGrid = mask
		s.maskName = "custom"
	}
}

// WithMaskTarget controls what the mask is applied to.
func WithMaskTarget(t MaskTarget) Option { return func(s *settings) { s.target = t } }

// WithData injects phase data and unit axes directly, bypassing
// synthesis. Axes may be nil to derive them from the diameter.
func WithData(ux, uy, phase []float64) Option {
	return func(s *settings) {
		s.ux, s.uy, s.phase = ux, uy, phase
	}
}

func defaults() settings {
	return settings{
		samples:    128,
		dia:        1,
		wavelength: 0.5,
		phaseUnit:  UnitNm,
		maskName:   "circle",
		maskRadius: 1,
		target:     MaskBoth,
	}
}

// New builds a pupil with a flat (zero) wavefront unless phase data is
// injected via WithData.
func New(opts ...Option) (*Pupil, error) {
	s := defaults()
	for _, opt := range opts {
		opt(&s)
	}
	return build(&s)
}

// FromZernike builds a pupil whose phase is synthesized from a Zernike
// description, expressed in the pupil's phase unit.
func FromZernike(d *zernike.Description, opts ...Option) (*Pupil, error) {
	s := defaults()
	for _, opt := range opts {
		opt(&s)
	}
	s.phase = d.Synthesize(s.samples)
	return build(&s)
}

func build(s *settings) (*Pupil, error) {
	if s.samples < 2 {
		return nil, fmt.Errorf("pupil: need at least 2 samples per side, got %d", s.samples)
	}
	if s.dia <= 0 {
		return nil, fmt.Errorf("pupil: diameter must be positive, got %v", s.dia)
	}
	if s.wavelength <= 0 {
		return nil, fmt.Errorf("pupil: wavelength must be positive, got %v", s.wavelength)
	}
	switch s.phaseUnit {
	case UnitNm, UnitUm, UnitWaves:
	default:
		return nil, fmt.Errorf("pupil: unknown phase unit %q", s.phaseUnit)
	}

	n := s.samples
	if s.phase == nil {
		s.phase = make([]float64, n*n)
	} else if len(s.phase) != n*n {
		return nil, fmt.Errorf("pupil: phase length %d does not match %d x %d", len(s.phase), n, n)
	} else {
		s.phase = append([]float64(nil), s.phase...)
	}

	var mask []float64
	if s.target != MaskNone {
		if s.maskGrid != nil {
			if len(s.maskGrid) != n*n {
				return nil, fmt.Errorf("pupil: mask length %d does not match %d x %d", len(s.maskGrid), n, n)
			}
			mask = append([]float64(nil), s.maskGrid...)
		} else {
			var err error
			mask, err = geometry.Mask(s.maskName, n, s.maskRadius)
			if err != nil {
				return nil, err
			}
		}
	}

	ux := s.ux
	uy := s.uy
	if ux == nil {
		ux = grid.Linspace(-s.dia/2, s.dia/2, n)
	}
	if uy == nil {
		uy = grid.Linspace(-s.dia/2, s.dia/2, n)
	}

	p := &Pupil{
		Samples:    n,
		Dia:        s.dia,
		Wavelength: s.wavelength,
		PhaseUnit:  s.phaseUnit,
		Phase:      s.phase,
		UX:         ux,
		UY:         uy,
		MaskName:   s.maskName,
		Mask:       mask,
		Target:     s.target,
	}
	p.applyMask()
	return p, nil
}

// applyMask marks out-of-aperture phase samples NaN when the target
// includes the phase representation. The array shape never changes.
func (p *Pupil) applyMask() {
	if p.Mask == nil || (p.Target != MaskPhase && p.Target != MaskBoth) {
		return
	}
	for i, m := range p.Mask {
		if m == 0 {
			p.Phase[i] = math.NaN()
		}
	}
}

// SampleSpacing returns the distance between adjacent samples in mm.
func (p *Pupil) SampleSpacing() float64 {
	return p.Dia / float64(p.Samples-1)
}

// PV returns the peak-to-valley phase over the aperture.
func (p *Pupil) PV() float64 { return grid.PV(p.Phase) }

// RMS returns the RMS phase over the aperture.
func (p *Pupil) RMS() float64 { return grid.RMS(p.Phase) }

// Ra returns the average absolute phase deviation over the aperture.
func (p *Pupil) Ra() float64 { return grid.Ra(p.Phase) }

// Strehl estimates the Strehl ratio from the RMS wavefront error via
// the extended Maréchal approximation.
func (p *Pupil) Strehl() float64 {
	sigma := p.phaseToWaves(p.RMS())
	x := 2 * math.Pi * sigma
	return math.Exp(-x * x)
}

// phaseToWaves converts a phase value in the pupil's unit to waves.
func (p *Pupil) phaseToWaves(v float64) float64 {
	switch p.PhaseUnit {
	case UnitWaves:
		return v
	case UnitUm:
		return v / p.Wavelength
	default: // nm
		return v / (p.Wavelength * 1e3)
	}
}

// ConvertPhase rescales the phase grid to another unit in place.
// Conversions are reversible scalar rescalings.
func (p *Pupil) ConvertPhase(unit string) error {
	factor, err := phaseScale(p.PhaseUnit, unit, p.Wavelength)
	if err != nil {
		return err
	}
	grid.Scale(p.Phase, factor)
	p.PhaseUnit = unit
	return nil
}

// phaseScale returns the multiplicative factor converting phase values
// from one unit to another at the given wavelength (µm).
func phaseScale(from, to string, wavelength float64) (float64, error) {
	toNm := map[string]float64{
		UnitNm:    1,
		UnitUm:    1e3,
		UnitWaves: wavelength * 1e3,
	}
	f, ok := toNm[from]
	if !ok {
		return 0, fmt.Errorf("pupil: unknown phase unit %q", from)
	}
	t, ok := toNm[to]
	if !ok {
		return 0, fmt.Errorf("pupil: unknown phase unit %q", to)
	}
	return f / t, nil
}

// combine returns a pupil whose phase is the pointwise combination of p
// and q. NaN (masked) samples poison the result sample, leaving the
// masked region undefined as usage requires.
func (p *Pupil) combine(q *Pupil, sign float64) (*Pupil, error) {
	if p.Samples != q.Samples {
		return nil, fmt.Errorf("pupil: cannot combine %d-sample and %d-sample pupils", p.Samples, q.Samples)
	}
	if p.PhaseUnit != q.PhaseUnit {
		return nil, fmt.Errorf("pupil: cannot combine phase units %q and %q", p.PhaseUnit, q.PhaseUnit)
	}
	out := p.clone()
	for i := range out.Phase {
		out.Phase[i] = p.Phase[i] + sign*q.Phase[i]
	}
	return out, nil
}

// Add returns the pointwise sum of two pupils' phase grids.
func (p *Pupil) Add(q *Pupil) (*Pupil, error) { return p.combine(q, 1) }

// Sub returns the pointwise difference of two pupils' phase grids.
func (p *Pupil) Sub(q *Pupil) (*Pupil, error) { return p.combine(q, -1) }

func (p *Pupil) clone() *Pupil {
	out := *p
	out.Phase = append([]float64(nil), p.Phase...)
	out.UX = append([]float64(nil), p.UX...)
	out.UY = append([]float64(nil), p.UY...)
	if p.Mask != nil {
		out.Mask = append([]float64(nil), p.Mask...)
	}
	return &out
}

// Wavefunction returns the complex pupil field A*exp(i*2π*φ) with the
// phase converted to waves. Masked (NaN) phase samples contribute zero
// phase; the amplitude carries the mask when the target includes the
// wavefunction.
func (p *Pupil) Wavefunction() []complex128 {
	out := make([]complex128, len(p.Phase))
	useMask := p.Mask != nil && (p.Target == MaskFcn || p.Target == MaskBoth)
	for i, v := range p.Phase {
		amp := 1.0
		if useMask {
			amp = p.Mask[i]
		}
		waves := 0.0
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			waves = p.phaseToWaves(v)
		}
		angle := 2 * math.Pi * waves
		out[i] = complex(amp*math.Cos(angle), amp*math.Sin(angle))
	}
	return out
}

func (p *Pupil) String() string {
	return fmt.Sprintf("Pupil(%dx%d, dia %.3gmm, λ %.4gµm, %s phase, %s mask): %.3f PV, %.3f RMS",
		p.Samples, p.Samples, p.Dia, p.Wavelength, p.PhaseUnit, p.MaskName, p.PV(), p.RMS())
}
