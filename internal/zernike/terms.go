// Package zernike implements synthesis and least-squares fitting of
// Zernike polynomial wavefront descriptions in the Fringe and Noll
// orderings, with RMS normalization and a cache of evaluated term grids.
//
// Radial polynomials follow the Wyant tabulation; see
// http://wp.optics.arizona.edu/jcwyant/ for the reference tables.
package zernike

import "math"

// Term describes one Zernike polynomial: a human-readable name, the
// factor that scales the term to unit RMS over the unit circle, and its
// polar evaluation function.
type Term struct {
	Name string
	Norm float64
	Fn   func(rho, phi float64) float64
}

var sqrt = math.Sqrt

// terms is the canonical table. Orderings index into this table.
var terms = []Term{
	{"Piston", 1, func(rho, phi float64) float64 {
		return 1
	}},
	{"Tilt Y", 2, func(rho, phi float64) float64 {
		return rho * math.Cos(phi)
	}},
	{"Tilt X", 2, func(rho, phi float64) float64 {
		return rho * math.Sin(phi)
	}},
	{"Defocus", sqrt(3), func(rho, phi float64) float64 {
		return 2*rho*rho - 1
	}},
	{"Primary Astigmatism 0°", sqrt(6), func(rho, phi float64) float64 {
		return rho * rho * math.Cos(2*phi)
	}},
	{"Primary Astigmatism 45°", sqrt(6), func(rho, phi float64) float64 {
		return rho * rho * math.Sin(2*phi)
	}},
	{"Primary Coma Y", 2 * sqrt(2), func(rho, phi float64) float64 {
		return (-2*rho + 3*pow(rho, 3)) * math.Cos(phi)
	}},
	{"Primary Coma X", 2 * sqrt(2), func(rho, phi float64) float64 {
		return (-2*rho + 3*pow(rho, 3)) * math.Sin(phi)
	}},
	{"Primary Spherical", sqrt(5), func(rho, phi float64) float64 {
		return 6*pow(rho, 4) - 6*rho*rho + 1
	}},
	{"Primary Trefoil Y", 2 * sqrt(2), func(rho, phi float64) float64 {
		return pow(rho, 3) * math.Cos(3*phi)
	}},
	{"Primary Trefoil X", 2 * sqrt(2), func(rho, phi float64) float64 {
		return pow(rho, 3) * math.Sin(3*phi)
	}},
	{"Secondary Astigmatism 0°", sqrt(10), func(rho, phi float64) float64 {
		return (-3*rho*rho + 4*pow(rho, 4)) * math.Cos(2*phi)
	}},
	{"Secondary Astigmatism 45°", sqrt(10), func(rho, phi float64) float64 {
		return (-3*rho*rho + 4*pow(rho, 4)) * math.Sin(2*phi)
	}},
	{"Secondary Coma Y", 2 * sqrt(3), func(rho, phi float64) float64 {
		return (3*rho - 12*pow(rho, 3) + 10*pow(rho, 5)) * math.Cos(phi)
	}},
	{"Secondary Coma X", 2 * sqrt(3), func(rho, phi float64) float64 {
		return (3*rho - 12*pow(rho, 3) + 10*pow(rho, 5)) * math.Sin(phi)
	}},
	{"Secondary Spherical", sqrt(7), func(rho, phi float64) float64 {
		return 20*pow(rho, 6) - 30*pow(rho, 4) + 12*rho*rho - 1
	}},
	{"Primary Tetrafoil Y", sqrt(10), func(rho, phi float64) float64 {
		return pow(rho, 4) * math.Cos(4*phi)
	}},
	{"Primary Tetrafoil X", sqrt(10), func(rho, phi float64) float64 {
		return pow(rho, 4) * math.Sin(4*phi)
	}},
	{"Secondary Trefoil Y", 2 * sqrt(3), func(rho, phi float64) float64 {
		return (5*pow(rho, 5) - 4*pow(rho, 3)) * math.Cos(3*phi)
	}},
	{"Secondary Trefoil X", 2 * sqrt(3), func(rho, phi float64) float64 {
		return (5*pow(rho, 5) - 4*pow(rho, 3)) * math.Sin(3*phi)
	}},
	{"Tertiary Astigmatism 0°", sqrt(14), func(rho, phi float64) float64 {
		return (6*rho*rho - 20*pow(rho, 4) + 15*pow(rho, 6)) * math.Cos(2*phi)
	}},
	{"Tertiary Astigmatism 45°", sqrt(14), func(rho, phi float64) float64 {
		return (6*rho*rho - 20*pow(rho, 4) + 15*pow(rho, 6)) * math.Sin(2*phi)
	}},
	{"Tertiary Coma Y", 4, func(rho, phi float64) float64 {
		return (-4*rho + 30*pow(rho, 3) - 60*pow(rho, 5) + 35*pow(rho, 7)) * math.Cos(phi)
	}},
	{"Tertiary Coma X", 4, func(rho, phi float64) float64 {
		return (-4*rho + 30*pow(rho, 3) - 60*pow(rho, 5) + 35*pow(rho, 7)) * math.Sin(phi)
	}},
	{"Tertiary Spherical", 3, func(rho, phi float64) float64 {
		return 70*pow(rho, 8) - 140*pow(rho, 6) + 90*pow(rho, 4) - 20*rho*rho + 1
	}},
	{"Primary Pentafoil Y", 2 * sqrt(3), func(rho, phi float64) float64 {
		return pow(rho, 5) * math.Cos(5*phi)
	}},
	{"Primary Pentafoil X", 2 * sqrt(3), func(rho, phi float64) float64 {
		return pow(rho, 5) * math.Sin(5*phi)
	}},
	{"Secondary Tetrafoil Y", sqrt(14), func(rho, phi float64) float64 {
		return (6*pow(rho, 6) - 5*pow(rho, 4)) * math.Cos(4*phi)
	}},
	{"Secondary Tetrafoil X", sqrt(14), func(rho, phi float64) float64 {
		return (6*pow(rho, 6) - 5*pow(rho, 4)) * math.Sin(4*phi)
	}},
	{"Tertiary Trefoil Y", 4, func(rho, phi float64) float64 {
		return (10*pow(rho, 3) - 30*pow(rho, 5) + 21*pow(rho, 7)) * math.Cos(3*phi)
	}},
	{"Tertiary Trefoil X", 4, func(rho, phi float64) float64 {
		return (10*pow(rho, 3) - 30*pow(rho, 5) + 21*pow(rho, 7)) * math.Sin(3*phi)
	}},
	{"Quaternary Astigmatism 0°", 3 * sqrt(2), func(rho, phi float64) float64 {
		return (10*rho*rho - 30*pow(rho, 4) + 21*pow(rho, 6)) * math.Cos(2*phi)
	}},
	{"Quaternary Astigmatism 45°", 3 * sqrt(2), func(rho, phi float64) float64 {
		return (10*rho*rho - 30*pow(rho, 4) + 21*pow(rho, 6)) * math.Sin(2*phi)
	}},
	{"Quaternary Coma Y", 2 * sqrt(5), func(rho, phi float64) float64 {
		return (5*rho - 60*pow(rho, 3) + 210*pow(rho, 5) - 280*pow(rho, 7) + 126*pow(rho, 9)) * math.Cos(phi)
	}},
	{"Quaternary Coma X", 2 * sqrt(5), func(rho, phi float64) float64 {
		return (5*rho - 60*pow(rho, 3) + 210*pow(rho, 5) - 280*pow(rho, 7) + 126*pow(rho, 9)) * math.Sin(phi)
	}},
	{"Quaternary Spherical", sqrt(11), func(rho, phi float64) float64 {
		return 252*pow(rho, 10) - 630*pow(rho, 8) + 560*pow(rho, 6) - 210*pow(rho, 4) + 30*rho*rho - 1
	}},
	{"Primary Hexafoil Y", sqrt(14), func(rho, phi float64) float64 {
		return pow(rho, 6) * math.Cos(6*phi)
	}},
	{"Primary Hexafoil X", sqrt(14), func(rho, phi float64) float64 {
		return pow(rho, 6) * math.Sin(6*phi)
	}},
	{"Secondary Pentafoil Y", 4, func(rho, phi float64) float64 {
		return (7*pow(rho, 7) - 6*pow(rho, 5)) * math.Cos(5*phi)
	}},
	{"Secondary Pentafoil X", 4, func(rho, phi float64) float64 {
		return (7*pow(rho, 7) - 6*pow(rho, 5)) * math.Sin(5*phi)
	}},
	{"Tertiary Tetrafoil Y", 3 * sqrt(2), func(rho, phi float64) float64 {
		return (28*pow(rho, 8) - 42*pow(rho, 6) + 15*pow(rho, 4)) * math.Cos(4*phi)
	}},
	{"Tertiary Tetrafoil X", 3 * sqrt(2), func(rho, phi float64) float64 {
		return (28*pow(rho, 8) - 42*pow(rho, 6) + 15*pow(rho, 4)) * math.Sin(4*phi)
	}},
	{"Quaternary Trefoil Y", 2 * sqrt(5), func(rho, phi float64) float64 {
		return (84*pow(rho, 9) - 168*pow(rho, 7) + 105*pow(rho, 5) - 20*pow(rho, 3)) * math.Cos(3*phi)
	}},
	{"Quaternary Trefoil X", 2 * sqrt(5), func(rho, phi float64) float64 {
		return (84*pow(rho, 9) - 168*pow(rho, 7) + 105*pow(rho, 5) - 20*pow(rho, 3)) * math.Sin(3*phi)
	}},
	{"Quinternary Astigmatism 0°", sqrt(22), func(rho, phi float64) float64 {
		return (210*pow(rho, 10) - 504*pow(rho, 8) + 420*pow(rho, 6) - 140*pow(rho, 4) + 15*rho*rho) * math.Cos(2*phi)
	}},
	{"Quinternary Astigmatism 45°", sqrt(22), func(rho, phi float64) float64 {
		return (210*pow(rho, 10) - 504*pow(rho, 8) + 420*pow(rho, 6) - 140*pow(rho, 4) + 15*rho*rho) * math.Sin(2*phi)
	}},
	{"Quinternary Coma Y", 2 * sqrt(6), func(rho, phi float64) float64 {
		return (462*pow(rho, 11) - 1260*pow(rho, 9) + 1260*pow(rho, 7) - 560*pow(rho, 5) + 105*pow(rho, 3) - 6*rho) * math.Cos(phi)
	}},
	{"Quinternary Coma X", 2 * sqrt(6), func(rho, phi float64) float64 {
		return (462*pow(rho, 11) - 1260*pow(rho, 9) + 1260*pow(rho, 7) - 560*pow(rho, 5) + 105*pow(rho, 3) - 6*rho) * math.Sin(phi)
	}},
	{"Quinternary Spherical", sqrt(13), func(rho, phi float64) float64 {
		return 924*pow(rho, 12) - 2772*pow(rho, 10) + 3150*pow(rho, 8) - 1680*pow(rho, 6) + 420*pow(rho, 4) - 42*rho*rho + 1
	}},
	{"Primary Septafoil Y", 4, func(rho, phi float64) float64 {
		return 4 * pow(rho, 7) * math.Cos(7*phi)
	}},
	{"Primary Septafoil X", 4, func(rho, phi float64) float64 {
		return 4 * pow(rho, 7) * math.Sin(7*phi)
	}},
}

// pow is an integer-exponent power for polynomial evaluation.
func pow(x float64, n int) float64 {
	out := 1.0
	for i := 0; i < n; i++ {
		out *= x
	}
	return out
}

// TermCount returns the number of polynomials in the canonical table.
func TermCount() int { return len(terms) }

// TermAt returns the canonical table entry at idx.
func TermAt(idx int) Term { return terms[idx] }
