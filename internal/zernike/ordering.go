package zernike

import "fmt"

// Ordering selects the numbering convention mapping user-facing term
// indices onto the canonical table.
type Ordering int

const (
	// Fringe is the Wyant/Fringe ordering; identical to the canonical
	// table order over its first 49 terms.
	Fringe Ordering = iota
	// Noll is the Noll ordering used by much of the adaptive-optics
	// literature.
	Noll
)

// fringeMap is the identity over the first 49 canonical terms.
var fringeMap = func() []int {
	m := make([]int, 49)
	for i := range m {
		m[i] = i
	}
	return m
}()

// nollMap permutes the first 37 Noll indices onto the canonical table.
var nollMap = []int{
	0, 1, 2, 3, 4, 5, 6, 7, 9, 10,
	8, 11, 12, 16, 17, 13, 14, 18, 19, 25,
	26, 15, 20, 21, 27, 28, 36, 37, 22, 23,
	29, 30, 38, 39, 49, 50, 24,
}

func (o Ordering) table() []int {
	switch o {
	case Noll:
		return nollMap
	default:
		return fringeMap
	}
}

// Len returns the number of terms addressable in this ordering.
func (o Ordering) Len() int { return len(o.table()) }

// Canonical maps a zero-based index in this ordering onto the canonical
// table index.
func (o Ordering) Canonical(idx int) int { return o.table()[idx] }

// TermName returns the name of the term at the given zero-based index.
func (o Ordering) TermName(idx int) string {
	return terms[o.Canonical(idx)].Name
}

func (o Ordering) String() string {
	switch o {
	case Noll:
		return "noll"
	default:
		return "fringe"
	}
}

// ParseOrdering resolves an ordering from its lowercase name.
func ParseOrdering(s string) (Ordering, error) {
	switch s {
	case "fringe":
		return Fringe, nil
	case "noll":
		return Noll, nil
	default:
		return Fringe, fmt.Errorf("zernike: unknown ordering %q (want fringe or noll)", s)
	}
}
