// internal/design/placement.go
//
// Grid-placement legality for payload components.
//
// A component occupies a span×span square anchored at (row, col). A set of
// placements is legal iff every footprint lies inside the size×size grid and
// no two footprints share a cell. Any violation rejects the whole set.

package design

import (
	"github.com/robalobadob/satquest/internal/apperr"
)

// Footprint is the square area a placed component occupies.
type Footprint struct {
	Row, Col, Span int
}

// CheckPlacement validates footprints against a size×size grid.
// It returns an apperr.KindInvalidPlacement error describing the first violation.
func CheckPlacement(size int, fps []Footprint) error {
	// owner[r][c] holds 1 + index of the footprint covering the cell.
	owner := make([][]int, size)
	for r := range owner {
		owner[r] = make([]int, size)
	}

	for i, fp := range fps {
		if fp.Span <= 0 {
			return apperr.New(apperr.KindInvalidPlacement, "component %d has non-positive span %d", i+1, fp.Span)
		}
		if fp.Row < 0 || fp.Col < 0 || fp.Row > size-fp.Span || fp.Col > size-fp.Span {
			return apperr.New(apperr.KindInvalidPlacement,
				"component %d (span %d at %d,%d) is outside the %dx%d grid",
				i+1, fp.Span, fp.Row, fp.Col, size, size)
		}
		for r := fp.Row; r < fp.Row+fp.Span; r++ {
			for c := fp.Col; c < fp.Col+fp.Span; c++ {
				if prev := owner[r][c]; prev != 0 {
					return apperr.New(apperr.KindInvalidPlacement,
						"component %d overlaps component %d at %d,%d", i+1, prev, r, c)
				}
				owner[r][c] = i + 1
			}
		}
	}
	return nil
}
