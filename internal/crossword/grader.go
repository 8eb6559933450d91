// internal/crossword/grader.go
//
// Grading and sanitizing of crossword grids.
//
// Grading rules:
//   - Only cells holding a required letter in the solution are checked.
//   - Comparison is case-insensitive and ignores surrounding whitespace.
//   - Missing rows/cells in the submission count as empty.
//   - A puzzle with no required cells is always solved.

package crossword

import "strings"

// Grade checks filled against the puzzle's solution grid.
func Grade(p *Puzzle, filled Grid) Result {
	if !Matches(p.Grid, filled) {
		return Result{OK: false}
	}
	coord := p.Coordinate
	return Result{OK: true, Coordinate: &coord}
}

// Matches reports whether every required letter of solution is present in filled.
// It stops at the first mismatch.
func Matches(solution, filled Grid) bool {
	for r, row := range solution {
		for c, cell := range row {
			want := normalizeCell(cell)
			if want == "" {
				continue
			}
			if normalizeCell(filled.at(r, c)) != want {
				return false
			}
		}
	}
	return true
}

// RequiredCells counts the letter cells of a grid.
func RequiredCells(g Grid) int {
	n := 0
	for _, row := range g {
		for _, cell := range row {
			if normalizeCell(cell) != "" {
				n++
			}
		}
	}
	return n
}

// Sanitize hides the solution: blocked cells stay nil, letter cells become "".
func Sanitize(solution Grid) Grid {
	out := make(Grid, len(solution))
	for r, row := range solution {
		out[r] = make([]*string, len(row))
		for c, cell := range row {
			if cell != nil {
				empty := ""
				out[r][c] = &empty
			}
		}
	}
	return out
}

// at returns the cell at (r, c), or nil when out of range.
func (g Grid) at(r, c int) *string {
	if r < 0 || r >= len(g) || c < 0 || c >= len(g[r]) {
		return nil
	}
	return g[r][c]
}

func normalizeCell(cell *string) string {
	if cell == nil {
		return ""
	}
	return strings.ToUpper(strings.TrimSpace(*cell))
}
