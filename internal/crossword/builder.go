// internal/crossword/builder.go
//
// Offline puzzle construction for seeding.
//
// Build places every clue's answer on an empty rows×cols grid and enforces the
// seed-time invariant: each answer fits in bounds, matches its declared length,
// and agrees with any letter already placed by a crossing clue. Cells no clue
// covers remain blocked. The runtime grader never re-checks this.

package crossword

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/robalobadob/satquest/assets"
)

// ErrInvalidPuzzle marks seed data that violates the layout invariant.
var ErrInvalidPuzzle = errors.New("invalid puzzle")

// Build lays out clues on a fresh grid. It returns the solution grid and the
// normalized clues (uppercase answers, canonical direction, length filled in).
func Build(rows, cols int, clues []Clue) (Grid, []Clue, error) {
	if rows <= 0 || cols <= 0 {
		return nil, nil, fmt.Errorf("%w: grid must be at least 1x1, got %dx%d", ErrInvalidPuzzle, rows, cols)
	}
	grid := make(Grid, rows)
	for r := range grid {
		grid[r] = make([]*string, cols)
	}

	out := make([]Clue, 0, len(clues))
	for _, cl := range clues {
		dir, err := ParseDirection(string(cl.Direction))
		if err != nil {
			return nil, nil, fmt.Errorf("%w: clue %s: %v", ErrInvalidPuzzle, cl.ID, err)
		}
		answer := strings.ToUpper(strings.TrimSpace(cl.Answer))
		if answer == "" {
			return nil, nil, fmt.Errorf("%w: clue %s has no answer", ErrInvalidPuzzle, cl.ID)
		}
		letters := []rune(answer)
		if cl.Length != 0 && cl.Length != len(letters) {
			return nil, nil, fmt.Errorf("%w: clue %s length %d but answer has %d letters",
				ErrInvalidPuzzle, cl.ID, cl.Length, len(letters))
		}

		dr, dc := 0, 1
		if dir == Down {
			dr, dc = 1, 0
		}
		endR, endC := cl.Row+dr*(len(letters)-1), cl.Col+dc*(len(letters)-1)
		if cl.Row < 0 || cl.Col < 0 || endR >= rows || endC >= cols {
			return nil, nil, fmt.Errorf("%w: clue %s runs off the %dx%d grid", ErrInvalidPuzzle, cl.ID, rows, cols)
		}

		for i, ch := range letters {
			r, c := cl.Row+dr*i, cl.Col+dc*i
			letter := string(ch)
			if existing := grid[r][c]; existing != nil && *existing != letter {
				return nil, nil, fmt.Errorf("%w: clue %s puts %q at (%d,%d) where %q already is",
					ErrInvalidPuzzle, cl.ID, letter, r, c, *existing)
			}
			grid[r][c] = &letter
		}

		cl.Direction = dir
		cl.Answer = answer
		cl.Length = len(letters)
		out = append(out, cl)
	}
	return grid, out, nil
}

// seedFile is the YAML document consumed by `satquest seed`.
type seedFile struct {
	Puzzles []struct {
		Code       string     `yaml:"code"`
		Rows       int        `yaml:"rows"`
		Cols       int        `yaml:"cols"`
		Coordinate Coordinate `yaml:"coordinate"`
		Clues      []Clue     `yaml:"clues"`
	} `yaml:"puzzles"`
}

// LoadSeed reads a seed document from path; an empty path selects the embedded set.
func LoadSeed(path string) ([]*Puzzle, error) {
	var (
		data []byte
		err  error
	)
	if path == "" {
		data, err = assets.Puzzles()
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	return ParseSeed(data)
}

// ParseSeed decodes a seed document and builds every puzzle in it.
func ParseSeed(data []byte) ([]*Puzzle, error) {
	var doc seedFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	out := make([]*Puzzle, 0, len(doc.Puzzles))
	for _, sp := range doc.Puzzles {
		grid, clues, err := Build(sp.Rows, sp.Cols, sp.Clues)
		if err != nil {
			return nil, fmt.Errorf("puzzle %s: %w", sp.Code, err)
		}
		out = append(out, &Puzzle{
			Code:       sp.Code,
			Grid:       grid,
			Clues:      clues,
			Coordinate: sp.Coordinate,
		})
	}
	return out, nil
}
