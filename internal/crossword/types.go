// internal/crossword/types.go
//
// Core type definitions for the crossword stage.
// Defines:
//   - Grid: rectangular cells, nil for a blocked cell, otherwise a letter.
//   - Clue: an answer anchored at a cell with a direction.
//   - Puzzle: solution grid + clues + the coordinate unlocked on solve.

package crossword

import (
	"fmt"
	"strings"
)

// Grid is a row-major crossword grid. A nil cell is blocked; a non-nil cell
// holds a letter (in a solution) or the player's entry (in a submission).
type Grid [][]*string

// Direction of a clue.
type Direction string

const (
	Across Direction = "across"
	Down   Direction = "down"
)

// ParseDirection accepts across/down and their horizontal/vertical aliases.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "across", "horizontal", "a":
		return Across, nil
	case "down", "vertical", "d":
		return Down, nil
	}
	return "", fmt.Errorf("unknown direction %q", s)
}

// Coordinate is the map location revealed after a correct solve.
type Coordinate struct {
	R int `json:"r" yaml:"r"`
	C int `json:"c" yaml:"c"`
}

// Clue is a single entry of the puzzle.
type Clue struct {
	ID        string    `json:"id" yaml:"id"`
	Direction Direction `json:"direction" yaml:"direction"`
	Row       int       `json:"r" yaml:"r"`
	Col       int       `json:"c" yaml:"c"`
	Length    int       `json:"length" yaml:"length"`
	Text      string    `json:"clue" yaml:"clue"`
	Answer    string    `json:"answer" yaml:"answer"`
}

// Puzzle holds the solution. It is reference data, seeded out of band.
type Puzzle struct {
	ID         string     `json:"id"`
	Code       string     `json:"code"`
	Grid       Grid       `json:"grid"`
	Clues      []Clue     `json:"clues"`
	Coordinate Coordinate `json:"coordinate"`
}

// Result is the outcome of grading a submission.
type Result struct {
	OK         bool        `json:"ok"`
	Coordinate *Coordinate `json:"coordinate,omitempty"`
}
