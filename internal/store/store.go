// internal/store/store.go
//
// Persistence interface for teams, puzzles and designs.
// Implementations: memory (this package, for tests/dev) and SQLite (sqlite.go).
//
// Both implementations guarantee that CommitDesign is a single atomic unit:
// the design row, the coin debit and the team→design link are applied
// together or not at all, and at most one design ever links to a team.

package store

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/robalobadob/satquest/internal/crossword"
	"github.com/robalobadob/satquest/internal/design"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicateName     = errors.New("team name taken")
	ErrDuplicateCode     = errors.New("team code taken")
	ErrAlreadySubmitted  = errors.New("design already submitted")
	ErrInsufficientFunds = errors.New("insufficient coins")
	ErrCoinOverflow      = errors.New("coin balance out of range")
)

// Member is one of the three people on a team.
type Member struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// CrosswordStage tracks the team's puzzle progress.
type CrosswordStage struct {
	PuzzleID   string                `json:"puzzleId,omitempty"`
	Solved     bool                  `json:"solved"`
	SolvedAt   *time.Time            `json:"solvedAt,omitempty"`
	Coordinate *crossword.Coordinate `json:"coordinate,omitempty"`
}

// DesignStage holds the coin balance and the link to the single design.
type DesignStage struct {
	Coins    int64  `json:"coins"`
	DesignID string `json:"design,omitempty"`
}

// Team is a registered participant group.
type Team struct {
	ID        string         `json:"id"`
	Name      string         `json:"teamName"`
	Code      string         `json:"teamCode"`
	Members   []Member       `json:"members"`
	CreatedAt time.Time      `json:"createdAt"`
	Crossword CrosswordStage `json:"stage1"`
	Design    DesignStage    `json:"stage3"`
}

// Store is the record store used by the mission service.
type Store interface {
	// CreateTeam inserts a team. Returns ErrDuplicateName or ErrDuplicateCode
	// when the name (case-insensitive) or code is already used.
	CreateTeam(ctx context.Context, t *Team) error
	TeamByID(ctx context.Context, id string) (*Team, error)
	TeamByCode(ctx context.Context, code string) (*Team, error)

	// AssignPuzzle records the issued puzzle and clears the solved flag.
	AssignPuzzle(ctx context.Context, teamID, puzzleID string) error
	// MarkSolved sets the crossword stage solved with the unlocked coordinate.
	MarkSolved(ctx context.Context, teamID string, coord crossword.Coordinate, at time.Time) error
	// AddCoins adjusts the balance by amount and returns the new balance.
	// Returns ErrCoinOverflow, leaving the balance unchanged, when the sum
	// does not fit in an int64.
	AddCoins(ctx context.Context, teamID string, amount int64) (int64, error)

	// CommitDesign atomically links d to its team and debits d.TotalCost,
	// only if the team has no design and holds at least d.TotalCost coins.
	// On success d.RemainingCoins is set to the post-debit balance.
	// Returns ErrNotFound, ErrAlreadySubmitted or ErrInsufficientFunds otherwise.
	CommitDesign(ctx context.Context, d *design.Design) error
	DesignByID(ctx context.Context, id string) (*design.Design, error)

	SavePuzzle(ctx context.Context, p *crossword.Puzzle) error
	PuzzleByID(ctx context.Context, id string) (*crossword.Puzzle, error)
	PuzzleIDs(ctx context.Context) ([]string, error)
	DeletePuzzles(ctx context.Context) error

	Close() error
}

// coinBounds returns the balance range to which amount can be added
// without leaving int64.
func coinBounds(amount int64) (lo, hi int64) {
	if amount >= 0 {
		return math.MinInt64, math.MaxInt64 - amount
	}
	return math.MinInt64 - amount, math.MaxInt64
}

// clone returns a deep copy so callers never share mutable state with a store.
func (t *Team) clone() *Team {
	c := *t
	c.Members = append([]Member(nil), t.Members...)
	if t.Crossword.SolvedAt != nil {
		at := *t.Crossword.SolvedAt
		c.Crossword.SolvedAt = &at
	}
	if t.Crossword.Coordinate != nil {
		coord := *t.Crossword.Coordinate
		c.Crossword.Coordinate = &coord
	}
	return &c
}
