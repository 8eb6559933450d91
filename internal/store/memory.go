// internal/store/memory.go
//
// In-memory implementation of Store.
// Used by tests and by `satquest serve --store memory` when durability is
// not required.
//
// Characteristics:
//   - Records keyed by ID in maps, plus secondary indexes for code and name.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - Values are copied on the way in and out.
//   - State is lost when the process restarts.

package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/robalobadob/satquest/internal/crossword"
	"github.com/robalobadob/satquest/internal/design"
)

// memory is an in-memory map-based Store implementation.
type memory struct {
	mu      sync.RWMutex
	teams   map[string]*Team // keyed by Team.ID
	byCode  map[string]string
	byName  map[string]string
	designs map[string]*design.Design
	puzzles map[string]*crossword.Puzzle
	order   []string // puzzle IDs in insertion order
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return &memory{
		teams:   make(map[string]*Team),
		byCode:  make(map[string]string),
		byName:  make(map[string]string),
		designs: make(map[string]*design.Design),
		puzzles: make(map[string]*crossword.Puzzle),
	}
}

func (m *memory) CreateTeam(ctx context.Context, t *Team) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	name, code := strings.ToLower(t.Name), strings.ToUpper(t.Code)
	if _, ok := m.byName[name]; ok {
		return ErrDuplicateName
	}
	if _, ok := m.byCode[code]; ok {
		return ErrDuplicateCode
	}
	m.teams[t.ID] = t.clone()
	m.byName[name] = t.ID
	m.byCode[code] = t.ID
	return nil
}

func (m *memory) TeamByID(ctx context.Context, id string) (*Team, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if t, ok := m.teams[id]; ok {
		return t.clone(), nil
	}
	return nil, ErrNotFound
}

func (m *memory) TeamByCode(ctx context.Context, code string) (*Team, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if id, ok := m.byCode[strings.ToUpper(strings.TrimSpace(code))]; ok {
		return m.teams[id].clone(), nil
	}
	return nil, ErrNotFound
}

func (m *memory) AssignPuzzle(ctx context.Context, teamID, puzzleID string) error {
	return m.update(teamID, func(t *Team) {
		t.Crossword.PuzzleID = puzzleID
		t.Crossword.Solved = false
	})
}

func (m *memory) MarkSolved(ctx context.Context, teamID string, coord crossword.Coordinate, at time.Time) error {
	return m.update(teamID, func(t *Team) {
		at := at.UTC()
		t.Crossword.Solved = true
		t.Crossword.SolvedAt = &at
		t.Crossword.Coordinate = &coord
	})
}

func (m *memory) AddCoins(ctx context.Context, teamID string, amount int64) (int64, error) {
	var (
		balance  int64
		overflow bool
	)
	err := m.update(teamID, func(t *Team) {
		if lo, hi := coinBounds(amount); t.Design.Coins < lo || t.Design.Coins > hi {
			overflow = true
			return
		}
		t.Design.Coins += amount
		balance = t.Design.Coins
	})
	if err == nil && overflow {
		err = ErrCoinOverflow
	}
	return balance, err
}

// CommitDesign performs the check-and-set under the write lock.
func (m *memory) CommitDesign(ctx context.Context, d *design.Design) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.teams[d.TeamID]
	if !ok {
		return ErrNotFound
	}
	if t.Design.DesignID != "" {
		return ErrAlreadySubmitted
	}
	if t.Design.Coins < d.TotalCost {
		return ErrInsufficientFunds
	}
	t.Design.Coins -= d.TotalCost
	t.Design.DesignID = d.ID
	d.RemainingCoins = t.Design.Coins
	stored := *d
	m.designs[d.ID] = &stored
	return nil
}

func (m *memory) DesignByID(ctx context.Context, id string) (*design.Design, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if d, ok := m.designs[id]; ok {
		c := *d
		return &c, nil
	}
	return nil, ErrNotFound
}

func (m *memory) SavePuzzle(ctx context.Context, p *crossword.Puzzle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.puzzles[p.ID]; !exists {
		m.order = append(m.order, p.ID)
	}
	c := *p
	m.puzzles[p.ID] = &c
	return nil
}

func (m *memory) PuzzleByID(ctx context.Context, id string) (*crossword.Puzzle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.puzzles[id]; ok {
		c := *p
		return &c, nil
	}
	return nil, ErrNotFound
}

func (m *memory) PuzzleIDs(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.order...), nil
}

func (m *memory) DeletePuzzles(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puzzles = make(map[string]*crossword.Puzzle)
	m.order = nil
	return nil
}

func (m *memory) Close() error { return nil }

// update applies fn to the stored team under the write lock.
func (m *memory) update(teamID string, fn func(t *Team)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.teams[teamID]
	if !ok {
		return ErrNotFound
	}
	fn(t)
	return nil
}
