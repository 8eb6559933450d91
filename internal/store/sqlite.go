// internal/store/sqlite.go
//
// SQLite implementation of Store.
//
// Notes:
//   - Nested values (members, grids, clues, placements) live in JSON text columns.
//   - Timestamps are RFC3339 strings in UTC.
//   - CommitDesign is one transaction whose conditional UPDATE is the
//     compare-and-set on the team row; designs.team_id is UNIQUE as a backstop.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/robalobadob/satquest/internal/crossword"
	"github.com/robalobadob/satquest/internal/design"
)

type sqliteStore struct {
	db *sql.DB
}

// NewSQLiteStore wraps an already migrated database.
func NewSQLiteStore(db *sql.DB) Store {
	return &sqliteStore{db: db}
}

// OpenSQLite opens path, applies migrations and returns the store.
func OpenSQLite(path string) (Store, error) {
	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return NewSQLiteStore(db), nil
}

func (s *sqliteStore) Close() error { return s.db.Close() }

// ------------------------------- teams -------------------------------------

const teamColumns = `id, name, code, members, created_at, puzzle_id, solved, solved_at, coord_r, coord_c, coins, design_id`

func (s *sqliteStore) CreateTeam(ctx context.Context, t *Team) error {
	members, err := json.Marshal(t.Members)
	if err != nil {
		return fmt.Errorf("encode members: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
        INSERT INTO teams (id, name, code, members, created_at, coins)
        VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, t.Name, strings.ToUpper(t.Code), string(members),
		t.CreatedAt.UTC().Format(time.RFC3339), t.Design.Coins,
	)
	if isUniqueViolation(err) {
		if strings.Contains(err.Error(), "teams.code") {
			return ErrDuplicateCode
		}
		return ErrDuplicateName
	}
	return err
}

func (s *sqliteStore) TeamByID(ctx context.Context, id string) (*Team, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+teamColumns+` FROM teams WHERE id=?`, id)
	return scanTeam(row)
}

func (s *sqliteStore) TeamByCode(ctx context.Context, code string) (*Team, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+teamColumns+` FROM teams WHERE code=?`,
		strings.ToUpper(strings.TrimSpace(code)))
	return scanTeam(row)
}

func (s *sqliteStore) AssignPuzzle(ctx context.Context, teamID, puzzleID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE teams SET puzzle_id=?, solved=0 WHERE id=?`, puzzleID, teamID)
	return affectedOne(res, err)
}

func (s *sqliteStore) MarkSolved(ctx context.Context, teamID string, coord crossword.Coordinate, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE teams SET solved=1, solved_at=?, coord_r=?, coord_c=? WHERE id=?`,
		at.UTC().Format(time.RFC3339), coord.R, coord.C, teamID)
	return affectedOne(res, err)
}

func (s *sqliteStore) AddCoins(ctx context.Context, teamID string, amount int64) (int64, error) {
	var balance int64
	lo, hi := coinBounds(amount)
	err := s.db.QueryRowContext(ctx,
		`UPDATE teams SET coins = coins + ? WHERE id=? AND coins BETWEEN ? AND ? RETURNING coins`,
		amount, teamID, lo, hi,
	).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		if _, err := s.TeamByID(ctx, teamID); err != nil {
			return 0, err
		}
		return 0, ErrCoinOverflow
	}
	return balance, err
}

// scanTeam converts a *sql.Row into a Team.
func scanTeam(row *sql.Row) (*Team, error) {
	var (
		t                  Team
		members, created   string
		puzzleID, solvedAt sql.NullString
		designID           sql.NullString
		coordR, coordC     sql.NullInt64
		solved             int
	)
	err := row.Scan(&t.ID, &t.Name, &t.Code, &members, &created, &puzzleID, &solved,
		&solvedAt, &coordR, &coordC, &t.Design.Coins, &designID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(members), &t.Members); err != nil {
		return nil, fmt.Errorf("decode members of %s: %w", t.ID, err)
	}
	t.CreatedAt = mustParse(created)
	t.Crossword.PuzzleID = puzzleID.String
	t.Crossword.Solved = solved != 0
	if solvedAt.Valid {
		at := mustParse(solvedAt.String)
		t.Crossword.SolvedAt = &at
	}
	if coordR.Valid && coordC.Valid {
		t.Crossword.Coordinate = &crossword.Coordinate{R: int(coordR.Int64), C: int(coordC.Int64)}
	}
	t.Design.DesignID = designID.String
	return &t, nil
}

// ------------------------------ designs ------------------------------------

func (s *sqliteStore) CommitDesign(ctx context.Context, d *design.Design) error {
	batteries, err := json.Marshal(d.Batteries)
	if err != nil {
		return fmt.Errorf("encode batteries: %w", err)
	}
	sensors, err := json.Marshal(d.Sensors)
	if err != nil {
		return fmt.Errorf("encode sensors: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	// Compare-and-set: link only if unset, debit only while funds suffice.
	res, err := tx.ExecContext(ctx, `
        UPDATE teams SET design_id=?, coins = coins - ?
        WHERE id=? AND design_id IS NULL AND coins >= ?`,
		d.ID, d.TotalCost, d.TeamID, d.TotalCost)
	if err != nil {
		return fmt.Errorf("debit team: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return commitFailure(ctx, tx, d.TeamID)
	}

	var remaining int64
	if err := tx.QueryRowContext(ctx, `SELECT coins FROM teams WHERE id=?`, d.TeamID).Scan(&remaining); err != nil {
		return fmt.Errorf("read balance: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
        INSERT INTO designs (id, team_id, team_code, platform_code, platform, orbit, solar,
                             batteries, sensors, power_draw, battery_storage, solar_capacity,
                             runtime_hours, total_cost, declared_cost, remaining_coins, created_at)
        VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		d.ID, d.TeamID, d.TeamCode, d.PlatformCode, d.Platform, d.Orbit, d.Solar,
		string(batteries), string(sensors), d.PowerDraw, d.BatteryStorage, d.SolarCapacity,
		d.RuntimeHours, d.TotalCost, d.DeclaredCost, remaining, d.CreatedAt.UTC().Format(time.RFC3339),
	)
	if isUniqueViolation(err) {
		return ErrAlreadySubmitted
	}
	if err != nil {
		return fmt.Errorf("insert design: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit design: %w", err)
	}
	d.RemainingCoins = remaining
	return nil
}

// commitFailure explains why the conditional update matched no row.
func commitFailure(ctx context.Context, tx *sql.Tx, teamID string) error {
	var (
		designID sql.NullString
		coins    int64
	)
	err := tx.QueryRowContext(ctx, `SELECT design_id, coins FROM teams WHERE id=?`, teamID).Scan(&designID, &coins)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return ErrNotFound
	case err != nil:
		return err
	case designID.Valid:
		return ErrAlreadySubmitted
	default:
		return ErrInsufficientFunds
	}
}

func (s *sqliteStore) DesignByID(ctx context.Context, id string) (*design.Design, error) {
	var (
		d                  design.Design
		batteries, sensors string
		created            string
	)
	err := s.db.QueryRowContext(ctx, `
        SELECT id, team_id, team_code, platform_code, platform, orbit, solar, batteries, sensors,
               power_draw, battery_storage, solar_capacity, runtime_hours, total_cost,
               declared_cost, remaining_coins, created_at
        FROM designs WHERE id=?`, id,
	).Scan(&d.ID, &d.TeamID, &d.TeamCode, &d.PlatformCode, &d.Platform, &d.Orbit, &d.Solar,
		&batteries, &sensors, &d.PowerDraw, &d.BatteryStorage, &d.SolarCapacity, &d.RuntimeHours,
		&d.TotalCost, &d.DeclaredCost, &d.RemainingCoins, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(batteries), &d.Batteries); err != nil {
		return nil, fmt.Errorf("decode batteries of %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(sensors), &d.Sensors); err != nil {
		return nil, fmt.Errorf("decode sensors of %s: %w", id, err)
	}
	d.CreatedAt = mustParse(created)
	return &d, nil
}

// ------------------------------ puzzles ------------------------------------

func (s *sqliteStore) SavePuzzle(ctx context.Context, p *crossword.Puzzle) error {
	grid, err := json.Marshal(p.Grid)
	if err != nil {
		return fmt.Errorf("encode grid: %w", err)
	}
	clues, err := json.Marshal(p.Clues)
	if err != nil {
		return fmt.Errorf("encode clues: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
        INSERT INTO puzzles (id, code, grid, clues, coord_r, coord_c) VALUES (?,?,?,?,?,?)
        ON CONFLICT(id) DO UPDATE SET code=excluded.code, grid=excluded.grid, clues=excluded.clues,
                                      coord_r=excluded.coord_r, coord_c=excluded.coord_c`,
		p.ID, p.Code, string(grid), string(clues), p.Coordinate.R, p.Coordinate.C)
	return err
}

func (s *sqliteStore) PuzzleByID(ctx context.Context, id string) (*crossword.Puzzle, error) {
	var (
		p           crossword.Puzzle
		grid, clues string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, code, grid, clues, coord_r, coord_c FROM puzzles WHERE id=?`, id,
	).Scan(&p.ID, &p.Code, &grid, &clues, &p.Coordinate.R, &p.Coordinate.C)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(grid), &p.Grid); err != nil {
		return nil, fmt.Errorf("decode grid of %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(clues), &p.Clues); err != nil {
		return nil, fmt.Errorf("decode clues of %s: %w", id, err)
	}
	return &p, nil
}

func (s *sqliteStore) PuzzleIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM puzzles ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *sqliteStore) DeletePuzzles(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM puzzles`)
	return err
}

// ------------------------------- helpers -----------------------------------

// affectedOne maps "no row updated" to ErrNotFound.
func affectedOne(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique
}

// mustParse parses RFC3339 timestamps; on error returns zero time.
func mustParse(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}
