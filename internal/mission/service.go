// internal/mission/service.go
//
// Mission service: the transport-agnostic operations of the event.
// Responsibilities:
//   - Team registration and login by join code.
//   - Issuing and grading crossword puzzles.
//   - Granting coins and accepting exactly one priced design per team.
//
// Notes:
//   - Every returned error is an *apperr.Error (or wraps one); storage
//     failures surface as KindInternal.
//   - Clock, ID and randomness sources are fields so tests can pin them.

package mission

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cast"

	"github.com/robalobadob/satquest/internal/apperr"
	"github.com/robalobadob/satquest/internal/catalog"
	"github.com/robalobadob/satquest/internal/crossword"
	"github.com/robalobadob/satquest/internal/design"
	"github.com/robalobadob/satquest/internal/store"
)

const (
	teamSize        = 3
	codeLength      = 6
	codeCharset     = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	maxCodeAttempts = 5

	msgSolved   = "Correct! Coordinate unlocked."
	msgUnsolved = "Incorrect solution!"
)

// Service wires the store and catalog to the game rules.
type Service struct {
	store   store.Store
	catalog *catalog.Catalog

	now     func() time.Time
	newID   func() string
	newCode func() (string, error)
	pick    func(n int) (int, error)
}

// New returns a Service backed by st and cat.
func New(st store.Store, cat *catalog.Catalog) *Service {
	return &Service{
		store:   st,
		catalog: cat,
		now:     time.Now,
		newID:   uuid.NewString,
		newCode: GenerateCode,
		pick:    randomIndex,
	}
}

// GenerateCode returns a 6-character join code drawn from A-Z0-9.
func GenerateCode() (string, error) {
	code := make([]byte, codeLength)
	for i := range code {
		n, err := randomIndex(len(codeCharset))
		if err != nil {
			return "", err
		}
		code[i] = codeCharset[n]
	}
	return string(code), nil
}

func randomIndex(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}
	return int(v.Int64()), nil
}

// Catalog returns the parts table used for pricing.
func (s *Service) Catalog() *catalog.Catalog { return s.catalog }

// -------------------------------- teams ------------------------------------

// RegisterInput is the registration payload.
type RegisterInput struct {
	TeamName string         `json:"teamName"`
	Members  []store.Member `json:"members"`
}

// RegisterTeam creates a team with a fresh join code.
func (s *Service) RegisterTeam(ctx context.Context, in RegisterInput) (*store.Team, error) {
	name := strings.TrimSpace(in.TeamName)
	if name == "" || len(in.Members) != teamSize {
		return nil, apperr.Validation("teamName and exactly %d members required", teamSize)
	}
	members := make([]store.Member, len(in.Members))
	for i, m := range in.Members {
		members[i] = store.Member{
			Name:  strings.TrimSpace(m.Name),
			Email: strings.TrimSpace(m.Email),
			Phone: strings.TrimSpace(m.Phone),
		}
	}

	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, err, "generate team code")
		}
		team := &store.Team{
			ID:        s.newID(),
			Name:      name,
			Code:      code,
			Members:   members,
			CreatedAt: s.now().UTC(),
		}
		err = s.store.CreateTeam(ctx, team)
		switch {
		case err == nil:
			log.Info().Str("team", team.ID).Str("code", code).Msg("team registered")
			return team, nil
		case errors.Is(err, store.ErrDuplicateName):
			return nil, apperr.New(apperr.KindConflict, "team name %q is already taken", name)
		case errors.Is(err, store.ErrDuplicateCode):
			log.Debug().Str("code", code).Int("attempt", attempt).Msg("collision on team code, regenerating")
			continue
		default:
			return nil, apperr.Wrap(apperr.KindInternal, err, "create team")
		}
	}
	return nil, apperr.New(apperr.KindInternal, "could not allocate a unique team code")
}

// Login resolves a team by its join code (case-insensitive).
func (s *Service) Login(ctx context.Context, teamCode string) (*store.Team, error) {
	code := strings.TrimSpace(teamCode)
	if code == "" {
		return nil, apperr.Validation("teamCode required")
	}
	team, err := s.store.TeamByCode(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("Invalid team code")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "load team")
	}
	return team, nil
}

// FetchTeam returns the team record.
func (s *Service) FetchTeam(ctx context.Context, teamID string) (*store.Team, error) {
	return s.team(ctx, teamID)
}

func (s *Service) team(ctx context.Context, teamID string) (*store.Team, error) {
	if strings.TrimSpace(teamID) == "" {
		return nil, apperr.Validation("teamId required")
	}
	team, err := s.store.TeamByID(ctx, teamID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("Team not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "load team")
	}
	return team, nil
}

// ------------------------------- crossword ---------------------------------

// IssuedPuzzle is what a player sees: the blank grid and the clues.
type IssuedPuzzle struct {
	ID    string           `json:"_id"`
	Code  string           `json:"code"`
	Grid  crossword.Grid   `json:"grid"`
	Clues []crossword.Clue `json:"clues"`
}

// FetchRandomPuzzle picks a puzzle uniformly at random and records it on the
// team. The assignment is best-effort: failures are logged, not returned.
func (s *Service) FetchRandomPuzzle(ctx context.Context, teamID string) (*IssuedPuzzle, error) {
	ids, err := s.store.PuzzleIDs(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "list puzzles")
	}
	if len(ids) == 0 {
		return nil, apperr.NotFound("No puzzles found")
	}
	i, err := s.pick(len(ids))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "pick puzzle")
	}
	p, err := s.store.PuzzleByID(ctx, ids[i])
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "load puzzle")
	}

	if teamID != "" {
		if err := s.store.AssignPuzzle(ctx, teamID, p.ID); err != nil {
			log.Warn().Err(err).Str("team", teamID).Str("puzzle", p.ID).Msg("assign puzzle failed")
		}
	}

	return &IssuedPuzzle{
		ID:    p.ID,
		Code:  p.Code,
		Grid:  crossword.Sanitize(p.Grid),
		Clues: append([]crossword.Clue(nil), p.Clues...),
	}, nil
}

// CrosswordInput is a grid submission.
type CrosswordInput struct {
	TeamID     string         `json:"teamId"`
	PuzzleID   string         `json:"puzzleId"`
	FilledGrid crossword.Grid `json:"filledGrid"`
}

// CrosswordResult is the grading outcome shown to the player.
type CrosswordResult struct {
	crossword.Result
	Message string `json:"message"`
}

// SubmitCrossword grades the grid and, when correct, marks the team solved.
func (s *Service) SubmitCrossword(ctx context.Context, in CrosswordInput) (*CrosswordResult, error) {
	if in.TeamID == "" || in.PuzzleID == "" || in.FilledGrid == nil {
		return nil, apperr.Validation("Invalid input")
	}
	if _, err := s.team(ctx, in.TeamID); err != nil {
		return nil, err
	}
	p, err := s.store.PuzzleByID(ctx, in.PuzzleID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("Puzzle not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "load puzzle")
	}

	res := crossword.Grade(p, in.FilledGrid)
	if !res.OK {
		return &CrosswordResult{Result: res, Message: msgUnsolved}, nil
	}

	err = s.store.MarkSolved(ctx, in.TeamID, *res.Coordinate, s.now())
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("Team not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "mark solved")
	}
	log.Info().Str("team", in.TeamID).Str("puzzle", p.ID).Msg("crossword solved")
	return &CrosswordResult{Result: res, Message: msgSolved}, nil
}

// -------------------------------- design -----------------------------------

// AddCoins grants amount coins to a team. amount may be any number or a
// numeric string; it returns the new balance.
func (s *Service) AddCoins(ctx context.Context, teamID string, amount any) (int64, error) {
	if strings.TrimSpace(teamID) == "" {
		return 0, apperr.Validation("teamId required")
	}
	n, err := parseCoins(amount)
	if err != nil {
		return 0, apperr.Validation("coins must be a whole number, got %v", amount)
	}
	balance, err := s.store.AddCoins(ctx, teamID, n)
	if errors.Is(err, store.ErrNotFound) {
		return 0, apperr.NotFound("Team not found")
	}
	if errors.Is(err, store.ErrCoinOverflow) {
		return 0, apperr.Validation("coin balance out of range")
	}
	if err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, err, "add coins")
	}
	log.Info().Str("team", teamID).Int64("amount", n).Int64("balance", balance).Msg("coins added")
	return balance, nil
}

// parseCoins coerces a JSON-ish amount into whole coins. Strings are read
// as base-10 numbers; fractional, non-finite and out-of-range values fail.
func parseCoins(amount any) (int64, error) {
	switch v := amount.(type) {
	case nil, bool:
		return 0, errors.New("not numeric")
	case string:
		return parseCoinString(v)
	case json.Number:
		return parseCoinString(v.String())
	case float64:
		return floatCoins(v)
	case float32:
		return floatCoins(float64(v))
	case uint:
		return uintCoins(uint64(v))
	case uint64:
		return uintCoins(v)
	default:
		return cast.ToInt64E(amount)
	}
}

func parseCoinString(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return floatCoins(f)
}

func floatCoins(f float64) (int64, error) {
	// float64(1<<63) is exact; anything at or past it does not fit in int64.
	if math.IsNaN(f) || math.IsInf(f, 0) || f >= float64(1<<63) || f < math.MinInt64 {
		return 0, fmt.Errorf("%v out of range", f)
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("%v is not a whole number", f)
	}
	return int64(f), nil
}

func uintCoins(u uint64) (int64, error) {
	if u > math.MaxInt64 {
		return 0, fmt.Errorf("%d out of range", u)
	}
	return int64(u), nil
}

// SubmitDesign prices payload against the catalog and commits it as the
// team's only design, debiting its cost.
func (s *Service) SubmitDesign(ctx context.Context, teamID string, payload design.Payload) (*design.Design, error) {
	team, err := s.team(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if team.Design.DesignID != "" {
		return nil, apperr.New(apperr.KindAlreadySubmitted, "Design already submitted")
	}

	balance := team.Design.Coins
	q, err := design.Evaluate(s.catalog, payload, balance)
	if err != nil {
		return nil, err
	}

	d := q.Record(team.ID, team.Code, balance, s.now().UTC())
	d.ID = s.newID()

	switch err := s.store.CommitDesign(ctx, d); {
	case err == nil:
	case errors.Is(err, store.ErrNotFound):
		return nil, apperr.NotFound("Team not found")
	case errors.Is(err, store.ErrAlreadySubmitted):
		return nil, apperr.New(apperr.KindAlreadySubmitted, "Design already submitted")
	case errors.Is(err, store.ErrInsufficientFunds):
		// Balance moved between the read and the commit.
		return nil, apperr.New(apperr.KindBudgetExceeded, "Budget exceeded: cost %d, balance changed", d.TotalCost)
	default:
		return nil, apperr.Wrap(apperr.KindInternal, err, "commit design")
	}

	log.Info().
		Str("team", team.ID).
		Str("design", d.ID).
		Int64("cost", d.TotalCost).
		Int64("remaining", d.RemainingCoins).
		Msg("design accepted")
	return d, nil
}

// FetchDesign returns the design the team committed.
func (s *Service) FetchDesign(ctx context.Context, teamID string) (*design.Design, error) {
	team, err := s.team(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if team.Design.DesignID == "" {
		return nil, apperr.NotFound("No design submitted")
	}
	d, err := s.store.DesignByID(ctx, team.Design.DesignID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("Design not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "load design")
	}
	return d, nil
}

// --------------------------------- seed ------------------------------------

// SeedPuzzles stores puzzles, assigning IDs to those without one. With reset,
// existing puzzles are removed first.
func (s *Service) SeedPuzzles(ctx context.Context, puzzles []*crossword.Puzzle, reset bool) (int, error) {
	if reset {
		if err := s.store.DeletePuzzles(ctx); err != nil {
			return 0, apperr.Wrap(apperr.KindInternal, err, "delete puzzles")
		}
	}
	for i, p := range puzzles {
		if p.ID == "" {
			p.ID = s.newID()
		}
		if err := s.store.SavePuzzle(ctx, p); err != nil {
			return i, apperr.Wrap(apperr.KindInternal, err, "save puzzle "+p.Code)
		}
	}
	return len(puzzles), nil
}
