package mission

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/satquest/internal/apperr"
	"github.com/robalobadob/satquest/internal/catalog"
	"github.com/robalobadob/satquest/internal/crossword"
	"github.com/robalobadob/satquest/internal/design"
	"github.com/robalobadob/satquest/internal/store"
)

var fixedNow = time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

func newService(t *testing.T) (*Service, store.Store) {
	t.Helper()
	st := store.NewMemoryStore()
	svc := New(st, catalog.Default())
	svc.now = func() time.Time { return fixedNow }
	n := 0
	svc.newID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	return svc, st
}

func members() []store.Member {
	return []store.Member{
		{Name: "Ada", Email: "ada@example.com", Phone: "1"},
		{Name: "Grace", Email: "grace@example.com", Phone: "2"},
		{Name: "Linus", Email: "linus@example.com", Phone: "3"},
	}
}

func register(t *testing.T, svc *Service, name string) *store.Team {
	t.Helper()
	team, err := svc.RegisterTeam(context.Background(), RegisterInput{TeamName: name, Members: members()})
	require.NoError(t, err)
	return team
}

func seed(t *testing.T, svc *Service) []*crossword.Puzzle {
	t.Helper()
	puzzles, err := crossword.LoadSeed("")
	require.NoError(t, err)
	_, err = svc.SeedPuzzles(context.Background(), puzzles, false)
	require.NoError(t, err)
	return puzzles
}

// solve fills every letter cell of g in lowercase.
func solve(g crossword.Grid) crossword.Grid {
	out := make(crossword.Grid, len(g))
	for r, row := range g {
		out[r] = make([]*string, len(row))
		for c, cell := range row {
			if cell != nil {
				v := strings.ToLower(*cell)
				out[r][c] = &v
			}
		}
	}
	return out
}

func scenario() design.Payload {
	return design.Payload{
		PlatformSize: 4,
		Orbit:        "O01",
		Solar:        "P02",
		Batteries:    []string{"B02"},
		Components:   []design.Component{{Code: "E01", Name: "Infrared Camera", Row: 0, Col: 0}},
	}
}

// ------------------------------- teams -------------------------------------

func TestRegisterTeam(t *testing.T) {
	svc, _ := newService(t)
	team := register(t, svc, "  Orbiters ")

	assert.Equal(t, "Orbiters", team.Name)
	assert.Len(t, team.Code, 6)
	for _, r := range team.Code {
		assert.Contains(t, codeCharset, string(r))
	}
	assert.Equal(t, int64(0), team.Design.Coins)
	assert.Equal(t, fixedNow, team.CreatedAt)
}

func TestRegisterTeamValidation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.RegisterTeam(ctx, RegisterInput{TeamName: "Orbiters", Members: members()[:2]})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.RegisterTeam(ctx, RegisterInput{TeamName: " ", Members: members()})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.RegisterTeam(ctx, RegisterInput{TeamName: "Orbiters", Members: append(members(), store.Member{Name: "Extra"})})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestRegisterTeamDuplicateName(t *testing.T) {
	svc, _ := newService(t)
	register(t, svc, "Orbiters")

	_, err := svc.RegisterTeam(context.Background(), RegisterInput{TeamName: "ORBITERS", Members: members()})
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestRegisterTeamRegeneratesCollidingCode(t *testing.T) {
	svc, _ := newService(t)
	codes := []string{"AAAAAA", "AAAAAA", "BBBBBB"}
	svc.newCode = func() (string, error) {
		c := codes[0]
		codes = codes[1:]
		return c, nil
	}

	first := register(t, svc, "Orbiters")
	second := register(t, svc, "Rocketeers")
	assert.Equal(t, "AAAAAA", first.Code)
	assert.Equal(t, "BBBBBB", second.Code)
}

func TestRegisterTeamGivesUpAfterRepeatedCollisions(t *testing.T) {
	svc, _ := newService(t)
	svc.newCode = func() (string, error) { return "AAAAAA", nil }
	register(t, svc, "Orbiters")

	_, err := svc.RegisterTeam(context.Background(), RegisterInput{TeamName: "Rocketeers", Members: members()})
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
}

func TestLogin(t *testing.T) {
	svc, _ := newService(t)
	team := register(t, svc, "Orbiters")
	ctx := context.Background()

	got, err := svc.Login(ctx, strings.ToLower(team.Code))
	require.NoError(t, err)
	assert.Equal(t, team.ID, got.ID)

	_, err = svc.Login(ctx, "")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.Login(ctx, "ZZZZZZ")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestFetchTeam(t *testing.T) {
	svc, _ := newService(t)
	team := register(t, svc, "Orbiters")

	got, err := svc.FetchTeam(context.Background(), team.ID)
	require.NoError(t, err)
	assert.Equal(t, "Orbiters", got.Name)

	_, err = svc.FetchTeam(context.Background(), "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

// ------------------------------ crossword ----------------------------------

func TestFetchRandomPuzzleWithoutPuzzles(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.FetchRandomPuzzle(context.Background(), "any")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestFetchRandomPuzzleAssignsAndSanitizes(t *testing.T) {
	svc, st := newService(t)
	puzzles := seed(t, svc)
	team := register(t, svc, "Orbiters")
	svc.pick = func(n int) (int, error) { return n - 1, nil }

	issued, err := svc.FetchRandomPuzzle(context.Background(), team.ID)
	require.NoError(t, err)

	want := puzzles[len(puzzles)-1]
	assert.Equal(t, want.ID, issued.ID)
	assert.Len(t, issued.Clues, len(want.Clues))
	assert.NotEmpty(t, issued.Clues[0].Answer)
	for r, row := range issued.Grid {
		for c, cell := range row {
			if want.Grid[r][c] == nil {
				assert.Nil(t, cell)
			} else {
				require.NotNil(t, cell)
				assert.Equal(t, "", *cell)
			}
		}
	}

	stored, err := st.TeamByID(context.Background(), team.ID)
	require.NoError(t, err)
	assert.Equal(t, want.ID, stored.Crossword.PuzzleID)
	assert.False(t, stored.Crossword.Solved)
}

func TestFetchRandomPuzzleIgnoresAssignFailure(t *testing.T) {
	svc, _ := newService(t)
	seed(t, svc)

	issued, err := svc.FetchRandomPuzzle(context.Background(), "unknown-team")
	require.NoError(t, err)
	assert.NotEmpty(t, issued.ID)
}

func TestSubmitCrosswordCorrect(t *testing.T) {
	svc, st := newService(t)
	puzzles := seed(t, svc)
	team := register(t, svc, "Orbiters")
	p := puzzles[0]

	res, err := svc.SubmitCrossword(context.Background(), CrosswordInput{
		TeamID: team.ID, PuzzleID: p.ID, FilledGrid: solve(p.Grid),
	})
	require.NoError(t, err)
	assert.True(t, res.OK)
	require.NotNil(t, res.Coordinate)
	assert.Equal(t, p.Coordinate, *res.Coordinate)
	assert.Equal(t, msgSolved, res.Message)

	stored, err := st.TeamByID(context.Background(), team.ID)
	require.NoError(t, err)
	assert.True(t, stored.Crossword.Solved)
	require.NotNil(t, stored.Crossword.Coordinate)
	assert.Equal(t, p.Coordinate, *stored.Crossword.Coordinate)
	require.NotNil(t, stored.Crossword.SolvedAt)
	assert.True(t, stored.Crossword.SolvedAt.Equal(fixedNow))
}

func TestSubmitCrosswordWrongCell(t *testing.T) {
	svc, st := newService(t)
	puzzles := seed(t, svc)
	team := register(t, svc, "Orbiters")
	p := puzzles[0]

	filled := solve(p.Grid)
	x := "x"
	filled[0][1] = &x

	res, err := svc.SubmitCrossword(context.Background(), CrosswordInput{
		TeamID: team.ID, PuzzleID: p.ID, FilledGrid: filled,
	})
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Nil(t, res.Coordinate)
	assert.Equal(t, msgUnsolved, res.Message)

	stored, err := st.TeamByID(context.Background(), team.ID)
	require.NoError(t, err)
	assert.False(t, stored.Crossword.Solved)
	assert.Nil(t, stored.Crossword.Coordinate)
}

func TestSubmitCrosswordErrors(t *testing.T) {
	svc, _ := newService(t)
	puzzles := seed(t, svc)
	team := register(t, svc, "Orbiters")
	ctx := context.Background()

	_, err := svc.SubmitCrossword(ctx, CrosswordInput{TeamID: team.ID, PuzzleID: puzzles[0].ID})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.SubmitCrossword(ctx, CrosswordInput{TeamID: team.ID, PuzzleID: "nope", FilledGrid: crossword.Grid{}})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = svc.SubmitCrossword(ctx, CrosswordInput{TeamID: "ghost", PuzzleID: puzzles[0].ID, FilledGrid: crossword.Grid{}})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

// -------------------------------- design -----------------------------------

func TestAddCoins(t *testing.T) {
	svc, _ := newService(t)
	team := register(t, svc, "Orbiters")
	ctx := context.Background()

	bal, err := svc.AddCoins(ctx, team.ID, float64(60000))
	require.NoError(t, err)
	assert.Equal(t, int64(60000), bal)

	bal, err = svc.AddCoins(ctx, team.ID, "40000")
	require.NoError(t, err)
	assert.Equal(t, int64(100000), bal)

	bal, err = svc.AddCoins(ctx, team.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(100005), bal)

	for _, bad := range []any{"lots", nil, true, []int{1}} {
		_, err = svc.AddCoins(ctx, team.ID, bad)
		assert.ErrorIs(t, err, apperr.ErrValidation, "%v", bad)
	}

	_, err = svc.AddCoins(ctx, "ghost", 1)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestAddCoinsAmounts(t *testing.T) {
	cases := []struct {
		name   string
		amount any
		want   int64
		ok     bool
	}{
		{"float", float64(250), 250, true},
		{"whole float string", "12.0", 12, true},
		{"leading zero is decimal", "010", 10, true},
		{"padded string", " 42 ", 42, true},
		{"negative", -5, -5, true},
		{"json number", json.Number("7"), 7, true},
		{"fraction", 1.9, 0, false},
		{"fraction string", "2.5", 0, false},
		{"too large float", float64(1e19), 0, false},
		{"too small float", float64(-1e19), 0, false},
		{"two to the 63", float64(1 << 63), 0, false},
		{"too large string", "9223372036854775808", 0, false},
		{"too large uint", uint64(math.MaxUint64), 0, false},
		{"nan", math.NaN(), 0, false},
		{"inf", math.Inf(1), 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, _ := newService(t)
			team := register(t, svc, "Orbiters")
			bal, err := svc.AddCoins(context.Background(), team.ID, tc.amount)
			if !tc.ok {
				assert.ErrorIs(t, err, apperr.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, bal)
		})
	}
}

func TestAddCoinsBalanceOverflow(t *testing.T) {
	svc, st := newService(t)
	team := register(t, svc, "Orbiters")
	ctx := context.Background()

	_, err := svc.AddCoins(ctx, team.ID, int64(math.MaxInt64))
	require.NoError(t, err)
	_, err = svc.AddCoins(ctx, team.ID, 1)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	stored, err := st.TeamByID(ctx, team.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), stored.Design.Coins)
}

func TestSubmitDesignReferenceScenario(t *testing.T) {
	svc, st := newService(t)
	team := register(t, svc, "Orbiters")
	ctx := context.Background()
	_, err := svc.AddCoins(ctx, team.ID, 100000)
	require.NoError(t, err)

	d, err := svc.SubmitDesign(ctx, team.ID, scenario())
	require.NoError(t, err)
	assert.Equal(t, int64(65000), d.TotalCost)
	assert.Equal(t, 60, d.PowerDraw)
	assert.Equal(t, 500.0/60.0, d.RuntimeHours)
	assert.Equal(t, int64(35000), d.RemainingCoins)
	assert.Equal(t, team.Code, d.TeamCode)

	stored, err := st.TeamByID(ctx, team.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(35000), stored.Design.Coins)
	assert.Equal(t, d.ID, stored.Design.DesignID)

	saved, err := svc.FetchDesign(ctx, team.ID)
	require.NoError(t, err)
	assert.Equal(t, d.ID, saved.ID)
	assert.Equal(t, d.TotalCost, saved.TotalCost)
}

func TestFetchDesignBeforeSubmit(t *testing.T) {
	svc, _ := newService(t)
	team := register(t, svc, "Orbiters")

	_, err := svc.FetchDesign(context.Background(), team.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = svc.FetchDesign(context.Background(), "ghost")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSubmitDesignTwice(t *testing.T) {
	svc, st := newService(t)
	team := register(t, svc, "Orbiters")
	ctx := context.Background()
	_, err := svc.AddCoins(ctx, team.ID, 1_000_000)
	require.NoError(t, err)

	_, err = svc.SubmitDesign(ctx, team.ID, scenario())
	require.NoError(t, err)

	cheap := scenario()
	cheap.Batteries = nil
	_, err = svc.SubmitDesign(ctx, team.ID, cheap)
	assert.ErrorIs(t, err, apperr.ErrAlreadySubmitted)

	stored, err := st.TeamByID(ctx, team.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_000-65000), stored.Design.Coins)
}

func TestSubmitDesignRejectionsLeaveBalance(t *testing.T) {
	cases := map[string]struct {
		coins  int64
		mutate func(p *design.Payload)
		want   error
	}{
		"power overload": {
			coins: 1_000_000,
			mutate: func(p *design.Payload) {
				p.Solar = "P01"
				p.Components = []design.Component{{Code: "E05", Row: 0, Col: 0}}
			},
			want: apperr.ErrPowerOverload,
		},
		"budget exceeded": {
			coins:  64999,
			mutate: func(p *design.Payload) {},
			want:   apperr.ErrBudgetExceeded,
		},
		"overlap": {
			coins: 1_000_000,
			mutate: func(p *design.Payload) {
				p.Components = append(p.Components, design.Component{Code: "E03", Row: 1, Col: 1})
			},
			want: apperr.ErrInvalidPlacement,
		},
		"unknown orbit": {
			coins:  1_000_000,
			mutate: func(p *design.Payload) { p.Orbit = "Lagrange" },
			want:   apperr.ErrValidation,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			svc, st := newService(t)
			team := register(t, svc, "Orbiters")
			ctx := context.Background()
			_, err := svc.AddCoins(ctx, team.ID, tc.coins)
			require.NoError(t, err)

			p := scenario()
			tc.mutate(&p)
			_, err = svc.SubmitDesign(ctx, team.ID, p)
			assert.ErrorIs(t, err, tc.want)

			stored, err := st.TeamByID(ctx, team.ID)
			require.NoError(t, err)
			assert.Equal(t, tc.coins, stored.Design.Coins)
			assert.Empty(t, stored.Design.DesignID)
		})
	}
}

func TestSubmitDesignUnknownTeam(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.SubmitDesign(context.Background(), "ghost", scenario())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestConcurrentSubmitDesignDebitsOnce(t *testing.T) {
	svc, st := newService(t)
	var mu sync.Mutex
	n := 0
	svc.newID = func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%d", n)
	}
	team := register(t, svc, "Orbiters")
	ctx := context.Background()
	_, err := svc.AddCoins(ctx, team.ID, 100000)
	require.NoError(t, err)

	const workers = 10
	results := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.SubmitDesign(ctx, team.ID, scenario())
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	ok := 0
	for err := range results {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, apperr.ErrAlreadySubmitted)
	}
	assert.Equal(t, 1, ok)

	stored, err := st.TeamByID(ctx, team.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(35000), stored.Design.Coins)
}

// --------------------------------- seed ------------------------------------

func TestSeedPuzzlesReset(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()
	puzzles := seed(t, svc)
	for _, p := range puzzles {
		assert.NotEmpty(t, p.ID)
	}

	fresh, err := crossword.LoadSeed("")
	require.NoError(t, err)
	n, err := svc.SeedPuzzles(ctx, fresh[:1], true)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	ids, err := st.PuzzleIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{fresh[0].ID}, ids)
}
