// main.go
//
// SatQuest server entrypoint.
// Commands:
//   - serve (default): open the store, load the catalog, serve HTTP until SIGINT/SIGTERM.
//   - migrate:         apply SQLite migrations and exit.
//   - seed:            load crossword puzzles from YAML into the store.
//
// Settings come from flags, falling back to environment variables (.env is loaded first).

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/robalobadob/satquest/internal/catalog"
	"github.com/robalobadob/satquest/internal/crossword"
	"github.com/robalobadob/satquest/internal/httpserver"
	"github.com/robalobadob/satquest/internal/mission"
	"github.com/robalobadob/satquest/internal/store"
)

func main() {
	_ = godotenv.Load()
	if lvl, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "info")); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCommand().Run(ctx, os.Args); err != nil {
		log.Fatal().Err(err).Msg("satquest exited")
	}
}

func rootCommand() *cli.Command {
	return &cli.Command{
		Name:  "satquest",
		Usage: "team registration, crossword and satellite design server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "store", Value: "sqlite", Usage: "sqlite | memory", Sources: cli.EnvVars("STORE")},
			&cli.StringFlag{Name: "db", Value: "./data/satquest.db", Usage: "SQLite database path", Sources: cli.EnvVars("DB_PATH")},

			// serve settings; root flags are visible to every subcommand
			&cli.StringFlag{Name: "port", Value: "5175", Sources: cli.EnvVars("PORT")},
			&cli.StringFlag{Name: "catalog", Usage: "parts catalog YAML (embedded when empty)", Sources: cli.EnvVars("CATALOG_FILE")},
			&cli.StringFlag{Name: "jwt-secret", Sources: cli.EnvVars("JWT_SECRET")},
			&cli.IntFlag{Name: "jwt-expires-days", Value: 14, Sources: cli.EnvVars("JWT_EXPIRES_DAYS")},
			&cli.StringFlag{Name: "cookie-name", Value: "satquest_token", Sources: cli.EnvVars("COOKIE_NAME")},
			&cli.StringFlag{Name: "client-origin", Value: "http://localhost:5173", Sources: cli.EnvVars("CLIENT_ORIGIN")},
			&cli.StringFlag{Name: "admin-key-hash", Usage: "bcrypt hash of the admin key", Sources: cli.EnvVars("ADMIN_KEY_HASH")},
		},
		Commands: []*cli.Command{
			serveCommand(),
			{
				Name:  "migrate",
				Usage: "apply database migrations and exit",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					db, err := store.OpenDB(cmd.String("db"))
					if err != nil {
						return err
					}
					defer db.Close()
					return store.Migrate(db)
				},
			},
			{
				Name:  "seed",
				Usage: "load crossword puzzles from a YAML file (embedded set when omitted)",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Usage: "puzzle YAML file"},
					&cli.BoolFlag{Name: "reset", Usage: "delete existing puzzles first"},
				},
				Action: runSeed,
			},
		},
		Action: runServe,
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "run the HTTP server (default)",
		Action: runServe,
	}
}

// runServe wires store → service → HTTP and blocks until ctx is cancelled.
func runServe(ctx context.Context, cmd *cli.Command) error {
	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	cat, err := catalog.Load(cmd.String("catalog"))
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	svc := mission.New(st, cat)
	if err := ensurePuzzles(ctx, st, svc); err != nil {
		return err
	}

	srv := httpserver.New(svc, httpserver.Config{
		ClientOrigin:   cmd.String("client-origin"),
		JWTSecret:      cmd.String("jwt-secret"),
		JWTExpiresDays: int(cmd.Int("jwt-expires-days")),
		CookieName:     cmd.String("cookie-name"),
		Production:     os.Getenv("NODE_ENV") == "production",
		AdminKeyHash:   cmd.String("admin-key-hash"),
	})
	if cmd.String("jwt-secret") == "" {
		log.Warn().Msg("JWT_SECRET not set; using development secret")
	}

	port := cmd.String("port")
	if port == "" {
		port = "5175"
	}
	hs := &http.Server{
		Addr:              ":" + port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("port", port).Str("store", cmd.String("store")).Msg("starting satquest")
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return hs.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// runSeed loads puzzles from --file (or the embedded set) and stores them.
func runSeed(ctx context.Context, cmd *cli.Command) error {
	if cmd.String("store") == "memory" {
		return errors.New("seed needs a persistent store; use --store sqlite")
	}
	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	puzzles, err := crossword.LoadSeed(cmd.String("file"))
	if err != nil {
		return err
	}
	n, err := mission.New(st, catalog.Default()).SeedPuzzles(ctx, puzzles, cmd.Bool("reset"))
	if err != nil {
		return err
	}
	log.Info().Int("puzzles", n).Bool("reset", cmd.Bool("reset")).Msg("seeded")
	return nil
}

// openStore returns the configured store; SQLite databases are migrated on open.
func openStore(cmd *cli.Command) (store.Store, error) {
	switch kind := cmd.String("store"); kind {
	case "memory":
		return store.NewMemoryStore(), nil
	case "sqlite", "":
		return store.OpenSQLite(cmd.String("db"))
	default:
		return nil, fmt.Errorf("unknown store %q (want sqlite or memory)", kind)
	}
}

// ensurePuzzles loads the embedded puzzle set into an empty store so a fresh
// server can issue crosswords immediately.
func ensurePuzzles(ctx context.Context, st store.Store, svc *mission.Service) error {
	ids, err := st.PuzzleIDs(ctx)
	if err != nil {
		return fmt.Errorf("list puzzles: %w", err)
	}
	if len(ids) > 0 {
		return nil
	}
	puzzles, err := crossword.LoadSeed("")
	if err != nil {
		return err
	}
	n, err := svc.SeedPuzzles(ctx, puzzles, false)
	if err != nil {
		return err
	}
	log.Info().Int("puzzles", n).Msg("no puzzles found; loaded embedded set")
	return nil
}

// getEnv returns the value of k or def if unset/empty.
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
