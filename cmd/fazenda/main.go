// Package main runs one fazenda save slot: it loads (and migrates) the
// save, then drives energy regeneration, crop growth and seasonal events
// from a single tick until signalled, saving on the way out.
//
// Given a command after the flags (fazenda plant 0 wheat), it runs that one
// command against the slot instead and exits.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/cory-johannsen/fazenda/internal/clock"
	"github.com/cory-johannsen/fazenda/internal/config"
	"github.com/cory-johannsen/fazenda/internal/game"
	"github.com/cory-johannsen/fazenda/internal/gamedata"
	"github.com/cory-johannsen/fazenda/internal/observability"
	"github.com/cory-johannsen/fazenda/internal/scheduler"
	"github.com/cory-johannsen/fazenda/internal/server"
	"github.com/cory-johannsen/fazenda/internal/storage"
	"github.com/cory-johannsen/fazenda/internal/storage/filekv"
	"github.com/cory-johannsen/fazenda/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	contentDir := flag.String("content", "", "path to crops/quests/events definitions; overrides game.content_dir")
	reset := flag.Bool("reset", false, "discard the save slot and start a new game")
	hudEvery := flag.Duration("hud", 10*time.Second, "status log interval; 0 disables it")
	listSlots := flag.Bool("list-slots", false, "print the save slots of the configured backend and exit")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] [command args...]\n\nflags:\n", os.Args[0])
		flag.PrintDefaults()
		fmt.Fprintln(flag.CommandLine.Output(), "\ncommands:")
		for _, c := range game.Commands() {
			fmt.Fprintf(flag.CommandLine.Output(), "  %-8s %-14s %s\n", c.Name, c.Usage, c.Help)
		}
	}
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if *contentDir != "" {
		cfg.Game.ContentDir = *contentDir
	}

	logger, err := observability.NewLogger(cfg)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	if *listSlots {
		slots, err := storageSlots(ctx, cfg)
		if err != nil {
			logger.Fatal("listing save slots", zap.Error(err))
		}
		fmt.Println(strings.Join(slots, "\n"))
		return
	}

	catalog, err := gamedata.LoadDir(cfg.Game.ContentDir)
	if err != nil {
		logger.Fatal("loading game data", zap.Error(err))
	}
	logger.Info("game data loaded",
		zap.String("dir", cfg.Game.ContentDir),
		zap.Int("crops", len(catalog.Crops())),
		zap.Int("quests", len(catalog.Quests())),
		zap.Int("events", len(catalog.Events())),
	)

	lifecycle := server.NewLifecycle(logger, 0)

	var kv storage.KV
	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		dbStart := time.Now()
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			logger.Fatal("connecting to database", zap.Error(err))
		}
		logger.Info("database connected",
			zap.String("host", cfg.Database.Host),
			zap.Duration("elapsed", time.Since(dbStart)),
		)
		kv = pool.KV(cfg.Storage.Slot)
		defer pool.Close()
		lifecycle.Add("postgres", &server.FuncService{
			StartFn: func(ctx context.Context) error {
				return pool.Watch(ctx, 30*time.Second, logger)
			},
		})
	default:
		kv, err = filekv.NewOS(cfg.Storage.Dir, cfg.Storage.Slot)
		if err != nil {
			logger.Fatal("opening save directory", zap.Error(err))
		}
	}

	clk := clock.Real{}
	g, err := game.New(kv, catalog, clk, logger, game.Options{
		RegenInterval: cfg.Game.RegenInterval,
		RegenAmount:   cfg.Game.RegenAmount,
	})
	if err != nil {
		logger.Fatal("creating game", zap.Error(err))
	}

	if *reset {
		if err := g.Reset(ctx); err != nil {
			logger.Fatal("resetting save slot", zap.Error(err))
		}
	}
	rep, err := g.Load(ctx)
	if err != nil {
		logger.Fatal("loading save slot", zap.Error(err))
	}
	st := g.Status()

	if flag.NArg() > 0 {
		out, err := g.Exec(ctx, flag.Args())
		if err != nil {
			logger.Debug("command failed", zap.Strings("args", flag.Args()), zap.Error(err))
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		if err := g.Store.Save(ctx); err != nil {
			logger.Fatal("saving slot", zap.Error(err))
		}
		fmt.Println(out)
		return
	}

	logger.Info("save slot ready",
		zap.Int("from_version", rep.FromVersion),
		zap.Bool("migrated", rep.Changed()),
		zap.Int("level", st.Level),
		zap.Int("energy", st.Energy),
		zap.Int("max_energy", st.MaxEnergy),
		zap.Strings("events", st.Events),
	)

	sched := scheduler.New(clk, cfg.Game.TickInterval, logger)
	if err := g.RegisterJobs(sched, *hudEvery); err != nil {
		logger.Fatal("registering jobs", zap.Error(err))
	}
	lifecycle.Add("scheduler", &server.FuncService{
		StartFn: func(ctx context.Context) error {
			sched.Run(ctx)
			return nil
		},
		StopFn: g.Store.Save,
	})

	logger.Info("fazenda initialized",
		zap.Duration("startup", time.Since(start)),
		zap.Strings("jobs", sched.Jobs()),
	)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("shutdown error", zap.Error(err))
	}
}

// storageSlots lists the save slots of the configured backend.
func storageSlots(ctx context.Context, cfg config.Config) ([]string, error) {
	if cfg.Storage.Backend != config.BackendPostgres {
		return filekv.Slots(afero.NewOsFs(), cfg.Storage.Dir)
	}
	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	defer pool.Close()
	return pool.Slots(ctx)
}
