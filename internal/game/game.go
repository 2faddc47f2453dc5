// Package game assembles the progression store and the gameplay services
// around it, and hangs their periodic work off one scheduler.
package game

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/fazenda/internal/clock"
	"github.com/cory-johannsen/fazenda/internal/game/events"
	"github.com/cory-johannsen/fazenda/internal/game/farm"
	"github.com/cory-johannsen/fazenda/internal/game/progression"
	"github.com/cory-johannsen/fazenda/internal/game/quest"
	"github.com/cory-johannsen/fazenda/internal/gamedata"
	"github.com/cory-johannsen/fazenda/internal/scheduler"
	"github.com/cory-johannsen/fazenda/internal/scripting"
	"github.com/cory-johannsen/fazenda/internal/storage"
)

// Scheduler job names, in run order.
const (
	JobRegen  = "regen"
	JobCrops  = "crops"
	JobEvents = "events"
	JobHUD    = "hud"
)

// EventRefreshInterval is how often the active event set is recomputed.
const EventRefreshInterval = time.Minute

// Options tunes a Game.
type Options struct {
	RegenInterval time.Duration
	RegenAmount   int
	// ScriptLimit caps Lua opcodes per reward script; 0 uses the default.
	ScriptLimit int
}

// Game is one loaded save slot and the services acting on it.
type Game struct {
	Store  *progression.Store
	Farm   *farm.Farm
	Quests *quest.Service
	Events *events.Manager

	clk    clock.Clock
	logger *zap.Logger
}

// New wires the services of a save slot. Nothing is read until Load.
//
// Precondition: kv, catalog, clk and logger must be non-nil.
func New(kv storage.KV, catalog *gamedata.Catalog, clk clock.Clock, logger *zap.Logger, opts Options) (*Game, error) {
	var storeOpts []progression.Option
	if opts.RegenInterval > 0 && opts.RegenAmount > 0 {
		storeOpts = append(storeOpts, progression.WithRegen(opts.RegenInterval, opts.RegenAmount))
	}
	store := progression.NewStore(kv, clk, logger, storeOpts...)
	runner := scripting.NewRunner(opts.ScriptLimit, logger)
	ev, err := events.NewManager(store, kv, catalog, runner, clk, logger)
	if err != nil {
		return nil, fmt.Errorf("creating event manager: %w", err)
	}
	return &Game{
		Store:  store,
		Farm:   farm.New(store, catalog, clk, logger),
		Quests: quest.NewService(store, catalog, logger),
		Events: ev,
		clk:    clk,
		logger: logger,
	}, nil
}

// Load resumes the slot: the player state (migrating old saves) and the
// active events, then catches up regeneration, growth and events to now.
func (g *Game) Load(ctx context.Context) (progression.Report, error) {
	rep, err := g.Store.Load(ctx)
	if err != nil {
		return rep, err
	}
	if err := g.Events.Load(ctx); err != nil {
		return rep, err
	}
	now := g.clk.Now()
	if _, err := g.Store.Regenerate(ctx, now); err != nil {
		g.logger.Warn("catching up regeneration failed", zap.Error(err))
	}
	if _, err := g.Farm.Refresh(ctx, now); err != nil {
		g.logger.Warn("catching up crop growth failed", zap.Error(err))
	}
	if _, _, err := g.Events.Refresh(ctx, now); err != nil {
		g.logger.Warn("refreshing events failed", zap.Error(err))
	}
	return rep, nil
}

// Reset clears the slot and starts a new game.
func (g *Game) Reset(ctx context.Context) error {
	if err := g.Store.Reset(ctx); err != nil {
		return err
	}
	return g.Events.Load(ctx)
}

type jobSpec struct {
	name  string
	every time.Duration
	fn    scheduler.JobFunc
}

// RegisterJobs adds the regen, crop, event and (optionally) HUD jobs to s.
// The HUD job logs a status line every hudEvery; 0 disables it.
func (g *Game) RegisterJobs(s *scheduler.Scheduler, hudEvery time.Duration) error {
	jobs := []jobSpec{
		{JobRegen, 0, func(ctx context.Context, now time.Time) error {
			_, err := g.Store.Regenerate(ctx, now)
			return err
		}},
		{JobCrops, 0, func(ctx context.Context, now time.Time) error {
			_, err := g.Farm.Refresh(ctx, now)
			return err
		}},
		{JobEvents, EventRefreshInterval, func(ctx context.Context, now time.Time) error {
			_, _, err := g.Events.Refresh(ctx, now)
			return err
		}},
	}
	if hudEvery > 0 {
		jobs = append(jobs, jobSpec{JobHUD, hudEvery, func(context.Context, time.Time) error {
			g.logHUD()
			return nil
		}})
	}
	for _, j := range jobs {
		if err := s.Register(j.name, j.every, j.fn); err != nil {
			return err
		}
	}
	return nil
}

// Status is a read-only summary of the slot for display.
type Status struct {
	Level     int
	XP        int
	XPToNext  int
	Gold      int
	Energy    int
	MaxEnergy int
	Grown     int
	Growing   int
	Events    []string
}

// Status summarises the current state.
func (g *Game) Status() Status {
	p := g.Store.Player()
	st := Status{
		Level:     p.Level,
		XP:        p.XP,
		XPToNext:  progression.XPToNextLevel(p.Level),
		Gold:      p.Gold,
		Energy:    p.Energy,
		MaxEnergy: p.MaxEnergy,
		Events:    g.Events.Active(),
	}
	for _, plot := range p.Plots {
		switch plot.State {
		case progression.PlotGrown:
			st.Grown++
		case progression.PlotSeed:
			st.Growing++
		}
	}
	return st
}

func (g *Game) logHUD() {
	st := g.Status()
	g.logger.Debug("status",
		zap.Int("level", st.Level),
		zap.String("xp", fmt.Sprintf("%d/%d", st.XP, st.XPToNext)),
		zap.Int("gold", st.Gold),
		zap.String("energy", fmt.Sprintf("%d/%d", st.Energy, st.MaxEnergy)),
		zap.Int("grown", st.Grown),
		zap.Int("growing", st.Growing),
		zap.Strings("events", st.Events),
	)
}
