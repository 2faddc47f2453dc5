// Package farm implements planting, growth and harvesting on the nine-plot
// farm grid.
package farm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/fazenda/internal/clock"
	"github.com/cory-johannsen/fazenda/internal/game/progression"
	"github.com/cory-johannsen/fazenda/internal/gamedata"
)

var (
	ErrUnknownCrop  = errors.New("farm: unknown crop")
	ErrPlotOccupied = errors.New("farm: plot is not empty")
	ErrPlotEmpty    = errors.New("farm: plot is empty")
	ErrNotGrown     = errors.New("farm: crop has not finished growing")
)

// FirstHarvest is the achievement unlocked by the first harvest.
const FirstHarvest = "first_harvest"

// Farm mutates plots through a progression.Store.
type Farm struct {
	store   *progression.Store
	catalog *gamedata.Catalog
	clk     clock.Clock
	logger  *zap.Logger
}

// New creates a Farm.
//
// Precondition: all arguments must be non-nil.
func New(store *progression.Store, catalog *gamedata.Catalog, clk clock.Clock, logger *zap.Logger) *Farm {
	return &Farm{store: store, catalog: catalog, clk: clk, logger: logger}
}

// Harvest is the outcome of a successful harvest.
type Harvest struct {
	CropID string
	Item   string
	Count  int
	XP     int
	// SkillLevels is the number of farming levels gained.
	SkillLevels int
}

// Plant sows cropID in an empty plot, consuming one seed and the crop's
// energy cost.
//
// Postcondition: On error the player state is unchanged.
func (f *Farm) Plant(ctx context.Context, slot int, cropID string) error {
	crop, ok := f.catalog.Crop(cropID)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCrop, cropID)
	}
	now := f.clk.Now()
	err := f.store.Apply(ctx, func(p *progression.PlayerState) error {
		plot, err := p.Plot(slot)
		if err != nil {
			return err
		}
		if plot.State != progression.PlotEmpty {
			return fmt.Errorf("%w: plot %d holds %s", ErrPlotOccupied, slot, plot.CropID)
		}
		if err := p.RemoveItem(crop.SeedItem, 1); err != nil {
			return err
		}
		if err := p.SpendEnergy(crop.EnergyCost); err != nil {
			return err
		}
		return p.SetPlot(slot, progression.Plot{
			State:     progression.PlotSeed,
			CropID:    crop.ID,
			PlantedAt: now.UnixMilli(),
		})
	})
	if err != nil {
		return err
	}
	f.logger.Debug("crop planted", zap.Int("plot", slot), zap.String("crop", crop.ID))
	return nil
}

// Refresh marks every seed whose grow time has elapsed by now as grown.
// Nothing is written when no plot changes.
//
// Postcondition: Returns the number of plots that became grown.
func (f *Farm) Refresh(ctx context.Context, now time.Time) (int, error) {
	due := f.due(f.store.Plots(), now)
	if len(due) == 0 {
		return 0, nil
	}
	err := f.store.Apply(ctx, func(p *progression.PlayerState) error {
		for _, i := range f.due(p.Plots, now) {
			plot := p.Plots[i]
			plot.State = progression.PlotGrown
			if err := p.SetPlot(i, plot); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	f.logger.Debug("crops grown", zap.Ints("plots", due))
	return len(due), nil
}

func (f *Farm) due(plots [progression.PlotCount]progression.Plot, now time.Time) []int {
	var out []int
	for i, plot := range plots {
		if plot.State != progression.PlotSeed {
			continue
		}
		crop, ok := f.catalog.Crop(plot.CropID)
		if !ok {
			f.logger.Warn("plot holds unknown crop", zap.Int("plot", i), zap.String("crop", plot.CropID))
			continue
		}
		if ready(plot, crop, now) {
			out = append(out, i)
		}
	}
	return out
}

func ready(plot progression.Plot, crop *gamedata.CropDef, now time.Time) bool {
	return !now.Before(time.UnixMilli(plot.PlantedAt).Add(crop.GrowTime))
}

// Harvest collects a grown crop: the plot yields its harvest items and
// farming XP, then returns to empty. A seed whose grow time has elapsed is
// harvestable even before Refresh has marked it grown.
//
// Postcondition: On error the player state is unchanged.
func (f *Farm) Harvest(ctx context.Context, slot int) (Harvest, error) {
	now := f.clk.Now()
	var out Harvest
	err := f.store.Apply(ctx, func(p *progression.PlayerState) error {
		plot, err := p.Plot(slot)
		if err != nil {
			return err
		}
		if plot.State == progression.PlotEmpty {
			return fmt.Errorf("%w: plot %d", ErrPlotEmpty, slot)
		}
		crop, ok := f.catalog.Crop(plot.CropID)
		if !ok {
			return fmt.Errorf("%w: %q in plot %d", ErrUnknownCrop, plot.CropID, slot)
		}
		if plot.State == progression.PlotSeed && !ready(plot, crop, now) {
			return fmt.Errorf("%w: plot %d", ErrNotGrown, slot)
		}
		if err := p.AddItem(crop.HarvestItem, crop.Yield); err != nil {
			return err
		}
		levels, err := p.AddSkillXP(progression.SkillFarming, crop.FarmingXP)
		if err != nil {
			return err
		}
		p.UnlockAchievement(FirstHarvest)
		out = Harvest{
			CropID:      crop.ID,
			Item:        crop.HarvestItem,
			Count:       crop.Yield,
			XP:          crop.FarmingXP,
			SkillLevels: levels,
		}
		return p.SetPlot(slot, progression.Plot{State: progression.PlotEmpty})
	})
	if err != nil {
		return Harvest{}, err
	}
	f.logger.Info("crop harvested",
		zap.Int("plot", slot),
		zap.String("crop", out.CropID),
		zap.Int("count", out.Count),
		zap.Int("farming_xp", out.XP),
	)
	return out, nil
}

// Remaining returns how long the crop in slot still needs to grow; zero
// once it is grown.
func (f *Farm) Remaining(slot int, now time.Time) (time.Duration, error) {
	plot, err := f.store.Plot(slot)
	if err != nil {
		return 0, err
	}
	switch plot.State {
	case progression.PlotEmpty:
		return 0, fmt.Errorf("%w: plot %d", ErrPlotEmpty, slot)
	case progression.PlotGrown:
		return 0, nil
	}
	crop, ok := f.catalog.Crop(plot.CropID)
	if !ok {
		return 0, fmt.Errorf("%w: %q in plot %d", ErrUnknownCrop, plot.CropID, slot)
	}
	left := time.UnixMilli(plot.PlantedAt).Add(crop.GrowTime).Sub(now)
	return max(left, 0), nil
}
