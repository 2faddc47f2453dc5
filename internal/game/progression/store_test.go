package progression_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/fazenda/internal/clock"
	"github.com/cory-johannsen/fazenda/internal/game/progression"
	"github.com/cory-johannsen/fazenda/internal/storage"
	"github.com/cory-johannsen/fazenda/internal/storage/filekv"
)

var epoch = time.UnixMilli(1_700_000_000_000)

func newKV(t *testing.T) *filekv.KV {
	t.Helper()
	kv, err := filekv.New(afero.NewMemMapFs(), "/saves", "test")
	require.NoError(t, err)
	return kv
}

func newStore(t *testing.T, kv storage.KV, clk clock.Clock) *progression.Store {
	t.Helper()
	return progression.NewStore(kv, clk, zaptest.NewLogger(t))
}

// flakyKV fails reads or writes on demand.
type flakyKV struct {
	storage.KV
	failGet bool
	failPut bool
}

var errDisk = errors.New("disk full")

func (f *flakyKV) Get(ctx context.Context, key string) ([]byte, error) {
	if f.failGet {
		return nil, errDisk
	}
	return f.KV.Get(ctx, key)
}

func (f *flakyKV) Put(ctx context.Context, key string, value []byte) error {
	if f.failPut {
		return errDisk
	}
	return f.KV.Put(ctx, key, value)
}

func TestStore_LoadWithoutSaveStartsNewGame(t *testing.T) {
	ctx := context.Background()
	kv := newKV(t)
	clk := clock.NewManual(epoch)
	s := newStore(t, kv, clk)

	rep, err := s.Load(ctx)
	require.NoError(t, err)
	assert.False(t, rep.Changed())

	p := s.Player()
	assert.Equal(t, 1, p.Level)
	assert.Equal(t, 100, p.Energy)
	assert.Equal(t, 100, p.MaxEnergy)

	_, err = kv.Get(ctx, storage.KeyPlayer)
	assert.NoError(t, err, "new game is persisted")
	raw, err := kv.Get(ctx, storage.KeyLastRegen)
	require.NoError(t, err)
	assert.Equal(t, "1700000000000", string(raw))
	assert.True(t, s.LastRegen().Equal(epoch))
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := newKV(t)
	clk := clock.NewManual(epoch)
	s := newStore(t, kv, clk)
	_, err := s.Load(ctx)
	require.NoError(t, err)

	_, err = s.AddXP(ctx, 250)
	require.NoError(t, err)
	_, err = s.AddSkillXP(ctx, "farming", 120)
	require.NoError(t, err)
	s.AddGold(ctx, 40)
	require.NoError(t, s.SetPlot(ctx, 4, progression.Plot{State: progression.PlotSeed, CropID: "wheat", PlantedAt: epoch.UnixMilli()}))
	require.NoError(t, s.Apply(ctx, func(p *progression.PlayerState) error {
		p.UnlockAchievement("first_seed")
		return p.SpendEnergy(7)
	}))
	require.NoError(t, s.Save(ctx))
	want := s.Player()

	reloaded := newStore(t, kv, clk)
	rep, err := reloaded.Load(ctx)
	require.NoError(t, err)
	assert.False(t, rep.Changed(), "current saves load without migration: %+v", rep)
	assert.Equal(t, want, reloaded.Player())

	plot, err := reloaded.Plot(4)
	require.NoError(t, err)
	assert.Equal(t, "wheat", plot.CropID)
	assert.Equal(t, progression.PlotSeed, reloaded.Plots()[4].State)
}

func TestStore_LoadMigratesAndWritesBack(t *testing.T) {
	ctx := context.Background()
	kv := newKV(t)
	legacy := `{"level": 10, "energia": 90, "maxEnergia": 100, "skills": {"farming": 5, "mining": 3}}`
	require.NoError(t, kv.Put(ctx, storage.KeyPlayer, []byte(legacy)))

	core, logs := observer.New(zapcore.InfoLevel)
	s := progression.NewStore(kv, clock.NewManual(epoch), zap.New(core))
	rep, err := s.Load(ctx)
	require.NoError(t, err)
	assert.True(t, rep.StaleMaxEnergy)
	assert.Equal(t, 1, rep.FromVersion)

	p := s.Player()
	assert.Equal(t, 175, p.MaxEnergy)
	assert.Equal(t, 90, p.Energy)

	raw, err := kv.Get(ctx, storage.KeyPlayer)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.EqualValues(t, progression.SchemaVersion, doc["schemaVersion"])
	assert.EqualValues(t, 175, doc["maxEnergy"])

	migrated := logs.FilterMessage("save migrated").All()
	require.Len(t, migrated, 1)
	assert.EqualValues(t, 100, migrated[0].ContextMap()["stored_max_energy"])
}

func TestStore_LoadReadErrorKeepsState(t *testing.T) {
	ctx := context.Background()
	kv := &flakyKV{KV: newKV(t)}
	s := newStore(t, kv, clock.NewManual(epoch))
	s.AddGold(ctx, 11)
	before := s.Player()

	kv.failGet = true
	_, err := s.Load(ctx)
	require.ErrorIs(t, err, errDisk)
	assert.Equal(t, before, s.Player())
}

func TestStore_ApplyRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	kv := newKV(t)
	s := newStore(t, kv, clock.NewManual(epoch))
	_, err := s.Load(ctx)
	require.NoError(t, err)
	before := s.Player()
	stored, err := kv.Get(ctx, storage.KeyPlayer)
	require.NoError(t, err)

	err = s.Apply(ctx, func(p *progression.PlayerState) error {
		p.AddGold(500)
		if _, err := p.AddXP(1000); err != nil {
			return err
		}
		return p.SpendEnergy(10_000)
	})
	require.ErrorIs(t, err, progression.ErrInsufficientEnergy)
	assert.Equal(t, before, s.Player())

	after, err := kv.Get(ctx, storage.KeyPlayer)
	require.NoError(t, err)
	assert.Equal(t, stored, after, "nothing written on rollback")
}

func TestStore_InvalidArgumentsReturnErrors(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, newKV(t), clock.NewManual(epoch))
	before := s.Player()

	_, err := s.AddSkillXP(ctx, "alchemy", 10)
	assert.ErrorIs(t, err, progression.ErrUnknownSkill)
	_, err = s.AddXP(ctx, -1)
	assert.ErrorIs(t, err, progression.ErrNegativeAmount)
	assert.ErrorIs(t, s.SetPlot(ctx, 9, progression.Plot{State: progression.PlotEmpty}), progression.ErrPlotIndex)
	_, err = s.Plot(-1)
	assert.ErrorIs(t, err, progression.ErrPlotIndex)

	assert.Equal(t, before, s.Player())
}

func TestStore_WriteFailureIsLoggedAndPlayContinues(t *testing.T) {
	ctx := context.Background()
	kv := &flakyKV{KV: newKV(t)}
	core, logs := observer.New(zapcore.InfoLevel)
	s := progression.NewStore(kv, clock.NewManual(epoch), zap.New(core))
	_, err := s.Load(ctx)
	require.NoError(t, err)

	kv.failPut = true
	assert.Equal(t, 125, s.AddGold(ctx, 25))
	levels, err := s.AddXP(ctx, 100)
	require.NoError(t, err, "storage errors are not surfaced by mutations")
	assert.Equal(t, 1, levels)
	assert.Equal(t, 2, s.Player().Level)

	assert.GreaterOrEqual(t, logs.FilterMessage("saving player state failed").Len(), 2)
	assert.Equal(t, 1, logs.FilterMessage("player leveled up").Len())

	assert.ErrorIs(t, s.Save(ctx), errDisk, "explicit saves do report failures")
}

func TestStore_RegenerateOnlyOnWholeIntervals(t *testing.T) {
	ctx := context.Background()
	kv := newKV(t)
	clk := clock.NewManual(epoch)
	s := newStore(t, kv, clk)
	_, err := s.Load(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Apply(ctx, func(p *progression.PlayerState) error { return p.SpendEnergy(50) }))

	gained, err := s.Regenerate(ctx, clk.Advance(59*time.Second))
	require.NoError(t, err)
	assert.Equal(t, 0, gained)
	assert.Equal(t, 50, s.Player().Energy)

	gained, err = s.Regenerate(ctx, clk.Advance(time.Second))
	require.NoError(t, err)
	assert.Equal(t, 1, gained)
	assert.Equal(t, 51, s.Player().Energy)

	gained, err = s.Regenerate(ctx, clk.Advance(5*time.Minute+30*time.Second))
	require.NoError(t, err)
	assert.Equal(t, 5, gained)
	assert.Equal(t, 56, s.Player().Energy)
	assert.True(t, s.LastRegen().Equal(epoch.Add(6*time.Minute)), "partial interval carries over")

	raw, err := kv.Get(ctx, storage.KeyLastRegen)
	require.NoError(t, err)
	assert.Equal(t, "1700000360000", string(raw))
}

func TestStore_RegenerateCapsAndNeverBanks(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewManual(epoch)
	s := newStore(t, newKV(t), clk)
	_, err := s.Load(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Apply(ctx, func(p *progression.PlayerState) error { return p.SpendEnergy(3) }))

	gained, err := s.Regenerate(ctx, clk.Advance(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 3, gained)
	assert.Equal(t, 100, s.Player().Energy)

	require.NoError(t, s.Apply(ctx, func(p *progression.PlayerState) error { return p.SpendEnergy(10) }))
	gained, err = s.Regenerate(ctx, clk.Advance(30*time.Second))
	require.NoError(t, err)
	assert.Equal(t, 0, gained, "time spent at full energy is not banked")
}

func TestStore_RegenerateCatchesUpAcrossSessions(t *testing.T) {
	ctx := context.Background()
	kv := newKV(t)
	clk := clock.NewManual(epoch)
	s := newStore(t, kv, clk)
	_, err := s.Load(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Apply(ctx, func(p *progression.PlayerState) error { return p.SpendEnergy(40) }))

	clk.Advance(10 * time.Minute)
	next := newStore(t, kv, clk)
	_, err = next.Load(ctx)
	require.NoError(t, err)
	gained, err := next.Regenerate(ctx, clk.Now())
	require.NoError(t, err)
	assert.Equal(t, 10, gained)
	assert.Equal(t, 70, next.Player().Energy)
}

func TestStore_RegenerateWithoutTimestampStartsCounting(t *testing.T) {
	ctx := context.Background()
	kv := newKV(t)
	clk := clock.NewManual(epoch)
	s := progression.NewStore(kv, clk, zap.NewNop(), progression.WithRegen(10*time.Second, 2))
	_, err := s.Load(ctx)
	require.NoError(t, err)
	require.NoError(t, kv.Put(ctx, storage.KeyLastRegen, []byte("garbage")))
	require.NoError(t, s.Apply(ctx, func(p *progression.PlayerState) error { return p.SpendEnergy(20) }))

	_, err = s.Load(ctx)
	require.NoError(t, err)
	assert.True(t, s.LastRegen().IsZero())

	gained, err := s.Regenerate(ctx, clk.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, gained)

	gained, err = s.Regenerate(ctx, clk.Advance(25*time.Second))
	require.NoError(t, err)
	assert.Equal(t, 4, gained)
}

func TestStore_Reset(t *testing.T) {
	ctx := context.Background()
	kv := newKV(t)
	clk := clock.NewManual(epoch)
	s := newStore(t, kv, clk)
	_, err := s.Load(ctx)
	require.NoError(t, err)
	_, err = s.AddXP(ctx, 1000)
	require.NoError(t, err)
	require.NoError(t, kv.Put(ctx, storage.KeyActiveEvents, []byte(`["harvest_festival"]`)))
	oldID := s.Player().SaveID

	clk.Advance(time.Hour)
	require.NoError(t, s.Reset(ctx))

	p := s.Player()
	assert.NotEqual(t, oldID, p.SaveID)
	assert.Equal(t, 1, p.Level)
	assert.Equal(t, 100, p.Gold)
	_, err = kv.Get(ctx, storage.KeyActiveEvents)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.True(t, s.LastRegen().Equal(epoch.Add(time.Hour)))

	reloaded := newStore(t, kv, clk)
	_, err = reloaded.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, p.SaveID, reloaded.Player().SaveID)
}

func TestStore_LargeCountersSurviveReload(t *testing.T) {
	ctx := context.Background()
	kv := newKV(t)
	clk := clock.NewManual(epoch)
	s := newStore(t, kv, clk)
	_, err := s.Load(ctx)
	require.NoError(t, err)

	s.AddGold(ctx, 3_000_000_000)
	require.NoError(t, s.Apply(ctx, func(p *progression.PlayerState) error {
		return p.AddItem("wheat", 3_000_000_000)
	}))

	reloaded := newStore(t, kv, clk)
	rep, err := reloaded.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, rep.Defaulted)
	p := reloaded.Player()
	assert.Equal(t, 3_000_000_100, p.Gold)
	assert.Equal(t, 3_000_000_000, p.ItemCount("wheat"))
}
