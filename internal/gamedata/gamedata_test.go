package gamedata_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/fazenda/internal/gamedata"
)

func writeFile(t *testing.T, fsys afero.Fs, path, body string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fsys, path, []byte(body), 0o644))
}

func TestLoad_YAML(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, "/content/crops.yaml", `
crops:
  - id: wheat
    name: Wheat
    grow_time: 2m
    energy_cost: 5
    yield: 2
    farming_xp: 10
  - id: carrot
    name: Carrot
    seed_item: carrot_seed
    harvest_item: carrot
    grow_time: 5m
    energy_cost: 8
    farming_xp: 20
`)
	writeFile(t, fsys, "/content/quests.yaml", `
quests:
  - id: bread
    name: Bread for the Village
    min_level: 2
    requires:
      wheat: 3
    reward:
      gold: 50
      xp: 40
      skill_xp:
        cooking: 25
`)
	writeFile(t, fsys, "/content/events.yaml", `
events:
  - id: festa_junina
    name: Festa Junina
    start: "06-01"
    end: "06-30"
    script: |
      function reward() fazenda.add_gold(10) end
`)

	cat, err := gamedata.Load(fsys, "/content")
	require.NoError(t, err)

	wheat, ok := cat.Crop("wheat")
	require.True(t, ok)
	assert.Equal(t, "wheat_seed", wheat.SeedItem)
	assert.Equal(t, "wheat", wheat.HarvestItem)
	assert.Equal(t, 2*time.Minute, wheat.GrowTime)
	assert.Equal(t, 2, wheat.Yield)

	carrot, ok := cat.Crop("carrot")
	require.True(t, ok)
	assert.Equal(t, 1, carrot.Yield, "yield defaults to one")

	quest, ok := cat.Quest("bread")
	require.True(t, ok)
	assert.Equal(t, map[string]int{"wheat": 3}, quest.Requires)
	assert.Equal(t, 25, quest.Reward.SkillXP["cooking"])

	ev, ok := cat.Event("festa_junina")
	require.True(t, ok)
	assert.Equal(t, time.June, ev.Window.Start.Month)
	assert.Contains(t, ev.Script, "function reward()")

	ids := []string{}
	for _, c := range cat.Crops() {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"carrot", "wheat"}, ids)
}

func TestLoad_JSONFallback(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, "/content/crops.json", `{"crops": [{"id": "corn", "grow_time": "90s", "energy_cost": 3}]}`)

	cat, err := gamedata.Load(fsys, "/content")
	require.NoError(t, err)
	corn, ok := cat.Crop("corn")
	require.True(t, ok)
	assert.Equal(t, 90*time.Second, corn.GrowTime)
	assert.Empty(t, cat.Quests())
	assert.Empty(t, cat.Events())
}

func TestLoad_EmptyFile(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, "/content/quests.yaml", "")
	cat, err := gamedata.Load(fsys, "/content")
	require.NoError(t, err)
	assert.Empty(t, cat.Quests())
}

func TestLoad_Rejects(t *testing.T) {
	cases := map[string]struct {
		file string
		body string
	}{
		"unknown field":    {"crops.yaml", "crops:\n  - id: wheat\n    grow_time: 1m\n    colour: gold\n"},
		"zero grow time":   {"crops.yaml", "crops:\n  - id: wheat\n"},
		"bad duration":     {"crops.yaml", "crops:\n  - id: wheat\n    grow_time: soon\n"},
		"duplicate crop":   {"crops.yaml", "crops:\n  - id: wheat\n    grow_time: 1m\n  - id: wheat\n    grow_time: 2m\n"},
		"missing crop id":  {"crops.yaml", "crops:\n  - grow_time: 1m\n"},
		"unknown skill":    {"quests.yaml", "quests:\n  - id: q\n    reward:\n      skill_xp:\n        alchemy: 5\n"},
		"negative reward":  {"quests.yaml", "quests:\n  - id: q\n    reward:\n      gold: -5\n"},
		"zero requirement": {"quests.yaml", "quests:\n  - id: q\n    requires:\n      wheat: 0\n"},
		"bad window":       {"events.yaml", "events:\n  - id: e\n    start: \"13-01\"\n    end: \"01-01\"\n    script: x\n"},
		"missing script":   {"events.yaml", "events:\n  - id: e\n    start: \"01-01\"\n    end: \"01-02\"\n"},
		"malformed yaml":   {"events.yaml", "events: [\n"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			fsys := afero.NewMemMapFs()
			writeFile(t, fsys, "/content/"+tc.file, tc.body)
			_, err := gamedata.Load(fsys, "/content")
			assert.Error(t, err)
		})
	}
}

func TestParseMonthDay(t *testing.T) {
	d, err := gamedata.ParseMonthDay("02-29")
	require.NoError(t, err)
	assert.Equal(t, gamedata.MonthDay{Month: time.February, Day: 29}, d)
	assert.Equal(t, "02-29", d.String())

	for _, bad := range []string{"", "2-3", "00-10", "04-31", "12/25", "12-25-2024"} {
		_, err := gamedata.ParseMonthDay(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestWindowContains(t *testing.T) {
	day := func(m time.Month, d int) time.Time { return time.Date(2025, m, d, 12, 0, 0, 0, time.UTC) }

	halloween, err := gamedata.ParseWindow("10-25", "11-02")
	require.NoError(t, err)
	assert.True(t, halloween.Contains(day(time.October, 25)))
	assert.True(t, halloween.Contains(day(time.October, 31)))
	assert.True(t, halloween.Contains(day(time.November, 2)))
	assert.False(t, halloween.Contains(day(time.November, 3)))
	assert.False(t, halloween.Contains(day(time.October, 24)))

	winter, err := gamedata.ParseWindow("12-20", "01-05")
	require.NoError(t, err)
	assert.True(t, winter.Contains(day(time.December, 31)))
	assert.True(t, winter.Contains(day(time.January, 1)))
	assert.True(t, winter.Contains(day(time.January, 5)))
	assert.False(t, winter.Contains(day(time.January, 6)))
	assert.False(t, winter.Contains(day(time.June, 15)))
	assert.Equal(t, "12-20..01-05", winter.String())

	single, err := gamedata.ParseWindow("07-04", "07-04")
	require.NoError(t, err)
	assert.True(t, single.Contains(day(time.July, 4)))
	assert.False(t, single.Contains(day(time.July, 5)))
}

func TestLoadDir_ShippedContent(t *testing.T) {
	cat, err := gamedata.LoadDir(filepath.Join("..", "..", "content"))
	require.NoError(t, err)
	assert.NotEmpty(t, cat.Crops())
	assert.NotEmpty(t, cat.Quests())
	assert.NotEmpty(t, cat.Events())

	_, ok := cat.Crop("wheat")
	assert.True(t, ok, "the starting kit's seeds must be plantable")
	_, ok = cat.Crop("carrot")
	assert.True(t, ok, "the starting kit's seeds must be plantable")
}
