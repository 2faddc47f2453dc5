// Package gamedata loads the read-only reference data the game consumes:
// crop definitions, quest definitions and seasonal event definitions.
package gamedata

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/fazenda/internal/game/progression"
)

// CropDef is the static definition of a plantable crop.
type CropDef struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	// SeedItem is consumed on planting; defaults to "<id>_seed".
	SeedItem string `yaml:"seed_item"`
	// HarvestItem is produced on harvest; defaults to the crop id.
	HarvestItem string        `yaml:"harvest_item"`
	GrowTime    time.Duration `yaml:"grow_time"`
	EnergyCost  int           `yaml:"energy_cost"`
	Yield       int           `yaml:"yield"`
	FarmingXP   int           `yaml:"farming_xp"`
}

// QuestDef is the static definition of a quest.
type QuestDef struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	MinLevel    int    `yaml:"min_level"`
	// Requires lists items consumed on completion.
	Requires map[string]int     `yaml:"requires"`
	Reward   progression.Reward `yaml:"reward"`
}

// EventDef is the static definition of a seasonal event.
type EventDef struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	// Start and End are inclusive MM-DD dates.
	Start string `yaml:"start"`
	End   string `yaml:"end"`
	// Script is Lua source defining reward().
	Script string `yaml:"script"`

	Window Window `yaml:"-"`
}

type cropFile struct {
	Crops []*CropDef `yaml:"crops"`
}

type questFile struct {
	Quests []*QuestDef `yaml:"quests"`
}

type eventFile struct {
	Events []*EventDef `yaml:"events"`
}

// Catalog holds every loaded definition keyed by ID.
type Catalog struct {
	crops  map[string]*CropDef
	quests map[string]*QuestDef
	events map[string]*EventDef
}

// NewCatalog creates an empty Catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		crops:  make(map[string]*CropDef),
		quests: make(map[string]*QuestDef),
		events: make(map[string]*EventDef),
	}
}

// AddCrop validates def, fills its defaults and registers it.
func (c *Catalog) AddCrop(def *CropDef) error {
	if def.SeedItem == "" {
		def.SeedItem = def.ID + "_seed"
	}
	if def.HarvestItem == "" {
		def.HarvestItem = def.ID
	}
	if def.Yield == 0 {
		def.Yield = 1
	}
	var errs []error
	if def.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	if def.GrowTime <= 0 {
		errs = append(errs, fmt.Errorf("grow_time must be > 0, got %s", def.GrowTime))
	}
	if def.EnergyCost < 0 {
		errs = append(errs, fmt.Errorf("energy_cost must be >= 0, got %d", def.EnergyCost))
	}
	if def.Yield < 0 {
		errs = append(errs, fmt.Errorf("yield must be >= 0, got %d", def.Yield))
	}
	if def.FarmingXP < 0 {
		errs = append(errs, fmt.Errorf("farming_xp must be >= 0, got %d", def.FarmingXP))
	}
	if _, dup := c.crops[def.ID]; dup {
		errs = append(errs, errors.New("duplicate id"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("crop %q: %w", def.ID, err)
	}
	c.crops[def.ID] = def
	return nil
}

// AddQuest validates def and registers it.
func (c *Catalog) AddQuest(def *QuestDef) error {
	var errs []error
	if def.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	if def.MinLevel < 0 {
		errs = append(errs, fmt.Errorf("min_level must be >= 0, got %d", def.MinLevel))
	}
	for item, n := range def.Requires {
		if item == "" || n <= 0 {
			errs = append(errs, fmt.Errorf("requires %q must be > 0, got %d", item, n))
		}
	}
	if err := def.Reward.Validate(); err != nil {
		errs = append(errs, err)
	}
	if _, dup := c.quests[def.ID]; dup {
		errs = append(errs, errors.New("duplicate id"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("quest %q: %w", def.ID, err)
	}
	c.quests[def.ID] = def
	return nil
}

// AddEvent parses def's window and registers it.
func (c *Catalog) AddEvent(def *EventDef) error {
	var errs []error
	if def.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	w, err := ParseWindow(def.Start, def.End)
	if err != nil {
		errs = append(errs, err)
	}
	def.Window = w
	if def.Script == "" {
		errs = append(errs, errors.New("script must not be empty"))
	}
	if _, dup := c.events[def.ID]; dup {
		errs = append(errs, errors.New("duplicate id"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("event %q: %w", def.ID, err)
	}
	c.events[def.ID] = def
	return nil
}

// Crop returns the crop with id, or (nil, false).
func (c *Catalog) Crop(id string) (*CropDef, bool) {
	d, ok := c.crops[id]
	return d, ok
}

// Quest returns the quest with id, or (nil, false).
func (c *Catalog) Quest(id string) (*QuestDef, bool) {
	d, ok := c.quests[id]
	return d, ok
}

// Event returns the event with id, or (nil, false).
func (c *Catalog) Event(id string) (*EventDef, bool) {
	d, ok := c.events[id]
	return d, ok
}

// Crops returns every crop sorted by ID.
func (c *Catalog) Crops() []*CropDef { return sortedValues(c.crops) }

// Quests returns every quest sorted by ID.
func (c *Catalog) Quests() []*QuestDef { return sortedValues(c.quests) }

// Events returns every event sorted by ID.
func (c *Catalog) Events() []*EventDef { return sortedValues(c.events) }

func sortedValues[T any](m map[string]*T) []*T {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]*T, 0, len(ids))
	for _, id := range ids {
		out = append(out, m[id])
	}
	return out
}

// Load reads crops, quests and events from dir. Each kind lives in
// <kind>.yaml, falling back to <kind>.json; a kind with neither file is
// empty.
//
// Precondition: fsys must be non-nil.
// Postcondition: Returns a populated Catalog, or an error naming the first bad file.
func Load(fsys afero.Fs, dir string) (*Catalog, error) {
	cat := NewCatalog()

	var crops cropFile
	if err := decodeKind(fsys, dir, "crops", &crops); err != nil {
		return nil, err
	}
	for _, def := range crops.Crops {
		if err := cat.AddCrop(def); err != nil {
			return nil, err
		}
	}

	var quests questFile
	if err := decodeKind(fsys, dir, "quests", &quests); err != nil {
		return nil, err
	}
	for _, def := range quests.Quests {
		if err := cat.AddQuest(def); err != nil {
			return nil, err
		}
	}

	var events eventFile
	if err := decodeKind(fsys, dir, "events", &events); err != nil {
		return nil, err
	}
	for _, def := range events.Events {
		if err := cat.AddEvent(def); err != nil {
			return nil, err
		}
	}
	return cat, nil
}

// LoadDir reads the catalog from a directory on the host filesystem.
func LoadDir(dir string) (*Catalog, error) {
	return Load(afero.NewOsFs(), dir)
}

// decodeKind decodes <dir>/<kind>.yaml or <dir>/<kind>.json into out. JSON
// files are decoded by the YAML parser.
func decodeKind(fsys afero.Fs, dir, kind string, out any) error {
	for _, ext := range []string{".yaml", ".json"} {
		path := filepath.Join(dir, kind+ext)
		data, err := afero.ReadFile(fsys, path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("reading %q: %w", path, err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("parsing %q: %w", path, err)
		}
		return nil
	}
	return nil
}
