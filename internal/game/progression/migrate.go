package progression

import (
	"math"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// Report describes what Migrate had to repair.
type Report struct {
	// FromVersion is the schema version of the input; 0 when the input was
	// not a JSON object at all.
	FromVersion int
	// Defaulted lists the fields that were missing or malformed and were
	// replaced by defaults, in document order.
	Defaulted []string
	// StoredMaxEnergy is the maxEnergy found in the input, 0 if absent.
	StoredMaxEnergy int
	// StaleMaxEnergy is true when a stored maxEnergy disagreed with the derived one.
	StaleMaxEnergy bool
	// EnergyClamped is true when the stored energy fell outside [0, MaxEnergy].
	EnergyClamped bool
}

// Changed reports whether the migrated state differs from a plain decode of
// the input, meaning the healed document should be written back.
func (r Report) Changed() bool {
	return r.FromVersion != SchemaVersion || len(r.Defaulted) > 0 || r.StaleMaxEnergy || r.EnergyClamped
}

// MergeWithDefaults builds a PlayerState from a possibly partial, legacy or
// malformed save document. See Migrate.
func MergeWithDefaults(data []byte) *PlayerState {
	p, _ := Migrate(data)
	return p
}

// Migrate merges data over the defaults of a new game. Every recognised
// field that is missing or malformed keeps its default. Legacy (version 1)
// shapes are accepted: energia/maxEnergia, skills as bare levels,
// achievements as an id→bool object, and crop arrays of any length.
//
// MaxEnergy is always recomputed from the merged level and skills; the
// stored energy is kept and clamped into [0, MaxEnergy].
//
// Postcondition: The returned state satisfies every PlayerState invariant.
func Migrate(data []byte) (*PlayerState, Report) {
	p := NewPlayerState()
	var rep Report

	if !gjson.ValidBytes(data) {
		rep.Defaulted = []string{"*"}
		return p, rep
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		rep.Defaulted = []string{"*"}
		return p, rep
	}

	rep.FromVersion = 1
	if v, ok := asInt(doc.Get("schemaVersion"), 1); ok {
		rep.FromVersion = v
	}

	defaulted := func(field string) { rep.Defaulted = append(rep.Defaulted, field) }

	if id := doc.Get("saveId"); id.Type == gjson.String {
		if _, err := uuid.Parse(id.Str); err == nil {
			p.SaveID = id.Str
		} else {
			defaulted("saveId")
		}
	} else {
		defaulted("saveId")
	}

	if v, ok := asInt(doc.Get("level"), 1); ok {
		p.Level = v
	} else {
		defaulted("level")
	}
	if v, ok := asInt(doc.Get("xp"), 0); ok {
		p.XP = v
	} else {
		defaulted("xp")
	}
	if v, ok := asInt(doc.Get("gold"), -MaxAmount); ok {
		p.Gold = max(v, 0)
	} else {
		defaulted("gold")
	}

	mergeSkills(p, doc.Get("skills"), defaulted)
	mergeInventory(p, doc.Get("inventory"), defaulted)
	mergeAchievements(p, doc.Get("achievements"), defaulted)
	mergePlots(p, doc, defaulted)

	p.MaxEnergy = CalculateMaxEnergy(p.Level, p.Skills)

	stored := firstExisting(doc, "maxEnergy", "maxEnergia")
	if v, ok := asInt(stored, -MaxAmount); ok {
		rep.StoredMaxEnergy = v
		rep.StaleMaxEnergy = v != p.MaxEnergy
	}

	if v, ok := asInt(firstExisting(doc, "energy", "energia"), -MaxAmount); ok {
		p.Energy = clamp(v, 0, p.MaxEnergy)
		rep.EnergyClamped = p.Energy != v
	} else {
		defaulted("energy")
		p.Energy = clamp(StartingEnergy, 0, p.MaxEnergy)
	}

	return p, rep
}

func mergeSkills(p *PlayerState, skills gjson.Result, defaulted func(string)) {
	if !skills.Exists() || !skills.IsObject() {
		defaulted("skills")
		return
	}
	for _, s := range AllSkills {
		field := "skills." + string(s)
		r := skills.Get(string(s))
		switch {
		case r.Type == gjson.Number:
			if lvl, ok := asInt(r, 1); ok {
				p.Skills[s] = SkillProgress{Level: lvl}
			} else {
				defaulted(field)
			}
		case r.IsObject():
			sp := SkillProgress{Level: 1}
			if lvl, ok := asInt(r.Get("level"), 1); ok {
				sp.Level = lvl
			} else {
				defaulted(field + ".level")
			}
			if xp, ok := asInt(r.Get("xp"), 0); ok {
				sp.XP = xp
			} else {
				defaulted(field + ".xp")
			}
			p.Skills[s] = sp
		default:
			defaulted(field)
		}
	}
}

func mergeInventory(p *PlayerState, inv gjson.Result, defaulted func(string)) {
	if !inv.Exists() || !inv.IsObject() {
		defaulted("inventory")
		return
	}
	p.Inventory = make(map[string]int)
	inv.ForEach(func(key, value gjson.Result) bool {
		if n, ok := asInt(value, 0); ok && key.Str != "" {
			p.Inventory[key.Str] = n
		} else {
			defaulted("inventory." + key.Str)
		}
		return true
	})
}

func mergeAchievements(p *PlayerState, ach gjson.Result, defaulted func(string)) {
	switch {
	case ach.IsArray():
		ach.ForEach(func(_, value gjson.Result) bool {
			if value.Type == gjson.String && value.Str != "" {
				p.Achievements[value.Str] = struct{}{}
			}
			return true
		})
	case ach.IsObject():
		ach.ForEach(func(key, value gjson.Result) bool {
			if value.Type == gjson.True {
				p.Achievements[key.Str] = struct{}{}
			}
			return true
		})
	default:
		defaulted("achievements")
	}
}

func mergePlots(p *PlayerState, doc gjson.Result, defaulted func(string)) {
	crops := doc.Get("crops")
	if !crops.IsArray() {
		defaulted("crops")
		return
	}
	states := crops.Array()
	ids := doc.Get("cropIds").Array()
	planted := doc.Get("plantedAt").Array()

	for i := 0; i < PlotCount; i++ {
		plot := Plot{State: PlotEmpty}
		if i < len(states) && states[i].Type == gjson.String && PlotState(states[i].Str).Valid() {
			plot.State = PlotState(states[i].Str)
		}
		if plot.State != PlotEmpty {
			if i < len(ids) && ids[i].Type == gjson.String {
				plot.CropID = ids[i].Str
			}
			if i < len(planted) {
				if ts, ok := asInt64(planted[i]); ok {
					plot.PlantedAt = ts
				}
			}
		}
		p.Plots[i] = plot
	}
}

func firstExisting(doc gjson.Result, paths ...string) gjson.Result {
	for _, path := range paths {
		if r := doc.Get(path); r.Exists() {
			return r
		}
	}
	return gjson.Result{}
}

// asInt accepts integral JSON numbers in [lo, MaxAmount].
func asInt(r gjson.Result, lo int) (int, bool) {
	if r.Type != gjson.Number {
		return 0, false
	}
	if r.Num != math.Trunc(r.Num) || r.Num < float64(lo) || r.Num > MaxAmount {
		return 0, false
	}
	return int(r.Num), true
}

// asInt64 accepts integral JSON numbers in [0, MaxAmount].
func asInt64(r gjson.Result) (int64, bool) {
	if r.Type != gjson.Number {
		return 0, false
	}
	if r.Num != math.Trunc(r.Num) || r.Num < 0 || r.Num > MaxAmount {
		return 0, false
	}
	return int64(r.Num), true
}
