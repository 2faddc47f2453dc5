package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/fazenda/internal/game/progression"
)

// ModuleName is the global table scripts use to reach the player.
const ModuleName = "fazenda"

// RegisterModules defines the fazenda global in L, bound to p. Every
// function raises a Lua error on invalid arguments so the run fails and the
// caller can discard p.
//
// Precondition: L must be from NewSandboxedState; p must be non-nil.
func (r *Runner) RegisterModules(L *lua.LState, script string, p *progression.PlayerState) {
	mod := L.NewTable()
	L.SetFuncs(mod, map[string]lua.LGFunction{
		"add_gold": func(L *lua.LState) int {
			L.Push(lua.LNumber(p.AddGold(L.CheckInt(1))))
			return 1
		},
		"add_xp": func(L *lua.LState) int {
			levels, err := p.AddXP(L.CheckInt(1))
			if err != nil {
				L.RaiseError("add_xp: %s", err)
			}
			L.Push(lua.LNumber(levels))
			return 1
		},
		"add_skill_xp": func(L *lua.LState) int {
			skill, err := progression.ParseSkill(L.CheckString(1))
			if err != nil {
				L.ArgError(1, err.Error())
			}
			levels, err := p.AddSkillXP(skill, L.CheckInt(2))
			if err != nil {
				L.RaiseError("add_skill_xp: %s", err)
			}
			L.Push(lua.LNumber(levels))
			return 1
		},
		"add_energy": func(L *lua.LState) int {
			L.Push(lua.LNumber(p.AddEnergy(L.CheckInt(1))))
			return 1
		},
		"give_item": func(L *lua.LState) int {
			id := L.CheckString(1)
			n := L.OptInt(2, 1)
			if err := p.AddItem(id, n); err != nil {
				L.RaiseError("give_item: %s", err)
			}
			L.Push(lua.LNumber(p.ItemCount(id)))
			return 1
		},
		"unlock": func(L *lua.LState) int {
			L.Push(lua.LBool(p.UnlockAchievement(L.CheckString(1))))
			return 1
		},
		"level": func(L *lua.LState) int {
			L.Push(lua.LNumber(p.Level))
			return 1
		},
		"skill_level": func(L *lua.LState) int {
			skill, err := progression.ParseSkill(L.CheckString(1))
			if err != nil {
				L.ArgError(1, err.Error())
			}
			L.Push(lua.LNumber(p.Skills[skill].Level))
			return 1
		},
		"item_count": func(L *lua.LState) int {
			L.Push(lua.LNumber(p.ItemCount(L.CheckString(1))))
			return 1
		},
		"log": func(L *lua.LState) int {
			r.logger.Info("script: "+L.CheckString(1), zap.String("script", script))
			return 0
		},
	})
	L.SetGlobal(ModuleName, mod)
}
