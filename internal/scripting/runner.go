package scripting

import (
	"context"
	"errors"
	"fmt"
	"strings"

	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
	"go.uber.org/zap"

	"github.com/cory-johannsen/fazenda/internal/game/progression"
)

// RewardHook is the global function a reward script must define.
const RewardHook = "reward"

// ErrNoRewardHook is returned when a script does not define RewardHook.
var ErrNoRewardHook = errors.New("scripting: script does not define " + RewardHook + "()")

// Script is a compiled Lua chunk.
type Script struct {
	Name  string
	proto *lua.FunctionProto
}

// Compile parses and compiles src.
//
// Postcondition: Returns a Script or a syntax error naming name.
func Compile(name, src string) (*Script, error) {
	chunk, err := parse.Parse(strings.NewReader(src), name)
	if err != nil {
		return nil, fmt.Errorf("scripting: parsing %q: %w", name, err)
	}
	proto, err := lua.Compile(chunk, name)
	if err != nil {
		return nil, fmt.Errorf("scripting: compiling %q: %w", name, err)
	}
	return &Script{Name: name, proto: proto}, nil
}

// Runner executes compiled scripts, each in a fresh sandboxed state.
//
// Runner is safe for concurrent use; no Lua state outlives a run.
type Runner struct {
	instLimit int
	logger    *zap.Logger
}

// NewRunner creates a Runner.
//
// Precondition: logger must be non-nil; instLimit >= 0, 0 uses DefaultInstructionLimit.
func NewRunner(instLimit int, logger *zap.Logger) *Runner {
	return &Runner{instLimit: instLimit, logger: logger}
}

// RunReward executes s and then calls its reward() function with the
// fazenda module bound to p. p may be partially modified when an error is
// returned; callers run this inside progression.Store.Apply so a failed
// script leaves no trace.
//
// Postcondition: Returns ErrNoRewardHook, a Lua runtime error, or nil.
func (r *Runner) RunReward(ctx context.Context, s *Script, p *progression.PlayerState) error {
	L, cancel := NewSandboxedState(ctx, r.instLimit)
	defer L.Close()
	defer cancel()
	r.RegisterModules(L, s.Name, p)

	L.Push(L.NewFunctionFromProto(s.proto))
	if err := L.PCall(0, lua.MultRet, nil); err != nil {
		return fmt.Errorf("scripting: loading %q: %w", s.Name, err)
	}
	fn := L.GetGlobal(RewardHook)
	if fn.Type() != lua.LTFunction {
		return fmt.Errorf("%w: %q", ErrNoRewardHook, s.Name)
	}
	if err := L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}); err != nil {
		r.logger.Warn("scripting: Lua runtime error",
			zap.String("script", s.Name),
			zap.Error(err),
		)
		return fmt.Errorf("scripting: running %q: %w", s.Name, err)
	}
	return nil
}
