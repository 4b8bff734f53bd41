// Package scripting runs sandboxed GopherLua roll tables on top of the dice
// engine. Scripts see only a safe subset of the Lua standard library plus the
// dice module registered by Manager.
package scripting

import (
	"context"
	"sync/atomic"

	lua "github.com/yuin/gopher-lua"
)

// DefaultInstructionLimit is the opcode budget of one table load or one
// Manager.Call when the configuration leaves it at 0.
const DefaultInstructionLimit = 100_000

// opBudget cancels its context once Done has been called limit times. The
// GopherLua VM polls Done before every opcode, so the budget counts opcodes.
type opBudget struct {
	context.Context
	cancel context.CancelFunc
	left   atomic.Int64
}

func (b *opBudget) Done() <-chan struct{} {
	if b.left.Add(-1) <= 0 {
		b.cancel()
	}
	return b.Context.Done()
}

func newOpBudget(limit int) (*opBudget, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	b := &opBudget{Context: ctx, cancel: cancel}
	b.left.Store(int64(effectiveLimit(limit)))
	return b, cancel
}

func effectiveLimit(instLimit int) int {
	if instLimit <= 0 {
		return DefaultInstructionLimit
	}
	return instLimit
}

// NewSandboxedState creates a GopherLua LState for roll tables. Only the
// base, table, string and math libraries are opened, and execution stops
// after instLimit opcodes.
//
// Precondition: instLimit >= 0; 0 uses DefaultInstructionLimit.
// Postcondition: Returns a non-nil LState and the cancel function of its
// instruction budget. The caller owns both and must call cancel and L.Close().
func NewSandboxedState(instLimit int) (*lua.LState, context.CancelFunc) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})

	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	// Roll tables get no file or module access.
	for _, name := range []string{"dofile", "loadfile", "load", "collectgarbage", "require"} {
		L.SetGlobal(name, lua.LNil)
	}

	return L, withBudget(L, instLimit)
}

// withBudget gives L a fresh opcode budget of instLimit.
func withBudget(L *lua.LState, instLimit int) context.CancelFunc {
	b, cancel := newOpBudget(instLimit)
	L.SetContext(b)
	return cancel
}
