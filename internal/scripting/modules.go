package scripting

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/dicelang/internal/dice"
)

// RegisterModules registers the dice Lua table into L.
//
// Precondition: L must be from NewSandboxedState.
// Postcondition: dice global is defined in L with roll, total, pick and log.
func (m *Manager) RegisterModules(L *lua.LState) {
	mod := L.NewTable()
	L.SetField(mod, "roll", L.NewFunction(m.luaRoll))
	L.SetField(mod, "total", L.NewFunction(m.luaTotal))
	L.SetField(mod, "pick", L.NewFunction(m.luaPick))
	L.SetField(mod, "log", m.newLogTable(L))
	L.SetGlobal("dice", mod)
}

// luaRoll implements dice.roll(expr [, context]) -> result table.
func (m *Manager) luaRoll(L *lua.LState) int {
	expr := L.CheckString(1)
	context := L.OptString(2, "")
	r, err := m.engine.Roll(expr, context)
	if err != nil {
		L.RaiseError("%s", err.Error())
		return 0
	}
	L.Push(resultTable(L, r))
	return 1
}

// luaTotal implements dice.total(expr) -> number.
func (m *Manager) luaTotal(L *lua.LState) int {
	expr := L.CheckString(1)
	r, err := m.engine.Roll(expr, "")
	if err != nil {
		L.RaiseError("%s", err.Error())
		return 0
	}
	L.Push(lua.LNumber(r.Total))
	return 1
}

// luaPick implements dice.pick(array) -> element chosen by rolling 1d#array.
func (m *Manager) luaPick(L *lua.LState) int {
	tbl := L.CheckTable(1)
	n := tbl.Len()
	if n == 0 {
		L.ArgError(1, "dice.pick: table is empty")
		return 0
	}
	r, err := m.engine.Roll(fmt.Sprintf("1d%d", n), "dice.pick")
	if err != nil {
		L.RaiseError("%s", err.Error())
		return 0
	}
	L.Push(tbl.RawGetInt(r.Total))
	return 1
}

func (m *Manager) newLogTable(L *lua.LState) *lua.LTable {
	logTbl := L.NewTable()
	levels := map[string]func(string, ...zap.Field){
		"debug": m.logger.Debug,
		"info":  m.logger.Info,
		"warn":  m.logger.Warn,
		"error": m.logger.Error,
	}
	for name, logFn := range levels {
		logFn := logFn
		L.SetField(logTbl, name, L.NewFunction(func(L *lua.LState) int {
			logFn(L.CheckString(1), zap.String("source", "lua"))
			return 0
		}))
	}
	return logTbl
}

// resultTable converts a RollResult to
// {total=, expression=, context=, dice={{sides=, value=, kept=, exploded=}, ...}}.
func resultTable(L *lua.LState, r dice.RollResult) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("total", lua.LNumber(r.Total))
	t.RawSetString("expression", lua.LString(r.Expression))
	t.RawSetString("context", lua.LString(r.Context))

	diceTbl := L.NewTable()
	for _, d := range r.Dice {
		dt := L.NewTable()
		dt.RawSetString("sides", lua.LNumber(d.Sides))
		dt.RawSetString("value", lua.LNumber(d.Value))
		dt.RawSetString("kept", lua.LBool(d.Kept))
		dt.RawSetString("exploded", lua.LBool(d.Exploded))
		diceTbl.Append(dt)
	}
	t.RawSetString("dice", diceTbl)
	return t
}
