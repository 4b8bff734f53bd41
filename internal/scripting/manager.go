package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/dicelang/internal/dice"
)

// tableSet is one loaded directory of roll-table scripts.
type tableSet struct {
	mu    sync.Mutex
	L     *lua.LState
	limit int
}

func (s *tableSet) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.L.Close()
}

// Manager owns one sandboxed LState per named table set and dispatches calls
// into them.
//
// Manager is safe for concurrent use. Each LState is single-threaded, so calls
// into the same set are serialized while different sets run concurrently.
type Manager struct {
	mu     sync.RWMutex
	sets   map[string]*tableSet
	engine *dice.Engine
	logger *zap.Logger
}

// NewManager creates a Manager whose scripts roll through engine.
//
// Precondition: engine and logger must be non-nil.
// Postcondition: Returns a non-nil Manager with no table sets loaded.
func NewManager(engine *dice.Engine, logger *zap.Logger) *Manager {
	if engine == nil {
		panic("scripting: NewManager requires a non-nil engine")
	}
	if logger == nil {
		panic("scripting: NewManager requires a non-nil logger")
	}
	return &Manager{
		sets:   make(map[string]*tableSet),
		engine: engine,
		logger: logger,
	}
}

// Load creates a sandboxed VM for name, registers the dice module, then
// executes every *.lua file in scriptDir in lexicographic order. Loading a
// name that already exists replaces the previous VM.
//
// Precondition: name must be non-empty; scriptDir must be a readable directory.
// Postcondition: The set is registered; returns error on read or Lua load failure.
func (m *Manager) Load(name, scriptDir string, instLimit int) error {
	L, cancel := NewSandboxedState(instLimit)
	m.RegisterModules(L)

	entries, err := os.ReadDir(scriptDir)
	if err != nil {
		cancel()
		L.Close()
		return fmt.Errorf("scripting: reading script dir %q for %q: %w", scriptDir, name, err)
	}

	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			luaFiles = append(luaFiles, filepath.Join(scriptDir, e.Name()))
		}
	}
	sort.Strings(luaFiles)

	for _, path := range luaFiles {
		if err := L.DoFile(path); err != nil {
			cancel()
			L.Close()
			return fmt.Errorf("scripting: loading %q for %q: %w", path, name, err)
		}
	}
	cancel()

	set := &tableSet{L: L, limit: instLimit}
	m.mu.Lock()
	old := m.sets[name]
	m.sets[name] = set
	m.mu.Unlock()
	if old != nil {
		old.close()
	}

	m.logger.Debug("scripting: table set loaded",
		zap.String("set", name),
		zap.Int("files", len(luaFiles)),
	)
	return nil
}

// Names returns the loaded table set names in lexicographic order.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.sets))
	for name := range m.sets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Call calls the named Lua global function in the set's VM under a fresh
// instruction budget. Returns (LNil, nil) if the set is not loaded or the
// function is not defined. Lua runtime errors, including an exhausted
// instruction budget, are logged at Warn level and returned.
//
// Precondition: args must be valid lua.LValue instances.
// Postcondition: Returns the first return value of fn, or LNil.
func (m *Manager) Call(name, fn string, args ...lua.LValue) (lua.LValue, error) {
	m.mu.RLock()
	set := m.sets[name]
	m.mu.RUnlock()

	if set == nil {
		m.logger.Info("scripting: no table set loaded",
			zap.String("set", name),
			zap.String("fn", fn),
		)
		return lua.LNil, nil
	}

	set.mu.Lock()
	defer set.mu.Unlock()

	L := set.L
	f := L.GetGlobal(fn)
	if f == lua.LNil {
		return lua.LNil, nil
	}

	cancel := withBudget(L, set.limit)
	defer cancel()

	if err := L.CallByParam(lua.P{
		Fn:      f,
		NRet:    1,
		Protect: true,
	}, args...); err != nil {
		m.logger.Warn("scripting: Lua runtime error",
			zap.String("set", name),
			zap.String("fn", fn),
			zap.Error(err),
		)
		return lua.LNil, fmt.Errorf("scripting: calling %q in %q: %w", fn, name, err)
	}

	ret := L.Get(-1)
	L.Pop(1)
	return ret, nil
}

// Close releases every loaded VM. Subsequent calls behave as if no set was
// ever loaded.
func (m *Manager) Close() {
	m.mu.Lock()
	sets := m.sets
	m.sets = make(map[string]*tableSet)
	m.mu.Unlock()

	for _, set := range sets {
		set.close()
	}
}
