package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/l1jgo/progress/internal/progress"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Task is a progress producer defined by a Lua script.
type Task struct {
	Name   string
	Hidden bool
	fn     *lua.LFunction
}

// Engine wraps a single gopher-lua VM. Scripts register tasks with
//
//	register_task("name", function(dt) return done, total end [, hidden])
//
// Single-goroutine access only (game loop).
type Engine struct {
	vm    *lua.LState
	tasks []*Task
	byKey map[string]*Task
	log   *zap.Logger
}

// NewEngine creates a VM and runs every .lua file in dir in name order.
// An empty or missing dir yields an engine with no tasks.
func NewEngine(dir string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState()
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, byKey: make(map[string]*Task), log: log}
	vm.SetGlobal("register_task", vm.NewFunction(e.luaRegisterTask))

	if err := e.loadDir(dir); err != nil {
		vm.Close()
		return nil, err
	}
	return e, nil
}

func (e *Engine) loadDir(dir string) error {
	if dir == "" {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read script dir %s: %w", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	for _, name := range names {
		if err := e.LoadFile(filepath.Join(dir, name)); err != nil {
			return err
		}
	}
	return nil
}

// LoadFile runs one script.
func (e *Engine) LoadFile(path string) error {
	if err := e.vm.DoFile(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	e.log.Debug("loaded lua script", zap.String("file", path))
	return nil
}

// LoadString runs script source directly.
func (e *Engine) LoadString(src string) error {
	if err := e.vm.DoString(src); err != nil {
		return fmt.Errorf("load script: %w", err)
	}
	return nil
}

func (e *Engine) luaRegisterTask(L *lua.LState) int {
	name := L.CheckString(1)
	fn := L.CheckFunction(2)
	hidden := L.OptBool(3, false)
	if t, ok := e.byKey[name]; ok {
		// Re-registration replaces the function and keeps the slot.
		t.fn = fn
		t.Hidden = hidden
		return 0
	}
	t := &Task{Name: name, Hidden: hidden, fn: fn}
	e.tasks = append(e.tasks, t)
	e.byKey[name] = t
	return 0
}

// Tasks returns registered tasks in registration order.
func (e *Engine) Tasks() []*Task {
	return e.tasks
}

// Poll calls the task function with dt in seconds. The function must return
// two non-negative numbers (done, total); a single boolean is accepted as
// FromBool.
func (e *Engine) Poll(t *Task, dt time.Duration) (progress.Progress, error) {
	if err := e.vm.CallByParam(lua.P{
		Fn:      t.fn,
		NRet:    2,
		Protect: true,
	}, lua.LNumber(dt.Seconds())); err != nil {
		return progress.Progress{}, fmt.Errorf("task %s: %w", t.Name, err)
	}
	first := e.vm.Get(-2)
	second := e.vm.Get(-1)
	e.vm.Pop(2)

	if b, ok := first.(lua.LBool); ok && second == lua.LNil {
		return progress.FromBool(bool(b)), nil
	}
	done, ok1 := first.(lua.LNumber)
	total, ok2 := second.(lua.LNumber)
	if !ok1 || !ok2 {
		return progress.Progress{}, fmt.Errorf("task %s: expected (done, total), got (%s, %s)",
			t.Name, first.Type(), second.Type())
	}
	return progress.Progress{Done: toCount(done), Total: toCount(total)}, nil
}

func toCount(n lua.LNumber) uint32 {
	switch {
	case n != n, n <= 0: // NaN
		return 0
	case float64(n) >= float64(^uint32(0)):
		return ^uint32(0)
	}
	return uint32(n)
}

func (e *Engine) Close() {
	e.vm.Close()
}
