package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/l1jgo/scenegraph/internal/core/ecs"
	"github.com/l1jgo/scenegraph/internal/scene"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM hosting entity scripts. A script class
// is a global Lua table; each attached entity gets an instance table whose
// metatable indexes the class. Single-goroutine access only (frame loop).
type Engine struct {
	vm  *lua.LState
	log *zap.Logger

	next      scene.ScriptRef
	instances map[scene.ScriptRef]*instance
}

type instance struct {
	class  string
	entity ecs.EntityID
	self   *lua.LTable
}

// NewEngine creates a Lua engine and loads every script below scriptsDir:
// core/ first, then the other subdirectories alphabetically, then loose files.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	e := newEngine(log)

	if scriptsDir == "" {
		return e, nil
	}
	dirs := []string{filepath.Join(scriptsDir, "core")}
	entries, err := os.ReadDir(scriptsDir)
	if err != nil && !os.IsNotExist(err) {
		e.Close()
		return nil, fmt.Errorf("read scripts dir: %w", err)
	}
	var subs []string
	for _, entry := range entries {
		if entry.IsDir() && entry.Name() != "core" {
			subs = append(subs, filepath.Join(scriptsDir, entry.Name()))
		}
	}
	sort.Strings(subs)
	dirs = append(dirs, subs...)
	dirs = append(dirs, scriptsDir)

	for _, d := range dirs {
		if err := e.loadDir(d); err != nil {
			e.Close()
			return nil, fmt.Errorf("load %s scripts: %w", filepath.Base(d), err)
		}
	}
	return e, nil
}

func newEngine(log *zap.Logger) *Engine {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))
	return &Engine{
		vm:        vm,
		log:       log,
		instances: make(map[scene.ScriptRef]*instance, 64),
	}
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// LoadString runs a chunk of Lua source, typically to define classes.
func (e *Engine) LoadString(src string) error {
	if err := e.vm.DoString(src); err != nil {
		return fmt.Errorf("load lua chunk: %w", err)
	}
	return nil
}

// Instantiate creates an instance of the global class table for entity ent.
// The instance carries `uuid` (hex string) and `class` fields.
func (e *Engine) Instantiate(ent ecs.EntityID, id ecs.UUID, class string) (scene.ScriptRef, error) {
	cls, ok := e.vm.GetGlobal(class).(*lua.LTable)
	if !ok {
		return 0, fmt.Errorf("lua class %q not defined", class)
	}
	self := e.vm.NewTable()
	self.RawSetString("uuid", lua.LString(id.String()))
	self.RawSetString("class", lua.LString(class))
	meta := e.vm.NewTable()
	meta.RawSetString("__index", cls)
	e.vm.SetMetatable(self, meta)

	e.next++
	ref := e.next
	e.instances[ref] = &instance{class: class, entity: ent, self: self}
	return ref, nil
}

// Invoke calls the lifecycle method named by ev on the instance, if the class
// defines it.
func (e *Engine) Invoke(ref scene.ScriptRef, ev scene.Lifecycle) {
	e.call(ref, string(ev))
}

// Update calls on_update(self, dt_seconds).
func (e *Engine) Update(ref scene.ScriptRef, dt time.Duration) {
	e.call(ref, "on_update", lua.LNumber(dt.Seconds()))
}

// Release drops the instance; later calls with ref are ignored.
func (e *Engine) Release(ref scene.ScriptRef) {
	delete(e.instances, ref)
}

// Instances returns the number of live script instances.
func (e *Engine) Instances() int { return len(e.instances) }

func (e *Engine) call(ref scene.ScriptRef, method string, args ...lua.LValue) {
	inst, ok := e.instances[ref]
	if !ok {
		return
	}
	fn, ok := e.vm.GetField(inst.self, method).(*lua.LFunction)
	if !ok {
		return
	}
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, append([]lua.LValue{inst.self}, args...)...); err != nil {
		e.log.Error("lua script error",
			zap.String("class", inst.class),
			zap.String("method", method),
			zap.Stringer("entity", inst.entity),
			zap.Error(err))
	}
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}
