package scripting

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/l1jgo/scenegraph/internal/core/ecs"
	"github.com/l1jgo/scenegraph/internal/scene"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap/zaptest"
)

const lifecycleClasses = `
calls = {}

Tracer = {}
function Tracer:on_enable()  table.insert(calls, self.class .. ":enable") end
function Tracer:on_disable() table.insert(calls, self.class .. ":disable") end
function Tracer:on_unload()  table.insert(calls, self.class .. ":unload") end
function Tracer:on_destroy() table.insert(calls, self.class .. ":destroy") end

Bomb = {}
function Bomb:on_update(dt)
  self.fuse = (self.fuse or 2) - 1
  if self.fuse <= 0 then scene.destroy(self.uuid, true) end
end

Broken = {}
function Broken:on_enable() error("boom") end
`

func calls(t *testing.T, e *Engine) []string {
	t.Helper()
	tbl, ok := e.vm.GetGlobal("calls").(*lua.LTable)
	if !ok {
		t.Fatal("calls table missing")
	}
	var out []string
	tbl.ForEach(func(_, v lua.LValue) { out = append(out, v.String()) })
	return out
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e := newEngine(zaptest.NewLogger(t))
	t.Cleanup(e.Close)
	if err := e.LoadString(lifecycleClasses); err != nil {
		t.Fatal(err)
	}
	return e
}

func TestInstantiateUnknownClass(t *testing.T) {
	e := newTestEngine(t)
	if _, err := e.Instantiate(ecs.NewEntityID(0, 1), 1, "Nope"); err == nil {
		t.Error("expected error for undefined class")
	}
}

func TestInvokeLifecycle(t *testing.T) {
	e := newTestEngine(t)
	ref, err := e.Instantiate(ecs.NewEntityID(0, 1), 0xabc, "Tracer")
	if err != nil {
		t.Fatal(err)
	}
	e.Invoke(ref, scene.OnEnable)
	e.Invoke(ref, scene.OnDisable)
	e.Update(ref, time.Second) // Tracer has no on_update
	e.Release(ref)
	e.Invoke(ref, scene.OnDestroy) // released: ignored

	want := []string{"Tracer:enable", "Tracer:disable"}
	if got := calls(t, e); !slices.Equal(got, want) {
		t.Errorf("calls = %v, want %v", got, want)
	}
	if e.Instances() != 0 {
		t.Errorf("Instances = %d, want 0", e.Instances())
	}
}

func TestScriptErrorsAreContained(t *testing.T) {
	e := newTestEngine(t)
	ref, err := e.Instantiate(ecs.NewEntityID(0, 1), 1, "Broken")
	if err != nil {
		t.Fatal(err)
	}
	e.Invoke(ref, scene.OnEnable) // logged, not panicking
}

func TestSceneSweepThroughLua(t *testing.T) {
	e := newTestEngine(t)
	s := scene.New(scene.Options{Name: "lua", DebugChecks: true, Host: e}, zaptest.NewLogger(t))
	e.Bind(s)

	root := s.CreateEntity("root")
	bomb := s.CreateEntity("bomb")
	shard := s.CreateEntity("shard")
	_ = s.SetParent(bomb, root)
	_ = s.SetParent(shard, bomb)
	for _, ent := range []ecs.EntityID{bomb, shard} {
		if err := s.AttachScript(ent, "Tracer"); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.AttachScript(bomb, "Bomb"); err != nil {
		t.Fatal(err)
	}
	s.Start()

	s.UpdateScripts(time.Millisecond)
	if s.QueuedCount() != 0 {
		t.Fatal("bomb went off early")
	}
	s.UpdateScripts(time.Millisecond)
	if !s.Queued(bomb) || !s.Queued(shard) {
		t.Fatal("scene.destroy did not queue the subtree")
	}
	if !s.Alive(bomb) {
		t.Fatal("queued entity removed before the sweep")
	}

	s.DestroyQueued()
	if s.Alive(bomb) || s.Alive(shard) {
		t.Error("subtree survived the sweep")
	}
	if s.Tree().ChildCount(root) != 0 {
		t.Errorf("root children = %d, want 0", s.Tree().ChildCount(root))
	}
	got := calls(t, e)
	want := []string{"Tracer:enable", "Tracer:disable", "Tracer:unload", "Tracer:destroy"}
	if !slices.Equal(got, want) {
		t.Errorf("calls = %v, want %v", got, want)
	}
	if e.Instances() != 0 {
		t.Errorf("Instances = %d, want 0", e.Instances())
	}
}

func TestBindQueries(t *testing.T) {
	e := newTestEngine(t)
	s := scene.New(scene.Options{Name: "lua"}, zaptest.NewLogger(t))
	e.Bind(s)
	p := s.CreateEntity("Parent")
	c := s.CreateEntity("Child")
	s.SetTransform(c, scene.NewTransform(3, 4))
	pid, _ := s.World().UUID(p)

	err := e.LoadString(`
		local c = scene.find("child")
		local p = scene.find("parent")
		ok = scene.set_parent(c, p)
		parent_name = scene.name(scene.parent(c))
		child_count = #scene.children(p)
		cycle = scene.set_parent(p, c)
		parent_uuid = p
	`)
	if err != nil {
		t.Fatal(err)
	}
	if e.vm.GetGlobal("ok") != lua.LTrue {
		t.Error("set_parent failed")
	}
	if got := e.vm.GetGlobal("parent_name").String(); got != "Parent" {
		t.Errorf("parent_name = %q", got)
	}
	if got := e.vm.GetGlobal("child_count"); got != lua.LNumber(1) {
		t.Errorf("child_count = %v", got)
	}
	if e.vm.GetGlobal("cycle") != lua.LFalse {
		t.Error("cycle accepted")
	}
	if got := e.vm.GetGlobal("parent_uuid").String(); got != pid.String() {
		t.Errorf("parent_uuid = %s, want %s", got, pid)
	}
	if s.Tree().Parent(c) != p {
		t.Error("scene not updated")
	}
}

func TestBindForwardsSceneEvents(t *testing.T) {
	e := newTestEngine(t)
	s := scene.New(scene.Options{Name: "lua", Host: e}, zaptest.NewLogger(t))
	e.Bind(s)
	if err := e.LoadString(`
		moves = {}
		gone = {}
		Mover = {}
		function Mover:on_reparent(parent)
		  table.insert(moves, parent and scene.name(parent) or "root")
		end
		function on_entity_destroyed(uuid) table.insert(gone, uuid) end
	`); err != nil {
		t.Fatal(err)
	}
	p := s.CreateEntity("Holder")
	c := s.CreateEntity("Moved")
	if err := s.AttachScript(c, "Mover"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetParent(c, p); err != nil {
		t.Fatal(err)
	}
	s.Tree().Detach(c)

	bus := s.Bus()
	bus.DispatchAll()
	if n := e.vm.GetGlobal("moves").(*lua.LTable).Len(); n != 0 {
		t.Fatalf("moves delivered in the emitting frame: %d", n)
	}
	bus.SwapBuffers()
	bus.DispatchAll()

	var moves []string
	e.vm.GetGlobal("moves").(*lua.LTable).ForEach(func(_, v lua.LValue) { moves = append(moves, v.String()) })
	if want := []string{"Holder", "root"}; !slices.Equal(moves, want) {
		t.Errorf("moves = %v, want %v", moves, want)
	}

	cid, _ := s.World().UUID(c)
	s.DestroyImmediate(c, false)
	bus.SwapBuffers()
	bus.DispatchAll()
	gone := e.vm.GetGlobal("gone").(*lua.LTable)
	if gone.Len() != 1 || gone.RawGetInt(1).String() != cid.String() {
		t.Errorf("gone = %v, want [%s]", gone.RawGetInt(1), cid)
	}
}

func TestNewEngineLoadsDirectories(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "core"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "ui"), 0o755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		"core/base.lua": `Base = { kind = "base" }`,
		"ui/button.lua": `Button = setmetatable({}, { __index = Base })`,
		"zz.lua":        `loaded_last = Button.kind`,
	}
	for name, src := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	e, err := NewEngine(dir, zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()
	if got := e.vm.GetGlobal("loaded_last").String(); got != "base" {
		t.Errorf("loaded_last = %q, want base", got)
	}
}
