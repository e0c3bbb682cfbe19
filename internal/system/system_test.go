package system

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/l1jgo/scenegraph/internal/core/ecs"
	"github.com/l1jgo/scenegraph/internal/core/event"
	coresys "github.com/l1jgo/scenegraph/internal/core/system"
	"github.com/l1jgo/scenegraph/internal/scene"
	"github.com/l1jgo/scenegraph/internal/serial"
	"go.uber.org/zap/zaptest"
)

type memStore struct {
	saves int
	last  []byte
	fail  error
}

func (m *memStore) Save(_ context.Context, _ string, body []byte, _ int) (bool, error) {
	if m.fail != nil {
		return false, m.fail
	}
	if bytes.Equal(m.last, body) {
		return false, nil
	}
	m.last = append([]byte(nil), body...)
	m.saves++
	return true, nil
}

type frame struct {
	scene   *scene.Scene
	runner  *coresys.Runner
	xform   *TransformSystem
	persist *PersistenceSystem
	store   *memStore
}

func newFrame(t *testing.T, autosave time.Duration) *frame {
	t.Helper()
	log := zaptest.NewLogger(t)
	s := scene.New(scene.Options{Name: "frame", DebugChecks: true}, log)
	f := &frame{scene: s, runner: coresys.NewRunner(), store: &memStore{}}
	f.xform = NewTransformSystem(s)
	f.persist = NewPersistenceSystem(s, serial.NewSerializer(serial.DefaultCodecs(), log), f.store, autosave, log)

	// registered out of phase order on purpose
	f.runner.Register(NewCleanupSystem(s))
	f.runner.Register(f.persist)
	f.runner.Register(f.xform)
	f.runner.Register(NewHierarchySystem(s.Tree()))
	f.runner.Register(NewScriptSystem(s))
	f.runner.Register(NewEventSystem(s.Bus()))
	return f
}

func TestFrameComposesTransformsParentFirst(t *testing.T) {
	f := newFrame(t, 0)
	s := f.scene
	child := s.CreateEntity("child")
	parent := s.CreateEntity("parent")
	s.SetTransform(child, scene.NewTransform(1, 2))
	s.SetTransform(parent, scene.NewTransform(10, 20))
	if err := s.SetParent(child, parent); err != nil {
		t.Fatal(err)
	}

	f.runner.Tick(16 * time.Millisecond)

	x, y, ok := s.WorldPosition(child)
	if !ok || x != 11 || y != 22 {
		t.Errorf("child world = (%v, %v), want (11, 22)", x, y)
	}
	if f.xform.Last != 2 {
		t.Errorf("recomputed = %d, want 2", f.xform.Last)
	}
	if s.Tree().DirtyCount() != 0 {
		t.Errorf("dirty left = %d", s.Tree().DirtyCount())
	}

	f.runner.Tick(16 * time.Millisecond)
	if f.xform.Last != 0 {
		t.Errorf("clean frame recomputed %d", f.xform.Last)
	}
}

func TestFrameSweepsAndDeliversEventsNextFrame(t *testing.T) {
	f := newFrame(t, 0)
	s := f.scene
	root := s.CreateEntity("root")
	doomed := s.CreateEntity("doomed")
	if err := s.SetParent(doomed, root); err != nil {
		t.Fatal(err)
	}

	var destroyed []ecs.EntityID
	event.Subscribe(s.Bus(), func(ev event.EntityDestroyed) {
		destroyed = append(destroyed, ev.Entity)
	})

	s.Destroy(doomed, false)
	f.runner.Tick(time.Millisecond)
	if s.Alive(doomed) {
		t.Fatal("sweep did not run")
	}
	if s.Tree().ChildCount(root) != 0 {
		t.Errorf("root children = %d, want 0", s.Tree().ChildCount(root))
	}
	if len(destroyed) != 0 {
		t.Fatal("event delivered in the frame it was emitted")
	}

	f.runner.Tick(time.Millisecond)
	if len(destroyed) != 1 || destroyed[0] != doomed {
		t.Errorf("destroyed = %v, want [%v]", destroyed, doomed)
	}
}

func TestAutosaveInterval(t *testing.T) {
	f := newFrame(t, 100*time.Millisecond)
	f.scene.CreateEntity("a")

	for i := 0; i < 3; i++ {
		f.runner.Tick(40 * time.Millisecond)
	}
	if f.store.saves != 1 {
		t.Fatalf("saves after 120ms = %d, want 1", f.store.saves)
	}
	// unchanged scene: the store skips it
	for i := 0; i < 3; i++ {
		f.runner.Tick(40 * time.Millisecond)
	}
	if f.store.saves != 1 {
		t.Errorf("unchanged scene saved again: %d", f.store.saves)
	}

	f.scene.CreateEntity("b")
	saved, err := f.persist.Save(context.Background())
	if err != nil || !saved {
		t.Errorf("Save = %v, %v; want true, nil", saved, err)
	}
}

func TestAutosaveErrorIsLogged(t *testing.T) {
	f := newFrame(t, time.Millisecond)
	f.store.fail = errors.New("db down")
	f.runner.Tick(time.Second) // must not panic
	if _, err := f.persist.Save(context.Background()); err == nil {
		t.Error("expected store error")
	}
}

func TestAutosaveDisabled(t *testing.T) {
	f := newFrame(t, 0)
	f.runner.Tick(time.Hour)
	if f.store.saves != 0 {
		t.Errorf("saves = %d, want 0", f.store.saves)
	}
}
