package serial

import (
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/l1jgo/scenegraph/internal/core/ecs"
	"github.com/l1jgo/scenegraph/internal/scene"
	"go.uber.org/zap/zaptest"
)

func newScene(t *testing.T, name string) *scene.Scene {
	t.Helper()
	return scene.New(scene.Options{Name: name, DebugChecks: true}, zaptest.NewLogger(t))
}

func uuidOf(t *testing.T, s *scene.Scene, e ecs.EntityID) ecs.UUID {
	t.Helper()
	id, ok := s.World().UUID(e)
	if !ok {
		t.Fatalf("entity %s has no uuid", e)
	}
	return id
}

// childNames lists the children of the entity holding uuid, by name.
func childNames(t *testing.T, s *scene.Scene, id ecs.UUID) []string {
	t.Helper()
	e, ok := s.World().Lookup(id)
	if !ok {
		t.Fatalf("uuid %s missing", id)
	}
	var out []string
	for _, c := range s.Tree().Children(e) {
		out = append(out, s.EntityName(c))
	}
	return out
}

func TestRoundTripPreservesStructure(t *testing.T) {
	src := newScene(t, "level1")
	root := src.CreateEntity("Root")
	a := src.CreateEntity("A")
	b := src.CreateEntity("B")
	c := src.CreateEntity("C")
	leaf := src.CreateEntity("Leaf")
	loner := src.CreateEntity("Loner")
	for _, e := range []ecs.EntityID{a, b, c} {
		if err := src.SetParent(e, root); err != nil {
			t.Fatal(err)
		}
	}
	if err := src.SetParent(leaf, b); err != nil {
		t.Fatal(err)
	}
	src.Tree().MoveToFirst(c) // C, A, B

	tr := scene.NewTransform(10, -4)
	tr.Rotation = 0.5
	src.SetTransform(b, tr)
	src.SetCanvas(root, scene.Canvas{Width: 800, Height: 600})
	src.SetRectTransform(leaf, scene.RectTransform{AnchorX: 0.5, AnchorY: 1, Width: 20, Height: 10})
	src.SetEnabled(a, false)

	z := NewSerializer(DefaultCodecs(), zaptest.NewLogger(t))
	data, err := z.Marshal(src)
	if err != nil {
		t.Fatal(err)
	}

	dst, err := z.NewScene(data, scene.Options{DebugChecks: true}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	if dst.Name() != "level1" {
		t.Errorf("Name = %q, want level1", dst.Name())
	}
	if dst.Len() != src.Len() {
		t.Errorf("Len = %d, want %d", dst.Len(), src.Len())
	}
	if err := dst.Tree().Validate(); err != nil {
		t.Fatal(err)
	}

	if got, want := childNames(t, dst, uuidOf(t, src, root)), []string{"C", "A", "B"}; !slices.Equal(got, want) {
		t.Errorf("root children = %v, want %v", got, want)
	}
	if got, want := childNames(t, dst, uuidOf(t, src, b)), []string{"Leaf"}; !slices.Equal(got, want) {
		t.Errorf("B children = %v, want %v", got, want)
	}
	lonerDst, ok := dst.World().Lookup(uuidOf(t, src, loner))
	if !ok {
		t.Fatal("loner missing")
	}
	if dst.Tree().Parent(lonerDst) != ecs.Null {
		t.Error("loner gained a parent")
	}

	bDst, _ := dst.World().Lookup(uuidOf(t, src, b))
	got, ok := dst.Transforms().Get(bDst)
	if !ok || got.X != 10 || got.Y != -4 || got.Rotation != 0.5 || got.ScaleX != 1 {
		t.Errorf("transform = %+v", got)
	}
	aDst, _ := dst.World().Lookup(uuidOf(t, src, a))
	if dst.Enabled(aDst) {
		t.Error("A should be disabled")
	}
	leafDst, _ := dst.World().Lookup(uuidOf(t, src, leaf))
	rt, ok := dst.RectTransforms().Get(leafDst)
	if !ok {
		t.Fatal("rect transform missing")
	}
	rootDst, _ := dst.World().Lookup(uuidOf(t, src, root))
	if rt.Canvas != rootDst {
		t.Errorf("canvas owner = %v, want %v", rt.Canvas, rootDst)
	}
}

func TestEncodeOrdersParentsFirst(t *testing.T) {
	s := newScene(t, "order")
	// Created child-first so storage order disagrees with the hierarchy.
	leaf := s.CreateEntity("leaf")
	mid := s.CreateEntity("mid")
	top := s.CreateEntity("top")
	if err := s.SetParent(leaf, mid); err != nil {
		t.Fatal(err)
	}
	if err := s.SetParent(mid, top); err != nil {
		t.Fatal(err)
	}

	doc, err := NewSerializer(DefaultCodecs(), zaptest.NewLogger(t)).Encode(s)
	if err != nil {
		t.Fatal(err)
	}
	pos := make(map[string]int)
	for i, rec := range doc.Entities {
		pos[rec.Name] = i
	}
	if !(pos["top"] < pos["mid"] && pos["mid"] < pos["leaf"]) {
		t.Errorf("document order = %v", pos)
	}
}

func TestEncodeSkipsQueued(t *testing.T) {
	s := newScene(t, "q")
	p := s.CreateEntity("p")
	c := s.CreateEntity("c")
	if err := s.SetParent(c, p); err != nil {
		t.Fatal(err)
	}
	s.Destroy(p, false)

	doc, err := NewSerializer(DefaultCodecs(), zaptest.NewLogger(t)).Encode(s)
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Entities) != 1 {
		t.Fatalf("entities = %d, want 1", len(doc.Entities))
	}
	if rec := doc.Entities[0]; rec.Name != "c" || rec.Parent != "" {
		t.Errorf("record = %+v, want orphaned c", rec)
	}
}

func TestDecodeSkipsUnknownTypesAndParents(t *testing.T) {
	data := `
scene: broken
version: 1
entities:
  - uuid: "00000000000000aa"
    name: kept
    parent: "00000000000000ff"
    components:
      sprite: {image: hero.png}
      transform: {x: 3}
`
	s := newScene(t, "")
	z := NewSerializer(DefaultCodecs(), zaptest.NewLogger(t))
	if err := z.Unmarshal([]byte(data), s); err != nil {
		t.Fatal(err)
	}
	e, ok := s.World().Lookup(0xaa)
	if !ok {
		t.Fatal("entity not created")
	}
	if s.Tree().Parent(e) != ecs.Null {
		t.Error("missing parent should leave entity at root")
	}
	tr, ok := s.Transforms().Get(e)
	if !ok || tr.X != 3 || tr.ScaleY != 1 {
		t.Errorf("transform = %+v", tr)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"bad uuid", "entities:\n  - uuid: zz\n", "parse uuid"},
		{"future version", "version: 99\n", "newer"},
		{"bad field", "entities:\n  - uuid: \"01\"\n    components:\n      transform: {x: [1]}\n", "decode field x"},
		{"script without host", "entities:\n  - uuid: \"01\"\n    components:\n      script: {class: Door}\n", "no script host"},
		{"duplicate uuid", "entities:\n  - uuid: \"01\"\n  - uuid: \"01\"\n", "already in scene"},
		{"script without class", "entities:\n  - uuid: \"01\"\n    components:\n      script: {}\n", "script without class"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			z := NewSerializer(DefaultCodecs(), zaptest.NewLogger(t))
			err := z.Unmarshal([]byte(tt.data), newScene(t, "x"))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestFailedDecodeLeavesSceneUntouched(t *testing.T) {
	s := newScene(t, "merge")
	host := s.CreateEntity("host")
	kid := s.CreateEntity("kid")
	if err := s.SetParent(kid, host); err != nil {
		t.Fatal(err)
	}
	hostID := uuidOf(t, s, host)

	data := "entities:\n" +
		"  - uuid: \"0a\"\n    name: first\n    parent: \"" + hostID.String() + "\"\n" +
		"  - uuid: \"0b\"\n    parent: \"0a\"\n" +
		"  - uuid: \"0c\"\n    components:\n      transform: {x: [1]}\n"
	z := NewSerializer(DefaultCodecs(), zaptest.NewLogger(t))
	if err := z.Unmarshal([]byte(data), s); err == nil {
		t.Fatal("expected decode error")
	}

	if s.Len() != 2 {
		t.Errorf("Len = %d, want 2", s.Len())
	}
	for _, id := range []ecs.UUID{0x0a, 0x0b, 0x0c} {
		if _, ok := s.World().Lookup(id); ok {
			t.Errorf("uuid %s left behind", id)
		}
	}
	if got := s.Tree().Children(host); !slices.Equal(got, []ecs.EntityID{kid}) {
		t.Errorf("host children = %v, want [%s]", got, kid)
	}
	if err := s.Tree().Validate(); err != nil {
		t.Error(err)
	}
	if s.Transforms().Len() != 0 || s.Names().Len() != 2 {
		t.Errorf("stores: transforms=%d names=%d", s.Transforms().Len(), s.Names().Len())
	}
}

func TestSaveLoadFile(t *testing.T) {
	src := newScene(t, "disk")
	p := src.CreateEntity("p")
	c := src.CreateEntity("c")
	if err := src.SetParent(c, p); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "scene.yaml")
	z := NewSerializer(DefaultCodecs(), zaptest.NewLogger(t))
	if err := z.SaveFile(path, src); err != nil {
		t.Fatal(err)
	}
	dst := newScene(t, "disk")
	if err := z.LoadFile(path, dst); err != nil {
		t.Fatal(err)
	}
	if got := childNames(t, dst, uuidOf(t, src, p)); !slices.Equal(got, []string{"c"}) {
		t.Errorf("children = %v", got)
	}
}

func TestCodecsRegisterTwicePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	c := DefaultCodecs()
	c.Register("transform", Codec{})
}
