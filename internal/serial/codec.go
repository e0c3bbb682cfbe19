package serial

import (
	"fmt"

	"github.com/l1jgo/scenegraph/internal/core/ecs"
	"github.com/l1jgo/scenegraph/internal/scene"
)

// Codec saves and restores one component type of an entity.
type Codec struct {
	Has    func(s *scene.Scene, e ecs.EntityID) bool
	Encode func(s *scene.Scene, e ecs.EntityID, w *FieldWriter)
	Decode func(s *scene.Scene, e ecs.EntityID, r *FieldReader) error
}

// Codecs is the registry of component codecs keyed by component type name.
// Codecs run in registration order on both save and load.
type Codecs struct {
	names  []string
	byName map[string]Codec
}

func NewCodecs() *Codecs {
	return &Codecs{byName: make(map[string]Codec, 8)}
}

// Register adds a codec. Registering a name twice panics.
func (c *Codecs) Register(name string, codec Codec) {
	if _, dup := c.byName[name]; dup {
		panic(fmt.Sprintf("serial: codec %q registered twice", name))
	}
	c.names = append(c.names, name)
	c.byName[name] = codec
}

func (c *Codecs) Lookup(name string) (Codec, bool) {
	codec, ok := c.byName[name]
	return codec, ok
}

// stored reports presence through the scene's component registry.
func stored(name string) func(*scene.Scene, ecs.EntityID) bool {
	return func(s *scene.Scene, e ecs.EntityID) bool {
		store, ok := s.World().Registry().Lookup(name)
		return ok && store.Has(e)
	}
}

// DefaultCodecs returns codecs for every persistent scene component. Names
// are stored on the entity record itself; Destroy tags are never saved.
func DefaultCodecs() *Codecs {
	c := NewCodecs()

	c.Register(scene.TransformType, Codec{
		Has: stored(scene.TransformType),
		Encode: func(s *scene.Scene, e ecs.EntityID, w *FieldWriter) {
			t, _ := s.Transforms().Get(e)
			w.Write("x", t.X)
			w.Write("y", t.Y)
			w.Write("rotation", t.Rotation)
			w.Write("scale_x", t.ScaleX)
			w.Write("scale_y", t.ScaleY)
		},
		Decode: func(s *scene.Scene, e ecs.EntityID, r *FieldReader) error {
			t := scene.NewTransform(0, 0)
			r.Read("x", &t.X)
			r.Read("y", &t.Y)
			r.Read("rotation", &t.Rotation)
			r.Read("scale_x", &t.ScaleX)
			r.Read("scale_y", &t.ScaleY)
			if r.Err() != nil {
				return r.Err()
			}
			s.SetTransform(e, t)
			return nil
		},
	})

	c.Register(scene.CanvasType, Codec{
		Has: stored(scene.CanvasType),
		Encode: func(s *scene.Scene, e ecs.EntityID, w *FieldWriter) {
			cv, _ := s.Canvases().Get(e)
			w.Write("width", cv.Width)
			w.Write("height", cv.Height)
		},
		Decode: func(s *scene.Scene, e ecs.EntityID, r *FieldReader) error {
			var cv scene.Canvas
			r.Read("width", &cv.Width)
			r.Read("height", &cv.Height)
			if r.Err() != nil {
				return r.Err()
			}
			s.SetCanvas(e, cv)
			return nil
		},
	})

	c.Register(scene.RectTransformType, Codec{
		Has: stored(scene.RectTransformType),
		Encode: func(s *scene.Scene, e ecs.EntityID, w *FieldWriter) {
			rt, _ := s.RectTransforms().Get(e)
			w.Write("anchor_x", rt.AnchorX)
			w.Write("anchor_y", rt.AnchorY)
			w.Write("offset_x", rt.OffsetX)
			w.Write("offset_y", rt.OffsetY)
			w.Write("width", rt.Width)
			w.Write("height", rt.Height)
		},
		Decode: func(s *scene.Scene, e ecs.EntityID, r *FieldReader) error {
			var rt scene.RectTransform
			r.Read("anchor_x", &rt.AnchorX)
			r.Read("anchor_y", &rt.AnchorY)
			r.Read("offset_x", &rt.OffsetX)
			r.Read("offset_y", &rt.OffsetY)
			r.Read("width", &rt.Width)
			r.Read("height", &rt.Height)
			if r.Err() != nil {
				return r.Err()
			}
			s.SetRectTransform(e, rt)
			return nil
		},
	})

	c.Register(scene.ScriptType, Codec{
		Has: stored(scene.ScriptType),
		Encode: func(s *scene.Scene, e ecs.EntityID, w *FieldWriter) {
			sc, _ := s.Scripts().Get(e)
			w.Write("class", sc.Class)
		},
		Decode: func(s *scene.Scene, e ecs.EntityID, r *FieldReader) error {
			if !r.Has("class") {
				return fmt.Errorf("script without class")
			}
			var class string
			if !r.Read("class", &class) {
				return r.Err()
			}
			return s.AttachScript(e, class)
		},
	})

	c.Register(scene.DisabledType, Codec{
		Has:    stored(scene.DisabledType),
		Encode: func(*scene.Scene, ecs.EntityID, *FieldWriter) {},
		Decode: func(s *scene.Scene, e ecs.EntityID, _ *FieldReader) error {
			s.SetEnabled(e, false)
			return nil
		},
	})

	return c
}
