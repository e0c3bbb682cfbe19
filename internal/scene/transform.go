package scene

import (
	"math"

	"github.com/l1jgo/scenegraph/internal/core/ecs"
	"github.com/l1jgo/scenegraph/internal/hierarchy"
)

// identity is the identity affine matrix.
var identity = [6]float64{1, 0, 0, 1, 0, 0}

// localMatrix computes Scale -> Rotate -> Translate as [a, b, c, d, tx, ty].
func localMatrix(t *Transform) [6]float64 {
	sin, cos := math.Sincos(t.Rotation)
	return [6]float64{
		cos * t.ScaleX, sin * t.ScaleX,
		-sin * t.ScaleY, cos * t.ScaleY,
		t.X, t.Y,
	}
}

// multiplyAffine returns parent * child.
//
//	| a  c  tx |
//	| b  d  ty |
//	| 0  0   1 |
func multiplyAffine(p, c [6]float64) [6]float64 {
	return [6]float64{
		p[0]*c[0] + p[2]*c[1],
		p[1]*c[0] + p[3]*c[1],
		p[0]*c[2] + p[2]*c[3],
		p[1]*c[2] + p[3]*c[3],
		p[0]*c[4] + p[2]*c[5] + p[4],
		p[1]*c[4] + p[3]*c[5] + p[5],
	}
}

// SetTransform replaces the local transform of e and marks its subtree dirty.
func (s *Scene) SetTransform(e ecs.EntityID, t Transform) {
	if !s.live(e, "set transform") {
		return
	}
	if cur, ok := s.transforms.Get(e); ok {
		t.World = cur.World
		*cur = t
	} else {
		tc := t
		s.transforms.Set(e, &tc)
	}
	s.tree.MarkDirty(e)
}

// SetPosition moves e and marks its subtree dirty.
func (s *Scene) SetPosition(e ecs.EntityID, x, y float64) {
	if !s.live(e, "set position") {
		return
	}
	t, ok := s.transforms.Get(e)
	if !ok {
		s.SetTransform(e, NewTransform(x, y))
		return
	}
	t.X, t.Y = x, y
	s.tree.MarkDirty(e)
}

// WorldPosition returns the composed translation of e.
func (s *Scene) WorldPosition(e ecs.EntityID) (x, y float64, ok bool) {
	t, ok := s.transforms.Get(e)
	if !ok {
		return 0, 0, false
	}
	return t.World[4], t.World[5], true
}

// SetCanvas makes e a canvas of the given size. Rect transforms below e are
// re-resolved.
func (s *Scene) SetCanvas(e ecs.EntityID, c Canvas) {
	if !s.live(e, "set canvas") {
		return
	}
	s.canvases.Set(e, &c)
	s.resolveCanvasesBelow(e)
}

// SetRectTransform attaches a UI placement to e and resolves its canvas.
func (s *Scene) SetRectTransform(e ecs.EntityID, rt RectTransform) {
	if !s.live(e, "set rect transform") {
		return
	}
	rt.Canvas = s.findCanvas(e)
	if cur, ok := s.rects.Get(e); ok {
		*cur = rt
	} else {
		s.rects.Set(e, &rt)
	}
	s.tree.MarkDirty(e)
}

func (s *Scene) resolveCanvasesBelow(e ecs.EntityID) {
	for _, c := range s.tree.Descendants(e) {
		if rt, ok := s.rects.Get(c); ok {
			rt.Canvas = s.findCanvas(c)
		}
	}
	s.tree.MarkDirty(e)
}

// UpdateTransforms composes world data for every dirty entity in one linear
// pass and clears the Dirty tags. The hierarchy must have been sorted this
// frame so that parents are visited before their children. Returns the
// number of entities recomputed.
func (s *Scene) UpdateTransforms() int {
	rels := s.tree.Relationships()
	dirty := s.tree.DirtyStore()
	n := 0

	ecs.Each2(rels, dirty, func(e ecs.EntityID, r *hierarchy.Relationship, _ *hierarchy.Dirty) {
		n += s.compose(e, r.Parent)
	})
	// Entities never linked into the tree are roots.
	ecs.EachExcept(dirty, func(e ecs.EntityID, _ *hierarchy.Dirty) {
		n += s.compose(e, ecs.Null)
	}, rels)

	s.tree.ClearDirty()
	return n
}

func (s *Scene) compose(e, parent ecs.EntityID) int {
	n := 0
	if t, ok := s.transforms.Get(e); ok {
		local := localMatrix(t)
		if pt := s.nearestTransform(parent); pt != nil {
			t.World = multiplyAffine(pt.World, local)
		} else {
			t.World = local
		}
		n = 1
	}
	if rt, ok := s.rects.Get(e); ok {
		rt.Rect = s.resolveRect(rt)
		n = 1
	}
	return n
}

func (s *Scene) nearestTransform(p ecs.EntityID) *Transform {
	for ; p != ecs.Null; p = s.tree.Parent(p) {
		if t, ok := s.transforms.Get(p); ok {
			return t
		}
	}
	return nil
}

// resolveRect places rt inside its canvas. Without a canvas the element
// resolves against an empty rectangle at the origin.
func (s *Scene) resolveRect(rt *RectTransform) Rect {
	var base Rect
	if c, ok := s.canvases.Get(rt.Canvas); ok {
		base.W, base.H = c.Width, c.Height
		if t, ok := s.transforms.Get(rt.Canvas); ok {
			base.X, base.Y = t.World[4], t.World[5]
		}
	}
	return Rect{
		X: base.X + rt.AnchorX*base.W + rt.OffsetX,
		Y: base.Y + rt.AnchorY*base.H + rt.OffsetY,
		W: rt.Width,
		H: rt.Height,
	}
}
