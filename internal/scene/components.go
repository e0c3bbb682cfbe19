package scene

import "github.com/l1jgo/scenegraph/internal/core/ecs"

// Component type names, shared with the serializer.
const (
	NameType          = "name"
	TransformType     = "transform"
	RectTransformType = "rect_transform"
	CanvasType        = "canvas"
	ScriptType        = "script"
	DisabledType      = "disabled"
	DestroyType       = "destroy"
)

// Name is the display name of an entity, stored NFC-normalised.
type Name struct {
	Value string
}

// Transform is a 2D local transform plus the world matrix composed from the
// nearest ancestor carrying a Transform.
type Transform struct {
	X, Y           float64
	Rotation       float64 // radians
	ScaleX, ScaleY float64

	World [6]float64 // [a, b, c, d, tx, ty], valid after the transform pass
}

// NewTransform returns an identity-scaled transform at (x, y).
func NewTransform(x, y float64) Transform {
	return Transform{X: x, Y: y, ScaleX: 1, ScaleY: 1, World: identity}
}

// Rect is an axis-aligned rectangle in canvas space.
type Rect struct {
	X, Y, W, H float64
}

// Canvas roots a UI subtree and defines the rectangle its RectTransforms
// resolve against.
type Canvas struct {
	Width, Height float64
}

// RectTransform places a UI element relative to its owning canvas. Anchor is
// a fraction of the canvas size; Offset and Size are in canvas units.
type RectTransform struct {
	AnchorX, AnchorY float64
	OffsetX, OffsetY float64
	Width, Height    float64

	Canvas ecs.EntityID // nearest canvas-bearing ancestor, or Null
	Rect   Rect         // resolved by the transform pass
}

// Script binds an entity to a script class instantiated by the ScriptHost.
type Script struct {
	Class    string
	Instance ScriptRef
}

// Disabled marks an entity whose scripts do not receive updates.
type Disabled struct{}

// Destroy marks an entity for removal at the next sweep.
type Destroy struct{}
