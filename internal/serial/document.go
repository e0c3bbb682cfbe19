package serial

import (
	"fmt"
	"os"

	"github.com/l1jgo/scenegraph/internal/core/ecs"
	"github.com/l1jgo/scenegraph/internal/scene"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// FormatVersion is written to every document.
const FormatVersion = 1

// Document is the on-disk form of a scene.
type Document struct {
	Scene    string         `yaml:"scene"`
	Version  int            `yaml:"version"`
	Entities []EntityRecord `yaml:"entities"`
}

// EntityRecord is one saved entity. Parent holds the parent's uuid.
type EntityRecord struct {
	UUID       string               `yaml:"uuid"`
	Name       string               `yaml:"name,omitempty"`
	Parent     string               `yaml:"parent,omitempty"`
	Components map[string]yaml.Node `yaml:"components,omitempty"`
}

// Serializer converts scenes to and from documents using a codec registry.
type Serializer struct {
	codecs *Codecs
	log    *zap.Logger
}

func NewSerializer(codecs *Codecs, log *zap.Logger) *Serializer {
	return &Serializer{codecs: codecs, log: log}
}

// Encode builds a document from s. The hierarchy is sorted first so entities
// with relationship records come out parents-before-children with siblings
// in index order; entities outside any hierarchy follow in index order.
// Entities queued for destruction are left out.
func (z *Serializer) Encode(s *scene.Scene) (*Document, error) {
	tree := s.Tree()
	tree.Sort()

	order := tree.Relationships().Entities()
	seen := make(map[ecs.EntityID]struct{}, len(order))
	for _, e := range order {
		seen[e] = struct{}{}
	}
	s.World().Pool().Each(func(e ecs.EntityID) {
		if _, ok := seen[e]; !ok {
			order = append(order, e)
		}
	})

	doc := &Document{
		Scene:    s.Name(),
		Version:  FormatVersion,
		Entities: make([]EntityRecord, 0, len(order)),
	}
	for _, e := range order {
		if s.Queued(e) {
			continue
		}
		rec, err := z.encodeEntity(s, e)
		if err != nil {
			return nil, err
		}
		doc.Entities = append(doc.Entities, rec)
	}
	return doc, nil
}

func (z *Serializer) encodeEntity(s *scene.Scene, e ecs.EntityID) (EntityRecord, error) {
	id, ok := s.World().UUID(e)
	if !ok {
		return EntityRecord{}, fmt.Errorf("entity %s has no uuid", e)
	}
	rec := EntityRecord{UUID: id.String(), Name: s.EntityName(e)}
	if p := s.Tree().Parent(e); p != ecs.Null && !s.Queued(p) {
		if pid, ok := s.World().UUID(p); ok {
			rec.Parent = pid.String()
		}
	}
	for _, name := range z.codecs.names {
		codec := z.codecs.byName[name]
		if !codec.Has(s, e) {
			continue
		}
		w := newFieldWriter()
		codec.Encode(s, e, w)
		if err := w.Err(); err != nil {
			return EntityRecord{}, fmt.Errorf("encode %s of %s: %w", name, id, err)
		}
		if rec.Components == nil {
			rec.Components = make(map[string]yaml.Node, 4)
		}
		rec.Components[name] = w.node
	}
	return rec, nil
}

// Decode recreates the entities of doc inside s. Every entity is created
// first, then parents are re-issued in document order, then components are
// decoded, then the hierarchy is sorted. A parent uuid that is not in the
// scene or a component type without a codec is logged and skipped. On error
// the entities created so far are destroyed again, leaving the entities s
// held before untouched.
func (z *Serializer) Decode(doc *Document, s *scene.Scene) (err error) {
	ents := make([]ecs.EntityID, len(doc.Entities))
	created := 0
	defer func() {
		if err != nil {
			z.discard(s, ents[:created])
		}
	}()
	for i := range doc.Entities {
		rec := &doc.Entities[i]
		id, err := ecs.ParseUUID(rec.UUID)
		if err != nil {
			return fmt.Errorf("entity %d: %w", i, err)
		}
		if _, dup := s.World().Lookup(id); dup {
			return fmt.Errorf("entity %d: uuid %s already in scene", i, id)
		}
		ents[i] = s.CreateEntityWithUUID(id, rec.Name)
		created++
	}

	for i := range doc.Entities {
		rec := &doc.Entities[i]
		if rec.Parent == "" {
			continue
		}
		pid, err := ecs.ParseUUID(rec.Parent)
		if err != nil {
			return fmt.Errorf("entity %s parent: %w", rec.UUID, err)
		}
		parent, ok := s.World().Lookup(pid)
		if !ok {
			z.log.Error("parent not found, entity left at root",
				zap.String("entity", rec.UUID), zap.String("parent", rec.Parent))
			continue
		}
		if err := s.SetParent(ents[i], parent); err != nil {
			return fmt.Errorf("entity %s parent %s: %w", rec.UUID, rec.Parent, err)
		}
	}

	for i := range doc.Entities {
		if err := z.decodeComponents(s, ents[i], &doc.Entities[i]); err != nil {
			return err
		}
	}

	s.Tree().Sort()
	z.log.Debug("scene decoded", zap.String("scene", doc.Scene), zap.Int("entities", len(ents)))
	return nil
}

// discard destroys partially decoded entities, children first.
func (z *Serializer) discard(s *scene.Scene, ents []ecs.EntityID) {
	for i := len(ents) - 1; i >= 0; i-- {
		s.DestroyImmediate(ents[i], false)
	}
	z.log.Warn("scene decode rolled back", zap.String("scene", s.Name()), zap.Int("entities", len(ents)))
}

func (z *Serializer) decodeComponents(s *scene.Scene, e ecs.EntityID, rec *EntityRecord) error {
	for _, name := range z.codecs.names {
		node, ok := rec.Components[name]
		if !ok {
			continue
		}
		r, err := newFieldReader(&node)
		if err != nil {
			return fmt.Errorf("entity %s %s: %w", rec.UUID, name, err)
		}
		codec, _ := z.codecs.Lookup(name)
		if err := codec.Decode(s, e, r); err != nil {
			return fmt.Errorf("entity %s %s: %w", rec.UUID, name, err)
		}
	}
	for name := range rec.Components {
		if _, ok := z.codecs.Lookup(name); !ok {
			z.log.Error("no codec for component type, skipped",
				zap.String("entity", rec.UUID), zap.String("type", name))
		}
	}
	return nil
}

// Marshal encodes s as YAML.
func (z *Serializer) Marshal(s *scene.Scene) ([]byte, error) {
	doc, err := z.Encode(s)
	if err != nil {
		return nil, err
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal scene %s: %w", s.Name(), err)
	}
	return out, nil
}

// Parse reads a YAML scene document.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse scene: %w", err)
	}
	if doc.Version > FormatVersion {
		return nil, fmt.Errorf("scene format version %d newer than %d", doc.Version, FormatVersion)
	}
	return &doc, nil
}

// Unmarshal parses YAML produced by Marshal into s.
func (z *Serializer) Unmarshal(data []byte, s *scene.Scene) error {
	doc, err := Parse(data)
	if err != nil {
		return err
	}
	return z.Decode(doc, s)
}

// SaveFile writes s to path.
func (z *Serializer) SaveFile(path string, s *scene.Scene) error {
	out, err := z.Marshal(s)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("write scene %s: %w", path, err)
	}
	return nil
}

// LoadFile reads path into s.
func (z *Serializer) LoadFile(path string, s *scene.Scene) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read scene %s: %w", path, err)
	}
	if err := z.Unmarshal(raw, s); err != nil {
		return fmt.Errorf("load scene %s: %w", path, err)
	}
	return nil
}

// NewScene reads a scene document and builds a new Scene named after it.
func (z *Serializer) NewScene(data []byte, opts scene.Options, log *zap.Logger) (*scene.Scene, error) {
	doc, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if doc.Scene != "" {
		opts.Name = doc.Scene
	}
	s := scene.New(opts, log)
	if err := z.Decode(doc, s); err != nil {
		return nil, err
	}
	return s, nil
}
