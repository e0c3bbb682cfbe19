// Package serial saves and loads scenes as YAML documents. Components are
// written through a named-field contract so each component type owns its
// own field layout.
package serial

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// FieldWriter collects the named fields of one component into a YAML
// mapping. The first encoding error is kept and reported by Err.
type FieldWriter struct {
	node yaml.Node
	err  error
}

func newFieldWriter() *FieldWriter {
	return &FieldWriter{node: yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}}
}

// Write appends field name with value v.
func (w *FieldWriter) Write(name string, v any) {
	if w.err != nil {
		return
	}
	var val yaml.Node
	if err := val.Encode(v); err != nil {
		w.err = fmt.Errorf("encode field %s: %w", name, err)
		return
	}
	key := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: name}
	w.node.Content = append(w.node.Content, key, &val)
}

func (w *FieldWriter) Err() error { return w.err }

// FieldReader reads named fields back from a component mapping. Missing
// fields leave the destination untouched. The first decoding error is kept
// and reported by Err.
type FieldReader struct {
	fields map[string]*yaml.Node
	err    error
}

func newFieldReader(n *yaml.Node) (*FieldReader, error) {
	r := &FieldReader{fields: make(map[string]*yaml.Node)}
	if n.Kind == 0 {
		return r, nil // empty component, e.g. a tag
	}
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: component is not a mapping", n.Line)
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		r.fields[n.Content[i].Value] = n.Content[i+1]
	}
	return r, nil
}

// Read decodes field name into out and reports whether the field was present.
func (r *FieldReader) Read(name string, out any) bool {
	n, ok := r.fields[name]
	if !ok || r.err != nil {
		return false
	}
	if err := n.Decode(out); err != nil {
		r.err = fmt.Errorf("decode field %s (line %d): %w", name, n.Line, err)
		return false
	}
	return true
}

func (r *FieldReader) Has(name string) bool {
	_, ok := r.fields[name]
	return ok
}

func (r *FieldReader) Err() error { return r.err }
