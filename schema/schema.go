// Package schema is the registry of known message layouts. A registry is
// built once and only read afterwards, so concurrent lookups need no locking.
package schema

import (
	"errors"
	"fmt"
	"sort"

	"github.com/vainnor/flightlog/models"
	"github.com/vainnor/flightlog/types"
)

var (
	ErrDuplicateID   = errors.New("duplicate message id")
	ErrDuplicateName = errors.New("duplicate message name")
	ErrFieldBounds   = errors.New("field outside payload")
)

// Field describes where one value lives inside a payload.
type Field struct {
	Name   string
	Offset int
	Width  int
	Kind   types.Kind
	Signed bool
}

// End is the first byte after the field.
func (f Field) End() int { return f.Offset + f.Width }

// BuildFunc turns decoded values into the typed variant for one message type.
type BuildFunc func(types.Fields) models.Payload

// Schema is the layout of one message type.
type Schema struct {
	ID       uint32
	Name     string
	Length   int
	CRCExtra byte
	Fields   []Field
	Build    BuildFunc
}

// Registry maps message ids to schemas.
type Registry struct {
	byID   map[uint32]*Schema
	byName map[string]*Schema
	// seeds covers message ids that have a checksum seed but no layout.
	seeds map[uint32]byte
}

// New validates the schemas and builds a registry from them.
func New(schemas ...Schema) (*Registry, error) {
	r := &Registry{
		byID:   make(map[uint32]*Schema, len(schemas)),
		byName: make(map[string]*Schema, len(schemas)),
	}

	for i := range schemas {
		s := schemas[i]
		if _, exists := r.byID[s.ID]; exists {
			return nil, fmt.Errorf("schema %s: %w: %d", s.Name, ErrDuplicateID, s.ID)
		}
		if _, exists := r.byName[s.Name]; exists {
			return nil, fmt.Errorf("schema %d: %w: %s", s.ID, ErrDuplicateName, s.Name)
		}
		for _, f := range s.Fields {
			if f.Offset < 0 || f.Width <= 0 || f.End() > s.Length {
				return nil, fmt.Errorf("schema %s field %s: %w", s.Name, f.Name, ErrFieldBounds)
			}
		}
		r.byID[s.ID] = &s
		r.byName[s.Name] = &s
	}

	return r, nil
}

// Resolve returns the schema for a message id.
func (r *Registry) Resolve(id uint32) (*Schema, bool) {
	s, ok := r.byID[id]
	return s, ok
}

// ByName returns the schema with the given type name.
func (r *Registry) ByName(name string) (*Schema, bool) {
	s, ok := r.byName[name]
	return s, ok
}

// Checksum reports the CRC_EXTRA seed and base payload length for a message
// id. Ids known only by their seed report a length of 0.
func (r *Registry) Checksum(id uint32) (byte, int, bool) {
	if s, ok := r.byID[id]; ok {
		return s.CRCExtra, s.Length, true
	}
	if seed, ok := r.seeds[id]; ok {
		return seed, 0, true
	}
	return 0, 0, false
}

// Names lists the known message type names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) Len() int { return len(r.byID) }
