package builtin

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/chazu/opdispatch/value"
)

// Struct is a scalar struct: named fields in insertion order.
type Struct struct {
	names  []string
	fields map[string]value.Value
}

// NewStruct returns an empty scalar struct.
func NewStruct() value.Value { return value.NewValue(newStruct()) }

func newStruct() *Struct {
	return &Struct{fields: make(map[string]value.Value)}
}

func (s *Struct) TypeName() string      { return "scalar struct" }
func (s *Struct) ClassName() string     { return "struct" }
func (s *Struct) Dims() value.Dims      { return value.Dims{1, 1} }
func (s *Struct) EmptyClone() value.Rep { return newStruct() }

// Fields returns the field names in insertion order.
func (s *Struct) Fields() []string { return slices.Clone(s.names) }

// Get returns a copy of field name, or Undefined.
func (s *Struct) Get(name string) value.Value {
	if v, ok := s.fields[name]; ok {
		return v.Copy()
	}
	return value.Undefined
}

// Set stores a copy of v under name.
func (s *Struct) Set(name string, v value.Value) {
	n := v.Copy()
	old, ok := s.fields[name]
	if !ok {
		s.names = append(s.names, name)
	} else {
		old.Release()
	}
	s.fields[name] = n
}

// ReleaseElements drops the struct's reference to each field.
func (s *Struct) ReleaseElements() {
	for k, v := range s.fields {
		v.Release()
		s.fields[k] = v
	}
}

func (s *Struct) Clone() value.Rep {
	c := &Struct{names: slices.Clone(s.names), fields: make(map[string]value.Value, len(s.fields))}
	for k, v := range s.fields {
		c.fields[k] = v.Copy()
	}
	return c
}

func (s *Struct) String() string {
	parts := make([]string, len(s.names))
	for i, n := range s.names {
		parts[i] = n + ": " + s.fields[n].String()
	}
	return "struct{" + strings.Join(parts, ", ") + "}"
}

// Index reads s.name, or s(1). A missing field gives Undefined.
func (s *Struct) Index(ctx context.Context, idx value.Index) (value.Value, error) {
	switch idx.Kind {
	case value.IndexField:
		return s.Get(idx.Field), nil
	case value.IndexParen:
		if err := scalarSubscript(idx.Args); err != nil {
			return value.Undefined, err
		}
		return value.NewValue(s.Clone()), nil
	}
	return value.Undefined, fmt.Errorf("'%s' object cannot be indexed with %c", s.TypeName(), idx.Kind)
}

// scalarSubscript accepts only subscripts addressing element 1.
func scalarSubscript(args []value.Value) error {
	for _, a := range args {
		pos, _, _, err := subscript(a, 1)
		if err != nil {
			return err
		}
		for _, k := range pos {
			if k != 0 {
				return outOfBound(k, 1)
			}
		}
	}
	return nil
}

// structAssign is the assign-any entry for structs: s.name = x, or
// s(1) = t for another struct t.
func structAssign(ctx context.Context, lhs value.Rep, idx value.Index, rhs value.Value) error {
	s := lhs.(*Struct)
	switch idx.Kind {
	case value.IndexField:
		s.Set(idx.Field, rhs)
		return nil
	case value.IndexParen:
		if err := scalarSubscript(idx.Args); err != nil {
			return fmt.Errorf("struct arrays are not supported: %w", err)
		}
		src, ok := rhs.Rep().(*Struct)
		if !ok {
			return fmt.Errorf("invalid assignment of '%s' to struct element", rhs.TypeName())
		}
		old := *s
		*s = *src.Clone().(*Struct)
		old.ReleaseElements()
		return nil
	}
	return fmt.Errorf("'%s' object cannot be indexed with %c", s.TypeName(), idx.Kind)
}
