package value

import (
	"context"
	"strconv"
	"strings"
)

// Rep is a concrete value representation held by a Value.
//
// The interface is deliberately small. Capabilities the dispatcher can use
// when present (numeric conversion, narrowing, indexing) are expressed as
// separate optional interfaces checked with type assertions.
type Rep interface {
	// TypeName is the registry name of the representation, e.g. "matrix".
	TypeName() string
	// ClassName is the language-level class, e.g. "double" or "logical".
	ClassName() string
	Dims() Dims
	// Clone returns a deep, value-preserving copy.
	Clone() Rep
}

// ConvFunc converts one representation into another. A nil result means
// the conversion failed.
type ConvFunc func(r Rep) Rep

// Conversion is a single-hop conversion offered by a representation,
// together with the type name it produces.
type Conversion struct {
	Target string
	Fn     ConvFunc
}

// Valid reports whether the conversion can be attempted.
func (c Conversion) Valid() bool { return c.Fn != nil }

// NumericConverter is implemented by representations that can be converted
// to a more general numeric form when an operator lookup misses.
type NumericConverter interface {
	NumericConversion() Conversion
}

// NumericDemoter is implemented by representations that can be demoted to
// a narrower numeric form (for example double to single precision). It is
// only consulted when neither operand offers a NumericConversion.
type NumericDemoter interface {
	NumericDemotion() Conversion
}

// Narrower is implemented by representations that may be replaced by a
// more specific one after construction. TryNarrowingConversion returns nil
// when no narrowing applies; the replacement must itself narrow to nil.
type Narrower interface {
	TryNarrowingConversion() Rep
}

// ClassObject marks representations of user-extensible class objects.
// Operators on such values go through the class dispatch override.
type ClassObject interface {
	IsClassObject() bool
}

// Indexer is implemented by representations that support subscripted
// reads, needed for compound and multi-level indexed assignment.
type Indexer interface {
	Index(ctx context.Context, idx Index) (Value, error)
}

// Container is implemented by representations that hold Values of their
// own. ReleaseElements drops the held references; it is called once, when
// the last handle to the representation is released.
type Container interface {
	ReleaseElements()
}

// EmptyCloner returns an empty representation of the same family. It is
// used as the starting point when assigning into an undefined variable.
type EmptyCloner interface {
	EmptyClone() Rep
}

// ---------------------------------------------------------------------------
// Dims
// ---------------------------------------------------------------------------

// Dims holds the dimensions of a value, at least two.
type Dims []int

// Rows returns the first dimension.
func (d Dims) Rows() int {
	if len(d) == 0 {
		return 0
	}
	return d[0]
}

// Cols returns the second dimension.
func (d Dims) Cols() int {
	if len(d) < 2 {
		return 1
	}
	return d[1]
}

// Numel returns the number of elements.
func (d Dims) Numel() int {
	if len(d) == 0 {
		return 0
	}
	n := 1
	for _, x := range d {
		n *= x
	}
	return n
}

// IsScalar reports whether every dimension is 1.
func (d Dims) IsScalar() bool {
	return len(d) > 0 && d.Numel() == 1
}

// Equal reports whether d and o describe the same shape.
func (d Dims) Equal(o Dims) bool {
	if len(d) != len(o) {
		return false
	}
	for i := range d {
		if d[i] != o[i] {
			return false
		}
	}
	return true
}

func (d Dims) String() string {
	parts := make([]string, len(d))
	for i, x := range d {
		parts[i] = strconv.Itoa(x)
	}
	return strings.Join(parts, "x")
}

// ---------------------------------------------------------------------------
// Index
// ---------------------------------------------------------------------------

// IndexKind is the bracket kind of one subscript level.
type IndexKind byte

const (
	IndexWhole IndexKind = 0   // no subscript: the whole value
	IndexParen IndexKind = '(' // a(i, j)
	IndexBrace IndexKind = '{' // c{i}
	IndexField IndexKind = '.' // s.name
)

// Index is one level of a subscript chain.
type Index struct {
	Kind  IndexKind
	Args  []Value
	Field string
}

// Paren builds an a(args...) subscript.
func Paren(args ...Value) Index { return Index{Kind: IndexParen, Args: args} }

// Brace builds a c{args...} subscript.
func Brace(args ...Value) Index { return Index{Kind: IndexBrace, Args: args} }

// Field builds an s.name subscript.
func Field(name string) Index { return Index{Kind: IndexField, Field: name} }

// IsWhole reports whether the index addresses the whole value.
func (idx Index) IsWhole() bool { return idx.Kind == IndexWhole }

func (idx Index) String() string {
	switch idx.Kind {
	case IndexWhole:
		return ""
	case IndexField:
		return "." + idx.Field
	}
	parts := make([]string, len(idx.Args))
	for i, a := range idx.Args {
		parts[i] = a.String()
	}
	closer := ")"
	if idx.Kind == IndexBrace {
		closer = "}"
	}
	return string(idx.Kind) + strings.Join(parts, ",") + closer
}
