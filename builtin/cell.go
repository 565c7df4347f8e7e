package builtin

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/chazu/opdispatch/value"
)

// Cell is an array of arbitrary values. Unset slots created by growth
// hold Undefined and read back as empty matrices.
type Cell struct {
	a array[value.Value]
}

// NewCell returns a 1xN cell holding copies of elems.
func NewCell(elems ...value.Value) value.Value {
	a := newArray[value.Value](1, len(elems))
	for i, e := range elems {
		a.data[i] = e.Copy()
	}
	return value.NewValue(&Cell{a: a})
}

func (c *Cell) TypeName() string      { return "cell" }
func (c *Cell) ClassName() string     { return "cell" }
func (c *Cell) Dims() value.Dims      { return c.a.dims() }
func (c *Cell) EmptyClone() value.Rep { return &Cell{} }

// Clone shares the elements, taking a reference to each.
func (c *Cell) Clone() value.Rep {
	return &Cell{a: mapArray(c.a, value.Value.Copy)}
}

// ReleaseElements drops the cell's reference to each element.
func (c *Cell) ReleaseElements() {
	for i := range c.a.data {
		c.a.data[i].Release()
	}
}

// store assigns uncounted rhs handles at args, then takes a reference for
// every slot and drops the ones the old contents held.
func (c *Cell) store(args []value.Value, rhs array[value.Value]) error {
	old := slices.Clone(c.a.data)
	if err := c.a.assign(args, rhs, value.Undefined); err != nil {
		return err
	}
	for i, v := range c.a.data {
		c.a.data[i] = v.Copy()
	}
	for i := range old {
		old[i].Release()
	}
	return nil
}

// Elem returns a copy of the k'th element in column-major order.
func (c *Cell) Elem(k int) value.Value {
	return elemOrEmpty(c.a.data[k])
}

func elemOrEmpty(v value.Value) value.Value {
	if !v.IsDefined() {
		return value.NewValue(&Matrix{})
	}
	return v.Copy()
}

func (c *Cell) String() string {
	parts := make([]string, len(c.a.data))
	for i, v := range c.a.data {
		parts[i] = elemOrEmpty(v).String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Index reads c(args) as a cell or c{args} as the single element
// addressed. A brace subscript past the end gives Undefined so that
// nested assignment can create the element.
func (c *Cell) Index(ctx context.Context, idx value.Index) (value.Value, error) {
	switch idx.Kind {
	case value.IndexParen:
		a, err := c.a.index(idx.Args)
		if err != nil {
			return value.Undefined, err
		}
		return value.NewValue(&Cell{a: mapArray(a, value.Value.Copy)}), nil
	case value.IndexBrace:
		if len(idx.Args) == 1 {
			pos, _, _, err := subscript(idx.Args[0], c.a.numel())
			if err != nil {
				return value.Undefined, err
			}
			if len(pos) == 1 && pos[0] >= c.a.numel() {
				return value.Undefined, nil
			}
		}
		a, err := c.a.index(idx.Args)
		if err != nil {
			return value.Undefined, err
		}
		if a.numel() != 1 {
			return value.Undefined, fmt.Errorf("indexing produces %d results where one is needed", a.numel())
		}
		return elemOrEmpty(a.data[0]), nil
	}
	return value.Undefined, fmt.Errorf("'%s' object cannot be indexed with %c", c.TypeName(), idx.Kind)
}

var errCellConversion = errors.New("conversion to cell array failed")

// cellAssign is the assign-any entry for cells: c(i) = cell or c{i} = x.
func cellAssign(ctx context.Context, lhs value.Rep, idx value.Index, rhs value.Value) error {
	c := lhs.(*Cell)
	switch idx.Kind {
	case value.IndexParen:
		src, ok := rhs.Rep().(*Cell)
		if !ok {
			return errCellConversion
		}
		return c.store(idx.Args, src.a)
	case value.IndexBrace:
		return c.store(idx.Args, scalarArray(rhs))
	}
	return fmt.Errorf("'%s' object cannot be indexed with %c", c.TypeName(), idx.Kind)
}

func cellCat(ctx context.Context, a, b value.Rep, raIdx []int) (value.Value, error) {
	out, err := catArrays(a.(*Cell).a, b.(*Cell).a, raIdx)
	if err != nil {
		return value.Undefined, err
	}
	return value.NewValue(&Cell{a: mapArray(out, value.Value.Copy)}), nil
}

func cellTranspose(ctx context.Context, a value.Rep) (value.Value, error) {
	return value.NewValue(&Cell{a: mapArray(a.(*Cell).a.transpose(), value.Value.Copy)}), nil
}
