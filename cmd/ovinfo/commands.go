package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/chazu/opdispatch/builtin"
	"github.com/chazu/opdispatch/dump"
	"github.com/chazu/opdispatch/stats"
	"github.com/chazu/opdispatch/value"
	"github.com/google/uuid"
)

// env is the state shared by the subcommands.
type env struct {
	d       *value.Dispatcher
	ctx     context.Context
	out     io.Writer
	statsDB string
	output  string
}

func (e *env) listTypes() error {
	w := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	for i, name := range e.d.TypeNames() {
		rec, _ := e.d.Record(value.TypeID(i))
		fmt.Fprintf(w, "%d\t%s\t%s\n", i, name, rec.ClassName)
	}
	return w.Flush()
}

// sample returns an operand of the named type. Types without a handmade
// sample use their registered prototype.
func (e *env) sample(name string) (value.Value, error) {
	if mk, ok := samples[name]; ok {
		return mk(), nil
	}
	v := e.d.LookupType(name)
	if !v.IsDefined() {
		return value.Undefined, fmt.Errorf("unknown type %q", name)
	}
	return v, nil
}

var samples = map[string]func() value.Value{
	"scalar":             func() value.Value { return builtin.NewScalar(2) },
	"matrix":             func() value.Value { return builtin.NewMatrix(2, 2, []float64{1, 2, 3, 4}) },
	"complex scalar":     func() value.Value { return builtin.NewComplex(1 + 2i) },
	"complex matrix":     func() value.Value { return builtin.NewComplexMatrix(2, 2, []complex128{1, 2i, 3, 4i}) },
	"bool":               func() value.Value { return builtin.NewBool(true) },
	"bool matrix":        func() value.Value { return builtin.NewBoolMatrix(2, 2, []bool{true, false, false, true}) },
	"range":              func() value.Value { return builtin.NewRange(1, 1, 4) },
	"string":             func() value.Value { return builtin.NewString("ab") },
	"sparse matrix":      func() value.Value { return builtin.NewSparse(2, 2, []builtin.Triplet{{Row: 0, Col: 0, V: 1}, {Row: 1, Col: 1, V: 2}}) },
	"diagonal matrix":    func() value.Value { return builtin.NewDiag(2, 2, []float64{1, 2}) },
	"permutation matrix": func() value.Value { return builtin.NewPerm([]int{1, 0}) },
	"cell":               func() value.Value { return builtin.NewCell(builtin.NewScalar(1), builtin.NewString("x")) },
	"int8 matrix":        func() value.Value { return builtin.NewIntMatrix(2, 2, []int8{1, 2, 3, 4}) },
	"int16 matrix":       func() value.Value { return builtin.NewIntMatrix(2, 2, []int16{1, 2, 3, 4}) },
	"int32 matrix":       func() value.Value { return builtin.NewIntMatrix(2, 2, []int32{1, 2, 3, 4}) },
	"int64 matrix":       func() value.Value { return builtin.NewIntMatrix(2, 2, []int64{1, 2, 3, 4}) },
	"uint8 matrix":       func() value.Value { return builtin.NewIntMatrix(2, 2, []uint8{1, 2, 3, 4}) },
	"uint16 matrix":      func() value.Value { return builtin.NewIntMatrix(2, 2, []uint16{1, 2, 3, 4}) },
	"uint32 matrix":      func() value.Value { return builtin.NewIntMatrix(2, 2, []uint32{1, 2, 3, 4}) },
	"uint64 matrix":      func() value.Value { return builtin.NewIntMatrix(2, 2, []uint64{1, 2, 3, 4}) },
}

// describe renders the outcome of one dispatch.
func describe(v value.Value, err error) string {
	if err != nil {
		if errors.Is(err, value.ErrInterrupted) {
			return "interrupted"
		}
		if k := value.KindOf(err); k != 0 {
			return fmt.Sprintf("%s: %v", k, err)
		}
		return "error: " + err.Error()
	}
	return v.TypeName()
}

// apply dispatches op on the operands. Operators are tried as unary (one
// operand), then binary, compound, assignment and concatenation.
func (e *env) apply(op string, operands []value.Value) (value.Value, error) {
	switch len(operands) {
	case 1:
		u, ok := value.ParseUnaryOp(op)
		if !ok {
			return value.Undefined, fmt.Errorf("unknown unary operator %q", op)
		}
		if u == value.OpIncr || u == value.OpDecr {
			v := operands[0]
			err := v.NonConstUnaryOp(e.ctx, e.d, u)
			return v, err
		}
		return e.d.UnaryOp(e.ctx, u, operands[0])
	case 2:
		a, b := operands[0], operands[1]
		if bop, ok := value.ParseBinaryOp(op); ok {
			return e.d.BinaryOp(e.ctx, bop, a, b)
		}
		if cop, ok := e.d.LookupCompoundOp(op); ok {
			return e.d.CompoundBinaryOp(e.ctx, cop, a, b)
		}
		if aop, ok := value.ParseAssignOp(op); ok {
			lhs := a
			err := lhs.Assign(e.ctx, e.d, aop, []value.Index{value.Paren(builtin.NewScalar(1))}, b)
			return lhs, err
		}
		switch op {
		case "cat", "horzcat", "[,]":
			return e.d.CatOp(e.ctx, a, b, value.HorzCat(a))
		case "vertcat", "[;]":
			return e.d.CatOp(e.ctx, a, b, value.VertCat(a))
		}
		return value.Undefined, fmt.Errorf("unknown binary operator %q", op)
	}
	return value.Undefined, fmt.Errorf("operators take one or two operands")
}

func (e *env) probe(args []string) error {
	if len(args) < 2 || len(args) > 3 {
		return fmt.Errorf("usage: ovinfo probe <op> <type> [type]")
	}
	var operands []value.Value
	for _, name := range args[1:] {
		v, err := e.sample(name)
		if err != nil {
			return err
		}
		operands = append(operands, v)
	}
	r, err := e.apply(args[0], operands)
	fmt.Fprintf(e.out, "%s %s: %s\n", args[0], strings.Join(args[1:], ", "), describe(r, err))
	return nil
}

// grid probes a binary operator on every ordered pair of installed types
// and prints one line per pair that resolves.
func (e *env) grid(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: ovinfo grid <op>")
	}
	op := args[0]
	names := e.d.TypeNames()
	w := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	misses := 0
	for _, l := range names {
		for _, r := range names {
			if err := value.Poll(e.ctx); err != nil {
				return err
			}
			a, err := e.sample(l)
			if err != nil {
				return err
			}
			b, err := e.sample(r)
			if err != nil {
				return err
			}
			v, err := e.apply(op, []value.Value{a, b})
			if value.KindOf(err) == value.LookupMiss {
				misses++
				continue
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", l, r, describe(v, err))
		}
	}
	fmt.Fprintf(w, "(%d pairs not implemented)\n", misses)
	return w.Flush()
}

func (e *env) dump() error {
	td := e.d.Dump()
	fp, err := dump.Fingerprint(td)
	if err != nil {
		return err
	}
	if e.output != "" {
		if err := dump.WriteFile(e.output, e.d); err != nil {
			return err
		}
		log.Infof("wrote %s", e.output)
	}
	fmt.Fprintf(e.out, "%d types, %d entries, %d class ops\n", len(td.Types), len(td.Entries), len(td.ClassOps))
	fmt.Fprintf(e.out, "fingerprint %s\n", fp)
	return nil
}

func (e *env) diff(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: ovinfo diff <a.cbor> <b.cbor>")
	}
	a, err := dump.ReadFile(args[0])
	if err != nil {
		return err
	}
	b, err := dump.ReadFile(args[1])
	if err != nil {
		return err
	}
	lines := dump.Diff(a, b)
	for _, l := range lines {
		fmt.Fprintln(e.out, l)
	}
	if len(lines) == 0 {
		fmt.Fprintln(e.out, "identical")
	}
	return nil
}

func (e *env) openStats() (*stats.Store, error) {
	if e.statsDB == "" {
		return nil, fmt.Errorf("no statistics database (use -stats)")
	}
	return stats.Open(e.statsDB)
}

// recordStats stores the dispatcher's counters under its instance id.
func (e *env) recordStats() error {
	if e.statsDB == "" {
		return nil
	}
	rows := e.d.StatsSnapshot()
	if len(rows) == 0 {
		return nil
	}
	s, err := e.openStats()
	if err != nil {
		return err
	}
	defer s.Close()
	if err := s.Record(e.d.ID(), rows); err != nil {
		return err
	}
	log.Debugf("recorded %d rows for session %s", len(rows), e.d.ID())
	return nil
}

func (e *env) showStats(args []string) error {
	s, err := e.openStats()
	if err != nil {
		return err
	}
	defer s.Close()

	var rows []value.StatRow
	switch len(args) {
	case 0:
		sessions, err := s.Sessions()
		if err != nil {
			return err
		}
		for _, ss := range sessions {
			fmt.Fprintf(e.out, "%s  %s  %d rows\n", ss.ID, ss.Recorded.Format("2006-01-02 15:04:05"), ss.Rows)
		}
		if rows, err = s.Totals(); err != nil {
			return err
		}
	case 1:
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid session id %q: %w", args[0], err)
		}
		if rows, err = s.Load(id); err != nil {
			return err
		}
	default:
		return fmt.Errorf("usage: ovinfo stats [session]")
	}

	w := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KIND\tOP\tLEFT\tRIGHT\tEXACT\tCONV\tCLASS\tDECOMP\tMISS\tFAIL")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\t%d\n",
			r.Kind, r.Op, r.Left, r.Right, r.Exact, r.Converted, r.Class, r.Decomposed, r.Missed, r.Failed)
	}
	return w.Flush()
}
