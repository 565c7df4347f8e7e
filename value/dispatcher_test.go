package value

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestRegisterTypeIdempotent(t *testing.T) {
	d := NewDispatcher(Options{InitialCapacity: 2})
	a := d.RegisterType("foo", "double", scalar("foo", 1))
	capBefore := d.Capacity()
	b := d.RegisterType("foo", "double", scalar("foo", 2))

	if a != b {
		t.Errorf("second registration id = %d, want %d", b, a)
	}
	if d.NumTypes() != 1 {
		t.Errorf("NumTypes = %d, want 1", d.NumTypes())
	}
	if d.Capacity() != capBefore {
		t.Errorf("Capacity = %d, want %d", d.Capacity(), capBefore)
	}
	if got := num(d.LookupType("foo")); got[0] != 1 {
		t.Errorf("prototype = %v, want the first registration", got)
	}
}

func TestRegisterTypeDenseIDs(t *testing.T) {
	d, ids := newTestDispatcher("a", "b", "c")
	for i, n := range []string{"a", "b", "c"} {
		if ids[n] != TypeID(i) {
			t.Errorf("id(%s) = %d, want %d", n, ids[n], i)
		}
	}
	if got := d.TypeNames(); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("TypeNames = %v", got)
	}
	if d.TypeID("missing") != NoType {
		t.Error("TypeID(missing) should be NoType")
	}
	if d.TypeName(7) != "" {
		t.Error("TypeName(7) should be empty")
	}
	if rec, ok := d.Record(ids["b"]); !ok || rec.Name != "b" || rec.ClassName != "double" {
		t.Errorf("Record(b) = %+v, %v", rec, ok)
	}
}

func TestLookupTypeReturnsUniqueCopy(t *testing.T) {
	d, _ := newTestDispatcher("S")
	v := d.LookupType("S")
	if v.RefCount() != 1 {
		t.Fatalf("RefCount = %d, want 1", v.RefCount())
	}
	v.Rep().(*trep).data[0] = 99
	if got := num(d.LookupType("S"))[0]; got != 0 {
		t.Errorf("prototype was mutated through a lookup copy: %v", got)
	}
	if d.LookupType("nope").IsDefined() {
		t.Error("LookupType of unknown name should be undefined")
	}
}

func TestTableGrowthPreservesEntries(t *testing.T) {
	d := NewDispatcher(Options{InitialCapacity: 2})
	s := d.RegisterType("S", "double", scalar("S", 0))
	d.RegisterBinaryOp(OpAdd, s, s, elementwise("S", add))
	d.RegisterPrefAssignConv(s, s, s)

	var last TypeID
	for _, n := range []string{"t1", "t2", "t3", "t4"} {
		last = d.RegisterType(n, "double", scalar(n, 0))
	}
	if d.Capacity() != 8 {
		t.Errorf("Capacity = %d, want 8", d.Capacity())
	}
	if d.LookupBinaryOp(OpAdd, s, s) == nil {
		t.Error("binary entry lost on growth")
	}
	if d.LookupPrefAssignConv(s, s) != s {
		t.Error("pref-assign entry lost on growth")
	}
	if d.LookupPrefAssignConv(s, last) != NoType {
		t.Error("new pref-assign slots should be empty")
	}

	// Registering an op past capacity grows before storing.
	d.RegisterUnaryOp(OpUMinus, 12, func(ctx context.Context, a Rep) (Value, error) { return Undefined, nil })
	if d.Capacity() != 16 {
		t.Errorf("Capacity = %d, want 16", d.Capacity())
	}
	if d.LookupUnaryOp(OpUMinus, 12) == nil {
		t.Error("unary entry not stored after growth")
	}
}

func TestRegisterForUnregisteredTypePanics(t *testing.T) {
	d, ids := newTestDispatcher("S")
	s := ids["S"]
	noop := func(ctx context.Context, a, b Rep) (Value, error) { return Undefined, nil }
	tests := []struct {
		name string
		fn   func()
	}{
		{"unary NoType", func() { d.RegisterUnaryOp(OpNot, NoType, nil) }},
		{"unary past the last type", func() { d.RegisterUnaryOp(OpNot, s+1, nil) }},
		{"unary past MaxTypes", func() { d.RegisterUnaryOp(OpNot, MaxTypes, nil) }},
		{"binary NoType left", func() { d.RegisterBinaryOp(OpAdd, NoType, s, noop) }},
		{"binary NoType right", func() { d.RegisterBinaryOp(OpAdd, s, NoType, noop) }},
		{"compound", func() { d.RegisterCompoundBinaryOp(OpTransMul, s, NoType, noop) }},
		{"cat", func() { d.RegisterCatOp(NoType, s, nil) }},
		{"assign", func() { d.RegisterAssignOp(OpAsnEq, s, NoType, nil) }},
		{"assign any", func() { d.RegisterAssignAnyOp(OpAsnEq, NoType, nil) }},
		{"pref assign result", func() { d.RegisterPrefAssignConv(s, s, NoType) }},
		{"type conversion", func() { d.RegisterTypeConvOp(s, NoType, nil) }},
		{"widening", func() { d.RegisterWideningOp(NoType, s, nil) }},
		{"non-const unary", func() { d.RegisterNonConstUnaryOp(OpIncr, NoType, nil) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				msg, _ := recover().(string)
				if !strings.HasPrefix(msg, "opdispatch: ") {
					t.Errorf("panic = %q, want an opdispatch message", msg)
				}
			}()
			tt.fn()
		})
	}
	if d.LookupUnaryOp(OpNot, s) != nil {
		t.Error("a rejected registration left an entry")
	}
}

func TestLookupMissIsNil(t *testing.T) {
	d, ids := newTestDispatcher("S")
	s := ids["S"]
	if d.LookupUnaryOp(OpNot, s) != nil || d.LookupBinaryOp(OpAdd, s, s) != nil ||
		d.LookupCatOp(s, s) != nil || d.LookupAssignOp(OpAsnEq, s, s) != nil ||
		d.LookupAssignAnyOp(OpAsnEq, s) != nil || d.LookupTypeConvOp(s, s) != nil ||
		d.LookupWideningOp(s, s) != nil || d.LookupNonConstUnaryOp(OpIncr, s) != nil {
		t.Error("empty slots should look up as nil")
	}
	if d.LookupPrefAssignConv(s, s) != NoType {
		t.Error("empty pref-assign slot should be NoType")
	}
	if d.LookupBinaryOp(OpAdd, NoType, s) != nil {
		t.Error("NoType lookups should miss")
	}
}

func TestDuplicateRegistrationOverwrites(t *testing.T) {
	d, ids := newTestDispatcher("S")
	s := ids["S"]
	first := elementwise("S", func(x, y float64) float64 { return 1 })
	second := elementwise("S", func(x, y float64) float64 { return 2 })

	if d.RegisterBinaryOp(OpAdd, s, s, first) {
		t.Error("first registration reported a replacement")
	}
	if !d.RegisterBinaryOp(OpAdd, s, s, second) {
		t.Error("second registration should report a replacement")
	}
	got, err := d.BinaryOp(context.Background(), OpAdd, NewValue(scalar("S", 0)), NewValue(scalar("S", 0)))
	if err != nil {
		t.Fatal(err)
	}
	if num(got)[0] != 2 {
		t.Errorf("result = %v, want the last registration to win", num(got))
	}

	if d.RegisterPrefAssignConv(s, s, s) || !d.RegisterPrefAssignConv(s, s, s) {
		t.Error("pref-assign duplicate should report a replacement")
	}
	classFn := func(ctx context.Context, a, b Value) (Value, error) { return a.Copy(), nil }
	if d.RegisterBinaryClassOp(OpAdd, classFn) || !d.RegisterBinaryClassOp(OpAdd, classFn) {
		t.Error("class op duplicate should report a replacement")
	}
}

func TestStrictDuplicatePanics(t *testing.T) {
	d := NewDispatcher(Options{Strict: true})
	s := d.RegisterType("S", "double", scalar("S", 0))
	fn := func(ctx context.Context, a Rep) (Value, error) { return Undefined, nil }
	d.RegisterUnaryOp(OpNot, s, fn)
	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate in strict mode")
		}
	}()
	d.RegisterUnaryOp(OpNot, s, fn)
}

func TestLookupDeterminism(t *testing.T) {
	d, ids := newTestDispatcher("S")
	s := ids["S"]
	calls := 0
	d.RegisterBinaryOp(OpMul, s, s, func(ctx context.Context, a, b Rep) (Value, error) {
		calls++
		return NewValue(scalar("S", 7)), nil
	})

	a, b := NewValue(scalar("S", 1)), NewValue(scalar("S", 2))
	for i := 0; i < 40; i++ {
		d.RegisterType(string(rune('a'+i%26))+string(rune('A'+i/26)), "double", scalar("x", 0))
		got, err := d.BinaryOp(context.Background(), OpMul, a, b)
		if err != nil {
			t.Fatalf("after %d registrations: %v", i+1, err)
		}
		if num(got)[0] != 7 {
			t.Fatalf("after %d registrations: result %v", i+1, num(got))
		}
	}
	if calls != 40 {
		t.Errorf("calls = %d, want 40", calls)
	}
}

func TestMixedPairWithoutConversionMisses(t *testing.T) {
	d, ids := newTestDispatcher("S", "M")
	d.RegisterBinaryOp(OpAdd, ids["S"], ids["S"], elementwise("S", add))
	d.RegisterBinaryOp(OpAdd, ids["M"], ids["M"], elementwise("M", add))

	_, err := d.BinaryOp(context.Background(), OpAdd, NewValue(scalar("S", 1)), NewValue(matrix("M", 1, 2, 1, 2)))
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, ErrLookupMiss) {
		t.Errorf("error %v is not a lookup miss", err)
	}
	if KindOf(err) != LookupMiss {
		t.Errorf("KindOf = %v", KindOf(err))
	}
	want := "binary operator '+' not implemented for 'S' by 'M' operations"
	if err.Error() != want {
		t.Errorf("message = %q, want %q", err.Error(), want)
	}
	var de *DispatchError
	if !errors.As(err, &de) || !reflect.DeepEqual(de.Types, []string{"S", "M"}) {
		t.Errorf("DispatchError types = %v", de)
	}
}

func TestScalarConvertsToMatrix(t *testing.T) {
	d, ids := newTestDispatcher("S", "M")
	d.RegisterBinaryOp(OpAdd, ids["S"], ids["S"], elementwise("S", add))
	d.RegisterBinaryOp(OpAdd, ids["M"], ids["M"], elementwise("M", add))

	s := scalar("S", 10)
	s.chain = []string{"M"}
	got, err := d.BinaryOp(context.Background(), OpAdd, NewValue(s), NewValue(matrix("M", 1, 2, 1, 2)))
	if err != nil {
		t.Fatal(err)
	}
	if got.TypeName() != "M" || !reflect.DeepEqual(num(got), []float64{11, 12}) {
		t.Errorf("result = %v", got)
	}
}

func TestOneByOneResultNarrows(t *testing.T) {
	d, ids := newTestDispatcher("S", "M")
	d.RegisterBinaryOp(OpAdd, ids["M"], ids["M"], elementwise("M", add))

	got, err := d.BinaryOp(context.Background(), OpAdd, NewValueExact(matrix("M", 1, 1, 2)), NewValueExact(matrix("M", 1, 1, 3)))
	if err != nil {
		t.Fatal(err)
	}
	if d.TypeOf(got) != ids["S"] {
		t.Errorf("result type = %s, want S", got.TypeName())
	}
	if num(got)[0] != 5 {
		t.Errorf("result = %v", num(got))
	}
}

func TestRegistrationOrderIndependent(t *testing.T) {
	setup := func(names ...string) *Dispatcher {
		d, ids := newTestDispatcher(names...)
		d.RegisterBinaryOp(OpAdd, ids["S"], ids["S"], elementwise("S", add))
		d.RegisterBinaryOp(OpAdd, ids["M"], ids["M"], elementwise("M", add))
		d.RegisterBinaryOp(OpSub, ids["M"], ids["S"], elementwise("M", func(x, y float64) float64 { return x - y }))
		return d
	}
	d1, d2 := setup("S", "M"), setup("M", "S")
	if d1.TypeID("S") == d2.TypeID("S") {
		t.Fatal("registries should number types differently")
	}

	cases := []struct {
		op   BinaryOp
		a, b *trep
	}{
		{OpAdd, scalar("S", 1), scalar("S", 2)},
		{OpAdd, matrix("M", 1, 2, 1, 2), matrix("M", 1, 2, 3, 4)},
		{OpSub, matrix("M", 1, 2, 5, 6), scalar("S", 1)},
		{OpSub, scalar("S", 1), matrix("M", 1, 2, 5, 6)},
	}
	for _, c := range cases {
		r1, err1 := d1.BinaryOp(context.Background(), c.op, NewValue(c.a.Clone()), NewValue(c.b.Clone()))
		r2, err2 := d2.BinaryOp(context.Background(), c.op, NewValue(c.a.Clone()), NewValue(c.b.Clone()))
		if (err1 == nil) != (err2 == nil) {
			t.Errorf("%s %s %s: errors differ: %v / %v", c.a, c.op, c.b, err1, err2)
			continue
		}
		if err1 != nil {
			if err1.Error() != err2.Error() {
				t.Errorf("messages differ: %q / %q", err1, err2)
			}
			continue
		}
		if r1.TypeName() != r2.TypeName() || !reflect.DeepEqual(num(r1), num(r2)) {
			t.Errorf("%s %s %s: %v / %v", c.a, c.op, c.b, r1, r2)
		}
	}

	if !reflect.DeepEqual(d1.Dump(), d2.Dump()) {
		t.Error("dumps differ between registration orders")
	}
}

func TestConversionIsSingleHop(t *testing.T) {
	d, ids := newTestDispatcher("A", "B", "C")
	d.RegisterBinaryOp(OpAdd, ids["C"], ids["C"], elementwise("C", add))

	a := scalar("A", 1)
	a.chain = []string{"B", "C"}
	_, err := d.BinaryOp(context.Background(), OpAdd, NewValue(a), NewValue(scalar("C", 1)))
	if !errors.Is(err, ErrLookupMiss) {
		t.Fatalf("err = %v, want lookup miss", err)
	}
	if want := "binary operator '+' not implemented for 'A' by 'C' operations"; err.Error() != want {
		t.Errorf("message = %q, want %q", err.Error(), want)
	}

	// One hop is enough once B pairs with C.
	d.RegisterBinaryOp(OpAdd, ids["B"], ids["C"], elementwise("C", add))
	if _, err := d.BinaryOp(context.Background(), OpAdd, NewValue(a.Clone()), NewValue(scalar("C", 1))); err != nil {
		t.Errorf("single hop: %v", err)
	}
}

func TestConversionFailure(t *testing.T) {
	d, ids := newTestDispatcher("S", "M")
	d.RegisterBinaryOp(OpAdd, ids["M"], ids["M"], elementwise("M", add))
	d.RegisterUnaryOp(OpUMinus, ids["M"], func(ctx context.Context, a Rep) (Value, error) { return NewValue(a.Clone()), nil })

	s := scalar("S", 1)
	s.chain, s.fail = []string{"M"}, true

	_, err := d.BinaryOp(context.Background(), OpAdd, NewValue(s), NewValue(matrix("M", 1, 2)))
	if !errors.Is(err, ErrConversionFailure) || errors.Is(err, ErrLookupMiss) {
		t.Fatalf("err = %v, want conversion failure", err)
	}
	if want := "type conversion failed for binary operator '+'"; err.Error() != want {
		t.Errorf("message = %q, want %q", err.Error(), want)
	}

	_, err = d.UnaryOp(context.Background(), OpUMinus, NewValue(s.Clone()))
	if want := "type conversion failed for unary operator '-'"; err == nil || err.Error() != want {
		t.Errorf("unary: err = %v, want %q", err, want)
	}

	d.RegisterCatOp(ids["M"], ids["M"], nil)
	_, err = d.CatOp(context.Background(), NewValue(s.Clone()), NewValue(matrix("M", 1, 2)), []int{0, 1})
	if want := "type conversion failed for concatenation operator"; err == nil || err.Error() != want {
		t.Errorf("cat: err = %v, want %q", err, want)
	}
}

func TestBiasedConversion(t *testing.T) {
	d, ids := newTestDispatcher("S", "M", "B")
	d.RegisterBinaryOp(OpAdd, ids["S"], ids["M"], elementwise("M", add))

	// Both operands offer a conversion but converting the bool alone
	// reaches (S, M), so the matrix is left alone.
	b := scalar("B", 1)
	b.chain = []string{"S"}
	m := matrix("M", 1, 2, 1, 2)
	m.chain = []string{"X"}

	got, err := d.BinaryOp(context.Background(), OpAdd, NewValue(b), NewValue(m))
	if err != nil {
		t.Fatal(err)
	}
	if got.TypeName() != "M" || !reflect.DeepEqual(num(got), []float64{2, 3}) {
		t.Errorf("result = %v", got)
	}
}

type demoting struct{ *trep }

func (r demoting) NumericDemotion() Conversion {
	return Conversion{Target: "F", Fn: func(x Rep) Rep {
		c := x.(demoting).trep.Clone().(*trep)
		c.name = "F"
		return c
	}}
}

func (r demoting) Clone() Rep { return demoting{r.trep.Clone().(*trep)} }

func TestDemotionFallback(t *testing.T) {
	d, ids := newTestDispatcher("D", "F")
	d.RegisterBinaryOp(OpMul, ids["F"], ids["F"], elementwise("F", func(x, y float64) float64 { return x * y }))

	got, err := d.BinaryOp(context.Background(), OpMul, NewValue(demoting{scalar("D", 3)}), NewValue(scalar("F", 4)))
	if err != nil {
		t.Fatal(err)
	}
	if got.TypeName() != "F" || num(got)[0] != 12 {
		t.Errorf("result = %v", got)
	}
}

func TestUnaryOp(t *testing.T) {
	d, ids := newTestDispatcher("S", "B")
	neg := func(ctx context.Context, a Rep) (Value, error) {
		c := a.Clone().(*trep)
		for i := range c.data {
			c.data[i] = -c.data[i]
		}
		return NewValue(c), nil
	}
	d.RegisterUnaryOp(OpUMinus, ids["S"], neg)

	got, err := d.UnaryOp(context.Background(), OpUMinus, NewValue(scalar("S", 2)))
	if err != nil || num(got)[0] != -2 {
		t.Fatalf("UnaryOp = %v, %v", got, err)
	}

	b := scalar("B", 1)
	b.chain = []string{"S"}
	got, err = d.UnaryOp(context.Background(), OpUMinus, NewValue(b))
	if err != nil || got.TypeName() != "S" || num(got)[0] != -1 {
		t.Fatalf("converted UnaryOp = %v, %v", got, err)
	}

	_, err = d.UnaryOp(context.Background(), OpNot, NewValue(scalar("S", 2)))
	if want := "unary operator '!' not implemented for 'S' operations"; err == nil || err.Error() != want {
		t.Errorf("err = %v, want %q", err, want)
	}
}

func TestUndefinedOperand(t *testing.T) {
	d, _ := newTestDispatcher("S")
	_, err := d.BinaryOp(context.Background(), OpAdd, Undefined, NewValue(scalar("S", 1)))
	if !errors.Is(err, ErrUndefined) {
		t.Errorf("err = %v, want ErrUndefined", err)
	}
	if KindOf(err) != OperatorFailure {
		t.Errorf("KindOf = %v", KindOf(err))
	}
}

func TestOperatorFailurePropagates(t *testing.T) {
	d, ids := newTestDispatcher("S")
	d.RegisterBinaryOp(OpDiv, ids["S"], ids["S"], func(ctx context.Context, a, b Rep) (Value, error) {
		return Undefined, errors.New("boom")
	})
	d.RegisterBinaryOp(OpMul, ids["S"], ids["S"], func(ctx context.Context, a, b Rep) (Value, error) {
		return Undefined, nil
	})

	_, err := d.BinaryOp(context.Background(), OpDiv, NewValue(scalar("S", 1)), NewValue(scalar("S", 1)))
	if KindOf(err) != OperatorFailure || err.Error() != "boom" {
		t.Errorf("err = %v", err)
	}
	_, err = d.BinaryOp(context.Background(), OpMul, NewValue(scalar("S", 1)), NewValue(scalar("S", 1)))
	if !errors.Is(err, ErrUndefined) {
		t.Errorf("undefined result: err = %v", err)
	}
}

func TestInterruptedOperator(t *testing.T) {
	d, ids := newTestDispatcher("M")
	d.RegisterBinaryOp(OpAdd, ids["M"], ids["M"], elementwise("M", add))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := d.BinaryOp(ctx, OpAdd, NewValue(matrix("M", 1, 3)), NewValue(matrix("M", 1, 3)))
	if !errors.Is(err, ErrInterrupted) {
		t.Fatalf("err = %v, want ErrInterrupted", err)
	}
	if KindOf(err) != OperatorFailure {
		t.Errorf("KindOf = %v", KindOf(err))
	}
}

func TestCatOp(t *testing.T) {
	d, ids := newTestDispatcher("S", "M")
	d.RegisterCatOp(ids["M"], ids["M"], func(ctx context.Context, a, b Rep, raIdx []int) (Value, error) {
		ra, rb := a.(*trep), b.(*trep)
		out := matrix("M", 1, raIdx[1]+rb.dims.Cols())
		copy(out.data, ra.data)
		copy(out.data[raIdx[1]:], rb.data)
		return NewValue(out), nil
	})

	a := NewValue(matrix("M", 1, 2, 1, 2))
	s := scalar("S", 3)
	s.chain = []string{"M"}
	got, err := d.CatOp(context.Background(), a, NewValue(s), HorzCat(a))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(num(got), []float64{1, 2, 3}) {
		t.Errorf("cat = %v", got)
	}

	_, err = d.CatOp(context.Background(), NewValue(scalar("S", 1)), NewValue(scalar("S", 1)), []int{0, 1})
	if want := "concatenation operator not implemented for 'S' by 'S' operations"; err == nil || err.Error() != want {
		t.Errorf("err = %v, want %q", err, want)
	}
	if got := VertCat(a); !reflect.DeepEqual(got, []int{1, 0}) {
		t.Errorf("VertCat = %v", got)
	}
}
