package dump

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/chazu/opdispatch/builtin"
	"github.com/chazu/opdispatch/value"
)

// stub is a bare representation used to register types.
type stub struct{ name string }

func (s *stub) TypeName() string  { return s.name }
func (s *stub) ClassName() string { return "double" }
func (s *stub) Dims() value.Dims  { return value.Dims{1, 1} }

func (s *stub) Clone() value.Rep {
	c := *s
	return &c
}

func add(_ context.Context, a, _ value.Rep) (value.Value, error) {
	return value.NewValue(a.Clone()), nil
}

func build(names ...string) *value.Dispatcher {
	d := value.NewDispatcher(value.Options{})
	for _, n := range names {
		d.RegisterType(n, "double", &stub{name: n})
	}
	a, b := d.TypeID("a"), d.TypeID("b")
	d.RegisterBinaryOp(value.OpAdd, a, b, add)
	d.RegisterBinaryOp(value.OpAdd, b, a, add)
	d.RegisterPrefAssignConv(a, b, b)
	return d
}

func TestRegistrationOrderIndependent(t *testing.T) {
	x, err := Marshal(build("a", "b").Dump())
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	y, err := Marshal(build("b", "a").Dump())
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !bytes.Equal(x, y) {
		t.Error("dumps differ with registration order")
	}
}

func TestRoundTrip(t *testing.T) {
	d := value.NewDispatcher(value.Options{})
	builtin.Install(d, builtin.DefaultPolicy())
	want := d.Dump()

	data, err := Marshal(want)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(got.Types) != len(want.Types) {
		t.Fatalf("types: got %d, want %d", len(got.Types), len(want.Types))
	}
	if len(got.Entries) != len(want.Entries) {
		t.Fatalf("entries: got %d, want %d", len(got.Entries), len(want.Entries))
	}
	if diff := Diff(want, got); len(diff) != 0 {
		t.Errorf("round trip diff: %v", diff)
	}

	fa, _ := Fingerprint(want)
	fb, _ := Fingerprint(got)
	if fa != fb || len(fa) != 64 {
		t.Errorf("fingerprints %q %q", fa, fb)
	}
}

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "types.cbor")
	d := build("a", "b")
	if err := WriteFile(path, d); err != nil {
		t.Fatal(err)
	}
	got, err := ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Types) != 2 || got.Types[0].Name != "a" {
		t.Errorf("types = %+v", got.Types)
	}
}

func TestDiff(t *testing.T) {
	a := build("a", "b")
	b := build("a", "b")
	b.RegisterBinaryOp(value.OpSub, b.TypeID("a"), b.TypeID("a"), add)

	diff := Diff(a.Dump(), b.Dump())
	if len(diff) != 1 || diff[0] != "+binary - a,a -> " {
		t.Errorf("diff = %q", diff)
	}
}

func TestDiffSections(t *testing.T) {
	noop := func(ctx context.Context, a, b value.Value) (value.Value, error) { return a, nil }
	tests := []struct {
		name   string
		change func(d *value.Dispatcher)
		want   string
	}{
		{"type", func(d *value.Dispatcher) { d.RegisterType("c", "single", &stub{name: "c"}) }, "+type c (single)"},
		{"class op", func(d *value.Dispatcher) { d.RegisterBinaryClassOp(value.OpMul, noop) }, "+class binary *"},
		{"compound op", func(d *value.Dispatcher) {
			d.DefineCompoundOp("plusplus", func(ctx context.Context, disp *value.Dispatcher, a, b value.Value) (value.Value, error) {
				return disp.BinaryOp(ctx, value.OpAdd, a, b)
			})
		}, "+compound plusplus"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := build("a", "b")
			b := build("a", "b")
			tt.change(b)
			diff := Diff(a.Dump(), b.Dump())
			if len(diff) != 1 || diff[0] != tt.want {
				t.Errorf("diff = %q, want [%q]", diff, tt.want)
			}
			back := Diff(b.Dump(), a.Dump())
			if len(back) != 1 || back[0] != "-"+tt.want[1:] {
				t.Errorf("reverse diff = %q", back)
			}
		})
	}
}

func TestUnmarshalGarbage(t *testing.T) {
	if _, err := Unmarshal([]byte{0xff, 0x00}); err == nil {
		t.Error("expected error")
	}
}
