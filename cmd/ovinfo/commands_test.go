package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/opdispatch/builtin"
	"github.com/chazu/opdispatch/dump"
	"github.com/chazu/opdispatch/value"
)

func newEnv(t *testing.T) (*env, *bytes.Buffer) {
	t.Helper()
	d := value.NewDispatcher(value.Options{Stats: true})
	builtin.Install(d, builtin.DefaultPolicy())
	var out bytes.Buffer
	return &env{d: d, ctx: context.Background(), out: &out}, &out
}

func TestProbe(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"+", "scalar", "matrix"}, "+ scalar, matrix: matrix"},
		{[]string{"+", "bool", "scalar"}, "+ bool, scalar: scalar"},
		{[]string{"-", "matrix"}, "- matrix: matrix"},
		{[]string{"++", "scalar"}, "++ scalar: scalar"},
		{[]string{"transtimes", "matrix", "matrix"}, "transtimes matrix, matrix: matrix"},
		{[]string{"=", "matrix", "complex scalar"}, "= matrix, complex scalar: complex matrix"},
		{[]string{"cat", "string", "string"}, "cat string, string: string"},
		{[]string{"+", "cell", "cell"}, "+ cell, cell: lookup-miss"},
		{[]string{"+", "int8 scalar", "int16 scalar"}, "+ int8 scalar, int16 scalar: lookup-miss"},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			e, out := newEnv(t)
			if err := e.probe(tt.args); err != nil {
				t.Fatalf("probe: %v", err)
			}
			if got := out.String(); !strings.HasPrefix(got, tt.want) {
				t.Errorf("got %q, want prefix %q", got, tt.want)
			}
		})
	}
}

func TestProbeErrors(t *testing.T) {
	e, _ := newEnv(t)
	if err := e.probe([]string{"+", "quaternion", "scalar"}); err == nil {
		t.Error("expected unknown type error")
	}
	if err := e.probe([]string{"+"}); err == nil {
		t.Error("expected usage error")
	}
}

func TestGrid(t *testing.T) {
	e, out := newEnv(t)
	if err := e.grid([]string{"+"}); err != nil {
		t.Fatalf("grid: %v", err)
	}
	s := out.String()
	if !strings.Contains(s, "pairs not implemented") {
		t.Errorf("missing summary:\n%s", s)
	}
	if strings.Contains(s, "lookup-miss") {
		t.Error("grid should omit lookup misses")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e.ctx = ctx
	if err := e.grid([]string{"+"}); err != value.ErrInterrupted {
		t.Errorf("err = %v, want ErrInterrupted", err)
	}
}

func TestDumpAndDiff(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.cbor")
	b := filepath.Join(dir, "b.cbor")

	e, out := newEnv(t)
	e.output = a
	if err := e.dump(); err != nil {
		t.Fatalf("dump: %v", err)
	}
	if !strings.Contains(out.String(), "fingerprint ") {
		t.Errorf("dump output %q", out.String())
	}

	e2, _ := newEnv(t)
	e2.d.RegisterType("quaternion", "double", &builtin.Scalar{})
	if err := dump.WriteFile(b, e2.d); err != nil {
		t.Fatal(err)
	}

	out.Reset()
	if err := e.diff([]string{a, a}); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out.String()) != "identical" {
		t.Errorf("diff of identical dumps: %q", out.String())
	}
	out.Reset()
	if err := e.diff([]string{a, b}); err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(out.String()); got != "+type quaternion (double)" {
		t.Errorf("diff = %q", got)
	}
}

func TestStatsRecording(t *testing.T) {
	e, out := newEnv(t)
	e.statsDB = filepath.Join(t.TempDir(), "stats.db")
	if err := e.probe([]string{"+", "bool", "scalar"}); err != nil {
		t.Fatal(err)
	}
	if err := e.recordStats(); err != nil {
		t.Fatalf("recordStats: %v", err)
	}

	out.Reset()
	if err := e.showStats(nil); err != nil {
		t.Fatalf("showStats: %v", err)
	}
	s := out.String()
	if !strings.Contains(s, e.d.ID().String()) {
		t.Errorf("session %s not listed:\n%s", e.d.ID(), s)
	}

	out.Reset()
	if err := e.showStats([]string{e.d.ID().String()}); err != nil {
		t.Fatalf("showStats(session): %v", err)
	}
	if !strings.Contains(out.String(), "bool") {
		t.Errorf("session rows:\n%s", out.String())
	}

	if err := e.showStats([]string{"not-a-uuid"}); err == nil {
		t.Error("expected invalid session error")
	}
}

func TestListTypes(t *testing.T) {
	e, out := newEnv(t)
	if err := e.listTypes(); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != e.d.NumTypes() {
		t.Errorf("%d lines for %d types", len(lines), e.d.NumTypes())
	}
	if !strings.Contains(lines[0], "scalar") {
		t.Errorf("first line %q", lines[0])
	}
}
