package value

import (
	"context"
	"testing"
)

func TestDispatchStats(t *testing.T) {
	d := NewDispatcher(Options{Stats: true})
	s := d.RegisterType("S", "double", scalar("S", 0))
	m := d.RegisterType("M", "double", matrix("M", 0, 0))
	d.RegisterBinaryOp(OpAdd, m, m, elementwise("M", add))
	d.RegisterBinaryOp(OpAdd, s, s, elementwise("S", add))
	ctx := context.Background()

	conv := scalar("S", 1)
	conv.chain = []string{"M"}
	mv := NewValue(matrix("M", 1, 2))

	d.BinaryOp(ctx, OpAdd, NewValue(scalar("S", 1)), NewValue(scalar("S", 1)))
	d.BinaryOp(ctx, OpAdd, NewValue(scalar("S", 1)), NewValue(scalar("S", 1)))
	d.BinaryOp(ctx, OpAdd, NewValue(conv), mv)
	d.BinaryOp(ctx, OpSub, mv, mv)
	d.CompoundBinaryOp(ctx, OpTransMul, mv, mv)

	rows := d.StatsSnapshot()
	find := func(kind, op, l, r string) *StatRow {
		for i := range rows {
			if rows[i].Kind == kind && rows[i].Op == op && rows[i].Left == l && rows[i].Right == r {
				return &rows[i]
			}
		}
		return nil
	}

	if row := find("binary", "+", "S", "S"); row == nil || row.Exact != 2 {
		t.Errorf("S+S row = %+v", row)
	}
	if row := find("binary", "+", "S", "M"); row == nil || row.Converted != 1 {
		t.Errorf("S+M row = %+v", row)
	}
	if row := find("binary", "-", "M", "M"); row == nil || row.Missed != 1 {
		t.Errorf("M-M row = %+v", row)
	}
	if row := find("compound", "transtimes", "M", "M"); row == nil || row.Decomposed != 1 {
		t.Errorf("transtimes row = %+v", row)
	}
	if row := find("unary", ".'", "M", ""); row == nil || row.Missed != 1 {
		t.Errorf("transpose row = %+v", row)
	}
	if d.Stats().Total() != 6 {
		t.Errorf("Total = %d, want 6", d.Stats().Total())
	}

	for i := 1; i < len(rows); i++ {
		a, b := rows[i-1], rows[i]
		if a.Kind > b.Kind || (a.Kind == b.Kind && a.Op > b.Op) {
			t.Errorf("rows not sorted at %d: %+v, %+v", i, a, b)
		}
	}

	d.Stats().Reset()
	if len(d.StatsSnapshot()) != 0 || d.Stats().Total() != 0 {
		t.Error("Reset left counters behind")
	}
}

func TestStatsDisabled(t *testing.T) {
	d := NewDispatcher(Options{})
	if d.Stats() != nil || d.StatsSnapshot() != nil {
		t.Error("stats should be nil when disabled")
	}
}
