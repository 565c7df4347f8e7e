package value

import (
	"sort"
	"sync"
	"sync/atomic"
)

// OpKind names the table family an operator belongs to.
type OpKind uint8

const (
	KindUnary OpKind = iota
	KindNonConstUnary
	KindBinary
	KindCompound
	KindCat
	KindAssign
)

func (k OpKind) String() string {
	switch k {
	case KindUnary:
		return "unary"
	case KindNonConstUnary:
		return "non-const-unary"
	case KindBinary:
		return "binary"
	case KindCompound:
		return "compound"
	case KindCat:
		return "cat"
	case KindAssign:
		return "assign"
	}
	return "unknown"
}

// Outcome is how one dispatch was resolved.
type Outcome uint8

const (
	OutcomeExact Outcome = iota
	OutcomeConverted
	OutcomeClass
	OutcomeDecomposed
	OutcomeMiss
	OutcomeConversionFailed
)

type statKey struct {
	kind  OpKind
	op    int
	left  string
	right string
}

// statCounters holds the atomic counters for one key.
type statCounters struct {
	exact      atomic.Uint64
	converted  atomic.Uint64
	class      atomic.Uint64
	decomposed atomic.Uint64
	missed     atomic.Uint64
	failed     atomic.Uint64
}

// Stats counts dispatch outcomes per (operator, operand types). Keys use
// type names, so counts from dispatchers with different id numbering are
// comparable.
type Stats struct {
	counters sync.Map // statKey -> *statCounters
	total    atomic.Uint64
}

// NewStats creates an empty counter set.
func NewStats() *Stats {
	return &Stats{}
}

func (s *Stats) record(k statKey, o Outcome) {
	val, _ := s.counters.LoadOrStore(k, &statCounters{})
	c := val.(*statCounters)
	switch o {
	case OutcomeExact:
		c.exact.Add(1)
	case OutcomeConverted:
		c.converted.Add(1)
	case OutcomeClass:
		c.class.Add(1)
	case OutcomeDecomposed:
		c.decomposed.Add(1)
	case OutcomeMiss:
		c.missed.Add(1)
	case OutcomeConversionFailed:
		c.failed.Add(1)
	}
	s.total.Add(1)
}

// Total returns the number of recorded dispatches.
func (s *Stats) Total() uint64 {
	return s.total.Load()
}

// Reset clears all counters.
func (s *Stats) Reset() {
	s.counters.Range(func(k, _ any) bool {
		s.counters.Delete(k)
		return true
	})
	s.total.Store(0)
}

// StatRow is one line of a statistics snapshot.
type StatRow struct {
	Kind       string
	Op         string
	Left       string
	Right      string
	Exact      uint64
	Converted  uint64
	Class      uint64
	Decomposed uint64
	Missed     uint64
	Failed     uint64
}

// count records an outcome when statistics are enabled.
func (d *Dispatcher) count(kind OpKind, op int, a, b Value, o Outcome) {
	if d.stats == nil {
		return
	}
	right := ""
	if b.IsDefined() {
		right = b.TypeName()
	}
	d.stats.record(statKey{kind: kind, op: op, left: a.TypeName(), right: right}, o)
}

// StatsSnapshot returns the current counters sorted by kind, operator and
// operand names. It returns nil when statistics are disabled.
func (d *Dispatcher) StatsSnapshot() []StatRow {
	if d.stats == nil {
		return nil
	}
	var rows []StatRow
	d.stats.counters.Range(func(key, val any) bool {
		k := key.(statKey)
		c := val.(*statCounters)
		rows = append(rows, StatRow{
			Kind:       k.kind.String(),
			Op:         d.opName(k.kind, k.op),
			Left:       k.left,
			Right:      k.right,
			Exact:      c.exact.Load(),
			Converted:  c.converted.Load(),
			Class:      c.class.Load(),
			Decomposed: c.decomposed.Load(),
			Missed:     c.missed.Load(),
			Failed:     c.failed.Load(),
		})
		return true
	})
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.Op != b.Op {
			return a.Op < b.Op
		}
		if a.Left != b.Left {
			return a.Left < b.Left
		}
		return a.Right < b.Right
	})
	return rows
}

func (d *Dispatcher) opName(kind OpKind, op int) string {
	switch kind {
	case KindUnary, KindNonConstUnary:
		return UnaryOp(op).String()
	case KindBinary:
		return BinaryOp(op).String()
	case KindCompound:
		return d.CompoundOpName(CompoundBinaryOp(op))
	case KindCat:
		return "cat"
	case KindAssign:
		return AssignOp(op).String()
	}
	return "<unknown>"
}
