package value

import "sort"

// TypeInfoDump describes an installed dispatcher by type name. Entries are
// sorted and carry no TypeIDs, so two dispatchers holding the same
// registrations produce equal dumps whatever order the types were
// registered in.
type TypeInfoDump struct {
	Types       []TypeEntry `cbor:"1,keyasint"`
	Entries     []OpEntry   `cbor:"2,keyasint,omitempty"`
	ClassOps    []string    `cbor:"3,keyasint,omitempty"`
	CompoundOps []string    `cbor:"4,keyasint,omitempty"`
}

// TypeEntry is one registered representation.
type TypeEntry struct {
	Name  string `cbor:"1,keyasint"`
	Class string `cbor:"2,keyasint"`
}

// OpEntry is one populated table slot.
type OpEntry struct {
	Table  string `cbor:"1,keyasint"`
	Op     string `cbor:"2,keyasint,omitempty"`
	Left   string `cbor:"3,keyasint"`
	Right  string `cbor:"4,keyasint,omitempty"`
	Result string `cbor:"5,keyasint,omitempty"` // pref-assign-conv, conversions
}

// Dump returns the introspection dump of d.
func (d *Dispatcher) Dump() TypeInfoDump {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out TypeInfoDump
	for _, r := range d.types {
		out.Types = append(out.Types, TypeEntry{Name: r.Name, Class: r.ClassName})
	}
	sort.Slice(out.Types, func(i, j int) bool { return out.Types[i].Name < out.Types[j].Name })

	nt := len(d.types)
	name := func(id int) string { return d.types[id].Name }
	add := func(table, op string, l, r int, result string) {
		e := OpEntry{Table: table, Op: op, Left: name(l), Result: result}
		if r >= 0 {
			e.Right = name(r)
		}
		out.Entries = append(out.Entries, e)
	}

	for op := 0; op < NumUnaryOps; op++ {
		s := UnaryOp(op).String()
		for t := 0; t < nt; t++ {
			if d.t.unary[op][t] != nil {
				add("unary", s, t, -1, "")
			}
			if d.t.nonConst[op][t] != nil {
				add("non-const-unary", s, t, -1, "")
			}
		}
	}
	for t1 := 0; t1 < nt; t1++ {
		for t2 := 0; t2 < nt; t2++ {
			i := d.t.at(TypeID(t1), TypeID(t2))
			for op := 0; op < NumBinaryOps; op++ {
				if d.t.binary[op][i] != nil {
					add("binary", BinaryOp(op).String(), t1, t2, "")
				}
			}
			for op := range d.t.compound {
				if d.t.compound[op][i] != nil {
					add("compound", d.compoundOps[op].name, t1, t2, "")
				}
			}
			if d.t.cat[i] != nil {
				add("cat", "", t1, t2, "")
			}
			for op := 0; op < NumAssignOps; op++ {
				if d.t.assign[op][i] != nil {
					add("assign", AssignOp(op).String(), t1, t2, "")
				}
			}
			if r := d.t.prefAssign[i]; r != NoType {
				add("pref-assign-conv", "", t1, t2, d.nameLocked(r))
			}
			if d.t.typeConv[i] != nil {
				add("type-conv", "", t1, -1, name(t2))
			}
			if d.t.widening[i] != nil {
				add("widening", "", t1, -1, name(t2))
			}
		}
		for op := 0; op < NumAssignOps; op++ {
			if d.t.assignAny[op][t1] != nil {
				add("assign-any", AssignOp(op).String(), t1, -1, "")
			}
		}
	}
	for kind, t := range d.emptyConv {
		out.Entries = append(out.Entries, OpEntry{Table: "empty-conv", Op: string(rune(kind)), Left: name(int(t))})
	}
	sort.Slice(out.Entries, func(i, j int) bool {
		a, b := out.Entries[i], out.Entries[j]
		if a.Table != b.Table {
			return a.Table < b.Table
		}
		if a.Op != b.Op {
			return a.Op < b.Op
		}
		if a.Left != b.Left {
			return a.Left < b.Left
		}
		if a.Right != b.Right {
			return a.Right < b.Right
		}
		return a.Result < b.Result
	})

	for op, f := range d.classUnary {
		if f != nil {
			out.ClassOps = append(out.ClassOps, "unary "+UnaryOp(op).String())
		}
	}
	for op, f := range d.classBinary {
		if f != nil {
			out.ClassOps = append(out.ClassOps, "binary "+BinaryOp(op).String())
		}
	}
	for op, f := range d.classCompound {
		if f != nil {
			out.ClassOps = append(out.ClassOps, "compound "+d.compoundOps[op].name)
		}
	}
	sort.Strings(out.ClassOps)

	for _, c := range d.compoundOps {
		out.CompoundOps = append(out.CompoundOps, c.name)
	}
	sort.Strings(out.CompoundOps)
	return out
}
