package builtin

import (
	"math"

	"github.com/chazu/opdispatch/value"
)

// Types holds the ids Install registered.
type Types struct {
	Scalar        value.TypeID
	Matrix        value.TypeID
	Complex       value.TypeID
	ComplexMatrix value.TypeID
	Bool          value.TypeID
	BoolMatrix    value.TypeID
	Range         value.TypeID
	String        value.TypeID
	Sparse        value.TypeID
	Diag          value.TypeID
	Perm          value.TypeID
	Cell          value.TypeID
	Struct        value.TypeID
	Object        value.TypeID
	Colon         value.TypeID

	// Ints maps integer type names such as "int8 scalar" to their ids.
	Ints map[string]value.TypeID
}

// installer carries the dispatcher and ids through the per-family
// registration functions.
type installer struct {
	d *value.Dispatcher
	t *Types
}

func (in *installer) binary(op value.BinaryOp, fn value.BinaryFunc, pairs ...[2]value.TypeID) {
	for _, p := range pairs {
		in.d.RegisterBinaryOp(op, p[0], p[1], fn)
	}
}

func (in *installer) unary(op value.UnaryOp, fn value.UnaryFunc, types ...value.TypeID) {
	for _, t := range types {
		in.d.RegisterUnaryOp(op, t, fn)
	}
}

func (in *installer) cat(fn value.CatFunc, pairs ...[2]value.TypeID) {
	for _, p := range pairs {
		in.d.RegisterCatOp(p[0], p[1], fn)
	}
}

func (in *installer) assign(fn value.AssignFunc, lhs value.TypeID, rhs ...value.TypeID) {
	for _, r := range rhs {
		in.d.RegisterAssignOp(value.OpAsnEq, lhs, r, fn)
	}
}

// widen registers lhs(idx) = rhs as widening lhs to result first.
func (in *installer) widen(lhs, result value.TypeID, fn value.ConvFunc, rhs ...value.TypeID) {
	for _, r := range rhs {
		in.d.RegisterPrefAssignConv(lhs, r, result)
	}
	in.d.RegisterWideningOp(lhs, result, fn)
}

// cross returns every (a, b) pair with a from as and b from bs.
func cross(as, bs []value.TypeID) [][2]value.TypeID {
	out := make([][2]value.TypeID, 0, len(as)*len(bs))
	for _, a := range as {
		for _, b := range bs {
			out = append(out, [2]value.TypeID{a, b})
		}
	}
	return out
}

func ids(ts ...value.TypeID) []value.TypeID { return ts }

// Install registers every builtin type and operator on d and makes p the
// active numeric policy. It is meant to run once, before evaluation
// starts.
func Install(d *value.Dispatcher, p Policy) *Types {
	SetPolicy(p)
	t := &Types{
		Scalar:        d.RegisterType("scalar", "double", &Scalar{}),
		Matrix:        d.RegisterType("matrix", "double", &Matrix{}),
		Complex:       d.RegisterType("complex scalar", "double", &ComplexScalar{}),
		ComplexMatrix: d.RegisterType("complex matrix", "double", &ComplexMatrix{}),
		Bool:          d.RegisterType("bool", "logical", &Bool{}),
		BoolMatrix:    d.RegisterType("bool matrix", "logical", &BoolMatrix{}),
		Range:         d.RegisterType("range", "double", &Range{}),
		String:        d.RegisterType("string", "char", &String{}),
		Sparse:        d.RegisterType("sparse matrix", "double", &Sparse{colPtr: []int{0}}),
		Diag:          d.RegisterType("diagonal matrix", "double", &Diag{}),
		Perm:          d.RegisterType("permutation matrix", "double", &Perm{}),
		Cell:          d.RegisterType("cell", "cell", &Cell{}),
		Struct:        d.RegisterType("scalar struct", "struct", newStruct()),
		Object:        d.RegisterType("object", "object", &Object{props: newStruct()}),
		Colon:         d.RegisterType("magic-colon", "magic-colon", Colon{}),
		Ints:          make(map[string]value.TypeID),
	}
	in := &installer{d: d, t: t}
	in.real()
	in.complex()
	in.logical()
	in.rangeOps()
	in.char()
	in.sparse()
	in.special()
	in.containers()
	installInt[int8](in)
	installInt[int16](in)
	installInt[int32](in)
	installInt[int64](in)
	installInt[uint8](in)
	installInt[uint16](in)
	installInt[uint32](in)
	installInt[uint64](in)

	d.RegisterEmptyConv(value.IndexParen, t.Matrix)
	d.RegisterEmptyConv(value.IndexBrace, t.Cell)
	d.RegisterEmptyConv(value.IndexField, t.Struct)
	return t
}

func add(x, y float64) float64 { return x + y }
func sub(x, y float64) float64 { return x - y }
func mul(x, y float64) float64 { return x * y }
func div(x, y float64) float64 { return x / y }

func (in *installer) real() {
	d, t := in.d, in.t
	reals := ids(t.Scalar, t.Matrix)
	all := cross(reals, reals)

	in.binary(value.OpAdd, realElementwise("+", add), all...)
	in.binary(value.OpSub, realElementwise("-", sub), all...)
	in.binary(value.OpElMul, realElementwise(".*", mul), all...)
	in.binary(value.OpElDiv, realDivide("./", false), all...)
	in.binary(value.OpElLDiv, realDivide(`.\`, true), all...)
	in.binary(value.OpElPow, realElPow, all...)
	in.binary(value.OpMul, realMul, all...)
	in.binary(value.OpDiv, realDiv, all...)
	in.binary(value.OpLDiv, realLDiv, all...)
	in.binary(value.OpPow, realPow, all...)
	in.binary(value.OpLT, realCompare("<", func(x, y float64) bool { return x < y }), all...)
	in.binary(value.OpLE, realCompare("<=", func(x, y float64) bool { return x <= y }), all...)
	in.binary(value.OpEQ, realCompare("==", func(x, y float64) bool { return x == y }), all...)
	in.binary(value.OpGE, realCompare(">=", func(x, y float64) bool { return x >= y }), all...)
	in.binary(value.OpGT, realCompare(">", func(x, y float64) bool { return x > y }), all...)
	in.binary(value.OpNE, realCompare("!=", func(x, y float64) bool { return x != y }), all...)
	in.binary(value.OpElAnd, realLogical("&", func(x, y bool) bool { return x && y }), all...)
	in.binary(value.OpElOr, realLogical("|", func(x, y bool) bool { return x || y }), all...)

	in.unary(value.OpNot, realNot, reals...)
	in.unary(value.OpUPlus, realUPlus, reals...)
	in.unary(value.OpUMinus, realUMinus, reals...)
	in.unary(value.OpTranspose, realTranspose, reals...)
	in.unary(value.OpHermitian, realTranspose, reals...)

	for _, r := range reals {
		d.RegisterCompoundBinaryOp(value.OpTransMul, t.Matrix, r, realTransMul)
		d.RegisterCompoundBinaryOp(value.OpHermMul, t.Matrix, r, realTransMul)
		d.RegisterCompoundBinaryOp(value.OpMulTrans, r, t.Matrix, realMulTrans)
		d.RegisterCompoundBinaryOp(value.OpMulHerm, r, t.Matrix, realMulTrans)
	}

	d.RegisterNonConstUnaryOp(value.OpIncr, t.Scalar, scalarStep(1))
	d.RegisterNonConstUnaryOp(value.OpDecr, t.Scalar, scalarStep(-1))
	d.RegisterNonConstUnaryOp(value.OpIncr, t.Matrix, matrixStep(1))
	d.RegisterNonConstUnaryOp(value.OpDecr, t.Matrix, matrixStep(-1))

	d.RegisterAssignOp(value.OpAddEq, t.Scalar, t.Scalar, scalarUpdate(add))
	d.RegisterAssignOp(value.OpSubEq, t.Scalar, t.Scalar, scalarUpdate(sub))
	d.RegisterAssignOp(value.OpMulEq, t.Scalar, t.Scalar, scalarUpdate(mul))
	d.RegisterAssignOp(value.OpDivEq, t.Scalar, t.Scalar, scalarUpdate(div))
	for _, r := range reals {
		d.RegisterAssignOp(value.OpAddEq, t.Matrix, r, matrixUpdate("+=", add))
		d.RegisterAssignOp(value.OpSubEq, t.Matrix, r, matrixUpdate("-=", sub))
		d.RegisterAssignOp(value.OpElMulEq, t.Matrix, r, matrixUpdate(".*=", mul))
		d.RegisterAssignOp(value.OpElDivEq, t.Matrix, r, matrixUpdate("./=", div))
	}

	in.cat(realCat, all...)
	in.assign(matrixAssign, t.Matrix, reals...)
	in.widen(t.Scalar, t.Matrix, scalarToMatrix, reals...)
}

func (in *installer) complex() {
	t := in.t
	reals := ids(t.Scalar, t.Matrix)
	cplx := ids(t.Complex, t.ComplexMatrix)
	pairs := append(cross(cplx, cplx), append(cross(cplx, reals), cross(reals, cplx)...)...)

	in.binary(value.OpAdd, complexElementwise("+", func(x, y complex128) complex128 { return x + y }), pairs...)
	in.binary(value.OpSub, complexElementwise("-", func(x, y complex128) complex128 { return x - y }), pairs...)
	in.binary(value.OpElMul, complexElementwise(".*", func(x, y complex128) complex128 { return x * y }), pairs...)
	in.binary(value.OpElDiv, complexDivide, pairs...)
	in.binary(value.OpElLDiv, complexElLDiv, pairs...)
	in.binary(value.OpDiv, complexDiv, pairs...)
	in.binary(value.OpLDiv, complexLDiv, pairs...)
	in.binary(value.OpElPow, complexElPow, pairs...)
	in.binary(value.OpPow, complexPow, pairs...)
	in.binary(value.OpMul, complexMul, pairs...)
	in.binary(value.OpEQ, complexCompare("==", func(x, y complex128) bool { return x == y }), pairs...)
	in.binary(value.OpNE, complexCompare("!=", func(x, y complex128) bool { return x != y }), pairs...)

	in.unary(value.OpNot, complexNot, cplx...)
	in.unary(value.OpUPlus, complexUPlus, cplx...)
	in.unary(value.OpUMinus, complexUMinus, cplx...)
	in.unary(value.OpTranspose, complexTranspose, cplx...)
	in.unary(value.OpHermitian, complexHermitian, cplx...)

	in.cat(complexCat, pairs...)
	in.assign(complexMatrixAssign, t.ComplexMatrix, append(reals, cplx...)...)
	in.widen(t.Complex, t.ComplexMatrix, toComplexMatrix, append(reals, cplx...)...)
	in.widen(t.Matrix, t.ComplexMatrix, toComplexMatrix, cplx...)
	for _, c := range cplx {
		in.d.RegisterPrefAssignConv(t.Scalar, c, t.ComplexMatrix)
	}
	in.d.RegisterWideningOp(t.Scalar, t.ComplexMatrix, toComplexMatrix)
}

func (in *installer) logical() {
	d, t := in.d, in.t
	bools := ids(t.Bool, t.BoolMatrix)
	reals := ids(t.Scalar, t.Matrix)
	mixed := append(cross(bools, bools), append(cross(bools, reals), cross(reals, bools)...)...)

	in.binary(value.OpElAnd, realLogical("&", func(x, y bool) bool { return x && y }), mixed...)
	in.binary(value.OpElOr, realLogical("|", func(x, y bool) bool { return x || y }), mixed...)
	in.unary(value.OpNot, boolNot, bools...)
	in.unary(value.OpTranspose, boolTranspose, bools...)
	in.unary(value.OpHermitian, boolTranspose, bools...)

	in.cat(boolCat, cross(bools, bools)...)
	in.assign(boolMatrixAssign, t.BoolMatrix, bools...)
	in.widen(t.BoolMatrix, t.Matrix, boolToMatrix, reals...)
	in.widen(t.Bool, t.BoolMatrix, func(r value.Rep) value.Rep {
		return &BoolMatrix{a: r.(*Bool).boolArray()}
	}, bools...)
	in.widen(t.Bool, t.Matrix, boolToMatrix, reals...)
	d.RegisterTypeConvOp(t.BoolMatrix, t.Matrix, boolToMatrix)
	d.RegisterTypeConvOp(t.Bool, t.Scalar, func(r value.Rep) value.Rep {
		return &Scalar{V: b2f(r.(*Bool).V)}
	})
}

func (in *installer) rangeOps() {
	d, t := in.d, in.t
	d.RegisterBinaryOp(value.OpAdd, t.Range, t.Scalar, rangeAddScalar(1))
	d.RegisterBinaryOp(value.OpSub, t.Range, t.Scalar, rangeAddScalar(-1))
	d.RegisterBinaryOp(value.OpAdd, t.Scalar, t.Range, scalarAddRange(1))
	d.RegisterBinaryOp(value.OpSub, t.Scalar, t.Range, scalarAddRange(-1))
	d.RegisterBinaryOp(value.OpMul, t.Range, t.Scalar, rangeMulScalar)
	d.RegisterBinaryOp(value.OpElMul, t.Range, t.Scalar, rangeMulScalar)
	d.RegisterBinaryOp(value.OpMul, t.Scalar, t.Range, scalarMulRange)
	d.RegisterBinaryOp(value.OpElMul, t.Scalar, t.Range, scalarMulRange)
	d.RegisterUnaryOp(value.OpUMinus, t.Range, rangeUMinus)

	d.RegisterTypeConvOp(t.Range, t.Matrix, rangeToMatrix)
	in.widen(t.Range, t.Matrix, rangeToMatrix, t.Scalar, t.Matrix)
}

func (in *installer) char() {
	d, t := in.d, in.t
	strs := ids(t.String)
	in.cat(stringCat, append(cross(strs, ids(t.String, t.Scalar, t.Matrix)), cross(ids(t.Scalar, t.Matrix), strs)...)...)
	in.unary(value.OpTranspose, stringTranspose, t.String)
	in.unary(value.OpHermitian, stringTranspose, t.String)
	in.assign(stringAssign, t.String, t.String)
	d.RegisterTypeConvOp(t.String, t.Matrix, func(r value.Rep) value.Rep {
		return &Matrix{a: r.(*String).realArray()}
	})
}

func (in *installer) sparse() {
	d, t := in.d, in.t
	sp := [2]value.TypeID{t.Sparse, t.Sparse}
	in.binary(value.OpAdd, sparseBinary("+", add), sp)
	in.binary(value.OpSub, sparseBinary("-", sub), sp)
	in.binary(value.OpElMul, sparseBinary(".*", mul), sp)
	in.binary(value.OpMul, sparseMul, sp)
	in.binary(value.OpMul, sparseMulScalar, [2]value.TypeID{t.Sparse, t.Scalar})
	in.binary(value.OpElMul, sparseMulScalar, [2]value.TypeID{t.Sparse, t.Scalar})
	in.binary(value.OpMul, scalarMulSparse, [2]value.TypeID{t.Scalar, t.Sparse})
	in.binary(value.OpElMul, scalarMulSparse, [2]value.TypeID{t.Scalar, t.Sparse})
	in.binary(value.OpDiv, sparseDivScalar, [2]value.TypeID{t.Sparse, t.Scalar})
	in.binary(value.OpElDiv, sparseDivScalar, [2]value.TypeID{t.Sparse, t.Scalar})
	in.binary(value.OpMul, sparseMulMatrix, [2]value.TypeID{t.Sparse, t.Matrix})
	in.binary(value.OpLDiv, sparseSolve, [2]value.TypeID{t.Sparse, t.Matrix}, [2]value.TypeID{t.Sparse, t.Scalar})
	in.unary(value.OpTranspose, sparseTranspose, t.Sparse)
	in.unary(value.OpHermitian, sparseTranspose, t.Sparse)
	in.unary(value.OpUMinus, sparseUMinus, t.Sparse)

	in.assign(sparseAssign, t.Sparse, t.Scalar, t.Matrix, t.Sparse)
	d.RegisterTypeConvOp(t.Sparse, t.Matrix, func(r value.Rep) value.Rep {
		return &Matrix{a: r.(*Sparse).realArray()}
	})
}

func (in *installer) special() {
	d, t := in.d, in.t
	dd := [2]value.TypeID{t.Diag, t.Diag}
	in.binary(value.OpAdd, diagAdd(1), dd)
	in.binary(value.OpSub, diagAdd(-1), dd)
	in.binary(value.OpMul, diagMul, dd)
	in.binary(value.OpMul, diagMulMatrix, [2]value.TypeID{t.Diag, t.Matrix})
	in.binary(value.OpMul, matrixMulDiag, [2]value.TypeID{t.Matrix, t.Diag})
	in.binary(value.OpMul, diagMulScalar, [2]value.TypeID{t.Diag, t.Scalar})
	in.binary(value.OpMul, scalarMulDiag, [2]value.TypeID{t.Scalar, t.Diag})
	in.binary(value.OpLDiv, diagLDiv, [2]value.TypeID{t.Diag, t.Matrix}, [2]value.TypeID{t.Diag, t.Scalar})
	in.unary(value.OpTranspose, diagTranspose, t.Diag)
	in.unary(value.OpHermitian, diagTranspose, t.Diag)

	in.binary(value.OpMul, permMul, [2]value.TypeID{t.Perm, t.Perm})
	in.binary(value.OpMul, permMulMatrix, [2]value.TypeID{t.Perm, t.Matrix})
	in.unary(value.OpTranspose, permTranspose, t.Perm)
	in.unary(value.OpHermitian, permTranspose, t.Perm)

	d.RegisterTypeConvOp(t.Diag, t.Matrix, diagToMatrix)
	in.widen(t.Diag, t.Matrix, diagToMatrix, t.Scalar, t.Matrix)
	in.widen(t.Perm, t.Matrix, func(r value.Rep) value.Rep {
		return &Matrix{a: r.(*Perm).realArray()}
	}, t.Scalar, t.Matrix)
}

func (in *installer) containers() {
	d, t := in.d, in.t
	d.RegisterAssignAnyOp(value.OpAsnEq, t.Cell, cellAssign)
	d.RegisterAssignAnyOp(value.OpAsnEq, t.Struct, structAssign)
	d.RegisterAssignAnyOp(value.OpAsnEq, t.Object, objectAssign)
	in.cat(cellCat, [2]value.TypeID{t.Cell, t.Cell})
	in.unary(value.OpTranspose, cellTranspose, t.Cell)
	in.unary(value.OpHermitian, cellTranspose, t.Cell)
}

func installInt[T integer](in *installer) {
	d, t := in.d, in.t
	class := intClass[T]()
	s := d.RegisterType(class+" scalar", class, &IntScalar[T]{})
	m := d.RegisterType(class+" matrix", class, &IntMatrix[T]{})
	t.Ints[class+" scalar"] = s
	t.Ints[class+" matrix"] = m

	own := ids(s, m)
	other := ids(s, m, t.Scalar, t.Matrix)
	pairs := append(cross(own, other), cross(ids(t.Scalar, t.Matrix), own)...)
	var scalarSide [][2]value.TypeID
	for _, p := range pairs {
		if p[0] == s || p[1] == s || p[0] == t.Scalar || p[1] == t.Scalar {
			scalarSide = append(scalarSide, p)
		}
	}
	var scalarDivisor [][2]value.TypeID
	for _, p := range pairs {
		if p[1] == s || p[1] == t.Scalar {
			scalarDivisor = append(scalarDivisor, p)
		}
	}

	in.binary(value.OpAdd, intArith("+", satAdd[T], add), pairs...)
	in.binary(value.OpSub, intArith("-", satSub[T], sub), pairs...)
	in.binary(value.OpElMul, intArith(".*", satMul[T], mul), pairs...)
	in.binary(value.OpMul, intArith("*", satMul[T], mul), scalarSide...)
	in.binary(value.OpElDiv, intDivide[T]("./", false), pairs...)
	in.binary(value.OpDiv, intDivide[T]("/", false), scalarDivisor...)
	in.binary(value.OpElLDiv, intDivide[T](`.\`, true), pairs...)
	in.binary(value.OpElPow, intArith(".^", satPow[T], math.Pow), pairs...)
	in.binary(value.OpLT, intCompare[T]("<", func(x, y float64) bool { return x < y }), pairs...)
	in.binary(value.OpLE, intCompare[T]("<=", func(x, y float64) bool { return x <= y }), pairs...)
	in.binary(value.OpEQ, intCompare[T]("==", func(x, y float64) bool { return x == y }), pairs...)
	in.binary(value.OpGE, intCompare[T](">=", func(x, y float64) bool { return x >= y }), pairs...)
	in.binary(value.OpGT, intCompare[T](">", func(x, y float64) bool { return x > y }), pairs...)
	in.binary(value.OpNE, intCompare[T]("!=", func(x, y float64) bool { return x != y }), pairs...)
	in.binary(value.OpElAnd, realLogical("&", func(x, y bool) bool { return x && y }), pairs...)
	in.binary(value.OpElOr, realLogical("|", func(x, y bool) bool { return x || y }), pairs...)

	in.unary(value.OpNot, intNot[T], own...)
	in.unary(value.OpUPlus, intUPlus[T], own...)
	in.unary(value.OpUMinus, intUMinus[T], own...)
	in.unary(value.OpTranspose, intTranspose[T], own...)
	in.unary(value.OpHermitian, intTranspose[T], own...)
	d.RegisterNonConstUnaryOp(value.OpIncr, s, intIncr[T](true))
	d.RegisterNonConstUnaryOp(value.OpDecr, s, intIncr[T](false))

	in.cat(intCat[T], pairs...)
	in.assign(intMatrixAssign[T], m, other...)
	in.widen(s, m, intScalarToMatrix[T], s, t.Scalar)
}
