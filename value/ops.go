package value

// ---------------------------------------------------------------------------
// Operator enumerations
// ---------------------------------------------------------------------------

// UnaryOp identifies a unary operator.
type UnaryOp int

const (
	OpNot UnaryOp = iota
	OpUPlus
	OpUMinus
	OpTranspose
	OpHermitian
	OpIncr
	OpDecr

	NumUnaryOps = int(iota)
)

var unaryOpNames = [NumUnaryOps]string{
	OpNot:       "!",
	OpUPlus:     "+",
	OpUMinus:    "-",
	OpTranspose: ".'",
	OpHermitian: "'",
	OpIncr:      "++",
	OpDecr:      "--",
}

func (op UnaryOp) String() string {
	if op < 0 || int(op) >= NumUnaryOps {
		return "<unknown>"
	}
	return unaryOpNames[op]
}

// BinaryOp identifies a binary operator.
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpPow
	OpLDiv
	OpLShift
	OpRShift
	OpLT
	OpLE
	OpEQ
	OpGE
	OpGT
	OpNE
	OpElMul
	OpElDiv
	OpElPow
	OpElLDiv
	OpElAnd
	OpElOr
	OpStructRef

	NumBinaryOps = int(iota)
)

var binaryOpNames = [NumBinaryOps]string{
	OpAdd:       "+",
	OpSub:       "-",
	OpMul:       "*",
	OpDiv:       "/",
	OpPow:       "^",
	OpLDiv:      `\`,
	OpLShift:    "<<",
	OpRShift:    ">>",
	OpLT:        "<",
	OpLE:        "<=",
	OpEQ:        "==",
	OpGE:        ">=",
	OpGT:        ">",
	OpNE:        "!=",
	OpElMul:     ".*",
	OpElDiv:     "./",
	OpElPow:     ".^",
	OpElLDiv:    `.\`,
	OpElAnd:     "&",
	OpElOr:      "|",
	OpStructRef: ".",
}

func (op BinaryOp) String() string {
	if op < 0 || int(op) >= NumBinaryOps {
		return "<unknown>"
	}
	return binaryOpNames[op]
}

// CompoundBinaryOp identifies a combined operator such as transpose-times.
// The namespace is open: Dispatcher.DefineCompoundOp adds new members at
// runtime. The constants below are predefined by every Dispatcher.
type CompoundBinaryOp int

const (
	OpTransMul CompoundBinaryOp = iota
	OpMulTrans
	OpHermMul
	OpMulHerm
	OpTransLDiv
	OpHermLDiv
	OpElNotAnd
	OpElNotOr
	OpElAndNot
	OpElOrNot

	numBuiltinCompoundOps = int(iota)
)

// AssignOp identifies an assignment operator.
type AssignOp int

const (
	OpAsnEq AssignOp = iota
	OpAddEq
	OpSubEq
	OpMulEq
	OpDivEq
	OpLDivEq
	OpPowEq
	OpElMulEq
	OpElDivEq
	OpElLDivEq
	OpElPowEq
	OpElAndEq
	OpElOrEq

	NumAssignOps = int(iota)
)

var assignOpNames = [NumAssignOps]string{
	OpAsnEq:    "=",
	OpAddEq:    "+=",
	OpSubEq:    "-=",
	OpMulEq:    "*=",
	OpDivEq:    "/=",
	OpLDivEq:   `\=`,
	OpPowEq:    "^=",
	OpElMulEq:  ".*=",
	OpElDivEq:  "./=",
	OpElLDivEq: `.\=`,
	OpElPowEq:  ".^=",
	OpElAndEq:  "&=",
	OpElOrEq:   "|=",
}

func (op AssignOp) String() string {
	if op < 0 || int(op) >= NumAssignOps {
		return "<unknown>"
	}
	return assignOpNames[op]
}

var assignToBinary = [NumAssignOps]BinaryOp{
	OpAsnEq:    -1,
	OpAddEq:    OpAdd,
	OpSubEq:    OpSub,
	OpMulEq:    OpMul,
	OpDivEq:    OpDiv,
	OpLDivEq:   OpLDiv,
	OpPowEq:    OpPow,
	OpElMulEq:  OpElMul,
	OpElDivEq:  OpElDiv,
	OpElLDivEq: OpElLDiv,
	OpElPowEq:  OpElPow,
	OpElAndEq:  OpElAnd,
	OpElOrEq:   OpElOr,
}

// BinaryOp returns the binary operator a compound assignment applies.
// The second result is false for plain "=".
func (op AssignOp) BinaryOp() (BinaryOp, bool) {
	if op <= OpAsnEq || int(op) >= NumAssignOps {
		return 0, false
	}
	return assignToBinary[op], true
}

// ParseUnaryOp returns the unary operator spelled s.
func ParseUnaryOp(s string) (UnaryOp, bool) {
	for i, n := range unaryOpNames {
		if n == s {
			return UnaryOp(i), true
		}
	}
	return 0, false
}

// ParseBinaryOp returns the binary operator spelled s.
func ParseBinaryOp(s string) (BinaryOp, bool) {
	for i, n := range binaryOpNames {
		if n == s {
			return BinaryOp(i), true
		}
	}
	return 0, false
}

// ParseAssignOp returns the assignment operator spelled s.
func ParseAssignOp(s string) (AssignOp, bool) {
	for i, n := range assignOpNames {
		if n == s {
			return AssignOp(i), true
		}
	}
	return 0, false
}
