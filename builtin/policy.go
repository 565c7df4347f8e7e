package builtin

import (
	"sync/atomic"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("opdispatch.builtin")

// Policy holds the numeric policy switches read by the kernels.
type Policy struct {
	// SparseAutoMutate converts sparse results to dense storage once
	// the sparse form is no smaller.
	SparseAutoMutate bool
	// WarnDivideByZero logs a warning when a division has a zero divisor.
	WarnDivideByZero bool
	// WarnSingularMatrix logs a warning when a solve is singular or badly
	// conditioned.
	WarnSingularMatrix bool
}

// DefaultPolicy returns the default numeric policy.
func DefaultPolicy() Policy {
	return Policy{WarnSingularMatrix: true}
}

// The active policy is process-wide, like the dispatcher tables it
// accompanies. Narrowing has no access to a dispatcher, so the sparse
// switch has to live here.
var (
	sparseAutoMutate   atomic.Bool
	warnDivideByZero   atomic.Bool
	warnSingularMatrix atomic.Bool
)

// SetPolicy replaces the active numeric policy.
func SetPolicy(p Policy) {
	sparseAutoMutate.Store(p.SparseAutoMutate)
	warnDivideByZero.Store(p.WarnDivideByZero)
	warnSingularMatrix.Store(p.WarnSingularMatrix)
}

// CurrentPolicy returns the active numeric policy.
func CurrentPolicy() Policy {
	return Policy{
		SparseAutoMutate:   sparseAutoMutate.Load(),
		WarnDivideByZero:   warnDivideByZero.Load(),
		WarnSingularMatrix: warnSingularMatrix.Load(),
	}
}

func init() {
	SetPolicy(DefaultPolicy())
}

func divideByZero() {
	if warnDivideByZero.Load() {
		log.Warning("division by zero")
	}
}

func singularMatrix(rcond float64) {
	if warnSingularMatrix.Load() {
		log.Warningf("matrix singular to machine precision, rcond = %g", rcond)
	}
}
