// Package domain implements the signed-variable bound algebra (spec §4.B),
// the domain store with its event trail, and the 1-UIP explanation engine
// (spec §4.C). It is the component every reasoner (SAT, STN, linear) reads
// bounds from and writes inferences into.
package domain

import "fmt"

// Var identifies a problem variable. Var 0 is the constant-zero sentinel
// (bounds permanently [0,0]); Var 1 is the constant-one sentinel (bounds
// permanently [1,1]). Every other Var is created via Store.NewVar.
type Var int32

const (
	// ZeroVar is the sentinel whose bounds are permanently [0, 0].
	ZeroVar Var = 0
	// OneVar is the sentinel whose bounds are permanently [1, 1].
	OneVar Var = 1
)

func (v Var) String() string {
	return fmt.Sprintf("x%d", int32(v))
}

// MaxValue and MinValue bound every variable's domain. They are clamped well
// inside the int32 range so that bound arithmetic (summing an edge weight
// with a bound, negating a bound) never overflows.
const (
	MaxValue int32 = 1<<30 - 1
	MinValue int32 = -MaxValue
)

// SignedVar is a variable together with a polarity: the "plus" view of v
// shares its upper bound with v's own upper bound, while the "minus" view's
// upper bound is the negation of v's lower bound. Encoding the polarity in
// the low bit makes SignedVar usable directly as a dense array index for
// watch lists and bound tables.
type SignedVar int32

// PlusVar returns the signed variable whose upper bound is v's upper bound.
func PlusVar(v Var) SignedVar { return SignedVar(v<<1 + 1) }

// MinusVar returns the signed variable whose upper bound is the negation of
// v's lower bound.
func MinusVar(v Var) SignedVar { return SignedVar(v << 1) }

// Variable returns the variable this signed variable refers to.
func (sv SignedVar) Variable() Var { return Var(sv >> 1) }

// IsPlus reports whether sv is the plus (upper-bound) view of its variable.
func (sv SignedVar) IsPlus() bool { return sv&1 == 1 }

// Neg returns the opposite view of the same variable: Neg(PlusVar(v)) ==
// MinusVar(v) and vice versa.
func (sv SignedVar) Neg() SignedVar { return sv ^ 1 }

// Leq builds the literal "sv <= value".
func (sv SignedVar) Leq(value int32) Lit { return Lit{sv: sv, value: value} }

func (sv SignedVar) String() string {
	if sv.IsPlus() {
		return fmt.Sprintf("+%s", sv.Variable())
	}
	return fmt.Sprintf("-%s", sv.Variable())
}
