package domain

import "fmt"

// Lit is a signed variable together with an upper-bound threshold: lit means
// "sv <= value". Entailment is lattice-ordered on value for a fixed sv.
type Lit struct {
	sv    SignedVar
	value int32
}

// SignedVar returns the signed variable this literal bounds.
func (l Lit) SignedVar() SignedVar { return l.sv }

// Value returns the literal's upper-bound threshold.
func (l Lit) Value() int32 { return l.value }

// Var returns the underlying variable.
func (l Lit) Var() Var { return l.sv.Variable() }

// Negation returns !lit. Negation flips the signed variable and remaps the
// threshold so that !(sv <= k) == (-sv <= -k-1): the two literals partition
// the integers exactly, with no overlap and no gap.
func (l Lit) Negation() Lit {
	return Lit{sv: l.sv.Neg(), value: -l.value - 1}
}

// Entails reports whether l being true forces other to be true: they must
// share a signed variable, and l's bound must be at least as tight.
func (l Lit) Entails(other Lit) bool {
	return l.sv == other.sv && l.value <= other.value
}

func (l Lit) String() string {
	return fmt.Sprintf("(%s <= %d)", l.sv, l.value)
}

// TRUE is the always-true literal: the constant-zero variable's own upper
// bound is permanently 0, which trivially entails "<= 0".
var TRUE = PlusVar(ZeroVar).Leq(0)

// FALSE is the always-false literal, the negation of TRUE.
var FALSE = TRUE.Negation()

// IsTrue/IsFalse recognize the reserved constants independently of how they
// were constructed (any literal equal in value to TRUE/FALSE behaves the
// same way, but these helpers document intent at call sites).
func (l Lit) IsTrueConst() bool  { return l == TRUE }
func (l Lit) IsFalseConst() bool { return l == FALSE }
