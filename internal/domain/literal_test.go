package domain

import "testing"

func TestNegationRoundTrips(t *testing.T) {
	lit := PlusVar(Var(5)).Leq(12)
	if got := lit.Negation().Negation(); got != lit {
		t.Errorf("Negation(Negation(lit)) = %v, want %v", got, lit)
	}
}

func TestNegationPartitionsIntegers(t *testing.T) {
	lit := PlusVar(Var(5)).Leq(12)
	neg := lit.Negation()
	if neg.sv != lit.sv.Neg() {
		t.Errorf("negation must flip polarity")
	}
	// lit covers (-inf, 12], neg covers [13, +inf) once read back on the
	// opposite signed variable: -neg.value-1 == lit.value+1.
	if -neg.value-1 != lit.value {
		t.Errorf("negation threshold mismatch: lit=%d neg=%d", lit.value, neg.value)
	}
}

func TestEntails(t *testing.T) {
	tight := PlusVar(Var(1)).Leq(3)
	loose := PlusVar(Var(1)).Leq(5)
	if !tight.Entails(loose) {
		t.Errorf("(<=3) should entail (<=5)")
	}
	if loose.Entails(tight) {
		t.Errorf("(<=5) should not entail (<=3)")
	}
}

func TestTrueFalseConstants(t *testing.T) {
	if !TRUE.IsTrueConst() {
		t.Errorf("TRUE.IsTrueConst() = false")
	}
	if !FALSE.IsFalseConst() {
		t.Errorf("FALSE.IsFalseConst() = false")
	}
	if TRUE.Negation() != FALSE {
		t.Errorf("Negation(TRUE) != FALSE")
	}
}
