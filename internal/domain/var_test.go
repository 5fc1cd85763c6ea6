package domain

import "testing"

func TestSignedVarNeg(t *testing.T) {
	v := Var(3)
	plus := PlusVar(v)
	minus := MinusVar(v)
	if plus.Neg() != minus || minus.Neg() != plus {
		t.Fatalf("Neg should swap plus/minus views of the same variable")
	}
	if plus.Variable() != v || minus.Variable() != v {
		t.Fatalf("Variable() should recover the original variable from either view")
	}
	if !plus.IsPlus() || minus.IsPlus() {
		t.Fatalf("IsPlus should distinguish the two views")
	}
}

func TestSignedVarDenseIndexing(t *testing.T) {
	for v := Var(0); v < 8; v++ {
		if MinusVar(v) != SignedVar(v<<1) || PlusVar(v) != SignedVar(v<<1+1) {
			t.Fatalf("var %d: signed vars are not densely packed as expected", v)
		}
	}
}
