package order

import (
	"testing"

	"github.com/mhorvath/corestn/internal/domain"
)

func TestNextDecisionPicksHighestActivityUndecidedVar(t *testing.T) {
	store := domain.NewStore()
	a, _ := store.NewVar(0, 10, domain.TRUE)
	b, _ := store.NewVar(0, 10, domain.TRUE)

	h := NewHeap(0.95, true)
	h.AddVar(0, PhaseUnset) // ZeroVar sentinel
	h.AddVar(0, PhaseUnset) // OneVar sentinel
	h.AddVar(0, PhaseUnset)
	h.AddVar(0, PhaseUnset)
	h.BumpScore(b)

	lit, ok := h.NextDecision(store)
	if !ok {
		t.Fatalf("NextDecision: no decision available")
	}
	if lit.Var() != b {
		t.Fatalf("decided var = %v, want %v (higher activity)", lit.Var(), b)
	}
	_ = a
}

func TestNextDecisionSkipsFixedAndAbsentVars(t *testing.T) {
	store := domain.NewStore()
	fixed, _ := store.NewVar(3, 3, domain.TRUE)

	opt, _ := store.NewVar(0, 1, domain.TRUE)
	presence := domain.PlusVar(opt).Leq(0)
	absent, _ := store.NewVar(0, 10, presence)
	store.Set(presence.Negation(), domain.DecisionCause())

	free, _ := store.NewVar(0, 10, domain.TRUE)

	h := NewHeap(0.95, false)
	h.AddVar(0, PhaseUnset) // ZeroVar sentinel
	h.AddVar(0, PhaseUnset) // OneVar sentinel
	h.AddVar(0, PhaseUnset)
	h.AddVar(0, PhaseUnset)
	h.AddVar(0, PhaseUnset)
	h.AddVar(0, PhaseUnset)

	lit, ok := h.NextDecision(store)
	if !ok {
		t.Fatalf("NextDecision: no decision available")
	}
	if lit.Var() != free {
		t.Fatalf("decided var = %v, want %v", lit.Var(), free)
	}
	_ = fixed
	_ = absent
}

func TestPhaseSavingRemembersHighSide(t *testing.T) {
	store := domain.NewStore()
	v, _ := store.NewVar(0, 10, domain.TRUE)

	h := NewHeap(0.95, true)
	h.AddVar(0, PhaseUnset) // ZeroVar sentinel
	h.AddVar(0, PhaseUnset) // OneVar sentinel
	h.AddVar(0, PhaseUnset)
	h.Reinsert(v, PhaseHigh)

	lit, ok := h.NextDecision(store)
	if !ok {
		t.Fatalf("NextDecision: no decision available")
	}
	if lit.Value() != -10 {
		t.Fatalf("expected the high-side literal (-v <= -10), got %v", lit)
	}
}
