package satprop

import (
	"testing"

	"github.com/mhorvath/corestn/internal/domain"
)

// newBoolVar creates a 0/1 domain variable and returns its "true" literal
// (var >= 1) and "false" literal (var <= 0), matching the boolean encoding
// convention used throughout this package's tests.
func newBoolVar(t *testing.T, s *domain.Store) (trueLit, falseLit domain.Lit) {
	t.Helper()
	v, err := s.NewVar(0, 1, domain.TRUE)
	if err != nil {
		t.Fatalf("NewVar: %v", err)
	}
	falseLit = domain.PlusVar(v).Leq(0)
	trueLit = falseLit.Negation()
	return trueLit, falseLit
}

func boundOf(store *domain.Store, sv domain.SignedVar) int32 {
	if sv.IsPlus() {
		return store.UB(sv.Variable())
	}
	return -store.LB(sv.Variable())
}

func TestAddClauseUnitPropagatesImmediateFact(t *testing.T) {
	store := domain.NewStore()
	db := NewDatabase(store, 0.999)

	a, _ := newBoolVar(t, store)
	_, _, err := db.AddClause([]domain.Lit{a}, false)
	if err != nil {
		t.Fatalf("AddClause: %v", err)
	}
	if store.Value(a) != domain.True {
		t.Fatalf("expected unit clause to directly assert its literal")
	}
}

func TestTwoWatchedLiteralPropagatesOnFalsification(t *testing.T) {
	store := domain.NewStore()
	db := NewDatabase(store, 0.999)

	aTrue, aFalse := newBoolVar(t, store)
	bTrue, bFalse := newBoolVar(t, store)

	c, ok, err := db.AddClause([]domain.Lit{aFalse, bTrue}, false)
	if err != nil || !ok || c == nil {
		t.Fatalf("AddClause: c=%v ok=%v err=%v", c, ok, err)
	}

	// Force a true, which falsifies aFalse and should propagate b true since
	// bTrue is the clause's only other literal.
	av := aFalse.Var()
	if _, err := store.Set(aTrue, domain.DecisionCause()); err != nil {
		t.Fatalf("Set: %v", err)
	}
	ok2, err := db.OnBoundChange(aTrue.SignedVar(), boundOf(store, aTrue.SignedVar()))
	if err != nil {
		t.Fatalf("OnBoundChange: %v", err)
	}
	if !ok2 {
		t.Fatalf("unexpected conflict")
	}
	if store.Value(bTrue) != domain.True {
		t.Fatalf("expected b forced true by unit propagation")
	}
	_ = bFalse
	_ = av
}

func TestClausePropagationDetectsConflict(t *testing.T) {
	store := domain.NewStore()
	db := NewDatabase(store, 0.999)

	aTrue, aFalse := newBoolVar(t, store)
	bTrue, bFalse := newBoolVar(t, store)

	if _, _, err := db.AddClause([]domain.Lit{aFalse, bTrue}, false); err != nil {
		t.Fatalf("AddClause 1: %v", err)
	}
	if _, _, err := db.AddClause([]domain.Lit{aFalse, bFalse}, false); err != nil {
		t.Fatalf("AddClause 2: %v", err)
	}

	// Both clauses watch a's true threshold (clause 1 via its first literal,
	// clause 2 via its first literal too): asserting a true fires both in
	// the same OnBoundChange call. The first clause forces b true, the
	// second then tries to force b false, which must surface as a
	// contradiction since b is necessarily present.
	if _, err := store.Set(aTrue, domain.DecisionCause()); err != nil {
		t.Fatalf("Set a true: %v", err)
	}
	ok, err := db.OnBoundChange(aTrue.SignedVar(), boundOf(store, aTrue.SignedVar()))
	if ok || err == nil {
		t.Fatalf("expected a conflict on b's contradictory bounds, got ok=%v err=%v", ok, err)
	}
	_ = bTrue
	_ = bFalse
}
