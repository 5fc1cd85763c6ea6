package reasoner

import (
	"testing"

	"github.com/mhorvath/corestn/internal/domain"
	"github.com/mhorvath/corestn/internal/satprop"
	"github.com/mhorvath/corestn/internal/stn"
)

func TestSATAdapterPropagatesNewEvents(t *testing.T) {
	store := domain.NewStore()
	db := satprop.NewDatabase(store, 0.999)
	a := NewSATAdapter(db)

	av, _ := store.NewVar(0, 1, domain.TRUE)
	bv, _ := store.NewVar(0, 1, domain.TRUE)
	aTrue := domain.PlusVar(av).Leq(0).Negation()
	bTrue := domain.PlusVar(bv).Leq(0).Negation()

	if _, _, err := db.AddClause([]domain.Lit{aTrue.Negation(), bTrue}, false); err != nil {
		t.Fatalf("AddClause: %v", err)
	}
	if err := a.Propagate(store); err != nil {
		t.Fatalf("Propagate (initial): %v", err)
	}

	if _, err := store.Set(aTrue, domain.DecisionCause()); err != nil {
		t.Fatalf("Set aTrue: %v", err)
	}
	if err := a.Propagate(store); err != nil {
		t.Fatalf("Propagate: %v", err)
	}
	if store.Value(bTrue) != domain.True {
		t.Fatalf("expected b forced true via adapter-driven propagation")
	}
	if a.Identity() != domain.ReasonerSAT {
		t.Fatalf("wrong identity")
	}
}

func TestSTNAdapterPropagatesNewEvents(t *testing.T) {
	store := domain.NewStore()
	th := stn.New(store, stn.LevelNone)
	a := NewSTNAdapter(th)

	x, _ := store.NewVar(0, 100, domain.TRUE)
	y, _ := store.NewVar(0, 100, domain.TRUE)
	if _, err := th.AddEdge(stn.Edge{Source: x, Target: y, Weight: 5, Enabler: domain.TRUE}); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}
	if err := a.Propagate(store); err != nil {
		t.Fatalf("Propagate (initial): %v", err)
	}

	if _, err := store.Set(domain.PlusVar(x).Leq(10), domain.DecisionCause()); err != nil {
		t.Fatalf("Set x<=10: %v", err)
	}
	if err := a.Propagate(store); err != nil {
		t.Fatalf("Propagate: %v", err)
	}
	if got := store.UB(y); got != 15 {
		t.Errorf("UB(y) = %d, want 15", got)
	}
}

// TestSATAdapterResumesAfterBackjump guards against lastSeen being left past
// the end of a trail shrunk by a backjump: push events past a savepoint,
// restore to it (freeing and reusing those trail indices, same as
// Driver.resolveConflict does), then assert a different literal and confirm
// Propagate still sees and acts on it rather than silently skipping it.
func TestSATAdapterResumesAfterBackjump(t *testing.T) {
	store := domain.NewStore()
	db := satprop.NewDatabase(store, 0.999)
	a := NewSATAdapter(db)

	av, _ := store.NewVar(0, 1, domain.TRUE)
	bv, _ := store.NewVar(0, 1, domain.TRUE)
	cv, _ := store.NewVar(0, 1, domain.TRUE)
	aTrue := domain.PlusVar(av).Leq(0).Negation()
	bTrue := domain.PlusVar(bv).Leq(0).Negation()
	cTrue := domain.PlusVar(cv).Leq(0).Negation()

	if _, _, err := db.AddClause([]domain.Lit{aTrue.Negation(), cTrue}, false); err != nil {
		t.Fatalf("AddClause a->c: %v", err)
	}
	if _, _, err := db.AddClause([]domain.Lit{bTrue.Negation(), cTrue}, false); err != nil {
		t.Fatalf("AddClause b->c: %v", err)
	}

	sp := store.SaveState()
	if _, err := store.Set(aTrue, domain.DecisionCause()); err != nil {
		t.Fatalf("Set aTrue: %v", err)
	}
	if err := a.Propagate(store); err != nil {
		t.Fatalf("Propagate (a): %v", err)
	}
	if store.Value(cTrue) != domain.True {
		t.Fatalf("expected c forced true after a")
	}

	// Backjump: undo both a and c, landing lastSeen past the shrunk trail.
	store.RestoreToCollecting(sp)
	if store.Value(cTrue) != domain.Unknown {
		t.Fatalf("expected c unset after restore")
	}

	// Assert a different literal that reuses the freed trail indices.
	if _, err := store.Set(bTrue, domain.DecisionCause()); err != nil {
		t.Fatalf("Set bTrue: %v", err)
	}
	if err := a.Propagate(store); err != nil {
		t.Fatalf("Propagate (b): %v", err)
	}
	if store.Value(cTrue) != domain.True {
		t.Fatalf("expected c forced true after b, via adapter propagation post-backjump")
	}
}
