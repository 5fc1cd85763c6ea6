package search

import (
	"testing"

	"github.com/mhorvath/corestn/internal/domain"
	"github.com/mhorvath/corestn/internal/order"
	"github.com/mhorvath/corestn/internal/reasoner"
	"github.com/mhorvath/corestn/internal/satprop"
)

// newHeap returns a heap already holding entries for the store's two
// reserved sentinel variables, so that subsequent AddVar calls stay aligned
// with the domain.Var values NewVar hands out.
func newHeap() *order.Heap {
	h := order.NewHeap(0.95, true)
	h.AddVar(0, order.PhaseUnset) // domain.ZeroVar
	h.AddVar(0, order.PhaseUnset) // domain.OneVar
	return h
}

func newBoolVar(t *testing.T, store *domain.Store, heap *order.Heap) (trueLit, falseLit domain.Lit) {
	t.Helper()
	v, err := store.NewVar(0, 1, domain.TRUE)
	if err != nil {
		t.Fatalf("NewVar: %v", err)
	}
	heap.AddVar(0, order.PhaseUnset)
	falseLit = domain.PlusVar(v).Leq(0)
	return falseLit.Negation(), falseLit
}

func TestSolveFindsSatisfyingAssignment(t *testing.T) {
	store := domain.NewStore()
	heap := newHeap()
	db := satprop.NewDatabase(store, 0.999)

	aTrue, _ := newBoolVar(t, store, heap)
	bTrue, bFalse := newBoolVar(t, store, heap)

	// a v b
	if _, _, err := db.AddClause([]domain.Lit{aTrue, bTrue}, false); err != nil {
		t.Fatalf("AddClause: %v", err)
	}
	// !a
	if _, _, err := db.AddClause([]domain.Lit{aTrue.Negation()}, false); err != nil {
		t.Fatalf("AddClause: %v", err)
	}

	d := NewDriver(store, db, []reasoner.Reasoner{reasoner.NewSATAdapter(db)}, heap, DefaultOptions)
	status, err := d.Solve()
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if status != Sat {
		t.Fatalf("status = %v, want Sat", status)
	}
	if store.Value(bFalse) == domain.True {
		t.Fatalf("expected b forced true to satisfy (a v b) with !a")
	}
}

func TestSolveDetectsRootLevelUnsat(t *testing.T) {
	store := domain.NewStore()
	heap := newHeap()
	db := satprop.NewDatabase(store, 0.999)

	aTrue, _ := newBoolVar(t, store, heap)

	d := NewDriver(store, db, []reasoner.Reasoner{reasoner.NewSATAdapter(db)}, heap, DefaultOptions)
	if err := d.AddClause([]domain.Lit{aTrue}); err != nil {
		t.Fatalf("AddClause: %v", err)
	}
	if err := d.AddClause([]domain.Lit{aTrue.Negation()}); err != nil {
		t.Fatalf("AddClause: %v", err)
	}

	status, err := d.Solve()
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if status != Unsat {
		t.Fatalf("status = %v, want Unsat", status)
	}
}

func TestMinimizeFindsLowerBoundAsOptimal(t *testing.T) {
	store := domain.NewStore()
	heap := newHeap()
	db := satprop.NewDatabase(store, 0.999)

	cost, err := store.NewVar(3, 8, domain.TRUE)
	if err != nil {
		t.Fatalf("NewVar: %v", err)
	}
	heap.AddVar(0, order.PhaseLow)

	d := NewDriver(store, db, []reasoner.Reasoner{reasoner.NewSATAdapter(db)}, heap, DefaultOptions)
	status, best, err := d.Minimize(cost)
	if err != nil {
		t.Fatalf("Minimize: %v", err)
	}
	if status != Sat {
		t.Fatalf("status = %v, want Sat", status)
	}
	if best != 3 {
		t.Fatalf("best = %d, want 3", best)
	}
}

func TestSolveWithAssumptionsReturnsUnsatCore(t *testing.T) {
	store := domain.NewStore()
	heap := newHeap()
	db := satprop.NewDatabase(store, 0.999)

	aTrue, _ := newBoolVar(t, store, heap)
	bTrue, _ := newBoolVar(t, store, heap)

	// !a v !b: a and b cannot both be true.
	if _, _, err := db.AddClause([]domain.Lit{aTrue.Negation(), bTrue.Negation()}, false); err != nil {
		t.Fatalf("AddClause: %v", err)
	}

	d := NewDriver(store, db, []reasoner.Reasoner{reasoner.NewSATAdapter(db)}, heap, DefaultOptions)
	status, core, err := d.SolveWithAssumptions([]domain.Lit{aTrue, bTrue})
	if err != nil {
		t.Fatalf("SolveWithAssumptions: %v", err)
	}
	if status != Unsat {
		t.Fatalf("status = %v, want Unsat", status)
	}
	if len(core) == 0 {
		t.Fatalf("expected a non-empty unsat core")
	}
	for _, lit := range core {
		if lit != aTrue && lit != bTrue {
			t.Errorf("core contains unexpected literal %v", lit)
		}
	}

	if store.DecisionLevel() != 0 {
		t.Fatalf("DecisionLevel() = %d, want 0 after SolveWithAssumptions", store.DecisionLevel())
	}
}

func TestSolveWithAssumptionsSatisfiable(t *testing.T) {
	store := domain.NewStore()
	heap := newHeap()
	db := satprop.NewDatabase(store, 0.999)

	aTrue, _ := newBoolVar(t, store, heap)
	bTrue, _ := newBoolVar(t, store, heap)

	if _, _, err := db.AddClause([]domain.Lit{aTrue, bTrue}, false); err != nil {
		t.Fatalf("AddClause: %v", err)
	}

	d := NewDriver(store, db, []reasoner.Reasoner{reasoner.NewSATAdapter(db)}, heap, DefaultOptions)
	status, core, err := d.SolveWithAssumptions([]domain.Lit{aTrue})
	if err != nil {
		t.Fatalf("SolveWithAssumptions: %v", err)
	}
	if status != Sat {
		t.Fatalf("status = %v, want Sat", status)
	}
	if core != nil {
		t.Fatalf("expected nil core on Sat, got %v", core)
	}
}
