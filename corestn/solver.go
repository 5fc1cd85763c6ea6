package corestn

import (
	"os"

	"github.com/mhorvath/corestn/internal/domain"
	"github.com/mhorvath/corestn/internal/reasoner"
	"github.com/mhorvath/corestn/internal/search"
)

// Status mirrors search.Status: Unknown (interrupted/resource-limited),
// Sat, or Unsat.
type Status = search.Status

const (
	Unknown = search.Unknown
	Sat     = search.Sat
	Unsat   = search.Unsat
)

// Solver is the search-control surface of spec §6, wrapping a Model's store
// and reasoners with the fixed-point dispatch driver. Build one with
// NewSolver once the model is fully populated; Enforce/Reify calls after
// that are still allowed as long as the store is at decision level 0
// (mirroring add_clause's incremental/root-level precondition).
type Solver struct {
	model  *Model
	driver *search.Driver
}

// NewSolver builds a Solver over m, registering the SAT, STN and linear
// reasoners with the fixed-point dispatch loop in that order (spec §4.G: a
// fixed dispatch order, SAT first since its unit propagation is cheapest and
// most likely to prune before the costlier theory reasoners run).
func NewSolver(m *Model, cfg Config) *Solver {
	opts := search.Options{
		MaxConflicts: cfg.MaxConflicts,
		Timeout:      cfg.Timeout,
	}
	if cfg.PrintStats {
		opts.Stats = search.NewWriterStatsPrinter(os.Stdout)
	}

	reasoners := []reasoner.Reasoner{
		reasoner.NewSATAdapter(m.sat),
		reasoner.NewSTNAdapter(m.stnTh),
		reasoner.NewLinearAdapter(m.linTh),
	}

	return &Solver{
		model:  m,
		driver: search.NewDriver(m.store, m.sat, reasoners, m.heap, opts),
	}
}

// Solve runs search to completion (subject to Config's MaxConflicts/Timeout)
// and returns Sat, Unsat, or Unknown if a resource limit was hit first.
func (s *Solver) Solve() (Status, error) {
	return s.driver.Solve()
}

// Minimize runs branch-and-bound search minimizing obj's value, returning
// the best (status, value) found. Status is Unsat only if the problem was
// infeasible from the start; a resource limit hit after at least one
// solution was found returns Sat with the best value found so far.
func (s *Solver) Minimize(obj Var) (Status, int32, error) {
	return s.driver.Minimize(obj)
}

// SolveWithAssumptions pins every literal in assumptions as a pseudo-decision
// before search begins (spec §4.H). On Unsat, the returned core is the
// subset of assumptions whose conjunction is itself unsatisfiable; on Sat,
// the core is nil.
func (s *Solver) SolveWithAssumptions(assumptions []Lit) (Status, []Lit, error) {
	return s.driver.SolveWithAssumptions(assumptions)
}

// AddClause adds lits as a new root-level clause (spec §6's incremental
// add_clause). It must be called at decision level 0.
func (s *Solver) AddClause(lits []Lit) error {
	return s.driver.AddClause(lits)
}

// Value reports whether lit is currently entailed true, false, or neither
// (ok=false), without leaking the store's internal LBool representation.
func (s *Solver) Value(lit Lit) (value bool, ok bool) {
	switch s.model.store.Value(lit) {
	case domain.True:
		return true, true
	case domain.False:
		return false, true
	default:
		return false, false
	}
}

// LB and UB report the current lower/upper bound of v.
func (s *Solver) LB(v Var) int32 { return s.model.store.LB(v) }
func (s *Solver) UB(v Var) int32 { return s.model.store.UB(v) }

// Stats reports the driver's running search statistics.
func (s *Solver) Stats() search.Stats { return s.driver.Stats() }
