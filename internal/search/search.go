// Package search implements the fixed-point reasoner dispatch loop, 1-UIP
// conflict-driven backjumping, geometric restarts, branch-and-bound
// optimization and assumption-based UNSAT cores (spec §4.G, §4.H) that sit
// on top of the domain store and its registered reasoners. The control flow
// is a direct generalization of the teacher's boolean CDCL loop
// (internal/sat/solver.go's Solve/Search/analyze/record) from a single
// clause database to an arbitrary set of dispatched reasoners, and from
// boolean variables to the bounded-integer signed variables of
// internal/domain.
package search

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/hashicorp/go-set/v3"

	"github.com/mhorvath/corestn/internal/domain"
	"github.com/mhorvath/corestn/internal/order"
	"github.com/mhorvath/corestn/internal/reasoner"
	"github.com/mhorvath/corestn/internal/satprop"
)

// Status is the outcome of a search call.
type Status int8

const (
	Unknown Status = iota
	Sat
	Unsat
)

func (s Status) String() string {
	switch s {
	case Sat:
		return "SAT"
	case Unsat:
		return "UNSAT"
	default:
		return "UNKNOWN"
	}
}

// Stats is a snapshot of search progress, mirroring the columns of the
// teacher's printSearchStats.
type Stats struct {
	Elapsed    time.Duration
	Iterations int64
	Conflicts  int64
	Restarts   int64
	Learnts    int
}

// StatsPrinter reports search progress. The driver calls it the same way
// the teacher's Solver calls printSeparator/printSearchHeader/
// printSearchStats directly around and during Search; a custom
// implementation could instead forward to a metrics backend.
type StatsPrinter interface {
	PrintHeader()
	PrintSeparator()
	PrintStats(Stats)
}

// NewWriterStatsPrinter returns a StatsPrinter that writes fixed-width rows
// to w, the same layout as the teacher's printSearchStats.
func NewWriterStatsPrinter(w io.Writer) StatsPrinter {
	return &writerStatsPrinter{w: w}
}

type writerStatsPrinter struct{ w io.Writer }

func (p *writerStatsPrinter) PrintSeparator() {
	fmt.Fprintln(p.w, "---------------------------------------------------------------------------")
}

func (p *writerStatsPrinter) PrintHeader() {
	fmt.Fprintln(p.w, "           time     iterations      conflicts       restarts        learnts")
}

func (p *writerStatsPrinter) PrintStats(s Stats) {
	fmt.Fprintf(p.w, "%14.3fs %14d %14d %14d %14d\n",
		s.Elapsed.Seconds(), s.Iterations, s.Conflicts, s.Restarts, s.Learnts)
}

type noopStatsPrinter struct{}

func (noopStatsPrinter) PrintHeader()     {}
func (noopStatsPrinter) PrintSeparator()  {}
func (noopStatsPrinter) PrintStats(Stats) {}

// Options configures stop conditions and progress reporting (spec §5): the
// decay/phase-saving knobs live on the reasoners and order.Heap themselves,
// since those are constructed before a Driver exists.
type Options struct {
	// MaxConflicts stops the search once this many conflicts have been
	// found, across every restart. Negative means unbounded.
	MaxConflicts int64
	// Timeout stops the search once this much wall-clock time has
	// elapsed since the most recent Solve or SolveWithAssumptions call
	// began (each Solve that Minimize runs restarts the clock). Negative
	// means unbounded.
	Timeout time.Duration
	// Interrupt, if non-nil, is checked between propagation rounds (never
	// mid-propagation, per spec §5's suspension-point rule): a closed or
	// readable channel stops the search at the next opportunity.
	Interrupt <-chan struct{}
	// Stats receives progress reports. Defaults to a no-op if nil.
	Stats StatsPrinter
}

// DefaultOptions mirrors the teacher's DefaultOptions stop conditions.
var DefaultOptions = Options{
	MaxConflicts: -1,
	Timeout:      -1,
}

// Driver owns the domain store, the registered reasoners and the decision
// heap, and drives them to a solution, generalizing the teacher's Solver.
type Driver struct {
	store     *domain.Store
	sat       *satprop.Database
	reasoners []reasoner.Reasoner
	heap      *order.Heap

	opts      Options
	startTime time.Time

	totalConflicts  int64
	totalRestarts   int64
	totalIterations int64

	// unsat latches permanently once a conflict resolves to the empty
	// clause at the root decision level: the problem is unsatisfiable
	// independent of any future assumptions.
	unsat bool
}

// NewDriver returns a driver over store, dispatching to reasoners in order
// every propagation round and picking decisions from heap. sat must be one
// of the reasoners (the driver needs its AddClause/NumLearnts/ReduceDB
// entry points directly, unlike the other reasoners which it only ever
// calls through the shared Reasoner interface).
func NewDriver(store *domain.Store, sat *satprop.Database, reasoners []reasoner.Reasoner, heap *order.Heap, opts Options) *Driver {
	if opts.Stats == nil {
		opts.Stats = noopStatsPrinter{}
	}
	return &Driver{
		store:     store,
		sat:       sat,
		reasoners: reasoners,
		heap:      heap,
		opts:      opts,
	}
}

// Stats returns a snapshot of cumulative search progress.
func (d *Driver) Stats() Stats {
	return Stats{
		Elapsed:    time.Since(d.startTime),
		Iterations: d.totalIterations,
		Conflicts:  d.totalConflicts,
		Restarts:   d.totalRestarts,
		Learnts:    d.sat.NumLearnts(),
	}
}

func (d *Driver) shouldStop() bool {
	if d.opts.MaxConflicts >= 0 && d.totalConflicts >= d.opts.MaxConflicts {
		return true
	}
	if d.opts.Timeout >= 0 && time.Since(d.startTime) >= d.opts.Timeout {
		return true
	}
	if d.opts.Interrupt != nil {
		select {
		case <-d.opts.Interrupt:
			return true
		default:
		}
	}
	return false
}

// AddClause registers a root-level clause, mirroring the teacher's
// Solver.AddClause. It is rejected outside the root decision level: new
// clauses belong to the static problem, not to a search branch.
func (d *Driver) AddClause(lits []domain.Lit) error {
	if d.store.DecisionLevel() != 0 {
		return fmt.Errorf("search: AddClause called at non-root decision level %d", d.store.DecisionLevel())
	}
	_, _, err := d.sat.AddClause(lits, false)
	if err != nil {
		var contr *domain.Contradiction
		if errors.Is(err, satprop.ErrEmptyClause) || errors.As(err, &contr) {
			d.unsat = true
			return nil
		}
		return err
	}
	return nil
}

// restoreTo undoes events down to level, reinserting every variable touched
// along the way back into the decision heap (spec §4.E) with a phase hint
// derived from the direction it was last tightened in.
func (d *Driver) restoreTo(level int) {
	for _, tv := range d.store.RestoreToCollecting(level) {
		d.heap.Reinsert(tv.Var, order.PhaseFromSignedVar(tv.LastSignedVar))
	}
}

// propagate dispatches every reasoner in turn until none of them produced a
// new trail event (quiescence, spec §4.G) or one reports a contradiction.
func (d *Driver) propagate() error {
	for {
		before := d.store.NumEvents()
		for _, r := range d.reasoners {
			if err := r.Propagate(d.store); err != nil {
				return err
			}
		}
		if d.store.NumEvents() == before {
			return nil
		}
	}
}

// resolveConflict runs 1-UIP resolution on a detected contradiction and
// backjumps, refusing to undo past floor (the number of assumption levels
// pinned below ordinary search decisions, 0 when there are none). It
// reports the learnt clause and whether resolution stayed within floor.
func (d *Driver) resolveConflict(expl []domain.Lit, floor int) (clause []domain.Lit, resolved bool, err error) {
	clause, backjump := d.store.RefineExplanation(expl)
	if backjump < floor {
		return clause, false, nil
	}

	d.restoreTo(backjump)

	c, _, err := d.sat.AddClause(clause, true)
	if err != nil {
		return clause, false, err
	}
	if c != nil {
		for _, lit := range clause {
			d.heap.BumpScore(lit.Var())
		}
	}
	d.sat.DecayClauseActivity()
	d.heap.DecayScores()
	return clause, true, nil
}

// onConflict handles an error surfaced by propagate or by asserting a
// decision literal. It reports stop=true once the caller's search loop must
// return immediately, either because err was not a contradiction (a real
// error) or because the conflict could not be resolved without retracting
// a pinned assumption (status is then Unsat and clause is the core-bearing
// nogood, in its disjunctive/negated form).
func (d *Driver) onConflict(err error, floor int) (status Status, clause []domain.Lit, stop bool, rerr error) {
	var contr *domain.Contradiction
	if !errors.As(err, &contr) {
		return Unknown, nil, true, err
	}
	d.totalConflicts++

	clause, resolved, aerr := d.resolveConflict(contr.Explanation, floor)
	if aerr != nil {
		return Unknown, nil, true, aerr
	}
	if !resolved {
		d.restoreTo(floor)
		if floor == 0 {
			d.unsat = true
		}
		return Unsat, clause, true, nil
	}
	return Unknown, nil, false, nil
}

// search runs one restart's worth of propagate/decide steps, stopping after
// nConflicts conflicts (Unknown, caller should restart with a larger
// budget) or when every variable is resolved (Sat) or the conflict cannot
// be resolved above floor (Unsat). It never backtracks past floor.
func (d *Driver) search(nConflicts, nLearnts, floor int) (Status, []domain.Lit, error) {
	if floor == 0 && d.unsat {
		return Unsat, nil, nil
	}

	d.totalRestarts++
	conflictCount := 0

	for !d.shouldStop() {
		d.totalIterations++
		if d.totalIterations%10000 == 0 {
			d.opts.Stats.PrintStats(d.Stats())
		}

		if err := d.propagate(); err != nil {
			status, clause, stop, rerr := d.onConflict(err, floor)
			if rerr != nil {
				return Unknown, nil, rerr
			}
			if stop {
				return status, clause, nil
			}
			conflictCount++
			continue
		}

		if d.sat.NumLearnts()-d.store.NumEvents() >= nLearnts {
			d.sat.ReduceDB()
		}

		if conflictCount > nConflicts {
			d.restoreTo(floor)
			return Unknown, nil, nil
		}

		lit, ok := d.heap.NextDecision(d.store)
		if !ok {
			return Sat, nil, nil
		}

		d.store.SaveState()
		if _, err := d.store.Set(lit, domain.DecisionCause()); err != nil {
			status, clause, stop, rerr := d.onConflict(err, floor)
			if rerr != nil {
				return Unknown, nil, rerr
			}
			if stop {
				return status, clause, nil
			}
			conflictCount++
		}
	}

	return Unknown, nil, nil
}

// Solve runs to completion or until a configured stop condition fires,
// growing the conflict and learnt-clause budgets geometrically between
// restarts exactly as the teacher's Solve does. On Sat, the store is left
// exactly as the search found it: its bounds are the solution, unlike the
// teacher which discards the trail after copying a boolean model out of it.
// On Unsat or an interrupted Unknown, the store is restored to the root.
func (d *Driver) Solve() (Status, error) {
	d.startTime = time.Now()
	d.opts.Stats.PrintSeparator()
	d.opts.Stats.PrintHeader()
	d.opts.Stats.PrintSeparator()

	numConflicts := 100
	numLearnts := len(d.sat.Clauses())/3 + 1
	status := Unknown

	for status == Unknown {
		var err error
		status, _, err = d.search(numConflicts, numLearnts, 0)
		if err != nil {
			return Unknown, err
		}
		numConflicts += numConflicts / 10
		numLearnts += numLearnts / 20

		if d.shouldStop() {
			break
		}
	}

	d.opts.Stats.PrintStats(d.Stats())
	d.opts.Stats.PrintSeparator()

	if status != Sat {
		d.restoreTo(0)
	}
	return status, nil
}

// Minimize performs branch-and-bound optimization over objVar (spec §4.H):
// it repeatedly solves, tightens objVar's upper bound strictly below the
// best value found so far, and resolves, until no better solution exists.
// It is an anytime algorithm: if a stop condition interrupts it after at
// least one feasible solution was found, it reports that solution as Sat
// rather than failing.
func (d *Driver) Minimize(objVar domain.Var) (Status, int32, error) {
	best := Unsat
	var bestValue int32

	for {
		status, err := d.Solve()
		if err != nil {
			return Unknown, 0, err
		}
		if status != Sat {
			return best, bestValue, nil
		}

		best = Sat
		bestValue = d.store.UB(objVar)

		d.restoreTo(0)
		if _, err := d.store.Set(domain.PlusVar(objVar).Leq(bestValue-1), domain.EncodingCause()); err != nil {
			// No assignment can beat bestValue: it is optimal.
			var contr *domain.Contradiction
			if errors.As(err, &contr) {
				return Sat, bestValue, nil
			}
			return Unknown, 0, err
		}
	}
}

// SolveWithAssumptions pins each literal in assumptions as its own decision
// level below ordinary search (spec §8 scenario S6), then solves as usual.
// If the assumptions are jointly unsatisfiable, it returns Unsat together
// with the unsat core: the subset of assumptions whose conjunction the
// conflict actually depended on. The learnt nogood backing that core is
// kept in the clause database, since it is a sound consequence of the root
// problem regardless of which assumptions were asked this time. It requires
// the driver to be at the root decision level when called.
func (d *Driver) SolveWithAssumptions(assumptions []domain.Lit) (Status, []domain.Lit, error) {
	if d.store.DecisionLevel() != 0 {
		return Unknown, nil, fmt.Errorf("search: SolveWithAssumptions requires the root decision level, got %d", d.store.DecisionLevel())
	}

	seen := set.New[domain.Lit](len(assumptions))
	pinned := make([]domain.Lit, 0, len(assumptions))
	for _, lit := range assumptions {
		if seen.Insert(lit) {
			pinned = append(pinned, lit)
		}
	}

	d.startTime = time.Now()

	for _, lit := range pinned {
		d.store.SaveState()
		if _, err := d.store.Set(lit, domain.DecisionCause()); err != nil {
			return d.assumptionConflict(err)
		}
		if err := d.propagate(); err != nil {
			return d.assumptionConflict(err)
		}
	}

	numConflicts := 100
	numLearnts := len(d.sat.Clauses())/3 + 1
	status, clause, err := d.search(numConflicts, numLearnts, len(pinned))
	if err != nil {
		d.restoreTo(0)
		return Unknown, nil, err
	}
	if status == Unsat {
		core := coreOf(clause)
		d.restoreTo(0)
		return Unsat, core, nil
	}
	if status != Sat {
		d.restoreTo(0)
	}
	return status, nil, nil
}

// assumptionConflict resolves a conflict raised while assumption literals
// were still being pinned: every decision on the trail at this point is an
// assumption (or an earlier root fact, which RefineExplanation already
// drops), so the returned clause already names exactly the implicated
// assumptions, in disjunctive (negated) form.
func (d *Driver) assumptionConflict(err error) (Status, []domain.Lit, error) {
	var contr *domain.Contradiction
	if !errors.As(err, &contr) {
		d.restoreTo(0)
		return Unknown, nil, err
	}
	d.totalConflicts++

	clause, backjump := d.store.RefineExplanation(contr.Explanation)
	if backjump >= 0 {
		if _, _, err := d.sat.AddClause(clause, true); err != nil {
			d.restoreTo(0)
			return Unknown, nil, err
		}
	}
	core := coreOf(clause)
	d.restoreTo(0)
	return Unsat, core, nil
}

// coreOf recovers the assumption literals implicated by a learnt clause:
// the clause holds their negations (disjunctive form), so negating back
// and deduplicating through a set recovers the original assumptions.
func coreOf(clause []domain.Lit) []domain.Lit {
	core := set.New[domain.Lit](len(clause))
	for _, lit := range clause {
		core.Insert(lit.Negation())
	}
	return core.Slice()
}
