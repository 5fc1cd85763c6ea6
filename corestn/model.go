package corestn

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-set/v3"

	"github.com/mhorvath/corestn/internal/domain"
	"github.com/mhorvath/corestn/internal/linear"
	"github.com/mhorvath/corestn/internal/order"
	"github.com/mhorvath/corestn/internal/satprop"
	"github.com/mhorvath/corestn/internal/stn"
)

// Var and Lit are the opaque handles the model builder API works with,
// re-exported from internal/domain so that a caller never imports internal/.
type Var = domain.Var
type Lit = domain.Lit

// True and False are the reserved always-true/always-false literals, used as
// the presence literal of a non-optional variable or as a constant scope.
var True = domain.TRUE
var False = domain.FALSE

// Model is the external model builder of spec §6: it accepts variable
// declarations and reified expressions and wires them into the domain store
// and the three closed-set reasoners (SAT, STN, linear). Build a Solver from
// it once modeling is done.
type Model struct {
	store *domain.Store
	sat   *satprop.Database
	stnTh *stn.Theory
	linTh *linear.Theory
	heap  *order.Heap

	// scopeChildren records, per scope literal, the set of presence
	// literals created under it via NewPresenceVar: a small bookkeeping
	// index for introspection that the domain store itself doesn't expose
	// (Store.ImpliesPresence only answers point queries, not "list the
	// children of this scope").
	scopeChildren map[Lit]*set.Set[Lit]
}

// NewModel creates an empty model. cfg's decay rates and theory-propagation
// level seed the underlying reasoners; the rest of cfg is consumed later by
// NewSolver.
func NewModel(cfg Config) *Model {
	store := domain.NewStore()
	heap := order.NewHeap(cfg.VariableDecay, cfg.PhaseSaving)
	// ZeroVar and OneVar are pre-created by domain.NewStore; keep the heap's
	// variable indexing aligned with domain.Var values.
	heap.AddVar(0, order.PhaseUnset)
	heap.AddVar(0, order.PhaseUnset)

	return &Model{
		store:         store,
		sat:           satprop.NewDatabase(store, cfg.ClauseDecay),
		stnTh:         stn.New(store, cfg.TheoryPropagation),
		linTh:         linear.New(store),
		heap:          heap,
		scopeChildren: map[Lit]*set.Set[Lit]{},
	}
}

// NewVar declares a variable with initial bounds [lb, ub] and a presence
// literal (pass domain.TRUE for a non-optional variable).
func (m *Model) NewVar(lb, ub int32, presence Lit) (Var, error) {
	v, err := m.store.NewVar(lb, ub, presence)
	if err != nil {
		return 0, err
	}
	m.heap.AddVar(0, order.PhaseUnset)
	return v, nil
}

// NewBoolVar declares a fresh non-optional 0/1 variable and returns its
// true/false literals, the building block every reification in this file
// bottoms out in.
func (m *Model) NewBoolVar() (trueLit, falseLit Lit, err error) {
	v, err := m.NewVar(0, 1, domain.TRUE)
	if err != nil {
		return Lit{}, Lit{}, err
	}
	falseLit = domain.PlusVar(v).Leq(0)
	return falseLit.Negation(), falseLit, nil
}

func (m *Model) newBoolVar() (trueLit, falseLit Lit, err error) { return m.NewBoolVar() }

// PlusVarLeq builds the literal "v <= k" directly on v's upper-bound view,
// for callers that need to address a variable's bound literal without going
// through a ReifiedExpr (e.g. passing it to Literal/Or/And).
func PlusVarLeq(v Var, k int32) Lit { return domain.PlusVar(v).Leq(k) }

// MinusVarLeq builds the literal "-v <= k" (equivalently "v >= -k") directly
// on v's lower-bound view.
func MinusVarLeq(v Var, k int32) Lit { return domain.MinusVar(v).Leq(k) }

// NewPresenceVar declares a fresh presence literal whose variable exists
// only when scope holds: whenever scope is proven false, the new literal is
// inferred false too (spec §3's presence DAG), recorded both in the domain
// store (for propagation) and in the model's own scope index (for
// introspection).
func (m *Model) NewPresenceVar(scope Lit) (Lit, error) {
	p, _, err := m.newBoolVar()
	if err != nil {
		return Lit{}, err
	}
	m.store.AddPresenceImplication(p, scope)

	children, ok := m.scopeChildren[scope]
	if !ok {
		children = set.New[Lit](1)
		m.scopeChildren[scope] = children
	}
	children.Insert(p)

	return p, nil
}

// PresenceChildren returns every presence literal created under scope via
// NewPresenceVar, in no particular order.
func (m *Model) PresenceChildren(scope Lit) []Lit {
	children, ok := m.scopeChildren[scope]
	if !ok {
		return nil
	}
	return children.Slice()
}

// ReifiedExpr is one of the closed set of expressions spec §6 lists: a
// single literal, a difference constraint, a disjunction or conjunction of
// literals, a linear inequality, equality/disequality of two variables, or
// equality of a variable to a constant. Build one with the constructors
// below, then pass it to Model.Enforce or Model.Reify.
type ReifiedExpr interface {
	isReifiedExpr()
}

type literalExpr struct{ lit Lit }
type diffExpr struct {
	y, x Var // y - x <= k
	k    int32
}
type orExpr struct{ lits []Lit }
type andExpr struct{ lits []Lit }
type linearExpr struct {
	terms []linear.Term
	k     int32 // Σ terms <= k
}
type eqExpr struct{ a, b Var }
type neqExpr struct{ a, b Var }
type eqConstExpr struct {
	v Var
	c int32
}

func (literalExpr) isReifiedExpr() {}
func (diffExpr) isReifiedExpr()    {}
func (orExpr) isReifiedExpr()      {}
func (andExpr) isReifiedExpr()     {}
func (linearExpr) isReifiedExpr()  {}
func (eqExpr) isReifiedExpr()      {}
func (neqExpr) isReifiedExpr()     {}
func (eqConstExpr) isReifiedExpr() {}

// Literal wraps a single literal as a ReifiedExpr.
func Literal(lit Lit) ReifiedExpr { return literalExpr{lit: lit} }

// Diff builds the difference constraint `y - x <= k`.
func Diff(y, x Var, k int32) ReifiedExpr { return diffExpr{y: y, x: x, k: k} }

// Or builds a disjunction of literals, deduplicated.
func Or(lits ...Lit) ReifiedExpr { return orExpr{lits: dedupLits(lits)} }

// And builds a conjunction of literals, deduplicated.
func And(lits ...Lit) ReifiedExpr { return andExpr{lits: dedupLits(lits)} }

// LinearLeq builds the linear inequality `Σ terms <= k`.
func LinearLeq(terms []linear.Term, k int32) ReifiedExpr {
	return linearExpr{terms: terms, k: k}
}

// Eq builds the equality of two variables, `a == b`.
func Eq(a, b Var) ReifiedExpr { return eqExpr{a: a, b: b} }

// Neq builds the disequality of two variables, `a != b`.
func Neq(a, b Var) ReifiedExpr { return neqExpr{a: a, b: b} }

// EqConst builds the equality of a variable to a constant, `v == c`.
func EqConst(v Var, c int32) ReifiedExpr { return eqConstExpr{v: v, c: c} }

// dedupLits drops repeated literals while preserving first-seen order, using
// the pack's generic set type rather than a hand-rolled map-based dedupe
// (spec §3's DOMAIN STACK: corestn's presence-literal/expression bookkeeping
// is one of go-set's two homes in this repo).
func dedupLits(lits []Lit) []Lit {
	seen := set.New[Lit](len(lits))
	out := make([]Lit, 0, len(lits))
	for _, l := range lits {
		if seen.Insert(l) {
			out = append(out, l)
		}
	}
	return out
}

// Enforce posts expr unconditionally as a root-level constraint. It must be
// called before Solver.Solve's first invocation (or between solves, at
// decision level 0, mirroring add_clause's incremental/root-level
// precondition).
func (m *Model) Enforce(expr ReifiedExpr) error {
	switch e := expr.(type) {
	case literalExpr:
		_, err := m.store.Set(e.lit, domain.EncodingCause())
		return asContradictionOK(err)

	case orExpr:
		_, _, err := m.sat.AddClause(e.lits, false)
		return asClauseErrOK(err)

	case andExpr:
		for _, lit := range e.lits {
			if _, err := m.store.Set(lit, domain.EncodingCause()); err != nil {
				if rerr := asContradictionOK(err); rerr != nil {
					return rerr
				}
			}
		}
		return nil

	case diffExpr:
		_, err := m.stnTh.AddEdge(stn.Edge{Source: e.x, Target: e.y, Weight: e.k, Enabler: domain.TRUE})
		return asContradictionOK(err)

	case linearExpr:
		_, err := m.linTh.AddConstraint(linear.Constraint{Terms: e.terms, Constant: -e.k, Enabler: domain.TRUE})
		return asContradictionOK(err)

	case eqExpr:
		if err := m.Enforce(diffExpr{y: e.b, x: e.a, k: 0}); err != nil {
			return err
		}
		return m.Enforce(diffExpr{y: e.a, x: e.b, k: 0})

	case neqExpr:
		pTrue, pFalse, err := m.newBoolVar()
		if err != nil {
			return err
		}
		// a <= b-1 when p, b <= a-1 when !p: exactly one of p/!p holds, so
		// exactly one direction of the disequality is enforced, and always
		// at least one is (no clause needed — p and !p are the only two
		// values a boolean variable can take).
		if _, err := m.stnTh.AddEdge(stn.Edge{Source: e.b, Target: e.a, Weight: -1, Enabler: pTrue}); err != nil {
			return asContradictionOK(err)
		}
		_, err = m.stnTh.AddEdge(stn.Edge{Source: e.a, Target: e.b, Weight: -1, Enabler: pFalse})
		return asContradictionOK(err)

	case eqConstExpr:
		return m.Enforce(andExpr{lits: []Lit{
			domain.PlusVar(e.v).Leq(e.c),
			domain.MinusVar(e.v).Leq(-e.c),
		}})

	default:
		return fmt.Errorf("corestn: unknown ReifiedExpr %T", expr)
	}
}

// Reify returns a literal r such that r <-> expr, posting whatever
// constraints are needed to make the equivalence hold. A root-level
// contradiction met while posting them is not returned as an error (Solve
// reports the model unsat); an error is returned for an unknown expression
// kind or any other failure.
func (m *Model) Reify(expr ReifiedExpr) (Lit, error) {
	switch e := expr.(type) {
	case literalExpr:
		// No wiring needed: the literal already is its own reification.
		return e.lit, nil

	case orExpr:
		r, rNeg, err := m.newBoolVar()
		if err != nil {
			return Lit{}, err
		}
		// r -> (l1 v ... v ln)
		forward := append(append([]Lit{}, e.lits...), rNeg)
		if _, _, err := m.sat.AddClause(forward, false); err != nil {
			return Lit{}, asClauseErrOK(err)
		}
		// li -> r, for each i
		for _, lit := range e.lits {
			if _, _, err := m.sat.AddClause([]Lit{r, lit.Negation()}, false); err != nil {
				return Lit{}, asClauseErrOK(err)
			}
		}
		return r, nil

	case andExpr:
		r, rNeg, err := m.newBoolVar()
		if err != nil {
			return Lit{}, err
		}
		// r -> li, for each i
		for _, lit := range e.lits {
			if _, _, err := m.sat.AddClause([]Lit{rNeg, lit}, false); err != nil {
				return Lit{}, asClauseErrOK(err)
			}
		}
		// (!l1 v ... v !ln) -> !r, i.e. (l1 ^ ... ^ ln) -> r
		backward := make([]Lit, 0, len(e.lits)+1)
		for _, lit := range e.lits {
			backward = append(backward, lit.Negation())
		}
		backward = append(backward, r)
		if _, _, err := m.sat.AddClause(backward, false); err != nil {
			return Lit{}, asClauseErrOK(err)
		}
		return r, nil

	case diffExpr:
		r, rNeg, err := m.newBoolVar()
		if err != nil {
			return Lit{}, err
		}
		// r -> y - x <= k
		if _, err := m.stnTh.AddEdge(stn.Edge{Source: e.x, Target: e.y, Weight: e.k, Enabler: r}); err != nil {
			return Lit{}, asContradictionOK(err)
		}
		// !r -> y - x >= k+1, i.e. x - y <= -k-1
		if _, err := m.stnTh.AddEdge(stn.Edge{Source: e.y, Target: e.x, Weight: -e.k - 1, Enabler: rNeg}); err != nil {
			return Lit{}, asContradictionOK(err)
		}
		return r, nil

	case linearExpr:
		r, rNeg, err := m.newBoolVar()
		if err != nil {
			return Lit{}, err
		}
		// r -> Σ terms <= k
		if _, err := m.linTh.AddConstraint(linear.Constraint{Terms: e.terms, Constant: -e.k, Enabler: r}); err != nil {
			return Lit{}, asContradictionOK(err)
		}
		// !r -> Σ terms >= k+1, i.e. Σ (-terms) <= -k-1
		negated := make([]linear.Term, len(e.terms))
		for i, t := range e.terms {
			negated[i] = linear.Term{Coeff: -t.Coeff, Var: t.Var, OrZero: t.OrZero}
		}
		if _, err := m.linTh.AddConstraint(linear.Constraint{Terms: negated, Constant: e.k + 1, Enabler: rNeg}); err != nil {
			return Lit{}, asContradictionOK(err)
		}
		return r, nil

	case eqExpr:
		r1, err := m.Reify(diffExpr{y: e.b, x: e.a, k: 0})
		if err != nil {
			return Lit{}, err
		}
		r2, err := m.Reify(diffExpr{y: e.a, x: e.b, k: 0})
		if err != nil {
			return Lit{}, err
		}
		return m.Reify(andExpr{lits: []Lit{r1, r2}})

	case neqExpr:
		r, err := m.Reify(eqExpr{a: e.a, b: e.b})
		if err != nil {
			return Lit{}, err
		}
		return r.Negation(), nil

	case eqConstExpr:
		return m.Reify(andExpr{lits: []Lit{
			domain.PlusVar(e.v).Leq(e.c),
			domain.MinusVar(e.v).Leq(-e.c),
		}})

	default:
		return Lit{}, fmt.Errorf("corestn: unknown ReifiedExpr %T", expr)
	}
}

// asContradictionOK turns a root-level *domain.Contradiction into a nil
// error (the constraint is simply unsatisfiable; Solver.Solve will discover
// and report that), passing any other error through unchanged.
func asContradictionOK(err error) error {
	if err == nil {
		return nil
	}
	var contr *domain.Contradiction
	if errors.As(err, &contr) {
		return nil
	}
	return err
}

func asClauseErrOK(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, satprop.ErrEmptyClause) {
		return nil
	}
	var contr *domain.Contradiction
	if errors.As(err, &contr) {
		return nil
	}
	return err
}
