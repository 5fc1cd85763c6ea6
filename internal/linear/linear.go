// Package linear implements the bounds-consistency reasoner for linear sum
// constraints (spec §4's supplemented linear reasoner, grounded on the
// LinearTerm/LinearSum shape of original_source/solver/src/model/lang/linear.rs,
// with the propagation itself following the standard sum bounds-consistency
// technique since the original's reasoner file carried no propagation body
// to port): `Σ coeff_i * var_i + constant <= 0`, active only while an
// optional Enabler is entailed.
package linear

import (
	"fmt"

	"github.com/mhorvath/corestn/internal/domain"
	"github.com/mhorvath/corestn/internal/watch"
)

// Term is one `coeff * var` summand. OrZero marks a term belonging to an
// optional variable that should be treated as contributing zero whenever its
// variable is absent, mirroring LinearTerm.or_zero in the original model.
type Term struct {
	Coeff  int32
	Var    domain.Var
	OrZero bool
}

// depSignedVar returns the signed variable whose bound determines this
// term's maximum contribution to the sum: a positive coefficient is driven
// by the variable's upper bound, a negative one by its lower bound.
func (t Term) depSignedVar() domain.SignedVar {
	if t.Coeff > 0 {
		return domain.PlusVar(t.Var)
	}
	return domain.MinusVar(t.Var)
}

func (t Term) absCoeff() int32 {
	if t.Coeff < 0 {
		return -t.Coeff
	}
	return t.Coeff
}

// Constraint is one registered `Σ coeff_i*var_i + Constant <= 0`, gated by
// Enabler (pass domain.TRUE for an unconditional constraint).
type Constraint struct {
	Terms    []Term
	Constant int32
	Enabler  domain.Lit
}

type propTerm struct {
	constraintIdx int
	termIdx       int
}

// Theory is the linear-sum reasoner. It registers itself with the domain
// store as the Explainer for domain.ReasonerLinear.
type Theory struct {
	store *domain.Store

	constraints []Constraint
	terms       []propTerm // flattened (constraintIdx, termIdx) pairs, one per watch payload

	watches       *watch.Lists[int] // keyed by depSignedVar of a term, payload indexes into terms
	pendingEnable *watch.Lists[int] // keyed by Enabler's signed var, payload is constraintIdx
	active        []bool            // parallel to constraints
	termBase      []int             // parallel to constraints: offset of its terms in t.terms, once activated
}

// New returns an empty linear reasoner bound to store.
func New(store *domain.Store) *Theory {
	t := &Theory{
		store:         store,
		watches:       watch.New[int](),
		pendingEnable: watch.New[int](),
	}
	store.RegisterExplainer(domain.ReasonerLinear, t)
	return t
}

// AddConstraint registers c. If its enabler is already entailed the
// constraint is activated and propagated immediately; a detected
// contradiction is returned as a *domain.Contradiction. Otherwise the
// constraint waits, watching its enabler literal.
func (t *Theory) AddConstraint(c Constraint) (int, error) {
	idx := len(t.constraints)
	t.constraints = append(t.constraints, c)
	t.active = append(t.active, false)
	t.termBase = append(t.termBase, -1)

	if t.store.Entails(c.Enabler) {
		return idx, t.activate(idx)
	}
	t.pendingEnable.Watch(int(c.Enabler.SignedVar()), c.Enabler.Value(), idx)
	return idx, nil
}

func (t *Theory) activate(constraintIdx int) error {
	t.active[constraintIdx] = true
	c := t.constraints[constraintIdx]
	t.termBase[constraintIdx] = len(t.terms)
	for ti, term := range c.Terms {
		payload := len(t.terms)
		t.terms = append(t.terms, propTerm{constraintIdx: constraintIdx, termIdx: ti})
		t.watches.Watch(int(term.depSignedVar().Neg()), domain.MaxValue, payload)
	}
	return t.propagate(constraintIdx)
}

// OnEnablerChange must be called by the search driver whenever sv's bound
// tightens to newBound, activating any constraint waiting on this literal.
func (t *Theory) OnEnablerChange(sv domain.SignedVar, newBound int32) error {
	var activationErr error
	t.pendingEnable.Notify(int(sv), newBound, func(e watch.Entry[int]) (bool, bool) {
		activationErr = t.activate(e.Payload)
		return false, activationErr == nil
	})
	return activationErr
}

// OnBoundChange must be called by the search driver whenever sv's bound
// tightens; it re-runs propagation on every active constraint with a term
// depending on sv.
func (t *Theory) OnBoundChange(sv domain.SignedVar, newBound int32) (bool, error) {
	touched := map[int]bool{}
	ok := t.watches.Notify(int(sv), domain.MaxValue, func(e watch.Entry[int]) (bool, bool) {
		touched[t.terms[e.Payload].constraintIdx] = true
		return true, true
	})
	if !ok {
		return false, fmt.Errorf("linear: unexpected watch abort")
	}
	for idx := range touched {
		if err := t.propagate(idx); err != nil {
			return false, err
		}
	}
	return true, nil
}

// termContribution reports the term's minimum possible contribution to the
// sum under the current bounds (read from the opposite view of
// depSignedVar), honoring or_zero: an optional term known absent contributes
// exactly 0, and one whose presence is undecided counts as min(rawMin, 0)
// since it might end up absent.
func (t *Theory) termContribution(term Term) int32 {
	raw := -term.absCoeff() * t.store.BoundOf(term.depSignedVar().Neg())
	if !term.OrZero {
		return raw
	}
	presence := t.store.Presence(term.Var)
	if t.store.Entails(presence.Negation()) {
		return 0
	}
	if raw > 0 {
		return 0
	}
	return raw
}

// propagate runs bounds-consistency on one active constraint: for each term,
// it computes the slack left over by every other term's current minimum
// contribution and tightens that term's bound to fit within it
// (original_source/solver/src/model/lang/linear.rs's LinearSum shape, the
// standard sum-constraint bounds propagation).
func (t *Theory) propagate(constraintIdx int) error {
	c := t.constraints[constraintIdx]
	if !t.active[constraintIdx] {
		return nil
	}

	total := int64(c.Constant)
	contributions := make([]int64, len(c.Terms))
	for i, term := range c.Terms {
		contributions[i] = int64(t.termContribution(term))
		total += contributions[i]
	}

	for i, term := range c.Terms {
		if term.Coeff == 0 {
			continue
		}
		othersMin := total - contributions[i]
		slack := -othersMin // Σ <= 0  =>  thisTerm <= -othersMin
		newBound := floorDiv(slack, int64(term.absCoeff()))
		if newBound > int64(domain.MaxValue) {
			continue
		}
		sv := term.depSignedVar()
		if newBound >= int64(t.store.BoundOf(sv)) {
			continue
		}
		clamped := newBound
		if clamped < int64(domain.MinValue) {
			clamped = int64(domain.MinValue)
		}
		payload := t.termBase[constraintIdx] + i
		_, err := t.store.Set(sv.Leq(int32(clamped)), domain.InferenceCause(domain.ReasonerLinear, uint32(payload)))
		if err != nil {
			return err
		}
	}
	return nil
}

// floorDiv computes floor(a/b) for b > 0, unlike Go's native truncating /.
func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// Explain implements domain.Explainer for domain.ReasonerLinear: the
// literals of every other term's current bound on the side that gives its
// minimum contribution (or its absence, for an or_zero term known absent)
// plus the constraint's enabler, whose conjunction forced the inferred
// literal.
func (t *Theory) Explain(lit domain.Lit, payload uint32) []domain.Lit {
	pt := t.terms[payload]
	c := t.constraints[pt.constraintIdx]

	out := make([]domain.Lit, 0, len(c.Terms))
	if !c.Enabler.IsTrueConst() {
		out = append(out, c.Enabler)
	}
	for i, term := range c.Terms {
		if i == pt.termIdx {
			continue
		}
		if term.OrZero {
			presence := t.store.Presence(term.Var)
			if t.store.Entails(presence.Negation()) {
				out = append(out, presence.Negation())
				continue
			}
		}
		sv := term.depSignedVar().Neg()
		out = append(out, sv.Leq(t.store.BoundOf(sv)))
	}
	return out
}
