// Package order implements the VSIDS-style variable ordering used by the
// search driver to pick the next decision literal (spec §4.E), adapted from
// a boolean-SAT activity heap to the bounded-integer variables of the domain
// store: instead of choosing a truth value for a boolean variable, it
// chooses which bound of an integer variable to commit to first.
package order

import (
	"github.com/rhartert/yagh"

	"github.com/mhorvath/corestn/internal/domain"
)

// Phase records which side of a variable's domain was last committed to, so
// that later decisions on the same variable repeat it (phase saving).
type Phase int8

const (
	PhaseUnset Phase = iota
	PhaseLow         // decide v == LB(v)
	PhaseHigh        // decide v == UB(v)
)

// Heap is a decision-order heap over domain.Var, generalizing the teacher's
// VarOrder (internal/sat/ordering.go) from boolean variables to bounded
// integer ones.
type Heap struct {
	order *yagh.IntMap[float64]

	scores     []float64
	scoreInc   float64
	scoreDecay float64

	phases      []Phase
	phaseSaving bool
}

// NewHeap returns a heap with the given activity decay (typically close to
// but below 1) and phase-saving toggle.
func NewHeap(decay float64, phaseSaving bool) *Heap {
	return &Heap{
		order:       yagh.New[float64](0),
		scoreInc:    1,
		scoreDecay:  decay,
		phaseSaving: phaseSaving,
	}
}

// AddVar registers v (in declaration order; v must equal the number of
// variables already added) with an initial activity and preferred phase.
func (h *Heap) AddVar(initScore float64, initPhase Phase) {
	h.scores = append(h.scores, initScore)
	h.phases = append(h.phases, initPhase)

	varID := len(h.phases) - 1
	h.order.GrowBy(1)
	h.order.Put(varID, -initScore)
}

// Reinsert makes v a candidate again (called by the search driver whenever a
// backtrack unassigns it), recording the committed phase if phase saving is
// enabled.
func (h *Heap) Reinsert(v domain.Var, phase Phase) {
	if h.phaseSaving && phase != PhaseUnset {
		h.phases[v] = phase
	}
	h.order.Put(int(v), -h.scores[v])
}

// DecayScores scales down every variable's relative weight by bumping the
// shared increment, so that future BumpScore calls count for more than past
// ones.
func (h *Heap) DecayScores() {
	h.scoreInc /= h.scoreDecay
	if h.scoreInc > 1e100 {
		h.rescale()
	}
}

// BumpScore increases v's activity, used whenever v participates in a
// learned nogood (spec §4.E).
func (h *Heap) BumpScore(v domain.Var) {
	newScore := h.scores[v] + h.scoreInc
	h.scores[v] = newScore
	if h.order.Contains(int(v)) {
		h.order.Put(int(v), -newScore)
	}
	if newScore > 1e100 {
		h.rescale()
	}
}

func (h *Heap) rescale() {
	h.scoreInc *= 1e-100
	for v, s := range h.scores {
		newScore := s * 1e-100
		h.scores[v] = newScore
		if h.order.Contains(v) {
			h.order.Put(v, -newScore)
		}
	}
}

// PhaseFromSignedVar derives a phase-saving hint from the signed variable a
// just-undone trail event touched: the plus view tracks the upper bound, so
// an event there was narrowing v toward its low end, and the minus view
// narrows toward the high end (mirrors domain.Store.RestoreToCollecting's
// TouchedVar, spec §4.E).
func PhaseFromSignedVar(sv domain.SignedVar) Phase {
	if sv.IsPlus() {
		return PhaseLow
	}
	return PhaseHigh
}

// NextDecision pops the highest-activity variable that is still undecided
// (its domain is not a singleton and it is not known absent) and returns the
// literal that commits it to one side of its domain. It returns ok=false
// once every variable is either fixed or provably absent.
func (h *Heap) NextDecision(store *domain.Store) (lit domain.Lit, ok bool) {
	for {
		next, has := h.order.Pop()
		if !has {
			return domain.Lit{}, false
		}
		v := domain.Var(next.Elem)

		if store.Entails(store.Presence(v).Negation()) {
			continue // provably absent, nothing left to decide
		}
		lb, ub := store.LB(v), store.UB(v)
		if lb == ub {
			continue // already fixed
		}

		switch h.phases[v] {
		case PhaseHigh:
			return domain.MinusVar(v).Leq(-ub), true
		default:
			return domain.PlusVar(v).Leq(lb), true
		}
	}
}
