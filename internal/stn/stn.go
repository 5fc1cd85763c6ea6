// Package stn implements the incremental Simple Temporal Network reasoner
// (spec §4.F): difference constraints `target - source <= weight`,
// propagated with Cesta's incremental algorithm, plus two levels of theory
// propagation that preemptively disable edges whose activation would close
// a negative cycle (spec §6, grounded on original_source/tnet/src/theory.rs).
package stn

import (
	"fmt"

	"github.com/mhorvath/corestn/internal/domain"
	"github.com/mhorvath/corestn/internal/watch"
)

// TheoryPropagationLevel selects how much of the cheap/expensive theory
// propagation machinery runs.
type TheoryPropagationLevel int

const (
	// LevelNone disables theory propagation entirely; only the core
	// difference-constraint propagation runs.
	LevelNone TheoryPropagationLevel = iota
	// LevelBounds runs the cheap O(out-degree) check on every bound change.
	LevelBounds
	// LevelEdges runs the expensive Dijkstra-based check on every new edge.
	LevelEdges
	// LevelFull runs both.
	LevelFull
)

func (l TheoryPropagationLevel) bounds() bool { return l == LevelBounds || l == LevelFull }
func (l TheoryPropagationLevel) edges() bool  { return l == LevelEdges || l == LevelFull }

// Edge is a difference constraint `target - source <= weight`, active only
// while Enabler is entailed true. Pass domain.TRUE for a constraint that is
// never conditional.
type Edge struct {
	Source, Target domain.Var
	Weight         int32
	Enabler        domain.Lit
}

// dirConstraint is one signed-variable-space arc derived from an Edge: a
// tightening of `from` down to k implies `to` can be tightened to k+weight.
// Every Edge contributes exactly two of these (spec §4.B's signed-variable
// encoding makes the upper-bound and lower-bound propagation directions
// symmetric): PlusVar(source)->PlusVar(target) and
// MinusVar(target)->MinusVar(source), both carrying the same weight.
type dirConstraint struct {
	from, to domain.SignedVar
	weight   int32
	edgeIdx  int
}

// Theory is the STN reasoner. It registers itself with the domain store as
// the Explainer for domain.ReasonerSTN.
type Theory struct {
	store *domain.Store

	edges       []Edge
	constraints []dirConstraint

	// forward indexes constraints by their `from` signed variable,
	// regardless of whether the owning edge is currently active: theory
	// propagation must see inactive edges too.
	forward [][]int

	// active watches only the constraints whose edge is currently known
	// active; the core propagation loop only ever walks these.
	active *watch.Lists[int]

	// pendingEnable watches each edge's enabler literal so the edge moves
	// into active the moment it is entailed.
	pendingEnable *watch.Lists[int]

	level TheoryPropagationLevel

	queue   []domain.SignedVar
	pending map[domain.SignedVar]bool

	// theoryExplanations holds the explanation literals for inferences made
	// by theoryPropagateBounds/theoryPropagateEdges, recorded at the moment
	// they are derived (spec §4.E: the theory-propagation bound cause is
	// explained by "the two recorded bounds", the path cause by the
	// triggering path's edge enablers) rather than reconstructed later from
	// a dirConstraint index, which is what the core bound-propagation cause
	// payload means and would be the wrong thing to reconstruct here.
	// InferenceCause payloads into this slice are tagged with
	// theoryExplainBit so Explain can tell the two payload spaces apart.
	theoryExplanations [][]domain.Lit
}

// theoryExplainBit tags an InferenceCause payload as an index into
// theoryExplanations rather than a dirConstraint index. Safe as long as the
// STN never accumulates anywhere near 1<<31 constraints.
const theoryExplainBit uint32 = 1 << 31

func (t *Theory) recordTheoryExplanation(expl []domain.Lit) uint32 {
	idx := len(t.theoryExplanations)
	t.theoryExplanations = append(t.theoryExplanations, expl)
	return uint32(idx) | theoryExplainBit
}

// New returns an empty STN reasoner bound to store.
func New(store *domain.Store, level TheoryPropagationLevel) *Theory {
	t := &Theory{
		store:         store,
		active:        watch.New[int](),
		pendingEnable: watch.New[int](),
		level:         level,
		pending:       map[domain.SignedVar]bool{},
	}
	store.RegisterExplainer(domain.ReasonerSTN, t)
	return t
}

func (t *Theory) ensureForward(sv domain.SignedVar) {
	for domain.SignedVar(len(t.forward)) <= sv {
		t.forward = append(t.forward, nil)
	}
}

// AddEdge registers a new difference constraint. If its enabler is already
// entailed true, the edge is immediately activated and propagated; a
// negative cycle closing right now is reported as a *domain.Contradiction.
// Otherwise the edge waits, watching its enabler literal.
func (t *Theory) AddEdge(e Edge) (int, error) {
	idx := len(t.edges)
	t.edges = append(t.edges, e)

	fwd := dirConstraint{from: domain.PlusVar(e.Source), to: domain.PlusVar(e.Target), weight: e.Weight, edgeIdx: idx}
	bwd := dirConstraint{from: domain.MinusVar(e.Target), to: domain.MinusVar(e.Source), weight: e.Weight, edgeIdx: idx}
	fwdIdx := len(t.constraints)
	t.constraints = append(t.constraints, fwd, bwd)
	bwdIdx := fwdIdx + 1

	t.ensureForward(fwd.from)
	t.ensureForward(bwd.from)
	t.forward[fwd.from] = append(t.forward[fwd.from], fwdIdx)
	t.forward[bwd.from] = append(t.forward[bwd.from], bwdIdx)

	if t.store.Entails(e.Enabler) {
		return idx, t.activate(fwdIdx, bwdIdx)
	}

	t.pendingEnable.Watch(int(e.Enabler.SignedVar()), e.Enabler.Value(), fwdIdx)
	return idx, nil
}

func (t *Theory) activate(fwdIdx, bwdIdx int) error {
	t.active.Watch(int(t.constraints[fwdIdx].from), domain.MaxValue, fwdIdx)
	t.active.Watch(int(t.constraints[bwdIdx].from), domain.MaxValue, bwdIdx)

	for _, cIdx := range []int{fwdIdx, bwdIdx} {
		c := t.constraints[cIdx]
		candidate := t.store.BoundOf(c.from) + c.weight
		changed, err := t.store.Set(c.to.Leq(candidate), domain.InferenceCause(domain.ReasonerSTN, uint32(cIdx)))
		if err != nil {
			return err
		}
		if changed {
			if err := t.runPropagationLoop(c.to, c.to); err != nil {
				return err
			}
		}
		if t.level.edges() {
			if err := t.theoryPropagateEdges(cIdx); err != nil {
				return err
			}
		}
	}
	return nil
}

// OnEnablerChange must be called by the search driver whenever sv's bound
// tightens to newBound, so that any edge waiting on this literal can
// activate.
func (t *Theory) OnEnablerChange(sv domain.SignedVar, newBound int32) error {
	var activationErr error
	t.pendingEnable.Notify(int(sv), newBound, func(entry watch.Entry[int]) (bool, bool) {
		fwdIdx := entry.Payload
		bwdIdx := fwdIdx + 1
		activationErr = t.activate(fwdIdx, bwdIdx)
		return false, activationErr == nil
	})
	return activationErr
}

// OnBoundChange must be called by the search driver whenever sv's bound
// tightens to newBound, running both the core propagation and (depending on
// level) the bounds-level theory propagation.
func (t *Theory) OnBoundChange(sv domain.SignedVar, newBound int32) error {
	if domain.SignedVar(len(t.forward)) > sv && t.active.Len(int(sv)) > 0 {
		if err := t.runPropagationLoop(sv, noCycleCheck); err != nil {
			return err
		}
	}
	if t.level.bounds() {
		if err := t.theoryPropagateBounds(sv.Leq(newBound)); err != nil {
			return err
		}
	}
	return nil
}

// noCycleCheck tells runPropagationLoop not to watch for a returning cycle:
// ordinary bound-change propagation may legitimately revisit any variable.
const noCycleCheck domain.SignedVar = -1

// runPropagationLoop is Cesta's incremental propagation (original_source
// tnet/src/theory.rs run_propagation_loop): a worklist BFS over active
// constraints. When cycleOrigin is not noCycleCheck, propagation looping
// back to re-tighten cycleOrigin proves a negative cycle through it (used
// right after activating a new edge, mirroring propagate_new_edge's
// cycle_on_update flag).
func (t *Theory) runPropagationLoop(start domain.SignedVar, cycleOrigin domain.SignedVar) error {
	checkCycle := cycleOrigin != noCycleCheck
	t.queue = t.queue[:0]
	for k := range t.pending {
		delete(t.pending, k)
	}
	t.queue = append(t.queue, start)
	t.pending[start] = true

	var setErr error
	for len(t.queue) > 0 {
		source := t.queue[0]
		t.queue = t.queue[1:]
		if !t.pending[source] {
			continue
		}
		delete(t.pending, source)

		sourceBound := t.store.BoundOf(source)
		if int(source) >= len(t.forward) {
			continue
		}
		ok := t.active.Notify(int(source), domain.MaxValue, func(e watch.Entry[int]) (bool, bool) {
			c := t.constraints[e.Payload]
			edge := t.edges[c.edgeIdx]
			if !t.store.Entails(edge.Enabler) {
				return true, true // shouldn't normally happen, but stay defensive
			}
			candidate := sourceBound + c.weight
			changed, err := t.store.Set(c.to.Leq(candidate), domain.InferenceCause(domain.ReasonerSTN, uint32(e.Payload)))
			if err != nil {
				setErr = err
				return true, false
			}
			if changed {
				if checkCycle && c.to == cycleOrigin {
					return true, false
				}
				t.queue = append(t.queue, c.to)
				t.pending[c.to] = true
			}
			return true, true
		})
		if !ok {
			if setErr != nil {
				return setErr
			}
			if checkCycle {
				return t.extractCycle(cycleOrigin)
			}
			return fmt.Errorf("stn: propagation failed without a cycle-detection context")
		}
	}
	return nil
}

// extractCycle walks the chain of STN-caused events backward from vb until
// it returns to vb, collecting every edge's enabler along the way: their
// conjunction is exactly the negative cycle (original_source
// tnet/src/theory.rs extract_cycle).
func (t *Theory) extractCycle(vb domain.SignedVar) error {
	expl := make([]domain.Lit, 0, 4)
	curr := vb
	for {
		value := t.store.BoundOf(curr)
		lit := curr.Leq(value)
		idx, ok := t.store.ImplyingEvent(lit)
		if !ok {
			return fmt.Errorf("stn: extractCycle: no implying event for %v", lit)
		}
		cause := t.store.EventAt(idx).Cause
		if cause.Kind != domain.CauseInference || cause.Reasoner != domain.ReasonerSTN {
			return fmt.Errorf("stn: extractCycle: event for %v was not caused by the STN reasoner", lit)
		}
		if cause.Payload&theoryExplainBit != 0 {
			return fmt.Errorf("stn: extractCycle: event for %v was a theory-propagation inference, not a dirConstraint", lit)
		}
		c := t.constraints[cause.Payload]
		edge := t.edges[c.edgeIdx]
		if !edge.Enabler.IsTrueConst() {
			expl = append(expl, edge.Enabler)
		}
		curr = c.from
		if curr == vb {
			return &domain.Contradiction{Explanation: expl}
		}
	}
}

// Explain implements domain.Explainer for domain.ReasonerSTN. Two distinct
// kinds of inference share this entry point, distinguished by
// theoryExplainBit on payload:
//   - core bound propagation (activate/runPropagationLoop): the literal that
//     caused lit is exactly the edge's enabler (if not the trivial TRUE
//     constant) plus the source-side literal at the bound the edge
//     propagated from, reconstructed from the dirConstraint payload points
//     to.
//   - theory propagation (theoryPropagateBounds/theoryPropagateEdges): the
//     explanation was already recorded verbatim at derivation time, since it
//     isn't reconstructable from a single dirConstraint index.
func (t *Theory) Explain(lit domain.Lit, payload uint32) []domain.Lit {
	if payload&theoryExplainBit != 0 {
		return t.theoryExplanations[payload&^theoryExplainBit]
	}
	c := t.constraints[payload]
	edge := t.edges[c.edgeIdx]
	out := make([]domain.Lit, 0, 2)
	out = append(out, c.from.Leq(lit.Value()-c.weight))
	if !edge.Enabler.IsTrueConst() {
		out = append(out, edge.Enabler)
	}
	return out
}
