package stn

import (
	"github.com/rhartert/yagh"

	"github.com/mhorvath/corestn/internal/domain"
)

// theoryPropagateBounds is the cheap theory-propagation check (bounds
// level): whenever a bound tightens, every potential (possibly still
// inactive) out-edge from it is checked for whether activating it would
// immediately close a negative cycle back through the origin. If so, the
// edge is proven permanently inactive and its enabler is set false
// (original_source tnet/src/theory.rs theory_propagate_bound).
//
// The distance from any signed variable to the origin is just its own raw
// bound (spec §4.B's origin is the permanently-zero ZeroVar), which is why
// this check needs no graph search at all.
func (t *Theory) theoryPropagateBounds(bound domain.Lit) error {
	x := bound.SignedVar()
	if int(x) >= len(t.forward) {
		return nil
	}
	distOX := bound.Value()

	for _, cIdx := range t.forward[x] {
		c := t.constraints[cIdx]
		edge := t.edges[c.edgeIdx]
		if edge.Enabler.IsTrueConst() {
			continue // a permanently active edge cannot be disabled
		}
		if t.store.Entails(edge.Enabler.Negation()) {
			continue // already known inactive
		}

		ySym := c.to.Neg()
		distYO := t.store.BoundOf(ySym)
		cycleLength := distOX + c.weight + distYO

		if cycleLength < 0 {
			// The two recorded bounds (spec §4.E) are exactly bound and
			// ySym's current bound: their sum with the static edge weight is
			// what proves the cycle negative, so that pair of literals is the
			// explanation for the disabled enabler. Recorded on a side trail
			// (theoryExplanations) rather than reused as a dirConstraint-index
			// payload: that payload means something else entirely for the
			// core propagation path (see Explain).
			expl := []domain.Lit{bound, ySym.Leq(distYO)}
			payload := t.recordTheoryExplanation(expl)

			// Disabling the enabler is itself just another bound tightening:
			// the search driver's dispatch loop (spec §4.G) will hand the
			// resulting event back to every reasoner, including this one and
			// satprop, on its next round.
			if _, err := t.store.Set(edge.Enabler.Negation(), domain.InferenceCause(domain.ReasonerSTN, payload)); err != nil {
				return err
			}
		}
	}
	return nil
}

// distancesFrom computes true shortest-path distances in the active-edge
// graph from start to every reachable signed variable, using Dijkstra with
// Johnson's reduced costs: since the current bounds already satisfy every
// active edge, weight(u,v) + BoundOf(u) - BoundOf(v) is always >= 0, so
// Dijkstra can run directly on the reduced weights and the true distance is
// recovered by undoing the reweighting.
//
// via records, for every node reached other than start, the dirConstraint
// index of the edge last used to relax it — enough to walk the shortest path
// back to start afterward and collect the active edges it actually depends
// on (pathEnablers), which is what theoryPropagateEdges needs to explain the
// literals it derives.
func (t *Theory) distancesFrom(start domain.SignedVar) (dist map[domain.SignedVar]int32, via map[domain.SignedVar]int) {
	universe := 2 * t.store.NumVars()
	dist = map[domain.SignedVar]int32{}
	via = map[domain.SignedVar]int{}
	pq := yagh.New[int32](0)
	pq.GrowBy(universe)
	pq.Put(int(start), 0)

	for {
		item, ok := pq.Pop()
		if !ok {
			break
		}
		u := domain.SignedVar(item.Elem)
		if _, seen := dist[u]; seen {
			continue
		}
		reducedDu := item.Priority
		trueDu := reducedDu + t.store.BoundOf(start) - t.store.BoundOf(u)
		dist[u] = trueDu

		if int(u) >= len(t.forward) {
			continue
		}
		for _, cIdx := range t.forward[u] {
			c := t.constraints[cIdx]
			edge := t.edges[c.edgeIdx]
			if !t.store.Entails(edge.Enabler) {
				continue
			}
			if _, seen := dist[c.to]; seen {
				continue
			}
			reducedWeight := c.weight + t.store.BoundOf(c.from) - t.store.BoundOf(c.to)
			pq.Put(int(c.to), reducedDu+reducedWeight)
			via[c.to] = cIdx
		}
	}
	return dist, via
}

// pathEnablers walks via-pointers backward from node to a distancesFrom
// origin, collecting every traversed edge's non-constant enabler: the
// literals whose conjunction justifies the recorded distance to node.
func (t *Theory) pathEnablers(via map[domain.SignedVar]int, node domain.SignedVar) []domain.Lit {
	var out []domain.Lit
	for {
		cIdx, ok := via[node]
		if !ok {
			return out
		}
		c := t.constraints[cIdx]
		edge := t.edges[c.edgeIdx]
		if !edge.Enabler.IsTrueConst() {
			out = append(out, edge.Enabler)
		}
		node = c.from
	}
}

// theoryPropagateEdges is the expensive theory-propagation check (edges
// level), run once when a new edge is activated: it finds every inactive
// edge that would close a negative cycle together with paths using the new
// edge, and disables it (original_source tnet/src/theory.rs
// theory_propagate_edge). successors/predecessors are expressed in the
// signed-variable space, where "predecessors of source" is computed as
// "successors of Neg(source)": the constraint graph is closed under
// negating both endpoints of every arc (every Edge contributes both its
// plus-view and minus-view dirConstraint), so forward reachability from
// Neg(source) corresponds exactly to reverse reachability into source.
func (t *Theory) theoryPropagateEdges(newConstraintIdx int) error {
	c := t.constraints[newConstraintIdx]
	newEdge := t.edges[c.edgeIdx]
	successors, succVia := t.distancesFrom(c.to)
	predecessors, predVia := t.distancesFrom(c.from.Neg())

	for pred, predDist := range predecessors {
		if int(pred) >= len(t.forward) {
			continue
		}
		for _, potentialIdx := range t.forward[pred] {
			potential := t.constraints[potentialIdx]
			potentialEdge := t.edges[potential.edgeIdx]
			if t.store.Entails(potentialEdge.Enabler.Negation()) {
				continue // already known inactive
			}
			forwardDist, ok := successors[potential.to.Neg()]
			if !ok {
				continue
			}
			backDist := predDist + potential.weight
			totalDist := backDist + c.weight + forwardDist

			if totalDist < 0 {
				// The path's explanation is every active edge's enabler along
				// the predecessor leg (origin to pred), the newly activated
				// edge that links the two legs, and every active edge's
				// enabler along the successor leg (c.to to potential's far
				// endpoint) — exactly the set of facts that would have to be
				// undone for this path's total distance to stop being
				// negative. potential's own weight is a static edge property,
				// not a literal, and potentialEdge's enabler is the literal
				// being derived, so neither belongs in its own explanation.
				expl := t.pathEnablers(predVia, pred)
				if !newEdge.Enabler.IsTrueConst() {
					expl = append(expl, newEdge.Enabler)
				}
				expl = append(expl, t.pathEnablers(succVia, potential.to.Neg())...)
				payload := t.recordTheoryExplanation(expl)

				if _, err := t.store.Set(potentialEdge.Enabler.Negation(), domain.InferenceCause(domain.ReasonerSTN, payload)); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
