package domain

import (
	"fmt"

	"github.com/mhorvath/corestn/internal/trail"
)

// Contradiction is returned by Set when committing a literal is provably
// impossible given the current bounds of a necessarily-present variable. Its
// Explanation is a multiset of currently-true literals whose conjunction is
// unsatisfiable (spec §4.C, §7).
type Contradiction struct {
	Explanation []Lit
}

func (c *Contradiction) Error() string {
	return fmt.Sprintf("domain: contradiction, explanation has %d literal(s)", len(c.Explanation))
}

// Explainer is implemented by every reasoner so that the domain store's 1-UIP
// engine can ask it to justify one of its own deductions. payload is whatever
// 32-bit value the reasoner attached to the Cause when it called Set.
type Explainer interface {
	Explain(lit Lit, payload uint32) []Lit
}

// Store is the domain store (spec §4.C): it owns every variable's bounds,
// the append-only event trail (via internal/trail), presence literals and
// their implication DAG, and the 1-UIP explanation engine.
type Store struct {
	bounds        []int32 // indexed by SignedVar
	lastEventIdx  []int   // indexed by SignedVar; -1 if never touched since creation
	presence      []Lit   // indexed by Var
	eventLevels   []int   // parallel to trail events
	trail         *trail.Trail[Event]
	explainers    [ReasonerIDExternal]Explainer
	hasExplainer  [ReasonerIDExternal]bool
	absenceCascade map[Lit][]Lit

	// Reasoner dispatch detects quiescence (spec §4.G) by comparing
	// NumEvents() before and after a full round; the store keeps no extra
	// field for it.
}

// NewStore returns a store with the two reserved sentinel variables already
// created: Var 0 (constant zero, bounds [0,0]) and Var 1 (constant one,
// bounds [1,1]).
func NewStore() *Store {
	s := &Store{
		trail:          trail.New[Event](),
		absenceCascade: map[Lit][]Lit{},
	}
	s.mustNewVar(0, 0, TRUE) // ZeroVar
	s.mustNewVar(1, 1, TRUE) // OneVar
	return s
}

func (s *Store) mustNewVar(lb, ub int32, presence Lit) Var {
	v, err := s.NewVar(lb, ub, presence)
	if err != nil {
		panic(err)
	}
	return v
}

// NewVar creates a fresh variable with initial bounds [lb, ub] and the given
// presence literal (pass TRUE for a non-optional variable). It records the
// two initial bound events with CauseEncoding.
func (s *Store) NewVar(lb, ub int32, presence Lit) (Var, error) {
	if lb > ub {
		return 0, fmt.Errorf("domain: NewVar: lb=%d > ub=%d", lb, ub)
	}
	if lb < MinValue || ub > MaxValue {
		return 0, fmt.Errorf("domain: NewVar: bounds [%d,%d] outside safe range [%d,%d]", lb, ub, MinValue, MaxValue)
	}

	v := Var(len(s.presence))
	s.presence = append(s.presence, presence)

	s.bounds = append(s.bounds, 0, 0)    // placeholders, set below via pushEvent
	s.lastEventIdx = append(s.lastEventIdx, -1, -1)

	plus := PlusVar(v)
	minus := MinusVar(v)
	s.commitInitial(plus, ub)
	s.commitInitial(minus, -lb)

	return v, nil
}

func (s *Store) commitInitial(sv SignedVar, value int32) {
	idx := s.trail.Len()
	s.trail.Push(Event{
		SignedVar:     sv,
		Previous:      MaxValue,
		PreviousEvent: -1,
		New:           value,
		Cause:         EncodingCause(),
	})
	s.eventLevels = append(s.eventLevels, 0)
	s.bounds[sv] = value
	s.lastEventIdx[sv] = idx
}

// Presence returns v's presence literal.
func (s *Store) Presence(v Var) Lit { return s.presence[v] }

// NumVars returns the number of variables created so far (including the two
// sentinels).
func (s *Store) NumVars() int { return len(s.presence) }

// UB returns the current upper bound of v.
func (s *Store) UB(v Var) int32 { return s.bounds[PlusVar(v)] }

// LB returns the current lower bound of v.
func (s *Store) LB(v Var) int32 { return -s.bounds[MinusVar(v)] }

// BoundOf returns the raw current bound of a signed variable: its distance
// from the origin in the signed-variable algebra (spec §4.B). This is what
// reasoners like the STN theory use as a potential function for Dijkstra
// with reduced costs.
func (s *Store) BoundOf(sv SignedVar) int32 { return s.bounds[sv] }

// Entails reports whether the current bounds entail lit.
func (s *Store) Entails(lit Lit) bool {
	return s.bounds[lit.sv] <= lit.value
}

// Value reports the entailment status of lit: True if entailed, False if its
// negation is entailed, Unknown otherwise.
func (s *Store) Value(lit Lit) LBool {
	if s.Entails(lit) {
		return True
	}
	if s.Entails(lit.Negation()) {
		return False
	}
	return Unknown
}

// NumEvents returns the total number of events on the trail.
func (s *Store) NumEvents() int { return s.trail.Len() }

// EventAt returns the event at the given trail index.
func (s *Store) EventAt(i int) Event { return s.trail.At(i) }

// DecisionLevel returns the current decision level (0 at the root).
func (s *Store) DecisionLevel() int { return s.trail.Level() }

// SaveState records a savepoint and returns the new decision level.
func (s *Store) SaveState() int { return s.trail.SaveState() }

func (s *Store) restoreEvent(e Event) {
	s.bounds[e.SignedVar] = e.Previous
	s.lastEventIdx[e.SignedVar] = e.PreviousEvent
	s.eventLevels = s.eventLevels[:len(s.eventLevels)-1]
}

// RestoreLast undoes every event back to the last savepoint.
func (s *Store) RestoreLast() {
	s.trail.RestoreLast(s.restoreEvent)
}

// RestoreTo undoes events until the decision level reaches level.
func (s *Store) RestoreTo(level int) {
	for s.DecisionLevel() > level {
		s.RestoreLast()
	}
}

// TouchedVar is one variable undone by RestoreToCollecting, together with the
// signed view of the most recent undone event touching it (events are
// visited latest-first, so the first event seen for a variable is its most
// recent one): the search driver uses LastSignedVar's polarity as a
// phase-saving hint when it reinserts the variable as a decision candidate.
type TouchedVar struct {
	Var           Var
	LastSignedVar SignedVar
}

// RestoreToCollecting undoes events until the decision level reaches level,
// like RestoreTo, and returns every distinct variable touched by an undone
// event so the search driver can reinsert them as decision candidates.
func (s *Store) RestoreToCollecting(level int) []TouchedVar {
	touched := map[Var]SignedVar{}
	for s.DecisionLevel() > level {
		s.trail.RestoreLast(func(e Event) {
			if _, seen := touched[e.SignedVar.Variable()]; !seen {
				touched[e.SignedVar.Variable()] = e.SignedVar
			}
			s.restoreEvent(e)
		})
	}
	out := make([]TouchedVar, 0, len(touched))
	for v, sv := range touched {
		out = append(out, TouchedVar{Var: v, LastSignedVar: sv})
	}
	return out
}

// RegisterExplainer attaches the Explainer for inferences tagged with id. It
// must be called once per reasoner before any conflict it causes is
// analyzed.
func (s *Store) RegisterExplainer(id ReasonerID, ex Explainer) {
	s.explainers[id] = ex
	s.hasExplainer[id] = true
}

// AddPresenceImplication records that child implies parent: whenever parent
// is proven false, child is inferred false too (spec §3's presence DAG).
func (s *Store) AddPresenceImplication(child, parent Lit) {
	s.absenceCascade[parent.Negation()] = append(s.absenceCascade[parent.Negation()], child)
}

// ImpliesPresence reports whether a is known (via the recorded implication
// DAG) to imply b.
func (s *Store) ImpliesPresence(a, b Lit) bool {
	if a == b {
		return true
	}
	visited := map[Lit]bool{a: true}
	stack := []Lit{a}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for parent := range s.parentsOf(cur) {
			if parent == b {
				return true
			}
			if !visited[parent] {
				visited[parent] = true
				stack = append(stack, parent)
			}
		}
	}
	return false
}

// parentsOf returns the set of literals cur is known to imply, derived from
// the reverse (absenceCascade) index.
func (s *Store) parentsOf(cur Lit) map[Lit]bool {
	out := map[Lit]bool{}
	for negParent, children := range s.absenceCascade {
		for _, c := range children {
			if c == cur {
				out[negParent.Negation()] = true
			}
		}
	}
	return out
}

// Set attempts to tighten lit's signed variable to lit.value. It returns
// (false, nil) if lit already held, (true, nil) if the bound was tightened
// (or, for an optional variable, if tightening would have emptied its domain
// and the store instead committed an inference that the variable is absent),
// and (false, *Contradiction) if the variable is necessarily present and the
// tightening is impossible.
func (s *Store) Set(lit Lit, cause Cause) (bool, error) {
	if s.Entails(lit) {
		return false, nil
	}

	v := lit.Var()
	opp := lit.sv.Neg()
	oppCurr := s.bounds[opp]

	if int64(lit.value)+int64(oppCurr) < 0 {
		pres := s.presence[v]
		if s.Entails(pres) {
			expl := append(s.explainCause(lit, cause), opp.Leq(oppCurr))
			if !pres.IsTrueConst() {
				expl = append(expl, pres)
			}
			return false, &Contradiction{Explanation: expl}
		}

		notPresent := pres.Negation()
		if s.Entails(notPresent) {
			// Already known absent: the blocked update is moot, not an error.
			return false, nil
		}

		cascadeCause := Cause{
			Kind:          CausePresenceOfEmptyDomain,
			BlockedLit:    lit,
			BlockedReason: &cause,
		}
		cascadeCause.Reasoner = cause.Reasoner
		// BlockedOpposite captures the already-entailed literal that, combined
		// with the attempted lit, would have emptied v's domain.
		blockedOpposite := opp.Leq(oppCurr)
		_ = blockedOpposite
		return s.setWithOpposite(notPresent, cascadeCause, opp.Leq(oppCurr))
	}

	return s.commit(lit, cause)
}

// setWithOpposite commits notPresent, recording BlockedOpposite on the cause
// so the explanation engine can reconstruct it later.
func (s *Store) setWithOpposite(lit Lit, cause Cause, blockedOpposite Lit) (bool, error) {
	cause.blockedOppositeSet = true
	cause.BlockedOpposite = blockedOpposite
	return s.Set(lit, cause)
}

func (s *Store) commit(lit Lit, cause Cause) (bool, error) {
	sv := lit.sv
	idx := s.trail.Len()
	prevEvent := s.lastEventIdx[sv]
	s.trail.Push(Event{
		SignedVar:     sv,
		Previous:      s.bounds[sv],
		PreviousEvent: prevEvent,
		New:           lit.value,
		Cause:         cause,
	})
	s.eventLevels = append(s.eventLevels, s.trail.Level())
	s.bounds[sv] = lit.value
	s.lastEventIdx[sv] = idx

	if children, ok := s.absenceCascade[lit]; ok {
		for _, child := range children {
			scopeNeg := lit
			_, err := s.Set(child.Negation(), Cause{Kind: CauseScopeAbsence, ScopeNeg: scopeNeg})
			if err != nil {
				return true, err
			}
		}
	}

	return true, nil
}

// ImplyingEvent walks the chain of events touching lit's signed variable
// (via PreviousEvent) to find the one that first made lit true.
func (s *Store) ImplyingEvent(lit Lit) (int, bool) {
	idx := s.lastEventIdx[lit.sv]
	for idx != -1 {
		e := s.trail.At(idx)
		if e.MakesTrue(lit) {
			return idx, true
		}
		idx = e.PreviousEvent
	}
	return -1, false
}

// levelOfTrueLit returns the decision level at which lit (assumed entailed)
// became true.
func (s *Store) levelOfTrueLit(lit Lit) int {
	idx, ok := s.ImplyingEvent(lit)
	if !ok {
		return 0
	}
	return s.eventLevels[idx]
}

// LevelOf returns the decision level at which lit (which must currently be
// entailed) became true. Reasoners use it to pick which literal of a learned
// clause to watch (spec §4.D).
func (s *Store) LevelOf(lit Lit) int { return s.levelOfTrueLit(lit) }
