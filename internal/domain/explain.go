package domain

// explainCause returns the set of currently-true literals whose conjunction
// caused lit to become true under cause. It never returns lit itself: the
// antecedents are always earlier (lower trail position) than lit.
//
// A CauseEncoding literal is a root fact with no antecedents, so its
// explanation is empty. CauseDecision reaches this function only if a
// contradiction is raised against a decided literal, which would mean the
// search driver decided an already-impossible literal: that is an invariant
// violation, not a recoverable error (spec §4.C, §8 invariant 3).
func (s *Store) explainCause(lit Lit, cause Cause) []Lit {
	switch cause.Kind {
	case CauseEncoding:
		return nil

	case CauseDecision:
		panic("domain: explainCause called on a decision cause; brancher asserted an already-impossible literal")

	case CauseInference:
		if !s.hasExplainer[cause.Reasoner] {
			panic("domain: no Explainer registered for reasoner")
		}
		return s.explainers[cause.Reasoner].Explain(lit, cause.Payload)

	case CausePresenceOfEmptyDomain:
		out := s.explainCause(cause.BlockedLit, *cause.BlockedReason)
		if cause.blockedOppositeSet {
			out = append(out, cause.BlockedOpposite)
		}
		return out

	case CauseScopeAbsence:
		return []Lit{cause.ScopeNeg}

	default:
		panic("domain: unknown cause kind")
	}
}

// RefineExplanation performs first-UIP resolution (spec §4.C), mirroring the
// boolean CDCL analysis loop but generalized to bounded-integer signed
// variables: each SignedVar stands in for one side of a boolean-extended
// variable, so a variable can contribute at most one literal to the pending
// frontier at a time. It returns a learnt clause in disjunctive form (the
// negation of the first UIP at index 0, then the negations of the
// earlier-level antecedents) and the level to backjump to.
//
// If the store is already at decision level 0, conflict is itself the proof
// of unsatisfiability and is returned verbatim (as the conjunction it was
// given, deduplicated) with backjump level -1.
func (s *Store) RefineExplanation(conflict []Lit) ([]Lit, int) {
	currentLevel := s.DecisionLevel()
	if currentLevel == 0 {
		return dedupLits(conflict), -1
	}

	seen := map[SignedVar]bool{}
	var out []Lit
	pending := 0

	process := func(lit Lit) {
		sv := lit.sv
		if seen[sv] {
			return
		}
		seen[sv] = true
		level := s.levelOfTrueLit(lit)
		if level == 0 {
			return
		}
		if level == currentLevel {
			pending++
			return
		}
		// The clause being built is a disjunction: each earlier-level
		// antecedent contributes its negation as a disjunct (mirroring the
		// teacher's analyze, which appends q.Opposite() to tmpLearnts), not
		// the antecedent itself.
		out = append(out, lit.Negation())
	}

	for _, lit := range conflict {
		process(lit)
	}

	var uip Lit
	idx := s.trail.Len() - 1
	for idx >= 0 {
		e := s.trail.At(idx)
		if !seen[e.SignedVar] || s.eventLevels[idx] != currentLevel {
			idx--
			continue
		}
		lit := e.NewLiteral()
		pending--
		if pending == 0 {
			uip = lit.Negation()
			break
		}
		for _, ante := range s.explainCause(lit, e.Cause) {
			process(ante)
		}
		idx--
	}

	out = append([]Lit{uip}, out...)
	return s.minimize(out), s.backjumpLevel(out, uip)
}

// backjumpLevel is the second-highest level among out's literals (the
// highest level belongs to uip itself): the driver undoes to this level so
// that uip becomes the sole remaining unresolved literal. out's non-uip
// entries are clause-form (negated) literals; a literal's level is only
// meaningful for the true antecedent it was derived from, so it is negated
// back before the lookup.
func (s *Store) backjumpLevel(out []Lit, uip Lit) int {
	level := 0
	for _, lit := range out {
		if lit == uip {
			continue
		}
		if l := s.levelOfTrueLit(lit.Negation()); l > level {
			level = l
		}
	}
	return level
}

// minimize drops literals from a freshly-derived clause that are themselves
// implied by the conjunction of the others (self-subsumption), shrinking the
// clause the SAT reasoner would otherwise learn. A literal is dropped only
// when every one of its immediate antecedents is either a root-level fact or
// already present in the clause: a single pass is enough to catch the common
// case without risking non-termination on longer implication chains. lits are
// clause-form (negated) literals; each is negated back to its true form to
// walk the antecedent chain, since that is the form the trail recorded.
func (s *Store) minimize(lits []Lit) []Lit {
	inSet := map[Lit]bool{}
	for _, l := range lits {
		inSet[l] = true
	}

	out := make([]Lit, 0, len(lits))
	for _, lit := range lits {
		if s.isRedundant(lit, inSet) {
			continue
		}
		out = append(out, lit)
	}
	return out
}

func (s *Store) isRedundant(lit Lit, inSet map[Lit]bool) bool {
	trueLit := lit.Negation()
	idx, ok := s.ImplyingEvent(trueLit)
	if !ok {
		return false
	}
	e := s.trail.At(idx)
	if e.Cause.Kind == CauseDecision {
		return false
	}
	if e.Cause.Kind == CauseEncoding {
		return true
	}
	for _, ante := range s.explainCause(trueLit, e.Cause) {
		if s.levelOfTrueLit(ante) == 0 {
			continue
		}
		if !inSet[ante.Negation()] {
			return false
		}
	}
	return true
}

func dedupLits(lits []Lit) []Lit {
	seen := map[Lit]bool{}
	out := make([]Lit, 0, len(lits))
	for _, l := range lits {
		if !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	return out
}
