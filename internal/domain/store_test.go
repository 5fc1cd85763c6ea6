package domain

import "testing"

func TestNewVarBounds(t *testing.T) {
	s := NewStore()
	v, err := s.NewVar(-3, 7, TRUE)
	if err != nil {
		t.Fatalf("NewVar: %v", err)
	}
	if got := s.LB(v); got != -3 {
		t.Errorf("LB = %d, want -3", got)
	}
	if got := s.UB(v); got != 7 {
		t.Errorf("UB = %d, want 7", got)
	}
}

func TestSetTightensAndDetectsNoop(t *testing.T) {
	s := NewStore()
	v, _ := s.NewVar(0, 10, TRUE)

	changed, err := s.Set(PlusVar(v).Leq(5), DecisionCause())
	if err != nil || !changed {
		t.Fatalf("Set(<=5) = %v, %v, want true, nil", changed, err)
	}
	if got := s.UB(v); got != 5 {
		t.Errorf("UB = %d, want 5", got)
	}

	changed, err = s.Set(PlusVar(v).Leq(8), DecisionCause())
	if err != nil || changed {
		t.Fatalf("Set(<=8) after tighter bound = %v, %v, want false, nil", changed, err)
	}
}

// noAntecedents is an Explainer whose every inference has no antecedents.
type noAntecedents struct{}

func (noAntecedents) Explain(Lit, uint32) []Lit { return nil }

func TestSetContradictionOnNecessarilyPresentVar(t *testing.T) {
	s := NewStore()
	s.RegisterExplainer(ReasonerSTN, noAntecedents{})
	v, _ := s.NewVar(0, 10, TRUE)

	if _, err := s.Set(PlusVar(v).Leq(8), DecisionCause()); err != nil {
		t.Fatalf("Set(<=8): %v", err)
	}
	s.SaveState()
	if _, err := s.Set(MinusVar(v).Leq(-5), DecisionCause()); err != nil {
		t.Fatalf("Set(>=5): %v", err)
	}

	_, err := s.Set(PlusVar(v).Leq(2), InferenceCause(ReasonerSTN, 0))
	var contr *Contradiction
	if err == nil {
		t.Fatalf("expected contradiction")
	}
	if ok := errorsAs(err, &contr); !ok {
		t.Fatalf("expected *Contradiction, got %T", err)
	}
	if len(contr.Explanation) == 0 {
		t.Errorf("expected non-empty explanation")
	}
}

func TestSetEmptyDomainOnOptionalVarInfersAbsence(t *testing.T) {
	s := NewStore()
	opt, _ := s.NewVar(0, 1, TRUE) // presence variable, encoded as boolean
	presenceLit := PlusVar(opt).Leq(0)
	_ = presenceLit

	pv, _ := s.NewVar(0, 10, PlusVar(opt).Leq(0))
	if _, err := s.Set(MinusVar(pv).Leq(-5), DecisionCause()); err != nil {
		t.Fatalf("Set(>=5): %v", err)
	}

	changed, err := s.Set(PlusVar(pv).Leq(2), InferenceCause(ReasonerSTN, 0))
	if err != nil {
		t.Fatalf("expected no contradiction for optional var, got %v", err)
	}
	if !changed {
		t.Fatalf("expected the presence literal to be inferred false")
	}
	if s.Value(PlusVar(opt).Leq(0)) != False {
		t.Errorf("expected presence literal inferred false (variable absent)")
	}
}

func TestRestoreLastUndoesBounds(t *testing.T) {
	s := NewStore()
	v, _ := s.NewVar(0, 10, TRUE)

	s.SaveState()
	s.Set(PlusVar(v).Leq(4), DecisionCause())
	if got := s.UB(v); got != 4 {
		t.Fatalf("UB = %d, want 4", got)
	}

	s.RestoreLast()
	if got := s.UB(v); got != 10 {
		t.Errorf("UB after restore = %d, want 10", got)
	}
	if s.DecisionLevel() != 0 {
		t.Errorf("DecisionLevel after restore = %d, want 0", s.DecisionLevel())
	}
}

func TestRefineExplanationAtRootLevelReturnsConflictVerbatim(t *testing.T) {
	s := NewStore()
	v, _ := s.NewVar(0, 10, TRUE)
	lit := PlusVar(v).Leq(5)
	s.Set(lit, DecisionCause())

	out, level := s.RefineExplanation([]Lit{lit})
	if level != -1 {
		t.Errorf("backjump level = %d, want -1", level)
	}
	if len(out) != 1 || out[0] != lit {
		t.Errorf("explanation = %v, want [%v]", out, lit)
	}
}

// errorsAs is a tiny local stand-in so this test file does not need to
// import "errors" solely for a single type assertion in a package with no
// wrapped errors.
func errorsAs(err error, target **Contradiction) bool {
	c, ok := err.(*Contradiction)
	if !ok {
		return false
	}
	*target = c
	return true
}
