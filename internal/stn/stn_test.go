package stn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhorvath/corestn/internal/domain"
)

func TestPropagationTightensTargetBound(t *testing.T) {
	store := domain.NewStore()
	th := New(store, LevelNone)

	a, _ := store.NewVar(0, 100, domain.TRUE)
	b, _ := store.NewVar(0, 100, domain.TRUE)

	// b - a <= 5
	_, err := th.AddEdge(Edge{Source: a, Target: b, Weight: 5, Enabler: domain.TRUE})
	require.NoError(t, err)

	_, err = store.Set(domain.PlusVar(a).Leq(10), domain.DecisionCause())
	require.NoError(t, err)
	require.NoError(t, th.OnBoundChange(domain.PlusVar(a), 10))

	assert.EqualValues(t, 15, store.UB(b), "a<=10, b-a<=5 should force b<=15")
}

func TestNegativeCycleIsDetected(t *testing.T) {
	store := domain.NewStore()
	th := New(store, LevelNone)

	a, _ := store.NewVar(-100, 100, domain.TRUE)
	b, _ := store.NewVar(-100, 100, domain.TRUE)

	// b - a <= -1  and  a - b <= -1: together force an infinite descent.
	_, err := th.AddEdge(Edge{Source: a, Target: b, Weight: -1, Enabler: domain.TRUE})
	require.NoError(t, err)

	_, err = th.AddEdge(Edge{Source: b, Target: a, Weight: -1, Enabler: domain.TRUE})
	require.Error(t, err, "expected a negative cycle to be detected")

	var contr *domain.Contradiction
	require.ErrorAs(t, err, &contr)
}

func TestOptionalEdgeWaitsForEnabler(t *testing.T) {
	store := domain.NewStore()
	th := New(store, LevelNone)

	opt, _ := store.NewVar(0, 1, domain.TRUE)
	enabler := domain.PlusVar(opt).Leq(0) // opt == 0 means "enabled"

	a, _ := store.NewVar(0, 100, domain.TRUE)
	b, _ := store.NewVar(0, 100, domain.TRUE)

	_, err := th.AddEdge(Edge{Source: a, Target: b, Weight: 5, Enabler: enabler})
	require.NoError(t, err)

	_, err = store.Set(domain.PlusVar(a).Leq(10), domain.DecisionCause())
	require.NoError(t, err)
	require.NoError(t, th.OnBoundChange(domain.PlusVar(a), 10))
	assert.EqualValues(t, 100, store.UB(b), "edge not yet enabled")

	_, err = store.Set(enabler, domain.DecisionCause())
	require.NoError(t, err)
	require.NoError(t, th.OnEnablerChange(enabler.SignedVar(), enabler.Value()))
	assert.EqualValues(t, 15, store.UB(b), "b should tighten once the edge is enabled")
}

func TestTheoryPropagateBoundsExplanationIsTheTwoRecordedBounds(t *testing.T) {
	store := domain.NewStore()
	th := New(store, LevelBounds)

	x, _ := store.NewVar(-100, 100, domain.TRUE)
	y, _ := store.NewVar(-100, 100, domain.TRUE)
	opt, _ := store.NewVar(0, 1, domain.TRUE)
	enabler := domain.PlusVar(opt).Leq(0) // opt == 0 means "enabled"

	// y - x <= -5, only while enabler holds.
	_, err := th.AddEdge(Edge{Source: x, Target: y, Weight: -5, Enabler: enabler})
	require.NoError(t, err)

	// Tighten y's lower bound to 6 first, so it's on record when x tightens.
	yLower := domain.MinusVar(y).Leq(-6)
	_, err = store.Set(yLower, domain.DecisionCause())
	require.NoError(t, err)
	require.NoError(t, th.OnBoundChange(domain.MinusVar(y), -6))

	// Tighten x's upper bound to 0: activating the edge now would force
	// y <= -5, contradicting y >= 6, so theoryPropagateBounds must disable
	// the enabler before the edge is ever activated.
	xUpper := domain.PlusVar(x).Leq(0)
	_, err = store.Set(xUpper, domain.DecisionCause())
	require.NoError(t, err)
	require.NoError(t, th.OnBoundChange(domain.PlusVar(x), 0))

	require.Equal(t, domain.False, store.Value(enabler), "enabler should be forced false by theory propagation")

	idx, ok := store.ImplyingEvent(enabler.Negation())
	require.True(t, ok)
	cause := store.EventAt(idx).Cause
	require.Equal(t, domain.CauseInference, cause.Kind)
	require.Equal(t, domain.ReasonerSTN, cause.Reasoner)

	expl := th.Explain(enabler.Negation(), cause.Payload)
	assert.ElementsMatch(t, []domain.Lit{xUpper, yLower}, expl,
		"explanation should be exactly the two recorded bounds, not a reconstruction off the wrong payload")
}
