package main

import (
	"github.com/mhorvath/corestn/corestn"
	"github.com/mhorvath/corestn/internal/linear"
)

// scenarios mirrors spec §8's end-to-end scenarios (S1, S4, S5, S6), each
// built directly against the Model/Solver API rather than read from a file.
var scenarios = map[string]func(corestn.Config) (corestn.Status, error){
	"stn-cycle":  runSTNCycle,
	"sat":        runSATUnitPropagation,
	"optimize":   runOptimize,
	"unsat-core": runUnsatCore,
}

// runSTNCycle is scenario S1: a,b,c in [0,10], edges a->b<=2, b->c<=2,
// c->a<=-5 close a negative cycle (2+2-5 = -1 < 0), so the problem is unsat.
func runSTNCycle(cfg corestn.Config) (corestn.Status, error) {
	m := corestn.NewModel(cfg)

	a, err := m.NewVar(0, 10, corestn.True)
	if err != nil {
		return corestn.Unknown, err
	}
	b, err := m.NewVar(0, 10, corestn.True)
	if err != nil {
		return corestn.Unknown, err
	}
	c, err := m.NewVar(0, 10, corestn.True)
	if err != nil {
		return corestn.Unknown, err
	}

	for _, d := range []corestn.ReifiedExpr{
		corestn.Diff(b, a, 2),
		corestn.Diff(c, b, 2),
		corestn.Diff(a, c, -5),
	} {
		if err := m.Enforce(d); err != nil {
			return corestn.Unknown, err
		}
	}

	s := corestn.NewSolver(m, cfg)
	return s.Solve()
}

// runSATUnitPropagation is scenario S4: boolean a,b,c with clause {a,b,c},
// !a and !b asserted; c must be inferred true.
func runSATUnitPropagation(cfg corestn.Config) (corestn.Status, error) {
	m := corestn.NewModel(cfg)

	a, err := newBool(m)
	if err != nil {
		return corestn.Unknown, err
	}
	b, err := newBool(m)
	if err != nil {
		return corestn.Unknown, err
	}
	c, err := newBool(m)
	if err != nil {
		return corestn.Unknown, err
	}

	if err := m.Enforce(corestn.Or(a.t, b.t, c.t)); err != nil {
		return corestn.Unknown, err
	}
	if err := m.Enforce(corestn.Literal(a.f)); err != nil {
		return corestn.Unknown, err
	}
	if err := m.Enforce(corestn.Literal(b.f)); err != nil {
		return corestn.Unknown, err
	}

	s := corestn.NewSolver(m, cfg)
	return s.Solve()
}

// runOptimize is scenario S5: x,y in [0,10], x+y<=7, minimize(x+y); the
// optimum is 0 (both variables can sit at their lower bound).
func runOptimize(cfg corestn.Config) (corestn.Status, error) {
	m := corestn.NewModel(cfg)

	x, err := m.NewVar(0, 10, corestn.True)
	if err != nil {
		return corestn.Unknown, err
	}
	y, err := m.NewVar(0, 10, corestn.True)
	if err != nil {
		return corestn.Unknown, err
	}

	sumConstraint := corestn.LinearLeq([]linear.Term{
		{Coeff: 1, Var: x},
		{Coeff: 1, Var: y},
	}, 7)
	if err := m.Enforce(sumConstraint); err != nil {
		return corestn.Unknown, err
	}

	obj, err := m.NewVar(0, 20, corestn.True)
	if err != nil {
		return corestn.Unknown, err
	}
	objEq := corestn.LinearLeq([]linear.Term{
		{Coeff: 1, Var: x},
		{Coeff: 1, Var: y},
		{Coeff: -1, Var: obj},
	}, 0)
	if err := m.Enforce(objEq); err != nil {
		return corestn.Unknown, err
	}
	objEqRev := corestn.LinearLeq([]linear.Term{
		{Coeff: -1, Var: x},
		{Coeff: -1, Var: y},
		{Coeff: 1, Var: obj},
	}, 0)
	if err := m.Enforce(objEqRev); err != nil {
		return corestn.Unknown, err
	}

	s := corestn.NewSolver(m, cfg)
	status, best, err := s.Minimize(obj)
	if err != nil {
		return corestn.Unknown, err
	}
	_ = best
	return status, nil
}

// runUnsatCore is scenario S6: clauses {a,b}, {!a,c}, {!b,c}, {!c}, with
// assumptions [a]; the assumed literal alone is already unsatisfiable with
// the root clauses, so solve_with_assumptions([a]) returns an unsat core.
func runUnsatCore(cfg corestn.Config) (corestn.Status, error) {
	m := corestn.NewModel(cfg)

	a, err := newBool(m)
	if err != nil {
		return corestn.Unknown, err
	}
	b, err := newBool(m)
	if err != nil {
		return corestn.Unknown, err
	}
	c, err := newBool(m)
	if err != nil {
		return corestn.Unknown, err
	}

	for _, clause := range []corestn.ReifiedExpr{
		corestn.Or(a.t, b.t),
		corestn.Or(a.f, c.t),
		corestn.Or(b.f, c.t),
		corestn.Literal(c.f),
	} {
		if err := m.Enforce(clause); err != nil {
			return corestn.Unknown, err
		}
	}

	s := corestn.NewSolver(m, cfg)
	status, _, err := s.SolveWithAssumptions([]corestn.Lit{a.t})
	return status, err
}

type boolLits struct{ t, f corestn.Lit }

func newBool(m *corestn.Model) (boolLits, error) {
	t, f, err := m.NewBoolVar()
	if err != nil {
		return boolLits{}, err
	}
	return boolLits{t: t, f: f}, nil
}
