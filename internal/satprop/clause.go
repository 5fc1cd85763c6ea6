// Package satprop implements the boolean clause database and two-watched-
// literal unit propagation reasoner (spec §4.D), generalized from the
// teacher's boolean CDCL solver (internal/sat/clauses.go, solver.go) to
// operate on literals over the shared domain store instead of a private
// assignment array.
package satprop

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mhorvath/corestn/internal/domain"
	"github.com/mhorvath/corestn/internal/watch"
)

// ErrEmptyClause is returned by AddClause when simplification against the
// current bounds reduces a clause to nothing, i.e. the problem is already
// unsatisfiable at the root.
var ErrEmptyClause = errors.New("satprop: clause simplifies to empty (root-level unsat)")

// Clause is a disjunction of domain literals.
type Clause struct {
	literals []domain.Lit

	activity    float64
	learnt      bool
	lbd         int
	isProtected bool
}

func (c *Clause) String() string {
	if len(c.literals) == 0 {
		return "Clause[]"
	}
	var sb strings.Builder
	sb.WriteString("Clause[")
	sb.WriteString(c.literals[0].String())
	for _, l := range c.literals[1:] {
		sb.WriteByte(' ')
		sb.WriteString(l.String())
	}
	sb.WriteByte(']')
	return sb.String()
}

// Literals returns the clause's current literals. The caller must not
// modify the returned slice.
func (c *Clause) Literals() []domain.Lit { return c.literals }

type watchPayload struct {
	clause *Clause
	lit    domain.Lit // the clause literal whose negation is being watched
}

// Database owns every registered clause and the watch lists that drive
// propagation (spec §4.D). It registers itself with the domain store as the
// Explainer for domain.ReasonerSAT.
type Database struct {
	store   *domain.Store
	watches *watch.Lists[watchPayload]

	clauses []*Clause

	// propagatedBy maps a literal that was forced true by unit propagation
	// to the clause responsible, so Explain can recover it: a *domain.Cause
	// carries only a uint32 payload, too small for a clause pointer.
	propagatedBy map[domain.Lit]*Clause

	claInc   float64
	claDecay float64
}

// NewDatabase returns an empty clause database bound to store. claDecay must
// be in (0, 1]; smaller values forget old clause activity faster.
func NewDatabase(store *domain.Store, claDecay float64) *Database {
	db := &Database{
		store:        store,
		watches:      watch.New[watchPayload](),
		propagatedBy: map[domain.Lit]*Clause{},
		claInc:       1,
		claDecay:     claDecay,
	}
	store.RegisterExplainer(domain.ReasonerSAT, db)
	return db
}

// Clauses returns every clause currently in the database.
func (db *Database) Clauses() []*Clause { return db.clauses }

// AddClause simplifies lits against the current root bounds (unless learnt,
// in which case the caller is responsible for having already resolved them
// via conflict analysis) and, if more than one literal survives, registers a
// new watched clause. It reports ok=false when the clause is trivially
// satisfied and need not be stored.
func (db *Database) AddClause(lits []domain.Lit, learnt bool) (*Clause, bool, error) {
	work := append([]domain.Lit(nil), lits...)
	size := len(work)

	if !learnt {
		seen := map[domain.Lit]bool{}
		for i := size - 1; i >= 0; i-- {
			if seen[work[i].Negation()] {
				return nil, false, nil // tautology
			}
			if seen[work[i]] {
				size--
				work[i], work[size] = work[size], work[i]
				continue
			}
			seen[work[i]] = true

			switch db.store.Value(work[i]) {
			case domain.True:
				return nil, false, nil
			case domain.False:
				size--
				work[i], work[size] = work[size], work[i]
			}
		}
		work = work[:size]
	}

	switch len(work) {
	case 0:
		return nil, false, ErrEmptyClause
	case 1:
		cause := domain.EncodingCause()
		if learnt {
			cause = domain.InferenceCause(domain.ReasonerSAT, 0)
		}
		_, err := db.store.Set(work[0], cause)
		if err != nil {
			return nil, false, err
		}
		if learnt {
			db.propagatedBy[work[0]] = &Clause{literals: []domain.Lit{work[0]}, learnt: true}
		}
		return nil, true, nil
	default:
		c := &Clause{literals: work, learnt: learnt}
		if learnt {
			c.lbd = len(work)
			maxLevel := -1
			wl := -1
			for i := 1; i < len(c.literals); i++ {
				if lvl := db.store.LevelOf(c.literals[i].Negation()); lvl > maxLevel {
					maxLevel = lvl
					wl = i
				}
			}
			if wl != -1 {
				c.literals[wl], c.literals[1] = c.literals[1], c.literals[wl]
			}
		}
		db.watch(c, 0)
		db.watch(c, 1)
		db.clauses = append(db.clauses, c)

		if learnt {
			// By construction (1-UIP conflict analysis), literals[0] is the
			// sole survivor at the conflict's decision level and becomes unit
			// the moment the driver backjumps below it: assert it now,
			// mirroring the teacher's record()'s explicit enqueue(clause[0], c).
			changed, err := db.store.Set(c.literals[0], domain.InferenceCause(domain.ReasonerSAT, 0))
			if err != nil {
				return nil, false, err
			}
			if changed {
				db.propagatedBy[c.literals[0]] = c
			}
		}
		return c, true, nil
	}
}

func (db *Database) watch(c *Clause, idx int) {
	lit := c.literals[idx]
	neg := lit.Negation()
	db.watches.Watch(int(neg.SignedVar()), neg.Value(), watchPayload{clause: c, lit: lit})
}

func (db *Database) unwatch(c *Clause, lit domain.Lit) {
	neg := lit.Negation()
	db.watches.Unwatch(int(neg.SignedVar()), watchPayload{clause: c, lit: lit}, func(a, b watchPayload) bool {
		return a.clause == b.clause
	})
}

// Remove detaches c's watches. Used by clause-database reduction.
func (db *Database) Remove(c *Clause) {
	db.unwatch(c, c.literals[0])
	db.unwatch(c, c.literals[1])
}

func (c *Clause) locked(store *domain.Store) bool {
	idx, ok := store.ImplyingEvent(c.literals[0])
	if !ok {
		return false
	}
	cause := store.EventAt(idx).Cause
	return cause.Kind == domain.CauseInference && cause.Reasoner == domain.ReasonerSAT
}

// OnBoundChange notifies every clause watching sv that its bound has just
// tightened to newBound, propagating unit clauses as needed. It returns
// ok=false the moment a clause is fully falsified (a conflict), with the
// store's *domain.Contradiction as err.
func (db *Database) OnBoundChange(sv domain.SignedVar, newBound int32) (ok bool, err error) {
	ok = db.watches.Notify(int(sv), newBound, func(e watch.Entry[watchPayload]) (keep bool, stillOk bool) {
		keep, stillOk, err = db.propagateClause(e.Payload.clause, e.Payload.lit)
		return keep, stillOk
	})
	return ok, err
}

// propagateClause mirrors the teacher's Clause.Propagate: l is the clause
// literal that was just falsified. It finds a replacement watch among the
// tail literals, or propagates literals[0] as a unit fact.
func (db *Database) propagateClause(c *Clause, l domain.Lit) (keep bool, ok bool, err error) {
	if c.literals[0] == l {
		c.literals[0], c.literals[1] = c.literals[1], c.literals[0]
	}

	if db.store.Value(c.literals[0]) == domain.True {
		return true, true, nil
	}

	for i := 2; i < len(c.literals); i++ {
		if db.store.Value(c.literals[i]) != domain.False {
			c.literals[1], c.literals[i] = c.literals[i], c.literals[1]
			db.unwatch(c, l)
			db.watch(c, 1)
			return false, true, nil
		}
	}

	// Record the clause before Set: on a contradiction, Set asks Explain for
	// this literal's antecedents while it builds the explanation.
	db.propagatedBy[c.literals[0]] = c
	_, setErr := db.store.Set(c.literals[0], domain.InferenceCause(domain.ReasonerSAT, 0))
	if setErr != nil {
		return true, false, setErr
	}
	return true, true, nil
}

// Explain implements domain.Explainer for domain.ReasonerSAT: it returns the
// negation of every other literal in whichever clause caused lit, since that
// conjunction is exactly what forced lit to become true (or, in the failure
// case, what makes every literal of the clause false at once).
//
// Payload is unused: the clause pointer cannot be threaded through a uint32
// payload, so the database keeps a side index from each propagated literal
// to the clause that propagated it, and the clause that caused lit is looked
// up there.
func (db *Database) Explain(lit domain.Lit, payload uint32) []domain.Lit {
	c, ok := db.propagatedBy[lit]
	if !ok {
		panic(fmt.Sprintf("satprop: no clause recorded for propagated literal %v", lit))
	}
	out := make([]domain.Lit, 0, len(c.literals)-1)
	for _, other := range c.literals {
		if other == lit {
			continue
		}
		out = append(out, other.Negation())
	}
	if c.learnt {
		db.bumpClauseActivity(c)
	}
	return out
}

func (db *Database) bumpClauseActivity(c *Clause) {
	c.activity += db.claInc
	if c.activity > 1e20 {
		for _, other := range db.clauses {
			other.activity *= 1e-20
		}
		db.claInc *= 1e-20
	}
}

// DecayClauseActivity scales down the shared activity increment so that
// future bumps count for relatively more (spec §4.D's clause-DB reduction
// heuristic).
func (db *Database) DecayClauseActivity() {
	db.claInc /= db.claDecay
}
