// Package reasoner defines the shared dispatch surface the search driver
// loops over to a fixed point (spec §4.G), and adapts the three closed-set
// reasoners (satprop, stn, linear) to it. Each of those packages exposes its
// own richer entry points (OnBoundChange, OnEnablerChange) grounded directly
// in its originating teacher/original_source code; the adapters here are the
// thin, driver-facing uniform view spec §9 calls for ("a trait with
// propagate, explain, save_state, restore_last, identity"), not a
// reimplementation of their propagation logic.
package reasoner

import (
	"github.com/mhorvath/corestn/internal/domain"
	"github.com/mhorvath/corestn/internal/linear"
	"github.com/mhorvath/corestn/internal/satprop"
	"github.com/mhorvath/corestn/internal/stn"
)

// Reasoner is driven by the search loop until every reasoner reports no new
// events (quiescence) or one reports a contradiction.
type Reasoner interface {
	domain.Explainer

	// Propagate scans every trail event the reasoner has not yet seen and
	// propagates its own deductions from them, returning a *domain.Contradiction
	// (or a wrapping error) the moment one occurs.
	Propagate(store *domain.Store) error

	// Identity reports which domain.ReasonerID this reasoner was registered
	// under, so the driver can route conflicts without a type switch.
	Identity() domain.ReasonerID

	// SaveState/RestoreLast let a reasoner keep its own backtrackable state
	// in step with the domain store's trail. The three built-in reasoners'
	// clause/edge/constraint tables grow monotonically and are never
	// touched by backtracking, so SaveState/RestoreLast are no-ops for
	// them — but each adapter's lastSeen cursor into the trail *is*
	// trail-coupled state, and is rewound on every backtrack by clamping it
	// to the store's post-restore event count at the top of Propagate
	// (see each adapter below). A custom external reasoner with private
	// mutable state would override SaveState/RestoreLast for real.
	SaveState()
	RestoreLast()
}

// SATAdapter adapts *satprop.Database to Reasoner.
type SATAdapter struct {
	db       *satprop.Database
	lastSeen int
}

// NewSATAdapter wraps db.
func NewSATAdapter(db *satprop.Database) *SATAdapter { return &SATAdapter{db: db} }

func (a *SATAdapter) Identity() domain.ReasonerID { return domain.ReasonerSAT }
func (a *SATAdapter) SaveState()                  {}
func (a *SATAdapter) RestoreLast()                {}

func (a *SATAdapter) Explain(lit domain.Lit, payload uint32) []domain.Lit {
	return a.db.Explain(lit, payload)
}

// Propagate replays every event since the last call through the clause
// database's unit-propagation entry point. lastSeen is clamped to the
// store's current event count first: a backjump truncates the trail and
// reuses the freed indices (trail.RestoreLast, trail.Push), so without this
// clamp a lastSeen left over from before the backjump would sit past the end
// of the shrunk trail and silently skip every event re-pushed after it,
// including the asserted learnt-clause literal.
func (a *SATAdapter) Propagate(store *domain.Store) error {
	if n := store.NumEvents(); a.lastSeen > n {
		a.lastSeen = n
	}
	for a.lastSeen < store.NumEvents() {
		e := store.EventAt(a.lastSeen)
		a.lastSeen++
		if ok, err := a.db.OnBoundChange(e.SignedVar, e.New); !ok {
			return err
		}
	}
	return nil
}

// STNAdapter adapts *stn.Theory to Reasoner.
type STNAdapter struct {
	th       *stn.Theory
	lastSeen int
}

// NewSTNAdapter wraps th.
func NewSTNAdapter(th *stn.Theory) *STNAdapter { return &STNAdapter{th: th} }

func (a *STNAdapter) Identity() domain.ReasonerID { return domain.ReasonerSTN }
func (a *STNAdapter) SaveState()                  {}
func (a *STNAdapter) RestoreLast()                {}

func (a *STNAdapter) Explain(lit domain.Lit, payload uint32) []domain.Lit {
	return a.th.Explain(lit, payload)
}

// Propagate replays every event since the last call, first through the
// pending-enabler activation path and then through the active-edge
// propagation path: a single bound tightening can be both the enabler of a
// waiting edge and the source bound of an already-active one. lastSeen is
// clamped to the store's current event count first, for the same reason as
// SATAdapter.Propagate: a backjump truncates and reuses trail indices, so a
// stale lastSeen would otherwise skip every event re-pushed after it.
func (a *STNAdapter) Propagate(store *domain.Store) error {
	if n := store.NumEvents(); a.lastSeen > n {
		a.lastSeen = n
	}
	for a.lastSeen < store.NumEvents() {
		e := store.EventAt(a.lastSeen)
		a.lastSeen++
		if err := a.th.OnEnablerChange(e.SignedVar, e.New); err != nil {
			return err
		}
		if err := a.th.OnBoundChange(e.SignedVar, e.New); err != nil {
			return err
		}
	}
	return nil
}

// LinearAdapter adapts *linear.Theory to Reasoner.
type LinearAdapter struct {
	th       *linear.Theory
	lastSeen int
}

// NewLinearAdapter wraps th.
func NewLinearAdapter(th *linear.Theory) *LinearAdapter { return &LinearAdapter{th: th} }

func (a *LinearAdapter) Identity() domain.ReasonerID { return domain.ReasonerLinear }
func (a *LinearAdapter) SaveState()                  {}
func (a *LinearAdapter) RestoreLast()                {}

func (a *LinearAdapter) Explain(lit domain.Lit, payload uint32) []domain.Lit {
	return a.th.Explain(lit, payload)
}

// Propagate clamps lastSeen to the store's current event count first, for
// the same reason as SATAdapter.Propagate: a backjump truncates and reuses
// trail indices, so a stale lastSeen would otherwise skip every event
// re-pushed after it.
func (a *LinearAdapter) Propagate(store *domain.Store) error {
	if n := store.NumEvents(); a.lastSeen > n {
		a.lastSeen = n
	}
	for a.lastSeen < store.NumEvents() {
		e := store.EventAt(a.lastSeen)
		a.lastSeen++
		if err := a.th.OnEnablerChange(e.SignedVar, e.New); err != nil {
			return err
		}
		if _, err := a.th.OnBoundChange(e.SignedVar, e.New); err != nil {
			return err
		}
	}
	return nil
}
