package domain

// Event records one bound tightening on the trail: which signed variable
// changed, its value before and after, the index of the event that had set
// the previous value (so the trail can be scanned backward without
// replaying every event), and the cause.
type Event struct {
	SignedVar SignedVar
	Previous  int32
	// PreviousEvent is the index on the trail of the event that set
	// Previous, or -1 if Previous was the variable's initial bound.
	PreviousEvent int
	New           int32
	Cause         Cause
}

// MakesTrue reports whether this event is the one that first makes lit true,
// i.e. it tightens lit's signed variable across lit's threshold.
func (e Event) MakesTrue(lit Lit) bool {
	return e.SignedVar == lit.sv && e.New <= lit.value && e.Previous > lit.value
}

// NewLiteral returns the strongest literal entailed by this event's new
// bound.
func (e Event) NewLiteral() Lit { return e.SignedVar.Leq(e.New) }

// PreviousLiteral returns the strongest literal that held just before this
// event.
func (e Event) PreviousLiteral() Lit { return e.SignedVar.Leq(e.Previous) }
