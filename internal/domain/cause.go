package domain

// ReasonerID identifies which reasoner produced an inference, so that an
// Event's cause can later be routed back to the reasoner that must explain
// it. The kernel reserves a handful of small values; custom reasoners
// (the extension point of spec §6) use the IDs after ReasonerLinear and below
// ReasonerIDExternal, which is the size of the store's explainer table.
type ReasonerID uint8

const (
	ReasonerSAT ReasonerID = iota
	ReasonerSTN
	ReasonerLinear
	ReasonerIDExternal ReasonerID = 16
)

// CauseKind discriminates the variants of Cause.
type CauseKind uint8

const (
	// CauseDecision marks a literal asserted by the search driver rather
	// than inferred.
	CauseDecision CauseKind = iota
	// CauseEncoding marks a root fact established when the variable/clause
	// was declared (e.g. a variable's initial bounds).
	CauseEncoding
	// CauseInference marks a literal deduced by a reasoner; Reasoner and
	// Payload identify exactly which deduction, so Explain can be replayed.
	CauseInference
	// CausePresenceOfEmptyDomain marks the inference that a presence literal
	// is false, synthesized by the store itself when tightening would
	// otherwise empty a variable's domain (spec §3, §4.C).
	CausePresenceOfEmptyDomain
	// CauseScopeAbsence marks the inference that a literal is false because
	// it is scoped under a presence variable that was just proven absent
	// (the contrapositive edge of the presence implication DAG, spec §3).
	CauseScopeAbsence
)

// Cause records why an event happened.
type Cause struct {
	Kind CauseKind

	// Valid when Kind == CauseInference.
	Reasoner ReasonerID
	Payload  uint32

	// Valid when Kind == CausePresenceOfEmptyDomain: the literal whose
	// tightening was short-circuited, and the cause that attempted it.
	BlockedLit    Lit
	BlockedReason *Cause

	// BlockedOpposite is the already-entailed opposite-signed literal that,
	// together with BlockedLit, would have emptied the variable's domain.
	// Set alongside BlockedLit whenever blockedOppositeSet is true.
	BlockedOpposite    Lit
	blockedOppositeSet bool

	// Valid when Kind == CauseScopeAbsence: the negated presence literal
	// just proven true whose falling scope forces this one false too.
	ScopeNeg Lit
}

// DecisionCause builds a Cause for a search-driver decision.
func DecisionCause() Cause { return Cause{Kind: CauseDecision} }

// EncodingCause builds a Cause for a root-level fact.
func EncodingCause() Cause { return Cause{Kind: CauseEncoding} }

// InferenceCause builds a Cause for a reasoner deduction.
func InferenceCause(r ReasonerID, payload uint32) Cause {
	return Cause{Kind: CauseInference, Reasoner: r, Payload: payload}
}

// IsDecision reports whether the cause is a search decision.
func (c Cause) IsDecision() bool { return c.Kind == CauseDecision }
