// Package corestn is the public façade over the solver kernel (spec §6): a
// model builder (Model) that accepts variable declarations and reified
// expressions, and a solver (Solver) that runs search to a satisfying
// assignment, an optimum, or an unsat core. Everything under internal/ is
// plumbing; this package and cmd/corestn-demo are the only things an outside
// caller ever imports or runs.
package corestn

import (
	"os"
	"strconv"
	"time"

	"github.com/mhorvath/corestn/internal/stn"
)

// Config collects the tunable performance knobs spec §9 calls for ("Tunable
// defaults are read once from an environment-variable registry at solver
// construction and captured into a config value"). Every field has a safe
// default; LoadConfig only overrides a field when its environment variable
// parses successfully, mirroring the teacher's DefaultOptions (solver.go)
// rather than introducing a hierarchical config framework for a handful of
// numeric knobs.
type Config struct {
	// VariableDecay and ClauseDecay are the VSIDS/clause-activity decay
	// rates, in (0, 1]. Teacher defaults: 0.95 and 0.999.
	VariableDecay float64
	ClauseDecay   float64

	// PhaseSaving enables remembering each variable's last committed bound
	// side across backtracks (order.Heap).
	PhaseSaving bool

	// TheoryPropagation selects how much of the STN's theory-propagation
	// machinery runs: "none", "bounds", "edges", or "full".
	TheoryPropagation stn.TheoryPropagationLevel

	// MaxConflicts stops Solve after this many conflicts; -1 means no limit.
	MaxConflicts int64

	// Timeout stops Solve after this long; a negative value means no limit.
	Timeout time.Duration

	// PrintStats enables periodic search-progress lines on stdout.
	PrintStats bool
}

// DefaultConfig mirrors the teacher's DefaultOptions (internal/sat/solver.go).
var DefaultConfig = Config{
	VariableDecay:     0.95,
	ClauseDecay:       0.999,
	PhaseSaving:       false,
	TheoryPropagation: stn.LevelBounds,
	MaxConflicts:      -1,
	Timeout:           -1,
	PrintStats:        false,
}

// LoadConfig starts from DefaultConfig and overrides fields whose environment
// variable is set and parses; a set-but-unparseable variable is ignored
// (falls back to the default) rather than failing construction, since a
// malformed tuning knob should never stop a library caller's solver from
// starting.
func LoadConfig() Config {
	cfg := DefaultConfig

	if v, ok := parseFloat("CORESTN_VARIABLE_DECAY"); ok {
		cfg.VariableDecay = v
	}
	if v, ok := parseFloat("CORESTN_CLAUSE_DECAY"); ok {
		cfg.ClauseDecay = v
	}
	if v, ok := parseBool("CORESTN_PHASE_SAVING"); ok {
		cfg.PhaseSaving = v
	}
	if v, ok := os.LookupEnv("CORESTN_THEORY_PROPAGATION"); ok {
		if lvl, ok := parseTheoryLevel(v); ok {
			cfg.TheoryPropagation = lvl
		}
	}
	if v, ok := parseInt("CORESTN_MAX_CONFLICTS"); ok {
		cfg.MaxConflicts = v
	}
	if v, ok := os.LookupEnv("CORESTN_TIMEOUT"); ok {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Timeout = d
		}
	}
	if v, ok := parseBool("CORESTN_PRINT_STATS"); ok {
		cfg.PrintStats = v
	}

	return cfg
}

func parseFloat(name string) (float64, bool) {
	v, ok := os.LookupEnv(name)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	return f, err == nil
}

func parseInt(name string) (int64, bool) {
	v, ok := os.LookupEnv(name)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(v, 10, 64)
	return n, err == nil
}

func parseBool(name string) (bool, bool) {
	v, ok := os.LookupEnv(name)
	if !ok {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	return b, err == nil
}

func parseTheoryLevel(v string) (stn.TheoryPropagationLevel, bool) {
	switch v {
	case "none":
		return stn.LevelNone, true
	case "bounds":
		return stn.LevelBounds, true
	case "edges":
		return stn.LevelEdges, true
	case "full":
		return stn.LevelFull, true
	default:
		return stn.LevelNone, false
	}
}
