package transducer

import (
	"github.com/pkg/errors"
)

// Error kinds reported by a search. All of them are fatal to the current
// Align call; callers match them with errors.Is.
var (
	// ErrInfeasibleConfiguration means the targets cannot be reached with the
	// given number of blocks and per-block widths. It is reported before the
	// oracle is ever invoked.
	ErrInfeasibleConfiguration = errors.New("infeasible configuration")

	// ErrSearchDegenerate means a round produced no candidates, or the last
	// round did not converge to exactly one alignment.
	ErrSearchDegenerate = errors.New("search degenerate")

	// ErrOracleContractViolation means the oracle returned output of the wrong
	// shape or probabilities a log cannot be taken of.
	ErrOracleContractViolation = errors.New("oracle contract violation")
)
