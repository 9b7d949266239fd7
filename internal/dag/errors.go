package dag

import (
	"fmt"

	"github.com/pkg/errors"

	"qrewrite/internal/circuit"
)

// ErrInvalidCircuit is matched by errors.Is for every InvalidCircuitError.
var ErrInvalidCircuit = errors.New("invalid circuit")

// ErrRuleViolation is matched by errors.Is for every ViolationError.
var ErrRuleViolation = errors.New("rule violation")

// InvalidCircuitError is returned by Build when the input circuit is
// malformed. No DAG is returned alongside it.
type InvalidCircuitError struct {
	Index int          // position of the offending gate, -1 for circuit-level problems
	Gate  circuit.Gate // offending gate, zero when Index is -1
	Err   error        // underlying validation error
}

// Error implements the error interface.
func (e *InvalidCircuitError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("invalid circuit: %v", e.Err)
	}
	return fmt.Sprintf("invalid circuit: gate %d (%s): %v", e.Index, e.Gate, e.Err)
}

// Unwrap returns the underlying validation error.
func (e *InvalidCircuitError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrInvalidCircuit) true.
func (e *InvalidCircuitError) Is(target error) bool { return target == ErrInvalidCircuit }

// ViolationError reports a mutation that would break a DAG invariant. It is
// a defect in the calling rule, not a runtime condition to recover from.
type ViolationError struct {
	Op     string // DAG operation that refused the mutation
	NodeID int    // node being mutated, -1 if none
	Reason string
}

// Error implements the error interface.
func (e *ViolationError) Error() string {
	if e.NodeID < 0 {
		return fmt.Sprintf("rule violation in %s: %s", e.Op, e.Reason)
	}
	return fmt.Sprintf("rule violation in %s on node %d: %s", e.Op, e.NodeID, e.Reason)
}

// Is makes errors.Is(err, ErrRuleViolation) true.
func (e *ViolationError) Is(target error) bool { return target == ErrRuleViolation }

// IsInvalidCircuit reports whether err is or wraps an InvalidCircuitError.
func IsInvalidCircuit(err error) bool {
	var ic *InvalidCircuitError
	return errors.As(err, &ic)
}

// IsRuleViolation reports whether err is or wraps a ViolationError.
func IsRuleViolation(err error) bool {
	var v *ViolationError
	return errors.As(err, &v)
}

func violation(op string, n *Node, format string, args ...any) error {
	id := -1
	if n != nil {
		id = n.ID
	}
	return &ViolationError{Op: op, NodeID: id, Reason: fmt.Sprintf(format, args...)}
}
