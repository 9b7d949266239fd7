package rule

import (
	"fmt"

	"github.com/pkg/errors"
)

// RoundLimitError is returned when a Saturating rule has not reached its
// fixpoint within its round cap.
type RoundLimitError struct {
	Rule  string // name of the saturating rule
	Limit int    // maximum allowed rounds
}

// Error implements the error interface.
func (e *RoundLimitError) Error() string {
	return fmt.Sprintf("%s did not saturate within %d rounds", e.Rule, e.Limit)
}

// IsRoundLimit returns true if err is or wraps a RoundLimitError.
func IsRoundLimit(err error) bool {
	var rl *RoundLimitError
	return errors.As(err, &rl)
}
