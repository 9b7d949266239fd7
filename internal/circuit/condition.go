package circuit

import (
	"fmt"
	"slices"

	"github.com/pkg/errors"
)

// maxConditionBits keeps a condition's value representable in an int.
const maxConditionBits = 62

// Condition guards a gate on classical bits: the gate acts only when the
// bits, read as an unsigned integer with Bits[0] least significant, equal
// Value.
type Condition struct {
	Bits  []int
	Value int
}

// BitCondition returns the condition "bit == value".
func BitCondition(bit, value int) Condition {
	return Condition{Bits: []int{bit}, Value: value}
}

// Validate checks the bit list and that Value fits in it.
func (c *Condition) Validate() error {
	if len(c.Bits) == 0 {
		return errors.New("condition: no classical bits")
	}
	if len(c.Bits) > maxConditionBits {
		return errors.Errorf("condition: %d classical bits, at most %d", len(c.Bits), maxConditionBits)
	}
	for i, b := range c.Bits {
		if b < 0 {
			return errors.Errorf("condition: negative classical bit %d", b)
		}
		if slices.Contains(c.Bits[:i], b) {
			return errors.Errorf("condition: classical bit %d already added", b)
		}
	}
	if c.Value < 0 || c.Value >= 1<<len(c.Bits) {
		return errors.Errorf("condition: value %d does not fit in %d bit(s)", c.Value, len(c.Bits))
	}
	return nil
}

// Equal reports whether c and o guard on the same bits and value. Two nil
// conditions are equal.
func (c *Condition) Equal(o *Condition) bool {
	if c == nil || o == nil {
		return c == o
	}
	return c.Value == o.Value && slices.Equal(c.Bits, o.Bits)
}

func (c *Condition) clone() *Condition {
	if c == nil {
		return nil
	}
	return &Condition{Bits: slices.Clone(c.Bits), Value: c.Value}
}

// String formats the condition as "c[0 1]==2".
func (c *Condition) String() string {
	return fmt.Sprintf("c%v==%d", c.Bits, c.Value)
}
