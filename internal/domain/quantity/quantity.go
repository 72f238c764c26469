// Package quantity enforces the per-line quantity bounds of the cart.
package quantity

import (
	"fmt"
	"strconv"
	"strings"
)

// Default bounds for a cart line.
const (
	DefaultMin = 1
	DefaultMax = 99
)

// Bounds is the inclusive range a line quantity may take.
type Bounds struct {
	Min int
	Max int
}

// DefaultBounds returns the stock 1..99 range.
func DefaultBounds() Bounds {
	return Bounds{Min: DefaultMin, Max: DefaultMax}
}

// Validate rejects ranges where some quantity would have both step
// controls disabled. That needs Max strictly above Min.
func (b Bounds) Validate() error {
	if b.Min < 1 {
		return fmt.Errorf("minimum quantity must be at least 1, got %d", b.Min)
	}
	if b.Max <= b.Min {
		return fmt.Errorf("maximum quantity %d must be above minimum %d", b.Max, b.Min)
	}
	return nil
}

// Clamp forces q into [Min, Max].
func (b Bounds) Clamp(q int) int {
	if q < b.Min {
		return b.Min
	}
	if q > b.Max {
		return b.Max
	}
	return q
}

// Parse reads a raw input value. It accepts a leading integer and ignores
// trailing junk ("12abc" is 12). Unparseable input or zero becomes Min. The
// result is always clamped.
func (b Bounds) Parse(raw string) int {
	q, ok := leadingInt(raw)
	if !ok || q == 0 {
		return b.Min
	}
	return b.Clamp(q)
}

// Step moves q by delta and clamps. It reports false when the clamped
// result equals q, meaning the step was a no-op at a bound.
func (b Bounds) Step(q, delta int) (int, bool) {
	next := b.Clamp(q + delta)
	return next, next != q
}

// Controls returns the disabled state of the decrement and increment buttons.
func (b Bounds) Controls(q int) (decDisabled, incDisabled bool) {
	return q <= b.Min, q >= b.Max
}

func leadingInt(raw string) (int, bool) {
	s := strings.TrimSpace(raw)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digitsStart := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digitsStart {
		return 0, false
	}

	n, err := strconv.Atoi(s[:end])
	if err != nil {
		// only range errors reach here; saturate in the sign's direction
		if s[0] == '-' {
			return -1, true
		}
		return int(^uint(0) >> 1), true
	}
	return n, true
}
