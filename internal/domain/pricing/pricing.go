// Package pricing computes cart totals in integer minor units.
//
// Formula:
//
//	subtotal   = Σ quantity × unit price
//	delivery   = 0                          if subtotal ≥ threshold
//	           = subtotal × rate (half-up)  otherwise
//	grandTotal = subtotal + delivery
//
// The rate is expressed in basis points (1000 = 10%). Nothing here touches
// I/O; Compute is safe to call redundantly.
package pricing

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Defaults mirror the storefront's FREE_DELIVERY_THRESHOLD and
// STANDARD_DELIVERY_PERCENTAGE settings.
const (
	DefaultThreshold Money = 25000
	DefaultRateBPS   int64 = 1000
)

// ErrThresholdNotFound is returned when a tooltip does not carry a dollar amount.
var ErrThresholdNotFound = errors.New("free delivery threshold not found")

// Line is one cart line as seen by the pricing engine.
type Line struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice Money  `json:"unit_price"`
}

// Subtotal returns quantity × unit price.
func (l Line) Subtotal() Money {
	return l.UnitPrice.Mul(l.Quantity)
}

// Policy holds the delivery pricing rules.
type Policy struct {
	Threshold Money
	RateBPS   int64
}

// DefaultPolicy returns the stock free-delivery policy.
func DefaultPolicy() Policy {
	return Policy{Threshold: DefaultThreshold, RateBPS: DefaultRateBPS}
}

// Totals is the derived summary of a cart.
type Totals struct {
	Subtotal          Money   `json:"subtotal"`
	Delivery          Money   `json:"delivery"`
	GrandTotal        Money   `json:"grand_total"`
	ItemCount         int     `json:"item_count"`
	Threshold         Money   `json:"threshold"`
	FreeDeliveryDelta Money   `json:"free_delivery_delta"`
	Progress          float64 `json:"progress"`
}

// FreeDelivery reports whether the cart qualifies for free delivery.
func (t Totals) FreeDelivery() bool {
	return t.FreeDeliveryDelta == 0
}

// FreeDeliveryMessage is the banner shown next to the totals.
func (t Totals) FreeDeliveryMessage() string {
	if t.FreeDelivery() {
		return "You qualify for FREE shipping!"
	}
	return fmt.Sprintf("Add %s more for FREE shipping!", t.FreeDeliveryDelta)
}

// Compute derives totals for the given lines.
func Compute(lines []Line, policy Policy) Totals {
	var t Totals
	for _, l := range lines {
		t.Subtotal += l.Subtotal()
		t.ItemCount += l.Quantity
	}
	t.Threshold = policy.Threshold
	t.Delivery = DeliveryFor(t.Subtotal, policy)
	t.GrandTotal = t.Subtotal + t.Delivery

	if t.Subtotal < policy.Threshold {
		t.FreeDeliveryDelta = policy.Threshold - t.Subtotal
	}
	t.Progress = progress(t.Subtotal, policy.Threshold)
	return t
}

// DeliveryFor returns the delivery charge for a subtotal.
func DeliveryFor(subtotal Money, policy Policy) Money {
	if subtotal >= policy.Threshold {
		return 0
	}
	return Money((int64(subtotal)*policy.RateBPS + 5000) / 10000)
}

func progress(subtotal, threshold Money) float64 {
	if threshold <= 0 {
		return 100
	}
	p := float64(subtotal) / float64(threshold) * 100
	if p > 100 {
		return 100
	}
	if p < 0 {
		return 0
	}
	return p
}

var thresholdPattern = regexp.MustCompile(`\$\s*([0-9][0-9,]*(?:\.[0-9]{1,2})?)`)

// ParseThreshold extracts the free-delivery threshold from tooltip text
// such as "Free delivery on orders over $250".
func ParseThreshold(text string) (Money, error) {
	m := thresholdPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, fmt.Errorf("%w in %q", ErrThresholdNotFound, strings.TrimSpace(text))
	}
	return ParseMoney(m[1])
}
