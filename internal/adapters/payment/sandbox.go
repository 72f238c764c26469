// Package payment provides a sandbox card payment widget with
// deterministic test cards, for development against the fake storefront.
package payment

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/eshaffer321/cartsync/internal/application/checkout"
)

// Test card numbers.
const (
	CardSuccess           = "4242424242424242"
	CardDeclined          = "4000000000000002"
	CardInsufficientFunds = "4000000000009995"
)

// Decline codes and the messages the widget reports for them.
const (
	CodeCardDeclined      = "card_declined"
	CodeInsufficientFunds = "insufficient_funds"
	CodeInvalidNumber     = "invalid_number"
	CodeIncomplete        = "incomplete_billing"

	MsgCardDeclined      = "Your card was declined."
	MsgInsufficientFunds = "Your card has insufficient funds."
	MsgInvalidNumber     = "Your card number is invalid."
)

// Sandbox confirms payments for one entered card.
type Sandbox struct {
	card   string
	logger *slog.Logger
}

var _ checkout.PaymentWidget = (*Sandbox)(nil)

// NewSandbox creates a widget holding card. Spaces and dashes in the number
// are ignored.
func NewSandbox(card string, logger *slog.Logger) *Sandbox {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sandbox{card: normalize(card), logger: logger}
}

// ConfirmCardPayment settles the payment for the held card.
func (s *Sandbox) ConfirmCardPayment(ctx context.Context, clientSecret string, billing checkout.BillingDetails) (checkout.PaymentIntent, error) {
	if err := ctx.Err(); err != nil {
		return checkout.PaymentIntent{}, err
	}
	if billing.Name == "" || billing.Email == "" {
		return checkout.PaymentIntent{}, &checkout.PaymentError{
			Code:    CodeIncomplete,
			Message: "Billing name and email are required.",
		}
	}

	switch {
	case !luhn(s.card):
		return checkout.PaymentIntent{}, &checkout.PaymentError{Code: CodeInvalidNumber, Message: MsgInvalidNumber}
	case s.card == CardDeclined:
		return checkout.PaymentIntent{}, &checkout.PaymentError{Code: CodeCardDeclined, Message: MsgCardDeclined}
	case s.card == CardInsufficientFunds:
		return checkout.PaymentIntent{}, &checkout.PaymentError{Code: CodeInsufficientFunds, Message: MsgInsufficientFunds}
	}

	intent := checkout.PaymentIntent{
		ID:     intentID(clientSecret),
		Status: "succeeded",
	}
	s.logger.Debug("sandbox payment confirmed", "payment_intent", intent.ID, "last4", s.card[len(s.card)-4:])
	return intent, nil
}

// intentID recovers the intent id from a "<id>_secret_<x>" client secret,
// minting a fresh one otherwise.
func intentID(clientSecret string) string {
	if id, _, ok := strings.Cut(clientSecret, "_secret_"); ok && strings.HasPrefix(id, "pi_") {
		return id
	}
	return "pi_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

func normalize(card string) string {
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return -1
		}
		return r
	}, card)
}

// luhn reports whether number is a plausible card number.
func luhn(number string) bool {
	if len(number) < 12 || len(number) > 19 {
		return false
	}
	sum := 0
	double := false
	for i := len(number) - 1; i >= 0; i-- {
		if number[i] < '0' || number[i] > '9' {
			return false
		}
		d := int(number[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}
