package checkout

import "errors"

var (
	// ErrUnknownField is returned for a field name the form does not declare.
	ErrUnknownField = errors.New("unknown checkout field")

	// ErrSubmitInProgress is returned while a submission holds the loading state.
	ErrSubmitInProgress = errors.New("checkout submission already in progress")
)

// PaymentError is a failure reported by the payment widget. Message is
// shown to the shopper verbatim.
type PaymentError struct {
	Code    string
	Message string
}

func (e *PaymentError) Error() string {
	if e.Code != "" {
		return "payment failed (" + e.Code + "): " + e.Message
	}
	return "payment failed: " + e.Message
}
