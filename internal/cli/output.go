package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/eshaffer321/cartsync/internal/application/cart"
	"github.com/eshaffer321/cartsync/internal/application/checkout"
	"github.com/eshaffer321/cartsync/internal/domain/pricing"
)

// PrintHeader prints the command header
func PrintHeader(w io.Writer, baseURL, action string) {
	fmt.Fprintf(w, "cartsync: %s (%s)\n", action, baseURL)
}

// PrintLines prints the cart lines as a table.
func PrintLines(w io.Writer, lines []cart.LineState) {
	if len(lines) == 0 {
		fmt.Fprintln(w, "Your cart is empty.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPRODUCT\tPRICE\tQTY\tSUBTOTAL")
	for _, l := range lines {
		sub := pricing.Line{Quantity: l.Quantity, UnitPrice: l.UnitPrice}.Subtotal()
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", l.ProductID, l.Name, l.UnitPrice, l.Quantity, sub)
	}
	tw.Flush()
}

// PrintTotals prints the totals block with the free delivery banner.
func PrintTotals(w io.Writer, t pricing.Totals, label string) {
	fmt.Fprintln(w, strings.Repeat("-", 40))
	if label != "" {
		fmt.Fprintf(w, "%s\n", label)
	}
	fmt.Fprintf(w, "Subtotal:    %s\n", t.Subtotal)
	fmt.Fprintf(w, "Delivery:    %s\n", t.Delivery)
	fmt.Fprintf(w, "Grand total: %s\n", t.GrandTotal)
	if t.ItemCount > 0 {
		fmt.Fprintf(w, "%s (%.0f%% of %s)\n", t.FreeDeliveryMessage(), t.Progress, t.Threshold)
	}
}

// PrintWarnings prints page integration warnings.
func PrintWarnings(w io.Writer, warnings []string) {
	for _, msg := range warnings {
		fmt.Fprintf(w, "! %s\n", msg)
	}
}

// PrintCheckoutResult prints the outcome of a submit.
func PrintCheckoutResult(w io.Writer, res checkout.Result) {
	switch res.Outcome {
	case checkout.OutcomePlaced:
		fmt.Fprintf(w, "Order placed: %s\n", res.OrderNumber)
		if res.PaymentIntentID != "" {
			fmt.Fprintf(w, "Payment: %s\n", res.PaymentIntentID)
		}
	case checkout.OutcomeBlocked:
		fmt.Fprintln(w, res.Summary.Message)
		if res.Summary.Focus != "" {
			fmt.Fprintf(w, "First field to fix: %s\n", res.Summary.Focus)
		}
	case checkout.OutcomePaymentFailed:
		msg := res.PaymentError
		if msg == "" {
			msg = checkout.MsgPaymentFailed
		}
		fmt.Fprintf(w, "Payment failed: %s\n", msg)
	default:
		fmt.Fprintf(w, "Checkout ended: %s\n", res.Outcome)
	}
}
