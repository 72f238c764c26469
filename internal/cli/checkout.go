package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eshaffer321/cartsync/internal/adapters/payment"
	"github.com/eshaffer321/cartsync/internal/adapters/storefront"
	"github.com/eshaffer321/cartsync/internal/application/checkout"
)

// CheckoutOptions holds flags for the checkout command.
type CheckoutOptions struct {
	*RootOptions
	Fields []string
	Card   string
}

// NewCheckoutCommand creates the checkout command.
func NewCheckoutCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckoutOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Fill in the checkout form and place the order",
		Long: `Fill in the checkout form and place the order.

Field values are saved locally as they are entered and restored on the next
run, so a failed attempt only needs the fields that were wrong. Saved values
are cleared once an order is placed.

When the storefront takes card payments, --card is required. Test cards:
  4242 4242 4242 4242  succeeds
  4000 0000 0000 0002  is declined
  4000 0000 0000 9995  has insufficient funds

Example:
  cartsync checkout -f full_name="Ada Lovelace" -f email=ada@example.com \
    -f phone_number="020 7946 0958" -f street_address1="12 Analytical Row" \
    -f town_or_city=London -f postcode="SW1A 1AA" -f country=GB`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheckout(cmd, opts)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Fields, "field", "f", nil, "form field as name=value (repeatable)")
	cmd.Flags().StringVar(&opts.Card, "card", "", "card number for the payment widget")

	return cmd
}

func runCheckout(cmd *cobra.Command, opts *CheckoutOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()
	logger := opts.component("checkout")

	fields, err := ParseFieldFlags(opts.Fields)
	if err != nil {
		return err
	}

	ws, err := openWorkspace(opts.RootOptions)
	if err != nil {
		return err
	}
	defer ws.Close()

	PrintHeader(out, ws.cfg.Storefront.BaseURL, cmd.CommandPath())

	co, err := ws.client.FetchCheckoutPage(ctx)
	if errors.Is(err, storefront.ErrRedirected) {
		return errors.New("there's nothing in your cart at the moment")
	}
	if err != nil {
		return fmt.Errorf("fetch checkout: %w", err)
	}
	PrintWarnings(out, co.Warnings)

	form := checkout.NewForm(
		checkout.WithDrafts(ws.store),
		checkout.WithValidationDelay(ws.cfg.Checkout.ValidationDebounce),
		checkout.WithFormLogger(logger),
	)
	defer form.Stop()

	restored, err := form.RestoreDrafts()
	if err != nil {
		logger.Warn("could not restore saved fields", "error", err)
	}
	if restored > 0 {
		fmt.Fprintf(out, "Restored %d saved field(s).\n", restored)
	}
	for _, kv := range fields {
		if err := form.Input(kv[0], kv[1]); err != nil {
			return err
		}
	}

	flowOpts := []checkout.Option{
		checkout.WithSubmitTimeout(ws.cfg.Checkout.SubmitTimeout),
		checkout.WithSnapshot(ws.snapshotCache()),
		checkout.WithLogger(logger),
	}
	switch {
	case co.WidgetEnabled() && opts.Card == "":
		return errors.New("this storefront takes card payments: pass --card")
	case co.WidgetEnabled():
		widget := payment.NewSandbox(opts.Card, opts.component("payment"))
		flowOpts = append(flowOpts, checkout.WithWidget(widget, co.ClientSecret))
	default:
		if opts.Card != "" {
			fmt.Fprintln(out, "! card payments are not enabled on this storefront; submitting the form without a card")
		}
		flowOpts = append(flowOpts, checkout.WithClientSecret(co.ClientSecret))
	}

	res, err := checkout.New(form, ws.client, flowOpts...).Submit(ctx)
	if err != nil {
		return err
	}
	PrintCheckoutResult(out, res)
	if res.Outcome == checkout.OutcomeBlocked {
		done, total := form.Progress()
		fmt.Fprintf(out, "Required fields complete: %d of %d\n", done, total)
	}
	if res.Outcome != checkout.OutcomePlaced {
		return fmt.Errorf("checkout %s", res.Outcome)
	}
	return nil
}
