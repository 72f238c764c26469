package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/eshaffer321/cartsync/internal/infrastructure/clock"
)

// DefaultSubmitTimeout is the hard ceiling on the loading state.
const DefaultSubmitTimeout = 30 * time.Second

// Messages shown in the payment error region.
const (
	MsgPaymentSystem = "Payment system error. Please refresh the page and try again."
	MsgPaymentFailed = "An error occurred. Please try again."
)

// Address is the billing address sent to the payment widget.
type Address struct {
	Line1      string
	Line2      string
	City       string
	State      string
	PostalCode string
	Country    string
}

// BillingDetails accompanies a card payment confirmation.
type BillingDetails struct {
	Name    string
	Email   string
	Phone   string
	Address Address
}

// PaymentIntent is the widget's answer to a confirmation.
type PaymentIntent struct {
	ID     string
	Status string
}

// PaymentWidget confirms a card payment against a one-time client secret.
// A declined or invalid card is reported as a *PaymentError.
type PaymentWidget interface {
	ConfirmCardPayment(ctx context.Context, clientSecret string, billing BillingDetails) (PaymentIntent, error)
}

// OrderPlacer posts the completed form and returns the order number.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, form url.Values) (string, error)
}

// SnapshotClearer drops the locally cached cart totals once the cart has
// been turned into an order.
type SnapshotClearer interface {
	Clear()
}

// Outcome is how a submission ended.
type Outcome int

const (
	// OutcomeBlocked means validation stopped the submission
	OutcomeBlocked Outcome = iota
	// OutcomePaymentFailed means the widget or client secret failed
	OutcomePaymentFailed
	// OutcomePlaced means the order was created
	OutcomePlaced
)

func (o Outcome) String() string {
	switch o {
	case OutcomePaymentFailed:
		return "payment_failed"
	case OutcomePlaced:
		return "placed"
	default:
		return "blocked"
	}
}

// Result reports a submission.
type Result struct {
	Outcome         Outcome
	Summary         Summary
	PaymentError    string
	PaymentIntentID string
	OrderNumber     string
}

// Checkout runs the submit flow for one form.
type Checkout struct {
	form         *Form
	orders       OrderPlacer
	widget       PaymentWidget
	clientSecret string
	snapshot     SnapshotClearer
	clock        clock.Clock
	timeout      time.Duration
	logger       *slog.Logger

	mu      sync.Mutex
	loading bool
	gen     uint64
	timer   clock.Timer
}

// Option configures a Checkout.
type Option func(*Checkout)

// WithWidget enables the card payment path. clientSecret is the hidden
// one-time secret rendered into the page.
func WithWidget(w PaymentWidget, clientSecret string) Option {
	return func(c *Checkout) {
		c.widget = w
		c.clientSecret = clientSecret
	}
}

// WithClientSecret sets the secret without a widget; it is still posted
// with the order.
func WithClientSecret(secret string) Option {
	return func(c *Checkout) { c.clientSecret = secret }
}

// WithSnapshot clears the cached cart snapshot after an order is placed.
func WithSnapshot(s SnapshotClearer) Option {
	return func(c *Checkout) { c.snapshot = s }
}

// WithClock injects the time source for the submit ceiling.
func WithClock(clk clock.Clock) Option {
	return func(c *Checkout) { c.clock = clk }
}

// WithSubmitTimeout overrides the submit ceiling.
func WithSubmitTimeout(d time.Duration) Option {
	return func(c *Checkout) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Checkout) { c.logger = l }
}

// New creates a checkout over form. Without WithWidget the form submits
// natively after a required-field check.
func New(form *Form, orders OrderPlacer, opts ...Option) *Checkout {
	c := &Checkout{
		form:    form,
		orders:  orders,
		clock:   clock.System(),
		timeout: DefaultSubmitTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.clock == nil {
		c.clock = clock.System()
	}
	return c
}

// Submit validates the form and, when it passes, confirms payment and
// places the order. Validation and payment failures are reported in the
// Result; only transport failures placing the order return an error.
//
// The loading state is force-cleared after the submit timeout even if the
// widget or order call is still running. Those calls are not cancelled.
func (c *Checkout) Submit(ctx context.Context) (Result, error) {
	gen, ok := c.begin()
	if !ok {
		return Result{}, ErrSubmitInProgress
	}
	defer c.end(gen)

	if c.widget == nil {
		return c.submitNative(ctx)
	}

	if !c.form.ValidateAll() {
		summary := c.form.Summary()
		c.logger.Info("checkout blocked by validation", "fields", strings.Join(summary.Labels, ", "))
		return Result{Outcome: OutcomeBlocked, Summary: summary}, nil
	}

	secret := strings.TrimSpace(c.clientSecret)
	if secret == "" || secret == "None" {
		c.logger.Error("checkout has no client secret")
		return Result{Outcome: OutcomePaymentFailed, PaymentError: MsgPaymentSystem}, nil
	}

	intent, err := c.widget.ConfirmCardPayment(ctx, secret, c.form.Billing())
	if err != nil {
		msg := MsgPaymentFailed
		var pe *PaymentError
		if errors.As(err, &pe) {
			msg = pe.Message
		}
		c.logger.Warn("card payment failed", slog.Any("error", err))
		return Result{Outcome: OutcomePaymentFailed, PaymentError: msg}, nil
	}
	if intent.Status != "succeeded" {
		c.logger.Warn("card payment not completed", "payment_intent", intent.ID, "status", intent.Status)
		return Result{
			Outcome:         OutcomePaymentFailed,
			PaymentError:    fmt.Sprintf("Payment was not completed (status: %s).", intent.Status),
			PaymentIntentID: intent.ID,
		}, nil
	}

	values := c.form.Values()
	values.Set("client_secret", secret)
	values.Set("payment_intent_id", intent.ID)

	orderNumber, err := c.orders.PlaceOrder(ctx, values)
	if err != nil {
		return Result{Outcome: OutcomePaymentFailed, PaymentIntentID: intent.ID}, fmt.Errorf("place order: %w", err)
	}

	c.placed()
	c.logger.Info("order placed", "order_number", orderNumber, "payment_intent", intent.ID)
	return Result{Outcome: OutcomePlaced, OrderNumber: orderNumber, PaymentIntentID: intent.ID}, nil
}

func (c *Checkout) submitNative(ctx context.Context) (Result, error) {
	if missing := c.form.CheckRequired(); len(missing) > 0 {
		labels := make([]string, len(missing))
		for i, f := range missing {
			labels[i] = f.Label
		}
		return Result{Outcome: OutcomeBlocked, Summary: Summary{
			Labels:  labels,
			Focus:   missing[0].Name,
			Message: "Please complete the following required fields: " + strings.Join(labels, ", "),
		}}, nil
	}

	values := c.form.Values()
	if secret := strings.TrimSpace(c.clientSecret); secret != "" {
		values.Set("client_secret", secret)
	}

	orderNumber, err := c.orders.PlaceOrder(ctx, values)
	if err != nil {
		return Result{}, fmt.Errorf("place order: %w", err)
	}

	c.placed()
	c.logger.Info("order placed", "order_number", orderNumber)
	return Result{Outcome: OutcomePlaced, OrderNumber: orderNumber}, nil
}

// placed clears both local records of the finished cart.
func (c *Checkout) placed() {
	c.form.ClearDrafts()
	if c.snapshot != nil {
		c.snapshot.Clear()
	}
}

// Submitting reports whether the loading state is held.
func (c *Checkout) Submitting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Cancel force-clears the loading state so the shopper can retry. The
// in-flight submission keeps running.
func (c *Checkout) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loading {
		return
	}
	c.loading = false
	if c.timer != nil {
		c.timer.Stop()
	}
	c.logger.Warn("checkout loading state cancelled")
}

func (c *Checkout) begin() (uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loading {
		return 0, false
	}
	c.loading = true
	c.gen++
	gen := c.gen
	c.timer = c.clock.AfterFunc(c.timeout, func() { c.expire(gen) })
	return gen, true
}

func (c *Checkout) end(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return
	}
	c.loading = false
	if c.timer != nil {
		c.timer.Stop()
	}
}

func (c *Checkout) expire(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen || !c.loading {
		return
	}
	c.loading = false
	c.logger.Warn("checkout submission exceeded timeout, loading state cleared", "timeout", c.timeout)
}
