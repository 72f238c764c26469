// Package cart drives the optimistic quantity pipeline of the cart page.
//
// A quantity edit is clamped, shown immediately, and folded into a
// debounced local price recompute. The authoritative server call happens on
// blur or explicit submit. If the server rejects it, the line reverts to the
// last quantity the server accepted.
//
// Only one authoritative call runs at a time across the whole cart. A call
// attempted while another is outstanding is dropped with ErrSyncInProgress.
package cart

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eshaffer321/cartsync/internal/application/debounce"
	"github.com/eshaffer321/cartsync/internal/domain/pricing"
	"github.com/eshaffer321/cartsync/internal/domain/quantity"
	"github.com/eshaffer321/cartsync/internal/infrastructure/clock"
)

// Notification texts.
const (
	MsgUpdated       = "Cart updated successfully"
	MsgUpdateFailed  = "Failed to update cart"
	MsgRemoved       = "Item removed from cart"
	MsgRemoveFailed  = "Failed to remove item"
	removePromptText = "Are you sure you want to remove this item from your cart?"
)

// Config holds the cart rules.
type Config struct {
	Bounds        quantity.Bounds
	DebounceDelay time.Duration
	Policy        pricing.Policy
}

// DefaultConfig returns the stock cart rules.
func DefaultConfig() Config {
	return Config{
		Bounds:        quantity.DefaultBounds(),
		DebounceDelay: debounce.DefaultDelay,
		Policy:        pricing.DefaultPolicy(),
	}
}

type entry struct {
	id        string
	name      string
	unitPrice pricing.Money
	view      LineView
	// committed is the last quantity the server accepted
	committed int
}

// Controller owns the registry of lines on one cart page.
type Controller struct {
	cfg       Config
	service   Service
	page      Page
	cache     SnapshotCache
	clock     clock.Clock
	logger    *slog.Logger
	scheduler *debounce.Scheduler

	mu     sync.Mutex
	lines  map[string]*entry
	order  []string
	totals pricing.Totals

	syncMu  sync.Mutex
	syncing atomic.Bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock injects the time source used for debouncing.
func WithClock(c clock.Clock) Option {
	return func(ctl *Controller) { ctl.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(ctl *Controller) { ctl.logger = l }
}

// WithCache sets the snapshot cache.
func WithCache(c SnapshotCache) Option {
	return func(ctl *Controller) { ctl.cache = c }
}

// New creates a controller. Call Mount to register the rendered lines.
func New(cfg Config, service Service, page Page, opts ...Option) *Controller {
	c := &Controller{
		cfg:     cfg,
		service: service,
		page:    page,
		clock:   clock.System(),
		logger:  slog.Default(),
		lines:   make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.cfg.Bounds == (quantity.Bounds{}) {
		c.cfg.Bounds = quantity.DefaultBounds()
	}
	c.scheduler = debounce.New(c.clock, c.cfg.DebounceDelay)
	return c
}

// Mount registers the rendered lines, paints a fresh cached snapshot if
// one exists, then computes authoritative totals from the lines. It is the
// only reader of the snapshot cache.
func (c *Controller) Mount(lines []LineBinding) error {
	c.mu.Lock()
	for _, b := range lines {
		if err := c.registerLocked(b); err != nil {
			c.mu.Unlock()
			return err
		}
	}
	c.mu.Unlock()

	if c.cache != nil {
		if snap, ok := c.cache.Load(); ok {
			if sp, ok := c.page.(SnapshotPage); ok {
				sp.ShowCachedTotals(snap)
			} else {
				c.page.ShowTotals(snap)
			}
		}
	}

	c.RecomputeTotals()
	c.logger.Debug("cart mounted", "lines", len(lines))
	return nil
}

// AddLine registers one more rendered line.
func (c *Controller) AddLine(b LineBinding) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.registerLocked(b); err != nil {
		return err
	}
	c.recomputeLocked()
	return nil
}

func (c *Controller) registerLocked(b LineBinding) error {
	if b.ProductID == "" || b.View == nil {
		return ErrInvalidBinding
	}
	if _, exists := c.lines[b.ProductID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateLine, b.ProductID)
	}

	q := c.cfg.Bounds.Parse(b.View.RawQuantity())
	if strconv.Itoa(q) != b.View.RawQuantity() {
		b.View.ShowQuantity(q)
	}
	c.lines[b.ProductID] = &entry{
		id:        b.ProductID,
		name:      b.Name,
		unitPrice: b.UnitPrice,
		view:      b.View,
		committed: q,
	}
	c.order = append(c.order, b.ProductID)
	c.refreshControlsLocked(c.lines[b.ProductID], q)
	return nil
}

// Increment steps the line up by one. At the maximum it is a no-op and
// reports false.
func (c *Controller) Increment(productID string) (bool, error) {
	return c.step(productID, 1)
}

// Decrement steps the line down by one. At the minimum it is a no-op and
// reports false.
func (c *Controller) Decrement(productID string) (bool, error) {
	return c.step(productID, -1)
}

func (c *Controller) step(productID string, delta int) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, err := c.lookupLocked(productID)
	if err != nil {
		return false, err
	}

	current := c.cfg.Bounds.Parse(e.view.RawQuantity())
	next, changed := c.cfg.Bounds.Step(current, delta)
	if !changed {
		c.refreshControlsLocked(e, current)
		return false, nil
	}

	e.view.ShowQuantity(next)
	c.refreshControlsLocked(e, next)
	c.scheduleRecompute(productID)
	return true, nil
}

// SetQuantity handles typed input. The value is parsed and clamped, and
// written back when the correction changed it. It returns the value kept.
func (c *Controller) SetQuantity(productID, raw string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, err := c.lookupLocked(productID)
	if err != nil {
		return 0, err
	}

	q := c.cfg.Bounds.Parse(raw)
	if e.view.RawQuantity() != strconv.Itoa(q) {
		e.view.ShowQuantity(q)
	}
	c.refreshControlsLocked(e, q)
	c.scheduleRecompute(productID)
	return q, nil
}

// Blur normalises the displayed quantity and commits it immediately. A
// pending debounced recompute for the line is run first, not waited for.
func (c *Controller) Blur(ctx context.Context, productID string) error {
	q, err := c.normalise(productID)
	if err != nil {
		return err
	}
	// the line's local recompute runs now rather than after the commit
	c.scheduler.FlushKey(productID)
	return c.CommitQuantity(ctx, productID, q)
}

// Submit commits the displayed quantity, as the line's quantity form does.
func (c *Controller) Submit(ctx context.Context, productID string) error {
	return c.Blur(ctx, productID)
}

func (c *Controller) normalise(productID string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, err := c.lookupLocked(productID)
	if err != nil {
		return 0, err
	}
	raw := e.view.RawQuantity()
	q := c.cfg.Bounds.Parse(raw)
	if strconv.Itoa(q) != raw {
		e.view.ShowQuantity(q)
	}
	c.refreshControlsLocked(e, q)
	return q, nil
}

// CommitQuantity sends q to the server. On success q becomes the line's
// committed quantity and the snapshot is saved. On failure the view reverts
// to the previously committed quantity.
func (c *Controller) CommitQuantity(ctx context.Context, productID string, q int) error {
	if !c.syncMu.TryLock() {
		c.logger.Debug("dropping cart update, sync in progress", "product_id", productID)
		return ErrSyncInProgress
	}
	c.syncing.Store(true)
	defer func() {
		c.syncing.Store(false)
		c.syncMu.Unlock()
	}()

	c.mu.Lock()
	e, err := c.lookupLocked(productID)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	q = c.cfg.Bounds.Clamp(q)
	e.view.SetUpdating(true)
	c.mu.Unlock()

	callErr := c.service.AdjustLine(ctx, productID, q)

	c.mu.Lock()
	defer c.mu.Unlock()
	e.view.SetUpdating(false)

	if callErr != nil {
		c.logger.Warn("cart update failed",
			"product_id", productID,
			"quantity", q,
			"reverted_to", e.committed,
			slog.Any("error", callErr))
		e.view.ShowQuantity(e.committed)
		c.refreshControlsLocked(e, e.committed)
		c.recomputeLocked()
		c.page.Notify(Notification{Level: LevelError, Message: MsgUpdateFailed})
		return fmt.Errorf("adjust line %s: %w", productID, callErr)
	}

	e.committed = q
	c.refreshControlsLocked(e, c.cfg.Bounds.Parse(e.view.RawQuantity()))
	totals := c.recomputeLocked()
	c.saveSnapshot(totals)
	c.page.Notify(Notification{Level: LevelSuccess, Message: MsgUpdated})
	c.logger.Info("cart line updated", "product_id", productID, "quantity", q)
	return nil
}

// RemoveLine asks for confirmation and then removes the line on the
// server. It reports whether the line was removed. A declined prompt is
// not an error. When the last line goes the page is reloaded.
func (c *Controller) RemoveLine(ctx context.Context, productID string) (bool, error) {
	c.mu.Lock()
	if _, err := c.lookupLocked(productID); err != nil {
		c.mu.Unlock()
		return false, err
	}
	c.mu.Unlock()

	ok, err := c.page.Confirm(ctx, Prompt{Title: "Remove Item", Message: removePromptText})
	if err != nil {
		return false, fmt.Errorf("confirm removal: %w", err)
	}
	if !ok {
		return false, nil
	}

	if !c.syncMu.TryLock() {
		c.logger.Debug("dropping cart removal, sync in progress", "product_id", productID)
		return false, ErrSyncInProgress
	}
	c.syncing.Store(true)
	defer func() {
		c.syncing.Store(false)
		c.syncMu.Unlock()
	}()

	c.mu.Lock()
	e, err := c.lookupLocked(productID)
	if err != nil {
		c.mu.Unlock()
		return false, err
	}
	e.view.SetUpdating(true)
	c.mu.Unlock()

	if err := c.service.RemoveLine(ctx, productID); err != nil {
		c.logger.Warn("cart removal failed", "product_id", productID, slog.Any("error", err))
		c.mu.Lock()
		e.view.SetUpdating(false)
		c.page.Notify(Notification{Level: LevelError, Message: MsgRemoveFailed})
		c.mu.Unlock()
		return false, fmt.Errorf("remove line %s: %w", productID, err)
	}

	e.view.PlayRemoval(ctx)

	c.mu.Lock()
	e.view.Detach()
	delete(c.lines, productID)
	c.order = removeID(c.order, productID)
	c.scheduler.Cancel(productID)
	totals := c.recomputeLocked()
	c.saveSnapshot(totals)
	c.page.Notify(Notification{Level: LevelSuccess, Message: MsgRemoved})
	remaining := len(c.lines)
	c.mu.Unlock()

	c.logger.Info("cart line removed", "product_id", productID, "remaining", remaining)
	if remaining == 0 {
		c.page.Reload()
	}
	return true, nil
}

// RecomputeTotals derives every line subtotal and the cart totals from the
// displayed quantities and paints them.
func (c *Controller) RecomputeTotals() pricing.Totals {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recomputeLocked()
}

func (c *Controller) recomputeLocked() pricing.Totals {
	lines := make([]pricing.Line, 0, len(c.order))
	for _, id := range c.order {
		e := c.lines[id]
		q := c.cfg.Bounds.Parse(e.view.RawQuantity())
		line := pricing.Line{ProductID: id, Quantity: q, UnitPrice: e.unitPrice}
		e.view.ShowSubtotal(line.Subtotal())
		lines = append(lines, line)
	}
	c.totals = pricing.Compute(lines, c.cfg.Policy)
	c.page.ShowTotals(c.totals)
	return c.totals
}

// VisibilityChanged flushes pending recomputes when the page becomes
// visible again. Hiding the page cancels nothing.
func (c *Controller) VisibilityChanged(visible bool) {
	if !visible {
		return
	}
	if n := c.scheduler.Flush(); n > 0 {
		c.logger.Debug("flushed pending cart updates", "count", n)
	}
}

// Unload saves the current totals and stops pending work.
func (c *Controller) Unload() {
	if n := c.scheduler.Len(); n > 0 {
		c.logger.Debug("dropping pending cart recomputes", "count", n)
	}
	c.scheduler.Stop()

	c.mu.Lock()
	totals := c.recomputeLocked()
	c.mu.Unlock()

	c.saveSnapshot(totals)
}

// Totals returns the most recently computed totals.
func (c *Controller) Totals() pricing.Totals {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totals
}

// Syncing reports whether an authoritative call is outstanding.
func (c *Controller) Syncing() bool {
	return c.syncing.Load()
}

// Pending reports whether a debounced recompute is waiting for the line.
func (c *Controller) Pending(productID string) bool {
	return c.scheduler.Pending(productID)
}

// LineState is a read-only view of a registered line.
type LineState struct {
	ProductID string
	Name      string
	UnitPrice pricing.Money
	Quantity  int
	Committed int
}

// Lines returns the registered lines in page order.
func (c *Controller) Lines() []LineState {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]LineState, 0, len(c.order))
	for _, id := range c.order {
		e := c.lines[id]
		out = append(out, LineState{
			ProductID: id,
			Name:      e.name,
			UnitPrice: e.unitPrice,
			Quantity:  c.cfg.Bounds.Parse(e.view.RawQuantity()),
			Committed: e.committed,
		})
	}
	return out
}

func (c *Controller) lookupLocked(productID string) (*entry, error) {
	e, ok := c.lines[productID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownLine, productID)
	}
	return e, nil
}

func (c *Controller) refreshControlsLocked(e *entry, q int) {
	e.view.SetControls(c.cfg.Bounds.Controls(q))
}

func (c *Controller) scheduleRecompute(productID string) {
	c.scheduler.Schedule(productID, func() {
		c.RecomputeTotals()
	})
}

func (c *Controller) saveSnapshot(t pricing.Totals) {
	if c.cache != nil {
		c.cache.Save(t)
	}
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
