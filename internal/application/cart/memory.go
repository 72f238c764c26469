package cart

import (
	"context"
	"strconv"
	"sync"

	"github.com/eshaffer321/cartsync/internal/domain/pricing"
)

// MemoryLine is a LineView that keeps its state in memory. The CLI renders
// from it after each operation.
type MemoryLine struct {
	mu          sync.Mutex
	raw         string
	subtotal    pricing.Money
	decDisabled bool
	incDisabled bool
	updating    bool
	detached    bool
	removals    int
}

var _ LineView = (*MemoryLine)(nil)

// NewMemoryLine creates a line showing quantity q.
func NewMemoryLine(q int) *MemoryLine {
	return &MemoryLine{raw: strconv.Itoa(q)}
}

// Type replaces the displayed text, as a shopper typing into the input.
func (l *MemoryLine) Type(raw string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.raw = raw
}

func (l *MemoryLine) RawQuantity() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.raw
}

func (l *MemoryLine) ShowQuantity(q int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.raw = strconv.Itoa(q)
}

func (l *MemoryLine) ShowSubtotal(m pricing.Money) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.subtotal = m
}

func (l *MemoryLine) SetControls(decDisabled, incDisabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.decDisabled, l.incDisabled = decDisabled, incDisabled
}

func (l *MemoryLine) SetUpdating(updating bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.updating = updating
}

func (l *MemoryLine) PlayRemoval(context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.removals++
}

func (l *MemoryLine) Detach() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.detached = true
}

// Subtotal returns the last painted subtotal.
func (l *MemoryLine) Subtotal() pricing.Money {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.subtotal
}

// Controls returns the disabled state of the decrement and increment buttons.
func (l *MemoryLine) Controls() (decDisabled, incDisabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.decDisabled, l.incDisabled
}

// Updating reports whether the busy indicator is on.
func (l *MemoryLine) Updating() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.updating
}

// Detached reports whether the line was removed from the page.
func (l *MemoryLine) Detached() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.detached
}

// MemoryPage is a Page that records what it was asked to show.
type MemoryPage struct {
	mu            sync.Mutex
	totals        pricing.Totals
	paints        int
	notifications []Notification
	prompts       []Prompt
	reloads       int

	// ConfirmFunc answers prompts; nil confirms everything
	ConfirmFunc func(Prompt) bool
}

var _ Page = (*MemoryPage)(nil)

// NewMemoryPage creates an empty page.
func NewMemoryPage() *MemoryPage {
	return &MemoryPage{}
}

func (p *MemoryPage) ShowTotals(t pricing.Totals) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.totals = t
	p.paints++
}

func (p *MemoryPage) Notify(n Notification) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notifications = append(p.notifications, n)
}

func (p *MemoryPage) Confirm(ctx context.Context, prompt Prompt) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	p.mu.Lock()
	p.prompts = append(p.prompts, prompt)
	fn := p.ConfirmFunc
	p.mu.Unlock()

	if fn == nil {
		return true, nil
	}
	return fn(prompt), nil
}

func (p *MemoryPage) Reload() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reloads++
}

// Totals returns the last painted totals.
func (p *MemoryPage) Totals() pricing.Totals {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.totals
}

// Paints returns how many times totals were painted.
func (p *MemoryPage) Paints() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paints
}

// Notifications returns every notification shown so far.
func (p *MemoryPage) Notifications() []Notification {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Notification(nil), p.notifications...)
}

// Prompts returns every confirmation prompt shown so far.
func (p *MemoryPage) Prompts() []Prompt {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Prompt(nil), p.prompts...)
}

// Reloads returns how many times a reload was requested.
func (p *MemoryPage) Reloads() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reloads
}
