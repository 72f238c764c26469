package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/eshaffer321/cartsync/internal/application/cart"
	"github.com/eshaffer321/cartsync/internal/domain/pricing"
)

// terminalPage is the cart page as seen from a terminal. Notifications are
// printed as they happen. Totals are held for the command to print.
type terminalPage struct {
	out        io.Writer
	in         *bufio.Reader
	assume     bool // answer every prompt with yes
	showCached bool // print the snapshot painted at mount

	mu       sync.Mutex
	totals   pricing.Totals
	reloaded bool
}

var (
	_ cart.Page         = (*terminalPage)(nil)
	_ cart.SnapshotPage = (*terminalPage)(nil)
)

func newTerminalPage(out io.Writer, in io.Reader, assumeYes bool) *terminalPage {
	return &terminalPage{out: out, in: bufio.NewReader(in), assume: assumeYes}
}

// ShowCachedTotals prints the last known totals ahead of the fetched cart
// when the command asked for them. They are never kept as the page totals.
func (p *terminalPage) ShowCachedTotals(t pricing.Totals) {
	if p.showCached {
		PrintTotals(p.out, t, "Last known totals (cached):")
	}
}

func (p *terminalPage) ShowTotals(t pricing.Totals) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.totals = t
}

func (p *terminalPage) Notify(n cart.Notification) {
	fmt.Fprintf(p.out, "%s %s\n", notificationMark(n.Level), n.Message)
}

// Confirm reads y/yes from the input. Anything else, including EOF, is no.
func (p *terminalPage) Confirm(ctx context.Context, prompt cart.Prompt) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if p.assume {
		return true, nil
	}

	fmt.Fprintf(p.out, "%s: %s [y/N] ", prompt.Title, prompt.Message)
	answer, err := p.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("read answer: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// Reload marks the page stale; the command re-fetches the cart.
func (p *terminalPage) Reload() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reloaded = true
}

func (p *terminalPage) Totals() pricing.Totals {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.totals
}

func (p *terminalPage) Reloaded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reloaded
}

func notificationMark(l cart.Level) string {
	switch l {
	case cart.LevelSuccess:
		return "✓"
	case cart.LevelError:
		return "✗"
	case cart.LevelWarning:
		return "!"
	default:
		return "-"
	}
}

// terminalLine is a cart line whose removal takes the configured animation
// time, so the shopper sees the line go.
type terminalLine struct {
	*cart.MemoryLine
	removal time.Duration
}

func newTerminalLine(q int, removal time.Duration) *terminalLine {
	return &terminalLine{MemoryLine: cart.NewMemoryLine(q), removal: removal}
}

func (l *terminalLine) PlayRemoval(ctx context.Context) {
	if l.removal <= 0 {
		return
	}
	t := time.NewTimer(l.removal)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
