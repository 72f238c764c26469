package cart

import (
	"context"

	"github.com/eshaffer321/cartsync/internal/domain/pricing"
)

// LineView is the rendered widget for one cart line.
type LineView interface {
	// RawQuantity returns the quantity text as currently displayed
	RawQuantity() string
	ShowQuantity(q int)
	ShowSubtotal(m pricing.Money)
	SetControls(decDisabled, incDisabled bool)
	// SetUpdating toggles the busy indicator while a network call is outstanding
	SetUpdating(updating bool)
	// PlayRemoval runs the exit animation and returns when it finishes
	PlayRemoval(ctx context.Context)
	// Detach removes the line from the page
	Detach()
}

// Level classifies a notification.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Notification is a transient message shown to the shopper.
type Notification struct {
	Level   Level
	Message string
}

// Prompt describes a confirmation dialog.
type Prompt struct {
	Title   string
	Message string
}

// Page is the cart page around the lines.
type Page interface {
	ShowTotals(t pricing.Totals)
	Notify(n Notification)
	// Confirm asks the shopper and blocks until they answer or ctx ends
	Confirm(ctx context.Context, p Prompt) (bool, error)
	// Reload re-renders the whole page from the server
	Reload()
}

// SnapshotPage is implemented by pages that render the cached snapshot
// differently from computed totals. Other pages get it through ShowTotals.
type SnapshotPage interface {
	ShowCachedTotals(t pricing.Totals)
}

// Service performs the authoritative cart mutations.
type Service interface {
	AdjustLine(ctx context.Context, productID string, quantity int) error
	RemoveLine(ctx context.Context, productID string) error
}

// SnapshotCache stores the last settled totals for instant render.
type SnapshotCache interface {
	Save(t pricing.Totals)
	Load() (pricing.Totals, bool)
}

// LineBinding attaches a rendered line to the controller.
type LineBinding struct {
	ProductID string
	Name      string
	UnitPrice pricing.Money
	View      LineView
}
