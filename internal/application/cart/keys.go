package cart

import "context"

// Key is a key press on a line's quantity controls.
type Key struct {
	Name string
	Ctrl bool
}

// HandleKey maps shortcuts onto line operations: ArrowUp or "+" increments,
// ArrowDown or "-" decrements, Ctrl+Delete or Ctrl+Backspace asks to remove
// the line. It reports whether the key was handled.
func (c *Controller) HandleKey(ctx context.Context, productID string, k Key) (bool, error) {
	switch {
	case k.Name == "ArrowUp" || k.Name == "+":
		_, err := c.Increment(productID)
		return true, err
	case k.Name == "ArrowDown" || k.Name == "-":
		_, err := c.Decrement(productID)
		return true, err
	case k.Ctrl && (k.Name == "Delete" || k.Name == "Backspace"):
		_, err := c.RemoveLine(ctx, productID)
		return true, err
	default:
		return false, nil
	}
}
