package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/eshaffer321/cartsync/internal/application/cart"
)

// NewCartCommand creates the cart command group.
func NewCartCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Show and edit the storefront cart",
	}

	cmd.AddCommand(newCartShowCommand(rootOpts))
	cmd.AddCommand(newCartAddCommand(rootOpts))
	cmd.AddCommand(newCartSetCommand(rootOpts))
	cmd.AddCommand(newCartStepCommand(rootOpts, "inc", "Add one to a line", (*cart.Controller).Increment))
	cmd.AddCommand(newCartStepCommand(rootOpts, "dec", "Take one from a line", (*cart.Controller).Decrement))
	cmd.AddCommand(newCartRemoveCommand(rootOpts))
	cmd.AddCommand(newCartPressCommand(rootOpts))

	return cmd
}

func newCartShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the cart lines and totals",
		Long: `Print the cart lines and totals.

When a snapshot of the last totals is fresh it is printed first, then the
totals are recomputed from the fetched lines.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCart(cmd, rootOpts, cartMode{showCached: true}, func(ctx context.Context, s *cartSession) error {
				return nil
			})
		},
	}
}

func newCartAddCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add <product-id> [quantity]",
		Short: "Put a product in the cart",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := 1
			if len(args) == 2 {
				n, err := strconv.Atoi(args[1])
				if err != nil || n < 1 {
					return fmt.Errorf("invalid quantity %q", args[1])
				}
				q = n
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ws, err := openWorkspace(rootOpts)
			if err != nil {
				return err
			}
			defer ws.Close()

			// the add form needs a token from a page
			if _, err := ws.client.FetchCartPage(ctx); err != nil {
				return fmt.Errorf("fetch cart: %w", err)
			}
			if err := ws.client.AddLine(ctx, args[0], q); err != nil {
				return fmt.Errorf("add %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %d x %s.\n", q, args[0])
			return nil
		},
	}
}

func newCartSetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set <product-id> <quantity>",
		Short: "Set a line's quantity",
		Long: `Set a line's quantity. The value is clamped to the configured range and
sent to the storefront. If the storefront rejects it the line keeps its
previous quantity.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, raw := args[0], args[1]
			return withCart(cmd, rootOpts, cartMode{}, func(ctx context.Context, s *cartSession) error {
				if _, err := s.ctl.SetQuantity(id, raw); err != nil {
					return lineError(id, err)
				}
				return s.ctl.Blur(ctx, id)
			})
		},
	}
}

func newCartStepCommand(rootOpts *RootOptions, use, short string, step func(*cart.Controller, string) (bool, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <product-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return withCart(cmd, rootOpts, cartMode{}, func(ctx context.Context, s *cartSession) error {
				changed, err := step(s.ctl, id)
				if err != nil {
					return lineError(id, err)
				}
				if !changed {
					fmt.Fprintf(s.out, "Line %s is already at its limit.\n", id)
					return nil
				}
				return s.ctl.Blur(ctx, id)
			})
		},
	}
}

func newCartRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:     "rm <product-id>",
		Aliases: []string{"remove"},
		Short:   "Remove a line from the cart",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return withCart(cmd, rootOpts, cartMode{assumeYes: yes}, func(ctx context.Context, s *cartSession) error {
				removed, err := s.ctl.RemoveLine(ctx, id)
				if err != nil {
					return lineError(id, err)
				}
				if !removed {
					fmt.Fprintln(s.out, "Kept.")
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "remove without asking")
	return cmd
}

func newCartPressCommand(rootOpts *RootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "press <product-id> <key>...",
		Short: "Apply line shortcuts, then commit the quantity",
		Long: `Apply the line's keyboard shortcuts in order, then commit the resulting
quantity once.

Keys:
  + or up                       add one
  - or down                     take one
  ctrl+delete or ctrl+backspace remove the line (asks first)

Example:
  cartsync cart press 5 + + -`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			keys, err := ParseKeys(args[1:])
			if err != nil {
				return err
			}
			return withCart(cmd, rootOpts, cartMode{assumeYes: yes}, func(ctx context.Context, s *cartSession) error {
				for _, k := range keys {
					if _, err := s.ctl.HandleKey(ctx, id, k); err != nil {
						return lineError(id, err)
					}
					if !hasLine(s.ctl, id) {
						// removed, nothing left to commit
						return nil
					}
				}
				return s.ctl.Blur(ctx, id)
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "remove without asking")
	return cmd
}

func hasLine(ctl *cart.Controller, id string) bool {
	for _, l := range ctl.Lines() {
		if l.ProductID == id {
			return true
		}
	}
	return false
}

// cartMode tunes withCart for one command.
type cartMode struct {
	showCached bool // print a fresh snapshot when the cart mounts
	assumeYes  bool
}

// cartSession is a mounted cart ready for one edit.
type cartSession struct {
	ctl *cart.Controller
	out io.Writer
}

// withCart fetches the cart page, mounts it, runs edit, and prints the
// resulting cart. A page reload re-fetches the cart before printing.
func withCart(cmd *cobra.Command, rootOpts *RootOptions, mode cartMode, edit func(context.Context, *cartSession) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	ws, err := openWorkspace(rootOpts)
	if err != nil {
		return err
	}
	defer ws.Close()

	PrintHeader(out, ws.cfg.Storefront.BaseURL, cmd.CommandPath())

	parsed, err := ws.client.FetchCartPage(ctx)
	if err != nil {
		return fmt.Errorf("fetch cart: %w", err)
	}
	policy, warnings, err := resolvePolicy(ws.cfg.Cart, parsed, rootOpts.component("cart"))
	if err != nil {
		return err
	}
	PrintWarnings(out, append(parsed.Warnings, warnings...))

	cfg := cart.Config{
		Bounds:        ws.cfg.Cart.Bounds(),
		DebounceDelay: ws.cfg.Cart.DebounceDelay,
		Policy:        policy,
	}
	tp := newTerminalPage(out, cmd.InOrStdin(), mode.assumeYes)
	tp.showCached = mode.showCached
	ctl := cart.New(cfg, ws.client, tp, cart.WithCache(ws.snapshotCache()), cart.WithLogger(rootOpts.component("cart")))

	bindings := make([]cart.LineBinding, 0, len(parsed.Items))
	for _, it := range parsed.Items {
		bindings = append(bindings, cart.LineBinding{
			ProductID: it.ProductID,
			Name:      it.Name,
			UnitPrice: it.UnitPrice,
			View:      newTerminalLine(it.Quantity, ws.cfg.Cart.RemovalAnimation),
		})
	}
	if err := ctl.Mount(bindings); err != nil {
		ctl.Unload()
		return fmt.Errorf("mount cart: %w", err)
	}

	editErr := edit(ctx, &cartSession{ctl: ctl, out: out})
	ctl.Unload()

	if tp.Reloaded() {
		fresh, err := ws.client.FetchCartPage(ctx)
		if err != nil {
			return fmt.Errorf("reload cart: %w", err)
		}
		lines := make([]cart.LineState, 0, len(fresh.Items))
		for _, it := range fresh.Items {
			lines = append(lines, cart.LineState{ProductID: it.ProductID, Name: it.Name, UnitPrice: it.UnitPrice, Quantity: it.Quantity, Committed: it.Quantity})
		}
		PrintLines(out, lines)
		return editErr
	}

	PrintLines(out, ctl.Lines())
	if len(ctl.Lines()) > 0 {
		PrintTotals(out, tp.Totals(), "")
	}
	return editErr
}

func lineError(id string, err error) error {
	if errors.Is(err, cart.ErrUnknownLine) {
		return fmt.Errorf("product %s is not in the cart", id)
	}
	return err
}
