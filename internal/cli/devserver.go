package cli

import (
	"context"
	"log/slog"
	"net"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/eshaffer321/cartsync/internal/api"
	"github.com/eshaffer321/cartsync/internal/api/handlers"
)

// DevServerOptions holds flags for the devserver command.
type DevServerOptions struct {
	*RootOptions
	Port int
}

// NewDevServerCommand creates the devserver command.
func NewDevServerCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DevServerOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "devserver",
		Short: "Run a local storefront to drive the client against",
		Long: `Run a local storefront with a seeded catalog. It serves the cart and
checkout pages and endpoints the client uses. State lives in memory.

Set devserver.public_key to a pk_test_ key and devserver.card_element to
true to exercise the card payment path.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return RunDevServer(ctx, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Port, "port", 0, "port to listen on (default from config)")

	return cmd
}

// RunDevServer runs the storefront until ctx ends or the process is
// interrupted.
func RunDevServer(ctx context.Context, opts *DevServerOptions) error {
	cfg := opts.Config
	logger := opts.component("devserver")

	policy, _, err := cfg.Cart.Policy()
	if err != nil {
		return err
	}

	apiCfg := api.DefaultConfig()
	apiCfg.Port = cfg.DevServer.Port
	if opts.Port != 0 {
		apiCfg.Port = opts.Port
	}
	if len(cfg.DevServer.AllowedOrigins) > 0 {
		apiCfg.AllowedOrigins = cfg.DevServer.AllowedOrigins
	}
	apiCfg.CSRFField = cfg.Storefront.CSRFField
	apiCfg.Policy = policy
	apiCfg.Payment = handlers.PaymentConfig{
		PublicKey:   cfg.DevServer.PublicKey,
		CardElement: cfg.DevServer.CardElement,
	}

	ln, err := net.Listen("tcp", net.JoinHostPort("", strconv.Itoa(apiCfg.Port)))
	if err != nil {
		return err
	}

	server := api.NewServer(apiCfg, nil, logger)

	// Handle graceful shutdown
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		logger.Info("received shutdown signal")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", slog.Any("error", err))
		}
		// Serve may not have taken the listener yet
		_ = ln.Close()
	}()

	// Serve blocks until shutdown
	serveErr := server.Serve(ln)
	interrupted := ctx.Err() != nil
	stop()
	<-done

	if serveErr != nil && !interrupted {
		return serveErr
	}
	logger.Info("server stopped")
	return nil
}
