package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/eshaffer321/cartsync/internal/adapters/page"
	"github.com/eshaffer321/cartsync/internal/adapters/storefront"
	"github.com/eshaffer321/cartsync/internal/application/cartcache"
	"github.com/eshaffer321/cartsync/internal/domain/pricing"
	"github.com/eshaffer321/cartsync/internal/infrastructure/config"
	"github.com/eshaffer321/cartsync/internal/infrastructure/logging"
	"github.com/eshaffer321/cartsync/internal/infrastructure/storage"
)

// workspace is what every client command opens: the storefront session
// and the local store.
type workspace struct {
	cfg    *config.Config
	logger *slog.Logger
	client *storefront.Client
	store  *storage.Storage
}

func openWorkspace(opts *RootOptions) (*workspace, error) {
	cfg := opts.Config
	client, err := storefront.NewClient(storefront.Config{
		BaseURL:   cfg.Storefront.BaseURL,
		CSRFField: cfg.Storefront.CSRFField,
		Timeout:   cfg.Storefront.Timeout,
	}, storefront.WithLogger(opts.component("storefront")))
	if err != nil {
		return nil, fmt.Errorf("create storefront client: %w", err)
	}

	store, err := storage.NewStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}

	ws := &workspace{cfg: cfg, logger: opts.Logger, client: client, store: store}
	ws.resumeSession()
	return ws, nil
}

// sessionKey holds the storefront cookies between runs.
const sessionKey = "storefront_session"

type savedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func (w *workspace) resumeSession() {
	raw, ok, err := w.store.GetItem(sessionKey)
	if err != nil || !ok {
		return
	}
	var saved []savedCookie
	if err := json.Unmarshal([]byte(raw), &saved); err != nil {
		w.logger.Debug("ignoring corrupt saved session")
		return
	}
	cookies := make([]*http.Cookie, 0, len(saved))
	for _, c := range saved {
		cookies = append(cookies, &http.Cookie{Name: c.Name, Value: c.Value, Path: "/"})
	}
	w.client.SetCookies(cookies)
}

func (w *workspace) saveSession() {
	cookies := w.client.Cookies()
	if len(cookies) == 0 {
		return
	}
	saved := make([]savedCookie, 0, len(cookies))
	for _, c := range cookies {
		saved = append(saved, savedCookie{Name: c.Name, Value: c.Value})
	}
	data, err := json.Marshal(saved)
	if err != nil {
		return
	}
	if err := w.store.SetItem(sessionKey, string(data)); err != nil {
		w.logger.Warn("could not save storefront session", slog.Any("error", err))
	}
}

// Close saves the storefront session and closes the local store.
func (w *workspace) Close() {
	w.saveSession()
	if err := w.store.Close(); err != nil {
		w.logger.Warn("error closing local store", slog.Any("error", err))
	}
}

func (w *workspace) snapshotCache() *cartcache.Cache {
	return cartcache.New(w.store,
		cartcache.WithKey(w.cfg.Cart.SnapshotKey),
		cartcache.WithMaxAge(w.cfg.Cart.SnapshotMaxAge),
		cartcache.WithLogger(w.logger.With(logging.ComponentKey, "cartcache")))
}

// resolvePolicy picks the delivery threshold: configured value first, then
// the cart page tooltip, then the stock default. Falling back to the
// default is logged and reported as a warning.
func resolvePolicy(cfg config.CartConfig, parsed *page.Cart, logger *slog.Logger) (pricing.Policy, []string, error) {
	policy, ok, err := cfg.Policy()
	if err != nil {
		return policy, nil, err
	}
	if ok {
		return policy, nil, nil
	}
	if parsed != nil && parsed.HasThreshold() {
		policy.Threshold = parsed.Threshold
		return policy, nil, nil
	}

	policy.Threshold = pricing.DefaultThreshold
	logger.Warn("free delivery threshold unavailable, using default", "threshold", policy.Threshold.String())
	return policy, []string{fmt.Sprintf("free delivery threshold unavailable, using %s", policy.Threshold)}, nil
}
