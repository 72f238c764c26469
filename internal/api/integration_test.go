package api_test

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/cartsync/internal/adapters/page"
	"github.com/eshaffer321/cartsync/internal/adapters/payment"
	"github.com/eshaffer321/cartsync/internal/adapters/storefront"
	"github.com/eshaffer321/cartsync/internal/api"
	"github.com/eshaffer321/cartsync/internal/api/handlers"
	"github.com/eshaffer321/cartsync/internal/application/cart"
	"github.com/eshaffer321/cartsync/internal/application/cartcache"
	"github.com/eshaffer321/cartsync/internal/application/checkout"
	"github.com/eshaffer321/cartsync/internal/domain/pricing"
	"github.com/eshaffer321/cartsync/internal/infrastructure/storage"
)

// =============================================================================
// Storefront integration tests
// =============================================================================
// These drive the real client stack against the real storefront router:
// storefront.Client → chi router → handlers → in-memory shop, with the
// snapshot cache and checkout drafts on a temp SQLite database.

func startStorefront(t *testing.T, cfg api.Config) (*api.Server, *storefront.Client) {
	t.Helper()

	server := api.NewServer(cfg, nil, quietLogger())
	ts := httptest.NewServer(server.Router())
	t.Cleanup(ts.Close)

	client, err := storefront.NewClient(storefront.Config{BaseURL: ts.URL}, storefront.WithLogger(quietLogger()))
	require.NoError(t, err)
	return server, client
}

func openStore(t *testing.T) *storage.Storage {
	t.Helper()
	store, err := storage.NewStorage(filepath.Join(t.TempDir(), "cartsync.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func bindLines(items []page.CartItem) ([]cart.LineBinding, map[string]*cart.MemoryLine) {
	bindings := make([]cart.LineBinding, 0, len(items))
	views := make(map[string]*cart.MemoryLine, len(items))
	for _, it := range items {
		view := cart.NewMemoryLine(it.Quantity)
		views[it.ProductID] = view
		bindings = append(bindings, cart.LineBinding{
			ProductID: it.ProductID,
			Name:      it.Name,
			UnitPrice: it.UnitPrice,
			View:      view,
		})
	}
	return bindings, views
}

func TestIntegration_CartEditsReachTheServer(t *testing.T) {
	_, client := startStorefront(t, api.DefaultConfig())
	ctx := context.Background()

	_, err := client.FetchCartPage(ctx)
	require.NoError(t, err)
	require.NoError(t, client.AddLine(ctx, "5", 1))
	require.NoError(t, client.AddLine(ctx, "6", 2))

	parsed, err := client.FetchCartPage(ctx)
	require.NoError(t, err)
	require.Len(t, parsed.Items, 2)

	store := openStore(t)
	cache := cartcache.New(store)
	pg := cart.NewMemoryPage()
	cfg := cart.DefaultConfig()
	cfg.Policy.Threshold = parsed.Threshold

	ctl := cart.New(cfg, client, pg, cart.WithCache(cache), cart.WithLogger(quietLogger()))
	defer ctl.Unload()
	bindings, views := bindLines(parsed.Items)
	require.NoError(t, ctl.Mount(bindings))

	// 89.99 + 2 x 24.99 = 139.97, delivery 14.00
	assert.Equal(t, pricing.Cents(139, 97), ctl.Totals().Subtotal)
	assert.Equal(t, pricing.Cents(14, 0), ctl.Totals().Delivery)

	views["5"].Type("3")
	_, err = ctl.SetQuantity("5", "3")
	require.NoError(t, err)
	require.NoError(t, ctl.Blur(ctx, "5"))

	parsed, err = client.FetchCartPage(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, parsed.Items[0].Quantity, "server accepted the commit")

	// 3 x 89.99 + 49.98 = 319.95, over the threshold
	snap, ok := cache.Load()
	require.True(t, ok)
	assert.Equal(t, pricing.Cents(319, 95), snap.Subtotal)
	assert.Equal(t, pricing.Money(0), snap.Delivery)

	removed, err := ctl.RemoveLine(ctx, "6")
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Equal(t, 0, pg.Reloads())

	removed, err = ctl.RemoveLine(ctx, "5")
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Equal(t, 1, pg.Reloads(), "removing the last line reloads")

	parsed, err = client.FetchCartPage(ctx)
	require.NoError(t, err)
	assert.Empty(t, parsed.Items)
}

func TestIntegration_RejectedCommitReverts(t *testing.T) {
	_, client := startStorefront(t, api.DefaultConfig())
	ctx := context.Background()

	_, err := client.FetchCartPage(ctx)
	require.NoError(t, err)
	require.NoError(t, client.AddLine(ctx, "1", 2))
	parsed, err := client.FetchCartPage(ctx)
	require.NoError(t, err)

	pg := cart.NewMemoryPage()
	ctl := cart.New(cart.DefaultConfig(), client, pg, cart.WithLogger(quietLogger()))
	defer ctl.Unload()
	bindings, views := bindLines(parsed.Items)
	require.NoError(t, ctl.Mount(bindings))

	client.SetCSRFToken("stale")
	views["1"].Type("4")
	require.Error(t, ctl.Blur(ctx, "1"))

	assert.Equal(t, "2", views["1"].RawQuantity())
	notes := pg.Notifications()
	require.NotEmpty(t, notes)
	assert.Equal(t, cart.MsgUpdateFailed, notes[len(notes)-1].Message)
}

func fillForm(t *testing.T, form *checkout.Form) {
	t.Helper()
	values := map[string]string{
		"full_name":       "Ada Lovelace",
		"email":           "ada@example.com",
		"phone_number":    "020 7946 0958",
		"street_address1": "12 Analytical Row",
		"town_or_city":    "London",
		"postcode":        "SW1A 1AA",
		"country":         "GB",
	}
	for name, v := range values {
		require.NoError(t, form.Input(name, v))
	}
}

func TestIntegration_CheckoutWithCardWidget(t *testing.T) {
	cfg := api.DefaultConfig()
	cfg.Payment = handlers.PaymentConfig{PublicKey: "pk_test_51sandbox", CardElement: true}
	server, client := startStorefront(t, cfg)
	ctx := context.Background()

	_, err := client.FetchCartPage(ctx)
	require.NoError(t, err)
	require.NoError(t, client.AddLine(ctx, "4", 1))

	co, err := client.FetchCheckoutPage(ctx)
	require.NoError(t, err)
	require.True(t, co.WidgetEnabled())

	store := openStore(t)
	form := checkout.NewForm(checkout.WithDrafts(store))
	defer form.Stop()
	fillForm(t, form)

	declined := checkout.New(form, client, checkout.WithWidget(payment.NewSandbox(payment.CardDeclined, quietLogger()), co.ClientSecret))
	res, err := declined.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, checkout.OutcomePaymentFailed, res.Outcome)
	assert.Equal(t, payment.MsgCardDeclined, res.PaymentError)
	assert.Equal(t, 0, server.Orders().Len())

	flow := checkout.New(form, client, checkout.WithWidget(payment.NewSandbox(payment.CardSuccess, quietLogger()), co.ClientSecret))
	res, err = flow.Submit(ctx)
	require.NoError(t, err)
	require.Equal(t, checkout.OutcomePlaced, res.Outcome)

	order, ok := server.Orders().Get(res.OrderNumber)
	require.True(t, ok)
	assert.Equal(t, res.PaymentIntentID, order.PaymentIntentID)
	assert.Equal(t, "ada@example.com", order.Email)

	keys, err := store.Keys(checkout.DraftPrefix)
	require.NoError(t, err)
	assert.Empty(t, keys, "drafts cleared after the order")
}

func TestIntegration_NativeCheckout(t *testing.T) {
	server, client := startStorefront(t, api.DefaultConfig())
	ctx := context.Background()

	_, err := client.FetchCartPage(ctx)
	require.NoError(t, err)
	require.NoError(t, client.AddLine(ctx, "3", 1))

	co, err := client.FetchCheckoutPage(ctx)
	require.NoError(t, err)
	require.False(t, co.WidgetEnabled())

	form := checkout.NewForm()
	defer form.Stop()
	fillForm(t, form)

	res, err := checkout.New(form, client, checkout.WithClientSecret(co.ClientSecret)).Submit(ctx)
	require.NoError(t, err)
	require.Equal(t, checkout.OutcomePlaced, res.Outcome)

	order, ok := server.Orders().Get(res.OrderNumber)
	require.True(t, ok)
	assert.Equal(t, pricing.Cents(1899, 99), order.Totals.Subtotal)
	assert.Equal(t, 1, order.Totals.ItemCount)
}
