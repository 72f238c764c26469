package handlers_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/cartsync/internal/adapters/page"
	"github.com/eshaffer321/cartsync/internal/api/handlers"
	"github.com/eshaffer321/cartsync/internal/api/middleware"
	"github.com/eshaffer321/cartsync/internal/api/shop"
	"github.com/eshaffer321/cartsync/internal/domain/pricing"
)

const csrfField = "csrfmiddlewaretoken"

type harness struct {
	t      *testing.T
	srv    *httptest.Server
	client *http.Client
	orders *shop.Orders
	csrf   string
}

func newHarness(t *testing.T, payment handlers.PaymentConfig) *harness {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	base := handlers.NewBase(logger)
	catalog := shop.DefaultCatalog()
	orders := shop.NewOrders()
	policy := pricing.DefaultPolicy()

	cartHandler := handlers.NewCartHandler(base, catalog, policy, csrfField)
	checkoutHandler := handlers.NewCheckoutHandler(base, catalog, orders, policy, csrfField, payment)

	r := chi.NewRouter()
	r.Use(middleware.Sessions(shop.NewSessions()))
	r.Use(middleware.CSRF(csrfField))
	r.Get("/cart/", cartHandler.View)
	r.Post("/cart/add/{id}/", cartHandler.Add)
	r.Post("/cart/adjust/{id}/", cartHandler.Adjust)
	r.Post("/cart/remove/{id}/", cartHandler.Remove)
	r.Get("/api/cart", cartHandler.JSON)
	r.Get("/checkout/", checkoutHandler.View)
	r.Post("/checkout/", checkoutHandler.Place)
	r.Get("/checkout/checkout_success/{order}/", checkoutHandler.Success)
	r.Get("/api/orders/{order}", checkoutHandler.Order)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	h := &harness{t: t, srv: srv, client: client, orders: orders}
	h.cartPage()
	return h
}

func (h *harness) get(path string) (*http.Response, string) {
	h.t.Helper()
	resp, err := h.client.Get(h.srv.URL + path)
	require.NoError(h.t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(h.t, err)
	return resp, string(body)
}

func (h *harness) post(path string, form url.Values) (*http.Response, string) {
	h.t.Helper()
	if form == nil {
		form = url.Values{}
	}
	if _, ok := form[csrfField]; !ok {
		form.Set(csrfField, h.csrf)
	}
	resp, err := h.client.PostForm(h.srv.URL+path, form)
	require.NoError(h.t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(h.t, err)
	return resp, string(body)
}

func (h *harness) cartPage() *page.Cart {
	h.t.Helper()
	resp, body := h.get("/cart/")
	require.Equal(h.t, http.StatusOK, resp.StatusCode)
	cart, err := page.ParseCart(strings.NewReader(body), csrfField)
	require.NoError(h.t, err)
	h.csrf = cart.CSRFToken
	return cart
}

func (h *harness) add(id string, q string) {
	h.t.Helper()
	resp, _ := h.post("/cart/add/"+id+"/", url.Values{"quantity": {q}})
	require.Equal(h.t, http.StatusFound, resp.StatusCode)
}
