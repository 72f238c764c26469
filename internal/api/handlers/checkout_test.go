package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/cartsync/internal/adapters/page"
	"github.com/eshaffer321/cartsync/internal/api/dto"
	"github.com/eshaffer321/cartsync/internal/api/handlers"
)

func orderForm() url.Values {
	return url.Values{
		"full_name":       {"Ada Lovelace"},
		"email":           {"ada@example.com"},
		"phone_number":    {"02079460958"},
		"street_address1": {"12 Analytical Row"},
		"town_or_city":    {"London"},
		"postcode":        {"SW1A 1AA"},
		"country":         {"GB"},
	}
}

func (h *harness) checkoutPage() *page.Checkout {
	h.t.Helper()
	resp, body := h.get("/checkout/")
	require.Equal(h.t, http.StatusOK, resp.StatusCode)
	co, err := page.ParseCheckout(strings.NewReader(body), csrfField)
	require.NoError(h.t, err)
	return co
}

func TestCheckoutHandler_EmptyBagRedirects(t *testing.T) {
	h := newHarness(t, handlers.PaymentConfig{})

	resp, _ := h.get("/checkout/")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/cart/", resp.Header.Get("Location"))
}

func TestCheckoutHandler_PlaceholderPage(t *testing.T) {
	h := newHarness(t, handlers.PaymentConfig{})
	h.add("1", "1")

	co := h.checkoutPage()
	assert.Equal(t, page.PlaceholderPublicKey, co.PublicKey)
	assert.Equal(t, "test_secret_placeholder", co.ClientSecret)
	assert.False(t, co.HasCardElement)
	assert.False(t, co.WidgetEnabled())
	assert.Equal(t, h.csrf, co.CSRFToken)
	assert.Empty(t, co.Warnings)
}

func TestCheckoutHandler_PlaceOrder(t *testing.T) {
	h := newHarness(t, handlers.PaymentConfig{})
	h.add("5", "2")

	resp, _ := h.post("/checkout/", orderForm())
	require.Equal(t, http.StatusFound, resp.StatusCode)

	location := resp.Header.Get("Location")
	require.True(t, strings.HasPrefix(location, "/checkout/checkout_success/"))
	number := strings.TrimSuffix(strings.TrimPrefix(location, "/checkout/checkout_success/"), "/")
	assert.Equal(t, 1, h.orders.Len())

	resp, body := h.get(location)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, number)
	assert.Contains(t, body, "ada@example.com")
	assert.Contains(t, body, "Order successfully processed!")

	_, body = h.get("/api/orders/" + number)
	var order dto.OrderResponse
	require.NoError(t, json.Unmarshal([]byte(body), &order))
	assert.Equal(t, "Ada Lovelace", order.FullName)
	require.Len(t, order.Lines, 1)
	assert.Equal(t, 2, order.Lines[0].Quantity)
	assert.Equal(t, int64(17998+1800), order.GrandTotal)

	assert.Empty(t, h.cartPage().Items, "bag cleared")
}

func TestCheckoutHandler_ValidationFailure(t *testing.T) {
	h := newHarness(t, handlers.PaymentConfig{})
	h.add("1", "1")

	form := orderForm()
	form.Del("full_name")
	form.Set("email", "not-an-email")

	resp, body := h.post("/checkout/", form)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var apiErr dto.APIError
	require.NoError(t, json.Unmarshal([]byte(body), &apiErr))
	assert.Equal(t, dto.ErrCodeValidation, apiErr.Code)
	assert.Contains(t, apiErr.Message, "Full Name, Email Address")
	assert.Contains(t, apiErr.Message, "Please enter a valid email address")
	assert.Equal(t, 0, h.orders.Len())
}

func TestCheckoutHandler_EmptyBagOrder(t *testing.T) {
	h := newHarness(t, handlers.PaymentConfig{})

	resp, _ := h.post("/checkout/", orderForm())
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCheckoutHandler_CardWidget(t *testing.T) {
	h := newHarness(t, handlers.PaymentConfig{PublicKey: "pk_test_51sandbox", CardElement: true})
	h.add("1", "1")

	co := h.checkoutPage()
	assert.Equal(t, "pk_test_51sandbox", co.PublicKey)
	assert.True(t, co.WidgetEnabled())
	require.True(t, strings.HasPrefix(co.ClientSecret, "pi_"))
	intentID, _, ok := strings.Cut(co.ClientSecret, "_secret_")
	require.True(t, ok)

	resp, body := h.post("/checkout/", orderForm())
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "payment could not be verified")

	form := orderForm()
	form.Set("payment_intent_id", intentID)
	resp, _ = h.post("/checkout/", form)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
}

func TestCheckoutHandler_UnknownOrder(t *testing.T) {
	h := newHarness(t, handlers.PaymentConfig{})

	resp, _ := h.get("/checkout/checkout_success/NOPE/")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = h.get("/api/orders/NOPE")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPaymentConfig_Enabled(t *testing.T) {
	assert.False(t, handlers.PaymentConfig{PublicKey: page.PlaceholderPublicKey, CardElement: true}.Enabled())
	assert.False(t, handlers.PaymentConfig{PublicKey: "pk_live_x"}.Enabled())
	assert.True(t, handlers.PaymentConfig{PublicKey: "pk_live_x", CardElement: true}.Enabled())
}
