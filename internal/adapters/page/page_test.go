package page

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/cartsync/internal/domain/pricing"
)

const cartHTML = `<!doctype html>
<html><body>
<form><input type="hidden" name="csrfmiddlewaretoken" value="tok-123"></form>
<div class="cart-item row" data-product-id="7">
  <h5 class="product-name"> Oak Stool </h5>
  <span class="price">$<span class="price-value">30.00</span></span>
  <button class="quantity-decrease" data-product-id="7">-</button>
  <input class="form-control quantity-input" data-product-id="7" value="2">
  <span class="subtotal-value" data-product-id="7">$60.00</span>
</div>
<div class="cart-item row" data-product-id="9">
  <h5 class="product-name">Walnut Board</h5>
  <span class="price-value">$1,040.50</span>
  <input class="quantity-input" data-product-id="9" value="1">
</div>
<i data-bs-toggle="tooltip" title="Free delivery on orders over $250!"></i>
</body></html>`

func TestParseCart(t *testing.T) {
	cart, err := ParseCart(strings.NewReader(cartHTML), "")
	require.NoError(t, err)

	assert.Equal(t, "tok-123", cart.CSRFToken)
	assert.Equal(t, pricing.Cents(250, 0), cart.Threshold)
	assert.True(t, cart.HasThreshold())
	assert.Empty(t, cart.Warnings)

	require.Len(t, cart.Items, 2)
	assert.Equal(t, CartItem{
		ProductID:    "7",
		Name:         "Oak Stool",
		PriceText:    "30.00",
		UnitPrice:    pricing.Cents(30, 0),
		QuantityText: "2",
		Quantity:     2,
	}, cart.Items[0])
	assert.Equal(t, pricing.Cents(1040, 50), cart.Items[1].UnitPrice)
}

func TestParseCart_CustomCSRFField(t *testing.T) {
	doc := `<input type="hidden" name="_token" value="abc">`

	cart, err := ParseCart(strings.NewReader(doc), "_token")
	require.NoError(t, err)
	assert.Equal(t, "abc", cart.CSRFToken)
}

func TestParseCart_MissingPiecesAreWarnings(t *testing.T) {
	doc := `<div class="cart-item" data-product-id="3">
	  <span class="product-name">Lamp</span>
	  <span class="price-value">n/a</span>
	  <input class="quantity-input" value="two">
	</div>
	<span data-bs-toggle="tooltip" title="Free delivery soon"></span>`

	cart, err := ParseCart(strings.NewReader(doc), "")
	require.NoError(t, err)

	require.Len(t, cart.Items, 1)
	assert.Equal(t, pricing.Money(0), cart.Items[0].UnitPrice)
	assert.Equal(t, 0, cart.Items[0].Quantity)
	assert.False(t, cart.HasThreshold())
	assert.Len(t, cart.Warnings, 4)
	assert.Contains(t, cart.Warnings[0], "unit price")
	assert.Contains(t, cart.Warnings[1], "quantity")
	assert.Equal(t, "csrf token not found", cart.Warnings[2])
	assert.Contains(t, cart.Warnings[3], "Free delivery soon")
}

func TestParseCart_EmptyPage(t *testing.T) {
	cart, err := ParseCart(strings.NewReader(""), "")
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.Contains(t, cart.Warnings, "free delivery tooltip not found")
}

func TestParseCheckout(t *testing.T) {
	doc := `<form id="payment-form">
	  <input type="hidden" name="csrfmiddlewaretoken" value="tok-9">
	  <div id="card-element"></div>
	  <input type="hidden" name="client_secret" value=" pi_1_secret_2 ">
	</form>
	<script id="id_stripe_public_key" type="application/json">"pk_test_51abc"</script>`

	co, err := ParseCheckout(strings.NewReader(doc), "")
	require.NoError(t, err)

	assert.Equal(t, "tok-9", co.CSRFToken)
	assert.Equal(t, "pk_test_51abc", co.PublicKey)
	assert.Equal(t, "pi_1_secret_2", co.ClientSecret)
	assert.True(t, co.HasCardElement)
	assert.True(t, co.WidgetEnabled())
	assert.Empty(t, co.Warnings)
}

func TestCheckout_WidgetEnabled(t *testing.T) {
	tests := []struct {
		name string
		co   Checkout
		want bool
	}{
		{"live key", Checkout{PublicKey: "pk_live_x", HasCardElement: true}, true},
		{"placeholder", Checkout{PublicKey: PlaceholderPublicKey, HasCardElement: true}, false},
		{"no card element", Checkout{PublicKey: "pk_test_x"}, false},
		{"secret key", Checkout{PublicKey: "sk_test_x", HasCardElement: true}, false},
		{"empty", Checkout{HasCardElement: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.co.WidgetEnabled())
		})
	}
}

func TestParseCheckout_UnquotedAndMissingKey(t *testing.T) {
	co, err := ParseCheckout(strings.NewReader(`<span id="id_stripe_public_key">pk_test_placeholder</span>`), "")
	require.NoError(t, err)
	assert.Equal(t, PlaceholderPublicKey, co.PublicKey)
	assert.False(t, co.WidgetEnabled())

	co, err = ParseCheckout(strings.NewReader(`<div id="card-element"></div>`), "")
	require.NoError(t, err)
	assert.Empty(t, co.PublicKey)
	assert.Contains(t, co.Warnings, "payment public key not found")
}
