package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/eshaffer321/cartsync/internal/adapters/page"
	"github.com/eshaffer321/cartsync/internal/api/dto"
	"github.com/eshaffer321/cartsync/internal/api/shop"
	"github.com/eshaffer321/cartsync/internal/application/checkout"
	"github.com/eshaffer321/cartsync/internal/domain/pricing"
)

// placeholderClientSecret is rendered when no payment widget is configured.
const placeholderClientSecret = "test_secret_placeholder"

// PaymentConfig controls the card widget rendered into the checkout page.
type PaymentConfig struct {
	PublicKey   string
	CardElement bool
}

// Enabled reports whether the rendered page will run the card widget.
func (p PaymentConfig) Enabled() bool {
	co := page.Checkout{PublicKey: p.PublicKey, HasCardElement: p.CardElement}
	return co.WidgetEnabled()
}

// CheckoutHandler serves the checkout page and order placement.
type CheckoutHandler struct {
	*Base
	catalog   *shop.Catalog
	orders    *shop.Orders
	policy    pricing.Policy
	csrfField string
	payment   PaymentConfig
}

// NewCheckoutHandler creates a checkout handler.
func NewCheckoutHandler(base *Base, catalog *shop.Catalog, orders *shop.Orders, policy pricing.Policy, csrfField string, payment PaymentConfig) *CheckoutHandler {
	if payment.PublicKey == "" {
		payment.PublicKey = page.PlaceholderPublicKey
	}
	return &CheckoutHandler{
		Base:      base,
		catalog:   catalog,
		orders:    orders,
		policy:    policy,
		csrfField: csrfField,
		payment:   payment,
	}
}

type checkoutView struct {
	CSRFField    string
	CSRFToken    string
	Messages     []string
	Fields       []checkout.Field
	CardElement  bool
	ClientSecret string
	PublicKey    string
	GrandTotal   string
}

// View handles GET /checkout/. An empty bag redirects back to the cart.
func (h *CheckoutHandler) View(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.Session(w, r)
	if !ok {
		return
	}

	lines := sess.Lines(h.catalog)
	if len(lines) == 0 {
		sess.Flash(shop.ErrEmptyBag.Error())
		http.Redirect(w, r, "/cart/", http.StatusFound)
		return
	}

	secret := placeholderClientSecret
	if h.payment.Enabled() {
		secret = sess.IssueClientSecret()
	}

	h.Render(w, "checkout", checkoutView{
		CSRFField:    h.csrfField,
		CSRFToken:    sess.CSRFToken,
		Messages:     sess.TakeMessages(),
		Fields:       checkout.DefaultFields(),
		CardElement:  h.payment.CardElement,
		ClientSecret: secret,
		PublicKey:    h.payment.PublicKey,
		GrandTotal:   pricing.Money(dto.NewCartResponse(lines, h.policy).GrandTotal).String(),
	})
}

// Place handles POST /checkout/. The form is validated with the same rules
// the shopper's client applies. When the card widget is enabled the posted
// payment intent must match the one issued for the session.
func (h *CheckoutHandler) Place(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.Session(w, r)
	if !ok {
		return
	}

	form := checkout.NewForm(checkout.WithFormLogger(h.logger))
	defer form.Stop()
	for _, f := range form.Fields() {
		if _, err := form.Blur(f.Name, r.PostFormValue(f.Name)); err != nil {
			h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
			return
		}
	}
	if !form.ValidateAll() {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError(form.Summary().Message+invalidFieldDetail(form)))
		return
	}

	intentID := strings.TrimSpace(r.PostFormValue("payment_intent_id"))
	if h.payment.Enabled() {
		expected := sess.PaymentIntentID()
		if expected == "" || intentID != expected {
			h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("payment could not be verified"))
			return
		}
	}

	values := form.Values()
	order, err := h.orders.Place(sess.Lines(h.catalog), h.policy, func(o *shop.Order) {
		o.FullName = values.Get("full_name")
		o.Email = values.Get("email")
		o.PhoneNumber = values.Get("phone_number")
		o.PaymentIntentID = intentID
		for _, name := range []string{"street_address1", "street_address2", "town_or_city", "county", "postcode", "country"} {
			o.Address[name] = values.Get(name)
		}
	})
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError(err.Error()))
		return
	}

	sess.Clear()
	sess.Flash(fmt.Sprintf("Order successfully processed! Your order number is %s. A confirmation email will be sent to %s.", order.Number, order.Email))
	h.logger.Info("order placed", "order_number", order.Number, "grand_total", order.Totals.GrandTotal.Plain())

	http.Redirect(w, r, "/checkout/checkout_success/"+order.Number+"/", http.StatusFound)
}

// Success handles GET /checkout/checkout_success/{order}/.
func (h *CheckoutHandler) Success(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.Session(w, r)
	if !ok {
		return
	}
	order, found := h.orders.Get(chi.URLParam(r, "order"))
	if !found {
		h.WriteError(w, http.StatusNotFound, dto.NotFoundError("order"))
		return
	}

	h.Render(w, "success", struct {
		*shop.Order
		Messages   []string
		GrandTotal string
	}{order, sess.TakeMessages(), order.Totals.GrandTotal.String()})
}

// Order handles GET /api/orders/{order}.
func (h *CheckoutHandler) Order(w http.ResponseWriter, r *http.Request) {
	order, found := h.orders.Get(chi.URLParam(r, "order"))
	if !found {
		h.WriteError(w, http.StatusNotFound, dto.NotFoundError("order"))
		return
	}
	h.WriteJSON(w, http.StatusOK, dto.NewOrderResponse(order))
}

// invalidFieldDetail names format failures on fields that are present.
func invalidFieldDetail(form *checkout.Form) string {
	var parts []string
	for _, f := range form.Fields() {
		status, err := form.Status(f.Name)
		if err != nil || status.State != checkout.Invalid || strings.TrimSpace(status.Value) == "" {
			continue
		}
		parts = append(parts, status.Message)
	}
	if len(parts) == 0 {
		return ""
	}
	return " (" + strings.Join(parts, "; ") + ")"
}
