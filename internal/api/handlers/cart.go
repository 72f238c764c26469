package handlers

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eshaffer321/cartsync/internal/api/dto"
	"github.com/eshaffer321/cartsync/internal/api/shop"
	"github.com/eshaffer321/cartsync/internal/domain/pricing"
)

// CartHandler serves the cart page and the bag mutations.
type CartHandler struct {
	*Base
	catalog   *shop.Catalog
	policy    pricing.Policy
	csrfField string
}

// NewCartHandler creates a cart handler.
func NewCartHandler(base *Base, catalog *shop.Catalog, policy pricing.Policy, csrfField string) *CartHandler {
	return &CartHandler{Base: base, catalog: catalog, policy: policy, csrfField: csrfField}
}

type cartLineView struct {
	ProductID string
	Name      string
	Price     string
	Quantity  int
	Subtotal  string
}

type cartView struct {
	CSRFField           string
	CSRFToken           string
	Messages            []string
	Lines               []cartLineView
	Subtotal            string
	Delivery            string
	GrandTotal          string
	Threshold           string
	FreeDeliveryMessage string
}

// View handles GET /cart/.
func (h *CartHandler) View(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.Session(w, r)
	if !ok {
		return
	}

	bag := sess.Lines(h.catalog)
	priced := make([]pricing.Line, 0, len(bag))
	view := cartView{
		CSRFField: h.csrfField,
		CSRFToken: sess.CSRFToken,
		Messages:  sess.TakeMessages(),
		Lines:     make([]cartLineView, 0, len(bag)),
	}
	for _, l := range bag {
		price := l.Product.DisplayPrice()
		view.Lines = append(view.Lines, cartLineView{
			ProductID: l.Product.ID,
			Name:      l.Product.Name,
			Price:     price.Plain(),
			Quantity:  l.Quantity,
			Subtotal:  l.Subtotal().String(),
		})
		priced = append(priced, pricing.Line{ProductID: l.Product.ID, Quantity: l.Quantity, UnitPrice: price})
	}

	totals := pricing.Compute(priced, h.policy)
	view.Subtotal = totals.Subtotal.String()
	view.Delivery = totals.Delivery.String()
	view.GrandTotal = totals.GrandTotal.String()
	view.Threshold = h.policy.Threshold.String()
	if len(bag) > 0 {
		view.FreeDeliveryMessage = totals.FreeDeliveryMessage()
	}

	h.Render(w, "cart", view)
}

// JSON handles GET /api/cart.
func (h *CartHandler) JSON(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.Session(w, r)
	if !ok {
		return
	}
	h.WriteJSON(w, http.StatusOK, dto.NewCartResponse(sess.Lines(h.catalog), h.policy))
}

// Add handles POST /cart/add/{id}/. quantity defaults to 1.
func (h *CartHandler) Add(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.Session(w, r)
	if !ok {
		return
	}

	product, found := h.catalog.Get(chi.URLParam(r, "id"))
	if !found {
		h.WriteError(w, http.StatusNotFound, dto.NotFoundError("product"))
		return
	}
	q, valid := ParseIntForm(r, "quantity", 1)
	if !valid || q < 1 {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("quantity must be a positive integer"))
		return
	}

	total := sess.Add(product.ID, q)
	if total == q {
		sess.Flash(fmt.Sprintf("Added %s to your cart", product.Name))
	} else {
		sess.Flash(fmt.Sprintf("Updated %s quantity to %d", product.Name, total))
	}

	target := r.PostFormValue("redirect_url")
	if target == "" || target[0] != '/' {
		target = "/cart/"
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// Adjust handles POST /cart/adjust/{id}/. A quantity of zero or less
// removes the line. Like the rest of the bag mutations it always redirects
// back to the cart, reporting problems as flash messages.
func (h *CartHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.Session(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	q, valid := ParseIntForm(r, "quantity", 0)
	switch {
	case !valid || r.PostFormValue("quantity") == "":
		sess.Flash("Invalid quantity.")
	case q > 0:
		if sess.Set(id, q) {
			sess.Flash("Cart updated.")
		} else {
			sess.Flash("Item not found in cart.")
		}
	default:
		h.removeAndFlash(sess, id)
	}

	http.Redirect(w, r, "/cart/", http.StatusFound)
}

// Remove handles POST /cart/remove/{id}/.
func (h *CartHandler) Remove(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.Session(w, r)
	if !ok {
		return
	}
	h.removeAndFlash(sess, chi.URLParam(r, "id"))
	http.Redirect(w, r, "/cart/", http.StatusFound)
}

func (h *CartHandler) removeAndFlash(sess *shop.Session, id string) {
	if sess.Remove(id) {
		sess.Flash("Item removed from cart.")
		return
	}
	sess.Flash("Item not found in cart.")
}
