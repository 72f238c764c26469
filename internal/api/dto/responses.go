package dto

import (
	"time"

	"github.com/eshaffer321/cartsync/internal/api/shop"
	"github.com/eshaffer321/cartsync/internal/domain/pricing"
)

// HealthResponse is returned by the health check endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Sessions  int    `json:"sessions"`
	Orders    int    `json:"orders"`
}

// NewHealthResponse creates a health response with current timestamp.
func NewHealthResponse() HealthResponse {
	return HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// CartLineResponse is one line of the bag. Money fields are in cents.
type CartLineResponse struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
	Subtotal  int64  `json:"subtotal"`
}

// CartResponse is the bag with its totals.
type CartResponse struct {
	Lines             []CartLineResponse `json:"lines"`
	Subtotal          int64              `json:"subtotal"`
	Delivery          int64              `json:"delivery"`
	GrandTotal        int64              `json:"grand_total"`
	ItemCount         int                `json:"item_count"`
	FreeDeliveryDelta int64              `json:"free_delivery_delta"`
	Threshold         int64              `json:"threshold"`
}

// NewCartResponse prices lines under policy.
func NewCartResponse(lines []shop.BagLine, policy pricing.Policy) CartResponse {
	resp := CartResponse{Lines: make([]CartLineResponse, 0, len(lines))}
	priced := make([]pricing.Line, 0, len(lines))
	for _, l := range lines {
		price := l.Product.DisplayPrice()
		resp.Lines = append(resp.Lines, CartLineResponse{
			ProductID: l.Product.ID,
			Name:      l.Product.Name,
			Quantity:  l.Quantity,
			UnitPrice: int64(price),
			Subtotal:  int64(l.Subtotal()),
		})
		priced = append(priced, pricing.Line{ProductID: l.Product.ID, Quantity: l.Quantity, UnitPrice: price})
	}

	t := pricing.Compute(priced, policy)
	resp.Subtotal = int64(t.Subtotal)
	resp.Delivery = int64(t.Delivery)
	resp.GrandTotal = int64(t.GrandTotal)
	resp.ItemCount = t.ItemCount
	resp.FreeDeliveryDelta = int64(t.FreeDeliveryDelta)
	resp.Threshold = int64(t.Threshold)
	return resp
}

// OrderLineResponse is one line of a placed order.
type OrderLineResponse struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
	Subtotal  int64  `json:"subtotal"`
}

// OrderResponse represents a placed order.
type OrderResponse struct {
	OrderNumber     string              `json:"order_number"`
	FullName        string              `json:"full_name"`
	Email           string              `json:"email"`
	PaymentIntentID string              `json:"payment_intent_id,omitempty"`
	CreatedAt       string              `json:"created_at"`
	Subtotal        int64               `json:"subtotal"`
	Delivery        int64               `json:"delivery"`
	GrandTotal      int64               `json:"grand_total"`
	Lines           []OrderLineResponse `json:"lines"`
}

// NewOrderResponse converts a placed order.
func NewOrderResponse(o *shop.Order) OrderResponse {
	resp := OrderResponse{
		OrderNumber:     o.Number,
		FullName:        o.FullName,
		Email:           o.Email,
		PaymentIntentID: o.PaymentIntentID,
		CreatedAt:       o.CreatedAt.Format(time.RFC3339),
		Subtotal:        int64(o.Totals.Subtotal),
		Delivery:        int64(o.Totals.Delivery),
		GrandTotal:      int64(o.Totals.GrandTotal),
		Lines:           make([]OrderLineResponse, 0, len(o.Lines)),
	}
	for _, l := range o.Lines {
		resp.Lines = append(resp.Lines, OrderLineResponse{
			ProductID: l.ProductID,
			Name:      l.Name,
			Quantity:  l.Quantity,
			UnitPrice: int64(l.UnitPrice),
			Subtotal:  int64(l.Subtotal),
		})
	}
	return resp
}
