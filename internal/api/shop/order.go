package shop

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/eshaffer321/cartsync/internal/domain/pricing"
)

// ErrEmptyBag is returned when an order is placed with nothing in the bag.
var ErrEmptyBag = errors.New("there's nothing in your cart at the moment")

// OrderLine is one product on an order.
type OrderLine struct {
	ProductID string
	Name      string
	Quantity  int
	UnitPrice pricing.Money
	Subtotal  pricing.Money
}

// Order is a placed order.
type Order struct {
	Number          string
	FullName        string
	Email           string
	PhoneNumber     string
	Address         map[string]string
	Lines           []OrderLine
	Totals          pricing.Totals
	PaymentIntentID string
	CreatedAt       time.Time
}

// Orders stores placed orders by number.
type Orders struct {
	mu       sync.RWMutex
	byNumber map[string]*Order
}

// NewOrders creates an empty order book.
func NewOrders() *Orders {
	return &Orders{byNumber: make(map[string]*Order)}
}

// Place turns the bag into an order priced under policy, assigns its
// number, and stores it. The caller fills in the contact fields.
func (o *Orders) Place(lines []BagLine, policy pricing.Policy, fill func(*Order)) (*Order, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyBag
	}

	order := &Order{
		Number:    strings.ToUpper(newToken()),
		Address:   make(map[string]string),
		CreatedAt: time.Now().UTC(),
	}
	priced := make([]pricing.Line, 0, len(lines))
	for _, l := range lines {
		price := l.Product.DisplayPrice()
		order.Lines = append(order.Lines, OrderLine{
			ProductID: l.Product.ID,
			Name:      l.Product.Name,
			Quantity:  l.Quantity,
			UnitPrice: price,
			Subtotal:  l.Subtotal(),
		})
		priced = append(priced, pricing.Line{ProductID: l.Product.ID, Quantity: l.Quantity, UnitPrice: price})
	}
	order.Totals = pricing.Compute(priced, policy)
	if fill != nil {
		fill(order)
	}

	o.mu.Lock()
	o.byNumber[order.Number] = order
	o.mu.Unlock()
	return order, nil
}

// Get returns an order by number.
func (o *Orders) Get(number string) (*Order, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	order, ok := o.byNumber[number]
	return order, ok
}

// Len returns the number of placed orders.
func (o *Orders) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.byNumber)
}
