// Package shop holds the in-memory state of the development storefront:
// its product catalog, shopper sessions with their bags, and placed orders.
package shop

import (
	"sort"
	"strconv"

	"github.com/eshaffer321/cartsync/internal/domain/pricing"
)

// Product is a catalog entry.
type Product struct {
	ID            string
	SKU           string
	Name          string
	Price         pricing.Money
	DiscountPrice pricing.Money
}

// DisplayPrice is the discount price when one is set.
func (p Product) DisplayPrice() pricing.Money {
	if p.DiscountPrice > 0 {
		return p.DiscountPrice
	}
	return p.Price
}

// Catalog is an immutable set of products.
type Catalog struct {
	products map[string]Product
	ids      []string
}

// NewCatalog indexes products by ID.
func NewCatalog(products []Product) *Catalog {
	c := &Catalog{products: make(map[string]Product, len(products))}
	for _, p := range products {
		c.products[p.ID] = p
		c.ids = append(c.ids, p.ID)
	}
	sort.Slice(c.ids, func(i, j int) bool { return lessID(c.ids[i], c.ids[j]) })
	return c
}

// DefaultCatalog is the seeded CNC workshop range.
func DefaultCatalog() *Catalog {
	return NewCatalog([]Product{
		{ID: "1", SKU: "CNC-MILL-2418", Name: "Desktop CNC Mill 2418", Price: pricing.Cents(2499, 99)},
		{ID: "2", SKU: "CNC-MILL-3020", Name: "Professional CNC Router 3020", Price: pricing.Cents(3299, 99), DiscountPrice: pricing.Cents(2999, 99)},
		{ID: "3", SKU: "CNC-LATHE-0618", Name: "Mini CNC Lathe 0618", Price: pricing.Cents(1899, 99)},
		{ID: "4", SKU: "CT-EM-SET-20", Name: "Carbide End Mill Set (20pc)", Price: pricing.Cents(299, 99)},
		{ID: "5", SKU: "CT-DR-SET-HSS", Name: "HSS Drill Bit Set (50pc)", Price: pricing.Cents(89, 99)},
		{ID: "6", SKU: "CT-EM-6MM-4FL", Name: "6mm 4-Flute End Mill", Price: pricing.Cents(24, 99)},
		{ID: "7", SKU: "WH-VISE-4IN", Name: `4" Precision Machine Vise`, Price: pricing.Cents(189, 99)},
		{ID: "8", SKU: "WH-CLAMP-SET", Name: "T-Slot Clamp Set (12pc)", Price: pricing.Cents(149, 99)},
	})
}

// Get looks a product up by ID.
func (c *Catalog) Get(id string) (Product, bool) {
	p, ok := c.products[id]
	return p, ok
}

// All returns the products in ID order.
func (c *Catalog) All() []Product {
	out := make([]Product, 0, len(c.ids))
	for _, id := range c.ids {
		out = append(out, c.products[id])
	}
	return out
}

// lessID orders numeric IDs numerically and everything else lexically.
func lessID(a, b string) bool {
	ai, aerr := strconv.Atoi(a)
	bi, berr := strconv.Atoi(b)
	if aerr == nil && berr == nil {
		return ai < bi
	}
	return a < b
}
