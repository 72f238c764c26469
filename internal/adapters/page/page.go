// Package page reads the configuration a storefront renders into its cart
// and checkout pages: line items, the CSRF token, the free delivery
// threshold, and the payment widget settings.
//
// A missing or malformed element never fails the parse. The dependent
// value is left empty and a warning is recorded on the result.
package page

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/eshaffer321/cartsync/internal/domain/pricing"
)

// DefaultCSRFField is the hidden input the storefront renders its token into.
const DefaultCSRFField = "csrfmiddlewaretoken"

// PlaceholderPublicKey marks a checkout page rendered without real payment keys.
const PlaceholderPublicKey = "pk_test_placeholder"

// CartItem is one line parsed from the cart page.
type CartItem struct {
	ProductID string
	Name      string
	// PriceText is the unit price exactly as rendered
	PriceText string
	UnitPrice pricing.Money
	// QuantityText is the input's value attribute
	QuantityText string
	Quantity     int
}

// Cart is the parsed cart page.
type Cart struct {
	Items         []CartItem
	CSRFToken     string
	ThresholdText string
	// Threshold is zero when the tooltip is absent or unparseable
	Threshold pricing.Money
	Warnings  []string
}

// HasThreshold reports whether a free delivery threshold was found.
func (c *Cart) HasThreshold() bool {
	return c.Threshold > 0
}

// Checkout is the parsed checkout page.
type Checkout struct {
	CSRFToken      string
	PublicKey      string
	ClientSecret   string
	HasCardElement bool
	Warnings       []string
}

// WidgetEnabled reports whether the card payment widget should run: the
// card element exists and the public key is a real test or live key.
func (c *Checkout) WidgetEnabled() bool {
	if !c.HasCardElement || c.PublicKey == PlaceholderPublicKey {
		return false
	}
	return strings.HasPrefix(c.PublicKey, "pk_test_") || strings.HasPrefix(c.PublicKey, "pk_live_")
}

// ParseCart parses a rendered cart page. csrfField names the hidden token
// input; empty means DefaultCSRFField.
func ParseCart(r io.Reader, csrfField string) (*Cart, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse cart page: %w", err)
	}
	if csrfField == "" {
		csrfField = DefaultCSRFField
	}

	cart := &Cart{}
	walk(doc, func(n *html.Node) bool {
		switch {
		case hasClass(n, "cart-item") && getAttr(n, "data-product-id") != "":
			cart.Items = append(cart.Items, parseItem(n, &cart.Warnings))
			return false
		case getAttr(n, "data-bs-toggle") == "tooltip" && cart.ThresholdText == "":
			cart.ThresholdText = getAttr(n, "title")
		case isHiddenInput(n, csrfField) && cart.CSRFToken == "":
			cart.CSRFToken = getAttr(n, "value")
		}
		return true
	})

	if cart.CSRFToken == "" {
		cart.Warnings = append(cart.Warnings, "csrf token not found")
	}
	switch {
	case cart.ThresholdText == "":
		cart.Warnings = append(cart.Warnings, "free delivery tooltip not found")
	default:
		threshold, err := pricing.ParseThreshold(cart.ThresholdText)
		if err != nil {
			cart.Warnings = append(cart.Warnings, fmt.Sprintf("free delivery tooltip %q: %v", cart.ThresholdText, err))
		} else {
			cart.Threshold = threshold
		}
	}
	return cart, nil
}

func parseItem(n *html.Node, warnings *[]string) CartItem {
	item := CartItem{ProductID: getAttr(n, "data-product-id")}

	walk(n, func(c *html.Node) bool {
		switch {
		case hasClass(c, "product-name") && item.Name == "":
			item.Name = strings.TrimSpace(textContent(c))
			return false
		case hasClass(c, "price-value") && item.PriceText == "":
			item.PriceText = strings.TrimSpace(textContent(c))
			return false
		case hasClass(c, "quantity-input") && item.QuantityText == "":
			item.QuantityText = getAttr(c, "value")
		}
		return true
	})

	price, err := pricing.ParseMoney(item.PriceText)
	if err != nil {
		*warnings = append(*warnings, fmt.Sprintf("line %s: unit price %q: %v", item.ProductID, item.PriceText, err))
	}
	item.UnitPrice = price

	q, err := strconv.Atoi(strings.TrimSpace(item.QuantityText))
	if err != nil {
		*warnings = append(*warnings, fmt.Sprintf("line %s: quantity %q is not a number", item.ProductID, item.QuantityText))
	}
	item.Quantity = q
	return item
}

// ParseCheckout parses a rendered checkout page.
func ParseCheckout(r io.Reader, csrfField string) (*Checkout, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse checkout page: %w", err)
	}
	if csrfField == "" {
		csrfField = DefaultCSRFField
	}

	co := &Checkout{}
	var rawKey string
	var keyFound bool
	walk(doc, func(n *html.Node) bool {
		switch {
		case getAttr(n, "id") == "card-element":
			co.HasCardElement = true
		case getAttr(n, "id") == "id_stripe_public_key":
			rawKey = strings.TrimSpace(textContent(n))
			keyFound = true
			return false
		case isHiddenInput(n, csrfField) && co.CSRFToken == "":
			co.CSRFToken = getAttr(n, "value")
		case n.Type == html.ElementNode && n.Data == "input" && getAttr(n, "name") == "client_secret":
			co.ClientSecret = strings.TrimSpace(getAttr(n, "value"))
		}
		return true
	})

	if co.CSRFToken == "" {
		co.Warnings = append(co.Warnings, "csrf token not found")
	}
	if !keyFound {
		co.Warnings = append(co.Warnings, "payment public key not found")
	} else {
		co.PublicKey = unquoteKey(rawKey, &co.Warnings)
	}
	return co, nil
}

// unquoteKey undoes the JSON quoting the template applies to the key.
func unquoteKey(raw string, warnings *[]string) string {
	if !strings.HasPrefix(raw, `"`) {
		return raw
	}
	var key string
	if err := json.Unmarshal([]byte(raw), &key); err != nil {
		*warnings = append(*warnings, fmt.Sprintf("payment public key %q: %v", raw, err))
		return strings.Trim(raw, `"`)
	}
	return key
}

// walk visits n and its descendants depth first. Returning false from
// visit skips the children of that node.
func walk(n *html.Node, visit func(*html.Node) bool) {
	if n.Type == html.ElementNode && !visit(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, visit)
	}
}

func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(getAttr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func isHiddenInput(n *html.Node, name string) bool {
	return n.Data == "input" && getAttr(n, "name") == name
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return sb.String()
}
