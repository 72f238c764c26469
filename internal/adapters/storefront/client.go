// Package storefront talks to the storefront's cart and checkout endpoints
// over HTTP, carrying the session cookie and CSRF token the way a browser
// would.
package storefront

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-cleanhttp"

	"github.com/eshaffer321/cartsync/internal/adapters/page"
)

// DefaultTimeout bounds every request.
const DefaultTimeout = 15 * time.Second

const maxErrorBody = 512

var (
	// ErrNoCSRFToken is returned when a mutation is attempted before a page
	// has supplied a token.
	ErrNoCSRFToken = errors.New("no csrf token: fetch a page first")

	// ErrNoOrderNumber is returned when an order post does not redirect to
	// a success page.
	ErrNoOrderNumber = errors.New("order number not found in redirect")

	// ErrRedirected is returned when a page fetch is answered with a
	// redirect, as the checkout page does for an empty cart.
	ErrRedirected = errors.New("page redirected")

	// ErrInvalidProductID is returned for ids that cannot name a single
	// path segment.
	ErrInvalidProductID = errors.New("invalid product id")
)

// HTTPError is a non-2xx/3xx response.
type HTTPError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.Path, e.Status)
}

// Config configures a Client.
type Config struct {
	BaseURL   string
	CSRFField string
	Timeout   time.Duration
}

// Client is a storefront session.
type Client struct {
	base      *url.URL
	http      *http.Client
	csrfField string
	logger    *slog.Logger

	mu   sync.RWMutex
	csrf string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the pooled client. Its redirect policy and
// cookie jar are left as given.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a session against cfg.BaseURL. Redirects are not
// followed so the order confirmation redirect can be read.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", cfg.BaseURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid base url %q: scheme must be http or https", cfg.BaseURL)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	hc := cleanhttp.DefaultPooledClient()
	hc.Jar = jar
	hc.Timeout = cfg.Timeout
	if hc.Timeout <= 0 {
		hc.Timeout = DefaultTimeout
	}
	hc.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	c := &Client{
		base:      base,
		http:      hc,
		csrfField: cfg.CSRFField,
		logger:    slog.Default(),
	}
	if c.csrfField == "" {
		c.csrfField = page.DefaultCSRFField
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c, nil
}

// Cookies returns the session cookies held for the storefront.
func (c *Client) Cookies() []*http.Cookie {
	if c.http.Jar == nil {
		return nil
	}
	return c.http.Jar.Cookies(c.base)
}

// SetCookies resumes a session saved with Cookies.
func (c *Client) SetCookies(cookies []*http.Cookie) {
	if c.http.Jar == nil || len(cookies) == 0 {
		return
	}
	c.http.Jar.SetCookies(c.base, cookies)
}

// CSRFToken returns the token taken from the last fetched page.
func (c *Client) CSRFToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.csrf
}

// SetCSRFToken overrides the token.
func (c *Client) SetCSRFToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.csrf = token
}

// FetchCartPage loads and parses the cart page. Its CSRF token becomes the
// session token.
func (c *Client) FetchCartPage(ctx context.Context) (*page.Cart, error) {
	body, err := c.getPage(ctx, "cart/")
	if err != nil {
		return nil, err
	}
	defer body.Close()

	cart, err := page.ParseCart(body, c.csrfField)
	if err != nil {
		return nil, err
	}
	c.rememberToken(cart.CSRFToken)
	for _, w := range cart.Warnings {
		c.logger.Warn("cart page", "warning", w)
	}
	return cart, nil
}

// FetchCheckoutPage loads and parses the checkout page.
func (c *Client) FetchCheckoutPage(ctx context.Context) (*page.Checkout, error) {
	body, err := c.getPage(ctx, "checkout/")
	if err != nil {
		return nil, err
	}
	defer body.Close()

	co, err := page.ParseCheckout(body, c.csrfField)
	if err != nil {
		return nil, err
	}
	c.rememberToken(co.CSRFToken)
	for _, w := range co.Warnings {
		c.logger.Warn("checkout page", "warning", w)
	}
	return co, nil
}

// AddLine puts quantity of productID in the bag.
func (c *Client) AddLine(ctx context.Context, productID string, quantity int) error {
	path, err := linePath("add", productID)
	if err != nil {
		return err
	}
	form := url.Values{"quantity": {strconv.Itoa(quantity)}}
	_, err = c.post(ctx, path, form)
	return err
}

// AdjustLine sets the quantity of a line.
func (c *Client) AdjustLine(ctx context.Context, productID string, quantity int) error {
	path, err := linePath("adjust", productID)
	if err != nil {
		return err
	}
	form := url.Values{"quantity": {strconv.Itoa(quantity)}}
	_, err = c.post(ctx, path, form)
	return err
}

// RemoveLine deletes a line.
func (c *Client) RemoveLine(ctx context.Context, productID string) error {
	path, err := linePath("remove", productID)
	if err != nil {
		return err
	}
	_, err = c.post(ctx, path, url.Values{})
	return err
}

// linePath builds cart/<action>/<id>/ with the id escaped into one segment.
func linePath(action, productID string) (string, error) {
	switch productID {
	case "", ".", "..":
		return "", fmt.Errorf("%w: %q", ErrInvalidProductID, productID)
	}
	return "cart/" + action + "/" + url.PathEscape(productID) + "/", nil
}

var orderNumberPattern = regexp.MustCompile(`/checkout_success/([^/?#]+)`)

// PlaceOrder posts the checkout form and returns the order number from the
// success redirect.
func (c *Client) PlaceOrder(ctx context.Context, form url.Values) (string, error) {
	resp, err := c.post(ctx, "checkout/", form)
	if err != nil {
		return "", err
	}

	location := resp.Header.Get("Location")
	m := orderNumberPattern.FindStringSubmatch(location)
	if m == nil {
		return "", fmt.Errorf("%w (status %d, location %q)", ErrNoOrderNumber, resp.StatusCode, location)
	}
	return m[1], nil
}

func (c *Client) rememberToken(token string) {
	if token != "" {
		c.SetCSRFToken(token)
	}
}

func (c *Client) getPage(ctx context.Context, path string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.resolve(path), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s to %q", ErrRedirected, path, resp.Header.Get("Location"))
	}
	return resp.Body, nil
}

// post sends a form with the session CSRF token. The response body is
// drained and closed before returning.
func (c *Client) post(ctx context.Context, path string, form url.Values) (*http.Response, error) {
	token := c.CSRFToken()
	if token == "" {
		return nil, ErrNoCSRFToken
	}

	payload := url.Values{}
	for k, v := range form {
		payload[k] = append([]string(nil), v...)
	}
	payload.Set(c.csrfField, token)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.resolve(path), strings.NewReader(payload.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-CSRFToken", token)
	req.Header.Set("X-Requested-With", "XMLHttpRequest")

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return resp, nil
}

// do runs req and turns any status outside 2xx/3xx into an *HTTPError.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	c.logger.Debug("storefront request",
		"method", req.Method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if resp.StatusCode >= 200 && resp.StatusCode < 400 {
		return resp, nil
	}

	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return nil, &HTTPError{
		Method: req.Method,
		Path:   req.URL.Path,
		Status: resp.StatusCode,
		Body:   strings.TrimSpace(string(body)),
	}
}

// resolve joins an escaped relative path onto the base URL.
func (c *Client) resolve(path string) string {
	ref, err := url.Parse(path)
	if err != nil {
		ref = &url.URL{Path: path}
	}
	return c.base.ResolveReference(ref).String()
}
