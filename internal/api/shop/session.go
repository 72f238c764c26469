package shop

import (
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/eshaffer321/cartsync/internal/domain/pricing"
)

// Session is one shopper's state, keyed by the session cookie.
type Session struct {
	ID        string
	CSRFToken string

	mu           sync.Mutex
	bag          map[string]int
	messages     []string
	clientSecret string
}

// BagLine is a bag entry joined with its product.
type BagLine struct {
	Product  Product
	Quantity int
}

// Subtotal is quantity times the display price.
func (l BagLine) Subtotal() pricing.Money {
	return l.Product.DisplayPrice().Mul(l.Quantity)
}

// Add increases the quantity of id by q and returns the new quantity.
func (s *Session) Add(id string, q int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bag[id] += q
	return s.bag[id]
}

// Set replaces the quantity of a line already in the bag. It reports
// whether the line existed.
func (s *Session) Set(id string, q int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bag[id]; !ok {
		return false
	}
	s.bag[id] = q
	return true
}

// Remove drops a line and reports whether it existed.
func (s *Session) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bag[id]; !ok {
		return false
	}
	delete(s.bag, id)
	return true
}

// Clear empties the bag.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bag = make(map[string]int)
	s.clientSecret = ""
}

// Lines returns the bag in product ID order. Entries for products missing
// from the catalog are skipped.
func (s *Session) Lines(c *Catalog) []BagLine {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines := make([]BagLine, 0, len(s.bag))
	for id, q := range s.bag {
		if p, ok := c.Get(id); ok {
			lines = append(lines, BagLine{Product: p, Quantity: q})
		}
	}
	sort.Slice(lines, func(i, j int) bool { return lessID(lines[i].Product.ID, lines[j].Product.ID) })
	return lines
}

// Flash queues a message for the next rendered page.
func (s *Session) Flash(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
}

// TakeMessages returns and clears the queued messages.
func (s *Session) TakeMessages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.messages
	s.messages = nil
	return msgs
}

// IssueClientSecret returns the session's payment client secret, minting
// one on first use.
func (s *Session) IssueClientSecret() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clientSecret == "" {
		s.clientSecret = "pi_" + newToken() + "_secret_" + newToken()[:16]
	}
	return s.clientSecret
}

// PaymentIntentID is the intent the issued client secret belongs to, or
// empty when none was issued.
func (s *Session) PaymentIntentID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, _, _ := strings.Cut(s.clientSecret, "_secret_")
	return id
}

// Sessions is the session registry.
type Sessions struct {
	mu   sync.RWMutex
	byID map[string]*Session
}

// NewSessions creates an empty registry.
func NewSessions() *Sessions {
	return &Sessions{byID: make(map[string]*Session)}
}

// New starts a session with fresh ID and CSRF token.
func (r *Sessions) New() *Session {
	s := &Session{
		ID:        newToken(),
		CSRFToken: newToken(),
		bag:       make(map[string]int),
	}
	r.mu.Lock()
	r.byID[s.ID] = s
	r.mu.Unlock()
	return s
}

// Get returns a live session.
func (r *Sessions) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byID[id]
	return s, ok
}

// Len returns the number of live sessions.
func (r *Sessions) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

func newToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
