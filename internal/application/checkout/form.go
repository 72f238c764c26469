// Package checkout validates the order form and hands a valid form to the
// payment widget and then to the storefront.
//
// A field starts untouched. Blur touches it and validates at once. Typing
// into a touched field re-validates after a short debounce. Typing into an
// untouched field only stores the value. The form is valid when every
// required field is touched and valid.
package checkout

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/eshaffer321/cartsync/internal/application/debounce"
	"github.com/eshaffer321/cartsync/internal/infrastructure/clock"
	"github.com/eshaffer321/cartsync/internal/infrastructure/storage"
)

// DraftPrefix namespaces per-field drafts in the local store.
const DraftPrefix = "checkout_"

// State is the validation state of a field.
type State int

const (
	Untouched State = iota
	Valid
	Invalid
)

func (s State) String() string {
	switch s {
	case Valid:
		return "valid"
	case Invalid:
		return "invalid"
	default:
		return "untouched"
	}
}

// FieldStatus is the current state of one field.
type FieldStatus struct {
	Name    string
	Label   string
	Value   string
	State   State
	Message string
}

// Summary lists the required fields blocking submission.
type Summary struct {
	Labels  []string
	Focus   string
	Message string
}

// Form holds field values and validation state.
type Form struct {
	fields    []Field
	index     map[string]int
	validate  *validator.Validate
	scheduler *debounce.Scheduler
	drafts    storage.LocalStore
	logger    *slog.Logger

	mu       sync.Mutex
	values   map[string]string
	states   map[string]State
	messages map[string]string
}

// FormOption configures a Form.
type FormOption func(*formOptions)

type formOptions struct {
	fields []Field
	clock  clock.Clock
	delay  time.Duration
	drafts storage.LocalStore
	logger *slog.Logger
}

// WithFields replaces the default order form fields.
func WithFields(fields []Field) FormOption {
	return func(o *formOptions) { o.fields = fields }
}

// WithFormClock injects the time source for input debouncing.
func WithFormClock(c clock.Clock) FormOption {
	return func(o *formOptions) { o.clock = c }
}

// WithValidationDelay sets the input debounce window.
func WithValidationDelay(d time.Duration) FormOption {
	return func(o *formOptions) { o.delay = d }
}

// WithDrafts persists field values as they are typed.
func WithDrafts(store storage.LocalStore) FormOption {
	return func(o *formOptions) { o.drafts = store }
}

// WithFormLogger sets the logger.
func WithFormLogger(l *slog.Logger) FormOption {
	return func(o *formOptions) { o.logger = l }
}

// NewForm creates a form with every field untouched and empty.
func NewForm(opts ...FormOption) *Form {
	o := formOptions{fields: DefaultFields(), delay: debounce.DefaultDelay}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	f := &Form{
		fields:    o.fields,
		index:     make(map[string]int, len(o.fields)),
		validate:  newValidator(),
		scheduler: debounce.New(o.clock, o.delay),
		drafts:    o.drafts,
		logger:    o.logger,
		values:    make(map[string]string),
		states:    make(map[string]State),
		messages:  make(map[string]string),
	}
	for i, field := range o.fields {
		f.index[field.Name] = i
	}
	return f
}

// Fields returns the declared fields in order.
func (f *Form) Fields() []Field {
	return append([]Field(nil), f.fields...)
}

// Blur marks the field touched and validates it immediately.
func (f *Form) Blur(name, value string) (FieldStatus, error) {
	field, err := f.field(name)
	if err != nil {
		return FieldStatus{}, err
	}
	f.scheduler.Cancel(name)

	f.mu.Lock()
	f.values[name] = value
	f.validateLocked(field)
	status := f.statusLocked(field)
	f.mu.Unlock()

	f.saveDraft(name, value)
	return status, nil
}

// Input stores a typed value. A touched field is re-validated once typing
// settles; an untouched field stays untouched.
func (f *Form) Input(name, value string) error {
	field, err := f.field(name)
	if err != nil {
		return err
	}

	f.mu.Lock()
	f.values[name] = value
	touched := f.states[name] != Untouched
	f.mu.Unlock()

	f.saveDraft(name, value)

	if touched {
		f.scheduler.Schedule(name, func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.validateLocked(field)
		})
	}
	return nil
}

// ValidateAll touches and validates every field. It reports whether the
// form is valid.
func (f *Form) ValidateAll() bool {
	f.scheduler.Flush()

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, field := range f.fields {
		f.validateLocked(field)
	}
	return f.validLocked()
}

// CheckRequired marks empty required fields invalid without applying
// format rules. It returns the fields that are missing.
func (f *Form) CheckRequired() []Field {
	f.mu.Lock()
	defer f.mu.Unlock()

	var missing []Field
	for _, field := range f.fields {
		if !field.Required {
			continue
		}
		if strings.TrimSpace(f.values[field.Name]) == "" {
			f.states[field.Name] = Invalid
			f.messages[field.Name] = requiredMessage(field)
			missing = append(missing, field)
		}
	}
	return missing
}

// Valid reports whether every required field is touched and valid.
func (f *Form) Valid() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.validLocked()
}

// Status returns the state of one field.
func (f *Form) Status(name string) (FieldStatus, error) {
	field, err := f.field(name)
	if err != nil {
		return FieldStatus{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statusLocked(field), nil
}

// Summary lists the required fields that are not yet valid, and the first
// of them in declared order as the focus target.
func (f *Form) Summary() Summary {
	f.mu.Lock()
	defer f.mu.Unlock()

	var s Summary
	for _, field := range f.fields {
		if !field.Required || f.states[field.Name] == Valid {
			continue
		}
		if s.Focus == "" {
			s.Focus = field.Name
		}
		s.Labels = append(s.Labels, field.Label)
	}
	if len(s.Labels) > 0 {
		s.Message = "Please complete the following required fields: " + strings.Join(s.Labels, ", ")
	}
	return s
}

// Progress returns how many required fields are complete out of how many
// exist. A field is complete when it has a value that has not been marked
// invalid, so typed but unchecked fields count.
func (f *Form) Progress() (done, total int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, field := range f.fields {
		if !field.Required {
			continue
		}
		total++
		if strings.TrimSpace(f.values[field.Name]) != "" && f.states[field.Name] != Invalid {
			done++
		}
	}
	return done, total
}

// Values returns the trimmed value of every declared field.
func (f *Form) Values() url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()

	v := make(url.Values, len(f.fields))
	for _, field := range f.fields {
		v.Set(field.Name, strings.TrimSpace(f.values[field.Name]))
	}
	return v
}

// Value returns the raw value of one field.
func (f *Form) Value(name string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values[name]
}

// RestoreDrafts fills empty fields from saved drafts and returns how many
// were restored. Restored fields stay untouched.
func (f *Form) RestoreDrafts() (int, error) {
	if f.drafts == nil {
		return 0, nil
	}

	restored := 0
	for _, field := range f.fields {
		value, ok, err := f.drafts.GetItem(DraftPrefix + field.Name)
		if err != nil {
			return restored, fmt.Errorf("restore draft %s: %w", field.Name, err)
		}
		if !ok {
			continue
		}

		f.mu.Lock()
		if f.values[field.Name] == "" {
			f.values[field.Name] = value
			restored++
		}
		f.mu.Unlock()
	}
	return restored, nil
}

// ClearDrafts removes every saved field draft.
func (f *Form) ClearDrafts() {
	if f.drafts == nil {
		return
	}
	if _, err := f.drafts.RemovePrefix(DraftPrefix); err != nil {
		f.logger.Warn("could not clear checkout drafts", slog.Any("error", err))
	}
}

// Stop cancels pending debounced validation.
func (f *Form) Stop() {
	f.scheduler.Stop()
}

// Billing maps the form onto the payment widget's billing details.
func (f *Form) Billing() BillingDetails {
	v := f.Values()
	return BillingDetails{
		Name:  v.Get("full_name"),
		Email: v.Get("email"),
		Phone: v.Get("phone_number"),
		Address: Address{
			Line1:      v.Get("street_address1"),
			Line2:      v.Get("street_address2"),
			City:       v.Get("town_or_city"),
			State:      v.Get("county"),
			PostalCode: v.Get("postcode"),
			Country:    v.Get("country"),
		},
	}
}

func (f *Form) field(name string) (Field, error) {
	i, ok := f.index[name]
	if !ok {
		return Field{}, fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
	return f.fields[i], nil
}

func (f *Form) validateLocked(field Field) {
	value := strings.TrimSpace(f.values[field.Name])

	switch {
	case value == "" && field.Required:
		f.states[field.Name] = Invalid
		f.messages[field.Name] = requiredMessage(field)
	case value != "" && field.Rule != "" && f.validate.Var(value, field.Rule) != nil:
		f.states[field.Name] = Invalid
		f.messages[field.Name] = ruleMessage(field.Rule)
	default:
		f.states[field.Name] = Valid
		f.messages[field.Name] = ""
	}
}

func (f *Form) validLocked() bool {
	for _, field := range f.fields {
		if field.Required && f.states[field.Name] != Valid {
			return false
		}
	}
	return true
}

func (f *Form) statusLocked(field Field) FieldStatus {
	return FieldStatus{
		Name:    field.Name,
		Label:   field.Label,
		Value:   f.values[field.Name],
		State:   f.states[field.Name],
		Message: f.messages[field.Name],
	}
}

func (f *Form) saveDraft(name, value string) {
	if f.drafts == nil {
		return
	}
	if err := f.drafts.SetItem(DraftPrefix+name, value); err != nil {
		f.logger.Warn("could not save checkout draft", "field", name, slog.Any("error", err))
	}
}
