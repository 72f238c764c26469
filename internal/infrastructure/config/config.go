// Package config provides centralized configuration management.
//
// Configuration can be loaded from:
//  1. YAML file (config.yaml)
//  2. Environment variables (fallback)
//
// Example usage:
//
//	cfg := config.LoadOrEnv()
//	baseURL := cfg.Storefront.BaseURL
//	policy, err := cfg.Cart.Policy()
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/eshaffer321/cartsync/internal/domain/pricing"
	"github.com/eshaffer321/cartsync/internal/domain/quantity"
)

// Defaults applied to fields left empty.
const (
	DefaultBaseURL            = "http://localhost:8000"
	DefaultCSRFField          = "csrfmiddlewaretoken"
	DefaultTimeout            = 15 * time.Second
	DefaultDebounceDelay      = 500 * time.Millisecond
	DefaultDeliveryThreshold  = "250.00"
	DefaultSnapshotMaxAge     = time.Hour
	DefaultSnapshotKey        = "cncraft_cart"
	DefaultRemovalAnimation   = 300 * time.Millisecond
	DefaultSubmitTimeout      = 30 * time.Second
	DefaultValidationDebounce = 500 * time.Millisecond
	DefaultDatabasePath       = "cartsync.db"
	DefaultPort               = 8000
	DefaultPublicKey          = "pk_test_placeholder"
)

// Config represents the entire application configuration
type Config struct {
	Storefront    StorefrontConfig    `yaml:"storefront"`
	Cart          CartConfig          `yaml:"cart"`
	Checkout      CheckoutConfig      `yaml:"checkout"`
	Storage       StorageConfig       `yaml:"storage"`
	DevServer     DevServerConfig     `yaml:"devserver"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// StorefrontConfig points the client at the shop.
type StorefrontConfig struct {
	BaseURL   string        `yaml:"base_url"`
	CSRFField string        `yaml:"csrf_field"`
	Timeout   time.Duration `yaml:"timeout"`
}

// CartConfig holds the cart rules.
type CartConfig struct {
	MinQuantity   int           `yaml:"min_quantity"`
	MaxQuantity   int           `yaml:"max_quantity"`
	DebounceDelay time.Duration `yaml:"debounce_delay"`
	// DeliveryThreshold is money text such as "250.00" or "$1,000". Empty
	// means read it from the cart page.
	DeliveryThreshold string        `yaml:"delivery_threshold"`
	DeliveryRateBPS   int64         `yaml:"delivery_rate_bps"`
	SnapshotMaxAge    time.Duration `yaml:"snapshot_max_age"`
	SnapshotKey       string        `yaml:"snapshot_key"`
	RemovalAnimation  time.Duration `yaml:"removal_animation"`
}

// CheckoutConfig holds checkout timings.
type CheckoutConfig struct {
	SubmitTimeout      time.Duration `yaml:"submit_timeout"`
	ValidationDebounce time.Duration `yaml:"validation_debounce"`
}

// StorageConfig holds database configuration
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// DevServerConfig configures the local fake storefront.
type DevServerConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	PublicKey      string   `yaml:"public_key"`
	CardElement    bool     `yaml:"card_element"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Defaults returns a fully populated configuration.
func Defaults() *Config {
	return &Config{
		Storefront: StorefrontConfig{
			BaseURL:   DefaultBaseURL,
			CSRFField: DefaultCSRFField,
			Timeout:   DefaultTimeout,
		},
		Cart: CartConfig{
			MinQuantity:       quantity.DefaultMin,
			MaxQuantity:       quantity.DefaultMax,
			DebounceDelay:     DefaultDebounceDelay,
			DeliveryThreshold: DefaultDeliveryThreshold,
			DeliveryRateBPS:   pricing.DefaultRateBPS,
			SnapshotMaxAge:    DefaultSnapshotMaxAge,
			SnapshotKey:       DefaultSnapshotKey,
			RemovalAnimation:  DefaultRemovalAnimation,
		},
		Checkout: CheckoutConfig{
			SubmitTimeout:      DefaultSubmitTimeout,
			ValidationDebounce: DefaultValidationDebounce,
		},
		Storage: StorageConfig{
			DatabasePath: DefaultDatabasePath,
		},
		DevServer: DevServerConfig{
			Port:           DefaultPort,
			AllowedOrigins: []string{"http://localhost:3000", "http://localhost:8000"},
			PublicKey:      DefaultPublicKey,
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  "info",
				Format: "console",
			},
		},
	}
}

// Load reads and parses the config file. Fields the file leaves out keep
// their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${CARTSYNC_BASE_URL})
	expanded := os.ExpandEnv(string(data))

	cfg := Defaults()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables only
func LoadFromEnv() *Config {
	d := Defaults()
	return &Config{
		Storefront: StorefrontConfig{
			BaseURL:   getEnv("CARTSYNC_BASE_URL", d.Storefront.BaseURL),
			CSRFField: getEnv("CARTSYNC_CSRF_FIELD", d.Storefront.CSRFField),
			Timeout:   getEnvDuration("CARTSYNC_TIMEOUT", d.Storefront.Timeout),
		},
		Cart: CartConfig{
			MinQuantity:       getEnvInt("CARTSYNC_MIN_QUANTITY", d.Cart.MinQuantity),
			MaxQuantity:       getEnvInt("CARTSYNC_MAX_QUANTITY", d.Cart.MaxQuantity),
			DebounceDelay:     getEnvDuration("CARTSYNC_DEBOUNCE_DELAY", d.Cart.DebounceDelay),
			DeliveryThreshold: getEnv("CARTSYNC_DELIVERY_THRESHOLD", d.Cart.DeliveryThreshold),
			DeliveryRateBPS:   int64(getEnvInt("CARTSYNC_DELIVERY_RATE_BPS", int(d.Cart.DeliveryRateBPS))),
			SnapshotMaxAge:    getEnvDuration("CARTSYNC_SNAPSHOT_MAX_AGE", d.Cart.SnapshotMaxAge),
			SnapshotKey:       getEnv("CARTSYNC_SNAPSHOT_KEY", d.Cart.SnapshotKey),
			RemovalAnimation:  getEnvDuration("CARTSYNC_REMOVAL_ANIMATION", d.Cart.RemovalAnimation),
		},
		Checkout: CheckoutConfig{
			SubmitTimeout:      getEnvDuration("CARTSYNC_SUBMIT_TIMEOUT", d.Checkout.SubmitTimeout),
			ValidationDebounce: getEnvDuration("CARTSYNC_VALIDATION_DEBOUNCE", d.Checkout.ValidationDebounce),
		},
		Storage: StorageConfig{
			DatabasePath: getEnv("CARTSYNC_DB_PATH", d.Storage.DatabasePath),
		},
		DevServer: DevServerConfig{
			Port:           getEnvInt("CARTSYNC_PORT", d.DevServer.Port),
			AllowedOrigins: getEnvList("CARTSYNC_ALLOWED_ORIGINS", d.DevServer.AllowedOrigins),
			PublicKey:      getEnv("CARTSYNC_PUBLIC_KEY", d.DevServer.PublicKey),
			CardElement:    getEnv("CARTSYNC_CARD_ELEMENT", "") == "true",
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", d.Observability.Logging.Level),
				Format: getEnv("LOG_FORMAT", d.Observability.Logging.Format),
			},
		},
	}
}

// LoadOrEnv tries to load from config.yaml, falls back to environment variables
func LoadOrEnv() *Config {
	return LoadOrEnv_WithPath("config.yaml")
}

// LoadOrEnv_WithPath tries to load from specified path, falls back to environment variables
func LoadOrEnv_WithPath(path string) *Config {
	if cfg, err := Load(path); err == nil {
		return cfg
	}
	return LoadFromEnv()
}

// Validate rejects settings no component could run with.
func (c *Config) Validate() error {
	var errs []error
	if err := c.Cart.Bounds().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("cart: %w", err))
	}
	if c.Cart.DeliveryRateBPS < 0 {
		errs = append(errs, fmt.Errorf("cart.delivery_rate_bps must not be negative, got %d", c.Cart.DeliveryRateBPS))
	}
	if strings.TrimSpace(c.Cart.DeliveryThreshold) != "" {
		if _, err := pricing.ParseMoney(c.Cart.DeliveryThreshold); err != nil {
			errs = append(errs, fmt.Errorf("cart.delivery_threshold: %w", err))
		}
	}

	durations := []struct {
		name string
		d    time.Duration
	}{
		{"storefront.timeout", c.Storefront.Timeout},
		{"cart.debounce_delay", c.Cart.DebounceDelay},
		{"cart.snapshot_max_age", c.Cart.SnapshotMaxAge},
		{"checkout.submit_timeout", c.Checkout.SubmitTimeout},
		{"checkout.validation_debounce", c.Checkout.ValidationDebounce},
	}
	for _, d := range durations {
		if d.d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", d.name, d.d))
		}
	}
	if c.Cart.RemovalAnimation < 0 {
		errs = append(errs, fmt.Errorf("cart.removal_animation must not be negative, got %s", c.Cart.RemovalAnimation))
	}
	if c.DevServer.Port < 0 || c.DevServer.Port > 65535 {
		errs = append(errs, fmt.Errorf("devserver.port out of range: %d", c.DevServer.Port))
	}
	return errors.Join(errs...)
}

// Bounds returns the configured quantity range.
func (c CartConfig) Bounds() quantity.Bounds {
	return quantity.Bounds{Min: c.MinQuantity, Max: c.MaxQuantity}
}

// Policy returns the delivery policy. ok is false when no threshold is
// configured and the caller should fall back to the page.
func (c CartConfig) Policy() (policy pricing.Policy, ok bool, err error) {
	policy = pricing.DefaultPolicy()
	policy.RateBPS = c.DeliveryRateBPS
	if strings.TrimSpace(c.DeliveryThreshold) == "" {
		return policy, false, nil
	}
	threshold, err := pricing.ParseMoney(c.DeliveryThreshold)
	if err != nil {
		return policy, false, fmt.Errorf("delivery threshold: %w", err)
	}
	policy.Threshold = threshold
	return policy, true, nil
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getEnvInt retrieves an integer environment variable with a fallback default
func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var result int
		if _, err := fmt.Sscanf(val, "%d", &result); err == nil {
			return result
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}

// getEnvList splits a comma-separated variable.
func getEnvList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
