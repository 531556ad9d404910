package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ServiceMode represents the available service modes.
type ServiceMode string

const (
	// ServiceModeHTTP runs the admin API server.
	ServiceModeHTTP ServiceMode = "http"
	// ServiceModeDispatcher runs the dispatch worker.
	ServiceModeDispatcher ServiceMode = "dispatcher"
)

// ValidServiceModes returns all valid service mode names.
func ValidServiceModes() []ServiceMode {
	return []ServiceMode{ServiceModeHTTP, ServiceModeDispatcher}
}

// ParseServices parses a comma-delimited string of service names and returns the enabled services.
// It validates that all service names are valid and returns an error if any are invalid.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	services := make(map[ServiceMode]bool)

	if servicesStr == "" {
		return services, errors.New("at least one service must be specified")
	}

	for _, part := range strings.Split(servicesStr, ",") {
		serviceName := strings.TrimSpace(part)
		if serviceName == "" {
			continue
		}

		mode := ServiceMode(serviceName)
		switch mode {
		case ServiceModeHTTP, ServiceModeDispatcher:
			services[mode] = true
		default:
			return nil, fmt.Errorf("invalid service name: %q (valid options: http, dispatcher)", serviceName)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("at least one valid service must be specified")
	}

	return services, nil
}

// GetEnabledServices parses the Services field into the enabled service set.
func (c *AppConfig) GetEnabledServices() (map[ServiceMode]bool, error) {
	return ParseServices(c.Services)
}

// DispatchConfig tunes the dispatch worker.
type DispatchConfig struct {
	// BatchSize is the number of recipients per batch.
	BatchSize int `env:"DISPATCH_BATCH_SIZE" envDefault:"5"`

	// Concurrency caps concurrent provider sends within a batch.
	Concurrency int `env:"DISPATCH_CONCURRENCY" envDefault:"5"`

	// QueueSize is the dispatch queue capacity. Job creation fails when the
	// queue is full.
	QueueSize int `env:"DISPATCH_QUEUE_SIZE" envDefault:"64"`

	// RatePerSecond caps provider sends per second; 0 disables the cap.
	RatePerSecond float64 `env:"DISPATCH_RATE_PER_SECOND" envDefault:"0"`

	// StuckAfter is how long a job may sit in processing before the startup
	// sweep finalizes it.
	StuckAfter time.Duration `env:"DISPATCH_STUCK_AFTER" envDefault:"10m"`
}

// Sanitize applies guardrails to dispatch configuration values.
func (c *DispatchConfig) Sanitize() {
	if c.BatchSize < 1 {
		c.BatchSize = 5
	}
	if c.Concurrency < 1 {
		c.Concurrency = 1
	}
	if c.QueueSize < 1 {
		c.QueueSize = 64
	}
	if c.RatePerSecond < 0 {
		c.RatePerSecond = 0
	}
	if c.StuckAfter <= 0 {
		c.StuckAfter = 10 * time.Minute
	}
}

// ProviderConfig configures the messaging provider gateway.
type ProviderConfig struct {
	// BaseURL is the provider's send endpoint.
	BaseURL string `env:"PROVIDER_BASE_URL" envDefault:""`

	// APIKey authenticates requests to the provider.
	APIKey string `env:"PROVIDER_API_KEY" envDefault:""`

	// Timeout bounds each send request.
	Timeout time.Duration `env:"PROVIDER_TIMEOUT" envDefault:"10s"`
}

// Sanitize applies guardrails to provider configuration values.
func (c *ProviderConfig) Sanitize() {
	c.BaseURL = strings.TrimSpace(c.BaseURL)
	c.APIKey = strings.TrimSpace(c.APIKey)
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
}
