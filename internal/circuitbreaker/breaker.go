// Package circuitbreaker guards outbound provider calls with Sony's gobreaker.
package circuitbreaker

import (
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"newsletter-gate/internal/common/errors"
	"newsletter-gate/internal/common/logging"
)

// Config holds the configuration for a circuit breaker
type Config struct {
	// MaxFailures is the number of consecutive failures that opens the circuit
	MaxFailures int
	// Timeout is how long the circuit stays open before going half-open
	Timeout time.Duration
	// MaxConcurrentRequests is the number of probe requests allowed while half-open
	MaxConcurrentRequests int
}

// ProviderConfig is tuned for newsletter provider APIs: trip fast, probe after 30s.
var ProviderConfig = Config{
	MaxFailures:           3,
	Timeout:               30 * time.Second,
	MaxConcurrentRequests: 1,
}

// Validate checks if the configuration is valid
func (c Config) Validate() error {
	if c.MaxFailures <= 0 {
		return fmt.Errorf("MaxFailures must be positive, got %d", c.MaxFailures)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("Timeout must be positive, got %v", c.Timeout)
	}
	if c.MaxConcurrentRequests <= 0 {
		return fmt.Errorf("MaxConcurrentRequests must be positive, got %d", c.MaxConcurrentRequests)
	}
	return nil
}

// State represents the current state of the circuit breaker
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Stats is a snapshot of a breaker for health output
type Stats struct {
	Name      string `json:"name"`
	State     string `json:"state"`
	Failures  int    `json:"failures"`
	Successes int    `json:"successes"`
}

// Breaker wraps a gobreaker.CircuitBreaker
type Breaker struct {
	name    string
	breaker *gobreaker.CircuitBreaker
}

// New creates a breaker. An invalid config falls back to ProviderConfig.
func New(name string, config Config, logger logging.Logger) *Breaker {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	if err := config.Validate(); err != nil {
		logger.Warn("Invalid circuit breaker config, using defaults",
			logging.String("name", name),
			logging.Err(err),
		)
		config = ProviderConfig
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: uint32(config.MaxConcurrentRequests),
		Interval:    time.Minute,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(config.MaxFailures)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				logging.String("breaker", name),
				logging.String("from", from.String()),
				logging.String("to", to.String()),
			)
		},
		IsSuccessful: isSuccessful,
	}

	return &Breaker{
		name:    name,
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// isSuccessful keeps client-side failures (a 4xx answer, an unknown member)
// from tripping the breaker: the provider is reachable and answering.
func isSuccessful(err error) bool {
	if err == nil {
		return true
	}
	switch errors.GetType(err) {
	case errors.ErrTypeValidation, errors.ErrTypeNotFound, errors.ErrTypeProvider, errors.ErrTypeAuth:
		return true
	}
	return false
}

// Execute runs fn within the circuit breaker
func (b *Breaker) Execute(fn func() error) error {
	_, err := b.breaker.Execute(func() (interface{}, error) {
		return nil, fn()
	})

	if stderrors.Is(err, gobreaker.ErrOpenState) || stderrors.Is(err, gobreaker.ErrTooManyRequests) {
		return errors.ConnectionError(fmt.Sprintf("circuit breaker '%s' is open", b.name), err)
	}
	return err
}

// State returns the current state of the circuit breaker
func (b *Breaker) State() State {
	switch b.breaker.State() {
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateClosed
	}
}

// Stats returns current statistics
func (b *Breaker) Stats() Stats {
	counts := b.breaker.Counts()
	return Stats{
		Name:      b.name,
		State:     b.State().String(),
		Failures:  int(counts.TotalFailures),
		Successes: int(counts.TotalSuccesses),
	}
}

// Manager hands out one breaker per name, typically one per provider
type Manager struct {
	config   Config
	logger   logging.Logger
	mu       sync.Mutex
	breakers map[string]*Breaker
}

// NewManager creates a manager whose breakers share config
func NewManager(config Config, logger logging.Logger) *Manager {
	return &Manager{
		config:   config,
		logger:   logger,
		breakers: make(map[string]*Breaker),
	}
}

// Get returns the breaker for name, creating it on first use
func (m *Manager) Get(name string) *Breaker {
	m.mu.Lock()
	defer m.mu.Unlock()

	if b, ok := m.breakers[name]; ok {
		return b
	}
	b := New(name, m.config, m.logger)
	m.breakers[name] = b
	return b
}

// AllStats returns statistics for every breaker created so far
func (m *Manager) AllStats() []Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := make([]Stats, 0, len(m.breakers))
	for _, b := range m.breakers {
		stats = append(stats, b.Stats())
	}
	return stats
}
