package infra

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

// Each alert channel (email, telegram) gets its own breaker. After a run of
// delivery failures the channel is skipped until the cool-down passes; then
// a few deliveries are let through on trial before it is trusted again.
// Alert jobs keep flowing through the healthy channels meanwhile.

// CBState is a channel's breaker position.
type CBState int

const (
	CBClosed   CBState = iota // deliveries attempted
	CBOpen                    // channel skipped
	CBHalfOpen                // trial deliveries after cool-down
)

func (s CBState) String() string {
	switch s {
	case CBClosed:
		return "closed"
	case CBOpen:
		return "open"
	case CBHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned for a delivery skipped because its channel is cooling down.
var ErrCircuitOpen = errors.New("notifier circuit open")

var notifierBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "wms_notifier_breaker_state",
	Help: "Alert channel breaker position (0 closed, 1 open, 2 half-open).",
}, []string{"channel"})

// CircuitBreakerConfig tunes a channel breaker. Zero fields take the defaults.
type CircuitBreakerConfig struct {
	FailureThreshold int           // consecutive failed deliveries before skipping the channel
	SuccessThreshold int           // trial deliveries that must succeed to trust it again
	OpenTimeout      time.Duration // cool-down before the first trial
}

// DefaultCBConfig suits SMTP relays and the Telegram API, which tend to
// fail for minutes rather than seconds.
func DefaultCBConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		OpenTimeout:      time.Minute,
	}
}

// CircuitBreaker tracks the health of one alert channel. Safe for use by
// every worker in the pool.
type CircuitBreaker struct {
	channel string
	cfg     CircuitBreakerConfig
	now     func() time.Time

	mu        sync.Mutex
	state     CBState
	failures  int
	successes int
	openedAt  time.Time
}

// NewCircuitBreaker returns a closed breaker for the named channel.
func NewCircuitBreaker(channel string, cfg CircuitBreakerConfig) *CircuitBreaker {
	def := DefaultCBConfig()
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = def.SuccessThreshold
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = def.OpenTimeout
	}
	cb := &CircuitBreaker{channel: channel, cfg: cfg, now: time.Now}
	notifierBreakerState.WithLabelValues(channel).Set(float64(CBClosed))
	return cb
}

// State reports the position, moving an expired open breaker to half-open.
func (cb *CircuitBreaker) State() CBState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.refresh()
	return cb.state
}

// Execute performs one delivery unless the channel is cooling down.
func (cb *CircuitBreaker) Execute(deliver func() error) error {
	if cb.State() == CBOpen {
		return ErrCircuitOpen
	}

	err := deliver()

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err != nil {
		cb.failed()
		return err
	}
	cb.succeeded()
	return nil
}

func (cb *CircuitBreaker) refresh() {
	if cb.state == CBOpen && cb.now().Sub(cb.openedAt) >= cb.cfg.OpenTimeout {
		cb.moveTo(CBHalfOpen)
	}
}

func (cb *CircuitBreaker) failed() {
	cb.failures++
	if cb.state == CBHalfOpen || cb.failures >= cb.cfg.FailureThreshold {
		cb.openedAt = cb.now()
		cb.moveTo(CBOpen)
	}
}

func (cb *CircuitBreaker) succeeded() {
	if cb.state != CBHalfOpen {
		cb.failures = 0
		return
	}
	cb.successes++
	if cb.successes >= cb.cfg.SuccessThreshold {
		cb.moveTo(CBClosed)
	}
}

// moveTo resets the counters and publishes the new position. Caller holds mu.
func (cb *CircuitBreaker) moveTo(s CBState) {
	if cb.state == s {
		return
	}
	log.Info().Str("channel", cb.channel).Str("from", cb.state.String()).Str("to", s.String()).
		Msg("notifier breaker transition")
	cb.state = s
	cb.failures, cb.successes = 0, 0
	notifierBreakerState.WithLabelValues(cb.channel).Set(float64(s))
}
