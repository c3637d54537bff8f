package practice

import (
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/example/korbot/internal/metrics"
)

type options struct {
	now     func() time.Time
	rng     *rand.Rand
	logger  *zap.Logger
	metrics *metrics.Manager
}

// Option configures the engine components
type Option func(*options)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithRand sets the random source used to break ties between equally
// mastered items
func WithRand(rng *rand.Rand) Option {
	return func(o *options) {
		if rng != nil {
			o.rng = rng
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics enables metric collection
func WithMetrics(m *metrics.Manager) Option {
	return func(o *options) {
		o.metrics = m
	}
}

func newOptions(opts []Option) options {
	o := options{
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.rng == nil {
		o.rng = rand.New(rand.NewSource(o.now().UnixNano()))
	}
	return o
}

func (o options) clock() time.Time {
	return o.now().UTC()
}
