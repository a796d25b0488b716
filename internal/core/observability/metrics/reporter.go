// Package metrics hides the statsd client behind a small Reporter interface
// so engine packages never import the DataDog SDK directly.
package metrics

import (
	"errors"
	"time"

	ddstatsd "github.com/DataDog/datadog-go/v5/statsd"
)

var ErrEmptyAddress = errors.New("statsd address must not be empty")

// Reporter receives engine timings and counters.
type Reporter interface {
	Timing(name string, value time.Duration, tags ...string)
	Count(name string, value int64, tags ...string)
	Gauge(name string, value float64, tags ...string)
	Close() error
}

// Nop discards every sample.
type Nop struct{}

func (Nop) Timing(string, time.Duration, ...string) {}
func (Nop) Count(string, int64, ...string)          {}
func (Nop) Gauge(string, float64, ...string)        {}
func (Nop) Close() error                            { return nil }

// Statsd forwards samples to a dogstatsd agent. Send errors are dropped:
// metrics must never fail a frame.
type Statsd struct {
	client ddstatsd.ClientInterface
}

var _ Reporter = (*Statsd)(nil)

// NewStatsd connects to address ("host:port" or "unix:///path") and
// prefixes every metric with namespace.
func NewStatsd(address, namespace string, tags ...string) (*Statsd, error) {
	if address == "" {
		return nil, ErrEmptyAddress
	}
	opts := []ddstatsd.Option{ddstatsd.WithNamespace(namespace)}
	if len(tags) > 0 {
		opts = append(opts, ddstatsd.WithTags(tags))
	}
	client, err := ddstatsd.New(address, opts...)
	if err != nil {
		return nil, err
	}
	return &Statsd{client: client}, nil
}

// NewStatsdWithClient wraps an existing client, e.g. a test double.
func NewStatsdWithClient(client ddstatsd.ClientInterface) *Statsd {
	return &Statsd{client: client}
}

func (s *Statsd) Timing(name string, value time.Duration, tags ...string) {
	_ = s.client.Timing(name, value, tags, 1)
}

func (s *Statsd) Count(name string, value int64, tags ...string) {
	_ = s.client.Count(name, value, tags, 1)
}

func (s *Statsd) Gauge(name string, value float64, tags ...string) {
	_ = s.client.Gauge(name, value, tags, 1)
}

func (s *Statsd) Close() error {
	return s.client.Close()
}
