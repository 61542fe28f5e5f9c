package metrics

import "time"

type Statter interface {
	Inc(metric string, value int64)
	Gauge(metric string, value int64)
	TimingDuration(metric string, value time.Duration)
}

// NullStatter drops every metric. It is the default when no statsd endpoint
// is configured.
type NullStatter struct{}

func (NullStatter) Inc(string, int64) {}

func (NullStatter) Gauge(string, int64) {}

func (NullStatter) TimingDuration(string, time.Duration) {}
