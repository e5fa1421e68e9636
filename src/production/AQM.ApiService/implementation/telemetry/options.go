package telemetry

import "time"

// Ingest outcomes reported to an Observer
const (
	ResultOK         = "ok"
	ResultMalformed  = "malformed"
	ResultEmpty      = "empty"
	ResultStoreError = "store_error"
)

// Observer receives ingestion outcomes and absorbed read failures
type Observer interface {
	IngestResult(result string)
	StoreReadFailure(op string)
}

type nopObserver struct{}

func (nopObserver) IngestResult(string)     {}
func (nopObserver) StoreReadFailure(string) {}

type options struct {
	now      func() time.Time
	observer Observer
}

// Option configures an Ingestor or QueryService
type Option func(*options)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithObserver reports outcomes to obs
func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observer = obs
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now, observer: nopObserver{}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
