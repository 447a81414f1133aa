package metrics

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

type Kind string

const (
	Gauge     Kind = "gauge"
	Counter   Kind = "counter"
	Histogram Kind = "histogram"
)

type Sample struct {
	Metric    string
	Value     float64
	Kind      Kind
	Timestamp time.Time
}

// Sink is the external reporting backend.
type Sink interface {
	Submit(metric string, value float64, kind Kind, ts time.Time) error
}

// Recorder is what pipeline components record samples through.
type Recorder interface {
	Set(metric string, value float64)
	Incr(metric string, delta float64)
	Submit(metric string, value float64, kind Kind)
}

// Aggregator buckets Set/Incr samples per unix second and reports each
// bucket once it has fully elapsed. Submit bypasses the buckets.
type Aggregator struct {
	sink     Sink
	interval time.Duration
	now      func() time.Time

	mu      sync.Mutex
	buckets map[int64]map[string]float64

	lifecycle sync.Mutex
	stop      chan struct{}
	done      chan struct{}
}

type Option func(*Aggregator)

func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		a.now = now
	}
}

func NewAggregator(sink Sink, interval time.Duration, opts ...Option) *Aggregator {
	a := &Aggregator{
		sink:     sink,
		interval: interval,
		now:      time.Now,
		buckets:  make(map[int64]map[string]float64),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Start launches the periodic flush. Calling Start on a running aggregator is a no-op.
func (a *Aggregator) Start() {
	a.lifecycle.Lock()
	defer a.lifecycle.Unlock()
	if a.stop != nil {
		return
	}
	a.stop = make(chan struct{})
	a.done = make(chan struct{})
	go a.loop(a.stop, a.done)
}

// Stop halts the flush loop and reports every remaining bucket, including the current one.
func (a *Aggregator) Stop() {
	a.lifecycle.Lock()
	stop, done := a.stop, a.done
	a.stop, a.done = nil, nil
	a.lifecycle.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
	a.flush(true)
}

func (a *Aggregator) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			a.Flush()
		}
	}
}

func (a *Aggregator) Set(metric string, value float64) {
	sec := a.now().Unix()
	a.mu.Lock()
	a.bucket(sec)[metric] = value
	a.mu.Unlock()
}

func (a *Aggregator) Incr(metric string, delta float64) {
	sec := a.now().Unix()
	a.mu.Lock()
	a.bucket(sec)[metric] += delta
	a.mu.Unlock()
}

func (a *Aggregator) Submit(metric string, value float64, kind Kind) {
	if err := a.sink.Submit(metric, value, kind, a.now()); err != nil {
		zap.L().Warn("Failed to submit metric", zap.String("metric", metric), zap.Error(err))
	}
}

// Flush reports and evicts buckets older than the current second.
func (a *Aggregator) Flush() {
	a.flush(false)
}

func (a *Aggregator) flush(all bool) {
	current := a.now().Unix()

	a.mu.Lock()
	elapsed := make(map[int64]map[string]float64)
	for sec, bucket := range a.buckets {
		if all || sec < current {
			elapsed[sec] = bucket
			delete(a.buckets, sec)
		}
	}
	a.mu.Unlock()

	secs := make([]int64, 0, len(elapsed))
	for sec := range elapsed {
		secs = append(secs, sec)
	}
	sort.Slice(secs, func(i, j int) bool { return secs[i] < secs[j] })

	for _, sec := range secs {
		ts := time.Unix(sec, 0)
		for metric, value := range elapsed[sec] {
			if err := a.sink.Submit(metric, value, Gauge, ts); err != nil {
				zap.L().Warn("Failed to submit metric",
					zap.String("metric", metric),
					zap.Int64("bucket", sec),
					zap.Error(err))
			}
		}
	}
}

func (a *Aggregator) bucket(sec int64) map[string]float64 {
	b, ok := a.buckets[sec]
	if !ok {
		b = make(map[string]float64)
		a.buckets[sec] = b
	}
	return b
}

// Nop discards everything.
type Nop struct{}

func (Nop) Set(string, float64)          {}
func (Nop) Incr(string, float64)         {}
func (Nop) Submit(string, float64, Kind) {}
