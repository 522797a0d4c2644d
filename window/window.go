/**
 * Copyright 2020 TryFix Engineering.
 * All rights reserved.
 * Authors:
 *    Gayan Yapa (gmbyapa@gmail.com)
 */

package window

import (
	"sync"
	"time"

	"github.com/gammazero/deque"
	"github.com/tryfix/errors"
	"github.com/tryfix/log"
	"github.com/tryfix/metrics"
)

// DefaultSize is the window capacity used when none is configured
const DefaultSize = 10

// Manager holds a bounded, de-duplicated window of integers ordered by arrival.
// All operations are serialized by a single mutex so Ingest results always
// carry a consistent before/after pair.
type Manager struct {
	mu         *sync.Mutex
	numbers    *deque.Deque[int]
	capacity   int
	dedupBatch bool
	logger     log.Logger
	metrics    struct {
		ingestLatency metrics.Observer
		received      metrics.Counter
		accepted      metrics.Counter
		evicted       metrics.Counter
		length        metrics.Gauge
	}
}

type Option func(m *Manager)

func WithLogger(logger log.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithBatchDedup drops repeated values inside a single batch before they are
// compared against the window.
func WithBatchDedup(enabled bool) Option {
	return func(m *Manager) {
		m.dedupBatch = enabled
	}
}

func WithMetricsReporter(reporter metrics.Reporter) Option {
	return func(m *Manager) {
		m.registerMetrics(reporter)
	}
}

func New(capacity int, opts ...Option) (*Manager, error) {
	if capacity < 1 {
		return nil, errors.Errorf(`invalid window size [%d], should be greater than zero`, capacity)
	}

	m := &Manager{
		mu:       new(sync.Mutex),
		numbers:  deque.New[int](),
		capacity: capacity,
		logger:   log.NewNoopLogger(),
	}
	m.registerMetrics(metrics.NoopReporter())

	for _, opt := range opts {
		opt(m)
	}

	m.logger = m.logger.NewLog(log.Prefixed(`window`))

	return m, nil
}

func (m *Manager) registerMetrics(reporter metrics.Reporter) {
	m.metrics.ingestLatency = reporter.Observer(metrics.MetricConf{Path: `window_ingest_latency_microseconds`})
	m.metrics.received = reporter.Counter(metrics.MetricConf{Path: `window_received_numbers`})
	m.metrics.accepted = reporter.Counter(metrics.MetricConf{Path: `window_accepted_numbers`})
	m.metrics.evicted = reporter.Counter(metrics.MetricConf{Path: `window_evicted_numbers`})
	m.metrics.length = reporter.Gauge(metrics.MetricConf{Path: `window_length`})
}

// Ingest merges batch into the window and reports the transition.
func (m *Manager) Ingest(batch []int) UpdateResult {
	defer func(begin time.Time) {
		m.metrics.ingestLatency.Observe(float64(time.Since(begin).Nanoseconds()/1e3), nil)
	}(time.Now())

	m.mu.Lock()
	defer m.mu.Unlock()

	res := UpdateResult{
		Prev:    m.snapshot(),
		Numbers: copyOf(batch),
	}

	fresh := m.unseen(batch)
	evicted := m.place(fresh)

	res.Curr = m.snapshot()
	res.Avg = average(res.Curr)

	m.metrics.received.Count(float64(len(batch)), nil)
	m.metrics.accepted.Count(float64(len(fresh)), nil)
	m.metrics.evicted.Count(float64(evicted), nil)
	m.metrics.length.Count(float64(m.numbers.Len()), nil)

	m.logger.Trace(`window.Ingest`, `received`, len(batch), `new`, len(fresh), `evicted`, evicted)

	return res
}

// unseen returns the batch elements not currently in the window, batch order preserved.
func (m *Manager) unseen(batch []int) []int {
	fresh := make([]int, 0, len(batch))
	var seen map[int]struct{}
	if m.dedupBatch {
		seen = make(map[int]struct{}, len(batch))
	}

	for _, n := range batch {
		if m.contains(n) {
			continue
		}

		if seen != nil {
			if _, ok := seen[n]; ok {
				continue
			}
			seen[n] = struct{}{}
		}

		fresh = append(fresh, n)
	}

	return fresh
}

// place folds fresh into the window and returns how many numbers were evicted.
func (m *Manager) place(fresh []int) (evicted int) {
	if len(fresh) == 0 {
		return 0
	}

	if m.numbers.Len()+len(fresh) <= m.capacity {
		m.push(fresh)
		return 0
	}

	// partial room: fill up first, the rest replaces the oldest
	if room := m.capacity - m.numbers.Len(); room > 0 {
		m.push(fresh[:room])
		fresh = fresh[room:]
	}

	evicted = m.evict(len(fresh))

	// more new numbers than the window can hold, only the latest survive
	if len(fresh) > m.capacity {
		evicted += len(fresh) - m.capacity
		fresh = fresh[len(fresh)-m.capacity:]
	}

	m.push(fresh)

	return evicted
}

func (m *Manager) evict(n int) int {
	evicted := 0
	for ; evicted < n && m.numbers.Len() > 0; evicted++ {
		m.numbers.PopFront()
	}

	return evicted
}

func (m *Manager) push(numbers []int) {
	for _, n := range numbers {
		m.numbers.PushBack(n)
	}
}

func (m *Manager) contains(n int) bool {
	for i := 0; i < m.numbers.Len(); i++ {
		if m.numbers.At(i) == n {
			return true
		}
	}

	return false
}

func (m *Manager) snapshot() []int {
	out := make([]int, m.numbers.Len())
	for i := range out {
		out[i] = m.numbers.At(i)
	}

	return out
}

// Reset empties the window. Size is unaffected.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.numbers.Clear()
	m.metrics.length.Count(0, nil)
	m.logger.Debug(`window.Reset`, `window cleared`)
}

// Size returns the configured capacity, not the current length.
func (m *Manager) Size() int {
	return m.capacity
}

// Len returns the number of values currently held.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.numbers.Len()
}

func (m *Manager) Snapshot() []int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.snapshot()
}

func (m *Manager) Average() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	return average(m.snapshot())
}

// State returns a copy of the window together with its average, both read
// under the same lock.
func (m *Manager) State() ([]int, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	numbers := m.snapshot()
	return numbers, average(numbers)
}

func copyOf(numbers []int) []int {
	out := make([]int, len(numbers))
	copy(out, numbers)
	return out
}
