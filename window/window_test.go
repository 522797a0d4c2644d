package window

import (
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/tryfix/log"
	"github.com/tryfix/metrics"
)

func newManager(t *testing.T, capacity int, initial []int, opts ...Option) *Manager {
	t.Helper()
	m, err := New(capacity, opts...)
	if err != nil {
		t.Fatal(err)
	}

	if len(initial) > 0 {
		m.Ingest(initial)
	}

	return m
}

func TestNew_InvalidSize(t *testing.T) {
	for _, size := range []int{0, -1} {
		if _, err := New(size); err == nil {
			t.Errorf(`expected error for size %d`, size)
		}
	}
}

func TestManager_Ingest(t *testing.T) {
	type args struct {
		capacity int
		initial  []int
		batch    []int
	}
	tests := []struct {
		name     string
		args     args
		wantPrev []int
		wantCurr []int
		wantAvg  float64
	}{
		{name: `append_to_empty`, args: args{capacity: 3, batch: []int{1, 2}}, wantPrev: []int{}, wantCurr: []int{1, 2}, wantAvg: 1.5},
		{name: `fifo_eviction`, args: args{capacity: 3, initial: []int{1, 2, 3}, batch: []int{4}}, wantPrev: []int{1, 2, 3}, wantCurr: []int{2, 3, 4}, wantAvg: 3},
		{name: `partial_room_fill_and_evict`, args: args{capacity: 3, initial: []int{1, 2}, batch: []int{3, 4, 5}}, wantPrev: []int{1, 2}, wantCurr: []int{3, 4, 5}, wantAvg: 4},
		{name: `overflow_by_large_batch`, args: args{capacity: 3, initial: []int{1, 2, 3}, batch: []int{7, 8, 9, 10}}, wantPrev: []int{1, 2, 3}, wantCurr: []int{8, 9, 10}, wantAvg: 9},
		{name: `partial_room_overflow`, args: args{capacity: 3, initial: []int{1}, batch: []int{2, 3, 4, 5, 6, 7}}, wantPrev: []int{1}, wantCurr: []int{5, 6, 7}, wantAvg: 6},
		{name: `known_numbers_dropped`, args: args{capacity: 3, initial: []int{1, 2, 3}, batch: []int{3, 4, 1}}, wantPrev: []int{1, 2, 3}, wantCurr: []int{2, 3, 4}, wantAvg: 3},
		{name: `known_numbers_keep_position`, args: args{capacity: 4, initial: []int{1, 2}, batch: []int{1, 3}}, wantPrev: []int{1, 2}, wantCurr: []int{1, 2, 3}, wantAvg: 2},
		{name: `empty_batch`, args: args{capacity: 3, initial: []int{2, 4}, batch: nil}, wantPrev: []int{2, 4}, wantCurr: []int{2, 4}, wantAvg: 3},
		{name: `rounded_average`, args: args{capacity: 5, batch: []int{1, 2, 4}}, wantPrev: []int{}, wantCurr: []int{1, 2, 4}, wantAvg: 2.33},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newManager(t, tt.args.capacity, tt.args.initial)
			got := m.Ingest(tt.args.batch)
			if !reflect.DeepEqual(got.Prev, tt.wantPrev) {
				t.Errorf("Ingest() prev = %v, want %v", got.Prev, tt.wantPrev)
			}
			if !reflect.DeepEqual(got.Curr, tt.wantCurr) {
				t.Errorf("Ingest() curr = %v, want %v", got.Curr, tt.wantCurr)
			}
			if got.Avg != tt.wantAvg {
				t.Errorf("Ingest() avg = %v, want %v", got.Avg, tt.wantAvg)
			}
			if len(got.Numbers) != len(tt.args.batch) {
				t.Errorf("Ingest() numbers = %v, want %v", got.Numbers, tt.args.batch)
			}
		})
	}
}

func TestManager_Ingest_Idempotent(t *testing.T) {
	m := newManager(t, 5, []int{1, 2, 3})
	res := m.Ingest([]int{3, 1, 2, 2})
	if !res.Unchanged() {
		t.Errorf(`expected unchanged window, prev %v curr %v`, res.Prev, res.Curr)
	}

	if !reflect.DeepEqual(res.Numbers, []int{3, 1, 2, 2}) {
		t.Errorf(`raw batch not reported, got %v`, res.Numbers)
	}
}

func TestManager_Ingest_CapacityAndUniqueness(t *testing.T) {
	m := newManager(t, 10, nil)
	batches := [][]int{
		{2, 4, 6, 8},
		{4, 10, 12, 14, 16, 18, 20},
		{1, 3, 5, 7, 9, 11, 13, 15, 17, 19, 21, 23},
		{},
		{6, 8, 10, 100},
	}

	for _, batch := range batches {
		res := m.Ingest(batch)
		if len(res.Curr) > m.Size() {
			t.Fatalf(`window exceeded capacity: %v`, res.Curr)
		}

		seen := make(map[int]bool)
		for _, n := range res.Curr {
			if seen[n] {
				t.Fatalf(`duplicate %d in window %v`, n, res.Curr)
			}
			seen[n] = true
		}
	}
}

func TestManager_Ingest_BatchDuplicates(t *testing.T) {
	t.Run(`kept_by_default`, func(t *testing.T) {
		m := newManager(t, 5, []int{1})
		res := m.Ingest([]int{7, 7, 8})
		if !reflect.DeepEqual(res.Curr, []int{1, 7, 7, 8}) {
			t.Errorf("Ingest() curr = %v, want %v", res.Curr, []int{1, 7, 7, 8})
		}
	})

	t.Run(`dropped_with_batch_dedup`, func(t *testing.T) {
		m := newManager(t, 5, []int{1}, WithBatchDedup(true))
		res := m.Ingest([]int{7, 7, 8})
		if !reflect.DeepEqual(res.Curr, []int{1, 7, 8}) {
			t.Errorf("Ingest() curr = %v, want %v", res.Curr, []int{1, 7, 8})
		}
	})
}

func TestManager_Ingest_SnapshotsAreCopies(t *testing.T) {
	m := newManager(t, 3, nil)
	batch := []int{1, 2}
	res := m.Ingest(batch)
	batch[0] = 100
	res.Curr[1] = 200

	if !reflect.DeepEqual(m.Snapshot(), []int{1, 2}) {
		t.Errorf(`window mutated through result, got %v`, m.Snapshot())
	}

	if res.Numbers[0] != 1 {
		t.Errorf(`raw batch aliased caller slice`)
	}
}

func TestManager_Average(t *testing.T) {
	m := newManager(t, 3, nil)
	if m.Average() != 0 {
		t.Errorf(`empty window average should be 0, got %v`, m.Average())
	}

	m.Ingest([]int{2, 4, 6})
	if m.Average() != 4 {
		t.Errorf(`average = %v, want 4`, m.Average())
	}
}

func TestManager_Reset(t *testing.T) {
	m := newManager(t, 3, []int{1, 2, 3}, WithLogger(log.NewNoopLogger()), WithMetricsReporter(metrics.NoopReporter()))
	m.Reset()

	if m.Len() != 0 {
		t.Errorf(`window not empty after reset: %v`, m.Snapshot())
	}

	if m.Size() != 3 {
		t.Errorf(`size changed after reset, got %d`, m.Size())
	}

	res := m.Ingest([]int{1})
	if !reflect.DeepEqual(res.Prev, []int{}) || !reflect.DeepEqual(res.Curr, []int{1}) {
		t.Errorf(`unexpected transition after reset %v -> %v`, res.Prev, res.Curr)
	}
}

func TestManager_Size(t *testing.T) {
	m := newManager(t, DefaultSize, []int{1, 2})
	if m.Size() != DefaultSize {
		t.Errorf(`Size() = %d, want %d`, m.Size(), DefaultSize)
	}

	if m.Len() != 2 {
		t.Errorf(`Len() = %d, want 2`, m.Len())
	}
}

func TestManager_Ingest_Concurrent(t *testing.T) {
	const (
		workers = 16
		calls   = 200
	)

	m := newManager(t, 5, nil)
	results := make([][]UpdateResult, workers)

	wg := new(sync.WaitGroup)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < calls; i++ {
				results[w] = append(results[w], m.Ingest([]int{w*calls + i}))
			}
		}(w)
	}
	wg.Wait()

	currs := make(map[string]int)
	for _, rs := range results {
		for _, res := range rs {
			if len(res.Curr) > m.Size() {
				t.Fatalf(`window exceeded capacity: %v`, res.Curr)
			}
			currs[fmt.Sprint(res.Curr)]++
		}
	}

	initial := 0
	for _, rs := range results {
		for _, res := range rs {
			if len(res.Prev) == 0 {
				initial++
				continue
			}

			if n := currs[fmt.Sprint(res.Prev)]; n != 1 {
				t.Fatalf(`prev %v matches %d results, want 1`, res.Prev, n)
			}
		}
	}

	if initial != 1 {
		t.Errorf(`%d results start from an empty window, want 1`, initial)
	}
}

func TestManager_State(t *testing.T) {
	m := newManager(t, 4, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			m.Ingest([]int{i, i * 3})
		}
	}()

	for {
		select {
		case <-done:
			numbers, avg := m.State()
			if !reflect.DeepEqual(numbers, m.Snapshot()) {
				t.Errorf(`State() = %v, want %v`, numbers, m.Snapshot())
			}
			if avg != m.Average() {
				t.Errorf(`State() avg = %v, want %v`, avg, m.Average())
			}
			return
		default:
			numbers, avg := m.State()
			if want := average(numbers); avg != want {
				t.Fatalf(`avg %v is not the mean of %v (%v)`, avg, numbers, want)
			}
		}
	}
}
