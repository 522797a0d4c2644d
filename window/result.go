package window

import (
	"github.com/montanaflynn/stats"
)

// UpdateResult reports a single Ingest transition.
type UpdateResult struct {
	Prev    []int   `json:"windowPrevState"`
	Curr    []int   `json:"windowCurrState"`
	Numbers []int   `json:"numbers"`
	Avg     float64 `json:"avg"`
}

// Unchanged reports whether the ingest left the window as it was.
func (r UpdateResult) Unchanged() bool {
	if len(r.Prev) != len(r.Curr) {
		return false
	}

	for i := range r.Prev {
		if r.Prev[i] != r.Curr[i] {
			return false
		}
	}

	return true
}

// average returns the mean rounded to two decimals, zero for an empty window.
func average(numbers []int) float64 {
	if len(numbers) == 0 {
		return 0
	}

	mean, err := stats.Mean(stats.LoadRawData(numbers))
	if err != nil {
		return 0
	}

	rounded, err := stats.Round(mean, 2)
	if err != nil {
		return mean
	}

	return rounded
}
