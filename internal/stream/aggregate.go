package stream

import (
	"fmt"
	"iter"
)

// AgeSummary holds the running accumulators of a streaming average.
type AgeSummary struct {
	Count int64
	Sum   int64
}

// Average returns Sum/Count, or false when no ages were seen.
func (a AgeSummary) Average() (float64, bool) {
	if a.Count == 0 {
		return 0, false
	}
	return float64(a.Sum) / float64(a.Count), true
}

// Report renders the summary as a single human-readable line.
func (a AgeSummary) Report() string {
	avg, ok := a.Average()
	if !ok {
		return "No users found to calculate an average age."
	}
	return fmt.Sprintf("Average age of users: %.2f", avg)
}

// AverageAge consumes ages one at a time, keeping only a running sum and
// count. On error it returns the accumulators gathered so far.
func AverageAge(ages iter.Seq2[int, error]) (AgeSummary, error) {
	var summary AgeSummary
	for age, err := range ages {
		if err != nil {
			return summary, err
		}
		summary.Sum += int64(age)
		summary.Count++
	}
	return summary, nil
}
