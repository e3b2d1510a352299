package executor

import "time"

// Stats is a snapshot of cumulative execution statistics. Average, total
// time and success rate are derived from the counters and samples.
type Stats struct {
	Total       int           `json:"total_actions"`
	Succeeded   int           `json:"successful_actions"`
	Failed      int           `json:"failed_actions"`
	Samples     int           `json:"samples"`
	TotalTime   time.Duration `json:"total_time"`
	AverageTime time.Duration `json:"average_time"`
	SuccessRate float64       `json:"success_rate"`
}

type stats struct {
	total     int
	succeeded int
	failed    int
	durations []time.Duration
	limit     int
}

func (s *stats) record(success bool, d time.Duration) {
	s.total++
	if success {
		s.succeeded++
	} else {
		s.failed++
	}
	s.durations = append(s.durations, d)
	if s.limit > 0 && len(s.durations) > s.limit {
		s.durations = append(s.durations[:0], s.durations[len(s.durations)-s.limit:]...)
	}
}

func (s *stats) reset() {
	*s = stats{limit: s.limit}
}

func (s *stats) snapshot() Stats {
	out := Stats{
		Total:     s.total,
		Succeeded: s.succeeded,
		Failed:    s.failed,
		Samples:   len(s.durations),
	}
	for _, d := range s.durations {
		out.TotalTime += d
	}
	if n := len(s.durations); n > 0 {
		out.AverageTime = out.TotalTime / time.Duration(n)
	}
	if s.total > 0 {
		out.SuccessRate = float64(s.succeeded) / float64(s.total)
	}
	return out
}
