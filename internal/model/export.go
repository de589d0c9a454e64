package model

import "time"

// AttemptExport is the top-level JSON structure for attempt export.
type AttemptExport struct {
	ExportedAt time.Time      `json:"exported_at"`
	Service    ServiceInfo    `json:"service"`
	Summary    []SubjectStats `json:"summary"`
	Attempts   []Attempt      `json:"attempts"`
}

// SubjectStats aggregates attempts of one exam type.
type SubjectStats struct {
	ExamTypeID string  `json:"exam_type_id"`
	Attempts   int     `json:"attempts"`
	BestNet    float64 `json:"best_net"`
	AverageNet float64 `json:"average_net"`
}

// Summarize groups attempts by exam type in first-seen order.
func Summarize(attempts []Attempt) []SubjectStats {
	var order []string
	byType := make(map[string]*SubjectStats)
	totals := make(map[string]float64)
	for _, a := range attempts {
		st, ok := byType[a.ExamTypeID]
		if !ok {
			st = &SubjectStats{ExamTypeID: a.ExamTypeID, BestNet: a.Net}
			byType[a.ExamTypeID] = st
			order = append(order, a.ExamTypeID)
		}
		st.Attempts++
		if a.Net > st.BestNet {
			st.BestNet = a.Net
		}
		totals[a.ExamTypeID] += a.Net
	}

	out := make([]SubjectStats, 0, len(order))
	for _, id := range order {
		st := byType[id]
		st.AverageNet = totals[id] / float64(st.Attempts)
		out = append(out, *st)
	}
	return out
}
