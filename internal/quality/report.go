package quality

import "encoding/json"

// Report is the aggregated quality verdict for one evaluation run. Numeric
// fields that could not be computed are nil and serialize as JSON null,
// distinguishable from a genuine zero.
type Report struct {
	NaNCounts         map[string]int `json:"nan_counts"`
	MissingTopics     []string       `json:"missing_topics"`
	FrameDropRatio    *float64       `json:"frame_drop_ratio"`
	JitterMs          JitterStats    `json:"jitter_ms"`
	LackOfJitter      bool           `json:"lack_of_jitter"`
	Jerk              JerkReport     `json:"jerk"`
	EpisodesEvaluated int            `json:"episodes_evaluated"`
	FPS               float64        `json:"fps"`
}

// JitterStats summarize the pooled inter-frame deltas of all episodes.
type JitterStats struct {
	Median *float64 `json:"median"`
	Std    *float64 `json:"std"`
}

// JerkReport carries the cross-episode jerk aggregates and the label of the
// first vector signal the selector settled on (diagnostic only).
type JerkReport struct {
	Mean   *float64 `json:"mean"`
	Max    *float64 `json:"max"`
	P95    *float64 `json:"p95"`
	Signal *string  `json:"signal"`
}

// Summary is the condensed triage view of a report.
type Summary struct {
	MissingTopicCount int      `json:"missing_topic_count"`
	FrameDropRatio    *float64 `json:"frame_drop_ratio"`
	HasNaNs           bool     `json:"has_nans"`
	LackOfJitter      bool     `json:"lack_of_jitter"`
	JerkMean          *float64 `json:"jerk_mean"`
}

// Summary condenses the report for listing and triage queries.
func (r *Report) Summary() Summary {
	hasNaNs := false
	for _, c := range r.NaNCounts {
		if c > 0 {
			hasNaNs = true
			break
		}
	}
	return Summary{
		MissingTopicCount: len(r.MissingTopics),
		FrameDropRatio:    r.FrameDropRatio,
		HasNaNs:           hasNaNs,
		LackOfJitter:      r.LackOfJitter,
		JerkMean:          r.Jerk.Mean,
	}
}

// ToJSON serializes the report for storage.
func (r *Report) ToJSON() (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ParseReport deserializes a stored report.
func ParseReport(jsonStr string) (*Report, error) {
	var r Report
	if err := json.Unmarshal([]byte(jsonStr), &r); err != nil {
		return nil, err
	}
	return &r, nil
}
