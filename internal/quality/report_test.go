package quality

import (
	"encoding/json"
	"strings"
	"testing"
)

func fptr(v float64) *float64 { return &v }

func TestReportJSONShape(t *testing.T) {
	t.Run("undefined fields serialize as null", func(t *testing.T) {
		r := &Report{
			NaNCounts:     map[string]int{},
			MissingTopics: []string{},
			FPS:           30,
		}
		s, err := r.ToJSON()
		if err != nil {
			t.Fatalf("ToJSON failed: %v", err)
		}
		for _, want := range []string{
			`"frame_drop_ratio":null`,
			`"median":null`,
			`"std":null`,
			`"mean":null`,
			`"signal":null`,
		} {
			if !strings.Contains(s, want) {
				t.Errorf("expected %s in %s", want, s)
			}
		}
	})

	t.Run("round trip preserves values", func(t *testing.T) {
		sig := "qpos (list)"
		r := &Report{
			NaNCounts:         map[string]int{"speed": 2},
			MissingTopics:     []string{"observation.state"},
			FrameDropRatio:    fptr(0.25),
			JitterMs:          JitterStats{Median: fptr(33.0), Std: fptr(1.5)},
			Jerk:              JerkReport{Mean: fptr(6), Max: fptr(12), P95: fptr(9), Signal: &sig},
			EpisodesEvaluated: 4,
			FPS:               30,
		}
		s, err := r.ToJSON()
		if err != nil {
			t.Fatalf("ToJSON failed: %v", err)
		}
		parsed, err := ParseReport(s)
		if err != nil {
			t.Fatalf("ParseReport failed: %v", err)
		}
		if *parsed.FrameDropRatio != 0.25 || *parsed.Jerk.Signal != sig || parsed.EpisodesEvaluated != 4 {
			t.Errorf("round trip mismatch: %+v", parsed)
		}
	})
}

func TestSummary(t *testing.T) {
	r := &Report{
		NaNCounts:      map[string]int{"a": 0, "b": 3},
		MissingTopics:  []string{"observation.state"},
		FrameDropRatio: fptr(0.1),
		LackOfJitter:   true,
		Jerk:           JerkReport{Mean: fptr(7)},
	}
	s := r.Summary()
	if s.MissingTopicCount != 1 {
		t.Errorf("expected missing_topic_count=1, got %d", s.MissingTopicCount)
	}
	if !s.HasNaNs {
		t.Error("expected has_nans=true")
	}
	if !s.LackOfJitter {
		t.Error("expected lack_of_jitter=true")
	}
	if *s.JerkMean != 7 {
		t.Errorf("expected jerk_mean=7, got %v", *s.JerkMean)
	}

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal summary: %v", err)
	}
	for _, want := range []string{"missing_topic_count", "frame_drop_ratio", "has_nans", "lack_of_jitter", "jerk_mean"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("expected %s in summary JSON %s", want, data)
		}
	}

	empty := (&Report{NaNCounts: map[string]int{"a": 0}}).Summary()
	if empty.HasNaNs {
		t.Error("expected has_nans=false for zero counts")
	}
}
