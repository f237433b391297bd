package simulation

import "testing"

func TestSummarize_StorageRun(t *testing.T) {
	jobs := `[{"id": "spike", "intervalTicks": 4, "target": "api",
	  "effect": {"mode": "inject", "metric": "requests", "amount": 5}}]`
	e := newEngine(t, shop{rate: 10, fill: 10, jobs: jobs}.level(t), never())

	var frames []Frame
	for i := 0; i < 10; i++ {
		frames = append(frames, e.Tick())
	}
	s := Summarize(frames)

	if s.Ticks != 10 {
		t.Errorf("Ticks = %d, want 10", s.Ticks)
	}
	if s.JobFirings != 2 {
		t.Errorf("JobFirings = %d, want 2 (ticks 4 and 8)", s.JobFirings)
	}
	if s.Alerts["near_full"] != 1 || s.Alerts["full"] != 1 {
		t.Errorf("Alerts = %v, want one near_full and one full", s.Alerts)
	}
	if s.FirstFailureTick != 10 {
		t.Errorf("FirstFailureTick = %d, want 10", s.FirstFailureTick)
	}
	if !approx(s.PeakUtilization["disk"], 1) {
		t.Errorf("disk peak = %v, want 1", s.PeakUtilization["disk"])
	}
	if !approx(s.PeakUtilization["api"], 0.15) {
		t.Errorf("api peak = %v, want 0.15", s.PeakUtilization["api"])
	}
}

func TestSummarize_CountsIncidentStartsOnce(t *testing.T) {
	incidents := `[{"id": "surge", "type": "traffic", "triggerProbabilityPerTick": 0.5,
	  "warningDelayTicks": 2, "durationTicks": 3,
	  "impact": {"mode": "amplify", "metric": "requests", "factor": 2, "targets": ["api"]}}]`
	e := newEngine(t, shop{rate: 10, incidents: incidents}.level(t), triggerOn(1))

	var frames []Frame
	for i := 0; i < 8; i++ {
		frames = append(frames, e.Tick())
	}
	if got := Summarize(frames).IncidentStarts; got != 1 {
		t.Errorf("IncidentStarts = %d, want 1", got)
	}
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)
	if s.Ticks != 0 || s.FirstFailureTick != 0 || len(s.Alerts) != 0 {
		t.Errorf("empty summary = %+v", s)
	}
}
