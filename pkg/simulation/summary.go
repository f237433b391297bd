package simulation

// Summary condenses a run into counters for reports and API clients.
type Summary struct {
	Ticks          int            `json:"ticks"`
	JobFirings     int            `json:"jobFirings"`
	IncidentStarts int            `json:"incidentStarts"`
	Alerts         map[string]int `json:"alerts"`
	// FirstFailureTick is the first tick with a breach-severity alert, 0 if none.
	FirstFailureTick int `json:"firstFailureTick"`
	// PeakUtilization is the highest utilization seen per node.
	PeakUtilization map[string]float64 `json:"peakUtilization"`
}

// Summarize folds frames, in tick order, into a Summary.
func Summarize(frames []Frame) Summary {
	s := Summary{
		Alerts:          make(map[string]int),
		PeakUtilization: make(map[string]float64),
	}

	for _, f := range frames {
		s.Ticks++
		s.JobFirings += len(f.FiredJobs)

		for _, inc := range f.Incidents {
			if inc.Phase.InFlight() && inc.TriggeredAt == f.Tick {
				s.IncidentStarts++
			}
		}
		for _, a := range f.Alerts {
			s.Alerts[a.Kind.String()]++
			if a.Severity == SeverityBreach && s.FirstFailureTick == 0 {
				s.FirstFailureTick = f.Tick
			}
		}
		for _, n := range f.Nodes {
			if n.Utilization > s.PeakUtilization[n.ID] {
				s.PeakUtilization[n.ID] = n.Utilization
			}
		}
	}
	return s
}
