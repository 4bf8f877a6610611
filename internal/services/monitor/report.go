package monitor

import "time"

type Pattern struct {
	Type        string `json:"type"`
	Count       int    `json:"count"`
	Description string `json:"description"`
}

type Report struct {
	TotalEvents        int               `json:"totalEvents"`
	EventsByType       map[EventType]int `json:"eventsByType"`
	EventsBySeverity   map[Severity]int  `json:"eventsBySeverity"`
	SuspiciousPatterns []Pattern         `json:"suspiciousPatterns"`
	Recommendations    []string          `json:"recommendations"`
}

const rapidFailureCount = 10

// Report summarises the events of the last 24 hours.
func (m *Monitor) Report() Report {
	m.mu.Lock()
	since := m.now().Add(-24 * time.Hour)
	var recent []Event
	m.each(func(e Event) {
		if e.Timestamp.After(since) {
			recent = append(recent, e)
		}
	})
	m.mu.Unlock()

	r := Report{
		TotalEvents:      len(recent),
		EventsByType:     make(map[EventType]int),
		EventsBySeverity: make(map[Severity]int),
	}
	critical := false
	for _, e := range recent {
		r.EventsByType[e.Type]++
		r.EventsBySeverity[e.Severity]++
		if e.Severity == SeverityCritical {
			critical = true
		}
	}

	if n := r.EventsByType[EventFailedTransaction]; n > rapidFailureCount {
		r.SuspiciousPatterns = append(r.SuspiciousPatterns, Pattern{
			Type: "RAPID_FAILURES", Count: n, Description: "High number of transaction failures",
		})
	}
	if n := r.EventsByType[EventUnauthorizedAccess]; n > 0 {
		r.SuspiciousPatterns = append(r.SuspiciousPatterns, Pattern{
			Type: "UNAUTHORIZED_ATTEMPTS", Count: n, Description: "Unauthorized access attempts detected",
		})
	}

	if r.EventsByType[EventFailedTransaction] > 0 {
		r.Recommendations = append(r.Recommendations, "Review transaction parameters and wallet balance")
	}
	if r.EventsByType[EventAPIAbuse] > 0 {
		r.Recommendations = append(r.Recommendations, "Implement stricter rate limiting")
	}
	if critical {
		r.Recommendations = append(r.Recommendations, "Immediate security review required")
	}
	return r
}
