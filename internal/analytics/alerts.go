package analytics

import "github.com/jwulff/trustguard/internal/model"

// SeverityCounts counts non-dismissed alerts per severity.
type SeverityCounts struct {
	Low      int
	Medium   int
	High     int
	Critical int
	Total    int
}

// CountSeverities buckets the non-dismissed alerts by severity. Dismissed
// alerts are excluded from every bucket, including Total.
func CountSeverities(alerts []model.Alert) SeverityCounts {
	var c SeverityCounts
	for _, a := range alerts {
		if a.Dismissed {
			continue
		}
		switch a.Severity {
		case model.SeverityLow:
			c.Low++
		case model.SeverityMedium:
			c.Medium++
		case model.SeverityHigh:
			c.High++
		case model.SeverityCritical:
			c.Critical++
		}
		c.Total++
	}
	return c
}

// Undismissed returns the alerts that have not been dismissed, in order.
func Undismissed(alerts []model.Alert) []model.Alert {
	out := make([]model.Alert, 0, len(alerts))
	for _, a := range alerts {
		if !a.Dismissed {
			out = append(out, a)
		}
	}
	return out
}
