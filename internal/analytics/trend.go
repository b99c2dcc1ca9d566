// Package analytics derives display metrics from store state. Every function
// is pure and recomputed on read; nothing here is cached or stored.
package analytics

import "github.com/jwulff/trustguard/internal/model"

// Direction of the trust score trend.
type Direction string

const (
	Improving Direction = "improving"
	Declining Direction = "declining"
	Stable    Direction = "stable"
)

const (
	minTrendSamples = 5
	trendWindow     = 10
	trendDeadband   = 5.0
)

// TrendResult is the trend direction and the raw difference of means.
type TrendResult struct {
	Direction Direction
	Change    float64
}

// Trend compares the mean overall score of the latest ten samples with the
// ten before them. history is oldest first. Fewer than five samples, or no
// older window, is stable with zero change.
func Trend(history []model.TrustScoreSnapshot) TrendResult {
	if len(history) < minTrendSamples {
		return TrendResult{Direction: Stable}
	}

	recentStart := max(0, len(history)-trendWindow)
	olderStart := max(0, recentStart-trendWindow)
	recent := history[recentStart:]
	older := history[olderStart:recentStart]
	if len(older) == 0 {
		return TrendResult{Direction: Stable}
	}

	diff := meanOverall(recent) - meanOverall(older)
	switch {
	case diff > trendDeadband:
		return TrendResult{Direction: Improving, Change: diff}
	case diff < -trendDeadband:
		return TrendResult{Direction: Declining, Change: diff}
	default:
		return TrendResult{Direction: Stable, Change: diff}
	}
}

func meanOverall(scores []model.TrustScoreSnapshot) float64 {
	var sum float64
	for _, s := range scores {
		sum += s.Overall
	}
	return sum / float64(len(scores))
}

// Summary is the average, minimum and maximum overall score of a history.
type Summary struct {
	Samples int
	Average float64
	Min     float64
	Max     float64
}

// ScoreSummary summarises the overall scores in history. An empty history
// yields the zero Summary.
func ScoreSummary(history []model.TrustScoreSnapshot) Summary {
	if len(history) == 0 {
		return Summary{}
	}
	s := Summary{
		Samples: len(history),
		Min:     history[0].Overall,
		Max:     history[0].Overall,
	}
	for _, h := range history[1:] {
		s.Min = min(s.Min, h.Overall)
		s.Max = max(s.Max, h.Overall)
	}
	s.Average = meanOverall(history)
	return s
}

// LevelForScore rates score against the thresholds. It is used only when the
// producer did not supply a level.
func LevelForScore(score float64, t model.TrustThresholds) model.TrustLevel {
	switch {
	case score >= float64(t.Safe):
		return model.LevelSafe
	case score >= float64(t.Caution):
		return model.LevelCaution
	default:
		return model.LevelDanger
	}
}
