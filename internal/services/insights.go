package services

import (
	"fmt"
	"strings"

	"github.com/epesi-labs/epesi-backend/internal/types"
)

// SynthesizeInsights derives 1-3 natural-language bullets from a finalized
// series. It is deterministic and rule-based rather than a second backend
// call, so it can never fail or block block creation: an empty series simply
// yields no insights.
func SynthesizeInsights(series []types.SeriesPoint, question string) []string {
	if len(series) == 0 {
		return []string{}
	}

	insights := make([]string, 0, 3)

	maxIdx, minIdx := 0, 0
	var total float64
	for i, point := range series {
		total += point.Value
		if point.Value > series[maxIdx].Value {
			maxIdx = i
		}
		if point.Value < series[minIdx].Value {
			minIdx = i
		}
	}

	subject := strings.TrimSpace(question)
	if subject == "" {
		subject = "this chart"
	}

	insights = append(insights, fmt.Sprintf("%s has the highest value (%s) for %q.",
		series[maxIdx].Label, formatValue(series[maxIdx].Value), subject))

	if len(series) > 1 && minIdx != maxIdx {
		insights = append(insights, fmt.Sprintf("%s is the lowest at %s.",
			series[minIdx].Label, formatValue(series[minIdx].Value)))
	}

	// A last-over-previous delta reads like a trend statement when the
	// series is ordered (months, quarters, years).
	if len(series) >= 2 {
		last := series[len(series)-1]
		prev := series[len(series)-2]
		if prev.Value != 0 {
			change := (last.Value - prev.Value) / prev.Value * 100
			direction := "up"
			if change < 0 {
				direction = "down"
				change = -change
			}
			if change >= 1 {
				insights = append(insights, fmt.Sprintf("%s is %s %.0f%% compared to %s.",
					last.Label, direction, change, prev.Label))
			}
		}
	}

	if len(insights) > 3 {
		insights = insights[:3]
	}
	return insights
}

func formatValue(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}
