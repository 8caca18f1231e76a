package services

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/epesi-labs/epesi-backend/internal/types"
)

var defaultPalette = []string{"#6366f1", "#22c55e", "#f59e0b", "#ef4444", "#06b6d4", "#a855f7"}

// Reconcile normalizes a heterogeneous chart payload into the canonical
// ChartPayload. Shape detection probes in priority order:
//
//  1. canonical series: []{label|name, value} (bare or under "series")
//  2. labeled-series: {labels: [...], datasets: [{data: [...]}]}
//  3. category/series: {xAxis: {categories: [...]}, series: [{data: [...]}]}
//  4. flat number array: synthesized "Item 1".."Item N" labels
//
// An unrecognized shape yields an empty series; an empty chart is a valid,
// displayable terminal state, never an error. When targetType is non-empty
// the series is reused verbatim and only the chart type changes, so a
// bar→pie switch can never lose data. Non-numeric values coerce to 0 here —
// entries are never dropped, so series length (and therefore totals) stays
// stable.
func Reconcile(raw any, targetType string) types.ChartPayload {
	payload := types.ChartPayload{
		ChartType:    types.ChartTypeBar,
		ColorPalette: defaultPalette,
	}

	switch v := raw.(type) {
	case nil:
		// empty chart
	case []any:
		payload.Series = seriesFromArray(v)
	case map[string]any:
		payload.Title = stringField(v, "title", "question")
		if t := stringField(v, "chart_type", "chartType", "type"); types.ValidChartType(t) {
			payload.ChartType = t
		}
		if colors := stringSlice(v["color_palette"]); len(colors) > 0 {
			payload.ColorPalette = colors
		} else if colors := stringSlice(v["colors"]); len(colors) > 0 {
			payload.ColorPalette = colors
		}
		if insights := stringSlice(v["insights"]); len(insights) > 0 {
			payload.Insights = insights
		}
		payload.Series = seriesFromObject(v)
	case types.ChartPayload:
		payload = v
	case *types.ChartPayload:
		if v != nil {
			payload = *v
		}
	}

	if payload.Series == nil {
		payload.Series = []types.SeriesPoint{}
	}
	if len(payload.ColorPalette) == 0 {
		payload.ColorPalette = defaultPalette
	}
	if targetType != "" && types.ValidChartType(targetType) {
		// Type switch: same series, only the chart type changes.
		payload.ChartType = targetType
	}
	return payload
}

func seriesFromObject(obj map[string]any) []types.SeriesPoint {
	// (a) canonical series array under "series" or "data".
	for _, key := range []string{"series", "data", "chart_payload"} {
		value, ok := obj[key]
		if !ok {
			continue
		}
		if nested, ok := value.(map[string]any); ok {
			// chart_payload may itself be a wrapped shape.
			if points := seriesFromObject(nested); len(points) > 0 {
				return points
			}
			continue
		}
		arr, ok := value.([]any)
		if !ok {
			continue
		}
		if points := seriesFromArray(arr); len(points) > 0 {
			return points
		}
	}

	// (b) labeled-series: {labels, datasets: [{data}]}.
	if labels := stringSlice(obj["labels"]); len(labels) > 0 {
		if datasets, ok := obj["datasets"].([]any); ok && len(datasets) > 0 {
			if first, ok := datasets[0].(map[string]any); ok {
				if data, ok := first["data"].([]any); ok {
					return zipSeries(labels, data)
				}
			}
		}
	}

	// (c) category/series: {xAxis: {categories}, series: [{data}]}.
	if xAxis, ok := obj["xAxis"].(map[string]any); ok {
		if categories := stringSlice(xAxis["categories"]); len(categories) > 0 {
			if seriesArr, ok := obj["series"].([]any); ok && len(seriesArr) > 0 {
				if first, ok := seriesArr[0].(map[string]any); ok {
					if data, ok := first["data"].([]any); ok {
						return zipSeries(categories, data)
					}
				}
			}
		}
	}

	return nil
}

func seriesFromArray(arr []any) []types.SeriesPoint {
	if len(arr) == 0 {
		return nil
	}

	// Array of {label|name, value} objects. Elements carrying neither a
	// label-ish nor a value-ish key are not canonical points; if none
	// qualify the array is some other shape (e.g. [{data: [...]}]) and
	// detection must fall through to the wrapped-shape probes.
	if _, ok := arr[0].(map[string]any); ok {
		points := make([]types.SeriesPoint, 0, len(arr))
		for _, item := range arr {
			obj, ok := item.(map[string]any)
			if !ok {
				continue
			}
			label := stringField(obj, "label", "name", "category", "x")
			value, hasValue := firstPresentOK(obj, "value", "y", "count")
			if label == "" && !hasValue {
				continue
			}
			points = append(points, types.SeriesPoint{
				Label: label,
				Value: coerceNumber(value),
			})
		}
		if len(points) == 0 {
			return nil
		}
		return points
	}

	// (d) flat array of numbers.
	points := make([]types.SeriesPoint, 0, len(arr))
	for i, item := range arr {
		points = append(points, types.SeriesPoint{
			Label: fmt.Sprintf("Item %d", i+1),
			Value: coerceNumber(item),
		})
	}
	return points
}

func zipSeries(labels []string, data []any) []types.SeriesPoint {
	points := make([]types.SeriesPoint, 0, len(labels))
	for i, label := range labels {
		var value any
		if i < len(data) {
			value = data[i]
		}
		points = append(points, types.SeriesPoint{Label: label, Value: coerceNumber(value)})
	}
	return points
}

// coerceNumber converts a value to float64, coercing anything non-numeric
// (nil, "N/A", objects) to 0 rather than dropping the entry.
func coerceNumber(value any) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return parsed
		}
		return 0
	case bool:
		if v {
			return 1
		}
		return 0
	default:
		return 0
	}
}

func stringField(obj map[string]any, keys ...string) string {
	for _, key := range keys {
		if value, ok := obj[key].(string); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func stringSlice(value any) []string {
	arr, ok := value.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
