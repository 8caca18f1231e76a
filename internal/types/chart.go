package types

// Chart types accepted by the renderer and by the generation contract.
const (
	ChartTypeBar      = "bar"
	ChartTypeLine     = "line"
	ChartTypePie      = "pie"
	ChartTypeDoughnut = "doughnut"
	ChartTypeArea     = "area"
	ChartTypeScatter  = "scatter"
)

func ValidChartType(t string) bool {
	switch t {
	case ChartTypeBar, ChartTypeLine, ChartTypePie, ChartTypeDoughnut, ChartTypeArea, ChartTypeScatter:
		return true
	}
	return false
}

// SeriesPoint is one labeled value of a chart series. Series order is the
// category/x-axis order and must be preserved everywhere.
type SeriesPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// ChartPayload is the canonical renderer-agnostic chart representation. Both
// the renderer and the AI round-trip depend on the label/value field naming.
type ChartPayload struct {
	ChartType    string        `json:"chart_type"`
	Title        string        `json:"title"`
	Series       []SeriesPoint `json:"series"`
	ColorPalette []string      `json:"color_palette,omitempty"`
	Insights     []string      `json:"insights,omitempty"`
}
