package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/epesi-labs/epesi-backend/internal/types"
)

const (
	// maxSampleRows bounds how many rows of each relation reach the prompt.
	maxSampleRows = 5
	// maxPriorTurns bounds conversational memory fed back to generation.
	maxPriorTurns = 6
)

// RelationInfo is the bounded view of one data source handed to the prompt
// builder: full field list and row count always, at most maxSampleRows
// sampled rows.
type RelationInfo struct {
	Name     string
	Fields   []string
	RowCount int
	Sample   types.Relation
}

// PromptTurn is one prior question/result pair used as conversational memory.
type PromptTurn struct {
	Question   string
	ChartTitle string
	ChartType  string
	Series     []types.SeriesPoint
}

// PromptPackage is the assembled instruction for the generation backend.
type PromptPackage struct {
	System string
	User   string
}

const chartSystemInstruction = `You are a data analyst generating chart configurations from tabular data.
Respond with ONLY a JSON array, no prose, no markdown, no code fences.
Each element must be an object with these fields:
  "question": string, a short descriptive insight question the chart answers
  "chart_type": one of "bar", "line", "pie", "doughnut", "area", "scatter"
  "chart_payload": array of {"label": string, "value": number} objects
Values must be numbers. Labels must come from the data.`

// BuildChartContext assembles the generation instruction. It is
// deterministic for identical inputs: row sampling takes the first
// maxSampleRows rows and prior turns are included most-recent-first up to
// maxPriorTurns.
func BuildChartContext(relations []RelationInfo, priorTurns []PromptTurn, existingTitles []string, userPrompt string, expectedCount int) PromptPackage {
	var b strings.Builder

	fmt.Fprintf(&b, "Generate %d chart(s) answering this request: %s\n\n", expectedCount, strings.TrimSpace(userPrompt))

	if len(relations) > 0 {
		b.WriteString("Available data sources:\n")
		for _, rel := range relations {
			fmt.Fprintf(&b, "- %q: %d rows, fields: %s\n", rel.Name, rel.RowCount, strings.Join(rel.Fields, ", "))
			sample := rel.Sample
			if len(sample) > maxSampleRows {
				sample = sample[:maxSampleRows]
			}
			if len(sample) > 0 {
				raw, err := json.Marshal(sample)
				if err == nil {
					fmt.Fprintf(&b, "  sample rows: %s\n", string(raw))
				}
			}
		}
		b.WriteString("\n")
	}

	if len(priorTurns) > 0 {
		turns := priorTurns
		if len(turns) > maxPriorTurns {
			turns = turns[:maxPriorTurns]
		}
		b.WriteString("Conversation so far (most recent first). Follow-up requests like \"make it a pie chart\" refer to the most recent chart's data:\n")
		for i, turn := range turns {
			fmt.Fprintf(&b, "%d. asked: %q", i+1, turn.Question)
			if turn.ChartTitle != "" {
				fmt.Fprintf(&b, " -> chart %q (%s)", turn.ChartTitle, turn.ChartType)
			}
			if len(turn.Series) > 0 {
				raw, err := json.Marshal(turn.Series)
				if err == nil {
					fmt.Fprintf(&b, " data: %s", string(raw))
				}
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if len(existingTitles) > 0 {
		b.WriteString("These insight questions already exist on the dashboard; do not duplicate them:\n")
		for _, title := range existingTitles {
			fmt.Fprintf(&b, "- %s\n", title)
		}
		b.WriteString("\n")
	}

	return PromptPackage{
		System: chartSystemInstruction,
		User:   strings.TrimSpace(b.String()),
	}
}

// RelationInfoFromDataSource builds the bounded prompt view of a stored data
// source.
func RelationInfoFromDataSource(source *types.DataSource) (RelationInfo, error) {
	info := RelationInfo{
		Name:     source.Name,
		RowCount: source.RowCount,
	}
	if len(source.Fields) > 0 {
		if err := json.Unmarshal(source.Fields, &info.Fields); err != nil {
			return info, fmt.Errorf("decode data source fields: %w", err)
		}
	}
	if len(source.Rows) > 0 {
		var relation types.Relation
		if err := json.Unmarshal(source.Rows, &relation); err != nil {
			return info, fmt.Errorf("decode data source rows: %w", err)
		}
		if len(relation) > maxSampleRows {
			relation = relation[:maxSampleRows]
		}
		info.Sample = relation
	}
	return info, nil
}
