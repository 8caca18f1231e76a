package services

import (
	"fmt"
	"strings"
	"testing"

	"github.com/epesi-labs/epesi-backend/internal/types"
)

func TestBuildChartContext_CapsSampleRows(t *testing.T) {
	sample := make(types.Relation, 10)
	for i := range sample {
		sample[i] = types.Record{"row": fmt.Sprintf("r%d", i)}
	}
	pkg := BuildChartContext([]RelationInfo{{
		Name:     "sales",
		Fields:   []string{"row"},
		RowCount: 10,
		Sample:   sample,
	}}, nil, nil, "show sales", 1)

	if strings.Contains(pkg.User, "r5") {
		t.Fatalf("rows beyond the sample cap must not reach the prompt:\n%s", pkg.User)
	}
	if !strings.Contains(pkg.User, "r4") {
		t.Fatalf("rows within the cap must be included:\n%s", pkg.User)
	}
	if !strings.Contains(pkg.User, "10 rows") {
		t.Fatalf("full row count must still be reported:\n%s", pkg.User)
	}
}

func TestBuildChartContext_CapsPriorTurns(t *testing.T) {
	turns := make([]PromptTurn, 10)
	for i := range turns {
		turns[i] = PromptTurn{Question: fmt.Sprintf("question-%d", i)}
	}
	pkg := BuildChartContext(nil, turns, nil, "follow up", 1)

	if !strings.Contains(pkg.User, "question-5") {
		t.Fatalf("turn 6 must be included:\n%s", pkg.User)
	}
	if strings.Contains(pkg.User, "question-6") {
		t.Fatalf("turns beyond the cap must be dropped:\n%s", pkg.User)
	}
}

func TestBuildChartContext_Deterministic(t *testing.T) {
	relations := []RelationInfo{{
		Name:     "orders",
		Fields:   []string{"id", "total"},
		RowCount: 2,
		Sample:   types.Relation{{"id": "1", "total": "9.99"}},
	}}
	turns := []PromptTurn{{Question: "prior", ChartTitle: "Prior chart", ChartType: "bar"}}
	first := BuildChartContext(relations, turns, []string{"Existing"}, "prompt", 2)
	second := BuildChartContext(relations, turns, []string{"Existing"}, "prompt", 2)
	if first != second {
		t.Fatalf("identical inputs must produce identical packages")
	}
}

func TestBuildChartContext_IncludesExistingTitlesAndCount(t *testing.T) {
	pkg := BuildChartContext(nil, nil, []string{"Revenue by region"}, "more charts", 3)
	if !strings.Contains(pkg.User, "Generate 3 chart(s)") {
		t.Fatalf("expected chart count in prompt:\n%s", pkg.User)
	}
	if !strings.Contains(pkg.User, "Revenue by region") {
		t.Fatalf("existing titles must be listed for dedup:\n%s", pkg.User)
	}
	if !strings.Contains(pkg.System, "JSON array") {
		t.Fatalf("system instruction must state the JSON-only contract")
	}
}

func TestRelationInfoFromDataSource_BoundsSample(t *testing.T) {
	rows := `[{"n":"1"},{"n":"2"},{"n":"3"},{"n":"4"},{"n":"5"},{"n":"6"},{"n":"7"}]`
	source := &types.DataSource{
		Name:     "big",
		Fields:   []byte(`["n"]`),
		Rows:     []byte(rows),
		RowCount: 7,
	}
	info, err := RelationInfoFromDataSource(source)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(info.Sample) != maxSampleRows {
		t.Fatalf("expected sample capped at %d, got %d", maxSampleRows, len(info.Sample))
	}
	if info.RowCount != 7 {
		t.Fatalf("row count must stay the full count, got %d", info.RowCount)
	}
}
