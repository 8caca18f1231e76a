package services

import (
	"errors"
	"reflect"
	"testing"
)

func TestNormalizeTabular_CSVText(t *testing.T) {
	csv := "month,revenue\nJan,100\nFeb,200\n"
	relation, fields, err := NormalizeTabular(csv)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(fields, []string{"month", "revenue"}) {
		t.Fatalf("unexpected fields: %v", fields)
	}
	if len(relation) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(relation))
	}
	// Numeric-looking CSV cells stay strings at ingestion.
	if relation[0]["revenue"] != "100" {
		t.Fatalf("expected string %q, got %v (%T)", "100", relation[0]["revenue"], relation[0]["revenue"])
	}
}

func TestNormalizeTabular_CSVShortRowPadsWithNil(t *testing.T) {
	csv := "a,b,c\n1,2\n"
	relation, _, err := NormalizeTabular(csv)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if value, ok := relation[0]["c"]; !ok || value != nil {
		t.Fatalf("missing cell must be present with nil, got %v ok=%v", value, ok)
	}
}

func TestNormalizeTabular_JSONArrayText(t *testing.T) {
	text := `[{"city":"Oslo","pop":700000},{"city":"Bergen"}]`
	relation, fields, err := NormalizeTabular(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(fields, []string{"city", "pop"}) {
		t.Fatalf("unexpected fields: %v", fields)
	}
	if relation[1]["pop"] != nil {
		t.Fatalf("missing field must be nil, got %v", relation[1]["pop"])
	}
}

func TestNormalizeTabular_SingleObjectWraps(t *testing.T) {
	relation, fields, err := NormalizeTabular(map[string]any{"k": "v"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(relation) != 1 || len(fields) != 1 || fields[0] != "k" {
		t.Fatalf("unexpected result: %v %v", relation, fields)
	}
}

func TestNormalizeTabular_FieldUnionIsSorted(t *testing.T) {
	rows := []any{
		map[string]any{"zebra": 1.0},
		map[string]any{"alpha": 2.0},
	}
	_, fields, err := NormalizeTabular(rows)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(fields, []string{"alpha", "zebra"}) {
		t.Fatalf("fields must be sorted for determinism, got %v", fields)
	}
}

func TestNormalizeTabular_RejectsUnsupportedInput(t *testing.T) {
	cases := []struct {
		name string
		in   any
	}{
		{"int", 42},
		{"empty string", "   "},
		{"array of scalars", []any{1.0, 2.0}},
		{"broken json", "[{broken"},
	}
	for _, tc := range cases {
		_, _, err := NormalizeTabular(tc.in)
		var unsupported *UnsupportedFormatError
		if !errors.As(err, &unsupported) {
			t.Errorf("%s: expected UnsupportedFormatError, got %v", tc.name, err)
		}
	}
}
