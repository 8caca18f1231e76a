package services

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/epesi-labs/epesi-backend/internal/types"
)

// NormalizeTabular turns raw uploaded/generated data into a canonical
// relation plus the inferred field list. Accepted inputs: CSV text (first row
// is the header), a JSON array of objects, or a single JSON object (wrapped
// in a one-element relation). Anything else fails with
// UnsupportedFormatError.
//
// Numeric-looking string fields are NOT coerced here; coercion happens at
// chart-series construction so original field semantics (zip codes, IDs)
// survive ingestion.
func NormalizeTabular(raw any) (types.Relation, []string, error) {
	switch v := raw.(type) {
	case string:
		return normalizeText(v)
	case []any:
		return normalizeRecords(v)
	case map[string]any:
		return normalizeRecords([]any{v})
	case types.Relation:
		rows := make([]any, len(v))
		for i, rec := range v {
			rows[i] = map[string]any(rec)
		}
		return normalizeRecords(rows)
	default:
		return nil, nil, &UnsupportedFormatError{Reason: fmt.Sprintf("unexpected input type %T", raw)}
	}
}

func normalizeText(text string) (types.Relation, []string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, nil, &UnsupportedFormatError{Reason: "empty input"}
	}

	// JSON bodies arrive as text too when uploaded as files.
	if strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, "{") {
		var decoded any
		if err := json.Unmarshal([]byte(trimmed), &decoded); err != nil {
			return nil, nil, &UnsupportedFormatError{Reason: fmt.Sprintf("invalid JSON: %v", err)}
		}
		return NormalizeTabular(decoded)
	}

	reader := csv.NewReader(strings.NewReader(trimmed))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, nil, &UnsupportedFormatError{Reason: fmt.Sprintf("invalid CSV: %v", err)}
	}
	if len(rows) < 1 {
		return nil, nil, &UnsupportedFormatError{Reason: "CSV has no header row"}
	}

	header := make([]string, 0, len(rows[0]))
	for _, field := range rows[0] {
		header = append(header, strings.TrimSpace(field))
	}

	relation := make(types.Relation, 0, len(rows)-1)
	for _, row := range rows[1:] {
		record := make(types.Record, len(header))
		for i, field := range header {
			if i < len(row) {
				record[field] = row[i]
			} else {
				record[field] = nil
			}
		}
		relation = append(relation, record)
	}
	return relation, header, nil
}

func normalizeRecords(rows []any) (types.Relation, []string, error) {
	// Collect the union of fields so every record ends up with the same
	// field set.
	var fields []string
	seen := map[string]bool{}
	records := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		obj, ok := row.(map[string]any)
		if !ok {
			return nil, nil, &UnsupportedFormatError{Reason: "array elements must be objects"}
		}
		records = append(records, obj)
		for field := range obj {
			if !seen[field] {
				seen[field] = true
				fields = append(fields, field)
			}
		}
	}
	// Decoded JSON objects are maps, so source field order is already
	// gone and iteration order is randomized; sorting is the only
	// deterministic ordering available here. CSV keeps header order
	// because there the source order is known.
	sort.Strings(fields)

	relation := make(types.Relation, 0, len(records))
	for _, obj := range records {
		record := make(types.Record, len(fields))
		for _, field := range fields {
			if value, ok := obj[field]; ok {
				record[field] = value
			} else {
				// Missing fields are present with nil, not omitted.
				record[field] = nil
			}
		}
		relation = append(relation, record)
	}
	return relation, fields, nil
}
