package types

// Record is one flat row of a relation. Values are scalars (string, float64,
// bool) or nil; missing fields are present with a nil value so downstream
// aggregation sees a consistent field set.
type Record map[string]any

// Relation is normalized tabular data: an ordered sequence of records sharing
// one field set. Relations are immutable after ingestion.
type Relation []Record
