package observation

import (
	"geoanomaly/domain/core"
)

// Category is the fixed enumeration of phenomenon categories the platform
// ingests. Records outside this set are rejected at the ingestion boundary.
type Category string

const (
	CategoryUFO           Category = "ufo"
	CategoryBigfoot       Category = "bigfoot"
	CategoryHaunting      Category = "haunting"
	CategoryMissingPerson Category = "missing_person"
	CategoryAnomaly       Category = "anomaly"
)

// AllCategories returns every category in a fixed, deterministic order.
// Enumeration order matters: pairing construction and tie-breaks depend on it.
func AllCategories() []Category {
	return []Category{
		CategoryUFO,
		CategoryBigfoot,
		CategoryHaunting,
		CategoryMissingPerson,
		CategoryAnomaly,
	}
}

// IsValid reports whether c is part of the fixed enumeration.
func (c Category) IsValid() bool {
	switch c {
	case CategoryUFO, CategoryBigfoot, CategoryHaunting, CategoryMissingPerson, CategoryAnomaly:
		return true
	}
	return false
}

// Record is one ingested observation. Immutable once ingested; the core
// only reads id, category and coordinates. The ingestion pipeline owns the
// payload.
type Record struct {
	ID        core.ObservationID     `json:"id"`
	Category  Category               `json:"category"`
	Latitude  *float64               `json:"latitude"`
	Longitude *float64               `json:"longitude"`
	OccurredAt core.Timestamp        `json:"occurred_at"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
}

// HasCoordinates reports whether the record carries a usable location.
func (r Record) HasCoordinates() bool {
	return r.Latitude != nil && r.Longitude != nil
}
