package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	// Falls back to v4 if v7 is not available (for compatibility)
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Domain-specific ID types
type (
	ObservationID ID
	PredictionID  ID
	DraftID       ID
	RunID         ID
	ResultID      ID
)

// String conversions for domain IDs
func (id ObservationID) String() string { return ID(id).String() }
func (id PredictionID) String() string  { return ID(id).String() }
func (id DraftID) String() string       { return ID(id).String() }
func (id RunID) String() string         { return ID(id).String() }
func (id ResultID) String() string      { return ID(id).String() }

// ParsePredictionID parses a string into PredictionID
func ParsePredictionID(s string) (PredictionID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("prediction ID cannot be empty")
	}
	return PredictionID(s), nil
}

// ParseDraftID parses a string into DraftID
func ParseDraftID(s string) (DraftID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("draft ID cannot be empty")
	}
	return DraftID(s), nil
}

// ParseRunID parses a string into RunID
func ParseRunID(s string) (RunID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("run ID cannot be empty")
	}
	return RunID(s), nil
}
