package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Severity is the ordered severity of an error record.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

// Severities lists all levels in ascending order.
var Severities = []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "Low"
	case SeverityMedium:
		return "Medium"
	case SeverityHigh:
		return "High"
	case SeverityCritical:
		return "Critical"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// Valid reports whether s is one of the four defined levels.
func (s Severity) Valid() bool {
	return s >= SeverityLow && s <= SeverityCritical
}

// ParseSeverity parses a severity name case-insensitively.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return SeverityLow, nil
	case "medium":
		return SeverityMedium, nil
	case "high":
		return SeverityHigh, nil
	case "critical":
		return SeverityCritical, nil
	default:
		return 0, NewValidationError("unknown severity %q", s)
	}
}

// MarshalJSON encodes the severity by name.
func (s Severity) MarshalJSON() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("cannot marshal %s", s)
	}
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a severity name.
func (s *Severity) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseSeverity(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ErrorRecord is one normalized error produced by the ingestion service.
// Records are immutable once loaded.
type ErrorRecord struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	User      string    `json:"user"`
	Timestamp time.Time `json:"timestamp"`
	Severity  Severity  `json:"severity"`
	Message   string    `json:"content"`
	Source    string    `json:"filename,omitempty"`
	Code      int       `json:"code,omitempty"`
}

// Validate checks the per-record invariants.
func (r *ErrorRecord) Validate() error {
	if strings.TrimSpace(r.Type) == "" {
		return NewValidationError("record %d: type must not be empty", r.ID)
	}
	if r.Timestamp.IsZero() {
		return NewValidationError("record %d: timestamp must be set", r.ID)
	}
	if !r.Severity.Valid() {
		return NewValidationError("record %d: invalid severity %d", r.ID, int(r.Severity))
	}
	return nil
}

// Diagnostic reports a record that was excluded from analysis.
type Diagnostic struct {
	// Index is the position of the record in the upstream payload
	Index    int    `json:"index"`
	RecordID *int64 `json:"record_id,omitempty"`
	Reason   string `json:"reason"`
}
