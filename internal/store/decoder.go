package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/moolen/faultline/internal/logging"
	"github.com/moolen/faultline/internal/models"
)

// wireRecord is the upstream JSON shape of a record.
type wireRecord struct {
	ID        int64           `json:"id"`
	Type      string          `json:"type"`
	User      *string         `json:"user"`
	Timestamp json.RawMessage `json:"timestamp"`
	Severity  string          `json:"severity"`
	Content   *string         `json:"content"`
	Message   *string         `json:"message"`
	Filename  *string         `json:"filename"`
	Code      *int            `json:"code"`
}

// Decoder turns an upstream payload into a Snapshot. Malformed elements are
// excluded with a diagnostic rather than failing the whole payload.
type Decoder struct {
	schema *jsonschema.Schema
	logger *logging.Logger
	now    func() time.Time
}

// NewDecoder compiles the record schema.
func NewDecoder() (*Decoder, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(recordSchemaURL, strings.NewReader(recordSchema)); err != nil {
		return nil, fmt.Errorf("add record schema: %w", err)
	}
	schema, err := compiler.Compile(recordSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile record schema: %w", err)
	}
	return &Decoder{
		schema: schema,
		logger: logging.GetLogger("store.decoder"),
		now:    time.Now,
	}, nil
}

// Decode parses a JSON array of records. An empty payload is an empty
// snapshot; a payload that is not a JSON array is an upstream failure.
func (d *Decoder) Decode(payload []byte) (*Snapshot, error) {
	snap := &Snapshot{
		Records:     []models.ErrorRecord{},
		Diagnostics: []models.Diagnostic{},
		LoadedAt:    d.now(),
	}

	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 || bytes.Equal(payload, []byte("null")) {
		return snap, nil
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(payload, &elements); err != nil {
		return nil, fmt.Errorf("%w: payload is not a JSON array of records: %v", models.ErrUpstreamUnavailable, err)
	}

	seen := make(map[int64]int, len(elements))
	for i, raw := range elements {
		record, err := d.decodeRecord(raw)
		if err != nil {
			d.exclude(snap, i, record, err.Error())
			continue
		}
		if first, dup := seen[record.ID]; dup {
			d.exclude(snap, i, record, fmt.Sprintf("duplicate id %d (first seen at index %d)", record.ID, first))
			continue
		}
		seen[record.ID] = i
		snap.Records = append(snap.Records, *record)
	}

	sort.Slice(snap.Records, func(i, j int) bool { return snap.Records[i].ID < snap.Records[j].ID })

	if len(snap.Diagnostics) > 0 {
		d.logger.WarnWithFields("Excluded malformed records from snapshot",
			logging.Field("excluded", len(snap.Diagnostics)),
			logging.Field("accepted", len(snap.Records)),
		)
	}
	return snap, nil
}

func (d *Decoder) exclude(snap *Snapshot, index int, record *models.ErrorRecord, reason string) {
	diag := models.Diagnostic{Index: index, Reason: reason}
	if record != nil {
		id := record.ID
		diag.RecordID = &id
	}
	snap.Diagnostics = append(snap.Diagnostics, diag)
	d.logger.Debug("Excluding record at index %d: %s", index, reason)
}

// decodeRecord validates and converts one element. When the element has a
// readable id the returned record is non-nil even on error, so the
// diagnostic can name it.
func (d *Decoder) decodeRecord(raw json.RawMessage) (*models.ErrorRecord, error) {
	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("invalid JSON: %v", err)
	}

	var partial *models.ErrorRecord
	if obj, ok := generic.(map[string]interface{}); ok {
		if id, ok := obj["id"].(float64); ok && id == float64(int64(id)) {
			partial = &models.ErrorRecord{ID: int64(id)}
		}
	}

	if err := d.schema.Validate(generic); err != nil {
		return partial, errors.New(schemaReason(err))
	}

	var wire wireRecord
	if err := json.Unmarshal(raw, &wire); err != nil {
		return partial, fmt.Errorf("invalid record: %v", err)
	}

	ts, err := parseWireTimestamp(wire.Timestamp)
	if err != nil {
		return partial, err
	}
	severity, err := models.ParseSeverity(wire.Severity)
	if err != nil {
		return partial, err
	}

	record := &models.ErrorRecord{
		ID:        wire.ID,
		Type:      strings.TrimSpace(wire.Type),
		User:      strings.TrimSpace(deref(wire.User)),
		Timestamp: ts,
		Severity:  severity,
		Message:   firstNonEmpty(deref(wire.Content), deref(wire.Message)),
		Source:    deref(wire.Filename),
	}
	if wire.Code != nil {
		record.Code = *wire.Code
	}
	if err := record.Validate(); err != nil {
		return partial, err
	}
	return record, nil
}

func parseWireTimestamp(raw json.RawMessage) (time.Time, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return ParseTimestamp(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return ParseTimestamp(n.String())
	}
	return time.Time{}, models.NewValidationError("timestamp must be a string or number")
}

// schemaReason reduces a schema error to its most specific cause.
func schemaReason(err error) string {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return err.Error()
	}
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	location := ve.InstanceLocation
	if location == "" {
		location = "/"
	}
	return fmt.Sprintf("schema violation at %s: %s", location, ve.Message)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
