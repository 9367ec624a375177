package store

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	dps "github.com/markusmobius/go-dateparser"

	"github.com/moolen/faultline/internal/models"
)

// UpstreamLayout is the timestamp format written by the ingestion service.
const UpstreamLayout = "02.01.2006 15:04:05"

var layouts = []string{
	UpstreamLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"02.01.2006 15:04",
	"2006/01/02 15:04:05",
}

// dateReference fills time-of-day gaps in dateparser results so the same
// input always yields the same instant.
var dateReference = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// relativePattern rejects inputs whose meaning depends on the current time.
var relativePattern = regexp.MustCompile(`(?i)\b(ago|now|today|yesterday|tomorrow|last|next)\b`)

// ParseTimestamp parses a record timestamp. Layouts without a zone are read
// as UTC. Unix seconds (or milliseconds) are accepted, and any other
// absolute date is handed to go-dateparser, which must find an explicit
// day, month and year.
func ParseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, models.NewValidationError("timestamp is empty")
	}

	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}

	if unix, err := strconv.ParseInt(value, 10, 64); err == nil {
		if unix <= 0 {
			return time.Time{}, models.NewValidationError("timestamp %q must be positive", value)
		}
		if unix > 1e12 {
			return time.UnixMilli(unix).UTC(), nil
		}
		return time.Unix(unix, 0).UTC(), nil
	}

	if relativePattern.MatchString(value) {
		return time.Time{}, models.NewValidationError("relative timestamp %q is not allowed", value)
	}

	parser := dps.Parser{}
	cfg := &dps.Configuration{
		CurrentTime:         dateReference,
		DefaultTimezone:     time.UTC,
		PreferredDateSource: dps.CurrentPeriod,
		StrictParsing:       true,
	}
	parsed, err := parser.Parse(cfg, value)
	if err != nil || parsed.IsZero() {
		return time.Time{}, models.NewValidationError("unparsable timestamp %q", value)
	}
	return parsed.Time.UTC(), nil
}
