package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moolen/faultline/internal/models"
)

func newTestDecoder(t *testing.T) *Decoder {
	t.Helper()
	d, err := NewDecoder()
	require.NoError(t, err)
	d.now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	return d
}

func TestDecode_ValidPayload(t *testing.T) {
	d := newTestDecoder(t)
	snap, err := d.Decode([]byte(`[
		{"id": 2, "filename": "app_alice.log", "user": "alice", "timestamp": "02.01.2024 15:04:05",
		 "type": "NullReferenceException", "code": 50, "severity": "Critical", "content": "object reference not set"},
		{"id": 1, "user": "bob", "timestamp": "2024-01-02T10:00:00Z", "type": "TimeoutError", "severity": "low"}
	]`))
	require.NoError(t, err)

	require.Len(t, snap.Records, 2)
	assert.Empty(t, snap.Diagnostics)

	// sorted by id
	assert.Equal(t, int64(1), snap.Records[0].ID)
	assert.Equal(t, int64(2), snap.Records[1].ID)

	r := snap.Records[1]
	assert.Equal(t, "alice", r.User)
	assert.Equal(t, "NullReferenceException", r.Type)
	assert.Equal(t, models.SeverityCritical, r.Severity)
	assert.Equal(t, time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC), r.Timestamp)
	assert.Equal(t, "object reference not set", r.Message)
	assert.Equal(t, "app_alice.log", r.Source)
	assert.Equal(t, 50, r.Code)

	assert.Equal(t, models.SeverityLow, snap.Records[0].Severity)
}

func TestDecode_EmptyPayloads(t *testing.T) {
	d := newTestDecoder(t)
	for _, payload := range []string{"", "  ", "null", "[]"} {
		snap, err := d.Decode([]byte(payload))
		require.NoError(t, err, "payload %q", payload)
		assert.Empty(t, snap.Records)
		assert.Empty(t, snap.Diagnostics)
	}
}

func TestDecode_NotAnArray(t *testing.T) {
	d := newTestDecoder(t)
	_, err := d.Decode([]byte(`{"id": 1}`))
	assert.ErrorIs(t, err, models.ErrUpstreamUnavailable)
}

func TestDecode_ExcludesMalformedRecords(t *testing.T) {
	d := newTestDecoder(t)
	snap, err := d.Decode([]byte(`[
		{"id": 1, "user": "a", "timestamp": "02.01.2024 15:04:05", "type": "T", "severity": "High"},
		{"id": 2, "user": "a", "timestamp": "bogus", "type": "T", "severity": "High"},
		{"id": 3, "user": "a", "timestamp": "02.01.2024 15:04:05", "type": "T", "severity": "Catastrophic"},
		{"user": "a", "timestamp": "02.01.2024 15:04:05", "type": "T", "severity": "High"},
		{"id": 1, "user": "b", "timestamp": "02.01.2024 15:04:05", "type": "T", "severity": "Low"},
		{"id": 6, "user": "a", "timestamp": "3 days ago", "type": "T", "severity": "Low"},
		"garbage"
	]`))
	require.NoError(t, err)

	require.Len(t, snap.Records, 1)
	assert.Equal(t, "a", snap.Records[0].User, "first occurrence of a duplicate id wins")

	require.Len(t, snap.Diagnostics, 6)
	indexes := make([]int, 0, len(snap.Diagnostics))
	for _, diag := range snap.Diagnostics {
		indexes = append(indexes, diag.Index)
		assert.NotEmpty(t, diag.Reason)
	}
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, indexes)

	require.NotNil(t, snap.Diagnostics[0].RecordID)
	assert.Equal(t, int64(2), *snap.Diagnostics[0].RecordID)
	assert.Nil(t, snap.Diagnostics[2].RecordID, "record without id cannot be named")
	assert.Contains(t, snap.Diagnostics[3].Reason, "duplicate id 1")
	assert.Nil(t, snap.Diagnostics[5].RecordID)
}

func TestDecode_NullUserAndMessageFallback(t *testing.T) {
	d := newTestDecoder(t)
	snap, err := d.Decode([]byte(`[
		{"id": 1, "user": null, "timestamp": 1704207845, "type": "T", "severity": "Medium", "message": "from message field"}
	]`))
	require.NoError(t, err)
	require.Len(t, snap.Records, 1)
	assert.Equal(t, "", snap.Records[0].User)
	assert.Equal(t, "from message field", snap.Records[0].Message)
	assert.Equal(t, time.Unix(1704207845, 0).UTC(), snap.Records[0].Timestamp)
}
