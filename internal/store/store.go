// Package store reads the error records published by the ingestion service.
//
// A Store returns immutable snapshots. Each snapshot holds the records that
// passed validation, sorted by ID, plus a Diagnostic for every record that
// was excluded. Store failures are reported as models.ErrUpstreamUnavailable.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"time"

	"github.com/moolen/faultline/internal/models"
)

// Store is the read-only source of error records.
type Store interface {
	// Snapshot returns all records of the current analysis window.
	Snapshot(ctx context.Context) (*Snapshot, error)
	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
	Close() error
}

// Snapshot is an immutable view of the store at one point in time.
type Snapshot struct {
	// Records are valid, unique by ID and sorted by ID.
	Records     []models.ErrorRecord
	Diagnostics []models.Diagnostic
	LoadedAt    time.Time
}

// Fingerprint hashes the canonical content of the snapshot. Two snapshots
// with the same records have the same fingerprint regardless of the order
// the upstream published them in.
func (s *Snapshot) Fingerprint() string {
	h := sha256.New()
	var buf [8]byte
	writeInt := func(v int64) {
		binary.BigEndian.PutUint64(buf[:], uint64(v))
		h.Write(buf[:])
	}
	writeString := func(v string) {
		writeInt(int64(len(v)))
		h.Write([]byte(v))
	}

	writeInt(int64(len(s.Records)))
	for _, r := range s.Records {
		writeInt(r.ID)
		writeString(r.Type)
		writeString(r.User)
		writeInt(r.Timestamp.UnixNano())
		writeInt(int64(r.Severity))
		writeString(r.Message)
		writeString(r.Source)
		writeInt(int64(r.Code))
	}
	writeInt(int64(len(s.Diagnostics)))
	for _, d := range s.Diagnostics {
		writeInt(int64(d.Index))
		if d.RecordID != nil {
			writeInt(*d.RecordID)
		} else {
			writeInt(math.MinInt64)
		}
		writeString(d.Reason)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Lookup returns the record with the given ID using binary search.
func (s *Snapshot) Lookup(id int64) (models.ErrorRecord, bool) {
	lo, hi := 0, len(s.Records)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if s.Records[mid].ID < id {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(s.Records) && s.Records[lo].ID == id {
		return s.Records[lo], true
	}
	return models.ErrorRecord{}, false
}
