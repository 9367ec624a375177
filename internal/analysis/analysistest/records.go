// Package analysistest provides record builders shared by the analysis
// package tests.
package analysistest

import (
	"math/rand"
	"time"

	"github.com/moolen/faultline/internal/models"
)

// Base is the reference instant of generated records.
var Base = time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)

// Record builds a record offset from Base.
func Record(id int64, typ, user string, sev models.Severity, offset time.Duration, msg string) models.ErrorRecord {
	return models.ErrorRecord{
		ID:        id,
		Type:      typ,
		User:      user,
		Timestamp: Base.Add(offset),
		Severity:  sev,
		Message:   msg,
	}
}

// ThreeUserCorpus returns a corpus where user A has 10 errors of one type,
// 8 of them critical, and user B has 10 errors across 5 types with a
// single critical one. A third user C has no records at all.
func ThreeUserCorpus() []models.ErrorRecord {
	var out []models.ErrorRecord
	id := int64(1)
	for i := 0; i < 10; i++ {
		sev := models.SeverityCritical
		if i >= 8 {
			sev = models.SeverityLow
		}
		out = append(out, Record(id, "NullReferenceException", "A", sev,
			time.Duration(i)*10*time.Minute, "object reference not set on order service"))
		id++
	}
	types := []string{"TimeoutError", "IOException", "ParseError", "AuthError", "QuotaExceeded"}
	for i := 0; i < 10; i++ {
		sev := models.SeverityMedium
		if i == 0 {
			sev = models.SeverityCritical
		}
		out = append(out, Record(id, types[i%len(types)], "B", sev,
			time.Duration(i)*47*time.Minute, "request to billing backend failed"))
		id++
	}
	return out
}

// Shuffled returns a permutation of records.
func Shuffled(records []models.ErrorRecord, seed int64) []models.ErrorRecord {
	out := make([]models.ErrorRecord, len(records))
	copy(out, records)
	rnd := rand.New(rand.NewSource(seed))
	rnd.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}
