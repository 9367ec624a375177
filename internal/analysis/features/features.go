// Package features derives the shared, read-only feature set that the risk,
// similarity and clustering stages consume.
package features

import (
	"sort"
	"time"

	"github.com/moolen/faultline/internal/logprocessing"
	"github.com/moolen/faultline/internal/models"
)

// ErrorFeatures is the per-record vector used for similarity.
type ErrorFeatures struct {
	Record models.ErrorRecord
	// Tokens is the sorted set of message content words
	Tokens []string
	// Template is the mined message pattern, empty for empty messages
	Template string
	// Anonymous is set when the record has no attributable user
	Anonymous bool
}

// UserAggregate summarizes one user's errors.
type UserAggregate struct {
	User          string
	Total         int
	BySeverity    map[models.Severity]int
	ByType        map[string]int
	DistinctTypes int
	FirstSeen     time.Time
	LastSeen      time.Time
	// Timestamps are sorted ascending
	Timestamps []time.Time
	// RecordIDs are sorted ascending
	RecordIDs []int64
}

// Critical returns the number of critical errors.
func (u *UserAggregate) Critical() int {
	return u.BySeverity[models.SeverityCritical]
}

// FeatureSet is immutable once built and safe for concurrent readers.
type FeatureSet struct {
	// Errors are sorted by record ID
	Errors []ErrorFeatures
	// Users are sorted by name and exclude anonymous records
	Users []UserAggregate
	// MaxUserErrors is the largest Total among Users
	MaxUserErrors int
	// WindowStart and WindowEnd bound all record timestamps
	WindowStart time.Time
	WindowEnd   time.Time
	Templates   []logprocessing.Template

	index map[int64]int
}

// Len returns the number of records.
func (fs *FeatureSet) Len() int {
	return len(fs.Errors)
}

// Lookup returns the features of the record with the given ID.
func (fs *FeatureSet) Lookup(id int64) (*ErrorFeatures, bool) {
	i, ok := fs.index[id]
	if !ok {
		return nil, false
	}
	return &fs.Errors[i], true
}

// User returns the aggregate for name.
func (fs *FeatureSet) User(name string) (*UserAggregate, bool) {
	i := sort.Search(len(fs.Users), func(i int) bool { return fs.Users[i].User >= name })
	if i < len(fs.Users) && fs.Users[i].User == name {
		return &fs.Users[i], true
	}
	return nil, false
}

// Extractor builds feature sets.
type Extractor struct {
	miner     *logprocessing.TemplateMiner
	anonymous map[string]struct{}
}

// NewExtractor creates an extractor. Records whose user is listed in
// anonymousUsers get no per-user aggregate.
func NewExtractor(drain logprocessing.DrainConfig, anonymousUsers []string) *Extractor {
	anon := make(map[string]struct{}, len(anonymousUsers))
	for _, u := range anonymousUsers {
		anon[u] = struct{}{}
	}
	return &Extractor{
		miner:     logprocessing.NewTemplateMiner(drain),
		anonymous: anon,
	}
}

// Extract is a pure function of the record set: permuting records yields
// the same FeatureSet. Records are processed in ID order; a repeated ID
// keeps its first occurrence in that order.
func (e *Extractor) Extract(records []models.ErrorRecord) *FeatureSet {
	sorted := make([]models.ErrorRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	fs := &FeatureSet{
		Errors: make([]ErrorFeatures, 0, len(sorted)),
		Users:  []UserAggregate{},
		index:  make(map[int64]int, len(sorted)),
	}

	for _, r := range sorted {
		if _, dup := fs.index[r.ID]; dup {
			continue
		}
		_, anon := e.anonymous[r.User]
		fs.index[r.ID] = len(fs.Errors)
		fs.Errors = append(fs.Errors, ErrorFeatures{
			Record:    r,
			Tokens:    logprocessing.Tokenize(r.Message),
			Anonymous: anon,
		})
	}
	if len(fs.Errors) == 0 {
		return fs
	}

	messages := make([]string, len(fs.Errors))
	for i := range fs.Errors {
		messages[i] = fs.Errors[i].Record.Message
	}
	mined := e.miner.Mine(messages)
	for i := range fs.Errors {
		fs.Errors[i].Template = mined.Patterns[i]
	}
	fs.Templates = mined.Templates

	fs.WindowStart = fs.Errors[0].Record.Timestamp
	fs.WindowEnd = fs.Errors[0].Record.Timestamp
	byUser := make(map[string]*UserAggregate)
	for i := range fs.Errors {
		r := fs.Errors[i].Record
		if r.Timestamp.Before(fs.WindowStart) {
			fs.WindowStart = r.Timestamp
		}
		if r.Timestamp.After(fs.WindowEnd) {
			fs.WindowEnd = r.Timestamp
		}
		if fs.Errors[i].Anonymous {
			continue
		}

		agg, ok := byUser[r.User]
		if !ok {
			agg = &UserAggregate{
				User:       r.User,
				BySeverity: make(map[models.Severity]int),
				ByType:     make(map[string]int),
				FirstSeen:  r.Timestamp,
				LastSeen:   r.Timestamp,
			}
			byUser[r.User] = agg
		}
		agg.Total++
		agg.BySeverity[r.Severity]++
		agg.ByType[r.Type]++
		agg.Timestamps = append(agg.Timestamps, r.Timestamp)
		agg.RecordIDs = append(agg.RecordIDs, r.ID)
		if r.Timestamp.Before(agg.FirstSeen) {
			agg.FirstSeen = r.Timestamp
		}
		if r.Timestamp.After(agg.LastSeen) {
			agg.LastSeen = r.Timestamp
		}
	}

	for _, agg := range byUser {
		agg.DistinctTypes = len(agg.ByType)
		sort.Slice(agg.Timestamps, func(i, j int) bool { return agg.Timestamps[i].Before(agg.Timestamps[j]) })
		if agg.Total > fs.MaxUserErrors {
			fs.MaxUserErrors = agg.Total
		}
		fs.Users = append(fs.Users, *agg)
	}
	sort.Slice(fs.Users, func(i, j int) bool { return fs.Users[i].User < fs.Users[j].User })

	return fs
}
