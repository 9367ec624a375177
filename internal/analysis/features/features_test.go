package features

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moolen/faultline/internal/analysis/analysistest"
	"github.com/moolen/faultline/internal/logprocessing"
	"github.com/moolen/faultline/internal/models"
)

func newExtractor() *Extractor {
	return NewExtractor(logprocessing.DefaultDrainConfig(), []string{"", "Unknown"})
}

func TestExtract_Empty(t *testing.T) {
	fs := newExtractor().Extract(nil)

	assert.Equal(t, 0, fs.Len())
	assert.Empty(t, fs.Users)
	assert.Equal(t, 0, fs.MaxUserErrors)
	assert.True(t, fs.WindowStart.IsZero())
}

func TestExtract_UserAggregates(t *testing.T) {
	fs := newExtractor().Extract(analysistest.ThreeUserCorpus())

	require.Len(t, fs.Users, 2)
	assert.Equal(t, "A", fs.Users[0].User)
	assert.Equal(t, "B", fs.Users[1].User)
	assert.Equal(t, 10, fs.MaxUserErrors)

	a, ok := fs.User("A")
	require.True(t, ok)
	assert.Equal(t, 10, a.Total)
	assert.Equal(t, 8, a.Critical())
	assert.Equal(t, 1, a.DistinctTypes)
	assert.Equal(t, analysistest.Base, a.FirstSeen)
	assert.Equal(t, analysistest.Base.Add(90*time.Minute), a.LastSeen)

	b, ok := fs.User("B")
	require.True(t, ok)
	assert.Equal(t, 5, b.DistinctTypes)
	assert.Equal(t, 2, b.ByType["TimeoutError"])

	_, ok = fs.User("C")
	assert.False(t, ok)
}

func TestExtract_OrderIndependent(t *testing.T) {
	records := analysistest.ThreeUserCorpus()
	ex := newExtractor()
	want := ex.Extract(records)

	for seed := int64(1); seed <= 5; seed++ {
		got := ex.Extract(analysistest.Shuffled(records, seed))
		assert.Equal(t, want.Errors, got.Errors, "seed %d", seed)
		assert.Equal(t, want.Users, got.Users, "seed %d", seed)
		assert.Equal(t, want.Templates, got.Templates, "seed %d", seed)
	}
}

func TestExtract_AnonymousUsersNotAggregated(t *testing.T) {
	fs := newExtractor().Extract([]models.ErrorRecord{
		analysistest.Record(1, "IOException", "", models.SeverityHigh, 0, "disk full"),
		analysistest.Record(2, "IOException", "Unknown", models.SeverityHigh, time.Minute, "disk full"),
		analysistest.Record(3, "IOException", "bob", models.SeverityLow, 2*time.Minute, "disk full"),
	})

	assert.Equal(t, 3, fs.Len())
	require.Len(t, fs.Users, 1)
	assert.Equal(t, "bob", fs.Users[0].User)

	f, ok := fs.Lookup(2)
	require.True(t, ok)
	assert.True(t, f.Anonymous)
	assert.Equal(t, []string{"disk", "full"}, f.Tokens)
	assert.Equal(t, analysistest.Base.Add(2*time.Minute), fs.WindowEnd)
}

func TestExtract_DuplicateIDKeepsFirst(t *testing.T) {
	fs := newExtractor().Extract([]models.ErrorRecord{
		analysistest.Record(1, "First", "a", models.SeverityLow, 0, ""),
		analysistest.Record(1, "Second", "a", models.SeverityLow, 0, ""),
	})

	require.Equal(t, 1, fs.Len())
	assert.Equal(t, "First", fs.Errors[0].Record.Type)
	assert.Equal(t, "", fs.Errors[0].Template)
}

func TestMaxInWindow(t *testing.T) {
	base := analysistest.Base
	ts := []time.Time{
		base,
		base.Add(10 * time.Minute),
		base.Add(29 * time.Minute),
		base.Add(30 * time.Minute),
		base.Add(2 * time.Hour),
	}

	assert.Equal(t, 0, MaxInWindow(nil, time.Minute))
	assert.Equal(t, 4, MaxInWindow(ts, 30*time.Minute))
	assert.Equal(t, 2, MaxInWindow(ts, 10*time.Minute))
	assert.Equal(t, 1, MaxInWindow(ts[4:], 0))
}
