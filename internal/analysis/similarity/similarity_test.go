package similarity

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moolen/faultline/internal/analysis/analysistest"
	"github.com/moolen/faultline/internal/analysis/features"
	"github.com/moolen/faultline/internal/config"
	"github.com/moolen/faultline/internal/logprocessing"
	"github.com/moolen/faultline/internal/models"
)

func extract(records []models.ErrorRecord) *features.FeatureSet {
	return features.NewExtractor(logprocessing.DefaultDrainConfig(), []string{"", "Unknown"}).Extract(records)
}

func newEngine() *Engine {
	return NewEngine(config.DefaultPolicy().Similarity)
}

func TestSimilar_CloserInTimeAndUserRanksHigher(t *testing.T) {
	fs := extract([]models.ErrorRecord{
		analysistest.Record(1, "NullReferenceException", "X", models.SeverityHigh, 100*time.Second, "object reference not set"),
		analysistest.Record(2, "NullReferenceException", "X", models.SeverityHigh, 105*time.Second, "object reference not set"),
		analysistest.Record(3, "NullReferenceException", "Y", models.SeverityHigh, 50000*time.Second, "object reference not set"),
	})

	results, err := newEngine().Similar(fs, 1, 5)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, int64(2), results[0].ID)
	assert.Equal(t, int64(3), results[1].ID)
	assert.Greater(t, results[0].SimilarityScore, results[1].SimilarityScore)
}

func TestSimilar_NotFound(t *testing.T) {
	fs := extract(analysistest.ThreeUserCorpus())

	_, err := newEngine().Similar(fs, 999, 5)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestSimilar_NonPositiveLimit(t *testing.T) {
	fs := extract(analysistest.ThreeUserCorpus())

	for _, limit := range []int{0, -3} {
		results, err := newEngine().Similar(fs, 1, limit)
		require.NoError(t, err)
		assert.NotNil(t, results)
		assert.Empty(t, results)
	}
}

func TestSimilar_Properties(t *testing.T) {
	fs := extract(analysistest.ThreeUserCorpus())

	results, err := newEngine().Similar(fs, 11, 100)
	require.NoError(t, err)
	require.Len(t, results, fs.Len()-1)

	for i, r := range results {
		assert.NotEqual(t, int64(11), r.ID)
		assert.GreaterOrEqual(t, r.SimilarityScore, 0.0)
		assert.LessOrEqual(t, r.SimilarityScore, 1.0)
		assert.InDelta(t, r.SimilarityScore*100, r.SimilarityPercentage, 0.05)
		if i > 0 {
			prev := results[i-1]
			assert.GreaterOrEqual(t, prev.SimilarityScore, r.SimilarityScore)
			if prev.SimilarityScore == r.SimilarityScore {
				assert.Less(t, prev.ID, r.ID)
			}
		}
	}

	limited, err := newEngine().Similar(fs, 11, 5)
	require.NoError(t, err)
	assert.Equal(t, results[:5], limited)
}

func TestScore_Components(t *testing.T) {
	e := newEngine()
	fs := extract([]models.ErrorRecord{
		analysistest.Record(1, "A", "u", models.SeverityLow, 0, "disk quota exceeded"),
		analysistest.Record(2, "A", "u", models.SeverityLow, 0, "disk quota exceeded"),
		analysistest.Record(3, "B", "Unknown", models.SeverityLow, 0, ""),
		analysistest.Record(4, "C", "Unknown", models.SeverityLow, 0, ""),
	})
	f := func(id int64) *features.ErrorFeatures {
		x, ok := fs.Lookup(id)
		require.True(t, ok)
		return x
	}

	assert.InDelta(t, 1.0, e.Score(f(1), f(2)), 1e-9)
	assert.InDelta(t, e.Score(f(1), f(3)), e.Score(f(3), f(1)), 1e-12)

	c := e.Components(f(3), f(4))
	assert.False(t, c.SameUser, "anonymous users never match")
	assert.Equal(t, 0.0, c.Message, "empty token sets have no overlap")
	assert.InDelta(t, 0.15, e.Score(f(3), f(4)), 1e-9)
}

func TestJaccard(t *testing.T) {
	assert.Equal(t, 0.0, Jaccard(nil, nil))
	assert.Equal(t, 0.0, Jaccard([]string{"a"}, nil))
	assert.Equal(t, 1.0, Jaccard([]string{"a", "b"}, []string{"a", "b"}))
	assert.InDelta(t, 1.0/3.0, Jaccard([]string{"a", "b"}, []string{"b", "c"}), 1e-12)
}
