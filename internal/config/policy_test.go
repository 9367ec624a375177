package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/moolen/faultline/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePolicy(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultPolicyIsValid(t *testing.T) {
	p := DefaultPolicy()
	require.NoError(t, p.Validate())
	assert.InDelta(t, 1.0, p.Risk.Weights.sum(), 1e-9)
	assert.InDelta(t, 1.0, p.Similarity.sum(), 1e-9)
}

func TestPolicyValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *Policy)
		wantErr string
	}{
		{"risk weights off", func(p *Policy) { p.Risk.Weights.Trend = 0.5 }, "risk.weights must sum"},
		{"thresholds unordered", func(p *Policy) { p.Risk.Thresholds.Medium = 80 }, "risk.thresholds"},
		{"severity weights unordered", func(p *Policy) { p.SeverityWeights.Low = 0.9 }, "ordered"},
		{"similarity weights off", func(p *Policy) { p.Similarity.TypeWeight = 0.9 }, "similarity weights"},
		{"zero temporal scale", func(p *Policy) { p.Similarity.TemporalScale = 0 }, "temporal_scale"},
		{"threshold above one", func(p *Policy) { p.Clustering.Threshold = 1.5 }, "clustering.threshold"},
		{"tiny clusters", func(p *Policy) { p.Clustering.MinClusterSize = 1 }, "min_cluster_size"},
		{"no burst window", func(p *Policy) { p.Correlation.BurstWindow = 0 }, "burst_window"},
		{"zero confidence scale", func(p *Policy) { p.Correlation.ConfidenceScale = 0 }, "confidence_scale"},
		{"future schema", func(p *Policy) { p.SchemaVersion = "2.1.0" }, "not supported"},
		{"garbage schema", func(p *Policy) { p.SchemaVersion = "latest" }, "not a version"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultPolicy()
			tt.mutate(&p)
			assert.ErrorContains(t, p.Validate(), tt.wantErr)
		})
	}
}

func TestPolicyValidate_SchemaVersion(t *testing.T) {
	for _, v := range []string{"", "1.0.0", "1.4", "1.9.9"} {
		p := DefaultPolicy()
		p.SchemaVersion = v
		assert.NoError(t, p.Validate(), v)
	}
}

func TestSeverityWeightsFor(t *testing.T) {
	w := DefaultPolicy().SeverityWeights
	assert.Equal(t, 1.0, w.For(models.SeverityCritical))
	assert.Equal(t, 0.66, w.For(models.SeverityHigh))
	assert.Equal(t, 0.33, w.For(models.SeverityMedium))
	assert.Equal(t, 0.0, w.For(models.SeverityLow))
}

func TestIsAnonymous(t *testing.T) {
	r := DefaultPolicy().Risk
	assert.True(t, r.IsAnonymous(""))
	assert.True(t, r.IsAnonymous("Unknown"))
	assert.False(t, r.IsAnonymous("alice"))
}

func TestLoadPolicyFile_OverlaysDefaults(t *testing.T) {
	path := writePolicy(t, `
clustering:
  threshold: 0.7
correlation:
  burst_window: 15m
risk:
  anonymous_users: ["system"]
`)

	p, err := LoadPolicyFile(path)
	require.NoError(t, err)

	assert.Equal(t, 0.7, p.Clustering.Threshold)
	assert.Equal(t, 15*time.Minute, p.Correlation.BurstWindow)
	assert.Equal(t, []string{"system"}, p.Risk.AnonymousUsers)
	// untouched keys keep their defaults
	assert.Equal(t, 2, p.Clustering.MinClusterSize)
	assert.Equal(t, 0.35, p.Risk.Weights.Severity)
	assert.Equal(t, time.Hour, p.Similarity.TemporalScale)
}

func TestLoadPolicyFile_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadPolicyFile(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.ErrorContains(t, err, "failed to load policy")
	})

	t.Run("invalid yaml", func(t *testing.T) {
		_, err := LoadPolicyFile(writePolicy(t, "risk: [unterminated"))
		assert.Error(t, err)
	})

	t.Run("fails validation", func(t *testing.T) {
		_, err := LoadPolicyFile(writePolicy(t, "risk:\n  weights:\n    frequency: 0.9\n"))
		assert.ErrorContains(t, err, "policy validation failed")
	})
}

func TestLoadPolicy_EmptyPathUsesDefaults(t *testing.T) {
	p, err := LoadPolicy("")
	require.NoError(t, err)
	assert.Equal(t, DefaultPolicy(), *p)
}

func TestWritePolicyFile_RoundTripsThroughLoader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	want := DefaultPolicy()
	want.Clustering.Threshold = 0.6
	want.Correlation.BurstWindow = 45 * time.Minute

	require.NoError(t, WritePolicyFile(path, &want))

	got, err := LoadPolicyFile(path)
	require.NoError(t, err)
	assert.Equal(t, want, *got)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must be cleaned up")
}

func TestWritePolicyFile_RejectsInvalid(t *testing.T) {
	p := DefaultPolicy()
	p.Risk.Weights.Frequency = 2
	err := WritePolicyFile(filepath.Join(t.TempDir(), "policy.yaml"), &p)
	assert.ErrorContains(t, err, "refusing to write")
}
