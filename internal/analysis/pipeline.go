package analysis

import (
	"github.com/moolen/faultline/internal/analysis/clustering"
	"github.com/moolen/faultline/internal/analysis/correlation"
	"github.com/moolen/faultline/internal/analysis/features"
	"github.com/moolen/faultline/internal/analysis/risk"
	"github.com/moolen/faultline/internal/analysis/similarity"
	"github.com/moolen/faultline/internal/config"
	"github.com/moolen/faultline/internal/logprocessing"
)

// pipeline is the set of stages built from one policy version.
type pipeline struct {
	version     uint64
	policy      config.Policy
	extractor   *features.Extractor
	scorer      *risk.Scorer
	similarity  *similarity.Engine
	clustering  *clustering.Engine
	correlation *correlation.Synthesizer
}

func newPipeline(version uint64, p config.Policy) *pipeline {
	sim := similarity.NewEngine(p.Similarity)
	return &pipeline{
		version:     version,
		policy:      p,
		extractor:   features.NewExtractor(logprocessing.DefaultDrainConfig(), p.Risk.AnonymousUsers),
		scorer:      risk.NewScorer(p.SeverityWeights, p.Risk),
		similarity:  sim,
		clustering:  clustering.NewEngine(sim, p.Clustering, p.SeverityWeights, p.Correlation.BurstWindow),
		correlation: correlation.NewSynthesizer(p.SeverityWeights, p.Correlation),
	}
}
