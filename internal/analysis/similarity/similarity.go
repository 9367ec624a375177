// Package similarity ranks errors by how closely they resemble an anchor.
package similarity

import (
	"fmt"
	"math"
	"sort"

	"github.com/moolen/faultline/internal/analysis/features"
	"github.com/moolen/faultline/internal/config"
	"github.com/moolen/faultline/internal/models"
)

// Engine scores pairs of errors with a fixed-weight linear blend of type,
// user, temporal and message components.
type Engine struct {
	policy config.SimilarityPolicy
}

// NewEngine creates a similarity engine.
func NewEngine(policy config.SimilarityPolicy) *Engine {
	return &Engine{policy: policy}
}

// Components are the unweighted inputs of a similarity score.
type Components struct {
	SameType bool
	SameUser bool
	Temporal float64
	Message  float64
}

// Components returns the individual similarity components of a and b.
func (e *Engine) Components(a, b *features.ErrorFeatures) Components {
	dt := a.Record.Timestamp.Sub(b.Record.Timestamp)
	if dt < 0 {
		dt = -dt
	}
	return Components{
		SameType: a.Record.Type == b.Record.Type,
		SameUser: !a.Anonymous && !b.Anonymous && a.Record.User == b.Record.User,
		Temporal: math.Exp(-float64(dt) / float64(e.policy.TemporalScale)),
		Message:  Jaccard(a.Tokens, b.Tokens),
	}
}

// Score returns the similarity of a and b in [0,1]. It is symmetric.
func (e *Engine) Score(a, b *features.ErrorFeatures) float64 {
	c := e.Components(a, b)
	p := e.policy

	var s float64
	if c.SameType {
		s += p.TypeWeight
	}
	if c.SameUser {
		s += p.UserWeight
	}
	s += p.TemporalWeight * c.Temporal
	s += p.MessageWeight * c.Message
	return math.Max(0, math.Min(1, s))
}

// Similar returns up to limit errors most similar to the anchor, ordered by
// rounded score descending and then by ID. The anchor is never included.
// A missing anchor yields models.ErrNotFound; limit <= 0 yields no results.
func (e *Engine) Similar(fs *features.FeatureSet, anchorID int64, limit int) ([]models.SimilarityResult, error) {
	anchor, ok := fs.Lookup(anchorID)
	if !ok {
		return nil, fmt.Errorf("error %d: %w", anchorID, models.ErrNotFound)
	}
	if limit <= 0 {
		return []models.SimilarityResult{}, nil
	}

	results := make([]models.SimilarityResult, 0, fs.Len())
	for i := range fs.Errors {
		cand := &fs.Errors[i]
		if cand.Record.ID == anchorID {
			continue
		}
		score := round(e.Score(anchor, cand), 4)
		r := cand.Record
		results = append(results, models.SimilarityResult{
			ID:                   r.ID,
			Type:                 r.Type,
			User:                 r.User,
			Timestamp:            r.Timestamp,
			Severity:             r.Severity,
			Message:              r.Message,
			SimilarityScore:      score,
			SimilarityPercentage: round(score*100, 1),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].SimilarityScore != results[j].SimilarityScore {
			return results[i].SimilarityScore > results[j].SimilarityScore
		}
		return results[i].ID < results[j].ID
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Jaccard returns the intersection-over-union of two sorted token sets.
// Two empty sets have zero overlap.
func Jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter, i, j := 0, 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			inter++
			i++
			j++
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
