// Package clustering partitions an error corpus into categories of mutually
// similar errors and a set of outliers.
//
// Two errors are linked when their similarity exceeds the threshold. The
// categories are the connected components of that graph. Components are
// formed with a union-find over records in ID order where the smaller index
// always becomes the root, so the partition never depends on the order in
// which records were delivered.
package clustering

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/moolen/faultline/internal/analysis/features"
	"github.com/moolen/faultline/internal/analysis/similarity"
	"github.com/moolen/faultline/internal/config"
	"github.com/moolen/faultline/internal/logging"
	"github.com/moolen/faultline/internal/models"
)

// Engine groups errors into categories.
type Engine struct {
	sim         *similarity.Engine
	policy      config.ClusteringPolicy
	severity    config.SeverityWeights
	burstWindow time.Duration
	workers     int
	logger      *logging.Logger
}

// NewEngine creates a clustering engine. burstWindow is the window used to
// measure the time concentration of a category.
func NewEngine(sim *similarity.Engine, policy config.ClusteringPolicy, severity config.SeverityWeights, burstWindow time.Duration) *Engine {
	return &Engine{
		sim:         sim,
		policy:      policy,
		severity:    severity,
		burstWindow: burstWindow,
		workers:     runtime.GOMAXPROCS(0),
		logger:      logging.GetLogger("analysis.clustering"),
	}
}

// Categorize partitions the feature set. The result is invariant to the
// order of the input records up to category labels.
func (e *Engine) Categorize(ctx context.Context, fs *features.FeatureSet) (*models.CategorizationResult, error) {
	result := &models.CategorizationResult{
		Categories:  map[string]models.ErrorCluster{},
		Suggestions: []models.CategorySuggestion{},
		OutlierIDs:  []int64{},
	}
	if fs.Len() == 0 {
		return result, nil
	}

	adj, err := e.neighbours(ctx, fs)
	if err != nil {
		return nil, err
	}

	uf := newUnionFind(fs.Len())
	for i := range adj {
		for _, j := range adj[i] {
			uf.union(i, j)
		}
	}

	components := uf.components()
	var clusters [][]int
	for _, members := range components {
		if len(members) < e.policy.MinClusterSize {
			for _, idx := range members {
				result.OutlierIDs = append(result.OutlierIDs, fs.Errors[idx].Record.ID)
			}
			continue
		}
		clusters = append(clusters, members)
	}
	sort.Slice(result.OutlierIDs, func(i, j int) bool { return result.OutlierIDs[i] < result.OutlierIDs[j] })

	// members are in index order, so members[0] carries the smallest ID
	sort.Slice(clusters, func(i, j int) bool {
		if len(clusters[i]) != len(clusters[j]) {
			return len(clusters[i]) > len(clusters[j])
		}
		return clusters[i][0] < clusters[j][0]
	})

	for n, members := range clusters {
		key := models.CategoryKey(n + 1)
		cluster := e.describe(fs, members)
		result.Categories[key] = cluster
		if s, ok := e.suggest(cluster); ok {
			result.Suggestions = append(result.Suggestions, s)
		}
	}

	result.TotalClusters = len(clusters)
	result.Outliers = len(result.OutlierIDs)
	if result.Outliers > 0 {
		result.Suggestions = append(result.Suggestions, models.CategorySuggestion{
			Category:   UniqueErrors,
			Suggestion: fmt.Sprintf("%d unique error patterns identified - may need individual investigation", result.Outliers),
			Priority:   models.PriorityLow,
		})
	}

	if err := VerifyPartition(fs, result); err != nil {
		return nil, err
	}

	e.logger.Debug("Categorized %d errors into %d categories with %d outliers",
		fs.Len(), result.TotalClusters, result.Outliers)
	return result, nil
}

// neighbours computes, for every record index i, the indexes j > i that are
// linked to it. Rows are computed in parallel; each goroutine only writes
// its own row.
func (e *Engine) neighbours(ctx context.Context, fs *features.FeatureSet) ([][]int, error) {
	adj := make([][]int, fs.Len())

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(e.workers, 1))
	for i := range fs.Errors {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			var row []int
			for j := i + 1; j < fs.Len(); j++ {
				if e.sim.Score(&fs.Errors[i], &fs.Errors[j]) > e.policy.Threshold {
					row = append(row, j)
				}
			}
			adj[i] = row
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to compute neighbours: %w", err)
	}
	return adj, nil
}

// VerifyPartition checks that every record of fs appears exactly once
// across all categories and the outlier set.
func VerifyPartition(fs *features.FeatureSet, result *models.CategorizationResult) error {
	seen := make(map[int64]string, fs.Len())
	claim := func(id int64, where string) error {
		if prev, dup := seen[id]; dup {
			return fmt.Errorf("record %d assigned to both %s and %s: %w", id, prev, where, models.ErrInvariantViolation)
		}
		if _, ok := fs.Lookup(id); !ok {
			return fmt.Errorf("record %d in %s is not part of the corpus: %w", id, where, models.ErrInvariantViolation)
		}
		seen[id] = where
		return nil
	}

	for key, cluster := range result.Categories {
		for _, id := range cluster.Errors {
			if err := claim(id, key); err != nil {
				return err
			}
		}
	}
	for _, id := range result.OutlierIDs {
		if err := claim(id, "outliers"); err != nil {
			return err
		}
	}
	if len(seen) != fs.Len() {
		return fmt.Errorf("%d of %d records unassigned: %w", fs.Len()-len(seen), fs.Len(), models.ErrInvariantViolation)
	}
	return nil
}
