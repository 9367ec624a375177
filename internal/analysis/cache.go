package analysis

import (
	"fmt"
	"strconv"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/moolen/faultline/internal/analysis/features"
	"github.com/moolen/faultline/internal/logging"
	"github.com/moolen/faultline/internal/metrics"
	"github.com/moolen/faultline/internal/models"
	"github.com/moolen/faultline/internal/store"
)

// snapshotState is the derived state of one snapshot under one policy
// version. The feature set is built eagerly; the full report lazily.
type snapshotState struct {
	key      string
	snapshot *store.Snapshot
	pipe     *pipeline
	features *features.FeatureSet

	mu     sync.Mutex
	report *models.Report
}

// ReportCache is a bounded LRU of snapshot states.
type ReportCache struct {
	lru     *lru.Cache[string, *snapshotState]
	metrics *metrics.Metrics
	logger  *logging.Logger
}

// NewReportCache creates a cache holding at most size snapshot states. A
// size of zero disables caching.
func NewReportCache(size int, m *metrics.Metrics) (*ReportCache, error) {
	if size < 0 {
		return nil, fmt.Errorf("cache size must not be negative, got %d", size)
	}

	rc := &ReportCache{
		metrics: m,
		logger:  logging.GetLogger("analysis.cache"),
	}
	if size == 0 {
		return rc, nil
	}
	cache, err := lru.NewWithEvict[string, *snapshotState](size, func(key string, _ *snapshotState) {
		rc.metrics.CacheEvictions.Inc()
		rc.logger.Debug("Report cache EVICT: key=%s", shortKey(key))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create LRU cache: %w", err)
	}
	rc.lru = cache
	return rc, nil
}

func (rc *ReportCache) get(key string) (*snapshotState, bool) {
	if rc.lru == nil {
		rc.metrics.CacheMisses.Inc()
		return nil, false
	}
	state, ok := rc.lru.Get(key)
	if ok {
		rc.metrics.CacheHits.Inc()
	} else {
		rc.metrics.CacheMisses.Inc()
	}
	return state, ok
}

// add stores state unless another request stored one for the same key
// first, in which case the existing state wins.
func (rc *ReportCache) add(state *snapshotState) *snapshotState {
	if rc.lru == nil {
		return state
	}
	if existing, ok, _ := rc.lru.PeekOrAdd(state.key, state); ok {
		return existing
	}
	return state
}

// Purge drops every cached state.
func (rc *ReportCache) Purge() {
	if rc.lru != nil {
		rc.lru.Purge()
	}
}

// Len returns the number of cached states.
func (rc *ReportCache) Len() int {
	if rc.lru == nil {
		return 0
	}
	return rc.lru.Len()
}

func cacheKey(fingerprint string, version uint64) string {
	return fingerprint + ":" + strconv.FormatUint(version, 10)
}

func shortKey(key string) string {
	if len(key) > 16 {
		return key[:16]
	}
	return key
}
