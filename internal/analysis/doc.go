// Package analysis is the analytics façade over the error record store.
//
// # Pipeline
//
// Every request reads one immutable store snapshot and derives its views
// through a one-way pipeline:
//
//  1. features: per-record token sets and mined templates, per-user aggregates
//  2. risk and clustering, run in parallel over the shared feature set
//  3. correlation: root-cause suggestions and the insights summary, after both
//
// Similarity lookups only need step 1.
//
// # Caching
//
// Derived state is cached per snapshot fingerprint and policy version in a
// bounded LRU. The cache is never a source of truth: dropping it at any time
// only costs recomputation. Failed runs are not cached.
//
// # Policy
//
// All weights and thresholds come from config.Policy. SetPolicy swaps the
// active pipeline atomically and purges the cache; in-flight requests finish
// with the policy they started with.
package analysis
