package logprocessing

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// Wildcard is the parameter marker written into mined templates.
const Wildcard = "<*>"

// Template is a mined message pattern.
type Template struct {
	// ID is the hex SHA-256 of Pattern, stable across runs.
	ID      string
	Pattern string
	// Count is the number of messages matching the template.
	Count int
}

// GenerateTemplateID returns the stable identifier of a pattern.
func GenerateTemplateID(pattern string) string {
	hash := sha256.Sum256([]byte(pattern))
	return hex.EncodeToString(hash[:])
}

// MiningResult holds one pattern per input message plus the distinct
// templates, most frequent first.
type MiningResult struct {
	Patterns  []string
	Templates []Template
}

// TemplateMiner mines message templates for a finite batch.
type TemplateMiner struct {
	config DrainConfig
}

// NewTemplateMiner creates a miner with the given Drain settings.
func NewTemplateMiner(config DrainConfig) *TemplateMiner {
	return &TemplateMiner{config: config}
}

// Mine trains a fresh Drain tree on messages in the given order and then
// matches every message against the final tree, so a message's template
// does not depend on how early it was seen. Callers pass messages in a
// canonical order to get order-independent output.
func (m *TemplateMiner) Mine(messages []string) MiningResult {
	processor := NewDrainProcessor(m.config)

	processed := make([]string, len(messages))
	for i, msg := range messages {
		processed[i] = PreProcess(msg)
		if processed[i] != "" {
			processor.Train(processed[i])
		}
	}

	result := MiningResult{Patterns: make([]string, len(messages))}
	counts := make(map[string]int)
	for i, msg := range processed {
		if msg == "" {
			continue
		}
		pattern := msg
		if cluster := processor.Match(msg); cluster != nil {
			pattern = extractPattern(cluster.String())
		}
		result.Patterns[i] = pattern
		counts[pattern]++
	}

	for pattern, count := range counts {
		result.Templates = append(result.Templates, Template{
			ID:      GenerateTemplateID(pattern),
			Pattern: pattern,
			Count:   count,
		})
	}
	sort.Slice(result.Templates, func(i, j int) bool {
		if result.Templates[i].Count != result.Templates[j].Count {
			return result.Templates[i].Count > result.Templates[j].Count
		}
		return result.Templates[i].Pattern < result.Templates[j].Pattern
	})

	return result
}

// extractPattern pulls the pattern out of drain's cluster string, which is
// formatted "id={X} : size={Y} : [pattern]".
func extractPattern(clusterStr string) string {
	lastSep := strings.LastIndex(clusterStr, " : ")
	if lastSep == -1 {
		return clusterStr
	}
	return strings.TrimSpace(clusterStr[lastSep+3:])
}
