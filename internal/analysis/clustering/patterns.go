package clustering

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/moolen/faultline/internal/analysis/features"
	"github.com/moolen/faultline/internal/logprocessing"
	"github.com/moolen/faultline/internal/models"
)

const (
	// UniqueErrors is the suggestion category of the outlier set.
	UniqueErrors = "Unique Errors"
	// UnknownPattern names a category without a usable type or keyword.
	UnknownPattern = "Unknown Pattern"
	unknownType    = "Unknown"
)

// genericWords never name a category.
var genericWords = map[string]struct{}{
	"error": {}, "exception": {}, "failed": {}, "cannot": {},
	"unable": {}, "code": {}, "type": {},
}

func (e *Engine) describe(fs *features.FeatureSet, members []int) models.ErrorCluster {
	records := make([]models.ErrorRecord, len(members))
	ids := make([]int64, len(members))
	templates := make([]string, len(members))
	for i, idx := range members {
		records[i] = fs.Errors[idx].Record
		ids[i] = records[i].ID
		templates[i] = fs.Errors[idx].Template
	}

	patterns := e.commonPatterns(fs, members, records, templates)
	return models.ErrorCluster{
		Name:           name(patterns.DominantType, templates),
		Count:          len(records),
		Errors:         ids,
		CommonPatterns: patterns,
	}
}

func (e *Engine) commonPatterns(fs *features.FeatureSet, members []int, records []models.ErrorRecord, templates []string) models.CommonPatterns {
	types := map[string]int{}
	users := map[string]int{}
	hours := map[string]int{}
	tmpl := map[string]int{}
	sevs := map[models.Severity]int{}
	timestamps := make([]time.Time, 0, len(records))

	p := models.CommonPatterns{
		FirstSeen: records[0].Timestamp,
		LastSeen:  records[0].Timestamp,
	}
	for i, r := range records {
		types[r.Type]++
		sevs[r.Severity]++
		hours[fmt.Sprintf("%02d:00", r.Timestamp.UTC().Hour())]++
		if !fs.Errors[members[i]].Anonymous {
			users[r.User]++
		}
		if templates[i] != "" {
			tmpl[templates[i]]++
		}
		timestamps = append(timestamps, r.Timestamp)
		if r.Timestamp.Before(p.FirstSeen) {
			p.FirstSeen = r.Timestamp
		}
		if r.Timestamp.After(p.LastSeen) {
			p.LastSeen = r.Timestamp
		}
	}
	sort.Slice(timestamps, func(i, j int) bool { return timestamps[i].Before(timestamps[j]) })

	p.DominantType, _ = mode(types)
	p.CommonTime, _ = mode(hours)
	p.Template, _ = mode(tmpl)
	p.CommonSeverity = commonSeverity(sevs)

	var n int
	p.PrimaryUser, n = mode(users)
	p.UserConcentration = fmt.Sprintf("%d/%d", n, len(records))

	burst := features.MaxInWindow(timestamps, e.burstWindow)
	p.TimeConcentration = math.Round(1000*float64(burst)/float64(len(records))) / 1000
	return p
}

// name picks the dominant type, or falls back to the two most frequent
// meaningful template words.
func name(dominantType string, templates []string) string {
	if t := strings.TrimSpace(dominantType); t != "" && t != unknownType {
		return t
	}

	counts := map[string]int{}
	for _, tpl := range templates {
		for _, w := range logprocessing.Keywords(tpl) {
			if _, generic := genericWords[w]; generic || len([]rune(w)) <= 3 {
				continue
			}
			counts[w]++
		}
	}
	words := make([]string, 0, len(counts))
	for w := range counts {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if counts[words[i]] != counts[words[j]] {
			return counts[words[i]] > counts[words[j]]
		}
		return words[i] < words[j]
	})
	if len(words) == 0 {
		return UnknownPattern
	}
	if len(words) > 2 {
		words = words[:2]
	}
	for i, w := range words {
		r := []rune(w)
		words[i] = strings.ToUpper(string(r[0])) + string(r[1:])
	}
	return strings.Join(words, " ") + " Related"
}

func (e *Engine) suggest(c models.ErrorCluster) (models.CategorySuggestion, bool) {
	critical := c.CommonPatterns.CommonSeverity == models.SeverityCritical
	if c.Count < e.policy.SuggestionMinSize && !critical {
		return models.CategorySuggestion{}, false
	}

	score := float64(c.Count) * e.severity.For(c.CommonPatterns.CommonSeverity)
	priority := models.PriorityLow
	switch {
	case score >= e.policy.HighPriorityScore:
		priority = models.PriorityHigh
	case score >= e.policy.MediumPriorityScore:
		priority = models.PriorityMedium
	}

	return models.CategorySuggestion{
		Category:   c.Name,
		Suggestion: fmt.Sprintf("Consider creating a specific handler for '%s' - %d similar errors detected", c.Name, c.Count),
		Priority:   priority,
	}, true
}

// mode returns the most frequent key; ties resolve to the smallest key.
func mode(counts map[string]int) (string, int) {
	best, bestN := "", 0
	for k, n := range counts {
		if n > bestN || (n == bestN && k < best) {
			best, bestN = k, n
		}
	}
	return best, bestN
}

// commonSeverity returns the most frequent severity; ties resolve to the
// more severe level.
func commonSeverity(counts map[models.Severity]int) models.Severity {
	best, bestN := models.SeverityLow, 0
	for s, n := range counts {
		if n > bestN || (n == bestN && s > best) {
			best, bestN = s, n
		}
	}
	return best
}
