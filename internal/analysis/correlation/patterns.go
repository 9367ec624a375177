package correlation

import (
	"fmt"
	"sort"
	"time"

	"github.com/moolen/faultline/internal/analysis/features"
	"github.com/moolen/faultline/internal/models"
)

func (s *Synthesizer) clusterSuggestion(fs *features.FeatureSet, key string, c models.ErrorCluster) ranked {
	size := len(c.Errors)
	timestamps := make([]time.Time, 0, size)
	users := map[string]int{}
	for _, id := range c.Errors {
		f, ok := fs.Lookup(id)
		if !ok {
			continue
		}
		timestamps = append(timestamps, f.Record.Timestamp)
		if !f.Anonymous {
			users[f.Record.User]++
		}
	}
	sort.Slice(timestamps, func(i, j int) bool { return timestamps[i].Before(timestamps[j]) })

	burst := features.MaxInWindow(timestamps, s.policy.BurstWindow)
	bursty := burst >= s.policy.BurstMinErrors && float64(burst) >= s.policy.BurstShare*float64(size)

	primary, primaryN := "", 0
	affected := make([]string, 0, len(users))
	for u, n := range users {
		affected = append(affected, u)
		if n > primaryN || (n == primaryN && u < primary) {
			primary, primaryN = u, n
		}
	}
	sort.Strings(affected)

	sev := c.CommonPatterns.CommonSeverity
	window := formatWindow(s.policy.BurstWindow)
	out := models.RootCauseSuggestion{
		ErrorCount:    size,
		Category:      key,
		AffectedUsers: affected,
	}

	switch {
	case sev == models.SeverityCritical && bursty:
		out.Type = TypeCriticalBurst
		out.Title = fmt.Sprintf("Burst of critical '%s' errors", c.Name)
		out.Description = fmt.Sprintf("%d of %d critical-category errors occurred within %s", burst, size, window)
		out.Suggestion = "Investigate system state during this time period - possible cascading failure or external trigger"
	case primary != "" && size >= s.policy.ConcentrationMinSize &&
		float64(primaryN) >= s.policy.ConcentrationShare*float64(size):
		out.Type = TypeUserConcentration
		out.Title = fmt.Sprintf("Recurring failure concentrated on user %s", primary)
		out.Description = fmt.Sprintf("%d/%d '%s' errors come from %s", primaryN, size, c.Name, primary)
		out.Suggestion = fmt.Sprintf("User %s may need specific training on '%s' or there's a systemic issue affecting this user", primary, c.Name)
	case bursty:
		out.Type = TypeTimeBurst
		out.Title = fmt.Sprintf("Error burst detected: %d '%s' errors within %s", burst, c.Name, window)
		out.Description = fmt.Sprintf("%d of %d errors occurred within %s", burst, size, window)
		out.Suggestion = "Investigate system state during this time period - possible cascading failure or external trigger"
	case len(users) >= s.policy.WidespreadUsers:
		out.Type = TypeWidespread
		out.Title = fmt.Sprintf("'%s' affects %d users", c.Name, len(users))
		out.Description = fmt.Sprintf("%d errors spread across %d users", size, len(users))
		out.Suggestion = "Shared dependency or deployment likely - investigate components common to all affected users"
	default:
		out.Type = TypeRecurring
		out.Title = fmt.Sprintf("Recurring '%s' errors", c.Name)
		out.Description = fmt.Sprintf("%d similar errors between %s and %s", size,
			c.CommonPatterns.FirstSeen.UTC().Format(time.RFC3339), c.CommonPatterns.LastSeen.UTC().Format(time.RFC3339))
		out.Suggestion = fmt.Sprintf("Track '%s' as a known issue and add targeted handling", c.Name)
	}

	out.ID = out.Type + ":" + key
	out.Confidence = s.Confidence(size)
	return ranked{RootCauseSuggestion: out, key: float64(size) * (1 + s.severity.For(sev))}
}

func (s *Synthesizer) userSuggestion(p models.UserRiskProfile) ranked {
	return ranked{
		RootCauseSuggestion: models.RootCauseSuggestion{
			ID:    TypeHighRiskUser + ":" + p.User,
			Type:  TypeHighRiskUser,
			Title: fmt.Sprintf("High-risk user %s", p.User),
			Description: fmt.Sprintf("Risk score %.1f with %d critical of %d errors, mostly '%s'",
				p.RiskScore, p.CriticalErrors, p.TotalErrors, p.MostCommonError),
			Confidence:    s.Confidence(p.TotalErrors),
			Suggestion:    fmt.Sprintf("Review recent activity of %s and the workflows behind '%s'", p.User, p.MostCommonError),
			ErrorCount:    p.TotalErrors,
			AffectedUsers: []string{p.User},
		},
		key: float64(p.TotalErrors) * (1 + p.RiskFactors.Severity),
	}
}

type typePair struct{ a, b string }

// typeCorrelations finds error types that occur for the same user on the
// same day.
func (s *Synthesizer) typeCorrelations(fs *features.FeatureSet) []ranked {
	type bucket struct {
		user string
		day  string
	}
	buckets := map[bucket]map[string]struct{}{}
	totals := map[string]int{}
	sevSum := map[string]float64{}
	for i := range fs.Errors {
		r := fs.Errors[i].Record
		totals[r.Type]++
		sevSum[r.Type] += s.severity.For(r.Severity)
		if fs.Errors[i].Anonymous {
			continue
		}
		b := bucket{user: r.User, day: r.Timestamp.UTC().Format(time.DateOnly)}
		if buckets[b] == nil {
			buckets[b] = map[string]struct{}{}
		}
		buckets[b][r.Type] = struct{}{}
	}

	counts := map[typePair]int{}
	pairUsers := map[typePair]map[string]struct{}{}
	for b, set := range buckets {
		types := make([]string, 0, len(set))
		for t := range set {
			types = append(types, t)
		}
		sort.Strings(types)
		for i := 0; i < len(types); i++ {
			for j := i + 1; j < len(types); j++ {
				p := typePair{types[i], types[j]}
				counts[p]++
				if pairUsers[p] == nil {
					pairUsers[p] = map[string]struct{}{}
				}
				pairUsers[p][b.user] = struct{}{}
			}
		}
	}

	var out []ranked
	for p, co := range counts {
		if co < s.policy.CoOccurrenceMin {
			continue
		}
		strength := float64(co) / float64(min(totals[p.a], totals[p.b]))
		if strength < s.policy.CoOccurrenceStrength {
			continue
		}
		users := make([]string, 0, len(pairUsers[p]))
		for u := range pairUsers[p] {
			users = append(users, u)
		}
		sort.Strings(users)

		weight := (sevSum[p.a] + sevSum[p.b]) / float64(totals[p.a]+totals[p.b])
		out = append(out, ranked{
			RootCauseSuggestion: models.RootCauseSuggestion{
				ID:            TypeTypeCorrelation + ":" + p.a + "|" + p.b,
				Type:          TypeTypeCorrelation,
				Title:         fmt.Sprintf("'%s' and '%s' frequently occur together", p.a, p.b),
				Description:   fmt.Sprintf("These error types co-occurred %d times (strength %.2f)", co, strength),
				Confidence:    s.Confidence(co),
				Suggestion:    fmt.Sprintf("Investigate common root cause between '%s' and '%s' - possible shared dependency or workflow issue", p.a, p.b),
				ErrorCount:    co,
				AffectedUsers: users,
			},
			key: float64(co) * (1 + weight),
		})
	}
	return out
}

func formatWindow(d time.Duration) string {
	if d%time.Hour == 0 {
		h := int(d / time.Hour)
		if h == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", h)
	}
	if d >= time.Minute {
		return fmt.Sprintf("%d minutes", int(d/time.Minute))
	}
	return d.String()
}
