// Package report renders an analysis report for the terminal.
package report

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"golang.org/x/term"

	"github.com/moolen/faultline/internal/models"
)

// Renderer writes a human-readable report. Colors are only emitted when the
// writer is a terminal.
type Renderer struct {
	out    io.Writer
	width  int
	styles styles
}

type styles struct {
	title   lipgloss.Style
	section lipgloss.Style
	muted   lipgloss.Style
	header  lipgloss.Style
	cell    lipgloss.Style
	border  lipgloss.Style
	risk    map[models.RiskCategory]lipgloss.Style
	prio    map[models.Priority]lipgloss.Style
}

// NewRenderer creates a renderer for out. Tables are fitted to the terminal
// width when out is one and left unconstrained otherwise.
func NewRenderer(out io.Writer) *Renderer {
	width := 0
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 40 {
			width = w
		}
	}
	return &Renderer{
		out:    out,
		width:  width,
		styles: newStyles(lipgloss.NewRenderer(out)),
	}
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		title:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("#00D4FF")),
		section: r.NewStyle().Bold(true).MarginTop(1),
		muted:   r.NewStyle().Foreground(lipgloss.Color("#6B7280")),
		header:  r.NewStyle().Bold(true).Padding(0, 1),
		cell:    r.NewStyle().Padding(0, 1),
		border:  r.NewStyle().Foreground(lipgloss.Color("#4B5563")),
		risk: map[models.RiskCategory]lipgloss.Style{
			models.RiskHigh:    r.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("#f44336")),
			models.RiskMedium:  r.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("#ff9800")),
			models.RiskLow:     r.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("#ffc107")),
			models.RiskMinimal: r.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("#4caf50")),
		},
		prio: map[models.Priority]lipgloss.Style{
			models.PriorityHigh:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("#EF4444")),
			models.PriorityMedium: r.NewStyle().Foreground(lipgloss.Color("#F59E0B")),
			models.PriorityLow:    r.NewStyle().Foreground(lipgloss.Color("#6B7280")),
		},
	}
}

// Render writes every section of rep.
func (r *Renderer) Render(rep *models.Report) error {
	if rep == nil {
		return fmt.Errorf("nil report")
	}

	var b strings.Builder
	b.WriteString(r.styles.title.Render("Error analytics report"))
	b.WriteString("\n")
	b.WriteString(r.styles.muted.Render(fmt.Sprintf("run %s, %d records, generated %s",
		rep.RunID, rep.RecordCount, rep.GeneratedAt.UTC().Format("2006-01-02 15:04:05 MST"))))
	b.WriteString("\n")

	r.summary(&b, rep.Summary)
	r.risk(&b, rep.Profiles)
	r.categories(&b, rep.Categorization)
	r.rootCauses(&b, rep.RootCauses)
	r.diagnostics(&b, rep.Diagnostics)

	_, err := io.WriteString(r.out, b.String())
	return err
}

func (r *Renderer) summary(b *strings.Builder, s models.InsightsSummary) {
	r.heading(b, "Summary")
	fmt.Fprintf(b, "Users analyzed:   %d\n", s.TotalUsersAnalyzed)
	fmt.Fprintf(b, "High-risk users:  %d (%.1f%%)\n", s.HighRiskUsers, s.RiskPercentage)
	fmt.Fprintf(b, "Categories:       %d (%d outliers)\n", s.TotalCategoriesFound, s.OutlierErrors)
	fmt.Fprintf(b, "Insights:         %d\n", s.InsightsGenerated)
}

func (r *Renderer) risk(b *strings.Builder, profiles []models.UserRiskProfile) {
	r.heading(b, "User risk")
	if len(profiles) == 0 {
		b.WriteString(r.styles.muted.Render("no users"))
		b.WriteString("\n")
		return
	}

	rows := make([][]string, 0, len(profiles))
	for _, p := range profiles {
		insight := ""
		if len(p.Insights) > 0 {
			insight = p.Insights[0]
		}
		rows = append(rows, []string{
			p.User,
			fmt.Sprintf("%.1f", p.RiskScore),
			string(p.Category),
			fmt.Sprintf("%d", p.TotalErrors),
			fmt.Sprintf("%d", p.CriticalErrors),
			p.MostCommonError,
			insight,
		})
	}

	t := r.table("User", "Score", "Risk", "Errors", "Critical", "Most common", "Top insight").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return r.styles.header
			}
			if col == 2 {
				if style, ok := r.styles.risk[profiles[row].Category]; ok {
					return style
				}
			}
			return r.styles.cell
		})
	b.WriteString(t.Render())
	b.WriteString("\n")
}

func (r *Renderer) categories(b *strings.Builder, cat *models.CategorizationResult) {
	r.heading(b, "Categories")
	if cat == nil || cat.TotalClusters == 0 {
		b.WriteString(r.styles.muted.Render("no clusters"))
		b.WriteString("\n")
	} else {
		rows := make([][]string, 0, cat.TotalClusters)
		for _, key := range cat.CategoryKeys() {
			c := cat.Categories[key]
			rows = append(rows, []string{
				key,
				c.Name,
				fmt.Sprintf("%d", c.Count),
				c.CommonPatterns.CommonSeverity.String(),
				c.CommonPatterns.UserConcentration,
				c.CommonPatterns.CommonTime,
			})
		}
		t := r.table("Key", "Name", "Size", "Severity", "Users", "Hour").Rows(rows...)
		b.WriteString(t.Render())
		b.WriteString("\n")
	}

	if cat == nil {
		return
	}
	if cat.Outliers > 0 {
		fmt.Fprintf(b, "Outliers: %d\n", cat.Outliers)
	}
	for _, s := range cat.Suggestions {
		prio := r.styles.prio[s.Priority].Render(fmt.Sprintf("[%s]", s.Priority))
		fmt.Fprintf(b, "%s %s: %s\n", prio, s.Category, s.Suggestion)
	}
}

func (r *Renderer) rootCauses(b *strings.Builder, causes []models.RootCauseSuggestion) {
	r.heading(b, "Root-cause suggestions")
	if len(causes) == 0 {
		b.WriteString(r.styles.muted.Render("none"))
		b.WriteString("\n")
		return
	}
	for i, c := range causes {
		fmt.Fprintf(b, "%d. %s (confidence %.2f, %d errors)\n", i+1, c.Title, c.Confidence, c.ErrorCount)
		fmt.Fprintf(b, "   %s\n", c.Description)
		if c.Suggestion != "" {
			fmt.Fprintf(b, "   %s\n", r.styles.muted.Render(c.Suggestion))
		}
	}
}

func (r *Renderer) diagnostics(b *strings.Builder, diags []models.Diagnostic) {
	if len(diags) == 0 {
		return
	}
	r.heading(b, fmt.Sprintf("Excluded records (%d)", len(diags)))
	for _, d := range diags {
		id := "-"
		if d.RecordID != nil {
			id = fmt.Sprintf("%d", *d.RecordID)
		}
		fmt.Fprintf(b, "#%d id=%s: %s\n", d.Index, id, d.Reason)
	}
}

func (r *Renderer) heading(b *strings.Builder, title string) {
	b.WriteString(r.styles.section.Render(title))
	b.WriteString("\n")
}

func (r *Renderer) table(headers ...string) *table.Table {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(r.styles.border).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return r.styles.header
			}
			return r.styles.cell
		})
	if r.width > 0 {
		t = t.Width(r.width)
	}
	return t
}
