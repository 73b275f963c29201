// Package export renders saved strategies as markdown or HTML documents
package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"product-strategy-gateway/internal/gateway"
	"product-strategy-gateway/pkg/types"
)

// Format is an export format
type Format string

const (
	FormatMarkdown Format = "md"
	FormatHTML     Format = "html"
)

// ParseFormat maps a query value to a Format; empty means markdown
func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "md", "markdown":
		return FormatMarkdown, nil
	case "html":
		return FormatHTML, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", value)
	}
}

// ContentType returns the MIME type of the format
func (f Format) ContentType() string {
	if f == FormatHTML {
		return "text/html; charset=utf-8"
	}
	return "text/markdown; charset=utf-8"
}

// Exporter renders strategies. Raw HTML in user text is never passed through.
type Exporter struct {
	md goldmark.Markdown
}

// NewExporter creates an exporter with GitHub-flavored tables and lists
func NewExporter() *Exporter {
	return &Exporter{md: goldmark.New(goldmark.WithExtensions(extension.GFM))}
}

var defaultExporter = NewExporter()

// Markdown renders a strategy as markdown
func Markdown(s *types.Strategy) []byte {
	return defaultExporter.Markdown(s)
}

// HTML renders a strategy as an HTML fragment
func HTML(s *types.Strategy) ([]byte, error) {
	return defaultExporter.HTML(s)
}

// Render renders a strategy in the given format
func (e *Exporter) Render(s *types.Strategy, format Format) ([]byte, error) {
	if format == FormatHTML {
		return e.HTML(s)
	}
	return e.Markdown(s), nil
}

// HTML renders the markdown of a strategy to HTML
func (e *Exporter) HTML(s *types.Strategy) ([]byte, error) {
	var buf bytes.Buffer
	if err := e.md.Convert(e.Markdown(s), &buf); err != nil {
		return nil, fmt.Errorf("failed to render strategy %s: %w", s.ID, err)
	}
	return buf.Bytes(), nil
}

// Markdown renders a strategy as markdown
func (e *Exporter) Markdown(s *types.Strategy) []byte {
	var d doc

	title := strings.TrimSpace(s.Title)
	if title == "" {
		title = "Untitled strategy"
	}
	d.printf("# %s\n\n", title)
	if s.SelectedModel != "" {
		d.printf("_Monetization model: %s_\n\n", gateway.Label(string(s.SelectedModel)))
	}

	d.heading("Product")
	d.paragraph(s.ProductDescription)

	d.heading("Ideal User")
	d.idealUser(s.IdealUser)

	d.heading("User Endgame")
	d.outcomes(s.Outcomes)

	d.heading("Challenges")
	d.challenges(s.Challenges)

	d.heading("Solutions")
	d.solutions(s.Solutions, s.Challenges)

	d.heading("Package Features")
	d.features(s.Features)

	d.heading("Pricing Strategy")
	d.pricing(s.PricingStrategy)

	d.heading("User Journey")
	d.journey(s.UserJourney)

	if s.AnalysisResults != nil {
		d.analysis(s.AnalysisResults)
	}

	return d.buf.Bytes()
}

type doc struct {
	buf bytes.Buffer
}

func (d *doc) printf(format string, args ...interface{}) {
	fmt.Fprintf(&d.buf, format, args...)
}

func (d *doc) heading(title string) {
	d.printf("## %s\n\n", title)
}

func (d *doc) subheading(title string) {
	d.printf("### %s\n\n", title)
}

func (d *doc) paragraph(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		text = gateway.NotSpecified
	}
	d.printf("%s\n\n", text)
}

func (d *doc) list(items []string) {
	if len(items) == 0 {
		d.paragraph("")
		return
	}
	for _, item := range items {
		d.printf("- %s\n", item)
	}
	d.printf("\n")
}

func (d *doc) table(header []string, rows [][]string) {
	d.printf("| %s |\n", strings.Join(header, " | "))
	seps := make([]string, len(header))
	for i := range seps {
		seps[i] = "---"
	}
	d.printf("| %s |\n", strings.Join(seps, " | "))
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = cell
			if cell == "" {
				cells[i] = "-"
			}
			cells[i] = strings.ReplaceAll(cells[i], "|", `\|`)
			cells[i] = strings.ReplaceAll(cells[i], "\n", " ")
		}
		d.printf("| %s |\n", strings.Join(cells, " | "))
	}
	d.printf("\n")
}

func (d *doc) idealUser(u *types.IdealUser) {
	if u.IsEmpty() {
		d.paragraph("")
		return
	}
	d.printf("**%s**\n\n", orNotSpecified(u.Title))
	if u.Description != "" {
		d.paragraph(u.Description)
	}
	d.printf("- Motivation: %s\n", orNotSpecified(string(u.Motivation)))
	d.printf("- Ability: %s\n", orNotSpecified(string(u.Ability)))
	if len(u.Traits) > 0 {
		d.printf("- Traits: %s\n", strings.Join(u.Traits, ", "))
	}
	if u.Impact != "" {
		d.printf("- Impact: %s\n", u.Impact)
	}
	d.printf("\n")
}

func (d *doc) outcomes(outcomes []types.UserOutcome) {
	var lines []string
	for _, level := range types.Levels() {
		for _, o := range outcomes {
			if o.Level == level && strings.TrimSpace(o.Text) != "" {
				lines = append(lines, fmt.Sprintf("**%s:** %s", gateway.Label(string(level)), o.Text))
			}
		}
	}
	d.list(lines)
}

func (d *doc) challenges(challenges []types.Challenge) {
	if len(challenges) == 0 {
		d.paragraph("")
		return
	}
	rows := make([][]string, 0, len(challenges))
	for _, c := range challenges {
		rows = append(rows, []string{c.Title, gateway.Label(string(c.Level)), fmt.Sprintf("%d/5", c.Magnitude), c.Description})
	}
	d.table([]string{"Challenge", "Level", "Magnitude", "Description"}, rows)
}

func (d *doc) solutions(solutions []types.Solution, challenges []types.Challenge) {
	if len(solutions) == 0 {
		d.paragraph("")
		return
	}
	rows := make([][]string, 0, len(solutions))
	for _, s := range solutions {
		addresses := ""
		if c, ok := types.ChallengeByID(challenges, s.ChallengeID); ok {
			addresses = c.Title
		}
		rows = append(rows, []string{
			s.Text, gateway.Label(string(s.Type)), gateway.Label(string(s.Cost)), gateway.Label(string(s.Impact)), addresses,
		})
	}
	d.table([]string{"Solution", "Type", "Cost", "Impact", "Addresses"}, rows)
}

func (d *doc) features(features []types.PackageFeature) {
	if len(features) == 0 {
		d.paragraph("")
		return
	}
	rows := make([][]string, 0, len(features))
	for _, tier := range []types.Tier{types.TierFree, types.TierPaid} {
		for _, f := range features {
			if f.Tier != tier {
				continue
			}
			limit := ""
			if f.Limits != nil {
				limit = strings.TrimSpace(f.Limits.Value + " " + f.Limits.Type)
			}
			rows = append(rows, []string{f.Name, gateway.Label(string(f.Tier)), gateway.Label(string(f.Category)), limit, f.Description})
		}
	}
	d.table([]string{"Feature", "Tier", "Category", "Limit", "Description"}, rows)
}

func (d *doc) pricing(p *types.PricingStrategy) {
	if p == nil {
		d.paragraph("")
		return
	}
	d.printf("- Model: %s\n", gateway.Label(string(p.Model)))
	d.printf("- Basis: %s\n", gateway.Label(string(p.Basis)))
	d.printf("- Target conversion: %g%%\n\n", p.PaidPackage.TargetConversion)

	d.subheading("Free Package")
	d.list(append(append(append([]string{}, p.FreePackage.Features...), prefixed("Limit: ", p.FreePackage.Limitations)...),
		prefixed("Goal: ", p.FreePackage.ConversionGoals)...))

	d.subheading("Paid Package")
	d.list(append(append([]string{}, p.PaidPackage.Features...), prefixed("Value metric: ", p.PaidPackage.ValueMetrics)...))
}

func (d *doc) journey(journey types.UserJourney) {
	if len(journey) == 0 {
		d.paragraph("")
		return
	}
	lines := make([]string, 0, len(types.JourneyStages()))
	for _, stage := range types.JourneyStages() {
		lines = append(lines, fmt.Sprintf("**%s:** %s", gateway.Label(string(stage)), orNotSpecified(journey[stage])))
	}
	d.list(lines)
}

func (d *doc) analysis(a *types.Analysis) {
	d.heading("Analysis")
	d.paragraph(a.Summary)

	d.subheading("DEEP Score")
	d.table([]string{"Desirability", "Effectiveness", "Efficiency", "Polish", "Average"}, [][]string{{
		score(a.DeepScore.Desirability), score(a.DeepScore.Effectiveness),
		score(a.DeepScore.Efficiency), score(a.DeepScore.Polish), score(a.DeepScore.Average()),
	}})

	d.subheading("Strengths")
	d.list(a.Strengths)
	d.subheading("Weaknesses")
	d.list(a.Weaknesses)
	d.subheading("Recommendations")
	d.list(a.Recommendations)

	if len(a.ComponentScores) > 0 {
		d.subheading("Component Scores")
		var rows [][]string
		for _, name := range types.Components() {
			if v, ok := a.ComponentScores[name]; ok {
				rows = append(rows, []string{gateway.Label(name), fmt.Sprintf("%d", v)})
			}
		}
		d.table([]string{"Component", "Score"}, rows)
	}

	d.subheading("Action Plan")
	d.list(append(append(append([]string{},
		prefixed("Now: ", a.ActionPlan.Immediate)...),
		prefixed("Next: ", a.ActionPlan.Medium)...),
		prefixed("Later: ", a.ActionPlan.Long)...))

	if len(a.Testing.ABTests) > 0 || len(a.Testing.Metrics) > 0 {
		d.subheading("Experiments")
		for _, t := range a.Testing.ABTests {
			d.printf("- %s (variants: %s; metric: %s)\n", t.Hypothesis, strings.Join(t.Variants, ", "), t.SuccessMetric)
		}
		for _, m := range a.Testing.Metrics {
			d.printf("- Metric %s: %s within %s\n", m.Name, m.Target, m.Timeframe)
		}
		d.printf("\n")
	}

	d.subheading("Journey Analysis")
	rows := make([][]string, 0, len(types.JourneyStages()))
	for _, stage := range types.JourneyStages() {
		sa := a.JourneyAnalysis.Stage(stage)
		rows = append(rows, []string{gateway.Label(string(stage)), score(sa.Score), sa.Analysis})
	}
	d.table([]string{"Stage", "Score", "Analysis"}, rows)
}

func prefixed(prefix string, items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, prefix+item)
	}
	return out
}

func score(v float64) string {
	return fmt.Sprintf("%.1f", v)
}

func orNotSpecified(s string) string {
	if strings.TrimSpace(s) == "" {
		return gateway.NotSpecified
	}
	return s
}
