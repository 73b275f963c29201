package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"product-strategy-gateway/internal/feedback"
	"product-strategy-gateway/internal/gateway"
	"product-strategy-gateway/pkg/types"
)

// Formatter renders command results
type Formatter interface {
	FormatAnalysis(a *types.Analysis) error
	FormatModelSuggestion(s *gateway.ModelSuggestion) error
	FormatChallenges(challenges []types.Challenge) error
	FormatSolutions(solutions []types.Solution) error
	FormatPackageSuggestion(s *gateway.PackageSuggestion) error
	FormatChatDescription(d *gateway.ChatDescription) error
	FormatFeedback(text string, items []types.FeedbackItem) error
	FormatStrategies(strategies []*types.Strategy) error
}

// TableFormatter formats output as ASCII tables
type TableFormatter struct {
	writer io.Writer
}

// NewTableFormatter creates a new table formatter
func NewTableFormatter(w io.Writer) Formatter {
	return &TableFormatter{writer: w}
}

// FormatAnalysis prints the DEEP scores, component scores and the summary
func (f *TableFormatter) FormatAnalysis(a *types.Analysis) error {
	table := tablewriter.NewWriter(f.writer)
	table.Header("Dimension", "Score")
	_ = table.Append([]string{"Desirability", score(a.DeepScore.Desirability)})
	_ = table.Append([]string{"Effectiveness", score(a.DeepScore.Effectiveness)})
	_ = table.Append([]string{"Efficiency", score(a.DeepScore.Efficiency)})
	_ = table.Append([]string{"Polish", score(a.DeepScore.Polish)})
	_ = table.Append([]string{"Average", score(a.DeepScore.Average())})
	if err := table.Render(); err != nil {
		return err
	}

	components := tablewriter.NewWriter(f.writer)
	components.Header("Component", "Score")
	for _, name := range types.Components() {
		if s, ok := a.ComponentScores[name]; ok {
			_ = components.Append([]string{gateway.Label(name), strconv.Itoa(s)})
		}
	}
	if err := components.Render(); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(f.writer, "\n%s\n", a.Summary)
	f.list("Strengths", a.Strengths)
	f.list("Weaknesses", a.Weaknesses)
	f.list("Recommendations", a.Recommendations)
	return nil
}

// FormatModelSuggestion prints the recommended model and its alternatives
func (f *TableFormatter) FormatModelSuggestion(s *gateway.ModelSuggestion) error {
	_, _ = fmt.Fprintf(f.writer, "%s %s\n%s\n", color.New(color.Bold).Sprint("Recommended:"), s.Model, s.Reasoning)
	f.list("Considerations", s.Considerations)
	if len(s.Alternatives) == 0 {
		return nil
	}

	table := tablewriter.NewWriter(f.writer)
	table.Header("Alternative", "Reasoning")
	for _, alt := range s.Alternatives {
		_ = table.Append([]string{string(alt.Model), alt.Reasoning})
	}
	return table.Render()
}

// FormatChallenges prints suggested challenges
func (f *TableFormatter) FormatChallenges(challenges []types.Challenge) error {
	if len(challenges) == 0 {
		_, _ = fmt.Fprintln(f.writer, "No challenges suggested.")
		return nil
	}
	table := tablewriter.NewWriter(f.writer)
	table.Header("#", "Level", "Magnitude", "Title")
	for i, c := range challenges {
		_ = table.Append([]string{strconv.Itoa(i + 1), string(c.Level), strconv.Itoa(c.Magnitude), c.Title})
	}
	return table.Render()
}

// FormatSolutions prints suggested solutions
func (f *TableFormatter) FormatSolutions(solutions []types.Solution) error {
	if len(solutions) == 0 {
		_, _ = fmt.Fprintln(f.writer, "No solutions suggested.")
		return nil
	}
	table := tablewriter.NewWriter(f.writer)
	table.Header("Challenge", "Type", "Cost", "Impact", "Solution")
	for _, s := range solutions {
		_ = table.Append([]string{s.ChallengeID, string(s.Type), string(s.Cost), string(s.Impact), s.Text})
	}
	return table.Render()
}

// FormatPackageSuggestion prints features by tier and the pricing strategy
func (f *TableFormatter) FormatPackageSuggestion(s *gateway.PackageSuggestion) error {
	table := tablewriter.NewWriter(f.writer)
	table.Header("Tier", "Category", "Feature", "Limit")
	for _, feature := range s.Features {
		limit := ""
		if feature.Limits != nil {
			limit = feature.Limits.Value + " " + feature.Limits.Type
		}
		_ = table.Append([]string{string(feature.Tier), string(feature.Category), feature.Name, limit})
	}
	if err := table.Render(); err != nil {
		return err
	}

	if p := s.PricingStrategy; p != nil {
		_, _ = fmt.Fprintf(f.writer, "\nPricing: %s, %s (target conversion %.0f%%)\n", p.Model, p.Basis, p.PaidPackage.TargetConversion)
		f.list("Value metrics", p.PaidPackage.ValueMetrics)
	}
	return nil
}

// FormatChatDescription prints the description and its key points
func (f *TableFormatter) FormatChatDescription(d *gateway.ChatDescription) error {
	_, _ = fmt.Fprintln(f.writer, d.Description)
	f.list("Key points", d.KeyPoints)
	return nil
}

// FormatFeedback prints the text with highlighted spans followed by the suggestions
func (f *TableFormatter) FormatFeedback(text string, items []types.FeedbackItem) error {
	if len(items) == 0 {
		_, _ = fmt.Fprintln(f.writer, "No feedback.")
		return nil
	}

	var b strings.Builder
	for _, seg := range feedback.Segments(text, items) {
		if seg.Item == nil {
			b.WriteString(seg.Text)
			continue
		}
		b.WriteString(feedbackColor(seg.Item.Type).Sprint(seg.Text))
	}
	_, _ = fmt.Fprintf(f.writer, "%s\n\n", b.String())

	table := tablewriter.NewWriter(f.writer)
	table.Header("Type", "Category", "Text", "Suggestion")
	for _, item := range feedback.Sort(items) {
		_ = table.Append([]string{string(item.Type), item.Category, item.Text, item.Suggestion})
	}
	return table.Render()
}

// FormatStrategies lists saved strategies
func (f *TableFormatter) FormatStrategies(strategies []*types.Strategy) error {
	if len(strategies) == 0 {
		_, _ = fmt.Fprintln(f.writer, "No strategies found.")
		return nil
	}

	table := tablewriter.NewWriter(f.writer)
	table.Header("ID", "Title", "Model", "Public", "Score", "Updated")
	for _, s := range strategies {
		avg := "-"
		if s.AnalysisResults != nil {
			avg = score(s.AnalysisResults.DeepScore.Average())
		}
		_ = table.Append([]string{
			s.ID,
			s.Title,
			string(s.SelectedModel),
			strconv.FormatBool(s.IsPublic),
			avg,
			s.UpdatedAt.Format("2006-01-02 15:04"),
		})
	}
	if err := table.Render(); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(f.writer, "\nTotal: %d strategies\n", len(strategies))
	return nil
}

func (f *TableFormatter) list(title string, lines []string) {
	if len(lines) == 0 {
		return
	}
	_, _ = fmt.Fprintf(f.writer, "\n%s\n", color.New(color.Bold).Sprint(title))
	for _, line := range lines {
		_, _ = fmt.Fprintf(f.writer, "  - %s\n", line)
	}
}

func score(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

func feedbackColor(t types.FeedbackType) *color.Color {
	switch t {
	case types.FeedbackWarning:
		return color.New(color.FgRed, color.Underline)
	case types.FeedbackPositive:
		return color.New(color.FgGreen, color.Underline)
	default:
		return color.New(color.FgYellow, color.Underline)
	}
}

// JSONFormatter formats output as indented JSON
type JSONFormatter struct {
	writer io.Writer
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter(w io.Writer) Formatter {
	return &JSONFormatter{writer: w}
}

func (f *JSONFormatter) write(v interface{}) error {
	enc := json.NewEncoder(f.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (f *JSONFormatter) FormatAnalysis(a *types.Analysis) error { return f.write(a) }

func (f *JSONFormatter) FormatModelSuggestion(s *gateway.ModelSuggestion) error { return f.write(s) }

func (f *JSONFormatter) FormatChallenges(challenges []types.Challenge) error {
	return f.write(challenges)
}

func (f *JSONFormatter) FormatSolutions(solutions []types.Solution) error {
	return f.write(solutions)
}

func (f *JSONFormatter) FormatPackageSuggestion(s *gateway.PackageSuggestion) error {
	return f.write(s)
}

func (f *JSONFormatter) FormatChatDescription(d *gateway.ChatDescription) error { return f.write(d) }

func (f *JSONFormatter) FormatFeedback(text string, items []types.FeedbackItem) error {
	return f.write(map[string]interface{}{
		"items":    items,
		"segments": feedback.Segments(text, items),
	})
}

func (f *JSONFormatter) FormatStrategies(strategies []*types.Strategy) error {
	return f.write(strategies)
}
