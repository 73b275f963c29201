package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"product-strategy-gateway/pkg/types"
)

func savedStrategy() *types.Strategy {
	return &types.Strategy{
		ID:                 "s1",
		Title:              "Freelancer CRM",
		ProductDescription: "A CRM for freelancers",
		SelectedModel:      types.ModelNewProductFreemium,
		IdealUser: &types.IdealUser{
			Title:      "Freelance designer",
			Motivation: types.RatingHigh,
			Ability:    types.RatingMedium,
			Traits:     []string{"busy", "visual"},
		},
		Outcomes: []types.UserOutcome{
			{Level: types.LevelAdvanced, Text: "runs a studio"},
			{Level: types.LevelBeginner, Text: "tracks clients"},
		},
		Challenges: []types.Challenge{{ID: "c1", Title: "Scattered notes", Level: types.LevelBeginner, Magnitude: 4}},
		Solutions: []types.Solution{
			{ID: "x1", ChallengeID: "c1", Text: "Timeline | view", Type: types.SolutionTypeProduct, Cost: types.ScaleLow, Impact: types.ScaleHigh},
		},
		Features: []types.PackageFeature{
			{Name: "Seats", Category: types.CategoryConnection, Tier: types.TierPaid},
			{Name: "Timeline", Category: types.CategoryCore, Tier: types.TierFree, Limits: &types.FeatureLimit{Type: "clients", Value: "5"}},
		},
		PricingStrategy: &types.PricingStrategy{
			Model: types.PricingFreemium,
			Basis: types.BasisPerUser,
			FreePackage: types.FreePackage{
				Features:    []string{"Timeline"},
				Limitations: []string{"5 clients"},
			},
			PaidPackage: types.PaidPackage{Features: []string{"Seats"}, TargetConversion: 4},
		},
		AnalysisResults: &types.Analysis{
			DeepScore:       types.DeepScore{Desirability: 8, Effectiveness: 6, Efficiency: 7, Polish: 5},
			Summary:         "Solid foundation.",
			Strengths:       []string{"Clear user"},
			ComponentScores: map[string]int{"modelSelection": 85, "solutions": 60},
			ActionPlan:      types.ActionPlan{Immediate: []string{"Interview users"}},
			JourneyAnalysis: types.JourneyAnalysis{Signup: types.JourneyStageAnalysis{Score: 80, Analysis: "Low friction"}},
		},
	}
}

func TestMarkdown(t *testing.T) {
	md := string(Markdown(savedStrategy()))

	assert.True(t, strings.HasPrefix(md, "# Freelancer CRM\n"))
	assert.Contains(t, md, "_Monetization model: New Product Freemium_")
	assert.Contains(t, md, "- Motivation: High\n")
	assert.Contains(t, md, "| Scattered notes | Beginner | 4/5 | - |")
	assert.Contains(t, md, `| Timeline \| view | Product | Low | High | Scattered notes |`)
	assert.Contains(t, md, "- Basis: Per User\n")
	assert.Contains(t, md, "- Limit: 5 clients\n")
	assert.Contains(t, md, "| 8.0 | 6.0 | 7.0 | 5.0 | 6.5 |")
	assert.Contains(t, md, "| Model Selection | 85 |")
	assert.Contains(t, md, "- Now: Interview users\n")
	assert.Contains(t, md, "| Signup | 80.0 | Low friction |")
	assert.Contains(t, md, "## User Journey\n\nNot specified\n")

	// outcomes follow level order, features list free before paid
	assert.Less(t, strings.Index(md, "tracks clients"), strings.Index(md, "runs a studio"))
	assert.Less(t, strings.Index(md, "| Timeline | Free"), strings.Index(md, "| Seats | Paid"))
}

func TestMarkdown_EmptyStrategy(t *testing.T) {
	md := string(Markdown(&types.Strategy{}))

	assert.True(t, strings.HasPrefix(md, "# Untitled strategy\n"))
	assert.Contains(t, md, "## Product\n\nNot specified\n")
	assert.NotContains(t, md, "## Analysis")
	assert.NotContains(t, md, "Monetization model")
}

func TestHTML(t *testing.T) {
	s := savedStrategy()
	s.ProductDescription = "A CRM <script>alert(1)</script> for freelancers"

	out, err := HTML(s)
	require.NoError(t, err)
	html := string(out)

	assert.Contains(t, html, "<h1>Freelancer CRM</h1>")
	assert.Contains(t, html, "<table>")
	assert.Contains(t, html, "<th>Challenge</th>")
	assert.NotContains(t, html, "<script>")
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatMarkdown, false},
		{"md", FormatMarkdown, false},
		{"Markdown", FormatMarkdown, false},
		{"html", FormatHTML, false},
		{"pdf", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	assert.Equal(t, "text/html; charset=utf-8", FormatHTML.ContentType())
}

func TestRender(t *testing.T) {
	e := NewExporter()
	md, err := e.Render(savedStrategy(), FormatMarkdown)
	require.NoError(t, err)
	assert.Equal(t, Markdown(savedStrategy()), md)

	html, err := e.Render(savedStrategy(), FormatHTML)
	require.NoError(t, err)
	assert.Contains(t, string(html), "<h2>Analysis</h2>")
}
