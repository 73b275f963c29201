package gateway

import (
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"product-strategy-gateway/pkg/types"
)

// Assemblers attach fresh ids to validated payloads. Ids in the model's reply are
// never trusted, and scored or textual fields are copied unchanged.

// AssembleAnalysis builds the Analysis, keeping persistedID when the record was saved before
func AssembleAnalysis(p *AnalysisPayload, persistedID string) *types.Analysis {
	id := persistedID
	if id == "" {
		id = uuid.New().String()
	}

	scores := make(map[string]int, len(p.ComponentScores))
	for k, v := range p.ComponentScores {
		scores[k] = v
	}
	feedback := make(map[string]types.ComponentFeedback, len(p.ComponentFeedback))
	for k, v := range p.ComponentFeedback {
		feedback[k] = v
	}

	return &types.Analysis{
		ID:                id,
		DeepScore:         p.DeepScore,
		Summary:           p.Summary,
		Strengths:         p.Strengths,
		Weaknesses:        p.Weaknesses,
		Recommendations:   p.Recommendations,
		ComponentScores:   scores,
		ComponentFeedback: feedback,
		ActionPlan:        p.ActionPlan,
		Testing:           p.Testing,
		JourneyAnalysis:   p.JourneyAnalysis,
		CreatedAt:         time.Now().UTC(),
	}
}

// AssembleFeedback anchors feedback to text. Offsets are clamped to the text's rune
// length and items whose start lies past their end are dropped.
func AssembleFeedback(p *FeedbackPayload, text string) []types.FeedbackItem {
	length := utf8.RuneCountInString(text)
	items := make([]types.FeedbackItem, 0, len(p.Feedback))
	for _, d := range p.Feedback {
		start, end := clamp(d.StartIndex, length), clamp(d.EndIndex, length)
		if start > end {
			continue
		}
		items = append(items, types.FeedbackItem{
			ID:         uuid.New().String(),
			Text:       d.Text,
			Suggestion: d.Suggestion,
			Type:       d.Type,
			Category:   d.Category,
			StartIndex: start,
			EndIndex:   end,
		})
	}
	return items
}

func clamp(v, length int) int {
	if v < 0 {
		return 0
	}
	if v > length {
		return length
	}
	return v
}

// AssembleChallenges builds challenges in reply order
func AssembleChallenges(p *ChallengePayload) []types.Challenge {
	out := make([]types.Challenge, 0, len(p.Challenges))
	for _, d := range p.Challenges {
		out = append(out, types.Challenge{
			ID:          uuid.New().String(),
			Title:       d.Title,
			Description: d.Description,
			Level:       d.Level,
			Magnitude:   d.Magnitude,
		})
	}
	return out
}

// AssembleSolutions builds solutions bound to challengeID
func AssembleSolutions(p *SolutionPayload, challengeID string) []types.Solution {
	out := make([]types.Solution, 0, len(p.Solutions))
	for _, d := range p.Solutions {
		out = append(out, types.Solution{
			ID:          uuid.New().String(),
			ChallengeID: challengeID,
			Text:        d.Text,
			Type:        d.Type,
			Cost:        d.Cost,
			Impact:      d.Impact,
		})
	}
	return out
}

// AssembleFeatures builds package features in reply order
func AssembleFeatures(p *PackagePayload) []types.PackageFeature {
	out := make([]types.PackageFeature, 0, len(p.Features))
	for _, d := range p.Features {
		var limits *types.FeatureLimit
		if d.Limits != nil {
			l := *d.Limits
			limits = &l
		}
		out = append(out, types.PackageFeature{
			ID:          uuid.New().String(),
			Name:        d.Name,
			Description: d.Description,
			Category:    d.Category,
			Tier:        d.Tier,
			Limits:      limits,
		})
	}
	return out
}

// AssemblePricing passes the validated pricing strategy through
func AssemblePricing(p *PackagePayload) *types.PricingStrategy {
	pricing := p.PricingStrategy
	return &pricing
}
