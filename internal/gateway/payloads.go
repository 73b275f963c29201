package gateway

import (
	"product-strategy-gateway/pkg/types"
)

// Validated reply shapes, one per task. Field tags match the task schemas.

// AnalysisPayload is the analysis reply before ids and timestamps are attached
type AnalysisPayload struct {
	DeepScore         types.DeepScore                    `json:"deepScore"`
	Summary           string                             `json:"summary"`
	Strengths         []string                           `json:"strengths"`
	Weaknesses        []string                           `json:"weaknesses"`
	Recommendations   []string                           `json:"recommendations"`
	ComponentScores   map[string]int                     `json:"componentScores"`
	ComponentFeedback map[string]types.ComponentFeedback `json:"componentFeedback"`
	ActionPlan        types.ActionPlan                   `json:"actionPlan"`
	Testing           types.Testing                      `json:"testing"`
	JourneyAnalysis   types.JourneyAnalysis              `json:"journeyAnalysis"`
}

// FeedbackDraft is one critique as the model returned it
type FeedbackDraft struct {
	Text       string             `json:"text"`
	Suggestion string             `json:"suggestion"`
	Type       types.FeedbackType `json:"type"`
	Category   string             `json:"category"`
	StartIndex int                `json:"startIndex"`
	EndIndex   int                `json:"endIndex"`
}

type FeedbackPayload struct {
	Feedback []FeedbackDraft `json:"feedback"`
}

// ChatDescription is the product description distilled from a conversation
type ChatDescription struct {
	Description string   `json:"description"`
	KeyPoints   []string `json:"keyPoints"`
}

// ModelAlternative is a runner-up monetization model
type ModelAlternative struct {
	Model     types.ModelType `json:"model"`
	Reasoning string          `json:"reasoning"`
}

// ModelSuggestion recommends a monetization model
type ModelSuggestion struct {
	Model          types.ModelType    `json:"model"`
	Reasoning      string             `json:"reasoning"`
	Considerations []string           `json:"considerations"`
	Alternatives   []ModelAlternative `json:"alternatives"`
}

type ChallengeDraft struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Level       types.Level `json:"level"`
	Magnitude   int         `json:"magnitude"`
}

type ChallengePayload struct {
	Challenges []ChallengeDraft `json:"challenges"`
}

type SolutionDraft struct {
	Text   string             `json:"text"`
	Type   types.SolutionType `json:"type"`
	Cost   types.Scale        `json:"cost"`
	Impact types.Scale        `json:"impact"`
}

type SolutionPayload struct {
	Solutions []SolutionDraft `json:"solutions"`
}

type FeatureDraft struct {
	Name        string                `json:"name"`
	Description string                `json:"description"`
	Category    types.FeatureCategory `json:"category"`
	Tier        types.Tier            `json:"tier"`
	Limits      *types.FeatureLimit   `json:"limits,omitempty"`
}

type PackagePayload struct {
	Features        []FeatureDraft        `json:"features"`
	PricingStrategy types.PricingStrategy `json:"pricingStrategy"`
}

// PackageSuggestion is the assembled package reply
type PackageSuggestion struct {
	Features        []types.PackageFeature `json:"features"`
	PricingStrategy *types.PricingStrategy `json:"pricingStrategy"`
}
