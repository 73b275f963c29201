// Package gateway turns wizard state into structured model requests and turns the
// model's replies back into validated domain types.
package gateway

import (
	"product-strategy-gateway/pkg/types"
)

// Task identifies one kind of structured generation
type Task string

const (
	TaskAnalysis            Task = "analysis"
	TaskFeedback            Task = "feedback"
	TaskChatDescription     Task = "chatDescription"
	TaskModelSuggestion     Task = "modelSuggestion"
	TaskChallengeSuggestion Task = "challengeSuggestion"
	TaskSolutionSuggestion  Task = "solutionSuggestion"
	TaskPackageSuggestion   Task = "packageSuggestion"
)

// Tasks returns every task in a stable order
func Tasks() []Task {
	return []Task{
		TaskAnalysis,
		TaskFeedback,
		TaskChatDescription,
		TaskModelSuggestion,
		TaskChallengeSuggestion,
		TaskSolutionSuggestion,
		TaskPackageSuggestion,
	}
}

// Prompt is the system/user message pair sent for a task
type Prompt struct {
	System string
	User   string
}

// FeedbackRequest asks for a critique of one piece of wizard text
type FeedbackRequest struct {
	Target  types.FeedbackTarget `json:"target"`
	Text    string               `json:"text"`
	Context string               `json:"context,omitempty"`
}

// ChatTurn is one utterance of a voice or chat conversation
type ChatTurn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// ChatDescriptionRequest turns a conversation transcript into a product description
type ChatDescriptionRequest struct {
	Transcript []ChatTurn `json:"transcript"`
}

// ModelSuggestionRequest asks which monetization model fits the product
type ModelSuggestionRequest struct {
	ProductDescription string              `json:"productDescription"`
	IdealUser          *types.IdealUser    `json:"idealUser,omitempty"`
	Outcomes           []types.UserOutcome `json:"outcomes"`
}

// ChallengeSuggestionRequest asks for user challenges, optionally at one level
type ChallengeSuggestionRequest struct {
	ProductDescription string              `json:"productDescription"`
	IdealUser          *types.IdealUser    `json:"idealUser,omitempty"`
	Outcomes           []types.UserOutcome `json:"outcomes"`
	Level              types.Level         `json:"level,omitempty"`
	Existing           []types.Challenge   `json:"existing,omitempty"`
}

// SolutionSuggestionRequest asks for solutions to one challenge
type SolutionSuggestionRequest struct {
	ProductDescription string           `json:"productDescription"`
	Challenge          types.Challenge  `json:"challenge"`
	Existing           []types.Solution `json:"existing,omitempty"`
}

// PackageSuggestionRequest asks for package features and a pricing strategy
type PackageSuggestionRequest struct {
	ProductDescription string                 `json:"productDescription"`
	IdealUser          *types.IdealUser       `json:"idealUser,omitempty"`
	SelectedModel      types.ModelType        `json:"selectedModel,omitempty"`
	Challenges         []types.Challenge      `json:"challenges"`
	Solutions          []types.Solution       `json:"solutions"`
	Existing           []types.PackageFeature `json:"existing,omitempty"`
}
