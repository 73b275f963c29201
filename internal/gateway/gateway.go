package gateway

import (
	"context"
	"strings"
	"time"

	"product-strategy-gateway/internal/ai"
	gwerrors "product-strategy-gateway/internal/errors"
	"product-strategy-gateway/internal/logging"
	"product-strategy-gateway/pkg/types"
)

// Analysis input fields that must be filled in, in the order the wizard asks for them
const (
	FieldProductDescription = "productDescription"
	FieldUserEndgame        = "userEndgame"
	FieldSelectedModel      = "selectedModel"
	FieldIdealUser          = "idealUser"
)

// MissingRequiredFields lists the empty required fields of input in wizard order.
// The endgame counts as present only when the beginner-level outcome has text.
func MissingRequiredFields(input types.AnalysisInput) []string {
	var missing []string
	if strings.TrimSpace(input.ProductDescription) == "" {
		missing = append(missing, FieldProductDescription)
	}
	if strings.TrimSpace(types.BeginnerEndgame(input.UserEndgame)) == "" {
		missing = append(missing, FieldUserEndgame)
	}
	if input.SelectedModel == "" {
		missing = append(missing, FieldSelectedModel)
	}
	if input.IdealUser.IsEmpty() {
		missing = append(missing, FieldIdealUser)
	}
	return missing
}

// ValidateAnalysisInput rejects input that cannot be analyzed, before any model call
func ValidateAnalysisInput(input types.AnalysisInput) error {
	if missing := MissingRequiredFields(input); len(missing) > 0 {
		return gwerrors.NewRequiredFieldError(missing[0])
	}
	if err := input.Validate(); err != nil {
		return gwerrors.NewValidationError("input", err.Error(), nil)
	}
	return nil
}

// Config configures a Gateway
type Config struct {
	Model string
	// APIKeyConfigured gates text feedback; without it AnalyzeText fails fast
	APIKeyConfigured bool
}

// Gateway runs every structured generation task over one transport
type Gateway struct {
	transport        ai.Transport
	model            string
	apiKeyConfigured bool
	logger           logging.Logger
}

// New creates a Gateway
func New(transport ai.Transport, cfg Config, logger logging.Logger) *Gateway {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return &Gateway{
		transport:        transport,
		model:            cfg.Model,
		apiKeyConfigured: cfg.APIKeyConfigured,
		logger:           logger.WithComponent("gateway"),
	}
}

// generate sends the prompt with the schema attached and parses the reply into T.
// Transport and parse failures both come back as one "Failed while <action>" error.
func generate[T any](ctx context.Context, g *Gateway, schema Schema, prompt Prompt, action string) (*T, error) {
	fn, err := schema.Function()
	if err != nil {
		return nil, gwerrors.NewInternalError("invalid task schema", err)
	}

	start := time.Now()
	g.logger.InfoContext(ctx, "Generation started", "task", schema.Task, "model", g.model)

	result, err := gwerrors.Guard(action, func() (*T, error) {
		reply, sendErr := g.transport.Send(ctx, &ai.ChatRequest{
			Model: g.model,
			Messages: []ai.Message{
				{Role: ai.RoleSystem, Content: prompt.System},
				{Role: ai.RoleUser, Content: prompt.User},
			},
			Function: fn,
		})
		if sendErr != nil {
			return nil, sendErr
		}
		return Parse[T](reply, schema)
	})
	if err != nil {
		g.logger.ErrorContext(ctx, "Generation failed",
			"task", schema.Task,
			"code", gwerrors.Code(err),
			"error", err.Error(),
			"duration_ms", time.Since(start).Milliseconds())
		return nil, err
	}

	g.logger.InfoContext(ctx, "Generation finished", "task", schema.Task, "duration_ms", time.Since(start).Milliseconds())
	return result, nil
}

// GenerateAnalysis produces the DEEP analysis of a complete wizard input
func (g *Gateway) GenerateAnalysis(ctx context.Context, input types.AnalysisInput) (*types.Analysis, error) {
	if err := ValidateAnalysisInput(input); err != nil {
		return nil, err
	}

	payload, err := generate[AnalysisPayload](ctx, g, analysisSchema(), BuildAnalysisPrompt(input), "generating analysis")
	if err != nil {
		return nil, err
	}
	return AssembleAnalysis(payload, ""), nil
}

// AnalyzeText critiques one wizard field. It needs a configured API key and
// returns no items for blank text without calling the model.
func (g *Gateway) AnalyzeText(ctx context.Context, req FeedbackRequest) ([]types.FeedbackItem, error) {
	if !g.apiKeyConfigured {
		return nil, gwerrors.ErrAPIKeyMissing
	}
	if !req.Target.Valid() {
		return nil, gwerrors.NewValidationError("target", "must be one of productDescription, idealUser, userEndgame, challenge, solution", req.Target)
	}
	if strings.TrimSpace(req.Text) == "" {
		return []types.FeedbackItem{}, nil
	}

	payload, err := generate[FeedbackPayload](ctx, g, FeedbackSchema(req.Target), BuildFeedbackPrompt(req), "analyzing text")
	if err != nil {
		return nil, err
	}
	return AssembleFeedback(payload, req.Text), nil
}

// DescribeFromChat distills a product description from a conversation
func (g *Gateway) DescribeFromChat(ctx context.Context, req ChatDescriptionRequest) (*ChatDescription, error) {
	if len(req.Transcript) == 0 {
		return nil, gwerrors.NewRequiredFieldError("transcript")
	}
	return generate[ChatDescription](ctx, g, chatDescriptionSchema(), BuildChatDescriptionPrompt(req), "generating description")
}

// SuggestModel recommends one of the six monetization models
func (g *Gateway) SuggestModel(ctx context.Context, req ModelSuggestionRequest) (*ModelSuggestion, error) {
	if strings.TrimSpace(req.ProductDescription) == "" {
		return nil, gwerrors.NewRequiredFieldError(FieldProductDescription)
	}
	return generate[ModelSuggestion](ctx, g, modelSuggestionSchema(), BuildModelSuggestionPrompt(req), "suggesting model")
}

// SuggestChallenges proposes user challenges with fresh ids
func (g *Gateway) SuggestChallenges(ctx context.Context, req ChallengeSuggestionRequest) ([]types.Challenge, error) {
	if strings.TrimSpace(req.ProductDescription) == "" {
		return nil, gwerrors.NewRequiredFieldError(FieldProductDescription)
	}
	if req.Level != "" && !req.Level.Valid() {
		return nil, gwerrors.NewValidationError("level", "must be beginner, intermediate or advanced", req.Level)
	}

	payload, err := generate[ChallengePayload](ctx, g, challengeSuggestionSchema(), BuildChallengeSuggestionPrompt(req), "suggesting challenges")
	if err != nil {
		return nil, err
	}
	return AssembleChallenges(payload), nil
}

// SuggestSolutions proposes solutions bound to the request's challenge
func (g *Gateway) SuggestSolutions(ctx context.Context, req SolutionSuggestionRequest) ([]types.Solution, error) {
	if strings.TrimSpace(req.Challenge.Title) == "" {
		return nil, gwerrors.NewRequiredFieldError("challenge")
	}

	payload, err := generate[SolutionPayload](ctx, g, solutionSuggestionSchema(), BuildSolutionSuggestionPrompt(req), "suggesting solutions")
	if err != nil {
		return nil, err
	}
	return AssembleSolutions(payload, req.Challenge.ID), nil
}

// SuggestFeatures proposes package features and a pricing strategy
func (g *Gateway) SuggestFeatures(ctx context.Context, req PackageSuggestionRequest) (*PackageSuggestion, error) {
	if strings.TrimSpace(req.ProductDescription) == "" {
		return nil, gwerrors.NewRequiredFieldError(FieldProductDescription)
	}

	payload, err := generate[PackagePayload](ctx, g, packageSuggestionSchema(), BuildPackageSuggestionPrompt(req), "suggesting features")
	if err != nil {
		return nil, err
	}
	return &PackageSuggestion{
		Features:        AssembleFeatures(payload),
		PricingStrategy: AssemblePricing(payload),
	}, nil
}
