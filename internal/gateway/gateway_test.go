package gateway

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"product-strategy-gateway/internal/ai"
	gwerrors "product-strategy-gateway/internal/errors"
	"product-strategy-gateway/pkg/types"
)

func newTestGateway(script ...ai.MockReply) (*Gateway, *ai.MockTransport) {
	transport := ai.NewMockTransport(script...)
	return New(transport, Config{Model: "test-model", APIKeyConfigured: true}, nil), transport
}

func sampleCall(t *testing.T, task Task) ai.MockReply {
	t.Helper()
	payload, ok := SamplePayload(task)
	require.True(t, ok)
	schema, err := TaskSchema(task)
	require.NoError(t, err)
	return ai.FunctionCallReply(schema.Name, payload)
}

func TestGenerateAnalysis_HappyPath(t *testing.T) {
	gw, transport := newTestGateway(sampleCall(t, TaskAnalysis))

	analysis, err := gw.GenerateAnalysis(context.Background(), fullInput())
	require.NoError(t, err)

	for _, v := range []float64{
		analysis.DeepScore.Desirability, analysis.DeepScore.Effectiveness,
		analysis.DeepScore.Efficiency, analysis.DeepScore.Polish,
	} {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 10.0)
	}
	require.NotEmpty(t, analysis.ComponentScores)
	for name, score := range analysis.ComponentScores {
		assert.GreaterOrEqual(t, score, 0, name)
		assert.LessOrEqual(t, score, 100, name)
	}
	assert.NotEmpty(t, analysis.ID)

	req := transport.LastRequest()
	require.NotNil(t, req)
	assert.Equal(t, "test-model", req.Model)
	require.NotNil(t, req.Function)
	assert.Equal(t, "submit_strategy_analysis", req.Function.Name)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, ai.RoleSystem, req.Messages[0].Role)
	assert.Contains(t, req.Messages[1].Content, "A CRM for freelancers")
	assert.True(t, json.Valid(req.Function.Parameters))
}

func TestGenerateAnalysis_RequiredFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(in *types.AnalysisInput)
		field  string
	}{
		{"empty product description", func(in *types.AnalysisInput) { in.ProductDescription = "" }, "productDescription"},
		{"blank product description", func(in *types.AnalysisInput) { in.ProductDescription = "   " }, "productDescription"},
		{"no beginner endgame", func(in *types.AnalysisInput) {
			in.UserEndgame = []types.UserOutcome{{Level: types.LevelAdvanced, Text: "studio"}}
		}, "userEndgame"},
		{"no model", func(in *types.AnalysisInput) { in.SelectedModel = "" }, "selectedModel"},
		{"no ideal user", func(in *types.AnalysisInput) { in.IdealUser = nil }, "idealUser"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw, transport := newTestGateway()
			input := fullInput()
			tt.mutate(&input)

			analysis, err := gw.GenerateAnalysis(context.Background(), input)

			require.Error(t, err)
			assert.Nil(t, analysis)
			assert.Contains(t, err.Error(), tt.field)
			assert.Equal(t, gwerrors.ErrorCodeRequiredField, gwerrors.Code(err))
			assert.Zero(t, transport.Calls(), "no network call for invalid input")
		})
	}
}

func TestGenerateAnalysis_InvalidEnumRejectedLocally(t *testing.T) {
	gw, transport := newTestGateway()
	input := fullInput()
	input.Challenges[0].Magnitude = 9

	_, err := gw.GenerateAnalysis(context.Background(), input)

	require.Error(t, err)
	assert.Equal(t, gwerrors.ErrorCodeValidationError, gwerrors.Code(err))
	assert.Zero(t, transport.Calls())
}

func TestGenerateAnalysis_MalformedReply(t *testing.T) {
	gw, _ := newTestGateway(ai.FunctionCallReply("submit_strategy_analysis", "not json"))

	analysis, err := gw.GenerateAnalysis(context.Background(), fullInput())

	require.Error(t, err)
	assert.Nil(t, analysis)
	assert.Equal(t, "Failed while generating analysis: Failed to parse analysis result", err.Error())
	assert.Equal(t, gwerrors.ErrorCodeParseError, gwerrors.Code(err))
}

func TestGenerateAnalysis_MissingComponentScores(t *testing.T) {
	args := mutatedSample(t, TaskAnalysis, func(doc map[string]interface{}) { delete(doc, "componentScores") })
	gw, _ := newTestGateway(ai.FunctionCallReply("submit_strategy_analysis", args))

	analysis, err := gw.GenerateAnalysis(context.Background(), fullInput())

	require.Error(t, err)
	assert.Nil(t, analysis)
	stdErr := gwerrors.AsStandardError(err)
	assert.Equal(t, gwerrors.ErrorCodeParseError, stdErr.ErrorInfo.Code)
	assert.Equal(t, []string{"componentScores"}, stdErr.ErrorInfo.Details.(gwerrors.ParseDetail).MissingKeys)
}

func TestGenerateAnalysis_TransportFailure(t *testing.T) {
	cause := stderrors.New("API returned status 500: upstream down")
	gw, transport := newTestGateway(ai.ErrorReply(cause))

	_, err := gw.GenerateAnalysis(context.Background(), fullInput())

	require.Error(t, err)
	assert.Equal(t, "Failed while generating analysis: API returned status 500: upstream down", err.Error())
	assert.Equal(t, gwerrors.ErrorCodeTransportError, gwerrors.Code(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 1, transport.Calls(), "failures are not retried")
}

func TestAnalyzeText(t *testing.T) {
	t.Run("fails fast without an API key", func(t *testing.T) {
		transport := ai.NewMockTransport()
		gw := New(transport, Config{Model: "m"}, nil)

		_, err := gw.AnalyzeText(context.Background(), FeedbackRequest{Target: types.TargetProductDescription, Text: "A CRM"})

		require.Error(t, err)
		assert.Equal(t, gwerrors.ErrorCodeConfiguration, gwerrors.Code(err))
		assert.Zero(t, transport.Calls())
	})

	t.Run("blank text returns no items without a call", func(t *testing.T) {
		gw, transport := newTestGateway()

		items, err := gw.AnalyzeText(context.Background(), FeedbackRequest{Target: types.TargetSolution, Text: "  "})

		require.NoError(t, err)
		assert.Empty(t, items)
		assert.Zero(t, transport.Calls())
	})

	t.Run("unknown target is rejected", func(t *testing.T) {
		gw, _ := newTestGateway()
		_, err := gw.AnalyzeText(context.Background(), FeedbackRequest{Target: "pricing", Text: "x"})
		assert.Equal(t, gwerrors.ErrorCodeValidationError, gwerrors.Code(err))
	})

	t.Run("returns anchored items", func(t *testing.T) {
		gw, transport := newTestGateway(sampleCall(t, TaskFeedback))

		items, err := gw.AnalyzeText(context.Background(), FeedbackRequest{
			Target: types.TargetProductDescription,
			Text:   "A CRM for freelancers",
		})

		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, 6, items[0].StartIndex)
		assert.Equal(t, 21, items[0].EndIndex)
		assert.Equal(t, types.FeedbackWarning, items[1].Type)
		assert.Equal(t, "submit_text_feedback", transport.LastRequest().Function.Name)
	})
}

func TestSuggestions(t *testing.T) {
	ctx := context.Background()

	t.Run("model", func(t *testing.T) {
		gw, _ := newTestGateway(sampleCall(t, TaskModelSuggestion))
		got, err := gw.SuggestModel(ctx, ModelSuggestionRequest{ProductDescription: "A CRM"})
		require.NoError(t, err)
		assert.Equal(t, types.ModelFreemium, got.Model)
		require.Len(t, got.Alternatives, 1)
		assert.Equal(t, types.ModelOptInTrial, got.Alternatives[0].Model)
	})

	t.Run("challenges", func(t *testing.T) {
		gw, _ := newTestGateway(sampleCall(t, TaskChallengeSuggestion))
		got, err := gw.SuggestChallenges(ctx, ChallengeSuggestionRequest{ProductDescription: "A CRM"})
		require.NoError(t, err)
		assert.Len(t, got, 3)
	})

	t.Run("challenges reject unknown level", func(t *testing.T) {
		gw, transport := newTestGateway()
		_, err := gw.SuggestChallenges(ctx, ChallengeSuggestionRequest{ProductDescription: "A CRM", Level: "expert"})
		assert.Equal(t, gwerrors.ErrorCodeValidationError, gwerrors.Code(err))
		assert.Zero(t, transport.Calls())
	})

	t.Run("solutions", func(t *testing.T) {
		gw, _ := newTestGateway(sampleCall(t, TaskSolutionSuggestion))
		got, err := gw.SuggestSolutions(ctx, SolutionSuggestionRequest{
			ProductDescription: "A CRM",
			Challenge:          types.Challenge{ID: "c1", Title: "Scattered notes", Level: types.LevelBeginner, Magnitude: 3},
		})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "c1", got[0].ChallengeID)
	})

	t.Run("features", func(t *testing.T) {
		gw, _ := newTestGateway(sampleCall(t, TaskPackageSuggestion))
		got, err := gw.SuggestFeatures(ctx, PackageSuggestionRequest{ProductDescription: "A CRM"})
		require.NoError(t, err)
		assert.Len(t, got.Features, 2)
		require.NotNil(t, got.PricingStrategy)
		assert.Equal(t, types.BasisPerUser, got.PricingStrategy.Basis)
	})

	t.Run("description from chat", func(t *testing.T) {
		gw, _ := newTestGateway(sampleCall(t, TaskChatDescription))
		got, err := gw.DescribeFromChat(ctx, ChatDescriptionRequest{Transcript: []ChatTurn{{Role: "user", Text: "I help designers"}}})
		require.NoError(t, err)
		assert.Contains(t, got.Description, "freelance designers")
	})

	t.Run("description needs a transcript", func(t *testing.T) {
		gw, _ := newTestGateway()
		_, err := gw.DescribeFromChat(ctx, ChatDescriptionRequest{})
		assert.Equal(t, gwerrors.ErrorCodeRequiredField, gwerrors.Code(err))
	})

	t.Run("parse failure message names the task", func(t *testing.T) {
		gw, _ := newTestGateway(ai.ContentReply(`{"solutions": "none"}`))
		_, err := gw.SuggestSolutions(ctx, SolutionSuggestionRequest{Challenge: types.Challenge{ID: "c1", Title: "x"}})
		require.Error(t, err)
		assert.Equal(t, "Failed while suggesting solutions: Failed to parse solution suggestions", err.Error())
	})
}

func TestSampleResponder(t *testing.T) {
	transport := ai.NewMockTransport()
	transport.Responder = SampleResponder()
	gw := New(transport, Config{Model: "m", APIKeyConfigured: true}, nil)

	analysis, err := gw.GenerateAnalysis(context.Background(), fullInput())
	require.NoError(t, err)
	assert.NotEmpty(t, analysis.Summary)

	_, err = transport.Responder(&ai.ChatRequest{Messages: []ai.Message{{Role: ai.RoleUser, Content: "x"}}})
	assert.Error(t, err)
}

func TestMissingRequiredFields(t *testing.T) {
	assert.Empty(t, MissingRequiredFields(fullInput()))
	assert.Equal(t,
		[]string{FieldProductDescription, FieldUserEndgame, FieldSelectedModel, FieldIdealUser},
		MissingRequiredFields(types.AnalysisInput{}))

	input := fullInput()
	input.IdealUser = &types.IdealUser{Motivation: types.RatingHigh}
	assert.Equal(t, []string{FieldIdealUser}, MissingRequiredFields(input))
}
