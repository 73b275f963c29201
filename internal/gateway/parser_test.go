package gateway

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"product-strategy-gateway/internal/ai"
	gwerrors "product-strategy-gateway/internal/errors"
	"product-strategy-gateway/pkg/types"
)

func functionReply(args string) *ai.RawReply {
	return &ai.RawReply{FunctionCall: &ai.FunctionCall{Name: "fn", Arguments: args}}
}

// mutatedSample applies mutate to the decoded sample payload of task and re-encodes it
func mutatedSample(t *testing.T, task Task, mutate func(doc map[string]interface{})) string {
	t.Helper()
	payload, ok := SamplePayload(task)
	require.True(t, ok)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(payload), &doc))
	mutate(doc)

	out, err := json.Marshal(doc)
	require.NoError(t, err)
	return string(out)
}

func requireParseError(t *testing.T, err error, message, reason string) *gwerrors.StandardError {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, message, err.Error())

	stdErr := gwerrors.AsStandardError(err)
	assert.Equal(t, gwerrors.ErrorCodeParseError, stdErr.ErrorInfo.Code)
	detail, ok := stdErr.ErrorInfo.Details.(gwerrors.ParseDetail)
	require.True(t, ok)
	assert.Contains(t, detail.Reason, reason)
	return stdErr
}

func TestSamplesConformToTaskSchemas(t *testing.T) {
	for _, task := range Tasks() {
		t.Run(string(task), func(t *testing.T) {
			schema, err := TaskSchema(task)
			require.NoError(t, err)

			payload, ok := SamplePayload(task)
			require.True(t, ok)

			_, err = Parse[map[string]interface{}](functionReply(payload), schema)
			assert.NoError(t, err)
		})
	}
}

func TestParse_Analysis(t *testing.T) {
	payload, _ := SamplePayload(TaskAnalysis)

	got, err := Parse[AnalysisPayload](functionReply(payload), analysisSchema())
	require.NoError(t, err)

	assert.Equal(t, 7.5, got.DeepScore.Desirability)
	assert.Equal(t, 85, got.ComponentScores[types.ComponentModelSelection])
	assert.Equal(t, []string{"Annual discount"}, got.ComponentFeedback[types.ComponentPricingStrategy].Considerations)
	assert.Equal(t, "activation rate", got.Testing.ABTests[0].SuccessMetric)
	assert.Equal(t, float64(50), got.JourneyAnalysis.Conversion.Score)
}

func TestParse_Failures(t *testing.T) {
	schema := analysisSchema()

	tests := []struct {
		name   string
		reply  *ai.RawReply
		reason string
	}{
		{name: "nil reply", reply: nil, reason: ReasonEmptyPayload},
		{name: "empty content", reply: &ai.RawReply{Content: "  "}, reason: ReasonEmptyPayload},
		{name: "arguments not json", reply: functionReply("not json"), reason: ReasonInvalidJSON},
		{name: "json array", reply: functionReply(`[1,2]`), reason: ReasonInvalidJSON},
		{name: "json null", reply: functionReply(`null`), reason: ReasonInvalidJSON},
		{
			name: "missing componentScores",
			reply: functionReply(mutatedSample(t, TaskAnalysis, func(doc map[string]interface{}) {
				delete(doc, "componentScores")
			})),
			reason: ReasonMissingKeys,
		},
		{
			name: "deep score above ten",
			reply: functionReply(mutatedSample(t, TaskAnalysis, func(doc map[string]interface{}) {
				doc["deepScore"].(map[string]interface{})["polish"] = 11
			})),
			reason: ReasonSchemaViolation,
		},
		{
			name: "component score above one hundred",
			reply: functionReply(mutatedSample(t, TaskAnalysis, func(doc map[string]interface{}) {
				doc["componentScores"].(map[string]interface{})["solutions"] = 140
			})),
			reason: ReasonSchemaViolation,
		},
		{
			name: "unknown component score out of range",
			reply: functionReply(mutatedSample(t, TaskAnalysis, func(doc map[string]interface{}) {
				doc["componentScores"].(map[string]interface{})["onboarding"] = -5
			})),
			reason: ReasonSchemaViolation,
		},
		{
			name: "journey stage missing",
			reply: functionReply(mutatedSample(t, TaskAnalysis, func(doc map[string]interface{}) {
				delete(doc["journeyAnalysis"].(map[string]interface{}), "signup")
			})),
			reason: ReasonSchemaViolation,
		},
		{
			name: "component feedback without recommendations",
			reply: functionReply(mutatedSample(t, TaskAnalysis, func(doc map[string]interface{}) {
				doc["componentFeedback"].(map[string]interface{})["idealUser"] = map[string]interface{}{"strengths": []interface{}{}}
			})),
			reason: ReasonSchemaViolation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse[AnalysisPayload](tt.reply, schema)
			assert.Nil(t, got, "no partial object is returned")
			requireParseError(t, err, "Failed to parse analysis result", tt.reason)
		})
	}
}

func TestParse_MissingKeysAreNamed(t *testing.T) {
	reply := functionReply(`{"summary": "only a summary"}`)

	_, err := Parse[AnalysisPayload](reply, analysisSchema())

	stdErr := requireParseError(t, err, "Failed to parse analysis result", ReasonMissingKeys)
	detail := stdErr.ErrorInfo.Details.(gwerrors.ParseDetail)
	assert.Equal(t, []string{
		"deepScore", "strengths", "weaknesses", "recommendations",
		"componentScores", "componentFeedback", "actionPlan", "testing", "journeyAnalysis",
	}, detail.MissingKeys)
}

func TestParse_ContentFallback(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bare json", `{"description": "A CRM"}`},
		{"json code fence", "```json\n{\"description\": \"A CRM\"}\n```"},
		{"plain code fence", "```\n{\"description\": \"A CRM\"}\n```"},
		{"inline fence", "```{\"description\": \"A CRM\"}```"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse[ChatDescription](&ai.RawReply{Content: tt.content}, chatDescriptionSchema())
			require.NoError(t, err)
			assert.Equal(t, "A CRM", got.Description)
		})
	}
}

func TestParse_FunctionCallWinsOverContent(t *testing.T) {
	reply := &ai.RawReply{
		Content:      `{"description": "from content"}`,
		FunctionCall: &ai.FunctionCall{Name: "submit_product_description", Arguments: `{"description": "from call"}`},
	}

	got, err := Parse[ChatDescription](reply, chatDescriptionSchema())
	require.NoError(t, err)
	assert.Equal(t, "from call", got.Description)
}

func TestParse_FeedbackCategoryFollowsTarget(t *testing.T) {
	args := `{"feedback": [{"text": "x", "suggestion": "y", "type": "warning", "category": "feasibility", "startIndex": 0, "endIndex": 1}]}`

	_, err := Parse[FeedbackPayload](functionReply(args), FeedbackSchema(types.TargetSolution))
	assert.NoError(t, err)

	_, err = Parse[FeedbackPayload](functionReply(args), FeedbackSchema(types.TargetProductDescription))
	requireParseError(t, err, "Failed to parse feedback result", ReasonSchemaViolation)
}

func TestParse_SuggestionEnums(t *testing.T) {
	_, err := Parse[ModelSuggestion](functionReply(`{"model": "subscription", "reasoning": "x"}`), modelSuggestionSchema())
	requireParseError(t, err, "Failed to parse model suggestion", ReasonSchemaViolation)

	_, err = Parse[ChallengePayload](functionReply(`{"challenges": [{"title": "x", "level": "beginner", "magnitude": 6}]}`), challengeSuggestionSchema())
	requireParseError(t, err, "Failed to parse challenge suggestions", ReasonSchemaViolation)

	overConversion := mutatedSample(t, TaskPackageSuggestion, func(doc map[string]interface{}) {
		pricing := doc["pricingStrategy"].(map[string]interface{})
		pricing["paidPackage"].(map[string]interface{})["targetConversion"] = 120
	})
	_, err = Parse[PackagePayload](functionReply(overConversion), packageSuggestionSchema())
	requireParseError(t, err, "Failed to parse package suggestions", ReasonSchemaViolation)
}

func TestSchema_Function(t *testing.T) {
	fn, err := analysisSchema().Function()
	require.NoError(t, err)
	assert.Equal(t, "submit_strategy_analysis", fn.Name)

	var params map[string]interface{}
	require.NoError(t, json.Unmarshal(fn.Parameters, &params))
	assert.Equal(t, "object", params["type"])
	assert.Contains(t, params["required"], "componentScores")

	_, err = TaskSchema("unknown")
	assert.Error(t, err)
}
