// Package handlers provides the HTTP request handlers of the strategy API.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	gwerrors "product-strategy-gateway/internal/errors"
	"product-strategy-gateway/internal/gateway"
	"product-strategy-gateway/pkg/types"
)

// DefaultGenerationTimeout bounds one model round trip when no timeout is configured
const DefaultGenerationTimeout = 90 * time.Second

// Generator is the gateway surface used by the handlers; *gateway.Gateway satisfies it
type Generator interface {
	AnalyzeText(ctx context.Context, req gateway.FeedbackRequest) ([]types.FeedbackItem, error)
	DescribeFromChat(ctx context.Context, req gateway.ChatDescriptionRequest) (*gateway.ChatDescription, error)
	SuggestModel(ctx context.Context, req gateway.ModelSuggestionRequest) (*gateway.ModelSuggestion, error)
	SuggestChallenges(ctx context.Context, req gateway.ChallengeSuggestionRequest) ([]types.Challenge, error)
	SuggestSolutions(ctx context.Context, req gateway.SolutionSuggestionRequest) ([]types.Solution, error)
	SuggestFeatures(ctx context.Context, req gateway.PackageSuggestionRequest) (*gateway.PackageSuggestion, error)
}

// decodeJSON decodes a required JSON body into v
func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return gwerrors.NewRequiredFieldError("body")
		}
		return gwerrors.NewValidationError("body", "invalid JSON: "+err.Error(), nil)
	}
	return nil
}

// decodeOptionalJSON decodes a JSON body into v, accepting an empty body
func decodeOptionalJSON(r *http.Request, v interface{}) error {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return gwerrors.NewValidationError("body", "invalid JSON: "+err.Error(), nil)
	}
	return nil
}

func timeoutOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultGenerationTimeout
	}
	return d
}
