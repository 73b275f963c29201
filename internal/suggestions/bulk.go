// Package suggestions runs suggestion tasks over many wizard items
package suggestions

import (
	"context"
	"time"

	"product-strategy-gateway/internal/gateway"
	"product-strategy-gateway/internal/logging"
	"product-strategy-gateway/pkg/types"
)

// SolutionSuggester proposes solutions for one challenge; *gateway.Gateway satisfies it
type SolutionSuggester interface {
	SuggestSolutions(ctx context.Context, req gateway.SolutionSuggestionRequest) ([]types.Solution, error)
}

// ItemError records the failure of one challenge
type ItemError struct {
	ChallengeID string `json:"challengeId"`
	Message     string `json:"message"`
}

// Progress is reported after each challenge is processed
type Progress struct {
	Total     int    `json:"total"`
	Processed int    `json:"processed"`
	Failed    int    `json:"failed"`
	Current   string `json:"current"`
}

// Result holds the suggested solutions in challenge order and the per-item failures
type Result struct {
	Solutions []types.Solution `json:"solutions"`
	Errors    []ItemError      `json:"errors,omitempty"`
	Cancelled bool             `json:"cancelled,omitempty"`
}

// Bulk suggests solutions for challenges one at a time
type Bulk struct {
	suggester  SolutionSuggester
	logger     logging.Logger
	onProgress func(Progress)
}

// Option configures a Bulk
type Option func(*Bulk)

// WithProgress registers a callback invoked after every item
func WithProgress(fn func(Progress)) Option {
	return func(b *Bulk) { b.onProgress = fn }
}

// NewBulk creates a Bulk
func NewBulk(suggester SolutionSuggester, logger logging.Logger, opts ...Option) *Bulk {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	b := &Bulk{suggester: suggester, logger: logger.WithComponent("bulk_suggestions")}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// SolutionsForChallenges requests solutions for each challenge in order, waiting for
// each call before issuing the next. A failed challenge is recorded and skipped. When
// ctx is cancelled the remaining challenges are recorded as failed without a call.
func (b *Bulk) SolutionsForChallenges(ctx context.Context, product string, challenges []types.Challenge, existing []types.Solution) Result {
	result := Result{Solutions: []types.Solution{}}
	progress := Progress{Total: len(challenges)}
	start := time.Now()

	for i, challenge := range challenges {
		if err := ctx.Err(); err != nil {
			for _, rest := range challenges[i:] {
				result.Errors = append(result.Errors, ItemError{ChallengeID: rest.ID, Message: err.Error()})
			}
			result.Cancelled = true
			b.logger.WarnContext(ctx, "Bulk suggestion cancelled", "remaining", len(challenges)-i)
			break
		}

		progress.Current = challenge.ID
		solutions, err := b.suggester.SuggestSolutions(ctx, gateway.SolutionSuggestionRequest{
			ProductDescription: product,
			Challenge:          challenge,
			Existing:           existingFor(existing, challenge.ID),
		})
		if err != nil {
			b.logger.ErrorContext(ctx, "Solution suggestion failed", "challenge_id", challenge.ID, "error", err.Error())
			result.Errors = append(result.Errors, ItemError{ChallengeID: challenge.ID, Message: err.Error()})
			progress.Failed++
		} else {
			result.Solutions = append(result.Solutions, solutions...)
		}

		progress.Processed++
		if b.onProgress != nil {
			b.onProgress(progress)
		}
	}

	b.logger.InfoContext(ctx, "Bulk suggestion finished",
		"challenges", len(challenges),
		"solutions", len(result.Solutions),
		"failed", len(result.Errors),
		"duration_ms", time.Since(start).Milliseconds())
	return result
}

func existingFor(solutions []types.Solution, challengeID string) []types.Solution {
	var out []types.Solution
	for _, s := range solutions {
		if s.ChallengeID == challengeID {
			out = append(out, s)
		}
	}
	return out
}
