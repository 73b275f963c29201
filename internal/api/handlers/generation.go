package handlers

import (
	"context"
	"net/http"
	"time"

	"product-strategy-gateway/internal/api/response"
	"product-strategy-gateway/internal/feedback"
	"product-strategy-gateway/internal/gateway"
	"product-strategy-gateway/internal/logging"
	"product-strategy-gateway/internal/session"
	"product-strategy-gateway/pkg/types"
)

// GenerationHandler serves the one-shot generation tasks: text feedback,
// suggestions and chat descriptions.
type GenerationHandler struct {
	generator Generator
	sessions  session.Store
	timeout   time.Duration
	logger    logging.Logger
}

// FeedbackRequest asks for feedback on wizard text. When SessionID is set the
// items are also stored on that session.
type FeedbackRequest struct {
	gateway.FeedbackRequest
	SessionID string `json:"sessionId,omitempty"`
}

// FeedbackResponse carries the items and the text split into render segments
type FeedbackResponse struct {
	Items    []types.FeedbackItem `json:"items"`
	Segments []feedback.Segment   `json:"segments"`
}

// ChallengeSuggestions wraps suggested challenges
type ChallengeSuggestions struct {
	Challenges []types.Challenge `json:"challenges"`
}

// SolutionSuggestions wraps suggested solutions
type SolutionSuggestions struct {
	Solutions []types.Solution `json:"solutions"`
}

// NewGenerationHandler creates a generation handler. sessions may be nil, in
// which case feedback is never stored.
func NewGenerationHandler(generator Generator, sessions session.Store, timeout time.Duration, logger logging.Logger) *GenerationHandler {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return &GenerationHandler{
		generator: generator,
		sessions:  sessions,
		timeout:   timeoutOrDefault(timeout),
		logger:    logger.WithComponent("generation_handler"),
	}
}

func (h *GenerationHandler) generationContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), h.timeout)
}

// Feedback critiques one piece of wizard text
func (h *GenerationHandler) Feedback(w http.ResponseWriter, r *http.Request) {
	var req FeedbackRequest
	if err := decodeJSON(r, &req); err != nil {
		response.WriteError(w, err)
		return
	}

	ctx, cancel := h.generationContext(r)
	defer cancel()

	var state *session.State
	if req.SessionID != "" && h.sessions != nil {
		var err error
		if state, err = h.sessions.Get(ctx, req.SessionID); err != nil {
			response.WriteError(w, err)
			return
		}
	}

	items, err := h.generator.AnalyzeText(ctx, req.FeedbackRequest)
	if err != nil {
		response.WriteError(w, err)
		return
	}
	if items == nil {
		items = []types.FeedbackItem{}
	}

	if state != nil {
		// a generation finishing at its deadline still stores its feedback
		persistCtx := context.WithoutCancel(ctx)
		latest, err := h.sessions.Get(persistCtx, state.ID)
		if err != nil {
			response.WriteError(w, err)
			return
		}
		latest.SetFeedback(req.Target, items)
		if err := h.sessions.Save(persistCtx, latest); err != nil {
			response.WriteError(w, err)
			return
		}
	}

	response.WriteSuccess(w, FeedbackResponse{
		Items:    items,
		Segments: feedback.Segments(req.Text, items),
	})
}

// SuggestModel recommends a monetization model
func (h *GenerationHandler) SuggestModel(w http.ResponseWriter, r *http.Request) {
	var req gateway.ModelSuggestionRequest
	if err := decodeJSON(r, &req); err != nil {
		response.WriteError(w, err)
		return
	}

	ctx, cancel := h.generationContext(r)
	defer cancel()

	suggestion, err := h.generator.SuggestModel(ctx, req)
	if err != nil {
		response.WriteError(w, err)
		return
	}
	response.WriteSuccess(w, suggestion)
}

// SuggestChallenges proposes user challenges
func (h *GenerationHandler) SuggestChallenges(w http.ResponseWriter, r *http.Request) {
	var req gateway.ChallengeSuggestionRequest
	if err := decodeJSON(r, &req); err != nil {
		response.WriteError(w, err)
		return
	}

	ctx, cancel := h.generationContext(r)
	defer cancel()

	challenges, err := h.generator.SuggestChallenges(ctx, req)
	if err != nil {
		response.WriteError(w, err)
		return
	}
	response.WriteSuccess(w, ChallengeSuggestions{Challenges: challenges})
}

// SuggestSolutions proposes solutions for one challenge
func (h *GenerationHandler) SuggestSolutions(w http.ResponseWriter, r *http.Request) {
	var req gateway.SolutionSuggestionRequest
	if err := decodeJSON(r, &req); err != nil {
		response.WriteError(w, err)
		return
	}

	ctx, cancel := h.generationContext(r)
	defer cancel()

	solutions, err := h.generator.SuggestSolutions(ctx, req)
	if err != nil {
		response.WriteError(w, err)
		return
	}
	response.WriteSuccess(w, SolutionSuggestions{Solutions: solutions})
}

// SuggestFeatures proposes package features and a pricing strategy
func (h *GenerationHandler) SuggestFeatures(w http.ResponseWriter, r *http.Request) {
	var req gateway.PackageSuggestionRequest
	if err := decodeJSON(r, &req); err != nil {
		response.WriteError(w, err)
		return
	}

	ctx, cancel := h.generationContext(r)
	defer cancel()

	suggestion, err := h.generator.SuggestFeatures(ctx, req)
	if err != nil {
		response.WriteError(w, err)
		return
	}
	response.WriteSuccess(w, suggestion)
}

// DescribeFromChat distills a conversation into a product description
func (h *GenerationHandler) DescribeFromChat(w http.ResponseWriter, r *http.Request) {
	var req gateway.ChatDescriptionRequest
	if err := decodeJSON(r, &req); err != nil {
		response.WriteError(w, err)
		return
	}

	ctx, cancel := h.generationContext(r)
	defer cancel()

	description, err := h.generator.DescribeFromChat(ctx, req)
	if err != nil {
		response.WriteError(w, err)
		return
	}
	response.WriteSuccess(w, description)
}
