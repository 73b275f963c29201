package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"product-strategy-gateway/internal/analysis"
	"product-strategy-gateway/internal/api/response"
	gwerrors "product-strategy-gateway/internal/errors"
	"product-strategy-gateway/internal/logging"
	"product-strategy-gateway/internal/session"
	"product-strategy-gateway/internal/suggestions"
	"product-strategy-gateway/pkg/types"
)

// Lifecycle runs the analysis lifecycle of a session; *analysis.Machine satisfies it
type Lifecycle interface {
	Status(ctx context.Context, sessionID string) (analysis.Outcome, error)
	Start(ctx context.Context, sessionID string) (analysis.Outcome, error)
	Reset(ctx context.Context, sessionID string) (analysis.Outcome, error)
}

// ProgressPublisher receives bulk suggestion progress for a session
type ProgressPublisher interface {
	PublishProgress(sessionID string, progress suggestions.Progress)
}

// SessionHandler serves the wizard view state and its analysis lifecycle
type SessionHandler struct {
	store     session.Store
	lifecycle Lifecycle
	suggester suggestions.SolutionSuggester
	progress  ProgressPublisher
	timeout   time.Duration
	logger    logging.Logger
}

// SessionView is a session together with its derived lifecycle
type SessionView struct {
	Session   *session.State   `json:"session"`
	Lifecycle analysis.Outcome `json:"lifecycle"`
}

// BulkSolutionsRequest optionally restricts the bulk loop to some challenges
type BulkSolutionsRequest struct {
	ChallengeIDs []string `json:"challengeIds,omitempty"`
}

// NewSessionHandler creates a session handler. progress may be nil.
func NewSessionHandler(store session.Store, lifecycle Lifecycle, suggester suggestions.SolutionSuggester,
	progress ProgressPublisher, timeout time.Duration, logger logging.Logger) *SessionHandler {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return &SessionHandler{
		store:     store,
		lifecycle: lifecycle,
		suggester: suggester,
		progress:  progress,
		timeout:   timeoutOrDefault(timeout),
		logger:    logger.WithComponent("session_handler"),
	}
}

// Create starts a new wizard session
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	state, err := h.store.Create(r.Context())
	if err != nil {
		response.WriteError(w, err)
		return
	}
	response.WriteCreated(w, SessionView{Session: state, Lifecycle: analysis.OutcomeOf(state)})
}

// Get returns a session with its lifecycle state
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.view(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, err)
		return
	}
	response.WriteSuccess(w, view)
}

// PutInput replaces the wizard input of a session. The analysis is kept; a
// regeneration needs an explicit reset.
func (h *SessionHandler) PutInput(w http.ResponseWriter, r *http.Request) {
	var input types.AnalysisInput
	if err := decodeJSON(r, &input); err != nil {
		response.WriteError(w, err)
		return
	}
	if err := input.Validate(); err != nil {
		response.WriteError(w, gwerrors.NewValidationError("input", err.Error(), nil))
		return
	}

	ctx := r.Context()
	state, err := h.store.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, err)
		return
	}
	state.Input = input
	if err := h.store.Save(ctx, state); err != nil {
		response.WriteError(w, err)
		return
	}

	view, err := h.view(ctx, state.ID)
	if err != nil {
		response.WriteError(w, err)
		return
	}
	response.WriteSuccess(w, view)
}

// StartAnalysis runs the analysis of a session. With ?async=true it returns 202
// immediately and the outcome is delivered over the session websocket.
func (h *SessionHandler) StartAnalysis(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	if r.URL.Query().Get("async") == "true" {
		// Fail fast on unknown sessions before detaching
		if _, err := h.lifecycle.Status(r.Context(), sessionID); err != nil {
			response.WriteError(w, err)
			return
		}

		ctx := context.WithoutCancel(r.Context())
		go func() {
			ctx, cancel := context.WithTimeout(ctx, h.timeout)
			defer cancel()
			if _, err := h.lifecycle.Start(ctx, sessionID); err != nil {
				h.logger.ErrorContext(ctx, "Background analysis failed", "session_id", sessionID, "error", err)
			}
		}()
		response.WriteStatus(w, http.StatusAccepted, analysis.Outcome{State: analysis.StateAnalyzing})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	outcome, err := h.lifecycle.Start(ctx, sessionID)
	if err != nil {
		response.WriteError(w, err)
		return
	}
	response.WriteSuccess(w, outcome)
}

// ResetAnalysis clears the analysis so it can be regenerated
func (h *SessionHandler) ResetAnalysis(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.lifecycle.Reset(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, err)
		return
	}
	response.WriteSuccess(w, outcome)
}

// BulkSolutions suggests solutions for the session's challenges one at a time and
// appends them to the session input.
func (h *SessionHandler) BulkSolutions(w http.ResponseWriter, r *http.Request) {
	var req BulkSolutionsRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		response.WriteError(w, err)
		return
	}

	sessionID := chi.URLParam(r, "id")
	state, err := h.store.Get(r.Context(), sessionID)
	if err != nil {
		response.WriteError(w, err)
		return
	}

	challenges, err := selectChallenges(state.Input.Challenges, req.ChallengeIDs)
	if err != nil {
		response.WriteError(w, err)
		return
	}

	var opts []suggestions.Option
	if h.progress != nil {
		opts = append(opts, suggestions.WithProgress(func(p suggestions.Progress) {
			h.progress.PublishProgress(sessionID, p)
		}))
	}
	bulk := suggestions.NewBulk(h.suggester, h.logger, opts...)

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout*time.Duration(len(challenges)+1))
	defer cancel()
	result := bulk.SolutionsForChallenges(ctx, state.Input.ProductDescription, challenges, state.Input.Solutions)

	if len(result.Solutions) > 0 {
		// Reload so edits made while the loop ran are kept
		latest, err := h.store.Get(context.WithoutCancel(ctx), sessionID)
		if err != nil {
			response.WriteError(w, err)
			return
		}
		latest.Input.Solutions = append(latest.Input.Solutions, result.Solutions...)
		if err := h.store.Save(context.WithoutCancel(ctx), latest); err != nil {
			response.WriteError(w, err)
			return
		}
	}

	response.WriteSuccess(w, result)
}

func (h *SessionHandler) view(ctx context.Context, sessionID string) (*SessionView, error) {
	state, err := h.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	outcome, err := h.lifecycle.Status(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &SessionView{Session: state, Lifecycle: outcome}, nil
}

// selectChallenges keeps the requested challenges in session order; no ids means all
func selectChallenges(challenges []types.Challenge, ids []string) ([]types.Challenge, error) {
	if len(ids) == 0 {
		return challenges, nil
	}
	selected := make([]types.Challenge, 0, len(ids))
	for _, id := range ids {
		if _, ok := types.ChallengeByID(challenges, id); !ok {
			return nil, gwerrors.NewNotFoundError("challenge", id)
		}
	}
	for _, c := range challenges {
		for _, id := range ids {
			if c.ID == id {
				selected = append(selected, c)
				break
			}
		}
	}
	return selected, nil
}
