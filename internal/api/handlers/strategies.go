package handlers

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"product-strategy-gateway/internal/api/middleware"
	"product-strategy-gateway/internal/api/response"
	gwerrors "product-strategy-gateway/internal/errors"
	"product-strategy-gateway/internal/export"
	"product-strategy-gateway/internal/logging"
	"product-strategy-gateway/internal/session"
	"product-strategy-gateway/internal/storage"
	"product-strategy-gateway/pkg/types"
)

// StrategyStore persists saved strategies; *storage.StrategyRepository satisfies it
type StrategyStore interface {
	Create(ctx context.Context, s *types.Strategy) (string, error)
	GetByID(ctx context.Context, id string) (*types.Strategy, error)
	GetByShareID(ctx context.Context, shareID string) (*types.Strategy, error)
	List(ctx context.Context, filters storage.StrategyFilters) ([]*types.Strategy, error)
	Update(ctx context.Context, s *types.Strategy, editToken string) error
	Delete(ctx context.Context, id, editToken string) error
}

// StrategyHandler serves saved strategies, their public share links and exports
type StrategyHandler struct {
	store    StrategyStore
	sessions session.Store
	exporter *export.Exporter
	logger   logging.Logger
}

// CreateStrategyRequest saves either the given record or, when SessionID is set,
// the input and analysis of that wizard session.
type CreateStrategyRequest struct {
	types.Strategy
	SessionID string `json:"session_id,omitempty"`
}

// CreatedStrategy is returned once on create; the edit token is not retrievable later
type CreatedStrategy struct {
	Strategy  *types.Strategy `json:"strategy"`
	EditToken string          `json:"edit_token"`
}

// NewStrategyHandler creates a strategy handler. sessions may be nil, which
// disables saving from a session.
func NewStrategyHandler(store StrategyStore, sessions session.Store, exporter *export.Exporter, logger logging.Logger) *StrategyHandler {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	if exporter == nil {
		exporter = export.NewExporter()
	}
	return &StrategyHandler{
		store:    store,
		sessions: sessions,
		exporter: exporter,
		logger:   logger.WithComponent("strategy_handler"),
	}
}

// Create saves a strategy and returns its edit token
func (h *StrategyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateStrategyRequest
	if err := decodeJSON(r, &req); err != nil {
		response.WriteError(w, err)
		return
	}

	ctx := r.Context()
	strategy := req.Strategy
	if req.SessionID != "" {
		if h.sessions == nil {
			response.WriteBadRequest(w, "session_id", "saving from a session is not available")
			return
		}
		state, err := h.sessions.Get(ctx, req.SessionID)
		if err != nil {
			response.WriteError(w, err)
			return
		}
		strategy = *types.StrategyFromInput(req.Title, &state.Input, state.Analysis)
		strategy.IsPublic = req.IsPublic
	}

	token, err := h.store.Create(ctx, &strategy)
	if err != nil {
		response.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "Strategy saved", "strategy_id", strategy.ID, "public", strategy.IsPublic)
	w.Header().Set(middleware.EditTokenHeader, token)
	response.WriteCreated(w, CreatedStrategy{Strategy: &strategy, EditToken: token})
}

// List returns saved strategies, newest first
func (h *StrategyHandler) List(w http.ResponseWriter, r *http.Request) {
	filters, err := parseStrategyFilters(r)
	if err != nil {
		response.WriteError(w, err)
		return
	}

	strategies, err := h.store.List(r.Context(), filters)
	if err != nil {
		response.WriteError(w, err)
		return
	}
	if strategies == nil {
		strategies = []*types.Strategy{}
	}
	response.WriteSuccess(w, strategies)
}

// Get returns one strategy by id
func (h *StrategyHandler) Get(w http.ResponseWriter, r *http.Request) {
	strategy, err := h.store.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, err)
		return
	}
	response.WriteSuccess(w, strategy)
}

// Update replaces a strategy; the X-Edit-Token header must match
func (h *StrategyHandler) Update(w http.ResponseWriter, r *http.Request) {
	var strategy types.Strategy
	if err := decodeJSON(r, &strategy); err != nil {
		response.WriteError(w, err)
		return
	}
	strategy.ID = chi.URLParam(r, "id")

	if err := h.store.Update(r.Context(), &strategy, r.Header.Get(middleware.EditTokenHeader)); err != nil {
		response.WriteError(w, err)
		return
	}
	response.WriteSuccess(w, &strategy)
}

// Delete removes a strategy; the X-Edit-Token header must match
func (h *StrategyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.store.Delete(r.Context(), id, r.Header.Get(middleware.EditTokenHeader)); err != nil {
		response.WriteError(w, err)
		return
	}
	response.WriteSuccess(w, map[string]string{"id": id}, "Strategy deleted")
}

// GetShared returns a public strategy by its share id
func (h *StrategyHandler) GetShared(w http.ResponseWriter, r *http.Request) {
	strategy, err := h.store.GetByShareID(r.Context(), chi.URLParam(r, "shareID"))
	if err != nil {
		response.WriteError(w, err)
		return
	}
	response.WriteSuccess(w, strategy)
}

// ExportShared renders a public strategy as markdown or HTML (?format=md|html)
func (h *StrategyHandler) ExportShared(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		response.WriteBadRequest(w, "format", err.Error())
		return
	}

	strategy, err := h.store.GetByShareID(r.Context(), chi.URLParam(r, "shareID"))
	if err != nil {
		response.WriteError(w, err)
		return
	}

	body, err := h.exporter.Render(strategy, format)
	if err != nil {
		response.WriteError(w, gwerrors.NewInternalError("failed to render strategy", err))
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.%s"`, slug(strategy.Title), format))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func parseStrategyFilters(r *http.Request) (storage.StrategyFilters, error) {
	q := r.URL.Query()
	filters := storage.StrategyFilters{
		PublicOnly:    q.Get("public") == "true",
		SelectedModel: types.ModelType(q.Get("model")),
		Search:        q.Get("search"),
	}

	if filters.SelectedModel != "" && !filters.SelectedModel.Valid() {
		return filters, gwerrors.NewValidationError("model", "unknown monetization model", q.Get("model"))
	}

	var err error
	if filters.Limit, err = intParam(q.Get("limit"), "limit"); err != nil {
		return filters, err
	}
	if filters.Offset, err = intParam(q.Get("offset"), "offset"); err != nil {
		return filters, err
	}

	if after := q.Get("created_after"); after != "" {
		t, err := time.Parse(time.RFC3339, after)
		if err != nil {
			return filters, gwerrors.NewValidationError("created_after", "must be an RFC3339 timestamp", after)
		}
		filters.CreatedAfter = &t
	}
	return filters, nil
}

func intParam(value, name string) (int, error) {
	if value == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0, gwerrors.NewValidationError(name, "must be a non-negative integer", value)
	}
	return n, nil
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

func slug(title string) string {
	s := strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(title), "-"), "-")
	if s == "" {
		return "strategy"
	}
	return s
}
