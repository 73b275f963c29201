package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"product-strategy-gateway/internal/gateway"
	"product-strategy-gateway/internal/session"
	"product-strategy-gateway/pkg/types"
)

// deadlineStore fails once the caller's context is done, as the redis store does
type deadlineStore struct {
	*session.MemoryStore
}

func (s deadlineStore) Get(ctx context.Context, id string) (*session.State, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.MemoryStore.Get(ctx, id)
}

func (s deadlineStore) Save(ctx context.Context, state *session.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.MemoryStore.Save(ctx, state)
}

// slowFeedback answers text feedback only once the request deadline has passed
type slowFeedback struct {
	Generator
	items []types.FeedbackItem
}

func (g slowFeedback) AnalyzeText(ctx context.Context, _ gateway.FeedbackRequest) ([]types.FeedbackItem, error) {
	<-ctx.Done()
	return g.items, nil
}

func TestFeedback_StoredWhenGenerationEndsAtDeadline(t *testing.T) {
	store := deadlineStore{MemoryStore: session.NewMemoryStore()}
	state, err := store.Create(context.Background())
	require.NoError(t, err)

	items := []types.FeedbackItem{{
		ID:         "fb1",
		Text:       "freelancers",
		Suggestion: "Name the kind of freelancer",
		Type:       types.FeedbackImprovement,
		Category:   "clarity",
		StartIndex: 8,
		EndIndex:   19,
	}}
	handler := NewGenerationHandler(slowFeedback{items: items}, store, 50*time.Millisecond, nil)

	body := `{"target":"productDescription","text":"A CRM for freelancers","sessionId":"` + state.ID + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/feedback", strings.NewReader(body))
	w := httptest.NewRecorder()
	handler.Feedback(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var envelope struct {
		Data FeedbackResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Len(t, envelope.Data.Items, 1)

	stored, err := store.Get(context.Background(), state.ID)
	require.NoError(t, err)
	require.Len(t, stored.Feedback[types.TargetProductDescription], 1)
	assert.Equal(t, "fb1", stored.Feedback[types.TargetProductDescription][0].ID)
}
