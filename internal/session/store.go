// Package session holds the per-user view state of the strategy wizard.
// Stores are injected into the components that need them; there is no global store.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"product-strategy-gateway/pkg/types"
)

// State is the wizard view state of one session
type State struct {
	ID            string                                        `json:"id"`
	Input         types.AnalysisInput                           `json:"input"`
	Analysis      *types.Analysis                               `json:"analysis,omitempty"`
	IsAnalyzing   bool                                          `json:"isAnalyzing"`
	AnalysisError string                                        `json:"analysisError,omitempty"`
	Feedback      map[types.FeedbackTarget][]types.FeedbackItem `json:"feedback,omitempty"`
	CreatedAt     time.Time                                     `json:"createdAt"`
	UpdatedAt     time.Time                                     `json:"updatedAt"`
}

// Store persists view state. Every implementation returns copies, so a caller
// mutating a State never affects what another caller reads until it is saved.
type Store interface {
	Create(ctx context.Context) (*State, error)
	Get(ctx context.Context, id string) (*State, error)
	Save(ctx context.Context, state *State) error
	Delete(ctx context.Context, id string) error
}

// NewState returns an empty state with a fresh id
func NewState() *State {
	now := time.Now().UTC()
	return &State{
		ID:        uuid.New().String(),
		Feedback:  make(map[types.FeedbackTarget][]types.FeedbackItem),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SetFeedback replaces the feedback items of one target
func (s *State) SetFeedback(target types.FeedbackTarget, items []types.FeedbackItem) {
	if s.Feedback == nil {
		s.Feedback = make(map[types.FeedbackTarget][]types.FeedbackItem)
	}
	s.Feedback[target] = items
}

func encodeState(state *State) ([]byte, error) {
	data, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("failed to encode session %s: %w", state.ID, err)
	}
	return data, nil
}

func decodeState(data []byte) (*State, error) {
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	if state.Feedback == nil {
		state.Feedback = make(map[types.FeedbackTarget][]types.FeedbackItem)
	}
	return &state, nil
}

func cloneState(state *State) (*State, error) {
	data, err := encodeState(state)
	if err != nil {
		return nil, err
	}
	return decodeState(data)
}
