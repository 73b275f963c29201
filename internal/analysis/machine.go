// Package analysis runs the analysis lifecycle of a wizard session.
//
// The lifecycle is not stored as a field. It is derived from the session view
// state: a held analysis means complete, the analyzing flag means a request is in
// flight, an error message without an analysis means failed.
package analysis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"product-strategy-gateway/internal/gateway"
	"product-strategy-gateway/internal/logging"
	"product-strategy-gateway/internal/session"
	"product-strategy-gateway/pkg/types"
)

// State is a lifecycle state
type State string

const (
	StateNotStarted State = "not_started"
	StateAnalyzing  State = "analyzing"
	StateComplete   State = "complete"
	StateFailed     State = "failed"
)

// IncompleteInputPrefix starts the message reported when required sections are empty
const IncompleteInputPrefix = "Please complete all previous sections"

// Generator produces an analysis; *gateway.Gateway satisfies it
type Generator interface {
	GenerateAnalysis(ctx context.Context, input types.AnalysisInput) (*types.Analysis, error)
}

// Event is published on every lifecycle transition
type Event struct {
	SessionID string          `json:"sessionId"`
	State     State           `json:"state"`
	Error     string          `json:"error,omitempty"`
	Analysis  *types.Analysis `json:"analysis,omitempty"`
	At        time.Time       `json:"at"`
}

// Notifier receives lifecycle events
type Notifier interface {
	Notify(event Event)
}

// Outcome reports the lifecycle after a Start or Reset
type Outcome struct {
	State    State           `json:"state"`
	Analysis *types.Analysis `json:"analysis,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// Derive returns the lifecycle state held by a session
func Derive(s *session.State) State {
	switch {
	case s.Analysis != nil:
		return StateComplete
	case s.IsAnalyzing:
		return StateAnalyzing
	case s.AnalysisError != "":
		return StateFailed
	default:
		return StateNotStarted
	}
}

// OutcomeOf reports the lifecycle held by a session
func OutcomeOf(s *session.State) Outcome {
	return Outcome{State: Derive(s), Analysis: s.Analysis, Error: s.AnalysisError}
}

// Machine drives the lifecycle of every session in a store
type Machine struct {
	store     session.Store
	generator Generator
	notifier  Notifier
	logger    logging.Logger

	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewMachine creates a Machine. notifier and logger may be nil.
func NewMachine(store session.Store, generator Generator, notifier Notifier, logger logging.Logger) *Machine {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return &Machine{
		store:     store,
		generator: generator,
		notifier:  notifier,
		logger:    logger.WithComponent("analysis"),
		inflight:  make(map[string]struct{}),
	}
}

// Status returns the current lifecycle of a session
func (m *Machine) Status(ctx context.Context, sessionID string) (Outcome, error) {
	state, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return Outcome{}, err
	}
	outcome := OutcomeOf(state)
	if outcome.State == StateAnalyzing && !m.isInFlight(sessionID) {
		outcome.State = stateWithoutFlag(state)
	}
	return outcome, nil
}

// Start moves a session into analyzing and runs the analysis to completion.
//
// Incomplete input is reported in the outcome and nothing is sent. A call while
// another is in flight for the same session, or once an analysis is held, returns
// the current lifecycle unchanged. Generation failures are reported in the outcome;
// the returned error is reserved for store failures.
func (m *Machine) Start(ctx context.Context, sessionID string) (Outcome, error) {
	if !m.acquire(sessionID) {
		state, err := m.store.Get(ctx, sessionID)
		if err != nil {
			return Outcome{}, err
		}
		outcome := OutcomeOf(state)
		outcome.State = StateAnalyzing
		return outcome, nil
	}
	defer m.release(sessionID)

	state, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return Outcome{}, err
	}

	if state.Analysis != nil {
		return OutcomeOf(state), nil
	}

	if missing := gateway.MissingRequiredFields(state.Input); len(missing) > 0 {
		msg := fmt.Sprintf("%s: %s is required", IncompleteInputPrefix, missing[0])
		m.logger.InfoContext(ctx, "Analysis not started", "session_id", sessionID, "missing", missing)
		outcome := OutcomeOf(state)
		if outcome.State == StateAnalyzing {
			outcome.State = stateWithoutFlag(state)
		}
		outcome.Error = msg
		return outcome, nil
	}

	// a persisted analyzing flag with nothing in flight here is stale and is restarted
	state.IsAnalyzing = true
	state.AnalysisError = ""
	if err := m.store.Save(ctx, state); err != nil {
		return Outcome{}, err
	}
	m.notify(Event{SessionID: sessionID, State: StateAnalyzing})

	start := time.Now()
	result, genErr := m.generator.GenerateAnalysis(ctx, state.Input)

	// the caller's context may be done after a timeout; the outcome must still be stored
	persistCtx := context.WithoutCancel(ctx)

	// other features may have written the session meanwhile; last write wins per field
	latest, err := m.store.Get(persistCtx, sessionID)
	if err != nil {
		return Outcome{}, err
	}
	latest.IsAnalyzing = false

	if genErr != nil {
		latest.Analysis = nil
		latest.AnalysisError = genErr.Error()
		m.logger.ErrorContext(ctx, "Analysis failed",
			"session_id", sessionID,
			"error", genErr.Error(),
			"duration_ms", time.Since(start).Milliseconds())
	} else {
		latest.Analysis = result
		latest.AnalysisError = ""
		m.logger.InfoContext(ctx, "Analysis complete",
			"session_id", sessionID,
			"duration_ms", time.Since(start).Milliseconds())
	}

	if err := m.store.Save(persistCtx, latest); err != nil {
		return Outcome{}, err
	}

	outcome := OutcomeOf(latest)
	m.notify(Event{SessionID: sessionID, State: outcome.State, Error: outcome.Error, Analysis: outcome.Analysis})
	return outcome, nil
}

// Reset drops the held analysis or error so the session can be analyzed again.
// It does nothing while an analysis is in flight.
func (m *Machine) Reset(ctx context.Context, sessionID string) (Outcome, error) {
	if !m.acquire(sessionID) {
		return Outcome{State: StateAnalyzing}, nil
	}
	defer m.release(sessionID)

	state, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return Outcome{}, err
	}

	state.Analysis = nil
	state.AnalysisError = ""
	state.IsAnalyzing = false
	if err := m.store.Save(ctx, state); err != nil {
		return Outcome{}, err
	}

	m.logger.InfoContext(ctx, "Analysis reset", "session_id", sessionID)
	m.notify(Event{SessionID: sessionID, State: StateNotStarted})
	return Outcome{State: StateNotStarted}, nil
}

func (m *Machine) acquire(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, busy := m.inflight[sessionID]; busy {
		return false
	}
	m.inflight[sessionID] = struct{}{}
	return true
}

func (m *Machine) release(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.inflight, sessionID)
}

func (m *Machine) isInFlight(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, busy := m.inflight[sessionID]
	return busy
}

func (m *Machine) notify(event Event) {
	if m.notifier == nil {
		return
	}
	event.At = time.Now().UTC()
	m.notifier.Notify(event)
}

func stateWithoutFlag(s *session.State) State {
	if s.AnalysisError != "" {
		return StateFailed
	}
	return StateNotStarted
}
