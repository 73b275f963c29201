package analysis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"product-strategy-gateway/internal/ai"
	gwerrors "product-strategy-gateway/internal/errors"
	"product-strategy-gateway/internal/gateway"
	"product-strategy-gateway/internal/session"
	"product-strategy-gateway/pkg/types"
)

func completeInput() types.AnalysisInput {
	return types.AnalysisInput{
		ProductDescription: "A CRM for freelancers",
		IdealUser:          &types.IdealUser{Title: "Freelance designer", Motivation: types.RatingHigh},
		UserEndgame:        []types.UserOutcome{{Level: types.LevelBeginner, Text: "tracks every client"}},
		SelectedModel:      types.ModelFreemium,
	}
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingNotifier) Notify(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingNotifier) states() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]State, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.State)
	}
	return out
}

type fixture struct {
	store     *session.MemoryStore
	transport *ai.MockTransport
	notifier  *recordingNotifier
	machine   *Machine
	sessionID string
}

func newFixture(t *testing.T, input types.AnalysisInput, script ...ai.MockReply) *fixture {
	t.Helper()
	store := session.NewMemoryStore()
	transport := ai.NewMockTransport(script...)
	gw := gateway.New(transport, gateway.Config{Model: "test", APIKeyConfigured: true}, nil)
	notifier := &recordingNotifier{}

	state, err := store.Create(context.Background())
	require.NoError(t, err)
	state.Input = input
	require.NoError(t, store.Save(context.Background(), state))

	return &fixture{
		store:     store,
		transport: transport,
		notifier:  notifier,
		machine:   NewMachine(store, gw, notifier, nil),
		sessionID: state.ID,
	}
}

func analysisReply(t *testing.T) ai.MockReply {
	t.Helper()
	payload, ok := gateway.SamplePayload(gateway.TaskAnalysis)
	require.True(t, ok)
	return ai.FunctionCallReply("submit_strategy_analysis", payload)
}

func TestStart_Completes(t *testing.T) {
	f := newFixture(t, completeInput(), analysisReply(t))

	outcome, err := f.machine.Start(context.Background(), f.sessionID)
	require.NoError(t, err)

	assert.Equal(t, StateComplete, outcome.State)
	require.NotNil(t, outcome.Analysis)
	assert.Empty(t, outcome.Error)
	assert.Equal(t, []State{StateAnalyzing, StateComplete}, f.notifier.states())

	stored, err := f.store.Get(context.Background(), f.sessionID)
	require.NoError(t, err)
	assert.Equal(t, StateComplete, Derive(stored))
	assert.False(t, stored.IsAnalyzing)
}

func TestStart_IncompleteInput(t *testing.T) {
	input := completeInput()
	input.ProductDescription = ""
	f := newFixture(t, input)

	outcome, err := f.machine.Start(context.Background(), f.sessionID)
	require.NoError(t, err, "incomplete input is reported, not raised")

	assert.Equal(t, StateNotStarted, outcome.State)
	assert.Equal(t, "Please complete all previous sections: productDescription is required", outcome.Error)
	assert.Zero(t, f.transport.Calls())
	assert.Empty(t, f.notifier.states())

	status, err := f.machine.Status(context.Background(), f.sessionID)
	require.NoError(t, err)
	assert.Equal(t, StateNotStarted, status.State)
}

func TestStart_MalformedReplyFails(t *testing.T) {
	f := newFixture(t, completeInput(), ai.FunctionCallReply("submit_strategy_analysis", "not json"))

	outcome, err := f.machine.Start(context.Background(), f.sessionID)
	require.NoError(t, err)

	assert.Equal(t, StateFailed, outcome.State)
	assert.Nil(t, outcome.Analysis)
	assert.Equal(t, "Failed while generating analysis: Failed to parse analysis result", outcome.Error)
	assert.Equal(t, []State{StateAnalyzing, StateFailed}, f.notifier.states())
}

func TestStart_MissingKeysStoresNoAnalysis(t *testing.T) {
	f := newFixture(t, completeInput(), ai.FunctionCallReply("submit_strategy_analysis", `{"summary": "partial"}`))

	outcome, err := f.machine.Start(context.Background(), f.sessionID)
	require.NoError(t, err)
	assert.Equal(t, StateFailed, outcome.State)

	stored, err := f.store.Get(context.Background(), f.sessionID)
	require.NoError(t, err)
	assert.Nil(t, stored.Analysis)
	assert.NotEmpty(t, stored.AnalysisError)
}

func TestStart_RetryAfterFailure(t *testing.T) {
	f := newFixture(t, completeInput(),
		ai.ErrorReply(errors.New("API returned status 503: overloaded")),
		analysisReply(t))

	first, err := f.machine.Start(context.Background(), f.sessionID)
	require.NoError(t, err)
	assert.Equal(t, StateFailed, first.State)
	assert.Contains(t, first.Error, "Failed while generating analysis")

	second, err := f.machine.Start(context.Background(), f.sessionID)
	require.NoError(t, err)
	assert.Equal(t, StateComplete, second.State)
	assert.Empty(t, second.Error)
	assert.Equal(t, 2, f.transport.Calls())
}

func TestStart_CompleteIsNotRegenerated(t *testing.T) {
	f := newFixture(t, completeInput(), analysisReply(t))

	first, err := f.machine.Start(context.Background(), f.sessionID)
	require.NoError(t, err)

	second, err := f.machine.Start(context.Background(), f.sessionID)
	require.NoError(t, err)

	assert.Equal(t, StateComplete, second.State)
	assert.Equal(t, first.Analysis.ID, second.Analysis.ID)
	assert.Equal(t, 1, f.transport.Calls())
}

// blockingGenerator holds every call until released
type blockingGenerator struct {
	entered chan struct{}
	release chan struct{}
	calls   int
	mu      sync.Mutex
}

func (b *blockingGenerator) GenerateAnalysis(ctx context.Context, input types.AnalysisInput) (*types.Analysis, error) {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
	b.entered <- struct{}{}
	<-b.release
	return &types.Analysis{ID: "a1", Summary: "done"}, nil
}

func TestStart_ReentrantCallIsNoOp(t *testing.T) {
	store := session.NewMemoryStore()
	state, err := store.Create(context.Background())
	require.NoError(t, err)
	state.Input = completeInput()
	require.NoError(t, store.Save(context.Background(), state))

	gen := &blockingGenerator{entered: make(chan struct{}, 1), release: make(chan struct{})}
	machine := NewMachine(store, gen, nil, nil)

	done := make(chan Outcome, 1)
	go func() {
		outcome, _ := machine.Start(context.Background(), state.ID)
		done <- outcome
	}()

	select {
	case <-gen.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("first analysis never started")
	}

	during, err := machine.Start(context.Background(), state.ID)
	require.NoError(t, err)
	assert.Equal(t, StateAnalyzing, during.State)

	reset, err := machine.Reset(context.Background(), state.ID)
	require.NoError(t, err)
	assert.Equal(t, StateAnalyzing, reset.State)

	status, err := machine.Status(context.Background(), state.ID)
	require.NoError(t, err)
	assert.Equal(t, StateAnalyzing, status.State)

	close(gen.release)
	final := <-done
	assert.Equal(t, StateComplete, final.State)

	gen.mu.Lock()
	assert.Equal(t, 1, gen.calls)
	gen.mu.Unlock()
}

func TestStart_StaleAnalyzingFlagRestarts(t *testing.T) {
	f := newFixture(t, completeInput(), analysisReply(t))

	state, err := f.store.Get(context.Background(), f.sessionID)
	require.NoError(t, err)
	state.IsAnalyzing = true
	require.NoError(t, f.store.Save(context.Background(), state))

	status, err := f.machine.Status(context.Background(), f.sessionID)
	require.NoError(t, err)
	assert.Equal(t, StateNotStarted, status.State)

	outcome, err := f.machine.Start(context.Background(), f.sessionID)
	require.NoError(t, err)
	assert.Equal(t, StateComplete, outcome.State)
}

func TestReset(t *testing.T) {
	f := newFixture(t, completeInput(), analysisReply(t), analysisReply(t))

	_, err := f.machine.Start(context.Background(), f.sessionID)
	require.NoError(t, err)

	outcome, err := f.machine.Reset(context.Background(), f.sessionID)
	require.NoError(t, err)
	assert.Equal(t, StateNotStarted, outcome.State)

	again, err := f.machine.Start(context.Background(), f.sessionID)
	require.NoError(t, err)
	assert.Equal(t, StateComplete, again.State)
	assert.Equal(t, 2, f.transport.Calls())
}

func TestStart_UnknownSession(t *testing.T) {
	f := newFixture(t, completeInput())
	_, err := f.machine.Start(context.Background(), "missing")
	assert.Error(t, err)
}

func TestDerive(t *testing.T) {
	assert.Equal(t, StateNotStarted, Derive(&session.State{}))
	assert.Equal(t, StateAnalyzing, Derive(&session.State{IsAnalyzing: true}))
	assert.Equal(t, StateFailed, Derive(&session.State{AnalysisError: "boom"}))
	assert.Equal(t, StateComplete, Derive(&session.State{Analysis: &types.Analysis{}, AnalysisError: "old"}))
}

// contextStore fails reads and writes once the caller's context is done, as the
// redis store does
type contextStore struct {
	*session.MemoryStore
}

func (s contextStore) Get(ctx context.Context, id string) (*session.State, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.MemoryStore.Get(ctx, id)
}

func (s contextStore) Save(ctx context.Context, state *session.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.MemoryStore.Save(ctx, state)
}

// deadlineGenerator blocks until the caller's context expires
type deadlineGenerator struct{}

func (deadlineGenerator) GenerateAnalysis(ctx context.Context, _ types.AnalysisInput) (*types.Analysis, error) {
	<-ctx.Done()
	return nil, gwerrors.Envelope("generating analysis", gwerrors.WrapContextError(ctx.Err(), "analysis"))
}

func TestStart_TimeoutIsStoredAsFailed(t *testing.T) {
	store := contextStore{MemoryStore: session.NewMemoryStore()}
	state, err := store.Create(context.Background())
	require.NoError(t, err)
	state.Input = completeInput()
	require.NoError(t, store.Save(context.Background(), state))

	notifier := &recordingNotifier{}
	machine := NewMachine(store, deadlineGenerator{}, notifier, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	outcome, err := machine.Start(ctx, state.ID)
	require.NoError(t, err)
	assert.Equal(t, StateFailed, outcome.State)
	assert.Contains(t, outcome.Error, "Failed while generating analysis")
	assert.Equal(t, []State{StateAnalyzing, StateFailed}, notifier.states())

	stored, err := store.Get(context.Background(), state.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsAnalyzing)
	assert.NotEmpty(t, stored.AnalysisError)
	assert.Nil(t, stored.Analysis)

	status, err := machine.Status(context.Background(), state.ID)
	require.NoError(t, err)
	assert.Equal(t, StateFailed, status.State)
}

func TestStart_IncompleteInputAfterFailure(t *testing.T) {
	f := newFixture(t, completeInput(), ai.ErrorReply(errors.New("API returned status 503: overloaded")))

	first, err := f.machine.Start(context.Background(), f.sessionID)
	require.NoError(t, err)
	require.Equal(t, StateFailed, first.State)

	stored, err := f.store.Get(context.Background(), f.sessionID)
	require.NoError(t, err)
	stored.Input.SelectedModel = ""
	require.NoError(t, f.store.Save(context.Background(), stored))

	outcome, err := f.machine.Start(context.Background(), f.sessionID)
	require.NoError(t, err)
	assert.Equal(t, "Please complete all previous sections: selectedModel is required", outcome.Error)
	assert.Equal(t, 1, f.transport.Calls())

	status, err := f.machine.Status(context.Background(), f.sessionID)
	require.NoError(t, err)
	assert.Equal(t, status.State, outcome.State)
	assert.Equal(t, StateFailed, outcome.State)
}
