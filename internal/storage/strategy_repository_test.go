package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gwerrors "product-strategy-gateway/internal/errors"
	"product-strategy-gateway/pkg/types"
)

func newTestRepository(t *testing.T) *StrategyRepository {
	t.Helper()
	ctx := context.Background()

	db, err := Open(ctx, DialectSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := NewStrategyRepository(db, DialectSQLite)
	_, err = repo.Migrate(ctx)
	require.NoError(t, err)
	return repo
}

func sampleStrategy(title string) *types.Strategy {
	input := &types.AnalysisInput{
		ProductDescription: "A CRM for freelancers",
		IdealUser:          &types.IdealUser{Title: "Freelance designer", Motivation: types.RatingHigh},
		UserEndgame:        []types.UserOutcome{{Level: types.LevelBeginner, Text: "tracks every client"}},
		Challenges:         []types.Challenge{{ID: "c1", Title: "Scattered notes", Level: types.LevelBeginner, Magnitude: 4}},
		Solutions:          []types.Solution{{ID: "s1", ChallengeID: "c1", Text: "Timeline", Type: types.SolutionTypeProduct, Cost: types.ScaleLow, Impact: types.ScaleHigh}},
		SelectedModel:      types.ModelFreemium,
		UserJourney:        types.UserJourney{types.StageDiscovery: "Community posts"},
	}
	analysis := &types.Analysis{
		ID:              "a1",
		DeepScore:       types.DeepScore{Desirability: 7, Effectiveness: 6, Efficiency: 8, Polish: 5},
		Summary:         "Solid",
		ComponentScores: map[string]int{types.ComponentSolutions: 60},
	}
	return types.StrategyFromInput(title, input, analysis)
}

func TestMigrate_Idempotent(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, DialectSQLite, ":memory:")
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	first, err := Migrate(ctx, db, DialectSQLite)
	require.NoError(t, err)
	assert.Len(t, first, len(Migrations))

	second, err := Migrate(ctx, db, DialectSQLite)
	require.NoError(t, err)
	assert.Empty(t, second)
}

func TestMigrate_ChecksumMismatch(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, DialectSQLite, ":memory:")
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	_, err = Migrate(ctx, db, DialectSQLite)
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, `UPDATE schema_migrations SET checksum = 'edited' WHERE version = 1`)
	require.NoError(t, err)

	_, err = Migrate(ctx, db, DialectSQLite)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checksum mismatch")
}

func TestStatus(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, DialectSQLite, ":memory:")
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	statuses, err := Status(ctx, db, DialectSQLite)
	require.NoError(t, err)
	require.Len(t, statuses, len(Migrations))
	for _, s := range statuses {
		assert.False(t, s.Applied)
	}

	_, err = Migrate(ctx, db, DialectSQLite)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `UPDATE schema_migrations SET checksum = 'edited' WHERE version = 2`)
	require.NoError(t, err)

	statuses, err = Status(ctx, db, DialectSQLite)
	require.NoError(t, err)
	assert.True(t, statuses[0].Applied)
	assert.False(t, statuses[0].Drifted)
	assert.True(t, statuses[1].Drifted)
}

func TestOpen_UnsupportedDialect(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "dsn")
	assert.Error(t, err)
}

func TestStrategyRepository_CreateAndGet(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	s := sampleStrategy("Freelancer CRM")

	token, err := repo.Create(ctx, s)
	require.NoError(t, err)

	assert.NotEmpty(t, token)
	assert.NotEmpty(t, s.ID)
	assert.Len(t, s.ShareID, shareIDLength)
	assert.False(t, s.CreatedAt.IsZero())

	got, err := repo.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "Freelancer CRM", got.Title)
	assert.Equal(t, types.ModelFreemium, got.SelectedModel)
	require.NotNil(t, got.IdealUser)
	assert.Equal(t, "Freelance designer", got.IdealUser.Title)
	assert.Equal(t, "c1", got.Solutions[0].ChallengeID)
	assert.Equal(t, "Community posts", got.UserJourney[types.StageDiscovery])
	require.NotNil(t, got.AnalysisResults)
	assert.Equal(t, 60, got.AnalysisResults.ComponentScores[types.ComponentSolutions])
	assert.Nil(t, got.PricingStrategy)
	assert.WithinDuration(t, s.CreatedAt, got.CreatedAt, time.Second)
}

func TestStrategyRepository_EditTokenIsHashed(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	s := sampleStrategy("Hashed")

	token, err := repo.Create(ctx, s)
	require.NoError(t, err)

	var stored string
	require.NoError(t, repo.db.QueryRowContext(ctx, `SELECT edit_token_hash FROM strategies WHERE id = $1`, s.ID).Scan(&stored))
	assert.NotEqual(t, token, stored)
	assert.True(t, strings.HasPrefix(stored, "$2"), "bcrypt hash")
}

func TestStrategyRepository_NotFound(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.GetByID(context.Background(), "missing")
	assert.Equal(t, gwerrors.ErrorCodeNotFound, gwerrors.Code(err))

	err = repo.Delete(context.Background(), "missing", "token")
	assert.Equal(t, gwerrors.ErrorCodeNotFound, gwerrors.Code(err))
}

func TestStrategyRepository_GetByShareID(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	private := sampleStrategy("Private")
	_, err := repo.Create(ctx, private)
	require.NoError(t, err)

	public := sampleStrategy("Public")
	public.IsPublic = true
	_, err = repo.Create(ctx, public)
	require.NoError(t, err)

	got, err := repo.GetByShareID(ctx, public.ShareID)
	require.NoError(t, err)
	assert.Equal(t, public.ID, got.ID)

	_, err = repo.GetByShareID(ctx, private.ShareID)
	assert.Equal(t, gwerrors.ErrorCodeNotFound, gwerrors.Code(err))
}

func TestStrategyRepository_Update(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	s := sampleStrategy("Before")

	token, err := repo.Create(ctx, s)
	require.NoError(t, err)
	shareID, createdAt := s.ShareID, s.CreatedAt

	t.Run("wrong token is forbidden", func(t *testing.T) {
		edit := *s
		edit.Title = "Hijacked"
		err := repo.Update(ctx, &edit, "not-the-token")
		assert.Equal(t, gwerrors.ErrorCodeForbidden, gwerrors.Code(err))

		got, err := repo.GetByID(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, "Before", got.Title)
	})

	t.Run("empty token is forbidden", func(t *testing.T) {
		edit := *s
		assert.Equal(t, gwerrors.ErrorCodeForbidden, gwerrors.Code(repo.Update(ctx, &edit, "")))
	})

	t.Run("matching token updates", func(t *testing.T) {
		edit := *s
		edit.Title = "After"
		edit.IsPublic = true
		edit.ShareID = "ignored"
		edit.AnalysisResults = nil

		require.NoError(t, repo.Update(ctx, &edit, token))

		assert.Equal(t, "After", edit.Title)
		assert.Equal(t, shareID, edit.ShareID)
		assert.WithinDuration(t, createdAt, edit.CreatedAt, time.Second)
		assert.Nil(t, edit.AnalysisResults)
		assert.True(t, edit.IsPublic)
	})

	t.Run("invalid record is rejected", func(t *testing.T) {
		edit := *s
		edit.Title = strings.Repeat("x", 201)
		assert.Equal(t, gwerrors.ErrorCodeValidationError, gwerrors.Code(repo.Update(ctx, &edit, token)))
	})
}

func TestStrategyRepository_Delete(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	s := sampleStrategy("Doomed")

	token, err := repo.Create(ctx, s)
	require.NoError(t, err)

	assert.Equal(t, gwerrors.ErrorCodeForbidden, gwerrors.Code(repo.Delete(ctx, s.ID, "wrong")))
	require.NoError(t, repo.Delete(ctx, s.ID, token))

	_, err = repo.GetByID(ctx, s.ID)
	assert.Equal(t, gwerrors.ErrorCodeNotFound, gwerrors.Code(err))
}

func TestStrategyRepository_List(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	for i, title := range []string{"Alpha CRM", "Beta Notes", "Gamma CRM"} {
		s := sampleStrategy(title)
		s.IsPublic = i != 1
		if i == 2 {
			s.SelectedModel = types.ModelSandbox
		}
		_, err := repo.Create(ctx, s)
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
	}

	tests := []struct {
		name    string
		filters StrategyFilters
		want    []string
	}{
		{"all newest first", StrategyFilters{}, []string{"Gamma CRM", "Beta Notes", "Alpha CRM"}},
		{"public only", StrategyFilters{PublicOnly: true}, []string{"Gamma CRM", "Alpha CRM"}},
		{"search is case insensitive", StrategyFilters{Search: "crm"}, []string{"Gamma CRM", "Alpha CRM"}},
		{"by model", StrategyFilters{SelectedModel: types.ModelSandbox}, []string{"Gamma CRM"}},
		{"paged", StrategyFilters{Limit: 1, Offset: 1}, []string{"Beta Notes"}},
		{"combined", StrategyFilters{PublicOnly: true, Search: "alpha"}, []string{"Alpha CRM"}},
		{"nothing matches", StrategyFilters{Search: "zzz"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.List(ctx, tt.filters)
			require.NoError(t, err)

			titles := []string{}
			for _, s := range got {
				titles = append(titles, s.Title)
			}
			assert.Equal(t, tt.want, titles)
		})
	}
}

func TestStrategyRepository_CreateRejectsInvalid(t *testing.T) {
	repo := newTestRepository(t)
	s := sampleStrategy(strings.Repeat("t", 201))

	_, err := repo.Create(context.Background(), s)
	assert.Equal(t, gwerrors.ErrorCodeValidationError, gwerrors.Code(err))
}
