package storage

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	gwerrors "product-strategy-gateway/internal/errors"
	"product-strategy-gateway/pkg/types"
)

const (
	editTokenBytes = 24
	shareIDLength  = 12
	maxListLimit   = 100
)

// StrategyFilters narrows a List query. Zero values do not filter.
type StrategyFilters struct {
	PublicOnly    bool
	SelectedModel types.ModelType
	Search        string
	CreatedAfter  *time.Time
	Limit         int
	Offset        int
}

// StrategyRepository provides database operations for saved strategies
type StrategyRepository struct {
	db      *sql.DB
	dialect Dialect
}

// NewStrategyRepository creates a new strategy repository
func NewStrategyRepository(db *sql.DB, dialect Dialect) *StrategyRepository {
	return &StrategyRepository{db: db, dialect: dialect}
}

// Migrate applies pending schema migrations
func (r *StrategyRepository) Migrate(ctx context.Context) ([]MigrationResult, error) {
	return Migrate(ctx, r.db, r.dialect)
}

// Ping checks the database connection
func (r *StrategyRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Create inserts a strategy and returns its edit token. The token is shown once;
// only its bcrypt hash is stored. Id, share id and timestamps are assigned here.
func (r *StrategyRepository) Create(ctx context.Context, s *types.Strategy) (string, error) {
	if err := types.ValidateStruct(s); err != nil {
		return "", gwerrors.NewValidationError("strategy", err.Error(), nil)
	}

	token, err := newEditToken()
	if err != nil {
		return "", gwerrors.NewInternalError("failed to generate edit token", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", gwerrors.NewInternalError("failed to hash edit token", err)
	}

	now := time.Now().UTC()
	s.ID = uuid.New().String()
	s.ShareID = newShareID()
	s.CreatedAt = now
	s.UpdatedAt = now

	cols, err := encodeColumns(s)
	if err != nil {
		return "", err
	}

	query := `
		INSERT INTO strategies (
			id, title, product_description, selected_model, ideal_user, outcomes,
			challenges, solutions, features, user_journey, analysis_results,
			pricing_strategy, share_id, is_public, edit_token_hash, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17
		)`

	_, err = r.db.ExecContext(ctx, query,
		s.ID, s.Title, s.ProductDescription, string(s.SelectedModel), cols.idealUser, cols.outcomes,
		cols.challenges, cols.solutions, cols.features, cols.userJourney, cols.analysis,
		cols.pricing, s.ShareID, s.IsPublic, string(hash), s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return "", gwerrors.WrapDatabaseError(err, "create strategy")
	}

	return token, nil
}

const selectStrategy = `
		SELECT id, title, product_description, selected_model, ideal_user, outcomes,
		       challenges, solutions, features, user_journey, analysis_results,
		       pricing_strategy, share_id, is_public, created_at, updated_at
		FROM strategies`

// GetByID retrieves a strategy by its ID
func (r *StrategyRepository) GetByID(ctx context.Context, id string) (*types.Strategy, error) {
	s, err := scanStrategy(r.db.QueryRowContext(ctx, selectStrategy+` WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, gwerrors.NewNotFoundError("strategy", id)
	}
	if err != nil {
		return nil, gwerrors.WrapDatabaseError(err, "get strategy")
	}
	return s, nil
}

// GetByShareID retrieves a public strategy by its share id. Private strategies are
// reported as not found.
func (r *StrategyRepository) GetByShareID(ctx context.Context, shareID string) (*types.Strategy, error) {
	s, err := scanStrategy(r.db.QueryRowContext(ctx, selectStrategy+` WHERE share_id = $1 AND is_public = $2`, shareID, true))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, gwerrors.NewNotFoundError("shared strategy", shareID)
	}
	if err != nil {
		return nil, gwerrors.WrapDatabaseError(err, "get shared strategy")
	}
	return s, nil
}

// List retrieves strategies with filtering and pagination, newest first
func (r *StrategyRepository) List(ctx context.Context, filters StrategyFilters) ([]*types.Strategy, error) {
	query := selectStrategy + ` WHERE 1 = 1`
	args := []interface{}{}
	argCount := 0

	if filters.PublicOnly {
		argCount++
		query += fmt.Sprintf(" AND is_public = $%d", argCount)
		args = append(args, true)
	}

	if filters.SelectedModel != "" {
		argCount++
		query += fmt.Sprintf(" AND selected_model = $%d", argCount)
		args = append(args, string(filters.SelectedModel))
	}

	if search := strings.TrimSpace(filters.Search); search != "" {
		argCount++
		query += fmt.Sprintf(" AND (LOWER(title) LIKE $%d OR LOWER(product_description) LIKE $%d)", argCount, argCount)
		args = append(args, "%"+strings.ToLower(search)+"%")
	}

	if filters.CreatedAfter != nil {
		argCount++
		query += fmt.Sprintf(" AND created_at >= $%d", argCount)
		args = append(args, filters.CreatedAfter.UTC())
	}

	query += " ORDER BY created_at DESC, id"

	limit := filters.Limit
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}
	argCount++
	query += fmt.Sprintf(" LIMIT $%d", argCount)
	args = append(args, limit)

	if filters.Offset > 0 {
		argCount++
		query += fmt.Sprintf(" OFFSET $%d", argCount)
		args = append(args, filters.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, gwerrors.WrapDatabaseError(err, "list strategies")
	}
	defer func() { _ = rows.Close() }()

	strategies := []*types.Strategy{}
	for rows.Next() {
		s, err := scanStrategy(rows)
		if err != nil {
			return nil, gwerrors.WrapDatabaseError(err, "scan strategy")
		}
		strategies = append(strategies, s)
	}

	if err = rows.Err(); err != nil {
		return nil, gwerrors.WrapDatabaseError(err, "iterate strategies")
	}

	return strategies, nil
}

// Update replaces the content of a strategy when editToken matches. Id, share id
// and creation time are kept; s is refreshed from the stored row.
func (r *StrategyRepository) Update(ctx context.Context, s *types.Strategy, editToken string) error {
	if err := types.ValidateStruct(s); err != nil {
		return gwerrors.NewValidationError("strategy", err.Error(), nil)
	}
	if err := r.authorize(ctx, s.ID, editToken); err != nil {
		return err
	}

	cols, err := encodeColumns(s)
	if err != nil {
		return err
	}

	query := `
		UPDATE strategies SET
			title = $1, product_description = $2, selected_model = $3, ideal_user = $4,
			outcomes = $5, challenges = $6, solutions = $7, features = $8, user_journey = $9,
			analysis_results = $10, pricing_strategy = $11, is_public = $12, updated_at = $13
		WHERE id = $14`

	_, err = r.db.ExecContext(ctx, query,
		s.Title, s.ProductDescription, string(s.SelectedModel), cols.idealUser,
		cols.outcomes, cols.challenges, cols.solutions, cols.features, cols.userJourney,
		cols.analysis, cols.pricing, s.IsPublic, time.Now().UTC(),
		s.ID,
	)
	if err != nil {
		return gwerrors.WrapDatabaseError(err, "update strategy")
	}

	stored, err := r.GetByID(ctx, s.ID)
	if err != nil {
		return err
	}
	*s = *stored
	return nil
}

// Delete removes a strategy when editToken matches
func (r *StrategyRepository) Delete(ctx context.Context, id, editToken string) error {
	if err := r.authorize(ctx, id, editToken); err != nil {
		return err
	}

	if _, err := r.db.ExecContext(ctx, `DELETE FROM strategies WHERE id = $1`, id); err != nil {
		return gwerrors.WrapDatabaseError(err, "delete strategy")
	}
	return nil
}

func (r *StrategyRepository) authorize(ctx context.Context, id, editToken string) error {
	var hash string
	err := r.db.QueryRowContext(ctx, `SELECT edit_token_hash FROM strategies WHERE id = $1`, id).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return gwerrors.NewNotFoundError("strategy", id)
	}
	if err != nil {
		return gwerrors.WrapDatabaseError(err, "load edit token")
	}

	if editToken == "" || bcrypt.CompareHashAndPassword([]byte(hash), []byte(editToken)) != nil {
		return gwerrors.ErrEditTokenInvalid
	}
	return nil
}

// encodedColumns holds the JSON text of the structured fields; nil means NULL
type encodedColumns struct {
	idealUser, outcomes, challenges, solutions, features interface{}
	userJourney, analysis, pricing                      interface{}
}

func encodeColumns(s *types.Strategy) (*encodedColumns, error) {
	var cols encodedColumns
	fields := []struct {
		dst   *interface{}
		value interface{}
		empty bool
	}{
		{&cols.idealUser, s.IdealUser, s.IdealUser == nil},
		{&cols.outcomes, s.Outcomes, s.Outcomes == nil},
		{&cols.challenges, s.Challenges, s.Challenges == nil},
		{&cols.solutions, s.Solutions, s.Solutions == nil},
		{&cols.features, s.Features, s.Features == nil},
		{&cols.userJourney, s.UserJourney, s.UserJourney == nil},
		{&cols.analysis, s.AnalysisResults, s.AnalysisResults == nil},
		{&cols.pricing, s.PricingStrategy, s.PricingStrategy == nil},
	}

	for _, f := range fields {
		if f.empty {
			continue
		}
		data, err := json.Marshal(f.value)
		if err != nil {
			return nil, gwerrors.NewInternalError("failed to encode strategy", err)
		}
		*f.dst = string(data)
	}
	return &cols, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanStrategy(row rowScanner) (*types.Strategy, error) {
	var (
		s             types.Strategy
		selectedModel string
		idealUser     sql.NullString
		outcomes      sql.NullString
		challenges    sql.NullString
		solutions     sql.NullString
		features      sql.NullString
		userJourney   sql.NullString
		analysis      sql.NullString
		pricing       sql.NullString
	)

	err := row.Scan(
		&s.ID, &s.Title, &s.ProductDescription, &selectedModel, &idealUser, &outcomes,
		&challenges, &solutions, &features, &userJourney, &analysis,
		&pricing, &s.ShareID, &s.IsPublic, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.SelectedModel = types.ModelType(selectedModel)

	blobs := []struct {
		src sql.NullString
		dst interface{}
	}{
		{idealUser, &s.IdealUser},
		{outcomes, &s.Outcomes},
		{challenges, &s.Challenges},
		{solutions, &s.Solutions},
		{features, &s.Features},
		{userJourney, &s.UserJourney},
		{analysis, &s.AnalysisResults},
		{pricing, &s.PricingStrategy},
	}
	for _, b := range blobs {
		if !b.src.Valid || b.src.String == "" {
			continue
		}
		if err := json.Unmarshal([]byte(b.src.String), b.dst); err != nil {
			return nil, fmt.Errorf("failed to decode strategy %s: %w", s.ID, err)
		}
	}

	s.CreatedAt = s.CreatedAt.UTC()
	s.UpdatedAt = s.UpdatedAt.UTC()
	return &s, nil
}

func newEditToken() (string, error) {
	buf := make([]byte, editTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func newShareID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:shareIDLength]
}
