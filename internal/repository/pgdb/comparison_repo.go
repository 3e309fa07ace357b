package pgdb

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/DRSN-tech/food-rating/internal/domain"
	"github.com/DRSN-tech/food-rating/internal/repository/pgdb/converter"
	"github.com/DRSN-tech/food-rating/pkg/e"
	"github.com/DRSN-tech/food-rating/pkg/tr"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"
)

// ComparisonRepo хранит историю сравнений в PostgreSQL.
type ComparisonRepo struct {
	pool *pgxpool.Pool
	conv converter.ComparisonConverter
}

func NewComparisonRepo(pool *pgxpool.Pool, conv converter.ComparisonConverter) *ComparisonRepo {
	return &ComparisonRepo{pool: pool, conv: conv}
}

// Create сохраняет сравнение в рамках транзакции из контекста.
func (c *ComparisonRepo) Create(ctx context.Context, comparison *domain.Comparison) error {
	tx, err := tr.TxFromCtx(ctx)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	model := c.conv.ToModel(comparison)
	products, err := json.Marshal(model.Products)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	query := `
		INSERT INTO comparisons (id, fingerprint, model_version, best_product, recommendation, products, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	if _, err := tx.Exec(ctx, query,
		model.ID,
		model.Fingerprint,
		model.ModelVersion,
		model.BestProduct,
		model.Recommendation,
		products,
		model.CreatedAt,
	); err != nil {
		if postgresDuplicate(err) {
			return e.Wrap(whereami.WhereAmI(), errors.New("comparison "+model.ID.String()+" already exists"))
		}
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

// GetByID возвращает сравнение или e.ErrComparisonNotFound.
func (c *ComparisonRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Comparison, error) {
	query := `
		SELECT id, fingerprint, model_version, best_product, recommendation, products, created_at
		FROM comparisons
		WHERE id = $1
	`

	comparison, err := c.scanComparison(c.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, e.ErrComparisonNotFound
		}
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return comparison, nil
}

// List возвращает последние сравнения, новые первыми.
func (c *ComparisonRepo) List(ctx context.Context, limit int) ([]domain.Comparison, error) {
	query := `
		SELECT id, fingerprint, model_version, best_product, recommendation, products, created_at
		FROM comparisons
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := c.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer rows.Close()

	result := make([]domain.Comparison, 0, limit)
	for rows.Next() {
		comparison, err := c.scanComparison(rows)
		if err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}
		result = append(result, *comparison)
	}

	if err := rows.Err(); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return result, nil
}

func (c *ComparisonRepo) scanComparison(row pgx.Row) (*domain.Comparison, error) {
	var (
		model    converter.ComparisonModel
		products []byte
	)

	if err := row.Scan(
		&model.ID,
		&model.Fingerprint,
		&model.ModelVersion,
		&model.BestProduct,
		&model.Recommendation,
		&products,
		&model.CreatedAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(products, &model.Products); err != nil {
		return nil, err
	}

	return c.conv.ToEntity(&model)
}
