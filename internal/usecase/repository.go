package usecase

import (
	"context"

	"github.com/DRSN-tech/food-rating/internal/domain"
	"github.com/google/uuid"
)

type ComparisonRepository interface {
	Create(ctx context.Context, c *domain.Comparison) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Comparison, error)
	List(ctx context.Context, limit int) ([]domain.Comparison, error)
}

type OutboxRepository interface {
	Create(ctx context.Context, event *OutboxEvent) (*OutboxEvent, error)
	GetAndMarkAsProcessing(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkAsProcessed(ctx context.Context, id int64) error
	MarkAsFailed(ctx context.Context, id int64) error
}

// CacheRepository кэширует результаты сравнений по отпечатку входных данных.
// GetComparison возвращает (nil, nil) при промахе.
type CacheRepository interface {
	GetComparison(ctx context.Context, fingerprint string) (*domain.Comparison, error)
	SetComparison(ctx context.Context, c *domain.Comparison) error
}

// VectorRepository хранит нормализованные векторы оценённых продуктов.
type VectorRepository interface {
	Upsert(ctx context.Context, points []ProductPoint) error
	Search(ctx context.Context, vector []float32, limit int) ([]domain.SimilarProduct, error)
}
