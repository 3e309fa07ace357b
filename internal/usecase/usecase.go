package usecase

import (
	"context"

	"github.com/DRSN-tech/food-rating/internal/domain"
	"github.com/google/uuid"
)

type RatingUC interface {
	Compare(ctx context.Context, req *CompareReq) (*CompareRes, error)
	GetComparison(ctx context.Context, id uuid.UUID) (*domain.Comparison, error)
	ListComparisons(ctx context.Context, req *ListComparisonsReq) ([]domain.Comparison, error)
	SimilarProducts(ctx context.Context, req *SimilarProductsReq) ([]domain.SimilarProduct, error)
	Defaults() *DefaultsRes
}
