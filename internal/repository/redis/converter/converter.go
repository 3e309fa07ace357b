package converter

import (
	"fmt"

	"github.com/DRSN-tech/food-rating/internal/domain"
	"github.com/google/uuid"
)

// ComparisonConverter преобразует сравнение между domain и моделью кэша.
type ComparisonConverter interface {
	ToRedisModel(entity *domain.Comparison) *ComparisonRedisModel
	ToDomain(model *ComparisonRedisModel) (*domain.Comparison, error)
}

type ComparisonConverterImpl struct{}

func NewComparisonConverterImpl() *ComparisonConverterImpl {
	return &ComparisonConverterImpl{}
}

func (ComparisonConverterImpl) ToRedisModel(entity *domain.Comparison) *ComparisonRedisModel {
	products := make([]ProductRatingRedis, 0, len(entity.Products))
	for _, p := range entity.Products {
		products = append(products, ProductRatingRedis{Number: p.Number, Features: p.Features, Score: p.Score})
	}

	return &ComparisonRedisModel{
		ID:             entity.ID.String(),
		Fingerprint:    entity.Fingerprint,
		ModelVersion:   entity.ModelVersion,
		Best:           entity.Best,
		Recommendation: entity.Recommendation,
		Products:       products,
		CreatedAt:      entity.CreatedAt,
	}
}

func (ComparisonConverterImpl) ToDomain(model *ComparisonRedisModel) (*domain.Comparison, error) {
	id, err := uuid.Parse(model.ID)
	if err != nil {
		return nil, err
	}
	if len(model.Products) != domain.ProductsPerComparison {
		return nil, fmt.Errorf("cached comparison %s has %d products", model.ID, len(model.Products))
	}
	if model.Best < 1 || model.Best > domain.ProductsPerComparison {
		return nil, fmt.Errorf("cached comparison %s has best product %d", model.ID, model.Best)
	}

	c := &domain.Comparison{
		ID:             id,
		Best:           model.Best,
		Recommendation: model.Recommendation,
		ModelVersion:   model.ModelVersion,
		Fingerprint:    model.Fingerprint,
		CreatedAt:      model.CreatedAt,
	}
	for i, p := range model.Products {
		c.Products[i] = domain.NewProductRating(p.Number, p.Features, p.Score)
	}

	return c, nil
}
