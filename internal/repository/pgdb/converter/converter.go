package converter

import (
	"fmt"

	"github.com/DRSN-tech/food-rating/internal/domain"
	"github.com/DRSN-tech/food-rating/internal/usecase"
	"github.com/google/uuid"
)

// ComparisonConverter преобразует Comparison между domain и моделью PostgreSQL.
type ComparisonConverter interface {
	ToModel(entity *domain.Comparison) *ComparisonModel
	ToEntity(model *ComparisonModel) (*domain.Comparison, error)
}

// OutboxEventConverter преобразует OutboxEvent между usecase и моделью PostgreSQL.
type OutboxEventConverter interface {
	ToModel(entity *usecase.OutboxEvent) (*OutboxEventModel, error)
	ToEntity(model *OutboxEventModel) *usecase.OutboxEvent
	ToArrEntity(models []*OutboxEventModel) []*usecase.OutboxEvent
}

type ComparisonConverterImpl struct{}

func NewComparisonConverterImpl() *ComparisonConverterImpl {
	return &ComparisonConverterImpl{}
}

func (ComparisonConverterImpl) ToModel(entity *domain.Comparison) *ComparisonModel {
	products := make([]ProductRatingJSON, 0, len(entity.Products))
	for _, p := range entity.Products {
		products = append(products, ProductRatingJSON{
			Number:   p.Number,
			Features: p.Features,
			Score:    p.Score,
		})
	}

	return &ComparisonModel{
		ID:             entity.ID,
		Fingerprint:    entity.Fingerprint,
		ModelVersion:   entity.ModelVersion,
		BestProduct:    int16(entity.Best),
		Recommendation: entity.Recommendation,
		Products:       products,
		CreatedAt:      entity.CreatedAt,
	}
}

// ToEntity восстанавливает сравнение; округлённые рейтинги пересчитываются из сырых.
func (ComparisonConverterImpl) ToEntity(model *ComparisonModel) (*domain.Comparison, error) {
	if len(model.Products) != domain.ProductsPerComparison {
		return nil, fmt.Errorf("comparison %s: stored %d products, want %d", model.ID, len(model.Products), domain.ProductsPerComparison)
	}

	c := &domain.Comparison{
		ID:             model.ID,
		Best:           int(model.BestProduct),
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

type OutboxEventConverterImpl struct{}

func NewOutboxEventConverterImpl() *OutboxEventConverterImpl {
	return &OutboxEventConverterImpl{}
}

func (OutboxEventConverterImpl) ToModel(entity *usecase.OutboxEvent) (*OutboxEventModel, error) {
	eventID, err := uuid.Parse(entity.EventID)
	if err != nil {
		return nil, fmt.Errorf("invalid event id %q: %w", entity.EventID, err)
	}

	return &OutboxEventModel{
		ID:           entity.ID,
		EventID:      eventID,
		EventType:    string(entity.EventType),
		ComparisonID: entity.ComparisonID,
		Payload:      entity.Payload,
		Status:       string(entity.Status),
		CreatedAt:    entity.CreatedAt,
		ProcessedAt:  entity.ProcessedAt,
	}, nil
}

func (OutboxEventConverterImpl) ToEntity(model *OutboxEventModel) *usecase.OutboxEvent {
	return &usecase.OutboxEvent{
		ID:           model.ID,
		EventID:      model.EventID.String(),
		EventType:    usecase.OutboxEventType(model.EventType),
		ComparisonID: model.ComparisonID,
		Payload:      model.Payload,
		Status:       usecase.OutboxStatus(model.Status),
		CreatedAt:    model.CreatedAt,
		ProcessedAt:  model.ProcessedAt,
	}
}

func (c OutboxEventConverterImpl) ToArrEntity(models []*OutboxEventModel) []*usecase.OutboxEvent {
	out := make([]*usecase.OutboxEvent, 0, len(models))
	for _, m := range models {
		out = append(out, c.ToEntity(m))
	}
	return out
}
