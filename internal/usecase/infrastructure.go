package usecase

import (
	"context"

	"github.com/DRSN-tech/food-rating/internal/domain"
)

// RatingPipeline — загруженные скейлер и модель.
type RatingPipeline interface {
	Rate(batch [][]float64) (*RateRes, error)
	ModelVersion() string
}

// TextGenerator формирует текст рекомендации по рейтингам.
type TextGenerator interface {
	Generate(scores []float64) string
}

// EventEncoder сериализует событие о сравнении для брокера.
type EventEncoder interface {
	EncodeComparison(c *domain.Comparison) ([]byte, error)
}

type MessageProducer interface {
	WriteRawMessage(ctx context.Context, req *WriteRawMessageReq) error
}

// TxManager выполняет fn в одной транзакции БД.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
