package usecase

import (
	"time"

	"github.com/DRSN-tech/food-rating/internal/domain"
	"github.com/google/uuid"
)

// RATING USECASE

// CompareReq — запрос на сравнение продуктов.
type CompareReq struct {
	Products []domain.FeatureVector
}

// CompareRes — результат сравнения.
type CompareRes struct {
	Comparison *domain.Comparison
	Cached     bool
}

type ListComparisonsReq struct {
	Limit int
}

type SimilarProductsReq struct {
	Features domain.FeatureVector
	Limit    int
}

// DefaultsRes — данные для отрисовки пустой формы.
type DefaultsRes struct {
	Specs    []domain.FeatureSpec
	Products [domain.ProductsPerComparison]domain.FeatureVector
}

// INFRASTRUCTURE

// RateRes — результат инференса для батча.
type RateRes struct {
	Scores []float64
	Scaled [][]float64
}

type WriteRawMessageReq struct {
	Key     string
	Payload []byte
}

// REPOSITORIES

// ProductPoint — нормализованный вектор продукта из сравнения.
type ProductPoint struct {
	ID           string
	ComparisonID uuid.UUID
	Number       int
	Vector       []float32
	Features     domain.FeatureVector
	Score        float64
	ModelVersion string
}

type OutboxStatus string

const (
	Pending    OutboxStatus = "pending"
	Processing OutboxStatus = "processing"
	Processed  OutboxStatus = "processed"
	Failed     OutboxStatus = "failed"
)

type OutboxEventType string

const (
	ComparisonCreated OutboxEventType = "comparison.created"
)

// OutboxEvent — событие, ожидающее публикации в брокер.
type OutboxEvent struct {
	ID           int64
	EventID      string
	EventType    OutboxEventType
	ComparisonID uuid.UUID
	Payload      []byte
	Status       OutboxStatus
	CreatedAt    time.Time
	ProcessedAt  *time.Time
}

// MAPPERS

func NewCompareReq(products []domain.FeatureVector) *CompareReq {
	return &CompareReq{Products: products}
}

func NewCompareRes(c *domain.Comparison, cached bool) *CompareRes {
	return &CompareRes{Comparison: c, Cached: cached}
}

func NewListComparisonsReq(limit int) *ListComparisonsReq {
	return &ListComparisonsReq{Limit: limit}
}

func NewSimilarProductsReq(features domain.FeatureVector, limit int) *SimilarProductsReq {
	return &SimilarProductsReq{Features: features, Limit: limit}
}

func NewRateRes(scores []float64, scaled [][]float64) *RateRes {
	return &RateRes{Scores: scores, Scaled: scaled}
}

func NewWriteRawMessageReq(key string, payload []byte) *WriteRawMessageReq {
	return &WriteRawMessageReq{Key: key, Payload: payload}
}

func NewOutboxEvent(eventType OutboxEventType, comparisonID uuid.UUID, payload []byte) *OutboxEvent {
	return &OutboxEvent{
		EventID:      uuid.NewString(),
		EventType:    eventType,
		ComparisonID: comparisonID,
		Payload:      payload,
		Status:       Pending,
		CreatedAt:    time.Now().UTC(),
	}
}
