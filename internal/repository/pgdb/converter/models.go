package converter

import (
	"time"

	"github.com/DRSN-tech/food-rating/internal/domain"
	"github.com/google/uuid"
)

// ComparisonModel представляет запись таблицы comparisons в PostgreSQL.
type ComparisonModel struct {
	ID             uuid.UUID           `db:"id"`
	Fingerprint    string              `db:"fingerprint"`
	ModelVersion   string              `db:"model_version"`
	BestProduct    int16               `db:"best_product"`
	Recommendation string              `db:"recommendation"`
	Products       []ProductRatingJSON `db:"products"`
	CreatedAt      time.Time           `db:"created_at"`
}

// ProductRatingJSON — элемент JSONB-колонки products.
type ProductRatingJSON struct {
	Number   int                  `json:"number"`
	Features domain.FeatureVector `json:"features"`
	Score    float64              `json:"score"`
}

// OutboxEventModel представляет запись таблицы outbox_events в PostgreSQL.
type OutboxEventModel struct {
	ID           int64      `db:"id"`
	EventID      uuid.UUID  `db:"event_id"`
	EventType    string     `db:"event_type"`
	ComparisonID uuid.UUID  `db:"comparison_id"`
	Payload      []byte     `db:"payload"`
	Status       string     `db:"status"`
	CreatedAt    time.Time  `db:"created_at"`
	ProcessedAt  *time.Time `db:"processed_at"`
}
