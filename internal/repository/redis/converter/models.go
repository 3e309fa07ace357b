package converter

import (
	"time"

	"github.com/DRSN-tech/food-rating/internal/domain"
)

// ComparisonRedisModel — представление сравнения в кэше.
type ComparisonRedisModel struct {
	ID             string               `json:"id"`
	Fingerprint    string               `json:"fingerprint"`
	ModelVersion   string               `json:"model_version"`
	Best           int                  `json:"best"`
	Recommendation string               `json:"recommendation"`
	Products       []ProductRatingRedis `json:"products"`
	CreatedAt      time.Time            `json:"created_at"`
}

type ProductRatingRedis struct {
	Number   int                  `json:"number"`
	Features domain.FeatureVector `json:"features"`
	Score    float64              `json:"score"`
}
