package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductsPerComparison — сколько продуктов сравнивается за один запрос.
const ProductsPerComparison = 3

// RatingPrecision — число знаков после запятой при отображении рейтинга.
const RatingPrecision = 2

// ProductRating — рейтинг одного продукта в сравнении.
type ProductRating struct {
	Number   int // нумерация с 1
	Features FeatureVector
	Score    float64
	Rounded  decimal.Decimal
}

// Comparison — результат сравнения трёх продуктов.
type Comparison struct {
	ID             uuid.UUID
	Products       [ProductsPerComparison]ProductRating
	Best           int // номер лучшего продукта, нумерация с 1
	Recommendation string
	ModelVersion   string
	Fingerprint    string
	CreatedAt      time.Time
}

// RoundRating округляет рейтинг до двух знаков: rint(score*100)/100 в арифметике float64.
// Половина округляется к чётному уже после умножения, поэтому 0.545 даёт 0.55.
func RoundRating(score float64) decimal.Decimal {
	scale := math.Pow10(RatingPrecision)
	return decimal.NewFromFloat(math.RoundToEven(score*scale) / scale)
}

// FormatRating печатает округлённый рейтинг как число с плавающей точкой:
// целые значения получают один знак после запятой ("4.0").
func FormatRating(d decimal.Decimal) string {
	if d.Equal(d.Truncate(0)) {
		return d.StringFixed(1)
	}
	return d.String()
}

// BestIndex возвращает индекс максимального элемента (при равенстве первый). Для пустого слайса -1.
func BestIndex(scores []float64) int {
	best := -1
	for i, s := range scores {
		if best == -1 || s > scores[best] {
			best = i
		}
	}
	return best
}

// NewProductRating собирает рейтинг продукта с округлённым значением.
func NewProductRating(number int, features FeatureVector, score float64) ProductRating {
	return ProductRating{
		Number:   number,
		Features: features,
		Score:    score,
		Rounded:  RoundRating(score),
	}
}

// Scores возвращает сырые рейтинги в порядке продуктов.
func (c *Comparison) Scores() []float64 {
	scores := make([]float64, 0, ProductsPerComparison)
	for _, p := range c.Products {
		scores = append(scores, p.Score)
	}
	return scores
}

// BestProduct возвращает рейтинг лучшего продукта.
func (c *Comparison) BestProduct() ProductRating {
	return c.Products[c.Best-1]
}

// SimilarProduct — ранее оценённый продукт, близкий к запрошенному.
type SimilarProduct struct {
	ComparisonID uuid.UUID
	Number       int
	Features     FeatureVector
	Score        float64
	Similarity   float32
}
