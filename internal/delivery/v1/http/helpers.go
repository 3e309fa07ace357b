package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/DRSN-tech/food-rating/internal/domain"
	"github.com/DRSN-tech/food-rating/pkg/e"
	"github.com/google/uuid"
	"github.com/jimlawless/whereami"
	"github.com/shopspring/decimal"
)

type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func NewErrorResponse(code int, message string) *ErrorResponse {
	return &ErrorResponse{
		Code:    code,
		Message: message,
	}
}

// CompareRequest — тело POST /api/v1/ratings/compare. Отсутствующие признаки берутся по умолчанию.
type CompareRequest struct {
	Products []json.RawMessage `json:"products"`
}

type SimilarRequest struct {
	Product json.RawMessage `json:"product"`
	Limit   int             `json:"limit"`
}

type ProductRatingResponse struct {
	Number   int                  `json:"number"`
	Features domain.FeatureVector `json:"features"`
	Score    float64              `json:"score"`
	Rating   decimal.Decimal      `json:"rating"`
	Best     bool                 `json:"best"`
}

type ComparisonResponse struct {
	ID             uuid.UUID               `json:"id"`
	Products       []ProductRatingResponse `json:"products"`
	BestProduct    int                     `json:"best_product"`
	Recommendation string                  `json:"recommendation"`
	ModelVersion   string                  `json:"model_version"`
	CreatedAt      time.Time               `json:"created_at"`
	Cached         bool                    `json:"cached"`
}

type SimilarProductResponse struct {
	ComparisonID uuid.UUID            `json:"comparison_id"`
	Number       int                  `json:"product_number"`
	Features     domain.FeatureVector `json:"features"`
	Score        float64              `json:"score"`
	Rating       decimal.Decimal      `json:"rating"`
	Similarity   float32              `json:"similarity"`
}

type FeatureSpecResponse struct {
	Name    string  `json:"name"`
	Label   string  `json:"label"`
	Unit    string  `json:"unit,omitempty"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Step    float64 `json:"step"`
	Default float64 `json:"default"`
	Integer bool    `json:"integer"`
}

func ToHTTPResponse(err error) (int, string) {
	switch {
	case errors.Is(err, e.ErrProductCount):
		return http.StatusBadRequest, e.ErrProductCount.Error()
	case errors.Is(err, e.ErrInvalidPayload):
		return http.StatusBadRequest, e.ErrInvalidPayload.Error()
	case errors.Is(err, e.ErrInvalidID):
		return http.StatusBadRequest, e.ErrInvalidID.Error()
	case errors.Is(err, e.ErrStatusBadRequest):
		return http.StatusBadRequest, e.ErrStatusBadRequest.Error()
	case errors.Is(err, e.ErrComparisonNotFound):
		return http.StatusNotFound, e.ErrComparisonNotFound.Error()
	case errors.Is(err, e.ErrFeatureDisabled):
		return http.StatusNotImplemented, e.ErrFeatureDisabled.Error()
	default:
		return http.StatusInternalServerError, e.ErrInternalServerError.Error()
	}
}

func WriteError(w http.ResponseWriter, err error) {
	code, msg := ToHTTPResponse(err)
	WriteSuccess(w, code, NewErrorResponse(code, msg))
}

func WriteSuccess(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// decodeJSON читает тело запроса не больше maxSize байт и запрещает неизвестные поля.
func decodeJSON(w http.ResponseWriter, r *http.Request, maxSize int64, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return e.Wrap(whereami.WhereAmI(), fmt.Errorf("%w: %v", e.ErrInvalidPayload, err))
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return e.Wrap(whereami.WhereAmI(), fmt.Errorf("%w: trailing data", e.ErrInvalidPayload))
	}

	return nil
}

// parseFeatures накладывает переданные признаки на значения по умолчанию.
func parseFeatures(raw json.RawMessage) (domain.FeatureVector, error) {
	features := domain.DefaultFeatureVector()
	if len(raw) == 0 || string(raw) == "null" {
		return features, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&features); err != nil {
		return domain.FeatureVector{}, fmt.Errorf("%w: %v", e.ErrInvalidPayload, err)
	}

	return features, nil
}

func parseProducts(raw []json.RawMessage) ([]domain.FeatureVector, error) {
	products := make([]domain.FeatureVector, 0, len(raw))
	for i, p := range raw {
		features, err := parseFeatures(p)
		if err != nil {
			return nil, e.Wrap(fmt.Sprintf("product %d", i+1), err)
		}
		products = append(products, features)
	}
	return products, nil
}

// formFieldName — имя поля формы для признака продукта (нумерация с 1).
func formFieldName(product int, feature string) string {
	return fmt.Sprintf("p%d_%s", product, feature)
}

// parseProductsForm читает три продукта из формы. Пустые и нечисловые значения
// заменяются значениями по умолчанию, остальные приводятся к диапазону.
func parseProductsForm(r *http.Request) ([]domain.FeatureVector, error) {
	if err := r.ParseForm(); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), fmt.Errorf("%w: %v", e.ErrInvalidPayload, err))
	}

	specs := domain.FeatureSpecs()
	products := make([]domain.FeatureVector, 0, domain.ProductsPerComparison)
	for p := 1; p <= domain.ProductsPerComparison; p++ {
		var values [domain.FeatureCount]float64
		for i, spec := range specs {
			values[i] = parseFormValue(r.PostFormValue(formFieldName(p, spec.Name)), spec)
		}
		products = append(products, domain.FeatureVectorFromValues(values).Clamp())
	}

	return products, nil
}

func parseFormValue(raw string, spec domain.FeatureSpec) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return spec.Default
	}
	return spec.Clamp(v)
}

func parseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, e.Wrap("limit="+raw, e.ErrStatusBadRequest)
	}
	return limit, nil
}

func toComparisonResponse(c *domain.Comparison, cached bool) *ComparisonResponse {
	products := make([]ProductRatingResponse, 0, len(c.Products))
	for _, p := range c.Products {
		products = append(products, ProductRatingResponse{
			Number:   p.Number,
			Features: p.Features,
			Score:    p.Score,
			Rating:   p.Rounded,
			Best:     p.Number == c.Best,
		})
	}

	return &ComparisonResponse{
		ID:             c.ID,
		Products:       products,
		BestProduct:    c.Best,
		Recommendation: c.Recommendation,
		ModelVersion:   c.ModelVersion,
		CreatedAt:      c.CreatedAt,
		Cached:         cached,
	}
}

func toSimilarResponse(list []domain.SimilarProduct) []SimilarProductResponse {
	res := make([]SimilarProductResponse, 0, len(list))
	for _, sp := range list {
		res = append(res, SimilarProductResponse{
			ComparisonID: sp.ComparisonID,
			Number:       sp.Number,
			Features:     sp.Features,
			Score:        sp.Score,
			Rating:       domain.RoundRating(sp.Score),
			Similarity:   sp.Similarity,
		})
	}
	return res
}

func toFeatureSpecsResponse(specs []domain.FeatureSpec) []FeatureSpecResponse {
	res := make([]FeatureSpecResponse, 0, len(specs))
	for _, s := range specs {
		res = append(res, FeatureSpecResponse(s))
	}
	return res
}
