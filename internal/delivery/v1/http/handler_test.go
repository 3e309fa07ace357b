package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/DRSN-tech/food-rating/internal/domain"
	"github.com/DRSN-tech/food-rating/internal/usecase"
	"github.com/DRSN-tech/food-rating/pkg/e"
	"github.com/DRSN-tech/food-rating/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRatingUC оценивает продукт по калориям: чем меньше, тем выше рейтинг.
type fakeRatingUC struct {
	got        []domain.FeatureVector
	stored     map[uuid.UUID]*domain.Comparison
	similar    []domain.SimilarProduct
	similarErr error
	listLimit  int
}

func (f *fakeRatingUC) Compare(_ context.Context, req *usecase.CompareReq) (*usecase.CompareRes, error) {
	if len(req.Products) != domain.ProductsPerComparison {
		return nil, e.Wrap("fake", e.ErrProductCount)
	}
	f.got = req.Products

	c := &domain.Comparison{ID: uuid.New(), ModelVersion: "fake", CreatedAt: time.Now().UTC()}
	scores := make([]float64, 0, len(req.Products))
	for i, p := range req.Products {
		score := (400 - p.Clamp().Calories) / 40
		scores = append(scores, score)
		c.Products[i] = domain.NewProductRating(i+1, p.Clamp(), score)
	}
	c.Best = domain.BestIndex(scores) + 1
	c.Recommendation = "Product " + string(rune('0'+c.Best)) + " wins."
	return usecase.NewCompareRes(c, false), nil
}

func (f *fakeRatingUC) GetComparison(_ context.Context, id uuid.UUID) (*domain.Comparison, error) {
	if c, ok := f.stored[id]; ok {
		return c, nil
	}
	return nil, e.Wrap("fake", e.ErrComparisonNotFound)
}

func (f *fakeRatingUC) ListComparisons(_ context.Context, req *usecase.ListComparisonsReq) ([]domain.Comparison, error) {
	f.listLimit = req.Limit
	out := make([]domain.Comparison, 0, len(f.stored))
	for _, c := range f.stored {
		out = append(out, *c)
	}
	return out, nil
}

func (f *fakeRatingUC) SimilarProducts(context.Context, *usecase.SimilarProductsReq) ([]domain.SimilarProduct, error) {
	return f.similar, f.similarErr
}

func (f *fakeRatingUC) Defaults() *usecase.DefaultsRes {
	res := &usecase.DefaultsRes{Specs: domain.FeatureSpecs()}
	for i := range res.Products {
		res.Products[i] = domain.DefaultFeatureVector()
	}
	return res
}

func newTestRouter(uc usecase.RatingUC) http.Handler {
	mux := chi.NewRouter()
	NewRouter(mux, logger.NewNop()).Init(uc, 1<<20)
	return mux
}

func do(t *testing.T, h http.Handler, method, target, body, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCompare_JSON(t *testing.T) {
	uc := &fakeRatingUC{}
	h := newTestRouter(uc)

	body := `{"products":[{"calories":280},{"calories":210,"fats":3.5},{}]}`
	rec := do(t, h, http.MethodPost, "/api/v1/ratings/compare", body, "application/json")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res ComparisonResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, 2, res.BestProduct)
	require.Len(t, res.Products, 3)
	assert.True(t, res.Products[1].Best)
	assert.False(t, res.Products[0].Best)
	assert.Equal(t, "4.75", res.Products[1].Rating.String())

	// отсутствующие признаки заполняются значениями по умолчанию
	assert.Equal(t, domain.DefaultFeatureVector(), uc.got[2])
	assert.InDelta(t, 3.5, uc.got[1].Fats, 1e-9)
	assert.InDelta(t, 10.0, uc.got[1].Proteins, 1e-9)
}

func TestCompare_JSONErrors(t *testing.T) {
	h := newTestRouter(&fakeRatingUC{})

	cases := []struct {
		name string
		body string
		code int
	}{
		{"two products", `{"products":[{},{}]}`, http.StatusBadRequest},
		{"unknown feature", `{"products":[{"colour":1},{},{}]}`, http.StatusBadRequest},
		{"not json", `products`, http.StatusBadRequest},
		{"trailing data", `{"products":[{},{},{}]} {}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/v1/ratings/compare", tc.body, "application/json")
			assert.Equal(t, tc.code, rec.Code)

			var res ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
			assert.Equal(t, tc.code, res.Code)
		})
	}
}

func TestGetComparison(t *testing.T) {
	id := uuid.New()
	c := &domain.Comparison{ID: id, Best: 1, Recommendation: "x"}
	for i := range c.Products {
		c.Products[i] = domain.NewProductRating(i+1, domain.DefaultFeatureVector(), 1)
	}
	h := newTestRouter(&fakeRatingUC{stored: map[uuid.UUID]*domain.Comparison{id: c}})

	rec := do(t, h, http.MethodGet, "/api/v1/ratings/"+id.String(), "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/v1/ratings/"+uuid.NewString(), "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/v1/ratings/not-a-uuid", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListComparisons_Limit(t *testing.T) {
	uc := &fakeRatingUC{}
	h := newTestRouter(uc)

	rec := do(t, h, http.MethodGet, "/api/v1/ratings?limit=7", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 7, uc.listLimit)

	rec = do(t, h, http.MethodGet, "/api/v1/ratings?limit=abc", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSimilar_Disabled(t *testing.T) {
	h := newTestRouter(&fakeRatingUC{similarErr: e.Wrap("fake", e.ErrFeatureDisabled)})

	rec := do(t, h, http.MethodPost, "/api/v1/ratings/similar", `{"product":{"calories":220},"limit":3}`, "application/json")
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestSimilar_OK(t *testing.T) {
	h := newTestRouter(&fakeRatingUC{similar: []domain.SimilarProduct{
		{ComparisonID: uuid.New(), Number: 3, Features: domain.DefaultFeatureVector(), Score: 4.125, Similarity: 0.99},
	}})

	rec := do(t, h, http.MethodPost, "/api/v1/ratings/similar", `{"product":{}}`, "application/json")
	require.Equal(t, http.StatusOK, rec.Code)

	var res struct {
		Products []SimilarProductResponse `json:"products"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Len(t, res.Products, 1)
	assert.Equal(t, "4.12", res.Products[0].Rating.String())
}

func TestFeaturesAndHealth(t *testing.T) {
	h := newTestRouter(&fakeRatingUC{})

	rec := do(t, h, http.MethodGet, "/api/v1/features", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var res struct {
		Features []FeatureSpecResponse `json:"features"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Len(t, res.Features, domain.FeatureCount)
	assert.Equal(t, "calories", res.Features[0].Name)
	assert.True(t, res.Features[0].Integer)

	rec = do(t, h, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestIndexPage(t *testing.T) {
	h := newTestRouter(&fakeRatingUC{})

	rec := do(t, h, http.MethodGet, "/", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `name="p1_calories"`)
	assert.Contains(t, body, `name="p3_sodium"`)
	assert.Contains(t, body, `min="200" max="300" step="1" value="250"`)
	assert.NotContains(t, body, "Recommended Product")
}

func TestSubmitForm(t *testing.T) {
	uc := &fakeRatingUC{}
	h := newTestRouter(uc)

	form := url.Values{}
	form.Set("p1_calories", "290")
	form.Set("p2_calories", "150")   // ниже минимума, приводится к 200
	form.Set("p3_calories", "abc")   // по умолчанию 250
	form.Set("p2_shelf_life", "7.6") // целочисленный признак округляется

	rec := do(t, h, http.MethodPost, "/", form.Encode(), "application/x-www-form-urlencoded")
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, uc.got, 3)
	assert.InDelta(t, 200.0, uc.got[1].Calories, 1e-9)
	assert.InDelta(t, 250.0, uc.got[2].Calories, 1e-9)
	assert.InDelta(t, 8.0, uc.got[1].ShelfLife, 1e-9)

	body := rec.Body.String()
	assert.Contains(t, body, "Recommended Product: Product 2")
	assert.Contains(t, body, "Product 2: 5")
	assert.Contains(t, body, `<li class="best">Product 2: 5.0</li>`)
	assert.Contains(t, body, "Product 2 wins.")
	assert.Contains(t, body, `name="p2_calories" min="200" max="300" step="1" value="200"`)
}
