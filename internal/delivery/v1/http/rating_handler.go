package http

import (
	"net/http"

	"github.com/DRSN-tech/food-rating/internal/usecase"
	"github.com/DRSN-tech/food-rating/pkg/e"
	"github.com/DRSN-tech/food-rating/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type RatingHandler struct {
	ratingUsecase  usecase.RatingUC
	logger         logger.Logger
	maxRequestSize int64
}

func NewRatingHandler(ratingUsecase usecase.RatingUC, logger logger.Logger, maxRequestSize int64) *RatingHandler {
	return &RatingHandler{ratingUsecase: ratingUsecase, logger: logger, maxRequestSize: maxRequestSize}
}

// compare — POST /api/v1/ratings/compare
func (h *RatingHandler) compare(w http.ResponseWriter, r *http.Request) {
	var req CompareRequest
	if err := decodeJSON(w, r, h.maxRequestSize, &req); err != nil {
		h.logger.Warnf("%d %s: %s", http.StatusBadRequest, e.ErrStatusBadRequest.Error(), err.Error())
		WriteError(w, err)
		return
	}

	products, err := parseProducts(req.Products)
	if err != nil {
		h.logger.Warnf("%d %s: %s", http.StatusBadRequest, e.ErrStatusBadRequest.Error(), err.Error())
		WriteError(w, err)
		return
	}

	res, err := h.ratingUsecase.Compare(r.Context(), usecase.NewCompareReq(products))
	if err != nil {
		h.logError(err)
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, toComparisonResponse(res.Comparison, res.Cached))
}

// getComparison — GET /api/v1/ratings/{id}
func (h *RatingHandler) getComparison(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, e.Wrap(chi.URLParam(r, "id"), e.ErrInvalidID))
		return
	}

	c, err := h.ratingUsecase.GetComparison(r.Context(), id)
	if err != nil {
		h.logError(err)
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, toComparisonResponse(c, false))
}

// listComparisons — GET /api/v1/ratings?limit=N
func (h *RatingHandler) listComparisons(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	list, err := h.ratingUsecase.ListComparisons(r.Context(), usecase.NewListComparisonsReq(limit))
	if err != nil {
		h.logError(err)
		WriteError(w, err)
		return
	}

	res := make([]*ComparisonResponse, 0, len(list))
	for i := range list {
		res = append(res, toComparisonResponse(&list[i], false))
	}

	WriteSuccess(w, http.StatusOK, map[string]any{"comparisons": res})
}

// similar — POST /api/v1/ratings/similar
func (h *RatingHandler) similar(w http.ResponseWriter, r *http.Request) {
	var req SimilarRequest
	if err := decodeJSON(w, r, h.maxRequestSize, &req); err != nil {
		WriteError(w, err)
		return
	}

	features, err := parseFeatures(req.Product)
	if err != nil {
		WriteError(w, err)
		return
	}

	list, err := h.ratingUsecase.SimilarProducts(r.Context(), usecase.NewSimilarProductsReq(features, req.Limit))
	if err != nil {
		h.logError(err)
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, map[string]any{"products": toSimilarResponse(list)})
}

// features — GET /api/v1/features
func (h *RatingHandler) features(w http.ResponseWriter, _ *http.Request) {
	defaults := h.ratingUsecase.Defaults()
	WriteSuccess(w, http.StatusOK, map[string]any{"features": toFeatureSpecsResponse(defaults.Specs)})
}

func (h *RatingHandler) logError(err error) {
	if code, _ := ToHTTPResponse(err); code >= http.StatusInternalServerError && code != http.StatusNotImplemented {
		h.logger.Errorf(err, "rating request failed")
		return
	}
	h.logger.Warnf("%s", err.Error())
}
