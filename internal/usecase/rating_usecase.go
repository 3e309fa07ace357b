package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/DRSN-tech/food-rating/internal/domain"
	"github.com/DRSN-tech/food-rating/pkg/e"
	"github.com/DRSN-tech/food-rating/pkg/logger"
	"github.com/google/uuid"
)

const (
	defaultListLimit    = 20
	maxListLimit        = 100
	defaultSimilarLimit = 5
	maxSimilarLimit     = 50
	cacheWriteTimeout   = 500 * time.Millisecond
)

// RatingUseCase сравнивает продукты по рейтингу модели и формирует рекомендацию.
// comparisonRepo, outboxRepo, cacheRepo и vectorRepo необязательны: nil отключает соответствующую функцию.
type RatingUseCase struct {
	pipeline       RatingPipeline
	textGen        TextGenerator
	logger         logger.Logger
	txManager      TxManager
	comparisonRepo ComparisonRepository
	outboxRepo     OutboxRepository
	encoder        EventEncoder
	cacheRepo      CacheRepository
	vectorRepo     VectorRepository
	now            func() time.Time
}

func NewRatingUC(
	pipeline RatingPipeline,
	textGen TextGenerator,
	logger logger.Logger,
	txManager TxManager,
	comparisonRepo ComparisonRepository,
	outboxRepo OutboxRepository,
	encoder EventEncoder,
	cacheRepo CacheRepository,
	vectorRepo VectorRepository,
) *RatingUseCase {
	return &RatingUseCase{
		pipeline:       pipeline,
		textGen:        textGen,
		logger:         logger,
		txManager:      txManager,
		comparisonRepo: comparisonRepo,
		outboxRepo:     outboxRepo,
		encoder:        encoder,
		cacheRepo:      cacheRepo,
		vectorRepo:     vectorRepo,
		now:            time.Now,
	}
}

// Compare оценивает три продукта, выбирает лучший и формирует текст рекомендации.
func (r *RatingUseCase) Compare(ctx context.Context, req *CompareReq) (*CompareRes, error) {
	const op = "RatingUseCase.Compare"

	if len(req.Products) != domain.ProductsPerComparison {
		return nil, e.Wrap(op, fmt.Errorf("%w: got %d", e.ErrProductCount, len(req.Products)))
	}

	products := make([]domain.FeatureVector, 0, len(req.Products))
	batch := make([][]float64, 0, len(req.Products))
	for _, p := range req.Products {
		clamped := p.Clamp()
		products = append(products, clamped)
		batch = append(batch, clamped.Values())
	}

	fingerprint := Fingerprint(products, r.pipeline.ModelVersion())

	// Поиск результата в кэше: рейтинги берутся из кэша, текст выбирается заново
	if cached := r.getCached(ctx, fingerprint); cached != nil {
		hit := *cached
		hit.Recommendation = r.textGen.Generate(hit.Scores())
		return NewCompareRes(&hit, true), nil
	}

	rated, err := r.pipeline.Rate(batch)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	if len(rated.Scores) != domain.ProductsPerComparison {
		return nil, e.Wrap(op, fmt.Errorf("%w: got %d scores", e.ErrPredictionShape, len(rated.Scores)))
	}

	comparison := &domain.Comparison{
		ID:           uuid.New(),
		Best:         domain.BestIndex(rated.Scores) + 1,
		ModelVersion: r.pipeline.ModelVersion(),
		Fingerprint:  fingerprint,
		CreatedAt:    r.now().UTC(),
	}
	for i, score := range rated.Scores {
		comparison.Products[i] = domain.NewProductRating(i+1, products[i], score)
	}
	comparison.Recommendation = r.textGen.Generate(rated.Scores)

	// Сохранение истории и события в одной транзакции
	if err := r.saveComparison(ctx, comparison); err != nil {
		return nil, e.Wrap(op, err)
	}

	// Индексация векторов и кэширование не влияют на ответ
	r.indexProducts(ctx, comparison, rated.Scaled)
	r.setCached(comparison)

	return NewCompareRes(comparison, false), nil
}

// GetComparison возвращает сохранённое сравнение по идентификатору.
func (r *RatingUseCase) GetComparison(ctx context.Context, id uuid.UUID) (*domain.Comparison, error) {
	const op = "RatingUseCase.GetComparison"

	if r.comparisonRepo == nil {
		return nil, e.Wrap(op, e.ErrFeatureDisabled)
	}

	c, err := r.comparisonRepo.GetByID(ctx, id)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return c, nil
}

// ListComparisons возвращает последние сравнения, новые первыми.
func (r *RatingUseCase) ListComparisons(ctx context.Context, req *ListComparisonsReq) ([]domain.Comparison, error) {
	const op = "RatingUseCase.ListComparisons"

	if r.comparisonRepo == nil {
		return nil, e.Wrap(op, e.ErrFeatureDisabled)
	}

	list, err := r.comparisonRepo.List(ctx, clampLimit(req.Limit, defaultListLimit, maxListLimit))
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return list, nil
}

// SimilarProducts ищет ранее оценённые продукты, близкие к заданному по нормализованному вектору.
func (r *RatingUseCase) SimilarProducts(ctx context.Context, req *SimilarProductsReq) ([]domain.SimilarProduct, error) {
	const op = "RatingUseCase.SimilarProducts"

	if r.vectorRepo == nil {
		return nil, e.Wrap(op, e.ErrFeatureDisabled)
	}

	rated, err := r.pipeline.Rate([][]float64{req.Features.Clamp().Values()})
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	if len(rated.Scaled) != 1 {
		return nil, e.Wrap(op, e.ErrPredictionShape)
	}

	similar, err := r.vectorRepo.Search(ctx, toFloat32(rated.Scaled[0]), clampLimit(req.Limit, defaultSimilarLimit, maxSimilarLimit))
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return similar, nil
}

// Defaults возвращает описание признаков и значения по умолчанию для формы.
func (r *RatingUseCase) Defaults() *DefaultsRes {
	res := &DefaultsRes{Specs: domain.FeatureSpecs()}
	for i := range res.Products {
		res.Products[i] = domain.DefaultFeatureVector()
	}
	return res
}

// saveComparison сохраняет сравнение и событие outbox, если история включена.
func (r *RatingUseCase) saveComparison(ctx context.Context, c *domain.Comparison) error {
	if r.comparisonRepo == nil {
		return nil
	}

	return r.txManager.WithinTx(ctx, func(ctx context.Context) error {
		if err := r.comparisonRepo.Create(ctx, c); err != nil {
			return err
		}

		if r.outboxRepo == nil || r.encoder == nil {
			return nil
		}

		payload, err := r.encoder.EncodeComparison(c)
		if err != nil {
			return err
		}

		_, err = r.outboxRepo.Create(ctx, NewOutboxEvent(ComparisonCreated, c.ID, payload))
		return err
	})
}

func (r *RatingUseCase) getCached(ctx context.Context, fingerprint string) *domain.Comparison {
	if r.cacheRepo == nil {
		return nil
	}

	c, err := r.cacheRepo.GetComparison(ctx, fingerprint)
	if err != nil {
		r.logger.Warnf("Failed to read comparison from cache: %v", err)
		return nil
	}

	return c
}

// setCached кэширует результат в фоне.
func (r *RatingUseCase) setCached(c *domain.Comparison) {
	if r.cacheRepo == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), cacheWriteTimeout)
		defer cancel()

		if err := r.cacheRepo.SetComparison(ctx, c); err != nil {
			r.logger.Warnf("Failed to cache comparison %s: %v", c.ID, err)
		}
	}()
}

func (r *RatingUseCase) indexProducts(ctx context.Context, c *domain.Comparison, scaled [][]float64) {
	if r.vectorRepo == nil {
		return
	}
	if len(scaled) != len(c.Products) {
		r.logger.Warnf("Skip vector indexing for %s: %d scaled rows", c.ID, len(scaled))
		return
	}

	points := make([]ProductPoint, 0, len(c.Products))
	for i, p := range c.Products {
		points = append(points, ProductPoint{
			ID:           uuid.NewString(),
			ComparisonID: c.ID,
			Number:       p.Number,
			Vector:       toFloat32(scaled[i]),
			Features:     p.Features,
			Score:        p.Score,
			ModelVersion: c.ModelVersion,
		})
	}

	if err := r.vectorRepo.Upsert(ctx, points); err != nil {
		r.logger.Warnf("Failed to index products of comparison %s: %v", c.ID, err)
	}
}

// Fingerprint — sha256 от значений признаков и версии модели, ключ кэша результата.
func Fingerprint(products []domain.FeatureVector, modelVersion string) string {
	h := sha256.New()
	h.Write([]byte(modelVersion))
	for _, p := range products {
		for _, v := range p.Values() {
			h.Write([]byte{'|'})
			h.Write(strconv.AppendFloat(nil, v, 'g', -1, 64))
		}
		h.Write([]byte{';'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func clampLimit(limit, def, maxLimit int) int {
	if limit <= 0 {
		return def
	}
	return min(limit, maxLimit)
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}
