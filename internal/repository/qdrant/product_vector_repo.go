package qdrant

import (
	"context"

	"github.com/DRSN-tech/food-rating/internal/domain"
	"github.com/DRSN-tech/food-rating/internal/usecase"
	"github.com/DRSN-tech/food-rating/pkg/clients"
	"github.com/DRSN-tech/food-rating/pkg/e"
	"github.com/google/uuid"
	"github.com/jimlawless/whereami"
	"github.com/qdrant/go-client/qdrant"
)

// Ключи payload точки
const (
	payloadComparisonID = "comparison_id"
	payloadNumber       = "product_number"
	payloadScore        = "score"
	payloadModelVersion = "model_version"
)

// ProductVectorRepo хранит нормализованные векторы оценённых продуктов в Qdrant.
type ProductVectorRepo struct {
	client *clients.QdrantClient
}

func NewProductVectorRepo(client *clients.QdrantClient) *ProductVectorRepo {
	return &ProductVectorRepo{
		client: client,
	}
}

// Upsert сохраняет или обновляет векторы продуктов в коллекции.
func (q *ProductVectorRepo) Upsert(ctx context.Context, points []usecase.ProductPoint) error {
	reqPoints := make([]*qdrant.PointStruct, 0, len(points))
	for _, p := range points {
		reqPoints = append(reqPoints, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(p.ID),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: qdrant.NewValueMap(toPayload(p)),
		})
	}

	_, err := q.client.Client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.client.CollectionName(),
		Points:         reqPoints,
	})
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

// Search возвращает limit ближайших по косинусу продуктов.
func (q *ProductVectorRepo) Search(ctx context.Context, vector []float32, limit int) ([]domain.SimilarProduct, error) {
	found, err := q.client.Client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.client.CollectionName(),
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	res := make([]domain.SimilarProduct, 0, len(found))
	for _, point := range found {
		sp, ok := fromPayload(point.GetPayload())
		if !ok {
			continue
		}
		sp.Similarity = point.GetScore()
		res = append(res, sp)
	}

	return res, nil
}

// toPayload раскладывает признаки по отдельным ключам, чтобы по ним можно было фильтровать.
func toPayload(p usecase.ProductPoint) map[string]any {
	payload := map[string]any{
		payloadComparisonID: p.ComparisonID.String(),
		payloadNumber:       p.Number,
		payloadScore:        p.Score,
		payloadModelVersion: p.ModelVersion,
	}

	values := p.Features.Array()
	for i, spec := range domain.FeatureSpecs() {
		payload[spec.Name] = values[i]
	}

	return payload
}

func fromPayload(payload map[string]*qdrant.Value) (domain.SimilarProduct, bool) {
	id, err := uuid.Parse(payload[payloadComparisonID].GetStringValue())
	if err != nil {
		return domain.SimilarProduct{}, false
	}

	var values [domain.FeatureCount]float64
	for i, spec := range domain.FeatureSpecs() {
		values[i] = numberValue(payload[spec.Name])
	}

	return domain.SimilarProduct{
		ComparisonID: id,
		Number:       int(payload[payloadNumber].GetIntegerValue()),
		Features:     domain.FeatureVectorFromValues(values),
		Score:        numberValue(payload[payloadScore]),
	}, true
}

// numberValue читает число независимо от того, сохранено ли оно как integer или double.
func numberValue(v *qdrant.Value) float64 {
	switch k := v.GetKind().(type) {
	case *qdrant.Value_DoubleValue:
		return k.DoubleValue
	case *qdrant.Value_IntegerValue:
		return float64(k.IntegerValue)
	default:
		return 0
	}
}
