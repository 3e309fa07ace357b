package kafka

import (
	"time"

	"github.com/DRSN-tech/food-rating/internal/domain"
	"github.com/DRSN-tech/food-rating/pkg/e"
	"github.com/jimlawless/whereami"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// EventEncoder сериализует событие о сравнении в protobuf Struct.
type EventEncoder struct{}

func NewEventEncoder() *EventEncoder {
	return &EventEncoder{}
}

// EncodeComparison кодирует сравнение вместе со всеми признаками и рейтингами.
func (EventEncoder) EncodeComparison(c *domain.Comparison) ([]byte, error) {
	products := make([]any, 0, len(c.Products))
	for _, p := range c.Products {
		products = append(products, map[string]any{
			"number":   p.Number,
			"score":    p.Score,
			"rounded":  domain.FormatRating(p.Rounded),
			"features": featuresMap(p.Features),
		})
	}

	event, err := structpb.NewStruct(map[string]any{
		"comparison_id":  c.ID.String(),
		"best_product":   c.Best,
		"recommendation": c.Recommendation,
		"model_version":  c.ModelVersion,
		"created_at":     c.CreatedAt.UTC().Format(time.RFC3339Nano),
		"products":       products,
	})
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return proto.Marshal(event)
}

func featuresMap(f domain.FeatureVector) map[string]any {
	values := f.Array()
	out := make(map[string]any, domain.FeatureCount)
	for i, spec := range domain.FeatureSpecs() {
		out[spec.Name] = values[i]
	}
	return out
}
