package converter

import (
	"testing"
	"time"

	"github.com/DRSN-tech/food-rating/internal/domain"
	"github.com/DRSN-tech/food-rating/internal/usecase"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComparisonConverter_RestoresRoundedRatings(t *testing.T) {
	conv := NewComparisonConverterImpl()
	model := &ComparisonModel{
		ID:          uuid.New(),
		BestProduct: 3,
		Products: []ProductRatingJSON{
			{Number: 1, Features: domain.DefaultFeatureVector(), Score: 1.234},
			{Number: 2, Features: domain.DefaultFeatureVector(), Score: 2.345},
			{Number: 3, Features: domain.DefaultFeatureVector(), Score: 3.999},
		},
		CreatedAt: time.Unix(1700000000, 0).UTC(),
	}

	c, err := conv.ToEntity(model)
	require.NoError(t, err)
	assert.Equal(t, 3, c.Best)
	assert.Equal(t, "1.23", c.Products[0].Rounded.String())
	assert.Equal(t, "4", c.Products[2].Rounded.String())

	back := conv.ToModel(c)
	assert.Equal(t, model.Products, back.Products)
	assert.Equal(t, model.BestProduct, back.BestProduct)
}

func TestComparisonConverter_RejectsWrongProductCount(t *testing.T) {
	_, err := NewComparisonConverterImpl().ToEntity(&ComparisonModel{Products: make([]ProductRatingJSON, 2)})
	require.Error(t, err)
}

func TestOutboxEventConverter(t *testing.T) {
	conv := NewOutboxEventConverterImpl()
	event := usecase.NewOutboxEvent(usecase.ComparisonCreated, uuid.New(), []byte{1, 2})

	model, err := conv.ToModel(event)
	require.NoError(t, err)
	assert.Equal(t, "comparison.created", model.EventType)
	assert.Equal(t, "pending", model.Status)

	assert.Equal(t, event, conv.ToEntity(model))

	_, err = conv.ToModel(&usecase.OutboxEvent{EventID: "nope"})
	require.Error(t, err)
}
