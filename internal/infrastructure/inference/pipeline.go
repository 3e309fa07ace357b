package inference

import (
	"fmt"

	"github.com/DRSN-tech/food-rating/internal/domain"
	"github.com/DRSN-tech/food-rating/internal/usecase"
	"github.com/DRSN-tech/food-rating/pkg/e"
	"github.com/jimlawless/whereami"
)

// Blob — содержимое артефакта и имя, по которому определяется формат.
type Blob struct {
	Name string
	Data []byte
}

// Pipeline — скейлер и модель, загруженные один раз при старте. Только для чтения, безопасен для конкурентного использования.
type Pipeline struct {
	scaler *Scaler
	model  *Model
}

func NewPipeline(scaler *Scaler, model *Model) (*Pipeline, error) {
	if scaler.Features() != model.features {
		return nil, fmt.Errorf("%w: scaler expects %d features, model %d", e.ErrArtifactShape, scaler.Features(), model.features)
	}
	return &Pipeline{scaler: scaler, model: model}, nil
}

// LoadPipeline декодирует и проверяет артефакты скейлера и модели.
func LoadPipeline(scalerBlob, modelBlob Blob) (*Pipeline, error) {
	scalerFormat, err := FormatFromName(scalerBlob.Name)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	scalerArtifact, err := DecodeScaler(scalerBlob.Data, scalerFormat)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	scaler, err := NewScaler(scalerArtifact, domain.FeatureCount)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	modelFormat, err := FormatFromName(modelBlob.Name)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	modelArtifact, err := DecodeModel(modelBlob.Data, modelFormat)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	model, err := NewModel(modelArtifact, domain.FeatureCount)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return NewPipeline(scaler, model)
}

// ModelVersion возвращает версию модели вместе с версией скейлера.
func (p *Pipeline) ModelVersion() string {
	switch {
	case p.scaler.Version() == "":
		return p.model.Version()
	case p.model.Version() == "":
		return p.scaler.Version()
	default:
		return p.model.Version() + "+" + p.scaler.Version()
	}
}

// Rate нормализует батч и предсказывает рейтинги.
func (p *Pipeline) Rate(batch [][]float64) (*usecase.RateRes, error) {
	const op = "Pipeline.Rate"

	scaled, err := p.scaler.Transform(batch)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	scores, err := p.model.Predict(scaled)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return usecase.NewRateRes(scores, scaled), nil
}
