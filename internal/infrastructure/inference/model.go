package inference

import (
	"fmt"

	"github.com/DRSN-tech/food-rating/pkg/e"
)

// Виды регрессионных моделей
const (
	ModelLinear           = "linear"
	ModelForest           = "forest"
	ModelGradientBoosting = "gradient_boosting"
)

// ModelArtifact — сериализованная регрессионная модель рейтинга.
type ModelArtifact struct {
	Kind         string         `json:"kind" yaml:"kind"`
	Version      string         `json:"version" yaml:"version"`
	Coef         []float64      `json:"coef,omitempty" yaml:"coef,omitempty"`
	Intercept    float64        `json:"intercept,omitempty" yaml:"intercept,omitempty"`
	Trees        []TreeArtifact `json:"trees,omitempty" yaml:"trees,omitempty"`
	Init         float64        `json:"init,omitempty" yaml:"init,omitempty"`
	LearningRate float64        `json:"learning_rate,omitempty" yaml:"learning_rate,omitempty"`
}

// Regressor отображает нормализованный вектор признаков в рейтинг.
type Regressor interface {
	PredictOne(x []float64) float64
}

// Model — загруженная модель рейтинга.
type Model struct {
	kind     string
	version  string
	features int
	reg      Regressor
}

// NewModel проверяет артефакт и строит модель для векторов размерности features.
func NewModel(a *ModelArtifact, features int) (*Model, error) {
	const op = "inference.NewModel"

	var (
		reg Regressor
		err error
	)
	switch a.Kind {
	case ModelLinear:
		reg, err = newLinear(a, features)
	case ModelForest:
		reg, err = newForest(a, features)
	case ModelGradientBoosting:
		reg, err = newBoosting(a, features)
	default:
		err = fmt.Errorf("%w: model %q", e.ErrUnknownArtifactKind, a.Kind)
	}
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return &Model{kind: a.Kind, version: a.Version, features: features, reg: reg}, nil
}

func (m *Model) Kind() string {
	return m.kind
}

func (m *Model) Version() string {
	return m.version
}

// Predict возвращает рейтинг для каждой строки батча.
func (m *Model) Predict(batch [][]float64) ([]float64, error) {
	out := make([]float64, len(batch))
	for row, x := range batch {
		if len(x) != m.features {
			return nil, fmt.Errorf("%w: row %d has %d features, want %d", e.ErrArtifactShape, row, len(x), m.features)
		}
		out[row] = m.reg.PredictOne(x)
	}
	return out, nil
}

type linear struct {
	coef      []float64
	intercept float64
}

func newLinear(a *ModelArtifact, features int) (*linear, error) {
	if len(a.Coef) != features {
		return nil, fmt.Errorf("%w: coef has %d values, want %d", e.ErrArtifactShape, len(a.Coef), features)
	}
	return &linear{coef: clone(a.Coef), intercept: a.Intercept}, nil
}

func (l *linear) PredictOne(x []float64) float64 {
	sum := l.intercept
	for i, c := range l.coef {
		sum += c * x[i]
	}
	return sum
}

// forest усредняет предсказания деревьев.
type forest struct {
	trees []*tree
}

func newForest(a *ModelArtifact, features int) (*forest, error) {
	trees, err := buildTrees(a.Trees, features)
	if err != nil {
		return nil, err
	}
	return &forest{trees: trees}, nil
}

func (f *forest) PredictOne(x []float64) float64 {
	var sum float64
	for _, t := range f.trees {
		sum += t.predict(x)
	}
	return sum / float64(len(f.trees))
}

// boosting: init + learning_rate * сумма деревьев.
type boosting struct {
	init         float64
	learningRate float64
	trees        []*tree
}

func newBoosting(a *ModelArtifact, features int) (*boosting, error) {
	if a.LearningRate <= 0 {
		return nil, fmt.Errorf("%w: learning_rate must be positive", e.ErrArtifactShape)
	}
	trees, err := buildTrees(a.Trees, features)
	if err != nil {
		return nil, err
	}
	return &boosting{init: a.Init, learningRate: a.LearningRate, trees: trees}, nil
}

func (b *boosting) PredictOne(x []float64) float64 {
	sum := b.init
	for _, t := range b.trees {
		sum += b.learningRate * t.predict(x)
	}
	return sum
}

func buildTrees(artifacts []TreeArtifact, features int) ([]*tree, error) {
	if len(artifacts) == 0 {
		return nil, fmt.Errorf("%w: ensemble has no trees", e.ErrArtifactShape)
	}

	trees := make([]*tree, 0, len(artifacts))
	for i := range artifacts {
		t, err := newTree(&artifacts[i], features)
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
		trees = append(trees, t)
	}
	return trees, nil
}
