package inference

import (
	"testing"

	"github.com/DRSN-tech/food-rating/internal/domain"
	"github.com/DRSN-tech/food-rating/pkg/e"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ones(n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = 1
	}
	return v
}

func TestStandardScaler_Transform(t *testing.T) {
	s, err := NewScaler(&ScalerArtifact{
		Kind:  ScalerStandard,
		Mean:  []float64{10, 0, 5},
		Scale: []float64{2, 0, 5},
	}, 3)
	require.NoError(t, err)

	in := [][]float64{{14, 3, 5}}
	out, err := s.Transform(in)
	require.NoError(t, err)

	assert.Equal(t, []float64{2, 3, 0}, out[0], "zero scale divides by one")
	assert.Equal(t, []float64{14, 3, 5}, in[0], "input is not modified")
}

func TestMinMaxScaler_Transform(t *testing.T) {
	s, err := NewScaler(&ScalerArtifact{
		Kind:  ScalerMinMax,
		Min:   []float64{-2, 0},
		Scale: []float64{0.01, 0.5},
	}, 2)
	require.NoError(t, err)

	out, err := s.Transform([][]float64{{300, 4}})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1, 2}, out[0], 1e-9)
}

func TestNewScaler_ShapeMismatch(t *testing.T) {
	_, err := NewScaler(&ScalerArtifact{Kind: ScalerStandard, Mean: ones(10), Scale: ones(11)}, 11)
	require.ErrorIs(t, err, e.ErrArtifactShape)

	_, err = NewScaler(&ScalerArtifact{Kind: "robust", Scale: ones(11)}, 11)
	require.ErrorIs(t, err, e.ErrUnknownArtifactKind)
}

func TestScaler_TransformRejectsWrongRowLength(t *testing.T) {
	s, err := NewScaler(&ScalerArtifact{Kind: ScalerStandard, Mean: ones(2), Scale: ones(2)}, 2)
	require.NoError(t, err)

	_, err = s.Transform([][]float64{{1, 2, 3}})
	require.ErrorIs(t, err, e.ErrArtifactShape)
}

func TestLinearModel_Predict(t *testing.T) {
	m, err := NewModel(&ModelArtifact{Kind: ModelLinear, Coef: []float64{1, -2}, Intercept: 0.5}, 2)
	require.NoError(t, err)

	got, err := m.Predict([][]float64{{1, 1}, {3, 0}})
	require.NoError(t, err)
	assert.Equal(t, []float64{-0.5, 3.5}, got)
}

// stump: x[0] <= 0 → left, иначе right.
func stump(left, right float64) TreeArtifact {
	return TreeArtifact{
		ChildrenLeft:  []int{1, -1, -1},
		ChildrenRight: []int{2, -1, -1},
		Feature:       []int{0, -2, -2},
		Threshold:     []float64{0, -2, -2},
		Value:         []float64{0, left, right},
	}
}

func TestForestModel_Predict(t *testing.T) {
	m, err := NewModel(&ModelArtifact{
		Kind:  ModelForest,
		Trees: []TreeArtifact{stump(1, 3), stump(2, 5)},
	}, 1)
	require.NoError(t, err)

	got, err := m.Predict([][]float64{{-1}, {0}, {1}})
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, 1.5, 4}, got)
}

func TestGradientBoostingModel_Predict(t *testing.T) {
	m, err := NewModel(&ModelArtifact{
		Kind:         ModelGradientBoosting,
		Init:         3,
		LearningRate: 0.5,
		Trees:        []TreeArtifact{stump(-1, 1), stump(-2, 2)},
	}, 1)
	require.NoError(t, err)

	got, err := m.Predict([][]float64{{-1}, {1}})
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, 4.5}, got)
}

func TestNewModel_RejectsMalformedTrees(t *testing.T) {
	tests := []struct {
		name string
		tree TreeArtifact
	}{
		{name: "empty", tree: TreeArtifact{}},
		{name: "length mismatch", tree: TreeArtifact{
			ChildrenLeft: []int{-1}, ChildrenRight: []int{-1}, Feature: []int{0}, Threshold: []float64{0},
		}},
		{name: "cycle", tree: TreeArtifact{
			ChildrenLeft:  []int{0, -1},
			ChildrenRight: []int{1, -1},
			Feature:       []int{0, 0},
			Threshold:     []float64{0, 0},
			Value:         []float64{0, 1},
		}},
		{name: "feature out of range", tree: TreeArtifact{
			ChildrenLeft:  []int{1, -1, -1},
			ChildrenRight: []int{2, -1, -1},
			Feature:       []int{5, -2, -2},
			Threshold:     []float64{0, 0, 0},
			Value:         []float64{0, 1, 2},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewModel(&ModelArtifact{Kind: ModelForest, Trees: []TreeArtifact{tt.tree}}, 1)
			require.ErrorIs(t, err, e.ErrArtifactShape)
		})
	}
}

func TestNewModel_Errors(t *testing.T) {
	_, err := NewModel(&ModelArtifact{Kind: ModelLinear, Coef: ones(3)}, 11)
	require.ErrorIs(t, err, e.ErrArtifactShape)

	_, err = NewModel(&ModelArtifact{Kind: ModelForest}, 11)
	require.ErrorIs(t, err, e.ErrArtifactShape)

	_, err = NewModel(&ModelArtifact{Kind: ModelGradientBoosting, Trees: []TreeArtifact{stump(0, 1)}}, 1)
	require.ErrorIs(t, err, e.ErrArtifactShape, "learning rate is required")

	_, err = NewModel(&ModelArtifact{Kind: "svr"}, 11)
	require.ErrorIs(t, err, e.ErrUnknownArtifactKind)
}

func TestFormatFromName(t *testing.T) {
	f, err := FormatFromName("models/scaler.JSON")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	f, err = FormatFromName("model.yml")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, f)

	_, err = FormatFromName("scaler.pkl")
	require.ErrorIs(t, err, e.ErrArtifactFormat)
}

const scalerJSON = `{
  "kind": "standard",
  "version": "s1",
  "mean": [250, 5, 10, 40, 25, 50, 5, 45, 5, 150, 500],
  "scale": [10, 1, 2, 10, 5, 10, 1, 5, 1, 10, 20]
}`

const modelYAML = `
kind: linear
version: m7
coef: [0.1, -0.2, 0.3, 0, 0, 0, 0.2, -0.3, 0.4, 0, -0.1]
intercept: 3.0
`

func TestLoadPipeline(t *testing.T) {
	p, err := LoadPipeline(
		Blob{Name: "scaler.json", Data: []byte(scalerJSON)},
		Blob{Name: "model.yaml", Data: []byte(modelYAML)},
	)
	require.NoError(t, err)
	assert.Equal(t, "m7+s1", p.ModelVersion())

	defaults := domain.DefaultFeatureVector().Values()
	better := domain.DefaultFeatureVector()
	better.Proteins = 14 // +2 стандартных отклонения → +0.6

	res, err := p.Rate([][]float64{defaults, better.Values()})
	require.NoError(t, err)
	require.Len(t, res.Scores, 2)
	assert.InDelta(t, 3.0, res.Scores[0], 1e-9)
	assert.InDelta(t, 3.6, res.Scores[1], 1e-9)
	assert.InDelta(t, 2.0, res.Scaled[1][2], 1e-9)
}

func TestLoadPipeline_RejectsUnknownFields(t *testing.T) {
	_, err := LoadPipeline(
		Blob{Name: "scaler.json", Data: []byte(`{"kind":"standard","with_mean":true}`)},
		Blob{Name: "model.yaml", Data: []byte(modelYAML)},
	)
	require.Error(t, err)
}

func TestLoadPipeline_RejectsShapeMismatch(t *testing.T) {
	_, err := LoadPipeline(
		Blob{Name: "scaler.json", Data: []byte(scalerJSON)},
		Blob{Name: "model.json", Data: []byte(`{"kind":"linear","coef":[1,2,3],"intercept":0}`)},
	)
	require.ErrorIs(t, err, e.ErrArtifactShape)
}
