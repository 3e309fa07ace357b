package inference

import (
	"fmt"

	"github.com/DRSN-tech/food-rating/pkg/e"
)

// Виды скейлеров
const (
	ScalerStandard = "standard"
	ScalerMinMax   = "minmax"
)

// ScalerArtifact — сериализованные параметры нормализации признаков.
type ScalerArtifact struct {
	Kind    string    `json:"kind" yaml:"kind"`
	Version string    `json:"version" yaml:"version"`
	Mean    []float64 `json:"mean,omitempty" yaml:"mean,omitempty"`
	Scale   []float64 `json:"scale" yaml:"scale"`
	Min     []float64 `json:"min,omitempty" yaml:"min,omitempty"`
}

// Scaler нормализует сырые векторы признаков.
type Scaler struct {
	kind    string
	version string
	offset  []float64
	scale   []float64
}

// NewScaler проверяет размерности артефакта и строит скейлер.
func NewScaler(a *ScalerArtifact, features int) (*Scaler, error) {
	const op = "inference.NewScaler"

	if len(a.Scale) != features {
		return nil, e.Wrap(op, fmt.Errorf("%w: scale has %d values, want %d", e.ErrArtifactShape, len(a.Scale), features))
	}

	switch a.Kind {
	case ScalerStandard:
		if len(a.Mean) != features {
			return nil, e.Wrap(op, fmt.Errorf("%w: mean has %d values, want %d", e.ErrArtifactShape, len(a.Mean), features))
		}
		scale := make([]float64, features)
		for i, s := range a.Scale {
			// нулевая дисперсия признака: делим на 1
			if s == 0 {
				s = 1
			}
			scale[i] = s
		}
		return &Scaler{kind: a.Kind, version: a.Version, offset: clone(a.Mean), scale: scale}, nil
	case ScalerMinMax:
		if len(a.Min) != features {
			return nil, e.Wrap(op, fmt.Errorf("%w: min has %d values, want %d", e.ErrArtifactShape, len(a.Min), features))
		}
		return &Scaler{kind: a.Kind, version: a.Version, offset: clone(a.Min), scale: clone(a.Scale)}, nil
	default:
		return nil, e.Wrap(op, fmt.Errorf("%w: scaler %q", e.ErrUnknownArtifactKind, a.Kind))
	}
}

// Features возвращает ожидаемую размерность входного вектора.
func (s *Scaler) Features() int {
	return len(s.scale)
}

func (s *Scaler) Version() string {
	return s.version
}

// Transform нормализует батч векторов, не изменяя входные данные.
func (s *Scaler) Transform(batch [][]float64) ([][]float64, error) {
	out := make([][]float64, len(batch))
	for row, x := range batch {
		if len(x) != len(s.scale) {
			return nil, fmt.Errorf("%w: row %d has %d features, want %d", e.ErrArtifactShape, row, len(x), len(s.scale))
		}

		scaled := make([]float64, len(x))
		for i, v := range x {
			switch s.kind {
			case ScalerStandard:
				scaled[i] = (v - s.offset[i]) / s.scale[i]
			default:
				scaled[i] = v*s.scale[i] + s.offset[i]
			}
		}
		out[row] = scaled
	}
	return out, nil
}

func clone(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}
