package inference

import (
	"fmt"

	"github.com/DRSN-tech/food-rating/pkg/e"
)

const leafMarker = -1

// TreeArtifact — дерево регрессии в виде плоских массивов узлов.
// Узел i является листом, если ChildrenLeft[i] == -1; иначе переход влево при x[Feature[i]] <= Threshold[i].
type TreeArtifact struct {
	ChildrenLeft  []int     `json:"children_left" yaml:"children_left"`
	ChildrenRight []int     `json:"children_right" yaml:"children_right"`
	Feature       []int     `json:"feature" yaml:"feature"`
	Threshold     []float64 `json:"threshold" yaml:"threshold"`
	Value         []float64 `json:"value" yaml:"value"`
}

type tree struct {
	left      []int
	right     []int
	feature   []int
	threshold []float64
	value     []float64
}

// newTree проверяет структуру дерева: согласованные длины, корректные индексы и отсутствие циклов.
func newTree(a *TreeArtifact, features int) (*tree, error) {
	n := len(a.ChildrenLeft)
	if n == 0 {
		return nil, fmt.Errorf("%w: empty tree", e.ErrArtifactShape)
	}
	if len(a.ChildrenRight) != n || len(a.Feature) != n || len(a.Threshold) != n || len(a.Value) != n {
		return nil, fmt.Errorf("%w: tree node arrays differ in length", e.ErrArtifactShape)
	}

	for i := 0; i < n; i++ {
		l, r := a.ChildrenLeft[i], a.ChildrenRight[i]
		if l == leafMarker {
			continue
		}
		// дочерние узлы всегда идут после родителя, что исключает циклы
		if l <= i || l >= n || r <= i || r >= n {
			return nil, fmt.Errorf("%w: node %d has invalid children %d/%d", e.ErrArtifactShape, i, l, r)
		}
		if f := a.Feature[i]; f < 0 || f >= features {
			return nil, fmt.Errorf("%w: node %d splits on feature %d, have %d", e.ErrArtifactShape, i, f, features)
		}
	}

	return &tree{
		left:      append([]int(nil), a.ChildrenLeft...),
		right:     append([]int(nil), a.ChildrenRight...),
		feature:   append([]int(nil), a.Feature...),
		threshold: clone(a.Threshold),
		value:     clone(a.Value),
	}, nil
}

func (t *tree) predict(x []float64) float64 {
	node := 0
	for t.left[node] != leafMarker {
		if x[t.feature[node]] <= t.threshold[node] {
			node = t.left[node]
		} else {
			node = t.right[node]
		}
	}
	return t.value[node]
}
