package artifacts

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DRSN-tech/food-rating/internal/cfg"
	"github.com/DRSN-tech/food-rating/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scalerJSON = `{"kind":"standard","version":"s1","mean":[0,0,0,0,0,0,0,0,0,0,0],"scale":[1,1,1,1,1,1,1,1,1,1,1]}`

const modelYAML = `
kind: linear
version: m1
coef: [1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0]
intercept: 0.5
`

type fakeStore struct {
	mu       sync.Mutex
	objects  map[string][]byte
	failures int
	calls    int
}

func (f *fakeStore) Download(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if f.calls <= f.failures {
		return nil, errors.New("connection reset")
	}
	data, ok := f.objects[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return data, nil
}

func noSleep(context.Context, time.Duration) error { return nil }

func TestObjectSource_RetriesUntilSuccess(t *testing.T) {
	store := &fakeStore{objects: map[string][]byte{"a": []byte("x")}, failures: 2}
	src := NewObjectSource(store, 3, logger.NewNop())
	src.sleep = noSleep

	data, err := src.Fetch(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), data)
	assert.Equal(t, 3, store.calls)
}

func TestObjectSource_GivesUp(t *testing.T) {
	store := &fakeStore{failures: 10}
	src := NewObjectSource(store, 2, logger.NewNop())
	src.sleep = noSleep

	_, err := src.Fetch(context.Background(), "a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 2 attempts failed")
	assert.Equal(t, 2, store.calls)
}

func TestObjectSource_StopsOnCancel(t *testing.T) {
	store := &fakeStore{failures: 10}
	src := NewObjectSource(store, 5, logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := src.Fetch(ctx, "a")
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, store.calls)
}

func TestLoader_FromFiles(t *testing.T) {
	dir := t.TempDir()
	scalerPath := filepath.Join(dir, "scaler.json")
	modelPath := filepath.Join(dir, "model.yaml")
	require.NoError(t, os.WriteFile(scalerPath, []byte(scalerJSON), 0o600))
	require.NoError(t, os.WriteFile(modelPath, []byte(strings.TrimSpace(modelYAML)), 0o600))

	loader := NewLoader(NewFileSource(), &cfg.ArtifactsCfg{
		Source:      cfg.ArtifactSourceFile,
		ScalerPath:  scalerPath,
		ModelPath:   modelPath,
		LoadTimeout: time.Second,
	}, logger.NewNop())

	pipeline, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "m1+s1", pipeline.ModelVersion())

	rated, err := pipeline.Rate([][]float64{{2, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}})
	require.NoError(t, err)
	assert.InDelta(t, 2.5, rated.Scores[0], 1e-9)
}

func TestLoader_FromObjectStore(t *testing.T) {
	store := &fakeStore{objects: map[string][]byte{
		"models/scaler.json": []byte(scalerJSON),
		"models/model.yaml":  []byte(modelYAML),
	}}
	src := NewObjectSource(store, 1, logger.NewNop())

	loader := NewLoader(src, &cfg.ArtifactsCfg{
		Source:      cfg.ArtifactSourceMinio,
		ScalerPath:  "models/scaler.json",
		ModelPath:   "models/model.yaml",
		LoadTimeout: time.Second,
	}, logger.NewNop())

	pipeline, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "m1+s1", pipeline.ModelVersion())
}

func TestLoader_MissingFile(t *testing.T) {
	loader := NewLoader(NewFileSource(), &cfg.ArtifactsCfg{
		ScalerPath:  filepath.Join(t.TempDir(), "missing.json"),
		ModelPath:   filepath.Join(t.TempDir(), "missing.json"),
		LoadTimeout: time.Second,
	}, logger.NewNop())

	_, err := loader.Load(context.Background())
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoader_BundledArtifacts(t *testing.T) {
	for _, model := range []string{"food_rating_model.json", "food_rating_forest.yaml"} {
		t.Run(model, func(t *testing.T) {
			loader := NewLoader(NewFileSource(), &cfg.ArtifactsCfg{
				ScalerPath:  filepath.Join("..", "..", "..", "artifacts", "scaler.json"),
				ModelPath:   filepath.Join("..", "..", "..", "artifacts", model),
				LoadTimeout: time.Second,
			}, logger.NewNop())

			pipeline, err := loader.Load(context.Background())
			require.NoError(t, err)

			rated, err := pipeline.Rate([][]float64{
				{250, 5, 10, 40, 25, 50, 5, 45, 5, 150, 500},
				{200, 1, 20, 10, 0, 10, 10, 30, 10, 200, 400},
				{300, 10, 2, 70, 50, 90, 1, 60, 0, 100, 600},
			})
			require.NoError(t, err)
			require.Len(t, rated.Scores, 3)
			assert.Greater(t, rated.Scores[1], rated.Scores[2])
		})
	}
}
