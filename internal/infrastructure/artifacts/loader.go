// Package artifacts загружает файлы скейлера и модели с диска или из MinIO.
package artifacts

import (
	"context"
	"fmt"
	"os"
	"path"
	"time"

	"github.com/DRSN-tech/food-rating/internal/cfg"
	"github.com/DRSN-tech/food-rating/internal/infrastructure/inference"
	"github.com/DRSN-tech/food-rating/pkg/e"
	"github.com/DRSN-tech/food-rating/pkg/jitter"
	"github.com/DRSN-tech/food-rating/pkg/logger"
	"golang.org/x/sync/errgroup"
)

const (
	baseBackoff = 500 * time.Millisecond
	maxBackoff  = 10 * time.Second
)

// Source отдаёт содержимое артефакта по имени (путь к файлу или ключ объекта).
type Source interface {
	Fetch(ctx context.Context, name string) ([]byte, error)
}

// ObjectStore — хранилище объектов с артефактами.
type ObjectStore interface {
	Download(ctx context.Context, key string) ([]byte, error)
}

// FileSource читает артефакты с локального диска.
type FileSource struct{}

func NewFileSource() *FileSource {
	return &FileSource{}
}

func (FileSource) Fetch(_ context.Context, name string) ([]byte, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, e.Wrap("FileSource.Fetch", err)
	}
	return data, nil
}

// ObjectSource читает артефакты из объектного хранилища с повторными попытками.
type ObjectSource struct {
	store      ObjectStore
	maxRetries int
	logger     logger.Logger
	sleep      func(ctx context.Context, d time.Duration) error
}

func NewObjectSource(store ObjectStore, maxRetries int, logger logger.Logger) *ObjectSource {
	return &ObjectSource{
		store:      store,
		maxRetries: max(maxRetries, 1),
		logger:     logger,
		sleep:      sleepCtx,
	}
}

// Fetch скачивает объект, повторяя попытки с экспоненциальной задержкой и jitter.
func (o *ObjectSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	const op = "ObjectSource.Fetch"

	var lastErr error
	for attempt := 0; attempt < o.maxRetries; attempt++ {
		data, err := o.store.Download(ctx, name)
		if err == nil {
			return data, nil
		}
		lastErr = err

		if attempt == o.maxRetries-1 {
			break
		}

		sleepTime := jitter.ExponentialBackoff(baseBackoff, maxBackoff, attempt, jitter.DefaultJitter)
		o.logger.Warnf("artifact %s download failed, retrying in %v (attempt %d): %v", name, sleepTime, attempt+1, err)
		if err := o.sleep(ctx, sleepTime); err != nil {
			return nil, e.Wrap(op, err)
		}
	}

	return nil, e.Wrap(op, fmt.Errorf("all %d attempts failed: %w", o.maxRetries, lastErr))
}

// Loader собирает конвейер инференса из артефактов источника.
type Loader struct {
	source Source
	cfg    *cfg.ArtifactsCfg
	logger logger.Logger
}

func NewLoader(source Source, cfg *cfg.ArtifactsCfg, logger logger.Logger) *Loader {
	return &Loader{
		source: source,
		cfg:    cfg,
		logger: logger,
	}
}

// Load параллельно скачивает оба артефакта и проверяет их совместимость.
// Любая ошибка здесь должна останавливать запуск сервиса.
func (l *Loader) Load(ctx context.Context) (*inference.Pipeline, error) {
	const op = "Loader.Load"

	ctx, cancel := context.WithTimeout(ctx, l.cfg.LoadTimeout)
	defer cancel()

	var scalerBlob, modelBlob inference.Blob
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		data, err := l.source.Fetch(gctx, l.cfg.ScalerPath)
		if err != nil {
			return fmt.Errorf("scaler %s: %w", l.cfg.ScalerPath, err)
		}
		scalerBlob = inference.Blob{Name: path.Base(l.cfg.ScalerPath), Data: data}
		return nil
	})
	g.Go(func() error {
		data, err := l.source.Fetch(gctx, l.cfg.ModelPath)
		if err != nil {
			return fmt.Errorf("model %s: %w", l.cfg.ModelPath, err)
		}
		modelBlob = inference.Blob{Name: path.Base(l.cfg.ModelPath), Data: data}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, e.Wrap(op, err)
	}

	pipeline, err := inference.LoadPipeline(scalerBlob, modelBlob)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	l.logger.Infof("Rating model loaded: source=%s, version=%s", l.cfg.Source, pipeline.ModelVersion())
	return pipeline, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
