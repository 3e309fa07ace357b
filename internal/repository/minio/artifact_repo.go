package minio

import (
	"bytes"
	"context"
	"io"

	"github.com/DRSN-tech/food-rating/internal/cfg"
	"github.com/DRSN-tech/food-rating/pkg/e"
	"github.com/jimlawless/whereami"
	"github.com/minio/minio-go/v7"
)

// maxArtifactSize ограничивает размер скачиваемого артефакта.
const maxArtifactSize = 64 << 20

// ArtifactRepo читает и публикует артефакты модели в бакете MinIO.
type ArtifactRepo struct {
	mc  *minio.Client
	cfg *cfg.MinIOCfg
}

func NewArtifactRepo(mc *minio.Client, cfg *cfg.MinIOCfg) *ArtifactRepo {
	return &ArtifactRepo{
		mc:  mc,
		cfg: cfg,
	}
}

// Download возвращает содержимое объекта по ключу.
func (a *ArtifactRepo) Download(ctx context.Context, key string) ([]byte, error) {
	obj, err := a.mc.GetObject(ctx, a.cfg.BucketName, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer obj.Close()

	data, err := io.ReadAll(io.LimitReader(obj, maxArtifactSize+1))
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	if len(data) > maxArtifactSize {
		return nil, e.Wrap(whereami.WhereAmI(), e.ErrArtifactFormat)
	}

	return data, nil
}

// Upload кладёт артефакт в бакет и возвращает ключ объекта.
func (a *ArtifactRepo) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	info, err := a.mc.PutObject(ctx, a.cfg.BucketName, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", e.Wrap(whereami.WhereAmI(), err)
	}

	return info.Key, nil
}
