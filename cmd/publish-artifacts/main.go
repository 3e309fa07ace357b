// publish-artifacts проверяет локальные файлы скейлера и модели и загружает их в бакет MinIO
// под ключами SCALER_PATH и MODEL_PATH, откуда их читает сервис с ARTIFACT_SOURCE=minio.
package main

import (
	"context"
	"flag"
	"os"
	"path"
	"time"

	config "github.com/DRSN-tech/food-rating/internal/cfg"
	"github.com/DRSN-tech/food-rating/internal/infrastructure/artifacts"
	s3Repo "github.com/DRSN-tech/food-rating/internal/repository/minio"
	"github.com/DRSN-tech/food-rating/pkg/clients"
	"github.com/DRSN-tech/food-rating/pkg/logger"
)

const uploadTimeout = time.Minute

func main() {
	scalerFile := flag.String("scaler", "artifacts/scaler.json", "local scaler artifact")
	modelFile := flag.String("model", "artifacts/food_rating_model.json", "local model artifact")
	flag.Parse()

	log := logger.NewSlogLogger()

	cfg, err := config.Load(log)
	if err != nil {
		log.Errorf(err, "failed to load config")
		os.Exit(1)
	}
	if cfg.Minio == nil {
		log.Errorf(nil, "MINIO_ENDPOINT is not set")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), uploadTimeout)
	defer cancel()

	// Загружаем только совместимую пару артефактов
	local := &config.ArtifactsCfg{
		Source:      config.ArtifactSourceFile,
		ScalerPath:  *scalerFile,
		ModelPath:   *modelFile,
		LoadTimeout: uploadTimeout,
	}
	pipeline, err := artifacts.NewLoader(artifacts.NewFileSource(), local, log).Load(ctx)
	if err != nil {
		log.Errorf(err, "artifacts are invalid")
		os.Exit(1)
	}

	minioClient, err := clients.NewMinIOClient(cfg.Minio)
	if err != nil {
		log.Errorf(err, "failed to initialize minio client")
		os.Exit(1)
	}
	if err := clients.EnsureBucket(ctx, minioClient, cfg.Minio.BucketName); err != nil {
		log.Errorf(err, "failed to initialize MinIO bucket")
		os.Exit(1)
	}

	repo := s3Repo.NewArtifactRepo(minioClient, cfg.Minio)
	uploads := []struct{ file, key string }{
		{*scalerFile, cfg.Artifacts.ScalerPath},
		{*modelFile, cfg.Artifacts.ModelPath},
	}
	for _, u := range uploads {
		if path.Ext(u.file) != path.Ext(u.key) {
			log.Warnf("%s is uploaded as %s: the format is detected by the key extension", u.file, u.key)
		}

		data, err := os.ReadFile(u.file)
		if err != nil {
			log.Errorf(err, "failed to read %s", u.file)
			os.Exit(1)
		}

		key, err := repo.Upload(ctx, u.key, data, contentType(u.key))
		if err != nil {
			log.Errorf(err, "failed to upload %s", u.file)
			os.Exit(1)
		}
		log.Infof("Uploaded %s to %s/%s", u.file, cfg.Minio.BucketName, key)
	}

	log.Infof("Published model version %s", pipeline.ModelVersion())
}

func contentType(key string) string {
	switch path.Ext(key) {
	case ".yaml", ".yml":
		return "application/yaml"
	default:
		return "application/json"
	}
}
