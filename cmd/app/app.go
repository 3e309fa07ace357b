package main

import (
	"os"

	"github.com/DRSN-tech/food-rating/internal/app"
	config "github.com/DRSN-tech/food-rating/internal/cfg"
	"github.com/DRSN-tech/food-rating/pkg/logger"
)

func main() {
	log := logger.NewSlogLogger()

	cfg, err := config.Load(log)
	if err != nil {
		log.Errorf(err, "failed to load config")
		os.Exit(1)
	}

	log.Infof("Starting food rating service: artifacts=%s, history=%t, cache=%t, similar=%t, events=%t",
		cfg.Artifacts.Source, cfg.Db != nil, cfg.Redis != nil, cfg.Qdrant != nil, cfg.Kafka != nil)

	application, err := app.NewApp(cfg, log)
	if err != nil {
		log.Errorf(err, "failed to initialize app")
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		os.Exit(1)
	}
}
