package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/jun/fitadvice/internal/app"
	"github.com/jun/fitadvice/internal/config"
	"github.com/jun/fitadvice/internal/logging"
)

func main() {
	cfg, err := config.Load()
	logger := logging.New(os.Stdout, "info", "json")
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger = logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	application, err := app.NewApp(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to initialize app", "error", err)
		os.Exit(1)
	}
	lambda.Start(application.HandleRequest)
}
