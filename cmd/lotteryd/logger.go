package main

import (
	"os"

	"github.com/fedepagnotta/lotteryd/internal/logging"
)

func setupLogger(cfg *appConfig) error {
	return logging.Configure(cfg.logLevel, cfg.logFormat, os.Stderr)
}
