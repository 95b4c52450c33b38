package main

import (
	"flag"
	"os"

	"courtsync/internal/logger"
	"courtsync/internal/validation"
)

func main() {
	var baseURL, adminToken string
	flag.StringVar(&baseURL, "url", "http://localhost:8081", "Base URL for API validation")
	flag.StringVar(&adminToken, "token", os.Getenv("ADMIN_TOKEN"), "X-Admin-Token value")
	flag.Parse()

	logger.Init("info", "text")
	log := logger.Get()

	log.Info("Starting API validation", "url", baseURL)
	if err := validation.NewAPIValidator(baseURL, adminToken, log).ValidateAll(); err != nil {
		logger.Fatal("Валидация не пройдена", "error", err)
	}
	log.Info("Валидация успешно пройдена")
}
