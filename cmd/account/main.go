package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/isuryanarayanan/observable-services/internal/account/app"
)

func main() {
	// Best effort: local development keeps its settings in a .env file.
	_ = godotenv.Load()

	cfg := app.LoadConfig()

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("application error: %v", err)
	}
}
