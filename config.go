package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Config holds the bot configuration.
type Config struct {
	BotToken    string
	DatabaseURL string
}

// LoadConfig reads configuration from a .env file (if present) and the
// environment. Both values are required; startup aborts without them.
func LoadConfig() (*Config, error) {
	godotenv.Load()

	config := &Config{
		BotToken:    os.Getenv("BOT_TOKEN"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
	}

	if config.BotToken == "" {
		return nil, fmt.Errorf("BOT_TOKEN environment variable is required")
	}
	if config.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	return config, nil
}
