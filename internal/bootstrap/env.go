package bootstrap

import (
	"log"

	"github.com/joho/godotenv"
)

// Loadenv reads the optional .env file before any config constructor runs.
// Runs ahead of fx, so it uses the stdlib logger.
func Loadenv() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}
}
