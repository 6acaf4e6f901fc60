package bootstrap

import (
	"log"

	"github.com/joho/godotenv"
)

// Loadenv loads a local .env file when present. Values already set in the
// process environment win.
func Loadenv(files ...string) {
	if err := godotenv.Load(files...); err != nil {
		log.Println("No .env file found, using system environment variables")
	}
}
