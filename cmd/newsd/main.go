package main

import (
	"os"

	"github.com/joho/godotenv"
)

// Version is the version of the application, set at build time
var Version = "dev"

func main() {
	// a missing .env is fine; real environment variables win
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
