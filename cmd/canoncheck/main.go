package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"canoncheck/internal/cli"
)

func main() {
	// Local .env is optional, environment wins either way.
	_ = godotenv.Load()

	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
