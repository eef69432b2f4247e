package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/zukiwong/mirrornote-prompt/internal/adapters/driving/cli"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	// Best effort: a missing .env is the normal case.
	_ = godotenv.Load()

	if err := cli.Execute(Version); err != nil {
		os.Exit(1)
	}
}
