package main

import (
	"github.com/joho/godotenv"

	"github.com/yexiu0529666/gobang/internal/cli"
)

func main() {
	// Local overrides for server URL, token file, etc.
	_ = godotenv.Load()

	cli.Execute()
}
