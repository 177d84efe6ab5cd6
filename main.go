package main

import (
	"context"

	"github.com/joho/godotenv"

	"sjsage522/sailingworker/cmd"
)

func main() {
	// Load environment variables
	godotenv.Load()

	cmd.ExecuteContext(context.Background())
}
