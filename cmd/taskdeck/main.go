package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/taskdeck/taskdeck/internal/cli"
)

func main() {
	// Missing .env is fine; config falls back to taskdeck.yaml
	_ = godotenv.Load()

	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
