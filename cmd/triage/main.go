package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/dyluth/triage/cmd/triage/commands"
)

// Version information - set during build
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// Load API tokens from a local .env if present; real env always wins
	_ = godotenv.Load()

	commands.SetVersionInfo(version, commit, date)

	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
