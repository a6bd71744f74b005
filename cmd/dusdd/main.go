package main

import (
	"os"

	"cosmossdk.io/log"

	"github.com/openalpha/dusd/cmd/dusdd/cmd"
)

func main() {
	rootCmd := cmd.NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		log.NewLogger(os.Stderr).Error("failure when running app", "err", err)
		os.Exit(1)
	}
}
