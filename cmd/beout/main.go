package main

import (
	"fmt"
	"os"

	"github.com/arthur-debert/beout/internal/cli"
	"github.com/arthur-debert/beout/pkg/errors"
)

func main() {
	rootCmd := cli.NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		// A failed pipeline is already on screen
		if !errors.IsErrorCode(err, errors.ErrStepFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
