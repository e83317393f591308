package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	stackderrors "stackd.dev/stackd/internal/errors"

	"stackd.dev/stackd/internal/cli"
)

func main() {
	rootCmd := cli.NewRootCmd()
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		// Operator aborts are a non-error early exit.
		if errors.Is(err, stackderrors.ErrUserCancelled) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
