package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/planguard/internal/cmd"
	"github.com/felixgeelhaar/planguard/internal/exitcode"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		// A signal cancels the apply between steps; report it as an interrupt.
		if errors.Is(ctx.Err(), context.Canceled) {
			fmt.Fprintf(os.Stderr, "\nInterrupted: %v\n", err)
			exitcode.Exit(exitcode.Interrupted)
		}

		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitcode.ExitWithError(err)
	}
	exitcode.Exit(exitcode.Success)
}
