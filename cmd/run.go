package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pedrokiefer/dangleip/pkg/cli"
)

// Exit statuses of the dangleip binary.
const (
	ExitOK         = 0
	ExitFailure    = 1
	ExitVulnerable = 2
)

// Run executes command under a context cancelled by SIGINT or SIGTERM and
// exits with the status matching its outcome.
func Run(command *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := command.ExecuteContext(ctx)
	stop()
	if code := report(os.Stderr, err); code != ExitOK {
		os.Exit(code)
	}
}

// report writes err to w and returns the exit status for it. A vulnerable
// finding is an expected result of check and audit, not an abort.
func report(w io.Writer, err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, cli.ErrVulnerable):
		_, _ = fmt.Fprintln(w, err)
		return ExitVulnerable
	default:
		_, _ = fmt.Fprintf(w, "Program aborted: %v\n", err)
		return ExitFailure
	}
}
