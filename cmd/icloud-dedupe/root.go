package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/icloud-dedupe/icloud-dedupe/pkg/config"
	"github.com/icloud-dedupe/icloud-dedupe/pkg/errors"
	"github.com/icloud-dedupe/icloud-dedupe/pkg/logging"
	"github.com/icloud-dedupe/icloud-dedupe/pkg/paths"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	verbosity int
	baseDir   string
	cfg       *config.Config

	rootCmd = &cobra.Command{
		Use:   "icloud-dedupe",
		Short: "Detect and safely quarantine iCloud sync conflict duplicates",
		Long: `icloud-dedupe finds files left behind by iCloud's sync conflict
resolution ("foo Copy.txt", "foo 2.txt"), verifies each one against its
presumed original by content, and offers a reversible quarantine
workflow instead of deleting anything outright.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logging.Setup(verbosity, paths.StateDir())
			log.Debug().Str("command", cmd.Name()).Msg("command started")

			loaded, err := config.Load()
			if err != nil {
				return errors.Wrap(err, errors.ErrInvalidInput, "loading configuration")
			}
			cfg = loaded
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "increase verbosity (-v info, -vv debug, -vvv trace)")
	rootCmd.PersistentFlags().StringVar(&baseDir, "home", "", "override the quarantine base directory (default: "+paths.QuarantineDir()+")")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(quarantineCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(purgeCmd)
	rootCmd.AddCommand(statusCmd)
}

// exitError pairs a cause with the process exit code it should
// produce: 0 success, 1 partial failure, 2 fatal error, 130 cancelled.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func exitCodeFor(err error) int {
	var ee *exitError
	if as, ok := err.(*exitError); ok {
		ee = as
	}
	if ee != nil {
		return ee.code
	}
	return 2
}

func fatalf(format string, args ...any) error {
	return &exitError{code: 2, err: fmt.Errorf(format, args...)}
}

func partialFailure(format string, args ...any) error {
	return &exitError{code: 1, err: fmt.Errorf(format, args...)}
}

func cancelledErr() error {
	return &exitError{code: 130, err: fmt.Errorf("cancelled")}
}

// signalContext returns a context cancelled on SIGINT/SIGTERM, the
// cancellation token discovery and verification share so an interrupt
// during either phase stops the other too.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	return ctx, stop
}

func resolveBaseDir() string {
	if baseDir != "" {
		return baseDir
	}
	return paths.QuarantineDir()
}
