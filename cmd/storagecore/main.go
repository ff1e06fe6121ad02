package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Blackdeer1524/StorageCore/src/app"
)

type rootOptions struct {
	envFile string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "storagecore",
		Short:         "Inspect and exercise a block store with a write-ahead log",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "optional dotenv file with STORAGECORE_* settings")

	root.AddCommand(
		newLogCmd(opts),
		newBlockCmd(opts),
		newBenchCmd(opts),
	)
	return root
}

// withStorage runs fn against freshly initialized storage and closes it
// afterwards, even if fn fails.
func withStorage(
	cmd *cobra.Command,
	opts *rootOptions,
	fn func(e *app.Entrypoint) error,
) (err error) {
	e := app.NewEntrypoint(opts.envFile, nil)
	if err := e.Init(cmd.Context()); err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, e.Close())
	}()

	return fn(e)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}
