package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Blackdeer1524/StorageCore/src/app"
	"github.com/Blackdeer1524/StorageCore/src/recovery"
)

func newLogCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Append to or dump the write-ahead log",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "append MSG...",
			Short: "Append every MSG as a record and commit them",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withStorage(cmd, opts, func(e *app.Entrypoint) error {
					var last recovery.LogRecord
					for _, msg := range args {
						rec, err := e.WAL.Add([]byte(msg))
						if err != nil {
							return err
						}
						last = rec
						fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", rec.LSN, msg)
					}
					return e.WAL.Commit(last.LSN)
				})
			},
		},
		&cobra.Command{
			Use:   "dump",
			Short: "Print every committed record in LSN order",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withStorage(cmd, opts, func(e *app.Entrypoint) error {
					for rec, err := range e.WAL.Records() {
						if err != nil {
							return err
						}
						fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", rec.LSN, rec.Payload)
					}
					return nil
				})
			},
		},
	)
	return cmd
}
