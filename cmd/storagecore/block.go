package main

import (
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Blackdeer1524/StorageCore/src/app"
	"github.com/Blackdeer1524/StorageCore/src/pkg/common"
	"github.com/Blackdeer1524/StorageCore/src/storage/page"
)

func parseBlock(fileName, index string) (common.Block, error) {
	idx, err := strconv.ParseUint(index, 10, 64)
	if err != nil {
		return common.Block{}, fmt.Errorf("invalid block index %q: %w", index, err)
	}
	return common.NewBlock(fileName, idx), nil
}

func newBlockCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "block",
		Short: "Read or write single blocks through the buffer pool",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "write FILE INDEX TEXT",
			Short: "Store TEXT at the start of a block, growing the file if needed",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				blk, err := parseBlock(args[0], args[1])
				if err != nil {
					return err
				}

				return withStorage(cmd, opts, func(e *app.Entrypoint) error {
					return writeBlock(cmd, e, blk, args[2])
				})
			},
		},
		&cobra.Command{
			Use:   "read FILE INDEX",
			Short: "Print the text stored in a block and a hex dump of it",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				blk, err := parseBlock(args[0], args[1])
				if err != nil {
					return err
				}

				return withStorage(cmd, opts, func(e *app.Entrypoint) error {
					return readBlock(cmd, e, blk)
				})
			},
		},
	)
	return cmd
}

func writeBlock(cmd *cobra.Command, e *app.Entrypoint, blk common.Block, text string) (err error) {
	count, err := e.Disk.BlockCount(blk.FileName)
	if err != nil {
		return err
	}
	for ; count <= blk.Index; count++ {
		if _, err := e.Disk.Allocate(blk.FileName); err != nil {
			return err
		}
	}

	rec, err := e.WAL.Add(fmt.Appendf(nil, "write %s %q", blk, text))
	if err != nil {
		return err
	}
	if err := e.WAL.Commit(rec.LSN); err != nil {
		return err
	}

	pg, err := e.Pool.PinContext(cmd.Context(), blk)
	if err != nil {
		return err
	}
	defer func() {
		if unpinErr := e.Pool.Unpin(blk); unpinErr != nil && err == nil {
			err = unpinErr
		}
	}()

	if err := page.SetString(pg, 0, text); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d bytes to %s (lsn %d)\n", len(text), blk, rec.LSN)
	return nil
}

func readBlock(cmd *cobra.Command, e *app.Entrypoint, blk common.Block) (err error) {
	pg, err := e.Pool.PinContext(cmd.Context(), blk)
	if err != nil {
		return err
	}
	defer func() {
		if unpinErr := e.Pool.Unpin(blk); unpinErr != nil && err == nil {
			err = unpinErr
		}
	}()

	out := cmd.OutOrStdout()
	if text, err := page.GetString(pg, 0); err == nil {
		fmt.Fprintf(out, "text: %q\n", text)
	}
	fmt.Fprint(out, hex.Dump(pg.GetData()))
	return nil
}
