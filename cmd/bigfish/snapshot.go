package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"bigfish/internal/codec"
	"bigfish/internal/replicator"
)

var (
	snapshotFormat string
	dumpFrom       string
	restoreTo      string
)

var dumpCmd = &cobra.Command{
	Use:   "dump <file>",
	Short: "Write a whole document tree to a JSON or YAML snapshot",
	Args:  cobra.ExactArgs(1),
	RunE:  runDump,
}

var restoreCmd = &cobra.Command{
	Use:   "restore <file>",
	Short: "Write a snapshot back into a document store",
	Args:  cobra.ExactArgs(1),
	RunE:  runRestore,
}

func init() {
	dumpCmd.Flags().StringVar(&snapshotFormat, "format", "", "Snapshot format: json or yaml (default: from file extension)")
	dumpCmd.Flags().StringVar(&dumpFrom, "from", "store", "Endpoint to read: store, source or destination")
	restoreCmd.Flags().StringVar(&snapshotFormat, "format", "", "Snapshot format: json or yaml (default: from file extension)")
	restoreCmd.Flags().StringVar(&restoreTo, "to", "store", "Endpoint to write: store, source or destination")
}

func snapshotCodec(path string) (codec.Codec, error) {
	if snapshotFormat == "" {
		return codec.ForPath(path), nil
	}
	return codec.ByFormat(snapshotFormat)
}

func runDump(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	c, err := snapshotCodec(args[0])
	if err != nil {
		return errors.WithStack(err)
	}
	src, e, err := openNamed(ctx, dumpFrom)
	if err != nil {
		return err
	}
	defer closeStore(src)

	store, err := replicator.New(logger, replicator.Options{}).ReadStore(ctx, src)
	if err != nil {
		return errors.WithStack(err)
	}

	f, err := os.Create(args[0])
	if err != nil {
		return errors.WithStack(err)
	}
	if err := c.Export(store, f); err != nil {
		f.Close()
		return errors.WithStack(err)
	}
	if err := f.Close(); err != nil {
		return errors.WithStack(err)
	}

	roots, docs := store.Count()
	fmt.Fprintf(cmd.OutOrStdout(), "Dumped %d documents from %d root collections of %s to %s\n", docs, roots, e, args[0])
	return nil
}

func runRestore(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	c, err := snapshotCodec(args[0])
	if err != nil {
		return errors.WithStack(err)
	}
	f, err := os.Open(args[0])
	if err != nil {
		return errors.WithStack(err)
	}
	store, err := c.Parse(f)
	f.Close()
	if err != nil {
		return errors.WithStack(err)
	}

	dst, e, err := openNamed(ctx, restoreTo)
	if err != nil {
		return err
	}
	defer closeStore(dst)

	report, err := replicator.New(logger, replicator.Options{}).WriteStore(ctx, store, dst)
	if err != nil {
		return errors.WithStack(err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Restored %d documents into %s\n", report.Written, e)
	return nil
}
