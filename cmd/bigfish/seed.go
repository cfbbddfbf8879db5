package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"bigfish/internal/config"
	"bigfish/internal/replicator"
	"bigfish/internal/repository"
)

var (
	seedContinueOnError bool
	seedSkipEmpty       bool
	seedVerify          bool
)

var seedCmd = &cobra.Command{
	Use:   "seed [credentials.json]",
	Short: "Copy the production Firestore tree into the local emulator",
	Long: `seed reads every collection, document and nested sub-collection from
the seed source and writes them to the seed destination, keeping document
ids and field values intact.

The whole source is read before anything is written. When the source is
Firestore and no credentials file is given, a *firebase-adminsdk*.json file
in the current or parent directory is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().BoolVar(&seedContinueOnError, "continue-on-error", false, "Keep writing after a failed document and report all failures")
	seedCmd.Flags().BoolVar(&seedSkipEmpty, "skip-empty", false, "Do not write documents that have no fields")
	seedCmd.Flags().BoolVar(&seedVerify, "verify", false, "Re-read the destination and compare after writing")
}

func runSeed(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()
	out := cmd.OutOrStdout()

	seed := cfg.Seed
	if seed.Source.Kind == config.KindFirestore && seed.Source.Firestore.EmulatorHost == "" {
		explicit := seed.Source.Firestore.CredentialsFile
		if len(args) == 1 {
			explicit = args[0]
		}
		creds, err := config.FindCredentialFile(explicit, ".")
		if err != nil {
			fmt.Fprintf(out, "Usage: %s\n", cmd.UseLine())
			return seedFailed(out, &repository.ConnectionError{Endpoint: seed.Source.String(), Err: err})
		}
		seed.Source.Firestore.CredentialsFile = creds
	}
	opts := replicator.Options{
		ContinueOnError: seed.ContinueOnError || seedContinueOnError,
		SkipEmptyFields: seed.SkipEmpty || seedSkipEmpty,
	}

	fmt.Fprintf(out, "Seeding %s -> %s\n", seed.Source, seed.Destination)

	src, err := open(ctx, seed.Source)
	if err != nil {
		return seedFailed(out, err)
	}
	defer closeStore(src)

	dst, err := open(ctx, seed.Destination)
	if err != nil {
		return seedFailed(out, err)
	}
	defer closeStore(dst)

	report, err := replicator.New(logger, opts).Migrate(ctx, src, dst)
	if err != nil {
		if report != nil && len(report.Failed) > 0 {
			fmt.Fprintf(out, "Failed documents:\n  %s\n", strings.Join(report.Failed, "\n  "))
		}
		return seedFailed(out, err)
	}

	fmt.Fprintf(out, "Read %d documents from %d root collections in %s\n",
		report.Documents, report.RootCollections, report.ReadDuration.Round(time.Millisecond))
	fmt.Fprintf(out, "Wrote %d documents (%d skipped) in %s\n",
		report.Written, report.Skipped, report.WriteDuration.Round(time.Millisecond))

	if seed.Verify || seedVerify {
		if err := verifySeed(ctx, out, seed, opts); err != nil {
			return seedFailed(out, err)
		}
	}

	fmt.Fprintf(out, "Seeding complete (digest %s)\n", report.Digest)
	return nil
}

// verifySeed re-reads the source and checks the destination holds it
func verifySeed(ctx context.Context, out io.Writer, seed config.SeedConfig, opts replicator.Options) error {
	src, err := open(ctx, seed.Source)
	if err != nil {
		return err
	}
	defer closeStore(src)
	dst, err := open(ctx, seed.Destination)
	if err != nil {
		return err
	}
	defer closeStore(dst)

	r := replicator.New(logger, opts)
	want, err := r.ReadStore(ctx, src)
	if err != nil {
		return errors.WithStack(err)
	}
	mismatched, err := r.Verify(ctx, want, dst)
	if err != nil {
		for _, p := range mismatched {
			fmt.Fprintf(out, "  mismatch: %s\n", p)
		}
		return errors.WithStack(err)
	}
	fmt.Fprintln(out, "Verified destination matches source")
	return nil
}

func seedFailed(out io.Writer, err error) error {
	fmt.Fprintln(out, "Seeding failed")
	return errors.WithStack(err)
}
