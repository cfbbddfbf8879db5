package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"bigfish/internal/loader"
	"bigfish/internal/service"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog <file>",
	Short: "Import the MVP spawn catalog into the store",
	Long: `catalog adds MVPs listed in the catalog that the store does not know yet
and refreshes spawn data of the ones it does. Live state such as kill times
and notes is never touched.`,
	Args: cobra.ExactArgs(1),
	RunE: runCatalog,
}

func runCatalog(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	entries, err := loader.LoadCatalog(args[0])
	if err != nil {
		return errors.WithStack(err)
	}

	store, err := open(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer closeStore(store)

	result, err := service.NewMvpService(store, nil, logger).ImportCatalog(ctx, entries)
	if err != nil {
		return errors.WithStack(err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Catalog imported: %d created, %d updated, %d unchanged\n",
		result.Created, result.Updated, result.Unchanged)
	return nil
}
