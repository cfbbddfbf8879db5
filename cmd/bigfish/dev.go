package main

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"bigfish/internal/config"
	"bigfish/internal/devenv"
)

var devCmd = &cobra.Command{
	Use:   "dev",
	Short: "Run the backend, the web client and the emulator together",
	Long: `dev starts the API server, the client's dev server and, when configured,
the Firestore emulator. Output lines are prefixed with the process name.
Everything stops when one process exits or on Ctrl+C.`,
	Args: cobra.NoArgs,
	RunE: runDev,
}

func runDev(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()
	out := cmd.OutOrStdout()
	launcher := devenv.New(out, logger)

	dev := cfg.Dev
	if devenv.NeedsNodeModules(dev.ClientDir) {
		install := devenv.Process{Name: "install", Command: []string{"npm", "install"}, Dir: dev.ClientDir}
		if err := launcher.Setup(ctx, install); err != nil {
			return errors.WithStack(err)
		}
	}

	self, err := os.Executable()
	if err != nil {
		return errors.WithStack(err)
	}
	backend := []string{self, "serve"}
	if configPath != "" {
		abs, err := filepath.Abs(configPath)
		if err != nil {
			return errors.WithStack(err)
		}
		backend = append(backend, "--config", abs)
	}
	if verbose {
		backend = append(backend, "--verbose")
	}

	procs := []devenv.Process{{
		Name:    "backend",
		Command: backend,
		Env:     []string{config.EnvPort + "=" + dev.BackendPort},
	}}
	if len(dev.Frontend) > 0 {
		procs = append(procs, devenv.Process{Name: "frontend", Command: dev.Frontend, Dir: dev.ClientDir})
	}
	if len(dev.Emulator) > 0 {
		procs = append(procs, devenv.Process{Name: "emulator", Command: dev.Emulator})
	}

	if err := launcher.Run(ctx, procs...); err != nil {
		return errors.WithStack(err)
	}
	return nil
}
