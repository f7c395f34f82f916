// Package cli implements the greenarea command line.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jengzang/greenarea-go/internal/config"
)

// RootCommand creates and returns the root command
func RootCommand() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "greenarea",
		Short:         "Estimate green area per district from satellite NDVI",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", os.Getenv("GREENAREA_CONFIG"), "Path to a YAML config file")
	flags.Int("first-year", 0, "First year of the run")
	flags.Int("last-year", 0, "Last year of the run, inclusive")
	flags.StringSlice("sensors", nil, "Sensor profiles in output order, e.g. landsat8,modis")
	flags.StringSlice("thresholds", nil, "Fractional NDVI thresholds, e.g. 0.5,0.6")
	flags.Int("workers", 0, "Concurrent (sensor, year) tasks")
	flags.String("archive-dir", "", "Scene archive directory")
	flags.String("archive-url", "", "Scene archive base URL")
	flags.String("regions-path", "", "District boundaries (GeoJSON)")
	flags.String("regions-names", "", "YAML override of district names")
	flags.String("export-dir", "", "Output directory")
	flags.String("export-area", "", "Area label in export file names")
	flags.String("db-path", "", "SQLite database path")

	// load resolves configuration once flags are parsed
	load := func(cmd *cobra.Command) (*config.Config, error) {
		return config.Load(configPath, cmd.Flags())
	}

	rootCmd.AddCommand(
		runCommand(load),
		sampleCommand(load),
		profilesCommand(),
		migrateCommand(load),
		tokenCommand(load),
		serveCommand(load),
	)
	return rootCmd
}

type loader func(cmd *cobra.Command) (*config.Config, error)

// Execute runs the root command until it returns or a signal arrives
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return RootCommand().ExecuteContext(ctx)
}
