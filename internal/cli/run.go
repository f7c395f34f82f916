package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jengzang/greenarea-go/internal/app"
	"github.com/jengzang/greenarea-go/internal/export"
	"github.com/jengzang/greenarea-go/internal/pipeline"
	"github.com/jengzang/greenarea-go/internal/report"
	"github.com/jengzang/greenarea-go/internal/sensor"
)

func runCommand(load loader) *cobra.Command {
	var (
		extended bool
		charts   bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Estimate green area for every sensor, threshold and year",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load(cmd)
			if err != nil {
				return err
			}
			a, err := app.New(cfg)
			if err != nil {
				return err
			}

			plan := cfg.Plan()
			runner := a.Runner()
			res, err := runner.Run(cmd.Context(), plan)
			if err != nil {
				return err
			}

			exporter := export.Exporter{Dir: cfg.Export.Dir, Area: cfg.Export.Area, Extended: extended || cfg.Export.Extended}
			paths, err := exporter.Export(plan, res)
			if err != nil {
				return err
			}
			if charts {
				more, err := writeCharts(exporter, plan, res)
				if err != nil {
					return err
				}
				paths = append(paths, more...)
			}

			out := cmd.OutOrStdout()
			for _, p := range paths {
				fmt.Fprintln(out, p)
			}
			if len(res.Failures) > 0 {
				return fmt.Errorf("%d of %d tasks failed, see %s", len(res.Failures), len(plan.Tasks()),
					filepath.Join(cfg.Export.Dir, export.FailuresFile))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&extended, "extended", false, "Add sensor, threshold and pixel count columns")
	cmd.Flags().BoolVar(&charts, "charts", false, "Also write an HTML bar chart and a PNG trend per table")
	return cmd
}

// writeCharts renders every table next to its CSV
func writeCharts(e export.Exporter, plan pipeline.Plan, res pipeline.Result) ([]string, error) {
	var paths []string
	for _, table := range res.Tables() {
		profile, err := sensor.Lookup(table.Sensor)
		if err != nil {
			return paths, err
		}
		name := export.FileName(profile.ExportPrefix, e.Area, plan.FirstYear, plan.LastYear, table.Threshold)
		base := filepath.Join(e.Dir, strings.TrimSuffix(name, ".csv"))
		title := fmt.Sprintf("%s NDVI >= %g", profile.ExportPrefix, table.Threshold)

		html := base + ".html"
		if err := writeWith(html, func(f *os.File) error { return report.AreaChart(f, title, table.Records) }); err != nil {
			return paths, err
		}
		png := base + "_trend.png"
		if err := writeWith(png, func(f *os.File) error { return report.TrendPNG(f, title, table.Records) }); err != nil {
			return paths, err
		}
		paths = append(paths, html, png)
	}
	return paths, nil
}

func writeWith(path string, write func(f *os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
