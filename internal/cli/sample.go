package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jengzang/greenarea-go/internal/app"
	"github.com/jengzang/greenarea-go/internal/export"
	"github.com/jengzang/greenarea-go/internal/report"
	"github.com/jengzang/greenarea-go/internal/sensor"
)

func sampleCommand(load loader) *cobra.Command {
	var (
		sensorName string
		year       int
		stride     int
		overlay    bool
		displayLo  float64
		displayHi  float64
	)

	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Export per-pixel NDVI samples and a threshold sweep for one sensor and year",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if year == 0 {
				return errors.New("--year is required")
			}
			cfg, err := load(cmd)
			if err != nil {
				return err
			}
			profile, err := sensor.Lookup(sensorName)
			if err != nil {
				return err
			}
			a, err := app.New(cfg)
			if err != nil {
				return err
			}

			set, err := a.Sampler(stride).Sample(cmd.Context(), sensorName, year, cfg.Season)
			if err != nil {
				return err
			}

			if err := os.MkdirAll(cfg.Export.Dir, 0o755); err != nil {
				return fmt.Errorf("failed to create export directory: %w", err)
			}
			base := fmt.Sprintf("%s_NDVI_Samples_%d", profile.ExportPrefix, year)
			csvPath := filepath.Join(cfg.Export.Dir, base+".csv")
			if err := writeWith(csvPath, func(f *os.File) error { return export.WriteSamples(f, year, set.Samples) }); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, csvPath)
			fmt.Fprintf(out, "%s %d: %d scenes, %d samples\n\n", profile.Name, year, len(set.Scenes), len(set.Samples))

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "code\tname\tn\tmean\tmedian\tq1\tq3")
			for _, s := range set.Summaries {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%.3f\t%.3f\t%.3f\t%.3f\n", s.Code, s.Name, s.Count, s.Mean, s.Median, s.Q1, s.Q3)
			}
			fmt.Fprintln(tw)
			fmt.Fprintln(tw, "threshold\tgreen\tvalid")
			for _, p := range set.Sweep {
				fmt.Fprintf(tw, "%g\t%d\t%d\n", p.Threshold, p.Green, p.Valid)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			if overlay && !set.Index.Empty() {
				lo, err := profile.NativeThreshold(displayLo)
				if err != nil {
					return err
				}
				hi, err := profile.NativeThreshold(displayHi)
				if err != nil {
					return err
				}
				img, err := report.IndexImage(set.Index, lo, hi, report.GreenPalette)
				if err != nil {
					return err
				}
				pngPath := filepath.Join(cfg.Export.Dir, base+".png")
				if err := writeWith(pngPath, func(f *os.File) error { return report.WritePNG(f, img) }); err != nil {
					return err
				}
				fmt.Fprintln(out, pngPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&sensorName, "sensor", "landsat8", "Sensor profile")
	cmd.Flags().IntVar(&year, "year", 0, "Year to sample")
	cmd.Flags().IntVar(&stride, "stride", 1, "Keep every n-th pixel in both directions")
	cmd.Flags().BoolVar(&overlay, "overlay", false, "Also write a PNG of the composite")
	cmd.Flags().Float64Var(&displayLo, "display-min", 0, "Overlay NDVI drawn in the low color")
	cmd.Flags().Float64Var(&displayHi, "display-max", 1, "Overlay NDVI drawn in the high color")
	return cmd
}
