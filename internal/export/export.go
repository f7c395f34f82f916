// Package export writes area tables, failures and samples as CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/jengzang/greenarea-go/internal/models"
	"github.com/jengzang/greenarea-go/internal/pipeline"
	"github.com/jengzang/greenarea-go/internal/sensor"
	"github.com/jengzang/greenarea-go/internal/zonal"
)

// Columns of an area table
var (
	BaseColumns     = []string{"code", "name_eng", "area_m2", "year"}
	ExtendedColumns = []string{"sensor", "threshold", "green_pixels", "valid_pixels", "observed"}
	FailureColumns  = []string{"sensor", "year", "attempts", "error"}
	SampleColumns   = []string{"code", "name_eng", "year", "ndvi", "lon", "lat"}
)

// FailuresFile is the sidecar listing failed tasks
const FailuresFile = "failures.csv"

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FileName returns the export name of one (sensor, threshold) table, e.g.
// Landsat_GreenArea_Seoul_2020_2024_NDVI_0.6.csv
func FileName(prefix, area string, firstYear, lastYear int, threshold float64) string {
	name := prefix + "_GreenArea"
	if area != "" {
		name += "_" + area
	}
	return fmt.Sprintf("%s_%d_%d_NDVI_%s.csv", name, firstYear, lastYear, formatFloat(threshold))
}

// WriteRecords writes records in their given order
func WriteRecords(w io.Writer, records []models.AreaRecord, extended bool) error {
	cw := csv.NewWriter(w)

	header := append([]string(nil), BaseColumns...)
	if extended {
		header = append(header, ExtendedColumns...)
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, r := range records {
		row := []string{r.Code, r.Name, formatFloat(r.AreaM2), strconv.Itoa(r.Year)}
		if extended {
			row = append(row,
				r.Sensor,
				formatFloat(r.Threshold),
				strconv.Itoa(r.GreenPixels),
				strconv.Itoa(r.ValidPixels),
				strconv.FormatBool(r.Observed()),
			)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteFailures writes the failed tasks of a run
func WriteFailures(w io.Writer, failures []models.Failure) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(FailureColumns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, f := range failures {
		if err := cw.Write([]string{f.Sensor, strconv.Itoa(f.Year), strconv.Itoa(f.Attempts), f.Error}); err != nil {
			return fmt.Errorf("failed to write failure: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSamples writes per-pixel samples of one year
func WriteSamples(w io.Writer, year int, samples []zonal.Sample) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(SampleColumns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, s := range samples {
		row := []string{
			s.Code,
			s.Name,
			strconv.Itoa(year),
			formatFloat(s.Value),
			strconv.FormatFloat(s.Lon, 'f', 6, 64),
			strconv.FormatFloat(s.Lat, 'f', 6, 64),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write sample: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Exporter writes the tables of a run into a directory
type Exporter struct {
	Dir      string
	Area     string // Optional area label in file names
	Extended bool
}

// Export writes one file per (sensor, threshold) and, when some tasks
// failed, the failures sidecar. It returns the written paths.
func (e Exporter) Export(plan pipeline.Plan, res pipeline.Result) ([]string, error) {
	if err := os.MkdirAll(e.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}

	var paths []string
	for _, table := range e.tables(plan, res) {
		profile, err := sensor.Lookup(table.Sensor)
		if err != nil {
			return paths, err
		}
		path := filepath.Join(e.Dir, FileName(profile.ExportPrefix, e.Area, plan.FirstYear, plan.LastYear, table.Threshold))
		if err := writeFile(path, func(w io.Writer) error {
			return WriteRecords(w, table.Records, e.Extended)
		}); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}

	if len(res.Failures) > 0 {
		path := filepath.Join(e.Dir, FailuresFile)
		if err := writeFile(path, func(w io.Writer) error {
			return WriteFailures(w, res.Failures)
		}); err != nil {
			return paths, err
		}
		paths = append(paths, path)
		log.Printf("[Export] %d failed tasks written to %s", len(res.Failures), path)
	}

	return paths, nil
}

// tables returns one table per planned (sensor, threshold), including
// tables whose every task failed
func (e Exporter) tables(plan pipeline.Plan, res pipeline.Result) []pipeline.Table {
	type key struct {
		sensor    string
		threshold float64
	}
	found := make(map[key]pipeline.Table)
	for _, t := range res.Tables() {
		found[key{t.Sensor, t.Threshold}] = t
	}

	var out []pipeline.Table
	for _, s := range plan.Sensors {
		for _, th := range sortedThresholds(plan.Thresholds) {
			t, ok := found[key{s, th}]
			if !ok {
				t = pipeline.Table{Sensor: s, Threshold: th}
			}
			out = append(out, t)
		}
	}
	return out
}

func sortedThresholds(ths []float64) []float64 {
	out := append([]float64(nil), ths...)
	sort.Float64s(out)
	n := 0
	for i, th := range out {
		if i == 0 || th != out[n-1] {
			out[n] = th
			n++
		}
	}
	return out[:n]
}

func writeFile(path string, write func(w io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	log.Printf("[Export] Wrote %s", path)
	return nil
}
