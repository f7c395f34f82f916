package export

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/greenarea-go/internal/models"
	"github.com/jengzang/greenarea-go/internal/pipeline"
	"github.com/jengzang/greenarea-go/internal/zonal"
)

func testRecords() []models.AreaRecord {
	return []models.AreaRecord{
		{Code: "11110", Name: "Jongno-gu", AreaM2: 2700, Year: 2020, Sensor: "landsat8", Threshold: 0.6, GreenPixels: 3, ValidPixels: 4},
		{Code: "11140", Name: "Jung-gu", AreaM2: 0, Year: 2020, Sensor: "landsat8", Threshold: 0.6},
	}
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "Landsat_GreenArea_Seoul_2020_2024_NDVI_0.6.csv", FileName("Landsat", "Seoul", 2020, 2024, 0.6))
	assert.Equal(t, "MODIS_GreenArea_2001_2001_NDVI_0.45.csv", FileName("MODIS", "", 2001, 2001, 0.45))
}

func TestWriteRecords(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRecords(&buf, testRecords(), false))

	want := "code,name_eng,area_m2,year\n" +
		"11110,Jongno-gu,2700,2020\n" +
		"11140,Jung-gu,0,2020\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteRecordsExtended(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRecords(&buf, testRecords(), true))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "code,name_eng,area_m2,year,sensor,threshold,green_pixels,valid_pixels,observed", lines[0])
	assert.Equal(t, "11110,Jongno-gu,2700,2020,landsat8,0.6,3,4,true", lines[1])
	assert.Equal(t, "11140,Jung-gu,0,2020,landsat8,0.6,0,0,false", lines[2])
}

func TestWriteFailures(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFailures(&buf, []models.Failure{
		{Sensor: "modis", Year: 2021, Attempts: 3, Error: "archive query failed, giving up"},
	}))
	assert.Equal(t, "sensor,year,attempts,error\nmodis,2021,3,\"archive query failed, giving up\"\n", buf.String())
}

func TestWriteSamples(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSamples(&buf, 2022, []zonal.Sample{
		{Code: "11110", Name: "Jongno-gu", Value: 0.61, Lon: 126.9784, Lat: 37.5665},
	}))
	assert.Equal(t, "code,name_eng,year,ndvi,lon,lat\n11110,Jongno-gu,2022,0.61,126.978400,37.566500\n", buf.String())
}

func testPlan() pipeline.Plan {
	return pipeline.Plan{
		FirstYear:  2020,
		LastYear:   2020,
		Season:     pipeline.DefaultSeason,
		Sensors:    []string{"landsat8", "modis"},
		Thresholds: []float64{0.6},
	}
}

func TestExporter(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	e := Exporter{Dir: dir, Area: "Seoul"}

	res := pipeline.Result{
		Records:  testRecords(),
		Failures: []models.Failure{{Sensor: "modis", Year: 2020, Attempts: 3, Error: "boom"}},
	}
	paths, err := e.Export(testPlan(), res)
	require.NoError(t, err)
	require.Len(t, paths, 3)

	assert.Equal(t, filepath.Join(dir, "Landsat_GreenArea_Seoul_2020_2020_NDVI_0.6.csv"), paths[0])
	assert.Equal(t, filepath.Join(dir, "MODIS_GreenArea_Seoul_2020_2020_NDVI_0.6.csv"), paths[1])
	assert.Equal(t, filepath.Join(dir, FailuresFile), paths[2])

	// A sensor whose every task failed still gets a header-only table
	modis, err := os.ReadFile(paths[1])
	require.NoError(t, err)
	assert.Equal(t, "code,name_eng,area_m2,year\n", string(modis))
}

func TestExporterIsDeterministic(t *testing.T) {
	res := pipeline.Result{Records: testRecords()}

	first, err := Exporter{Dir: t.TempDir(), Area: "Seoul", Extended: true}.Export(testPlan(), res)
	require.NoError(t, err)
	second, err := Exporter{Dir: t.TempDir(), Area: "Seoul", Extended: true}.Export(testPlan(), res)
	require.NoError(t, err)
	require.Len(t, second, len(first))

	for i := range first {
		a, err := os.ReadFile(first[i])
		require.NoError(t, err)
		b, err := os.ReadFile(second[i])
		require.NoError(t, err)
		assert.Equal(t, a, b)
	}
}

func TestExporterNoFailuresNoSidecar(t *testing.T) {
	dir := t.TempDir()
	paths, err := Exporter{Dir: dir}.Export(testPlan(), pipeline.Result{Records: testRecords()})
	require.NoError(t, err)
	assert.Len(t, paths, 2)
	_, err = os.Stat(filepath.Join(dir, FailuresFile))
	assert.True(t, os.IsNotExist(err))
}
