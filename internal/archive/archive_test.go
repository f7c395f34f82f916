package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"

	"github.com/jengzang/greenarea-go/internal/raster"
	"github.com/jengzang/greenarea-go/internal/spatial"
)

var testGrid = raster.Grid{OriginX: 300000, OriginY: 4160000, PixelSize: 30, Width: 2, Height: 2, EPSG: 32652}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func encodeTIFF(t *testing.T, w, h int, values []uint16) []byte {
	t.Helper()
	img := image.NewGray16(image.Rect(0, 0, w, h))
	for i, v := range values {
		img.SetGray16(i%w, i/w, color.Gray16{Y: v})
	}
	var buf bytes.Buffer
	require.NoError(t, tiff.Encode(&buf, img, nil))
	return buf.Bytes()
}

func memScene(t *testing.T, id string, acquired time.Time, bands ...string) Scene {
	t.Helper()
	m := make(map[string]raster.Band)
	for _, b := range bands {
		m[b] = raster.FromValues([]float64{1, 2, 3, 4})
	}
	img, err := raster.NewImage(testGrid, m)
	require.NoError(t, err)
	return Scene{ID: id, Acquired: acquired, Image: img}
}

func TestQueryErrorIs(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", &QueryError{Collection: "c", Err: errors.New("boom")})
	assert.True(t, errors.Is(err, ErrQueryFailed))
	assert.Contains(t, err.Error(), "boom")

	var qe *QueryError
	require.True(t, errors.As(err, &qe))
	assert.Equal(t, "c", qe.Collection)
}

func TestMemoryWindowIsHalfOpen(t *testing.T) {
	m := NewMemory()
	m.Add("L8",
		memScene(t, "b", date(2020, 5, 1), "SR_B4"),
		memScene(t, "a", date(2020, 6, 15), "SR_B4"),
		memScene(t, "c", date(2020, 8, 31), "SR_B4"),
		memScene(t, "d", date(2020, 4, 30), "SR_B4"),
	)

	scenes, err := m.Query(context.Background(), Query{
		Collection: "L8",
		Start:      date(2020, 5, 1),
		End:        date(2020, 8, 31),
	})
	require.NoError(t, err)
	require.Len(t, scenes, 2)
	assert.Equal(t, "b", scenes[0].ID)
	assert.Equal(t, "a", scenes[1].ID)
}

func TestMemoryBoundAndBands(t *testing.T) {
	m := NewMemory()
	near := memScene(t, "near", date(2020, 6, 1), "SR_B4", "SR_B5", "QA_PIXEL")
	fp := spatial.RectFromBBox([4]float64{126.9, 37.5, 127.0, 37.6})
	near.Footprint = &fp
	far := memScene(t, "far", date(2020, 6, 2), "SR_B4")
	farFp := spatial.RectFromBBox([4]float64{10, 10, 11, 11})
	far.Footprint = &farFp
	m.Add("L8", near, far)

	bound := spatial.RectFromBBox([4]float64{126.8, 37.4, 127.2, 37.7})
	scenes, err := m.Query(context.Background(), Query{
		Collection: "L8",
		Start:      date(2020, 1, 1),
		End:        date(2021, 1, 1),
		Bound:      &bound,
		Bands:      []string{"SR_B4", "QA_PIXEL", "missing"},
	})
	require.NoError(t, err)
	require.Len(t, scenes, 1)
	assert.Equal(t, []string{"QA_PIXEL", "SR_B4"}, scenes[0].Image.BandNames())
}

func TestMemoryFailNext(t *testing.T) {
	m := NewMemory()
	m.FailNext("L8", 1)

	q := Query{Collection: "L8", Start: date(2020, 1, 1), End: date(2021, 1, 1)}
	_, err := m.Query(context.Background(), q)
	assert.ErrorIs(t, err, ErrQueryFailed)

	_, err = m.Query(context.Background(), q)
	assert.NoError(t, err)
	assert.Equal(t, 2, m.Queries("L8"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = m.Query(ctx, q)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDecodeBandSignedAndNoData(t *testing.T) {
	data := encodeTIFF(t, 2, 2, []uint16{uint16(0x10000 - 500), 6000, 0, 9000})
	nodata := 0.0

	b, err := DecodeBand(bytes.NewReader(data), BandEntry{Signed: true, NoData: &nodata}, testGrid)
	require.NoError(t, err)

	v, ok := b.At(0)
	require.True(t, ok)
	assert.Equal(t, -500.0, v)
	v, _ = b.At(1)
	assert.Equal(t, 6000.0, v)
	_, ok = b.At(2)
	assert.False(t, ok, "nodata sample")
	assert.Equal(t, 3, b.ValidCount())

	_, err = DecodeBand(bytes.NewReader(data), BandEntry{}, raster.Grid{Width: 3, Height: 2, PixelSize: 30})
	assert.Error(t, err)

	_, err = DecodeBand(bytes.NewReader([]byte("not a tiff")), BandEntry{}, testGrid)
	assert.Error(t, err)
}

func writeCollection(t *testing.T, root, collection string, c Catalog, files map[string][]byte) {
	t.Helper()
	dir := filepath.Join(root, filepath.FromSlash(collection))
	require.NoError(t, os.MkdirAll(dir, 0o755))
	raw, err := json.Marshal(c)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "catalog.json"), raw, 0o644))
	for name, data := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
	}
}

func TestDirQuery(t *testing.T) {
	root := t.TempDir()
	cloud := 12.5
	writeCollection(t, root, "LANDSAT/LC08/C02/T1_L2", Catalog{Scenes: []CatalogScene{
		{
			ID:            "LC08_116034_20200612",
			Acquired:      time.Date(2020, 6, 12, 2, 0, 0, 0, time.UTC),
			CloudFraction: &cloud,
			BBox:          &[4]float64{126.5, 37.0, 127.5, 38.0},
			Grid:          testGrid,
			Bands: map[string]BandEntry{
				"SR_B4":    {File: "red.tif"},
				"QA_PIXEL": {File: "qa.tif"},
			},
		},
		{
			ID:       "LC08_116034_20190612",
			Acquired: time.Date(2019, 6, 12, 2, 0, 0, 0, time.UTC),
			Grid:     testGrid,
			Bands:    map[string]BandEntry{"SR_B4": {File: "missing.tif"}},
		},
	}}, map[string][]byte{
		"red.tif": encodeTIFF(t, 2, 2, []uint16{8000, 9000, 10000, 11000}),
		"qa.tif":  encodeTIFF(t, 2, 2, []uint16{21824, 21824, 22280, 21824}),
	})

	d := NewDir(root, time.Minute)
	scenes, err := d.Query(context.Background(), Query{
		Collection: "LANDSAT/LC08/C02/T1_L2",
		Start:      date(2020, 5, 1),
		End:        date(2020, 8, 31),
		Bands:      []string{"SR_B4", "QA_PIXEL"},
	})
	require.NoError(t, err)
	require.Len(t, scenes, 1)

	s := scenes[0]
	assert.Equal(t, "LC08_116034_20200612", s.ID)
	require.NotNil(t, s.CloudFraction)
	assert.Equal(t, 12.5, *s.CloudFraction)
	require.NotNil(t, s.Footprint)
	assert.Equal(t, testGrid, s.Image.Grid())

	red, err := s.Image.Band("SR_B4")
	require.NoError(t, err)
	v, _ := red.At(3)
	assert.Equal(t, 11000.0, v)

	// The 2019 scene references a band file that does not exist
	_, err = d.Query(context.Background(), Query{
		Collection: "LANDSAT/LC08/C02/T1_L2",
		Start:      date(2019, 1, 1),
		End:        date(2020, 1, 1),
	})
	assert.ErrorIs(t, err, ErrQueryFailed)

	_, err = d.Query(context.Background(), Query{Collection: "nope", Start: date(2019, 1, 1), End: date(2020, 1, 1)})
	assert.ErrorIs(t, err, ErrQueryFailed)
}

func TestHTTPQuery(t *testing.T) {
	mt := httpmock.NewMockTransport()
	client := &http.Client{Transport: mt}

	catalog := Catalog{Scenes: []CatalogScene{{
		ID:       "T52SCG_20200601",
		Acquired: time.Date(2020, 6, 1, 2, 0, 0, 0, time.UTC),
		Grid:     testGrid,
		Bands: map[string]BandEntry{
			"B4": {URL: "/bands/T52SCG_20200601_B4.tif"},
			"B8": {URL: "https://cdn.archive.test/T52SCG_20200601_B8.tif"},
		},
	}}}
	raw, err := json.Marshal(catalog)
	require.NoError(t, err)

	mt.RegisterResponder("GET", `=~^https://archive\.test/v1/scenes`,
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "COPERNICUS/S2_SR_HARMONIZED", req.URL.Query().Get("collection"))
			assert.Equal(t, "2020-05-01T00:00:00Z", req.URL.Query().Get("start"))
			return httpmock.NewBytesResponse(http.StatusOK, raw), nil
		})
	mt.RegisterResponder("GET", "https://archive.test/bands/T52SCG_20200601_B4.tif",
		httpmock.NewBytesResponder(http.StatusOK, encodeTIFF(t, 2, 2, []uint16{100, 200, 300, 400})))
	mt.RegisterResponder("GET", "https://cdn.archive.test/T52SCG_20200601_B8.tif",
		httpmock.NewBytesResponder(http.StatusOK, encodeTIFF(t, 2, 2, []uint16{500, 600, 700, 800})))

	h := NewHTTP("https://archive.test/", client, time.Second)
	scenes, err := h.Query(context.Background(), Query{
		Collection: "COPERNICUS/S2_SR_HARMONIZED",
		Start:      date(2020, 5, 1),
		End:        date(2020, 8, 31),
	})
	require.NoError(t, err)
	require.Len(t, scenes, 1)
	assert.Equal(t, []string{"B4", "B8"}, scenes[0].Image.BandNames())
	assert.Equal(t, 3, mt.GetTotalCallCount())
}

func TestHTTPQueryFailures(t *testing.T) {
	mt := httpmock.NewMockTransport()
	client := &http.Client{Transport: mt}
	mt.RegisterResponder("GET", `=~^https://archive\.test/v1/scenes`,
		httpmock.NewStringResponder(http.StatusServiceUnavailable, "busy"))

	h := NewHTTP("https://archive.test", client, time.Second)
	_, err := h.Query(context.Background(), Query{Collection: "MODIS/061/MOD13Q1", Start: date(2020, 5, 1), End: date(2020, 8, 31)})
	assert.ErrorIs(t, err, ErrQueryFailed)
	assert.Contains(t, err.Error(), "503")

	// Unregistered URLs fail at the transport
	h = NewHTTP("https://other.test", client, time.Second)
	_, err = h.Query(context.Background(), Query{Collection: "MODIS/061/MOD13Q1", Start: date(2020, 5, 1), End: date(2020, 8, 31)})
	assert.ErrorIs(t, err, ErrQueryFailed)
}
