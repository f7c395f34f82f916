package zonal

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/greenarea-go/internal/classify"
	"github.com/jengzang/greenarea-go/internal/composite"
	"github.com/jengzang/greenarea-go/internal/raster"
	"github.com/jengzang/greenarea-go/internal/region"
	"github.com/jengzang/greenarea-go/internal/sensor"
	"github.com/jengzang/greenarea-go/internal/spatial"
)

const (
	originX = 320000.0
	originY = 4160000.0
)

func rect(minX, minY, maxX, maxY float64) spatial.MultiPolygon {
	return spatial.MultiPolygon{{Outer: spatial.Ring{
		{X: minX, Y: minY}, {X: maxX, Y: minY}, {X: maxX, Y: maxY}, {X: minX, Y: maxY},
	}}}
}

func collection(regions ...region.Region) *region.Collection {
	return region.NewCollection(spatial.UTM{Zone: 52}, regions)
}

func index(t *testing.T, pixelSize float64, width, height int, values []float64) composite.Index {
	t.Helper()
	g := raster.Grid{OriginX: originX, OriginY: originY, PixelSize: pixelSize, Width: width, Height: height, EPSG: 32652}
	ix, err := composite.NewIndex("test", g, raster.FromValues(values), nil)
	require.NoError(t, err)
	return ix
}

func TestAggregateScenario(t *testing.T) {
	// Four 30 m pixels fully inside one district
	ix := index(t, 30, 2, 2, []float64{0.7, 0.5, 0.65, 0.9})
	regions := collection(region.Region{
		Code:   "11680",
		Name:   "Gangnam-gu",
		Planar: rect(originX, originY-60, originX+60, originY),
	})

	stats, err := Aggregate(classify.Threshold(ix, 0.6), sensor.MustLookup("landsat8").PixelSize, regions)
	require.NoError(t, err)
	require.Len(t, stats, 1)

	want := Stat{Code: "11680", Name: "Gangnam-gu", Positive: 3, Valid: 4, AreaM2: 2700}
	if diff := cmp.Diff(want, stats[0]); diff != "" {
		t.Errorf("stat mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, stats[0].Observed())
}

func TestAggregateAreaPerPixel(t *testing.T) {
	cases := []struct {
		name      string
		pixelSize float64
		area      float64
	}{
		{"modis", sensor.MustLookup("modis").PixelSize, 62500},
		{"landsat8", sensor.MustLookup("landsat8").PixelSize, 900},
		{"sentinel2", sensor.MustLookup("sentinel2").PixelSize, 100},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ps := tc.pixelSize
			ix := index(t, ps, 1, 1, []float64{1})
			regions := collection(region.Region{Code: "1", Planar: rect(originX, originY-ps, originX+ps, originY)})

			stats, err := Aggregate(classify.Threshold(ix, 0), ps, regions)
			require.NoError(t, err)
			assert.Equal(t, tc.area, stats[0].AreaM2)
		})
	}
}

func TestCellCenterRule(t *testing.T) {
	// 3x1 row of 10 m pixels, centers at +5, +15, +25
	ix := index(t, 10, 3, 1, []float64{1, 1, 1})

	// Covers centers 5 and 15; edge at x+20 cuts nothing
	west := region.Region{Code: "A", Planar: rect(originX, originY-10, originX+20, originY)}
	// Border at x+20 shared with west; only center 25 is inside
	east := region.Region{Code: "B", Planar: rect(originX+20, originY-10, originX+30, originY)}
	// Overlaps a quarter of the first pixel; its center is outside
	sliver := region.Region{Code: "C", Planar: rect(originX-5, originY-10, originX+2.5, originY)}

	stats, err := Aggregate(classify.Threshold(ix, 0.5), 10, collection(west, east, sliver))
	require.NoError(t, err)
	require.Len(t, stats, 3)

	assert.Equal(t, 2, stats[0].Positive)
	assert.Equal(t, 1, stats[1].Positive)
	assert.Equal(t, 0, stats[2].Positive)
	assert.False(t, stats[2].Observed())

	// A center exactly on the shared border belongs to exactly one region
	onBorder := index(t, 10, 2, 1, []float64{1, 1})
	left := region.Region{Code: "L", Planar: rect(originX, originY-10, originX+15, originY)}
	right := region.Region{Code: "R", Planar: rect(originX+15, originY-10, originX+30, originY)}
	stats, err = Aggregate(classify.Threshold(onBorder, 0.5), 10, collection(left, right))
	require.NoError(t, err)
	assert.Equal(t, 2, stats[0].Positive+stats[1].Positive)
}

func TestAggregateEmpty(t *testing.T) {
	regions := collection(
		region.Region{Code: "11110", Name: "Jongno-gu", Planar: rect(0, 0, 10, 10)},
		region.Region{Code: "11140", Name: "Jung-gu", Planar: rect(10, 0, 20, 10)},
	)
	stats, err := Aggregate(classify.Threshold(composite.EmptyIndex("landsat8"), 0.6), 30, regions)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	for _, s := range stats {
		assert.Equal(t, 0.0, s.AreaM2)
		assert.Equal(t, 0, s.Valid)
		assert.False(t, s.Observed())
	}
	assert.Equal(t, "Jongno-gu", stats[0].Name)
}

func TestAggregateNoDataIsNotArea(t *testing.T) {
	g := raster.Grid{OriginX: originX, OriginY: originY, PixelSize: 30, Width: 2, Height: 1, EPSG: 32652}
	b, err := raster.NewBand([]float64{0.9, 0.9}, []bool{true, false})
	require.NoError(t, err)
	ix, err := composite.NewIndex("landsat8", g, b, nil)
	require.NoError(t, err)

	regions := collection(region.Region{Code: "1", Planar: rect(originX, originY-30, originX+60, originY)})
	stats, err := Aggregate(classify.Threshold(ix, 0.6), 30, regions)
	require.NoError(t, err)
	assert.Equal(t, 1, stats[0].Valid)
	assert.Equal(t, 900.0, stats[0].AreaM2)
}

func TestAggregateGridChecks(t *testing.T) {
	ix := index(t, 30, 1, 1, []float64{1})
	regions := collection(region.Region{Code: "1", Planar: rect(originX, originY-30, originX+30, originY)})

	_, err := Aggregate(classify.Threshold(ix, 0), 250, regions)
	assert.ErrorIs(t, err, ErrPixelSize)

	other := region.NewCollection(spatial.UTM{Zone: 51}, regions.Regions())
	_, err = Aggregate(classify.Threshold(ix, 0), 30, other)
	assert.Error(t, err)
}

func TestSampleIndex(t *testing.T) {
	ix := index(t, 30, 4, 2, []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8})
	regions := collection(
		region.Region{Code: "A", Name: "West", Planar: rect(originX, originY-60, originX+60, originY)},
		region.Region{Code: "B", Name: "East", Planar: rect(originX+60, originY-60, originX+120, originY)},
	)

	samples, err := SampleIndex(ix, regions, 1)
	require.NoError(t, err)
	require.Len(t, samples, 8)
	assert.Equal(t, "A", samples[0].Code)
	assert.Equal(t, 0.1, samples[0].Value)
	assert.Equal(t, originX+15, samples[0].X)
	assert.InDelta(t, 37.5, samples[0].Lat, 0.5)
	assert.InDelta(t, 126.9, samples[0].Lon, 0.5)

	strided, err := SampleIndex(ix, regions, 2)
	require.NoError(t, err)
	// Columns 0 and 2 of row 0
	require.Len(t, strided, 2)
	assert.Equal(t, "West", strided[0].Name)
	assert.Equal(t, 0.3, strided[1].Value)

	none, err := SampleIndex(composite.EmptyIndex("x"), regions, 1)
	require.NoError(t, err)
	assert.Empty(t, none)
}
