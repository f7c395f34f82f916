package region

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/greenarea-go/internal/spatial"
)

const seoulFixture = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "properties": {"ADM_SECT_C": "11680", "SGG_NM": "강남구"},
      "geometry": {"type": "Polygon", "coordinates": [[[127.02, 37.46], [127.10, 37.46], [127.10, 37.53], [127.02, 37.53], [127.02, 37.46]]]}
    },
    {
      "type": "Feature",
      "properties": {"ADM_SECT_C": 11110},
      "geometry": {"type": "MultiPolygon", "coordinates": [[[[126.95, 37.56], [127.02, 37.56], [127.02, 37.63], [126.95, 37.63], [126.95, 37.56]]]]}
    },
    {
      "type": "Feature",
      "properties": {"ADM_SECT_C": 99999},
      "geometry": {"type": "Polygon", "coordinates": [[[126.80, 37.40], [126.85, 37.40], [126.85, 37.45], [126.80, 37.45], [126.80, 37.40]]]}
    }
  ]
}`

func loadFixture(t *testing.T) *Collection {
	t.Helper()
	c, err := LoadGeoJSON(strings.NewReader(seoulFixture), Options{EPSG: 32652})
	require.NoError(t, err)
	return c
}

func TestLoadGeoJSON(t *testing.T) {
	c := loadFixture(t)
	require.Equal(t, 3, c.Len())

	regions := c.Regions()
	assert.Equal(t, "11110", regions[0].Code, "numeric codes keep their digits")
	assert.Equal(t, "Jongno-gu", regions[0].Name)
	assert.Equal(t, "11680", regions[1].Code)
	assert.Equal(t, "Gangnam-gu", regions[1].Name)
	assert.Equal(t, "99999", regions[2].Code)
	assert.Equal(t, UnknownName, regions[2].Name)

	r, ok := c.Lookup("11680")
	require.True(t, ok)
	assert.Equal(t, "Gangnam-gu", r.Name)
	_, ok = c.Lookup("11111")
	assert.False(t, ok)

	assert.Equal(t, 52, c.Projection().Zone)
}

func TestCollectionContains(t *testing.T) {
	c := loadFixture(t)
	proj := c.Projection()

	inside := proj.Forward(spatial.LonLat{Lon: 127.06, Lat: 37.50})
	assert.True(t, c.ContainsXY(inside.X, inside.Y))

	gangnam, _ := c.Lookup("11680")
	assert.True(t, gangnam.Contains(inside.X, inside.Y))
	jongno, _ := c.Lookup("11110")
	assert.False(t, jongno.Contains(inside.X, inside.Y))

	outside := proj.Forward(spatial.LonLat{Lon: 127.3, Lat: 37.3})
	assert.False(t, c.ContainsXY(outside.X, outside.Y))

	// About 7 km by 7.8 km
	assert.InDelta(t, 7.06e3*7.78e3, gangnam.Planar.Area(), 0.05*7.06e3*7.78e3)
}

func TestCollectionBound(t *testing.T) {
	c := loadFixture(t)
	b := c.Bound()
	assert.InDelta(t, 126.80, b.Lo().Lng.Degrees(), 1e-9)
	assert.InDelta(t, 37.40, b.Lo().Lat.Degrees(), 1e-9)
	assert.InDelta(t, 127.10, b.Hi().Lng.Degrees(), 1e-9)
	assert.InDelta(t, 37.63, b.Hi().Lat.Degrees(), 1e-9)

	empty := NewCollection(spatial.UTM{Zone: 52}, nil)
	assert.True(t, empty.Bound().IsEmpty())
	assert.False(t, empty.ContainsXY(0, 0))
}

func TestLoadGeoJSONErrors(t *testing.T) {
	dup := `{"type":"FeatureCollection","features":[
	  {"type":"Feature","properties":{"ADM_SECT_C":"1"},"geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}},
	  {"type":"Feature","properties":{"ADM_SECT_C":1},"geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}}
	]}`
	_, err := LoadGeoJSON(strings.NewReader(dup), Options{EPSG: 32631})
	assert.ErrorIs(t, err, ErrDuplicateCode)

	noCode := `{"type":"FeatureCollection","features":[
	  {"type":"Feature","properties":{},"geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}}
	]}`
	_, err = LoadGeoJSON(strings.NewReader(noCode), Options{EPSG: 32631})
	assert.Error(t, err)

	point := `{"type":"FeatureCollection","features":[
	  {"type":"Feature","properties":{"ADM_SECT_C":"1"},"geometry":{"type":"Point","coordinates":[0,0]}}
	]}`
	_, err = LoadGeoJSON(strings.NewReader(point), Options{EPSG: 32631})
	assert.Error(t, err)

	_, err = LoadGeoJSON(strings.NewReader(seoulFixture), Options{EPSG: 4326})
	assert.Error(t, err)

	_, err = LoadGeoJSON(strings.NewReader("{"), Options{EPSG: 32652})
	assert.Error(t, err)
}

func TestCustomCodeProperty(t *testing.T) {
	doc := `{"type":"FeatureCollection","features":[
	  {"type":"Feature","properties":{"SIG_CD":"26110"},"geometry":{"type":"Polygon","coordinates":[[[129,35],[129.01,35],[129.01,35.01],[129,35]]]}}
	]}`
	c, err := LoadGeoJSON(strings.NewReader(doc), Options{
		CodeProperty: "SIG_CD",
		Names:        Names{"26110": "Jung-gu, Busan"},
		EPSG:         32652,
	})
	require.NoError(t, err)
	assert.Equal(t, "Jung-gu, Busan", c.Regions()[0].Name)
}

func TestNames(t *testing.T) {
	names := SeoulDistricts()
	assert.Len(t, names, 25)
	assert.Equal(t, "Songpa-gu", names.Name("11710"))
	assert.Equal(t, UnknownName, names.Name("00000"))

	override, err := LoadNames(strings.NewReader("11710: Songpa\n\"11999\": Test-gu\n"))
	require.NoError(t, err)
	merged := names.Merge(override)
	assert.Equal(t, "Songpa", merged.Name("11710"))
	assert.Equal(t, "Test-gu", merged.Name("11999"))
	assert.Equal(t, "Songpa-gu", names.Name("11710"), "Merge must not modify the receiver")

	empty, err := LoadNames(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = LoadNames(strings.NewReader("- a\n- b\n"))
	assert.Error(t, err)
}
