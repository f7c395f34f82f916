package sensor

import "github.com/jengzang/greenarea-go/internal/qa"

// Landsat 8 Collection 2 Tier 1 Level-2 surface reflectance.
// QA_PIXEL bits: 1 dilated cloud, 3 cloud, 4 cloud shadow, 5 snow.
var landsat8 = Profile{
	Name:          "landsat8",
	Collection:    "LANDSAT/LC08/C02/T1_L2",
	ExportPrefix:  "Landsat",
	RedBand:       "SR_B4",
	NIRBand:       "SR_B5",
	QABand:        "QA_PIXEL",
	QABitWidth:    16,
	Mask:          qa.FlagBits{Bits: []uint{1, 3, 4, 5}},
	Scale:         0.0000275,
	Offset:        -0.2,
	PixelSize:     30,
	Encoding:      Fractional,
	IndexRange:    [2]float64{-1, 1},
	CloudProperty: "CLOUD_COVER_LAND",
}

// MODIS MOD13Q1 16-day vegetation indices at 250 m.
// DetailedQA: bits 0-1 MODLAND_QA, 2-5 VI usefulness, 6-7 cloud state.
var modis = Profile{
	Name:         "modis",
	Collection:   "MODIS/061/MOD13Q1",
	ExportPrefix: "MODIS",
	IndexBand:    "NDVI",
	QABand:       "DetailedQA",
	QABitWidth:   16,
	Mask: qa.FieldRange{Fields: []qa.Field{
		{Name: "modland_qa", Mask: 0x3},
		{Name: "vi_quality", Mask: 0x3C},
		{Name: "cloud_state", Mask: 0xC0},
	}},
	Scale:      1,
	PixelSize:  250,
	Encoding:   ScaledInteger,
	IndexScale: 0.0001,
	IndexRange: [2]float64{-2000, 10000},
}

// Sentinel-2 L2A harmonized surface reflectance. The s2cloudless
// probability band is joined by scene id when the archive has it.
var sentinel2 = Profile{
	Name:            "sentinel2",
	Collection:      "COPERNICUS/S2_SR_HARMONIZED",
	ExportPrefix:    "Sentinel2",
	RedBand:         "B4",
	NIRBand:         "B8",
	QABand:          "QA60",
	QABitWidth:      16,
	ProbabilityBand: "probability",
	Mask: qa.CloudProbability{
		MaxPercent: qa.DefaultMaxCloudProbability,
		Fallback:   qa.FlagBits{Bits: []uint{10, 11}},
	},
	Scale:         1,
	PixelSize:     10,
	Encoding:      Fractional,
	IndexRange:    [2]float64{-1, 1},
	CloudProperty: "CLOUDY_PIXEL_PERCENTAGE",
}

func init() {
	Register(landsat8)
	Register(modis)
	Register(sentinel2)
}
