package spatial

import (
	"github.com/golang/geo/s2"
)

// LonLat is a geographic coordinate in degrees (WGS84)
type LonLat struct {
	Lon float64
	Lat float64
}

// RectFromBBox builds a rectangle from a [minLon, minLat, maxLon, maxLat] box
func RectFromBBox(bbox [4]float64) s2.Rect {
	return s2.RectFromLatLng(s2.LatLngFromDegrees(bbox[1], bbox[0])).
		AddPoint(s2.LatLngFromDegrees(bbox[3], bbox[2]))
}
