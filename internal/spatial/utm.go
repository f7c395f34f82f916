package spatial

import (
	"fmt"
	"math"
)

// WGS84 ellipsoid and UTM constants
const (
	wgs84A          = 6378137.0
	wgs84F          = 1 / 298.257223563
	utmScale        = 0.9996
	utmFalseEasting = 500000.0
	utmFalseNorthSH = 10000000.0
)

var (
	wgs84E2  = wgs84F * (2 - wgs84F)
	wgs84EP2 = wgs84E2 / (1 - wgs84E2)
)

// UTM is one Universal Transverse Mercator zone on WGS84
type UTM struct {
	Zone  int
	South bool
}

// UTMFromEPSG resolves EPSG:326zz (north) and EPSG:327zz (south)
func UTMFromEPSG(epsg int) (UTM, error) {
	switch {
	case epsg >= 32601 && epsg <= 32660:
		return UTM{Zone: epsg - 32600}, nil
	case epsg >= 32701 && epsg <= 32760:
		return UTM{Zone: epsg - 32700, South: true}, nil
	default:
		return UTM{}, fmt.Errorf("EPSG:%d is not a WGS84 UTM zone", epsg)
	}
}

// EPSG returns the EPSG code of the zone
func (u UTM) EPSG() int {
	if u.South {
		return 32700 + u.Zone
	}
	return 32600 + u.Zone
}

// CentralMeridian returns the zone's central meridian in degrees
func (u UTM) CentralMeridian() float64 {
	return float64(u.Zone-1)*6 - 180 + 3
}

func meridianArc(phi float64) float64 {
	e2 := wgs84E2
	e4 := e2 * e2
	e6 := e4 * e2
	return wgs84A * ((1-e2/4-3*e4/64-5*e6/256)*phi -
		(3*e2/8+3*e4/32+45*e6/1024)*math.Sin(2*phi) +
		(15*e4/256+45*e6/1024)*math.Sin(4*phi) -
		(35*e6/3072)*math.Sin(6*phi))
}

// Forward projects a geographic coordinate into the zone
func (u UTM) Forward(p LonLat) XY {
	phi := p.Lat * math.Pi / 180
	lambda := (p.Lon - u.CentralMeridian()) * math.Pi / 180

	sinPhi, cosPhi := math.Sin(phi), math.Cos(phi)
	n := wgs84A / math.Sqrt(1-wgs84E2*sinPhi*sinPhi)
	t := math.Tan(phi) * math.Tan(phi)
	c := wgs84EP2 * cosPhi * cosPhi
	a := cosPhi * lambda

	x := utmScale*n*(a+
		(1-t+c)*math.Pow(a, 3)/6+
		(5-18*t+t*t+72*c-58*wgs84EP2)*math.Pow(a, 5)/120) + utmFalseEasting

	y := utmScale * (meridianArc(phi) + n*math.Tan(phi)*(a*a/2+
		(5-t+9*c+4*c*c)*math.Pow(a, 4)/24+
		(61-58*t+t*t+600*c-330*wgs84EP2)*math.Pow(a, 6)/720))
	if u.South {
		y += utmFalseNorthSH
	}

	return XY{X: x, Y: y}
}

// Inverse converts zone coordinates back into a geographic coordinate
func (u UTM) Inverse(p XY) LonLat {
	e2 := wgs84E2
	e4 := e2 * e2
	e6 := e4 * e2

	y := p.Y
	if u.South {
		y -= utmFalseNorthSH
	}

	m := y / utmScale
	mu := m / (wgs84A * (1 - e2/4 - 3*e4/64 - 5*e6/256))
	e1 := (1 - math.Sqrt(1-e2)) / (1 + math.Sqrt(1-e2))

	phi1 := mu +
		(3*e1/2-27*math.Pow(e1, 3)/32)*math.Sin(2*mu) +
		(21*e1*e1/16-55*math.Pow(e1, 4)/32)*math.Sin(4*mu) +
		(151*math.Pow(e1, 3)/96)*math.Sin(6*mu) +
		(1097*math.Pow(e1, 4)/512)*math.Sin(8*mu)

	sinPhi1, cosPhi1 := math.Sin(phi1), math.Cos(phi1)
	c1 := wgs84EP2 * cosPhi1 * cosPhi1
	t1 := math.Tan(phi1) * math.Tan(phi1)
	n1 := wgs84A / math.Sqrt(1-e2*sinPhi1*sinPhi1)
	r1 := wgs84A * (1 - e2) / math.Pow(1-e2*sinPhi1*sinPhi1, 1.5)
	d := (p.X - utmFalseEasting) / (n1 * utmScale)

	phi := phi1 - (n1*math.Tan(phi1)/r1)*(d*d/2-
		(5+3*t1+10*c1-4*c1*c1-9*wgs84EP2)*math.Pow(d, 4)/24+
		(61+90*t1+298*c1+45*t1*t1-252*wgs84EP2-3*c1*c1)*math.Pow(d, 6)/720)

	lambda := (d - (1+2*t1+c1)*math.Pow(d, 3)/6 +
		(5-2*c1+28*t1-3*c1*c1+8*wgs84EP2+24*t1*t1)*math.Pow(d, 5)/120) / cosPhi1

	return LonLat{
		Lon: u.CentralMeridian() + lambda*180/math.Pi,
		Lat: phi * 180 / math.Pi,
	}
}

// ForwardRing projects every vertex of a geographic ring
func (u UTM) ForwardRing(ring []LonLat) Ring {
	out := make(Ring, len(ring))
	for i, p := range ring {
		out[i] = u.Forward(p)
	}
	return out
}
