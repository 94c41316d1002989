package geo

import (
	"errors"
	"math"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

// EarthRadiusKm es el radio medio de la Tierra (IUGG).
const EarthRadiusKm = 6371.0088

var (
	ErrInvalidPoint = errors.New("invalid coordinates")
)

// Point es una coordenada WGS84 en grados.
type Point struct {
	Lat float64
	Lng float64
}

func (p Point) Validate() error {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) {
		return ErrInvalidPoint
	}
	if p.Lat < -90 || p.Lat > 90 {
		return ErrInvalidPoint
	}
	if p.Lng < -180 || p.Lng > 180 {
		return ErrInvalidPoint
	}
	return nil
}

func (p Point) latLng() s2.LatLng {
	return s2.LatLngFromDegrees(p.Lat, p.Lng)
}

// DistanceKm calcula la distancia de gran círculo entre a y b.
func DistanceKm(a, b Point) float64 {
	ang := a.latLng().Distance(b.latLng())
	return ang.Radians() * EarthRadiusKm
}

// Bounds es un rectángulo lat/lng en grados que contiene un círculo.
// Si LngWraps es true el rango de longitudes cruza el antimeridiano:
// un punto está dentro si lng >= MinLng OR lng <= MaxLng.
type Bounds struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
	LngWraps       bool
}

// BoundsAround devuelve el rectángulo que acota el casquete de radio radiusKm.
// Sirve como prefiltro barato (SQL); el filtro exacto es DistanceKm.
func BoundsAround(center Point, radiusKm float64) Bounds {
	angle := s1.Angle(radiusKm / EarthRadiusKm)
	c := s2.CapFromCenterAngle(s2.PointFromLatLng(center.latLng()), angle)
	r := c.RectBound()

	b := Bounds{
		MinLat: r.Lat.Lo * 180 / math.Pi,
		MaxLat: r.Lat.Hi * 180 / math.Pi,
		MinLng: r.Lng.Lo * 180 / math.Pi,
		MaxLng: r.Lng.Hi * 180 / math.Pi,
	}
	if r.Lng.IsFull() {
		b.MinLng, b.MaxLng = -180, 180
		return b
	}
	b.LngWraps = r.Lng.IsInverted()
	return b
}

// Contains indica si p cae dentro del rectángulo.
func (b Bounds) Contains(p Point) bool {
	if p.Lat < b.MinLat || p.Lat > b.MaxLat {
		return false
	}
	if b.LngWraps {
		return p.Lng >= b.MinLng || p.Lng <= b.MaxLng
	}
	return p.Lng >= b.MinLng && p.Lng <= b.MaxLng
}
