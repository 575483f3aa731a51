package common

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

const (
	// MaxLatitude is where the square Mercator map is clipped.
	MaxLatitude  = 85.05112878
	MinLatitude  = -MaxLatitude
	MinLongitude = -180.0
	MaxLongitude = 180.0
)

type GeoPoint struct {
	Lat float64 `json:"lat" validate:"gte=-85.05112878,lte=85.05112878"`
	Lon float64 `json:"lon" validate:"gte=-180,lt=180"`
}

func (p GeoPoint) Validate() error {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lon, 0) {
		return fmt.Errorf("%w: coordinate %v is not a number", ErrInvalidInput, p)
	}
	if p.Lat < MinLatitude || p.Lat > MaxLatitude {
		return fmt.Errorf("%w: latitude %f out of range [%f, %f]", ErrInvalidInput, p.Lat, MinLatitude, MaxLatitude)
	}
	if p.Lon < MinLongitude || p.Lon >= MaxLongitude {
		return fmt.Errorf("%w: longitude %f out of range [%f, %f)", ErrInvalidInput, p.Lon, MinLongitude, MaxLongitude)
	}
	return nil
}

// Point returns the point in orb's lon/lat order.
func (p GeoPoint) Point() orb.Point {
	return orb.Point{p.Lon, p.Lat}
}

func (p GeoPoint) String() string {
	return fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lon)
}

// GeoBoundingBox holds the four corners of a mosaic.
type GeoBoundingBox struct {
	TopLeft     GeoPoint `json:"top_left"`
	TopRight    GeoPoint `json:"top_right"`
	BottomLeft  GeoPoint `json:"bottom_left"`
	BottomRight GeoPoint `json:"bottom_right"`
}

func (b GeoBoundingBox) Bound() orb.Bound {
	return orb.MultiPoint{
		b.TopLeft.Point(),
		b.TopRight.Point(),
		b.BottomLeft.Point(),
		b.BottomRight.Point(),
	}.Bound()
}

// ParseFloat parses a decimal number, accepting ',' as the decimal separator.
func ParseFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.Replace(strings.TrimSpace(s), ",", ".", 1), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidInput, s)
	}
	return v, nil
}
