// Package projection converts between WGS84 coordinates and the spherical Mercator tile grid.
package projection

import (
	"fmt"
	"math"

	"github.com/tilezen/go-mosaic/pkg/common"
)

// PixelAt returns the global pixel position of p at the given zoom for tiles of tileSize pixels.
func PixelAt(p common.GeoPoint, zoom common.ZoomLevel, tileSize int) (float64, float64, error) {
	if err := zoom.Validate(); err != nil {
		return 0, 0, err
	}
	if err := p.Validate(); err != nil {
		return 0, 0, err
	}
	if tileSize <= 0 {
		return 0, 0, fmt.Errorf("%w: tile size %d", common.ErrInvalidInput, tileSize)
	}

	mapSize := zoom.MapSize(tileSize)
	sinLat := math.Sin(p.Lat * math.Pi / 180)

	x := ((p.Lon + 180) / 360) * mapSize
	y := (0.5 - math.Log((1+sinLat)/(1-sinLat))/(4*math.Pi)) * mapSize

	return x, y, nil
}

// TileAt returns the tile containing p.
func TileAt(p common.GeoPoint, zoom common.ZoomLevel) (common.Tile, error) {
	x, y, err := PixelAt(p, zoom, 1)
	if err != nil {
		return common.Tile{}, err
	}

	// Inside the clip latitude y may still round onto the far edge of the grid.
	last := float64(uint(1)<<uint(zoom) - 1)
	tx := math.Min(math.Floor(x), last)
	ty := math.Min(math.Max(math.Floor(y), 0), last)

	return common.Tile{Z: uint(zoom), X: uint(tx), Y: uint(ty)}, nil
}

// TileCorner returns the coordinate of the north-west corner of tile (x, y). Fractional and out-of-grid values
// are allowed, so TileCorner(x+1, y+1) is the south-east corner of the same tile.
func TileCorner(x, y float64, zoom common.ZoomLevel) common.GeoPoint {
	n := math.Pow(2, float64(zoom))
	e := math.Exp((0.5 - y/n) * 4 * math.Pi)

	return common.GeoPoint{
		Lat: math.Asin((e-1)/(e+1)) * 180 / math.Pi,
		Lon: x*360/n - 180,
	}
}

// GridBounds returns the corners of the block of tiles from (left, top) up to, but not including, (right, bottom).
func GridBounds(left, top, right, bottom float64, zoom common.ZoomLevel) common.GeoBoundingBox {
	return common.GeoBoundingBox{
		TopLeft:     TileCorner(left, top, zoom),
		TopRight:    TileCorner(right, top, zoom),
		BottomLeft:  TileCorner(left, bottom, zoom),
		BottomRight: TileCorner(right, bottom, zoom),
	}
}

// TileBounds returns the corners of a single tile.
func TileBounds(t common.Tile) common.GeoBoundingBox {
	x, y := float64(t.X), float64(t.Y)
	return GridBounds(x, y, x+1, y+1, common.ZoomLevel(t.Z))
}
