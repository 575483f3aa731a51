// Package planner turns a center point and extents into the rectangular grid of tiles that covers them.
package planner

import (
	"fmt"
	"image"
	"math"

	"github.com/tilezen/go-mosaic/pkg/common"
	"github.com/tilezen/go-mosaic/pkg/projection"
)

const (
	DefaultTileSize = 256
	// DefaultMaxTiles bounds a plan to roughly a 70x70 grid, about 1.3 GB of RGBA canvas at 256 px.
	DefaultMaxTiles = 4900
)

// TileRequest is one tile of a plan. Index is the row-major position in the grid.
type TileRequest struct {
	Index   int
	Tile    common.Tile
	QuadKey common.QuadKey
}

type Plan struct {
	Zoom      common.ZoomLevel
	TileSize  int
	Origin    common.Tile
	NumTilesX int
	NumTilesY int
	Requests  []TileRequest
}

// NewPlan computes the tiles that cover eastKm by southKm starting at the tile containing center. The extents are
// measured with the equatorial ground resolution of the zoom level. Grids of more than maxTiles tiles are rejected
// before anything is allocated.
func NewPlan(center common.GeoPoint, eastKm, southKm float64, zoom common.ZoomLevel, tileSize, maxTiles int) (*Plan, error) {
	if err := zoom.Validate(); err != nil {
		return nil, err
	}
	if !(eastKm > 0) || !(southKm > 0) || math.IsInf(eastKm, 0) || math.IsInf(southKm, 0) {
		return nil, fmt.Errorf("%w: extents must be positive, got east=%v km south=%v km", common.ErrInvalidInput, eastKm, southKm)
	}
	if tileSize <= 0 {
		return nil, fmt.Errorf("%w: tile size %d", common.ErrInvalidInput, tileSize)
	}
	if maxTiles <= 0 {
		return nil, fmt.Errorf("%w: tile limit %d", common.ErrInvalidInput, maxTiles)
	}

	origin, err := projection.TileAt(center, zoom)
	if err != nil {
		return nil, err
	}

	metersPerPixel := zoom.GroundResolution()
	pixelsX := eastKm * 1000 / metersPerPixel
	pixelsY := southKm * 1000 / metersPerPixel

	numTilesX := math.Floor(pixelsX / float64(tileSize))
	numTilesY := math.Floor(pixelsY / float64(tileSize))
	if numTilesX < 1 || numTilesY < 1 {
		return nil, fmt.Errorf("%w: %v km x %v km is %.0fx%.0f pixels at zoom %d, less than one %dpx tile",
			common.ErrInsufficientExtent, eastKm, southKm, pixelsX, pixelsY, zoom, tileSize)
	}

	if numTilesX*numTilesY > float64(maxTiles) {
		return nil, fmt.Errorf("%w: %.0fx%.0f tiles exceed the limit of %d tiles",
			common.ErrInvalidInput, numTilesX, numTilesY, maxTiles)
	}

	gridSize := float64(uint(1) << uint(zoom))
	if float64(origin.X)+numTilesX > gridSize || float64(origin.Y)+numTilesY > gridSize {
		return nil, fmt.Errorf("%w: %.0fx%.0f tiles from %s run past the edge of the map",
			common.ErrInvalidInput, numTilesX, numTilesY, origin)
	}

	p := &Plan{
		Zoom:      zoom,
		TileSize:  tileSize,
		Origin:    origin,
		NumTilesX: int(numTilesX),
		NumTilesY: int(numTilesY),
	}

	p.Requests = make([]TileRequest, 0, p.NumTilesX*p.NumTilesY)
	for row := 0; row < p.NumTilesY; row++ {
		for col := 0; col < p.NumTilesX; col++ {
			t := common.Tile{Z: uint(zoom), X: origin.X + uint(col), Y: origin.Y + uint(row)}
			p.Requests = append(p.Requests, TileRequest{
				Index:   len(p.Requests),
				Tile:    t,
				QuadKey: t.QuadKey(),
			})
		}
	}

	return p, nil
}

// Len returns the number of tiles in the plan.
func (p *Plan) Len() int {
	return p.NumTilesX * p.NumTilesY
}

// Width returns the canvas width in pixels.
func (p *Plan) Width() int {
	return p.NumTilesX * p.TileSize
}

// Height returns the canvas height in pixels.
func (p *Plan) Height() int {
	return p.NumTilesY * p.TileSize
}

// Position returns the canvas offset of the tile with the given index.
func (p *Plan) Position(index int) image.Point {
	row := index / p.NumTilesX
	col := index % p.NumTilesX
	return image.Pt(col*p.TileSize, row*p.TileSize)
}
