// Package mosaic composites planned tiles into one raster and encodes it.
package mosaic

import (
	"fmt"
	"image"
	"image/draw"

	"github.com/tilezen/go-mosaic/pkg/common"
	"github.com/tilezen/go-mosaic/pkg/planner"
	"github.com/tilezen/go-mosaic/pkg/projection"
)

type Mosaic struct {
	Image  *image.RGBA
	Bounds common.GeoBoundingBox
}

// Assemble draws tiles[i] at the grid position of plan request i. Every tile must be present and exactly
// plan.TileSize pixels square.
func Assemble(plan *planner.Plan, tiles []image.Image) (*Mosaic, error) {
	if len(tiles) != plan.Len() {
		return nil, fmt.Errorf("%w: got %d tiles for a %dx%d grid", common.ErrAssembly, len(tiles), plan.NumTilesX, plan.NumTilesY)
	}

	for i, tile := range tiles {
		if tile == nil {
			return nil, fmt.Errorf("%w: tile %d is missing", common.ErrAssembly, i)
		}
		if b := tile.Bounds(); b.Dx() != plan.TileSize || b.Dy() != plan.TileSize {
			return nil, fmt.Errorf("%w: tile %d is %dx%d, want %dx%d",
				common.ErrAssembly, i, b.Dx(), b.Dy(), plan.TileSize, plan.TileSize)
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, plan.Width(), plan.Height()))
	for i, tile := range tiles {
		at := plan.Position(i)
		draw.Draw(
			dst,
			image.Rect(at.X, at.Y, at.X+plan.TileSize, at.Y+plan.TileSize),
			tile,
			tile.Bounds().Min,
			draw.Src,
		)
	}

	return &Mosaic{
		Image:  dst,
		Bounds: Corners(plan),
	}, nil
}

// Corners returns the coordinates of the four outer corners of the planned grid.
func Corners(plan *planner.Plan) common.GeoBoundingBox {
	left := float64(plan.Origin.X)
	top := float64(plan.Origin.Y)

	return projection.GridBounds(left, top, left+float64(plan.NumTilesX), top+float64(plan.NumTilesY), plan.Zoom)
}
