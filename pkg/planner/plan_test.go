package planner

import (
	"image"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tilezen/go-mosaic/pkg/common"
)

var neuquen = common.GeoPoint{Lat: -38.203799, Lon: -69.388419}

func TestNewPlan(t *testing.T) {
	plan, err := NewPlan(neuquen, 5, 5, 19, DefaultTileSize, DefaultMaxTiles)
	require.NoError(t, err)

	assert.Equal(t, common.Tile{Z: 19, X: 161089, Y: 322432}, plan.Origin)
	// 5000 m / 0.2986 m/px / 256 px = 65.4 tiles
	assert.Equal(t, 65, plan.NumTilesX)
	assert.Equal(t, 65, plan.NumTilesY)
	assert.Equal(t, 65*65, plan.Len())
	assert.Len(t, plan.Requests, plan.Len())
	assert.Equal(t, 65*256, plan.Width())
	assert.Equal(t, 65*256, plan.Height())

	first := plan.Requests[0]
	assert.Equal(t, 0, first.Index)
	assert.Equal(t, plan.Origin, first.Tile)
	assert.Equal(t, plan.Origin.QuadKey(), first.QuadKey)

	last := plan.Requests[plan.Len()-1]
	assert.Equal(t, common.Tile{Z: 19, X: 161089 + 64, Y: 322432 + 64}, last.Tile)
	for _, req := range plan.Requests {
		assert.Len(t, req.QuadKey, 19)
	}
}

func TestNewPlanRowMajor(t *testing.T) {
	// 9.55 m/px at zoom 14: 7.5 km is 3 tiles wide, 5 km is 2 tiles tall.
	plan, err := NewPlan(neuquen, 7.5, 5, 14, DefaultTileSize, DefaultMaxTiles)
	require.NoError(t, err)
	require.Equal(t, 3, plan.NumTilesX)
	require.Equal(t, 2, plan.NumTilesY)

	for i, req := range plan.Requests {
		row, col := i/3, i%3
		assert.Equal(t, i, req.Index)
		assert.Equal(t, plan.Origin.X+uint(col), req.Tile.X)
		assert.Equal(t, plan.Origin.Y+uint(row), req.Tile.Y)
	}

	assert.Equal(t, image.Pt(256, 256), plan.Position(4))
	assert.Equal(t, image.Pt(512, 0), plan.Position(2))
	assert.Equal(t, image.Pt(0, 256), plan.Position(3))
}

func TestNewPlanInsufficientExtent(t *testing.T) {
	// One tile at zoom 19 covers about 76 m.
	_, err := NewPlan(neuquen, 0.05, 5, 19, DefaultTileSize, DefaultMaxTiles)
	assert.ErrorIs(t, err, common.ErrInsufficientExtent)

	_, err = NewPlan(neuquen, 5, 0.07, 19, DefaultTileSize, DefaultMaxTiles)
	assert.ErrorIs(t, err, common.ErrInsufficientExtent)

	// 100 km is less than one 78 km/px * 256 px tile at zoom 1.
	_, err = NewPlan(neuquen, 100, 100, 1, DefaultTileSize, DefaultMaxTiles)
	assert.ErrorIs(t, err, common.ErrInsufficientExtent)
}

func TestNewPlanInvalidInput(t *testing.T) {
	tests := []struct {
		name        string
		center      common.GeoPoint
		east, south float64
		zoom        common.ZoomLevel
		tileSize    int
	}{
		{"zero east", neuquen, 0, 5, 19, 256},
		{"negative south", neuquen, 5, -1, 19, 256},
		{"nan extent", neuquen, math.NaN(), 5, 19, 256},
		{"infinite extent", neuquen, math.Inf(1), 5, 19, 256},
		{"pole", common.GeoPoint{Lat: 90}, 5, 5, 19, 256},
		{"zoom too low", neuquen, 5, 5, 0, 256},
		{"zoom too high", neuquen, 5, 5, 24, 256},
		{"tile size", neuquen, 5, 5, 19, 0},
		{"past the east edge", common.GeoPoint{Lat: 0, Lon: 179.99}, 50, 50, 12, 256},
		{"past the south edge", common.GeoPoint{Lat: -85, Lon: 0}, 50, 500, 10, 256},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPlan(tt.center, tt.east, tt.south, tt.zoom, tt.tileSize, DefaultMaxTiles)
			assert.ErrorIs(t, err, common.ErrInvalidInput)
		})
	}
}

func TestNewPlanZoomBoundaries(t *testing.T) {
	// Both zoom 1 tiles in each direction need just over 40075 km.
	plan, err := NewPlan(common.GeoPoint{Lat: 45, Lon: -90}, 40100, 40100, 1, DefaultTileSize, DefaultMaxTiles)
	require.NoError(t, err)
	assert.Equal(t, 2, plan.NumTilesX)
	assert.Equal(t, 2, plan.NumTilesY)
	for _, req := range plan.Requests {
		assert.Len(t, req.QuadKey, 1)
	}

	plan, err = NewPlan(neuquen, 0.01, 0.01, 23, DefaultTileSize, DefaultMaxTiles)
	require.NoError(t, err)
	assert.Equal(t, 2, plan.NumTilesX)
	for _, req := range plan.Requests {
		assert.Len(t, req.QuadKey, 23)
	}
}

func TestNewPlanMaxTiles(t *testing.T) {
	// Each axis fits within the 2^23 grid, but the product overflows any allocation.
	_, err := NewPlan(common.GeoPoint{Lat: 85, Lon: -179.9}, 39000, 19000, 23, DefaultTileSize, DefaultMaxTiles)
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	// 7.5 km x 5 km at zoom 14 is 3x2 tiles.
	_, err = NewPlan(neuquen, 7.5, 5, 14, DefaultTileSize, 5)
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	plan, err := NewPlan(neuquen, 7.5, 5, 14, DefaultTileSize, 6)
	require.NoError(t, err)
	assert.Equal(t, 6, plan.Len())

	_, err = NewPlan(neuquen, 7.5, 5, 14, DefaultTileSize, 0)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}
