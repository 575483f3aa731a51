package common

import (
	"strconv"
	"testing"

	"github.com/paulmach/orb/maptile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTileToQuadKey(t *testing.T) {
	tests := []struct {
		x, y uint
		zoom ZoomLevel
		want QuadKey
	}{
		{3, 5, 3, "213"},
		{0, 0, 1, "0"},
		{1, 0, 1, "1"},
		{0, 1, 1, "2"},
		{1, 1, 1, "3"},
		// Unpadded encoding would give "1" and "2" here.
		{1, 0, 3, "001"},
		{0, 2, 3, "020"},
		{0, 0, 5, "00000"},
	}

	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			got, err := TileToQuadKey(tt.x, tt.y, tt.zoom)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTileToQuadKeyLengthMatchesZoom(t *testing.T) {
	for z := ZoomLevel(MinZoom); z <= MaxZoom; z++ {
		last := uint(1)<<uint(z) - 1
		for _, xy := range [][2]uint{{0, 0}, {last, last}, {last / 2, 0}, {0, last}} {
			q, err := TileToQuadKey(xy[0], xy[1], z)
			require.NoError(t, err)
			assert.Len(t, q, int(z), "zoom %d tile %v", z, xy)
		}
	}
}

func TestTileToQuadKeyMatchesMaptile(t *testing.T) {
	for _, tt := range []Tile{
		{Z: 1, X: 1, Y: 0},
		{Z: 13, X: 4297, Y: 2754},
		{Z: 19, X: 161195, Y: 318625},
		{Z: 23, X: 1<<23 - 1, Y: 12345},
	} {
		q, err := TileToQuadKey(tt.X, tt.Y, ZoomLevel(tt.Z))
		require.NoError(t, err)

		want := maptile.New(uint32(tt.X), uint32(tt.Y), maptile.Zoom(tt.Z)).Quadkey()
		got, err := strconv.ParseUint(string(q), 4, 64)
		require.NoError(t, err)
		assert.Equal(t, want, got, "tile %s", tt)
	}
}

func TestTileToQuadKeyIsInjective(t *testing.T) {
	for z := ZoomLevel(1); z <= 5; z++ {
		n := uint(1) << uint(z)
		seen := make(map[QuadKey]Tile, n*n)
		for x := uint(0); x < n; x++ {
			for y := uint(0); y < n; y++ {
				q, err := TileToQuadKey(x, y, z)
				require.NoError(t, err)

				tile := Tile{Z: uint(z), X: x, Y: y}
				prev, dup := seen[q]
				require.False(t, dup, "%s and %s both map to %s", prev, tile, q)
				seen[q] = tile
			}
		}
	}
}

func TestTileToQuadKeyRejectsInvalidInput(t *testing.T) {
	_, err := TileToQuadKey(8, 0, 3)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = TileToQuadKey(0, 8, 3)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = TileToQuadKey(0, 0, 0)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = TileToQuadKey(0, 0, 24)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestParseQuadKey(t *testing.T) {
	tile, err := ParseQuadKey("213")
	require.NoError(t, err)
	assert.Equal(t, Tile{Z: 3, X: 3, Y: 5}, tile)

	for _, tt := range []Tile{{Z: 1}, {Z: 7, X: 100, Y: 3}, {Z: 23, X: 1<<23 - 1, Y: 1<<23 - 1}} {
		got, err := ParseQuadKey(tt.QuadKey())
		require.NoError(t, err)
		assert.Equal(t, tt, got)
	}

	_, err = ParseQuadKey("0142")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = ParseQuadKey("")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestQuadKeyShard(t *testing.T) {
	assert.Equal(t, 3, QuadKey("0123").Shard())
	assert.Equal(t, 0, QuadKey("").Shard())
}
