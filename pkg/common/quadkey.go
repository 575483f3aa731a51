package common

import (
	"fmt"
	"strings"
)

// QuadKey addresses a tile in the quadtree. Its length is the zoom level.
type QuadKey string

// TileToQuadKey interleaves the bits of y and x, most significant first, and writes each y/x bit pair as one
// base-4 digit. The key is always exactly zoom digits long, so (0, 0) at zoom 3 is "000".
func TileToQuadKey(x, y uint, zoom ZoomLevel) (QuadKey, error) {
	if err := zoom.Validate(); err != nil {
		return "", err
	}

	t := Tile{Z: uint(zoom), X: x, Y: y}
	if !t.IsValid() {
		return "", fmt.Errorf("%w: tile %s is outside the %dx%d grid", ErrInvalidInput, t, uint(1)<<t.Z, uint(1)<<t.Z)
	}

	return t.QuadKey(), nil
}

func encodeQuadKey(x, y, zoom uint) QuadKey {
	var b strings.Builder
	b.Grow(int(zoom))
	for i := zoom; i > 0; i-- {
		mask := uint(1) << (i - 1)
		digit := byte('0')
		if y&mask != 0 {
			digit += 2
		}
		if x&mask != 0 {
			digit++
		}
		b.WriteByte(digit)
	}
	return QuadKey(b.String())
}

// ParseQuadKey decodes a quadkey back into its tile. The zoom is the key length.
func ParseQuadKey(q QuadKey) (Tile, error) {
	zoom := ZoomLevel(len(q))
	if err := zoom.Validate(); err != nil {
		return Tile{}, fmt.Errorf("quadkey %q: %w", q, err)
	}

	t := Tile{Z: uint(zoom)}
	for i := 0; i < len(q); i++ {
		mask := uint(1) << (len(q) - 1 - i)
		switch q[i] {
		case '0':
		case '1':
			t.X |= mask
		case '2':
			t.Y |= mask
		case '3':
			t.X |= mask
			t.Y |= mask
		default:
			return Tile{}, fmt.Errorf("%w: quadkey %q has invalid digit %q", ErrInvalidInput, q, q[i])
		}
	}

	return t, nil
}

// Shard returns the last digit of the key as an int, used to spread requests over numbered tile hosts.
func (q QuadKey) Shard() int {
	if len(q) == 0 {
		return 0
	}
	return int(q[len(q)-1] - '0')
}

func (q QuadKey) String() string {
	return string(q)
}
