package fetcher

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tilezen/go-mosaic/pkg/common"
	"github.com/tilezen/go-mosaic/pkg/planner"
)

// tileColor gives every tile of a grid a distinct color.
func tileColor(t common.Tile) color.RGBA {
	return color.RGBA{R: uint8(t.X), G: uint8(t.Y), B: uint8(t.Z), A: 255}
}

func encodeTile(t testing.TB, c color.Color, size int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)

	b := &bytes.Buffer{}
	require.NoError(t, png.Encode(b, img))
	return b.Bytes()
}

func testPlan(t testing.TB, nx, ny int) *planner.Plan {
	t.Helper()

	// 9.55 m/px at zoom 14, so each tile is 2.4448 km.
	plan, err := planner.NewPlan(common.GeoPoint{Lat: -38.203799, Lon: -69.388419},
		float64(nx)*2.45, float64(ny)*2.45, 14, planner.DefaultTileSize, planner.DefaultMaxTiles)
	require.NoError(t, err)
	require.Equal(t, nx, plan.NumTilesX)
	require.Equal(t, ny, plan.NumTilesY)
	return plan
}

// fakeFetcher serves generated tiles and lets a test script failures per tile index.
type fakeFetcher struct {
	t        testing.TB
	fail     func(req planner.TileRequest, attempt int) error
	block    bool
	calls    sync.Map // index -> *atomic.Int32
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	hook     func()
}

func (f *fakeFetcher) attempts(index int) int {
	v, ok := f.calls.Load(index)
	if !ok {
		return 0
	}
	return int(v.(*atomic.Int32).Load())
}

func (f *fakeFetcher) GetTile(ctx context.Context, req planner.TileRequest) (*FetchResponse, error) {
	v, _ := f.calls.LoadOrStore(req.Index, &atomic.Int32{})
	attempt := int(v.(*atomic.Int32).Add(1))

	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		m := f.maxSeen.Load()
		if n <= m || f.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}

	if f.hook != nil {
		f.hook()
	}

	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	if f.fail != nil {
		if err := f.fail(req, attempt); err != nil {
			return nil, err
		}
	}

	return &FetchResponse{
		Data:    encodeTile(f.t, tileColor(req.Tile), planner.DefaultTileSize),
		Request: req,
	}, nil
}
