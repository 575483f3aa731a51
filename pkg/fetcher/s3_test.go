package fetcher

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tilezen/go-mosaic/pkg/common"
	"github.com/tilezen/go-mosaic/pkg/planner"
)

type mockS3 struct {
	s3iface.S3API
	objects map[string][]byte
	inputs  []*s3.GetObjectInput
}

func (m *mockS3) GetObjectWithContext(_ aws.Context, input *s3.GetObjectInput, _ ...request.Option) (*s3.GetObjectOutput, error) {
	m.inputs = append(m.inputs, input)

	data, ok := m.objects[aws.StringValue(input.Key)]
	if !ok {
		return nil, awserr.NewRequestFailure(awserr.New(s3.ErrCodeNoSuchKey, "no such key", nil), http.StatusNotFound, "req-1")
	}

	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func TestS3FetcherGetTile(t *testing.T) {
	tile := common.Tile{Z: 3, X: 3, Y: 5}
	data := encodeTile(t, tileColor(tile), planner.DefaultTileSize)
	m := &mockS3{objects: map[string][]byte{"imagery/213.png": data}}

	f := NewS3TileFetcher(m, "tiles-bucket", "imagery/{quadkey}.png", true)
	resp, err := f.GetTile(context.Background(), planner.TileRequest{Tile: tile, QuadKey: tile.QuadKey()})
	require.NoError(t, err)
	assert.Equal(t, data, resp.Data)

	require.Len(t, m.inputs, 1)
	assert.Equal(t, "tiles-bucket", aws.StringValue(m.inputs[0].Bucket))
	assert.Equal(t, s3.RequestPayerRequester, aws.StringValue(m.inputs[0].RequestPayer))
}

func TestS3FetcherMissingKeyIsNotRetried(t *testing.T) {
	m := &mockS3{objects: map[string][]byte{}}
	f := NewS3TileFetcher(m, "tiles-bucket", DefaultS3KeyTemplate, false)
	plan := testPlan(t, 1, 1)

	_, err := FetchTiles(context.Background(), f, plan.Requests, Options{Attempts: 3, Backoff: time.Millisecond})
	assert.ErrorIs(t, err, common.ErrTileFetch)
	assert.Len(t, m.inputs, 1)
	assert.Nil(t, m.inputs[0].RequestPayer)
}

func TestS3FetcherLimitsBodySize(t *testing.T) {
	m := &mockS3{objects: map[string][]byte{"0.webp": make([]byte, 2048)}}
	f := &s3tileFetcher{s3Bucket: "tiles-bucket", keyTemplate: DefaultS3KeyTemplate, s3: m, maxBytes: 1024}

	_, err := f.GetTile(context.Background(), planner.TileRequest{QuadKey: "0"})
	assert.ErrorIs(t, err, ErrTileTooLarge)
}
