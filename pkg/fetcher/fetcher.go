package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go/service/s3/s3iface"

	"github.com/tilezen/go-mosaic/pkg/common"
	"github.com/tilezen/go-mosaic/pkg/planner"
)

const (
	// DefaultURLTemplate is the aerial-with-labels endpoint of the Bing Maps tile servers.
	DefaultURLTemplate   = "https://t{shard}.ssl.ak.dynamic.tiles.virtualearth.net/comp/ch/{quadkey}"
	DefaultS3KeyTemplate = "{quadkey}.webp"
	// MaxTileBytes is the largest tile body read from a tile source.
	MaxTileBytes = 8 << 20
)

// ErrTileTooLarge is returned for tile bodies over the fetcher's size limit.
var ErrTileTooLarge = errors.New("tile body too large")

type FetchResponse struct {
	Data    []byte
	Request planner.TileRequest
}

type TileFetcher interface {
	GetTile(ctx context.Context, req planner.TileRequest) (*FetchResponse, error)
}

// StatusError is returned when the tile server answers with a non-2xx status.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d for %s", e.StatusCode, e.URL)
}

// DefaultQuery returns the fixed query parameters the default endpoint expects.
func DefaultQuery() url.Values {
	return url.Values{
		"mkt":     {"es-AR"},
		"ur":      {"ar"},
		"it":      {"A,G,L,LA"},
		"shading": {"t"},
		"og":      {"1677"},
		"n":       {"z"},
		"o":       {"webp"},
	}
}

func NewHTTPTileFetcher(urlTemplate string, query url.Values, userAgent string) TileFetcher {
	return &httpFetcher{
		urlTemplate: urlTemplate,
		query:       query,
		userAgent:   userAgent,
		client:      http.DefaultClient,
		maxBytes:    MaxTileBytes,
	}
}

func NewS3TileFetcher(s3 s3iface.S3API, bucket string, keyTemplate string, requesterPays bool) TileFetcher {
	return &s3tileFetcher{
		s3Bucket:      bucket,
		keyTemplate:   keyTemplate,
		requesterPays: requesterPays,
		s3:            s3,
		maxBytes:      MaxTileBytes,
	}
}

func expandTemplate(template string, q common.QuadKey) string {
	return strings.NewReplacer(
		"{quadkey}", string(q),
		"{shard}", strconv.Itoa(q.Shard()),
	).Replace(template)
}

// readTile reads at most limit bytes of a tile body.
func readTile(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTileTooLarge, limit)
	}
	return data, nil
}
