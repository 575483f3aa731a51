package fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"net/http"
	"sync/atomic"
	"time"

	// Tile formats the decoder understands.
	_ "image/jpeg"
	_ "image/png"

	"github.com/aws/aws-sdk-go/aws/awserr"
	_ "github.com/chai2010/webp"
	"github.com/creasty/defaults"
	log "github.com/sirupsen/logrus"
	_ "golang.org/x/image/tiff"
	"golang.org/x/sync/errgroup"

	"github.com/tilezen/go-mosaic/pkg/common"
	"github.com/tilezen/go-mosaic/pkg/planner"
)

// ErrUndecodable is returned for tile bodies that are not an image in a known format.
var ErrUndecodable = errors.New("undecodable tile image")

// ProgressFunc is called after each tile is retrieved.
type ProgressFunc func(completed, total int)

type Options struct {
	// Concurrency caps the number of tiles in flight.
	Concurrency int `default:"32"`
	// Attempts is the number of tries per tile, the first one included.
	Attempts int `default:"3"`
	// Backoff is the delay before the second attempt; it doubles for each later one.
	Backoff        time.Duration `default:"250ms"`
	RequestTimeout time.Duration `default:"30s"`
	// Timeout bounds the whole fetch when set.
	Timeout    time.Duration
	OnProgress ProgressFunc
}

// FetchTiles retrieves and decodes every requested tile. The returned slice is indexed by TileRequest.Index.
// Either all tiles are returned or none: the first tile that fails after its retries cancels the others and is
// reported as a *common.TileFetchError.
func FetchTiles(ctx context.Context, f TileFetcher, reqs []planner.TileRequest, opts Options) ([]image.Image, error) {
	if err := defaults.Set(&opts); err != nil {
		return nil, fmt.Errorf("error applying fetch defaults: %w", err)
	}
	if opts.Concurrency < 1 || opts.Attempts < 1 || opts.Backoff < 0 || opts.RequestTimeout <= 0 || opts.Timeout < 0 {
		return nil, fmt.Errorf("%w: fetch options concurrency=%d attempts=%d backoff=%s request timeout=%s timeout=%s",
			common.ErrInvalidInput, opts.Concurrency, opts.Attempts, opts.Backoff, opts.RequestTimeout, opts.Timeout)
	}

	seen := make([]bool, len(reqs))
	for _, req := range reqs {
		if req.Index < 0 || req.Index >= len(reqs) || seen[req.Index] {
			return nil, fmt.Errorf("%w: bad or duplicate tile index %d", common.ErrInvalidInput, req.Index)
		}
		seen[req.Index] = true
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	images := make([]image.Image, len(reqs))
	var completed atomic.Int64

	errs, ctx := errgroup.WithContext(ctx)
	errs.SetLimit(opts.Concurrency)

	for _, req := range reqs {
		if ctx.Err() != nil {
			break
		}

		errs.Go(func() error {
			img, err := fetchTile(ctx, f, req, opts)
			if err != nil {
				return &common.TileFetchError{Index: req.Index, QuadKey: req.QuadKey, Err: err}
			}

			images[req.Index] = img

			n := completed.Add(1)
			if opts.OnProgress != nil {
				opts.OnProgress(int(n), len(reqs))
			}
			return nil
		})
	}

	err := errs.Wait()
	if err != nil {
		return nil, fmt.Errorf("error while fetching images: %w", err)
	}
	if int(completed.Load()) != len(reqs) {
		// ctx was done before every tile was started.
		return nil, fmt.Errorf("error while fetching images: %w", context.Cause(ctx))
	}

	log.Infof("Took %s to pull %d tiles", time.Since(start).Round(time.Millisecond), len(reqs))

	return images, nil
}

func fetchTile(ctx context.Context, f TileFetcher, req planner.TileRequest, opts Options) (image.Image, error) {
	var lastErr error
	for attempt := 1; attempt <= opts.Attempts; attempt++ {
		if attempt > 1 {
			delay := opts.Backoff << (attempt - 2)
			log.Warnf("Retrying tile %s in %s (attempt %d/%d): %v", req.QuadKey, delay, attempt, opts.Attempts, lastErr)

			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, interrupted(ctx, lastErr)
			case <-timer.C:
			}
		}

		img, err := fetchOnce(ctx, f, req, opts.RequestTimeout)
		if err == nil {
			return img, nil
		}

		lastErr = err
		if ctx.Err() != nil {
			return nil, interrupted(ctx, lastErr)
		}
		if !retryable(err) {
			break
		}
	}

	return nil, lastErr
}

// interrupted returns err wrapped with the reason ctx is done, so callers can tell an abort from a tile failure.
func interrupted(ctx context.Context, err error) error {
	cause := context.Cause(ctx)
	if errors.Is(err, cause) {
		return err
	}
	return fmt.Errorf("%w: %w", cause, err)
}

func fetchOnce(ctx context.Context, f TileFetcher, req planner.TileRequest, timeout time.Duration) (image.Image, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := f.GetTile(reqCtx, req)
	if err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(resp.Data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}

	return img, nil
}

// retryable reports whether err may go away on another attempt.
func retryable(err error) bool {
	if errors.Is(err, ErrUndecodable) || errors.Is(err, ErrTileTooLarge) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return isTransientStatus(statusErr.StatusCode)
	}

	var reqErr awserr.RequestFailure
	if errors.As(err, &reqErr) {
		return isTransientStatus(reqErr.StatusCode())
	}

	return true
}

func isTransientStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}
