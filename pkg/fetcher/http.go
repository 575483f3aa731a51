package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	log "github.com/sirupsen/logrus"

	"github.com/tilezen/go-mosaic/pkg/planner"
)

type httpFetcher struct {
	urlTemplate string
	query       url.Values
	userAgent   string
	client      *http.Client
	maxBytes    int64
}

func (h httpFetcher) tileURL(req planner.TileRequest) (string, error) {
	u, err := url.Parse(expandTemplate(h.urlTemplate, req.QuadKey))
	if err != nil {
		return "", fmt.Errorf("error parsing url template %s: %w", h.urlTemplate, err)
	}

	if len(h.query) > 0 {
		q := u.Query()
		for k, vs := range h.query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	return u.String(), nil
}

func (h httpFetcher) GetTile(ctx context.Context, t planner.TileRequest) (*FetchResponse, error) {
	u, err := h.tileURL(t)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("error building url %s: %w", u, err)
	}
	if h.userAgent != "" {
		req.Header.Set("User-Agent", h.userAgent)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error fetching %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused.
		_, _ = io.CopyN(io.Discard, resp.Body, h.maxBytes)
		return nil, &StatusError{URL: u, StatusCode: resp.StatusCode}
	}

	data, err := readTile(resp.Body, h.maxBytes)
	if err != nil {
		return nil, fmt.Errorf("error reading response for %s: %w", u, err)
	}

	log.Debugf("Retrieved %s", u)

	return &FetchResponse{
		Data:    data,
		Request: t,
	}, nil
}
