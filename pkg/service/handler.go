package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/tilezen/go-mosaic/pkg/common"
	"github.com/tilezen/go-mosaic/pkg/mosaic"
	"github.com/tilezen/go-mosaic/pkg/planner"
	"github.com/tilezen/go-mosaic/pkg/projection"
)

const (
	MosaicRoute  = "/mosaic/{zoom:[0-9]+}/{lat}/{lon}.{fmt:[a-z]+}"
	TileRoute    = "/tile/{z:[0-9]+}/{x:[0-9]+}/{y:[0-9]+}"
	QuadKeyRoute = "/quadkey/{quadkey:[0-9]+}"

	// Non-standard status for a client that went away before the response was ready.
	statusClientClosedRequest = 499
)

type MosaicService interface {
	AssembleMosaic(ctx context.Context, req Request) (*Result, error)
	GetHealthCheckHandler() func(http.ResponseWriter, *http.Request)
	GetMosaicHandler() func(http.ResponseWriter, *http.Request)
}

func (m mosaicService) GetHealthCheckHandler() func(http.ResponseWriter, *http.Request) {
	return func(writer http.ResponseWriter, request *http.Request) {
		ctx := request.Context()
		t := common.Tile{Z: 1, X: 0, Y: 0}
		_, err := m.fetcher.GetTile(ctx, planner.TileRequest{Tile: t, QuadKey: t.QuadKey()})
		if err != nil {
			log.Printf("Couldn't get healthcheck tile: %+v", err)
			writer.WriteHeader(http.StatusInternalServerError)
			return
		}

		writer.WriteHeader(http.StatusOK)
	}
}

func (m mosaicService) GetMosaicHandler() func(http.ResponseWriter, *http.Request) {
	return func(writer http.ResponseWriter, request *http.Request) {
		ctx := request.Context()
		vars := mux.Vars(request)
		query := request.URL.Query()

		format, err := mosaic.ParseFormat(vars["fmt"])
		if err != nil {
			writeError(writer, http.StatusNotFound, "Invalid format")
			return
		}

		zoom, err := strconv.Atoi(vars["zoom"])
		if err != nil {
			writeError(writer, http.StatusNotFound, "Invalid zoom")
			return
		}

		lat, err := common.ParseFloat(vars["lat"])
		if err != nil {
			writeError(writer, http.StatusBadRequest, "Invalid latitude")
			return
		}

		lon, err := common.ParseFloat(vars["lon"])
		if err != nil {
			writeError(writer, http.StatusBadRequest, "Invalid longitude")
			return
		}

		east, err := common.ParseFloat(query.Get("east"))
		if err != nil {
			writeError(writer, http.StatusBadRequest, "Invalid east extent")
			return
		}

		south, err := common.ParseFloat(query.Get("south"))
		if err != nil {
			writeError(writer, http.StatusBadRequest, "Invalid south extent")
			return
		}

		opts := mosaic.EncodeOptions{Lossless: query.Get("lossless") == "true"}
		if q := query.Get("quality"); q != "" {
			opts.Quality, err = strconv.Atoi(q)
			if err != nil || opts.Quality < 1 || opts.Quality > 100 {
				writeError(writer, http.StatusBadRequest, "Invalid quality")
				return
			}
		}

		req := Request{
			Center:  common.GeoPoint{Lat: lat, Lon: lon},
			EastKm:  east,
			SouthKm: south,
			Zoom:    common.ZoomLevel(zoom),
		}
		log.Printf("Requested mosaic: %+v", req)

		result, err := m.AssembleMosaic(ctx, req)
		if err != nil {
			log.Printf("Couldn't assemble mosaic: %+v", err)
			writeError(writer, statusFor(err), "Error assembling mosaic")
			return
		}

		b := &bytes.Buffer{}
		if err := mosaic.Encode(b, result.Mosaic.Image, format, opts); err != nil {
			log.Printf("Couldn't encode mosaic: %+v", err)
			writeError(writer, http.StatusInternalServerError, "Error encoding mosaic")
			return
		}

		bounds := result.Mosaic.Bounds
		h := writer.Header()
		h.Set("Content-Type", format.ContentType())
		h.Set("X-Mosaic-Top-Left", bounds.TopLeft.String())
		h.Set("X-Mosaic-Top-Right", bounds.TopRight.String())
		h.Set("X-Mosaic-Bottom-Left", bounds.BottomLeft.String())
		h.Set("X-Mosaic-Bottom-Right", bounds.BottomRight.String())
		bbox := bounds.Bound()
		h.Set("X-Mosaic-Bounds", fmt.Sprintf("%.6f,%.6f,%.6f,%.6f",
			bbox.Min.Lon(), bbox.Min.Lat(), bbox.Max.Lon(), bbox.Max.Lat()))

		writer.WriteHeader(http.StatusOK)
		_, _ = writer.Write(b.Bytes())
	}
}

// TileInfo describes a single tile of the grid.
type TileInfo struct {
	Tile    string                `json:"tile"`
	QuadKey common.QuadKey        `json:"quadkey"`
	Bounds  common.GeoBoundingBox `json:"bounds"`
}

func newTileInfo(t common.Tile) TileInfo {
	return TileInfo{
		Tile:    t.String(),
		QuadKey: t.QuadKey(),
		Bounds:  projection.TileBounds(t),
	}
}

// tileHandler looks up a tile by z/x/y.
func tileHandler(writer http.ResponseWriter, request *http.Request) {
	vars := mux.Vars(request)
	t, err := common.ParseTile(vars["z"], vars["x"], vars["y"])
	if err != nil {
		writeError(writer, http.StatusNotFound, "Invalid tile")
		return
	}

	writeJSON(writer, newTileInfo(*t))
}

// quadKeyHandler looks up a tile by quadkey.
func quadKeyHandler(writer http.ResponseWriter, request *http.Request) {
	t, err := common.ParseQuadKey(common.QuadKey(mux.Vars(request)["quadkey"]))
	if err != nil {
		writeError(writer, http.StatusNotFound, "Invalid quadkey")
		return
	}

	writeJSON(writer, newTileInfo(t))
}

// NewRouter registers the mosaic, tile lookup and health check routes.
func NewRouter(s MosaicService) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/live", s.GetHealthCheckHandler())
	r.HandleFunc(MosaicRoute, s.GetMosaicHandler()).Methods(http.MethodGet)
	r.HandleFunc(TileRoute, tileHandler).Methods(http.MethodGet)
	r.HandleFunc(QuadKeyRoute, quadKeyHandler).Methods(http.MethodGet)
	return r
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, context.Canceled):
		return statusClientClosedRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, common.ErrInvalidInput), errors.Is(err, common.ErrInsufficientExtent):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrTileFetch):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(writer http.ResponseWriter, v any) {
	writer.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(writer).Encode(v); err != nil {
		log.Printf("Couldn't write response: %+v", err)
	}
}

func writeError(writer http.ResponseWriter, status int, msg string) {
	writer.WriteHeader(status)
	_, _ = writer.Write([]byte(msg))
}
