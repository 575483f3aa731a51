package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"

	"github.com/tilezen/go-mosaic/pkg/common"
	"github.com/tilezen/go-mosaic/pkg/fetcher"
	"github.com/tilezen/go-mosaic/pkg/mosaic"
	"github.com/tilezen/go-mosaic/pkg/planner"
)

type Config struct {
	TileSize int `default:"256"`
	// MaxTiles caps the grid of a single mosaic.
	MaxTiles int `default:"4900"`
	Fetch    fetcher.Options
}

// Request describes the region to render: EastKm and SouthKm are measured from the tile containing Center.
type Request struct {
	Center  common.GeoPoint  `json:"center"`
	EastKm  float64          `json:"east_km" validate:"gt=0"`
	SouthKm float64          `json:"south_km" validate:"gt=0"`
	Zoom    common.ZoomLevel `json:"zoom" validate:"min=1,max=23"`
}

type Result struct {
	Mosaic *mosaic.Mosaic
	Plan   *planner.Plan
}

type mosaicService struct {
	fetcher  fetcher.TileFetcher
	cfg      Config
	validate *validator.Validate
}

func NewMosaicService(f fetcher.TileFetcher, cfg Config) (MosaicService, error) {
	if err := defaults.Set(&cfg); err != nil {
		return nil, fmt.Errorf("error applying config defaults: %w", err)
	}

	return &mosaicService{
		fetcher:  f,
		cfg:      cfg,
		validate: validator.New(),
	}, nil
}

// AssembleMosaic plans, fetches and composites the mosaic for req. It returns a complete mosaic or an error;
// invalid requests fail before any tile is requested.
func (m mosaicService) AssembleMosaic(ctx context.Context, req Request) (*Result, error) {
	if err := m.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return nil, fmt.Errorf("%w: %s", common.ErrInvalidInput, verrs.Error())
		}
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
	}

	plan, err := planner.NewPlan(req.Center, req.EastKm, req.SouthKm, req.Zoom, m.cfg.TileSize, m.cfg.MaxTiles)
	if err != nil {
		return nil, fmt.Errorf("error planning mosaic: %w", err)
	}

	log.Infof("Fetching %dx%d tiles at zoom %d from %s", plan.NumTilesX, plan.NumTilesY, plan.Zoom, plan.Origin)

	tiles, err := fetcher.FetchTiles(ctx, m.fetcher, plan.Requests, m.cfg.Fetch)
	if err != nil {
		return nil, fmt.Errorf("error fetching tiles: %w", err)
	}

	mos, err := mosaic.Assemble(plan, tiles)
	if err != nil {
		return nil, fmt.Errorf("error assembling mosaic: %w", err)
	}

	return &Result{Mosaic: mos, Plan: plan}, nil
}
