package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/carlmjohnson/versioninfo"
	"github.com/schollz/progressbar/v3"
	log "github.com/sirupsen/logrus"

	"github.com/tilezen/go-mosaic/pkg/common"
	"github.com/tilezen/go-mosaic/pkg/fetcher"
	"github.com/tilezen/go-mosaic/pkg/mosaic"
	"github.com/tilezen/go-mosaic/pkg/planner"
	"github.com/tilezen/go-mosaic/pkg/service"
)

func main() {
	latStr := flag.String("lat", "-38.203799", "Latitude of the start point; the mosaic extends east and south from its tile")
	lonStr := flag.String("lon", "-69.388419", "Longitude of the start point; the mosaic extends east and south from its tile")
	eastStr := flag.String("east", "5", "Kilometers to extend east")
	southStr := flag.String("south", "5", "Kilometers to extend south")
	zoom := flag.Int("zoom", 19, "Zoom level (1-23)")
	out := flag.String("out", "Imagen.tiff", "Output file; the extension selects png, jpg, tiff or webp")
	quality := flag.Int("quality", mosaic.DefaultQuality, "JPEG and lossy WebP quality (1-100)")
	lossless := flag.Bool("lossless", false, "Write lossless WebP")
	urlTemplate := flag.String("url-template", fetcher.DefaultURLTemplate, "Tile URL template with {quadkey} and {shard} placeholders")
	concurrency := flag.Int("concurrency", 32, "Maximum number of tiles fetched at once")
	maxTiles := flag.Int("max-tiles", planner.DefaultMaxTiles, "Maximum number of tiles in the mosaic")
	showProgress := flag.Bool("progress", true, "Show a progress bar while fetching tiles")
	logLevel := flag.String("log-level", "warn", "Log level (debug, info, warn, error)")
	version := flag.Bool("version", false, "Print the version and exit")
	flag.Parse()

	if *version {
		fmt.Println(versioninfo.Short())
		return
	}

	level, err := log.ParseLevel(*logLevel)
	if err != nil {
		log.Fatalf("Invalid log level %q: %s", *logLevel, err)
	}
	log.SetLevel(level)

	format, err := mosaic.FormatFromPath(*out)
	if err != nil {
		log.Fatalf("Can't write %s: %s", *out, err)
	}

	req := service.Request{Zoom: common.ZoomLevel(*zoom)}
	for _, f := range []struct {
		name string
		src  string
		dst  *float64
	}{
		{"lat", *latStr, &req.Center.Lat},
		{"lon", *lonStr, &req.Center.Lon},
		{"east", *eastStr, &req.EastKm},
		{"south", *southStr, &req.SouthKm},
	} {
		if *f.dst, err = common.ParseFloat(f.src); err != nil {
			log.Fatalf("Invalid -%s: %s", f.name, err)
		}
	}

	opts := fetcher.Options{Concurrency: *concurrency}
	if *showProgress {
		// Planning here is only for the tile count; errors surface again from AssembleMosaic.
		if plan, err := planner.NewPlan(req.Center, req.EastKm, req.SouthKm, req.Zoom, planner.DefaultTileSize, *maxTiles); err == nil {
			bar := progressbar.Default(int64(plan.Len()), "Downloading tiles")
			opts.OnProgress = func(completed, total int) {
				_ = bar.Add(1)
			}
		}
	}

	mosaicService, err := service.NewMosaicService(
		fetcher.NewHTTPTileFetcher(*urlTemplate, fetcher.DefaultQuery(), ""),
		service.Config{MaxTiles: *maxTiles, Fetch: opts},
	)
	if err != nil {
		log.Fatalf("Unable to set up mosaic service: %s", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := mosaicService.AssembleMosaic(ctx, req)
	if err != nil {
		log.Fatalf("Couldn't assemble mosaic: %s", err)
	}

	f, err := os.Create(*out)
	if err != nil {
		log.Fatalf("Couldn't create %s: %s", *out, err)
	}

	err = mosaic.Encode(f, result.Mosaic.Image, format, mosaic.EncodeOptions{Quality: *quality, Lossless: *lossless})
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		log.Fatalf("Couldn't write %s: %s", *out, err)
	}

	bounds := result.Mosaic.Bounds
	fmt.Printf("Wrote %s (%dx%d)\n", *out, result.Plan.Width(), result.Plan.Height())
	fmt.Printf("Top-Left coords:     %s\n", bounds.TopLeft)
	fmt.Printf("Top-Right coords:    %s\n", bounds.TopRight)
	fmt.Printf("Bottom-Left coords:  %s\n", bounds.BottomLeft)
	fmt.Printf("Bottom-Right coords: %s\n", bounds.BottomRight)
}
