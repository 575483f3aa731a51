package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials/stscreds"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/carlmjohnson/versioninfo"
	log "github.com/sirupsen/logrus"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/tilezen/go-mosaic/pkg/fetcher"
	"github.com/tilezen/go-mosaic/pkg/planner"
	"github.com/tilezen/go-mosaic/pkg/service"
)

const (
	// The time to wait after responding /ready with non-200 before starting to shut down the HTTP server
	gracefulShutdownSleep = 20 * time.Second
	// The time to wait for the in-flight HTTP requests to complete before exiting
	gracefulShutdownTimeout = 5 * time.Second
)

func main() {
	port := flag.Int("port", 8080, "The port to listen on")
	fetchMethod := flag.String("fetch-method", "http", "Method to use when fetching tiles. Use http or s3.")
	urlTemplate := flag.String("url-template", fetcher.DefaultURLTemplate, "Tile URL template with {quadkey} and {shard} placeholders when using the http fetch method")
	rawQuery := flag.String("query", fetcher.DefaultQuery().Encode(), "Fixed query parameters added to every http tile request")
	userAgent := flag.String("user-agent", "", "User-Agent header sent with http tile requests")
	s3Bucket := flag.String("s3-bucket", "", "S3 bucket to fetch tiles from when using S3 fetch method")
	s3KeyTemplate := flag.String("s3-key-template", fetcher.DefaultS3KeyTemplate, "S3 key template with a {quadkey} placeholder")
	iamRole := flag.String("iam-role", "", "IAM role to assume when setting up connection to S3")
	awsRegion := flag.String("region", "", "Region to use when setting up connection to S3")
	requesterPays := flag.Bool("requester-pays", false, "Set the requester pays flag when using the S3 fetch method")
	concurrency := flag.Int("concurrency", 32, "Maximum number of tiles fetched at once per mosaic")
	maxTiles := flag.Int("max-tiles", planner.DefaultMaxTiles, "Maximum number of tiles in a single mosaic")
	attempts := flag.Int("attempts", 3, "Attempts per tile before a mosaic fails")
	requestTimeout := flag.Duration("request-timeout", 30*time.Second, "Timeout for a single tile request")
	fetchTimeout := flag.Duration("fetch-timeout", 5*time.Minute, "Timeout for fetching all tiles of a mosaic")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
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

	var tileFetcher fetcher.TileFetcher
	switch *fetchMethod {
	case "http":
		if *urlTemplate == "" {
			log.Fatalf("url-template must be set when using the http fetch method")
		}

		query, err := url.ParseQuery(*rawQuery)
		if err != nil {
			log.Fatalf("Invalid query %q: %s", *rawQuery, err)
		}

		tileFetcher = fetcher.NewHTTPTileFetcher(*urlTemplate, query, *userAgent)
	case "s3":
		if *s3Bucket == "" {
			log.Fatalf("s3-bucket must be set when using the s3 fetch method")
		}

		if *awsRegion == "" {
			log.Fatalf("region must be set when using the s3 fetch method")
		}

		var awsSession *session.Session
		if *iamRole == "" {
			awsSession, err = session.NewSessionWithOptions(session.Options{
				Config: aws.Config{Region: awsRegion},
			})
		} else {
			log.Printf("Configured to use AWS role %s", *iamRole)
			awsSession, err = session.NewSessionWithOptions(session.Options{
				Config: aws.Config{
					Credentials: stscreds.NewCredentials(session.Must(session.NewSession()), *iamRole),
					Region:      awsRegion,
				},
				SharedConfigState: session.SharedConfigEnable,
			})
		}
		if err != nil {
			log.Fatalf("Unable to set up AWS session: %s", err.Error())
		}

		s3Client := s3.New(awsSession)

		tileFetcher = fetcher.NewS3TileFetcher(s3Client, *s3Bucket, *s3KeyTemplate, *requesterPays)
	default:
		log.Fatalf("Unknown fetch-method %q", *fetchMethod)
	}

	mosaicService, err := service.NewMosaicService(tileFetcher, service.Config{
		MaxTiles: *maxTiles,
		Fetch: fetcher.Options{
			Concurrency:    *concurrency,
			Attempts:       *attempts,
			RequestTimeout: *requestTimeout,
			Timeout:        *fetchTimeout,
		},
	})
	if err != nil {
		log.Fatalf("Unable to set up mosaic service: %s", err)
	}

	r := service.NewRouter(mosaicService)

	// Readiness probe for graceful shutdown support
	readinessResponseCode := uint32(http.StatusOK)
	r.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(int(atomic.LoadUint32(&readinessResponseCode)))
	})

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("Listening to %s", addr)

	// Support for upgrading an http/1.1 connection to http/2
	// See https://github.com/thrawn01/h2c-golang-example
	http2Server := &http2.Server{}
	server := &http.Server{
		Addr:    addr,
		Handler: h2c.NewHandler(r, http2Server),
	}

	// Code to handle shutdown gracefully
	shutdownChan := make(chan struct{})
	go func() {
		defer close(shutdownChan)

		// Wait for SIGTERM to come in
		signals := make(chan os.Signal, 1)
		signal.Notify(signals, syscall.SIGTERM)
		<-signals

		log.Printf("SIGTERM received. Starting graceful shutdown.")

		// Start failing readiness probes
		atomic.StoreUint32(&readinessResponseCode, http.StatusInternalServerError)
		// Wait for upstream clients
		time.Sleep(gracefulShutdownSleep)
		// Begin shutdown of in-flight requests
		shutdownCtx, shutdownCtxCancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error waiting for server shutdown: %+v", err)
		}
		shutdownCtxCancel()
	}()

	log.Printf("Service %s started", versioninfo.Short())
	if err := server.ListenAndServe(); err != nil {
		log.Printf("Couldn't start HTTP server: %+v", err)
	}
	<-shutdownChan
}
