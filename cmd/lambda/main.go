package main

import (
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/akrylysov/algnhsa"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials/stscreds"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	log "github.com/sirupsen/logrus"

	"github.com/tilezen/go-mosaic/pkg/fetcher"
	"github.com/tilezen/go-mosaic/pkg/service"
)

func main() {
	fetchMethod, ok := os.LookupEnv("MOSAIC_FETCH_METHOD")
	if !ok {
		fetchMethod = "http"
	}
	urlTemplate, ok := os.LookupEnv("MOSAIC_URL_TEMPLATE")
	if !ok {
		urlTemplate = fetcher.DefaultURLTemplate
	}
	rawQuery, ok := os.LookupEnv("MOSAIC_QUERY")
	if !ok {
		rawQuery = fetcher.DefaultQuery().Encode()
	}
	s3KeyTemplate, ok := os.LookupEnv("MOSAIC_S3_KEY_TEMPLATE")
	if !ok {
		s3KeyTemplate = fetcher.DefaultS3KeyTemplate
	}
	userAgent, _ := os.LookupEnv("MOSAIC_USER_AGENT")
	s3Bucket, _ := os.LookupEnv("MOSAIC_S3_BUCKET")
	awsRegion, _ := os.LookupEnv("MOSAIC_AWS_REGION")
	iamRole, _ := os.LookupEnv("MOSAIC_AWS_ROLE")
	_, requesterPays := os.LookupEnv("MOSAIC_S3_REQUESTER_PAYS")

	if logLevel, ok := os.LookupEnv("MOSAIC_LOG_LEVEL"); ok {
		level, err := log.ParseLevel(logLevel)
		if err != nil {
			log.Fatalf("Invalid log level %q: %s", logLevel, err)
		}
		log.SetLevel(level)
	}

	// Zero values fall back to the fetcher defaults.
	var opts fetcher.Options
	if v, ok := os.LookupEnv("MOSAIC_CONCURRENCY"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			log.Fatalf("Invalid MOSAIC_CONCURRENCY %q: %s", v, err)
		}
		opts.Concurrency = n
	}
	if v, ok := os.LookupEnv("MOSAIC_FETCH_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			log.Fatalf("Invalid MOSAIC_FETCH_TIMEOUT %q: %s", v, err)
		}
		opts.Timeout = d
	}

	var maxTiles int
	if v, ok := os.LookupEnv("MOSAIC_MAX_TILES"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			log.Fatalf("Invalid MOSAIC_MAX_TILES %q: %s", v, err)
		}
		maxTiles = n
	}

	var tileFetcher fetcher.TileFetcher
	switch fetchMethod {
	case "http":
		query, err := url.ParseQuery(rawQuery)
		if err != nil {
			log.Fatalf("Invalid query %q: %s", rawQuery, err)
		}

		log.Printf("Using '%s' as url template", urlTemplate)

		tileFetcher = fetcher.NewHTTPTileFetcher(urlTemplate, query, userAgent)
	case "s3":
		if s3Bucket == "" {
			log.Fatalf("s3-bucket must be set when using the s3 fetch method")
		}

		if awsRegion == "" {
			log.Fatalf("region must be set when using the s3 fetch method")
		}

		var awsSession *session.Session
		var err error
		if iamRole == "" {
			awsSession, err = session.NewSessionWithOptions(session.Options{
				Config: aws.Config{Region: aws.String(awsRegion)},
			})
		} else {
			log.Printf("Configured to use AWS role %s", iamRole)
			awsSession, err = session.NewSessionWithOptions(session.Options{
				Config: aws.Config{
					Credentials: stscreds.NewCredentials(session.Must(session.NewSession()), iamRole),
					Region:      aws.String(awsRegion),
				},
				SharedConfigState: session.SharedConfigEnable,
			})
		}
		if err != nil {
			log.Fatalf("Unable to set up AWS session: %s", err.Error())
		}

		s3Client := s3.New(awsSession)

		tileFetcher = fetcher.NewS3TileFetcher(s3Client, s3Bucket, s3KeyTemplate, requesterPays)
	default:
		log.Fatalf("Unknown fetch method %q", fetchMethod)
	}

	mosaicService, err := service.NewMosaicService(tileFetcher, service.Config{MaxTiles: maxTiles, Fetch: opts})
	if err != nil {
		log.Fatalf("Unable to set up mosaic service: %s", err)
	}

	r := service.NewRouter(mosaicService)

	algnhsa.ListenAndServe(r, &algnhsa.Options{BinaryContentTypes: []string{"*/*"}})
}
