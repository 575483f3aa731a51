package fetcher

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	log "github.com/sirupsen/logrus"

	"github.com/tilezen/go-mosaic/pkg/planner"
)

type s3tileFetcher struct {
	s3Bucket      string
	keyTemplate   string
	requesterPays bool
	s3            s3iface.S3API
	maxBytes      int64
}

func (s s3tileFetcher) GetTile(ctx context.Context, t planner.TileRequest) (*FetchResponse, error) {
	s3Key := expandTemplate(s.keyTemplate, t.QuadKey)

	input := &s3.GetObjectInput{
		Bucket: aws.String(s.s3Bucket),
		Key:    aws.String(s3Key),
	}

	if s.requesterPays {
		input.RequestPayer = aws.String(s3.RequestPayerRequester)
	}

	resp, err := s.s3.GetObjectWithContext(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("error fetching tile s3://%s/%s: %w", s.s3Bucket, s3Key, err)
	}
	defer resp.Body.Close()

	data, err := readTile(resp.Body, s.maxBytes)
	if err != nil {
		return nil, fmt.Errorf("error reading data for tile s3://%s/%s: %w", s.s3Bucket, s3Key, err)
	}

	log.Debugf("Retrieved s3://%s/%s", s.s3Bucket, s3Key)

	return &FetchResponse{
		Data:    data,
		Request: t,
	}, nil
}
