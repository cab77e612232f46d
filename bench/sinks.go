package bench

import (
	"context"
	"fmt"
	"io"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/hupe1980/vecbucket/blobstore"
	"github.com/hupe1980/vecbucket/blobstore/s3"
	"github.com/hupe1980/vecbucket/codec"
	"github.com/hupe1980/vecbucket/report"
)

// OpenSinks builds the configured report sinks. Stdout sinks write to
// stdout.
func OpenSinks(ctx context.Context, cfgs []SinkConfig, stdout io.Writer) (report.Sink, error) {
	sinks := make([]report.Sink, 0, len(cfgs))
	for _, c := range cfgs {
		s, err := openSink(ctx, c, stdout)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
	}
	return report.Multi(sinks...), nil
}

func openSink(ctx context.Context, c SinkConfig, stdout io.Writer) (report.Sink, error) {
	enc := codec.Codec(codec.JSON{})
	if c.Codec != "" {
		var ok bool
		if enc, ok = codec.ByName(c.Codec); !ok {
			return nil, fmt.Errorf("bench: unknown codec %q", c.Codec)
		}
	}

	switch c.Type {
	case "stdout":
		return report.NewWriterSink(stdout), nil
	case "file":
		return report.NewFileSink(blobstore.NewLocalStore(c.Dir), c.Prefix, enc), nil
	case "s3":
		store, err := s3.New(ctx, c.Bucket, s3.WithRegion(c.Region))
		if err != nil {
			return nil, err
		}
		return report.NewFileSink(store, c.Prefix, enc), nil
	case "dynamodb":
		var opts []func(*awsconfig.LoadOptions) error
		if c.Region != "" {
			opts = append(opts, awsconfig.WithRegion(c.Region))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("bench: load aws config: %w", err)
		}
		return report.NewDynamoDBSink(dynamodb.NewFromConfig(awsCfg), c.Table), nil
	default:
		return nil, fmt.Errorf("bench: unknown sink type %q", c.Type)
	}
}
