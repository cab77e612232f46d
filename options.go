package vecbucket

import "github.com/hupe1980/vecbucket/bucket"

type options struct {
	logger           *Logger
	metricsCollector MetricsCollector
	bucketOptions    []bucket.Option
}

// Option configures an Index.
type Option func(*options)

// WithLogger sets the logger. If nil is passed, logging is disabled.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithMetricsCollector sets the metrics sink.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithBucketOptions passes construction options to every bucket.
func WithBucketOptions(opts ...bucket.Option) Option {
	return func(o *options) {
		o.bucketOptions = append(o.bucketOptions, opts...)
	}
}
