package bench

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/hupe1980/vecbucket"
	"github.com/hupe1980/vecbucket/bucket"
	"github.com/hupe1980/vecbucket/codec"
	"github.com/hupe1980/vecbucket/dataset"
)

// Config is a benchmark run.
//
//	name: sift-1m-ivf
//	dataset:
//	  source: {type: s3, bucket: my-datasets, prefix: sift1m}
//	  cache_dir: /tmp/vecbucket
//	  compression: zstd
//	index:
//	  kind: ivf
//	  nlist: 1024
//	search:
//	  k: 10
//	  routing: [1, 2, 4, 8, 16]
//	report:
//	  sinks:
//	    - type: stdout
type Config struct {
	Name    string        `yaml:"name"`
	Dataset DatasetConfig `yaml:"dataset"`
	Index   IndexConfig   `yaml:"index"`
	Search  SearchConfig  `yaml:"search"`
	Report  ReportConfig  `yaml:"report"`
	Log     LogConfig     `yaml:"log"`
}

// DatasetConfig selects where vectors come from. Exactly one of Synthetic,
// Dir and Source is set.
type DatasetConfig struct {
	Synthetic *dataset.SyntheticConfig `yaml:"synthetic,omitempty"`

	// Dir is a local directory holding the dataset files.
	Dir string `yaml:"dir,omitempty"`

	// Source is a blob store the files are fetched from into CacheDir.
	Source   *SourceConfig `yaml:"source,omitempty"`
	CacheDir string        `yaml:"cache_dir,omitempty"`

	// Layout overrides the default file names.
	Layout      *dataset.Layout `yaml:"layout,omitempty"`
	Compression string          `yaml:"compression,omitempty"`

	// Normalize L2-normalizes base and query vectors after loading.
	Normalize bool `yaml:"normalize,omitempty"`

	MaxTransfers       int64 `yaml:"max_transfers,omitempty"`
	BandwidthBytesPerS int64 `yaml:"bandwidth_bytes_per_sec,omitempty"`
}

// SourceConfig describes a remote dataset location.
type SourceConfig struct {
	// Type is "local", "s3" or "minio".
	Type string `yaml:"type"`

	Path   string `yaml:"path,omitempty"`
	Bucket string `yaml:"bucket,omitempty"`
	Prefix string `yaml:"prefix,omitempty"`
	Region string `yaml:"region,omitempty"`

	// Endpoint, Secure and the keys apply to MinIO. Empty keys are read from
	// MINIO_ACCESS_KEY and MINIO_SECRET_KEY.
	Endpoint  string `yaml:"endpoint,omitempty"`
	Secure    bool   `yaml:"secure,omitempty"`
	AccessKey string `yaml:"access_key,omitempty"`
	SecretKey string `yaml:"secret_key,omitempty"`
}

// IndexConfig describes the index under test.
type IndexConfig struct {
	Kind string `yaml:"kind"`

	// Buckets is the number of buckets the data is clustered into. Queries
	// visit the closest buckets first.
	Buckets int `yaml:"buckets,omitempty"`

	NList         int   `yaml:"nlist,omitempty"`
	Seed          int64 `yaml:"seed,omitempty"`
	MaxIterations int   `yaml:"max_iterations,omitempty"`
}

// SearchConfig describes the routing sweep.
type SearchConfig struct {
	K int `yaml:"k"`

	// Routing lists the sweep points: nprobe for inverted-file kinds, the
	// candidate count for sketch buckets.
	Routing []int `yaml:"routing"`

	// NBuckets is how many buckets every query visits.
	NBuckets int `yaml:"n_buckets,omitempty"`

	// Modes selects "search", "routed" or both (the default).
	Modes []string `yaml:"modes,omitempty"`

	// Overflow passes unused routing budget to the next bucket in routed mode.
	Overflow bool `yaml:"overflow,omitempty"`

	// Temperature shapes the bucket weights of routed mode. Smaller values
	// concentrate the budget on the closest bucket.
	Temperature float32 `yaml:"temperature,omitempty"`

	Parallelism int `yaml:"parallelism,omitempty"`
}

// ReportConfig lists report sinks.
type ReportConfig struct {
	Sinks []SinkConfig `yaml:"sinks,omitempty"`
}

// SinkConfig describes one report sink.
type SinkConfig struct {
	// Type is "stdout", "file", "s3" or "dynamodb".
	Type string `yaml:"type"`

	Dir    string `yaml:"dir,omitempty"`
	Codec  string `yaml:"codec,omitempty"`
	Bucket string `yaml:"bucket,omitempty"`
	Prefix string `yaml:"prefix,omitempty"`
	Region string `yaml:"region,omitempty"`
	Table  string `yaml:"table,omitempty"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
}

// Logger builds the configured logger writing to w.
func (c LogConfig) Logger(w io.Writer) (*vecbucket.Logger, error) {
	level, err := vecbucket.ParseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	switch c.Format {
	case "", "text":
		return vecbucket.NewLogger(slog.NewTextHandler(w, opts)), nil
	case "json":
		return vecbucket.NewLogger(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("bench: unknown log format %q", c.Format)
	}
}

// LoadConfig reads a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes a YAML config, applies defaults and validates it.
func ParseConfig(data []byte) (*Config, error) {
	cfg := new(Config)
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Name == "" {
		c.Name = "bench"
	}
	if c.Index.Buckets <= 0 {
		c.Index.Buckets = 1
	}
	if c.Search.K <= 0 {
		c.Search.K = 10
	}
	if c.Search.NBuckets <= 0 {
		c.Search.NBuckets = 1
	}
	if len(c.Search.Modes) == 0 {
		c.Search.Modes = []string{"search", "routed"}
	}
	if c.Search.Temperature <= 0 {
		c.Search.Temperature = 0.1
	}
	if len(c.Report.Sinks) == 0 {
		c.Report.Sinks = []SinkConfig{{Type: "stdout"}}
	}
}

// Validate checks the config for contradictions.
func (c *Config) Validate() error {
	var errs []error

	sources := 0
	if c.Dataset.Synthetic != nil {
		sources++
	}
	if c.Dataset.Dir != "" {
		sources++
	}
	if c.Dataset.Source != nil {
		sources++
		if c.Dataset.CacheDir == "" {
			errs = append(errs, errors.New("dataset.cache_dir is required with dataset.source"))
		}
		switch c.Dataset.Source.Type {
		case "local", "s3", "minio":
		default:
			errs = append(errs, fmt.Errorf("unknown dataset.source.type %q", c.Dataset.Source.Type))
		}
	}
	if sources != 1 {
		errs = append(errs, errors.New("dataset needs exactly one of synthetic, dir and source"))
	}
	if _, err := dataset.ParseCompression(c.Dataset.Compression); err != nil {
		errs = append(errs, err)
	}

	if _, err := bucket.ParseKind(c.Index.Kind); err != nil {
		errs = append(errs, err)
	}
	if c.Search.NBuckets > c.Index.Buckets {
		errs = append(errs, fmt.Errorf("search.n_buckets %d exceeds index.buckets %d", c.Search.NBuckets, c.Index.Buckets))
	}
	if len(c.Search.Routing) == 0 {
		errs = append(errs, errors.New("search.routing needs at least one value"))
	}
	for _, v := range c.Search.Routing {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("search.routing value %d is not positive", v))
		}
	}
	for _, m := range c.Search.Modes {
		if m != "search" && m != "routed" {
			errs = append(errs, fmt.Errorf("unknown search mode %q", m))
		}
	}

	for i, s := range c.Report.Sinks {
		switch s.Type {
		case "stdout":
		case "file":
			if s.Dir == "" {
				errs = append(errs, fmt.Errorf("report.sinks[%d]: file sink needs dir", i))
			}
		case "s3":
			if s.Bucket == "" {
				errs = append(errs, fmt.Errorf("report.sinks[%d]: s3 sink needs bucket", i))
			}
		case "dynamodb":
			if s.Table == "" {
				errs = append(errs, fmt.Errorf("report.sinks[%d]: dynamodb sink needs table", i))
			}
		default:
			errs = append(errs, fmt.Errorf("report.sinks[%d]: unknown type %q", i, s.Type))
		}
		if s.Codec != "" {
			if _, ok := codec.ByName(s.Codec); !ok {
				errs = append(errs, fmt.Errorf("report.sinks[%d]: unknown codec %q", i, s.Codec))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("bench: invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// layout returns the configured file layout.
func (c DatasetConfig) layout() dataset.Layout {
	if c.Layout != nil {
		return *c.Layout
	}
	comp, _ := dataset.ParseCompression(c.Compression)
	return dataset.DefaultLayout(comp)
}
