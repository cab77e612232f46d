package bench

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/hupe1980/vecbucket"
	"github.com/hupe1980/vecbucket/bucket"
	"github.com/hupe1980/vecbucket/dataset"
	"github.com/hupe1980/vecbucket/eval"
	"github.com/hupe1980/vecbucket/model"
	"github.com/hupe1980/vecbucket/report"
)

// Runner executes benchmark runs.
type Runner struct {
	logger  *vecbucket.Logger
	metrics vecbucket.MetricsCollector
	sink    report.Sink
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger sets the logger of the runner and the index it builds.
func WithLogger(l *vecbucket.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithMetrics sets the metrics collector of the index under test.
func WithMetrics(m vecbucket.MetricsCollector) RunnerOption {
	return func(r *Runner) {
		if m != nil {
			r.metrics = m
		}
	}
}

// WithSink sets where reports go.
func WithSink(s report.Sink) RunnerOption {
	return func(r *Runner) {
		r.sink = s
	}
}

// NewRunner creates a Runner. Without a sink, reports are only returned.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		logger:  vecbucket.NoopLogger(),
		metrics: vecbucket.NoopMetricsCollector{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewRunnerFromConfig creates a Runner with the logger and sinks of cfg.
func NewRunnerFromConfig(ctx context.Context, cfg *Config, stdout, stderr io.Writer) (*Runner, error) {
	logger, err := cfg.Log.Logger(stderr)
	if err != nil {
		return nil, err
	}
	sink, err := OpenSinks(ctx, cfg.Report.Sinks, stdout)
	if err != nil {
		return nil, err
	}
	return NewRunner(WithLogger(logger), WithSink(sink)), nil
}

// Run provisions the dataset, builds the index and evaluates every sweep
// point. It returns one report per routing value and mode.
func (r *Runner) Run(ctx context.Context, cfg *Config) ([]*report.Report, error) {
	runID := report.NewRunID()
	logger := r.logger.WithRunID(runID)
	started := time.Now().UTC()

	d, err := Provision(ctx, cfg.Dataset, logger.Logger)
	if err != nil {
		return nil, fmt.Errorf("bench: dataset: %w", err)
	}
	if err := r.ensureGroundTruth(ctx, d, cfg.Search.K); err != nil {
		return nil, err
	}
	name := d.Name
	if cfg.Name != "" {
		name = cfg.Name
	}
	logger.InfoContext(ctx, "dataset ready",
		"dataset", name, "vectors", d.Data.Rows(), "queries", d.Queries.Rows(), "dim", d.Data.Dim)

	kind, err := bucket.ParseKind(cfg.Index.Kind)
	if err != nil {
		return nil, err
	}

	nav, err := trainNavigator(ctx, d.Data, cfg.Index.Buckets, cfg.Index.MaxIterations, cfg.Index.Seed)
	if err != nil {
		return nil, fmt.Errorf("bench: navigation: %w", err)
	}
	assignment, err := nav.assign(d.Data)
	if err != nil {
		return nil, err
	}

	bucketOpts := []bucket.Option{bucket.WithSeed(cfg.Index.Seed)}
	if cfg.Index.MaxIterations > 0 {
		bucketOpts = append(bucketOpts, bucket.WithMaxIterations(cfg.Index.MaxIterations))
	}
	idx, err := vecbucket.New(kind,
		vecbucket.WithLogger(logger),
		vecbucket.WithMetricsCollector(r.metrics),
		vecbucket.WithBucketOptions(bucketOpts...),
	)
	if err != nil {
		return nil, err
	}
	defer idx.Close()

	stats, err := idx.Build(ctx, d.Data, d.IDs, assignment, bucket.TrainOptions{
		NList:    cfg.Index.NList,
		Sketches: d.Sketches,
	})
	if err != nil {
		return nil, fmt.Errorf("bench: build: %w", err)
	}

	nb := min(cfg.Search.NBuckets, nav.buckets)
	order, weights, err := nav.route(d.Queries, nb, cfg.Search.Temperature)
	if err != nil {
		return nil, err
	}

	base := report.Report{
		RunID:        runID,
		Dataset:      name,
		Kind:         string(kind),
		K:            cfg.Search.K,
		Buckets:      nav.buckets,
		Params:       r.params(cfg, nb),
		BuildSeconds: stats.Total.Seconds(),
		StartedAt:    started,
	}

	var reports []*report.Report
	for _, routing := range cfg.Search.Routing {
		for _, mode := range cfg.Search.Modes {
			opts := vecbucket.IndexSearchOptions{
				SearchOptions: searchOptions(kind, routing, d.QuerySketches, cfg.Search.Parallelism),
				NBuckets:      nb,
			}
			if mode == report.ModeRouted {
				opts.Dynamic = true
				opts.Budget = routing * nb
				opts.Weights = weights
				opts.Overflow = cfg.Search.Overflow
			}

			res, err := idx.Search(ctx, d.Queries, cfg.Search.K, order, opts)
			if err != nil {
				return reports, fmt.Errorf("bench: search %s routing=%d: %w", mode, routing, err)
			}
			recall, err := eval.Recall(res.IDs, res.K, d.GroundTruth, cfg.Search.K)
			if err != nil {
				return reports, err
			}

			rep := base
			rep.Seq = len(reports)
			rep.Mode = mode
			rep.Routing = routing
			rep.Recall = recall
			rep.SearchSeconds = res.Timings.Search.Seconds()
			if s := res.Timings.Search.Seconds(); s > 0 {
				rep.QPS = float64(d.Queries.Rows()) / s
			}
			rep.DistanceComputations = report.Computations(res.DistanceComputations)
			rep.AppliedRouting = appliedHistogram(res.Applied)

			logger.InfoContext(ctx, "sweep point",
				"mode", mode, "routing", routing, "recall", recall,
				"search_ms", res.Timings.Search.Milliseconds(), "distance_computations", res.DistanceComputations.String())

			if r.sink != nil {
				if err := r.sink.Write(ctx, &rep); err != nil {
					return reports, fmt.Errorf("bench: report: %w", err)
				}
			}
			reports = append(reports, &rep)
		}
	}
	return reports, nil
}

func (r *Runner) ensureGroundTruth(ctx context.Context, d *dataset.Dataset, k int) error {
	if k > d.Data.Rows() {
		return fmt.Errorf("bench: k=%d exceeds %d vectors", k, d.Data.Rows())
	}
	if len(d.GroundTruth) == d.Queries.Rows() && (len(d.GroundTruth) == 0 || len(d.GroundTruth[0]) >= k) {
		return nil
	}
	r.logger.InfoContext(ctx, "computing ground truth", "queries", d.Queries.Rows(), "k", k)
	gt, err := dataset.GroundTruth(ctx, d.Data, d.IDs, d.Queries, k)
	if err != nil {
		return fmt.Errorf("bench: ground truth: %w", err)
	}
	d.GroundTruth = gt
	return nil
}

func (r *Runner) params(cfg *Config, nb int) map[string]int {
	p := map[string]int{"n_buckets": nb}
	if cfg.Index.NList > 0 {
		p["nlist"] = cfg.Index.NList
	}
	if cfg.Search.Overflow {
		p["overflow"] = 1
	}
	return p
}

// searchOptions maps a sweep value onto the routing parameter of kind.
func searchOptions(kind bucket.Kind, routing int, sketches model.SketchMatrix, parallelism int) bucket.SearchOptions {
	opts := bucket.SearchOptions{Sketches: sketches, Parallelism: parallelism}
	switch kind {
	case bucket.KindIVF, bucket.KindIVFReference:
		opts.NProbe = routing
	case bucket.KindSketch:
		opts.C = routing
	}
	return opts
}

// appliedHistogram counts queries per applied routing value over all
// visited buckets. Zero entries mark buckets that were not searched.
func appliedHistogram(applied [][]int) map[int]int {
	if len(applied) == 0 {
		return nil
	}
	var values []int
	for _, step := range applied {
		for _, v := range step {
			if v > 0 {
				values = append(values, v)
			}
		}
	}
	return eval.Histogram(values)
}
