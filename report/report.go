package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/vecbucket/model"
)

// Search modes of a sweep point.
const (
	// ModeSearch runs one routing value for the whole batch.
	ModeSearch = "search"
	// ModeRouted runs the grouped dispatcher with per-query routing.
	ModeRouted = "routed"
)

// Report is the outcome of one sweep point.
type Report struct {
	RunID   string `json:"run_id"`
	Seq     int    `json:"seq"`
	Dataset string `json:"dataset"`
	Kind    string `json:"kind"`
	Mode    string `json:"mode"`
	K       int    `json:"k"`
	Buckets int    `json:"buckets"`

	// Params are the build parameters, such as nlist.
	Params map[string]int `json:"params,omitempty"`

	// Routing is the requested routing value (nprobe, c or the budget).
	Routing int `json:"routing"`

	Recall        float64 `json:"recall"`
	BuildSeconds  float64 `json:"build_seconds"`
	SearchSeconds float64 `json:"search_seconds"`
	QPS           float64 `json:"qps"`

	// DistanceComputations is nil when the bucket cannot count them.
	DistanceComputations *int64 `json:"distance_computations"`

	// AppliedRouting counts queries per applied routing value.
	AppliedRouting map[int]int `json:"applied_routing,omitempty"`

	StartedAt time.Time `json:"started_at"`
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// Computations converts a cost count to its report form.
func Computations(c model.Computations) *int64 {
	if !c.Measured() {
		return nil
	}
	v := int64(c)
	return &v
}

// Validate checks that the report can be stored.
func (r *Report) Validate() error {
	switch {
	case r.RunID == "":
		return errors.New("report: missing run id")
	case r.Kind == "":
		return errors.New("report: missing kind")
	case r.Mode != ModeSearch && r.Mode != ModeRouted:
		return fmt.Errorf("report: unknown mode %q", r.Mode)
	}
	return nil
}

// Sink persists reports.
type Sink interface {
	Write(ctx context.Context, r *Report) error
}

// Multi writes every report to all sinks, stopping at the first error.
func Multi(sinks ...Sink) Sink {
	return multiSink(sinks)
}

type multiSink []Sink

func (m multiSink) Write(ctx context.Context, r *Report) error {
	for _, s := range m {
		if err := s.Write(ctx, r); err != nil {
			return err
		}
	}
	return nil
}
