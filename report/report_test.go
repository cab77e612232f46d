package report

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vecbucket/blobstore"
	"github.com/hupe1980/vecbucket/codec"
	"github.com/hupe1980/vecbucket/model"
)

func sampleReport(seq int) *Report {
	cost := int64(4200)
	return &Report{
		RunID:                "run-1",
		Seq:                  seq,
		Dataset:              "synthetic",
		Kind:                 "ivf",
		Mode:                 ModeRouted,
		K:                    10,
		Buckets:              1,
		Params:               map[string]int{"nlist": 16},
		Routing:              4,
		Recall:               0.9,
		BuildSeconds:         1.5,
		SearchSeconds:        0.25,
		QPS:                  400,
		DistanceComputations: &cost,
		AppliedRouting:       map[int]int{4: 90, 3: 10},
		StartedAt:            time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestNewRunID(t *testing.T) {
	id := NewRunID()
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.NotEqual(t, id, NewRunID())
}

func TestComputations(t *testing.T) {
	assert.Nil(t, Computations(model.Unmeasured))

	c := Computations(model.Computations(12))
	require.NotNil(t, c)
	assert.Equal(t, int64(12), *c)
}

func TestValidate(t *testing.T) {
	require.NoError(t, sampleReport(0).Validate())

	r := sampleReport(0)
	r.RunID = ""
	assert.Error(t, r.Validate())

	r = sampleReport(0)
	r.Mode = "batch"
	assert.Error(t, r.Validate())
}

func TestFileSink(t *testing.T) {
	for _, name := range []string{"json", "msgpack"} {
		t.Run(name, func(t *testing.T) {
			c, _ := codec.ByName(name)
			store := blobstore.NewMemoryStore()
			sink := NewFileSink(store, "reports", c)

			require.NoError(t, sink.Write(t.Context(), sampleReport(1)))
			require.NoError(t, sink.Write(t.Context(), sampleReport(0)))

			names, err := store.List(t.Context(), "reports/run-1/")
			require.NoError(t, err)
			assert.Equal(t, []string{
				"reports/run-1/0000-ivf-routed-4." + name,
				"reports/run-1/0001-ivf-routed-4." + name,
			}, names)

			got, err := sink.Load(t.Context(), "run-1")
			require.NoError(t, err)
			require.Len(t, got, 2)
			assert.Equal(t, 0, got[0].Seq)
			got[1].StartedAt = got[1].StartedAt.UTC()
			assert.Equal(t, sampleReport(1), got[1])
		})
	}
}

func TestFileSinkRejectsInvalid(t *testing.T) {
	sink := NewFileSink(blobstore.NewMemoryStore(), "", nil)
	assert.Error(t, sink.Write(t.Context(), &Report{RunID: "x"}))
}

func TestWriterSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewWriterSink(&buf)

	require.NoError(t, sink.Write(t.Context(), sampleReport(0)))
	r := sampleReport(1)
	r.DistanceComputations = nil
	require.NoError(t, sink.Write(t.Context(), r))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"distance_computations":4200`)
	assert.Contains(t, lines[1], `"distance_computations":null`)

	var back Report
	require.NoError(t, codec.GoJSON{}.Unmarshal([]byte(lines[0]), &back))
	assert.Equal(t, *sampleReport(0), back)
}

type failingSink struct{ calls int }

func (f *failingSink) Write(context.Context, *Report) error {
	f.calls++
	return errors.New("boom")
}

func TestMulti(t *testing.T) {
	var buf bytes.Buffer
	first, second := NewWriterSink(&buf), &failingSink{}
	third := &failingSink{}

	err := Multi(first, second, third).Write(t.Context(), sampleReport(0))
	assert.EqualError(t, err, "boom")
	assert.NotEmpty(t, buf.String())
	assert.Equal(t, 1, second.calls)
	assert.Zero(t, third.calls)
}
