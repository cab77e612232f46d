package dataset

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/hupe1980/vecbucket/distance"
	"github.com/hupe1980/vecbucket/model"
)

// Dataset is everything a benchmark run consumes.
type Dataset struct {
	Name string

	Data     model.Matrix
	IDs      []int64
	Sketches model.SketchMatrix

	Queries       model.Matrix
	QuerySketches model.SketchMatrix

	// GroundTruth[i] lists the exact nearest identifiers of query i, best first.
	GroundTruth [][]int64
}

// Validate checks that the parts of the dataset agree in shape.
func (d *Dataset) Validate() error {
	n, nq := d.Data.Rows(), d.Queries.Rows()
	if n == 0 {
		return errors.New("dataset: no base vectors")
	}
	if d.Queries.Dim != d.Data.Dim && nq > 0 {
		return fmt.Errorf("dataset: query dimension %d, base dimension %d", d.Queries.Dim, d.Data.Dim)
	}
	if len(d.IDs) != n {
		return fmt.Errorf("dataset: %d ids for %d vectors", len(d.IDs), n)
	}
	if !d.Sketches.IsZero() && d.Sketches.Rows() != n {
		return fmt.Errorf("dataset: %d sketches for %d vectors", d.Sketches.Rows(), n)
	}
	if !d.QuerySketches.IsZero() && d.QuerySketches.Rows() != nq {
		return fmt.Errorf("dataset: %d query sketches for %d queries", d.QuerySketches.Rows(), nq)
	}
	if d.GroundTruth != nil && len(d.GroundTruth) != nq {
		return fmt.Errorf("dataset: %d ground-truth rows for %d queries", len(d.GroundTruth), nq)
	}
	return nil
}

// Normalize scales every row of m to unit length in place, so that inner
// product equals cosine similarity. Zero rows are left unchanged.
func Normalize(m model.Matrix) {
	for i := 0; i < m.Rows(); i++ {
		distance.NormalizeL2InPlace(m.Row(i))
	}
}

// Layout names the files of a dataset inside a directory. Empty names are
// skipped; Base and Queries are required.
type Layout struct {
	Base          string `yaml:"base"`
	Queries       string `yaml:"queries"`
	GroundTruth   string `yaml:"ground_truth"`
	Sketches      string `yaml:"sketches"`
	QuerySketches string `yaml:"query_sketches"`
}

// DefaultLayout returns the conventional file names with the given
// compression suffix.
func DefaultLayout(c Compression) Layout {
	s := c.Suffix()
	return Layout{
		Base:          "base.fvecs" + s,
		Queries:       "queries.fvecs" + s,
		GroundTruth:   "groundtruth.ivecs" + s,
		Sketches:      "base.u8vecs" + s,
		QuerySketches: "queries.u8vecs" + s,
	}
}

// Files returns the non-empty file names of the layout.
func (l Layout) Files() []string {
	var out []string
	for _, name := range []string{l.Base, l.Queries, l.GroundTruth, l.Sketches, l.QuerySketches} {
		if name != "" {
			out = append(out, name)
		}
	}
	return out
}

// Load reads a dataset from dir. Optional files (ground truth and sketches)
// that do not exist are skipped. Identifiers are the row numbers.
func Load(dir string, layout Layout) (*Dataset, error) {
	if layout.Base == "" || layout.Queries == "" {
		return nil, errors.New("dataset: layout needs base and queries")
	}

	d := &Dataset{Name: filepath.Base(dir)}
	var err error

	if d.Data, err = LoadMatrix(filepath.Join(dir, layout.Base)); err != nil {
		return nil, err
	}
	if d.Queries, err = LoadMatrix(filepath.Join(dir, layout.Queries)); err != nil {
		return nil, err
	}

	d.IDs = make([]int64, d.Data.Rows())
	for i := range d.IDs {
		d.IDs[i] = int64(i)
	}

	if layout.GroundTruth != "" {
		d.GroundTruth, err = LoadNeighbors(filepath.Join(dir, layout.GroundTruth))
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	if layout.Sketches != "" {
		d.Sketches, err = LoadSketches(filepath.Join(dir, layout.Sketches))
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	if layout.QuerySketches != "" {
		d.QuerySketches, err = LoadSketches(filepath.Join(dir, layout.QuerySketches))
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// Save writes the dataset into dir. Parts that are empty are not written.
func Save(dir string, d *Dataset, layout Layout) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := SaveMatrix(filepath.Join(dir, layout.Base), d.Data); err != nil {
		return err
	}
	if err := SaveMatrix(filepath.Join(dir, layout.Queries), d.Queries); err != nil {
		return err
	}
	if layout.GroundTruth != "" && d.GroundTruth != nil {
		if err := SaveNeighbors(filepath.Join(dir, layout.GroundTruth), d.GroundTruth); err != nil {
			return err
		}
	}
	if layout.Sketches != "" && !d.Sketches.IsZero() {
		if err := SaveSketches(filepath.Join(dir, layout.Sketches), d.Sketches); err != nil {
			return err
		}
	}
	if layout.QuerySketches != "" && !d.QuerySketches.IsZero() {
		if err := SaveSketches(filepath.Join(dir, layout.QuerySketches), d.QuerySketches); err != nil {
			return err
		}
	}
	return nil
}
