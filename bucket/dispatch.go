package bucket

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/vecbucket/model"
)

type routingGroup struct {
	value int
	rows  []int
}

// groupByRouting returns the positions of each distinct routing value,
// ordered by ascending value. Positions keep their input order.
func groupByRouting(routing []int) []routingGroup {
	index := make(map[int]int)
	var groups []routingGroup
	for pos, v := range routing {
		i, ok := index[v]
		if !ok {
			i = len(groups)
			index[v] = i
			groups = append(groups, routingGroup{value: v})
		}
		groups[i].rows = append(groups[i].rows, pos)
	}
	slices.SortFunc(groups, func(a, b routingGroup) int { return cmp.Compare(a.value, b.value) })
	return groups
}

// Dispatch serves a batch in which every query carries its own routing value.
//
// Queries are grouped by distinct value. Each group, with the matching
// subset of opts.Sketches, is searched through s with that value, and its
// rows are scattered back to the original query positions. Elapsed time and
// distance computations are the sums over groups; Applied records the
// clamped value each query was served with. opts is never modified.
//
// With opts.Parallelism > 1 up to that many groups are searched
// concurrently. Output is identical either way.
func Dispatch(ctx context.Context, s PartitionSearcher, queries model.Matrix, k int, routing []int, opts SearchOptions) (*model.RoutedResult, error) {
	if err := validateSearch(queries, k, opts.Sketches); err != nil {
		return nil, err
	}
	n := queries.Rows()
	if err := checkLength("routing", n, len(routing)); err != nil {
		return nil, err
	}

	groups := groupByRouting(routing)
	partials := make([]*Partial, len(groups))

	run := func(ctx context.Context, i int) error {
		g := groups[i]
		var sketches model.SketchMatrix
		if !opts.Sketches.IsZero() {
			sketches = opts.Sketches.Select(g.rows)
		}
		p, err := s.SearchPartition(ctx, queries.Select(g.rows), k, g.value, sketches)
		if err != nil {
			return fmt.Errorf("routing %d: %w", g.value, err)
		}
		partials[i] = p
		return nil
	}

	if opts.Parallelism > 1 && len(groups) > 1 {
		eg, egCtx := errgroup.WithContext(ctx)
		eg.SetLimit(opts.Parallelism)
		for i := range groups {
			eg.Go(func() error { return run(egCtx, i) })
		}
		if err := eg.Wait(); err != nil {
			return nil, err
		}
	} else {
		for i := range groups {
			if err := run(ctx, i); err != nil {
				return nil, err
			}
		}
	}

	out := &model.RoutedResult{
		Result:  *model.NewResult(n, k),
		Applied: make([]int, n),
	}
	for i, g := range groups {
		p := partials[i]
		for j, pos := range g.rows {
			copy(out.QueryIDs(pos), p.QueryIDs(j))
			copy(out.QueryRows(pos), p.QueryRows(j))
			copy(out.QueryDistances(pos), p.QueryDistances(j))
			out.Applied[pos] = p.Applied
		}
		out.Elapsed += p.Elapsed
		out.DistanceComputations = out.DistanceComputations.Add(p.DistanceComputations)
	}
	return out, nil
}
