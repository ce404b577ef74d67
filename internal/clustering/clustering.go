// Package clustering groups the tables of a schema into candidate domains.
// The default algorithm walks the foreign-key graph; alternative algorithms
// plug in behind the Algorithm interface.
package clustering

import (
	"context"

	"github.com/jonathan/ontology-api/internal/types"
)

// ProgressFunc reports forward progress of a clustering run.
type ProgressFunc func(current, total int, message string)

func (p ProgressFunc) report(current, total int, message string) {
	if p != nil {
		p(current, total, message)
	}
}

// Options tunes clustering behavior.
type Options struct {
	// MergeSingletons folds isolated tables sharing a name prefix into one
	// cluster instead of emitting a cluster per table.
	MergeSingletons bool
}

// Algorithm produces a clustering of the given schema.
type Algorithm interface {
	Cluster(ctx context.Context, schema *types.DatabaseSchema, progress ProgressFunc) ([]types.ClusterInfo, error)
}
