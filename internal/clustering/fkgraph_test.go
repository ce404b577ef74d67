package clustering

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/ontology-api/internal/types"
)

func table(name string, fks ...types.ForeignKey) types.Table {
	return types.Table{Schema: "public", Name: name, ForeignKeys: fks}
}

func fk(column, refTable string) types.ForeignKey {
	return types.ForeignKey{Column: column, ReferencedTable: refTable, ReferencedColumn: "id"}
}

func TestFKGraphConnectedComponents(t *testing.T) {
	schema := &types.DatabaseSchema{
		DatabaseID: "db_1",
		Tables: []types.Table{
			table("person"),
			table("address", fk("person_id", "person")),
			table("order", fk("person_id", "person")),
			table("product"),
			table("order_item", fk("order_id", "order"), fk("product_id", "product")),
			table("audit_log"),
		},
	}
	schema.TableCount = len(schema.Tables)

	clusters, err := NewFKGraph(Options{}).Cluster(context.Background(), schema, nil)
	require.NoError(t, err)
	require.Len(t, clusters, 2)

	// order_item bridges the person and product components into one.
	assert.Equal(t, []string{"address", "order", "order_item", "person", "product"}, clusters[0].Tables)
	assert.Equal(t, []string{"audit_log"}, clusters[1].Tables)

	assert.Equal(t, 1, clusters[0].ClusterID)
	assert.Equal(t, 2, clusters[1].ClusterID)
	assert.Equal(t, "audit_log", clusters[1].Name)
}

func TestFKGraphIgnoresExternalReferences(t *testing.T) {
	schema := &types.DatabaseSchema{
		Tables: []types.Table{
			table("event", fk("tenant_id", "tenant")), // tenant is not in the schema
		},
	}

	clusters, err := NewFKGraph(Options{}).Cluster(context.Background(), schema, nil)
	require.NoError(t, err)
	require.Len(t, clusters, 1)
	assert.Equal(t, []string{"event"}, clusters[0].Tables)
}

func TestFKGraphMergesSingletonsByPrefix(t *testing.T) {
	schema := &types.DatabaseSchema{
		Tables: []types.Table{
			table("billing_invoice"),
			table("billing_payment"),
			table("person"),
			table("address", fk("person_id", "person")),
		},
	}

	clusters, err := NewFKGraph(Options{MergeSingletons: true}).Cluster(context.Background(), schema, nil)
	require.NoError(t, err)
	require.Len(t, clusters, 2)

	assert.Equal(t, []string{"address", "person"}, clusters[0].Tables)
	assert.Equal(t, []string{"billing_invoice", "billing_payment"}, clusters[1].Tables)
	assert.Equal(t, "billing", clusters[1].Name)
}

func TestFKGraphReportsProgress(t *testing.T) {
	schema := &types.DatabaseSchema{
		Tables: []types.Table{table("a"), table("b"), table("c")},
	}

	var calls int
	var last string
	progress := func(current, total int, message string) {
		calls++
		last = message
		assert.Equal(t, 3, total)
	}

	_, err := NewFKGraph(Options{}).Cluster(context.Background(), schema, progress)
	require.NoError(t, err)
	assert.Equal(t, 4, calls)
	assert.Equal(t, "Clustering complete", last)
}

func TestFKGraphHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	schema := &types.DatabaseSchema{Tables: []types.Table{table("a")}}
	_, err := NewFKGraph(Options{}).Cluster(ctx, schema, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
