package server

import (
	"context"

	"github.com/jonathan/ontology-api/internal/clustering"
	"github.com/jonathan/ontology-api/internal/extraction"
	"github.com/jonathan/ontology-api/internal/modelslot"
	"github.com/jonathan/ontology-api/internal/types"
)

// MetadataStore is the slice of the metadata database the server uses.
// *db.DB satisfies it.
type MetadataStore interface {
	CreateDatabase(ctx context.Context, name string) (*types.Database, error)
	GetDatabase(ctx context.Context, id string) (*types.Database, error)
	ListDatabases(ctx context.Context) ([]types.Database, error)
	UpdateStatus(ctx context.Context, id, status string) error
	SaveSchema(ctx context.Context, id string, schema *types.DatabaseSchema) error
	GetSchema(ctx context.Context, id string) (*types.DatabaseSchema, error)
	DeleteDatabase(ctx context.Context, id string) (bool, error)

	SaveClustering(ctx context.Context, databaseID string, clusters []types.ClusterInfo) error
	GetClustering(ctx context.Context, databaseID string) (*types.ClusteringResult, error)
	SaveOntology(ctx context.Context, databaseID string, concepts []types.Concept, relationships []types.Relationship) error
	GetOntology(ctx context.Context, databaseID string) ([]types.Concept, []types.Relationship, error)
}

// Provisioner manages the physical per-dataset databases.
// *introspect.Introspector satisfies it.
type Provisioner interface {
	CreateDatabase(ctx context.Context, name string) error
	DropDatabase(ctx context.Context, name string) error
	ExecuteSQL(ctx context.Context, name, script string) error
	Schema(ctx context.Context, databaseID, name string) (*types.DatabaseSchema, error)
}

// Slots is the slice of the model slot manager the server exposes over
// HTTP. *modelslot.Manager satisfies it.
type Slots interface {
	LoadBase(ctx context.Context) error
	UnloadAll(ctx context.Context) error
	Info(name string) (modelslot.SlotInfo, error)
	AllInfo() map[string]modelslot.SlotInfo
	Ready() bool
	AllReady() bool
}

// Pipeline bundles the generation steps as plain functions so handlers can
// be tested without models. The serve command wires them to the clustering
// algorithm and the extractor.
type Pipeline struct {
	Cluster               func(ctx context.Context, schema *types.DatabaseSchema, progress clustering.ProgressFunc) ([]types.ClusterInfo, error)
	ExtractConcepts       func(ctx context.Context, cluster types.ClusterInfo, tables []types.Table, existing []types.Concept, progress extraction.ProgressFunc) ([]types.Concept, error)
	GenerateAttributes    func(ctx context.Context, concepts []types.Concept, tables []types.Table, progress extraction.ProgressFunc) ([]types.Concept, error)
	GenerateRelationships func(ctx context.Context, concepts []types.Concept, tables []types.Table, progress extraction.ProgressFunc) ([]types.Relationship, error)
	SuggestNames          func(ctx context.Context, tables []string) ([]string, error)
}
