package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jonathan/ontology-api/internal/types"
)

// SaveClustering stores a clustering for a database, replacing any
// previous one.
func (db *DB) SaveClustering(ctx context.Context, databaseID string, clusters []types.ClusterInfo) error {
	jsonBytes, err := json.Marshal(clusters)
	if err != nil {
		return fmt.Errorf("failed to marshal clustering: %w", err)
	}
	_, err = db.pool.Exec(ctx,
		`INSERT INTO clusterings (database_id, clusters)
		 VALUES ($1, $2)
		 ON CONFLICT (database_id) DO UPDATE SET clusters = $2, created_at = NOW()`,
		databaseID, jsonBytes,
	)
	if err != nil {
		return fmt.Errorf("failed to save clustering for %s: %w", databaseID, err)
	}
	return nil
}

// GetClustering retrieves the saved clustering of a database. Returns
// (nil, nil) when none was saved.
func (db *DB) GetClustering(ctx context.Context, databaseID string) (*types.ClusteringResult, error) {
	result := &types.ClusteringResult{DatabaseID: databaseID}
	var jsonBytes []byte
	err := db.pool.QueryRow(ctx,
		`SELECT clusters, created_at FROM clusterings WHERE database_id = $1`,
		databaseID,
	).Scan(&jsonBytes, &result.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get clustering for %s: %w", databaseID, err)
	}
	if err := json.Unmarshal(jsonBytes, &result.Clusters); err != nil {
		return nil, fmt.Errorf("failed to unmarshal clustering for %s: %w", databaseID, err)
	}
	return result, nil
}

// SaveOntology stores the generated concepts and relationships of a
// database, replacing any previous version.
func (db *DB) SaveOntology(ctx context.Context, databaseID string, concepts []types.Concept, relationships []types.Relationship) error {
	conceptBytes, err := json.Marshal(concepts)
	if err != nil {
		return fmt.Errorf("failed to marshal concepts: %w", err)
	}
	relBytes, err := json.Marshal(relationships)
	if err != nil {
		return fmt.Errorf("failed to marshal relationships: %w", err)
	}
	_, err = db.pool.Exec(ctx,
		`INSERT INTO ontologies (database_id, concepts, relationships)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (database_id) DO UPDATE SET concepts = $2, relationships = $3, updated_at = NOW()`,
		databaseID, conceptBytes, relBytes,
	)
	if err != nil {
		return fmt.Errorf("failed to save ontology for %s: %w", databaseID, err)
	}
	return nil
}

// GetOntology retrieves the saved concepts and relationships of a database.
// Returns (nil, nil, nil) when none were saved.
func (db *DB) GetOntology(ctx context.Context, databaseID string) ([]types.Concept, []types.Relationship, error) {
	var conceptBytes, relBytes []byte
	err := db.pool.QueryRow(ctx,
		`SELECT concepts, relationships FROM ontologies WHERE database_id = $1`,
		databaseID,
	).Scan(&conceptBytes, &relBytes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("failed to get ontology for %s: %w", databaseID, err)
	}

	var concepts []types.Concept
	if err := json.Unmarshal(conceptBytes, &concepts); err != nil {
		return nil, nil, fmt.Errorf("failed to unmarshal concepts for %s: %w", databaseID, err)
	}
	var relationships []types.Relationship
	if len(relBytes) > 0 {
		if err := json.Unmarshal(relBytes, &relationships); err != nil {
			return nil, nil, fmt.Errorf("failed to unmarshal relationships for %s: %w", databaseID, err)
		}
	}
	return concepts, relationships, nil
}
