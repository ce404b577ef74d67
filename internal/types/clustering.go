package types

import "time"

// ClusterInfo describes a single suggested group of tables.
type ClusterInfo struct {
	ClusterID   int      `json:"clusterId"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Tables      []string `json:"tables"`
	Confidence  *float64 `json:"confidence,omitempty"`
}

// ClusteringResult is the full clustering of one database, either generated
// by the clustering algorithm or adjusted by a user and saved back.
type ClusteringResult struct {
	DatabaseID string        `json:"databaseId"`
	Clusters   []ClusterInfo `json:"clusters"`
	CreatedAt  time.Time     `json:"createdAt"`
}
