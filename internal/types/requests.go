package types

import "github.com/go-playground/validator/v10"

// CreateDatabaseRequest registers a new database from a raw SQL script.
type CreateDatabaseRequest struct {
	Name string `json:"name" validate:"required,min=1"`
	SQL  string `json:"sql,omitempty"`
}

// ClusterRequest starts a clustering job for a database.
type ClusterRequest struct {
	ApplyFinetuning bool `json:"applyFinetuning,omitempty"`
}

// SaveClusteringRequest stores a user-adjusted clustering for a database.
type SaveClusteringRequest struct {
	Clustering ClusteringResult `json:"clustering" validate:"required"`
}

// GenerateConceptsRequest starts concept generation over a set of clusters.
type GenerateConceptsRequest struct {
	Clusters []ClusterInfo `json:"clusters" validate:"required,min=1,dive"`
}

// ClusterConceptsRequest generates concepts for a single cluster synchronously.
type ClusterConceptsRequest struct {
	Tables           []string  `json:"tables" validate:"required,min=1"`
	ExistingConcepts []Concept `json:"existingConcepts,omitempty"`
}

// SuggestNamesRequest asks for human-friendly names for a group of tables.
type SuggestNamesRequest struct {
	Tables []string `json:"tables" validate:"required,min=1"`
}

// GenerateAttributesRequest starts attribute generation for a set of concepts.
type GenerateAttributesRequest struct {
	Concepts []Concept `json:"concepts" validate:"required,min=1"`
	Tables   []string  `json:"tables" validate:"required,min=1"`
}

// GenerateRelationshipsRequest starts relationship generation between concepts.
type GenerateRelationshipsRequest struct {
	Concepts []Concept `json:"concepts" validate:"required,min=2"`
	Tables   []string  `json:"tables" validate:"required,min=1"`
}

// Validate validates the CreateDatabaseRequest using the validator.
func (r *CreateDatabaseRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the SaveClusteringRequest using the validator.
func (r *SaveClusteringRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the GenerateConceptsRequest using the validator.
func (r *GenerateConceptsRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the ClusterConceptsRequest using the validator.
func (r *ClusterConceptsRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the SuggestNamesRequest using the validator.
func (r *SuggestNamesRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the GenerateAttributesRequest using the validator.
func (r *GenerateAttributesRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the GenerateRelationshipsRequest using the validator.
func (r *GenerateRelationshipsRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}
