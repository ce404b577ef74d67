// Package types provides type definitions for the conceptual data model
// shared across the ontology-api system.
package types

// ConceptAttribute is a reference to a single table column.
type ConceptAttribute struct {
	Table  string `json:"table"`
	Column string `json:"column"`
}

// ConceptIDAttribute is a group of columns that together form an identifier.
type ConceptIDAttribute struct {
	Attributes []ConceptAttribute `json:"attributes"`
}

// Concept is a conceptual entity inferred from a group of database tables.
// Concepts may nest: a sub-concept refines its parent with extra conditions
// or attributes (e.g. "Employee" under "Person").
type Concept struct {
	ID           string               `json:"id"`
	Name         string               `json:"name,omitempty"`
	ClusterID    int                  `json:"clusterId"`
	IDAttributes []ConceptIDAttribute `json:"idAttributes"`
	Attributes   []ConceptAttribute   `json:"attributes,omitempty"`
	Confidence   *float64             `json:"confidence,omitempty"`
	SubConcepts  []Concept            `json:"subConcepts,omitempty"`
	Conditions   []string             `json:"conditions,omitempty"`
	Joins        []string             `json:"joins,omitempty"`
}

// ConceptSuggestion is a set of concepts generated for one cluster.
type ConceptSuggestion struct {
	Concepts []Concept `json:"concepts"`
}

// AttributedConcept pairs a concept with attributes generated for it.
type AttributedConcept struct {
	Concept        Concept            `json:"concept"`
	Attributes     []ConceptAttribute `json:"attributes"`
	AttributeCount int                `json:"attributeCount"`
}
