package extraction

import (
	"context"
	"fmt"
	"log"

	"github.com/jonathan/ontology-api/internal/inference"
	"github.com/jonathan/ontology-api/internal/modelslot"
	"github.com/jonathan/ontology-api/internal/schemas"
	"github.com/jonathan/ontology-api/internal/types"
)

// ProgressFunc reports forward progress of one extraction step.
type ProgressFunc func(current, total int, message string)

func (p ProgressFunc) report(current, total int, message string) {
	if p != nil {
		p(current, total, message)
	}
}

// SlotAcquirer is the slice of the slot manager the extractor needs.
// *modelslot.Manager satisfies it.
type SlotAcquirer interface {
	Acquire(ctx context.Context, name string) (inference.Handle, func(), error)
}

// Extractor runs the generation steps of the pipeline: concepts per
// cluster, then attributes and relationships over the extracted concepts.
type Extractor struct {
	slots SlotAcquirer

	conceptSchema      string
	attributeSchema    string
	relationshipSchema string
	namesSchema        string
}

// NewExtractor creates an extractor over the given slot manager. Schema
// files are resolved relative to the working directory.
func NewExtractor(slots SlotAcquirer) *Extractor {
	return &Extractor{
		slots:              slots,
		conceptSchema:      schemas.ResolveSchemaPath("schemas/concepts.schema.json"),
		attributeSchema:    schemas.ResolveSchemaPath("schemas/attributes.schema.json"),
		relationshipSchema: schemas.ResolveSchemaPath("schemas/relationships.schema.json"),
		namesSchema:        schemas.ResolveSchemaPath("schemas/names.schema.json"),
	}
}

// generate acquires a slot, runs the prompt and validates the raw output
// against the step's schema before returning it.
func (e *Extractor) generate(ctx context.Context, slot, schemaPath, prompt string) (string, error) {
	handle, release, err := e.slots.Acquire(ctx, slot)
	if err != nil {
		return "", err
	}
	defer release()

	raw, err := handle.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	raw = stripCodeFence(raw)

	if schemaPath == "" {
		return "", fmt.Errorf("schema for slot %s not found", slot)
	}
	if err := schemas.ValidateDocument(schemaPath, raw); err != nil {
		return "", fmt.Errorf("model output rejected: %w", err)
	}
	return raw, nil
}

// ExtractConcepts extracts concepts from the tables of one cluster.
// Existing concepts are passed to the model so reruns extend rather than
// duplicate the conceptual model.
func (e *Extractor) ExtractConcepts(ctx context.Context, cluster types.ClusterInfo, tables []types.Table, existing []types.Concept, progress ProgressFunc) ([]types.Concept, error) {
	if len(tables) == 0 {
		return nil, fmt.Errorf("cluster %d has no known tables", cluster.ClusterID)
	}

	progress.report(10, 100, fmt.Sprintf("Activating concept model for cluster %d...", cluster.ClusterID))
	prompt := BuildConceptPrompt(tables, existing)

	progress.report(30, 100, fmt.Sprintf("Generating concepts for cluster %d...", cluster.ClusterID))
	raw, err := e.generate(ctx, modelslot.SlotConcept, e.conceptSchema, prompt)
	if err != nil {
		return nil, fmt.Errorf("extract concepts for cluster %d: %w", cluster.ClusterID, err)
	}

	progress.report(70, 100, "Parsing results...")
	concepts, err := ParseConcepts(raw, cluster.ClusterID)
	if err != nil {
		return nil, err
	}

	progress.report(90, 100, fmt.Sprintf("Validated %d concepts...", len(concepts)))
	log.Printf("[extraction] cluster %d: %d concepts extracted", cluster.ClusterID, len(concepts))
	return concepts, nil
}

// GenerateAttributes assigns descriptive attributes to the given concepts
// and returns the enriched copies.
func (e *Extractor) GenerateAttributes(ctx context.Context, concepts []types.Concept, tables []types.Table, progress ProgressFunc) ([]types.Concept, error) {
	progress.report(10, 100, "Activating attribute model...")
	prompt := BuildAttributePrompt(concepts, tables)

	progress.report(30, 100, "Generating attributes...")
	raw, err := e.generate(ctx, modelslot.SlotAttribute, e.attributeSchema, prompt)
	if err != nil {
		return nil, fmt.Errorf("generate attributes: %w", err)
	}

	progress.report(70, 100, "Parsing results...")
	byName, err := ParseAttributes(raw)
	if err != nil {
		return nil, err
	}

	out := make([]types.Concept, len(concepts))
	for i, c := range concepts {
		if attrs, ok := byName[c.Name]; ok {
			c.Attributes = attrs
		}
		out[i] = c
	}
	progress.report(90, 100, "Attributes assigned...")
	return out, nil
}

// GenerateRelationships infers directed relationships between concepts.
// Relationships referencing unknown concept ids are dropped.
func (e *Extractor) GenerateRelationships(ctx context.Context, concepts []types.Concept, tables []types.Table, progress ProgressFunc) ([]types.Relationship, error) {
	if len(concepts) < 2 {
		return nil, fmt.Errorf("relationships need at least two concepts, got %d", len(concepts))
	}

	progress.report(10, 100, "Activating relationship model...")
	prompt := BuildRelationshipPrompt(concepts, tables)

	progress.report(30, 100, "Generating relationships...")
	raw, err := e.generate(ctx, modelslot.SlotRelationship, e.relationshipSchema, prompt)
	if err != nil {
		return nil, fmt.Errorf("generate relationships: %w", err)
	}

	progress.report(70, 100, "Parsing results...")
	known := make(map[string]bool, len(concepts))
	for _, c := range concepts {
		known[c.ID] = true
	}
	rels, err := ParseRelationships(raw, known)
	if err != nil {
		return nil, err
	}
	progress.report(90, 100, fmt.Sprintf("Validated %d relationships...", len(rels)))
	return rels, nil
}

// SuggestNames asks the naming slot for human-friendly names for a group
// of tables.
func (e *Extractor) SuggestNames(ctx context.Context, tables []string) ([]string, error) {
	if len(tables) == 0 {
		return nil, fmt.Errorf("no tables to name")
	}
	raw, err := e.generate(ctx, modelslot.SlotNaming, e.namesSchema, BuildNamingPrompt(tables))
	if err != nil {
		return nil, fmt.Errorf("suggest names: %w", err)
	}
	return ParseNames(raw)
}
