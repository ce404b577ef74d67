package extraction

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/ontology-api/internal/inference"
	"github.com/jonathan/ontology-api/internal/types"
)

// scriptedHandle returns canned output for each slot.
type scriptedHandle struct {
	output string
	err    error
	prompt string
}

func (h *scriptedHandle) Generate(ctx context.Context, prompt string) (string, error) {
	h.prompt = prompt
	return h.output, h.err
}

// scriptedSlots maps slot names to handles and records acquisitions.
type scriptedSlots struct {
	handles  map[string]*scriptedHandle
	acquired []string
	released int
}

func (s *scriptedSlots) Acquire(ctx context.Context, name string) (inference.Handle, func(), error) {
	h, ok := s.handles[name]
	if !ok {
		return nil, nil, errors.New("no handle scripted for " + name)
	}
	s.acquired = append(s.acquired, name)
	return h, func() { s.released++ }, nil
}

func personTables() []types.Table {
	return []types.Table{
		{
			Name: "person",
			Columns: []types.Column{
				{Name: "id", DataType: "integer"},
				{Name: "first_name", DataType: "text", Nullable: true},
			},
			PrimaryKey: []string{"id"},
		},
		{
			Name: "address",
			Columns: []types.Column{
				{Name: "id", DataType: "integer"},
				{Name: "person_id", DataType: "integer"},
			},
			PrimaryKey: []string{"id"},
			ForeignKeys: []types.ForeignKey{
				{Column: "person_id", ReferencedTable: "person", ReferencedColumn: "id"},
			},
		},
	}
}

func TestExtractConcepts(t *testing.T) {
	slots := &scriptedSlots{handles: map[string]*scriptedHandle{
		"concept": {output: `{
			"concepts": [
				{"name": "Person", "idAttributes": [{"attributes": [{"table": "person", "column": "id"}]}], "confidence": 0.9}
			]
		}`},
	}}
	e := NewExtractor(slots)
	require.NotEmpty(t, e.conceptSchema, "schema files must resolve from the package directory")

	var messages []string
	progress := func(current, total int, message string) {
		messages = append(messages, message)
	}

	cluster := types.ClusterInfo{ClusterID: 1, Name: "people", Tables: []string{"person", "address"}}
	concepts, err := e.ExtractConcepts(context.Background(), cluster, personTables(), nil, progress)
	require.NoError(t, err)
	require.Len(t, concepts, 1)
	assert.Equal(t, "Person", concepts[0].Name)
	assert.Equal(t, 1, concepts[0].ClusterID)

	assert.Equal(t, []string{"concept"}, slots.acquired)
	assert.Equal(t, 1, slots.released, "slot is released after generation")
	assert.NotEmpty(t, messages)

	prompt := slots.handles["concept"].prompt
	assert.Contains(t, prompt, "TABLE person")
	assert.Contains(t, prompt, "FOREIGN KEY (person_id) REFERENCES person(id)")
}

func TestExtractConceptsRejectsInvalidOutput(t *testing.T) {
	slots := &scriptedSlots{handles: map[string]*scriptedHandle{
		"concept": {output: `{"concepts": [{"confidence": "high"}]}`},
	}}
	e := NewExtractor(slots)

	cluster := types.ClusterInfo{ClusterID: 1, Tables: []string{"person"}}
	_, err := e.ExtractConcepts(context.Background(), cluster, personTables(), nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model output rejected")
	assert.Equal(t, 1, slots.released)
}

func TestExtractConceptsRequiresTables(t *testing.T) {
	e := NewExtractor(&scriptedSlots{})
	cluster := types.ClusterInfo{ClusterID: 7}
	_, err := e.ExtractConcepts(context.Background(), cluster, nil, nil, nil)
	assert.Error(t, err)
}

func TestGenerateAttributes(t *testing.T) {
	slots := &scriptedSlots{handles: map[string]*scriptedHandle{
		"attribute": {output: `{
			"concepts": [
				{"name": "Person", "attributes": [{"table": "person", "column": "first_name"}]}
			]
		}`},
	}}
	e := NewExtractor(slots)

	concepts := []types.Concept{
		{ID: "c1", Name: "Person", ClusterID: 1},
		{ID: "c2", Name: "Address", ClusterID: 1},
	}
	out, err := e.GenerateAttributes(context.Background(), concepts, personTables(), nil)
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Len(t, out[0].Attributes, 1)
	assert.Equal(t, "first_name", out[0].Attributes[0].Column)
	assert.Empty(t, out[1].Attributes, "concepts the model skipped keep no attributes")
}

func TestGenerateRelationships(t *testing.T) {
	slots := &scriptedSlots{handles: map[string]*scriptedHandle{
		"relationship": {output: `{
			"relationships": [
				{"fromConceptId": "c2", "toConceptId": "c1", "name": "belongs_to", "confidence": 0.85},
				{"fromConceptId": "c2", "toConceptId": "ghost"}
			]
		}`},
	}}
	e := NewExtractor(slots)

	concepts := []types.Concept{
		{ID: "c1", Name: "Person", ClusterID: 1},
		{ID: "c2", Name: "Address", ClusterID: 1},
	}
	rels, err := e.GenerateRelationships(context.Background(), concepts, personTables(), nil)
	require.NoError(t, err)
	require.Len(t, rels, 1, "relationships to unknown concepts are dropped")
	assert.Equal(t, "belongs_to", rels[0].Name)

	_, err = e.GenerateRelationships(context.Background(), concepts[:1], nil, nil)
	assert.Error(t, err, "needs at least two concepts")
}

func TestSuggestNames(t *testing.T) {
	slots := &scriptedSlots{handles: map[string]*scriptedHandle{
		"naming": {output: `{"names": ["People", "Persons"]}`},
	}}
	e := NewExtractor(slots)

	names, err := e.SuggestNames(context.Background(), []string{"person", "address"})
	require.NoError(t, err)
	assert.Equal(t, []string{"People", "Persons"}, names)

	_, err = e.SuggestNames(context.Background(), nil)
	assert.Error(t, err)
}
