package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConcepts(t *testing.T) {
	raw := "```json\n" + `{
		"concepts": [
			{
				"name": "Person",
				"idAttributes": [
					{"attributes": [{"table": "person", "column": "id"}]}
				],
				"confidence": 0.92,
				"subConcepts": [{"name": "Employee"}]
			},
			{
				"id": "concept_custom",
				"name": "Address",
				"id_attributes": [
					{"attributes": [{"table": "address", "column": "id"}]}
				]
			}
		]
	}` + "\n```"

	concepts, err := ParseConcepts(raw, 3)
	require.NoError(t, err)
	require.Len(t, concepts, 2)

	person := concepts[0]
	assert.Equal(t, "concept_3_1", person.ID, "missing id is derived from cluster and position")
	assert.Equal(t, "Person", person.Name)
	assert.Equal(t, 3, person.ClusterID)
	require.NotNil(t, person.Confidence)
	assert.Equal(t, 0.92, *person.Confidence)
	require.Len(t, person.IDAttributes, 1)
	assert.Equal(t, "person", person.IDAttributes[0].Attributes[0].Table)
	require.Len(t, person.SubConcepts, 1)
	assert.Equal(t, "Employee", person.SubConcepts[0].Name)

	address := concepts[1]
	assert.Equal(t, "concept_custom", address.ID)
	require.Len(t, address.IDAttributes, 1, "snake_case key is accepted")
}

func TestParseConceptsSkipsNameless(t *testing.T) {
	raw := `{"concepts": [{"confidence": 0.5}, {"name": "Order"}]}`
	concepts, err := ParseConcepts(raw, 1)
	require.NoError(t, err)
	require.Len(t, concepts, 1)
	assert.Equal(t, "Order", concepts[0].Name)
}

func TestParseConceptsRejectsGarbage(t *testing.T) {
	_, err := ParseConcepts("the model rambled instead of emitting JSON", 1)
	assert.Error(t, err)
}

func TestParseAttributes(t *testing.T) {
	raw := `{
		"concepts": [
			{"name": "Person", "attributes": [
				{"table": "person", "column": "first_name"},
				{"table": "person", "column": "last_name"},
				{"table": "person"}
			]},
			{"attributes": [{"table": "x", "column": "y"}]}
		]
	}`
	byName, err := ParseAttributes(raw)
	require.NoError(t, err)
	require.Contains(t, byName, "Person")
	assert.Len(t, byName["Person"], 2, "incomplete attribute pairs are dropped")
	assert.Len(t, byName, 1, "nameless entries are dropped")
}

func TestParseRelationships(t *testing.T) {
	raw := `{
		"relationships": [
			{"fromConceptId": "c1", "toConceptId": "c2", "name": "lives_at", "confidence": 0.8},
			{"from_concept_id": "c2", "to_concept_id": "c1", "name": "home_of"},
			{"fromConceptId": "c1", "toConceptId": "invented"},
			{"fromConceptId": "c1"}
		]
	}`
	known := map[string]bool{"c1": true, "c2": true}
	rels, err := ParseRelationships(raw, known)
	require.NoError(t, err)
	require.Len(t, rels, 2)

	assert.Equal(t, "rel_1", rels[0].ID)
	assert.Equal(t, "c1", rels[0].FromConceptID)
	assert.Equal(t, "lives_at", rels[0].Name)
	assert.Equal(t, "c2", rels[1].FromConceptID, "snake_case keys are accepted")
}

func TestParseNames(t *testing.T) {
	names, err := ParseNames(`{"names": ["Customer Domain", "  ", "Sales"]}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"Customer Domain", "Sales"}, names)
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripCodeFence("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFence(`{"a":1}`))
}
