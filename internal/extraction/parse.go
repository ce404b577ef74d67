package extraction

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jonathan/ontology-api/internal/types"
)

// stripCodeFence removes a markdown code block wrapper if the model added
// one despite being told not to.
func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// field reads a key from a decoded object, accepting both the camelCase
// form the models were trained on and the snake_case form they sometimes
// fall back to.
func field(obj map[string]any, camel, snake string) (any, bool) {
	if v, ok := obj[camel]; ok {
		return v, true
	}
	if v, ok := obj[snake]; ok {
		return v, true
	}
	return nil, false
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asFloatPtr(v any) *float64 {
	if f, ok := v.(float64); ok {
		return &f
	}
	return nil
}

func asList(v any) []any {
	l, _ := v.([]any)
	return l
}

func asObject(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

// parseConceptAttribute reads one {"table": ..., "column": ...} pair.
func parseConceptAttribute(v any) (types.ConceptAttribute, bool) {
	obj := asObject(v)
	if obj == nil {
		return types.ConceptAttribute{}, false
	}
	attr := types.ConceptAttribute{
		Table:  asString(obj["table"]),
		Column: asString(obj["column"]),
	}
	return attr, attr.Table != "" && attr.Column != ""
}

// ParseConcepts decodes the concept extraction output for one cluster.
// Concepts without an id get one derived from the cluster and position.
func ParseConcepts(raw string, clusterID int) ([]types.Concept, error) {
	var doc map[string]any
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &doc); err != nil {
		return nil, fmt.Errorf("decode concept output: %w", err)
	}
	return parseConceptList(asList(doc["concepts"]), clusterID), nil
}

func parseConceptList(items []any, clusterID int) []types.Concept {
	var concepts []types.Concept
	for _, item := range items {
		obj := asObject(item)
		if obj == nil || asString(obj["name"]) == "" {
			continue
		}

		c := types.Concept{
			Name:       asString(obj["name"]),
			ClusterID:  clusterID,
			Confidence: asFloatPtr(obj["confidence"]),
		}

		if v, ok := field(obj, "idAttributes", "id_attributes"); ok {
			for _, idAttr := range asList(v) {
				inner := asObject(idAttr)
				if inner == nil {
					continue
				}
				var attrs []types.ConceptAttribute
				for _, a := range asList(inner["attributes"]) {
					if attr, ok := parseConceptAttribute(a); ok {
						attrs = append(attrs, attr)
					}
				}
				if len(attrs) > 0 {
					c.IDAttributes = append(c.IDAttributes, types.ConceptIDAttribute{Attributes: attrs})
				}
			}
		}

		for _, a := range asList(obj["attributes"]) {
			if attr, ok := parseConceptAttribute(a); ok {
				c.Attributes = append(c.Attributes, attr)
			}
		}

		if v, ok := field(obj, "subConcepts", "sub_concepts"); ok {
			c.SubConcepts = parseConceptList(asList(v), clusterID)
		}

		c.ID = asString(obj["id"])
		if c.ID == "" {
			c.ID = fmt.Sprintf("concept_%d_%d", clusterID, len(concepts)+1)
		}
		concepts = append(concepts, c)
	}
	return concepts
}

// ParseAttributes decodes the attribute generation output and returns the
// attribute lists keyed by concept name.
func ParseAttributes(raw string) (map[string][]types.ConceptAttribute, error) {
	var doc map[string]any
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &doc); err != nil {
		return nil, fmt.Errorf("decode attribute output: %w", err)
	}

	out := make(map[string][]types.ConceptAttribute)
	for _, item := range asList(doc["concepts"]) {
		obj := asObject(item)
		if obj == nil {
			continue
		}
		name := asString(obj["name"])
		if name == "" {
			continue
		}
		var attrs []types.ConceptAttribute
		for _, a := range asList(obj["attributes"]) {
			if attr, ok := parseConceptAttribute(a); ok {
				attrs = append(attrs, attr)
			}
		}
		out[name] = attrs
	}
	return out, nil
}

// ParseRelationships decodes the relationship generation output. Entries
// referencing concept ids outside known are dropped; the model occasionally
// invents endpoints.
func ParseRelationships(raw string, known map[string]bool) ([]types.Relationship, error) {
	var doc map[string]any
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &doc); err != nil {
		return nil, fmt.Errorf("decode relationship output: %w", err)
	}

	var rels []types.Relationship
	for _, item := range asList(doc["relationships"]) {
		obj := asObject(item)
		if obj == nil {
			continue
		}
		from, _ := field(obj, "fromConceptId", "from_concept_id")
		to, _ := field(obj, "toConceptId", "to_concept_id")
		r := types.Relationship{
			ID:            asString(obj["id"]),
			FromConceptID: asString(from),
			ToConceptID:   asString(to),
			Name:          asString(obj["name"]),
			Confidence:    asFloatPtr(obj["confidence"]),
		}
		if r.FromConceptID == "" || r.ToConceptID == "" {
			continue
		}
		if known != nil && (!known[r.FromConceptID] || !known[r.ToConceptID]) {
			continue
		}
		if r.ID == "" {
			r.ID = fmt.Sprintf("rel_%d", len(rels)+1)
		}
		rels = append(rels, r)
	}
	return rels, nil
}

// ParseNames decodes the naming suggestion output.
func ParseNames(raw string) ([]string, error) {
	var doc struct {
		Names []string `json:"names"`
	}
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &doc); err != nil {
		return nil, fmt.Errorf("decode naming output: %w", err)
	}
	var names []string
	for _, n := range doc.Names {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	return names, nil
}
