// Package extraction turns database schemas into conceptual model elements
// by prompting fine-tuned models and validating their JSON output.
package extraction

import (
	"fmt"
	"strings"

	"github.com/jonathan/ontology-api/internal/types"
)

// describeTables renders the tables of a cluster in a compact text form the
// models were fine-tuned on: one table per block with columns, primary key
// and foreign keys.
func describeTables(tables []types.Table) string {
	var sb strings.Builder
	for _, t := range tables {
		sb.WriteString(fmt.Sprintf("TABLE %s\n", t.Name))
		for _, c := range t.Columns {
			nullable := "NOT NULL"
			if c.Nullable {
				nullable = "NULL"
			}
			sb.WriteString(fmt.Sprintf("  %s %s %s\n", c.Name, c.DataType, nullable))
		}
		if len(t.PrimaryKey) > 0 {
			sb.WriteString(fmt.Sprintf("  PRIMARY KEY (%s)\n", strings.Join(t.PrimaryKey, ", ")))
		}
		for _, fk := range t.ForeignKeys {
			sb.WriteString(fmt.Sprintf("  FOREIGN KEY (%s) REFERENCES %s(%s)\n",
				fk.Column, fk.ReferencedTable, fk.ReferencedColumn))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// BuildConceptPrompt constructs the prompt for concept extraction over the
// tables of one cluster. Existing concepts are passed so the model extends
// the model instead of duplicating it.
func BuildConceptPrompt(tables []types.Table, existing []types.Concept) string {
	var sb strings.Builder
	sb.WriteString("You are an expert data modeler. Identify the business concepts represented by the following relational tables.\n")
	sb.WriteString("A concept groups one or more tables into a single real-world entity and names the columns that identify it.\n\n")

	sb.WriteString("Return ONLY valid JSON matching this exact structure:\n")
	sb.WriteString(`{
  "concepts": [
    {
      "name": "string (required)",
      "idAttributes": [{"attributes": [{"table": "string", "column": "string"}]}],
      "confidence": 0.0,
      "subConcepts": []
    }
  ]
}`)
	sb.WriteString("\n\nIMPORTANT:\n")
	sb.WriteString("- Only reference tables and columns that appear in the schema below.\n")
	sb.WriteString("- Return ONLY the JSON object, no markdown, no explanation, no code blocks.\n\n")

	if len(existing) > 0 {
		sb.WriteString("Concepts already identified (do not repeat them):\n")
		for _, c := range existing {
			sb.WriteString(fmt.Sprintf("- %s\n", c.Name))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("Schema:\n\"\"\"\n")
	sb.WriteString(describeTables(tables))
	sb.WriteString("\"\"\"\n")
	return sb.String()
}

// BuildAttributePrompt constructs the prompt assigning data attributes to
// already extracted concepts.
func BuildAttributePrompt(concepts []types.Concept, tables []types.Table) string {
	var sb strings.Builder
	sb.WriteString("You are an expert data modeler. Assign the descriptive columns of the schema below to the given concepts.\n")
	sb.WriteString("Identifier columns are already assigned; pick the remaining columns that describe each concept.\n\n")

	sb.WriteString("Return ONLY valid JSON matching this exact structure:\n")
	sb.WriteString(`{
  "concepts": [
    {
      "name": "string (required)",
      "attributes": [{"table": "string", "column": "string"}]
    }
  ]
}`)
	sb.WriteString("\n\nIMPORTANT:\n")
	sb.WriteString("- Only reference tables and columns that appear in the schema below.\n")
	sb.WriteString("- Return ONLY the JSON object, no markdown, no explanation, no code blocks.\n\n")

	sb.WriteString("Concepts:\n")
	for _, c := range concepts {
		sb.WriteString(fmt.Sprintf("- %s (id: %s)\n", c.Name, c.ID))
	}
	sb.WriteString("\nSchema:\n\"\"\"\n")
	sb.WriteString(describeTables(tables))
	sb.WriteString("\"\"\"\n")
	return sb.String()
}

// BuildRelationshipPrompt constructs the prompt inferring directed
// relationships between concepts.
func BuildRelationshipPrompt(concepts []types.Concept, tables []types.Table) string {
	var sb strings.Builder
	sb.WriteString("You are an expert data modeler. Infer the relationships between the following concepts based on the schema's foreign keys and semantics.\n\n")

	sb.WriteString("Return ONLY valid JSON matching this exact structure:\n")
	sb.WriteString(`{
  "relationships": [
    {
      "fromConceptId": "string (required)",
      "toConceptId": "string (required)",
      "name": "string",
      "confidence": 0.0
    }
  ]
}`)
	sb.WriteString("\n\nIMPORTANT:\n")
	sb.WriteString("- Only reference concept ids from the list below.\n")
	sb.WriteString("- Return ONLY the JSON object, no markdown, no explanation, no code blocks.\n\n")

	sb.WriteString("Concepts:\n")
	for _, c := range concepts {
		sb.WriteString(fmt.Sprintf("- %s (id: %s)\n", c.Name, c.ID))
	}
	if len(tables) > 0 {
		sb.WriteString("\nSchema:\n\"\"\"\n")
		sb.WriteString(describeTables(tables))
		sb.WriteString("\"\"\"\n")
	}
	return sb.String()
}

// BuildNamingPrompt constructs the prompt suggesting human-friendly names
// for a group of tables.
func BuildNamingPrompt(tables []string) string {
	var sb strings.Builder
	sb.WriteString("Suggest short, human-friendly domain names for a group of database tables.\n\n")
	sb.WriteString("Return ONLY valid JSON matching this exact structure:\n")
	sb.WriteString(`{"names": ["string"]}`)
	sb.WriteString("\n\nIMPORTANT:\n")
	sb.WriteString("- Suggest between one and three names, most fitting first.\n")
	sb.WriteString("- Return ONLY the JSON object, no markdown, no explanation, no code blocks.\n\n")
	sb.WriteString("Tables: ")
	sb.WriteString(strings.Join(tables, ", "))
	sb.WriteString("\n")
	return sb.String()
}
