package types

import "time"

// Database is the public metadata view of a registered database.
type Database struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Status     string    `json:"status"`
	TableCount int       `json:"tableCount"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Column describes one column of an introspected table.
type Column struct {
	Name     string `json:"name"`
	DataType string `json:"dataType"`
	Nullable bool   `json:"nullable"`
}

// ForeignKey describes a foreign-key edge from a column of this table to a
// column of another table.
type ForeignKey struct {
	Column           string `json:"column"`
	ReferencedTable  string `json:"referencedTable"`
	ReferencedColumn string `json:"referencedColumn"`
}

// Table describes one introspected table with its keys.
type Table struct {
	Schema      string       `json:"schema"`
	Name        string       `json:"name"`
	Columns     []Column     `json:"columns"`
	PrimaryKey  []string     `json:"primaryKey,omitempty"`
	ForeignKeys []ForeignKey `json:"foreignKeys,omitempty"`
}

// DatabaseSchema is the introspected schema of a registered database.
type DatabaseSchema struct {
	DatabaseID string  `json:"databaseId"`
	TableCount int     `json:"tableCount"`
	Tables     []Table `json:"tables"`
}

// TablesByName returns the subset of tables whose names appear in names,
// preserving schema order. Unknown names are skipped.
func (s *DatabaseSchema) TablesByName(names []string) []Table {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	var out []Table
	for _, t := range s.Tables {
		if want[t.Name] {
			out = append(out, t)
		}
	}
	return out
}
