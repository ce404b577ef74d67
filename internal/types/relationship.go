package types

// Relationship links two concepts by their IDs.
type Relationship struct {
	ID            string   `json:"id"`
	FromConceptID string   `json:"fromConceptId"`
	ToConceptID   string   `json:"toConceptId"`
	Name          string   `json:"name,omitempty"`
	Confidence    *float64 `json:"confidence,omitempty"`
}
