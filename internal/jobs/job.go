// Package jobs provides an in-memory registry of asynchronous jobs with
// progress tracking, terminal-state bookkeeping and background execution.
package jobs

import (
	"encoding/hex"
	"math"
	"time"

	"github.com/google/uuid"
)

// Kind identifies what a job computes.
type Kind string

const (
	KindClustering    Kind = "clustering"
	KindConcepts      Kind = "concepts"
	KindAttributes    Kind = "attributes"
	KindRelationships Kind = "relationships"
)

// Status is the lifecycle state of a job. Completed and Failed are terminal.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether the status can no longer change.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Progress is a snapshot of how far a job has come.
type Progress struct {
	Current    int     `json:"current"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
	Message    string  `json:"message,omitempty"`
}

// percentage computes 100*current/total rounded to two decimals and clamped
// to [0, 100]. A non-positive total yields 0.
func percentage(current, total int) float64 {
	if total <= 0 {
		return 0
	}
	p := 100 * float64(current) / float64(total)
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return math.Round(p*100) / 100
}

// Job is one unit of asynchronous work. Exactly one of Result and Error is
// set once the job reaches a terminal status.
type Job struct {
	ID          string         `json:"id"`
	Type        Kind           `json:"type"`
	Status      Status         `json:"status"`
	DatabaseID  string         `json:"databaseId,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
	Progress    Progress       `json:"progress"`
	Result      any            `json:"result,omitempty"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	CompletedAt *time.Time     `json:"completedAt,omitempty"`
}

// clone returns a copy safe to hand out while the registry keeps mutating
// the original. Parameters are shared; callers must not modify them.
func (j *Job) clone() *Job {
	c := *j
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

// newJobID returns a short unique identifier like "job_3f2a9c1b04de".
func newJobID() string {
	u := uuid.New()
	return "job_" + hex.EncodeToString(u[:])[:12]
}
