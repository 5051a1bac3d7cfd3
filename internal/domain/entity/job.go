package entity

import (
	"time"
)

type JobStatus string

const (
	StatusPending    JobStatus = "Pending"
	StatusProcessing JobStatus = "Processing"
	StatusCompleted  JobStatus = "Completed"
	StatusFailed     JobStatus = "Failed"
)

// IsTerminal reports whether no further transition is allowed out of s.
func (s JobStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

type Job struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Filename   string    `gorm:"not null" json:"filename"`
	SourceKey  string    `gorm:"not null" json:"-"`
	Status     JobStatus `gorm:"not null;type:text" json:"status"`
	Transcript string    `json:"transcript,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// JobSummary is the history listing view: transcript reduced to a preview.
type JobSummary struct {
	ID         uint      `json:"id"`
	Filename   string    `json:"filename"`
	Status     JobStatus `json:"status"`
	Transcript string    `json:"transcript"`
}
