package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ByThreadID struct {
	ThreadID uuid.UUID
}

func (s ByThreadID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("thread_id = ?", s.ThreadID)
}

type ByJobID struct {
	JobID uuid.UUID
}

func (s ByJobID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("job_id = ?", s.JobID)
}

type StatusEquals struct {
	Status string
}

func (s StatusEquals) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("status = ?", s.Status)
}

// NonEmptyContent keeps rows that carry actual text.
type NonEmptyContent struct{}

func (s NonEmptyContent) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("content <> ''")
}

// WithoutTool keeps rows that are not tool invocations.
type WithoutTool struct{}

func (s WithoutTool) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("tool = '' OR tool IS NULL")
}

// ThoughtNot excludes rows whose thought field matches the given marker.
type ThoughtNot struct {
	Marker string
}

func (s ThoughtNot) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("thought <> ?", s.Marker)
}
