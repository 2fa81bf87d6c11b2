package entities

import (
	"time"

	"github.com/google/uuid"

	"genstudio/constant"
)

// GenerationJob records one generation request and its lifecycle.
// Status moves PENDING -> COMPLETED | FAILED and never leaves a terminal state.
type GenerationJob struct {
	ID         uuid.UUID          `json:"id" gorm:"type:uuid;primary_key"`
	UserId     uuid.UUID          `json:"user_id" gorm:"type:uuid;not null;index:idx_generation_jobs_user_id"`
	Kind       constant.JobKind   `json:"kind" gorm:"type:varchar(20);not null"`
	Prompt     string             `json:"prompt" gorm:"type:text;not null"`
	SubjectKey string             `json:"subject_key" gorm:"type:varchar(100)"`
	Status     constant.JobStatus `json:"status" gorm:"type:varchar(20);not null"`
	FilePath   string             `json:"file_path" gorm:"type:varchar(500)"`
	Seed       *string            `json:"seed" gorm:"type:varchar(64)"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

func (GenerationJob) TableName() string {
	return "generation_jobs"
}
