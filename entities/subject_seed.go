package entities

import (
	"time"

	"github.com/google/uuid"
)

// SubjectSeed is one slot of a user's subject-key -> seed map. Each row is
// written through a single-key upsert so concurrent completions for different
// subjects of the same user never clobber each other.
type SubjectSeed struct {
	UserId     uuid.UUID `json:"user_id" gorm:"type:uuid;primaryKey"`
	SubjectKey string    `json:"subject_key" gorm:"type:varchar(100);primaryKey"`
	Seed       string    `json:"seed" gorm:"type:varchar(64);not null"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (SubjectSeed) TableName() string {
	return "subject_seeds"
}
