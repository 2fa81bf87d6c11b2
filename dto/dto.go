package dto

import (
	"github.com/google/uuid"

	"genstudio/constant"
)

// GenerationMessage carries one accepted job to whichever dispatcher executes it,
// either the in-process pool or the RabbitMQ queue.
type GenerationMessage struct {
	JobId      uuid.UUID        `json:"jobId"`
	UserId     uuid.UUID        `json:"userId"`
	Kind       constant.JobKind `json:"kind"`
	Prompt     string           `json:"prompt"`
	SubjectKey string           `json:"subjectKey"`
	SeedHint   string           `json:"seedHint"`
	InputPath  string           `json:"inputPath"`
}

type GenerateRequest struct {
	Prompt string `json:"prompt"`
}

type EnhanceRequest struct {
	OriginalPrompt string `json:"originalPrompt"`
}
