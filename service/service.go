package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/rs/zerolog"

	"genstudio/config"
	"genstudio/constant"
	"genstudio/dto"
	"genstudio/entities"
	"genstudio/prompt"
	"genstudio/repository"
	"genstudio/runner"
)

var (
	ErrEmptyPrompt = errors.New("prompt is required")
	ErrNoSubject   = errors.New("prompt must contain a clear subject")
	ErrMissingFile = errors.New("no file uploaded")
)

// Dispatcher hands an accepted job to whatever executes it. Submission never
// waits for the worker; completion is observed by polling the job record.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg dto.GenerationMessage) error
}

// DispatcherFunc adapts a function to the Dispatcher interface.
type DispatcherFunc func(ctx context.Context, msg dto.GenerationMessage) error

func (f DispatcherFunc) Dispatch(ctx context.Context, msg dto.GenerationMessage) error {
	return f(ctx, msg)
}

// SubmitResult is the job handle returned to the caller at submission time.
type SubmitResult struct {
	JobId      uuid.UUID
	SubjectKey string
	SeedHint   string
}

// Locked reports whether a memoized seed drives this generation.
func (r SubmitResult) Locked() bool {
	return r.SeedHint != ""
}

type Service interface {
	SubmitImage(ctx context.Context, userId uuid.UUID, promptText string) (*SubmitResult, error)
	SubmitVideo(ctx context.Context, userId uuid.UUID, promptText string) (*SubmitResult, error)
	SubmitStory(ctx context.Context, userId uuid.UUID, originalName, inputPath string) (*SubmitResult, error)
	Process(ctx context.Context, msg dto.GenerationMessage) error
	Job(ctx context.Context, id uuid.UUID) (*entities.GenerationJob, error)
	Gallery(ctx context.Context, userId uuid.UUID) ([]*entities.GenerationJob, error)
}

type Orchestrator struct {
	repo       repository.JobRepository
	cfg        *config.Config
	invoker    runner.Invoker
	dispatcher Dispatcher
}

func NewService(repo repository.JobRepository, cfg *config.Config, invoker runner.Invoker) *Orchestrator {
	return &Orchestrator{
		repo:    repo,
		cfg:     cfg,
		invoker: invoker,
	}
}

// UseDispatcher wires the dispatch path. Set once during startup, before any
// submission is accepted.
func (s *Orchestrator) UseDispatcher(d Dispatcher) {
	s.dispatcher = d
}

func (s *Orchestrator) SubmitImage(ctx context.Context, userId uuid.UUID, promptText string) (*SubmitResult, error) {
	if strings.TrimSpace(promptText) == "" {
		return nil, ErrEmptyPrompt
	}
	subjectKey := prompt.Normalize(promptText)
	if subjectKey == "" {
		return nil, ErrNoSubject
	}

	seedHint, _, err := s.repo.GetSeed(ctx, userId, subjectKey)
	if err != nil {
		return nil, err
	}

	job := &entities.GenerationJob{
		UserId:     userId,
		Kind:       constant.JobKindImage,
		Prompt:     promptText,
		SubjectKey: subjectKey,
		Status:     constant.JobStatusPending,
	}
	if seedHint != "" {
		// Record the seed being attempted; the completion handler overwrites
		// it with the seed the model actually used.
		job.Seed = &seedHint
	}
	if err := s.repo.CreateJob(ctx, job); err != nil {
		return nil, err
	}

	msg := dto.GenerationMessage{
		JobId:      job.ID,
		UserId:     userId,
		Kind:       constant.JobKindImage,
		Prompt:     promptText,
		SubjectKey: subjectKey,
		SeedHint:   seedHint,
	}
	if err := s.dispatch(ctx, msg); err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Info().
		Str("job_id", job.ID.String()).
		Str("subject_key", subjectKey).
		Bool("seed_locked", seedHint != "").
		Msg("image generation accepted")

	return &SubmitResult{JobId: job.ID, SubjectKey: subjectKey, SeedHint: seedHint}, nil
}

func (s *Orchestrator) SubmitVideo(ctx context.Context, userId uuid.UUID, promptText string) (*SubmitResult, error) {
	if strings.TrimSpace(promptText) == "" {
		return nil, ErrEmptyPrompt
	}

	job := &entities.GenerationJob{
		UserId: userId,
		Kind:   constant.JobKindVideo,
		Prompt: promptText,
		Status: constant.JobStatusPending,
	}
	if err := s.repo.CreateJob(ctx, job); err != nil {
		return nil, err
	}

	msg := dto.GenerationMessage{
		JobId:  job.ID,
		UserId: userId,
		Kind:   constant.JobKindVideo,
		Prompt: promptText,
	}
	if err := s.dispatch(ctx, msg); err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Info().Str("job_id", job.ID.String()).Msg("video generation accepted")
	return &SubmitResult{JobId: job.ID}, nil
}

func (s *Orchestrator) SubmitStory(ctx context.Context, userId uuid.UUID, originalName, inputPath string) (*SubmitResult, error) {
	if inputPath == "" {
		return nil, ErrMissingFile
	}

	job := &entities.GenerationJob{
		UserId: userId,
		Kind:   constant.JobKindStory,
		Prompt: "Video story from file: " + originalName,
		Status: constant.JobStatusPending,
	}
	if err := s.repo.CreateJob(ctx, job); err != nil {
		return nil, err
	}

	msg := dto.GenerationMessage{
		JobId:     job.ID,
		UserId:    userId,
		Kind:      constant.JobKindStory,
		InputPath: inputPath,
	}
	if err := s.dispatch(ctx, msg); err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Info().Str("job_id", job.ID.String()).Msg("story generation accepted")
	return &SubmitResult{JobId: job.ID}, nil
}

// dispatch hands the job off; if that fails the job would stay PENDING
// forever, so it is failed right away and the error surfaces to the caller.
func (s *Orchestrator) dispatch(ctx context.Context, msg dto.GenerationMessage) error {
	if err := s.dispatcher.Dispatch(ctx, msg); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("job_id", msg.JobId.String()).Msg("failed to dispatch job")
		if failErr := s.repo.MarkJobFailed(ctx, msg.JobId); failErr != nil {
			zerolog.Ctx(ctx).Error().Err(failErr).Str("job_id", msg.JobId.String()).Msg("failed to update job status")
		}
		return err
	}
	return nil
}

// Process supervises one worker invocation from dispatch to terminal state.
// It runs outside the request cycle: every error past this point is observed
// through the job record, not returned to the submitter.
func (s *Orchestrator) Process(ctx context.Context, msg dto.GenerationMessage) error {
	logger := zerolog.Ctx(ctx).With().
		Str("job_id", msg.JobId.String()).
		Str("kind", string(msg.Kind)).
		Logger()
	logger.Info().Msg("processing job")

	job, err := s.repo.FindJobById(ctx, msg.JobId)
	if err != nil {
		logger.Error().Err(err).Msg("failed to find job by id")
		return err
	}
	if job.Status != constant.JobStatusPending {
		logger.Error().Str("status", string(job.Status)).Msg("job is not pending")
		return nil
	}

	bin, args, err := s.workerCommand(msg)
	if err != nil {
		logger.Error().Err(err).Msg("unknown job kind")
		s.markFailed(ctx, &logger, msg.JobId)
		return nil
	}

	outcome := s.invoker.Invoke(ctx, bin, args...)

	if msg.Kind == constant.JobKindStory && msg.InputPath != "" {
		if err := os.Remove(msg.InputPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Error().Err(err).Msg("failed to delete temp upload file")
		}
	}

	switch outcome.Kind {
	case runner.LaunchError:
		logger.Error().Str("diag", outcome.Diag).Msg("failed to start worker process")
		s.markFailed(ctx, &logger, msg.JobId)
		return nil
	case runner.Failure:
		logger.Error().
			Int("exit_code", outcome.ExitCode).
			Str("stderr", outcome.Stderr).
			Str("diag", outcome.Diag).
			Msg("worker failed")
		s.markFailed(ctx, &logger, msg.JobId)
		return nil
	}

	filePath, seed, err := parseOutput(msg.Kind, outcome.Stdout)
	if err != nil {
		logger.Error().Str("stdout", outcome.Stdout).Msg("worker returned malformed output")
		s.markFailed(ctx, &logger, msg.JobId)
		return nil
	}

	if err := s.repo.MarkJobCompleted(ctx, msg.JobId, filePath, seed); err != nil {
		// Job status is advisory: log, never crash the background task. A
		// terminal-state hit here means a second completion event slipped in.
		logger.Error().Err(err).Msg("failed to mark job completed")
		return nil
	}

	// Memoize the seed only once the job record reflects success, and only
	// for image jobs: a single-key upsert so sibling subjects written by
	// concurrent completions survive.
	if msg.Kind == constant.JobKindImage {
		if err := s.repo.SetSeed(ctx, msg.UserId, msg.SubjectKey, seed); err != nil {
			logger.Error().Err(err).Str("subject_key", msg.SubjectKey).Msg("failed to memoize seed")
		} else {
			logger.Info().Str("subject_key", msg.SubjectKey).Str("seed", seed).Msg("seed memoized")
		}
	}

	s.archive(ctx, &logger, filePath)

	logger.Info().Str("file_path", filePath).Msg("job completed")
	return nil
}

func (s *Orchestrator) workerCommand(msg dto.GenerationMessage) (string, []string, error) {
	python := s.cfg.Worker.Python
	switch msg.Kind {
	case constant.JobKindImage:
		seedArg := msg.SeedHint
		if seedArg == "" {
			seedArg = constant.RandomSeed
		}
		return python, []string{s.cfg.Worker.ImageScript, msg.Prompt, msg.JobId.String(), seedArg}, nil
	case constant.JobKindVideo:
		return python, []string{s.cfg.Worker.VideoScript, msg.Prompt, msg.JobId.String()}, nil
	case constant.JobKindStory:
		return python, []string{s.cfg.Worker.StoryScript, msg.InputPath, msg.JobId.String()}, nil
	default:
		return "", nil, errors.New("unsupported job kind: " + string(msg.Kind))
	}
}

func parseOutput(kind constant.JobKind, stdout string) (filePath, seed string, err error) {
	if kind == constant.JobKindImage {
		return runner.ParseImageOutput(stdout)
	}
	filePath, err = runner.ParsePathOutput(stdout)
	return filePath, "", err
}

func (s *Orchestrator) markFailed(ctx context.Context, logger *zerolog.Logger, id uuid.UUID) {
	if err := s.repo.MarkJobFailed(ctx, id); err != nil {
		logger.Error().Err(err).Msg("failed to mark job failed")
	}
}

// archive mirrors the produced artifact to object storage, best effort.
func (s *Orchestrator) archive(ctx context.Context, logger *zerolog.Logger, filePath string) {
	if s.cfg.Storage == nil || s.cfg.MinIOBucket == "" {
		return
	}
	objectName := filepath.ToSlash(strings.TrimPrefix(filePath, "/"))
	_, err := s.cfg.Storage.FPutObject(ctx, s.cfg.MinIOBucket, objectName, filePath, minio.PutObjectOptions{})
	if err != nil {
		logger.Error().Err(err).Str("object", objectName).Msg("failed to archive artifact")
		return
	}
	logger.Info().Str("object", objectName).Msg("artifact archived")
}

func (s *Orchestrator) Job(ctx context.Context, id uuid.UUID) (*entities.GenerationJob, error) {
	return s.repo.FindJobById(ctx, id)
}

func (s *Orchestrator) Gallery(ctx context.Context, userId uuid.UUID) ([]*entities.GenerationJob, error) {
	return s.repo.ListJobsByUser(ctx, userId)
}

var _ Service = (*Orchestrator)(nil)
