package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"genstudio/constant"
	"genstudio/entities"
)

// ErrJobTerminal is returned when a terminal transition is requested for a job
// that already reached COMPLETED or FAILED. The orchestrator treats it as an
// internal-invariant violation: logged loudly, state left untouched.
var ErrJobTerminal = errors.New("job already in terminal state")

// ErrTransitionConflict is returned when the guarded terminal update
// repeatedly matches no row even though the job is still PENDING.
var ErrTransitionConflict = errors.New("job transition did not apply")

const transitionRetries = 2

type JobRepository interface {
	CreateJob(ctx context.Context, job *entities.GenerationJob) error
	FindJobById(ctx context.Context, id uuid.UUID) (*entities.GenerationJob, error)
	ListJobsByUser(ctx context.Context, userId uuid.UUID) ([]*entities.GenerationJob, error)
	MarkJobCompleted(ctx context.Context, id uuid.UUID, filePath, seed string) error
	MarkJobFailed(ctx context.Context, id uuid.UUID) error
	GetSeed(ctx context.Context, userId uuid.UUID, subjectKey string) (string, bool, error)
	SetSeed(ctx context.Context, userId uuid.UUID, subjectKey, seed string) error
}

type repo struct {
	db *gorm.DB
}

func NewRepo(db *sql.DB) (JobRepository, error) {
	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db}),
		&gorm.Config{
			Logger: logger.Default.LogMode(logger.Info),
		},
	)
	if err != nil {
		return nil, err
	}
	if err := Migrate(gormDB); err != nil {
		return nil, err
	}
	return &repo{
		db: gormDB,
	}, nil
}

// NewRepoWithDB wires an existing gorm handle; tests use it with sqlite.
func NewRepoWithDB(db *gorm.DB) JobRepository {
	return &repo{db: db}
}

// Migrate creates the two tables this core owns.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&entities.GenerationJob{}, &entities.SubjectSeed{})
}

func (r *repo) CreateJob(ctx context.Context, job *entities.GenerationJob) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.Status == "" {
		job.Status = constant.JobStatusPending
	}
	return r.db.WithContext(ctx).Create(job).Error
}

func (r *repo) FindJobById(ctx context.Context, id uuid.UUID) (*entities.GenerationJob, error) {
	job := &entities.GenerationJob{}
	err := r.db.WithContext(ctx).First(job, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return job, nil
}

func (r *repo) ListJobsByUser(ctx context.Context, userId uuid.UUID) ([]*entities.GenerationJob, error) {
	var jobs []*entities.GenerationJob
	err := r.db.WithContext(ctx).Where("user_id = ?", userId).Order("created_at DESC").Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *repo) MarkJobCompleted(ctx context.Context, id uuid.UUID, filePath, seed string) error {
	updates := map[string]interface{}{
		"status":    constant.JobStatusCompleted,
		"file_path": filePath,
	}
	if seed != "" {
		updates["seed"] = seed
	}
	return r.transition(ctx, id, updates)
}

func (r *repo) MarkJobFailed(ctx context.Context, id uuid.UUID) error {
	return r.transition(ctx, id, map[string]interface{}{
		"status": constant.JobStatusFailed,
	})
}

// transition applies a terminal update guarded on the row still being PENDING,
// so two racing completion events cannot both take effect. A guarded update
// that matches nothing while the re-fetched row is still PENDING lost to a
// write that was not yet visible; it is retried before giving up.
func (r *repo) transition(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	for attempt := 0; ; attempt++ {
		res := r.db.WithContext(ctx).
			Model(&entities.GenerationJob{}).
			Where("id = ? AND status = ?", id, constant.JobStatusPending).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return nil
		}
		job, err := r.FindJobById(ctx, id)
		if err != nil {
			return err
		}
		if job.Status.Terminal() {
			return ErrJobTerminal
		}
		if attempt >= transitionRetries {
			return ErrTransitionConflict
		}
	}
}

func (r *repo) GetSeed(ctx context.Context, userId uuid.UUID, subjectKey string) (string, bool, error) {
	row := &entities.SubjectSeed{}
	err := r.db.WithContext(ctx).First(row, "user_id = ? AND subject_key = ?", userId, subjectKey).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return row.Seed, true, nil
}

// SetSeed upserts exactly one (user, subjectKey) slot. The ON CONFLICT clause
// keeps concurrent writes for sibling keys of the same user independent.
func (r *repo) SetSeed(ctx context.Context, userId uuid.UUID, subjectKey, seed string) error {
	row := &entities.SubjectSeed{
		UserId:     userId,
		SubjectKey: subjectKey,
		Seed:       seed,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "subject_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"seed", "updated_at"}),
	}).Create(row).Error
}
