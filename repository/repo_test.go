package repository

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"genstudio/constant"
	"genstudio/entities"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, Migrate(db))
	return db
}

func newTestRepo(t *testing.T) JobRepository {
	t.Helper()
	return NewRepoWithDB(newTestDB(t))
}

func pendingJob(userId uuid.UUID) *entities.GenerationJob {
	return &entities.GenerationJob{
		UserId:     userId,
		Kind:       constant.JobKindImage,
		Prompt:     "a red fox in a forest, oil painting",
		SubjectKey: "a red fox in a forest",
		Status:     constant.JobStatusPending,
	}
}

func TestCreateAndFindJob(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	userId := uuid.New()

	job := pendingJob(userId)
	require.NoError(t, repo.CreateJob(ctx, job))
	require.NotEqual(t, uuid.Nil, job.ID)

	got, err := repo.FindJobById(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, constant.JobStatusPending, got.Status)
	assert.Equal(t, "a red fox in a forest", got.SubjectKey)
	assert.Empty(t, got.FilePath)
	assert.Nil(t, got.Seed)
}

func TestMarkJobCompleted(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	job := pendingJob(uuid.New())
	require.NoError(t, repo.CreateJob(ctx, job))

	require.NoError(t, repo.MarkJobCompleted(ctx, job.ID, "/out/fox1.png", "991122"))

	got, err := repo.FindJobById(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, constant.JobStatusCompleted, got.Status)
	assert.Equal(t, "/out/fox1.png", got.FilePath)
	require.NotNil(t, got.Seed)
	assert.Equal(t, "991122", *got.Seed)
	assert.True(t, got.UpdatedAt.After(got.CreatedAt) || got.UpdatedAt.Equal(got.CreatedAt))
}

func TestTerminalStateIsSticky(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	job := pendingJob(uuid.New())
	require.NoError(t, repo.CreateJob(ctx, job))
	require.NoError(t, repo.MarkJobCompleted(ctx, job.ID, "/out/fox1.png", "991122"))

	// A late failure event must not flip a completed job.
	err := repo.MarkJobFailed(ctx, job.ID)
	assert.ErrorIs(t, err, ErrJobTerminal)

	got, err := repo.FindJobById(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, constant.JobStatusCompleted, got.Status)
	assert.Equal(t, "/out/fox1.png", got.FilePath)
}

func TestMarkFailedTwiceLeavesSameState(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	job := pendingJob(uuid.New())
	require.NoError(t, repo.CreateJob(ctx, job))
	require.NoError(t, repo.MarkJobFailed(ctx, job.ID))

	err := repo.MarkJobFailed(ctx, job.ID)
	assert.ErrorIs(t, err, ErrJobTerminal)

	got, err := repo.FindJobById(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, constant.JobStatusFailed, got.Status)
	assert.Empty(t, got.FilePath)
	assert.Nil(t, got.Seed)
}

func TestTransitionOnMissingJob(t *testing.T) {
	repo := newTestRepo(t)
	err := repo.MarkJobFailed(context.Background(), uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestTransitionConflictWhenGuardedUpdateKeepsMissing(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepoWithDB(db)
	ctx := context.Background()

	job := pendingJob(uuid.New())
	require.NoError(t, repo.CreateJob(ctx, job))

	// Swallow every UPDATE so the guarded transition matches no row while the
	// job stays PENDING, the shape of an update losing to a not-yet-visible write.
	require.NoError(t, db.Callback().Update().Replace("gorm:update", func(tx *gorm.DB) {
		tx.RowsAffected = 0
	}))

	err := repo.MarkJobFailed(ctx, job.ID)
	assert.ErrorIs(t, err, ErrTransitionConflict)

	got, err := repo.FindJobById(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, constant.JobStatusPending, got.Status)
}

func TestListJobsByUserNewestFirst(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	userId := uuid.New()

	first := pendingJob(userId)
	require.NoError(t, repo.CreateJob(ctx, first))
	second := pendingJob(userId)
	second.Prompt = "a castle at dusk"
	second.SubjectKey = "a castle at dusk"
	require.NoError(t, repo.CreateJob(ctx, second))

	other := pendingJob(uuid.New())
	require.NoError(t, repo.CreateJob(ctx, other))

	jobs, err := repo.ListJobsByUser(ctx, userId)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.False(t, jobs[0].CreatedAt.Before(jobs[1].CreatedAt))
	for _, j := range jobs {
		assert.Equal(t, userId, j.UserId)
	}
}

func TestSeedRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	userId := uuid.New()

	seed, ok, err := repo.GetSeed(ctx, userId, "unknown subject")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, seed)

	require.NoError(t, repo.SetSeed(ctx, userId, "a red fox in a forest", "42"))

	seed, ok, err = repo.GetSeed(ctx, userId, "a red fox in a forest")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "42", seed)
}

func TestSetSeedLastWriterWins(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	userId := uuid.New()

	require.NoError(t, repo.SetSeed(ctx, userId, "a red fox in a forest", "111"))
	require.NoError(t, repo.SetSeed(ctx, userId, "a red fox in a forest", "991122"))

	seed, ok, err := repo.GetSeed(ctx, userId, "a red fox in a forest")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "991122", seed)
}

func TestConcurrentSetSeedNoCrossKeyClobber(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	userId := uuid.New()

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		errs <- repo.SetSeed(ctx, userId, "cat", "1")
	}()
	go func() {
		defer wg.Done()
		errs <- repo.SetSeed(ctx, userId, "dog", "2")
	}()
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	cat, ok, err := repo.GetSeed(ctx, userId, "cat")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "1", cat)

	dog, ok, err := repo.GetSeed(ctx, userId, "dog")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "2", dog)
}

func TestSeedsScopedPerUser(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	alice := uuid.New()
	bob := uuid.New()

	require.NoError(t, repo.SetSeed(ctx, alice, "a red fox in a forest", "42"))

	_, ok, err := repo.GetSeed(ctx, bob, "a red fox in a forest")
	require.NoError(t, err)
	assert.False(t, ok)
}
