package export

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingxuan-bi/report-service/internal/models"
)

func TestNewJobIDFormat(t *testing.T) {
	job := NewJob("order-query", &models.QueryParams{})
	assert.Regexp(t, regexp.MustCompile(`^order-query_\d+_[0-9a-f]{6}$`), job.ID)
	assert.Equal(t, StatusPending, job.Status)
	assert.Zero(t, job.Progress)
	// The download URL is known from the id before the job even runs.
	assert.Equal(t, "/api/v1/export/download/"+job.ID, job.DownloadURL)
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	job := NewJob("order-query", &models.QueryParams{})
	store.Put(job)

	got, ok := store.Get(job.ID)
	require.True(t, ok)
	assert.Equal(t, job.ID, got.ID)

	_, ok = store.Get("missing")
	assert.False(t, ok)
}

func TestMemoryStoreGetReturnsCopy(t *testing.T) {
	store := NewMemoryStore()
	job := NewJob("order-query", &models.QueryParams{})
	store.Put(job)

	got, _ := store.Get(job.ID)
	got.Status = StatusFailed

	again, _ := store.Get(job.ID)
	assert.Equal(t, StatusPending, again.Status)
}

func TestMemoryStoreListNewestFirst(t *testing.T) {
	store := NewMemoryStore()
	older := NewJob("order-query", &models.QueryParams{})
	older.CreatedAt = time.Now().Add(-time.Hour)
	newer := NewJob("coupon-query", &models.QueryParams{})
	store.Put(older)
	store.Put(newer)

	jobs := store.List()
	require.Len(t, jobs, 2)
	assert.Equal(t, newer.ID, jobs[0].ID)
	assert.Equal(t, older.ID, jobs[1].ID)
}

func TestMemoryStoreUpdateIsAtomic(t *testing.T) {
	store := NewMemoryStore()
	job := NewJob("order-query", &models.QueryParams{})
	store.Put(job)

	now := time.Now()
	ok := store.Update(job.ID, func(j *Job) {
		j.Status = StatusCompleted
		j.CompletedAt = &now
		j.FileName = "a.xlsx"
		j.Progress = 100
	})
	require.True(t, ok)

	got, _ := store.Get(job.ID)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.NotNil(t, got.CompletedAt)
	assert.Equal(t, "a.xlsx", got.FileName)
	assert.Equal(t, 100, got.Progress)

	assert.False(t, store.Update("missing", func(j *Job) {}))
}

func TestMemoryStoreDelete(t *testing.T) {
	store := NewMemoryStore()
	job := NewJob("order-query", &models.QueryParams{})
	store.Put(job)
	store.Delete(job.ID)

	_, ok := store.Get(job.ID)
	assert.False(t, ok)
}
