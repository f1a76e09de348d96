package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jingxuan-bi/report-service/internal/config"
	"github.com/jingxuan-bi/report-service/internal/database"
	"github.com/jingxuan-bi/report-service/internal/models"
	"github.com/jingxuan-bi/report-service/internal/sqltemplate"
)

const exportQueryTimeout = 10 * time.Minute

// ErrExportTooLarge is returned when the preflight count exceeds the
// configured export cap. No job is created in that case.
type ErrExportTooLarge struct {
	Total int64
	Limit int
}

func (e *ErrExportTooLarge) Error() string {
	return fmt.Sprintf("export size %d exceeds limit %d, narrow the query", e.Total, e.Limit)
}

// Runner creates export jobs and drives each one to a terminal state
// in a background goroutine.
type Runner struct {
	cfg       *config.Config
	store     JobStore
	templates *sqltemplate.Manager
	db        *database.Manager
}

// NewRunner creates an export runner.
func NewRunner(cfg *config.Config, store JobStore, templates *sqltemplate.Manager, db *database.Manager) *Runner {
	return &Runner{cfg: cfg, store: store, templates: templates, db: db}
}

// CreateJob validates params, runs the preflight row count against the
// export cap, and registers a pending job before returning. The
// spreadsheet itself is produced asynchronously.
func (r *Runner) CreateJob(ctx context.Context, reportType string, params *models.QueryParams) (*Job, error) {
	countSQL, err := r.templates.ProcessExportCount(reportType, params)
	if err != nil {
		return nil, err
	}
	result, err := r.db.Query(ctx, countSQL.SQL, countSQL.Params)
	if err != nil {
		return nil, fmt.Errorf("export preflight count failed: %w", err)
	}
	total := firstTotal(result.Data)
	if total > int64(r.cfg.Export.MaxRows) {
		return nil, &ErrExportTooLarge{Total: total, Limit: r.cfg.Export.MaxRows}
	}

	job := NewJob(reportType, params)
	job.Total = total
	r.store.Put(job)

	log.Info().Str("job_id", job.ID).Str("report_type", reportType).
		Int64("total", total).Msg("Export job created")

	go r.run(job.ID, reportType, params)
	return job, nil
}

// run produces the spreadsheet. Every exit path leaves the job in a
// terminal state, including panics.
func (r *Runner) run(id, reportType string, params *models.QueryParams) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Str("job_id", id).Interface("panic", rec).Msg("Export job panicked")
			r.fail(id, fmt.Sprintf("export failed unexpectedly: %v", rec))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), exportQueryTimeout)
	defer cancel()

	r.store.Update(id, func(j *Job) {
		j.Status = StatusProcessing
		j.Progress = 10
	})

	processed, err := r.templates.ProcessExport(reportType, params)
	if err != nil {
		r.fail(id, err.Error())
		return
	}
	result, err := r.db.Query(ctx, processed.SQL, processed.Params)
	if err != nil {
		r.fail(id, fmt.Sprintf("export query failed: %v", err))
		return
	}
	r.store.Update(id, func(j *Job) { j.Progress = 60 })

	if err := os.MkdirAll(r.cfg.Export.StoragePath, 0o755); err != nil {
		r.fail(id, fmt.Sprintf("cannot create export directory: %v", err))
		return
	}
	fileName := exportFileName(id, reportType, params)
	filePath := filepath.Join(r.cfg.Export.StoragePath, fileName)
	if err := WriteWorkbook(filePath, result.Columns, result.Data); err != nil {
		r.fail(id, fmt.Sprintf("cannot write spreadsheet: %v", err))
		return
	}

	var fileSize int64
	if info, err := os.Stat(filePath); err == nil {
		fileSize = info.Size()
	}

	now := time.Now()
	r.store.Update(id, func(j *Job) {
		j.Status = StatusCompleted
		j.CompletedAt = &now
		j.FileName = fileName
		j.FilePath = filePath
		j.FileSize = fileSize
		j.Total = int64(len(result.Data))
		j.Progress = 100
	})

	log.Info().Str("job_id", id).Int("rows", len(result.Data)).
		Int64("file_size", fileSize).Msg("Export job completed")
}

func (r *Runner) fail(id, message string) {
	now := time.Now()
	r.store.Update(id, func(j *Job) {
		j.Status = StatusFailed
		j.CompletedAt = &now
		j.Error = message
	})
	log.Error().Str("job_id", id).Str("error", message).Msg("Export job failed")
}

// exportFileName builds <report>_<range>_<suffix>.xlsx from whichever
// date fields the report uses. The job id already ends in a unique
// suffix.
func exportFileName(id, reportType string, params *models.QueryParams) string {
	suffix := id[len(id)-6:]
	switch {
	case params.StartTime != "" && params.EndTime != "":
		return fmt.Sprintf("%s_%s_%s_%s.xlsx", reportType, params.StartTime, params.EndTime, suffix)
	case params.Date != "":
		return fmt.Sprintf("%s_%s_%s.xlsx", reportType, params.Date, suffix)
	case params.ReceiveStartTime != "" && params.ReceiveEndTime != "":
		return fmt.Sprintf("%s_%s_%s_%s.xlsx", reportType, params.ReceiveStartTime, params.ReceiveEndTime, suffix)
	case params.UseStartTime != "" && params.UseEndTime != "":
		return fmt.Sprintf("%s_%s_%s_%s.xlsx", reportType, params.UseStartTime, params.UseEndTime, suffix)
	default:
		return fmt.Sprintf("%s_%s.xlsx", reportType, suffix)
	}
}

// firstTotal pulls the count out of a one-row result. Connectors may
// hand numbers back as int64, float64, or string.
func firstTotal(rows []map[string]interface{}) int64 {
	if len(rows) == 0 {
		return 0
	}
	for _, v := range rows[0] {
		switch n := v.(type) {
		case int64:
			return n
		case float64:
			return int64(n)
		case int:
			return int64(n)
		case string:
			var parsed int64
			if _, err := fmt.Sscanf(n, "%d", &parsed); err == nil {
				return parsed
			}
		}
	}
	return 0
}
