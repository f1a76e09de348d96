package export

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog/log"
)

const sweepInterval = time.Hour

// StartRetentionSweep removes jobs older than retentionDays, along
// with their spreadsheet files, once per hour until ctx is cancelled.
// A retention of 0 disables the sweep.
func StartRetentionSweep(ctx context.Context, store JobStore, retentionDays int) {
	if retentionDays <= 0 {
		log.Info().Msg("Export retention sweep disabled")
		return
	}

	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sweep(store, retentionDays)
			}
		}
	}()
}

func sweep(store JobStore, retentionDays int) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	removed := 0
	for _, job := range store.List() {
		if job.CreatedAt.After(cutoff) {
			continue
		}
		if job.FilePath != "" {
			if err := os.Remove(job.FilePath); err != nil && !os.IsNotExist(err) {
				log.Warn().Err(err).Str("job_id", job.ID).Str("path", job.FilePath).
					Msg("Failed to remove expired export file")
			}
		}
		store.Delete(job.ID)
		removed++
	}
	if removed > 0 {
		log.Info().Int("removed", removed).Msg("Expired export jobs removed")
	}
}
