package scheduler

import (
	"context"

	"github.com/charmbracelet/log"
)

// AudienceSyncJobID identifies the mailing list resync job.
const AudienceSyncJobID = "audience-sync"

// AudienceSyncer pushes verified waitlist entries to the mailing list.
type AudienceSyncer interface {
	ResyncAudience(ctx context.Context) (int, error)
}

// AddAudienceSyncJob schedules the mailing list resync.
func (s *Scheduler) AddAudienceSyncJob(cron string, syncer AudienceSyncer) error {
	return s.AddCronJob(AudienceSyncJobID, "Sync waitlist audience", cron, func(ctx context.Context) error {
		n, err := syncer.ResyncAudience(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			log.Info("Synced waitlist entries to audience", "count", n)
		}
		return nil
	}, true)
}
