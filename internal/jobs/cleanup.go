package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// PurgedDeleter reclaims storage for matches past the hard-deletion line.
type PurgedDeleter interface {
	DeletePurged(ctx context.Context, now time.Time) (int64, error)
}

// PurgeJob periodically deletes match rows whose 24h post-expiry window
// has closed. Reads already answer gone for those rows, so the sweep only
// reclaims storage; it never changes observable behavior. Runs only
// against the Postgres backend.
type PurgeJob struct {
	deleter  PurgedDeleter
	interval time.Duration
	done     chan struct{}
}

func NewPurgeJob(deleter PurgedDeleter, interval time.Duration) *PurgeJob {
	return &PurgeJob{
		deleter:  deleter,
		interval: interval,
		done:     make(chan struct{}),
	}
}

func (j *PurgeJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("purge job started")
}

func (j *PurgeJob) Stop() {
	close(j.done)
	log.Info().Msg("purge job stopped")
}

func (j *PurgeJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.sweep()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.sweep()
		}
	}
}

func (j *PurgeJob) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	count, err := j.deleter.DeletePurged(ctx, time.Now())
	if err != nil {
		log.Error().Err(err).Msg("failed to purge matches")
	} else if count > 0 {
		log.Info().Int64("count", count).Msg("purged matches")
	}
}
