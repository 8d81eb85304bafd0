package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/openclaw/agent-console-go/internal/repository"
)

// CleanupJob periodically sweeps rows whose expiry has passed: binding claims
// that were never redeemed and console sessions past their lifetime. Expiry
// filtering in the queries keeps stale rows inert between sweeps, so the
// interval is purely about table hygiene.
type CleanupJob struct {
	claimRepo repository.ClaimRepository
	userRepo  repository.UserRepository
	interval  time.Duration
	done      chan struct{}
}

func NewCleanupJob(
	claimRepo repository.ClaimRepository,
	userRepo repository.UserRepository,
	interval time.Duration,
) *CleanupJob {
	return &CleanupJob{
		claimRepo: claimRepo,
		userRepo:  userRepo,
		interval:  interval,
		done:      make(chan struct{}),
	}
}

func (j *CleanupJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("cleanup job started")
}

func (j *CleanupJob) Stop() {
	close(j.done)
	log.Info().Msg("cleanup job stopped")
}

func (j *CleanupJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.cleanup()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.cleanup()
		}
	}
}

func (j *CleanupJob) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	j.runCleanup(ctx, "binding claims", j.claimRepo.DeleteExpired)
	j.runCleanup(ctx, "user sessions", j.userRepo.DeleteExpiredSessions)
}

func (j *CleanupJob) runCleanup(ctx context.Context, name string, fn func(context.Context) (int64, error)) {
	count, err := fn(ctx)
	if err != nil {
		log.Error().Err(err).Msgf("failed to cleanup %s", name)
	} else if count > 0 {
		log.Info().Int64("count", count).Msgf("cleaned up %s", name)
	}
}
