// internal/app/system/workers/stagetimer.go
package workers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dalemusser/retrohub/internal/app/system/pubsub"
	"github.com/dalemusser/retrohub/internal/app/system/timeouts"
	"github.com/dalemusser/retrohub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// TypeStageTimeLimitEnded is the envelope type sent to the facilitator.
const TypeStageTimeLimitEnded = "StageTimeLimitEnded"

// maxJobsPerSweep bounds one tick so a backlog cannot starve Stop.
const maxJobsPerSweep = 100

// claimLease is how long a claimed job is hidden from other sweeps. A job
// that could not be delivered is retried once it lapses.
const claimLease = time.Minute

// JobQueue leases due jobs and removes them once handled. ClaimDue returns
// mongo.ErrNoDocuments when nothing is due.
type JobQueue interface {
	ClaimDue(ctx context.Context, jobType string, now time.Time, lease time.Duration) (models.ScheduledJob, error)
	Complete(ctx context.Context, id string) error
}

// MeetingGetter loads the meeting a job belongs to.
type MeetingGetter interface {
	GetByID(ctx context.Context, id string) (models.Meeting, error)
}

// StageTimeLimitEndedPayload is published on NOTIFICATION.<facilitatorId>.
type StageTimeLimitEndedPayload struct {
	MeetingID string    `json:"meetingId"`
	TeamID    string    `json:"teamId"`
	StageID   string    `json:"stageId"`
	JobID     string    `json:"jobId"`
	RunAt     time.Time `json:"runAt"`
}

// StageTimer is a background worker that delivers expired stage timers.
type StageTimer struct {
	jobs     JobQueue
	meetings MeetingGetter
	broker   pubsub.Broker
	log      *zap.Logger
	interval time.Duration
	now      func() time.Time
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewStageTimer creates a stage timer worker that sweeps every interval.
func NewStageTimer(jobs JobQueue, meetings MeetingGetter, broker pubsub.Broker, logger *zap.Logger, interval time.Duration) *StageTimer {
	return &StageTimer{
		jobs:     jobs,
		meetings: meetings,
		broker:   broker,
		log:      logger,
		interval: interval,
		now:      func() time.Time { return time.Now().UTC() },
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background sweep loop.
func (w *StageTimer) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("stage timer worker started", zap.Duration("interval", w.interval))
}

// Stop signals the worker to stop and waits for it to finish.
func (w *StageTimer) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("stage timer worker stopped")
}

func (w *StageTimer) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), timeouts.Long())
			if _, err := w.Sweep(ctx); err != nil {
				w.log.Error("stage timer sweep failed", zap.Error(err))
			}
			cancel()
		}
	}
}

// Sweep claims every due job and notifies its meeting's facilitator.
// A job is removed once its notification is published. Jobs for ended or
// missing meetings are removed without one. Any other failure leaves the
// job leased, so a later sweep retries it. It returns the number of
// notifications published.
func (w *StageTimer) Sweep(ctx context.Context) (int, error) {
	sent := 0
	for i := 0; i < maxJobsPerSweep; i++ {
		job, err := w.jobs.ClaimDue(ctx, models.JobStageTimeLimitEnd, w.now(), claimLease)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return sent, nil
		}
		if err != nil {
			return sent, err
		}

		m, err := w.meetings.GetByID(ctx, job.MeetingID)
		if errors.Is(err, mongo.ErrNoDocuments) || (err == nil && m.IsEnded()) {
			w.log.Debug("dropping stage timer for closed meeting",
				zap.String("job_id", job.ID),
				zap.String("meeting_id", job.MeetingID))
			if err := w.jobs.Complete(ctx, job.ID); err != nil {
				return sent, fmt.Errorf("drop job %s: %w", job.ID, err)
			}
			continue
		}
		if err != nil {
			return sent, fmt.Errorf("load meeting %s: %w", job.MeetingID, err)
		}

		err = pubsub.Publish(ctx, w.broker, pubsub.Notification, m.FacilitatorUserID, TypeStageTimeLimitEnded,
			StageTimeLimitEndedPayload{
				MeetingID: m.ID,
				TeamID:    m.TeamID,
				StageID:   job.StageID,
				JobID:     job.ID,
				RunAt:     job.RunAt,
			}, pubsub.Options{})
		if err != nil {
			w.log.Warn("stage timer notification not delivered; will retry",
				zap.String("job_id", job.ID),
				zap.String("meeting_id", m.ID),
				zap.Error(err))
			continue
		}
		if err := w.jobs.Complete(ctx, job.ID); err != nil {
			return sent, fmt.Errorf("complete job %s: %w", job.ID, err)
		}
		sent++
	}
	return sent, nil
}
