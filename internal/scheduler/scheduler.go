package scheduler

import (
	"context"
	"math"
	"time"

	"github.com/robfig/cron/v3"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"ExamPortal/internal/exam"
	"ExamPortal/internal/notification"
	"ExamPortal/internal/queue"
)

const (
	// deadlineWindow is how far ahead the deadline-warning producer looks.
	deadlineWindow = 72 * time.Hour
	// retentionAge is how old a notification must be before the weekly sweep
	// may delete it.
	retentionAge = 30 * 24 * time.Hour
)

// retainedTypes are never deleted by the retention sweep.
var retainedTypes = []notification.Type{notification.TypeExamUpdate, notification.TypeResult}

// ExamStore is the slice of the exam repository the scheduler drives.
type ExamStore interface {
	CloseExpiredApplications(ctx context.Context, now time.Time) (int64, error)
	CompleteFinishedExams(ctx context.Context, now time.Time) (int64, error)
	FindClosingWithin(ctx context.Context, from, until time.Time) ([]*exam.Exam, error)
}

// DeadlineProducer creates at most one deadline notification per exam per day.
type DeadlineProducer interface {
	PublishDeadline(ctx context.Context, examID primitive.ObjectID, examName string, daysLeft int) (bool, error)
}

// RetentionStore purges aged notification records.
type RetentionStore interface {
	PurgeExpired(ctx context.Context, olderThan time.Time, excludeTypes []notification.Type) (int64, error)
}

// Enqueuer submits the periodic source-pull task.
type Enqueuer interface {
	Enqueue(taskType string, payload []byte) (string, error)
}

// Scheduler owns the background cadences: a daily exam-lifecycle tick, a
// six-hourly scraper pull and a weekly retention sweep. Every tick is
// fire-and-forget: faults are logged at the tick boundary and the next tick
// re-evaluates current state, so a failed tick self-heals.
type Scheduler struct {
	cron     *cron.Cron
	exams    ExamStore
	producer DeadlineProducer
	store    RetentionStore
	tasks    Enqueuer
	now      func() time.Time
	log      *zap.SugaredLogger
}

func NewScheduler(exams ExamStore, producer DeadlineProducer, store RetentionStore, tasks Enqueuer, log *zap.SugaredLogger) *Scheduler {
	return &Scheduler{
		// All cadences and day boundaries are UTC, independent of server locale.
		cron:     cron.New(cron.WithLocation(time.UTC)),
		exams:    exams,
		producer: producer,
		store:    store,
		tasks:    tasks,
		now:      func() time.Time { return time.Now().UTC() },
		log:      log,
	}
}

// Start registers the cadences and ties the cron runner to the fx lifecycle.
func (s *Scheduler) Start(lc fx.Lifecycle) error {
	if _, err := s.cron.AddFunc("0 2 * * *", s.tick("exam-lifecycle", s.RunLifecycleTick)); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("0 */6 * * *", s.tick("scraper-pull", s.runSourcePull)); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("0 3 * * 0", s.tick("retention-sweep", s.RunRetentionSweep)); err != nil {
		return err
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			s.log.Info("Starting background scheduler ...")
			s.cron.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			s.log.Info("Stopping background scheduler ...")
			stopped := s.cron.Stop()
			select {
			case <-stopped.Done():
			case <-ctx.Done():
			}
			return nil
		},
	})
	return nil
}

// tick wraps a job so that neither an error nor a panic inside one run can
// reach the cron runner or affect the next run.
func (s *Scheduler) tick(name string, fn func(ctx context.Context) error) func() {
	return func() {
		defer func() {
			if r := recover(); r != nil {
				s.log.Errorw("Scheduled tick panicked", "job", name, "panic", r)
			}
		}()
		if err := fn(context.Background()); err != nil {
			s.log.Errorw("Scheduled tick failed", "job", name, "error", err)
		}
	}
}

// RunLifecycleTick performs one daily run: close expired application windows,
// complete finished exams, then emit deadline warnings. The transitions run
// first so the warning step filters on fresh status values.
func (s *Scheduler) RunLifecycleTick(ctx context.Context) error {
	now := s.now()

	closed, err := s.exams.CloseExpiredApplications(ctx, now)
	if err != nil {
		return err
	}
	completed, err := s.exams.CompleteFinishedExams(ctx, now)
	if err != nil {
		return err
	}
	warned, err := s.emitDeadlineWarnings(ctx, now)
	if err != nil {
		return err
	}

	s.log.Infow("Exam lifecycle tick finished",
		"applications_closed", closed, "exams_completed", completed, "deadline_warnings", warned)
	return nil
}

// emitDeadlineWarnings notifies for every application-open exam closing
// within the forward window. The producer enforces once-per-exam-per-day.
func (s *Scheduler) emitDeadlineWarnings(ctx context.Context, now time.Time) (int, error) {
	exams, err := s.exams.FindClosingWithin(ctx, now, now.Add(deadlineWindow))
	if err != nil {
		return 0, err
	}

	warned := 0
	for _, e := range exams {
		end := e.ImportantDates.ApplicationEndDate
		if end == nil {
			continue
		}
		daysLeft := int(math.Ceil(end.Sub(now).Hours() / 24))
		created, err := s.producer.PublishDeadline(ctx, e.ID, e.Name, daysLeft)
		if err != nil {
			// Keep warning the remaining exams; the next tick retries this one.
			s.log.Errorw("Failed to publish deadline warning", "exam", e.ID.Hex(), "error", err)
			continue
		}
		if created {
			warned++
		}
	}
	return warned, nil
}

// RunRetentionSweep deletes notifications older than the retention age,
// keeping the permanently retained types.
func (s *Scheduler) RunRetentionSweep(ctx context.Context) error {
	deleted, err := s.store.PurgeExpired(ctx, s.now().Add(-retentionAge), retainedTypes)
	if err != nil {
		return err
	}
	s.log.Infow("Retention sweep finished", "deleted", deleted)
	return nil
}

func (s *Scheduler) runSourcePull(ctx context.Context) error {
	_, err := s.tasks.Enqueue(queue.TaskPullSources, nil)
	return err
}
