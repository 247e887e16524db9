package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"ExamPortal/internal/queue"
	"ExamPortal/internal/scraper"
)

// Worker runs the asynq server processing ingestion tasks.
type Worker struct {
	server  *asynq.Server
	mux     *asynq.ServeMux
	scraper *scraper.Service
	log     *zap.SugaredLogger
}

func NewWorker(redisOpt asynq.RedisClientOpt, scraperSvc *scraper.Service, log *zap.SugaredLogger) *Worker {
	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 5,
		Queues: map[string]int{
			"ingestion": 5,
			"default":   1,
		},
	})

	w := &Worker{server: server, mux: asynq.NewServeMux(), scraper: scraperSvc, log: log}
	w.mux.HandleFunc(queue.TaskIngestNotifications, w.handleIngestNotifications)
	w.mux.HandleFunc(queue.TaskIngestExams, w.handleIngestExams)
	w.mux.HandleFunc(queue.TaskPullSources, w.handlePullSources)
	return w
}

// Start registers the worker with the fx lifecycle.
func (w *Worker) Start(lc fx.Lifecycle) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			w.log.Info("Starting ingestion worker ...")
			return w.server.Start(w.mux)
		},
		OnStop: func(ctx context.Context) error {
			w.log.Info("Stopping ingestion worker ...")
			w.server.Shutdown()
			return nil
		},
	})
}

func (w *Worker) handleIngestNotifications(ctx context.Context, task *asynq.Task) error {
	var records []scraper.ScrapedNotification
	if err := json.Unmarshal(task.Payload(), &records); err != nil {
		return fmt.Errorf("bad ingest payload: %w", err)
	}
	created, err := w.scraper.IngestNotifications(ctx, records)
	if err != nil {
		return err
	}
	w.log.Infow("Ingested scraped notifications", "created", created)
	return nil
}

func (w *Worker) handleIngestExams(ctx context.Context, task *asynq.Task) error {
	var records []scraper.ScrapedExam
	if err := json.Unmarshal(task.Payload(), &records); err != nil {
		return fmt.Errorf("bad ingest payload: %w", err)
	}
	created, err := w.scraper.IngestExams(ctx, records)
	if err != nil {
		return err
	}
	w.log.Infow("Ingested scraped exams", "created", created)
	return nil
}

func (w *Worker) handlePullSources(ctx context.Context, _ *asynq.Task) error {
	created, err := w.scraper.PullSources(ctx)
	if err != nil {
		return err
	}
	w.log.Infow("Pulled scraper sources", "created", created)
	return nil
}
