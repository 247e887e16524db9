package queue

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Task type names shared between the enqueuing handlers and the worker mux.
const (
	TaskIngestNotifications = "scraper:ingest_notifications"
	TaskIngestExams         = "scraper:ingest_exams"
	TaskPullSources         = "scraper:pull_sources"
)

// Client enqueues background ingestion work onto Redis via asynq. Ingestion
// runs off the request path so a slow source never blocks an admin request.
type Client struct {
	client *asynq.Client
	log    *zap.SugaredLogger
}

func NewClient(lc fx.Lifecycle, redisOpt asynq.RedisClientOpt, log *zap.SugaredLogger) *Client {
	c := &Client{client: asynq.NewClient(redisOpt), log: log}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return c.client.Close()
		},
	})
	return c
}

// Enqueue submits one task. Payload is pre-marshaled JSON; the worker decodes
// it against the matching record type.
func (c *Client) Enqueue(taskType string, payload []byte) (string, error) {
	task := asynq.NewTask(taskType, payload)
	info, err := c.client.Enqueue(task, asynq.MaxRetry(3), asynq.Queue("ingestion"))
	if err != nil {
		return "", fmt.Errorf("failed to enqueue %s: %w", taskType, err)
	}
	c.log.Infow("Task enqueued", "type", taskType, "id", info.ID, "queue", info.Queue)
	return info.ID, nil
}
