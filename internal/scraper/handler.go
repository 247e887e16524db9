package scraper

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"

	"ExamPortal/internal/queue"
)

// Handler accepts scraped record batches from the admin scraper and queues
// them for ingestion. Returns 202: dedup and fan-out happen in the worker.
type Handler struct {
	queue *queue.Client
}

func NewHandler(q *queue.Client) *Handler {
	return &Handler{queue: q}
}

// IngestNotifications handles POST /scraper/notifications (admin).
func (h *Handler) IngestNotifications(c echo.Context) error {
	var records []ScrapedNotification
	if err := c.Bind(&records); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if len(records) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "No records supplied"})
	}

	payload, err := json.Marshal(records)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid records"})
	}
	taskID, err := h.queue.Enqueue(queue.TaskIngestNotifications, payload)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to queue ingestion"})
	}
	return c.JSON(http.StatusAccepted, map[string]interface{}{"task_id": taskID, "records": len(records)})
}

// IngestExams handles POST /scraper/exams (admin).
func (h *Handler) IngestExams(c echo.Context) error {
	var records []ScrapedExam
	if err := c.Bind(&records); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if len(records) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "No records supplied"})
	}

	payload, err := json.Marshal(records)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid records"})
	}
	taskID, err := h.queue.Enqueue(queue.TaskIngestExams, payload)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to queue ingestion"})
	}
	return c.JSON(http.StatusAccepted, map[string]interface{}{"task_id": taskID, "records": len(records)})
}
