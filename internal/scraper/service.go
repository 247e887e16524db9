package scraper

import (
	"context"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"ExamPortal/internal/exam"
	"ExamPortal/internal/notification"
)

// ScrapedNotification is the record shape the scraper produces. The scraper's
// page parsing is external; this service only consumes its output.
type ScrapedNotification struct {
	Title       string     `json:"title"`
	Message     string     `json:"message"`
	Type        string     `json:"type"`
	Link        string     `json:"link"`
	Icon        string     `json:"icon"`
	Color       string     `json:"color"`
	Source      string     `json:"source"`
	SourceURL   string     `json:"source_url"`
	PublishedAt *time.Time `json:"published_at"`
}

// ScrapedExam is a scraped exam announcement.
type ScrapedExam struct {
	Name                 string     `json:"name"`
	Category             string     `json:"category"`
	Description          string     `json:"description"`
	ApplicationStartDate *time.Time `json:"application_start_date"`
	ApplicationEndDate   *time.Time `json:"application_end_date"`
	ExamDate             *time.Time `json:"exam_date"`
}

// Service turns scraped records into notification and exam records through
// the deduplicating producers.
type Service struct {
	client        *Client
	notifications *notification.Service
	exams         *exam.Service
	examRepo      *exam.Repository
	log           *zap.SugaredLogger
}

func NewService(client *Client, notifications *notification.Service, exams *exam.Service, examRepo *exam.Repository, log *zap.SugaredLogger) *Service {
	return &Service{
		client:        client,
		notifications: notifications,
		exams:         exams,
		examRepo:      examRepo,
		log:           log,
	}
}

// IngestNotifications maps scraped records to notification candidates and
// runs them through the deduplicating ingestion producer.
func (s *Service) IngestNotifications(ctx context.Context, records []ScrapedNotification) (int, error) {
	candidates := make([]*notification.Notification, 0, len(records))
	for _, rec := range records {
		candidates = append(candidates, rec.toNotification())
	}
	created, err := s.notifications.Ingest(ctx, candidates)
	if err != nil {
		return created, err
	}
	s.log.Infow("Notification ingestion finished", "candidates", len(records), "created", created)
	return created, nil
}

func (rec *ScrapedNotification) toNotification() *notification.Notification {
	t := notification.Type(rec.Type)
	if !t.Valid() {
		t = notification.TypeNewVacancy
	}
	return &notification.Notification{
		Title:          rec.Title,
		Message:        rec.Message,
		Link:           rec.Link,
		Icon:           rec.Icon,
		Color:          rec.Color,
		Type:           t,
		TargetAudience: notification.AudienceAll,
		Provenance: &notification.Provenance{
			Source:      rec.Source,
			SourceURL:   rec.SourceURL,
			PublishedAt: rec.PublishedAt,
		},
	}
}

// IngestExams creates exams for scraped announcements not seen before,
// deduplicated by name.
func (s *Service) IngestExams(ctx context.Context, records []ScrapedExam) (int, error) {
	created := 0
	for _, rec := range records {
		if rec.Name == "" || rec.Category == "" {
			s.log.Warnw("Skipping scraped exam without name or category", "name", rec.Name)
			continue
		}

		existing, err := s.examRepo.FindByName(ctx, rec.Name)
		if err != nil {
			return created, err
		}
		if existing != nil {
			continue
		}

		e := &exam.Exam{
			Name:        rec.Name,
			Category:    rec.Category,
			Description: rec.Description,
			Status:      initialStatus(rec, time.Now().UTC()),
			ImportantDates: exam.ImportantDates{
				ApplicationStartDate: rec.ApplicationStartDate,
				ApplicationEndDate:   rec.ApplicationEndDate,
				ExamDate:             rec.ExamDate,
			},
		}
		if err := s.exams.Create(ctx, e); err != nil {
			return created, err
		}
		created++
	}
	s.log.Infow("Exam ingestion finished", "candidates", len(records), "created", created)
	return created, nil
}

// initialStatus classifies a scraped exam from its dates. Only forward states
// reachable at ingestion time are assigned here.
func initialStatus(rec ScrapedExam, now time.Time) exam.Status {
	if rec.ApplicationStartDate != nil && rec.ApplicationEndDate != nil &&
		now.After(*rec.ApplicationStartDate) && now.Before(*rec.ApplicationEndDate) {
		return exam.StatusApplicationOpen
	}
	return exam.StatusUpcoming
}

// PullSources fetches every configured feed and ingests the result. Invoked
// on the six-hour cadence; SCRAPER_SOURCES is a comma-separated URL list.
func (s *Service) PullSources(ctx context.Context) (int, error) {
	raw := os.Getenv("SCRAPER_SOURCES")
	if raw == "" {
		return 0, nil
	}

	total := 0
	for _, url := range strings.Split(raw, ",") {
		url = strings.TrimSpace(url)
		if url == "" {
			continue
		}

		var records []ScrapedNotification
		if err := s.client.FetchJSON(ctx, url, &records); err != nil {
			// One dead source must not starve the others.
			s.log.Errorw("Source pull failed", "url", url, "error", err)
			continue
		}
		created, err := s.IngestNotifications(ctx, records)
		total += created
		if err != nil {
			s.log.Errorw("Source ingestion failed", "url", url, "error", err)
		}
	}
	return total, nil
}
