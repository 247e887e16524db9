package notification

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"ExamPortal/internal/realtime"
)

// Store is the slice of the repository the service needs: creation plus the
// dedup probes for the producers, and the read-state mutations. *Repository
// implements it; tests substitute an in-memory fake.
type Store interface {
	Create(ctx context.Context, n *Notification) error
	FindByTitleAndSource(ctx context.Context, title, source string) (*Notification, error)
	ExistsDeadlineSince(ctx context.Context, examID primitive.ObjectID, since time.Time) (bool, error)
	MarkRead(ctx context.Context, id, userID primitive.ObjectID) error
	MarkAllRead(ctx context.Context, userID primitive.ObjectID, subscribedExams []primitive.ObjectID) (int64, error)
	UnreadCount(ctx context.Context, userID primitive.ObjectID, subscribedExams []primitive.ObjectID) (int64, error)
}

// Directory resolves user ids to email addresses. Implemented by
// auth.UserRepository.
type Directory interface {
	EmailsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]string, error)
}

// Mailer is the optional email channel for urgent notifications.
type Mailer interface {
	Enabled() bool
	SendEmail(to, subject, body string) error
}

// Service implements the notification producers. Every producer follows the
// same protocol: persist first, then deliver. A persistence failure aborts the
// invocation before any socket push; a failed or recipient-less push is never
// retried (the record remains pollable).
type Service struct {
	store    Store
	delivery realtime.Broadcaster
	users    Directory
	mailer   Mailer
	log      *zap.SugaredLogger
}

func NewService(store Store, delivery realtime.Broadcaster, users Directory, mailer Mailer, log *zap.SugaredLogger) *Service {
	if delivery == nil {
		// No live transport yet: pushes silently go nowhere.
		delivery = realtime.NopBroadcaster{}
	}
	return &Service{store: store, delivery: delivery, users: users, mailer: mailer, log: log}
}

// validate enforces the creation invariants shared by all producers.
func validate(n *Notification) error {
	if n.Title == "" || n.Message == "" {
		return ErrMissingContent
	}
	if utf8.RuneCountInString(n.Title) > MaxTitleLength {
		return ErrTitleTooLong
	}
	if !n.Type.Valid() {
		return ErrInvalidType
	}
	if n.TargetAudience != "" && !n.TargetAudience.Valid() {
		return ErrInvalidAudience
	}
	if n.Priority != "" && !n.Priority.Valid() {
		return ErrInvalidPriority
	}
	if n.TargetAudience == AudienceSpecificUsers && len(n.TargetUsers) == 0 {
		return ErrEmptyTargetUsers
	}
	return nil
}

// Publish is the admin-authored producer: persist, then route by audience.
func (s *Service) Publish(ctx context.Context, n *Notification) error {
	if err := validate(n); err != nil {
		return err
	}
	if err := s.store.Create(ctx, n); err != nil {
		return fmt.Errorf("failed to persist notification: %w", err)
	}

	s.route(n)

	if n.Priority == PriorityUrgent {
		s.emailTargets(ctx, n)
	}
	return nil
}

// route applies the delivery addressing rules. A notification matching none
// of them stays persisted but undelivered.
func (s *Service) route(n *Notification) {
	payload := n.Payload()
	switch {
	case n.TargetAudience == AudienceAll:
		s.delivery.SendToAll("notification:new", payload)
	case len(n.TargetExams) > 0:
		for _, examID := range n.TargetExams {
			s.delivery.SendToExam(examID.Hex(), "notification:new", payload)
		}
	case len(n.TargetUsers) > 0:
		for _, userID := range n.TargetUsers {
			s.delivery.SendToUser(userID.Hex(), "notification:new", payload)
		}
	}
}

// emailTargets additionally emails directly targeted users of an urgent
// notification. Failures are logged, never retried.
func (s *Service) emailTargets(ctx context.Context, n *Notification) {
	if s.mailer == nil || !s.mailer.Enabled() || len(n.TargetUsers) == 0 {
		return
	}
	emails, err := s.users.EmailsByIDs(ctx, n.TargetUsers)
	if err != nil {
		s.log.Errorw("Failed to resolve urgent notification recipients", "error", err)
		return
	}
	for _, to := range emails {
		if err := s.mailer.SendEmail(to, n.Title, n.Message); err != nil {
			s.log.Errorw("Failed to email urgent notification", "to", to, "error", err)
		}
	}
}

// MarkRead records that the user read the notification. Idempotent: the store
// appends a receipt only when none exists for the user, so calling this twice
// leaves a single entry.
func (s *Service) MarkRead(ctx context.Context, id, userID primitive.ObjectID) error {
	return s.store.MarkRead(ctx, id, userID)
}

// MarkAllRead marks every audience-visible notification the user has not read
// yet. Returns how many were marked.
func (s *Service) MarkAllRead(ctx context.Context, userID primitive.ObjectID, subscribedExams []primitive.ObjectID) (int64, error) {
	return s.store.MarkAllRead(ctx, userID, subscribedExams)
}

// UnreadCount reports how many audience-visible notifications the user has
// not read.
func (s *Service) UnreadCount(ctx context.Context, userID primitive.ObjectID, subscribedExams []primitive.ObjectID) (int64, error) {
	return s.store.UnreadCount(ctx, userID, subscribedExams)
}

// Ingest is the scraper-facing producer. Each candidate is deduplicated by
// title and scraped source; new records are persisted and broadcast with the
// public payload subset (provenance stays in the store). Returns how many
// records were created.
func (s *Service) Ingest(ctx context.Context, candidates []*Notification) (int, error) {
	created := 0
	for _, n := range candidates {
		if n.Provenance == nil || n.Provenance.Source == "" {
			s.log.Warnw("Skipping ingestion candidate without provenance", "title", n.Title)
			continue
		}
		if err := validate(n); err != nil {
			s.log.Warnw("Skipping invalid ingestion candidate", "title", n.Title, "error", err)
			continue
		}

		existing, err := s.store.FindByTitleAndSource(ctx, n.Title, n.Provenance.Source)
		if err != nil {
			return created, fmt.Errorf("dedup lookup failed: %w", err)
		}
		if existing != nil {
			continue
		}

		if err := s.store.Create(ctx, n); err != nil {
			return created, fmt.Errorf("failed to persist ingested notification: %w", err)
		}
		s.delivery.SendToAll("notification:new", n.Payload())
		created++
	}
	return created, nil
}

// PublishDeadline is the scheduler-driven producer. At most one deadline
// notification is created per exam per UTC calendar day; re-running the tick
// inside the same day is a no-op. Returns whether a record was created.
func (s *Service) PublishDeadline(ctx context.Context, examID primitive.ObjectID, examName string, daysLeft int) (bool, error) {
	dayStart := time.Now().UTC().Truncate(24 * time.Hour)
	exists, err := s.store.ExistsDeadlineSince(ctx, examID, dayStart)
	if err != nil {
		return false, fmt.Errorf("deadline dedup lookup failed: %w", err)
	}
	if exists {
		return false, nil
	}

	n := &Notification{
		Title:          fmt.Sprintf("Application deadline approaching: %s", examName),
		Message:        fmt.Sprintf("Applications for %s close in %d day(s). Apply before the deadline.", examName, daysLeft),
		Type:           TypeDeadline,
		Priority:       PriorityHigh,
		TargetAudience: AudienceSubscribers,
		TargetExams:    []primitive.ObjectID{examID},
		Exam:           &examID,
	}
	if err := s.store.Create(ctx, n); err != nil {
		return false, fmt.Errorf("failed to persist deadline notification: %w", err)
	}

	s.delivery.SendToAll("notification:deadline", n.DeadlinePayload(examID))
	return true, nil
}
