package exam

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"ExamPortal/internal/realtime"
)

// Service carries the exam CRUD side effects the notification core owns:
// pushing exam:new / exam:updated to live sockets. The CRUD body itself
// belongs to the main API.
type Service struct {
	repo     *Repository
	delivery realtime.Broadcaster
	log      *zap.SugaredLogger
}

func NewService(repo *Repository, delivery realtime.Broadcaster, log *zap.SugaredLogger) *Service {
	if delivery == nil {
		delivery = realtime.NopBroadcaster{}
	}
	return &Service{repo: repo, delivery: delivery, log: log}
}

func (s *Service) Create(ctx context.Context, e *Exam) error {
	if e.Status != "" && !e.Status.Valid() {
		return ErrInvalidStatus
	}
	if err := s.repo.Create(ctx, e); err != nil {
		return err
	}
	s.delivery.SendToAll("exam:new", e.Payload())
	return nil
}

func (s *Service) Update(ctx context.Context, id primitive.ObjectID, fields bson.M) (*Exam, error) {
	if raw, ok := fields["status"]; ok {
		status, isString := raw.(string)
		if !isString || !Status(status).Valid() {
			return nil, ErrInvalidStatus
		}
	}
	e, err := s.repo.Update(ctx, id, fields)
	if err != nil {
		return nil, err
	}
	s.delivery.SendToExam(e.ID.Hex(), "exam:updated", e.Payload())
	return e, nil
}

func (s *Service) Get(ctx context.Context, id primitive.ObjectID) (*Exam, error) {
	return s.repo.FindByID(ctx, id)
}
