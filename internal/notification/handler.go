package notification

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"ExamPortal/internal/auth"
)

// Handler handles HTTP requests for notifications.
type Handler struct {
	service  *Service
	repo     *Repository
	users    *auth.UserRepository
	validate *validator.Validate
}

// NewHandler creates a new notification handler.
func NewHandler(service *Service, repo *Repository, users *auth.UserRepository) *Handler {
	return &Handler{
		service:  service,
		repo:     repo,
		users:    users,
		validate: validator.New(),
	}
}

// CreateNotificationRequest is the admin-authored creation payload.
type CreateNotificationRequest struct {
	Title          string     `json:"title" validate:"required,max=200"`
	Message        string     `json:"message" validate:"required"`
	Link           string     `json:"link" validate:"omitempty,url"`
	Icon           string     `json:"icon"`
	Color          string     `json:"color"`
	Type           string     `json:"type" validate:"required,oneof=exam-update result admit-card new-vacancy deadline resource system urgent"`
	Priority       string     `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	TargetAudience string     `json:"target_audience" validate:"omitempty,oneof=all subscribers specific-users"`
	TargetUsers    []string   `json:"target_users"`
	TargetExams    []string   `json:"target_exams"`
	Exam           string     `json:"exam"`
	Resource       string     `json:"resource"`
	ExpiresAt      *time.Time `json:"expires_at"`
}

// Create handles POST /notifications (admin).
func (h *Handler) Create(c echo.Context) error {
	var req CreateNotificationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	n, err := req.toNotification()
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	if err := h.service.Publish(c.Request().Context(), n); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, n)
}

func (req *CreateNotificationRequest) toNotification() (*Notification, error) {
	n := &Notification{
		Title:          req.Title,
		Message:        req.Message,
		Link:           req.Link,
		Icon:           req.Icon,
		Color:          req.Color,
		Type:           Type(req.Type),
		Priority:       Priority(req.Priority),
		TargetAudience: Audience(req.TargetAudience),
		ExpiresAt:      req.ExpiresAt,
	}
	for _, raw := range req.TargetUsers {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			return nil, errors.New("invalid user id in target_users")
		}
		n.TargetUsers = append(n.TargetUsers, id)
	}
	for _, raw := range req.TargetExams {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			return nil, errors.New("invalid exam id in target_exams")
		}
		n.TargetExams = append(n.TargetExams, id)
	}
	if req.Exam != "" {
		id, err := primitive.ObjectIDFromHex(req.Exam)
		if err != nil {
			return nil, errors.New("invalid exam id")
		}
		n.Exam = &id
	}
	if req.Resource != "" {
		id, err := primitive.ObjectIDFromHex(req.Resource)
		if err != nil {
			return nil, errors.New("invalid resource id")
		}
		n.Resource = &id
	}
	return n, nil
}

// Ticker handles GET /notifications/ticker (public): the latest headline
// notifications, capped at ten, newest first.
func (h *Handler) Ticker(c echo.Context) error {
	notifications, err := h.repo.Ticker(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, notifications)
}

// ListMine handles GET /notifications/me: notifications matching the caller's
// audience filter, annotated with the caller's read state. ?unreadOnly=true
// restricts to unread ones.
func (h *Handler) ListMine(c echo.Context) error {
	userID, err := requesterID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid identity"})
	}

	ctx := c.Request().Context()
	subscribed, err := h.users.SubscribedExamIDs(ctx, userID)
	if err != nil {
		return writeError(c, err)
	}

	unreadOnly := c.QueryParam("unreadOnly") == "true"
	notifications, err := h.repo.ListForUser(ctx, userID, subscribed, unreadOnly, 100)
	if err != nil {
		return writeError(c, err)
	}

	views := make([]UserView, 0, len(notifications))
	for _, n := range notifications {
		views = append(views, n.ForUser(userID))
	}
	return c.JSON(http.StatusOK, views)
}

// UnreadCount handles GET /notifications/me/unread-count.
func (h *Handler) UnreadCount(c echo.Context) error {
	userID, err := requesterID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid identity"})
	}

	ctx := c.Request().Context()
	subscribed, err := h.users.SubscribedExamIDs(ctx, userID)
	if err != nil {
		return writeError(c, err)
	}
	count, err := h.service.UnreadCount(ctx, userID, subscribed)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]int64{"unread": count})
}

// MarkRead handles PUT /notifications/:id/read. Idempotent.
func (h *Handler) MarkRead(c echo.Context) error {
	userID, err := requesterID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid identity"})
	}
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid notification id"})
	}

	if err := h.service.MarkRead(c.Request().Context(), id, userID); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Notification marked as read"})
}

// MarkAllRead handles PUT /notifications/read-all.
func (h *Handler) MarkAllRead(c echo.Context) error {
	userID, err := requesterID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid identity"})
	}

	ctx := c.Request().Context()
	subscribed, err := h.users.SubscribedExamIDs(ctx, userID)
	if err != nil {
		return writeError(c, err)
	}
	marked, err := h.service.MarkAllRead(ctx, userID, subscribed)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]int64{"marked": marked})
}

// Delete handles DELETE /notifications/:id (admin).
func (h *Handler) Delete(c echo.Context) error {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid notification id"})
	}
	if err := h.repo.Delete(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Notification deleted"})
}

func requesterID(c echo.Context) (primitive.ObjectID, error) {
	claims, ok := c.Get("user").(*auth.JWTClaims)
	if !ok || claims == nil {
		return primitive.NilObjectID, errors.New("missing claims")
	}
	return primitive.ObjectIDFromHex(claims.UserID)
}

// writeError maps store errors onto the API error shape.
func writeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrInvalidType),
		errors.Is(err, ErrInvalidAudience),
		errors.Is(err, ErrInvalidPriority),
		errors.Is(err, ErrEmptyTargetUsers),
		errors.Is(err, ErrMissingContent),
		errors.Is(err, ErrTitleTooLong):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
}
