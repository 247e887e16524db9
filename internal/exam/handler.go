package exam

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Handler exposes the minimal exam endpoints this service owns. Full exam
// CRUD lives in the main API; these exist so admin tools and the scraper can
// create and reclassify exams with the socket side effects attached.
type Handler struct {
	service  *Service
	validate *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service, validate: validator.New()}
}

type CreateExamRequest struct {
	Name                 string     `json:"name" validate:"required,max=300"`
	Category             string     `json:"category" validate:"required"`
	Description          string     `json:"description"`
	Status               string     `json:"status" validate:"omitempty,oneof=upcoming ongoing application-open application-closed completed"`
	ApplicationStartDate *time.Time `json:"application_start_date"`
	ApplicationEndDate   *time.Time `json:"application_end_date"`
	ExamDate             *time.Time `json:"exam_date"`
}

// Create handles POST /exams (admin).
func (h *Handler) Create(c echo.Context) error {
	var req CreateExamRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	e := &Exam{
		Name:        req.Name,
		Category:    req.Category,
		Description: req.Description,
		Status:      Status(req.Status),
		ImportantDates: ImportantDates{
			ApplicationStartDate: req.ApplicationStartDate,
			ApplicationEndDate:   req.ApplicationEndDate,
			ExamDate:             req.ExamDate,
		},
	}
	if err := h.service.Create(c.Request().Context(), e); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, e)
}

// Update handles PUT /exams/:id (admin).
func (h *Handler) Update(c echo.Context) error {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid exam id"})
	}

	var fields bson.M
	if err := c.Bind(&fields); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	e, err := h.service.Update(c.Request().Context(), id, fields)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, e)
}

// Get handles GET /exams/:id.
func (h *Handler) Get(c echo.Context) error {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid exam id"})
	}
	e, err := h.service.Get(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, e)
}

func writeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrInvalidStatus):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
}
