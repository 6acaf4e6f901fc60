package notice

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"NoticeBoard/internal/auth"
	"NoticeBoard/pkg/validate"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type Handler struct {
	service *Service
	log     *zap.Logger
}

func NewHandler(service *Service, log *zap.Logger) *Handler {
	return &Handler{service: service, log: log}
}

// Create handles POST /admin/notices.
func (h *Handler) Create(c echo.Context) error {
	subject, ok := subjectID(c)
	if !ok {
		return unauthorized(c)
	}
	var req createNoticeRequest
	files, err := bindNotice(c, &req)
	if err != nil {
		return validationError(c, err)
	}
	uploads, closeAll, err := openUploads(files)
	if err != nil {
		return h.serverError(c, "Error creating notice", err)
	}
	defer closeAll()

	in := req.input()
	in.Files = uploads
	n, err := h.service.Create(c.Request().Context(), subject, in)
	if err != nil {
		return h.fail(c, "Error creating notice", err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "Notice created successfully",
		"notice":  n,
	})
}

// Update handles PUT /admin/update-notices/:id.
func (h *Handler) Update(c echo.Context) error {
	subject, ok := subjectID(c)
	if !ok {
		return unauthorized(c)
	}
	noticeID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return notFound(c, "Notice not found or not authorized to update")
	}
	var req updateNoticeRequest
	files, err := bindNotice(c, &req)
	if err != nil {
		return validationError(c, err)
	}
	uploads, closeAll, err := openUploads(files)
	if err != nil {
		return h.serverError(c, "Error updating notice", err)
	}
	defer closeAll()

	patch := req.patch()
	n, err := h.service.Update(c.Request().Context(), subject, noticeID, patch, uploads)
	if errors.Is(err, ErrNotFound) {
		return notFound(c, "Notice not found or not authorized to update")
	}
	if err != nil {
		return h.fail(c, "Error updating notice", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Notice updated successfully",
		"notice":  n,
	})
}

// Delete handles DELETE /admin/delete-notices/:id.
func (h *Handler) Delete(c echo.Context) error {
	subject, ok := subjectID(c)
	if !ok {
		return unauthorized(c)
	}
	noticeID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return notFound(c, "Notice not found or not authorized to delete")
	}

	err = h.service.Delete(c.Request().Context(), subject, noticeID)
	if errors.Is(err, ErrNotFound) {
		return notFound(c, "Notice not found or not authorized to delete")
	}
	if err != nil {
		return h.fail(c, "Error deleting notice", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Notice deleted successfully",
	})
}

// ListOwn handles GET /admin/get-notices.
func (h *Handler) ListOwn(c echo.Context) error {
	subject, ok := subjectID(c)
	if !ok {
		return unauthorized(c)
	}
	notices, err := h.service.ListOwn(c.Request().Context(), subject)
	if errors.Is(err, ErrNotFound) {
		return notFound(c, "No notices found")
	}
	if err != nil {
		return h.fail(c, "Error fetching notices", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"count":   len(notices),
		"notices": notices,
	})
}

// ListForDepartment handles GET /user/notices.
func (h *Handler) ListForDepartment(c echo.Context) error {
	subject, ok := subjectID(c)
	if !ok {
		return unauthorized(c)
	}
	notices, err := h.service.ListForDepartment(c.Request().Context(), subject)
	if errors.Is(err, ErrReaderNotFound) {
		return notFound(c, "User not found")
	}
	if err != nil {
		return h.fail(c, "Error fetching notices", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"count":   len(notices),
		"data":    notices,
	})
}

func subjectID(c echo.Context) (primitive.ObjectID, bool) {
	claims := auth.ClaimsFrom(c)
	if claims == nil {
		return primitive.NilObjectID, false
	}
	id, err := claims.SubjectID()
	if err != nil || id.IsZero() {
		return primitive.NilObjectID, false
	}
	return id, true
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, map[string]interface{}{
		"success": false,
		"message": "Unauthorized: Admin ID not found",
	})
}

func notFound(c echo.Context, msg string) error {
	return c.JSON(http.StatusNotFound, map[string]interface{}{
		"success": false,
		"message": msg,
	})
}

// validationError reports the first violation carried by a bind, validate
// or upload-limit error.
func validationError(c echo.Context, err error) error {
	var (
		he  *echo.HTTPError
		msg string
	)
	switch {
	case errors.As(err, &he):
		msg = fmt.Sprint(he.Message)
	case errors.Is(err, errBadForm):
		msg = strings.TrimPrefix(err.Error(), errBadForm.Error()+": ")
	default:
		msg = validate.Message(err)
	}
	return c.JSON(http.StatusBadRequest, map[string]interface{}{
		"success": false,
		"message": "Validation error",
		"errors":  []string{msg},
	})
}

func (h *Handler) fail(c echo.Context, msg string, err error) error {
	if errors.Is(err, ErrUnauthorized) {
		return unauthorized(c)
	}
	return h.serverError(c, msg, err)
}

func (h *Handler) serverError(c echo.Context, msg string, err error) error {
	h.log.Error(msg, zap.String("path", c.Path()), zap.Error(err))
	return c.JSON(http.StatusInternalServerError, map[string]interface{}{
		"success": false,
		"message": msg,
		"error":   err.Error(),
	})
}
