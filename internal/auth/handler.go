package auth

import (
	"errors"
	"net/http"

	"NoticeBoard/pkg/validate"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type Handler struct {
	service *Service
	log     *zap.Logger
}

func NewHandler(service *Service, log *zap.Logger) *Handler {
	return &Handler{service: service, log: log}
}

// Signup registers an account of the given role.
func (h *Handler) Signup(role Role) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req SignupRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request"})
		}
		if err := c.Validate(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"message": validate.Message(err)})
		}

		_, err := h.service.Register(c.Request().Context(), role, req)
		switch {
		case err == nil:
			return c.JSON(http.StatusOK, map[string]string{"message": "Signup succeeded"})
		case errors.Is(err, ErrEmailTaken):
			return c.JSON(http.StatusBadRequest, map[string]string{"message": "Email already exists"})
		default:
			h.log.Error("signup failed", zap.String("role", string(role)), zap.Error(err))
			return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal server error"})
		}
	}
}

// Signin exchanges email and password for a bearer token.
func (h *Handler) Signin(role Role) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req SigninRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request"})
		}
		if err := c.Validate(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"message": validate.Message(err)})
		}

		token, err := h.service.Login(c.Request().Context(), role, req)
		switch {
		case err == nil:
			return c.JSON(http.StatusOK, map[string]string{"token": token})
		case errors.Is(err, ErrAccountNotFound):
			return c.JSON(http.StatusBadRequest, map[string]string{"message": "User not found"})
		case errors.Is(err, ErrBadCredentials):
			return c.JSON(http.StatusForbidden, map[string]string{"message": "Incorrect credentials"})
		default:
			h.log.Error("signin failed", zap.String("role", string(role)), zap.Error(err))
			return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal server error"})
		}
	}
}
