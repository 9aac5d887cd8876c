package preferences

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"research-backend/internal/shared/server/middleware"
	"research-backend/internal/shared/server/respond"
	"research-backend/internal/shared/storage/kv"
	"research-backend/internal/shared/util"
)

// ThemeSlotKey holds the user's theme preference.
const ThemeSlotKey = "phd-theme"

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// DefaultTheme applies when nothing has been stored.
const DefaultTheme = ThemeLight

var ErrInvalidTheme = errors.New("theme must be light or dark")

// Service reads and writes the theme slot.
type Service struct {
	Slots kv.Store
}

func NewService(slots kv.Store) *Service {
	return &Service{Slots: slots}
}

// Theme returns the stored theme, or DefaultTheme when unset or unrecognized.
func (s *Service) Theme(ctx context.Context, userID string) (Theme, error) {
	raw, err := s.Slots.Get(ctx, util.UserNamespace(userID), ThemeSlotKey)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return DefaultTheme, nil
		}
		return "", err
	}
	theme := Theme(raw)
	if theme != ThemeLight && theme != ThemeDark {
		return DefaultTheme, nil
	}
	return theme, nil
}

// SetTheme stores theme as a plain string.
func (s *Service) SetTheme(ctx context.Context, userID string, theme Theme) error {
	if theme != ThemeLight && theme != ThemeDark {
		return fmt.Errorf("%w: %q", ErrInvalidTheme, theme)
	}
	return s.Slots.Put(ctx, util.UserNamespace(userID), ThemeSlotKey, []byte(theme))
}

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/preferences/theme", h.get)
	rg.PUT("/preferences/theme", h.put)
}

type themeBody struct {
	Theme Theme `json:"theme"`
}

func (h *Handler) get(c *gin.Context) {
	theme, err := h.Svc.Theme(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load preferences", nil)
		return
	}
	respond.OK(c, themeBody{Theme: theme})
}

func (h *Handler) put(c *gin.Context) {
	var req themeBody
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	if err := h.Svc.SetTheme(c.Request.Context(), middleware.UserIDFromContext(c), req.Theme); err != nil {
		if errors.Is(err, ErrInvalidTheme) {
			respond.Error(c, http.StatusBadRequest, "validation_error", ErrInvalidTheme.Error(), nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to save preferences", nil)
		return
	}
	respond.OK(c, req)
}
