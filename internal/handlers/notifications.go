package handlers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ecoh2o/portal/internal/domain"
	"github.com/ecoh2o/portal/internal/middleware"
)

// NotificationHandler is the plain-HTTP fallback for notification actions when
// no websocket stream is open.
type NotificationHandler struct {
	notifications domain.NotificationRepository
}

func NewNotificationHandler(notifications domain.NotificationRepository) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// List returns the signed-in customer's notifications, newest first.
func (h *NotificationHandler) List(c echo.Context) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		return echo.NewHTTPError(http.StatusUnauthorized)
	}
	notifs, err := h.notifications.ListByOwner(c.Request().Context(), user.ID.String())
	if err != nil {
		slog.Error("Failed to list notifications", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError)
	}
	return c.JSON(http.StatusOK, notifs)
}

// MarkRead flips a single notification to read. Ownership is checked before
// writing so a customer cannot mark someone else's rows.
func (h *NotificationHandler) MarkRead(c echo.Context) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		return echo.NewHTTPError(http.StatusUnauthorized)
	}
	recordID := c.Param("id")
	if recordID == "" {
		return echo.NewHTTPError(http.StatusBadRequest)
	}

	notifs, err := h.notifications.ListByOwner(c.Request().Context(), user.ID.String())
	if err != nil {
		slog.Error("Failed to list notifications", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError)
	}
	owned := false
	for i := range notifs {
		if notifs[i].RecordID() == recordID {
			owned = true
			break
		}
	}
	if !owned {
		// Same silent behaviour as the realtime path: unknown ids are ignored.
		return c.NoContent(http.StatusNoContent)
	}

	if err := h.notifications.MarkRead(c.Request().Context(), recordID); err != nil {
		slog.Error("Failed to mark notification as read", "error", err, "record_id", recordID)
		return echo.NewHTTPError(http.StatusInternalServerError)
	}
	return c.NoContent(http.StatusNoContent)
}
