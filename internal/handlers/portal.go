package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ecoh2o/portal/internal/domain"
	"github.com/ecoh2o/portal/internal/middleware"
	"github.com/ecoh2o/portal/internal/session"
	"github.com/ecoh2o/portal/internal/view"
)

// PortalHandler serves the customer portal overview and profile updates.
type PortalHandler struct {
	orders        domain.OrderRepository
	subs          domain.SubscriptionRepository
	notifications domain.NotificationRepository
	profiles      domain.ProfileRepository
	newManager    func() *session.Manager
}

func NewPortalHandler(
	orders domain.OrderRepository,
	subs domain.SubscriptionRepository,
	notifications domain.NotificationRepository,
	profiles domain.ProfileRepository,
	newManager func() *session.Manager,
) *PortalHandler {
	return &PortalHandler{
		orders:        orders,
		subs:          subs,
		notifications: notifications,
		profiles:      profiles,
		newManager:    newManager,
	}
}

// overviewResponse is the initial portal snapshot. Live updates after this
// point arrive over the websocket stream.
type overviewResponse struct {
	Profile       *domain.Profile            `json:"profile"`
	Orders        []domain.Order             `json:"orders"`
	Subscriptions []domain.WasteSubscription `json:"subscriptions"`
	Notifications []domain.Notification      `json:"notifications"`
	UnreadCount   int                        `json:"unread_count"`
	Flashes       map[string][]interface{}   `json:"flashes,omitempty"`
}

// Overview returns everything the portal needs to render its first paint.
func (h *PortalHandler) Overview(c echo.Context) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		return c.Redirect(http.StatusSeeOther, "/auth/login")
	}
	ctx := c.Request().Context()
	owner := user.ID.String()

	profile, err := h.profiles.FindByOwner(ctx, owner)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		slog.Error("Failed to load profile", "error", err)
	}
	orders, err := h.orders.ListByOwner(ctx, owner)
	if err != nil {
		slog.Error("Failed to load orders", "error", err)
	}
	subs, err := h.subs.ListByOwner(ctx, owner)
	if err != nil {
		slog.Error("Failed to load subscriptions", "error", err)
	}
	notifs, err := h.notifications.ListByOwner(ctx, owner)
	if err != nil {
		slog.Error("Failed to load notifications", "error", err)
	}

	unread := 0
	for _, n := range notifs {
		if !n.IsRead {
			unread++
		}
	}

	return c.JSON(http.StatusOK, overviewResponse{
		Profile:       profile,
		Orders:        orders,
		Subscriptions: subs,
		Notifications: notifs,
		UnreadCount:   unread,
		Flashes:       view.GetFlashes(c),
	})
}

// UpdateProfile applies a partial profile edit through the session manager so
// the in-memory profile stays in step with what was persisted.
func (h *PortalHandler) UpdateProfile(c echo.Context) error {
	cookie, err := c.Cookie("auth_token")
	if err != nil || cookie.Value == "" {
		return c.Redirect(http.StatusSeeOther, "/auth/login")
	}

	var req UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		view.SetFlashError(c, "Formulaire invalide.")
		return c.Redirect(http.StatusSeeOther, "/portal")
	}
	if err := c.Validate(&req); err != nil {
		view.SetFlashError(c, "Vérifiez les champs du profil.")
		return c.Redirect(http.StatusSeeOther, "/portal")
	}

	mgr := h.newManager()
	mgr.Restore(c.Request().Context(), cookie.Value)
	if _, state := mgr.Current(); state != session.StateAuthenticated {
		return c.Redirect(http.StatusSeeOther, "/auth/login")
	}

	// Empty form fields mean "leave untouched", so only filled-in values make
	// it into the merge.
	var update domain.ProfileUpdate
	if req.FullName != "" {
		update.FullName = &req.FullName
	}
	if req.Phone != "" {
		update.Phone = &req.Phone
	}
	if req.Address != "" {
		update.Address = &req.Address
	}
	if err := mgr.UpdateProfile(c.Request().Context(), update); err != nil {
		slog.Error("Failed to update profile", "error", err)
		view.SetFlashError(c, "Impossible de mettre à jour votre profil.")
		return c.Redirect(http.StatusSeeOther, "/portal")
	}

	view.SetFlashSuccess(c, "Profil mis à jour.")
	return c.Redirect(http.StatusSeeOther, "/portal")
}
