package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ecoh2o/portal/internal/catalog"
	"github.com/ecoh2o/portal/internal/domain"
	"github.com/ecoh2o/portal/internal/metrics"
	"github.com/ecoh2o/portal/internal/middleware"
	"github.com/ecoh2o/portal/internal/view"
)

// SubscriptionHandler handles waste-collection subscriptions.
type SubscriptionHandler struct {
	subs          domain.SubscriptionRepository
	notifications domain.NotificationRepository
}

func NewSubscriptionHandler(subs domain.SubscriptionRepository, notifications domain.NotificationRepository) *SubscriptionHandler {
	return &SubscriptionHandler{subs: subs, notifications: notifications}
}

// Create activates a waste-collection plan for the signed-in customer. The
// first pickup is scheduled a week out; collection routes are planned weekly.
func (h *SubscriptionHandler) Create(c echo.Context) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		return c.Redirect(http.StatusSeeOther, "/auth/login")
	}

	var req SubscribeRequest
	if err := c.Bind(&req); err != nil {
		view.SetFlashError(c, "Formulaire invalide.")
		return c.Redirect(http.StatusSeeOther, "/portal")
	}
	if err := c.Validate(&req); err != nil {
		view.SetFlashError(c, "Vérifiez les champs de l'abonnement.")
		return c.Redirect(http.StatusSeeOther, "/portal")
	}

	plan, err := catalog.PlanByName(req.Plan)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			view.SetFlashError(c, "Formule inconnue.")
			return c.Redirect(http.StatusSeeOther, "/portal")
		}
		return err
	}

	nextPickup := time.Now().UTC().AddDate(0, 0, 7).Format(time.RFC3339)
	sub := &domain.WasteSubscription{
		OwnerID:          user.ID.String(),
		SubscriptionType: plan.Name,
		Frequency:        plan.Frequency,
		Price:            plan.Price,
		Address:          req.Address,
		Phone:            req.Phone,
		Status:           domain.SubscriptionStatusActive,
		NextPickup:       &nextPickup,
	}

	if _, err := h.subs.Create(c.Request().Context(), sub); err != nil {
		slog.Error("Failed to create subscription", "error", err, "user", user.Email)
		view.SetFlashError(c, "Impossible d'activer votre abonnement. Réessayez.")
		return c.Redirect(http.StatusSeeOther, "/portal")
	}
	metrics.SubscriptionsCreated.Inc()

	notif := &domain.Notification{
		OwnerID: user.ID.String(),
		Title:   "Abonnement activé !",
		Message: fmt.Sprintf("Votre abonnement %s (%d FCFA/mois) est actif. Premier ramassage prévu sous 7 jours.", plan.Name, plan.Price),
		Type:    domain.NotificationTypeSuccess,
	}
	if _, err := h.notifications.Create(c.Request().Context(), notif); err != nil {
		slog.Error("Failed to create subscription notification", "error", err)
	}

	view.SetFlashSuccess(c, "Abonnement activé !")
	return c.Redirect(http.StatusSeeOther, "/portal")
}
