package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ecoh2o/portal/internal/catalog"
	"github.com/ecoh2o/portal/internal/domain"
	"github.com/ecoh2o/portal/internal/metrics"
	"github.com/ecoh2o/portal/internal/middleware"
	"github.com/ecoh2o/portal/internal/view"
)

// OrderHandler handles water order placement for signed-in customers.
type OrderHandler struct {
	orders        domain.OrderRepository
	notifications domain.NotificationRepository
}

func NewOrderHandler(orders domain.OrderRepository, notifications domain.NotificationRepository) *OrderHandler {
	return &OrderHandler{orders: orders, notifications: notifications}
}

// Create places a new order from the portal order form. The order is priced
// from the catalog server-side; the form only names the product and quantity.
func (h *OrderHandler) Create(c echo.Context) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		return c.Redirect(http.StatusSeeOther, "/auth/login")
	}

	var req OrderRequest
	if err := c.Bind(&req); err != nil {
		view.SetFlashError(c, "Formulaire invalide.")
		return c.Redirect(http.StatusSeeOther, "/portal")
	}
	if err := c.Validate(&req); err != nil {
		view.SetFlashError(c, "Vérifiez les champs de la commande.")
		return c.Redirect(http.StatusSeeOther, "/portal")
	}

	product, err := catalog.ProductByID(req.ProductID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			view.SetFlashError(c, "Produit inconnu.")
			return c.Redirect(http.StatusSeeOther, "/portal")
		}
		return err
	}

	order := &domain.Order{
		OwnerID:         user.ID.String(),
		Product:         product.Name,
		Quantity:        req.Quantity,
		UnitPrice:       product.Price,
		TotalPrice:      catalog.Total(product, req.Quantity),
		DeliveryAddress: req.Address,
		Phone:           req.Phone,
		Notes:           req.Notes,
		Status:          domain.OrderStatusPending,
	}

	if _, err := h.orders.Create(c.Request().Context(), order); err != nil {
		slog.Error("Failed to create order", "error", err, "user", user.Email)
		view.SetFlashError(c, "Impossible d'enregistrer votre commande. Réessayez.")
		return c.Redirect(http.StatusSeeOther, "/portal")
	}
	metrics.OrdersPlaced.Inc()

	// The confirmation notification also travels the live feed, which is what
	// pushes the toast to every open portal tab.
	notif := &domain.Notification{
		OwnerID: user.ID.String(),
		Title:   "Commande confirmée !",
		Message: fmt.Sprintf("Votre commande de %d x %s (%d FCFA) a bien été reçue.", req.Quantity, product.Name, order.TotalPrice),
		Type:    domain.NotificationTypeSuccess,
	}
	if _, err := h.notifications.Create(c.Request().Context(), notif); err != nil {
		slog.Error("Failed to create order notification", "error", err)
	}

	view.SetFlashSuccess(c, "Commande confirmée !")
	return c.Redirect(http.StatusSeeOther, "/portal")
}
