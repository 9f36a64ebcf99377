package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ecoh2o/portal/internal/domain"
	"github.com/ecoh2o/portal/internal/metrics"
	"github.com/ecoh2o/portal/internal/session"
	"github.com/ecoh2o/portal/internal/view"
)

// AuthHandler handles authentication-related requests. Each request gets its
// own session manager instance from the factory, so nothing authentication-
// related is shared between callers.
type AuthHandler struct {
	newManager func() *session.Manager
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(newManager func() *session.Manager) *AuthHandler {
	return &AuthHandler{newManager: newManager}
}

// LoginPost handles the form submission for signing a user in.
func (h *AuthHandler) LoginPost(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		view.SetFlashError(c, "Formulaire invalide.")
		return c.Redirect(http.StatusSeeOther, "/auth/login")
	}
	if err := c.Validate(&req); err != nil {
		view.SetFlashError(c, "Email ou mot de passe invalide.")
		return c.Redirect(http.StatusSeeOther, "/auth/login")
	}

	mgr := h.newManager()
	_, err := mgr.SignIn(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			metrics.SignInFailures.Inc()
			slog.Warn("Failed login attempt", "email", req.Email)
			view.SetFlashError(c, "Email ou mot de passe incorrect.")
		} else {
			slog.Error("Sign-in failed", "error", err)
			view.SetFlashError(c, "Une erreur inattendue s'est produite. Réessayez.")
		}
		return c.Redirect(http.StatusSeeOther, "/auth/login")
	}

	setAuthCookie(c, mgr.Token())
	view.SetFlashSuccess(c, "Connexion réussie !")
	return c.Redirect(http.StatusSeeOther, "/portal")
}

// RegisterPost handles the form submission for creating a new account.
func (h *AuthHandler) RegisterPost(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		view.SetFlashError(c, "Formulaire invalide.")
		return c.Redirect(http.StatusSeeOther, "/auth/register")
	}
	if err := c.Validate(&req); err != nil {
		view.SetFlashError(c, "Vérifiez le nom, l'email et le mot de passe (6 caractères minimum).")
		return c.Redirect(http.StatusSeeOther, "/auth/register")
	}

	mgr := h.newManager()
	_, err := mgr.SignUp(c.Request().Context(), req.Email, req.Password, req.Name)
	if err != nil {
		if errors.Is(err, domain.ErrUserAlreadyExists) {
			view.SetFlashError(c, "Un compte avec cet email existe déjà. Connectez-vous.")
		} else {
			slog.Error("Sign-up failed", "error", err)
			view.SetFlashError(c, "Impossible de créer votre compte.")
		}
		return c.Redirect(http.StatusSeeOther, "/auth/register")
	}

	// The provider signs the new account in as part of sign-up, so the
	// session cookie can be set right away.
	setAuthCookie(c, mgr.Token())
	view.SetFlashSuccess(c, "Votre compte a été créé avec succès !")
	return c.Redirect(http.StatusSeeOther, "/portal")
}

// Logout signs the user out by expiring their session cookie.
func (h *AuthHandler) Logout(c echo.Context) error {
	setAuthCookie(c, "")
	view.SetFlashSuccess(c, "Vous avez été déconnecté.")
	return c.Redirect(http.StatusSeeOther, "/")
}

// setAuthCookie creates and sets the authentication cookie. An empty token
// expires the cookie immediately, which is how logout works.
func setAuthCookie(c echo.Context, token string) {
	cookie := new(http.Cookie)
	cookie.Name = "auth_token"
	cookie.Value = token
	cookie.Path = "/"
	if token == "" {
		cookie.MaxAge = -1
	} else {
		cookie.Expires = time.Now().UTC().Add(24 * time.Hour)
	}
	// HttpOnly keeps the token away from page scripts; Secure engages under
	// TLS; Lax is enough CSRF protection for a cookie only read server-side.
	cookie.HttpOnly = true
	cookie.Secure = c.Request().TLS != nil
	cookie.SameSite = http.SameSiteLaxMode
	c.SetCookie(cookie)
}
