package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ecoh2o/portal/internal/domain"
)

// UserContextKey is where the authenticated user is stored on the echo context.
const UserContextKey = "user"

// Auth creates a middleware that protects routes requiring authentication.
func Auth(users domain.UserRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie("auth_token")
			if err != nil || cookie.Value == "" {
				return c.Redirect(http.StatusSeeOther, "/auth/login")
			}

			user, err := users.Authenticate(c.Request().Context(), cookie.Value)
			if err != nil || user == nil {
				// Invalid or expired token. Clear the cookie so the browser
				// doesn't keep re-submitting it.
				c.SetCookie(&http.Cookie{
					Name:   "auth_token",
					Value:  "",
					Path:   "/",
					MaxAge: -1,
				})
				return c.Redirect(http.StatusSeeOther, "/auth/login")
			}

			c.Set(UserContextKey, user)
			return next(c)
		}
	}
}

// CurrentUser returns the authenticated user stored by Auth, or nil.
func CurrentUser(c echo.Context) *domain.User {
	user, _ := c.Get(UserContextKey).(*domain.User)
	return user
}
