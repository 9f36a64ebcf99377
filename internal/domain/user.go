package domain

import (
	"context"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// User represents an account record as stored by the auth provider.
type User struct {
	ID       *surrealmodels.RecordID `json:"id,omitempty"`
	Email    string                  `json:"email"`
	Password string                  `json:"password,omitempty"`
	Name     *string                 `json:"name,omitempty"`
}

// Identity is the opaque authenticated user handle that scopes all per-user
// data. It exists once sign-in/sign-up succeeds and is cleared on sign-out.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// IdentityOf projects a stored user into the identity handle used for scoping.
func IdentityOf(u *User) Identity {
	id := Identity{Email: u.Email}
	if u.ID != nil {
		id.ID = u.ID.String()
	}
	return id
}

// UserRepository defines the contract for the external auth provider.
// It lives in the domain because it's a requirement OF the domain, not
// of the database implementation.
type UserRepository interface {
	// SignUp creates the backing account and returns a session token.
	// Returns ErrUserAlreadyExists when the email is already registered.
	SignUp(ctx context.Context, user *User, password string) (string, error)
	// SignIn exchanges credentials for a session token.
	// Returns ErrInvalidCredentials when the provider rejects the pair.
	SignIn(ctx context.Context, user *User, password string) (string, error)
	// Authenticate validates a session token and returns the associated user.
	Authenticate(ctx context.Context, token string) (*User, error)
}
