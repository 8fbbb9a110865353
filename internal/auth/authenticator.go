package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/mindful-app/realtime-service/internal/errs"
	"github.com/mindful-app/realtime-service/internal/model"
)

// UserFinder resolves a token subject to a user.
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// Authenticator validates handshake credentials. It is evaluated once per
// connection attempt; a client reconnects to retry.
type Authenticator struct {
	tokens *Tokens
	users  UserFinder
}

// NewAuthenticator creates an authenticator over the given verifier and user lookup.
func NewAuthenticator(tokens *Tokens, users UserFinder) *Authenticator {
	return &Authenticator{tokens: tokens, users: users}
}

// Authenticate resolves token to a user. Every failure wraps errs.ErrAuthentication.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: missing token", errs.ErrAuthentication)
	}
	userID, err := a.tokens.Verify(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrAuthentication, err)
	}
	user, err := a.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown user", errs.ErrAuthentication)
		}
		return nil, fmt.Errorf("%w: lookup user: %v", errs.ErrAuthentication, err)
	}
	return user, nil
}

// TokenFromRequest extracts the bearer credential from the Authorization header,
// falling back to the "token" query parameter for browser WebSocket clients.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	return r.URL.Query().Get("token")
}
