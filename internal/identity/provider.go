// Package identity abstracts the managed authentication service the
// storefront delegates to. The storefront core never inspects credentials
// itself; it reacts to session lifecycle events.
package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidToken       = errors.New("invalid or expired session token")
)

// Session is an authenticated user session.
type Session struct {
	Token     string    `json:"token"`
	UserID    uuid.UUID `json:"user_id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	ExpiresAt time.Time `json:"expires_at"`
}

type EventKind string

const (
	SessionStarted EventKind = "session_started"
	SessionEnded   EventKind = "session_ended"
)

// Event describes a session lifecycle change. Handlers run synchronously in
// the order of subscription; anything slow belongs in a goroutine spawned by
// the handler, after it has recorded the state change.
type Event struct {
	Kind  EventKind
	Email string
}

// Provider defines the external identity collaborator.
type Provider interface {
	// SignIn authenticates the credentials and starts a session.
	// Returns ErrInvalidCredentials when they do not match a known user.
	SignIn(ctx context.Context, email, password string) (*Session, error)

	// SignUp registers a new user and starts a session.
	// Returns ErrEmailTaken when the email is already registered.
	SignUp(ctx context.Context, email, password, fullName string) (*Session, error)

	// SignOut ends the session for the given token. Unknown tokens are not an
	// error; the session is gone either way.
	SignOut(ctx context.Context, token string) error

	// Verify checks a token and returns its session.
	// Returns ErrInvalidToken when the token is unknown, revoked or expired.
	Verify(ctx context.Context, token string) (*Session, error)

	// Subscribe registers fn for session lifecycle events. The returned
	// function removes the subscription.
	Subscribe(fn func(Event)) func()
}
