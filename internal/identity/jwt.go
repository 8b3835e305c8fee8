package identity

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SeedUser is a pre-registered account, loaded from configuration. The
// storefront ships with the demo accounts of the original site.
type SeedUser struct {
	Email    string `koanf:"email"`
	Password string `koanf:"password"`
	FullName string `koanf:"fullName"`
}

type user struct {
	id       uuid.UUID
	email    string
	password string
	fullName string
}

// claims carries the session data inside the JWT.
type claims struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	jwt.RegisteredClaims
}

// JWTProvider implements Provider with HMAC-signed JWTs over an in-memory
// user registry. It stands in for the managed auth service; swapping in a
// real backend means implementing Provider, nothing else changes.
type JWTProvider struct {
	mu      sync.Mutex
	secret  []byte
	ttl     time.Duration
	users   map[string]user      // keyed by lowercase email
	revoked map[string]time.Time // jti -> expiry, purged lazily
	subs    map[int]func(Event)
	nextSub int
}

func NewJWTProvider(secret string, ttl time.Duration, seed []SeedUser) *JWTProvider {
	p := &JWTProvider{
		secret:  []byte(secret),
		ttl:     ttl,
		users:   make(map[string]user),
		revoked: make(map[string]time.Time),
		subs:    make(map[int]func(Event)),
	}
	for _, su := range seed {
		email := strings.ToLower(strings.TrimSpace(su.Email))
		p.users[email] = user{
			id:       uuid.New(),
			email:    email,
			password: su.Password,
			fullName: su.FullName,
		}
	}
	return p
}

func (p *JWTProvider) SignIn(_ context.Context, email, password string) (*Session, error) {
	p.mu.Lock()
	u, ok := p.users[strings.ToLower(strings.TrimSpace(email))]
	p.mu.Unlock()
	if !ok || u.password != password {
		return nil, ErrInvalidCredentials
	}

	session, err := p.issue(u)
	if err != nil {
		return nil, err
	}
	p.emit(Event{Kind: SessionStarted, Email: u.email})
	return session, nil
}

func (p *JWTProvider) SignUp(_ context.Context, email, password, fullName string) (*Session, error) {
	key := strings.ToLower(strings.TrimSpace(email))

	p.mu.Lock()
	if _, exists := p.users[key]; exists {
		p.mu.Unlock()
		return nil, ErrEmailTaken
	}
	u := user{id: uuid.New(), email: key, password: password, fullName: fullName}
	p.users[key] = u
	p.mu.Unlock()

	session, err := p.issue(u)
	if err != nil {
		return nil, err
	}
	p.emit(Event{Kind: SessionStarted, Email: u.email})
	return session, nil
}

func (p *JWTProvider) SignOut(ctx context.Context, token string) error {
	session, err := p.Verify(ctx, token)
	if err != nil {
		// Already invalid; the session is gone either way.
		p.emit(Event{Kind: SessionEnded})
		return nil
	}

	parsed, _, err := jwt.NewParser().ParseUnverified(token, &claims{})
	if err == nil {
		if c, ok := parsed.Claims.(*claims); ok && c.ID != "" {
			p.mu.Lock()
			p.revoked[c.ID] = session.ExpiresAt
			p.mu.Unlock()
		}
	}
	p.emit(Event{Kind: SessionEnded, Email: session.Email})
	return nil
}

func (p *JWTProvider) Verify(_ context.Context, token string) (*Session, error) {
	parsed, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return p.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	c, ok := parsed.Claims.(*claims)
	if !ok {
		return nil, ErrInvalidToken
	}

	p.mu.Lock()
	p.purgeRevokedLocked()
	_, revoked := p.revoked[c.ID]
	p.mu.Unlock()
	if revoked {
		return nil, ErrInvalidToken
	}

	userID, err := uuid.Parse(c.Subject)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return &Session{
		Token:     token,
		UserID:    userID,
		Email:     c.Email,
		FullName:  c.FullName,
		ExpiresAt: c.ExpiresAt.Time,
	}, nil
}

func (p *JWTProvider) Subscribe(fn func(Event)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = fn
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.subs, id)
	}
}

func (p *JWTProvider) issue(u user) (*Session, error) {
	now := time.Now()
	expiresAt := now.Add(p.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email:    u.email,
		FullName: u.fullName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.id.String(),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	signed, err := token.SignedString(p.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign session token: %w", err)
	}
	return &Session{
		Token:     signed,
		UserID:    u.id,
		Email:     u.email,
		FullName:  u.fullName,
		ExpiresAt: expiresAt,
	}, nil
}

// emit runs subscribers synchronously, outside the registry lock. State is
// updated before emit is called, so a handler reading back through the
// provider observes the post-change state.
func (p *JWTProvider) emit(event Event) {
	p.mu.Lock()
	fns := make([]func(Event), 0, len(p.subs))
	for _, fn := range p.subs {
		fns = append(fns, fn)
	}
	p.mu.Unlock()
	for _, fn := range fns {
		fn(event)
	}
}

// purgeRevokedLocked drops revocation entries whose tokens have expired on
// their own. Callers must hold mu.
func (p *JWTProvider) purgeRevokedLocked() {
	now := time.Now()
	for jti, exp := range p.revoked {
		if exp.Before(now) {
			delete(p.revoked, jti)
		}
	}
}
