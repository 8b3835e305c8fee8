package identity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedUsers() []SeedUser {
	return []SeedUser{
		{Email: "john.doe@example.com", Password: "password123", FullName: "John Doe"},
		{Email: "admin@ecommercehub.com", Password: "admin2024", FullName: "Admin User"},
	}
}

func newProvider(t *testing.T) *JWTProvider {
	t.Helper()
	return NewJWTProvider("test-secret", time.Hour, seedUsers())
}

func TestJWTProvider_SignIn(t *testing.T) {
	ctx := context.Background()
	p := newProvider(t)

	session, err := p.SignIn(ctx, "john.doe@example.com", "password123")
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, "john.doe@example.com", session.Email)
	assert.Equal(t, "John Doe", session.FullName)
	assert.NotZero(t, session.UserID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), session.ExpiresAt, time.Minute)
}

func TestJWTProvider_SignIn_EmailNormalized(t *testing.T) {
	ctx := context.Background()
	p := newProvider(t)

	session, err := p.SignIn(ctx, "  John.Doe@Example.COM ", "password123")
	require.NoError(t, err)
	assert.Equal(t, "john.doe@example.com", session.Email)
}

func TestJWTProvider_SignIn_Rejections(t *testing.T) {
	ctx := context.Background()
	p := newProvider(t)

	_, err := p.SignIn(ctx, "john.doe@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = p.SignIn(ctx, "nobody@example.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestJWTProvider_SignUp(t *testing.T) {
	ctx := context.Background()
	p := newProvider(t)

	session, err := p.SignUp(ctx, "new.user@example.com", "secret-pass", "New User")
	require.NoError(t, err)
	assert.Equal(t, "new.user@example.com", session.Email)

	// the new account can sign in afterwards
	again, err := p.SignIn(ctx, "new.user@example.com", "secret-pass")
	require.NoError(t, err)
	assert.Equal(t, session.UserID, again.UserID)
}

func TestJWTProvider_SignUp_EmailTaken(t *testing.T) {
	ctx := context.Background()
	p := newProvider(t)

	_, err := p.SignUp(ctx, "John.Doe@example.com", "whatever1", "Impostor")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestJWTProvider_Verify(t *testing.T) {
	ctx := context.Background()
	p := newProvider(t)

	session, err := p.SignIn(ctx, "john.doe@example.com", "password123")
	require.NoError(t, err)

	verified, err := p.Verify(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.UserID, verified.UserID)
	assert.Equal(t, session.Email, verified.Email)
	assert.Equal(t, session.FullName, verified.FullName)
}

func TestJWTProvider_Verify_Rejections(t *testing.T) {
	ctx := context.Background()
	p := newProvider(t)

	t.Run("garbage token", func(t *testing.T) {
		_, err := p.Verify(ctx, "not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("token signed with another secret", func(t *testing.T) {
		other := NewJWTProvider("other-secret", time.Hour, seedUsers())
		session, err := other.SignIn(ctx, "john.doe@example.com", "password123")
		require.NoError(t, err)

		_, err = p.Verify(ctx, session.Token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired token", func(t *testing.T) {
		expired := NewJWTProvider("test-secret", -time.Minute, seedUsers())
		session, err := expired.SignIn(ctx, "john.doe@example.com", "password123")
		require.NoError(t, err)

		_, err = p.Verify(ctx, session.Token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestJWTProvider_SignOutRevokesToken(t *testing.T) {
	ctx := context.Background()
	p := newProvider(t)

	session, err := p.SignIn(ctx, "john.doe@example.com", "password123")
	require.NoError(t, err)

	require.NoError(t, p.SignOut(ctx, session.Token))

	_, err = p.Verify(ctx, session.Token)
	assert.ErrorIs(t, err, ErrInvalidToken, "a signed-out token must no longer verify")
}

func TestJWTProvider_SignOutOnlyRevokesThatSession(t *testing.T) {
	ctx := context.Background()
	p := newProvider(t)

	first, err := p.SignIn(ctx, "john.doe@example.com", "password123")
	require.NoError(t, err)
	second, err := p.SignIn(ctx, "john.doe@example.com", "password123")
	require.NoError(t, err)

	require.NoError(t, p.SignOut(ctx, first.Token))

	_, err = p.Verify(ctx, first.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = p.Verify(ctx, second.Token)
	assert.NoError(t, err, "other sessions of the same user stay valid")
}

func TestJWTProvider_SignOut_UnknownTokenIsNotAnError(t *testing.T) {
	ctx := context.Background()
	p := newProvider(t)

	assert.NoError(t, p.SignOut(ctx, "garbage"))
}

func TestJWTProvider_SessionEvents(t *testing.T) {
	ctx := context.Background()
	p := newProvider(t)

	var got []Event
	unsubscribe := p.Subscribe(func(ev Event) { got = append(got, ev) })

	session, err := p.SignIn(ctx, "john.doe@example.com", "password123")
	require.NoError(t, err)
	require.NoError(t, p.SignOut(ctx, session.Token))

	require.Len(t, got, 2)
	assert.Equal(t, Event{Kind: SessionStarted, Email: "john.doe@example.com"}, got[0])
	assert.Equal(t, Event{Kind: SessionEnded, Email: "john.doe@example.com"}, got[1])

	unsubscribe()
	_, err = p.SignIn(ctx, "john.doe@example.com", "password123")
	require.NoError(t, err)
	assert.Len(t, got, 2, "unsubscribed handler must not fire")
}

func TestJWTProvider_SignOutOfInvalidTokenStillEmitsSessionEnded(t *testing.T) {
	ctx := context.Background()
	p := newProvider(t)

	var got []Event
	p.Subscribe(func(ev Event) { got = append(got, ev) })

	require.NoError(t, p.SignOut(ctx, "garbage"))

	require.Len(t, got, 1)
	assert.Equal(t, SessionEnded, got[0].Kind)
}
