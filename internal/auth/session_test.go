package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerify(t *testing.T) {
	provider := NewProvider("secret", time.Hour)

	token, err := provider.Issue(Session{UserID: "u1", Name: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)

	session, err := provider.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", session.UserID)
	assert.Equal(t, "Ada", session.Name)
	assert.Equal(t, "ada@example.com", session.Email)
}

func TestVerifyRejects(t *testing.T) {
	provider := NewProvider("secret", time.Hour)

	t.Run("garbage token", func(t *testing.T) {
		_, err := provider.Verify("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewProvider("different", time.Hour)
		token, err := other.Issue(Session{UserID: "u1"})
		require.NoError(t, err)

		_, err = provider.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired token", func(t *testing.T) {
		shortLived := NewProvider("secret", -time.Minute)
		token, err := shortLived.Issue(Session{UserID: "u1"})
		require.NoError(t, err)

		_, err = provider.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestContextRoundTrip(t *testing.T) {
	ctx := context.Background()

	_, ok := FromContext(ctx)
	assert.False(t, ok)

	session := &Session{UserID: "u1"}
	got, ok := FromContext(NewContext(ctx, session))
	require.True(t, ok)
	assert.Same(t, session, got)
}
