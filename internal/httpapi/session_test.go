package httpapi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionRoundTrip(t *testing.T) {
	m := NewSessionManager("test-secret", time.Hour)

	token, err := m.Issue("user-1")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}

func TestSessionExpiry(t *testing.T) {
	issued := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

	m := NewSessionManager("test-secret", time.Hour)
	m.now = func() time.Time { return issued }

	token, err := m.Issue("user-1")
	require.NoError(t, err)

	// still valid just before expiry
	m.now = func() time.Time { return issued.Add(59 * time.Minute) }
	_, err = m.Verify(token)
	require.NoError(t, err)

	m.now = func() time.Time { return issued.Add(2 * time.Hour) }
	_, err = m.Verify(token)
	assert.Error(t, err)
}

func TestSessionRejectsForeignSecret(t *testing.T) {
	token, err := NewSessionManager("secret-a", time.Hour).Issue("user-1")
	require.NoError(t, err)

	_, err = NewSessionManager("secret-b", time.Hour).Verify(token)
	assert.Error(t, err)
}

func TestSessionRejectsGarbage(t *testing.T) {
	m := NewSessionManager("test-secret", time.Hour)

	for _, tok := range []string{"", "not-a-jwt", "a.b.c"} {
		_, err := m.Verify(tok)
		assert.Error(t, err, "token %q should be rejected", tok)
	}
}

func TestSessionDefaultTTL(t *testing.T) {
	issued := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

	m := NewSessionManager("test-secret", 0)
	m.now = func() time.Time { return issued }

	token, err := m.Issue("user-1")
	require.NoError(t, err)

	m.now = func() time.Time { return issued.Add(6 * 24 * time.Hour) }
	_, err = m.Verify(token)
	require.NoError(t, err)

	m.now = func() time.Time { return issued.Add(8 * 24 * time.Hour) }
	_, err = m.Verify(token)
	assert.Error(t, err)
}
