/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package token

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerify(t *testing.T) {
	iss, err := NewIssuer(0)
	require.NoError(t, err)

	signed, id, err := iss.Issue("AB12", "session-1")
	require.NoError(t, err)
	assert.NotEmpty(t, signed)
	assert.NotEmpty(t, id)

	claims, err := iss.Verify(signed, "AB12")
	require.NoError(t, err)
	assert.Equal(t, "AB12", claims.RoomCode)
	assert.Equal(t, "session-1", claims.SessionID)
	assert.Equal(t, id, claims.ID)
	assert.Nil(t, claims.ExpiresAt)
}

func TestIssueUniqueIDs(t *testing.T) {
	iss, err := NewIssuer(0)
	require.NoError(t, err)

	_, first, err := iss.Issue("AB12", "s")
	require.NoError(t, err)
	_, second, err := iss.Issue("AB12", "s")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestVerifyRejects(t *testing.T) {
	iss, err := NewIssuer(0)
	require.NoError(t, err)

	other, err := NewIssuer(0)
	require.NoError(t, err)

	signed, _, err := iss.Issue("AB12", "s")
	require.NoError(t, err)

	foreign, _, err := other.Issue("AB12", "s")
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		room  string
	}{
		{"empty", "", "AB12"},
		{"garbage", "not-a-token", "AB12"},
		{"wrong room", signed, "ZZ99"},
		{"other key", foreign, "AB12"},
		{"tampered", tamper(signed), "AB12"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := iss.Verify(tt.token, tt.room)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestVerifyExpired(t *testing.T) {
	iss, err := NewIssuer(time.Minute)
	require.NoError(t, err)

	clock := time.Now()
	iss.now = func() time.Time { return clock }

	signed, _, err := iss.Issue("AB12", "s")
	require.NoError(t, err)

	_, err = iss.Verify(signed, "AB12")
	require.NoError(t, err)

	clock = clock.Add(2 * time.Minute)

	_, err = iss.Verify(signed, "AB12")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

// tamper swaps the first character of the claims segment.
func tamper(signed string) string {
	parts := strings.Split(signed, ".")
	if strings.HasPrefix(parts[1], "e") {
		parts[1] = "f" + parts[1][1:]
	} else {
		parts[1] = "e" + parts[1][1:]
	}

	return strings.Join(parts, ".")
}
