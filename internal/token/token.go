/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package token issues and verifies host capability tokens. A token is bound
// to one room code and is presented on every host-only operation.
package token

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "deckhand"

var ErrInvalidToken = errors.New("invalid host token")

// HostClaims are carried by a host capability token.
type HostClaims struct {
	RoomCode  string `json:"roomCode"`
	SessionID string `json:"sessionId"`
	jwt.RegisteredClaims
}

type Issuer struct {
	private ed25519.PrivateKey
	public  ed25519.PublicKey
	ttl     time.Duration
	now     func() time.Time
}

// NewIssuer generates a fresh ed25519 key pair. Tokens from a previous
// process are therefore never accepted. A ttl of zero issues tokens that do
// not expire.
func NewIssuer(ttl time.Duration) (*Issuer, error) {
	public, private, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ed25519 key pair: %w", err)
	}

	return &Issuer{
		private: private,
		public:  public,
		ttl:     ttl,
		now:     time.Now,
	}, nil
}

// Issue returns a signed token for roomCode and the token's unique id.
func (i *Issuer) Issue(roomCode, sessionID string) (signed, id string, err error) {
	now := i.now()

	claims := HostClaims{
		RoomCode:  roomCode,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       uuid.NewString(),
			Issuer:   issuer,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if i.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(i.ttl))
	}

	signed, err = jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(i.private)
	if err != nil {
		return "", "", fmt.Errorf("failed to sign host token: %w", err)
	}

	return signed, claims.ID, nil
}

// Verify checks the signature and expiry of signed and that it was issued for
// roomCode.
func (i *Issuer) Verify(signed, roomCode string) (*HostClaims, error) {
	if signed == "" {
		return nil, ErrInvalidToken
	}

	claims := &HostClaims{}

	_, err := jwt.ParseWithClaims(signed, claims,
		func(t *jwt.Token) (any, error) {
			return i.public, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if claims.RoomCode != roomCode {
		return nil, fmt.Errorf("%w: issued for another room", ErrInvalidToken)
	}

	return claims, nil
}
