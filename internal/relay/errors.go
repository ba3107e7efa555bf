/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package relay

import (
	"errors"

	"github.com/Seednode/deckhand/internal/registry"
	"github.com/Seednode/deckhand/internal/token"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrMalformed    = errors.New("malformed message")

	// errStale marks a message aimed at a room that is no longer registered.
	// Such messages are dropped without telling the sender.
	errStale = errors.New("room no longer registered")
)

// errorText is what the offending session is told.
func errorText(err error) string {
	switch {
	case errors.Is(err, registry.ErrRoomNotFound):
		return "Room not found"
	case errors.Is(err, registry.ErrRoomAlreadyExists):
		return "Room already exists"
	case errors.Is(err, ErrUnauthorized), errors.Is(err, token.ErrInvalidToken):
		return "Unauthorized"
	case errors.Is(err, ErrMalformed):
		return "Malformed message"
	default:
		return "Internal error"
	}
}
