/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package relay

import (
	"bytes"
	"encoding/json"
)

// Events sent by clients.
const (
	EventCreateRoom    = "create-room"
	EventJoinRoom      = "join-room"
	EventSyncGameState = "sync-game-state"
	EventPlayerAction  = "player-action"
	EventPlayerVote    = "player-vote"
	EventCloseRoom     = "close-room"
)

// Events sent by the relay.
const (
	EventRoomCreated          = "room-created"
	EventPlayerJoined         = "player-joined"
	EventGameStateUpdated     = "game-state-updated"
	EventPlayerActionReceived = "player-action-received"
	EventPlayerVoteReceived   = "player-vote-received"
	EventRoomClosed           = "room-closed"
	EventError                = "error"
)

// Envelope wraps every frame in both directions. Token carries the host
// capability: issued on room-created, presented on sync-game-state and
// close-room.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
	Token string          `json:"token,omitempty"`
}

type JoinRequest struct {
	RoomCode string          `json:"roomCode"`
	Player   json.RawMessage `json:"player"`
}

// playerRef is the only part of a player record the relay looks at.
type playerRef struct {
	ID string `json:"id"`
}

type SyncRequest struct {
	RoomCode string          `json:"roomCode"`
	State    json.RawMessage `json:"state"`
}

type ActionRequest struct {
	RoomCode string          `json:"roomCode"`
	Action   json.RawMessage `json:"action"`
}

type VoteRequest struct {
	RoomCode string          `json:"roomCode"`
	Vote     json.RawMessage `json:"vote"`
}

// Encode builds an outbound frame. Raw payloads are compacted but otherwise
// passed through; nothing is HTML-escaped.
func Encode(event string, data any, token string) ([]byte, error) {
	var raw json.RawMessage

	switch d := data.(type) {
	case nil:
	case json.RawMessage:
		raw = d
	default:
		b, err := marshal(d)
		if err != nil {
			return nil, err
		}
		raw = b
	}

	return marshal(Envelope{
		Event: event,
		Data:  raw,
		Token: token,
	})
}

func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(v); err != nil {
		return nil, err
	}

	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
