/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package relay

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Seednode/deckhand/internal/journal"
	"github.com/Seednode/deckhand/internal/registry"
)

func decode(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: missing data", ErrMalformed)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	return nil
}

func decodeRoomCode(data json.RawMessage) (string, error) {
	var code string
	if err := decode(data, &code); err != nil {
		return "", err
	}

	if code == "" {
		return "", fmt.Errorf("%w: empty room code", ErrMalformed)
	}

	return code, nil
}

func (r *Relay) handleCreateRoom(s *Session, env Envelope) error {
	if s.role != RoleUnbound {
		return fmt.Errorf("%w: %s session cannot create a room", ErrUnauthorized, s.role)
	}

	code, err := decodeRoomCode(env.Data)
	if err != nil {
		return err
	}

	if _, err := r.rooms.Get(code); err == nil {
		return registry.ErrRoomAlreadyExists
	}

	signed, tokenID, err := r.tokens.Issue(code, s.id)
	if err != nil {
		return err
	}

	if _, err := r.rooms.Create(code, s.id, tokenID); err != nil {
		return err
	}

	r.bind(s, RoleHost, code, "")

	r.log.WithFields(logrus.Fields{"room": code, "session": s.id}).Debug("room created")
	r.record(journal.KindRoomCreated, code, s)

	r.send(s, EventRoomCreated, code, signed)

	return nil
}

func (r *Relay) handleJoinRoom(s *Session, env Envelope) error {
	if s.role != RoleUnbound {
		return fmt.Errorf("%w: %s session cannot join a room", ErrUnauthorized, s.role)
	}

	var req JoinRequest
	if err := decode(env.Data, &req); err != nil {
		return err
	}

	var player playerRef
	if err := decode(req.Player, &player); err != nil {
		return err
	}

	if req.RoomCode == "" || player.ID == "" {
		return fmt.Errorf("%w: room code and player id are required", ErrMalformed)
	}

	added, err := r.rooms.AddMember(req.RoomCode, registry.Member{ID: player.ID, Record: req.Player})
	if err != nil {
		return err
	}

	room, err := r.rooms.Get(req.RoomCode)
	if err != nil {
		return err
	}

	r.bind(s, RolePlayer, req.RoomCode, player.ID)

	r.log.WithFields(logrus.Fields{
		"room":    req.RoomCode,
		"session": s.id,
		"player":  player.ID,
	}).Debug("player joined")

	if added {
		r.record(journal.KindPlayerJoined, req.RoomCode, s)
	}

	if host, ok := r.sessions[room.HostSessionID]; ok {
		r.send(host, EventPlayerJoined, req.Player, "")
	}

	if room.HasSnapshot() {
		r.send(s, EventGameStateUpdated, room.LastState, "")
	}

	return nil
}

// authorizeHost checks that s is the host bound to roomCode and holds that
// room's current capability token. A missing room is stale whatever the
// sender's role, so every forward to an unknown code is dropped the same way.
func (r *Relay) authorizeHost(s *Session, roomCode, signed string) (registry.Room, error) {
	room, err := r.rooms.Get(roomCode)
	if err != nil {
		return registry.Room{}, fmt.Errorf("%w: %w", errStale, err)
	}

	if s.role != RoleHost || s.roomCode != roomCode {
		return registry.Room{}, fmt.Errorf("%w: not the host of %q", ErrUnauthorized, roomCode)
	}

	if !r.isBound(s) {
		return registry.Room{}, fmt.Errorf("%w: %q was closed", errStale, roomCode)
	}

	claims, err := r.tokens.Verify(signed, roomCode)
	if err != nil {
		return registry.Room{}, err
	}

	if claims.ID != room.HostTokenID {
		return registry.Room{}, fmt.Errorf("%w: token was issued for an earlier room", ErrUnauthorized)
	}

	return room, nil
}

// authorizePlayer checks that s is a player bound to roomCode and returns the
// room's host session, if it is still connected.
func (r *Relay) authorizePlayer(s *Session, roomCode string) (*Session, error) {
	room, err := r.rooms.Get(roomCode)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errStale, err)
	}

	if s.role != RolePlayer || s.roomCode != roomCode {
		return nil, fmt.Errorf("%w: not a player in %q", ErrUnauthorized, roomCode)
	}

	if !r.isBound(s) || !room.HasMember(s.playerID) {
		return nil, fmt.Errorf("%w: %q no longer holds %q", errStale, roomCode, s.playerID)
	}

	host, ok := r.sessions[room.HostSessionID]
	if !ok {
		return nil, fmt.Errorf("%w: host of %q is not connected", errStale, roomCode)
	}

	return host, nil
}

func (r *Relay) handleSyncGameState(s *Session, env Envelope) error {
	var req SyncRequest
	if err := decode(env.Data, &req); err != nil {
		return err
	}

	if _, err := r.authorizeHost(s, req.RoomCode, env.Token); err != nil {
		return err
	}

	if err := r.rooms.SetSnapshot(req.RoomCode, req.State); err != nil {
		return fmt.Errorf("%w: %w", errStale, err)
	}

	frame, err := Encode(EventGameStateUpdated, req.State, "")
	if err != nil {
		return err
	}

	for p := range r.bound[req.RoomCode] {
		if p.role == RolePlayer {
			r.sendFrame(p, frame)
		}
	}

	return nil
}

func (r *Relay) handlePlayerAction(s *Session, env Envelope) error {
	var req ActionRequest
	if err := decode(env.Data, &req); err != nil {
		return err
	}

	host, err := r.authorizePlayer(s, req.RoomCode)
	if err != nil {
		return err
	}

	r.send(host, EventPlayerActionReceived, req.Action, "")

	return nil
}

func (r *Relay) handlePlayerVote(s *Session, env Envelope) error {
	var req VoteRequest
	if err := decode(env.Data, &req); err != nil {
		return err
	}

	host, err := r.authorizePlayer(s, req.RoomCode)
	if err != nil {
		return err
	}

	r.send(host, EventPlayerVoteReceived, req.Vote, "")

	return nil
}

func (r *Relay) handleCloseRoom(s *Session, env Envelope) error {
	code, err := decodeRoomCode(env.Data)
	if err != nil {
		return err
	}

	if _, err := r.authorizeHost(s, code, env.Token); err != nil {
		return err
	}

	if err := r.rooms.Remove(code); err != nil {
		return fmt.Errorf("%w: %w", errStale, err)
	}

	r.log.WithFields(logrus.Fields{"room": code, "session": s.id}).Debug("room closed by host")
	r.record(journal.KindRoomClosed, code, s)

	r.evict(code)

	return nil
}

// evict tells every session still bound to code that the room is gone.
// Sessions keep their role; anything they send afterwards is dropped.
func (r *Relay) evict(code string) {
	frame, err := Encode(EventRoomClosed, code, "")
	if err != nil {
		r.log.WithField("room", code).Errorf("failed to encode %s: %v", EventRoomClosed, err)

		return
	}

	for s := range r.bound[code] {
		r.sendFrame(s, frame)
	}

	delete(r.bound, code)
}

func (r *Relay) sweep(now time.Time) {
	for _, code := range r.rooms.Expired(now.Add(-r.roomTimeout)) {
		if err := r.rooms.Remove(code); err != nil {
			if !errors.Is(err, registry.ErrRoomNotFound) {
				r.log.WithField("room", code).Warnf("failed to expire room: %v", err)
			}

			continue
		}

		r.log.WithField("room", code).Debug("room expired")
		r.record(journal.KindRoomExpired, code, nil)

		r.evict(code)
	}
}
