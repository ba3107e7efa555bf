/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package relay

import (
	"github.com/google/uuid"
	"github.com/tevino/abool"
)

type Role int

const (
	RoleUnbound Role = iota
	RoleHost
	RolePlayer
)

func (r Role) String() string {
	switch r {
	case RoleHost:
		return "host"
	case RolePlayer:
		return "player"
	default:
		return "unbound"
	}
}

// Session is one live connection. Role, room and player fields are owned by
// the dispatcher goroutine; the transport only reads Outbound and Closed.
type Session struct {
	id       string
	role     Role
	roomCode string
	playerID string

	send   chan []byte
	closed *abool.AtomicBool
}

// NewSession returns an unbound session whose outbound queue holds up to
// buffer frames.
func NewSession(buffer int) *Session {
	if buffer < 1 {
		buffer = 1
	}

	return &Session{
		id:     uuid.NewString(),
		send:   make(chan []byte, buffer),
		closed: abool.New(),
	}
}

func (s *Session) ID() string { return s.id }

// Outbound yields frames for the transport to write. It is closed when the
// relay is done with the session.
func (s *Session) Outbound() <-chan []byte { return s.send }

func (s *Session) Closed() bool { return s.closed.IsSet() }

// bind is one-way: a session never leaves the role it first takes.
func (s *Session) bind(role Role, roomCode, playerID string) {
	s.role = role
	s.roomCode = roomCode
	s.playerID = playerID
}

// enqueue never blocks. It reports false if the session is closed or its
// queue is full.
func (s *Session) enqueue(frame []byte) bool {
	if s.closed.IsSet() {
		return false
	}

	select {
	case s.send <- frame:
		return true
	default:
		return false
	}
}

func (s *Session) close() {
	if s.closed.SetToIf(false, true) {
		close(s.send)
	}
}
