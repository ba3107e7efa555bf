/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package relay binds connection sessions to rooms and routes frames between
// a room's host and its players. Payloads are forwarded without inspection.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Seednode/deckhand/internal/journal"
	"github.com/Seednode/deckhand/internal/registry"
	"github.com/Seednode/deckhand/internal/token"
)

type Options struct {
	// RoomTimeout removes rooms with no host activity for this long.
	// Zero keeps rooms until closed by their host or the process exits.
	RoomTimeout time.Duration

	Journal journal.Journal
	Log     logrus.FieldLogger
}

type inbound struct {
	session *Session
	frame   []byte
}

// Relay processes every connect, disconnect, frame and sweep on a single
// goroutine, so handlers need no locking of their own.
type Relay struct {
	rooms   *registry.Registry
	tokens  *token.Issuer
	journal journal.Journal
	log     logrus.FieldLogger

	roomTimeout time.Duration

	sessions map[string]*Session
	bound    map[string]map[*Session]struct{}

	connects    chan *Session
	disconnects chan *Session
	inbound     chan inbound
	done        chan struct{}
}

func New(rooms *registry.Registry, tokens *token.Issuer, opts Options) *Relay {
	if opts.Journal == nil {
		opts.Journal = journal.Nop{}
	}
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}

	return &Relay{
		rooms:       rooms,
		tokens:      tokens,
		journal:     opts.Journal,
		log:         opts.Log,
		roomTimeout: opts.RoomTimeout,
		sessions:    make(map[string]*Session),
		bound:       make(map[string]map[*Session]struct{}),
		connects:    make(chan *Session),
		disconnects: make(chan *Session),
		inbound:     make(chan inbound),
		done:        make(chan struct{}),
	}
}

// Run dispatches until ctx is done. Every session still open when Run returns
// is closed.
func (r *Relay) Run(ctx context.Context) error {
	defer r.shutdown()

	var sweep <-chan time.Time
	if r.roomTimeout > 0 {
		ticker := time.NewTicker(r.roomTimeout / 2)
		defer ticker.Stop()
		sweep = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case s := <-r.connects:
			r.register(s)
		case s := <-r.disconnects:
			r.unregister(s)
		case in := <-r.inbound:
			r.dispatch(in.session, in.frame)
		case now := <-sweep:
			r.sweep(now)
		}
	}
}

// Connect hands a new session to the dispatcher. It reports false once the
// relay has stopped.
func (r *Relay) Connect(s *Session) bool {
	select {
	case r.connects <- s:
		return true
	case <-r.done:
		return false
	}
}

func (r *Relay) Disconnect(s *Session) {
	select {
	case r.disconnects <- s:
	case <-r.done:
	}
}

// Deliver queues one inbound frame from s for dispatch.
func (r *Relay) Deliver(s *Session, frame []byte) bool {
	select {
	case r.inbound <- inbound{session: s, frame: frame}:
		return true
	case <-r.done:
		return false
	}
}

func (r *Relay) shutdown() {
	close(r.done)

	for _, s := range r.sessions {
		s.close()
	}
	clear(r.sessions)
	clear(r.bound)
}

func (r *Relay) register(s *Session) {
	r.sessions[s.id] = s

	r.log.WithField("session", s.id).Debug("session connected")
}

func (r *Relay) unregister(s *Session) {
	defer s.close()

	if _, ok := r.sessions[s.id]; !ok {
		return
	}
	delete(r.sessions, s.id)

	fields := logrus.Fields{"session": s.id, "role": s.role.String()}

	if s.roomCode == "" {
		r.log.WithFields(fields).Debug("session disconnected")

		return
	}

	fields["room"] = s.roomCode
	wasBound := r.unbind(s)

	// The host's room is left in place; only the idle sweep or close-room
	// removes it.
	if wasBound && s.role == RolePlayer && !r.playerOnline(s.roomCode, s.playerID) {
		if err := r.rooms.RemoveMember(s.roomCode, s.playerID); err != nil && !errors.Is(err, registry.ErrRoomNotFound) {
			r.log.WithFields(fields).Warnf("failed to remove member: %v", err)
		}
	}

	r.log.WithFields(fields).Debug("session disconnected")
}

func (r *Relay) bind(s *Session, role Role, roomCode, playerID string) {
	s.bind(role, roomCode, playerID)

	members, ok := r.bound[roomCode]
	if !ok {
		members = make(map[*Session]struct{})
		r.bound[roomCode] = members
	}
	members[s] = struct{}{}
}

// unbind reports whether s was still bound to its room.
func (r *Relay) unbind(s *Session) bool {
	if !r.isBound(s) {
		return false
	}

	members := r.bound[s.roomCode]
	delete(members, s)
	if len(members) == 0 {
		delete(r.bound, s.roomCode)
	}

	return true
}

// isBound is false for unbound sessions and for sessions whose room was
// closed or expired.
func (r *Relay) isBound(s *Session) bool {
	_, ok := r.bound[s.roomCode][s]

	return ok
}

// playerOnline reports whether another live session in the room speaks for
// playerID.
func (r *Relay) playerOnline(roomCode, playerID string) bool {
	for s := range r.bound[roomCode] {
		if s.role == RolePlayer && s.playerID == playerID {
			return true
		}
	}

	return false
}

func (r *Relay) dispatch(s *Session, frame []byte) {
	if _, ok := r.sessions[s.id]; !ok {
		return
	}

	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		r.reject(s, "", fmt.Errorf("%w: %w", ErrMalformed, err))

		return
	}

	var err error

	switch env.Event {
	case EventCreateRoom:
		err = r.handleCreateRoom(s, env)
	case EventJoinRoom:
		err = r.handleJoinRoom(s, env)
	case EventSyncGameState:
		err = r.handleSyncGameState(s, env)
	case EventPlayerAction:
		err = r.handlePlayerAction(s, env)
	case EventPlayerVote:
		err = r.handlePlayerVote(s, env)
	case EventCloseRoom:
		err = r.handleCloseRoom(s, env)
	default:
		r.log.WithField("session", s.id).Debugf("ignoring unknown event %q", env.Event)
	}

	if err != nil {
		r.reject(s, env.Event, err)
	}
}

func (r *Relay) reject(s *Session, event string, err error) {
	entry := r.log.WithFields(logrus.Fields{
		"session": s.id,
		"role":    s.role.String(),
		"event":   event,
	})

	if errors.Is(err, errStale) {
		entry.Debugf("dropped: %v", err)

		return
	}

	entry.Debugf("rejected: %v", err)

	r.send(s, EventError, errorText(err), "")
}

// send is fire-and-forget. A session that cannot keep up is disconnected
// rather than allowed to stall its room.
func (r *Relay) send(s *Session, event string, data any, token string) {
	frame, err := Encode(event, data, token)
	if err != nil {
		r.log.WithField("session", s.id).Errorf("failed to encode %s: %v", event, err)

		return
	}

	r.sendFrame(s, frame)
}

func (r *Relay) sendFrame(s *Session, frame []byte) {
	if s.enqueue(frame) {
		return
	}

	if !s.Closed() {
		r.log.WithFields(logrus.Fields{"session": s.id, "room": s.roomCode}).Warn("outbound queue full, dropping session")
	}

	r.unregister(s)
}

func (r *Relay) record(kind, roomCode string, s *Session) {
	e := journal.Entry{
		Kind:      kind,
		RoomCode:  roomCode,
		Timestamp: time.Now().UnixMilli(),
	}
	if s != nil {
		e.SessionID = s.id
		e.PlayerID = s.playerID
	}

	if !r.journal.Record(e) {
		r.log.WithField("room", roomCode).Debugf("journal queue full, dropped %s", kind)
	}
}
