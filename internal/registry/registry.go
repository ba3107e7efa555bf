/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package registry holds the in-memory mapping from room code to room record.
// Nothing here survives a restart.
package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"slices"
	"sync"
	"time"
)

var (
	ErrRoomNotFound      = errors.New("room not found")
	ErrRoomAlreadyExists = errors.New("room already exists")
)

// Member is a player identity associated with a room. Record is the player's
// own description of itself, kept verbatim.
type Member struct {
	ID     string
	Record json.RawMessage
}

// Room is a copy of a registry entry. Mutating it does not affect the registry.
type Room struct {
	Code          string
	HostSessionID string
	HostTokenID   string
	Members       []Member
	LastState     json.RawMessage
	CreatedAt     time.Time
	LastActive    time.Time
}

// HasMember reports whether a player with the given id belongs to the room.
func (r Room) HasMember(id string) bool {
	return slices.ContainsFunc(r.Members, func(m Member) bool { return m.ID == id })
}

// HasSnapshot reports whether the host has published a non-null state.
func (r Room) HasSnapshot() bool {
	return len(r.LastState) > 0
}

type entry struct {
	code          string
	hostSessionID string
	hostTokenID   string
	members       []Member
	lastState     json.RawMessage
	createdAt     time.Time
	lastActive    time.Time
}

func (e *entry) memberIndex(id string) int {
	return slices.IndexFunc(e.members, func(m Member) bool { return m.ID == id })
}

func (e *entry) snapshot() Room {
	members := make([]Member, len(e.members))
	for i, m := range e.members {
		members[i] = Member{ID: m.ID, Record: slices.Clone(m.Record)}
	}

	return Room{
		Code:          e.code,
		HostSessionID: e.hostSessionID,
		HostTokenID:   e.hostTokenID,
		Members:       members,
		LastState:     slices.Clone(e.lastState),
		CreatedAt:     e.createdAt,
		LastActive:    e.lastActive,
	}
}

// Registry is safe for concurrent use. A single lock serializes all
// mutations; room counts are expected to stay small.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*entry
	now   func() time.Time
}

func New() *Registry {
	return &Registry{
		rooms: make(map[string]*entry),
		now:   time.Now,
	}
}

// Create registers a room with no members and no snapshot. An existing code
// is never overwritten.
func (r *Registry) Create(code, hostSessionID, hostTokenID string) (Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rooms[code]; exists {
		return Room{}, ErrRoomAlreadyExists
	}

	now := r.now()
	e := &entry{
		code:          code,
		hostSessionID: hostSessionID,
		hostTokenID:   hostTokenID,
		createdAt:     now,
		lastActive:    now,
	}
	r.rooms[code] = e

	return e.snapshot(), nil
}

func (r *Registry) Get(code string) (Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.rooms[code]
	if !ok {
		return Room{}, ErrRoomNotFound
	}

	return e.snapshot(), nil
}

// AddMember inserts m, or replaces the record of an existing member with the
// same id. added is false when the id was already present.
func (r *Registry) AddMember(code string, m Member) (added bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.rooms[code]
	if !ok {
		return false, ErrRoomNotFound
	}

	m.Record = slices.Clone(m.Record)

	if i := e.memberIndex(m.ID); i >= 0 {
		e.members[i] = m

		return false, nil
	}

	e.members = append(e.members, m)

	return true, nil
}

// RemoveMember drops the member with the given id, if present.
func (r *Registry) RemoveMember(code, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.rooms[code]
	if !ok {
		return ErrRoomNotFound
	}

	if i := e.memberIndex(id); i >= 0 {
		e.members = slices.Delete(e.members, i, i+1)
	}

	return nil
}

// SetSnapshot replaces the room's last published state. A null state clears
// it. Publishing counts as host activity.
func (r *Registry) SetSnapshot(code string, state json.RawMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.rooms[code]
	if !ok {
		return ErrRoomNotFound
	}

	if trimmed := bytes.TrimSpace(state); len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		e.lastState = nil
	} else {
		e.lastState = slices.Clone(state)
	}
	e.lastActive = r.now()

	return nil
}

func (r *Registry) Remove(code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rooms[code]; !ok {
		return ErrRoomNotFound
	}

	delete(r.rooms, code)

	return nil
}

// Expired returns the codes of rooms with no host activity since cutoff,
// in sorted order.
func (r *Registry) Expired(cutoff time.Time) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var codes []string
	for code, e := range r.rooms {
		if e.lastActive.Before(cutoff) {
			codes = append(codes, code)
		}
	}
	slices.Sort(codes)

	return codes
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.rooms)
}
