/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package journal pushes room lifecycle entries to a Redis list for operators
// to consume. It is an activity feed, not a store: nothing is read back.
package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	KindRoomCreated  = "room-created"
	KindPlayerJoined = "player-joined"
	KindRoomClosed   = "room-closed"
	KindRoomExpired  = "room-expired"

	DefaultKey = "deckhand_rooms"
)

type Entry struct {
	Kind      string `json:"kind"`
	RoomCode  string `json:"room_code"`
	SessionID string `json:"session_id,omitempty"`
	PlayerID  string `json:"player_id,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// Journal accepts entries without blocking. Record reports false when the
// entry was dropped.
type Journal interface {
	Record(e Entry) bool
}

// Nop discards every entry.
type Nop struct{}

func (Nop) Record(Entry) bool { return true }

// Redis queues entries in memory and RPUSHes them from Run.
type Redis struct {
	client  *redis.Client
	key     string
	entries chan Entry
	log     logrus.FieldLogger
}

type Options struct {
	Addr      string
	DB        int
	Key       string
	QueueSize int
}

func NewRedis(opts Options, log logrus.FieldLogger) *Redis {
	if opts.Key == "" {
		opts.Key = DefaultKey
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}

	return &Redis{
		client: redis.NewClient(&redis.Options{
			Addr: opts.Addr,
			DB:   opts.DB,
		}),
		key:     opts.Key,
		entries: make(chan Entry, opts.QueueSize),
		log:     log,
	}
}

// Ping checks that the Redis server is reachable.
func (j *Redis) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := j.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis at %s: %w", j.client.Options().Addr, err)
	}

	return nil
}

func (j *Redis) Record(e Entry) bool {
	if e.Timestamp == 0 {
		e.Timestamp = time.Now().UnixMilli()
	}

	select {
	case j.entries <- e:
		return true
	default:
		return false
	}
}

// Run drains queued entries until ctx is done, then closes the client.
func (j *Redis) Run(ctx context.Context) error {
	defer j.client.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case e := <-j.entries:
			if err := j.push(ctx, e); err != nil {
				j.log.WithField("room", e.RoomCode).Warnf("journal: %v", err)
			}
		}
	}
}

func (j *Redis) push(ctx context.Context, e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := j.client.RPush(ctx, j.key, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", j.key, err)
	}

	return nil
}
