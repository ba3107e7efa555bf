/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package journal

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)

	return l
}

func TestNopAcceptsEverything(t *testing.T) {
	var j Journal = Nop{}
	assert.True(t, j.Record(Entry{Kind: KindRoomCreated, RoomCode: "AB12"}))
}

func TestRedisDefaults(t *testing.T) {
	j := NewRedis(Options{Addr: "127.0.0.1:1"}, quietLogger())
	defer j.client.Close()

	assert.Equal(t, DefaultKey, j.key)
	assert.Equal(t, 256, cap(j.entries))
}

func TestRedisRecordDropsWhenFull(t *testing.T) {
	j := NewRedis(Options{Addr: "127.0.0.1:1", QueueSize: 2}, quietLogger())
	defer j.client.Close()

	assert.True(t, j.Record(Entry{Kind: KindRoomCreated, RoomCode: "A"}))
	assert.True(t, j.Record(Entry{Kind: KindPlayerJoined, RoomCode: "A", PlayerID: "p1"}))
	assert.False(t, j.Record(Entry{Kind: KindRoomClosed, RoomCode: "A"}))

	first := <-j.entries
	assert.Equal(t, KindRoomCreated, first.Kind)
	assert.NotZero(t, first.Timestamp)
}

func TestRedisRunStopsOnCancel(t *testing.T) {
	j := NewRedis(Options{Addr: "127.0.0.1:1"}, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- j.Run(ctx) }()

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
