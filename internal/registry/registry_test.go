/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package registry

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateThenGet(t *testing.T) {
	r := New()

	for _, code := range []string{"AB12", "x", "a code with spaces", ""} {
		_, err := r.Create(code, "host-"+code, "tok-"+code)
		require.NoError(t, err)

		room, err := r.Get(code)
		require.NoError(t, err)
		assert.Equal(t, "host-"+code, room.HostSessionID)
		assert.Equal(t, "tok-"+code, room.HostTokenID)
		assert.Empty(t, room.Members)
		assert.Nil(t, room.LastState)
	}
}

func TestCreateRejectsDuplicate(t *testing.T) {
	r := New()

	_, err := r.Create("AB12", "h1", "t1")
	require.NoError(t, err)

	_, err = r.Create("AB12", "h2", "t2")
	assert.ErrorIs(t, err, ErrRoomAlreadyExists)

	room, err := r.Get("AB12")
	require.NoError(t, err)
	assert.Equal(t, "h1", room.HostSessionID, "original host must survive a colliding create")
}

func TestGetUnknownRoom(t *testing.T) {
	_, err := New().Get("nope")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestAddMemberIsIdempotent(t *testing.T) {
	r := New()
	_, err := r.Create("AB12", "h", "t")
	require.NoError(t, err)

	added, err := r.AddMember("AB12", Member{ID: "p1", Record: json.RawMessage(`{"id":"p1","name":"Crew A"}`)})
	require.NoError(t, err)
	assert.True(t, added)

	added, err = r.AddMember("AB12", Member{ID: "p1", Record: json.RawMessage(`{"id":"p1","name":"Crew A+"}`)})
	require.NoError(t, err)
	assert.False(t, added)

	room, err := r.Get("AB12")
	require.NoError(t, err)
	require.Len(t, room.Members, 1)
	assert.JSONEq(t, `{"id":"p1","name":"Crew A+"}`, string(room.Members[0].Record))
	assert.True(t, room.HasMember("p1"))
	assert.False(t, room.HasMember("p2"))
}

func TestAddMemberUnknownRoom(t *testing.T) {
	_, err := New().AddMember("nope", Member{ID: "p1"})
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestRemoveMember(t *testing.T) {
	r := New()
	_, err := r.Create("AB12", "h", "t")
	require.NoError(t, err)

	for _, id := range []string{"p1", "p2", "p3"} {
		_, err := r.AddMember("AB12", Member{ID: id})
		require.NoError(t, err)
	}

	require.NoError(t, r.RemoveMember("AB12", "p2"))
	require.NoError(t, r.RemoveMember("AB12", "unknown"))

	room, err := r.Get("AB12")
	require.NoError(t, err)
	require.Len(t, room.Members, 2)
	assert.Equal(t, "p1", room.Members[0].ID)
	assert.Equal(t, "p3", room.Members[1].ID)

	assert.ErrorIs(t, r.RemoveMember("nope", "p1"), ErrRoomNotFound)
}

func TestSetSnapshot(t *testing.T) {
	r := New()

	assert.ErrorIs(t, r.SetSnapshot("AB12", json.RawMessage(`{}`)), ErrRoomNotFound)

	_, err := r.Create("AB12", "h", "t")
	require.NoError(t, err)

	require.NoError(t, r.SetSnapshot("AB12", json.RawMessage(`{"phase":"DRAW"}`)))
	require.NoError(t, r.SetSnapshot("AB12", json.RawMessage(`{"phase":"ACTION"}`)))

	room, err := r.Get("AB12")
	require.NoError(t, err)
	assert.JSONEq(t, `{"phase":"ACTION"}`, string(room.LastState))
}

func TestNullSnapshotClearsState(t *testing.T) {
	r := New()
	_, err := r.Create("AB12", "h", "t")
	require.NoError(t, err)

	for _, state := range []string{`null`, ` null `, ``} {
		require.NoError(t, r.SetSnapshot("AB12", json.RawMessage(`{"phase":"DRAW"}`)))

		room, err := r.Get("AB12")
		require.NoError(t, err)
		require.True(t, room.HasSnapshot())

		require.NoError(t, r.SetSnapshot("AB12", json.RawMessage(state)))

		room, err = r.Get("AB12")
		require.NoError(t, err)
		assert.False(t, room.HasSnapshot(), "state %q", state)
		assert.Nil(t, room.LastState, "state %q", state)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	r := New()
	_, err := r.Create("AB12", "h", "t")
	require.NoError(t, err)
	_, err = r.AddMember("AB12", Member{ID: "p1", Record: json.RawMessage(`{"id":"p1"}`)})
	require.NoError(t, err)

	room, err := r.Get("AB12")
	require.NoError(t, err)
	room.Members[0].ID = "changed"
	room.Members[0].Record[2] = 'X'

	again, err := r.Get("AB12")
	require.NoError(t, err)
	assert.Equal(t, "p1", again.Members[0].ID)
	assert.JSONEq(t, `{"id":"p1"}`, string(again.Members[0].Record))
}

func TestRemove(t *testing.T) {
	r := New()
	_, err := r.Create("AB12", "h", "t")
	require.NoError(t, err)

	require.NoError(t, r.Remove("AB12"))
	assert.ErrorIs(t, r.Remove("AB12"), ErrRoomNotFound)

	_, err = r.Get("AB12")
	assert.ErrorIs(t, err, ErrRoomNotFound)

	_, err = r.Create("AB12", "h2", "t2")
	assert.NoError(t, err, "a removed code may be registered again")
}

func TestExpired(t *testing.T) {
	r := New()

	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return clock }

	_, err := r.Create("OLD", "h1", "t1")
	require.NoError(t, err)
	_, err = r.Create("BUSY", "h2", "t2")
	require.NoError(t, err)
	_, err = r.Create("CLEARED", "h3", "t3")
	require.NoError(t, err)

	clock = clock.Add(30 * time.Minute)
	require.NoError(t, r.SetSnapshot("BUSY", json.RawMessage(`{}`)))
	require.NoError(t, r.SetSnapshot("CLEARED", json.RawMessage(`null`)))

	assert.Equal(t, []string{"OLD"}, r.Expired(clock.Add(-10*time.Minute)))
	assert.Equal(t, []string{"BUSY", "CLEARED", "OLD"}, r.Expired(clock.Add(time.Second)))
	assert.Empty(t, r.Expired(clock.Add(-time.Hour)))
}

func TestConcurrentJoins(t *testing.T) {
	r := New()
	_, err := r.Create("AB12", "h", "t")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = r.AddMember("AB12", Member{ID: fmt.Sprintf("p%d", i%10)})
		}()
	}
	wg.Wait()

	room, err := r.Get("AB12")
	require.NoError(t, err)
	assert.Len(t, room.Members, 10)
}

func TestLen(t *testing.T) {
	r := New()
	assert.Equal(t, 0, r.Len())

	for _, code := range []string{"C", "A", "B"} {
		_, err := r.Create(code, "h", "t")
		require.NoError(t, err)
	}
	assert.Equal(t, 3, r.Len())

	require.NoError(t, r.Remove("B"))
	assert.Equal(t, 2, r.Len())
}
