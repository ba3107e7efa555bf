/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"

	"github.com/Seednode/deckhand/internal/relay"
)

const (
	// Time allowed to write a frame to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong from the peer.
	pongWait = 60 * time.Second

	// Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// serveRelay upgrades the request and attaches the connection to the relay
// as a fresh, unbound session. There is no resume: every connection starts
// from scratch.
func serveRelay(cfg *Config, rl *relay.Relay) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logf(cfg, "RELAY: Upgrade failed for %s: %v", realIP(r), err)

			return
		}

		s := relay.NewSession(cfg.sendBuffer)

		if !rl.Connect(s) {
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "relay shutting down"),
				time.Now().Add(writeWait))
			_ = conn.Close()

			return
		}

		logf(cfg, "RELAY: Session %s connected from %s", s.ID(), realIP(r))

		go writePump(conn, s)
		readPump(cfg, conn, rl, s)

		logf(cfg, "RELAY: Session %s from %s disconnected", s.ID(), realIP(r))
	}
}

func readPump(cfg *Config, conn *websocket.Conn, rl *relay.Relay, s *relay.Session) {
	defer func() {
		rl.Disconnect(s)
		_ = conn.Close()
	}()

	conn.SetReadLimit(cfg.maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		typ, frame, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logf(cfg, "RELAY: Session %s read error: %v", s.ID(), err)
			}

			return
		}

		if typ != websocket.TextMessage {
			continue
		}

		if !rl.Deliver(s, frame) {
			return
		}
	}
}

// writePump owns all writes to conn. It exits when the relay closes the
// session's outbound queue or a write fails.
func writePump(conn *websocket.Conn, s *relay.Session) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case frame, ok := <-s.Outbound():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))

				return
			}

			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
