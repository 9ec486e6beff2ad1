// Package testutils provides shared helpers for integration tests.
package testutils

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/nfrund/talkio/internal/modules/chat/events"
	"github.com/stretchr/testify/require"
)

// WriteEvent sends one enveloped event over a client WebSocket connection.
func WriteEvent(t *testing.T, conn *websocket.Conn, event string, payload any) {
	t.Helper()

	frame, err := events.Marshal(event, payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, frame))
}

// ReadEvent reads frames until one with the wanted event name arrives and
// returns its payload. Other events (e.g. interleaved presence snapshots)
// are skipped. It fails the test when the deadline passes first.
func ReadEvent(t *testing.T, conn *websocket.Conn, want string, timeout time.Duration) json.RawMessage {
	t.Helper()

	deadline := time.Now().Add(timeout)
	require.NoError(t, conn.SetReadDeadline(deadline))

	for {
		_, frame, err := conn.ReadMessage()
		require.NoError(t, err, "reading websocket while waiting for %q", want)

		var env events.Envelope
		require.NoError(t, json.Unmarshal(frame, &env))

		if env.Event == want {
			return env.Payload
		}
	}
}

// ReadEventInto reads until the wanted event arrives and decodes its payload.
func ReadEventInto(t *testing.T, conn *websocket.Conn, want string, timeout time.Duration, out any) {
	t.Helper()

	payload := ReadEvent(t, conn, want, timeout)
	require.NoError(t, json.Unmarshal(payload, out))
}
