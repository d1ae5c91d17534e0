// README: WebSocket plumbing shared by the live meter and trip watch streams.
package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// readMessages reads until the peer goes away, handing each text message to onMessage.
// It returns when the connection fails; the caller should then stop writing.
func readMessages(conn *websocket.Conn, onMessage func([]byte)) {
	conn.SetReadLimit(4096)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if onMessage != nil {
			onMessage(msg)
		}
	}
}

// writeUpdates is the single writer for conn. It sends every value from updates as JSON
// and pings the peer until updates closes or the reader signals closed.
func writeUpdates[T any](conn *websocket.Conn, updates <-chan T, closed <-chan struct{}) error {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return nil
		case v, ok := <-updates:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				return conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			}
			if err := conn.WriteJSON(v); err != nil {
				return err
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return err
			}
		}
	}
}
