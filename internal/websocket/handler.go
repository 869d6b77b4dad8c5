package websocket

import (
	"context"
)

// ServeWs runs a realtime session on conn until the peer disconnects or the
// session is replaced by a newer connection with the same client id.
func ServeWs(hub *Hub, conn Conn, clientID string) {
	client := newClient(hub, conn, clientID)
	if !hub.registerClient(client) {
		_ = conn.Close()
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go client.writePump()
	client.readPump(ctx) // Run readPump in current goroutine (handler)

	hub.unregisterClient(client)
	<-client.done
}
