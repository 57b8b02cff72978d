package websocket

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// HandleWebSocket upgrades an authenticated request and registers the member's socket.
// Incoming frames are ignored; the read loop only detects disconnection.
func HandleWebSocket(c echo.Context, hub *Hub, memberID primitive.ObjectID) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	client := &Client{
		MemberID: memberID,
		Conn:     conn,
	}
	hub.register <- client

	client.WriteJSON(Notification{
		Type:    "connected",
		Message: "WebSocket connection established",
		UserID:  memberID.Hex(),
	})

	go func() {
		defer func() {
			hub.unregister <- client
		}()

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	return nil
}
