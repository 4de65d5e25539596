package ws

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5"
	"github.com/resto-order/api/internal/auth"
	"github.com/resto-order/api/internal/database"
	"github.com/resto-order/api/internal/enum"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins (we validate via JWT)
	},
}

// BranchLookup finds the branch a manager runs.
// Satisfied by *database.Queries.
type BranchLookup interface {
	GetBranchByManager(ctx context.Context, managerID uuid.UUID) (database.Branch, error)
}

// Client represents a single WebSocket connection
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	roomID uuid.UUID
	send   chan []byte
}

// ReadPump pumps messages from the WebSocket connection to the hub.
// Dashboards never send anything; the loop only detects disconnects.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("websocket error: %v", err)
			}
			break
		}
	}
}

// WritePump pumps messages from the hub to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to the current websocket message
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// resolveRoom decides which room the caller may join. "all" is the admin
// room; managers may only join the branch they run.
func resolveRoom(ctx context.Context, claims *auth.Claims, branches BranchLookup, bid string) (uuid.UUID, int, string) {
	if bid == "all" {
		if claims.Role != enum.UserRoleAdmin {
			return uuid.Nil, http.StatusForbidden, "branch access denied"
		}
		return AdminRoom, 0, ""
	}

	branchID, err := uuid.Parse(bid)
	if err != nil {
		return uuid.Nil, http.StatusBadRequest, "invalid branch id"
	}

	switch claims.Role {
	case enum.UserRoleAdmin:
		return branchID, 0, ""
	case enum.UserRoleManager:
		branch, err := branches.GetBranchByManager(ctx, claims.UserID)
		if err != nil {
			if !errors.Is(err, pgx.ErrNoRows) {
				log.Printf("ERROR: ws get managed branch: %v", err)
				return uuid.Nil, http.StatusInternalServerError, "internal server error"
			}
			return uuid.Nil, http.StatusForbidden, "branch access denied"
		}
		if branch.ID != branchID {
			return uuid.Nil, http.StatusForbidden, "branch access denied"
		}
		return branchID, 0, ""
	}
	return uuid.Nil, http.StatusForbidden, "branch access denied"
}

// ServeWS handles WebSocket requests from clients
// Endpoint: WS /ws/branches/{bid}/orders?token=JWT
func ServeWS(hub *Hub, jwtSecret string, branches BranchLookup, w http.ResponseWriter, r *http.Request) {
	// 1. Extract token from query param
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	// 2. Validate JWT
	claims, err := auth.ValidateToken(jwtSecret, tokenStr)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	// 3. Resolve the room and check access
	roomID, status, msg := resolveRoom(r.Context(), claims, branches, chi.URLParam(r, "bid"))
	if status != 0 {
		http.Error(w, msg, status)
		return
	}

	// 4. Upgrade to WebSocket
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}

	// 5. Create client and register with hub
	client := &Client{
		hub:    hub,
		conn:   conn,
		roomID: roomID,
		send:   make(chan []byte, 256),
	}
	if !hub.Register(client) {
		conn.Close()
		return
	}

	// 6. Start pumps in separate goroutines
	go client.WritePump()
	go client.ReadPump()
}
