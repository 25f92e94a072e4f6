package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192
)

var ErrConnectionClosed = websocket.ErrCloseSent

// Connection wraps one websocket client. Each connection gets an
// opaque ID at upgrade time; the game core uses it as the player id.
type Connection struct {
	conn      *websocket.Conn
	send      chan *Message
	id        string
	roomID    string
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.RWMutex
	closeOnce sync.Once
	service   *GameService
}

// NewConnection creates a connection wrapper around an upgraded socket.
func NewConnection(conn *websocket.Conn, id string, logger *log.Logger, service *GameService) *Connection {
	ctx, cancel := context.WithCancel(context.Background())

	return &Connection{
		conn:    conn,
		send:    make(chan *Message, 256),
		id:      id,
		logger:  logger.WithPrefix("conn").With("conn", id),
		ctx:     ctx,
		cancel:  cancel,
		service: service,
	}
}

// Start begins handling the connection.
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Close closes the connection.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.send)
		err = c.conn.Close()
	})
	return err
}

// ID returns the connection's identifier.
func (c *Connection) ID() string { return c.id }

// SendMessage queues a message for the client. A full send buffer
// closes the connection rather than blocking gameplay.
func (c *Connection) SendMessage(msg *Message) error {
	defer func() {
		if r := recover(); r != nil {
			// Channel was closed during shutdown.
			c.logger.Debug("send on closed connection", "error", r)
		}
	}()

	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
		c.logger.Warn("send buffer full, closing connection")
		_ = c.Close()
		return ErrConnectionClosed
	}
}

// SetRoom associates this connection with a room.
func (c *Connection) SetRoom(roomID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roomID = roomID
}

// Room returns the associated room ID, or "" when not in a room.
func (c *Connection) Room() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.roomID
}

// readPump handles incoming messages from the client.
func (c *Connection) readPump() {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		var msg Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("websocket error", "error", err)
			}
			break
		}

		c.handleMessage(&msg)
	}
}

// writePump handles outgoing messages to the client.
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// handleMessage routes one inbound message to the game service.
// Malformed payloads earn the sender an error event; unknown types are
// dropped.
func (c *Connection) handleMessage(msg *Message) {
	c.logger.Debug("received message", "type", msg.Type)

	if c.service == nil {
		return
	}

	switch msg.Type {
	case MessageTypeCreateRoom:
		var data CreateRoomData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("malformed createRoom payload")
			return
		}
		c.service.HandleCreateRoom(c, data)

	case MessageTypeJoinRoom:
		var data JoinRoomData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("malformed joinRoom payload")
			return
		}
		c.service.HandleJoinRoom(c, data)

	case MessageTypeStartGame:
		var data StartGameData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("malformed startGame payload")
			return
		}
		c.service.HandleStartGame(c, data)

	case MessageTypeDrawCard:
		var data DrawCardData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("malformed drawCard payload")
			return
		}
		c.service.HandleDrawCard(c, data)

	case MessageTypeSubmit:
		var data SubmitData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("malformed submitOnomatopoeia payload")
			return
		}
		c.service.HandleSubmit(c, data)

	case MessageTypeChoose:
		var data ChooseData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("malformed chooseOnomatopoeia payload")
			return
		}
		c.service.HandleChoose(c, data)

	case MessageTypeNextTurn:
		var data NextTurnData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("malformed nextTurn payload")
			return
		}
		c.service.HandleNextTurn(c, data)

	case MessageTypeGetRooms:
		c.service.HandleGetRooms(c)

	default:
		c.logger.Debug("dropping unknown message type", "type", msg.Type)
	}
}

// sendError sends an error event to this client only.
func (c *Connection) sendError(reason string) {
	msg, err := NewMessage(MessageTypeError, ErrorData{Reason: reason})
	if err != nil {
		c.logger.Error("failed to create error message", "error", err)
		return
	}

	_ = c.SendMessage(msg)
}
