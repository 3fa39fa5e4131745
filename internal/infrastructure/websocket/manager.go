package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"tradeloop/internal/usecase"
	"tradeloop/pkg/logger"
)

const (
	writeWait  = 10 * time.Second
	sendBuffer = 64
)

// Client is one open screen. A user may hold several at once.
type Client struct {
	UserID string
	Conn   *websocket.Conn
	Send   chan []byte
}

func NewClient(userID string, conn *websocket.Conn) *Client {
	return &Client{
		UserID: userID,
		Conn:   conn,
		Send:   make(chan []byte, sendBuffer),
	}
}

// Manager tracks connected screens and pushes refresh-needed signals to
// them. It implements usecase.RefreshNotifier.
type Manager struct {
	clients    map[string]map[*Client]struct{}
	Register   chan *Client
	Unregister chan *Client
	mutex      sync.RWMutex

	trades   TradeRefresher
	listings ListingRefresher
	logger   logger.Logger
	ctx      context.Context
}

func NewManager(log logger.Logger) *Manager {
	return &Manager{
		clients:    make(map[string]map[*Client]struct{}),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		logger:     log,
		ctx:        context.Background(),
	}
}

// Start runs the registration loop until ctx is done. Refreshes requested
// over the socket run under ctx as well.
func (m *Manager) Start(ctx context.Context) {
	m.ctx = ctx
	go func() {
		for {
			select {
			case client := <-m.Register:
				m.add(client)
				m.logger.Debug("Websocket client registered", "userID", client.UserID)

			case client := <-m.Unregister:
				m.remove(client)
				m.logger.Debug("Websocket client unregistered", "userID", client.UserID)

			case <-ctx.Done():
				return
			}
		}
	}()
}

func (m *Manager) add(client *Client) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	set, ok := m.clients[client.UserID]
	if !ok {
		set = make(map[*Client]struct{})
		m.clients[client.UserID] = set
	}
	set[client] = struct{}{}
}

func (m *Manager) remove(client *Client) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	set, ok := m.clients[client.UserID]
	if !ok {
		return
	}
	if _, ok := set[client]; ok {
		delete(set, client)
		close(client.Send)
	}
	if len(set) == 0 {
		delete(m.clients, client.UserID)
	}
}

// ConnectedClients returns how many screens userID has open.
func (m *Manager) ConnectedClients(userID string) int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.clients[userID])
}

// SendToUser queues message for every screen of userID. A screen whose
// buffer is full misses the message; it will catch up on its next refresh.
func (m *Manager) SendToUser(userID string, message []byte) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	for client := range m.clients[userID] {
		select {
		case client.Send <- message:
		default:
			m.logger.Warn("Websocket send buffer full, dropping message", "userID", userID)
		}
	}
}

func (m *Manager) NotifyRefresh(userID string, scopes ...usecase.RefreshScope) {
	if userID == "" || len(scopes) == 0 {
		return
	}
	m.sendJSON(userID, MessageTypeRefreshNeeded, RefreshNeededData{Scopes: scopes})
}

func (m *Manager) sendJSON(userID, msgType string, data interface{}) {
	payload, err := json.Marshal(WSMessage{
		Type:      msgType,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		m.logger.Error("Failed to encode websocket message", "type", msgType, "error", err)
		return
	}
	m.SendToUser(userID, payload)
}

func (m *Manager) sendToClient(client *Client, msgType string, data interface{}) {
	payload, err := json.Marshal(WSMessage{
		Type:      msgType,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		m.logger.Error("Failed to encode websocket message", "type", msgType, "error", err)
		return
	}

	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if _, ok := m.clients[client.UserID][client]; !ok {
		return
	}
	select {
	case client.Send <- payload:
	default:
		m.logger.Warn("Websocket send buffer full, dropping message", "userID", client.UserID)
	}
}

// ReadPump reads client messages until the connection closes.
func (c *Client) ReadPump(m *Manager) {
	defer func() {
		m.Unregister <- c
		c.Conn.Close()
	}()

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				m.logger.Warn("Websocket read failed", "userID", c.UserID, "error", err)
			}
			break
		}

		m.HandleClientMessage(c, message)
	}
}

// WritePump drains Send into the connection.
func (c *Client) WritePump() {
	defer c.Conn.Close()

	for message := range c.Send {
		c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}
