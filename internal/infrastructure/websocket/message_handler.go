package websocket

import (
	"context"
	"encoding/json"

	"tradeloop/internal/domain/entity"
	"tradeloop/internal/usecase"
)

const (
	MessageTypePing            = "ping"
	MessageTypePong            = "pong"
	MessageTypeError           = "error"
	MessageTypeRefreshNeeded   = "refresh_needed"
	MessageTypeRefreshTrades   = "refresh_trades"
	MessageTypeRefreshListings = "refresh_listings"
	MessageTypeTrades          = "trades"
	MessageTypeListings        = "listings"
)

type WSMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp string      `json:"timestamp,omitempty"`
}

type RefreshNeededData struct {
	Scopes []usecase.RefreshScope `json:"scopes"`
}

type ErrorData struct {
	Message string `json:"message"`
}

type TradeRefresher interface {
	RefreshTradeHistory(ctx context.Context, userID string, publish func(*usecase.TradeHistory)) (bool, error)
}

type ListingRefresher interface {
	RefreshActiveListings(ctx context.Context, userID string, publish func([]*entity.ActiveListing)) (bool, error)
}

// SetRefreshers wires the use cases that answer refresh requests sent over
// the socket. Must be called before Start.
func (m *Manager) SetRefreshers(trades TradeRefresher, listings ListingRefresher) {
	m.trades = trades
	m.listings = listings
}

// HandleClientMessage dispatches one incoming message. Refreshes run in the
// background and their result goes to every screen of the user; a refresh
// overtaken by a newer one for the same user is never delivered.
func (m *Manager) HandleClientMessage(client *Client, messageBytes []byte) {
	var msg WSMessage
	if err := json.Unmarshal(messageBytes, &msg); err != nil {
		m.sendToClient(client, MessageTypeError, ErrorData{Message: "Invalid message format"})
		return
	}

	switch msg.Type {
	case MessageTypePing:
		m.sendToClient(client, MessageTypePong, nil)

	case MessageTypeRefreshTrades:
		if m.trades == nil {
			m.sendToClient(client, MessageTypeError, ErrorData{Message: "Trade refresh unavailable"})
			return
		}
		go m.refreshTrades(client)

	case MessageTypeRefreshListings:
		if m.listings == nil {
			m.sendToClient(client, MessageTypeError, ErrorData{Message: "Listing refresh unavailable"})
			return
		}
		go m.refreshListings(client)

	default:
		m.sendToClient(client, MessageTypeError, ErrorData{Message: "Unknown message type"})
	}
}

func (m *Manager) refreshTrades(client *Client) {
	_, err := m.trades.RefreshTradeHistory(m.ctx, client.UserID, func(history *usecase.TradeHistory) {
		m.sendJSON(client.UserID, MessageTypeTrades, history)
	})
	if err != nil {
		m.logger.Warn("Trade refresh failed", "userID", client.UserID, "error", err)
		m.sendToClient(client, MessageTypeError, ErrorData{Message: "Failed to refresh trades"})
	}
}

func (m *Manager) refreshListings(client *Client) {
	_, err := m.listings.RefreshActiveListings(m.ctx, client.UserID, func(listings []*entity.ActiveListing) {
		m.sendJSON(client.UserID, MessageTypeListings, listings)
	})
	if err != nil {
		m.logger.Warn("Listing refresh failed", "userID", client.UserID, "error", err)
		m.sendToClient(client, MessageTypeError, ErrorData{Message: "Failed to refresh listings"})
	}
}
