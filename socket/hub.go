package socket

import (
	"encoding/json"

	"cratetrack/internal/livequery"
	"cratetrack/pkg/logger"
)

const (
	// Message types pushed to subscribed clients. Every message carries a
	// full replacement snapshot, never a delta.
	RecordsSnapshotType  = "RECORDS_SNAPSHOT"
	ProfilesSnapshotType = "PROFILES_SNAPSHOT"

	// Subscription scopes a client may request on connect. The privileged
	// scopes mirror the admin dashboard's unscoped views.
	ScopeRecords    = "records"
	ScopeAllRecords = "all-records"
	ScopeProfiles   = "profiles"
)

type WSMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Hub owns the set of connected clients and ties each one to a live-query
// subscription for the lifetime of its connection.
type Hub struct {
	Register   chan *Client
	Unregister chan *Client

	feed    *livequery.Feed
	clients map[*Client]bool
}

func NewHub(feed *livequery.Feed) *Hub {
	return &Hub{
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		feed:       feed,
		clients:    make(map[*Client]bool),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			if err := h.attach(client); err != nil {
				logger.Sugar.Errorf("Failed to attach client %s (scope %s): %v", client.UserID, client.Scope, err)
				client.Conn.Close()
				close(client.Send)
				continue
			}
			h.clients[client] = true

		case client := <-h.Unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				// Cancelling closes the subscription channel, which ends the
				// forwarding goroutine, which closes Send and ends the write
				// pump. Safe to reach twice.
				client.cancel()
				client.Conn.Close()
			}
		}
	}
}

// attach opens the live-query subscription matching the client's scope and
// starts forwarding snapshots into its send queue.
func (h *Hub) attach(client *Client) error {
	switch client.Scope {
	case ScopeProfiles:
		sub, err := h.feed.SubscribeProfiles()
		if err != nil {
			return err
		}
		client.cancel = sub.Cancel
		go func() {
			for snapshot := range sub.C {
				client.queue(marshalMessage(ProfilesSnapshotType, snapshot))
			}
			close(client.Send)
		}()
		return nil

	default:
		ownerID := client.UserID
		if client.Scope == ScopeAllRecords {
			ownerID = ""
		}
		sub, err := h.feed.SubscribeRecords(ownerID)
		if err != nil {
			return err
		}
		client.cancel = sub.Cancel
		go func() {
			for snapshot := range sub.C {
				client.queue(marshalMessage(RecordsSnapshotType, snapshot))
			}
			close(client.Send)
		}()
		return nil
	}
}

func marshalMessage(msgType string, snapshot interface{}) []byte {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		logger.Sugar.Errorf("Error marshalling %s payload: %v", msgType, err)
		return nil
	}
	msg, err := json.Marshal(WSMessage{Type: msgType, Payload: payload})
	if err != nil {
		logger.Sugar.Errorf("Error marshalling %s message: %v", msgType, err)
		return nil
	}
	return msg
}
