package websocket

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/lorrc/portal-backend/internal/core/domain"
	"github.com/lorrc/portal-backend/internal/core/ports"
)

// Hub maintains the set of active Clients and fans ticket events out to the
// department rooms they belong to.
type Hub struct {
	// Clients maps user IDs to their active connections.
	// A single user can have multiple connections (multiple tabs/devices).
	clients map[uuid.UUID]map[*Client]bool

	// Rooms maps department IDs to subscribed clients.
	rooms map[int64]map[*Client]bool

	// Broadcast channel for events
	broadcast chan domain.Event

	// Register requests from clients
	Register chan *Client

	// Unregister requests from clients
	Unregister chan *Client

	// mu protects the clients and rooms maps
	mu sync.RWMutex

	// logger for the hub
	logger *slog.Logger
}

// Ensure Hub implements the EventBroadcaster interface.
var _ ports.EventBroadcaster = (*Hub)(nil)

// NewHub creates a new WebSocket hub
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]map[*Client]bool),
		rooms:      make(map[int64]map[*Client]bool),
		broadcast:  make(chan domain.Event, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		logger:     logger.With("component", "websocket_hub"),
	}
}

// Broadcast sends an event to the hub's internal broadcast channel.
// This method implements the ports.EventBroadcaster interface.
func (h *Hub) Broadcast(event domain.Event) error {
	select {
	case h.broadcast <- event:
		return nil
	default:
		h.logger.Warn("broadcast channel full, dropping event",
			"event_type", event.Type,
			"ticket_id", event.TicketID,
			"department_id", event.DepartmentID,
		)
		return nil
	}
}

// Run starts the hub's event loop. This MUST be run as a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.registerClient(client)

		case client := <-h.Unregister:
			h.unregisterClient(client)

		case event := <-h.broadcast:
			h.broadcastEvent(event)
		}
	}
}

// registerClient adds a client to the hub and its home department room
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[client.UserID] == nil {
		h.clients[client.UserID] = make(map[*Client]bool)
	}
	h.clients[client.UserID][client] = true

	// Everyone follows their own department from the start.
	h.joinRoomLocked(client, client.DepartmentID)

	h.logger.Info("client registered",
		"user_id", client.UserID,
		"department_id", client.DepartmentID,
		"total_connections", len(h.clients[client.UserID]),
	)
}

// unregisterClient removes a client from the hub and all rooms
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subscriptions := client.GetSubscriptions()

	if userClients, ok := h.clients[client.UserID]; ok {
		if _, exists := userClients[client]; exists {
			delete(userClients, client)
			if len(userClients) == 0 {
				delete(h.clients, client.UserID)
			}
		}
	}

	for _, departmentID := range subscriptions {
		if room, ok := h.rooms[departmentID]; ok {
			delete(room, client)
			if len(room) == 0 {
				delete(h.rooms, departmentID)
			}
		}
	}

	client.CloseSend()

	h.logger.Info("client unregistered",
		"user_id", client.UserID,
	)
}

// broadcastEvent sends an event to all clients watching the department
func (h *Hub) broadcastEvent(event domain.Event) {
	h.mu.RLock()
	room, ok := h.rooms[event.DepartmentID]
	if !ok {
		h.mu.RUnlock()
		return
	}

	// Copy the client list to avoid holding the lock while sending
	clients := make([]*Client, 0, len(room))
	for client := range room {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	h.logger.Debug("broadcasting event",
		"event_type", event.Type,
		"ticket_id", event.TicketID,
		"department_id", event.DepartmentID,
		"client_count", len(clients),
	)

	var stale []*Client
	for _, client := range clients {
		select {
		case client.Send <- event:
			// Successfully queued
		default:
			h.logger.Warn("client send buffer full, dropping connection",
				"user_id", client.UserID,
			)
			stale = append(stale, client)
		}
	}

	// Drop saturated clients directly. Handing them to the Unregister
	// channel would block this loop, which is that channel's only receiver.
	for _, client := range stale {
		h.unregisterClient(client)
	}
}

// subscribeClientToDepartment adds a client to a department's room. Only
// admins may follow departments other than their own.
func (h *Hub) subscribeClientToDepartment(client *Client, departmentID int64) {
	if departmentID != client.DepartmentID && !client.IsAdmin {
		h.logger.Warn("subscription rejected",
			"user_id", client.UserID,
			"department_id", departmentID,
		)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.joinRoomLocked(client, departmentID)

	h.logger.Debug("client subscribed to department",
		"user_id", client.UserID,
		"department_id", departmentID,
	)
}

// joinRoomLocked adds the client to a room. Callers must hold h.mu.
func (h *Hub) joinRoomLocked(client *Client, departmentID int64) {
	if h.rooms[departmentID] == nil {
		h.rooms[departmentID] = make(map[*Client]bool)
	}
	h.rooms[departmentID][client] = true
	client.AddSubscription(departmentID)
}

// unsubscribeClientFromDepartment removes a client from a department's room
func (h *Hub) unsubscribeClientFromDepartment(client *Client, departmentID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if room, ok := h.rooms[departmentID]; ok {
		delete(room, client)
		if len(room) == 0 {
			delete(h.rooms, departmentID)
		}
	}
	client.RemoveSubscription(departmentID)

	h.logger.Debug("client unsubscribed from department",
		"user_id", client.UserID,
		"department_id", departmentID,
	)
}

// GetClientCount returns the total number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := 0
	for _, userClients := range h.clients {
		count += len(userClients)
	}
	return count
}

// GetClientsInRoom returns the number of clients watching a department
func (h *Hub) GetClientsInRoom(departmentID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if room, ok := h.rooms[departmentID]; ok {
		return len(room)
	}
	return 0
}

// IsUserConnected checks if a user has any active connections
func (h *Hub) IsUserConnected(userID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients, ok := h.clients[userID]
	return ok && len(clients) > 0
}

// SendToUser sends an event directly to a specific user (all their connections)
func (h *Hub) SendToUser(userID uuid.UUID, event domain.Event) {
	h.mu.RLock()
	clients, ok := h.clients[userID]
	if !ok {
		h.mu.RUnlock()
		return
	}

	clientList := make([]*Client, 0, len(clients))
	for client := range clients {
		clientList = append(clientList, client)
	}
	h.mu.RUnlock()

	for _, client := range clientList {
		select {
		case client.Send <- event:
		default:
			// Buffer full, skip this connection
		}
	}
}
