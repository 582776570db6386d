package gateway

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// ConnectionManager manages the hub's WebSocket connections, pooled per
// study group.
type ConnectionManager struct {
	groupConnections map[int64]map[*Connection]bool
	mu               sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig

	broadcastCh chan BroadcastMessage

	// inbound receives messages browser clients send up the socket; the
	// gateway service relays them onto the group channel.
	inbound InboundHandler
}

// InboundHandler relays a client-sent message onto the group's shared
// channel.
type InboundHandler func(groupID int64, userID string, data []byte)

// Connection is one WebSocket client attached to a group.
type Connection struct {
	ID      string
	UserID  string
	GroupID int64
	Conn    *websocket.Conn
	Send    chan []byte
	Manager *ConnectionManager

	ConnectedAt time.Time
	LastPing    time.Time
}

// ConnectionConfig holds WebSocket tuning for the hub.
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// BroadcastMessage is one envelope to fan out to a group's connections.
type BroadcastMessage struct {
	GroupID int64
	Data    []byte
}

// DefaultConnectionConfig returns the stock WebSocket configuration.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  4096,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// Allow all origins in development - restrict in production
			return true
		},
	}
}

// NewConnectionManager creates a connection manager.
func NewConnectionManager(config ConnectionConfig, inbound InboundHandler) *ConnectionManager {
	return &ConnectionManager{
		groupConnections: make(map[int64]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		broadcastCh: make(chan BroadcastMessage, 1000),
		inbound:     inbound,
	}
}

// Start processes broadcast messages until the context is cancelled.
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			return
		case message := <-cm.broadcastCh:
			cm.handleBroadcast(message)
		}
	}
}

// UpgradeConnection upgrades an HTTP request to a WebSocket and registers it
// with its group's pool.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, userID string, groupID int64) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade WebSocket connection")
		return err
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		UserID:      userID,
		GroupID:     groupID,
		Conn:        conn,
		Send:        make(chan []byte, 256),
		Manager:     cm,
		ConnectedAt: time.Now(),
		LastPing:    time.Now(),
	}

	cm.registerConnection(connection)

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("user_id", userID).
		Int64("group_id", groupID).
		Msg("WebSocket connection established")

	return nil
}

func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.groupConnections[conn.GroupID] == nil {
		cm.groupConnections[conn.GroupID] = make(map[*Connection]bool)
	}
	cm.groupConnections[conn.GroupID][conn] = true

	log.Debug().
		Str("connection_id", conn.ID).
		Int64("group_id", conn.GroupID).
		Int("total_connections", len(cm.groupConnections[conn.GroupID])).
		Msg("connection registered")
}

func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if connections, exists := cm.groupConnections[conn.GroupID]; exists {
		if _, exists := connections[conn]; exists {
			delete(connections, conn)
			close(conn.Send)

			if len(connections) == 0 {
				delete(cm.groupConnections, conn.GroupID)
			}

			log.Info().
				Str("connection_id", conn.ID).
				Str("user_id", conn.UserID).
				Int64("group_id", conn.GroupID).
				Msg("connection unregistered")
		}
	}
}

// BroadcastToGroup fans an envelope out to every connection in a group.
func (cm *ConnectionManager) BroadcastToGroup(groupID int64, data []byte) {
	select {
	case cm.broadcastCh <- BroadcastMessage{GroupID: groupID, Data: data}:
	default:
		log.Warn().Int64("group_id", groupID).Msg("broadcast channel full, dropping message")
	}
}

func (cm *ConnectionManager) handleBroadcast(message BroadcastMessage) {
	// Sends stay under the read lock: unregistration closes Send under the
	// write lock, so a disconnect can never close the channel mid-send.
	var evicted []*Connection
	delivered := 0

	cm.mu.RLock()
	for conn := range cm.groupConnections[message.GroupID] {
		select {
		case conn.Send <- message.Data:
			delivered++
		default:
			// Connection is slow/dead, close it
			evicted = append(evicted, conn)
		}
	}
	cm.mu.RUnlock()

	for _, conn := range evicted {
		log.Warn().
			Str("connection_id", conn.ID).
			Str("user_id", conn.UserID).
			Msg("connection send buffer full, closing connection")
		cm.unregisterConnection(conn)
		conn.Conn.Close()
	}

	log.Debug().
		Int64("group_id", message.GroupID).
		Int("connections", delivered).
		Msg("envelope broadcast")
}

// Stats returns counts of active connections per group.
type Stats struct {
	TotalConnections int           `json:"total_connections"`
	ActiveGroups     int           `json:"active_groups"`
	GroupConnections map[int64]int `json:"group_connections"`
}

// GetStats returns statistics about active connections.
func (cm *ConnectionManager) GetStats() Stats {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	stats := Stats{GroupConnections: make(map[int64]int)}
	for groupID, connections := range cm.groupConnections {
		stats.TotalConnections += len(connections)
		stats.GroupConnections[groupID] = len(connections)
	}
	stats.ActiveGroups = len(cm.groupConnections)
	return stats
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.unregisterConnection(c)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				return
			}
			c.LastPing = time.Now()
		}
	}
}

func (c *Connection) readPump() {
	defer func() {
		c.Manager.unregisterConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		c.LastPing = time.Now()
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected WebSocket close error")
			}
			break
		}

		if c.Manager.inbound != nil {
			c.Manager.inbound(c.GroupID, c.UserID, message)
		}
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}
