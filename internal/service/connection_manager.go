package service

import (
	"net/http"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mindful-app/realtime-service/internal/model"
	"github.com/segmentio/encoding/json"
	"go.uber.org/zap"
)

const (
	userRoomPrefix    = "user:"
	sessionRoomPrefix = "session:"
)

// UserRoom is the personal room of a user; every connection of that user is in it.
func UserRoom(userID string) string { return userRoomPrefix + userID }

// SessionRoom is the room of a meditation session's participants.
func SessionRoom(sessionID string) string { return sessionRoomPrefix + sessionID }

// Client is one authenticated socket connection.
type Client struct {
	ID   string
	User *model.User
	Conn *websocket.Conn
	Send chan []byte

	rooms  map[string]struct{} // guarded by ConnectionManager.mu
	closed bool
}

// Sender is a read-only view of a client handed to the relay.
type Sender struct {
	ConnID string
	User   *model.User
	Rooms  map[string]bool
}

// In reports whether the sender is a member of room.
func (s Sender) In(room string) bool { return s.Rooms[room] }

// ManagerOptions configures a ConnectionManager.
type ManagerOptions struct {
	ReadBufferSize  int
	WriteBufferSize int
	MaxMessageSize  int64
	SendBuffer      int
}

// ConnectionManager owns connection membership: connection id -> {user, rooms}
// and room -> members. It is the only place rooms are mutated.
type ConnectionManager struct {
	mu         sync.RWMutex
	clients    map[string]*Client
	rooms      map[string]map[*Client]struct{}
	upgrader   websocket.Upgrader
	maxMsgSize int64
	sendBuffer int
	log        *zap.Logger
}

// NewConnectionManager creates a connection manager.
func NewConnectionManager(opts ManagerOptions, log *zap.Logger) *ConnectionManager {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 256
	}
	return &ConnectionManager{
		clients:    make(map[string]*Client),
		rooms:      make(map[string]map[*Client]struct{}),
		maxMsgSize: opts.MaxMessageSize,
		sendBuffer: opts.SendBuffer,
		log:        log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  opts.ReadBufferSize,
			WriteBufferSize: opts.WriteBufferSize,
			// Allow all origins for dev; in prod set CheckOrigin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Upgrader returns the WebSocket upgrader for HTTP handlers.
func (m *ConnectionManager) Upgrader() *websocket.Upgrader {
	return &m.upgrader
}

// Register adds an authenticated connection, joins it to its personal room and
// returns a cleanup function that removes it from every room.
func (m *ConnectionManager) Register(user *model.User, conn *websocket.Conn) (*Client, func()) {
	if conn != nil && m.maxMsgSize > 0 {
		conn.SetReadLimit(m.maxMsgSize)
	}
	c := &Client{
		ID:    uuid.New().String(),
		User:  user,
		Conn:  conn,
		Send:  make(chan []byte, m.sendBuffer),
		rooms: make(map[string]struct{}),
	}
	m.mu.Lock()
	m.clients[c.ID] = c
	m.joinLocked(c, UserRoom(user.ID))
	m.mu.Unlock()

	m.log.Info("client registered",
		zap.String("conn_id", c.ID),
		zap.String("user_id", user.ID))

	return c, func() { m.unregister(c) }
}

func (m *ConnectionManager) unregister(c *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.closed {
		return
	}
	for room := range c.rooms {
		m.leaveLocked(c, room)
	}
	delete(m.clients, c.ID)
	c.closed = true
	close(c.Send)
	m.log.Info("client unregistered",
		zap.String("conn_id", c.ID),
		zap.String("user_id", c.User.ID))
}

// Join adds c to room.
func (m *ConnectionManager) Join(c *Client, room string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.closed {
		return
	}
	m.joinLocked(c, room)
}

// Leave removes c from room. It reports whether c was a member.
func (m *ConnectionManager) Leave(c *Client, room string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := c.rooms[room]; !ok {
		return false
	}
	m.leaveLocked(c, room)
	return true
}

func (m *ConnectionManager) joinLocked(c *Client, room string) {
	if m.rooms[room] == nil {
		m.rooms[room] = make(map[*Client]struct{})
	}
	m.rooms[room][c] = struct{}{}
	c.rooms[room] = struct{}{}
}

func (m *ConnectionManager) leaveLocked(c *Client, room string) {
	delete(c.rooms, room)
	if members, ok := m.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(m.rooms, room)
		}
	}
}

// Snapshot returns the relay's view of c.
func (m *ConnectionManager) Snapshot(c *Client) Sender {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rooms := make(map[string]bool, len(c.rooms))
	for r := range c.rooms {
		rooms[r] = true
	}
	return Sender{ConnID: c.ID, User: c.User, Rooms: rooms}
}

// Rooms returns the sorted room names c is in.
func (m *ConnectionManager) Rooms(c *Client) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(c.rooms))
	for r := range c.rooms {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

// Apply performs an outcome for c: joins, then leaves, then sends in order.
func (m *ConnectionManager) Apply(c *Client, out Outcome) {
	for _, room := range out.Join {
		m.Join(c, room)
		m.log.Debug("joined room", zap.String("conn_id", c.ID), zap.String("room", room))
	}
	for _, room := range out.Leave {
		if m.Leave(c, room) {
			m.log.Debug("left room", zap.String("conn_id", c.ID), zap.String("room", room))
		}
	}
	for _, msg := range out.Messages {
		m.Dispatch(c, msg)
	}
}

// Dispatch sends one outbound message on behalf of c.
func (m *ConnectionManager) Dispatch(c *Client, msg Outbound) {
	var except *Client
	if msg.ExcludeSender {
		except = c
	}
	switch msg.Target {
	case TargetSender:
		m.EmitTo(c, msg.Event, msg.Payload)
	case TargetRoom:
		m.EmitToRoom(msg.Room, except, msg.Event, msg.Payload)
	case TargetAll:
		m.EmitAll(except, msg.Event, msg.Payload)
	}
}

// EmitTo sends an event to a single client.
func (m *ConnectionManager) EmitTo(c *Client, event string, payload interface{}) {
	data, ok := m.encode(event, payload)
	if !ok {
		return
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	m.enqueue(c, data)
}

// EmitToRoom sends an event to every member of room except the given client (may be nil).
func (m *ConnectionManager) EmitToRoom(room string, except *Client, event string, payload interface{}) {
	data, ok := m.encode(event, payload)
	if !ok {
		return
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for c := range m.rooms[room] {
		if c != except {
			m.enqueue(c, data)
		}
	}
}

// EmitAll sends an event to every connection except the given client (may be nil).
func (m *ConnectionManager) EmitAll(except *Client, event string, payload interface{}) {
	data, ok := m.encode(event, payload)
	if !ok {
		return
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.clients {
		if c != except {
			m.enqueue(c, data)
		}
	}
}

// CloseRoom notifies the members of room and removes them from it. The
// connections themselves stay open.
func (m *ConnectionManager) CloseRoom(room, event string, payload interface{}) int {
	data, ok := m.encode(event, payload)
	m.mu.Lock()
	defer m.mu.Unlock()
	members := m.rooms[room]
	for c := range members {
		if ok {
			m.enqueue(c, data)
		}
		delete(c.rooms, room)
	}
	delete(m.rooms, room)
	if len(members) > 0 {
		m.log.Info("room closed", zap.String("room", room), zap.Int("members", len(members)))
	}
	return len(members)
}

// enqueue must be called with m.mu held (read or write); unregister closes
// Send under the write lock, so the channel is open here.
func (m *ConnectionManager) enqueue(c *Client, data []byte) {
	if c.closed {
		return
	}
	select {
	case c.Send <- data:
	default:
		m.log.Warn("client send buffer full",
			zap.String("conn_id", c.ID),
			zap.String("user_id", c.User.ID))
	}
}

type frame struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

func (m *ConnectionManager) encode(event string, payload interface{}) ([]byte, bool) {
	raw, err := json.Marshal(frame{Event: event, Data: payload})
	if err != nil {
		m.log.Error("encode event", zap.String("event", event), zap.Error(err))
		return nil, false
	}
	return raw, true
}

// RoomSize returns the number of members in room.
func (m *ConnectionManager) RoomSize(room string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms[room])
}

// ConnectionCount returns the number of live connections.
func (m *ConnectionManager) ConnectionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// ActiveRooms returns the sorted names of rooms with at least one member.
func (m *ConnectionManager) ActiveRooms() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.rooms))
	for r := range m.rooms {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}
