package web

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"matchday-service/pkg/common"
	"matchday-service/pkg/matchclock"
	"matchday-service/services"
)

const (
	pongWait     = 60 * time.Second
	pingInterval = (pongWait * 9) / 10
	writeWait    = 10 * time.Second
	sendBuffer   = 64
)

// WSMessage 推送给观众的消息
type WSMessage struct {
	Type      string      `json:"type"`
	MatchID   string      `json:"match_id,omitempty"`
	Timestamp int64       `json:"timestamp,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}

// ClockPayload clock_state 消息的 data, 客户端据此本地走秒
type ClockPayload struct {
	matchclock.State
	Version int                `json:"version"`
	Action  matchclock.Action  `json:"action,omitempty"`
	Clock   matchclock.Display `json:"clock"`
}

// clientMessage 客户端发来的订阅消息
type clientMessage struct {
	Type     string   `json:"type"`
	MatchIDs []string `json:"match_ids"`
}

// Client WebSocket 客户端
type Client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu       sync.RWMutex
	matchIDs map[string]bool // 为空时接收全部比赛
}

// Hub 管理观众连接并转发时钟事件
type Hub struct {
	logger     common.Logger
	clients    map[*Client]bool
	broadcast  chan *WSMessage
	register   chan *Client
	unregister chan *Client
	upgrader   websocket.Upgrader
	done       chan struct{}
	mu         sync.RWMutex
}

// NewHub 创建 Hub, allowedOrigins 为空或包含 "*" 时不检查 Origin
func NewHub(logger common.Logger, allowedOrigins []string) *Hub {
	h := &Hub{
		logger:     logger,
		clients:    make(map[*Client]bool),
		broadcast:  make(chan *WSMessage, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || len(set) == 0 || set[origin]
	}
}

// Run 运行 Hub, ctx 结束时断开所有客户端
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("Client %s registered. Total clients: %d", client.id, total)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("Client %s unregistered. Total clients: %d", client.id, total)

		case message := <-h.broadcast:
			h.fanOut(message)
		}
	}
}

// fanOut 发送给订阅了该比赛的客户端, 跟不上的客户端直接断开
func (h *Hub) fanOut(message *WSMessage) {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("Failed to marshal message: %v", err)
		return
	}

	var slow []*Client
	h.mu.RLock()
	for client := range h.clients {
		if !client.shouldReceive(message.MatchID) {
			continue
		}
		select {
		case client.send <- data:
		default:
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	if len(slow) == 0 {
		return
	}
	h.mu.Lock()
	for _, client := range slow {
		if _, ok := h.clients[client]; ok {
			delete(h.clients, client)
			close(client.send)
			h.logger.Warn("Client %s too slow, disconnected", client.id)
		}
	}
	h.mu.Unlock()
}

// Broadcast 排队一条消息, Hub 停止后丢弃
func (h *Hub) Broadcast(message *WSMessage) {
	select {
	case h.broadcast <- message:
	case <-h.done:
	}
}

// ClientCount 当前连接数
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ForwardClockEvents 把 broker 上的时钟事件转成 clock_state 推送, 直到 ctx 结束或通道关闭
func (h *Hub) ForwardClockEvents(ctx context.Context, broker services.MessageBroker) error {
	events, err := broker.Consume(services.ClockTopic)
	if err != nil {
		return err
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-events:
				if !ok {
					h.logger.Warn("Clock event stream closed")
					return
				}
				ev, err := services.DecodeClockEvent(msg)
				if err != nil {
					h.logger.Error("Dropping clock event: %v", err)
					continue
				}
				h.Broadcast(&WSMessage{
					Type:      services.ClockEventType,
					MatchID:   ev.MatchID,
					Timestamp: ev.OccurredAt.Unix(),
					Data: ClockPayload{
						State:   ev.State,
						Version: ev.Version,
						Action:  ev.Action,
						Clock:   ev.Clock,
					},
				})
			}
		}
	}()
	return nil
}

// ServeWS 升级连接并注册客户端
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed: %v", err)
		return
	}

	client := &Client{
		id:       uuid.NewString(),
		hub:      h,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		matchIDs: make(map[string]bool),
	}
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// shouldReceive 检查客户端是否订阅了该比赛
func (c *Client) shouldReceive(matchID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.matchIDs) == 0 {
		return true
	}
	return c.matchIDs[matchID]
}

// readPump 读取客户端消息
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("WebSocket error for client %s: %v", c.id, err)
			}
			return
		}
		c.handleMessage(message)
	}
}

// writePump 向客户端写入消息并定时 ping
func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage 处理 subscribe / unsubscribe
func (c *Client) handleMessage(message []byte) {
	var msg clientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.hub.logger.Debug("Ignoring malformed message from client %s: %v", c.id, err)
		return
	}

	switch msg.Type {
	case "subscribe":
		c.mu.Lock()
		c.matchIDs = make(map[string]bool, len(msg.MatchIDs))
		for _, id := range msg.MatchIDs {
			c.matchIDs[id] = true
		}
		c.mu.Unlock()
		c.hub.logger.Debug("Client %s subscribed to matches %v", c.id, msg.MatchIDs)

	case "unsubscribe":
		c.mu.Lock()
		c.matchIDs = make(map[string]bool)
		c.mu.Unlock()
		c.hub.logger.Debug("Client %s unsubscribed", c.id)
	}
}
