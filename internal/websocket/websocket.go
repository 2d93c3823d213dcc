package websocket

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/parlaywatch/parlaywatch/internal/auth"
	"github.com/parlaywatch/parlaywatch/internal/logger"
	"github.com/parlaywatch/parlaywatch/internal/models"
	"github.com/parlaywatch/parlaywatch/internal/services"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 4096
	sendBuffer     = 256
)

// Inbound message types
const (
	MsgCall         = "call"
	MsgVoteResponse = "vote:response"
	MsgHostLock     = "host:lock"
	MsgHostConfirm  = "host:confirm"
	MsgHostDismiss  = "host:dismiss"
	MsgHostMark     = "host:mark"
	MsgHostEndRound = "host:end_round"
	MsgHostVideo    = "host:video"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Room tokens gate access, not origins
	},
}

// Hub maintains the connected clients of every room and fans messages out to them
type Hub struct {
	log        logger.Logger
	auth       *auth.Auth
	rounds     services.RoundServicer
	consensus  services.ConsensusServicer
	rooms      map[string]map[*Client]bool
	broadcast  chan envelope
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
}

// envelope is a message addressed to a room, optionally to one player or to
// everyone but one player
type envelope struct {
	roomID string
	only   string
	except string
	msg    models.WSMessage
}

// Client is a middleman between the websocket connection and the hub
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan models.WSMessage
	session auth.Session
}

// New creates a new Hub instance with injected dependencies
func New(log logger.Logger, a *auth.Auth, rounds services.RoundServicer, consensus services.ConsensusServicer) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		log:        log,
		auth:       a,
		rounds:     rounds,
		consensus:  consensus,
		rooms:      make(map[string]map[*Client]bool),
		broadcast:  make(chan envelope, sendBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start begins the hub's main loop in a goroutine
func (h *Hub) Start() {
	go h.run()
}

// Stop ends the main loop and closes every client
func (h *Hub) Stop() {
	h.cancel()
}

// run handles client registration/unregistration and message broadcasting
func (h *Hub) run() {
	defer h.closeAll()
	for {
		select {
		case <-h.ctx.Done():
			return

		case client := <-h.register:
			h.mutex.Lock()
			clients, ok := h.rooms[client.session.RoomID]
			if !ok {
				clients = make(map[*Client]bool)
				h.rooms[client.session.RoomID] = clients
			}
			clients[client] = true
			h.mutex.Unlock()
			h.log.Debug("Client connected", "room_id", client.session.RoomID,
				"player_id", client.session.PlayerID, "room_clients", len(clients))

		case client := <-h.unregister:
			h.remove(client)

		case e := <-h.broadcast:
			h.mutex.RLock()
			for client := range h.rooms[e.roomID] {
				id := client.session.PlayerID
				if (e.only != "" && id != e.only) || (e.except != "" && id == e.except) {
					continue
				}
				select {
				case client.send <- e.msg:
				default:
					// Client's send channel is full, unregister
					go func(c *Client) {
						select {
						case h.unregister <- c:
						case <-h.ctx.Done():
						}
					}(client)
				}
			}
			h.mutex.RUnlock()
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	clients := h.rooms[client.session.RoomID]
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.rooms, client.session.RoomID)
	}
	h.log.Debug("Client disconnected", "room_id", client.session.RoomID, "player_id", client.session.PlayerID)
}

func (h *Hub) closeAll() {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for roomID, clients := range h.rooms {
		for client := range clients {
			close(client.send)
		}
		delete(h.rooms, roomID)
	}
}

func (h *Hub) enqueue(e envelope) {
	select {
	case h.broadcast <- e:
	case <-h.ctx.Done():
	}
}

// BroadcastRoom implements services.Broadcaster
func (h *Hub) BroadcastRoom(roomID string, msg models.WSMessage) {
	h.enqueue(envelope{roomID: roomID, msg: msg})
}

// BroadcastExcept implements services.Broadcaster
func (h *Hub) BroadcastExcept(roomID, exceptPlayerID string, msg models.WSMessage) {
	h.enqueue(envelope{roomID: roomID, except: exceptPlayerID, msg: msg})
}

// SendPlayer implements services.Broadcaster
func (h *Hub) SendPlayer(roomID, playerID string, msg models.WSMessage) {
	h.enqueue(envelope{roomID: roomID, only: playerID, msg: msg})
}

// ClientCount returns the number of connected clients in a room
func (h *Hub) ClientCount(roomID string) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.rooms[roomID])
}

// readPump pumps messages from the websocket connection to the services
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.ctx.Done():
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug("WebSocket error", "error", err)
			}
			break
		}

		var in inbound
		if err := json.Unmarshal(message, &in); err != nil {
			c.hub.log.Debug("Malformed message", "player_id", c.session.PlayerID, "error", err)
			continue
		}
		c.hub.dispatch(c, in)
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *Client) writePump() {
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
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}

			msgBytes, err := json.Marshal(message)
			if err != nil {
				c.hub.log.Error("Failed to encode message", "type", message.Type, "error", err)
				w.Close()
				continue
			}
			w.Write(msgBytes)

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

// ServeWs upgrades a room member's connection. The player must present the
// session token issued when they joined the room.
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	session, ok := h.auth.SessionFromRequest(r)
	if !ok || session.RoomID != roomID {
		http.Error(w, "Unauthorized - join the room first", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("WebSocket upgrade error", "error", err)
		return
	}

	client := &Client{
		hub:     h,
		conn:    conn,
		send:    make(chan models.WSMessage, sendBuffer),
		session: session,
	}
	select {
	case h.register <- client:
	case <-h.ctx.Done():
		conn.Close()
		return
	}

	// Allow collection of memory referenced by the caller by doing all work in new goroutines
	go client.writePump()
	go client.readPump()
}

// ==================== Inbound ====================

// inbound is a client frame; the payload is decoded per type
type inbound struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// command carries the fields of every inbound payload
type command struct {
	RoundID   string  `json:"round_id"`
	CallID    string  `json:"call_id"`
	Text      string  `json:"text"`
	VideoTime float64 `json:"video_time"`
	LatencyMs float64 `json:"latency_ms"`
	Approve   bool    `json:"approve"`
	Action    string  `json:"action"`
	Note      string  `json:"note"`
}

// ErrorInfo is the payload of an error frame
type ErrorInfo struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (h *Hub) dispatch(c *Client, in inbound) {
	var cmd command
	if len(in.Payload) > 0 {
		if err := json.Unmarshal(in.Payload, &cmd); err != nil {
			h.log.Debug("Malformed payload", "type", in.Type, "player_id", c.session.PlayerID, "error", err)
			h.reply(c, in.Type, "malformed payload")
			return
		}
	}

	ctx := h.ctx
	player := c.session.PlayerID
	var err error
	switch in.Type {
	case MsgCall:
		_, err = h.rounds.SubmitCall(ctx, services.CallInput{
			RoundID:   cmd.RoundID,
			PlayerID:  player,
			Text:      cmd.Text,
			VideoTime: cmd.VideoTime,
			LatencyMs: cmd.LatencyMs,
		})
	case MsgVoteResponse:
		_, err = h.consensus.Respond(ctx, cmd.CallID, player, cmd.Approve)
	case MsgHostLock:
		err = h.rounds.Lock(ctx, cmd.RoundID, player)
	case MsgHostConfirm:
		_, err = h.rounds.Confirm(ctx, cmd.RoundID, player, cmd.Text, cmd.VideoTime)
	case MsgHostDismiss:
		_, err = h.rounds.Dismiss(ctx, cmd.RoundID, player, cmd.Text, cmd.VideoTime)
	case MsgHostMark:
		_, err = h.rounds.Mark(ctx, cmd.RoundID, player, cmd.VideoTime, cmd.Note)
	case MsgHostEndRound:
		err = h.rounds.EndRound(ctx, cmd.RoundID, player)
	case MsgHostVideo:
		err = h.rounds.Video(ctx, cmd.RoundID, player, cmd.Action, cmd.VideoTime)
	default:
		h.log.Debug("Unknown message type", "type", in.Type, "player_id", player)
		return
	}

	if err == nil || services.IsIgnored(err) {
		return
	}
	var svcErr *services.ServiceError
	if stderrors.As(err, &svcErr) {
		h.reply(c, in.Type, svcErr.Message)
		return
	}
	h.log.Error("Failed to handle message", "type", in.Type, "room_id", c.session.RoomID,
		"player_id", player, "error", err)
	h.reply(c, in.Type, "request failed")
}

// reply sends an error frame to one client only
func (h *Hub) reply(c *Client, msgType, message string) {
	h.SendPlayer(c.session.RoomID, c.session.PlayerID, models.WSMessage{
		Type:    models.MsgError,
		Payload: ErrorInfo{Type: msgType, Message: message},
	})
}
