package server

import (
	"encoding/json"
	"log"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Me8mer/robot-arena/game"
)

// isValidOrigin checks if the origin is allowed to connect
func isValidOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		// No origin header - could be a non-browser client
		return true
	}

	originURL, err := url.Parse(origin)
	if err != nil {
		log.Printf("Invalid origin URL: %s", origin)
		return false
	}

	// Allow same-origin connections
	if r.Host == originURL.Host {
		return true
	}

	// Allow localhost connections for development
	if strings.HasPrefix(originURL.Host, "localhost:") ||
		strings.HasPrefix(originURL.Host, "127.0.0.1:") ||
		originURL.Host == "localhost" ||
		originURL.Host == "127.0.0.1" {
		return true
	}

	log.Printf("Rejected WebSocket connection from origin: %s", origin)
	return false
}

var upgrader = websocket.Upgrader{
	CheckOrigin:       isValidOrigin,
	EnableCompression: true,
}

// Message types
const (
	MsgTypeJoin    = "join"
	MsgTypeAddBot  = "addbot"
	MsgTypeMove    = "move"
	MsgTypeFire    = "fire"
	MsgTypeLock    = "lock"
	MsgTypeReset   = "reset"
	MsgTypeQuit    = "quit"
	MsgTypeMessage = "message"
	MsgTypeUpdate  = "update"
	MsgTypeError   = "error"
)

// ClientMessage represents a message from client to server
type ClientMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// ServerMessage represents a message from server to client
type ServerMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Client represents a connected spectator or player
type Client struct {
	ID      int
	AgentID int
	conn    *websocket.Conn
	send    chan ServerMessage
	server  *Server
}

// Config carries the startup knobs the command line exposes.
type Config struct {
	Seed          int64
	ObstacleCount int
}

// Server manages the arena simulation and client connections
type Server struct {
	mu         sync.RWMutex
	clients    map[int]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan ServerMessage
	nextID     int

	world   *game.World
	spatial *SpatialIndex
	rng     *rand.Rand

	controllers [game.MaxAgents]*controller
	policies    [game.MaxAgents]Policy

	nextProjectileID int
	nextPickupID     int
	intermissionLeft int

	done     chan struct{}
	stopOnce sync.Once
}

// NewServer creates a new arena server.
func NewServer(cfg Config) *Server {
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	s := &Server{
		clients:    make(map[int]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan ServerMessage, 256),
		world:      game.NewWorld(),
		rng:        rand.New(rand.NewSource(cfg.Seed)),
		done:       make(chan struct{}),
	}
	s.spatial = NewSpatialIndex(s.world)

	s.world.Obstacles = generateObstacles(s.rng, cfg.ObstacleCount)
	s.spatial.RebuildObstacles()

	return s
}

// Shutdown stops the simulation and client loops.
func (s *Server) Shutdown() {
	s.stopOnce.Do(func() { close(s.done) })
}

// Run starts the server main loop
func (s *Server) Run() {
	go s.gameLoop()

	for {
		select {
		case <-s.done:
			return

		case client := <-s.register:
			s.mu.Lock()
			s.clients[client.ID] = client
			s.mu.Unlock()
			log.Printf("Client %d connected", client.ID)

		case client := <-s.unregister:
			s.mu.Lock()
			if _, ok := s.clients[client.ID]; ok {
				delete(s.clients, client.ID)
				close(client.send)

				// Immediately free the agent slot on disconnect
				if client.AgentID >= 0 && client.AgentID < game.MaxAgents {
					s.world.Mu.Lock()
					a := s.world.Agents[client.AgentID]
					if !a.IsBot && a.Status != game.StatusFree {
						log.Printf("Freeing slot for disconnected pilot %s", a.Name)
						s.destroyController(client.AgentID)
						a.Status = game.StatusFree
						a.Name = ""
					}
					s.world.Mu.Unlock()
				}
			}
			s.mu.Unlock()
			log.Printf("Client %d disconnected", client.ID)

		case message := <-s.broadcast:
			s.mu.RLock()
			for _, client := range s.clients {
				select {
				case client.send <- message:
				default:
					log.Printf("Warning: Client %d send buffer full, skipping broadcast", client.ID)
				}
			}
			s.mu.RUnlock()
		}
	}
}

// gameLoop runs the main simulation
func (s *Server) gameLoop() {
	ticker := time.NewTicker(game.UpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.updateGame()
			s.sendGameState()
		}
	}
}

// updateGame advances the simulation by one tick. The order is fixed:
// index rebuild, AI, movement, projectiles, pickups, regeneration,
// explosions, victory. Every agent's decision this tick therefore reads
// the positions committed at the end of the previous tick.
func (s *Server) updateGame() {
	s.world.Mu.Lock()
	defer s.world.Mu.Unlock()
	s.tickOnce()
}

// tickOnce is the tick body. Caller must hold the world lock.
func (s *Server) tickOnce() {
	s.world.Frame++

	s.spatial.Reindex()

	s.UpdateBots()

	for _, c := range s.controllers {
		if c == nil || c.agent.Status != game.StatusAlive {
			continue
		}
		c.mover.Integrate(game.TickSeconds)
	}

	s.UpdateProjectiles()
	s.UpdatePickups()

	for _, a := range s.world.Agents {
		if a.Status == game.StatusAlive {
			game.RegenTick(a, game.TickSeconds)
		}
	}

	s.UpdateExplosions()
	s.CheckVictory()
}

// notify broadcasts an event line to all clients. from is the agent the
// event is about, or game.NoTarget for arena-level events.
func (s *Server) notify(text string, from int) {
	msg := ServerMessage{
		Type: MsgTypeMessage,
		Data: map[string]interface{}{
			"text": text,
			"from": from,
		},
	}
	select {
	case s.broadcast <- msg:
	default:
		log.Printf("Warning: broadcast buffer full, dropping message: %s", text)
	}
}

// agentView is the per-agent slice of the state feed. Internal AI memory
// stays server-side; clients see only what a spectator could observe.
type agentView struct {
	ID        int     `json:"id"`
	Name      string  `json:"name"`
	Team      int     `json:"team"`
	Class     int     `json:"class"`
	Status    int     `json:"status"`
	X         float64 `json:"x"`
	Z         float64 `json:"z"`
	Heading   float64 `json:"heading"`
	TurretYaw float64 `json:"turretYaw"`
	Health    int     `json:"health"`
	Armor     int     `json:"armor"`
	Kills     int     `json:"kills"`
	Deaths    int     `json:"deaths"`
	State     string  `json:"state"`
	IsBot     bool    `json:"isBot"`
}

type projectileView struct {
	ID    int     `json:"id"`
	Owner int     `json:"owner"`
	X     float64 `json:"x"`
	Z     float64 `json:"z"`
}

type pickupView struct {
	ID   int     `json:"id"`
	Type string  `json:"type"`
	X    float64 `json:"x"`
	Z    float64 `json:"z"`
}

// sendGameState sends the current arena state to all clients
func (s *Server) sendGameState() {
	s.world.Mu.RLock()

	agents := make([]agentView, 0, game.MaxAgents)
	for _, a := range s.world.Agents {
		if a.Status == game.StatusFree {
			continue
		}
		agents = append(agents, agentView{
			ID:        a.ID,
			Name:      a.Name,
			Team:      a.Team,
			Class:     int(a.Class),
			Status:    a.Status,
			X:         a.Pos.X(),
			Z:         a.Pos.Z(),
			Heading:   a.Heading,
			TurretYaw: a.TurretYaw,
			Health:    a.Health,
			Armor:     a.Armor,
			Kills:     a.Kills,
			Deaths:    a.Deaths,
			State:     a.State.String(),
			IsBot:     a.IsBot,
		})
	}

	projectiles := make([]projectileView, 0, len(s.world.Projectiles))
	for _, p := range s.world.Projectiles {
		projectiles = append(projectiles, projectileView{
			ID:    p.ID,
			Owner: p.Owner,
			X:     p.Pos.X(),
			Z:     p.Pos.Z(),
		})
	}

	pickups := make([]pickupView, 0, len(s.world.Pickups))
	for _, pk := range s.world.Pickups {
		if !pk.Active {
			continue
		}
		pickups = append(pickups, pickupView{
			ID:   pk.ID,
			Type: pk.Type.String(),
			X:    pk.Pos.X(),
			Z:    pk.Pos.Z(),
		})
	}

	update := struct {
		Frame       int64            `json:"frame"`
		Round       int              `json:"round"`
		Agents      []agentView      `json:"agents"`
		Projectiles []projectileView `json:"projectiles"`
		Pickups     []pickupView     `json:"pickups"`
		GameOver    bool             `json:"gameOver"`
		Winner      int              `json:"winner,omitempty"`
	}{
		Frame:       s.world.Frame,
		Round:       s.world.RoundCount,
		Agents:      agents,
		Projectiles: projectiles,
		Pickups:     pickups,
		GameOver:    s.world.GameOver,
		Winner:      s.world.Winner,
	}

	s.world.Mu.RUnlock()

	// Non-blocking like notify: once Run has returned after Shutdown,
	// nothing drains the channel and a blocking send would wedge gameLoop.
	select {
	case s.broadcast <- ServerMessage{Type: MsgTypeUpdate, Data: update}:
	default:
		log.Printf("Warning: broadcast buffer full, dropping state update for frame %d", update.Frame)
	}
}

// HandleWebSocket handles WebSocket connections
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	s.mu.Lock()
	clientID := s.nextID
	s.nextID++
	s.mu.Unlock()

	client := &Client{
		ID:      clientID,
		AgentID: -1,
		conn:    conn,
		send:    make(chan ServerMessage, 256),
		server:  s,
	}

	s.register <- client

	go client.writePump()
	go client.readPump()
}

// readPump handles incoming messages from the client
func (c *Client) readPump() {
	defer func() {
		c.server.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		var msg ClientMessage
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		c.handleMessage(msg)
	}
}

// writePump sends messages to the client
func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage processes a message from the client
func (c *Client) handleMessage(msg ClientMessage) {
	// Recover from any panic to prevent disconnection
	defer func() {
		if r := recover(); r != nil {
			log.Printf("PANIC in handleMessage for client %d, type %s: %v", c.ID, msg.Type, r)
		}
	}()

	switch msg.Type {
	case MsgTypeJoin:
		c.handleJoin(msg.Data)
	case MsgTypeAddBot:
		c.handleAddBot(msg.Data)
	case MsgTypeMove:
		c.handleMove(msg.Data)
	case MsgTypeFire:
		c.handleFire(msg.Data)
	case MsgTypeLock:
		c.handleLock(msg.Data)
	case MsgTypeReset:
		c.handleReset(msg.Data)
	case MsgTypeQuit:
		c.handleQuit(msg.Data)
	default:
		log.Printf("Unknown message type: %s", msg.Type)
	}
}
