package server

import (
	"encoding/json"
	"fmt"
	"html"
	"log"
	"math"
	"net/http"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	uuid "github.com/satori/go.uuid"

	"github.com/Me8mer/robot-arena/game"
)

// sanitizeName removes non-alphanumeric characters and escapes HTML
func sanitizeName(name string) string {
	const maxNameLength = 20
	if len(name) > maxNameLength {
		name = name[:maxNameLength]
	}

	cleaned := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return -1
	}, name)

	return html.EscapeString(cleaned)
}

// validateTeam ensures team is valid
func validateTeam(team int) bool {
	return team == game.TeamRed || team == game.TeamBlue
}

// validateClass ensures class type is valid
func validateClass(class game.ClassType) bool {
	_, ok := game.ClassData[class]
	return ok
}

// JoinData represents a pilot join request
type JoinData struct {
	Name  string         `json:"name"`
	Team  int            `json:"team"`
	Class game.ClassType `json:"class"`
}

// AddBotData represents a bot spawn request
type AddBotData struct {
	Team   int            `json:"team"`
	Class  game.ClassType `json:"class"`
	Policy string         `json:"policy"`
}

// MoveData represents a manual move order
type MoveData struct {
	X float64 `json:"x"`
	Z float64 `json:"z"`
}

// FireData represents a manual fire order
type FireData struct {
	Target int `json:"target"` // agent ID, or -1 to hold fire
}

// LockData toggles the arena-wide control freeze
type LockData struct {
	Locked bool `json:"locked"`
}

func (c *Client) sendError(text string) {
	c.send <- ServerMessage{
		Type: MsgTypeError,
		Data: text,
	}
}

// handleJoin puts the client in control of a fresh agent
func (c *Client) handleJoin(data json.RawMessage) {
	var join JoinData
	if err := json.Unmarshal(data, &join); err != nil {
		c.sendError("Invalid join data")
		return
	}

	if !validateTeam(join.Team) {
		c.sendError("Invalid team selection")
		return
	}
	if !validateClass(join.Class) {
		c.sendError("Invalid class selection")
		return
	}
	if c.AgentID >= 0 {
		c.sendError("Already controlling an agent")
		return
	}

	name := sanitizeName(join.Name)
	if name == "" {
		name = "Pilot"
	}

	s := c.server
	s.world.Mu.Lock()
	defer s.world.Mu.Unlock()

	slot := -1
	for i := 0; i < game.MaxAgents; i++ {
		if s.world.Agents[i].Status == game.StatusFree {
			slot = i
			break
		}
	}
	if slot == -1 {
		c.sendError("Arena is full")
		return
	}

	a := s.world.Agents[slot]
	a.ID = slot
	a.UID = uuid.NewV4().String()
	a.Name = name
	a.Team = join.Team
	a.Class = join.Class
	a.Status = game.StatusAlive
	a.IsBot = false
	a.Stats = game.NewStats(join.Class)
	a.Health = a.Stats.MaxHealth
	a.Armor = a.Stats.MaxArmor
	a.State = game.StateIdle
	a.Kills = 0
	a.Deaths = 0
	a.KilledBy = game.NoTarget
	a.ManualFire = game.NoTarget
	a.ManualGoalSet = false
	a.Pos = s.spawnPoint(join.Team)
	a.Heading = s.rng.Float64() * 2 * math.Pi
	a.TurretYaw = a.Heading

	s.policies[slot] = PolicyAutonomous
	s.controllers[slot] = newController(s, a, PolicyAutonomous)

	c.AgentID = slot
	s.notify(fmt.Sprintf("%s has entered the arena", a.Name), slot)
}

// handleAddBot spawns a bot into a free slot
func (c *Client) handleAddBot(data json.RawMessage) {
	var req AddBotData
	if err := json.Unmarshal(data, &req); err != nil {
		c.sendError("Invalid bot request")
		return
	}

	if !validateTeam(req.Team) {
		c.sendError("Invalid team selection")
		return
	}
	if !validateClass(req.Class) {
		c.sendError("Invalid class selection")
		return
	}

	policy := PolicyAutonomous
	if req.Policy == "enemy" {
		policy = PolicyEnemy
	}

	s := c.server
	s.world.Mu.Lock()
	id := s.AddBot(req.Team, req.Class, policy)
	s.world.Mu.Unlock()

	if id == -1 {
		c.sendError("Arena is full")
	}
}

// handleMove sets the controlled agent's goal point
func (c *Client) handleMove(data json.RawMessage) {
	var move MoveData
	if err := json.Unmarshal(data, &move); err != nil {
		c.sendError("Invalid move data")
		return
	}

	s := c.server
	s.world.Mu.Lock()
	defer s.world.Mu.Unlock()

	a := s.world.AliveAgent(c.AgentID)
	if a == nil || a.IsBot {
		return
	}

	a.ManualGoal = game.ClampToArena(mgl64.Vec3{move.X, 0, move.Z})
	a.ManualGoalSet = true
}

// handleFire sets the controlled agent's fire order
func (c *Client) handleFire(data json.RawMessage) {
	var fire FireData
	if err := json.Unmarshal(data, &fire); err != nil {
		c.sendError("Invalid fire data")
		return
	}
	if fire.Target < game.NoTarget || fire.Target >= game.MaxAgents {
		c.sendError("Invalid fire target")
		return
	}

	s := c.server
	s.world.Mu.Lock()
	defer s.world.Mu.Unlock()

	a := s.world.AliveAgent(c.AgentID)
	if a == nil || a.IsBot {
		return
	}

	a.ManualFire = fire.Target
}

// handleLock toggles the arena control freeze
func (c *Client) handleLock(data json.RawMessage) {
	var lock LockData
	if err := json.Unmarshal(data, &lock); err != nil {
		c.sendError("Invalid lock data")
		return
	}

	s := c.server
	s.world.Mu.Lock()
	s.world.ControlLocked = lock.Locked
	s.world.Mu.Unlock()

	if lock.Locked {
		s.notify("Arena control locked", game.NoTarget)
	} else {
		s.notify("Arena control unlocked", game.NoTarget)
	}
}

// handleReset forces the next round immediately
func (c *Client) handleReset(data json.RawMessage) {
	s := c.server
	s.world.Mu.Lock()
	s.resetRound()
	s.world.Mu.Unlock()

	log.Printf("Arena reset requested by client %d", c.ID)
}

// handleQuit releases the client's agent slot
func (c *Client) handleQuit(data json.RawMessage) {
	s := c.server
	s.world.Mu.Lock()
	defer s.world.Mu.Unlock()

	if c.AgentID < 0 || c.AgentID >= game.MaxAgents {
		return
	}

	a := s.world.Agents[c.AgentID]
	if a.Status != game.StatusFree {
		s.notify(fmt.Sprintf("%s has left the arena", a.Name), c.AgentID)
		s.destroyController(c.AgentID)
		a.Status = game.StatusFree
		a.Name = ""
	}
	c.AgentID = -1
}

// HandleArenaStats returns current team populations and scores
func (s *Server) HandleArenaStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Content-Type", "application/json")

	s.world.Mu.RLock()
	defer s.world.Mu.RUnlock()

	teamCounts := map[string]int{"red": 0, "blue": 0}
	teamKills := map[string]int{"red": 0, "blue": 0}

	total := 0
	for _, a := range s.world.Agents {
		if a.Status == game.StatusFree {
			continue
		}
		total++
		switch a.Team {
		case game.TeamRed:
			teamCounts["red"]++
			teamKills["red"] += a.Kills
		case game.TeamBlue:
			teamCounts["blue"]++
			teamKills["blue"] += a.Kills
		}
	}

	response := map[string]interface{}{
		"total": total,
		"round": s.world.RoundCount,
		"teams": teamCounts,
		"kills": teamKills,
	}

	json.NewEncoder(w).Encode(response)
}
