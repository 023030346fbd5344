package server

import (
	"fmt"
	"math"

	uuid "github.com/satori/go.uuid"

	"github.com/Me8mer/robot-arena/game"
)

// Policy selects the decision table a bot runs.
type Policy int

const (
	// PolicyEnemy fights to the death: attack in range, otherwise chase,
	// otherwise idle. No retreat, no pickups.
	PolicyEnemy Policy = iota
	// PolicyAutonomous is the richer table with whole-map awareness,
	// pickup priority and low-health retreat.
	PolicyAutonomous
)

// BotNames for generating random bot names
var BotNames = []string{
	"HAL-9000", "R2-D2", "C-3PO", "Data", "Bishop", "T-800",
	"Johnny-5", "WALL-E", "EVE", "Optimus", "Bender", "K-2SO",
	"BB-8", "IG-88", "HK-47", "GLaDOS", "SHODAN", "Cortana",
	"Friday", "Jarvis", "Vision", "Ultron", "Skynet", "Agent-Smith",
}

// controller drives one agent: it owns the perception cache, the decision
// output, the transition memory and the active state. Everything the agent's
// AI remembers between ticks lives here, not in package-level maps, so slot
// reuse cannot leak state from a destroyed agent.
type controller struct {
	s      *Server
	agent  *game.Agent
	mover  *Mover
	percep *Perception
	policy Policy

	state    botState
	decision game.DecisionResult

	trans transitionMemory
	stick stickinessMemory

	cooldownLeft int

	// Path-request throttle state (see TrySetDestinationSmart).
	lastPathFrame int64

	// Derived stat cache, refreshed when Stats.Generation moves.
	weaponRange float64
	statsGen    int
}

func newController(s *Server, a *game.Agent, policy Policy) *controller {
	c := &controller{
		s:             s,
		agent:         a,
		mover:         NewMover(s.world, a),
		percep:        NewPerception(s, a),
		policy:        policy,
		lastPathFrame: -pathRequestCooldownFrames,
	}
	c.trans.reset()
	c.stick.reset()
	c.state = &idleState{c: c}
	c.state.Enter()
	return c
}

// effectiveWeaponRange returns the weapon range, re-deriving it whenever a
// build application bumped the stats generation.
func (c *controller) effectiveWeaponRange() float64 {
	if st := c.agent.Stats; st != nil && st.Generation != c.statsGen {
		c.statsGen = st.Generation
		c.weaponRange = st.WeaponRange
	}
	return c.weaponRange
}

// tick runs one full AI step for the agent: decision, transition
// arbitration, state movement, then the independent firing gate. Perception
// refreshes lazily inside the decision functions, which keeps each refresh
// strictly before any use of its data.
func (c *controller) tick() {
	a := c.agent
	if a.Status != game.StatusAlive {
		return
	}

	if !a.IsBot {
		c.manualTick()
		return
	}

	if c.s.world.ControlLocked {
		c.decision = game.DecisionResult{
			Move:       game.MoveIdle,
			MoveTarget: game.NoTarget,
			FireEnemy:  game.NoTarget,
		}
	} else {
		switch c.policy {
		case PolicyEnemy:
			c.decision = decideEnemy(c)
		default:
			c.decision = decideAutonomous(c)
		}
	}

	c.arbitrate(c.decision)
	c.state.Tick()
	c.updateFiring()
}

// manualTick executes the orders of a human-driven agent: walk to the
// ordered point, shoot at the ordered target. The control lock freezes
// manual agents too.
func (c *controller) manualTick() {
	a := c.agent
	if c.s.world.ControlLocked {
		c.mover.ResetPath()
		return
	}

	if a.ManualGoalSet {
		c.TrySetDestinationSmart(a.ManualGoal)
		if game.Distance(a.Pos, a.ManualGoal) <= ArriveRadius {
			a.ManualGoalSet = false
		}
	}

	c.decision = game.DecisionResult{
		Move:       game.MoveIdle,
		MoveTarget: game.NoTarget,
		FireEnemy:  a.ManualFire,
	}
	c.updateFiring()
}

// AddBot adds a new bot to the arena. Returns the agent ID, or -1 when no
// slot is free. Caller must hold the world lock.
func (s *Server) AddBot(team int, class game.ClassType, policy Policy) int {
	botID := -1
	for i := 0; i < game.MaxAgents; i++ {
		if s.world.Agents[i].Status == game.StatusFree {
			botID = i
			break
		}
	}
	if botID == -1 {
		return -1 // No free slots
	}

	a := s.world.Agents[botID]
	a.ID = botID
	a.UID = uuid.NewV4().String()
	a.Name = fmt.Sprintf("[BOT] %s", BotNames[s.rng.Intn(len(BotNames))])
	a.Team = team
	a.Class = class
	a.Status = game.StatusAlive
	a.IsBot = true
	a.Stats = game.NewStats(class)
	a.Health = a.Stats.MaxHealth
	a.Armor = a.Stats.MaxArmor
	a.State = game.StateIdle
	a.Kills = 0
	a.Deaths = 0
	a.KilledBy = game.NoTarget
	a.ManualFire = game.NoTarget
	a.ManualGoalSet = false
	a.Pos = s.spawnPoint(team)
	a.Heading = s.rng.Float64() * 2 * math.Pi
	a.TurretYaw = a.Heading

	s.policies[botID] = policy
	s.controllers[botID] = newController(s, a, policy)

	s.notify(fmt.Sprintf("%s has entered the arena", a.Name), botID)
	return botID
}

// UpdateBots runs the AI step of every agent. Caller must hold the world
// lock. Agents tick in slot order; nothing may depend on that order, since
// every cross-agent read sees previous-tick committed state.
func (s *Server) UpdateBots() {
	for i, c := range s.controllers {
		if c == nil {
			continue
		}
		if s.world.Agents[i].Status != game.StatusAlive {
			continue
		}
		c.tick()
	}
}

// destroyController tears down the AI of a dead or removed agent.
func (s *Server) destroyController(id int) {
	if id < 0 || id >= game.MaxAgents {
		return
	}
	if c := s.controllers[id]; c != nil && c.state != nil {
		c.state.Exit()
	}
	s.controllers[id] = nil
}
