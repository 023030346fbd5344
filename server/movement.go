package server

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Me8mer/robot-arena/game"
)

const (
	// ArriveRadius is how close an agent must come to its destination to
	// consider the path done.
	ArriveRadius = 0.35

	// pathPlanFrames simulates the short asynchronous planning delay of a
	// real navigation backend: a fresh destination is "pending" for this
	// many ticks before the mover starts following it.
	pathPlanFrames = 1
)

// Mover is the path/movement service consumed by the AI core. The core only
// requests destinations and reads pending/velocity state; the actual
// locomotion here is straight-line steering, standing in for an external
// pathfinding backend.
type Mover struct {
	agent *game.Agent
	world *game.World

	dest        mgl64.Vec3
	hasPath     bool
	pendingLeft int

	velocity  mgl64.Vec3
	speedMult float64
	autoBrake bool
}

// NewMover creates a mover bound to an agent.
func NewMover(w *game.World, a *game.Agent) *Mover {
	return &Mover{agent: a, world: w, speedMult: 1, autoBrake: true}
}

// SetDestination requests a new path toward a ground-plane point.
func (m *Mover) SetDestination(p mgl64.Vec3) {
	m.dest = game.ClampToArena(game.Flat(p))
	m.hasPath = true
	m.pendingLeft = pathPlanFrames
}

// PathPending reports whether a requested path is still being computed.
func (m *Mover) PathPending() bool { return m.hasPath && m.pendingLeft > 0 }

// HasPath reports whether the mover is following a destination.
func (m *Mover) HasPath() bool { return m.hasPath }

// Destination returns the current path goal; only meaningful when HasPath.
func (m *Mover) Destination() mgl64.Vec3 { return m.dest }

// Velocity returns the last integrated velocity in meters per second.
func (m *Mover) Velocity() mgl64.Vec3 { return m.velocity }

// ResetPath drops the current destination and stops the agent.
func (m *Mover) ResetPath() {
	m.hasPath = false
	m.pendingLeft = 0
	m.velocity = mgl64.Vec3{}
}

// Warp teleports the agent, dropping any path. Used by the round controller
// when respawning between rounds.
func (m *Mover) Warp(p mgl64.Vec3) {
	m.agent.Pos = game.ClampToArena(game.Flat(p))
	m.ResetPath()
}

// SetSpeedMultiplier scales movement speed; states use this to sprint while
// chasing. Restored to 1 by the state's exit hook.
func (m *Mover) SetSpeedMultiplier(mult float64) { m.speedMult = mult }

// SetAutoBrake toggles deceleration near the destination. Chase disables it
// for snappier stop/restart against a moving target.
func (m *Mover) SetAutoBrake(on bool) { m.autoBrake = on }

// Integrate advances the agent one tick along its path.
func (m *Mover) Integrate(dt float64) {
	a := m.agent
	if a.Status != game.StatusAlive || !m.hasPath {
		m.velocity = mgl64.Vec3{}
		return
	}

	if m.pendingLeft > 0 {
		m.pendingLeft--
		m.velocity = mgl64.Vec3{}
		return
	}

	toGoal := m.dest.Sub(a.Pos)
	toGoal[1] = 0
	dist := toGoal.Len()
	if dist <= ArriveRadius {
		m.hasPath = false
		m.velocity = mgl64.Vec3{}
		return
	}

	speed := a.Stats.EffectiveSpeed(m.world.Frame) * m.speedMult
	if m.autoBrake && dist < speed*0.5 {
		// Slow into the goal instead of overshooting.
		speed = game.Distance(a.Pos, m.dest) * 2
	}

	step := speed * dt
	if step > dist {
		step = dist
	}

	dir := toGoal.Mul(1 / dist)
	a.Pos = game.ClampToArena(a.Pos.Add(dir.Mul(step)))
	a.Heading = headingOf(dir)
	m.velocity = dir.Mul(speed)
}

// headingOf converts a ground-plane direction into a yaw angle.
func headingOf(dir mgl64.Vec3) float64 {
	return game.NormalizeAngle(math.Atan2(dir.Z(), dir.X()))
}
