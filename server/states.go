package server

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/Me8mer/robot-arena/game"
)

// State tuning
const (
	// chaseSpeedMult is the sprint applied while chasing.
	chaseSpeedMult = 1.15

	// chaseRepathThreshold: re-path only when the target has drifted this
	// far from the current path goal.
	chaseRepathThreshold = 1.0

	// orbitStepMeters is the tangential step per path request while
	// strafing.
	orbitStepMeters = 2.0

	// orbitFlipFrames flips the orbit direction every 3s so circling
	// stays unpredictable.
	orbitFlipFrames = 60

	// Arc search parameters when line of fire is lost mid-strafe.
	losArcStepMeters = 2.0
	losArcSamples    = 10

	// Retreat hop parameters.
	retreatHopDistance  = 6.0
	retreatSamples      = 7
	retreatHalfAngleDeg = 75.0
	retreatReevalFrames = 5 // re-score the hop every 0.25s, not every tick
)

// botState is the Enter/Tick/Exit contract every behavior state implements.
// States execute movement only; whether to leave is always the transition
// helper's call, never the state's own.
type botState interface {
	ID() game.StateID
	Enter()
	Tick()
	Exit()
}

// idleState: stationary, zero speed. The armor regen bonus for idling is
// applied by the regen pass keying off Agent.State.
type idleState struct {
	c *controller
}

func (st *idleState) ID() game.StateID { return game.StateIdle }

func (st *idleState) Enter() {
	st.c.mover.ResetPath()
}

func (st *idleState) Tick() {}
func (st *idleState) Exit() {}

// chaseState paths toward a moving target, enemy or pickup, at an elevated
// speed with auto-brake off for snappier stop/restart.
type chaseState struct {
	c        *controller
	targetID int
	pickup   bool
}

func (st *chaseState) ID() game.StateID { return game.StateChase }

func (st *chaseState) Enter() {
	st.c.mover.SetSpeedMultiplier(chaseSpeedMult)
	st.c.mover.SetAutoBrake(false)
}

func (st *chaseState) Tick() {
	goal, ok := st.targetPos()
	if !ok {
		// Target died or was consumed between decision and now; stop and
		// let the next arbitration pick something else.
		st.c.mover.ResetPath()
		return
	}

	// Re-path only when the target actually moved and no path is pending.
	if st.c.mover.HasPath() &&
		game.Distance(st.c.mover.Destination(), goal) < chaseRepathThreshold {
		return
	}
	st.c.TrySetDestinationSmart(goal)
}

func (st *chaseState) Exit() {
	st.c.mover.SetSpeedMultiplier(1)
	st.c.mover.SetAutoBrake(true)
}

func (st *chaseState) targetPos() (mgl64.Vec3, bool) {
	if st.pickup {
		pk := st.c.s.world.PickupByID(st.targetID)
		if pk == nil || !pk.Active {
			return mgl64.Vec3{}, false
		}
		return pk.Pos, true
	}
	t := st.c.s.world.AliveAgent(st.targetID)
	if t == nil {
		return mgl64.Vec3{}, false
	}
	return t.Pos, true
}

// strafeState holds the attack ring around one enemy: back out when too
// close, slide tangentially without closing when too far, orbit inside the
// hysteresis band, and break off sideways the moment line of fire is lost.
type strafeState struct {
	c        *controller
	targetID int

	orbitDir      int
	nextFlipFrame int64
}

func (st *strafeState) ID() game.StateID { return game.StateStrafe }

func (st *strafeState) Enter() {
	// Starting direction from the agent identity, so siblings entering a
	// fight at the same time circle opposite ways.
	st.orbitDir = 1
	if st.c.agent.ID%2 == 1 {
		st.orbitDir = -1
	}
	st.nextFlipFrame = st.c.s.world.Frame + orbitFlipFrames
}

func (st *strafeState) Tick() {
	c := st.c
	target := c.s.world.AliveAgent(st.targetID)
	if target == nil {
		c.mover.ResetPath()
		return
	}

	frame := c.s.world.Frame
	if frame >= st.nextFlipFrame {
		st.orbitDir = -st.orbitDir
		st.nextFlipFrame = frame + orbitFlipFrames
	}

	me := c.agent.Pos
	ring := c.ComputeAttackRing(target, game.RingCushion)
	dist := game.Distance(me, target.Pos)

	// Line of fire first: a wall between us and the target makes position
	// on the ring worthless.
	if !c.HasLineOfFireTo(target) {
		if point, ok := c.TryFindLOSOnRing(target, game.RingCushion, losArcStepMeters, losArcSamples); ok {
			c.ForceSetDestination(point)
		} else {
			// Nothing on the arc restores sight; keep drifting at the
			// current radius rather than standing still.
			c.TrySetDestinationSmart(OrbitPointOnRing(me, target.Pos, dist, st.orbitDir, orbitStepMeters))
		}
		return
	}

	switch {
	case dist < ring-game.RingHysteresis:
		// Too close: back straight out to the ring.
		away := game.Flat(me.Sub(target.Pos))
		if away.Len() < 1e-9 {
			away = mgl64.Vec3{1, 0, 0}
		}
		dest := game.Flat(target.Pos).Add(away.Normalize().Mul(ring))
		c.TrySetDestinationSmart(dest)

	case dist > ring+game.RingHysteresis:
		// Too far: hold the current radius and slide tangentially.
		// Closing distance here is the chase state's job; doing it from
		// strafe is what causes ring-boundary oscillation.
		c.TrySetDestinationSmart(OrbitPointOnRing(me, target.Pos, dist, st.orbitDir, orbitStepMeters))

	default:
		// In the band: circle.
		c.TrySetDestinationSmart(OrbitPointOnRing(me, target.Pos, ring, st.orbitDir, orbitStepMeters))
	}
}

func (st *strafeState) Exit() {}

// retreatState hops away from every currently visible threat, re-scoring
// the hop on a short timer instead of every tick.
type retreatState struct {
	c            *controller
	nextHopFrame int64
}

func (st *retreatState) ID() game.StateID { return game.StateRetreat }

func (st *retreatState) Enter() {
	st.nextHopFrame = 0 // first tick hops immediately
}

func (st *retreatState) Tick() {
	c := st.c
	frame := c.s.world.Frame
	if frame < st.nextHopFrame {
		return
	}
	st.nextHopFrame = frame + retreatReevalFrames

	var threats []mgl64.Vec3
	for _, id := range c.percep.EnemiesInRange() {
		if e := c.s.world.AliveAgent(id); e != nil {
			threats = append(threats, e.Pos)
		}
	}
	if len(threats) == 0 {
		// Nothing visible to run from; stand fast and let the next
		// decision route somewhere useful.
		c.mover.ResetPath()
		return
	}

	hop := c.s.FindBestRetreatHop(c.agent.Pos, threats, retreatHopDistance,
		retreatSamples, retreatHalfAngleDeg, c.agent.ID)
	c.ForceSetDestination(hop)
}

func (st *retreatState) Exit() {}
