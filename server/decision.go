package server

import (
	"math"

	"github.com/Me8mer/robot-arena/game"
)

// Decision tuning
const (
	// RetreatHealthFraction triggers the retreat override in the
	// autonomous policy. The rule is health-only: armor is a renewable
	// buffer and gating retreat on it made bots linger in lost fights.
	RetreatHealthFraction = 0.30

	// Stickiness windows, in ticks. Once picked, a fire target is held
	// for 0.5s and a strafe target for 0.6s, re-validated every tick, so
	// two near-equidistant candidates cannot cause per-tick retargeting.
	fireStickFrames   = 10
	strafeStickFrames = 12
)

// stickinessMemory is the decision layer's short-term target memory.
type stickinessMemory struct {
	fireTarget  int
	fireUntil   int64
	strafeTget  int
	strafeUntil int64
}

func (m *stickinessMemory) reset() {
	m.fireTarget = game.NoTarget
	m.strafeTget = game.NoTarget
	m.fireUntil = 0
	m.strafeUntil = 0
}

// decideEnemy is the simple table: attack whatever visible enemy is inside
// the weapon's reach, otherwise chase the nearest visible one, otherwise
// idle. Enemy-policy bots fight to the death and ignore pickups.
func decideEnemy(c *controller) game.DecisionResult {
	visible := c.percep.EnemiesInRange()

	var inRange, nearest *game.Agent
	nearestDist := math.Inf(1)
	inRangeDist := math.Inf(1)
	for _, id := range visible {
		e := c.s.world.AliveAgent(id)
		if e == nil {
			continue
		}
		d := game.Distance(c.agent.Pos, e.Pos)
		if d < nearestDist {
			nearestDist = d
			nearest = e
		}
		if c.InEffectiveAttackRange(e, game.RingTolerance) && d < inRangeDist {
			inRangeDist = d
			inRange = e
		}
	}

	switch {
	case inRange != nil:
		return game.DecisionResult{Move: game.MoveStrafeEnemy, MoveTarget: inRange.ID, FireEnemy: inRange.ID}
	case nearest != nil:
		return game.DecisionResult{Move: game.MoveChaseEnemy, MoveTarget: nearest.ID, FireEnemy: nearest.ID}
	default:
		return game.DecisionResult{Move: game.MoveIdle, MoveTarget: game.NoTarget, FireEnemy: game.NoTarget}
	}
}

// decideAutonomous is the rich table: retreat override first, then pickup
// priority, then strafe-in-range, then chase, then idle. The fire target is
// chosen independently at the end so the agent shoots while doing any of
// the above.
func decideAutonomous(c *controller) game.DecisionResult {
	a := c.agent
	frame := c.s.world.Frame

	opponents := c.percep.AllOpponents()
	pickups := c.percep.AllPickups()
	visible := c.percep.EnemiesInRange()

	fire := c.pickFireTarget(opponents, frame)

	// Retreat overrides everything else. It requires a visible threat:
	// once every pursuer is out of sight the agent drops back into the
	// normal table, which is also how the Retreat state winds down.
	if a.HealthFraction() <= RetreatHealthFraction && len(visible) > 0 {
		return game.DecisionResult{Move: game.MoveRetreat, MoveTarget: game.NoTarget, FireEnemy: fire}
	}

	// Pickups have movement priority over combat positioning; firing
	// continues independently through the fire target above.
	if pk := c.nearestPickup(pickups); pk != nil {
		return game.DecisionResult{Move: game.MoveChasePickup, MoveTarget: pk.ID, FireEnemy: fire}
	}

	if target := c.pickStrafeTarget(visible, frame); target != game.NoTarget {
		return game.DecisionResult{Move: game.MoveStrafeEnemy, MoveTarget: target, FireEnemy: fire}
	}

	if nearest := c.nearestAgent(opponents); nearest != nil {
		return game.DecisionResult{Move: game.MoveChaseEnemy, MoveTarget: nearest.ID, FireEnemy: fire}
	}

	return game.DecisionResult{Move: game.MoveIdle, MoveTarget: game.NoTarget, FireEnemy: fire}
}

// pickFireTarget returns the nearest known enemy, held sticky for a short
// window once chosen. A stuck target is dropped early only if it dies.
func (c *controller) pickFireTarget(known []int, frame int64) int {
	if c.stick.fireTarget != game.NoTarget && frame < c.stick.fireUntil {
		if c.s.world.AliveAgent(c.stick.fireTarget) != nil {
			return c.stick.fireTarget
		}
		c.stick.fireTarget = game.NoTarget
	}

	nearest := c.nearestAgent(known)
	if nearest == nil {
		c.stick.fireTarget = game.NoTarget
		return game.NoTarget
	}
	c.stick.fireTarget = nearest.ID
	c.stick.fireUntil = frame + fireStickFrames
	return nearest.ID
}

// pickStrafeTarget returns an enemy worth strafing: inside the effective
// attack ring with a clear line of fire. The previous choice is kept while
// its stickiness window runs and it still qualifies on range.
func (c *controller) pickStrafeTarget(visible []int, frame int64) int {
	if c.stick.strafeTget != game.NoTarget && frame < c.stick.strafeUntil {
		if t := c.s.world.AliveAgent(c.stick.strafeTget); t != nil &&
			c.InEffectiveAttackRange(t, game.RingTolerance) {
			return c.stick.strafeTget
		}
		c.stick.strafeTget = game.NoTarget
	}

	var best *game.Agent
	bestDist := math.Inf(1)
	for _, id := range visible {
		e := c.s.world.AliveAgent(id)
		if e == nil {
			continue
		}
		if !c.InEffectiveAttackRange(e, game.RingTolerance) {
			continue
		}
		if !c.HasLineOfFireTo(e) {
			continue
		}
		if d := game.Distance(c.agent.Pos, e.Pos); d < bestDist {
			bestDist = d
			best = e
		}
	}

	if best == nil {
		c.stick.strafeTget = game.NoTarget
		return game.NoTarget
	}
	c.stick.strafeTget = best.ID
	c.stick.strafeUntil = frame + strafeStickFrames
	return best.ID
}

func (c *controller) nearestAgent(ids []int) *game.Agent {
	var nearest *game.Agent
	minDist := math.Inf(1)
	for _, id := range ids {
		e := c.s.world.AliveAgent(id)
		if e == nil {
			continue
		}
		if d := game.Distance(c.agent.Pos, e.Pos); d < minDist {
			minDist = d
			nearest = e
		}
	}
	return nearest
}

func (c *controller) nearestPickup(ids []int) *game.Pickup {
	var nearest *game.Pickup
	minDist := math.Inf(1)
	for _, id := range ids {
		pk := c.s.world.PickupByID(id)
		if pk == nil || !pk.Active {
			continue
		}
		if d := game.Distance(c.agent.Pos, pk.Pos); d < minDist {
			minDist = d
			nearest = pk
		}
	}
	return nearest
}
