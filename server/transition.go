package server

import (
	"github.com/Me8mer/robot-arena/game"
)

// Hysteresis gates, in ticks. An agent sitting exactly on its ring boundary
// flips the raw decision between chase and strafe every tick; these windows
// keep the state machine from following the noise.
const (
	// flipGateFrames suppresses chase<->strafe transitions after any such
	// flip (0.35s).
	flipGateFrames = 7

	// retargetGateFrames suppresses switching targets within the same
	// state (0.30s).
	retargetGateFrames = 6

	// idleGateFrames suppresses a snap to Idle right after leaving a
	// combat state, bridging single-tick perception gaps (0.25s).
	idleGateFrames = 5
)

// transitionMemory is the per-agent hysteresis state. It lives on the
// controller, created with it and discarded with it.
type transitionMemory struct {
	lastIntent game.MoveIntent
	lastTarget int

	flipGateUntil     int64
	retargetGateUntil int64
	idleGateUntil     int64
}

func (m *transitionMemory) reset() {
	m.lastIntent = game.MoveIdle
	m.lastTarget = game.NoTarget
	m.flipGateUntil = 0
	m.retargetGateUntil = 0
	m.idleGateUntil = 0
}

// arbitrate is the single place where states change. Every state's Tick
// defers the "should I leave" question here, keeping transition policy and
// its anti-jitter memory in one spot.
func (c *controller) arbitrate(d game.DecisionResult) {
	frame := c.s.world.Frame
	m := &c.trans
	current := c.state.ID()

	intent := d.Move
	target := d.MoveTarget

	// A movement target that died between decision and transition falls
	// back to Idle rather than entering a state with nothing to act on.
	if intent == game.MoveChaseEnemy || intent == game.MoveStrafeEnemy {
		if c.s.world.AliveAgent(target) == nil {
			intent = game.MoveIdle
			target = game.NoTarget
		}
	}
	if intent == game.MoveChasePickup {
		if pk := c.s.world.PickupByID(target); pk == nil || !pk.Active {
			intent = game.MoveIdle
			target = game.NoTarget
		}
	}

	switch intent {
	case game.MoveIdle:
		// Suppressed briefly after combat so a one-tick perception gap
		// between two non-idle decisions does not bounce through Idle.
		if current != game.StateIdle && frame < m.idleGateUntil {
			return
		}
		if current != game.StateIdle {
			c.switchState(&idleState{c: c}, intent, target, frame)
		}
		return

	case game.MoveRetreat:
		if current != game.StateRetreat {
			c.switchState(&retreatState{c: c}, intent, target, frame)
		}
		return
	}

	// Any chase/strafe intent re-arms the idle gate: a lone Idle decision
	// inside the window is treated as a perception hiccup.
	m.idleGateUntil = frame + idleGateFrames

	// Chase<->strafe flips are gated in both directions.
	isFlip := (current == game.StateChase && intent == game.MoveStrafeEnemy) ||
		(current == game.StateStrafe && intent == game.MoveChaseEnemy)
	if isFlip && frame < m.flipGateUntil {
		return
	}

	sameState := stateForIntent(intent) == current
	if sameState {
		// Same state, possibly a different target. Retargeting is gated
		// on its own shorter window; an identical intent and target is a
		// no-op. Intent matters too: agent and pickup IDs are separate
		// namespaces, so an equal target number alone proves nothing.
		if intent == m.lastIntent && target == m.lastTarget {
			return
		}
		if frame < m.retargetGateUntil {
			return
		}
	}

	switch intent {
	case game.MoveChaseEnemy:
		c.switchState(&chaseState{c: c, targetID: target, pickup: false}, intent, target, frame)
	case game.MoveChasePickup:
		c.switchState(&chaseState{c: c, targetID: target, pickup: true}, intent, target, frame)
	case game.MoveStrafeEnemy:
		c.switchState(&strafeState{c: c, targetID: target}, intent, target, frame)
	}

	if isFlip {
		m.flipGateUntil = frame + flipGateFrames
	}
}

func stateForIntent(intent game.MoveIntent) game.StateID {
	switch intent {
	case game.MoveChaseEnemy, game.MoveChasePickup:
		return game.StateChase
	case game.MoveStrafeEnemy:
		return game.StateStrafe
	case game.MoveRetreat:
		return game.StateRetreat
	default:
		return game.StateIdle
	}
}

// switchState swaps the active state, running exit and entry hooks and
// recording the transition in the hysteresis memory.
func (c *controller) switchState(next botState, intent game.MoveIntent, target int, frame int64) {
	c.state.Exit()
	c.state = next
	c.state.Enter()
	c.agent.State = next.ID()

	m := &c.trans
	m.lastIntent = intent
	m.lastTarget = target
	m.retargetGateUntil = frame + retargetGateFrames
}
