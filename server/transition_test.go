package server

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Me8mer/robot-arena/game"
)

func transitionFixture(t *testing.T) (*Server, *controller, *game.Agent) {
	t.Helper()
	s := newTestServer()
	s.world.Mu.Lock()
	t.Cleanup(s.world.Mu.Unlock)

	_, c := addTestBot(t, s, game.TeamRed, game.ClassBrawler, PolicyEnemy)
	target, _ := addTestBot(t, s, game.TeamBlue, game.ClassBrawler, PolicyEnemy)
	return s, c, target
}

func TestArbitrateEntersStates(t *testing.T) {
	tests := []struct {
		name   string
		intent game.MoveIntent
		want   game.StateID
	}{
		{"Chase enemy", game.MoveChaseEnemy, game.StateChase},
		{"Strafe enemy", game.MoveStrafeEnemy, game.StateStrafe},
		{"Retreat", game.MoveRetreat, game.StateRetreat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, c, target := transitionFixture(t)
			c.arbitrate(game.DecisionResult{Move: tt.intent, MoveTarget: target.ID, FireEnemy: game.NoTarget})
			if got := c.state.ID(); got != tt.want {
				t.Errorf("state = %v, want %v", got, tt.want)
			}
			if c.agent.State != tt.want {
				t.Errorf("agent.State = %v, want %v", c.agent.State, tt.want)
			}
		})
	}
}

func TestArbitrateFlipSuppression(t *testing.T) {
	s, c, target := transitionFixture(t)

	chase := game.DecisionResult{Move: game.MoveChaseEnemy, MoveTarget: target.ID, FireEnemy: target.ID}
	strafe := game.DecisionResult{Move: game.MoveStrafeEnemy, MoveTarget: target.ID, FireEnemy: target.ID}

	s.world.Frame = 100
	c.arbitrate(chase)
	if c.state.ID() != game.StateChase {
		t.Fatalf("state = %v, want chase", c.state.ID())
	}

	// First flip goes through and arms the gate.
	s.world.Frame++
	c.arbitrate(strafe)
	if c.state.ID() != game.StateStrafe {
		t.Fatalf("first flip suppressed; state = %v", c.state.ID())
	}

	// The raw decision now flips every tick; the state must not follow.
	flipStart := s.world.Frame
	for s.world.Frame < flipStart+flipGateFrames-1 {
		s.world.Frame++
		c.arbitrate(chase)
		if c.state.ID() != game.StateStrafe {
			t.Fatalf("flip at frame %d not suppressed", s.world.Frame)
		}
		c.arbitrate(strafe)
	}

	// Once the gate expires the flip is honored again.
	s.world.Frame = flipStart + flipGateFrames
	c.arbitrate(chase)
	if c.state.ID() != game.StateChase {
		t.Errorf("flip after gate expiry still suppressed; state = %v", c.state.ID())
	}
}

func TestArbitrateIdleGapBridged(t *testing.T) {
	s, c, target := transitionFixture(t)

	chase := game.DecisionResult{Move: game.MoveChaseEnemy, MoveTarget: target.ID, FireEnemy: target.ID}
	idle := game.DecisionResult{Move: game.MoveIdle, MoveTarget: game.NoTarget, FireEnemy: game.NoTarget}

	s.world.Frame = 100
	c.arbitrate(chase)

	// A one-tick perception gap produces a lone Idle decision; the agent
	// must stay in Chase.
	s.world.Frame++
	c.arbitrate(idle)
	if c.state.ID() != game.StateIdle && c.state.ID() != game.StateChase {
		t.Fatalf("unexpected state %v", c.state.ID())
	}
	if c.state.ID() == game.StateIdle {
		t.Fatal("single-tick idle gap dropped the agent out of chase")
	}

	// A sustained Idle stream lands in Idle once the gate expires.
	for i := 0; i < idleGateFrames+1; i++ {
		s.world.Frame++
		c.arbitrate(idle)
	}
	if c.state.ID() != game.StateIdle {
		t.Errorf("state = %v after sustained idle, want idle", c.state.ID())
	}
}

func TestArbitrateRetreatImmediate(t *testing.T) {
	s, c, target := transitionFixture(t)

	s.world.Frame = 100
	c.arbitrate(game.DecisionResult{Move: game.MoveChaseEnemy, MoveTarget: target.ID, FireEnemy: target.ID})
	s.world.Frame++
	c.arbitrate(game.DecisionResult{Move: game.MoveStrafeEnemy, MoveTarget: target.ID, FireEnemy: target.ID})

	// Retreat is never gated, even right after a flip.
	s.world.Frame++
	c.arbitrate(game.DecisionResult{Move: game.MoveRetreat, MoveTarget: game.NoTarget, FireEnemy: target.ID})
	if c.state.ID() != game.StateRetreat {
		t.Errorf("retreat gated; state = %v", c.state.ID())
	}
}

func TestArbitrateRetargetGate(t *testing.T) {
	s, c, target := transitionFixture(t)
	other, _ := addTestBot(t, s, game.TeamBlue, game.ClassScout, PolicyEnemy)

	s.world.Frame = 100
	c.arbitrate(game.DecisionResult{Move: game.MoveChaseEnemy, MoveTarget: target.ID, FireEnemy: target.ID})
	if c.trans.lastTarget != target.ID {
		t.Fatalf("lastTarget = %d, want %d", c.trans.lastTarget, target.ID)
	}

	// Same state, new target, inside the retarget window: kept on the old.
	s.world.Frame++
	c.arbitrate(game.DecisionResult{Move: game.MoveChaseEnemy, MoveTarget: other.ID, FireEnemy: other.ID})
	if c.trans.lastTarget != target.ID {
		t.Error("retarget inside the gate window went through")
	}

	// After the window the retarget is honored.
	s.world.Frame = 100 + retargetGateFrames
	c.arbitrate(game.DecisionResult{Move: game.MoveChaseEnemy, MoveTarget: other.ID, FireEnemy: other.ID})
	if c.trans.lastTarget != other.ID {
		t.Errorf("lastTarget = %d after gate expiry, want %d", c.trans.lastTarget, other.ID)
	}
}

func TestArbitrateDeadTargetFallsBackToIdle(t *testing.T) {
	s, c, target := transitionFixture(t)

	s.world.Frame = 100
	target.Status = game.StatusDead

	c.arbitrate(game.DecisionResult{Move: game.MoveChaseEnemy, MoveTarget: target.ID, FireEnemy: target.ID})
	if c.state.ID() != game.StateIdle {
		t.Errorf("state = %v with dead target, want idle", c.state.ID())
	}
}

func TestArbitrateInactivePickupFallsBackToIdle(t *testing.T) {
	s, c, _ := transitionFixture(t)

	s.world.Frame = 100
	pk := &game.Pickup{ID: 7, Type: game.PickupHealth, Value: 10, Active: false}
	s.world.Pickups = append(s.world.Pickups, pk)

	c.arbitrate(game.DecisionResult{Move: game.MoveChasePickup, MoveTarget: pk.ID, FireEnemy: game.NoTarget})
	if c.state.ID() != game.StateIdle {
		t.Errorf("state = %v with inactive pickup, want idle", c.state.ID())
	}
}

func TestSwitchStateRunsExitHooks(t *testing.T) {
	s, c, target := transitionFixture(t)

	s.world.Frame = 100
	c.arbitrate(game.DecisionResult{Move: game.MoveChaseEnemy, MoveTarget: target.ID, FireEnemy: target.ID})
	if c.mover.speedMult != chaseSpeedMult {
		t.Fatalf("chase entry did not raise speed multiplier; got %f", c.mover.speedMult)
	}

	s.world.Frame++
	c.arbitrate(game.DecisionResult{Move: game.MoveRetreat, MoveTarget: game.NoTarget, FireEnemy: game.NoTarget})
	if c.mover.speedMult != 1 {
		t.Errorf("chase exit did not restore speed multiplier; got %f", c.mover.speedMult)
	}
}

func TestArbitratePickupSwitchWithCollidingID(t *testing.T) {
	s, c, target := transitionFixture(t)

	// Pickup IDs live in their own namespace, so the low ones share
	// numbers with agent slots. A chase on enemy N followed by a pickup
	// decision toward pickup N is a real switch, not a repeat.
	s.world.Pickups = append(s.world.Pickups, &game.Pickup{
		ID:     target.ID,
		Type:   game.PickupHealth,
		Pos:    mgl64.Vec3{-10, 0, 0},
		Value:  45,
		Active: true,
	})

	s.world.Frame = 100
	c.arbitrate(game.DecisionResult{Move: game.MoveChaseEnemy, MoveTarget: target.ID, FireEnemy: target.ID})
	cs, ok := c.state.(*chaseState)
	if !ok || cs.pickup {
		t.Fatalf("state after enemy chase = %T pickup=%v, want enemy chase", c.state, ok && cs.pickup)
	}

	s.world.Frame += retargetGateFrames
	c.arbitrate(game.DecisionResult{Move: game.MoveChasePickup, MoveTarget: target.ID, FireEnemy: target.ID})
	cs, ok = c.state.(*chaseState)
	if !ok {
		t.Fatalf("state after pickup decision = %T, want chase", c.state)
	}
	if !cs.pickup || cs.targetID != target.ID {
		t.Errorf("chasing pickup=%v target=%d, want pickup %d", cs.pickup, cs.targetID, target.ID)
	}
}
