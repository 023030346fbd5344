package server

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Me8mer/robot-arena/game"
)

func newMoverFixture(t *testing.T) (*Server, *game.Agent, *Mover) {
	t.Helper()
	s := newTestServer()
	s.world.Mu.Lock()
	t.Cleanup(s.world.Mu.Unlock)

	a, c := addTestBot(t, s, game.TeamRed, game.ClassScout, PolicyEnemy)
	placeAgent(s, a, 0, 0)
	s.spatial.Reindex()
	return s, a, c.mover
}

func TestMoverPlanningDelay(t *testing.T) {
	_, a, m := newMoverFixture(t)

	m.SetDestination(mgl64.Vec3{10, 0, 0})
	if !m.PathPending() {
		t.Fatal("fresh destination not pending")
	}

	// The pending tick burns without movement.
	m.Integrate(game.TickSeconds)
	if a.Pos.X() != 0 {
		t.Error("agent moved while the path was still pending")
	}
	if m.PathPending() {
		t.Error("path still pending after the planning delay")
	}

	m.Integrate(game.TickSeconds)
	if a.Pos.X() <= 0 {
		t.Error("agent did not move once the path resolved")
	}
}

func TestMoverWalksStraightAndArrives(t *testing.T) {
	_, a, m := newMoverFixture(t)

	m.SetDestination(mgl64.Vec3{5, 0, 0})
	// Scout does 7.5 m/s: 5m takes 14 ticks plus the planning tick.
	for i := 0; i < 40 && m.HasPath(); i++ {
		m.Integrate(game.TickSeconds)
	}

	if m.HasPath() {
		t.Fatal("path never completed")
	}
	if game.Distance(a.Pos, mgl64.Vec3{5, 0, 0}) > ArriveRadius {
		t.Errorf("stopped at (%.2f, %.2f), outside the arrive radius", a.Pos.X(), a.Pos.Z())
	}
	if a.Pos.Z() != 0 {
		t.Errorf("straight-line walk drifted to z=%.4f", a.Pos.Z())
	}
	if m.Velocity().Len() != 0 {
		t.Error("velocity not cleared on arrival")
	}
}

func TestMoverSpeedMultiplier(t *testing.T) {
	_, a, m := newMoverFixture(t)

	m.SetDestination(mgl64.Vec3{50, 0, 0})
	m.Integrate(game.TickSeconds) // planning tick
	m.Integrate(game.TickSeconds)
	baseStep := a.Pos.X()

	a.Pos = mgl64.Vec3{0, 0, 0}
	m.SetDestination(mgl64.Vec3{50, 0, 0})
	m.SetSpeedMultiplier(1.5)
	m.Integrate(game.TickSeconds)
	m.Integrate(game.TickSeconds)

	want := baseStep * 1.5
	if math.Abs(a.Pos.X()-want) > 1e-9 {
		t.Errorf("boosted step %.4f, want %.4f", a.Pos.X(), want)
	}
}

func TestMoverHeadingFollowsVelocity(t *testing.T) {
	_, a, m := newMoverFixture(t)

	m.SetDestination(mgl64.Vec3{0, 0, 10})
	m.Integrate(game.TickSeconds)
	m.Integrate(game.TickSeconds)

	if math.Abs(a.Heading-math.Pi/2) > 1e-9 {
		t.Errorf("heading %.4f after walking +Z, want pi/2", a.Heading)
	}
}

func TestMoverWarpDropsPath(t *testing.T) {
	_, a, m := newMoverFixture(t)

	m.SetDestination(mgl64.Vec3{10, 0, 0})
	m.Warp(mgl64.Vec3{-20, 0, -20})

	if m.HasPath() {
		t.Error("warp kept the old path")
	}
	if a.Pos.X() != -20 || a.Pos.Z() != -20 {
		t.Errorf("warped to (%.1f, %.1f), want (-20, -20)", a.Pos.X(), a.Pos.Z())
	}

	m.Integrate(game.TickSeconds)
	if a.Pos.X() != -20 || a.Pos.Z() != -20 {
		t.Error("agent moved with no path")
	}
}

func TestMoverDeadAgentStops(t *testing.T) {
	_, a, m := newMoverFixture(t)

	m.SetDestination(mgl64.Vec3{10, 0, 0})
	m.Integrate(game.TickSeconds)
	a.Status = game.StatusDead

	pos := a.Pos
	m.Integrate(game.TickSeconds)
	if a.Pos != pos {
		t.Error("dead agent kept walking")
	}
	if m.Velocity().Len() != 0 {
		t.Error("dead agent reports velocity")
	}
}

func TestMoverClampsToArena(t *testing.T) {
	_, a, m := newMoverFixture(t)

	// Destination outside the arena is clamped at request time.
	m.SetDestination(mgl64.Vec3{game.ArenaHalf + 50, 0, 0})
	if m.Destination().X() > game.ArenaHalf {
		t.Errorf("destination %.1f outside the arena", m.Destination().X())
	}

	for i := 0; i < 500 && m.HasPath(); i++ {
		m.Integrate(game.TickSeconds)
	}
	if a.Pos.X() > game.ArenaHalf {
		t.Errorf("agent walked out of the arena to x=%.1f", a.Pos.X())
	}
}
