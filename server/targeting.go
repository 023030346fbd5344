package server

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Me8mer/robot-arena/game"
)

// aimHeightFraction places the default aim point at 60% of the body height,
// a torso hit regardless of model proportions.
const aimHeightFraction = 0.6

// AimPoint resolves the point on a target body that weapons aim for.
// Preference order: an explicit anchor would win if models carried one; the
// server-side body is a cylinder, so the bounds-derived torso point applies,
// with a fixed height above the pivot as the last resort. Returns false for
// a missing or dead target, which makes the firing check a no-op this tick.
func AimPoint(target *game.Agent) (mgl64.Vec3, bool) {
	if target == nil || target.Status != game.StatusAlive {
		return mgl64.Vec3{}, false
	}

	height := game.AgentHeight
	if height <= 0 {
		// No usable bounds: fixed offset above the pivot.
		return target.Pos.Add(mgl64.Vec3{0, 1, 0}), true
	}
	return mgl64.Vec3{target.Pos.X(), height * aimHeightFraction, target.Pos.Z()}, true
}

// HasLineOfFire checks an unobstructed segment from muzzle to aim point
// against the obstacle mask only. Robots never block fire; shots that would
// pass through an ally are a gameplay decision, not a geometric one.
func HasLineOfFire(si *SpatialIndex, muzzle, aim mgl64.Vec3) bool {
	if aim.Sub(muzzle).Len() <= losEpsilon {
		return true
	}
	blocked, _ := si.Raycast(muzzle, aim, game.MaskObstacle)
	return !blocked
}

// IsAimLocked reports whether the yaw-only delta between the turret facing
// and the direction to the aim point is inside the tolerance. Pitch is
// ignored: turrets elevate freely.
func IsAimLocked(turretYaw float64, from, aim mgl64.Vec3, toleranceDeg float64) bool {
	to := game.Flat(aim.Sub(from))
	if to.Len() < 1e-9 {
		return true
	}
	want := headingOf(to.Normalize())
	return game.AngleDelta(turretYaw, want) <= toleranceDeg*math.Pi/180
}
