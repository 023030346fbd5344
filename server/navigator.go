package server

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Me8mer/robot-arena/game"
)

// Path-request throttling constants
const (
	// pathRequestCooldownFrames is the minimum spacing between path
	// requests for one agent (0.1s). Prevents per-tick path-planning
	// thrash when a state keeps nudging its destination.
	pathRequestCooldownFrames = 2

	// minRepathDistance rejects destinations that are effectively where
	// the agent already stands.
	minRepathDistance = 0.5

	// losEpsilon treats near-zero segments as visible.
	losEpsilon = 0.05
)

// Retreat-hop scoring weights. Breaking a sightline is worth far more than
// a little extra distance.
const (
	retreatWeightMinDist  = 1.4
	retreatWeightMeanDist = 0.6
	retreatWeightLOSBreak = 12.0
	retreatWeightHopDist  = 0.25
	retreatHopDistCap     = 6.0
)

// AttackRing computes the desired orbit distance for an attacker. The ring
// couples to the attacker's own weapon range, so melee and long-range
// classes settle at different distances from the same target.
func AttackRing(weaponRange, ownRadius, targetRadius, cushion float64) float64 {
	rangePart := math.Max(game.RingMinimum, weaponRange-game.RingRangeOffset)
	return rangePart + ownRadius + targetRadius + cushion
}

// OrbitPointOnRing advances tangentially around the target by stepMeters in
// the given rotational direction (+1/-1), then reprojects onto the ring.
// The reprojection is what makes strafing sweep a smooth circle instead of
// drifting outward one chord at a time.
func OrbitPointOnRing(myPos, targetPos mgl64.Vec3, ring float64, orbitDir int, stepMeters float64) mgl64.Vec3 {
	radial := game.Flat(myPos.Sub(targetPos))
	if radial.Len() < 1e-9 {
		// Standing on the target center: pick an arbitrary radial.
		radial = mgl64.Vec3{1, 0, 0}
	}
	radial = radial.Normalize()

	// Perpendicular on the ground plane; orbitDir picks the winding.
	tangent := mgl64.Vec3{-radial.Z(), 0, radial.X()}.Mul(float64(orbitDir))

	advanced := targetPos.Add(radial.Mul(ring)).Add(tangent.Mul(stepMeters))
	back := game.Flat(advanced.Sub(targetPos))
	if back.Len() < 1e-9 {
		back = radial
	}
	return game.Flat(targetPos).Add(back.Normalize().Mul(ring))
}

// ComputeAttackRing returns this agent's ring against a target.
func (c *controller) ComputeAttackRing(target *game.Agent, cushion float64) float64 {
	ownRadius := c.agent.Stats.CollisionRadius
	targetRadius := 0.0
	if target != nil && target.Stats != nil {
		targetRadius = target.Stats.CollisionRadius
	}
	return AttackRing(c.effectiveWeaponRange(), ownRadius, targetRadius, cushion)
}

// InEffectiveAttackRange reports whether the target sits within the ring
// plus tolerance.
func (c *controller) InEffectiveAttackRange(target *game.Agent, tolerance float64) bool {
	if target == nil {
		return false
	}
	ring := c.ComputeAttackRing(target, game.RingCushion)
	return game.Distance(c.agent.Pos, target.Pos) <= ring+tolerance
}

// HasLineOfSight reports whether the segment between two points is free of
// obstacles. Touching points are trivially visible.
func (s *Server) HasLineOfSight(from, to mgl64.Vec3) bool {
	if to.Sub(from).Len() <= losEpsilon {
		return true
	}
	blocked, _ := s.spatial.Raycast(from, to, game.MaskObstacle)
	return !blocked
}

// HasLineOfFireTo resolves the target's aim point and checks an unobstructed
// segment from the muzzle. Only obstacles block; other robots never do.
func (c *controller) HasLineOfFireTo(target *game.Agent) bool {
	if target == nil {
		return false
	}
	aim, ok := AimPoint(target)
	if !ok {
		return false
	}
	return HasLineOfFire(c.s.spatial, c.agent.MuzzlePoint(), aim)
}

// TryFindLOSOnRing searches alternating left/right positions on the attack
// ring for the nearest point that restores line of sight to the target's
// aim point. The starting side derives from the agent ID so two siblings
// blocked by the same wall fan out instead of piling onto one spot.
func (c *controller) TryFindLOSOnRing(target *game.Agent, cushion, stepMeters float64, arcSamples int) (mgl64.Vec3, bool) {
	if target == nil || arcSamples <= 0 {
		return mgl64.Vec3{}, false
	}

	aim, ok := AimPoint(target)
	if !ok {
		return mgl64.Vec3{}, false
	}

	ring := c.ComputeAttackRing(target, cushion)
	if ring < 1e-9 {
		return mgl64.Vec3{}, false
	}

	radial := game.Flat(c.agent.Pos.Sub(target.Pos))
	if radial.Len() < 1e-9 {
		radial = mgl64.Vec3{1, 0, 0}
	}
	baseAngle := math.Atan2(radial.Z(), radial.X())
	stepAngle := stepMeters / ring

	firstSide := 1.0
	if c.agent.ID%2 == 1 {
		firstSide = -1
	}

	for k := 1; k <= arcSamples; k++ {
		side := firstSide
		if k%2 == 0 {
			side = -firstSide
		}
		hops := float64((k + 1) / 2)
		angle := baseAngle + side*hops*stepAngle

		cand := game.Flat(target.Pos).Add(mgl64.Vec3{math.Cos(angle), 0, math.Sin(angle)}.Mul(ring))
		cand = game.ClampToArena(cand)

		muzzle := mgl64.Vec3{cand.X(), game.MuzzleHeight, cand.Z()}
		if HasLineOfFire(c.s.spatial, muzzle, aim) {
			return cand, true
		}
	}
	return mgl64.Vec3{}, false
}

// FindBestRetreatHop scores candidate hop points fanned around the
// repulsion-weighted "away" vector and returns the best. Candidates that
// break a threat's sightline score far above ones that merely add distance.
// seed feeds the deterministic lateral fallback when all threats coincide
// with the origin.
func (s *Server) FindBestRetreatHop(origin mgl64.Vec3, threats []mgl64.Vec3, hopDistance float64, samples int, halfAngleDeg float64, seed int) mgl64.Vec3 {
	away := mgl64.Vec3{}
	for _, t := range threats {
		d := game.Flat(origin.Sub(t))
		distSq := d.Dot(d)
		if distSq < 1e-9 {
			continue
		}
		// Inverse-square repulsion: nearby threats dominate.
		away = away.Add(d.Mul(1 / distSq))
	}

	if away.Len() < 1e-9 {
		// No usable repulsion. A deterministic lateral keeps runs
		// reproducible, unlike a random direction.
		angle := float64(seed%8) * math.Pi / 4
		away = mgl64.Vec3{math.Cos(angle), 0, math.Sin(angle)}
	}
	away = away.Normalize()

	if samples < 1 {
		samples = 1
	}
	halfAngle := halfAngleDeg * math.Pi / 180
	baseAngle := math.Atan2(away.Z(), away.X())

	// Fallback when every fanned sample is rejected. It needs the same
	// obstacle check as the samples: shorten the hop until it lands clear,
	// or stay put.
	best := game.ClampToArena(game.Flat(origin).Add(away.Mul(hopDistance)))
	for d := hopDistance / 2; insideAnyObstacle(s.world, best) && d > 0.25; d /= 2 {
		best = game.ClampToArena(game.Flat(origin).Add(away.Mul(d)))
	}
	if insideAnyObstacle(s.world, best) {
		best = game.Flat(origin)
	}
	bestScore := math.Inf(-1)

	for i := 0; i < samples; i++ {
		offset := 0.0
		if samples > 1 {
			offset = -halfAngle + float64(i)*(2*halfAngle/float64(samples-1))
		}
		angle := baseAngle + offset
		cand := game.Flat(origin).Add(mgl64.Vec3{math.Cos(angle), 0, math.Sin(angle)}.Mul(hopDistance))
		cand = game.ClampToArena(cand)

		if insideAnyObstacle(s.world, cand) {
			continue
		}

		score := s.scoreRetreatCandidate(origin, cand, threats)
		if score > bestScore {
			bestScore = score
			best = cand
		}
	}
	return best
}

func (s *Server) scoreRetreatCandidate(origin, cand mgl64.Vec3, threats []mgl64.Vec3) float64 {
	if len(threats) == 0 {
		return retreatWeightHopDist * math.Min(game.Distance(origin, cand), retreatHopDistCap)
	}

	minDist := math.Inf(1)
	sumDist := 0.0
	losBroken := 0
	candEye := mgl64.Vec3{cand.X(), game.EyeHeight, cand.Z()}

	for _, t := range threats {
		d := game.Distance(cand, t)
		if d < minDist {
			minDist = d
		}
		sumDist += d

		threatEye := mgl64.Vec3{t.X(), game.EyeHeight, t.Z()}
		if !s.HasLineOfSight(threatEye, candEye) {
			losBroken++
		}
	}
	meanDist := sumDist / float64(len(threats))
	hopDist := math.Min(math.Max(game.Distance(origin, cand), 0), retreatHopDistCap)

	return retreatWeightMinDist*minDist +
		retreatWeightMeanDist*meanDist +
		retreatWeightLOSBreak*float64(losBroken) +
		retreatWeightHopDist*hopDist
}

func insideAnyObstacle(w *game.World, p mgl64.Vec3) bool {
	for _, ob := range w.Obstacles {
		if ob.Contains(p) {
			return true
		}
	}
	return false
}

// TrySetDestinationSmart requests a path unless the destination is
// redundant: too close to where the agent stands, a path is still pending,
// or the request cooldown has not elapsed. Returns true if a path was
// actually requested.
func (c *controller) TrySetDestinationSmart(dest mgl64.Vec3) bool {
	if game.Distance(c.agent.Pos, dest) < minRepathDistance {
		return false
	}
	return c.requestPath(dest)
}

// ForceSetDestination bypasses the minimum-distance gate. States use it
// when line of fire must be restored immediately.
func (c *controller) ForceSetDestination(dest mgl64.Vec3) bool {
	return c.requestPath(dest)
}

func (c *controller) requestPath(dest mgl64.Vec3) bool {
	if c.mover.PathPending() {
		return false
	}
	frame := c.s.world.Frame
	if frame-c.lastPathFrame < pathRequestCooldownFrames {
		return false
	}
	c.lastPathFrame = frame
	c.mover.SetDestination(dest)
	return true
}
