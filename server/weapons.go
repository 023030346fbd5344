package server

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Me8mer/robot-arena/game"
)

// updateFiring runs the firing gate for one agent. It executes every tick
// regardless of movement state: the fire target comes from the decision's
// independent selection, so an agent shoots while chasing a pickup just as
// well as while strafing. All of these must hold to fire: live target,
// weapon off cooldown, target inside weapon range, turret aim-locked, and
// an obstacle-free line of fire.
func (c *controller) updateFiring() {
	if c.cooldownLeft > 0 {
		c.cooldownLeft--
	}

	target := c.s.world.AliveAgent(c.decision.FireEnemy)
	if target == nil {
		return
	}

	aim, ok := AimPoint(target)
	if !ok {
		return
	}

	// Turret tracking happens even when the shot is gated, so the lock is
	// ready the moment the other gates open.
	c.trackTurret(aim)

	if c.cooldownLeft > 0 {
		return
	}

	a := c.agent
	// Range is judged against the effective attack ring, not the raw weapon
	// range: an agent orbiting on its ring must be able to fire from it.
	if !c.InEffectiveAttackRange(target, game.RingTolerance) {
		return
	}
	if !IsAimLocked(a.TurretYaw, a.MuzzlePoint(), aim, a.Stats.AimToleranceDeg) {
		return
	}
	if !HasLineOfFire(c.s.spatial, a.MuzzlePoint(), aim) {
		return
	}

	c.s.spawnProjectile(a, aim)
	c.cooldownLeft = a.Stats.CooldownFrames()
}

// trackTurret rotates the turret toward the aim point at the class turn
// rate, yaw only.
func (c *controller) trackTurret(aim mgl64.Vec3) {
	a := c.agent
	want := math.Atan2(aim.Z()-a.Pos.Z(), aim.X()-a.Pos.X())
	delta := game.NormalizeAngle(want - a.TurretYaw)
	if delta > math.Pi {
		delta -= 2 * math.Pi
	}

	maxStep := a.Stats.TurretTurnRate * math.Pi / 180 * game.TickSeconds
	if math.Abs(delta) <= maxStep {
		a.TurretYaw = game.NormalizeAngle(want)
	} else {
		a.TurretYaw = game.NormalizeAngle(a.TurretYaw + math.Copysign(maxStep, delta))
	}
}

// spawnProjectile creates a shot sourced from the agent's current stats, so
// an active damage boost applies to this shot immediately.
func (s *Server) spawnProjectile(a *game.Agent, aim mgl64.Vec3) {
	dir := mgl64.Vec3{aim.X() - a.Pos.X(), 0, aim.Z() - a.Pos.Z()}
	if dir.Len() < 1e-9 {
		return
	}
	dir = dir.Normalize()

	p := &game.Projectile{
		ID:       s.nextProjectileID,
		Owner:    a.ID,
		Team:     a.Team,
		Pos:      a.MuzzlePoint(),
		Dir:      dir,
		Speed:    a.Stats.ProjectileSpeed,
		Damage:   a.Stats.EffectiveDamage(s.world.Frame),
		MaxRange: a.Stats.WeaponRange*1.25 + 4, // covers the far edge of the ring band
		Active:   true,
	}
	s.nextProjectileID++
	s.world.Projectiles = append(s.world.Projectiles, p)
}

// UpdateProjectiles advances every live shot, applying hits and expiring
// spent ones. Caller must hold the world lock.
func (s *Server) UpdateProjectiles() {
	live := s.world.Projectiles[:0]
	for _, p := range s.world.Projectiles {
		if !p.Active {
			continue
		}
		s.stepProjectile(p)
		if p.Active {
			live = append(live, p)
		}
	}
	s.world.Projectiles = live
}

func (s *Server) stepProjectile(p *game.Projectile) {
	step := p.Speed * game.TickSeconds
	if p.Traveled+step > p.MaxRange {
		step = p.MaxRange - p.Traveled
	}
	from := p.Pos
	to := from.Add(p.Dir.Mul(step))

	// Walls eat shots.
	if blocked, hit := s.spatial.Raycast(from, to, game.MaskObstacle); blocked {
		p.Pos = hit
		p.Active = false
		return
	}

	// Agent hits: closest opposing agent whose body the segment crosses.
	if victim := s.firstAgentOnSegment(from, to, p.Owner, p.Team); victim != nil {
		s.applyHit(p, victim)
		return
	}

	p.Pos = to
	p.Traveled += step
	if p.Traveled >= p.MaxRange {
		p.Active = false
	}
}

// firstAgentOnSegment finds the nearest enemy agent whose collision radius
// the segment passes through.
func (s *Server) firstAgentOnSegment(from, to mgl64.Vec3, ownerID, ownerTeam int) *game.Agent {
	var best *game.Agent
	bestT := math.Inf(1)

	for _, a := range s.world.Agents {
		if a.Status != game.StatusAlive || a.ID == ownerID || a.Team == ownerTeam {
			continue
		}
		t, d := segmentPointDistance(from, to, a.Pos)
		if d <= a.Stats.CollisionRadius+0.15 && t < bestT {
			bestT = t
			best = a
		}
	}
	return best
}

func (s *Server) applyHit(p *game.Projectile, victim *game.Agent) {
	p.Active = false
	game.ApplyDamageWithArmor(victim, p.Damage)
	if victim.Health <= 0 {
		s.killAgent(victim, p.Owner)
	}
}

// killAgent handles a death: explosion timer, scores, controller teardown.
func (s *Server) killAgent(victim *game.Agent, killerID int) {
	victim.Status = game.StatusExplode
	victim.ExplodeTimer = game.FPS / 2
	victim.KilledBy = killerID
	victim.Deaths++
	victim.State = game.StateIdle

	killerName := "the arena"
	if killer := s.world.AliveAgent(killerID); killer != nil {
		killer.Kills++
		killerName = killer.Name
	}
	s.destroyController(victim.ID)

	s.notify(fmt.Sprintf("%s was destroyed by %s", victim.Name, killerName), victim.ID)
}

// UpdateExplosions advances death animations and settles corpses.
func (s *Server) UpdateExplosions() {
	for _, a := range s.world.Agents {
		if a.Status != game.StatusExplode {
			continue
		}
		a.ExplodeTimer--
		if a.ExplodeTimer <= 0 {
			a.Status = game.StatusDead
		}
	}
}

// segmentPointDistance returns the parameter t of the closest approach and
// the ground-plane distance from the segment to the point.
func segmentPointDistance(from, to, point mgl64.Vec3) (float64, float64) {
	fx, fz := from.X(), from.Z()
	tx, tz := to.X(), to.Z()
	px, pz := point.X(), point.Z()

	dx, dz := tx-fx, tz-fz
	lenSq := dx*dx + dz*dz
	if lenSq < 1e-12 {
		d := math.Hypot(px-fx, pz-fz)
		return 0, d
	}

	t := ((px-fx)*dx + (pz-fz)*dz) / lenSq
	t = math.Max(0, math.Min(1, t))
	cx := fx + t*dx
	cz := fz + t*dz
	return t, math.Hypot(px-cx, pz-cz)
}
