package server

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Me8mer/robot-arena/game"
)

func TestTurretTracksAtTurnRate(t *testing.T) {
	s := newTestServer()
	s.world.Mu.Lock()
	defer s.world.Mu.Unlock()

	me, c := addTestBot(t, s, game.TeamRed, game.ClassScout, PolicyEnemy)
	target, _ := addTestBot(t, s, game.TeamBlue, game.ClassScout, PolicyEnemy)
	placeAgent(s, me, 0, 0)
	placeAgent(s, target, 10, 0)
	s.spatial.Reindex()

	me.TurretYaw = math.Pi / 2 // target bearing is 0
	aim, ok := AimPoint(target)
	if !ok {
		t.Fatal("no aim point for a live target")
	}

	maxStep := me.Stats.TurretTurnRate * math.Pi / 180 * game.TickSeconds
	c.trackTurret(aim)
	want := game.NormalizeAngle(math.Pi/2 - maxStep)
	if math.Abs(me.TurretYaw-want) > 1e-9 {
		t.Errorf("one tick of tracking gave yaw %.4f, want %.4f", me.TurretYaw, want)
	}

	// Enough ticks to close the remaining angle snaps exactly onto the
	// bearing instead of oscillating around it.
	for i := 0; i < 20; i++ {
		c.trackTurret(aim)
	}
	if me.TurretYaw != 0 {
		t.Errorf("converged yaw %.6f, want exact 0", me.TurretYaw)
	}
}

func TestFireWaitsForAimLock(t *testing.T) {
	s := newTestServer()
	s.world.Mu.Lock()
	defer s.world.Mu.Unlock()

	me, c := addTestBot(t, s, game.TeamRed, game.ClassScout, PolicyEnemy)
	target, _ := addTestBot(t, s, game.TeamBlue, game.ClassScout, PolicyEnemy)
	placeAgent(s, me, 0, 0)
	placeAgent(s, target, 10, 0)
	s.spatial.Reindex()

	me.TurretYaw = math.Pi // facing dead away
	c.decision.FireEnemy = target.ID

	c.updateFiring()
	if len(s.world.Projectiles) != 0 {
		t.Fatal("fired without aim lock")
	}
	if me.TurretYaw == math.Pi {
		t.Error("turret did not track while the shot was gated")
	}

	// Scout turret turns 12 degrees a tick: 180 degrees is closed well
	// inside 20 ticks, and the shot leaves the moment the lock lands.
	for i := 0; i < 20 && len(s.world.Projectiles) == 0; i++ {
		c.updateFiring()
	}
	if len(s.world.Projectiles) != 1 {
		t.Fatal("no shot after the turret locked on")
	}
	if c.cooldownLeft != me.Stats.CooldownFrames() {
		t.Errorf("cooldown after firing = %d, want %d", c.cooldownLeft, me.Stats.CooldownFrames())
	}
}

func TestFireCooldownGate(t *testing.T) {
	s := newTestServer()
	s.world.Mu.Lock()
	defer s.world.Mu.Unlock()

	me, c := addTestBot(t, s, game.TeamRed, game.ClassScout, PolicyEnemy)
	target, _ := addTestBot(t, s, game.TeamBlue, game.ClassScout, PolicyEnemy)
	placeAgent(s, me, 0, 0)
	placeAgent(s, target, 10, 0)
	s.spatial.Reindex()

	me.TurretYaw = 0 // already locked
	c.decision.FireEnemy = target.ID

	c.updateFiring()
	if len(s.world.Projectiles) != 1 {
		t.Fatal("first shot did not fire")
	}

	for i := 0; i < me.Stats.CooldownFrames()-1; i++ {
		c.updateFiring()
	}
	if len(s.world.Projectiles) != 1 {
		t.Fatal("second shot fired while still on cooldown")
	}

	c.updateFiring()
	if len(s.world.Projectiles) != 2 {
		t.Error("no shot once the cooldown elapsed")
	}
}

func TestFireRangeGate(t *testing.T) {
	s := newTestServer()
	s.world.Mu.Lock()
	defer s.world.Mu.Unlock()

	me, c := addTestBot(t, s, game.TeamRed, game.ClassScout, PolicyEnemy)
	target, _ := addTestBot(t, s, game.TeamBlue, game.ClassScout, PolicyEnemy)
	placeAgent(s, me, 0, 0)
	placeAgent(s, target, 30, 0)
	s.spatial.Reindex()

	me.TurretYaw = 0
	c.decision.FireEnemy = target.ID

	c.updateFiring()
	if len(s.world.Projectiles) != 0 {
		t.Error("fired at a target beyond reach")
	}
}

func TestFireBlockedByWall(t *testing.T) {
	s := newTestServer()
	s.world.Mu.Lock()
	defer s.world.Mu.Unlock()

	me, c := addTestBot(t, s, game.TeamRed, game.ClassScout, PolicyEnemy)
	target, _ := addTestBot(t, s, game.TeamBlue, game.ClassScout, PolicyEnemy)
	placeAgent(s, me, 0, 0)
	placeAgent(s, target, 10, 0)
	addWall(s, 4, -2, 6, 2)
	s.spatial.Reindex()

	me.TurretYaw = 0
	c.decision.FireEnemy = target.ID

	c.updateFiring()
	if len(s.world.Projectiles) != 0 {
		t.Error("fired through a wall")
	}
}

func TestProjectileHitSpendsArmorFirst(t *testing.T) {
	s := newTestServer()
	s.world.Mu.Lock()
	defer s.world.Mu.Unlock()

	me, _ := addTestBot(t, s, game.TeamRed, game.ClassScout, PolicyEnemy)
	victim, _ := addTestBot(t, s, game.TeamBlue, game.ClassScout, PolicyEnemy)
	placeAgent(s, me, 0, 0)
	placeAgent(s, victim, 6, 0)
	s.spatial.Reindex()

	startHealth, startArmor := victim.Health, victim.Armor
	aim, _ := AimPoint(victim)
	s.spawnProjectile(me, aim)

	for i := 0; i < 20 && len(s.world.Projectiles) > 0; i++ {
		s.UpdateProjectiles()
	}

	if victim.Armor != startArmor-me.Stats.WeaponDamage {
		t.Errorf("armor %d, want %d", victim.Armor, startArmor-me.Stats.WeaponDamage)
	}
	if victim.Health != startHealth {
		t.Errorf("health %d changed while armor could absorb the hit", victim.Health)
	}
	if len(s.world.Projectiles) != 0 {
		t.Error("spent projectile not removed")
	}
}

func TestProjectileStoppedByWall(t *testing.T) {
	s := newTestServer()
	s.world.Mu.Lock()
	defer s.world.Mu.Unlock()

	me, _ := addTestBot(t, s, game.TeamRed, game.ClassScout, PolicyEnemy)
	victim, _ := addTestBot(t, s, game.TeamBlue, game.ClassScout, PolicyEnemy)
	placeAgent(s, me, 0, 0)
	placeAgent(s, victim, 8, 0)
	addWall(s, 3, -2, 4, 2)
	s.spatial.Reindex()

	startHealth, startArmor := victim.Health, victim.Armor
	aim, _ := AimPoint(victim)
	s.spawnProjectile(me, aim)

	for i := 0; i < 20 && len(s.world.Projectiles) > 0; i++ {
		s.UpdateProjectiles()
	}

	if victim.Health != startHealth || victim.Armor != startArmor {
		t.Error("shot reached a target behind a wall")
	}
}

func TestProjectileExpiresAtMaxRange(t *testing.T) {
	s := newTestServer()
	s.world.Mu.Lock()
	defer s.world.Mu.Unlock()

	me, _ := addTestBot(t, s, game.TeamRed, game.ClassScout, PolicyEnemy)
	placeAgent(s, me, 0, 0)
	s.spatial.Reindex()

	// Aim at empty space; nothing to hit, so only range can end the shot.
	s.spawnProjectile(me, me.Pos.Add(mgl64.Vec3{0, 1, 20}))
	if len(s.world.Projectiles) != 1 {
		t.Fatal("projectile not spawned")
	}
	maxRange := s.world.Projectiles[0].MaxRange

	steps := int(maxRange/(me.Stats.ProjectileSpeed*game.TickSeconds)) + 2
	for i := 0; i < steps; i++ {
		s.UpdateProjectiles()
	}
	if len(s.world.Projectiles) != 0 {
		t.Error("projectile outlived its range")
	}
}

func TestKillExplodesThenSettles(t *testing.T) {
	s := newTestServer()
	s.world.Mu.Lock()
	defer s.world.Mu.Unlock()

	me, _ := addTestBot(t, s, game.TeamRed, game.ClassScout, PolicyEnemy)
	victim, _ := addTestBot(t, s, game.TeamBlue, game.ClassScout, PolicyEnemy)
	placeAgent(s, me, 0, 0)
	placeAgent(s, victim, 6, 0)
	s.spatial.Reindex()

	victim.Health = 1
	victim.Armor = 0

	aim, _ := AimPoint(victim)
	s.spawnProjectile(me, aim)
	for i := 0; i < 20 && len(s.world.Projectiles) > 0; i++ {
		s.UpdateProjectiles()
	}

	if victim.Status != game.StatusExplode {
		t.Fatalf("victim status %v, want exploding", victim.Status)
	}
	if victim.ExplodeTimer != game.FPS/2 {
		t.Errorf("explode timer %d, want %d", victim.ExplodeTimer, game.FPS/2)
	}
	if me.Kills != 1 || victim.Deaths != 1 {
		t.Errorf("scores kills=%d deaths=%d, want 1/1", me.Kills, victim.Deaths)
	}
	if s.controllers[victim.ID] != nil {
		t.Error("dead agent still has a controller")
	}

	for i := 0; i < game.FPS/2; i++ {
		s.UpdateExplosions()
	}
	if victim.Status != game.StatusDead {
		t.Errorf("victim status %v after the animation, want dead", victim.Status)
	}
}

func TestSegmentPointDistance(t *testing.T) {
	tests := []struct {
		name           string
		fx, fz, tx, tz float64
		px, pz         float64
		wantT, wantD   float64
	}{
		{"midpoint offset", 0, 0, 10, 0, 5, 3, 0.5, 3},
		{"beyond far end clamps", 0, 0, 10, 0, 15, 0, 1, 5},
		{"before near end clamps", 0, 0, 10, 0, -4, 0, 0, 4},
		{"degenerate segment", 2, 2, 2, 2, 5, 6, 0, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotT, gotD := segmentPointDistance(
				mgl64.Vec3{tt.fx, 0, tt.fz}, mgl64.Vec3{tt.tx, 0, tt.tz}, mgl64.Vec3{tt.px, 0, tt.pz})
			if math.Abs(gotT-tt.wantT) > 1e-9 || math.Abs(gotD-tt.wantD) > 1e-9 {
				t.Errorf("got t=%.4f d=%.4f, want t=%.4f d=%.4f", gotT, gotD, tt.wantT, tt.wantD)
			}
		})
	}
}
