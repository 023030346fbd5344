package server

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/Me8mer/robot-arena/game"
)

// Pickup spawner tuning
const (
	pickupSpawnFrames = 8 * game.FPS // one attempted spawn every 8 seconds
	pickupEdgeMargin  = 6.0          // keep drops away from the walls
	boostDuration     = 10.0         // seconds, timed boosts
)

// UpdatePickups runs the spawner and consumption passes. Caller must hold
// the world lock.
func (s *Server) UpdatePickups() {
	s.spawnPickups()
	s.consumePickups()
}

func (s *Server) spawnPickups() {
	if s.world.Frame%pickupSpawnFrames != 0 {
		return
	}

	active := 0
	for _, pk := range s.world.Pickups {
		if pk.Active {
			active++
		}
	}
	if active >= game.MaxPickups {
		return
	}

	pos, ok := s.findPickupSpot()
	if !ok {
		return
	}

	kind := game.PickupType(s.rng.Intn(4))
	pk := &game.Pickup{
		ID:     s.nextPickupID,
		Type:   kind,
		Pos:    pos,
		Active: true,
	}
	switch kind {
	case game.PickupHealth:
		pk.Value = 45
	case game.PickupArmor:
		pk.Value = 35
	case game.PickupDamageBoost:
		pk.Value = 10
		pk.Duration = boostDuration
	case game.PickupSpeedBoost:
		pk.Value = 30 // percent
		pk.Duration = boostDuration
	}

	s.nextPickupID++
	s.world.Pickups = append(s.world.Pickups, pk)
}

// findPickupSpot samples arena positions clear of obstacles.
func (s *Server) findPickupSpot() (mgl64.Vec3, bool) {
	span := 2 * (game.ArenaHalf - pickupEdgeMargin)
	for try := 0; try < 12; try++ {
		x := -game.ArenaHalf + pickupEdgeMargin + s.rng.Float64()*span
		z := -game.ArenaHalf + pickupEdgeMargin + s.rng.Float64()*span
		p := mgl64.Vec3{x, 0, z}
		if !insideAnyObstacle(s.world, p) {
			return p, true
		}
	}
	return mgl64.Vec3{}, false
}

// consumePickups applies every pickup touched by a living agent this tick.
// Consume itself is idempotent, so two agents reaching the same pickup in
// one tick can only redeem it once.
func (s *Server) consumePickups() {
	kept := s.world.Pickups[:0]
	for _, pk := range s.world.Pickups {
		if !pk.Active {
			continue
		}

		for _, id := range s.spatial.OverlapSphere(pk.Pos, game.PickupRadius, game.MaskAgent) {
			a := s.world.AliveAgent(id)
			if a == nil {
				continue
			}
			if pk.Consume(a, s.world.Frame) {
				break
			}
		}

		if pk.Active {
			kept = append(kept, pk)
		}
	}
	s.world.Pickups = kept
}
