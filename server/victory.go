package server

import (
	"fmt"

	"github.com/Me8mer/robot-arena/game"
)

// intermissionFrames is how long the arena stays frozen between rounds.
const intermissionFrames = 5 * game.FPS

// CheckVictory ends the round when at most one team still has a living
// agent. Caller must hold the world lock.
func (s *Server) CheckVictory() {
	if s.world.GameOver {
		s.updateIntermission()
		return
	}

	populated := 0
	aliveTeams := make(map[int]int)
	for _, a := range s.world.Agents {
		if a.Status == game.StatusFree {
			continue
		}
		populated++
		if a.Status == game.StatusAlive {
			aliveTeams[a.Team]++
		}
	}

	// A round needs at least two combatants before it can be won.
	if populated < 2 {
		return
	}
	if len(aliveTeams) > 1 {
		return
	}

	winner := game.TeamNone
	for team := range aliveTeams {
		winner = team
	}

	s.world.GameOver = true
	s.world.Winner = winner
	s.world.ControlLocked = true
	s.intermissionLeft = intermissionFrames

	switch winner {
	case game.TeamRed:
		s.notify("Red team wins the round", game.NoTarget)
	case game.TeamBlue:
		s.notify("Blue team wins the round", game.NoTarget)
	default:
		s.notify("Round ends in mutual destruction", game.NoTarget)
	}
}

func (s *Server) updateIntermission() {
	if s.intermissionLeft > 0 {
		s.intermissionLeft--
		return
	}
	s.resetRound()
}

// resetRound revives every populated agent at a fresh spawn point and
// unlocks the arena for the next round. Kill and death tallies carry
// across rounds.
func (s *Server) resetRound() {
	s.world.RoundCount++
	s.world.GameOver = false
	s.world.Winner = game.TeamNone
	s.world.ControlLocked = false
	s.world.Projectiles = s.world.Projectiles[:0]
	s.world.Pickups = s.world.Pickups[:0]

	for i, a := range s.world.Agents {
		if a.Status == game.StatusFree {
			continue
		}

		a.Status = game.StatusAlive
		a.Health = a.Stats.MaxHealth
		a.Armor = a.Stats.MaxArmor
		a.HealthFrac = 0
		a.ArmorFrac = 0
		a.ExplodeTimer = 0
		a.KilledBy = game.NoTarget
		a.State = game.StateIdle
		a.ManualGoalSet = false
		a.ManualFire = game.NoTarget
		a.Stats.BonusDamageUntil = 0
		a.Stats.SpeedMultUntil = 0

		s.destroyController(i)
		c := newController(s, a, s.policies[i])
		c.mover.Warp(s.spawnPoint(a.Team))
		s.controllers[i] = c
	}

	s.notify(fmt.Sprintf("Round %d begins", s.world.RoundCount), game.NoTarget)
}
