package server

import (
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Me8mer/robot-arena/game"
)

const (
	spawnClearRadius = 10.0 // no obstacle may sit inside a team spawn area
	spawnJitter      = 4.0
	obstacleMinSide  = 2.0
	obstacleMaxSide  = 8.0
	obstacleHeight   = 3.0 // tall enough to block both eye and muzzle rays
)

// generateObstacles places axis-aligned cover boxes across the arena,
// keeping both team spawn areas clear. The same seed always produces the
// same field.
func generateObstacles(rng *rand.Rand, count int) []game.Obstacle {
	obstacles := make([]game.Obstacle, 0, count)

	spawns := []mgl64.Vec3{
		{game.TeamHomeX[game.TeamRed], 0, game.TeamHomeZ[game.TeamRed]},
		{game.TeamHomeX[game.TeamBlue], 0, game.TeamHomeZ[game.TeamBlue]},
	}

	for tries := 0; len(obstacles) < count && tries < count*10; tries++ {
		w := obstacleMinSide + rng.Float64()*(obstacleMaxSide-obstacleMinSide)
		d := obstacleMinSide + rng.Float64()*(obstacleMaxSide-obstacleMinSide)

		span := 2*game.ArenaHalf - obstacleMaxSide
		cx := -game.ArenaHalf + obstacleMaxSide/2 + rng.Float64()*span
		cz := -game.ArenaHalf + obstacleMaxSide/2 + rng.Float64()*span

		center := mgl64.Vec3{cx, 0, cz}
		tooClose := false
		for _, sp := range spawns {
			if game.Distance(center, sp) < spawnClearRadius+math.Max(w, d) {
				tooClose = true
				break
			}
		}
		if tooClose {
			continue
		}

		obstacles = append(obstacles, game.Obstacle{
			Min: mgl64.Vec3{cx - w/2, 0, cz - d/2},
			Max: mgl64.Vec3{cx + w/2, obstacleHeight, cz + d/2},
		})
	}

	return obstacles
}

// spawnPoint returns a jittered position inside the team's home area,
// nudged off any obstacle it happens to land in.
func (s *Server) spawnPoint(team int) mgl64.Vec3 {
	home := mgl64.Vec3{game.TeamHomeX[team], 0, game.TeamHomeZ[team]}

	for try := 0; try < 8; try++ {
		p := mgl64.Vec3{
			home.X() + (s.rng.Float64()*2-1)*spawnJitter,
			0,
			home.Z() + (s.rng.Float64()*2-1)*spawnJitter,
		}
		p = game.ClampToArena(p)
		if !insideAnyObstacle(s.world, p) {
			return p
		}
	}
	return home
}
