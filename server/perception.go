package server

import (
	"math"

	"github.com/Me8mer/robot-arena/game"
)

// Perception refresh intervals, in ticks. Staleness up to one interval is
// an accepted trade-off: scans are the most expensive per-agent work, and a
// fifth of a second of lag is invisible in combat.
const (
	VisibleRefreshFrames   = 4  // 0.2s, visible enemies in range
	OpponentsRefreshFrames = 20 // 1.0s, whole-map opponent awareness
	PickupsRefreshFrames   = 20 // 1.0s
)

// Perception owns the cached spatial snapshots of one agent. Each snapshot
// refreshes independently on its own interval; calls in between return the
// cached list unchanged.
type Perception struct {
	s     *Server
	agent *game.Agent

	// obstacleMask gates the visibility raycast. An empty mask disables
	// line-of-sight filtering entirely, leaving radius + FOV as the only
	// criteria.
	obstacleMask int

	visible   []int
	visibleAt int64

	opponents   []int
	opponentsAt int64

	pickups   []int
	pickupsAt int64
}

// NewPerception creates an empty perception cache. The refresh timestamps
// start negative so the first query of each list always scans.
func NewPerception(s *Server, a *game.Agent) *Perception {
	return &Perception{
		s:            s,
		agent:        a,
		obstacleMask: game.MaskObstacle,
		visibleAt:    -VisibleRefreshFrames,
		opponentsAt:  -OpponentsRefreshFrames,
		pickupsAt:    -PickupsRefreshFrames,
	}
}

// EnemiesInRange returns enemies inside the sight radius that pass the
// field-of-view and line-of-sight checks. Never contains the agent itself
// or dead agents (as of the last scan).
func (pc *Perception) EnemiesInRange() []int {
	frame := pc.s.world.Frame
	if frame-pc.visibleAt < VisibleRefreshFrames {
		return pc.visible
	}
	pc.visibleAt = frame
	pc.visible = pc.scanVisible()
	return pc.visible
}

// AllOpponents returns every living opponent in the arena regardless of
// visibility. This is the "omniscient" awareness used by the autonomous
// policy; it refreshes on a much longer interval than the visible list.
func (pc *Perception) AllOpponents() []int {
	frame := pc.s.world.Frame
	if frame-pc.opponentsAt < OpponentsRefreshFrames {
		return pc.opponents
	}
	pc.opponentsAt = frame
	pc.opponents = pc.scanOpponents()
	return pc.opponents
}

// AllPickups returns every active pickup in the arena.
func (pc *Perception) AllPickups() []int {
	frame := pc.s.world.Frame
	if frame-pc.pickupsAt < PickupsRefreshFrames {
		return pc.pickups
	}
	pc.pickupsAt = frame
	pc.pickups = pc.scanPickups()
	return pc.pickups
}

func (pc *Perception) scanVisible() []int {
	a := pc.agent
	if a.Stats == nil || a.Stats.SightRadius <= 0 {
		return nil
	}

	candidates := pc.s.spatial.OverlapSphere(a.Pos, a.Stats.SightRadius, game.MaskAgent)
	var out []int
	halfFOV := a.Stats.SightFOV / 2 * math.Pi / 180
	fullCircle := a.Stats.SightFOV >= 360

	for _, id := range candidates {
		if id == a.ID {
			continue
		}
		other := pc.s.world.AliveAgent(id)
		if other == nil || other.Team == a.Team {
			continue
		}

		if !fullCircle {
			toOther := other.Pos.Sub(a.Pos)
			bearing := math.Atan2(toOther.Z(), toOther.X())
			if game.AngleDelta(bearing, a.Heading) > halfFOV {
				continue
			}
		}

		// Eye-height ray; an obstacle between the two breaks visibility.
		if pc.obstacleMask != 0 {
			if blocked, _ := pc.s.spatial.Raycast(a.EyePoint(), other.EyePoint(), pc.obstacleMask); blocked {
				continue
			}
		}

		out = append(out, id)
	}
	return out
}

func (pc *Perception) scanOpponents() []int {
	var out []int
	for _, other := range pc.s.world.Agents {
		if other.ID == pc.agent.ID || other.Status != game.StatusAlive {
			continue
		}
		if other.Team == pc.agent.Team {
			continue
		}
		out = append(out, other.ID)
	}
	return out
}

func (pc *Perception) scanPickups() []int {
	var out []int
	for _, pk := range pc.s.world.Pickups {
		if pk.Active {
			out = append(out, pk.ID)
		}
	}
	return out
}
