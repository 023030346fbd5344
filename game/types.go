package game

import (
	"math"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// Simulation constants
const (
	MaxAgents   = 12
	MaxPickups  = 16
	MaxObstacle = 10

	// Arena dimensions (meters). The arena is a square on the X/Z ground
	// plane centered at the origin; Y is up.
	ArenaHalf = 60.0

	// Body geometry
	AgentHeight  = 1.8
	EyeHeight    = 1.6 // height of the perception ray origin
	MuzzleHeight = 1.2 // height of the line-of-fire ray origin

	// Combat geometry
	RingRangeOffset = 1.5  // subtracted from weapon range when computing the attack ring
	RingMinimum     = 0.1  // floor for the range component of the ring
	RingCushion     = 1.0  // default cushion added to the ring
	RingTolerance   = 1.0  // slack accepted by InEffectiveAttackRange
	RingHysteresis  = 0.75 // band around the ring inside which strafing just orbits

	// Pickup consumption radius
	PickupRadius = 1.2

	// Game timing
	FPS            = 20
	TickSeconds    = 0.05
	UpdateInterval = time.Millisecond * 50 // 20 ticks per second
)

// Spatial query layer masks
const (
	MaskAgent    = 1 << 0
	MaskObstacle = 1 << 1
	MaskPickup   = 1 << 2
)

// Team IDs
const (
	TeamNone = 0
	TeamRed  = 1
	TeamBlue = 2
)

// Team home positions for spawn/respawn (X, Z)
var TeamHomeX = map[int]float64{
	TeamRed:  -ArenaHalf + 10,
	TeamBlue: ArenaHalf - 10,
}

var TeamHomeZ = map[int]float64{
	TeamRed:  -ArenaHalf + 10,
	TeamBlue: ArenaHalf - 10,
}

// Agent status
const (
	StatusFree    = 0
	StatusAlive   = 1
	StatusExplode = 2
	StatusDead    = 3
)

// MoveIntent is the movement half of a DecisionResult.
type MoveIntent int

const (
	MoveIdle MoveIntent = iota
	MoveChaseEnemy
	MoveChasePickup
	MoveStrafeEnemy
	MoveRetreat
)

func (m MoveIntent) String() string {
	switch m {
	case MoveChaseEnemy:
		return "chase-enemy"
	case MoveChasePickup:
		return "chase-pickup"
	case MoveStrafeEnemy:
		return "strafe-enemy"
	case MoveRetreat:
		return "retreat"
	default:
		return "idle"
	}
}

// StateID identifies the active behavior state of an agent.
type StateID int

const (
	StateIdle StateID = iota
	StateChase
	StateStrafe
	StateRetreat
)

func (s StateID) String() string {
	switch s {
	case StateChase:
		return "chase"
	case StateStrafe:
		return "strafe"
	case StateRetreat:
		return "retreat"
	default:
		return "idle"
	}
}

// NoTarget marks an empty target slot in DecisionResult and agent fields.
const NoTarget = -1

// DecisionResult is one tick's worth of intent: where to move and, held
// independently, who to shoot at. FireEnemy is selected even when the
// movement intent has nothing to do with combat so that a transition into
// an attacking state can fire without a frame of delay.
type DecisionResult struct {
	Move       MoveIntent
	MoveTarget int // agent ID for enemy intents, pickup ID for MoveChasePickup
	FireEnemy  int // agent ID, NoTarget if nothing is known
}

// Agent represents one robot in the arena.
type Agent struct {
	ID     int       `json:"id"`
	UID    string    `json:"uid"`
	Name   string    `json:"name"`
	Team   int       `json:"team"`
	Class  ClassType `json:"class"`
	Status int       `json:"status"`

	// Transform. Pos sits on the ground plane (Y = 0); heights used for
	// perception and fire rays are derived from it.
	Pos       mgl64.Vec3 `json:"pos"`
	Heading   float64    `json:"heading"`   // yaw in radians
	TurretYaw float64    `json:"turretYaw"` // turret facing, independent of hull

	// Runtime condition
	Health int `json:"health"`
	Armor  int `json:"armor"`
	Kills  int `json:"kills"`
	Deaths int `json:"deaths"`

	// Stats is shared with the controller and weapons code. Build changes
	// bump Stats.Generation instead of relying on aliased reads.
	Stats *Stats `json:"-"`

	State StateID `json:"state"`

	// Fractional regen accumulators (regen rates are per second, ticks
	// apply fractions of a point).
	HealthFrac float64 `json:"-"`
	ArmorFrac  float64 `json:"-"`

	// Death bookkeeping
	ExplodeTimer int `json:"explodeTimer"`
	KilledBy     int `json:"killedBy"`

	IsBot bool `json:"isBot"`

	// Manual orders for human-driven agents. GoalSet gates Goal.
	ManualGoalSet bool       `json:"-"`
	ManualGoal    mgl64.Vec3 `json:"-"`
	ManualFire    int        `json:"-"`
}

// HealthFraction returns current health relative to the class maximum.
func (a *Agent) HealthFraction() float64 {
	if a.Stats == nil || a.Stats.MaxHealth == 0 {
		return 0
	}
	return float64(a.Health) / float64(a.Stats.MaxHealth)
}

// ArmorFraction returns current armor relative to the class maximum.
func (a *Agent) ArmorFraction() float64 {
	if a.Stats == nil || a.Stats.MaxArmor == 0 {
		return 0
	}
	return float64(a.Armor) / float64(a.Stats.MaxArmor)
}

// Forward returns the hull facing as a unit vector on the ground plane.
func (a *Agent) Forward() mgl64.Vec3 {
	return mgl64.Vec3{math.Cos(a.Heading), 0, math.Sin(a.Heading)}
}

// EyePoint returns the origin used for visibility rays.
func (a *Agent) EyePoint() mgl64.Vec3 {
	return mgl64.Vec3{a.Pos.X(), EyeHeight, a.Pos.Z()}
}

// MuzzlePoint returns the origin used for line-of-fire rays.
func (a *Agent) MuzzlePoint() mgl64.Vec3 {
	return mgl64.Vec3{a.Pos.X(), MuzzleHeight, a.Pos.Z()}
}

// Obstacle is an axis-aligned box blocking movement, sight and fire.
type Obstacle struct {
	Min mgl64.Vec3 `json:"min"`
	Max mgl64.Vec3 `json:"max"`
}

// Contains reports whether a ground-plane point is inside the box footprint.
func (o Obstacle) Contains(p mgl64.Vec3) bool {
	return p.X() >= o.Min.X() && p.X() <= o.Max.X() &&
		p.Z() >= o.Min.Z() && p.Z() <= o.Max.Z()
}

// Projectile is a fired shot in flight.
type Projectile struct {
	ID       int        `json:"id"`
	Owner    int        `json:"owner"`
	Team     int        `json:"team"`
	Pos      mgl64.Vec3 `json:"pos"`
	Dir      mgl64.Vec3 `json:"dir"` // unit vector on the ground plane
	Speed    float64    `json:"speed"`
	Damage   int        `json:"damage"`
	MaxRange float64    `json:"maxRange"`
	Traveled float64    `json:"traveled"`
	Active   bool       `json:"active"`
}

// World holds the entire simulation state.
type World struct {
	Mu sync.RWMutex // public for access from the server package

	Agents      [MaxAgents]*Agent
	Pickups     []*Pickup
	Projectiles []*Projectile
	Obstacles   []Obstacle

	Frame      int64
	RoundCount int
	GameOver   bool
	Winner     int // winning team when GameOver

	ControlLocked bool // between rounds the lifecycle controller freezes all agents
}

// NewWorld creates an empty world with all agent slots free.
func NewWorld() *World {
	w := &World{
		Pickups:     make([]*Pickup, 0),
		Projectiles: make([]*Projectile, 0),
	}
	for i := 0; i < MaxAgents; i++ {
		w.Agents[i] = &Agent{
			ID:         i,
			Status:     StatusFree,
			KilledBy:   NoTarget,
			ManualFire: NoTarget,
		}
	}
	return w
}

// AliveAgent returns the agent with the given ID if it is alive, nil otherwise.
func (w *World) AliveAgent(id int) *Agent {
	if id < 0 || id >= MaxAgents {
		return nil
	}
	a := w.Agents[id]
	if a.Status != StatusAlive {
		return nil
	}
	return a
}

// PickupByID returns the pickup with the given ID, nil if missing.
func (w *World) PickupByID(id int) *Pickup {
	for _, pk := range w.Pickups {
		if pk.ID == id {
			return pk
		}
	}
	return nil
}

// Distance calculates ground-plane distance between two points.
func Distance(a, b mgl64.Vec3) float64 {
	dx := b.X() - a.X()
	dz := b.Z() - a.Z()
	return math.Sqrt(dx*dx + dz*dz)
}

// Flat projects a vector onto the ground plane.
func Flat(v mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{v.X(), 0, v.Z()}
}

// NormalizeAngle keeps angle between 0 and 2*PI.
func NormalizeAngle(angle float64) float64 {
	for angle < 0 {
		angle += 2 * math.Pi
	}
	for angle >= 2*math.Pi {
		angle -= 2 * math.Pi
	}
	return angle
}

// AngleDelta returns the absolute smallest difference between two angles.
func AngleDelta(a, b float64) float64 {
	d := math.Abs(NormalizeAngle(a) - NormalizeAngle(b))
	if d > math.Pi {
		d = 2*math.Pi - d
	}
	return d
}

// ClampToArena keeps a ground-plane point inside the arena bounds.
func ClampToArena(p mgl64.Vec3) mgl64.Vec3 {
	x := math.Max(-ArenaHalf, math.Min(ArenaHalf, p.X()))
	z := math.Max(-ArenaHalf, math.Min(ArenaHalf, p.Z()))
	return mgl64.Vec3{x, p.Y(), z}
}

// Min returns the minimum of two integers
func Min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Max returns the maximum of two integers
func Max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
