package game

// Robot classes
type ClassType int

const (
	ClassScout ClassType = iota
	ClassBrawler
	ClassSniper
	ClassTank
	ClassGuardian
)

// ClassStats holds the tuning numbers for one robot class.
// WeaponRange drives the attack ring, so short and long range classes
// naturally orbit their targets at different distances.
type ClassStats struct {
	Name            string
	MaxHealth       int
	MaxArmor        int
	MaxSpeed        float64 // meters per second
	Weight          float64
	WeaponRange     float64 // meters
	WeaponDamage    int
	ShotsPerMinute  float64
	ProjectileSpeed float64 // meters per second
	SightRadius     float64 // detection radius for perception queries
	SightFOV        float64 // field of view in degrees, 360 disables the bearing check
	AimToleranceDeg float64 // turret must be within this of the aim point to fire
	TurretTurnRate  float64 // degrees per second
	HealthRegen     float64 // points per second, applies in every state
	ArmorRegenIdle  float64 // points per second while Idle
	ArmorRegenMove  float64 // points per second in every other state
	CollisionRadius float64
}

var ClassData = map[ClassType]ClassStats{
	ClassScout: {
		Name:            "Scout",
		MaxHealth:       70,
		MaxArmor:        30,
		MaxSpeed:        7.5,
		Weight:          40,
		WeaponRange:     12,
		WeaponDamage:    8,
		ShotsPerMinute:  150,
		ProjectileSpeed: 40,
		SightRadius:     45,
		SightFOV:        200,
		AimToleranceDeg: 6,
		TurretTurnRate:  240,
		HealthRegen:     0.5,
		ArmorRegenIdle:  4,
		ArmorRegenMove:  1,
		CollisionRadius: 0.45,
	},
	ClassBrawler: {
		Name:            "Brawler",
		MaxHealth:       110,
		MaxArmor:        60,
		MaxSpeed:        5.5,
		Weight:          70,
		WeaponRange:     8,
		WeaponDamage:    16,
		ShotsPerMinute:  90,
		ProjectileSpeed: 30,
		SightRadius:     38,
		SightFOV:        180,
		AimToleranceDeg: 8,
		TurretTurnRate:  180,
		HealthRegen:     0.5,
		ArmorRegenIdle:  5,
		ArmorRegenMove:  1.5,
		CollisionRadius: 0.55,
	},
	ClassSniper: {
		Name:            "Sniper",
		MaxHealth:       80,
		MaxArmor:        40,
		MaxSpeed:        5.0,
		Weight:          55,
		WeaponRange:     50,
		WeaponDamage:    22,
		ShotsPerMinute:  40,
		ProjectileSpeed: 80,
		SightRadius:     55,
		SightFOV:        160,
		AimToleranceDeg: 3,
		TurretTurnRate:  120,
		HealthRegen:     0.4,
		ArmorRegenIdle:  3,
		ArmorRegenMove:  1,
		CollisionRadius: 0.5,
	},
	ClassTank: {
		Name:            "Tank",
		MaxHealth:       150,
		MaxArmor:        100,
		MaxSpeed:        3.8,
		Weight:          120,
		WeaponRange:     20,
		WeaponDamage:    20,
		ShotsPerMinute:  60,
		ProjectileSpeed: 35,
		SightRadius:     40,
		SightFOV:        150,
		AimToleranceDeg: 7,
		TurretTurnRate:  100,
		HealthRegen:     0.6,
		ArmorRegenIdle:  6,
		ArmorRegenMove:  2,
		CollisionRadius: 0.7,
	},
	ClassGuardian: {
		Name:            "Guardian",
		MaxHealth:       100,
		MaxArmor:        50,
		MaxSpeed:        5.0,
		Weight:          65,
		WeaponRange:     16,
		WeaponDamage:    14,
		ShotsPerMinute:  75,
		ProjectileSpeed: 38,
		SightRadius:     42,
		SightFOV:        190,
		AimToleranceDeg: 6,
		TurretTurnRate:  160,
		HealthRegen:     0.5,
		ArmorRegenIdle:  5,
		ArmorRegenMove:  1.5,
		CollisionRadius: 0.5,
	},
}

// Stats is the runtime stat block of one agent. The embedded ClassStats is
// replaced wholesale when a build is applied; Generation is bumped on every
// such change so that code caching derived values (effective weapon range,
// cooldown frames) can detect it without relying on aliased reads.
//
// The bonus fields are the only parts mutated after spawn: timed pickups set
// them together with an expiry frame, and the effective accessors consult the
// current frame instead of requiring an explicit cleanup pass.
type Stats struct {
	ClassStats

	Generation int

	BonusDamage      int
	BonusDamageUntil int64 // frame after which BonusDamage no longer applies
	SpeedMult        float64
	SpeedMultUntil   int64
}

// NewStats creates a stat block for a class.
func NewStats(class ClassType) *Stats {
	st := &Stats{SpeedMult: 1}
	st.ApplyBuild(ClassData[class])
	return st
}

// ApplyBuild replaces the base stat block in place and bumps Generation.
// Existing timed bonuses survive a build change.
func (st *Stats) ApplyBuild(cs ClassStats) {
	st.ClassStats = cs
	st.Generation++
}

// EffectiveDamage returns the per-shot damage at the given frame.
func (st *Stats) EffectiveDamage(frame int64) int {
	if frame < st.BonusDamageUntil {
		return st.WeaponDamage + st.BonusDamage
	}
	return st.WeaponDamage
}

// EffectiveSpeed returns the movement speed at the given frame.
func (st *Stats) EffectiveSpeed(frame int64) float64 {
	if frame < st.SpeedMultUntil && st.SpeedMult > 0 {
		return st.MaxSpeed * st.SpeedMult
	}
	return st.MaxSpeed
}

// CooldownFrames returns the weapon cooldown in ticks.
func (st *Stats) CooldownFrames() int {
	if st.ShotsPerMinute <= 0 {
		return 1
	}
	seconds := 60.0 / st.ShotsPerMinute
	frames := int(seconds * FPS)
	if frames < 1 {
		frames = 1
	}
	return frames
}
