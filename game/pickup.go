package game

import "github.com/go-gl/mathgl/mgl64"

// Pickup types. The type is fixed at spawn time; an agent touching the
// pickup knows what it is getting.
type PickupType int

const (
	PickupHealth PickupType = iota
	PickupArmor
	PickupDamageBoost
	PickupSpeedBoost
)

func (t PickupType) String() string {
	switch t {
	case PickupHealth:
		return "health"
	case PickupArmor:
		return "armor"
	case PickupDamageBoost:
		return "damage-boost"
	case PickupSpeedBoost:
		return "speed-boost"
	default:
		return "unknown"
	}
}

// Pickup is a one-shot consumable dropped inside the arena.
type Pickup struct {
	ID       int        `json:"id"`
	Type     PickupType `json:"type"`
	Pos      mgl64.Vec3 `json:"pos"`
	Value    int        `json:"value"`    // restore amount or bonus magnitude
	Duration float64    `json:"duration"` // seconds, timed boosts only
	Active   bool       `json:"active"`
	Consumed bool       `json:"-"`
}

// Consume applies the pickup to an agent. Consumption is idempotent: a
// pickup that has already been consumed is a no-op, so double-touching in
// one tick cannot double-apply the bonus. Restores clamp at the class maximum.
// Returns true if the pickup was applied.
func (pk *Pickup) Consume(a *Agent, frame int64) bool {
	if pk == nil || pk.Consumed || !pk.Active {
		return false
	}
	if a == nil || a.Stats == nil || a.Status != StatusAlive {
		return false
	}

	pk.Consumed = true
	pk.Active = false

	durFrames := int64(pk.Duration * FPS)

	switch pk.Type {
	case PickupHealth:
		a.Health = Min(a.Stats.MaxHealth, a.Health+pk.Value)
	case PickupArmor:
		a.Armor = Min(a.Stats.MaxArmor, a.Armor+pk.Value)
	case PickupDamageBoost:
		a.Stats.BonusDamage = pk.Value
		a.Stats.BonusDamageUntil = frame + durFrames
	case PickupSpeedBoost:
		a.Stats.SpeedMult = 1 + float64(pk.Value)/100.0
		a.Stats.SpeedMultUntil = frame + durFrames
	}

	return true
}
