package game

// ApplyDamageWithArmor applies damage to armor first, then health.
// Returns the total amount of damage actually applied.
// This ensures consistent damage handling across all weapon types.
func ApplyDamageWithArmor(a *Agent, damage int) int {
	if a == nil || damage <= 0 {
		return 0
	}

	totalApplied := 0

	// Armor absorbs first
	if a.Armor > 0 {
		absorbed := Min(damage, a.Armor)
		a.Armor -= absorbed
		damage -= absorbed
		totalApplied += absorbed
	}

	// Remainder goes to health
	if damage > 0 {
		a.Health -= damage
		totalApplied += damage
	}

	return totalApplied
}

// RegenTick applies one tick of regeneration. Armor regenerates fastest
// while the agent sits in Idle; health trickles back in every state.
// Fractional amounts accumulate on the agent so low rates still apply.
func RegenTick(a *Agent, dt float64) {
	if a == nil || a.Stats == nil || a.Status != StatusAlive {
		return
	}

	if a.Health < a.Stats.MaxHealth {
		a.HealthFrac += a.Stats.HealthRegen * dt
		if a.HealthFrac >= 1 {
			whole := int(a.HealthFrac)
			a.HealthFrac -= float64(whole)
			a.Health = Min(a.Stats.MaxHealth, a.Health+whole)
		}
	} else {
		a.HealthFrac = 0
	}

	rate := a.Stats.ArmorRegenMove
	if a.State == StateIdle {
		rate = a.Stats.ArmorRegenIdle
	}
	if a.Armor < a.Stats.MaxArmor {
		a.ArmorFrac += rate * dt
		if a.ArmorFrac >= 1 {
			whole := int(a.ArmorFrac)
			a.ArmorFrac -= float64(whole)
			a.Armor = Min(a.Stats.MaxArmor, a.Armor+whole)
		}
	} else {
		a.ArmorFrac = 0
	}
}
