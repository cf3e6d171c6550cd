package economy

import "math"

// CooldownFloor is the smallest fraction of a base cooldown any stack can leave
const CooldownFloor = 0.1

// Apply runs base through mods in order and rounds to 4 decimals.
//
// Addition compounds per card: two different +10% cards give 1.1*1.1, while
// two copies of the same card give 1 + 0.1*2.
func Apply(base float64, mods []Modifier) float64 {
	return Round4(apply(base, mods))
}

// ApplyCooldown is Apply for cooldowns: the result never drops below
// CooldownFloor of base, whatever the stack.
func ApplyCooldown(base float64, mods []Modifier) float64 {
	v := apply(base, mods)
	if floor := base * CooldownFloor; base > 0 && v < floor {
		v = floor
	}
	return Round4(v)
}

func apply(base float64, mods []Modifier) float64 {
	v := base
	for _, m := range mods {
		if m.Qty <= 0 {
			continue
		}
		q := float64(m.Qty)
		switch m.Kind {
		case Addition:
			v *= 1 + m.Amount*q
		case Multiplier:
			v *= math.Pow(m.Amount, q)
		case Reduction:
			v *= math.Max(CooldownFloor, 1-m.Amount*q)
		}
	}
	return v
}

// Round4 rounds to 4 decimal places
func Round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

// RoundStock rounds a stock quantity half to even at 2 decimals
func RoundStock(v float64) float64 {
	return math.RoundToEven(v*100) / 100
}
