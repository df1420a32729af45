package game

// CardType is the elemental type of a card. The set is fixed by the card
// catalog; Damage is total over every pair of known types.
type CardType string

const (
	TypeFire     CardType = "fire"
	TypeWater    CardType = "water"
	TypeGrass    CardType = "grass"
	TypeElectric CardType = "electric"
	TypeNormal   CardType = "normal"
)

// strongAgainst maps an attacker type to the defender type it deals
// double damage to. Classic elemental rock-paper-scissors:
// fire > grass > water > fire, plus electric > water.
var strongAgainst = map[CardType]CardType{
	TypeFire:     TypeGrass,
	TypeGrass:    TypeWater,
	TypeWater:    TypeFire,
	TypeElectric: TypeWater,
}

// weakAgainst is the inverse relation: half damage.
var weakAgainst = map[CardType]CardType{
	TypeFire:     TypeWater,
	TypeGrass:    TypeFire,
	TypeWater:    TypeGrass,
	TypeElectric: TypeGrass,
}

// KnownTypes lists every type the chart is defined for.
var KnownTypes = []CardType{TypeFire, TypeWater, TypeGrass, TypeElectric, TypeNormal}

// Damage computes the damage an attack deals given the attacker's and
// defender's types. Double on advantage, half (floored) on disadvantage,
// unmodified otherwise. Never negative.
func Damage(attack int, attacker, defender CardType) int {
	if attack < 0 {
		return 0
	}

	switch {
	case strongAgainst[attacker] == defender:
		return attack * 2
	case weakAgainst[attacker] == defender:
		return attack / 2
	default:
		return attack
	}
}
