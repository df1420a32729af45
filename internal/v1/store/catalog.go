package store

import "github.com/clashdeck/backend/internal/v1/game"

// starterCatalog is the card set seeded into a fresh database. IDs are
// assigned by sqlite in slice order, so the first entry is card 1.
var starterCatalog = []game.Card{
	{Name: "Emberling", HP: 50, Attack: 20, Type: game.TypeFire},
	{Name: "Cinder Fox", HP: 60, Attack: 25, Type: game.TypeFire},
	{Name: "Magma Hound", HP: 70, Attack: 30, Type: game.TypeFire},
	{Name: "Ash Drake", HP: 80, Attack: 35, Type: game.TypeFire},
	{Name: "Pyre Colossus", HP: 100, Attack: 40, Type: game.TypeFire},
	{Name: "Droplet", HP: 50, Attack: 20, Type: game.TypeWater},
	{Name: "Tide Crab", HP: 60, Attack: 25, Type: game.TypeWater},
	{Name: "Reef Serpent", HP: 70, Attack: 30, Type: game.TypeWater},
	{Name: "Storm Ray", HP: 80, Attack: 35, Type: game.TypeWater},
	{Name: "Abyss Leviathan", HP: 100, Attack: 40, Type: game.TypeWater},
	{Name: "Sproutling", HP: 50, Attack: 20, Type: game.TypeGrass},
	{Name: "Thorn Hare", HP: 60, Attack: 25, Type: game.TypeGrass},
	{Name: "Bramble Boar", HP: 70, Attack: 30, Type: game.TypeGrass},
	{Name: "Sylvan Stag", HP: 80, Attack: 35, Type: game.TypeGrass},
	{Name: "Elder Treant", HP: 100, Attack: 40, Type: game.TypeGrass},
	{Name: "Sparkmouse", HP: 50, Attack: 20, Type: game.TypeElectric},
	{Name: "Volt Wasp", HP: 60, Attack: 25, Type: game.TypeElectric},
	{Name: "Arc Lynx", HP: 70, Attack: 30, Type: game.TypeElectric},
	{Name: "Thunder Roc", HP: 80, Attack: 35, Type: game.TypeElectric},
	{Name: "Tempest Djinn", HP: 100, Attack: 40, Type: game.TypeElectric},
}
