package game

import "strings"

// WeaponKind identifies one of the avatar's hitscan weapons.
type WeaponKind uint8

const (
	Pistol WeaponKind = iota
	Shotgun
	Rifle

	weaponKindCount
)

// Weapon represents a weapon configuration
type Weapon struct {
	Kind        WeaponKind `json:"-"`
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Damage      float64    `json:"damage"`   // Per pellet
	Interval    float64    `json:"interval"` // Minimum seconds between shots
	Spread      float64    `json:"spread"`   // Per-component uniform jitter on the look direction
	Range       float64    `json:"range"`
	AmmoPerShot int        `json:"ammoPerShot"`
	Pellets     int        `json:"pellets"`
	Color       string     `json:"color"`
}

// weaponTable is indexed by WeaponKind and must stay exhaustive.
var weaponTable = [weaponKindCount]Weapon{
	Pistol: {
		Kind:        Pistol,
		ID:          "pistol",
		Name:        "Pistol",
		Damage:      20,
		Interval:    0.4,
		Spread:      0.02,
		Range:       80,
		AmmoPerShot: 1,
		Pellets:     1,
		Color:       "#FFD700",
	},
	Shotgun: {
		Kind:        Shotgun,
		ID:          "shotgun",
		Name:        "Shotgun",
		Damage:      12,
		Interval:    0.9,
		Spread:      0.1,
		Range:       30,
		AmmoPerShot: 2,
		Pellets:     6,
		Color:       "#FF6B35",
	},
	Rifle: {
		Kind:        Rifle,
		ID:          "rifle",
		Name:        "Assault Rifle",
		Damage:      15,
		Interval:    0.15,
		Spread:      0.04,
		Range:       100,
		AmmoPerShot: 1,
		Pellets:     1,
		Color:       "#4ECDC4",
	},
}

// Def returns the weapon definition, defaults to the pistol
func (k WeaponKind) Def() Weapon {
	if k >= weaponKindCount {
		return weaponTable[Pistol]
	}
	return weaponTable[k]
}

// String returns the weapon id
func (k WeaponKind) String() string {
	return k.Def().ID
}

// ParseWeapon accepts a weapon id ("rifle") or its 1-based slot ("3")
func ParseWeapon(s string) (WeaponKind, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, w := range weaponTable {
		if s == w.ID || s == string(rune('1'+i)) {
			return WeaponKind(i), true
		}
	}
	return Pistol, false
}

// AllWeapons returns all weapons in slot order
func AllWeapons() []Weapon {
	weapons := make([]Weapon, len(weaponTable))
	copy(weapons, weaponTable[:])
	return weapons
}
