package game

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"voxel-royale/internal/game/voxel"
)

const (
	pickupRadius = 1.5
	bobRate      = 3.0 // Radians per second

	lootPerKill = 2
	supplyCount = 10 // Items dropped with every new wave
)

// ResourceKind is the pool a dropped item refills.
type ResourceKind uint8

const (
	ResourceHealth ResourceKind = iota
	ResourceShield
	ResourceAmmo
	ResourceMaterials

	resourceKindCount
)

var resourceNames = [resourceKindCount]string{
	ResourceHealth:    "health",
	ResourceShield:    "shield",
	ResourceAmmo:      "ammo",
	ResourceMaterials: "materials",
}

func (k ResourceKind) String() string {
	if k >= resourceKindCount {
		return "unknown"
	}
	return resourceNames[k]
}

// Item is loot lying in the world.
type Item struct {
	Position mgl64.Vec3
	Kind     ResourceKind
	Amount   int
	BobPhase float64 // Cosmetic only
}

// amountRange is a half-open range [Min, Min+Span) of item quantities.
type amountRange struct {
	Min, Span int
}

var (
	initialAmounts = amountRange{25, 25}
	lootAmounts    = amountRange{20, 30}
	supplyAmounts  = amountRange{30, 30}
)

// dropItem appends an item of random kind. At the item limit a scattered
// drop is discarded, while kill loot replaces the oldest item so every
// elimination leaves something behind.
func (a *Arena) dropItem(pos mgl64.Vec3, amounts amountRange, evictOldest bool) {
	if a.limits.MaxItems <= 0 {
		return
	}
	if len(a.Items) >= a.limits.MaxItems {
		if !evictOldest {
			return
		}
		n := copy(a.Items, a.Items[len(a.Items)-a.limits.MaxItems+1:])
		a.Items = a.Items[:n]
	}
	a.Items = append(a.Items, Item{
		Position: pos,
		Kind:     ResourceKind(a.rng.Intn(int(resourceKindCount))),
		Amount:   amounts.Min + a.rng.Intn(amounts.Span),
		BobPhase: a.rng.Float64() * math.Pi * 2,
	})
}

// scatterItems drops n items at random surface points away from the edge.
func (a *Arena) scatterItems(n int, amounts amountRange) {
	size := a.Grid.Size()
	span := float64(size - 10)
	if span <= 0 {
		span = float64(size)
	}
	for i := 0; i < n; i++ {
		x := a.rng.Float64()*span + 5
		z := a.rng.Float64()*span + 5
		y := float64(voxel.HeightAt(int(math.Floor(x)), int(math.Floor(z)), size)) + 0.5
		a.dropItem(mgl64.Vec3{x, y, z}, amounts, false)
	}
}

// dropLoot scatters kill rewards within a unit of pos on x and z.
func (a *Arena) dropLoot(pos mgl64.Vec3) {
	for i := 0; i < lootPerKill; i++ {
		p := mgl64.Vec3{
			pos.X() + (a.rng.Float64()-0.5)*2,
			pos.Y(),
			pos.Z() + (a.rng.Float64()-0.5)*2,
		}
		a.dropItem(p, lootAmounts, true)
	}
}

// applyItem credits the item to the matching avatar pool. Health and shield
// are capped at their maximums, ammo and materials are not.
func (av *Avatar) applyItem(it Item) {
	switch it.Kind {
	case ResourceHealth:
		av.Health = math.Min(av.MaxHealth, av.Health+float64(it.Amount))
	case ResourceShield:
		av.Shield = math.Min(av.MaxShield, av.Shield+float64(it.Amount))
	case ResourceAmmo:
		av.Ammo += it.Amount
	case ResourceMaterials:
		av.Materials += it.Amount
	}
}

// stepPickup collects every item within reach of the avatar. Candidates come
// from the spatial grid, then the exact 3-D distance decides.
func (a *Arena) stepPickup(_ float64) {
	grid := a.pickupGrid
	grid.Clear()
	if len(a.Items) == 0 {
		return
	}

	for i, it := range a.Items {
		grid.Insert(uint32(i), it.Position.X(), it.Position.Z())
	}

	pos := a.Avatar.Position
	if cap(a.taken) < len(a.Items) {
		a.taken = make([]bool, len(a.Items))
	}
	taken := a.taken[:len(a.Items)]
	for i := range taken {
		taken[i] = false
	}

	found := false
	for _, id := range grid.QueryRadius(pos.X(), pos.Z(), pickupRadius) {
		it := a.Items[id]
		if it.Position.Sub(pos).Len() >= pickupRadius {
			continue
		}
		taken[id] = true
		found = true
	}
	if !found {
		return
	}

	n := 0
	for i, it := range a.Items {
		if !taken[i] {
			a.Items[n] = it
			n++
			continue
		}
		a.Avatar.applyItem(it)
		a.emit(EventTypePickup, avatarSource, PickupPayload{
			Kind:   it.Kind.String(),
			Amount: it.Amount,
		})
	}
	a.Items = a.Items[:n]
}
