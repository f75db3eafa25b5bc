package game

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"voxel-royale/internal/game/voxel"
)

// aimAt points the avatar at the hit-sphere center of an opponent standing on
// the +x axis of the avatar
func aimAt(a *Arena, o *Opponent) {
	eye := a.Avatar.Eye()
	dx := o.Position.X() - eye.X()
	dy := o.Position.Y() + bodyCenter - eye.Y()
	a.Avatar.SetLook(0, math.Atan2(dy, dx))
}

func wall(g *voxel.Grid, x, y0, y1, z0, z1 int) {
	for y := y0; y <= y1; y++ {
		for z := z0; z <= z1; z++ {
			g.Put(x, y, z, voxel.Stone)
		}
	}
}

func TestDamageAvatar(t *testing.T) {
	tests := []struct {
		name         string
		health       float64
		shield       float64
		invulnerable bool
		amount       float64
		wantHealth   float64
		wantShield   float64
		wantOver     bool
	}{
		{"shield absorbs first", 100, 30, false, 50, 80, 0, false},
		{"shield only", 100, 50, false, 20, 100, 30, false},
		{"invulnerable", 100, 30, true, 50, 100, 30, false},
		{"zero amount", 100, 30, false, 0, 100, 30, false},
		{"lethal", 10, 0, false, 15, 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := flatArena(t)
			a.Avatar.Health = tt.health
			a.Avatar.Shield = tt.shield
			a.Avatar.Invulnerable = tt.invulnerable

			a.DamageAvatar(tt.amount, "test")

			if a.Avatar.Health != tt.wantHealth || a.Avatar.Shield != tt.wantShield {
				t.Errorf("health/shield = %.0f/%.0f, want %.0f/%.0f",
					a.Avatar.Health, a.Avatar.Shield, tt.wantHealth, tt.wantShield)
			}
			if a.Over != tt.wantOver {
				t.Errorf("over = %v, want %v", a.Over, tt.wantOver)
			}
			if tt.wantOver && (a.Won || a.Message != "GAME OVER") {
				t.Errorf("loss state: won %v message %q", a.Won, a.Message)
			}
		})
	}
}

func TestFireHitsOpponent(t *testing.T) {
	a := flatArena(t)
	o := addOpponent(a, 1, mgl64.Vec3{24, 5, 16}, 100)
	aimAt(a, o)

	a.Fire()

	rifle := Rifle.Def()
	if o.Health != 100-rifle.Damage {
		t.Errorf("opponent health = %.0f, want %.0f", o.Health, 100-rifle.Damage)
	}
	if a.Score != hitScore {
		t.Errorf("score = %d, want %d", a.Score, hitScore)
	}
	if a.Avatar.Ammo != 119 {
		t.Errorf("ammo = %d, want 119", a.Avatar.Ammo)
	}

	// Same match time: the rifle interval has not elapsed
	a.Fire()
	if a.Avatar.Ammo != 119 || o.Health != 100-rifle.Damage {
		t.Errorf("fired inside the interval: ammo %d health %.0f", a.Avatar.Ammo, o.Health)
	}

	a.Time += rifle.Interval
	a.Fire()
	if a.Avatar.Ammo != 118 {
		t.Errorf("ammo = %d after the interval, want 118", a.Avatar.Ammo)
	}
}

func TestFireBlockedByTerrain(t *testing.T) {
	a := flatArena(t)
	o := addOpponent(a, 1, mgl64.Vec3{24, 5, 16}, 100)
	wall(a.Grid, 20, 5, 9, 13, 19)
	aimAt(a, o)

	a.Fire()

	if o.Health != 100 {
		t.Errorf("shot passed through terrain: health %.0f", o.Health)
	}
	if a.Avatar.Ammo != 119 {
		t.Errorf("blocked shot should still spend ammo: %d", a.Avatar.Ammo)
	}
	if len(a.Particles) == 0 {
		t.Error("terrain impact should emit sparks")
	}
}

func TestFireHitsNearestOpponent(t *testing.T) {
	a := flatArena(t)
	far := addOpponent(a, 1, mgl64.Vec3{24, 5, 16}, 100)
	near := addOpponent(a, 2, mgl64.Vec3{20, 5, 16}, 100)
	aimAt(a, far)

	a.Fire()

	if far.Health != 100 {
		t.Errorf("far opponent hit through the near one: %.0f", far.Health)
	}
	if near.Health == 100 {
		t.Error("near opponent should take the shot")
	}
}

func TestFireRequiresAmmo(t *testing.T) {
	a := flatArena(t)
	a.Avatar.Weapon = Shotgun
	a.Avatar.Ammo = 1

	a.Fire()

	if a.Avatar.Ammo != 1 || !math.IsInf(a.Avatar.LastShot, -1) {
		t.Errorf("fired without enough ammo: ammo %d last %.2f", a.Avatar.Ammo, a.Avatar.LastShot)
	}
}

func TestPlaceBlock(t *testing.T) {
	a := flatArena(t)
	wall(a.Grid, 19, 5, 9, 14, 18)
	a.Avatar.BuildMode = true

	a.Fire()

	if got := a.Grid.At(18, 6, 16); got != voxel.Blue {
		t.Errorf("placed block = %s, want blue", got)
	}
	if a.Avatar.Materials != 90 {
		t.Errorf("materials = %d, want 90", a.Avatar.Materials)
	}
	if a.Avatar.Ammo != 120 {
		t.Errorf("build mode spent ammo: %d", a.Avatar.Ammo)
	}
}

func TestPlaceBlockRefusals(t *testing.T) {
	tests := []struct {
		name      string
		materials int
		pitch     float64
	}{
		{"not enough materials", buildCost - 1, 0},
		{"nothing in reach", 100, 0.5},
		{"cell overlaps avatar", 100, -maxPitch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := flatArena(t)
			if tt.pitch == 0 {
				wall(a.Grid, 19, 5, 9, 14, 18)
			}
			a.Avatar.BuildMode = true
			a.Avatar.Materials = tt.materials
			a.Avatar.SetLook(0, tt.pitch)
			rev := a.Grid.Revision()

			a.Fire()

			if a.Avatar.Materials != tt.materials {
				t.Errorf("materials = %d, want %d", a.Avatar.Materials, tt.materials)
			}
			if a.Grid.At(16, 5, 16) != voxel.Air || a.Grid.At(18, 6, 16) != voxel.Air {
				t.Error("refused placement changed the grid")
			}
			if tt.name == "nothing in reach" && a.Grid.Revision() != rev {
				t.Error("revision changed without an edit")
			}
		})
	}
}

func TestPlaceBlockRefusesOverlappingOpponent(t *testing.T) {
	a := flatArena(t)
	wall(a.Grid, 19, 5, 9, 14, 18)
	a.Avatar.BuildMode = true
	addOpponent(a, 1, mgl64.Vec3{18.5, 5, 16.5}, 100)
	rev := a.Grid.Revision()

	a.Fire()

	if got := a.Grid.At(18, 6, 16); got != voxel.Air {
		t.Errorf("block placed inside opponent: %s", got)
	}
	if a.Avatar.Materials != 100 {
		t.Errorf("materials = %d, want 100", a.Avatar.Materials)
	}
	if a.Grid.Revision() != rev {
		t.Error("refused placement bumped the world revision")
	}

	// Once the opponent moves off, the same cell is buildable
	a.Opponents[0].Position = mgl64.Vec3{12.5, 5, 12.5}
	a.Fire()
	if got := a.Grid.At(18, 6, 16); got != voxel.Blue {
		t.Errorf("placed block = %s, want blue", got)
	}
}

func TestDestroyBlock(t *testing.T) {
	a := flatArena(t)
	wall(a.Grid, 19, 5, 9, 14, 18)

	a.DestroyBlock()

	if a.Grid.At(19, 6, 16) != voxel.Air {
		t.Error("targeted block should be cleared")
	}
	if a.Avatar.Materials != 100+destroyReward {
		t.Errorf("materials = %d, want %d", a.Avatar.Materials, 100+destroyReward)
	}
	if len(a.Particles) != debris.Count {
		t.Errorf("debris = %d, want %d", len(a.Particles), debris.Count)
	}

	// Looking at open sky changes nothing
	a.Avatar.SetLook(0, maxPitch)
	a.DestroyBlock()
	if a.Avatar.Materials != 100+destroyReward {
		t.Errorf("destroyed without a target: materials %d", a.Avatar.Materials)
	}
}

func TestQueueAction(t *testing.T) {
	a := flatArena(t)
	a.limits.MaxActions = 2

	if !a.QueueAction(ActionFire) || !a.QueueAction(ActionDestroy) {
		t.Fatal("actions within the limit should queue")
	}
	if a.QueueAction(ActionFire) {
		t.Error("action beyond the limit should be dropped")
	}

	a.stepCombat(0)
	if len(a.pending) != 0 {
		t.Errorf("pending = %d after combat stage", len(a.pending))
	}
	if a.Avatar.Ammo != 119 {
		t.Errorf("queued fire not resolved: ammo %d", a.Avatar.Ammo)
	}

	a.endMatch(false)
	if a.QueueAction(ActionFire) {
		t.Error("finished match accepted an action")
	}
}

func TestAutoFireWeaponModeOnly(t *testing.T) {
	a := flatArena(t)
	a.SetIntents(IntentFire)

	a.stepCombat(0)
	if a.Avatar.Ammo != 119 {
		t.Errorf("held fire should shoot: ammo %d", a.Avatar.Ammo)
	}

	a.ToggleBuild()
	a.Time += 1
	a.stepCombat(0)
	if a.Avatar.Ammo != 119 || a.Avatar.Materials != 100 {
		t.Errorf("held fire in build mode acted: ammo %d materials %d", a.Avatar.Ammo, a.Avatar.Materials)
	}
}
