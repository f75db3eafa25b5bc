package game

import (
	"math"
	"reflect"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestParseIntents(t *testing.T) {
	tests := []struct {
		names   []string
		want    Intent
		unknown []string
	}{
		{nil, 0, nil},
		{[]string{"forward", "jump"}, IntentForward | IntentJump, nil},
		{[]string{"LEFT", "Fire"}, IntentLeft | IntentFire, nil},
		{[]string{"back", "crouch"}, IntentBack, []string{"crouch"}},
	}

	for _, tt := range tests {
		got, unknown := ParseIntents(tt.names)
		if got != tt.want {
			t.Errorf("ParseIntents(%v) = %b, want %b", tt.names, got, tt.want)
		}
		if !reflect.DeepEqual(unknown, tt.unknown) {
			t.Errorf("ParseIntents(%v) unknown = %v, want %v", tt.names, unknown, tt.unknown)
		}
	}
}

func TestSetLookClampsPitch(t *testing.T) {
	var av Avatar

	av.SetLook(1, 3)
	if av.Yaw != 1 || av.Pitch != maxPitch {
		t.Errorf("look = %.2f/%.2f, want 1/%.1f", av.Yaw, av.Pitch, maxPitch)
	}

	av.SetLook(math.NaN(), -3)
	if av.Yaw != 1 || av.Pitch != -maxPitch {
		t.Errorf("NaN yaw should keep the old value: %.2f/%.2f", av.Yaw, av.Pitch)
	}

	if l := av.LookDir().Len(); math.Abs(l-1) > 1e-9 {
		t.Errorf("look direction length = %.6f", l)
	}
}

func TestMoveVector(t *testing.T) {
	tests := []struct {
		name string
		in   Intent
		want mgl64.Vec3
	}{
		{"idle", 0, mgl64.Vec3{}},
		{"forward", IntentForward, mgl64.Vec3{1, 0, 0}},
		{"back", IntentBack, mgl64.Vec3{-1, 0, 0}},
		{"left", IntentLeft, mgl64.Vec3{0, 0, -1}},
		{"cancel", IntentForward | IntentBack, mgl64.Vec3{}},
		{"diagonal", IntentForward | IntentRight, mgl64.Vec3{math.Sqrt2 / 2, 0, math.Sqrt2 / 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := moveVector(0, tt.in)
			for i := range got {
				if math.Abs(got[i]-tt.want[i]) > 1e-9 {
					t.Errorf("moveVector = %v, want %v", got, tt.want)
					break
				}
			}
		})
	}
}

func TestStepAvatarWalks(t *testing.T) {
	a := flatArena(t)
	a.SetIntents(IntentForward)

	for i := 0; i < 60; i++ {
		a.stepAvatar(1.0 / 60)
	}

	if math.Abs(a.Avatar.Position.X()-22) > 1e-6 {
		t.Errorf("x = %.4f, want 22 after one second", a.Avatar.Position.X())
	}
	if a.Avatar.Position.Y() != 5 || !a.Avatar.OnGround {
		t.Errorf("avatar left the floor: y %.3f ground %v", a.Avatar.Position.Y(), a.Avatar.OnGround)
	}
}

func TestStepAvatarJumps(t *testing.T) {
	a := flatArena(t)
	a.SetIntents(IntentJump)

	a.stepAvatar(1.0 / 60)
	if a.Avatar.Position.Y() <= 5 {
		t.Errorf("y = %.3f, want airborne", a.Avatar.Position.Y())
	}

	a.SetIntents(0)
	for i := 0; i < 120; i++ {
		a.stepAvatar(1.0 / 60)
	}
	if a.Avatar.Position.Y() != 5 || !a.Avatar.OnGround {
		t.Errorf("did not land: y %.3f ground %v", a.Avatar.Position.Y(), a.Avatar.OnGround)
	}
}

func TestStepAvatarFallsOutOfWorld(t *testing.T) {
	a := flatArena(t)
	a.Avatar.Position = mgl64.Vec3{16, -5, 16}

	a.stepAvatar(1.0 / 60)

	if a.Avatar.Position.Y() != respawnHeight {
		t.Errorf("y = %.2f, want %.0f", a.Avatar.Position.Y(), respawnHeight)
	}
	if a.Avatar.Shield != 50-fallDamage {
		t.Errorf("shield = %.0f, want %.0f", a.Avatar.Shield, 50-fallDamage)
	}
}

func TestStepAvatarStaysInBounds(t *testing.T) {
	a := flatArena(t)
	a.Avatar.Position = mgl64.Vec3{1.2, 5, 16}
	a.Avatar.Yaw = math.Pi
	a.SetIntents(IntentForward)

	for i := 0; i < 30; i++ {
		a.stepAvatar(1.0 / 60)
	}

	if a.Avatar.Position.X() < 1 {
		t.Errorf("x = %.3f, want >= 1", a.Avatar.Position.X())
	}
}
