package atmosphere

import (
	"math"
	"testing"

	"github.com/df07/go-realtime-restir/pkg/core"
)

// One model for the whole package; building the tables is the slow part
var model = New(DefaultConfig())

func TestModel_ZeroInputs(t *testing.T) {
	sun := core.NewVec3(0, 1, 0)
	up := core.NewVec3(0, 1, 0)

	tests := []struct {
		name      string
		sun, dir  core.Vec3
		intensity float64
	}{
		{"zero sun direction", core.Vec3{}, up, 1},
		{"zero ray direction", sun, core.Vec3{}, 1},
		{"zero intensity", sun, up, 0},
		{"negative intensity", sun, up, -3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := model.Sample(tt.sun, tt.dir, tt.intensity); !got.IsZero() {
				t.Errorf("Expected black, got %v", got)
			}
		})
	}
}

func TestModel_SampleIsPure(t *testing.T) {
	sun := core.NewVec3(0.3, 0.6, 0.2)
	dir := core.NewVec3(-0.4, 0.5, 0.7)

	first := model.Sample(sun, dir, 1)
	for i := 0; i < 10; i++ {
		if got := model.Sample(sun, dir, 1); got != first {
			t.Fatalf("Expected identical samples, got %v and %v", first, got)
		}
	}
	// Unnormalized inputs give the same answer
	if got := model.Sample(sun.Multiply(5), dir.Multiply(0.1), 1); got.Subtract(first).Length() > 1e-12 {
		t.Errorf("Expected scale-invariant directions, got %v vs %v", got, first)
	}
}

func TestModel_SampleScalesWithIntensity(t *testing.T) {
	sun := core.NewVec3(0, 1, 1)
	dir := core.NewVec3(1, 0.3, 0)

	one := model.Sample(sun, dir, 1)
	two := model.Sample(sun, dir, 2)
	if two != one.Multiply(2) {
		t.Errorf("Expected doubling, got %v for %v", two, one)
	}
}

func TestModel_ZenithSkyIsBlue(t *testing.T) {
	sky := model.Sample(core.NewVec3(1, 1, 0), core.NewVec3(0, 1, 0), 1)
	if !(sky.Z > sky.Y && sky.Y > sky.X) {
		t.Errorf("Expected blue-dominant zenith, got %v", sky)
	}
	if sky.X <= 0 {
		t.Errorf("Expected positive radiance, got %v", sky)
	}
}

func TestModel_SunDiskIsBrighterThanSky(t *testing.T) {
	sun := core.NewVec3(0, 1, 2).Normalize()
	atSun := model.Sample(sun, sun, 1)
	nearSun := model.Sample(sun, sun.Add(core.NewVec3(0.05, 0, 0)), 1)

	if atSun.Luminance() <= 2*nearSun.Luminance() {
		t.Errorf("Expected sun disk to dominate, got %v vs %v", atSun, nearSun)
	}
}

func TestModel_SkyDarkensAfterSunset(t *testing.T) {
	up := core.NewVec3(0, 1, 0)
	day := model.Sample(core.NewVec3(0, 0.7, 0.7), up, 1)
	night := model.Sample(core.NewVec3(0, -0.7, 0.7), up, 1)

	if night.Luminance() >= day.Luminance()*0.1 {
		t.Errorf("Expected sky to darken with the sun below the horizon, got day=%v night=%v", day, night)
	}
}

func TestModel_Transmittance(t *testing.T) {
	zenith := model.Transmittance(core.NewVec3(0, 1, 0))
	grazing := model.Transmittance(core.NewVec3(1, 0.05, 0))
	ground := model.Transmittance(core.NewVec3(0, -1, 0))

	for axis := 0; axis < 3; axis++ {
		z, g := zenith.Axis(axis), grazing.Axis(axis)
		if z <= g {
			t.Errorf("Axis %d: expected zenith transmittance %f above grazing %f", axis, z, g)
		}
		if z <= 0 || z > 1 {
			t.Errorf("Axis %d: expected transmittance in (0, 1], got %f", axis, z)
		}
	}
	if !ground.IsZero() {
		t.Errorf("Expected no transmittance through the planet, got %v", ground)
	}
	// Blue is scattered more than red
	if zenith.Z >= zenith.X {
		t.Errorf("Expected red to be transmitted better than blue, got %v", zenith)
	}
}

func TestZenithEncoding(t *testing.T) {
	for _, mu := range []float64{-1, -0.5, -0.01, 0, 0.01, 0.3, 1} {
		got := decodeZenith(encodeZenith(mu))
		if math.Abs(got-mu) > 1e-12 {
			t.Errorf("Expected round trip of %f, got %f", mu, got)
		}
	}
}
