package material

import (
	"math"
	"math/rand"
	"testing"

	"github.com/df07/go-realtime-restir/pkg/core"
)

func TestParams_PureLambertWithoutSpecular(t *testing.T) {
	p := Params{BaseColor: core.NewVec3(0.8, 0.5, 0.2), Roughness: 0.3}
	normal := core.NewVec3(0, 1, 0)
	toLight := core.NewVec3(0.6, 0.8, 0)
	toViewer := core.NewVec3(-0.6, 0.8, 0)

	got := p.Evaluate(normal, toLight, toViewer)
	expected := p.BaseColor.Multiply(0.8 / math.Pi)
	if got.Subtract(expected).Length() > 1e-12 {
		t.Errorf("Expected %v, got %v", expected, got)
	}
}

func TestParams_BelowHorizonIsBlack(t *testing.T) {
	p := Params{BaseColor: core.NewVec3(1, 1, 1), Roughness: 0.5, Reflectance: 0.5}
	normal := core.NewVec3(0, 1, 0)

	tests := []struct {
		name    string
		toLight core.Vec3
	}{
		{"below", core.NewVec3(0, -1, 0)},
		{"grazing", core.NewVec3(1, 0, 0)},
		{"nan", core.NewVec3(math.NaN(), 0, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.Evaluate(normal, tt.toLight, normal); !got.IsZero() {
				t.Errorf("Expected black, got %v", got)
			}
		})
	}
}

func TestParams_MetalHasNoDiffuse(t *testing.T) {
	p := Params{BaseColor: core.NewVec3(0.9, 0.6, 0.3), Metallic: 1, Roughness: 0.5}
	if !p.DiffuseColor().IsZero() {
		t.Errorf("Expected no diffuse color, got %v", p.DiffuseColor())
	}
	if p.F0() != p.BaseColor {
		t.Errorf("Expected F0 equal to base color, got %v", p.F0())
	}
}

func TestParams_Reciprocity(t *testing.T) {
	p := Params{BaseColor: core.NewVec3(0.7, 0.7, 0.7), Roughness: 0.4, Reflectance: 0.5, Metallic: 0.3}
	normal := core.NewVec3(0, 0, 1)
	a := core.NewVec3(0.3, 0.1, 0.9).Normalize()
	b := core.NewVec3(-0.5, 0.2, 0.7).Normalize()

	ab := p.Evaluate(normal, a, b).Multiply(1 / normal.Dot(a))
	ba := p.Evaluate(normal, b, a).Multiply(1 / normal.Dot(b))
	if ab.Subtract(ba).Length() > 1e-9 {
		t.Errorf("Expected symmetric BRDF, got %v and %v", ab, ba)
	}
}

func TestParams_EnergyConservation(t *testing.T) {
	random := rand.New(rand.NewSource(7))
	normal := core.NewVec3(0, 1, 0)

	for _, roughness := range []float64{0.2, 0.5, 1.0} {
		p := Params{BaseColor: core.NewVec3(1, 1, 1), Roughness: roughness, Reflectance: 0.5}
		toViewer := core.NewVec3(0.5, 0.8, 0).Normalize()

		// Uniform hemisphere sampling, pdf 1/(2*pi)
		const samples = 200000
		var sum float64
		for i := 0; i < samples; i++ {
			z := random.Float64()
			r := math.Sqrt(1 - z*z)
			phi := 2 * math.Pi * random.Float64()
			toLight := core.NewVec3(r*math.Cos(phi), z, r*math.Sin(phi))
			sum += p.Evaluate(normal, toLight, toViewer).Y * 2 * math.Pi
		}
		albedo := sum / samples
		if albedo > 1.15 || albedo < 0.8 {
			t.Errorf("Roughness %.1f: expected directional albedo near one, got %f", roughness, albedo)
		}
	}
}
