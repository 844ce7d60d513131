package renderer

import (
	"image"
	"testing"

	"github.com/df07/go-realtime-restir/pkg/restir"
)

func first(r []restir.Reservoir) *restir.Reservoir {
	return &r[0]
}

func TestCameraBuffers_ReservoirRotationNeverAliases(t *testing.T) {
	buf := NewCameraBuffers(image.Pt(4, 4))

	for frame := 0; frame < 9; frame++ {
		prev, curr, next := first(buf.PrevReservoirs()), first(buf.CurrReservoirs()), first(buf.NextReservoirs())
		if prev == curr || curr == next || prev == next {
			t.Fatalf("Frame %d: reservoir roles alias", frame)
		}

		buf.RotateReservoirs()
		if first(buf.PrevReservoirs()) != next {
			t.Fatalf("Frame %d: expected next to become prev", frame)
		}
		if first(buf.CurrReservoirs()) != prev {
			t.Fatalf("Frame %d: expected the old prev buffer to be reused as curr", frame)
		}
	}
}

func TestCameraBuffers_EndFrameFlipsHistory(t *testing.T) {
	buf := NewCameraBuffers(image.Pt(2, 2))
	if buf.HasHistory() {
		t.Fatalf("Expected new buffers to have no history")
	}

	buf.CurrSurfaces()[0] = [4]float32{1, 2, 3, 4}
	buf.CurrIndirectHistory()[0].Frames = 3
	buf.EndFrame(buf.PrevViewProjection())

	if !buf.HasHistory() || buf.Frames() != 1 {
		t.Errorf("Expected one frame of history, got %v/%d", buf.HasHistory(), buf.Frames())
	}
	if buf.PrevSurfaces()[0] != [4]float32{1, 2, 3, 4} {
		t.Errorf("Expected the written surface map to become the previous one, got %v", buf.PrevSurfaces()[0])
	}
	if buf.PrevIndirectHistory()[0].Frames != 3 {
		t.Errorf("Expected the written indirect history to become the previous one")
	}
	if &buf.CurrSurfaces()[0] == &buf.PrevSurfaces()[0] {
		t.Errorf("Expected distinct surface maps")
	}
}

func TestCameraBuffers_Index(t *testing.T) {
	buf := NewCameraBuffers(image.Pt(5, 3))
	tests := []struct {
		x, y     int
		index    int
		contains bool
	}{
		{0, 0, 0, true},
		{4, 0, 4, true},
		{0, 1, 5, true},
		{4, 2, 14, true},
		{5, 0, 0, false},
		{-1, 1, 0, false},
		{0, 3, 0, false},
	}
	for _, tt := range tests {
		if got := buf.Contains(tt.x, tt.y); got != tt.contains {
			t.Errorf("Contains(%d, %d): expected %v, got %v", tt.x, tt.y, tt.contains, got)
		}
		if tt.contains && buf.Index(tt.x, tt.y) != tt.index {
			t.Errorf("Index(%d, %d): expected %d, got %d", tt.x, tt.y, tt.index, buf.Index(tt.x, tt.y))
		}
	}
}
