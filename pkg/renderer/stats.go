package renderer

import (
	"time"
)

// PassTiming is the wall time one pass dispatch took
type PassTiming struct {
	Name     string
	Duration time.Duration
}

// FrameStats contains statistics about one drawn frame of one camera
type FrameStats struct {
	Camera             CameraID
	Frame              uint32
	TotalPixels        int     // Pixels in the viewport
	SkyPixels          int     // Pixels whose primary ray missed
	ValidReprojections int     // Surface pixels with a valid reprojection
	AverageM           float64 // Mean reservoir history length over surface pixels
	MaxM               float64 // Longest reservoir history
	Passes             []PassTiming
	Total              time.Duration
}

// ReprojectionRate returns the fraction of surface pixels that found history
func (s FrameStats) ReprojectionRate() float64 {
	surface := s.TotalPixels - s.SkyPixels
	if surface <= 0 {
		return 0
	}
	return float64(s.ValidReprojections) / float64(surface)
}

// collect fills the buffer-derived statistics after a resolved frame
func (s *FrameStats) collect(buf *CameraBuffers) {
	s.TotalPixels = len(buf.History)
	totalM := 0.0
	for i := range buf.History {
		if buf.GBufferD0[i][2] == 0 {
			s.SkyPixels++
			continue
		}
		if buf.Reprojection[i].Valid {
			s.ValidReprojections++
		}
		m := buf.History[i]
		totalM += m
		s.MaxM = max(s.MaxM, m)
	}
	if surface := s.TotalPixels - s.SkyPixels; surface > 0 {
		s.AverageM = totalM / float64(surface)
	}
}
