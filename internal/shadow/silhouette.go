package shadow

import "github.com/cwbudde/shadowcast/internal/raster"

// SilhouetteThreshold is the alpha a foreground pixel must exceed to cast shadow.
const SilhouetteThreshold = 10

// Silhouette marks which pixels of a scaled foreground belong to the subject.
type Silhouette struct {
	Width  int
	Height int
	inside []bool
	count  int
}

// ExtractSilhouette thresholds the alpha channel of fg. A fully transparent
// foreground yields an empty silhouette.
func ExtractSilhouette(fg *raster.Buffer) *Silhouette {
	s := &Silhouette{
		Width:  fg.Width,
		Height: fg.Height,
		inside: make([]bool, fg.Width*fg.Height),
	}
	for i := range s.inside {
		if fg.Pix[i*4+3] > SilhouetteThreshold {
			s.inside[i] = true
			s.count++
		}
	}
	return s
}

// Contains reports whether (x,y) is part of the subject. Coordinates outside
// the silhouette are never part of it.
func (s *Silhouette) Contains(x, y int) bool {
	if x < 0 || y < 0 || x >= s.Width || y >= s.Height {
		return false
	}
	return s.inside[y*s.Width+x]
}

// Count is the number of subject pixels.
func (s *Silhouette) Count() int { return s.count }

// Empty reports whether no pixel passed the threshold.
func (s *Silhouette) Empty() bool { return s.count == 0 }
