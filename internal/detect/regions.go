package detect

import (
	"fmt"
	"image"

	"github.com/vvaria04/Traffic-light-Management/internal/phase"
)

// Rect is an axis-aligned rectangle in reference-frame pixels.
type Rect struct {
	X int `yaml:"x" json:"x"`
	Y int `yaml:"y" json:"y"`
	W int `yaml:"w" json:"w"`
	H int `yaml:"h" json:"h"`
}

func (r Rect) Image() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.W, r.Y+r.H)
}

func (r Rect) Area() int {
	return r.W * r.H
}

// Regions maps each direction to its detection rectangle.
type Regions [phase.NumDirections]Rect

// DefaultRegions lays out the four approaches of a frame of the given size:
// vertical strips at the top and bottom, horizontal strips on the sides.
func DefaultRegions(width, height int) Regions {
	frac := func(v int, f float64) int { return int(float64(v) * f) }

	var r Regions
	r[phase.North] = Rect{X: frac(width, 0.35), Y: 0, W: frac(width, 0.1), H: frac(height, 0.2)}
	r[phase.South] = Rect{X: frac(width, 0.35), Y: frac(height, 0.8), W: frac(width, 0.1), H: frac(height, 0.2)}
	r[phase.East] = Rect{X: frac(width, 0.55), Y: frac(height, 0.35), W: frac(width, 0.3), H: frac(height, 0.15)}
	r[phase.West] = Rect{X: frac(width, 0.05), Y: frac(height, 0.55), W: frac(width, 0.3), H: frac(height, 0.15)}
	return r
}

// Validate checks that every rectangle is non-empty and inside the frame.
func (rs Regions) Validate(width, height int) error {
	frame := image.Rect(0, 0, width, height)
	for _, d := range phase.Directions {
		r := rs[d]
		if r.W <= 0 || r.H <= 0 {
			return fmt.Errorf("region %s has empty size %dx%d", d, r.W, r.H)
		}
		if !r.Image().In(frame) {
			return fmt.Errorf("region %s %v lies outside the %dx%d frame", d, r.Image(), width, height)
		}
	}
	return nil
}

// Scale maps regions defined for a reference frame onto a frame of another size.
func (rs Regions) Scale(refWidth, refHeight, width, height int) Regions {
	if refWidth == width && refHeight == height {
		return rs
	}
	sx := float64(width) / float64(refWidth)
	sy := float64(height) / float64(refHeight)

	var out Regions
	for i, r := range rs {
		out[i] = Rect{
			X: int(float64(r.X) * sx),
			Y: int(float64(r.Y) * sy),
			W: int(float64(r.W) * sx),
			H: int(float64(r.H) * sy),
		}
	}
	return out
}
