package detect

import (
	"image"
	"image/color"

	"github.com/samber/lo"

	"github.com/vvaria04/Traffic-light-Management/internal/occupancy"
	"github.com/vvaria04/Traffic-light-Management/internal/phase"
)

// Mask is a binary foreground mask stored row-major.
type Mask struct {
	Width  int
	Height int
	Pix    []bool
}

func NewMask(width, height int) *Mask {
	return &Mask{Width: width, Height: height, Pix: make([]bool, width*height)}
}

// MaskFromImage thresholds an image: pixels whose gray level is above
// threshold are foreground.
func MaskFromImage(img image.Image, threshold uint8) *Mask {
	b := img.Bounds()
	m := NewMask(b.Dx(), b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			g := color.GrayModel.Convert(img.At(x, y)).(color.Gray)
			if g.Y > threshold {
				m.Pix[(y-b.Min.Y)*m.Width+(x-b.Min.X)] = true
			}
		}
	}
	return m
}

func (m *Mask) At(x, y int) bool {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return false
	}
	return m.Pix[y*m.Width+x]
}

func (m *Mask) Set(x, y int, v bool) {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return
	}
	m.Pix[y*m.Width+x] = v
}

// Fill sets every pixel of r.
func (m *Mask) Fill(r image.Rectangle) {
	r = r.Intersect(image.Rect(0, 0, m.Width, m.Height))
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			m.Pix[y*m.Width+x] = true
		}
	}
}

type DetectorConfig struct {
	// Threshold is the gray level above which a mask pixel is foreground.
	Threshold uint8
	// MinArea drops blobs of MinArea pixels or fewer.
	MinArea int
	// MinAspect and MaxAspect bound the width/height ratio of a vehicle blob.
	MinAspect float64
	MaxAspect float64
}

func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		Threshold: 127,
		MinArea:   400,
		MinAspect: 0.25,
		MaxAspect: 4.0,
	}
}

// Blob is a 4-connected foreground component.
type Blob struct {
	Bounds image.Rectangle
	Area   int
}

func (b Blob) Aspect() float64 {
	return float64(b.Bounds.Dx()) / float64(b.Bounds.Dy())
}

// MaskDetector counts vehicle-shaped blobs inside each direction's region.
type MaskDetector struct {
	config  DetectorConfig
	regions Regions
}

func NewMaskDetector(config DetectorConfig, regions Regions) *MaskDetector {
	return &MaskDetector{config: config, regions: regions}
}

func (d *MaskDetector) Regions() Regions {
	return d.regions
}

// Detect returns a reading for every direction.
func (d *MaskDetector) Detect(m *Mask) map[phase.Direction]occupancy.Reading {
	out := make(map[phase.Direction]occupancy.Reading, phase.NumDirections)
	for _, dir := range phase.Directions {
		roi := d.regions[dir].Image().Intersect(image.Rect(0, 0, m.Width, m.Height))
		vehicles := lo.Filter(Components(m, roi), func(b Blob, _ int) bool {
			return d.isVehicle(b)
		})
		out[dir] = occupancy.Reading{
			Count:     len(vehicles),
			Intensity: foregroundFraction(m, roi),
		}
	}
	return out
}

func (d *MaskDetector) isVehicle(b Blob) bool {
	if b.Area <= d.config.MinArea {
		return false
	}
	aspect := b.Aspect()
	return aspect >= d.config.MinAspect && aspect <= d.config.MaxAspect
}

// Components labels the 4-connected foreground components of m inside roi.
// Components touching the roi border are cut at the border.
func Components(m *Mask, roi image.Rectangle) []Blob {
	roi = roi.Intersect(image.Rect(0, 0, m.Width, m.Height))
	if roi.Empty() {
		return nil
	}

	w := roi.Dx()
	seen := make([]bool, w*roi.Dy())
	idx := func(p image.Point) int { return (p.Y-roi.Min.Y)*w + (p.X - roi.Min.X) }

	var blobs []Blob
	var stack []image.Point
	for y := roi.Min.Y; y < roi.Max.Y; y++ {
		for x := roi.Min.X; x < roi.Max.X; x++ {
			start := image.Pt(x, y)
			if seen[idx(start)] || !m.At(x, y) {
				continue
			}

			blob := Blob{Bounds: image.Rectangle{Min: start, Max: start.Add(image.Pt(1, 1))}}
			seen[idx(start)] = true
			stack = append(stack[:0], start)
			for len(stack) > 0 {
				p := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				blob.Area++
				blob.Bounds = blob.Bounds.Union(image.Rectangle{Min: p, Max: p.Add(image.Pt(1, 1))})

				for _, n := range [4]image.Point{image.Pt(p.X+1, p.Y), image.Pt(p.X-1, p.Y), image.Pt(p.X, p.Y+1), image.Pt(p.X, p.Y-1)} {
					if !n.In(roi) || seen[idx(n)] || !m.At(n.X, n.Y) {
						continue
					}
					seen[idx(n)] = true
					stack = append(stack, n)
				}
			}
			blobs = append(blobs, blob)
		}
	}
	return blobs
}

func foregroundFraction(m *Mask, roi image.Rectangle) float64 {
	if roi.Empty() {
		return 0
	}
	on := 0
	for y := roi.Min.Y; y < roi.Max.Y; y++ {
		for x := roi.Min.X; x < roi.Max.X; x++ {
			if m.Pix[y*m.Width+x] {
				on++
			}
		}
	}
	return float64(on) / float64(roi.Dx()*roi.Dy())
}
