package detect

import (
	"context"
	"fmt"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"k8s.io/klog/v2"
)

type MaskDirOptions struct {
	Detector DetectorConfig
	// Regions in reference-frame coordinates; zero value means DefaultRegions
	// of the first mask.
	Regions     Regions
	RefWidth    int
	RefHeight   int
	Start       time.Time
	FramePeriod time.Duration
}

// MaskDirSource replays pre-segmented foreground masks stored as PNG files,
// one file per cycle in file-name order.
type MaskDirSource struct {
	opts     MaskDirOptions
	files    []string
	next     int
	detector *MaskDetector
}

func NewMaskDirSource(dir string, opts MaskDirOptions) (*MaskDirSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read mask directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".png") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no PNG masks found in %s", dir)
	}
	sort.Strings(files)

	if opts.FramePeriod <= 0 {
		opts.FramePeriod = time.Second
	}
	if opts.Start.IsZero() {
		opts.Start = time.Now()
	}

	return &MaskDirSource{opts: opts, files: files}, nil
}

func (s *MaskDirSource) Len() int {
	return len(s.files)
}

func (s *MaskDirSource) Next(ctx context.Context) (Sample, error) {
	if err := ctx.Err(); err != nil {
		return Sample{}, err
	}
	if s.next >= len(s.files) {
		return Sample{}, io.EOF
	}
	path := s.files[s.next]
	ts := s.opts.Start.Add(time.Duration(s.next) * s.opts.FramePeriod)
	s.next++

	mask, err := s.load(path)
	if err != nil {
		return Sample{}, err
	}

	if s.detector == nil {
		regions, err := s.regionsFor(mask)
		if err != nil {
			return Sample{}, err
		}
		s.detector = NewMaskDetector(s.opts.Detector, regions)
	}

	readings := s.detector.Detect(mask)
	klog.V(4).InfoS("Processed mask", "file", filepath.Base(path), "counts", Sample{Readings: readings}.Counts())
	return Sample{Timestamp: ts, Readings: readings}, nil
}

func (s *MaskDirSource) Close() error {
	return nil
}

func (s *MaskDirSource) load(path string) (*Mask, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open mask: %w", err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode mask %s: %w", filepath.Base(path), err)
	}
	return MaskFromImage(img, s.opts.Detector.Threshold), nil
}

func (s *MaskDirSource) regionsFor(m *Mask) (Regions, error) {
	regions := s.opts.Regions
	if regions == (Regions{}) {
		regions = DefaultRegions(m.Width, m.Height)
	} else if s.opts.RefWidth > 0 && s.opts.RefHeight > 0 {
		regions = regions.Scale(s.opts.RefWidth, s.opts.RefHeight, m.Width, m.Height)
	}
	if err := regions.Validate(m.Width, m.Height); err != nil {
		return Regions{}, fmt.Errorf("invalid regions for %dx%d masks: %w", m.Width, m.Height, err)
	}
	return regions, nil
}
