package sequence

import (
	"fmt"
	"image"
	_ "image/png"
	"os"
	"sort"
	"sync"

	"golang.org/x/image/tiff"

	"bacmotion/logging"
)

// LabelMap is one frame's segmentation as per-pixel object labels.
// Label 0 is background.
type LabelMap struct {
	W, H int
	Pix  []uint16
}

func (m *LabelMap) At(x, y int) uint16 {
	if x < 0 || y < 0 || x >= m.W || y >= m.H {
		return 0
	}
	return m.Pix[y*m.W+x]
}

// IDs returns the distinct nonzero labels in ascending order.
func (m *LabelMap) IDs() []int {
	seen := map[uint16]bool{}
	for _, v := range m.Pix {
		if v != 0 {
			seen[v] = true
		}
	}
	ids := make([]int, 0, len(seen))
	for v := range seen {
		ids = append(ids, int(v))
	}
	sort.Ints(ids)
	return ids
}

// MaskSource provides per-frame label maps aligned with a FrameSource.
type MaskSource interface {
	Count() int
	Labels(i int) (*LabelMap, error)
}

// DirMasks reads a directory of label images (8 or 16 bit grayscale,
// typically TIFF) in natural order. A small cache keeps the most
// recently decoded map, which covers the sequential access pattern of
// rendering and the repeated lookups of trajectory validation.
type DirMasks struct {
	paths  []string
	width  int
	height int

	mu       sync.Mutex
	cacheIdx int
	cacheMap *LabelMap
}

// OpenMasks lists the mask images under dir and validates the first
// against the expected frame dimensions (pass 0,0 to skip).
func OpenMasks(dir string, wantW, wantH int) (*DirMasks, error) {
	paths, err := listImages(dir)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no mask images found in %s", dir)
	}

	s := &DirMasks{paths: paths, width: wantW, height: wantH, cacheIdx: -1}
	first, err := s.Labels(0)
	if err != nil {
		return nil, err
	}
	if s.width == 0 {
		s.width, s.height = first.W, first.H
	}

	logging.Info("Opened mask sequence %s: %d masks, %dx%d", dir, len(paths), s.width, s.height)
	return s, nil
}

func (s *DirMasks) Count() int { return len(s.paths) }

func (s *DirMasks) Bounds() (int, int) { return s.width, s.height }

func (s *DirMasks) Labels(i int) (*LabelMap, error) {
	if i < 0 || i >= len(s.paths) {
		return nil, fmt.Errorf("mask index %d out of range [0, %d)", i, len(s.paths))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cacheIdx == i {
		return s.cacheMap, nil
	}

	m, err := decodeLabels(s.paths[i])
	if err != nil {
		return nil, fmt.Errorf("failed to load mask %s: %v", s.paths[i], err)
	}
	if s.width > 0 && (m.W != s.width || m.H != s.height) {
		return nil, &DimensionMismatchError{
			Path: s.paths[i], Index: i, Width: m.W, Height: m.H, WantW: s.width, WantH: s.height,
		}
	}

	s.cacheIdx, s.cacheMap = i, m
	return m, nil
}

// LabelAt satisfies the trajectory loader's mask lookup.
func (s *DirMasks) LabelAt(frame int, x, y int) (int, error) {
	m, err := s.Labels(frame)
	if err != nil {
		return 0, err
	}
	return int(m.At(x, y)), nil
}

func decodeLabels(path string) (*LabelMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	// image.Decode covers PNG; TIFF needs the explicit decoder for
	// Gray16 support.
	img, _, err := image.Decode(f)
	if err != nil {
		if _, serr := f.Seek(0, 0); serr != nil {
			return nil, err
		}
		img, err = tiff.Decode(f)
		if err != nil {
			return nil, err
		}
	}

	b := img.Bounds()
	m := &LabelMap{W: b.Dx(), H: b.Dy(), Pix: make([]uint16, b.Dx()*b.Dy())}

	switch src := img.(type) {
	case *image.Gray16:
		for y := 0; y < m.H; y++ {
			for x := 0; x < m.W; x++ {
				m.Pix[y*m.W+x] = src.Gray16At(b.Min.X+x, b.Min.Y+y).Y
			}
		}
	case *image.Gray:
		for y := 0; y < m.H; y++ {
			for x := 0; x < m.W; x++ {
				m.Pix[y*m.W+x] = uint16(src.GrayAt(b.Min.X+x, b.Min.Y+y).Y)
			}
		}
	default:
		// Color-coded label images: collapse to the red channel.
		for y := 0; y < m.H; y++ {
			for x := 0; x < m.W; x++ {
				r, _, _, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
				m.Pix[y*m.W+x] = uint16(r >> 8)
			}
		}
	}
	return m, nil
}
