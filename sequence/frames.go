package sequence

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/tiff"

	"gocv.io/x/gocv"

	"bacmotion/logging"
)

var frameExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
}

// DimensionMismatchError reports a frame or mask whose size differs
// from the first image of its sequence. Loading stops on the first one.
type DimensionMismatchError struct {
	Path          string
	Index         int
	Width, Height int
	WantW, WantH  int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("%s (index %d): dimensions %dx%d do not match sequence %dx%d",
		e.Path, e.Index, e.Width, e.Height, e.WantW, e.WantH)
}

// FrameSource provides the ordered base images of a sequence as 8-bit
// BGR Mats. The caller owns returned Mats and must Close them.
type FrameSource interface {
	Count() int
	Frame(i int) (gocv.Mat, error)
	Bounds() (width, height int)
}

// DirFrames reads a directory of numbered frame images in natural
// order. The first frame fixes the sequence dimensions; every later
// frame must match.
type DirFrames struct {
	dir    string
	paths  []string
	width  int
	height int
}

// OpenFrames lists the supported image files under dir, sorts them
// naturally and probes the first frame for the sequence dimensions.
func OpenFrames(dir string) (*DirFrames, error) {
	paths, err := listImages(dir)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no frame images found in %s", dir)
	}

	s := &DirFrames{dir: dir, paths: paths}
	first, err := s.Frame(0)
	if err != nil {
		return nil, fmt.Errorf("failed to probe first frame: %v", err)
	}
	defer first.Close()
	s.width = first.Cols()
	s.height = first.Rows()

	logging.Info("Opened frame sequence %s: %d frames, %dx%d", dir, len(paths), s.width, s.height)
	return s, nil
}

func (s *DirFrames) Count() int { return len(s.paths) }

func (s *DirFrames) Bounds() (int, int) { return s.width, s.height }

func (s *DirFrames) Path(i int) string { return s.paths[i] }

// Frame decodes frame i to an 8-bit BGR Mat. 16-bit grayscale TIFFs
// are decoded with x/image/tiff and min-max normalized to 8 bits.
func (s *DirFrames) Frame(i int) (gocv.Mat, error) {
	if i < 0 || i >= len(s.paths) {
		return gocv.NewMat(), fmt.Errorf("frame index %d out of range [0, %d)", i, len(s.paths))
	}
	path := s.paths[i]

	img := gocv.IMRead(path, gocv.IMReadColor)
	if img.Empty() {
		// OpenCV rejects some TIFF variants; fall back to the Go decoder.
		mat, err := loadTiff16(path)
		if err != nil {
			return gocv.NewMat(), fmt.Errorf("failed to load frame %s: %v", path, err)
		}
		img = mat
	}

	if s.width > 0 && (img.Cols() != s.width || img.Rows() != s.height) {
		w, h := img.Cols(), img.Rows()
		img.Close()
		return gocv.NewMat(), &DimensionMismatchError{
			Path: path, Index: i, Width: w, Height: h, WantW: s.width, WantH: s.height,
		}
	}
	return img, nil
}

// loadTiff16 decodes a TIFF with the Go decoder and converts it to an
// 8-bit BGR Mat, normalizing 16-bit grayscale by its min-max range.
func loadTiff16(path string) (gocv.Mat, error) {
	f, err := os.Open(path)
	if err != nil {
		return gocv.NewMat(), err
	}
	defer f.Close()

	decoded, err := tiff.Decode(f)
	if err != nil {
		return gocv.NewMat(), err
	}

	if g16, ok := decoded.(*image.Gray16); ok {
		return gray16ToBGR(g16), nil
	}
	return imageToBGR(decoded), nil
}

func gray16ToBGR(img *image.Gray16) gocv.Mat {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	lo, hi := uint16(0xffff), uint16(0)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := img.Gray16At(b.Min.X+x, b.Min.Y+y).Y
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
	}
	span := int(hi) - int(lo)
	if span == 0 {
		span = 1
	}

	mat := gocv.NewMatWithSize(h, w, gocv.MatTypeCV8UC3)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := img.Gray16At(b.Min.X+x, b.Min.Y+y).Y
			u := uint8((int(v) - int(lo)) * 255 / span)
			mat.SetUCharAt3(y, x, 0, u)
			mat.SetUCharAt3(y, x, 1, u)
			mat.SetUCharAt3(y, x, 2, u)
		}
	}
	return mat
}

func imageToBGR(img image.Image) gocv.Mat {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	mat := gocv.NewMatWithSize(h, w, gocv.MatTypeCV8UC3)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			mat.SetUCharAt3(y, x, 0, uint8(bl>>8))
			mat.SetUCharAt3(y, x, 1, uint8(g>>8))
			mat.SetUCharAt3(y, x, 2, uint8(r>>8))
		}
	}
	return mat
}

func listImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %v", dir, err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if frameExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			paths = append(paths, e.Name())
		}
	}
	sortNatural(paths)
	for i, name := range paths {
		paths[i] = filepath.Join(dir, name)
	}
	return paths, nil
}
