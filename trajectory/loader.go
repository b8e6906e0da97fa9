package trajectory

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"bacmotion/logging"
)

// LabelLookup resolves the mask label at a source pixel, used to check
// that loaded trajectory points sit on segmented objects.
type LabelLookup interface {
	LabelAt(frame int, x, y int) (int, error)
}

// LoadCSV reads trajectory data from a CSV file with the columns
// id,frame,x,y and optionally major,minor,angle for shape descriptors.
// Positions are source pixels and are converted to micrometers with
// umPerPixel; frame indices become seconds through fps. Object IDs are
// reassigned in order of first appearance so colors stay stable
// regardless of the IDs used in the file.
func LoadCSV(path string, fps, umPerPixel float64) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trajectory file: %v", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse trajectory file: %v", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("trajectory file %s is empty", path)
	}

	cols, err := resolveColumns(records[0])
	if err != nil {
		return nil, err
	}

	type rawPoint struct {
		frame int
		s     Sample
	}
	byOriginal := map[int][]rawPoint{}

	frameInterval := 1.0
	if fps > 0 {
		frameInterval = 1.0 / fps
	}

	for lineNo, rec := range records[1:] {
		if len(rec) == 0 || (len(rec) == 1 && strings.TrimSpace(rec[0]) == "") {
			continue
		}
		if len(rec) <= cols.y {
			return nil, fmt.Errorf("line %d: expected at least %d columns, got %d", lineNo+2, cols.y+1, len(rec))
		}

		id, err := strconv.Atoi(strings.TrimSpace(rec[cols.id]))
		if err != nil {
			return nil, fmt.Errorf("line %d: bad object id %q", lineNo+2, rec[cols.id])
		}
		frame, err := strconv.Atoi(strings.TrimSpace(rec[cols.frame]))
		if err != nil {
			return nil, fmt.Errorf("line %d: bad frame index %q", lineNo+2, rec[cols.frame])
		}
		x, err := strconv.ParseFloat(strings.TrimSpace(rec[cols.x]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad x value %q", lineNo+2, rec[cols.x])
		}
		y, err := strconv.ParseFloat(strings.TrimSpace(rec[cols.y]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad y value %q", lineNo+2, rec[cols.y])
		}

		s := Sample{
			Time: float64(frame) * frameInterval,
			X:    x * umPerPixel,
			Y:    y * umPerPixel,
		}

		if cols.major >= 0 && len(rec) > cols.angle {
			major, errA := strconv.ParseFloat(strings.TrimSpace(rec[cols.major]), 64)
			minor, errB := strconv.ParseFloat(strings.TrimSpace(rec[cols.minor]), 64)
			angle, errC := strconv.ParseFloat(strings.TrimSpace(rec[cols.angle]), 64)
			if errA == nil && errB == nil && errC == nil && major > 0 && minor > 0 {
				s.Shape = &ShapeDescriptor{
					MajorHalf: major / 2 * umPerPixel,
					MinorHalf: minor / 2 * umPerPixel,
					AngleDeg:  angle,
				}
			}
		}

		byOriginal[id] = append(byOriginal[id], rawPoint{frame: frame, s: s})
	}

	// Order objects by first appearance, then original ID for stability.
	type firstSeen struct {
		origID int
		frame  int
	}
	order := make([]firstSeen, 0, len(byOriginal))
	for id, pts := range byOriginal {
		min := math.MaxInt32
		for _, p := range pts {
			if p.frame < min {
				min = p.frame
			}
		}
		order = append(order, firstSeen{origID: id, frame: min})
	}
	sort.Slice(order, func(i, j int) bool {
		if order[i].frame != order[j].frame {
			return order[i].frame < order[j].frame
		}
		return order[i].origID < order[j].origID
	})

	ds := NewDataset()
	for newID, fs := range order {
		pts := byOriginal[fs.origID]
		sort.Slice(pts, func(i, j int) bool { return pts[i].frame < pts[j].frame })

		obj := &TrackedObject{ID: newID + 1, OriginalID: fs.origID}
		for _, p := range pts {
			obj.Samples = append(obj.Samples, p.s)
		}
		if err := ds.Add(obj); err != nil {
			return nil, fmt.Errorf("object %d (original %d): %v", newID+1, fs.origID, err)
		}
	}

	logging.Info("Loaded %d object trajectories from %s", len(ds.Objects()), path)
	return ds, nil
}

// ValidateAgainstMasks checks that every trajectory point lands on a
// nonzero mask label. umPerPixel converts stored positions back to
// source pixels; fps converts sample times back to frame indices.
func ValidateAgainstMasks(ds *Dataset, masks LabelLookup, fps, umPerPixel float64) error {
	for _, obj := range ds.Objects() {
		for _, s := range obj.Samples {
			frame := int(s.Time*fps + 0.5)
			px := int(s.X/umPerPixel + 0.5)
			py := int(s.Y/umPerPixel + 0.5)

			label, err := masks.LabelAt(frame, px, py)
			if err != nil {
				return fmt.Errorf("object %d at frame %d: %v", obj.OriginalID, frame, err)
			}
			if label == 0 {
				return fmt.Errorf("object %d at frame %d: no mask at position (%d, %d)",
					obj.OriginalID, frame, px, py)
			}
		}
	}
	logging.Info("Trajectory-mask validation passed")
	return nil
}

type columnIndexes struct {
	id, frame, x, y     int
	major, minor, angle int
}

func resolveColumns(header []string) (columnIndexes, error) {
	cols := columnIndexes{id: -1, frame: -1, x: -1, y: -1, major: -1, minor: -1, angle: -1}
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "id", "object", "object_id", "track_id":
			cols.id = i
		case "frame", "t", "frame_index":
			cols.frame = i
		case "x", "position_x", "centroid_x":
			cols.x = i
		case "y", "position_y", "centroid_y":
			cols.y = i
		case "major", "major_axis":
			cols.major = i
		case "minor", "minor_axis":
			cols.minor = i
		case "angle", "orientation":
			cols.angle = i
		}
	}
	if cols.id < 0 || cols.frame < 0 || cols.x < 0 || cols.y < 0 {
		return cols, fmt.Errorf("trajectory header must name id, frame, x and y columns (got %v)", header)
	}
	if cols.major >= 0 && (cols.minor < 0 || cols.angle < 0) {
		cols.major, cols.minor, cols.angle = -1, -1, -1
	}
	return cols, nil
}
