package trajectory

import "fmt"

// HiddenRecord hides one object before or after a time threshold
// (inclusive on the threshold side).
type HiddenRecord struct {
	ObjectID int     `json:"object_id"`
	Mode     string  `json:"mode"` // "before" or "after"
	Time     float64 `json:"time"`
}

// Description returns a human-readable form of the record.
func (r HiddenRecord) Description() string {
	if r.Mode == "before" {
		return fmt.Sprintf("object %d: hidden at t <= %g s", r.ObjectID, r.Time)
	}
	return fmt.Sprintf("object %d: hidden at t >= %g s", r.ObjectID, r.Time)
}

// Visibility tracks per-object hide windows. At most one record per
// object is kept; a new record replaces the old one.
type Visibility struct {
	records []HiddenRecord
}

// NewVisibility creates a visibility filter with no hidden objects.
func NewVisibility() *Visibility {
	return &Visibility{}
}

// HideBefore hides an object at and before time t.
func (v *Visibility) HideBefore(id int, t float64) {
	v.remove(id)
	v.records = append(v.records, HiddenRecord{ObjectID: id, Mode: "before", Time: t})
}

// HideAfter hides an object at and after time t.
func (v *Visibility) HideAfter(id int, t float64) {
	v.remove(id)
	v.records = append(v.records, HiddenRecord{ObjectID: id, Mode: "after", Time: t})
}

// Unhide removes any record for an object.
func (v *Visibility) Unhide(id int) {
	v.remove(id)
}

// IsVisible reports whether an object may be drawn at time t.
func (v *Visibility) IsVisible(id int, t float64) bool {
	if v == nil {
		return true
	}
	for _, r := range v.records {
		if r.ObjectID != id {
			continue
		}
		if r.Mode == "before" && t <= r.Time {
			return false
		}
		if r.Mode == "after" && t >= r.Time {
			return false
		}
	}
	return true
}

// Records returns a copy of the current records.
func (v *Visibility) Records() []HiddenRecord {
	out := make([]HiddenRecord, len(v.records))
	copy(out, v.records)
	return out
}

func (v *Visibility) remove(id int) {
	kept := v.records[:0]
	for _, r := range v.records {
		if r.ObjectID != id {
			kept = append(kept, r)
		}
	}
	v.records = kept
}
