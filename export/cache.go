package export

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"gocv.io/x/gocv"

	"bacmotion/logging"
)

// RenderCache stores encoded frames keyed by config fingerprint and
// frame index, so re-exporting with an unchanged config skips the
// compositor entirely.
type RenderCache struct {
	db *sql.DB
}

// OpenCache opens or creates the cache database.
func OpenCache(path string) (*RenderCache, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open render cache: %v", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS renders (
		fingerprint TEXT NOT NULL,
		frame INTEGER NOT NULL,
		png BLOB NOT NULL,
		PRIMARY KEY (fingerprint, frame)
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize render cache: %v", err)
	}

	return &RenderCache{db: db}, nil
}

// Get returns the cached frame, or an empty Mat and false on a miss.
// Decode failures count as misses.
func (c *RenderCache) Get(fingerprint string, frame int) (gocv.Mat, bool) {
	var blob []byte
	err := c.db.QueryRow(
		`SELECT png FROM renders WHERE fingerprint = ? AND frame = ?`,
		fingerprint, frame,
	).Scan(&blob)
	if err != nil {
		return gocv.Mat{}, false
	}

	img, err := gocv.IMDecode(blob, gocv.IMReadColor)
	if err != nil || img.Empty() {
		img.Close()
		logging.Warning("Render cache entry for frame %d is corrupt, re-rendering", frame)
		return gocv.Mat{}, false
	}
	return img, true
}

// Put stores a rendered frame. Cache failures are logged, never fatal.
func (c *RenderCache) Put(fingerprint string, frame int, img gocv.Mat) {
	buf, err := gocv.IMEncode(".png", img)
	if err != nil {
		logging.Warning("Failed to encode frame %d for cache: %v", frame, err)
		return
	}
	defer buf.Close()

	_, err = c.db.Exec(
		`INSERT OR REPLACE INTO renders (fingerprint, frame, png) VALUES (?, ?, ?)`,
		fingerprint, frame, buf.GetBytes(),
	)
	if err != nil {
		logging.Warning("Failed to cache frame %d: %v", frame, err)
	}
}

// Prune drops all entries for fingerprints other than the given one.
func (c *RenderCache) Prune(keep string) {
	if _, err := c.db.Exec(`DELETE FROM renders WHERE fingerprint != ?`, keep); err != nil {
		logging.Warning("Failed to prune render cache: %v", err)
	}
}

func (c *RenderCache) Close() error {
	return c.db.Close()
}
