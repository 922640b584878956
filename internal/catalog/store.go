package catalog

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/orbitview/orbitview/internal/ephem"
)

// DB is the sqlite-backed local cache of catalog listings. It lets the
// viewer come up with a populated object list while the trajectory service
// is unreachable, and keeps an audit log of catalog fetches.
type DB struct {
	*sql.DB
}

// NewDB opens (or creates) the cache database at path.
func NewDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS comets (
			designation TEXT PRIMARY KEY,
			name TEXT,
			orbit_type TEXT,
			periodic_number INTEGER,
			has_elements INTEGER,
			semi_major_axis DOUBLE,
			eccentricity DOUBLE,
			inclination DOUBLE,
			ascending_node DOUBLE,
			arg_perihelion DOUBLE,
			mean_anomaly DOUBLE,
			epoch DOUBLE,
			mean_motion DOUBLE,
			absolute_magnitude DOUBLE,
			slope_parameter DOUBLE,
			updated TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS fetch_log (
			request_id TEXT PRIMARY KEY,
			endpoint TEXT,
			object_count INTEGER,
			duration_ms INTEGER,
			error TEXT,
			timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return nil, err
	}

	return &DB{db}, nil
}

// SaveComets upserts a catalog listing into the cache.
func (db *DB) SaveComets(comets []Comet) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO comets (
			designation, name, orbit_type, periodic_number, has_elements,
			semi_major_axis, eccentricity, inclination, ascending_node,
			arg_perihelion, mean_anomaly, epoch, mean_motion,
			absolute_magnitude, slope_parameter
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, c := range comets {
		var el ephem.OrbitalElements
		hasElements := 0
		if c.Elements != nil {
			el = *c.Elements
			hasElements = 1
		}
		_, err = stmt.Exec(
			c.Designation, c.Name, c.OrbitType, c.PeriodicNumber, hasElements,
			el.SemiMajorAxis, el.Eccentricity, el.Inclination, el.AscendingNode,
			el.ArgPerihelion, el.MeanAnomaly, el.Epoch, el.MeanMotion,
			c.AbsoluteMagnitude, c.SlopeParameter,
		)
		if err != nil {
			return fmt.Errorf("save comet %s: %w", c.Designation, err)
		}
	}
	return tx.Commit()
}

// LoadCatalog reads every cached comet, ordered by designation.
func (db *DB) LoadCatalog() (*Catalog, error) {
	rows, err := db.Query(`
		SELECT designation, name, orbit_type, periodic_number, has_elements,
			semi_major_axis, eccentricity, inclination, ascending_node,
			arg_perihelion, mean_anomaly, epoch, mean_motion,
			absolute_magnitude, slope_parameter
		FROM comets ORDER BY designation`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cat := &Catalog{}
	for rows.Next() {
		var c Comet
		var el ephem.OrbitalElements
		var hasElements int
		err := rows.Scan(
			&c.Designation, &c.Name, &c.OrbitType, &c.PeriodicNumber, &hasElements,
			&el.SemiMajorAxis, &el.Eccentricity, &el.Inclination, &el.AscendingNode,
			&el.ArgPerihelion, &el.MeanAnomaly, &el.Epoch, &el.MeanMotion,
			&c.AbsoluteMagnitude, &c.SlopeParameter,
		)
		if err != nil {
			return nil, err
		}
		if hasElements == 1 {
			c.Elements = &el
		}
		cat.Comets = append(cat.Comets, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return cat, nil
}

// CountComets returns the number of cached objects.
func (db *DB) CountComets() (int, error) {
	var n int
	err := db.QueryRow("SELECT COUNT(*) FROM comets").Scan(&n)
	return n, err
}

// FetchRecord is one row of the catalog fetch audit log.
type FetchRecord struct {
	RequestID   string
	Endpoint    string
	ObjectCount int
	Duration    time.Duration
	Error       string
}

// RecordFetch logs one catalog fetch attempt and returns its request id.
func (db *DB) RecordFetch(endpoint string, objectCount int, duration time.Duration, fetchErr error) (string, error) {
	requestID := uuid.NewString()
	errText := ""
	if fetchErr != nil {
		errText = fetchErr.Error()
	}
	_, err := db.Exec(
		"INSERT INTO fetch_log (request_id, endpoint, object_count, duration_ms, error) VALUES (?, ?, ?, ?, ?)",
		requestID, endpoint, objectCount, duration.Milliseconds(), errText,
	)
	if err != nil {
		return "", err
	}
	return requestID, nil
}

// RecentFetches returns the most recent fetch log entries, newest first.
func (db *DB) RecentFetches(limit int) ([]FetchRecord, error) {
	rows, err := db.Query(`
		SELECT request_id, endpoint, object_count, duration_ms, error
		FROM fetch_log ORDER BY timestamp DESC, request_id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []FetchRecord
	for rows.Next() {
		var r FetchRecord
		var durationMS int64
		if err := rows.Scan(&r.RequestID, &r.Endpoint, &r.ObjectCount, &durationMS, &r.Error); err != nil {
			return nil, err
		}
		r.Duration = time.Duration(durationMS) * time.Millisecond
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}
