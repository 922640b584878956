// Package catalog holds the small-body catalog model that feeds the
// selection UI, plus a sqlite-backed local cache of catalog listings.
package catalog

import (
	"strings"

	"github.com/orbitview/orbitview/internal/ephem"
)

// Orbit type codes from the MPC catalog.
const (
	OrbitLongPeriod   = "C"
	OrbitPeriodic     = "P"
	OrbitDefunct      = "D"
	OrbitUncertain    = "X"
	OrbitInterstellar = "I"
	OrbitAsteroidal   = "A"
)

// Comet is one catalog object: identification plus orbital elements.
type Comet struct {
	Designation    string `json:"designation"`
	Name           string `json:"name"`
	OrbitType      string `json:"orbit_type"`
	PeriodicNumber int    `json:"periodic_number,omitempty"`

	// Elements is nil for objects listed without a computed orbit.
	Elements *ephem.OrbitalElements `json:"orbital_elements,omitempty"`

	// Physical properties from the catalog, zero when unknown.
	AbsoluteMagnitude float64 `json:"absolute_magnitude,omitempty"`
	SlopeParameter    float64 `json:"slope_parameter,omitempty"`
}

// IsPeriodic reports whether this is a numbered periodic comet.
func (c Comet) IsPeriodic() bool {
	return c.OrbitType == OrbitPeriodic && c.PeriodicNumber > 0
}

// IsHyperbolic reports whether the orbit is hyperbolic.
func (c Comet) IsHyperbolic() bool {
	return c.Elements != nil && c.Elements.Eccentricity > 1
}

// FullName formats the designation with the name when both are known,
// e.g. "1P (Halley)".
func (c Comet) FullName() string {
	if c.Name != "" && c.Name != c.Designation {
		return c.Designation + " (" + c.Name + ")"
	}
	return c.Designation
}

// Catalog is an in-memory comet collection with search and filtering.
type Catalog struct {
	Comets []Comet
}

// Len returns the number of objects.
func (cat *Catalog) Len() int { return len(cat.Comets) }

// Get returns the comet with the given designation.
func (cat *Catalog) Get(designation string) (Comet, bool) {
	for _, c := range cat.Comets {
		if c.Designation == designation {
			return c, true
		}
	}
	return Comet{}, false
}

// FilterOrbitType returns objects matching the given orbit type code. An
// empty code returns everything.
func (cat *Catalog) FilterOrbitType(orbitType string) []Comet {
	if orbitType == "" {
		return cat.Comets
	}
	var out []Comet
	for _, c := range cat.Comets {
		if c.OrbitType == orbitType {
			out = append(out, c)
		}
	}
	return out
}

// FilterPeriodic returns only numbered periodic comets.
func (cat *Catalog) FilterPeriodic() []Comet {
	var out []Comet
	for _, c := range cat.Comets {
		if c.IsPeriodic() {
			out = append(out, c)
		}
	}
	return out
}

// FilterHyperbolic returns only hyperbolic objects.
func (cat *Catalog) FilterHyperbolic() []Comet {
	var out []Comet
	for _, c := range cat.Comets {
		if c.IsHyperbolic() {
			out = append(out, c)
		}
	}
	return out
}

// Search matches name or designation, case-insensitive substring.
func (cat *Catalog) Search(query string) []Comet {
	q := strings.ToLower(query)
	var out []Comet
	for _, c := range cat.Comets {
		if strings.Contains(strings.ToLower(c.Name), q) ||
			strings.Contains(strings.ToLower(c.Designation), q) {
			out = append(out, c)
		}
	}
	return out
}

// Statistics summarizes the catalog for the dashboard endpoint.
type Statistics struct {
	Total      int            `json:"total"`
	WithOrbits int            `json:"with_orbits"`
	Periodic   int            `json:"periodic"`
	Hyperbolic int            `json:"hyperbolic"`
	OrbitTypes map[string]int `json:"orbit_types"`
}

// Stats computes catalog statistics.
func (cat *Catalog) Stats() Statistics {
	stats := Statistics{OrbitTypes: make(map[string]int)}
	for _, c := range cat.Comets {
		stats.Total++
		if c.Elements != nil {
			stats.WithOrbits++
		}
		if c.IsPeriodic() {
			stats.Periodic++
		}
		if c.IsHyperbolic() {
			stats.Hyperbolic++
		}
		stats.OrbitTypes[c.OrbitType]++
	}
	return stats
}
