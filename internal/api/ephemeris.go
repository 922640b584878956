package api

import (
	"fmt"
	"net/http"
	"strconv"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/orbitview/orbitview/internal/httputil"
)

// defaultOutlinePoints is the orbit outline resolution when the caller
// does not ask for a specific one.
const defaultOutlinePoints = 120

type vecPayload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func toVecPayload(v r3.Vec) vecPayload {
	return vecPayload{X: v.X, Y: v.Y, Z: v.Z}
}

// showEphemeris computes a body's position at a Julian date from its
// cached orbital elements, locally, without a round trip to the
// trajectory service. Also returns the static orbit outline for drawing
// the full curve.
func (s *Server) showEphemeris(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	designation := r.URL.Query().Get("designation")
	if designation == "" {
		httputil.BadRequest(w, "missing 'designation' parameter")
		return
	}

	cat, ok := s.loadCatalog(w)
	if !ok {
		return
	}
	comet, found := cat.Get(designation)
	if !found {
		httputil.NotFound(w, fmt.Sprintf("object %s not in catalog", designation))
		return
	}
	if comet.Elements == nil {
		httputil.NotFound(w, fmt.Sprintf("no orbital elements for %s", designation))
		return
	}
	el := *comet.Elements

	// The solver covers the elliptical regime only; a parabolic or
	// hyperbolic orbit has no period and the Kepler solve degenerates.
	if el.Eccentricity >= 1 {
		httputil.WriteJSONError(w, http.StatusUnprocessableEntity,
			fmt.Sprintf("ephemeris not supported for non-elliptical orbit of %s (e=%.3f)", designation, el.Eccentricity))
		return
	}

	jd := el.Epoch
	if jdParam := r.URL.Query().Get("jd"); jdParam != "" {
		parsed, err := strconv.ParseFloat(jdParam, 64)
		if err != nil {
			httputil.BadRequest(w, "invalid 'jd' parameter")
			return
		}
		jd = parsed
	}

	outlinePoints := defaultOutlinePoints
	if pointsParam := r.URL.Query().Get("outline_points"); pointsParam != "" {
		parsed, err := strconv.Atoi(pointsParam)
		if err != nil || parsed < 2 || parsed > 10000 {
			httputil.BadRequest(w, "invalid 'outline_points' parameter")
			return
		}
		outlinePoints = parsed
	}

	position := el.PositionAt(jd)
	rawOutline := el.EllipseOutline(outlinePoints)
	outline := make([]vecPayload, len(rawOutline))
	for i, v := range rawOutline {
		outline[i] = toVecPayload(v)
	}

	httputil.WriteJSONOK(w, map[string]interface{}{
		"designation":       designation,
		"name":              comet.Name,
		"jd":                jd,
		"position":          toVecPayload(position),
		"distance_from_sun": r3.Norm(position),
		"period_days":       el.PeriodDays(),
		"perihelion_au":     el.PerihelionDistance(),
		"aphelion_au":       el.AphelionDistance(),
		"orbit_outline":     outline,
	})
}
