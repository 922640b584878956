// Package ephem places continuously-orbiting bodies from classical orbital
// elements. It covers the elliptical regime only; comet trajectories come
// pre-computed from the trajectory service and never pass through here.
package ephem

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// DaysPerYear is the Julian year length used by Kepler's third law when
// expressing periods in days for semi-major axes in AU.
const DaysPerYear = 365.25

// OrbitalElements are classical Keplerian elements for a single body.
// Angles in radians, distances in AU, epoch as a Julian date. Values are
// immutable once constructed.
type OrbitalElements struct {
	// SemiMajorAxis in AU; all angles in radians.
	SemiMajorAxis float64 `json:"semi_major_axis"`
	Eccentricity  float64 `json:"eccentricity"`
	Inclination   float64 `json:"inclination"`
	// AscendingNode is the longitude of the ascending node.
	AscendingNode float64 `json:"ascending_node"`
	// ArgPerihelion is the argument of perihelion.
	ArgPerihelion float64 `json:"arg_perihelion"`
	// MeanAnomaly at Epoch.
	MeanAnomaly float64 `json:"mean_anomaly"`
	// Epoch as a Julian date.
	Epoch float64 `json:"epoch"`
	// MeanMotion in rad/day; zero means derive it from the period.
	MeanMotion float64 `json:"mean_motion,omitempty"`
}

// FromDegrees builds OrbitalElements with the angular fields given in
// degrees, matching how catalog listings carry them.
func FromDegrees(a, e, incDeg, nodeDeg, argDeg, meanDeg, epoch float64) OrbitalElements {
	const degToRad = math.Pi / 180
	return OrbitalElements{
		SemiMajorAxis: a,
		Eccentricity:  e,
		Inclination:   incDeg * degToRad,
		AscendingNode: nodeDeg * degToRad,
		ArgPerihelion: argDeg * degToRad,
		MeanAnomaly:   meanDeg * degToRad,
		Epoch:         epoch,
	}
}

// PeriodDays returns the orbital period in days via Kepler's third law.
// Returns +Inf for non-elliptical eccentricities.
func (el OrbitalElements) PeriodDays() float64 {
	if el.Eccentricity >= 1 {
		return math.Inf(1)
	}
	return DaysPerYear * math.Pow(el.SemiMajorAxis, 1.5)
}

// PerihelionDistance returns q = a(1-e) in AU.
func (el OrbitalElements) PerihelionDistance() float64 {
	return el.SemiMajorAxis * (1 - el.Eccentricity)
}

// AphelionDistance returns Q = a(1+e) in AU, or +Inf for e >= 1.
func (el OrbitalElements) AphelionDistance() float64 {
	if el.Eccentricity >= 1 {
		return math.Inf(1)
	}
	return el.SemiMajorAxis * (1 + el.Eccentricity)
}

// meanMotion returns the configured mean motion or derives it from the
// period when the catalog did not supply one.
func (el OrbitalElements) meanMotion() float64 {
	if el.MeanMotion != 0 {
		return el.MeanMotion
	}
	return 2 * math.Pi / el.PeriodDays()
}

// kepler iterations are fixed; see solveKepler.
const keplerIterations = 10

// solveKepler solves E - e*sin(E) = M for the eccentric anomaly E with a
// fixed number of Newton-Raphson iterations and no convergence check.
// Known limitation: accuracy for e approaching 1 is unverified; callers
// must not feed near-parabolic elements and expect tight residuals.
func solveKepler(meanAnomaly, e float64) float64 {
	E := meanAnomaly
	if e >= 0.8 {
		E = math.Pi
	}
	for i := 0; i < keplerIterations; i++ {
		f := E - e*math.Sin(E) - meanAnomaly
		fPrime := 1 - e*math.Cos(E)
		E -= f / fPrime
	}
	return E
}

// PositionAt returns the heliocentric ecliptic position (AU) of the body at
// the given Julian date. Pure and deterministic: same elements and time
// always produce the same vector.
func (el OrbitalElements) PositionAt(jd float64) r3.Vec {
	e := el.Eccentricity

	M := el.MeanAnomaly + el.meanMotion()*(jd-el.Epoch)
	E := solveKepler(M, e)

	// True anomaly from the eccentric anomaly, quadrant-safe.
	nu := 2 * math.Atan2(
		math.Sqrt(1+e)*math.Sin(E/2),
		math.Sqrt(1-e)*math.Cos(E/2),
	)
	r := el.SemiMajorAxis * (1 - e*math.Cos(E))

	return el.perifocalToEcliptic(r*math.Cos(nu), r*math.Sin(nu))
}

// EllipseOutline samples the static orbit shape with n points of uniform
// true anomaly. This is the cheap path for drawing the orbit curve: no
// Kepler solve, no time dependence, and it must never be used to place a
// body at a specific instant.
func (el OrbitalElements) EllipseOutline(n int) []r3.Vec {
	if n < 2 {
		n = 2
	}
	a := el.SemiMajorAxis
	e := el.Eccentricity
	semiLatus := a * (1 - e*e)

	points := make([]r3.Vec, n)
	for i := 0; i < n; i++ {
		nu := 2 * math.Pi * float64(i) / float64(n-1)
		r := semiLatus / (1 + e*math.Cos(nu))
		points[i] = el.perifocalToEcliptic(r*math.Cos(nu), r*math.Sin(nu))
	}
	return points
}

// perifocalToEcliptic rotates orbital-plane coordinates through the
// argument of perihelion, inclination, and ascending-node longitude.
func (el OrbitalElements) perifocalToEcliptic(xOrb, yOrb float64) r3.Vec {
	cosNode := math.Cos(el.AscendingNode)
	sinNode := math.Sin(el.AscendingNode)
	cosInc := math.Cos(el.Inclination)
	sinInc := math.Sin(el.Inclination)
	cosArg := math.Cos(el.ArgPerihelion)
	sinArg := math.Sin(el.ArgPerihelion)

	r11 := cosNode*cosArg - sinNode*sinArg*cosInc
	r12 := -cosNode*sinArg - sinNode*cosArg*cosInc
	r21 := sinNode*cosArg + cosNode*sinArg*cosInc
	r22 := -sinNode*sinArg + cosNode*cosArg*cosInc
	r31 := sinArg * sinInc
	r32 := cosArg * sinInc

	return r3.Vec{
		X: r11*xOrb + r12*yOrb,
		Y: r21*xOrb + r22*yOrb,
		Z: r31*xOrb + r32*yOrb,
	}
}
