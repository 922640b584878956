// Package trajectory implements the data pipeline between the remote
// orbital-mechanics service and the rendering layer: the sample store with
// its sliding-window retention, incremental segment auto-loading, coalesced
// multi-object fetching, and the shared animation clock.
package trajectory

import (
	"encoding/json"
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// Method selects the server-side propagation model for a trajectory.
type Method string

const (
	MethodTwoBody Method = "twobody"
	MethodNBody   Method = "nbody"
)

// ParseMethod validates a propagation method string.
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case MethodTwoBody, MethodNBody:
		return Method(s), nil
	default:
		return "", fmt.Errorf("unknown propagation method %q", s)
	}
}

// Key identifies a stored trajectory: one object propagated by one method.
type Key struct {
	Designation string
	Method      Method
}

func (k Key) String() string {
	return k.Designation + "/" + string(k.Method)
}

// Sample is one point of a trajectory time series. Samples are ordered
// strictly ascending by DaysFromEpoch.
type Sample struct {
	TimeJD        float64 // Julian date
	DaysFromEpoch float64 // elapsed days from the trajectory epoch
	Position      r3.Vec  // heliocentric ecliptic, AU
	SunDistance   float64 // AU
}

// samplePayload is the wire shape shared with the trajectory service and
// the rendering layer.
type samplePayload struct {
	Time          float64 `json:"time"`
	DaysFromEpoch float64 `json:"days_from_epoch"`
	Position      struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
		Z float64 `json:"z"`
	} `json:"position"`
	DistanceFromSun float64 `json:"distance_from_sun"`
}

// MarshalJSON encodes the sample in the service wire format.
func (s Sample) MarshalJSON() ([]byte, error) {
	var p samplePayload
	p.Time = s.TimeJD
	p.DaysFromEpoch = s.DaysFromEpoch
	p.Position.X = s.Position.X
	p.Position.Y = s.Position.Y
	p.Position.Z = s.Position.Z
	p.DistanceFromSun = s.SunDistance
	return json.Marshal(p)
}

// UnmarshalJSON decodes the service wire format.
func (s *Sample) UnmarshalJSON(data []byte) error {
	var p samplePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	s.TimeJD = p.Time
	s.DaysFromEpoch = p.DaysFromEpoch
	s.Position = r3.Vec{X: p.Position.X, Y: p.Position.Y, Z: p.Position.Z}
	s.SunDistance = p.DistanceFromSun
	return nil
}

// RequestParams records the days span and point count of the most recent
// request that produced samples for a trajectory.
type RequestParams struct {
	Days   float64
	Points int
}

// Trajectory is an ordered sample series for one key plus the parameters of
// the most recent request. Owned exclusively by the Store; callers must not
// mutate the sample slice.
type Trajectory struct {
	Key     Key
	Samples []Sample
	Params  RequestParams
}

// LastSample returns the final sample. Only valid when Samples is non-empty.
func (t *Trajectory) LastSample() Sample {
	return t.Samples[len(t.Samples)-1]
}

// LoadPhase is the lifecycle phase of a per-object load.
type LoadPhase string

const (
	LoadIdle    LoadPhase = "idle"
	LoadQueued  LoadPhase = "queued"
	LoadLoading LoadPhase = "loading"
	LoadLoaded  LoadPhase = "loaded"
	LoadError   LoadPhase = "error"
)

// LoadState is the per-object load state surfaced to the indicator layer.
type LoadState struct {
	Phase LoadPhase `json:"phase"`
	Error string    `json:"error,omitempty"`
}

// Errored builds an error LoadState with the given message.
func Errored(msg string) LoadState {
	return LoadState{Phase: LoadError, Error: msg}
}

// ErrNonMonotonic reports a defensive rejection: a segment whose first
// sample does not strictly follow the last stored sample.
var ErrNonMonotonic = errors.New("segment is not strictly ascending from the stored series")
