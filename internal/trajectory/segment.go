package trajectory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/orbitview/orbitview/internal/monitoring"
)

// AutoLoadParams is the tuning snapshot used for one trigger evaluation.
// The pipeline builds it from the live configuration so runtime updates
// apply on the next tick without disturbing loaded data.
type AutoLoadParams struct {
	ThresholdFraction   float64
	TimeBufferSeconds   float64
	SegmentDurationDays float64
	SegmentPoints       int
	MaxPoints           int
}

// SegmentFetcher is the single-object slice of the service client used by
// auto-load.
type SegmentFetcher interface {
	FetchTrajectory(ctx context.Context, designation string, method Method, startJD, days float64, points int) (*TrajectoryResponse, error)
}

// playbackView is what the segment manager needs from the animation clock:
// the effective tick interval for the time-buffer trigger, and index
// compensation when the window slides.
type playbackView interface {
	Interval() time.Duration
	AdjustIndex(delta int)
}

// segPhase is the auto-load state per tracked key.
type segPhase string

const (
	segMonitoring segPhase = "monitoring"
	segRequesting segPhase = "requesting"
	segMerging    segPhase = "merging"
)

// SegmentManager drives trajectory auto-loading for the single-object
// path. On every clock tick while monitoring, it checks the playback
// position against the loaded series and requests the next segment when
// the remaining runway gets short. Exactly one request per key is in
// flight at any time; a failed request surfaces as an error load state and
// the unchanged trigger condition retries it naturally on a later tick.
type SegmentManager struct {
	store    *Store
	fetcher  SegmentFetcher
	params   func() AutoLoadParams
	playback playbackView
	logf     func(format string, v ...interface{})

	mu        sync.Mutex
	key       Key
	tracking  bool
	phase     segPhase
	inFlight  bool
	loadState LoadState
}

// NewSegmentManager creates a SegmentManager over the given store and
// fetcher. params is sampled on every evaluation.
func NewSegmentManager(store *Store, fetcher SegmentFetcher, playback playbackView, params func() AutoLoadParams) *SegmentManager {
	return &SegmentManager{
		store:     store,
		fetcher:   fetcher,
		playback:  playback,
		params:    params,
		logf:      monitoring.Component("SegmentManager"),
		phase:     segMonitoring,
		loadState: LoadState{Phase: LoadIdle},
	}
}

// Track starts monitoring the given key. The trajectory itself is loaded
// by the caller (initial fetch); the manager only extends it.
func (m *SegmentManager) Track(key Key) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.key = key
	m.tracking = true
	m.phase = segMonitoring
	m.loadState = LoadState{Phase: LoadLoaded}
}

// Untrack stops monitoring. An in-flight request is not cancelled; its
// response is discarded on arrival because the key no longer matches.
func (m *SegmentManager) Untrack() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tracking = false
	m.loadState = LoadState{Phase: LoadIdle}
}

// State returns the current per-object load state.
func (m *SegmentManager) State() LoadState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadState
}

// Phase returns the auto-load phase, for the status endpoint.
func (m *SegmentManager) Phase() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return string(m.phase)
}

// OnTick evaluates the auto-load trigger for the current playback index.
// Registered as an AnimationClock tick handler.
func (m *SegmentManager) OnTick(index int) {
	m.mu.Lock()
	if !m.tracking || m.phase != segMonitoring || m.inFlight {
		m.mu.Unlock()
		return
	}
	key := m.key
	m.mu.Unlock()

	traj, ok := m.store.Get(key)
	if !ok || len(traj.Samples) == 0 {
		return
	}

	p := m.params()
	total := len(traj.Samples)
	if !m.triggerFires(index, total, p) {
		return
	}

	m.mu.Lock()
	// Re-check under lock: a concurrent completion may have raced the
	// evaluation above.
	if m.inFlight || m.phase != segMonitoring {
		m.mu.Unlock()
		return
	}
	m.inFlight = true
	m.phase = segRequesting
	m.loadState = LoadState{Phase: LoadLoading}
	m.mu.Unlock()

	startJD := traj.LastSample().TimeJD
	m.logf("%s: requesting next segment from JD %.2f (%v days, %d points)",
		key, startJD, p.SegmentDurationDays, p.SegmentPoints)

	go m.fetchSegment(key, startJD, p)
}

// triggerFires applies both trigger conditions: the index has passed the
// threshold fraction of the loaded series, and the remaining samples cover
// less than the configured time buffer at the current playback rate.
func (m *SegmentManager) triggerFires(index, total int, p AutoLoadParams) bool {
	if float64(index)/float64(total) < p.ThresholdFraction {
		return false
	}
	remainingSeconds := float64(total-index) * m.playback.Interval().Seconds()
	return remainingSeconds <= p.TimeBufferSeconds
}

func (m *SegmentManager) fetchSegment(key Key, startJD float64, p AutoLoadParams) {
	resp, err := m.fetcher.FetchTrajectory(context.Background(),
		key.Designation, key.Method, startJD, p.SegmentDurationDays, p.SegmentPoints)
	if err != nil {
		m.completeError(key, err)
		return
	}
	m.completeMerge(key, resp, p)
}

// completeMerge appends the fetched segment and compensates the playback
// index for any evicted samples, so the displayed position does not jump
// when the window slides.
func (m *SegmentManager) completeMerge(key Key, resp *TrajectoryResponse, p AutoLoadParams) {
	m.mu.Lock()
	if !m.tracking || m.key != key {
		// Superseded by an untrack or a key switch while in flight.
		m.inFlight = false
		m.phase = segMonitoring
		m.mu.Unlock()
		m.logf("%s: discarding stale segment response", key)
		return
	}
	m.phase = segMerging
	m.mu.Unlock()

	evicted, err := m.store.Append(key, resp.Trajectory,
		RequestParams{Days: p.SegmentDurationDays, Points: p.SegmentPoints}, p.MaxPoints)

	m.mu.Lock()
	m.inFlight = false
	m.phase = segMonitoring
	if err != nil {
		if errors.Is(err, ErrNonMonotonic) {
			m.logf("%s: rejected segment: %v", key, err)
		}
		m.loadState = Errored(err.Error())
		m.mu.Unlock()
		return
	}
	m.loadState = LoadState{Phase: LoadLoaded}
	m.mu.Unlock()

	if evicted > 0 {
		m.playback.AdjustIndex(-evicted)
	}
	m.logf("%s: merged %d samples (%d evicted)", key, len(resp.Trajectory), evicted)
}

// completeError records the failure and returns to monitoring. No backoff:
// the next tick re-evaluates the same trigger and retries while the
// condition still holds.
func (m *SegmentManager) completeError(key Key, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inFlight = false
	m.phase = segMonitoring
	if m.tracking && m.key == key {
		m.loadState = Errored(err.Error())
	}
	m.logf("%s: segment request failed: %v", key, err)
}
