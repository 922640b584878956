package trajectory

import (
	"fmt"
	"sync"

	"github.com/orbitview/orbitview/internal/monitoring"
)

// Store is the in-memory keyed trajectory store. It owns the sliding-window
// retention policy: after every append the series is trimmed from the front
// until it fits the caller's point cap. Safe for concurrent use.
type Store struct {
	mu           sync.RWMutex
	trajectories map[Key]*Trajectory
	logf         func(format string, v ...interface{})
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		trajectories: make(map[Key]*Trajectory),
		logf:         monitoring.Component("Store"),
	}
}

// Append extends the series for key with newSamples, creating the
// trajectory if absent. The segment is rejected with ErrNonMonotonic when
// its first sample does not strictly follow the last stored sample, or when
// the segment itself is not strictly ascending; a rejected append leaves
// the stored series untouched. After appending, the series is trimmed from
// the front (oldest first) until len <= maxPoints. Returns the number of
// evicted samples so callers can compensate the playback index.
func (s *Store) Append(key Key, newSamples []Sample, params RequestParams, maxPoints int) (int, error) {
	if len(newSamples) == 0 {
		return 0, nil
	}
	for i := 1; i < len(newSamples); i++ {
		if newSamples[i].DaysFromEpoch <= newSamples[i-1].DaysFromEpoch {
			return 0, fmt.Errorf("sample %d of segment: %w", i, ErrNonMonotonic)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.trajectories[key]
	if !ok {
		t = &Trajectory{Key: key}
		s.trajectories[key] = t
	}

	if len(t.Samples) > 0 && newSamples[0].DaysFromEpoch <= t.LastSample().DaysFromEpoch {
		return 0, fmt.Errorf("segment starts at %.4f days, stored series ends at %.4f: %w",
			newSamples[0].DaysFromEpoch, t.LastSample().DaysFromEpoch, ErrNonMonotonic)
	}

	t.Samples = append(t.Samples, newSamples...)
	t.Params = params

	evicted := 0
	if maxPoints > 0 && len(t.Samples) > maxPoints {
		evicted = len(t.Samples) - maxPoints
		t.Samples = append([]Sample(nil), t.Samples[evicted:]...)
		s.logf("%s: evicted %d oldest samples (cap %d)", key, evicted, maxPoints)
	}
	return evicted, nil
}

// Replace installs a freshly fetched series for key, discarding whatever
// was stored. Used when request parameters change (method or span switch)
// rather than incrementally extending.
func (s *Store) Replace(key Key, samples []Sample, params RequestParams) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trajectories[key] = &Trajectory{
		Key:     key,
		Samples: append([]Sample(nil), samples...),
		Params:  params,
	}
}

// Get returns the trajectory for key, or false when absent. The returned
// trajectory is a snapshot view; its sample slice must not be mutated.
func (s *Store) Get(key Key) (*Trajectory, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.trajectories[key]
	if !ok {
		return nil, false
	}
	snapshot := *t
	return &snapshot, true
}

// Len returns the stored sample count for key, zero when absent.
func (s *Store) Len(key Key) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := s.trajectories[key]; ok {
		return len(t.Samples)
	}
	return 0
}

// Clear removes the trajectory for key. Used on deselection and mode
// toggles.
func (s *Store) Clear(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.trajectories, key)
}

// Keys returns the keys of all stored trajectories.
func (s *Store) Keys() []Key {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]Key, 0, len(s.trajectories))
	for k := range s.trajectories {
		keys = append(keys, k)
	}
	return keys
}
