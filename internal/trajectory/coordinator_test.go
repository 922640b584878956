package trajectory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBatch serves canned batch responses. respond is invoked with the
// request and the 1-based call number; when blockFirst is set, the first
// call waits on it before responding.
type fakeBatch struct {
	mu         sync.Mutex
	reqs       []BatchRequest
	respond    func(req BatchRequest, call int) (*BatchResponse, error)
	blockFirst chan struct{}
}

func (f *fakeBatch) FetchBatch(_ context.Context, req BatchRequest) (*BatchResponse, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	call := len(f.reqs)
	block := f.blockFirst
	f.mu.Unlock()
	if call == 1 && block != nil {
		<-block
	}
	return f.respond(req, call)
}

func (f *fakeBatch) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reqs)
}

func (f *fakeBatch) requests() []BatchRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]BatchRequest(nil), f.reqs...)
}

// respondAll loads every requested object with n samples.
func respondAll(n int) func(req BatchRequest, call int) (*BatchResponse, error) {
	return func(req BatchRequest, _ int) (*BatchResponse, error) {
		resp := &BatchResponse{
			Trajectories: make(map[string]TrajectoryResponse),
			Errors:       make(map[string]string),
		}
		for _, id := range req.ObjectIDs {
			resp.Trajectories[id] = TrajectoryResponse{
				Designation: id,
				Method:      req.Method,
				Trajectory:  makeSamples(0, n),
			}
		}
		return resp, nil
	}
}

func waitObjectPhase(t *testing.T, c *Coordinator, id string, phase LoadPhase) {
	t.Helper()
	require.Eventually(t, func() bool {
		return c.State(id).Phase == phase
	}, time.Second, time.Millisecond)
}

func TestCoordinator_SelectLoadsBatch(t *testing.T) {
	store := NewStore()
	fetcher := &fakeBatch{respond: respondAll(10)}
	c := NewCoordinator(store, fetcher, MethodTwoBody, 365, 100)

	c.Select("1P")
	c.Select("2P")

	waitObjectPhase(t, c, "1P", LoadLoaded)
	waitObjectPhase(t, c, "2P", LoadLoaded)

	assert.Equal(t, 10, store.Len(Key{"1P", MethodTwoBody}))
	assert.Equal(t, 10, store.Len(Key{"2P", MethodTwoBody}))

	// Concurrent generations may record their requests in either order;
	// find the one that coalesced both objects.
	var req BatchRequest
	for _, r := range fetcher.requests() {
		if len(r.ObjectIDs) == 2 {
			req = r
		}
	}
	assert.Equal(t, []string{"1P", "2P"}, req.ObjectIDs)
	assert.Equal(t, MethodTwoBody, req.Method)
	assert.Equal(t, 365.0, req.Days)
	assert.Equal(t, 100, req.Points)
	assert.True(t, req.Parallel)
}

func TestCoordinator_PartialFailureIsolated(t *testing.T) {
	store := NewStore()
	fetcher := &fakeBatch{respond: func(req BatchRequest, _ int) (*BatchResponse, error) {
		return &BatchResponse{
			Trajectories: map[string]TrajectoryResponse{
				"1P": {Designation: "1P", Trajectory: makeSamples(0, 10)},
			},
			Errors: map[string]string{"BAD": "No orbital elements for BAD"},
		}, nil
	}}
	c := NewCoordinator(store, fetcher, MethodTwoBody, 365, 100)

	c.SetSelection([]string{"1P", "BAD"})

	waitObjectPhase(t, c, "1P", LoadLoaded)
	waitObjectPhase(t, c, "BAD", LoadError)

	assert.Contains(t, c.State("BAD").Error, "No orbital elements")
	assert.Equal(t, 10, store.Len(Key{"1P", MethodTwoBody}))
	assert.Equal(t, 0, store.Len(Key{"BAD", MethodTwoBody}))
	assert.Equal(t, []string{"1P", "BAD"}, c.Selected(), "failed object stays selected")
}

func TestCoordinator_StaleResponseDiscarded(t *testing.T) {
	store := NewStore()
	block := make(chan struct{})
	// The first (blocked) call answers with 5 samples, later calls with 50.
	fetcher := &fakeBatch{
		blockFirst: block,
		respond: func(req BatchRequest, call int) (*BatchResponse, error) {
			n := 50
			if call == 1 {
				n = 5
			}
			return respondAll(n)(req, call)
		},
	}
	c := NewCoordinator(store, fetcher, MethodTwoBody, 365, 100)

	c.SetSelection([]string{"1P"})
	require.Eventually(t, func() bool { return fetcher.callCount() == 1 }, time.Second, time.Millisecond)

	// Parameter change while the first batch is in flight.
	c.SetParams(MethodTwoBody, 730, 200)
	waitObjectPhase(t, c, "1P", LoadLoaded)
	require.Equal(t, 50, store.Len(Key{"1P", MethodTwoBody}))

	// The superseded response arrives late and must not overwrite.
	close(block)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 50, store.Len(Key{"1P", MethodTwoBody}))
	assert.Equal(t, LoadLoaded, c.State("1P").Phase)
}

func TestCoordinator_DeselectClearsTrajectory(t *testing.T) {
	store := NewStore()
	fetcher := &fakeBatch{respond: respondAll(10)}
	c := NewCoordinator(store, fetcher, MethodTwoBody, 365, 100)

	c.SetSelection([]string{"1P", "2P"})
	waitObjectPhase(t, c, "2P", LoadLoaded)

	c.Deselect("2P")
	assert.Equal(t, 0, store.Len(Key{"2P", MethodTwoBody}))
	assert.Equal(t, LoadIdle, c.State("2P").Phase)
	assert.Equal(t, []string{"1P"}, c.Selected())

	waitObjectPhase(t, c, "1P", LoadLoaded)
	assert.Equal(t, 10, store.Len(Key{"1P", MethodTwoBody}))
}

func TestCoordinator_TransportErrorMarksAllSelected(t *testing.T) {
	store := NewStore()
	fetcher := &fakeBatch{respond: func(BatchRequest, int) (*BatchResponse, error) {
		return nil, errors.New("connection refused")
	}}
	c := NewCoordinator(store, fetcher, MethodTwoBody, 365, 100)

	c.SetSelection([]string{"1P", "2P"})

	waitObjectPhase(t, c, "1P", LoadError)
	waitObjectPhase(t, c, "2P", LoadError)
	assert.Contains(t, c.State("1P").Error, "connection refused")
}

func TestCoordinator_MissingObjectErrored(t *testing.T) {
	store := NewStore()
	fetcher := &fakeBatch{respond: func(BatchRequest, int) (*BatchResponse, error) {
		return &BatchResponse{
			Trajectories: map[string]TrajectoryResponse{},
			Errors:       map[string]string{},
		}, nil
	}}
	c := NewCoordinator(store, fetcher, MethodTwoBody, 365, 100)

	c.Select("1P")
	waitObjectPhase(t, c, "1P", LoadError)
	assert.Equal(t, "missing from batch response", c.State("1P").Error)
}

func TestCoordinator_MethodChangeClearsOldKeys(t *testing.T) {
	store := NewStore()
	fetcher := &fakeBatch{respond: respondAll(10)}
	c := NewCoordinator(store, fetcher, MethodTwoBody, 365, 100)

	c.Select("1P")
	waitObjectPhase(t, c, "1P", LoadLoaded)
	require.Equal(t, 10, store.Len(Key{"1P", MethodTwoBody}))

	c.SetParams(MethodNBody, 365, 100)
	waitObjectPhase(t, c, "1P", LoadLoaded)
	assert.Equal(t, 0, store.Len(Key{"1P", MethodTwoBody}))
	assert.Equal(t, 10, store.Len(Key{"1P", MethodNBody}))
}

func TestCoordinator_DuplicateSelectNoRefetch(t *testing.T) {
	store := NewStore()
	fetcher := &fakeBatch{respond: respondAll(10)}
	c := NewCoordinator(store, fetcher, MethodTwoBody, 365, 100)

	c.Select("1P")
	waitObjectPhase(t, c, "1P", LoadLoaded)
	calls := fetcher.callCount()

	c.Select("1P")
	assert.Equal(t, calls, fetcher.callCount())
}
