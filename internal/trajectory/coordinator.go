package trajectory

import (
	"context"
	"sync"

	"github.com/orbitview/orbitview/internal/monitoring"
)

// BatchFetcher is the coalesced multi-object slice of the service client.
type BatchFetcher interface {
	FetchBatch(ctx context.Context, req BatchRequest) (*BatchResponse, error)
}

// Coordinator manages multi-object selection. Every selection or parameter
// change advances a generation counter and issues one coalesced batch
// request tagged with that generation; a response arriving after a newer
// change carries a stale tag and is discarded whole. Failures are isolated
// per object: one object erroring never blocks the others in the same
// batch from loading.
type Coordinator struct {
	store   *Store
	fetcher BatchFetcher
	logf    func(format string, v ...interface{})

	mu         sync.Mutex
	generation uint64
	method     Method
	days       float64
	points     int
	selected   *SelectionSet
	states     map[string]LoadState
}

// NewCoordinator creates a Coordinator with an empty selection and the
// given default request parameters.
func NewCoordinator(store *Store, fetcher BatchFetcher, method Method, days float64, points int) *Coordinator {
	return &Coordinator{
		store:    store,
		fetcher:  fetcher,
		logf:     monitoring.Component("Coordinator"),
		method:   method,
		days:     days,
		points:   points,
		selected: NewSelectionSet(),
		states:   make(map[string]LoadState),
	}
}

// Select adds an object to the selection and refetches the set. A
// duplicate selection is a no-op.
func (c *Coordinator) Select(id string) {
	c.mu.Lock()
	if !c.selected.Add(id) {
		c.mu.Unlock()
		return
	}
	c.refreshLocked()
	c.mu.Unlock()
}

// Deselect removes an object, clears its stored trajectory, and refetches
// the remaining set so objects still queued under the now-stale generation
// get loaded.
func (c *Coordinator) Deselect(id string) {
	c.mu.Lock()
	if !c.selected.Remove(id) {
		c.mu.Unlock()
		return
	}
	delete(c.states, id)
	c.store.Clear(Key{Designation: id, Method: c.method})
	c.refreshLocked()
	c.mu.Unlock()
}

// SetSelection replaces the whole selection. Trajectories of objects that
// drop out are cleared.
func (c *Coordinator) SetSelection(ids []string) {
	c.mu.Lock()
	next := NewSelectionSet(ids...)
	for _, id := range c.selected.IDs() {
		if !next.Contains(id) {
			delete(c.states, id)
			c.store.Clear(Key{Designation: id, Method: c.method})
		}
	}
	c.selected = next
	c.refreshLocked()
	c.mu.Unlock()
}

// SetParams changes the propagation method or request span and refetches
// the selection. Stored trajectories for the old method are cleared.
func (c *Coordinator) SetParams(method Method, days float64, points int) {
	c.mu.Lock()
	if method != c.method {
		for _, id := range c.selected.IDs() {
			c.store.Clear(Key{Designation: id, Method: c.method})
		}
	}
	c.method = method
	c.days = days
	c.points = points
	c.refreshLocked()
	c.mu.Unlock()
}

// Selected returns the selected designations in order.
func (c *Coordinator) Selected() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected.IDs()
}

// Params returns the current request parameters.
func (c *Coordinator) Params() (Method, float64, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.method, c.days, c.points
}

// State returns the load state for one object; idle when unknown.
func (c *Coordinator) State(id string) LoadState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st, ok := c.states[id]; ok {
		return st
	}
	return LoadState{Phase: LoadIdle}
}

// States returns a copy of all per-object load states.
func (c *Coordinator) States() map[string]LoadState {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]LoadState, len(c.states))
	for id, st := range c.states {
		out[id] = st
	}
	return out
}

// refreshLocked advances the generation, marks the selection queued, and
// issues one batch request for the whole set. Caller holds c.mu.
func (c *Coordinator) refreshLocked() {
	c.generation++
	ids := c.selected.IDs()
	for _, id := range ids {
		c.states[id] = LoadState{Phase: LoadQueued}
	}
	if len(ids) == 0 {
		return
	}

	gen := c.generation
	req := BatchRequest{
		ObjectIDs: ids,
		Days:      c.days,
		Points:    c.points,
		Method:    c.method,
		Parallel:  true,
	}
	c.logf("generation %d: fetching %d objects", gen, len(ids))
	go c.fetchBatch(gen, req)
}

func (c *Coordinator) fetchBatch(gen uint64, req BatchRequest) {
	resp, err := c.fetcher.FetchBatch(context.Background(), req)
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		c.logf("generation %d: discarding stale batch response (current %d)", gen, c.generation)
		return
	}

	if err != nil {
		// Transport-level failure: every object of this batch errors, but
		// each keeps its own state so a later partial retry stays isolated.
		for _, id := range req.ObjectIDs {
			if c.selected.Contains(id) {
				c.states[id] = Errored(err.Error())
			}
		}
		c.logf("generation %d: batch failed: %v", gen, err)
		return
	}

	params := RequestParams{Days: req.Days, Points: req.Points}
	for _, id := range req.ObjectIDs {
		if !c.selected.Contains(id) {
			continue
		}
		if traj, ok := resp.Trajectories[id]; ok {
			c.store.Replace(Key{Designation: id, Method: req.Method}, traj.Trajectory, params)
			c.states[id] = LoadState{Phase: LoadLoaded}
			continue
		}
		if msg, ok := resp.Errors[id]; ok {
			c.states[id] = Errored(msg)
			continue
		}
		c.states[id] = Errored("missing from batch response")
	}
}
