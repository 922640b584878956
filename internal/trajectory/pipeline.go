package trajectory

import (
	"context"
	"fmt"
	"sync"

	"github.com/orbitview/orbitview/internal/config"
	"github.com/orbitview/orbitview/internal/monitoring"
	"github.com/orbitview/orbitview/internal/timeutil"
)

// Pipeline wires the trajectory components together: one store, one
// animation clock pacing everything, a segment manager for the
// single-object path, and a coordinator for the multi-object path. The
// HTTP layer talks only to the Pipeline.
//
// Lock ordering: the clock calls back into the pipeline (refLen) while
// holding its own mutex, so pipeline methods never invoke clock operations
// while holding p.mu.
type Pipeline struct {
	store    *Store
	clock    *AnimationClock
	segments *SegmentManager
	coord    *Coordinator
	client   *Client
	logf     func(format string, v ...interface{})

	mu     sync.Mutex
	cfg    *config.AutoLoadConfig
	mode   SelectionMode
	method Method
}

// NewPipeline assembles the pipeline around the given service client and
// configuration. clk drives the animation; pass timeutil.RealClock outside
// tests.
func NewPipeline(client *Client, cfg *config.AutoLoadConfig, clk timeutil.Clock) *Pipeline {
	p := &Pipeline{
		client: client,
		cfg:    cfg,
		logf:   monitoring.Component("Pipeline"),
		mode:   SingleSelection(""),
		method: MethodTwoBody,
	}
	p.store = NewStore()
	p.clock = NewAnimationClock(clk, p.referenceLen)
	p.segments = NewSegmentManager(p.store, client, p.clock, p.autoLoadParams)
	p.coord = NewCoordinator(p.store, client, p.method,
		cfg.GetSegmentDurationDays(), cfg.GetSegmentPoints())
	p.clock.AddTickHandler(p.segments.OnTick)
	return p
}

// Run drives the animation clock until ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	return p.clock.Run(ctx)
}

// Stop shuts the clock down.
func (p *Pipeline) Stop() {
	p.clock.Stop()
}

// Clock exposes the playback surface: play, pause, speed, scrub, index.
func (p *Pipeline) Clock() *AnimationClock {
	return p.clock
}

// Store exposes the trajectory store for read-only sample queries.
func (p *Pipeline) Store() *Store {
	return p.store
}

// referenceLen reports the sample count of the trajectory pacing the
// animation. Runs on the clock goroutine.
func (p *Pipeline) referenceLen() int {
	key, ok := p.primaryKey()
	if !ok {
		return 0
	}
	return p.store.Len(key)
}

// primaryKey resolves the pacing trajectory: the single selection, or the
// first member of the multi set.
func (p *Pipeline) primaryKey() (Key, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id, ok := p.mode.Primary()
	if !ok {
		return Key{}, false
	}
	return Key{Designation: id, Method: p.method}, true
}

// SelectSingle switches to single mode, fetches the initial trajectory
// span, and starts segment monitoring. The previous selection's
// trajectories are cleared.
func (p *Pipeline) SelectSingle(ctx context.Context, designation string, method Method) error {
	p.mu.Lock()
	days := p.cfg.GetSegmentDurationDays()
	points := p.cfg.GetSegmentPoints()
	p.mu.Unlock()

	resp, err := p.client.FetchTrajectory(ctx, designation, method, 0, days, points)
	if err != nil {
		return fmt.Errorf("select %s: %w", designation, err)
	}

	p.clearSelection()

	key := Key{Designation: designation, Method: method}
	p.store.Replace(key, resp.Trajectory, RequestParams{Days: days, Points: points})

	p.mu.Lock()
	p.mode = SingleSelection(designation)
	p.method = method
	p.mu.Unlock()

	p.segments.Track(key)
	p.clock.Scrub(0)
	p.logf("selected %s (%d samples, method %s)", designation, len(resp.Trajectory), method)
	return nil
}

// SelectMulti switches to multi mode over the given objects. Loading is
// asynchronous; progress surfaces through LoadStates.
func (p *Pipeline) SelectMulti(ids []string) {
	p.segments.Untrack()

	p.mu.Lock()
	p.mode = MultiSelection(ids...)
	method := p.method
	days := p.cfg.GetSegmentDurationDays()
	points := p.cfg.GetSegmentPoints()
	p.mu.Unlock()

	p.coord.SetParams(method, days, points)
	p.coord.SetSelection(ids)
	p.clock.Scrub(0)
}

// Deselect removes one object in multi mode, or clears the single
// selection when it matches.
func (p *Pipeline) Deselect(id string) {
	p.mu.Lock()
	mode := p.mode
	method := p.method
	p.mu.Unlock()

	switch mode.Kind() {
	case ModeMulti:
		p.coord.Deselect(id)
	default:
		if primary, ok := mode.Primary(); ok && primary == id {
			p.segments.Untrack()
			p.store.Clear(Key{Designation: id, Method: method})
			p.mu.Lock()
			p.mode = SingleSelection("")
			p.mu.Unlock()
			p.clock.Scrub(0)
		}
	}
}

// ClearSelection deselects everything and clears all stored trajectories.
func (p *Pipeline) ClearSelection() {
	p.clearSelection()
	p.mu.Lock()
	p.mode = SingleSelection("")
	p.mu.Unlock()
	p.clock.Scrub(0)
}

func (p *Pipeline) clearSelection() {
	p.segments.Untrack()
	p.coord.SetSelection(nil)
	for _, key := range p.store.Keys() {
		p.store.Clear(key)
	}
}

// Mode returns the current selection mode.
func (p *Pipeline) Mode() SelectionMode {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mode
}

// LoadStates returns the per-object load states for the active mode.
func (p *Pipeline) LoadStates() map[string]LoadState {
	p.mu.Lock()
	mode := p.mode
	p.mu.Unlock()

	switch mode.Kind() {
	case ModeMulti:
		return p.coord.States()
	default:
		states := make(map[string]LoadState)
		if primary, ok := mode.Primary(); ok {
			states[primary] = p.segments.State()
		}
		return states
	}
}

// UpdateConfig applies a partial configuration update and returns the
// number of changed fields. Loaded samples are never discarded by a
// configuration change; new values take effect on the next trigger
// evaluation.
func (p *Pipeline) UpdateConfig(update *config.AutoLoadConfig) int {
	p.mu.Lock()
	changed := p.cfg.Apply(update)
	p.mu.Unlock()
	if changed > 0 {
		p.logf("applied %d configuration changes", changed)
	}
	return changed
}

// Config returns a snapshot copy of the active configuration.
func (p *Pipeline) Config() config.AutoLoadConfig {
	p.mu.Lock()
	defer p.mu.Unlock()
	return *p.cfg
}

// autoLoadParams snapshots the tuning values for one trigger evaluation.
func (p *Pipeline) autoLoadParams() AutoLoadParams {
	p.mu.Lock()
	defer p.mu.Unlock()
	return AutoLoadParams{
		ThresholdFraction:   p.cfg.GetThresholdFraction(),
		TimeBufferSeconds:   p.cfg.GetTimeBufferSeconds(),
		SegmentDurationDays: p.cfg.GetSegmentDurationDays(),
		SegmentPoints:       p.cfg.GetSegmentPoints(),
		MaxPoints:           p.cfg.GetMaxPoints(),
	}
}

// Status is the pipeline snapshot served by the status endpoint.
type Status struct {
	Mode          ModeKind             `json:"mode"`
	Selection     []string             `json:"selection"`
	Method        Method               `json:"method"`
	LoadStates    map[string]LoadState `json:"load_states"`
	AutoLoadPhase string               `json:"auto_load_phase"`
	Playing       bool                 `json:"playing"`
	Speed         float64              `json:"speed"`
	Index         int                  `json:"index"`
	SampleCounts  map[string]int       `json:"sample_counts"`
}

// Status assembles a consistent-enough snapshot for monitoring. Values are
// read without a global freeze; the pipeline keeps running.
func (p *Pipeline) Status() Status {
	p.mu.Lock()
	mode := p.mode
	method := p.method
	p.mu.Unlock()

	counts := make(map[string]int)
	for _, key := range p.store.Keys() {
		counts[key.String()] = p.store.Len(key)
	}

	return Status{
		Mode:          mode.Kind(),
		Selection:     mode.Objects(),
		Method:        method,
		LoadStates:    p.LoadStates(),
		AutoLoadPhase: p.segments.Phase(),
		Playing:       p.clock.Playing(),
		Speed:         p.clock.Speed(),
		Index:         p.clock.Index(),
		SampleCounts:  counts,
	}
}
