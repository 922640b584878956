package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/orbitview/orbitview/internal/catalog"
	"github.com/orbitview/orbitview/internal/config"
	"github.com/orbitview/orbitview/internal/httputil"
	"github.com/orbitview/orbitview/internal/trajectory"
)

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, map[string]string{"status": "ok"})
}

func (s *Server) showStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, s.pipeline.Status())
}

func (s *Server) showStatistics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	cat, ok := s.loadCatalog(w)
	if !ok {
		return
	}
	httputil.WriteJSONOK(w, cat.Stats())
}

func (s *Server) listComets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	cat, ok := s.loadCatalog(w)
	if !ok {
		return
	}

	comets := cat.Comets
	if orbitType := r.URL.Query().Get("orbit_type"); orbitType != "" {
		comets = cat.FilterOrbitType(orbitType)
	}
	if query := r.URL.Query().Get("search"); query != "" {
		comets = (&catalog.Catalog{Comets: comets}).Search(query)
	}

	total := len(comets)
	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		limit, err := strconv.Atoi(limitParam)
		if err != nil || limit < 0 {
			httputil.BadRequest(w, "invalid 'limit' parameter")
			return
		}
		if limit < len(comets) {
			comets = comets[:limit]
		}
	}

	httputil.WriteJSONOK(w, map[string]interface{}{
		"total":  total,
		"count":  len(comets),
		"comets": comets,
	})
}

func (s *Server) listFetches(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if s.cache == nil {
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, "catalog cache not configured")
		return
	}

	limit := 20
	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		parsed, err := strconv.Atoi(limitParam)
		if err != nil || parsed < 1 {
			httputil.BadRequest(w, "invalid 'limit' parameter")
			return
		}
		limit = parsed
	}

	records, err := s.cache.RecentFetches(limit)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, map[string]interface{}{"fetches": records})
}

func (s *Server) loadCatalog(w http.ResponseWriter) (*catalog.Catalog, bool) {
	if s.cache == nil {
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, "catalog cache not configured")
		return nil, false
	}
	cat, err := s.cache.LoadCatalog()
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return nil, false
	}
	return cat, true
}

type selectionRequest struct {
	Mode      string   `json:"mode"`
	ObjectID  string   `json:"object_id,omitempty"`
	ObjectIDs []string `json:"object_ids,omitempty"`
	Method    string   `json:"method,omitempty"`
}

func (s *Server) handleSelection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		mode := s.pipeline.Mode()
		httputil.WriteJSONOK(w, map[string]interface{}{
			"mode":        mode.Kind(),
			"objects":     mode.Objects(),
			"load_states": s.pipeline.LoadStates(),
		})

	case http.MethodPost:
		var req selectionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.BadRequest(w, "invalid selection request: "+err.Error())
			return
		}

		method := trajectory.MethodTwoBody
		if req.Method != "" {
			parsed, err := trajectory.ParseMethod(req.Method)
			if err != nil {
				httputil.BadRequest(w, err.Error())
				return
			}
			method = parsed
		}

		switch req.Mode {
		case "single":
			if req.ObjectID == "" {
				httputil.BadRequest(w, "single mode requires object_id")
				return
			}
			if err := s.pipeline.SelectSingle(r.Context(), req.ObjectID, method); err != nil {
				httputil.WriteJSONError(w, http.StatusBadGateway, err.Error())
				return
			}
		case "multi":
			s.pipeline.SelectMulti(req.ObjectIDs)
		default:
			httputil.BadRequest(w, fmt.Sprintf("unknown selection mode %q", req.Mode))
			return
		}
		httputil.WriteJSONOK(w, s.pipeline.Status())

	case http.MethodDelete:
		if id := r.URL.Query().Get("object_id"); id != "" {
			s.pipeline.Deselect(id)
		} else {
			s.pipeline.ClearSelection()
		}
		httputil.WriteJSONOK(w, s.pipeline.Status())

	default:
		httputil.MethodNotAllowed(w)
	}
}

type playbackState struct {
	Playing    bool    `json:"playing"`
	Speed      float64 `json:"speed"`
	Index      int     `json:"index"`
	IntervalMS float64 `json:"interval_ms"`
}

func (s *Server) currentPlayback() playbackState {
	clock := s.pipeline.Clock()
	return playbackState{
		Playing:    clock.Playing(),
		Speed:      clock.Speed(),
		Index:      clock.Index(),
		IntervalMS: float64(clock.Interval().Nanoseconds()) / 1e6,
	}
}

func (s *Server) showPlayback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, s.currentPlayback())
}

type intentRequest struct {
	Intent string   `json:"intent"`
	Speed  *float64 `json:"speed,omitempty"`
	Index  *int     `json:"index,omitempty"`
}

// playbackIntents maps intent names to their transitions. Adding a new
// intent is one entry here; there is no switch to keep in sync.
var playbackIntents = map[string]func(clock *trajectory.AnimationClock, req intentRequest) error{
	"play": func(clock *trajectory.AnimationClock, _ intentRequest) error {
		clock.Play()
		return nil
	},
	"pause": func(clock *trajectory.AnimationClock, _ intentRequest) error {
		clock.Pause()
		return nil
	},
	"toggle": func(clock *trajectory.AnimationClock, _ intentRequest) error {
		if clock.Playing() {
			clock.Pause()
		} else {
			clock.Play()
		}
		return nil
	},
	"set_speed": func(clock *trajectory.AnimationClock, req intentRequest) error {
		if req.Speed == nil || *req.Speed <= 0 {
			return fmt.Errorf("set_speed requires a positive 'speed'")
		}
		clock.SetSpeed(*req.Speed)
		return nil
	},
	"scrub": func(clock *trajectory.AnimationClock, req intentRequest) error {
		if req.Index == nil {
			return fmt.Errorf("scrub requires 'index'")
		}
		clock.Scrub(*req.Index)
		return nil
	},
}

func (s *Server) handlePlaybackIntent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	var req intentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.BadRequest(w, "invalid intent request: "+err.Error())
		return
	}

	apply, ok := playbackIntents[req.Intent]
	if !ok {
		httputil.BadRequest(w, fmt.Sprintf("unknown playback intent %q", req.Intent))
		return
	}
	if err := apply(s.pipeline.Clock(), req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, s.currentPlayback())
}

func (s *Server) showTrajectory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	designation := r.URL.Query().Get("designation")
	if designation == "" {
		httputil.BadRequest(w, "missing 'designation' parameter")
		return
	}
	method := trajectory.MethodTwoBody
	if methodParam := r.URL.Query().Get("method"); methodParam != "" {
		parsed, err := trajectory.ParseMethod(methodParam)
		if err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		method = parsed
	}

	traj, ok := s.pipeline.Store().Get(trajectory.Key{Designation: designation, Method: method})
	if !ok {
		httputil.NotFound(w, fmt.Sprintf("no trajectory loaded for %s/%s", designation, method))
		return
	}
	httputil.WriteJSONOK(w, map[string]interface{}{
		"designation": designation,
		"method":      method,
		"points":      len(traj.Samples),
		"trajectory":  traj.Samples,
	})
}

// effectiveParams is the resolved auto-load configuration: defaults filled
// in and out-of-range values clamped.
type effectiveParams struct {
	ThresholdFraction   float64 `json:"threshold_fraction"`
	TimeBufferSeconds   float64 `json:"time_buffer_seconds"`
	SegmentDurationDays float64 `json:"segment_duration_days"`
	SegmentPoints       int     `json:"segment_points"`
	MaxPoints           int     `json:"max_points"`
}

func (s *Server) effectiveParams() effectiveParams {
	cfg := s.pipeline.Config()
	return effectiveParams{
		ThresholdFraction:   cfg.GetThresholdFraction(),
		TimeBufferSeconds:   cfg.GetTimeBufferSeconds(),
		SegmentDurationDays: cfg.GetSegmentDurationDays(),
		SegmentPoints:       cfg.GetSegmentPoints(),
		MaxPoints:           cfg.GetMaxPoints(),
	}
}

func (s *Server) handleTrajectoryParams(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		httputil.WriteJSONOK(w, s.effectiveParams())

	case http.MethodPost:
		var update config.AutoLoadConfig
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			httputil.BadRequest(w, "invalid params update: "+err.Error())
			return
		}
		changed := s.pipeline.UpdateConfig(&update)
		httputil.WriteJSONOK(w, map[string]interface{}{
			"updated": changed,
			"params":  s.effectiveParams(),
		})

	default:
		httputil.MethodNotAllowed(w)
	}
}
