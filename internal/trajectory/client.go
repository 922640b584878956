package trajectory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/orbitview/orbitview/internal/catalog"
	"github.com/orbitview/orbitview/internal/ephem"
	"github.com/orbitview/orbitview/internal/httputil"
	"github.com/orbitview/orbitview/internal/monitoring"
)

// TrajectoryResponse is the envelope returned by the single-object
// trajectory endpoint.
type TrajectoryResponse struct {
	Designation string   `json:"designation"`
	Name        string   `json:"name,omitempty"`
	Method      Method   `json:"method"`
	StartTime   float64  `json:"start_time"`
	EndTime     float64  `json:"end_time"`
	Days        float64  `json:"days"`
	Points      int      `json:"points"`
	Trajectory  []Sample `json:"trajectory"`
}

// BatchRequest describes one coalesced multi-object trajectory request.
type BatchRequest struct {
	ObjectIDs []string `json:"object_ids"`
	Days      float64  `json:"days"`
	Points    int      `json:"num_points"`
	Method    Method   `json:"method"`
	Parallel  bool     `json:"parallel"`
}

// BatchResponse carries per-object results: an object appears in
// Trajectories on success or in Errors on failure, never both.
type BatchResponse struct {
	Trajectories map[string]TrajectoryResponse `json:"trajectories"`
	Errors       map[string]string             `json:"errors"`
}

// ObjectsQuery filters a catalog batch listing.
type ObjectsQuery struct {
	Category string            `json:"category,omitempty"`
	Limit    int               `json:"limit,omitempty"`
	Filters  map[string]string `json:"filters,omitempty"`
}

// CometList is a catalog listing page.
type CometList struct {
	Total  int             `json:"total"`
	Count  int             `json:"count"`
	Comets []catalog.Comet `json:"comets"`
}

// Client consumes the remote trajectory service. It never reimplements the
// server-side physics; it only speaks the request/response contract.
type Client struct {
	baseURL string
	http    httputil.HTTPClient
	logf    func(format string, v ...interface{})
}

// NewClient creates a Client for the service at baseURL. Pass an
// *http.Client with a Timeout through httputil.NewStandardClient so a hung
// fetch surfaces as an error instead of blocking its object forever.
func NewClient(baseURL string, hc httputil.HTTPClient) *Client {
	if hc == nil {
		hc = httputil.NewStandardClient(nil)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
		logf:    monitoring.Component("TrajectoryClient"),
	}
}

// FetchTrajectory requests one trajectory segment. startJD of zero means
// the service default (the object's element epoch); auto-load passes the
// last loaded epoch to continue the series.
func (c *Client) FetchTrajectory(ctx context.Context, designation string, method Method, startJD, days float64, points int) (*TrajectoryResponse, error) {
	q := url.Values{}
	q.Set("days", strconv.FormatFloat(days, 'f', -1, 64))
	q.Set("points", strconv.Itoa(points))
	q.Set("method", string(method))
	if startJD > 0 {
		q.Set("start_time", strconv.FormatFloat(startJD, 'f', -1, 64))
	}
	endpoint := fmt.Sprintf("%s/comets/%s/trajectory?%s", c.baseURL, url.PathEscape(designation), q.Encode())

	var resp TrajectoryResponse
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, fmt.Errorf("fetch trajectory %s/%s: %w", designation, method, err)
	}
	return &resp, nil
}

// FetchBatch requests trajectories for all objects in req at once. Partial
// failure is normal: inspect both maps of the response.
func (c *Client) FetchBatch(ctx context.Context, req BatchRequest) (*BatchResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode batch request: %w", err)
	}

	var resp BatchResponse
	if err := c.postJSON(ctx, c.baseURL+"/trajectories/batch", body, &resp); err != nil {
		return nil, fmt.Errorf("fetch batch of %d objects: %w", len(req.ObjectIDs), err)
	}
	if resp.Trajectories == nil {
		resp.Trajectories = make(map[string]TrajectoryResponse)
	}
	if resp.Errors == nil {
		resp.Errors = make(map[string]string)
	}
	if len(resp.Errors) > 0 {
		c.logf("batch returned %d/%d failures", len(resp.Errors), len(req.ObjectIDs))
	}
	return &resp, nil
}

// FetchComets lists up to limit comets with their orbital elements.
func (c *Client) FetchComets(ctx context.Context, limit int) (*CometList, error) {
	endpoint := fmt.Sprintf("%s/comets?limit=%d", c.baseURL, limit)

	var wire cometListWire
	if err := c.getJSON(ctx, endpoint, &wire); err != nil {
		return nil, fmt.Errorf("fetch comets: %w", err)
	}
	return wire.toCometList(), nil
}

// FetchObjectsBatch lists catalog objects for a category with filters.
func (c *Client) FetchObjectsBatch(ctx context.Context, query ObjectsQuery) (*CometList, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("encode objects query: %w", err)
	}

	var wire cometListWire
	if err := c.postJSON(ctx, c.baseURL+"/objects/batch", body, &wire); err != nil {
		return nil, fmt.Errorf("fetch objects batch: %w", err)
	}
	return wire.toCometList(), nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	return c.doJSON(req, out)
}

func (c *Client) postJSON(ctx context.Context, endpoint string, body []byte, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.doJSON(req, out)
}

func (c *Client) doJSON(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("service returned %d: %s", resp.StatusCode, readErrorDetail(resp.Body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// readErrorDetail extracts the error message from a failed response body.
func readErrorDetail(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(data) == 0 {
		return "no detail"
	}
	var payload struct {
		Detail string `json:"detail"`
		Error  string `json:"error"`
	}
	if json.Unmarshal(data, &payload) == nil {
		if payload.Detail != "" {
			return payload.Detail
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return strings.TrimSpace(string(data))
}

// Catalog listings carry element angles in degrees; convert at the edge.
type cometWire struct {
	Designation    string `json:"designation"`
	Name           string `json:"name"`
	OrbitType      string `json:"orbit_type"`
	PeriodicNumber int    `json:"periodic_number"`
	Elements       *struct {
		SemiMajorAxis  float64 `json:"semi_major_axis"`
		Eccentricity   float64 `json:"eccentricity"`
		InclinationDeg float64 `json:"inclination_deg"`
		NodeDeg        float64 `json:"longitude_ascending_node_deg"`
		ArgDeg         float64 `json:"argument_of_perihelion_deg"`
		MeanAnomalyDeg float64 `json:"mean_anomaly_deg"`
		Epoch          float64 `json:"epoch"`
	} `json:"orbital_elements"`
}

type cometListWire struct {
	Total  int         `json:"total"`
	Count  int         `json:"count"`
	Comets []cometWire `json:"comets"`
}

func (w *cometListWire) toCometList() *CometList {
	list := &CometList{
		Total:  w.Total,
		Count:  w.Count,
		Comets: make([]catalog.Comet, 0, len(w.Comets)),
	}
	for _, cw := range w.Comets {
		comet := catalog.Comet{
			Designation:    cw.Designation,
			Name:           cw.Name,
			OrbitType:      cw.OrbitType,
			PeriodicNumber: cw.PeriodicNumber,
		}
		if cw.Elements != nil {
			el := ephem.FromDegrees(
				cw.Elements.SemiMajorAxis,
				cw.Elements.Eccentricity,
				cw.Elements.InclinationDeg,
				cw.Elements.NodeDeg,
				cw.Elements.ArgDeg,
				cw.Elements.MeanAnomalyDeg,
				cw.Elements.Epoch,
			)
			comet.Elements = &el
		}
		list.Comets = append(list.Comets, comet)
	}
	return list
}
