package trajectory

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitview/orbitview/internal/httputil"
	"github.com/orbitview/orbitview/internal/monitoring"
)

func init() {
	monitoring.SetLogger(nil)
}

const trajectoryJSON = `{
	"designation": "J96R020",
	"name": "Hale-Bopp",
	"method": "twobody",
	"start_time": 2460000.0,
	"end_time": 2460365.0,
	"days": 365,
	"points": 2,
	"trajectory": [
		{"time": 2460000.0, "days_from_epoch": 0, "position": {"x": 1.0, "y": 0.5, "z": 0.1}, "distance_from_sun": 1.12},
		{"time": 2460365.0, "days_from_epoch": 365, "position": {"x": -0.4, "y": 2.1, "z": 0.3}, "distance_from_sun": 2.16}
	]
}`

func TestClient_FetchTrajectory(t *testing.T) {
	mock := httputil.NewMockHTTPClient()
	mock.AddResponse(200, trajectoryJSON)
	client := NewClient("http://svc.test/", mock)

	resp, err := client.FetchTrajectory(context.Background(), "J96R020", MethodTwoBody, 0, 365, 100)
	require.NoError(t, err)

	assert.Equal(t, "J96R020", resp.Designation)
	require.Len(t, resp.Trajectory, 2)
	assert.Equal(t, 365.0, resp.Trajectory[1].DaysFromEpoch)
	assert.Equal(t, -0.4, resp.Trajectory[1].Position.X)
	assert.Equal(t, 2.16, resp.Trajectory[1].SunDistance)

	req := mock.LastRequest()
	require.NotNil(t, req)
	assert.Equal(t, "/comets/J96R020/trajectory", req.URL.Path)
	assert.Equal(t, "365", req.URL.Query().Get("days"))
	assert.Equal(t, "100", req.URL.Query().Get("points"))
	assert.Equal(t, "twobody", req.URL.Query().Get("method"))
	assert.Empty(t, req.URL.Query().Get("start_time"), "zero start means service default")
}

func TestClient_FetchTrajectory_StartTimeForwarded(t *testing.T) {
	mock := httputil.NewMockHTTPClient()
	mock.AddResponse(200, trajectoryJSON)
	client := NewClient("http://svc.test", mock)

	_, err := client.FetchTrajectory(context.Background(), "1P", MethodNBody, 2460365, 365, 100)
	require.NoError(t, err)

	q := mock.LastRequest().URL.Query()
	assert.Equal(t, "2460365", q.Get("start_time"))
	assert.Equal(t, "nbody", q.Get("method"))
}

func TestClient_FetchTrajectory_ServiceError(t *testing.T) {
	mock := httputil.NewMockHTTPClient()
	mock.AddResponse(404, `{"detail": "Comet XX not found"}`)
	client := NewClient("http://svc.test", mock)

	_, err := client.FetchTrajectory(context.Background(), "XX", MethodTwoBody, 0, 365, 100)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Comet XX not found")
}

func TestClient_FetchTrajectory_TransportError(t *testing.T) {
	mock := httputil.NewMockHTTPClient()
	mock.AddErrorResponse(errors.New("connection refused"))
	client := NewClient("http://svc.test", mock)

	_, err := client.FetchTrajectory(context.Background(), "1P", MethodTwoBody, 0, 365, 100)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestClient_FetchBatch(t *testing.T) {
	mock := httputil.NewMockHTTPClient()
	mock.AddResponse(200, `{
		"trajectories": {
			"A": {"designation": "A", "method": "twobody", "days": 365, "points": 1,
				"trajectory": [{"time": 2460000.0, "days_from_epoch": 0, "position": {"x": 1, "y": 0, "z": 0}, "distance_from_sun": 1}]}
		},
		"errors": {"B": "No orbital elements"}
	}`)
	client := NewClient("http://svc.test", mock)

	resp, err := client.FetchBatch(context.Background(), BatchRequest{
		ObjectIDs: []string{"A", "B"},
		Days:      365,
		Points:    100,
		Method:    MethodTwoBody,
		Parallel:  true,
	})
	require.NoError(t, err)

	require.Contains(t, resp.Trajectories, "A")
	assert.Len(t, resp.Trajectories["A"].Trajectory, 1)
	assert.Equal(t, "No orbital elements", resp.Errors["B"])

	// Request body carries the batch fields.
	req := mock.LastRequest()
	assert.Equal(t, "/trajectories/batch", req.URL.Path)
	body, _ := io.ReadAll(req.Body)
	assert.Contains(t, string(body), `"object_ids":["A","B"]`)
	assert.Contains(t, string(body), `"parallel":true`)
}

func TestClient_FetchBatch_NilMapsNormalized(t *testing.T) {
	mock := httputil.NewMockHTTPClient()
	mock.AddResponse(200, `{}`)
	client := NewClient("http://svc.test", mock)

	resp, err := client.FetchBatch(context.Background(), BatchRequest{ObjectIDs: []string{"A"}})
	require.NoError(t, err)
	assert.NotNil(t, resp.Trajectories)
	assert.NotNil(t, resp.Errors)
}

func TestClient_FetchComets(t *testing.T) {
	mock := httputil.NewMockHTTPClient()
	mock.AddResponse(200, `{
		"total": 1200, "count": 1,
		"comets": [{
			"designation": "1P", "name": "Halley", "orbit_type": "P", "periodic_number": 1,
			"orbital_elements": {
				"semi_major_axis": 17.9, "eccentricity": 0.967,
				"inclination_deg": 162.2, "longitude_ascending_node_deg": 58.4,
				"argument_of_perihelion_deg": 111.3, "mean_anomaly_deg": 38.3,
				"epoch": 2449400.5
			}
		}]
	}`)
	client := NewClient("http://svc.test", mock)

	list, err := client.FetchComets(context.Background(), 100)
	require.NoError(t, err)

	assert.Equal(t, 1200, list.Total)
	require.Len(t, list.Comets, 1)

	halley := list.Comets[0]
	assert.Equal(t, "1P", halley.Designation)
	assert.True(t, halley.IsPeriodic())
	require.NotNil(t, halley.Elements)
	assert.Equal(t, 17.9, halley.Elements.SemiMajorAxis)
	// Wire angles are degrees; stored elements are radians.
	assert.InDelta(t, 2.8312, halley.Elements.Inclination, 1e-3)

	assert.Equal(t, "100", mock.LastRequest().URL.Query().Get("limit"))
}

func TestClient_FetchObjectsBatch(t *testing.T) {
	mock := httputil.NewMockHTTPClient()
	mock.AddResponse(200, `{"total": 3, "count": 0, "comets": []}`)
	client := NewClient("http://svc.test", mock)

	list, err := client.FetchObjectsBatch(context.Background(), ObjectsQuery{
		Category: "comets",
		Limit:    50,
		Filters:  map[string]string{"orbit_type": "P"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, list.Total)

	req := mock.LastRequest()
	assert.Equal(t, "/objects/batch", req.URL.Path)
	body, _ := io.ReadAll(req.Body)
	assert.Contains(t, string(body), `"category":"comets"`)
}

func TestReadErrorDetail(t *testing.T) {
	assert.Equal(t, "boom", readErrorDetail(strings.NewReader(`{"detail":"boom"}`)))
	assert.Equal(t, "bad", readErrorDetail(strings.NewReader(`{"error":"bad"}`)))
	assert.Equal(t, "plain text", readErrorDetail(strings.NewReader("plain text")))
	assert.Equal(t, "no detail", readErrorDetail(strings.NewReader("")))
}

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod("twobody")
	require.NoError(t, err)
	assert.Equal(t, MethodTwoBody, m)

	m, err = ParseMethod("nbody")
	require.NoError(t, err)
	assert.Equal(t, MethodNBody, m)

	_, err = ParseMethod("magic")
	assert.Error(t, err)
}
