// orbit-chart fetches a trajectory from the service and renders it as a
// standalone HTML page: heliocentric distance over time plus the orbit path
// projected onto the ecliptic plane. Debugging aid for checking trajectory
// data without the full viewer.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"net/http"
	"os"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/orbitview/orbitview/internal/httputil"
	"github.com/orbitview/orbitview/internal/trajectory"
)

var (
	serviceURL = flag.String("service", "http://localhost:8000", "Trajectory service base URL")
	object     = flag.String("object", "", "Object designation (required)")
	methodFlag = flag.String("method", "twobody", "Propagation method (twobody or nbody)")
	days       = flag.Float64("days", 365, "Trajectory span in days")
	points     = flag.Int("points", 365, "Number of samples")
	outPath    = flag.String("out", "orbit.html", "Output HTML file")
	timeout    = flag.Duration("timeout", 30*time.Second, "Fetch timeout")
)

func main() {
	flag.Parse()

	if *object == "" {
		log.Fatal("-object is required")
	}
	method, err := trajectory.ParseMethod(*methodFlag)
	if err != nil {
		log.Fatal(err)
	}

	client := trajectory.NewClient(*serviceURL,
		httputil.NewStandardClient(&http.Client{Timeout: *timeout}))

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	resp, err := client.FetchTrajectory(ctx, *object, method, 0, *days, *points)
	if err != nil {
		log.Fatalf("failed to fetch trajectory: %v", err)
	}
	if len(resp.Trajectory) == 0 {
		log.Fatalf("service returned no samples for %s", *object)
	}

	page := components.NewPage()
	page.SetPageTitle(fmt.Sprintf("%s trajectory", *object))
	page.AddCharts(
		distanceChart(resp),
		pathChart(resp),
	)

	f, err := os.Create(*outPath)
	if err != nil {
		log.Fatalf("failed to create output file: %v", err)
	}
	defer f.Close()

	if err := page.Render(f); err != nil {
		log.Fatalf("failed to render charts: %v", err)
	}
	log.Printf("wrote %s (%d samples)", *outPath, len(resp.Trajectory))
}

func title(resp *trajectory.TrajectoryResponse) string {
	if resp.Name != "" {
		return fmt.Sprintf("%s (%s)", resp.Designation, resp.Name)
	}
	return resp.Designation
}

// distanceChart plots heliocentric distance against days from epoch.
func distanceChart(resp *trajectory.TrajectoryResponse) *charts.Line {
	xAxis := make([]string, 0, len(resp.Trajectory))
	data := make([]opts.LineData, 0, len(resp.Trajectory))
	for _, s := range resp.Trajectory {
		xAxis = append(xAxis, fmt.Sprintf("%.0f", s.DaysFromEpoch))
		data = append(data, opts.LineData{Value: s.SunDistance})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Theme: "dark", Width: "900px", Height: "450px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    title(resp) + ": heliocentric distance",
			Subtitle: fmt.Sprintf("method=%s span=%.0fd samples=%d", resp.Method, resp.Days, len(resp.Trajectory)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "days from epoch"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "r (AU)"}),
	)
	line.SetXAxis(xAxis)
	line.AddSeries("distance", data, charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))
	return line
}

// pathChart projects the trajectory onto the ecliptic plane.
func pathChart(resp *trajectory.TrajectoryResponse) *charts.Scatter {
	data := make([]opts.ScatterData, 0, len(resp.Trajectory))
	maxAbs := 0.0
	for _, s := range resp.Trajectory {
		x, y := s.Position.X, s.Position.Y
		if math.Abs(x) > maxAbs {
			maxAbs = math.Abs(x)
		}
		if math.Abs(y) > maxAbs {
			maxAbs = math.Abs(y)
		}
		data = append(data, opts.ScatterData{Value: []interface{}{x, y, s.DaysFromEpoch}})
	}

	pad := maxAbs * 1.05
	if pad == 0 {
		pad = 1.0
	}
	lastDay := resp.Trajectory[len(resp.Trajectory)-1].DaysFromEpoch
	if lastDay == 0 {
		lastDay = 1
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Theme: "dark", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: title(resp) + ": ecliptic-plane path"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: -pad, Max: pad, Name: "X (AU)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: -pad, Max: pad, Name: "Y (AU)", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(lastDay),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: []string{"#440154", "#31688e", "#35b779", "#fde725"}},
		}),
	)
	scatter.AddSeries("path", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}))
	return scatter
}
