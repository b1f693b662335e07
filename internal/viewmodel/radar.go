package viewmodel

import (
	"fmt"
	"math"
	"strings"
)

const (
	chartSize   = 240
	chartRadius = 90.0
	labelOffset = 18.0
)

// AxisLine is the geometry of one spoke of the competency map
type AxisLine struct {
	Label  string  `json:"label"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	LabelX float64 `json:"label_x"`
	LabelY float64 `json:"label_y"`
	Anchor string  `json:"anchor"`
}

// RadarChart is the SVG geometry of the competency map
type RadarChart struct {
	Size    int        `json:"size"`
	Center  float64    `json:"center"`
	Polygon string     `json:"polygon"`
	Axes    []AxisLine `json:"axes"`
	Rings   []string   `json:"rings"`
}

// NewRadarChart lays the series out clockwise from twelve o'clock
func NewRadarChart(series []RadarPoint) RadarChart {
	center := float64(chartSize) / 2
	n := len(series)

	chart := RadarChart{
		Size:   chartSize,
		Center: center,
		Axes:   make([]AxisLine, n),
	}
	if n == 0 {
		return chart
	}

	points := make([]string, n)
	for i, p := range series {
		angle := axisAngle(i, n)

		ratio := 0.0
		if p.Max > 0 {
			ratio = float64(p.Value) / float64(p.Max)
		}
		points[i] = point(center, chartRadius*ratio, angle)

		x, y := polar(center, chartRadius, angle)
		lx, ly := polar(center, chartRadius+labelOffset, angle)
		chart.Axes[i] = AxisLine{
			Label:  p.Label,
			X:      x,
			Y:      y,
			LabelX: lx,
			LabelY: ly,
			Anchor: anchor(lx, center),
		}
	}
	chart.Polygon = strings.Join(points, " ")

	for _, step := range []float64{0.25, 0.5, 0.75, 1} {
		ring := make([]string, n)
		for i := range series {
			ring[i] = point(center, chartRadius*step, axisAngle(i, n))
		}
		chart.Rings = append(chart.Rings, strings.Join(ring, " "))
	}

	return chart
}

func axisAngle(i, n int) float64 {
	return -math.Pi/2 + 2*math.Pi*float64(i)/float64(n)
}

func polar(center, r, angle float64) (float64, float64) {
	x := center + r*math.Cos(angle)
	y := center + r*math.Sin(angle)
	return math.Round(x*10) / 10, math.Round(y*10) / 10
}

func point(center, r, angle float64) string {
	x, y := polar(center, r, angle)
	return fmt.Sprintf("%.1f,%.1f", x, y)
}

func anchor(x, center float64) string {
	switch {
	case x < center-1:
		return "end"
	case x > center+1:
		return "start"
	default:
		return "middle"
	}
}
