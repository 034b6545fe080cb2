package report

import (
	"fmt"
	"html/template"
	"math"
	"strings"

	"github.com/servermedic/medic/internal/check"
)

// Color bands shared by every chart.
const (
	colorCritical = "#dc3545"
	colorWarning  = "#ffc107"
	colorOK       = "#28a745"
)

// Metrics are the headline gauges extracted from a report for charting.
type Metrics struct {
	RAMPercent  float64
	SwapPercent float64
	DiskPercent float64
	LoadPerCPU  float64
}

// MetricsFromReport pulls the system gauges out of a report's details. Disk
// takes the fullest filesystem. Missing findings leave zeros.
func MetricsFromReport(r *check.Report) Metrics {
	var m Metrics
	system, ok := r.Checks["system"]
	if !ok || system.Failed() {
		return m
	}

	for _, res := range system.Results {
		switch {
		case res.Name == "memory_usage":
			m.RAMPercent = detailFloat(res.Details, "used_percent")
		case res.Name == "swap_usage":
			m.SwapPercent = detailFloat(res.Details, "used_percent")
		case res.Name == "load_average":
			m.LoadPerCPU = detailFloat(res.Details, "load_per_cpu")
		case strings.HasPrefix(res.Name, "disk_space_"):
			if pct := detailFloat(res.Details, "use_percent"); pct > m.DiskPercent {
				m.DiskPercent = pct
			}
		}
	}
	return m
}

// detailFloat reads a numeric detail value. JSON round-trips turn ints into
// float64, so both shapes are accepted.
func detailFloat(details check.Details, key string) float64 {
	switch v := details[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}

// severityDonut renders the OK/warning/critical shares as an SVG donut with
// the check total in the hole.
func severityDonut(critical, warning, ok int) template.HTML {
	total := critical + warning + ok
	denom := total
	if denom == 0 {
		denom = 1
	}

	criticalAngle := float64(critical) / float64(denom) * 360
	warningAngle := float64(warning) / float64(denom) * 360

	var b strings.Builder
	b.WriteString(`<svg width="200" height="200" viewBox="0 0 200 200" xmlns="http://www.w3.org/2000/svg">`)
	b.WriteString(`<circle cx="100" cy="100" r="80" fill="none" stroke="#e0e0e0" stroke-width="40"/>`)
	if critical > 0 {
		b.WriteString(donutSegment(100, 100, 80, 40, 0, criticalAngle, colorCritical))
	}
	if warning > 0 {
		b.WriteString(donutSegment(100, 100, 80, 40, criticalAngle, criticalAngle+warningAngle, colorWarning))
	}
	if ok > 0 {
		b.WriteString(donutSegment(100, 100, 80, 40, criticalAngle+warningAngle, 360, colorOK))
	}
	fmt.Fprintf(&b, `<text x="100" y="95" text-anchor="middle" font-size="24" font-weight="bold" fill="#333">%d</text>`, total)
	b.WriteString(`<text x="100" y="115" text-anchor="middle" font-size="12" fill="#666">checks</text>`)
	b.WriteString(`</svg>`)
	return template.HTML(b.String())
}

// donutSegment draws one annular segment. A full-circle segment is clamped
// just short of 360 degrees; an arc whose endpoints coincide renders as
// nothing.
func donutSegment(cx, cy, r, width, startAngle, endAngle float64, fill string) string {
	if endAngle-startAngle >= 360 {
		endAngle = startAngle + 359.9
	}

	startRad := (startAngle - 90) * math.Pi / 180
	endRad := (endAngle - 90) * math.Pi / 180

	outer := r + width/2
	inner := r - width/2

	x1 := cx + outer*math.Cos(startRad)
	y1 := cy + outer*math.Sin(startRad)
	x2 := cx + outer*math.Cos(endRad)
	y2 := cy + outer*math.Sin(endRad)
	x3 := cx + inner*math.Cos(endRad)
	y3 := cy + inner*math.Sin(endRad)
	x4 := cx + inner*math.Cos(startRad)
	y4 := cy + inner*math.Sin(startRad)

	largeArc := 0
	if endAngle-startAngle > 180 {
		largeArc = 1
	}

	return fmt.Sprintf(`<path d="M %.2f,%.2f A %.2f,%.2f 0 %d,1 %.2f,%.2f L %.2f,%.2f A %.2f,%.2f 0 %d,0 %.2f,%.2f Z" fill="%s" opacity="0.9"/>`,
		x1, y1, outer, outer, largeArc, x2, y2, x3, y3, inner, inner, largeArc, x4, y4, fill)
}

// metricsChart renders the RAM/swap/disk/load gauges as horizontal bars.
func metricsChart(m Metrics) template.HTML {
	var b strings.Builder
	b.WriteString(`<svg width="400" height="250" xmlns="http://www.w3.org/2000/svg">`)
	b.WriteString(`<rect width="400" height="250" fill="#f8f9fa" rx="5"/>`)
	b.WriteString(`<text x="200" y="25" text-anchor="middle" font-size="16" font-weight="bold" fill="#333">System Metrics</text>`)

	writeBar(&b, 50, "RAM", m.RAMPercent, bandColor(m.RAMPercent), fmt.Sprintf("%.1f%%", m.RAMPercent))
	writeBar(&b, 90, "Swap", m.SwapPercent, bandColor(m.SwapPercent), fmt.Sprintf("%.1f%%", m.SwapPercent))
	writeBar(&b, 130, "Disk", m.DiskPercent, bandColor(m.DiskPercent), fmt.Sprintf("%.1f%%", m.DiskPercent))
	writeBar(&b, 170, "CPU load", m.LoadPerCPU*10, loadColor(m.LoadPerCPU), fmt.Sprintf("%.2f", m.LoadPerCPU))

	b.WriteString(`<text x="20" y="220" font-size="10" fill="#666">`)
	fmt.Fprintf(&b, `<tspan fill="%s">● OK</tspan>`, colorOK)
	fmt.Fprintf(&b, `<tspan x="80" fill="%s">● Warning</tspan>`, colorWarning)
	fmt.Fprintf(&b, `<tspan x="160" fill="%s">● Critical</tspan>`, colorCritical)
	b.WriteString(`</text>`)
	b.WriteString(`</svg>`)
	return template.HTML(b.String())
}

// writeBar draws one labeled gauge row. pct drives the fill width on a
// 0 to 100 scale and is clamped to the track.
func writeBar(b *strings.Builder, y int, label string, pct float64, fill, value string) {
	width := math.Min(pct*3, 300)
	if width < 0 {
		width = 0
	}
	fmt.Fprintf(b, `<text x="20" y="%d" font-size="12" fill="#333">%s</text>`, y+15, label)
	fmt.Fprintf(b, `<rect x="80" y="%d" width="300" height="20" fill="#e9ecef" rx="2"/>`, y)
	fmt.Fprintf(b, `<rect x="80" y="%d" width="%.1f" height="20" fill="%s" fill-opacity="0.8" rx="2"/>`, y, width, fill)
	fmt.Fprintf(b, `<text x="385" y="%d" text-anchor="end" font-size="14" font-weight="bold" fill="#333">%s</text>`, y+15, value)
}

// issueTimeline lists the top issues with score-colored markers.
func issueTimeline(issues []Issue) template.HTML {
	if len(issues) == 0 {
		return ""
	}
	if len(issues) > 5 {
		issues = issues[:5]
	}

	height := 50 + len(issues)*40
	var b strings.Builder
	fmt.Fprintf(&b, `<svg width="500" height="%d" xmlns="http://www.w3.org/2000/svg">`, height)
	fmt.Fprintf(&b, `<rect width="500" height="%d" fill="#f8f9fa" rx="5"/>`, height)
	b.WriteString(`<text x="250" y="30" text-anchor="middle" font-size="16" font-weight="bold" fill="#333">Top Priority Issues</text>`)

	y := 60
	for i, issue := range issues {
		fmt.Fprintf(&b, `<circle cx="30" cy="%d" r="8" fill="%s"/>`, y, bandColor(float64(issue.Result.Score)))
		fmt.Fprintf(&b, `<text x="50" y="%d" font-size="12" fill="#333">%d. %s</text>`,
			y+5, i+1, template.HTMLEscapeString(truncate(issue.Result.Name, 40)))
		fmt.Fprintf(&b, `<text x="480" y="%d" text-anchor="end" font-size="11" fill="#666">Score: %d</text>`,
			y+5, issue.Result.Score)
		y += 40
	}
	b.WriteString(`</svg>`)
	return template.HTML(b.String())
}

// bandColor maps a 0 to 100 value onto the severity palette: above 90 is
// critical, above 75 warning, everything else OK.
func bandColor(value float64) string {
	switch {
	case value > 90:
		return colorCritical
	case value > 75:
		return colorWarning
	default:
		return colorOK
	}
}

// loadColor maps per-CPU load onto the palette: above 4 critical, above 2
// warning.
func loadColor(load float64) string {
	switch {
	case load > 4:
		return colorCritical
	case load > 2:
		return colorWarning
	default:
		return colorOK
	}
}
