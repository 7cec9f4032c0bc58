// Package export renders a simulated trajectory against observed
// points as a standalone SVG.
package export

import (
	"fmt"
	"strings"
)

type Series struct {
	Times  []float64
	Values []float64
}

// SVG draws the simulated series as a polyline and the observed series
// as circles, sharing one coordinate frame with 10% padding.
func SVG(simulated, observed Series, width, height int) string {
	if len(simulated.Times) < 2 {
		return ""
	}

	minX, maxX := bounds(simulated.Times, observed.Times)
	minY, maxY := bounds(simulated.Values, observed.Values)

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	px := func(x float64) float64 { return (x - minX) / rangeX * float64(width) }
	py := func(y float64) float64 { return float64(height) - (y-minY)/rangeY*float64(height) }

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<path fill="none" stroke="#00ff00" stroke-width="1.5" d="M`,
		width, height, width, height))

	for i := range simulated.Times {
		x := px(simulated.Times[i])
		y := py(simulated.Values[i])
		if i == 0 {
			sb.WriteString(fmt.Sprintf("%.1f,%.1f", x, y))
		} else {
			sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", x, y))
		}
	}
	sb.WriteString("\"/>\n")

	for i := range observed.Times {
		sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="3" fill="#ff8800"/>
`, px(observed.Times[i]), py(observed.Values[i])))
	}

	sb.WriteString("</svg>")
	return sb.String()
}

func bounds(series ...[]float64) (min, max float64) {
	first := true
	for _, s := range series {
		for _, v := range s {
			if first {
				min, max = v, v
				first = false
				continue
			}
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}
	}
	return min, max
}
