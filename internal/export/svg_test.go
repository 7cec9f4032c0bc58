package export

import (
	"strings"
	"testing"
)

func TestSVGContainsSeries(t *testing.T) {
	sim := Series{
		Times:  []float64{0, 10, 20, 30},
		Values: []float64{290, 250, 200, 160},
	}
	obs := Series{
		Times:  []float64{0, 20},
		Values: []float64{292, 198},
	}

	svg := SVG(sim, obs, 640, 480)

	if !strings.HasPrefix(svg, `<?xml`) || !strings.HasSuffix(svg, "</svg>") {
		t.Error("not a complete SVG document")
	}
	if !strings.Contains(svg, "<path") {
		t.Error("missing simulated polyline")
	}
	if strings.Count(svg, "<circle") != 2 {
		t.Errorf("got %d observation markers, want 2", strings.Count(svg, "<circle"))
	}
}

func TestSVGTooFewPoints(t *testing.T) {
	if svg := SVG(Series{Times: []float64{0}, Values: []float64{1}}, Series{}, 100, 100); svg != "" {
		t.Error("expected empty output for a single point")
	}
}
