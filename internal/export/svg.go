// Package export renders stored signals as standalone SVG line plots.
package export

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/san-kum/spinsim/internal/signal"
)

var strokeColors = map[string]string{
	"mx":  "#ff4444",
	"my":  "#ffcc00",
	"mz":  "#00ccff",
	"mxy": "#00ff88",
}

type bounds struct {
	minX, maxX, minY, maxY float64
}

// pad widens b by 10% on each side and keeps both ranges non-zero.
func (b bounds) pad() bounds {
	rangeX := b.maxX - b.minX
	rangeY := b.maxY - b.minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	return bounds{
		minX: b.minX - rangeX*0.1,
		maxX: b.maxX + rangeX*0.1,
		minY: b.minY - rangeY*0.1,
		maxY: b.maxY + rangeY*0.1,
	}
}

// SignalSVG plots the named components of sig against time on shared axes.
func SignalSVG(sig *signal.Signal, components []string, width, height int) (string, error) {
	if sig.Len() < 2 {
		return "", fmt.Errorf("need at least 2 samples, got %d", sig.Len())
	}

	series := make([][]float64, len(components))
	b := bounds{minX: sig.T[0], maxX: sig.T[sig.Len()-1], minY: 0, maxY: 0}
	for i, name := range components {
		data, err := sig.Component(name)
		if err != nil {
			return "", err
		}
		for _, v := range data {
			b.minY = min(b.minY, v)
			b.maxY = max(b.maxY, v)
		}
		series[i] = data
	}
	b = b.pad()

	px := func(t float64) float64 { return (t - b.minX) / (b.maxX - b.minX) * float64(width) }
	py := func(v float64) float64 { return float64(height) - (v-b.minY)/(b.maxY-b.minY)*float64(height) }

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<line x1="0" y1="%.1f" x2="%d" y2="%.1f" stroke="#444466" stroke-width="1"/>
`, width, height, width, height, py(0), width, py(0))

	for i, data := range series {
		color, ok := strokeColors[components[i]]
		if !ok {
			color = "#ffffff"
		}
		fmt.Fprintf(&sb, `<path id="%s" fill="none" stroke="%s" stroke-width="1.5" d="`, components[i], color)
		for k, v := range data {
			if k == 0 {
				fmt.Fprintf(&sb, "M%.1f,%.1f", px(sig.T[k]), py(v))
			} else {
				fmt.Fprintf(&sb, " L%.1f,%.1f", px(sig.T[k]), py(v))
			}
		}
		sb.WriteString("\"/>\n")
	}

	sb.WriteString("</svg>\n")
	return sb.String(), nil
}

// WriteSVG writes the plot to path; "" and "-" mean stdout.
func WriteSVG(path string, sig *signal.Signal, components []string, width, height int) error {
	svg, err := SignalSVG(sig, components, width, height)
	if err != nil {
		return err
	}
	if path == "" || path == "-" {
		_, err = io.WriteString(os.Stdout, svg)
		return err
	}
	return os.WriteFile(path, []byte(svg), 0644)
}
