package config

import (
	"math"
	"sort"

	"github.com/san-kum/spinsim/internal/field"
)

type Preset struct {
	Description string
	Segments    []field.Segment
}

var Presets = map[string]Preset{
	"fid": {
		Description: "90 degree hard pulse, then free precession at Bz = 5",
		Segments: []field.Segment{
			{Name: "excite", Duration: 1, RFAmp: math.Pi / 2},
			{Name: "readout", Duration: 1, Offset: 5},
		},
	},
	"spin_echo": {
		Description: "90x - tau - 180y - 2 tau, echo at the end of the second delay",
		Segments: []field.Segment{
			{Name: "excite", Duration: 0.1, RFAmp: 5 * math.Pi},
			{Name: "tau", Duration: 2},
			{Name: "refocus", Duration: 0.1, RFAmp: 10 * math.Pi, RFPhase: math.Pi / 2},
			{Name: "echo", Duration: 4},
		},
	},
	"gradient_echo": {
		Description: "90 degree pulse, dephasing x gradient, rephasing x gradient",
		Segments: []field.Segment{
			{Name: "excite", Duration: 0.1, RFAmp: 5 * math.Pi},
			{Name: "dephase", Duration: 1, Gradient: [3]float64{-10, 0, 0}},
			{Name: "rephase", Duration: 2, Gradient: [3]float64{10, 0, 0}},
		},
	},
	"inversion_recovery": {
		Description: "180 degree inversion, T1 recovery, 90 degree readout",
		Segments: []field.Segment{
			{Name: "invert", Duration: 0.1, RFAmp: 10 * math.Pi},
			{Name: "recover", Duration: 3},
			{Name: "excite", Duration: 0.1, RFAmp: 5 * math.Pi},
			{Name: "readout", Duration: 2},
		},
	},
}

// GetPreset returns a copy of the named preset's segments, or nil.
func GetPreset(name string) []field.Segment {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	return append([]field.Segment(nil), p.Segments...)
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
