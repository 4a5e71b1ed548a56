package music

import "sort"

// Bands is a 15 band equalizer, gains from -0.25 to 1.0.
type Bands [15]float64

type Timescale struct {
	Speed float64
	Pitch float64
	Rate  float64
}

type Distortion struct {
	SinOffset float64
	SinScale  float64
	CosOffset float64
	CosScale  float64
	Offset    float64
	Scale     float64
}

// Filter is a named audio effect preset. Unset effects are left off.
type Filter struct {
	Name        string
	Description string
	Equalizer   *Bands
	Timescale   *Timescale
	RotationHz  float64
	Distortion  *Distortion
}

// NoFilterDescription is shown when no filter is active.
const NoFilterDescription = "Ten filtr nie posiada opisu."

// Flat is the reset filter.
var Flat = Filter{Name: "flat", Equalizer: &Bands{}}

var filters = map[string]Filter{
	"boost": {
		Name:        "boost",
		Description: "Boosts the bass.",
		Equalizer:   &Bands{-0.075, .125, .125, .1, .1, .05, .075, 0, 0, 0, 0, 0, .125, .15, .05},
	},
	"destroy1": {
		Name:        "destroy1",
		Description: "Destroy the audio. 1",
		Distortion:  &Distortion{Scale: .5, SinOffset: 0, SinScale: .5, CosOffset: 0, CosScale: .5},
	},
	"destroy2": {
		Name:        "destroy2",
		Description: "Destroy the audio. 2",
		Distortion:  &Distortion{Scale: 1.5, SinOffset: .5, SinScale: 1.5, CosOffset: .5, CosScale: 1.5},
	},
	"destroy3": {
		Name:        "destroy3",
		Description: "Destroy the audio. 3",
		Distortion:  &Distortion{Scale: 1, SinOffset: 1, SinScale: 1, CosOffset: 1, CosScale: 1},
	},
	"spin": {
		Name:        "spin",
		Description: "Guess what this does.",
		RotationHz:  0.5,
	},
	"nightcore": {
		Name:        "nightcore",
		Description: "For people with mental issues.",
		Timescale:   &Timescale{Pitch: 1.25, Speed: 1.15, Rate: 1.15},
	},
	"metal": {
		Name:        "metal",
		Description: "Heavier mids and highs.",
		Equalizer:   &Bands{0, .1, .1, .15, .13, .1, 0, .125, .175, .175, .125, .125, .1, .075, 0},
	},
	"piano": {
		Name:        "piano",
		Description: "Brighter keys, softer bass.",
		Equalizer:   &Bands{-.25, -.25, -.125, 0, .25, .25, 0, -.25, -.25, 0, 0, .5, .25, -.025, 0},
	},
}

// LookupFilter returns the preset called name.
func LookupFilter(name string) (Filter, bool) {
	f, ok := filters[name]
	return f, ok
}

// Filters returns every preset sorted by name.
func Filters() []Filter {
	out := make([]Filter, 0, len(filters))
	for _, f := range filters {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
