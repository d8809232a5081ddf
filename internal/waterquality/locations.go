package waterquality

import (
	"sort"
	"strings"
	"unicode"
)

// Location is a sampling point on Danau Toba.
type Location struct {
	Name  string  `json:"name"`
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Known bool    `json:"known"`
}

// LakeCenter is the approximate center of Danau Toba.
var LakeCenter = Location{Name: "Danau Toba", Lat: 2.6845, Lon: 98.8756, Known: true}

// unknownLocationSpread is the width in degrees of the box around LakeCenter
// that unknown locations are placed in.
const unknownLocationSpread = 0.1

var samplingLocations = map[string]Location{
	"KLHK11":    {Name: "KLHK11", Lat: 2.6502, Lon: 98.8756, Known: true},
	"KLHK13":    {Name: "KLHK13", Lat: 2.6234, Lon: 98.9012, Known: true},
	"KLHK74":    {Name: "KLHK74", Lat: 2.6891, Lon: 98.8534, Known: true},
	"KLHK75":    {Name: "KLHK75", Lat: 2.6423, Lon: 98.7891, Known: true},
	"KLHK76":    {Name: "KLHK76", Lat: 2.7156, Lon: 98.8123, Known: true},
	"KLHK229":   {Name: "KLHK229", Lat: 2.6789, Lon: 98.9234, Known: true},
	"KLHK230":   {Name: "KLHK230", Lat: 2.5987, Lon: 98.8678, Known: true},
	"SAMOSIR-1": {Name: "SAMOSIR-1", Lat: 2.6645, Lon: 98.8543, Known: true},
	"SAMOSIR":   {Name: "Samosir", Lat: 2.6645, Lon: 98.8543, Known: true},
}

// SamplingLocations returns the catalog of known sampling points sorted by name.
func SamplingLocations() []Location {
	out := make([]Location, 0, len(samplingLocations))
	for _, l := range samplingLocations {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// NormalizeLocationName removes whitespace and upper-cases name so that
// "KLHK 11" and "klhk11" resolve to the same point.
func NormalizeLocationName(name string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToUpper(r)
	}, name)
}

// FindLocation returns the catalog entry for name, if any.
func FindLocation(name string) (Location, bool) {
	l, ok := samplingLocations[NormalizeLocationName(name)]
	return l, ok
}

// LookupLocation resolves a location name to coordinates. Unknown names are
// placed near the lake center using rng and reported with Known false.
func LookupLocation(name string, rng RandSource) Location {
	if l, ok := FindLocation(name); ok {
		return l
	}

	if rng == nil {
		rng = globalRand{}
	}
	return Location{
		Name: name,
		Lat:  LakeCenter.Lat + noise(rng, unknownLocationSpread),
		Lon:  LakeCenter.Lon + noise(rng, unknownLocationSpread),
	}
}
