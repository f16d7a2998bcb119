package autopilot

import "github.com/satindergrewal/soundscape/internal/palette"

// SchemeGraph lists which color schemes may follow each other. Transitions
// only follow edges, so the picture never jumps between the two most
// different looks.
var SchemeGraph = map[palette.Scheme][]palette.Scheme{
	palette.Classic: {palette.Heat, palette.Pulse},
	palette.Heat:    {palette.Classic, palette.Rainbow, palette.Pulse},
	palette.Rainbow: {palette.Heat, palette.Pulse},
	palette.Pulse:   {palette.Classic, palette.Heat, palette.Rainbow},
}

// Neighbors returns the schemes reachable from s in one transition.
func Neighbors(s palette.Scheme) []palette.Scheme {
	return SchemeGraph[s]
}
