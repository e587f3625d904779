package utils

import (
	"math"
	"path"
	"strconv"
	"strings"
)

// SpeedFromPath derives a speed in km/h from the numeric suffix the capture
// system embeds in file names: the last 4 digits before the extension hold
// the speed with two implied decimals ("ride_0000_4210.jpg" -> 42.10).
// Returns 0 when no such suffix exists.
func SpeedFromPath(storagePath string) float64 {
	name := path.Base(storagePath)
	name = strings.TrimSuffix(name, path.Ext(name))

	if len(name) < 4 {
		return 0
	}

	suffix := name[len(name)-4:]
	raw, err := strconv.Atoi(suffix)
	if err != nil || raw < 0 {
		return 0
	}
	return float64(raw) / 100
}

// ResolveSpeed prefers the recorded speed when it is positive and finite,
// falling back to the file-name heuristic.
func ResolveSpeed(recorded *float64, storagePath string) float64 {
	if recorded != nil {
		s := *recorded
		if s > 0 && !math.IsInf(s, 0) && !math.IsNaN(s) {
			return s
		}
	}
	return SpeedFromPath(storagePath)
}
