// ABOUTME: Level-to-color mapping policies
// ABOUTME: Pure functions from spectrum levels to an RGB decision
package colormap

import (
	"fmt"
	"math"

	"github.com/glowsync/glowsync-go/internal/dsp"
)

// Mode selects a color mapping policy. The set is closed: unknown mode names
// fail at parse time, never silently at map time.
type Mode int

const (
	// ModeRGBFrequency maps bass/mid/treble directly onto R/G/B.
	ModeRGBFrequency Mode = iota
	// ModeAmplitude maps overall volume onto all three channels.
	ModeAmplitude
	// ModeRainbowCycle colors by the dominant band via HSV.
	ModeRainbowCycle
	// ModeBassPulse flashes red on strong bass, muted mix otherwise.
	ModeBassPulse
)

var modeNames = map[Mode]string{
	ModeRGBFrequency: "RGB Frequency",
	ModeAmplitude:    "Amplitude",
	ModeRainbowCycle: "Rainbow Cycle",
	ModeBassPulse:    "Bass Pulse",
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode resolves a mode name. Unknown names are a configuration error.
func ParseMode(name string) (Mode, error) {
	for m, n := range modeNames {
		if n == name {
			return m, nil
		}
	}
	return 0, fmt.Errorf("colormap: unknown color mode %q", name)
}

// RGB is one color decision, each channel 0-255.
type RGB struct {
	R, G, B uint8
}

// bassPulseThreshold is the bass level above which Bass Pulse goes full red.
const bassPulseThreshold = 0.6

// Map converts levels to a color under the given mode. Pure, no side effects.
func Map(lv dsp.Levels, mode Mode) RGB {
	switch mode {
	case ModeAmplitude:
		v := channel(lv.Volume * 255.0)
		return RGB{R: v, G: v, B: v}

	case ModeRainbowCycle:
		// Dominant band picks the hue; ties resolve bass, then mid.
		maxLevel := math.Max(lv.Bass, math.Max(lv.Mid, lv.Treble))
		hue := 0.66
		if maxLevel == lv.Bass {
			hue = 0.0
		} else if maxLevel == lv.Mid {
			hue = 0.33
		}
		return hsvToRGB(hue, 1.0, maxLevel)

	case ModeBassPulse:
		if lv.Bass > bassPulseThreshold {
			return RGB{R: 255}
		}
		return RGB{
			R: channel(lv.Bass * 100.0),
			G: channel(lv.Mid * 50.0),
			B: channel(lv.Treble * 150.0),
		}

	default: // ModeRGBFrequency
		return RGB{
			R: channel(lv.Bass * 255.0),
			G: channel(lv.Mid * 255.0),
			B: channel(lv.Treble * 255.0),
		}
	}
}

// hsvToRGB converts via the standard six-sector piecewise formula,
// h/s/v all in [0, 1].
func hsvToRGB(h, s, v float64) RGB {
	c := v * s
	x := c * (1.0 - math.Abs(math.Mod(h*6.0, 2.0)-1.0))
	m := v - c

	var r, g, b float64
	switch {
	case h < 1.0/6.0:
		r, g, b = c, x, 0
	case h < 2.0/6.0:
		r, g, b = x, c, 0
	case h < 3.0/6.0:
		r, g, b = 0, c, x
	case h < 4.0/6.0:
		r, g, b = 0, x, c
	case h < 5.0/6.0:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}

	return RGB{
		R: channel((r + m) * 255.0),
		G: channel((g + m) * 255.0),
		B: channel((b + m) * 255.0),
	}
}

// channel rounds and clamps a float channel value into [0, 255].
func channel(v float64) uint8 {
	rounded := math.Round(v)
	if rounded < 0 {
		return 0
	}
	if rounded > 255 {
		return 255
	}
	return uint8(rounded)
}
