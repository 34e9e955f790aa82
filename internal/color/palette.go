// Package color derives stable display colors for tags.
package color

import (
	"fmt"
	"hash/fnv"
	"math"
)

// Saturation and lightness shared by every generated color. Only the hue
// varies, so tags sit together visually next to hobby colors.
const (
	saturation = 0.55
	lightness  = 0.55
)

// ForKey returns a "#RRGGBB" color derived from key. The same key always
// yields the same color.
func ForKey(key string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	hue := float64(h.Sum32() % 360)

	r, g, b := hslToRGB(hue, saturation, lightness)
	return fmt.Sprintf("#%02X%02X%02X", r, g, b)
}

// hslToRGB converts hue in degrees and saturation/lightness in [0,1] to RGB.
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	if s == 0 {
		v := uint8(math.Round(l * 255))
		return v, v, v
	}

	h /= 360
	q := l + s - l*s
	if l < 0.5 {
		q = l * (1 + s)
	}
	p := 2*l - q

	to8 := func(t float64) uint8 {
		return uint8(math.Round(hueToRGB(p, q, t) * 255))
	}
	return to8(h + 1.0/3), to8(h), to8(h - 1.0/3)
}

func hueToRGB(p, q, t float64) float64 {
	switch {
	case t < 0:
		t++
	case t > 1:
		t--
	}
	switch {
	case t < 1.0/6:
		return p + (q-p)*6*t
	case t < 1.0/2:
		return q
	case t < 2.0/3:
		return p + (q-p)*(2.0/3-t)*6
	default:
		return p
	}
}
