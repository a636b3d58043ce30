package heatmap

import (
	"fmt"
	"math"
)

// DefaultHeatCap is the heat value at which the color scale saturates.
const DefaultHeatCap = 1000.0

// Color is an sRGB display color
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// Hex renders the color as a lowercase #rrggbb string
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// RGB renders the color as a CSS rgb(r,g,b) string
func (c Color) RGB() string {
	return fmt.Sprintf("rgb(%d,%d,%d)", c.R, c.G, c.B)
}

// GradientStop anchors a color at a relative position in [0,1]
type GradientStop struct {
	Position float64 `json:"position"`
	Color    Color   `json:"color"`
}

// heatStops is the fixed pale-yellow to deep-red gradient used for
// location heat. Positions are relative to the saturation cap.
var heatStops = []GradientStop{
	{Position: 0.00, Color: Color{R: 0xff, G: 0xff, B: 0xcc}},
	{Position: 0.25, Color: Color{R: 0xfe, G: 0xd9, B: 0x76}},
	{Position: 0.50, Color: Color{R: 0xfd, G: 0x8d, B: 0x3c}},
	{Position: 0.75, Color: Color{R: 0xe3, G: 0x1a, B: 0x1c}},
	{Position: 1.00, Color: Color{R: 0x80, G: 0x00, B: 0x26}},
}

// Scale maps scalar heat values to display colors. The zero value is not
// usable; construct with NewScale.
type Scale struct {
	cap   float64
	stops []GradientStop
}

// NewScale returns a color scale saturating at cap. A cap <= 0 falls back
// to DefaultHeatCap.
func NewScale(cap float64) *Scale {
	if cap <= 0 {
		cap = DefaultHeatCap
	}
	return &Scale{cap: cap, stops: heatStops}
}

// Cap returns the saturation point of the scale
func (s *Scale) Cap() float64 {
	return s.cap
}

// Stops returns the gradient stops, for legend rendering
func (s *Scale) Stops() []GradientStop {
	out := make([]GradientStop, len(s.stops))
	copy(out, s.stops)
	return out
}

// ColorOf maps a heat value to its display color. Defined for all inputs:
// negative values are treated as zero, values at or above the cap saturate
// at the last stop. A value of exactly zero returns the first stop, the
// designed "no activity" color.
func (s *Scale) ColorOf(value float64) Color {
	if value <= 0 {
		return s.stops[0].Color
	}

	ratio := value / s.cap
	if ratio >= 1 {
		return s.stops[len(s.stops)-1].Color
	}

	for i := 0; i < len(s.stops)-1; i++ {
		lo, hi := s.stops[i], s.stops[i+1]
		if ratio >= lo.Position && ratio <= hi.Position {
			t := (ratio - lo.Position) / (hi.Position - lo.Position)
			return Color{
				R: lerpChannel(lo.Color.R, hi.Color.R, t),
				G: lerpChannel(lo.Color.G, hi.Color.G, t),
				B: lerpChannel(lo.Color.B, hi.Color.B, t),
			}
		}
	}

	return s.stops[len(s.stops)-1].Color
}

func lerpChannel(start, end uint8, t float64) uint8 {
	v := math.Round(float64(start) + (float64(end)-float64(start))*t)
	if v < 0 {
		v = 0
	}
	if v > 255 {
		v = 255
	}
	return uint8(v)
}
