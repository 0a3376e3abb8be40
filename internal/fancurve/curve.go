package fancurve

import (
	"fmt"
	"math"
)

// Point maps a temperature to a fan duty.
type Point struct {
	TempC float64
	Duty  int
}

// Curve is a piecewise-linear temperature-to-duty mapping with strictly
// increasing temperatures.
type Curve []Point

// NewCurve validates and builds a curve from [temp_c, duty] pairs as they appear in
// the config file.
func NewCurve(points [][]float64) (Curve, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("fancurve: curve must not be empty")
	}
	c := make(Curve, 0, len(points))
	for i, p := range points {
		if len(p) != 2 {
			return nil, fmt.Errorf("fancurve: point %d must be [temp_c, duty]", i)
		}
		duty := int(p[1])
		if duty < 0 || duty > 100 {
			return nil, fmt.Errorf("fancurve: point %d duty %d outside [0,100]", i, duty)
		}
		if i > 0 && p[0] <= c[i-1].TempC {
			return nil, fmt.Errorf("fancurve: temperatures must be strictly increasing (point %d)", i)
		}
		c = append(c, Point{TempC: p[0], Duty: duty})
	}
	return c, nil
}

// Duty evaluates the curve at tempC: flat below the first point, flat above
// the last, linear in between.
func (c Curve) Duty(tempC float64) int {
	if len(c) == 0 {
		return 0
	}
	if tempC <= c[0].TempC {
		return c[0].Duty
	}
	last := c[len(c)-1]
	if tempC >= last.TempC {
		return last.Duty
	}
	for i := 1; i < len(c); i++ {
		if tempC > c[i].TempC {
			continue
		}
		lo, hi := c[i-1], c[i]
		frac := (tempC - lo.TempC) / (hi.TempC - lo.TempC)
		return int(math.Round(float64(lo.Duty) + frac*float64(hi.Duty-lo.Duty)))
	}
	return last.Duty
}
