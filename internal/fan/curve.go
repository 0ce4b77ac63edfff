package fan

import "math"

// Point is one breakpoint on a fan curve. Temperature is in hundredths of
// a degree Celsius (10000 = 100C), duty in hundredths of a percent
// (10000 = 100%).
type Point struct {
	Temp int16
	Duty uint16
}

// Curve maps temperature to fan duty through ordered breakpoints. Points
// must be appended in strictly increasing temperature order; the curve
// does not check, and an out-of-order curve evaluates to garbage rather
// than an error.
type Curve struct {
	points []Point
}

// Append adds a breakpoint, builder style.
func (c Curve) Append(temp int16, duty uint16) Curve {
	c.points = append(c.points, Point{Temp: temp, Duty: duty})
	return c
}

// StandardCurve is the default curve shipped with the daemon.
func StandardCurve() Curve {
	return Curve{}.
		Append(20_00, 30_00).
		Append(30_00, 35_00).
		Append(40_00, 42_50).
		Append(50_00, 52_50).
		Append(65_00, 100_00)
}

// DutyFor evaluates the curve at the given temperature. Below the first
// point it clamps to the first point's duty, above the last point to the
// last point's duty, and between two points it interpolates linearly.
// Returns false only for an empty curve.
func (c Curve) DutyFor(temp int16) (uint16, bool) {
	if first, ok := c.first(); ok && temp < first.Temp {
		return first.Duty, true
	}

	for i := 0; i+1 < len(c.points); i++ {
		if duty, ok := dutyBetween(c.points[i], c.points[i+1], temp); ok {
			return duty, true
		}
	}

	if last, ok := c.last(); ok && temp > last.Temp {
		return last.Duty, true
	}

	return 0, false
}

func (c Curve) first() (Point, bool) {
	if len(c.points) == 0 {
		return Point{}, false
	}
	return c.points[0], true
}

func (c Curve) last() (Point, bool) {
	if len(c.points) == 0 {
		return Point{}, false
	}
	return c.points[len(c.points)-1], true
}

// dutyBetween returns the duty for temp if it falls on or between the two
// points, exact matches first so breakpoints are returned without rounding.
func dutyBetween(prev, next Point, temp int16) (uint16, bool) {
	if temp == next.Temp {
		return next.Duty, true
	}
	if temp == prev.Temp {
		return prev.Duty, true
	}
	if prev.Temp < temp && temp < next.Temp {
		return interpolate(prev, next, temp), true
	}
	return 0, false
}

func interpolate(prev, next Point, temp int16) uint16 {
	slope := float64(int32(next.Duty)-int32(prev.Duty)) / float64(next.Temp-prev.Temp)
	offset := math.Round(slope * float64(temp-prev.Temp))
	return uint16(int32(prev.Duty) + int32(offset))
}
