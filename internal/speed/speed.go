// Package speed validates speed setpoints given as a percentage.
package speed

import (
	"fmt"
	"math"
)

const (
	Min = 0.0
	Max = 100.0
)

// Speed is a percentage known to lie in [Min, Max]. The zero value is 0%.
type Speed struct {
	value float64
}

// Zero is the stop setpoint.
var Zero = Speed{}

// Float64 returns the percentage.
func (s Speed) Float64() float64 {
	return s.value
}

func (s Speed) String() string {
	return fmt.Sprintf("%g%%", s.value)
}

// RangeError reports a raw value outside [Min, Max].
type RangeError struct {
	Value float64
}

func (e *RangeError) Error() string {
	switch {
	case math.IsNaN(e.Value):
		return "speed is not a number"
	case e.Value > Max:
		return "Speeds above 100% are not allowed!"
	default:
		return "Speeds below 0% are not allowed!"
	}
}

// Validate returns raw unchanged as a Speed, or a *RangeError when raw is
// NaN or outside [Min, Max].
func Validate(raw float64) (Speed, error) {
	if math.IsNaN(raw) || raw < Min || raw > Max {
		return Speed{}, &RangeError{Value: raw}
	}
	return Speed{value: raw}, nil
}
