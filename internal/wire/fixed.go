package wire

import (
	"math"
	"strconv"
)

// Fixed is a signed 24.8 fixed-point number.
type Fixed int32

// FixedInt converts an integer.
func FixedInt(v int) Fixed {
	return Fixed(v << 8)
}

// FixedFloat converts a float, rounding to the nearest 1/256.
func FixedFloat(v float64) Fixed {
	return Fixed(math.Round(v * 256))
}

// Int returns the integer part, rounded toward negative infinity.
func (f Fixed) Int() int {
	return int(f >> 8)
}

// Float returns the exact value.
func (f Fixed) Float() float64 {
	return float64(f) / 256
}

func (f Fixed) String() string {
	return strconv.FormatFloat(f.Float(), 'f', -1, 64)
}
