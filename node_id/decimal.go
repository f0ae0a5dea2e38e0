package nodeid

import (
	"strconv"
	"strings"
)

/*
Decimal layout, below the type byte:

	sign(1) | scale(7, two's complement, -64..63) | magnitude(48 = 12 BCD digits)

The value is (-1)^sign * magnitude * 10^-scale.
*/

const (
	bcdDigits    = 12
	maxMagnitude = 999_999_999_999
	minScale     = -64
	maxScale     = 63
)

// PackBCD packs the low digits decimal digits of n into nibbles, least
// significant digit in the lowest nibble. It fails if n needs more digits.
func PackBCD(n uint64, digits int) (uint64, bool) {
	var b uint64
	for i := 0; i < digits; i++ {
		b |= (n % 10) << (4 * i)
		n /= 10
	}
	return b, n == 0
}

// UnpackBCD is the inverse of PackBCD. It fails on a nibble above 9.
func UnpackBCD(b uint64, digits int) (uint64, bool) {
	var n, mult uint64 = 0, 1
	for i := 0; i < digits; i++ {
		d := (b >> (4 * i)) & 0xF
		if d > 9 {
			return 0, false
		}
		n += d * mult
		mult *= 10
	}
	return n, true
}

// EncodeDecimal packs unscaled * 10^-scale. It reports false, rather than
// rounding, when the value needs more than 12 digits or the scale is out of
// range.
func EncodeDecimal(unscaled int64, scale int) (NodeId, bool) {
	if scale < minScale || scale > maxScale {
		return 0, false
	}
	var sign uint64
	mag := uint64(unscaled)
	if unscaled < 0 {
		sign = 1
		mag = uint64(-unscaled)
		if unscaled == -unscaled {
			return 0, false
		}
	}
	if mag > maxMagnitude {
		return 0, false
	}
	bcd, ok := PackBCD(mag, bcdDigits)
	if !ok {
		return 0, false
	}
	payload := sign<<55 | uint64(scale&0x7F)<<48 | bcd
	return newID(TypeDecimal, payload), true
}

// DecodeDecimal unpacks an id made by EncodeDecimal.
func DecodeDecimal(id NodeId) (unscaled int64, scale int, ok bool) {
	if id.Type() != TypeDecimal {
		return 0, 0, false
	}
	p := id.payload()
	mag, ok := UnpackBCD(p&(1<<48-1), bcdDigits)
	if !ok {
		return 0, 0, false
	}
	scale = int(int8(uint8(p>>48&0x7F)<<1) >> 1)
	unscaled = int64(mag)
	if p>>55&1 == 1 {
		unscaled = -unscaled
	}
	return unscaled, scale, true
}

// parseDecimal reads [-]digits[.digits] into an unscaled value and scale.
func parseDecimal(lex string) (int64, int, bool) {
	s := lex
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	intPart, frac, _ := strings.Cut(s, ".")
	digits := intPart + frac
	if digits == "" || len(digits) > 18 {
		return 0, 0, false
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return 0, 0, false
		}
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, 0, false
	}
	if neg {
		n = -n
	}
	return n, len(frac), true
}

// formatDecimal renders unscaled * 10^-scale with exactly scale fraction digits.
func formatDecimal(unscaled int64, scale int) string {
	neg := unscaled < 0
	mag := uint64(unscaled)
	if neg {
		mag = uint64(-unscaled)
	}
	digits := strconv.FormatUint(mag, 10)

	switch {
	case scale < 0:
		digits += strings.Repeat("0", -scale)
	case scale > 0:
		if len(digits) <= scale {
			digits = strings.Repeat("0", scale-len(digits)+1) + digits
		}
		digits = digits[:len(digits)-scale] + "." + digits[len(digits)-scale:]
	}
	if neg && mag != 0 {
		return "-" + digits
	}
	return digits
}

func inlineDecimal(lex string) (NodeId, bool) {
	unscaled, scale, ok := parseDecimal(lex)
	if !ok || formatDecimal(unscaled, scale) != lex {
		return 0, false
	}
	return EncodeDecimal(unscaled, scale)
}

func extractDecimal(id NodeId) (string, bool) {
	unscaled, scale, ok := DecodeDecimal(id)
	if !ok {
		return "", false
	}
	return formatDecimal(unscaled, scale), true
}
