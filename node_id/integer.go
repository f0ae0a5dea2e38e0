package nodeid

import (
	"strconv"
)

// Integers are 56-bit two's complement.
const (
	MaxInlineInteger = 1<<55 - 1
	MinInlineInteger = -1 << 55
)

func EncodeInteger(v int64) (NodeId, bool) {
	if v < MinInlineInteger || v > MaxInlineInteger {
		return 0, false
	}
	return newID(TypeInteger, uint64(v)), true
}

func DecodeInteger(id NodeId) (int64, bool) {
	if id.Type() != TypeInteger {
		return 0, false
	}
	// sign-extend from bit 55
	return int64(id.payload()<<8) >> 8, true
}

func inlineInteger(lex string) (NodeId, bool) {
	v, err := strconv.ParseInt(lex, 10, 64)
	if err != nil || strconv.FormatInt(v, 10) != lex {
		return 0, false
	}
	return EncodeInteger(v)
}

func extractInteger(id NodeId) (string, bool) {
	v, ok := DecodeInteger(id)
	if !ok {
		return "", false
	}
	return strconv.FormatInt(v, 10), true
}

func inlineBoolean(lex string) (NodeId, bool) {
	switch lex {
	case "true":
		return newID(TypeBoolean, 1), true
	case "false":
		return newID(TypeBoolean, 0), true
	}
	return 0, false
}

func extractBoolean(id NodeId) (string, bool) {
	switch id.payload() {
	case 1:
		return "true", true
	case 0:
		return "false", true
	}
	return "", false
}
