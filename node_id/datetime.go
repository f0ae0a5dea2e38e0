package nodeid

import (
	"fmt"
	"strings"
)

/*
Date and dateTime layout, below the type byte (56 bits):

	year(13) | month(4) | day(5) | hour(5) | minute(6) | millis(16) | tz(7)

millis counts seconds*1000 + milliseconds. tz is the offset in 15 minute units
plus 64; 0x7F means no timezone. Dates leave the time fields zero.
*/

const (
	tzNone = 0x7F
	tzBias = 64
	maxTZ  = 14 * 4 // +-14:00
)

type dateTime struct {
	year, month, day     int
	hour, minute, millis int
	tz                   int // quarter hours
	hasTZ                bool
}

func (dt dateTime) pack() uint64 {
	tz := tzNone
	if dt.hasTZ {
		tz = dt.tz + tzBias
	}
	return uint64(dt.year)<<43 |
		uint64(dt.month)<<39 |
		uint64(dt.day)<<34 |
		uint64(dt.hour)<<29 |
		uint64(dt.minute)<<23 |
		uint64(dt.millis)<<7 |
		uint64(tz)
}

func unpackDateTime(p uint64) dateTime {
	dt := dateTime{
		year:   int(p >> 43 & 0x1FFF),
		month:  int(p >> 39 & 0xF),
		day:    int(p >> 34 & 0x1F),
		hour:   int(p >> 29 & 0x1F),
		minute: int(p >> 23 & 0x3F),
		millis: int(p >> 7 & 0xFFFF),
	}
	if tz := int(p & 0x7F); tz != tzNone {
		dt.hasTZ = true
		dt.tz = tz - tzBias
	}
	return dt
}

func isLeap(y int) bool {
	return y%4 == 0 && (y%100 != 0 || y%400 == 0)
}

func daysIn(y, m int) int {
	switch m {
	case 2:
		if isLeap(y) {
			return 29
		}
		return 28
	case 4, 6, 9, 11:
		return 30
	}
	return 31
}

func (dt dateTime) valid() bool {
	return dt.year >= 0 && dt.year < 1<<13 &&
		dt.month >= 1 && dt.month <= 12 &&
		dt.day >= 1 && dt.day <= daysIn(dt.year, dt.month) &&
		dt.hour >= 0 && dt.hour < 24 &&
		dt.minute >= 0 && dt.minute < 60 &&
		dt.millis >= 0 && dt.millis < 60000 &&
		(!dt.hasTZ || (dt.tz >= -maxTZ && dt.tz <= maxTZ))
}

func num(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
		n = n*10 + int(s[i]-'0')
	}
	return n, true
}

// parseTZ reads "", "Z" or "+hh:mm"/"-hh:mm" with minutes a multiple of 15.
func parseTZ(s string, dt *dateTime) bool {
	switch {
	case s == "":
		return true
	case s == "Z":
		dt.hasTZ = true
		return true
	case len(s) == 6 && (s[0] == '+' || s[0] == '-') && s[3] == ':':
		h, ok1 := num(s[1:3])
		m, ok2 := num(s[4:6])
		if !ok1 || !ok2 || m%15 != 0 {
			return false
		}
		dt.tz = h*4 + m/15
		if s[0] == '-' {
			dt.tz = -dt.tz
		}
		dt.hasTZ = true
		return true
	}
	return false
}

func parseDate(s string, dt *dateTime) (rest string, ok bool) {
	if len(s) < 10 || s[4] != '-' || s[7] != '-' {
		return "", false
	}
	var ok1, ok2, ok3 bool
	dt.year, ok1 = num(s[0:4])
	dt.month, ok2 = num(s[5:7])
	dt.day, ok3 = num(s[8:10])
	return s[10:], ok1 && ok2 && ok3
}

func formatTZ(dt dateTime) string {
	if !dt.hasTZ {
		return ""
	}
	if dt.tz == 0 {
		return "Z"
	}
	sign, tz := '+', dt.tz
	if tz < 0 {
		sign, tz = '-', -tz
	}
	return fmt.Sprintf("%c%02d:%02d", sign, tz/4, tz%4*15)
}

func formatDate(dt dateTime) string {
	return fmt.Sprintf("%04d-%02d-%02d", dt.year, dt.month, dt.day) + formatTZ(dt)
}

func formatDateTime(dt dateTime) string {
	s := fmt.Sprintf("%04d-%02d-%02dT%02d:%02d:%02d", dt.year, dt.month, dt.day, dt.hour,
		dt.minute, dt.millis/1000)
	if ms := dt.millis % 1000; ms != 0 {
		s += strings.TrimRight(fmt.Sprintf(".%03d", ms), "0")
	}
	return s + formatTZ(dt)
}

func inlineDate(lex string) (NodeId, bool) {
	var dt dateTime
	rest, ok := parseDate(lex, &dt)
	if !ok || !parseTZ(rest, &dt) || !dt.valid() || formatDate(dt) != lex {
		return 0, false
	}
	return newID(TypeDate, dt.pack()), true
}

func inlineDateTime(lex string) (NodeId, bool) {
	var dt dateTime
	rest, ok := parseDate(lex, &dt)
	if !ok || len(rest) < 9 || rest[0] != 'T' || rest[3] != ':' || rest[6] != ':' {
		return 0, false
	}
	h, ok1 := num(rest[1:3])
	m, ok2 := num(rest[4:6])
	sec, ok3 := num(rest[7:9])
	if !ok1 || !ok2 || !ok3 {
		return 0, false
	}
	dt.hour, dt.minute = h, m
	rest = rest[9:]

	ms := 0
	if strings.HasPrefix(rest, ".") {
		end := 1
		for end < len(rest) && rest[end] >= '0' && rest[end] <= '9' {
			end++
		}
		frac := rest[1:end]
		if frac == "" || len(frac) > 3 {
			return 0, false
		}
		ms, _ = num((frac + "00")[:3])
		rest = rest[end:]
	}
	dt.millis = sec*1000 + ms

	if !parseTZ(rest, &dt) || !dt.valid() || formatDateTime(dt) != lex {
		return 0, false
	}
	return newID(TypeDateTime, dt.pack()), true
}

func extractDate(id NodeId) (string, bool) {
	dt := unpackDateTime(id.payload())
	if !dt.valid() {
		return "", false
	}
	return formatDate(dt), true
}

func extractDateTime(id NodeId) (string, bool) {
	dt := unpackDateTime(id.payload())
	if !dt.valid() {
		return "", false
	}
	return formatDateTime(dt), true
}
