package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// parseDuration accepts Go duration syntax plus "d" (days) and "w"
// (weeks), so env values can say "7d" instead of "168h".
func parseDuration(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("duration is required")
	}
	if !strings.ContainsAny(raw, "dw") {
		return time.ParseDuration(raw)
	}
	rewritten, err := rewriteDayWeekUnits(raw)
	if err != nil {
		return 0, err
	}
	return time.ParseDuration(rewritten)
}

// rewriteDayWeekUnits converts day and week segments to hours and leaves
// every other segment for time.ParseDuration to validate.
func rewriteDayWeekUnits(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("duration is required")
	}

	var b strings.Builder
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		b.WriteByte(s[0])
		s = s[1:]
		if s == "" {
			return "", fmt.Errorf("cannot parse duration %q", raw)
		}
	}

	for len(s) > 0 {
		numStr, rest, err := scanNumber(s)
		if err != nil {
			return "", fmt.Errorf("cannot parse duration %q", raw)
		}
		unit, rest, err := scanUnit(rest)
		if err != nil {
			return "", fmt.Errorf("cannot parse duration %q", raw)
		}
		s = rest

		switch unit {
		case "d", "w":
			num, err := strconv.ParseFloat(numStr, 64)
			if err != nil {
				return "", fmt.Errorf("cannot parse duration %q", raw)
			}
			hours := num * 24
			if unit == "w" {
				hours *= 7
			}
			b.WriteString(strconv.FormatFloat(hours, 'f', -1, 64))
			b.WriteByte('h')
		default:
			b.WriteString(numStr)
			b.WriteString(unit)
		}
	}
	return b.String(), nil
}

// scanNumber consumes a leading [0-9]+(\.[0-9]+)? segment.
func scanNumber(s string) (string, string, error) {
	i := 0
	dotSeen := false
	for i < len(s) {
		c := s[i]
		if c >= '0' && c <= '9' {
			i++
			continue
		}
		if c == '.' && !dotSeen {
			dotSeen = true
			i++
			continue
		}
		break
	}
	if i == 0 {
		return "", "", fmt.Errorf("missing number")
	}
	return s[:i], s[i:], nil
}

// scanUnit consumes a leading run of unit letters (including µ).
func scanUnit(s string) (string, string, error) {
	j := 0
	for j < len(s) {
		r, size := utf8.DecodeRuneInString(s[j:])
		if r == utf8.RuneError && size == 1 {
			return "", "", fmt.Errorf("malformed unit")
		}
		if r != 'µ' && !unicode.IsLetter(r) {
			break
		}
		j += size
	}
	if j == 0 {
		return "", "", fmt.Errorf("missing unit")
	}
	return s[:j], s[j:], nil
}
