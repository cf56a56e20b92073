package ui

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/josephniet/audiovis/errs"
)

// FormatTime renders seconds as m:ss. Minutes are not wrapped into hours.
// Non-finite and negative values render as 0:00.
func FormatTime(sec float64) string {
	if math.IsNaN(sec) || math.IsInf(sec, 0) || sec < 0 {
		return "0:00"
	}
	s := int(sec)
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}

// FormatTimeWithHours renders seconds as h:mm:ss, or m:ss under an hour.
func FormatTimeWithHours(sec float64) string {
	if math.IsNaN(sec) || math.IsInf(sec, 0) || sec < 0 {
		return "0:00:00"
	}
	s := int(sec)
	if h := s / 3600; h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, s%3600/60, s%60)
	}
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}

var (
	wholeField   = regexp.MustCompile(`^\d+$`)
	secondsField = regexp.MustCompile(`^\d+(\.\d+)?$`)
)

// ParseTime reads "m:ss" or "h:mm:ss" in plain decimal digits. Only the seconds
// field may be fractional.
func ParseTime(s string) (float64, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, errs.Validation("ui.ParseTime", "time %q must be m:ss or h:mm:ss", s)
	}
	var total float64
	for i, p := range parts {
		field := wholeField
		if i == len(parts)-1 {
			field = secondsField
		}
		if !field.MatchString(p) {
			return 0, errs.Validation("ui.ParseTime", "bad field %q in %q", p, s)
		}
		v, err := strconv.ParseFloat(p, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, errs.Validation("ui.ParseTime", "bad field %q in %q", p, s)
		}
		total = total*60 + v
	}
	return total, nil
}
