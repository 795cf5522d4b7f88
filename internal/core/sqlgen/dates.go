package sqlgen

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	isoDateRe    = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	relativeKoRe = regexp.MustCompile(`(?:최근|지난)\s*(\d+)\s*개?([일주월년])`)
	relativeEnRe = regexp.MustCompile(`(?i)last\s+(\d+)\s+(days?|weeks?|months?|years?)`)
)

// resolveDate turns a date entity into an ISO day string relative to now.
// Entities it cannot interpret report ok=false and the caller skips the
// template instead of binding garbage
func resolveDate(raw string, now time.Time) (string, bool) {
	s := strings.TrimSpace(raw)

	if isoDateRe.MatchString(s) {
		return s, true
	}

	if m := relativeKoRe.FindStringSubmatch(s); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return back(now, n, koUnits[m[2]]), true
		}
	}
	if m := relativeEnRe.FindStringSubmatch(s); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return back(now, n, strings.ToLower(m[2])[0]), true
		}
	}

	switch s {
	case "오늘", "today":
		return day(now), true
	case "어제", "yesterday":
		return day(now.AddDate(0, 0, -1)), true
	case "이번 주", "이번주", "this week":
		return day(now.AddDate(0, 0, -7)), true
	case "이번 달", "이번달", "this month":
		return day(time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())), true
	case "올해", "this year":
		return day(time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location())), true
	}
	return "", false
}

var koUnits = map[string]byte{"일": 'd', "주": 'w', "월": 'm', "년": 'y'}

// back moves now n units into the past. unit is d, w, m or y
func back(now time.Time, n int, unit byte) string {
	switch unit {
	case 'd':
		return day(now.AddDate(0, 0, -n))
	case 'w':
		return day(now.AddDate(0, 0, -7*n))
	case 'm':
		return day(now.AddDate(0, -n, 0))
	case 'y':
		return day(now.AddDate(-n, 0, 0))
	}
	return day(now)
}

func day(t time.Time) string {
	return t.Format("2006-01-02")
}
