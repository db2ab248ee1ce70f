package table

import (
	"fmt"
	"strconv"
	"time"
)

// FormatFloat formats a float with two decimal places.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// FormatPrice formats a price value, or "-" for the no-price sentinel.
func FormatPrice(p float64) string {
	if p == 0 {
		return "-"
	}
	return FormatFloat(p)
}

// FormatPct formats a signed percentage as "+X.XX%" / "-X.XX%".
func FormatPct(p float64) string {
	return fmt.Sprintf("%+.2f%%", p)
}

// FormatInt formats an integer value.
func FormatInt(n int64) string {
	return strconv.FormatInt(n, 10)
}

// FormatTime formats a timestamp in UTC, or "" for the zero time.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// FormatDate formats the date part of a timestamp, or "" for the zero
// time.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}
