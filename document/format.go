package document

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// NotAvailable is printed when an age cannot be worked out.
const NotAvailable = "N/A"

// Dater is implemented by wrapped timestamp types that can produce a date.
type Dater interface {
	ToDate() time.Time
}

// Age returns the whole years between a date of birth and asOf. dob may be a
// time.Time, *time.Time, an ISO date or RFC 3339 string, a Dater, or a
// serialized timestamp object with seconds and nanoseconds. Anything else,
// or a birth date after asOf, yields NotAvailable.
func Age(dob any, asOf time.Time) string {
	t, ok := toTime(dob)
	if !ok || t.IsZero() || t.After(asOf) {
		return NotAvailable
	}
	years := asOf.Year() - t.Year()
	if !sameOrLaterInYear(asOf, t) {
		years--
	}
	return strconv.Itoa(years)
}

func sameOrLaterInYear(asOf, dob time.Time) bool {
	if asOf.Month() != dob.Month() {
		return asOf.Month() > dob.Month()
	}
	return asOf.Day() >= dob.Day()
}

func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, true
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range []string{"2006-01-02", time.RFC3339Nano, time.RFC3339} {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed, true
			}
		}
		return time.Time{}, false
	case Dater:
		return dateOf(t)
	case map[string]any:
		return timestampMap(t)
	}
	return time.Time{}, false
}

// dateOf treats a ToDate that panics, such as on a nil receiver, as no date.
func dateOf(d Dater) (t time.Time, ok bool) {
	defer func() {
		if recover() != nil {
			t, ok = time.Time{}, false
		}
	}()
	return d.ToDate(), true
}

func timestampMap(m map[string]any) (time.Time, bool) {
	secs, ok := number(m["seconds"])
	if !ok {
		if secs, ok = number(m["_seconds"]); !ok {
			return time.Time{}, false
		}
	}
	nanos, ok := number(m["nanoseconds"])
	if !ok {
		nanos, _ = number(m["_nanoseconds"])
	}
	return time.Unix(secs, nanos).UTC(), true
}

func number(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	}
	return 0, false
}

// FormatRupees prints an amount with the rupee sign and Indian digit
// grouping, e.g. "500000" -> "₹5,00,000". Blank or unparseable input gives
// a placeholder.
func FormatRupees(amount string) string {
	if strings.TrimSpace(amount) == "" {
		return "[Value]"
	}
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return "[Value]"
	}

	d = d.Round(2)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	whole := d.Truncate(0)
	frac := d.Sub(whole)

	out := "₹" + sign + groupIndian(whole.String())
	if !frac.IsZero() {
		out += strings.TrimPrefix(frac.StringFixed(2), "0")
	}
	return out
}

// groupIndian groups the last three digits, then pairs: 12345678 -> 1,23,45,678.
func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
	var groups []string
	for len(head) > 2 {
		groups = append([]string{head[len(head)-2:]}, groups...)
		head = head[:len(head)-2]
	}
	if head != "" {
		groups = append([]string{head}, groups...)
	}
	return strings.Join(groups, ",") + "," + tail
}
