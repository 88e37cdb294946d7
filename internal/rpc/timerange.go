package rpc

import (
	"fmt"
	"strings"
	"time"
)

// TimeRange is an inclusive [Lower, Upper] bound on timestamp_unix, either
// side optional. The zero value matches everything.
type TimeRange struct {
	HasLower bool
	Lower    float64
	HasUpper bool
	Upper    float64
}

// Contains reports whether ts falls within the range.
func (tr TimeRange) Contains(ts float64) bool {
	if tr.HasLower && ts < tr.Lower {
		return false
	}
	if tr.HasUpper && ts > tr.Upper {
		return false
	}
	return true
}

// ResolveTimeFilter turns one of the named relative filters ("last_hour",
// "today", "last_3_days", "this_week") or an absolute "YYYY-MM-DD,YYYY-MM-DD"
// range into inclusive timestamp_unix bounds, resolved against loc at now
// (spec.md §6.5). An empty spec matches everything.
//
// C10's stored filter predicate is equality-only (spec.md §4.10's "flat
// metadata map"; see DESIGN.md), so these bounds are applied as a post-fetch
// filter over query candidates rather than pushed into the store's filter
// map — the caller narrows by project/role there, then narrows by time here.
func ResolveTimeFilter(spec string, loc *time.Location, now time.Time) (TimeRange, error) {
	now = now.In(loc)

	switch spec {
	case "":
		return TimeRange{}, nil
	case "last_hour":
		return TimeRange{HasLower: true, Lower: unixSeconds(now.Add(-time.Hour))}, nil
	case "last_3_days":
		return TimeRange{HasLower: true, Lower: unixSeconds(now.AddDate(0, 0, -3))}, nil
	case "today":
		start := startOfDay(now)
		return TimeRange{HasLower: true, Lower: unixSeconds(start)}, nil
	case "this_week":
		start := startOfWeek(now)
		return TimeRange{HasLower: true, Lower: unixSeconds(start)}, nil
	default:
		return resolveAbsoluteRange(spec, loc)
	}
}

func resolveAbsoluteRange(spec string, loc *time.Location) (TimeRange, error) {
	parts := strings.Split(spec, ",")
	if len(parts) != 2 {
		return TimeRange{}, fmt.Errorf("rpc: invalid time filter %q: want a named filter or \"YYYY-MM-DD,YYYY-MM-DD\"", spec)
	}

	start, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(parts[0]), loc)
	if err != nil {
		return TimeRange{}, fmt.Errorf("rpc: invalid time filter start %q: %w", parts[0], err)
	}
	end, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(parts[1]), loc)
	if err != nil {
		return TimeRange{}, fmt.Errorf("rpc: invalid time filter end %q: %w", parts[1], err)
	}
	endInclusive := end.AddDate(0, 0, 1).Add(-time.Nanosecond)

	return TimeRange{
		HasLower: true, Lower: unixSeconds(start),
		HasUpper: true, Upper: unixSeconds(endInclusive),
	}, nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// startOfWeek returns the most recent Monday at midnight, in t's location.
func startOfWeek(t time.Time) time.Time {
	day := startOfDay(t)
	offset := (int(day.Weekday()) + 6) % 7 // Monday = 0
	return day.AddDate(0, 0, -offset)
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}
