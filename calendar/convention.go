package calendar

import (
	"fmt"
	"strings"
	"time"
)

// BusinessDayConvention rolls a date that falls on a holiday.
type BusinessDayConvention string

const (
	None              BusinessDayConvention = "NONE"
	Following         BusinessDayConvention = "FOLLOWING"
	ModifiedFollowing BusinessDayConvention = "MODIFIED_FOLLOWING"
	Preceding         BusinessDayConvention = "PRECEDING"
	ModifiedPreceding BusinessDayConvention = "MODIFIED_PRECEDING"
)

// ParseConvention maps a convention name (case-insensitive, "F", "MF", "P"
// shorthands accepted) onto a BusinessDayConvention.
func ParseConvention(s string) (BusinessDayConvention, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "F", "FOLLOWING":
		return Following, nil
	case "MF", "MODIFIED_FOLLOWING", "MODIFIEDFOLLOWING":
		return ModifiedFollowing, nil
	case "P", "PRECEDING":
		return Preceding, nil
	case "MP", "MODIFIED_PRECEDING", "MODIFIEDPRECEDING":
		return ModifiedPreceding, nil
	case "NONE", "UNADJUSTED":
		return None, nil
	default:
		return "", fmt.Errorf("calendar: unknown business day convention %q", s)
	}
}

// Adjust applies the convention to t on calendar c.
func (bdc BusinessDayConvention) Adjust(t time.Time, c Calendar) time.Time {
	switch bdc {
	case Following:
		return following(c, t)
	case ModifiedFollowing:
		adj := following(c, t)
		if adj.Month() != t.Month() {
			return preceding(c, t)
		}
		return adj
	case Preceding:
		return preceding(c, t)
	case ModifiedPreceding:
		adj := preceding(c, t)
		if adj.Month() != t.Month() {
			return following(c, t)
		}
		return adj
	default:
		return t
	}
}

func following(c Calendar, t time.Time) time.Time {
	for !c.IsBusinessDay(t) {
		t = t.AddDate(0, 0, 1)
	}
	return t
}

func preceding(c Calendar, t time.Time) time.Time {
	for !c.IsBusinessDay(t) {
		t = t.AddDate(0, 0, -1)
	}
	return t
}
