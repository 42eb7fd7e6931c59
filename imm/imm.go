// Package imm implements the IMM date arithmetic used by standard CDS
// contracts: quarterly roll dates on the 20th of March, June, September and
// December, and the semi-annual index roll dates (20 March, 20 September).
package imm

import (
	"time"

	"github.com/meenmo/isdacds/utils"
)

// Day is the day of month of every IMM date.
const Day = 20

// IsIMMDate reports whether d is the 20th of Mar/Jun/Sep/Dec.
func IsIMMDate(d time.Time) bool {
	return d.Day() == Day && int(d.Month())%3 == 0
}

// IsIndexRollDate reports whether d is 20 March or 20 September.
func IsIndexRollDate(d time.Time) bool {
	return d.Day() == Day && (d.Month() == time.March || d.Month() == time.September)
}

// NextIMMDate returns the first IMM date strictly after d.
func NextIMMDate(d time.Time) time.Time {
	return next(d, 3)
}

// PrevIMMDate returns the last IMM date strictly before d.
func PrevIMMDate(d time.Time) time.Time {
	return prev(d, 3)
}

// NextIndexRollDate returns the first index roll date strictly after d.
func NextIndexRollDate(d time.Time) time.Time {
	return next(d, 6)
}

// PrevIndexRollDate returns the last index roll date strictly before d.
func PrevIndexRollDate(d time.Time) time.Time {
	return prev(d, 6)
}

// next walks roll months of the form 3+k*step (Mar/Jun/Sep/Dec for step 3,
// Mar/Sep for step 6).
func next(d time.Time, step int) time.Time {
	d = utils.Normalize(d)
	candidate := utils.Date(d.Year(), d.Month(), Day)
	if !isRollMonth(d.Month(), step) || !candidate.After(d) {
		candidate = utils.AddMonth(candidate, 1)
		for !isRollMonth(candidate.Month(), step) {
			candidate = utils.AddMonth(candidate, 1)
		}
	}
	return candidate
}

func prev(d time.Time, step int) time.Time {
	d = utils.Normalize(d)
	candidate := utils.Date(d.Year(), d.Month(), Day)
	if !isRollMonth(d.Month(), step) || !candidate.Before(d) {
		candidate = utils.AddMonth(candidate, -1)
		for !isRollMonth(candidate.Month(), step) {
			candidate = utils.AddMonth(candidate, -1)
		}
	}
	return candidate
}

func isRollMonth(m time.Month, step int) bool {
	return int(m) >= 3 && (int(m)-3)%step == 0
}

// IMMDateSet returns start rolled forward by each tenor (in months).
//
// start is expected to be an IMM date; the 20th is preserved because every
// month has one.
func IMMDateSet(start time.Time, tenorMonths []int) []time.Time {
	out := make([]time.Time, len(tenorMonths))
	for i, m := range tenorMonths {
		out[i] = utils.AddMonth(utils.Normalize(start), m)
	}
	return out
}

// IMMDateSequence returns n dates starting at base and stepping stepMonths.
func IMMDateSequence(base time.Time, n, stepMonths int) []time.Time {
	out := make([]time.Time, n)
	for i := 0; i < n; i++ {
		out[i] = utils.AddMonth(utils.Normalize(base), i*stepMonths)
	}
	return out
}
