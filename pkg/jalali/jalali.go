// Package jalali converts Gregorian dates to the Persian (Jalali) calendar.
package jalali

import (
	"fmt"
	"time"
)

// Date is a date in the Persian calendar.
type Date struct {
	Year  int
	Month int
	Day   int
}

// String returns the date as year/month/day without zero padding.
func (d Date) String() string {
	return fmt.Sprintf("%d/%d/%d", d.Year, d.Month, d.Day)
}

// cumulative days before each Gregorian month in a common year
var monthStart = [12]int{0, 31, 59, 90, 120, 151, 181, 212, 243, 273, 304, 334}

const (
	cycleDays    = 12053 // days in a 33-year cycle
	subCycleDays = 1461  // days in a 4-year sub-cycle
)

// FromTime returns the Persian date of t in t's location.
func FromTime(t time.Time) Date {
	return FromGregorian(t.Year(), int(t.Month()), t.Day())
}

// FromGregorian converts a proleptic Gregorian date to a Persian date using
// the 33-year arithmetic approximation. It is exact for modern dates.
func FromGregorian(gy, gm, gd int) Date {
	var jy int
	if gy > 1600 {
		jy = 979
		gy -= 1600
	} else {
		jy = 0
		gy -= 621
	}

	gy2 := gy
	if gm > 2 {
		gy2 = gy + 1
	}

	days := 365*gy +
		floorDiv(gy2+3, 4) -
		floorDiv(gy2+99, 100) +
		floorDiv(gy2+399, 400) -
		80 + gd + monthStart[gm-1]

	jy += 33 * floorDiv(days, cycleDays)
	days = floorMod(days, cycleDays)

	jy += 4 * floorDiv(days, subCycleDays)
	days = floorMod(days, subCycleDays)

	if days > 365 {
		jy += (days - 1) / 365
		days = (days - 1) % 365
	}

	if days < 186 {
		return Date{Year: jy, Month: 1 + days/31, Day: 1 + days%31}
	}
	return Date{Year: jy, Month: 7 + (days-186)/30, Day: 1 + (days-186)%30}
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int) int {
	return a - floorDiv(a, b)*b
}
