package jalali

import "time"

// weekdays is indexed by time.Weekday, so Sunday comes first.
var weekdays = [7]string{
	"یکشنبه",
	"دوشنبه",
	"سه‌شنبه",
	"چهارشنبه",
	"پنج‌شنبه",
	"جمعه",
	"شنبه",
}

var months = [12]string{
	"فروردین", "اردیبهشت", "خرداد",
	"تیر", "مرداد", "شهریور",
	"مهر", "آبان", "آذر",
	"دی", "بهمن", "اسفند",
}

// Weekday returns the Persian name of the day of the week.
func Weekday(d time.Weekday) string {
	return weekdays[int(d)%7]
}

// MonthName returns the Persian name of month m (1-12), or "" when out of range.
func MonthName(m int) string {
	if m < 1 || m > 12 {
		return ""
	}
	return months[m-1]
}
