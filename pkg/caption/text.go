package caption

import (
	"fmt"
	"strings"
	"time"

	"github.com/tstromberg/mohr/pkg/jalali"
)

var farsiDigits = strings.NewReplacer(
	"0", "۰", "1", "۱", "2", "۲", "3", "۳", "4", "۴",
	"5", "۵", "6", "۶", "7", "۷", "8", "۸", "9", "۹",
)

// FarsiDigits replaces every ASCII digit in s with its Persian equivalent.
func FarsiDigits(s string) string {
	return farsiDigits.Replace(s)
}

// Text returns the caption for t: weekday, Persian date and HH:MM, with Persian digits.
func Text(t time.Time) string {
	d := jalali.FromTime(t)
	s := fmt.Sprintf("%s  %d/%d/%d  %02d:%02d", jalali.Weekday(t.Weekday()), d.Year, d.Month, d.Day, t.Hour(), t.Minute())
	return FarsiDigits(s)
}
