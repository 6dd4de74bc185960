package projection

import "time"

// Day truncates t to a UTC calendar day.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// MonthKey formats the month of t as YYYY-MM.
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}

// IsDemandDay reports whether forecast demand is distributed on d. Sundays
// never carry forecast demand.
func IsDemandDay(d time.Time) bool {
	return d.Weekday() != time.Sunday
}

// DaysInMonth returns the number of days of the month containing t.
func DaysInMonth(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// EligibleDays counts the demand days of the month containing t.
func EligibleDays(t time.Time) int {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	n := 0
	for d := first; d.Month() == first.Month(); d = d.AddDate(0, 0, 1) {
		if IsDemandDay(d) {
			n++
		}
	}
	return n
}

// DailyShare is the forecast quantity assigned to each demand day of the
// month containing t.
func DailyShare(t time.Time, monthTotal float64) float64 {
	n := EligibleDays(t)
	if n == 0 {
		return 0
	}
	return monthTotal / float64(n)
}
