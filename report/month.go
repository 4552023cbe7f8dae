package report

import (
	"fmt"
	"strings"
	"time"
)

// Month is the reporting period label carried by monthly snapshots.
type Month string

const (
	Jan Month = "JAN"
	Feb Month = "FEB"
	Mar Month = "MAR"
	Apr Month = "APR"
	May Month = "MAY"
	Jun Month = "JUN"
	Jul Month = "JUL"
	Aug Month = "AUG"
	Sep Month = "SEP"
	Oct Month = "OCT"
	Nov Month = "NOV"
	Dec Month = "DEC"
)

var monthDisplay = map[Month]string{
	Jan: "January", Feb: "February", Mar: "March", Apr: "April",
	May: "May", Jun: "June", Jul: "July", Aug: "August",
	Sep: "September", Oct: "October", Nov: "November", Dec: "December",
}

var monthByIndex = [...]Month{Jan, Feb, Mar, Apr, May, Jun, Jul, Aug, Sep, Oct, Nov, Dec}

// MonthOf returns the label for a timestamp's calendar month.
func MonthOf(t time.Time) Month {
	return monthByIndex[int(t.Month())-1]
}

// ParseMonth validates an externally supplied month label.
func ParseMonth(s string) (Month, error) {
	month := Month(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := monthDisplay[month]; !ok {
		return "", fmt.Errorf("report: unknown month %q", s)
	}
	return month, nil
}

// Display returns the full month name used in credential titles.
func (m Month) Display() string {
	return monthDisplay[m]
}
