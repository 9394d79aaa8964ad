package timeauth

import (
	"fmt"
	"time"
)

const (
	// MinValidYear is the earliest calendar year an RTC reading may carry.
	MinValidYear = 2020
	// MinValidEpoch is 2020-01-01T00:00:00Z; sync results before it are rejected.
	MinValidEpoch uint32 = 1577836800
	// DefaultEpoch (2025-01-01T00:00:00Z) seeds an RTC that holds garbage.
	DefaultEpoch uint32 = 1735689600

	secondsPerDay = 86400
)

// DateTime is a calendar reading as held by a hardware clock. It carries no
// zone; the Authority interprets it as local time under its UTC offset.
type DateTime struct {
	Year   int
	Month  time.Month
	Day    int
	Hour   int
	Minute int
	Second int
}

func (d DateTime) String() string {
	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d", d.Year, int(d.Month), d.Day, d.Hour, d.Minute, d.Second)
}

// Validate applies the plausibility checks for an RTC reading.
func (d DateTime) Validate() error {
	if d.Year < MinValidYear {
		return fmt.Errorf("year %d before %d", d.Year, MinValidYear)
	}
	if d.Month < time.January || d.Month > time.December {
		return fmt.Errorf("month %d out of range", d.Month)
	}
	if d.Day < 1 || d.Day > 31 {
		return fmt.Errorf("day %d out of range", d.Day)
	}
	if d.Hour < 0 || d.Hour > 23 || d.Minute < 0 || d.Minute > 59 || d.Second < 0 || d.Second > 59 {
		return fmt.Errorf("time of day %02d:%02d:%02d out of range", d.Hour, d.Minute, d.Second)
	}
	return nil
}

// toEpoch interprets d as local time at utcOffset seconds east of UTC.
func toEpoch(d DateTime, utcOffset int32) uint32 {
	local := time.Date(d.Year, d.Month, d.Day, d.Hour, d.Minute, d.Second, 0, time.UTC).Unix()
	epoch := local - int64(utcOffset)
	if epoch < 0 {
		return 0
	}
	return uint32(epoch)
}

// fromEpoch renders epoch as local calendar time at utcOffset.
func fromEpoch(epoch uint32, utcOffset int32) DateTime {
	t := time.Unix(int64(epoch)+int64(utcOffset), 0).UTC()
	return DateTime{
		Year:   t.Year(),
		Month:  t.Month(),
		Day:    t.Day(),
		Hour:   t.Hour(),
		Minute: t.Minute(),
		Second: t.Second(),
	}
}

func dayStart(epoch uint32) uint32 {
	return epoch / secondsPerDay * secondsPerDay
}
